// Command upnpcore-demo hosts one toy device and runs a control point
// against it in the same process, exercising every layer of the core
// (SSDP, SCPD/description, SOAP control, GENA eventing) without any
// device-specific profile logic — the MediaServer/MediaRenderer/
// MediaCrawler profiles spec.md excludes by name. Grounded on the
// teacher's cmd/pmomusic/main.go shape: build a device, register it,
// start the server, wait for a signal, shut down cleanly.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"

	"gargoton.petite-maison-orange.fr/eric/upnpcore/config"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/control"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/host"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/ssdp"
)

func main() {
	configPath := flag.String("config", "", "path to a .upnpcore.yml config file")
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{
		ForceColors:   isatty.IsTerminal(os.Stdout.Fd()),
		FullTimestamp: true,
	})

	cfg := config.Load(*configPath)

	sock, err := ssdp.NewSocket()
	if err != nil {
		log.Fatalf("❌ opening SSDP socket: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := runSharedSocket(ctx, sock)

	dimmer := newDimmerDevice()
	root := buildDevice(cfg)

	h := host.NewHost(root, cfg,
		host.WithSocket(sock),
		host.WithActionHandler(dimmer),
		host.WithSetupHook(dimmer.setup),
	)
	if err := h.Start(ctx); err != nil {
		log.Fatalf("❌ starting device host: %v", err)
	}

	point := control.NewPoint(sock, cfg)
	point.IgnoreUUID(h.Root().UUID())
	point.AddListener(&logListener{})
	if err := point.Start(ctx); err != nil {
		log.Fatalf("❌ starting control point: %v", err)
	}

	log.Infof("🚀 upnpcore-demo running at %s, device lease ends %s — Ctrl+C to stop",
		h.BaseURL(), humanize.Time(time.Now().Add(root.LeaseTime())))

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	log.Info("👋 shutting down")
	point.Stop()
	h.Stop()
	cancel()
	manager.StopAll()
}
