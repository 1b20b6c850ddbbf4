package ssdp

import (
	"context"
	"math/rand"
	"time"

	log "github.com/sirupsen/logrus"

	"gargoton.petite-maison-orange.fr/eric/upnpcore/task"
)

// Announcement is the flattened set of facts the announcer needs about
// one device tree entry (root or embedded) to advertise it — USN forms
// are supplied pre-computed (via DeviceUSNForms) rather than derived from
// a device.Device, keeping this package free of a dependency on device/
// schema.
type Announcement struct {
	UUID     string
	Location string
	Server   string
	NTs      []struct{ NT, USN string }
	LeaseTime time.Duration
}

// Announcer runs the device-side announcement scheduler (spec §4.3
// "Announcement scheduler"): initial alive with 0–100 ms jitter, periodic
// re-announce at max(30s, lease/2 - 10s), and an optional byebye sweep
// before the first alive burst.
type Announcer struct {
	socket     *Socket
	manager    *task.Manager
	specStrict bool

	mu            struct{}
	announcements []*Announcement
}

// NewAnnouncer creates an announcer writing to socket, using manager for
// its long-lived re-announce loop. specStrict enables ~200ms "group"
// pacing (spec §4.3, §D.1).
func NewAnnouncer(socket *Socket, manager *task.Manager, specStrict bool) *Announcer {
	return &Announcer{socket: socket, manager: manager, specStrict: specStrict}
}

// Add registers a device tree entry for periodic (re-)announcement.
func (a *Announcer) Add(ann *Announcement) {
	a.announcements = append(a.announcements, ann)
}

// Start sends an optional byebye sweep, then the initial alive burst
// after a random 0–100 ms delay, then schedules periodic re-announces as
// a long-lived task.
func (a *Announcer) Start(ctx context.Context, byebyeSweepFirst bool) *task.Task {
	if byebyeSweepFirst {
		for _, ann := range a.announcements {
			a.sendByebye(ann)
		}
	}

	return a.manager.Spawn(ctx, func(ctx context.Context) {
		if err := task.Sleep(ctx, time.Duration(rand.Intn(100))*time.Millisecond); err != nil {
			return
		}
		a.announceAll()

		for _, ann := range a.announcements {
			interval := ann.LeaseTime/2 - 10*time.Second
			if interval < 30*time.Second {
				interval = 30 * time.Second
			}
			a.scheduleReannounce(ctx, ann, interval)
		}
		<-ctx.Done()
	})
}

func (a *Announcer) scheduleReannounce(ctx context.Context, ann *Announcement, interval time.Duration) {
	task.Ticker(ctx, interval, func(ctx context.Context) {
		a.sendAlive(ann)
	})
}

func (a *Announcer) announceAll() {
	for _, ann := range a.announcements {
		a.sendAlive(ann)
	}
}

func (a *Announcer) sendAlive(ann *Announcement) {
	for i, form := range ann.NTs {
		msg := BuildNotify(Alive, form.NT, form.USN, ann.Location, ann.Server, int(ann.LeaseTime.Seconds()))
		if err := a.socket.Send(msg); err != nil {
			log.Warnf("❌ failed to notify alive: USN %s: %v", form.USN, err)
		} else {
			log.Infof("✅ notify alive: USN %s (NT=%s)", form.USN, form.NT)
		}

		pause := 50 * time.Millisecond
		if a.specStrict && (i+1)%4 == 0 {
			pause = 200 * time.Millisecond
		}
		time.Sleep(pause)
	}
}

// sendByebye sends the byebye burst without inter-packet pacing (spec
// §4.3: "Byebye bursts omit the pacing so shutdown is prompt").
func (a *Announcer) sendByebye(ann *Announcement) {
	for _, form := range ann.NTs {
		msg := BuildNotify(Byebye, form.NT, form.USN, "", "", 0)
		if err := a.socket.Send(msg); err != nil {
			log.Warnf("❌ failed to notify byebye: USN %s: %v", form.USN, err)
		} else {
			log.Infof("👋 notify byebye: USN %s (NT=%s)", form.USN, form.NT)
		}
	}
}

// ByebyeAll sends a byebye burst for every registered announcement — used
// on host shutdown (spec §4.6 "Sends a byebye sweep before the HTTP
// server is torn down").
func (a *Announcer) ByebyeAll() {
	for _, ann := range a.announcements {
		a.sendByebye(ann)
	}
}
