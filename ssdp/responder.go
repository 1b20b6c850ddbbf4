package ssdp

import (
	"math/rand"
	"net"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"gargoton.petite-maison-orange.fr/eric/upnpcore/netutil"
)

// Responder answers M-SEARCH requests arriving on the shared Socket (spec
// §4.3 "M-SEARCH responder"). It implements SearchHandler.
type Responder struct {
	announcements []*Announcement
	specStrict    bool
}

// NewResponder creates a responder with no announcements; Add registers
// the ones it serves. specStrict doubles every response with ~200ms spacing (spec §4.3).
func NewResponder(specStrict bool) *Responder {
	return &Responder{specStrict: specStrict}
}

func (r *Responder) Add(ann *Announcement) {
	r.announcements = append(r.announcements, ann)
}

// HandleMSearch validates the request (spec §4.3: request target "*",
// protocol HTTP/1.1, MAN="ssdp:discover", MX present), computes a random
// response delay in [0, min(MX,5)] seconds, then responds for every
// matching USN.
func (r *Responder) HandleMSearch(msg *Message, src *net.UDPAddr, reply func(data []byte) error) {
	if f := strings.Fields(msg.rawFirst); len(f) != 3 || f[1] != "*" || f[2] != "HTTP/1.1" {
		return
	}
	if !strings.EqualFold(strings.Trim(msg.MAN(), `"`), "ssdp:discover") {
		return
	}
	if msg.Get("MX") == "" {
		return
	}

	mx := msg.MX()
	if mx < 0 {
		mx = 0
	}
	if mx > 5 {
		mx = 5
	}

	st := msg.ST()
	if st == "" {
		return
	}

	if !r.interfaceMatchesSource(src) {
		return
	}

	delay := time.Duration(rand.Intn(mx+1)) * time.Second
	time.Sleep(delay)

	for _, ann := range r.announcements {
		for _, form := range ann.NTs {
			if !stMatches(st, form) {
				continue
			}
			data := BuildSearchResponse(form.NT, form.USN, ann.Location, ann.Server, int(ann.LeaseTime.Seconds()))
			r.send(reply, data, form.USN)
			if r.specStrict {
				time.Sleep(200 * time.Millisecond)
				r.send(reply, data, form.USN)
			}
		}
	}
}

func (r *Responder) send(reply func([]byte) error, data []byte, usn string) {
	if err := reply(data); err != nil {
		log.Warnf("❌ failed to send M-SEARCH response for %s: %v", usn, err)
	} else {
		log.Infof("📡 responded to M-SEARCH with USN=%s", usn)
	}
}

func stMatches(st string, form struct{ NT, USN string }) bool {
	if st == "ssdp:all" {
		return true
	}
	return st == form.NT
}

// interfaceMatchesSource implements the connect-then-compare fan-out
// de-duplication (spec §4.3 "the engine connects a UDP socket to the
// querier so the kernel chooses the outbound interface, then compares
// that interface's primary address against the iterated interface"): it
// connects a UDP socket to src to ask the kernel which local interface and
// address it would route the reply through, then walks the usable
// multicast interfaces looking for the one the kernel picked and confirms
// its primary address agrees with the routing decision. A single shared
// Socket serves every interface, so this check stands in for the per-
// interface dedup a one-socket-per-interface host would otherwise need —
// it still rejects a source the host has no matching usable interface for.
func (r *Responder) interfaceMatchesSource(src *net.UDPAddr) bool {
	routedIface, routedIP, err := netutil.InterfaceForDestination(src.String())
	if err != nil {
		return false
	}

	usable, err := netutil.MulticastInterfaces()
	if err != nil {
		return false
	}
	for _, u := range usable {
		if u.Iface.Name != routedIface {
			continue
		}
		primary, err := netutil.PrimaryAddress(u.Iface.Name)
		if err != nil {
			return false
		}
		return primary.Equal(routedIP)
	}
	return false
}
