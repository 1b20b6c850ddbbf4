package control

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"gargoton.petite-maison-orange.fr/eric/upnpcore/device"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/gena"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/schema"
)

// Subscription is the control point's handle on one outbound GENA
// subscription to a remote service. It is distinct from gena.Subscriber
// (the device-host-side record of a subscriber) — this is the mirror
// record the *subscribing* side keeps.
type Subscription struct {
	mu sync.Mutex

	sid         string
	rootUUID    string
	serviceID   string
	eventSubURL string
	expiration  time.Time
	timeout     time.Duration

	haveSeq bool
	lastSeq uint32
}

func (s *Subscription) SID() string       { return s.sid }
func (s *Subscription) ServiceID() string { return s.serviceID }
func (s *Subscription) RootUUID() string  { return s.rootUUID }

func (s *Subscription) expired(now time.Time) bool { return now.After(s.expiration) }

func (s *Subscription) renewalDue(now time.Time) bool {
	return now.Add(90 * time.Second).After(s.expiration)
}

// acceptSequence enforces spec §5's "strictly increasing, never 0 on
// wrap" ordering guarantee from the receiving side: the first NOTIFY seeds
// the counter, every subsequent one must be exactly lastSeq+1 (mirroring
// gena.Subscriber.NextEventKey's wrap rule). Anything else — duplicate,
// reordered, skipped — is rejected so stale state is never delivered.
func (s *Subscription) acceptSequence(seq uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.haveSeq {
		s.haveSeq = true
		s.lastSeq = seq
		return true
	}
	expected := s.lastSeq + 1
	if expected == 0 {
		expected = 1
	}
	if seq != expected {
		return false
	}
	s.lastSeq = seq
	return true
}

// Subscribe sends a SUBSCRIBE request for svc (owned by root device d) and
// registers the resulting subscription, draining any NOTIFYs that had
// already arrived for its SID while the response was in flight.
func (p *Point) Subscribe(ctx context.Context, d *device.Device, svc *schema.Service, timeout time.Duration) (*Subscription, error) {
	eventURL, err := d.ResolveURL(svc.EventSubURL())
	if err != nil {
		return nil, err
	}

	callback := p.callbackURL(d.UUID(), svc.ServiceId())
	if timeout <= 0 {
		timeout = gena.DefaultTimeout
	}

	req, err := http.NewRequestWithContext(ctx, "SUBSCRIBE", eventURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("CALLBACK", gena.FormatCallbackHeader([]string{callback}))
	req.Header.Set("NT", "upnp:event")
	req.Header.Set("TIMEOUT", gena.TimeoutHeader(timeout))

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("control: SUBSCRIBE %s: status %s", eventURL, resp.Status)
	}

	sid := resp.Header.Get("SID")
	if sid == "" {
		return nil, fmt.Errorf("control: SUBSCRIBE %s: response carried no SID", eventURL)
	}
	granted := gena.ParseTimeoutHeader(resp.Header.Get("TIMEOUT"))
	if granted <= 0 {
		granted = timeout
	}

	sub := &Subscription{
		sid:         sid,
		rootUUID:    d.UUID(),
		serviceID:   svc.ServiceId(),
		eventSubURL: eventURL,
		expiration:  time.Now().Add(granted),
		timeout:     granted,
	}

	p.mu.Lock()
	p.subs[sid] = sub
	p.mu.Unlock()

	p.drainPendingFor(sub)
	log.Infof("✅ subscribed to %s on %s, SID %s", svc.ServiceId(), d.UUID(), sid)
	return sub, nil
}

// Renew extends an existing subscription before it expires (spec §4.5
// housekeeping "within 90 s of expiration").
func (p *Point) Renew(ctx context.Context, sub *Subscription) error {
	req, err := http.NewRequestWithContext(ctx, "SUBSCRIBE", sub.eventSubURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("SID", sub.SID())
	req.Header.Set("TIMEOUT", gena.TimeoutHeader(sub.timeout))

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("control: RENEW %s: status %s", sub.eventSubURL, resp.Status)
	}

	granted := gena.ParseTimeoutHeader(resp.Header.Get("TIMEOUT"))
	if granted <= 0 {
		granted = sub.timeout
	}
	sub.mu.Lock()
	sub.expiration = time.Now().Add(granted)
	sub.mu.Unlock()
	return nil
}

// Unsubscribe removes sub from the local registry immediately and fires
// the UNSUBSCRIBE request in the background without waiting on its result
// (spec §9 D "unsubscribe fire-and-forget" — the remote peer's GENA
// registry will also self-evict sub at its normal expiration if the
// request is lost).
func (p *Point) Unsubscribe(sub *Subscription) {
	p.mu.Lock()
	delete(p.subs, sub.SID())
	p.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, "UNSUBSCRIBE", sub.eventSubURL, nil)
		if err != nil {
			return
		}
		req.Header.Set("SID", sub.SID())
		resp, err := p.httpClient.Do(req)
		if err != nil {
			log.Debugf("🐞 UNSUBSCRIBE %s failed (ignored): %v", sub.eventSubURL, err)
			return
		}
		resp.Body.Close()
	}()
}

// callbackURL builds this control point's per-subscription NOTIFY address
// (spec §6 "/<device-uuid>/<service-id>").
func (p *Point) callbackURL(deviceUUID, serviceID string) string {
	return p.localURL + "/" + deviceUUID + "/" + url.PathEscape(serviceID)
}
