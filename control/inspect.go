package control

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"gargoton.petite-maison-orange.fr/eric/upnpcore/device"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/schema"
)

// inspectDebounce is the delay between an alive/search-response sighting
// and the description GET, to absorb an immediately-following byebye
// (spec §4.5 step 4 "0.5 s delay").
const inspectDebounce = 500 * time.Millisecond

// maxEmbeddedDepth bounds the embedded-device recursion an SCPD fetch
// pipeline will walk (spec §4.5 step 4 "depth-limited to 5 levels").
const maxEmbeddedDepth = 5

// handleByebye removes uuid's root device (if known) and fires
// DeviceRemoved plus subscriber cancellation for every service under it
// (spec §4.5 step 2).
func (p *Point) handleByebye(uuid string) {
	p.mu.Lock()
	d, ok := p.roots[uuid]
	if ok {
		delete(p.roots, uuid)
	}
	var toCancel []*Subscription
	if ok {
		for sid, sub := range p.subs {
			if sub.rootUUID == uuid {
				toCancel = append(toCancel, sub)
				delete(p.subs, sid)
			}
		}
	}
	p.mu.Unlock()

	if !ok {
		return
	}

	log.Infof("👋 byebye for %s, evicting %d subscription(s)", uuid, len(toCancel))
	for _, l := range p.listenersSnapshot() {
		l.DeviceRemoved(d)
	}
}

// handleAdvertisement processes an alive NOTIFY or search response: known
// devices just get their lease refreshed, unknown ones enter inspection
// (spec §4.5 step 3-4).
func (p *Point) handleAdvertisement(uuid, location string, maxAge int, src *net.UDPAddr) {
	p.mu.Lock()
	if d, ok := p.roots[uuid]; ok {
		p.mu.Unlock()
		d.Touch()
		return
	}
	if p.pending[uuid] {
		p.mu.Unlock()
		return
	}
	p.pending[uuid] = true
	p.mu.Unlock()

	p.manager.Spawn(context.Background(), func(ctx context.Context) {
		defer p.clearPending(uuid)
		select {
		case <-ctx.Done():
			return
		case <-time.After(inspectDebounce):
		}
		p.inspect(ctx, uuid, location, maxAge)
	})
}

func (p *Point) clearPending(uuid string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pending, uuid)
}

// inspect fetches a device's description, then every service's SCPD, and
// registers the device only once everything succeeds (spec §4.5 step 4-5).
func (p *Point) inspect(ctx context.Context, uuid, location string, maxAge int) {
	d, err := p.fetchDescription(ctx, location)
	if err != nil {
		log.Warnf("❌ description fetch failed for %s (%s): %v", uuid, location, err)
		return
	}
	if d.UUID() != uuid {
		log.Warnf("❌ description UUID mismatch: USN said %s, description said %s", uuid, d.UUID())
		return
	}
	if maxAge > 0 {
		d.SetLeaseTime(time.Duration(maxAge) * time.Second)
	}

	if err := p.fetchAllSCPDs(ctx, d, 0); err != nil {
		log.Warnf("❌ SCPD fetch failed for %s, dropping device: %v", uuid, err)
		return
	}

	if !d.IsReady() {
		log.Warnf("❌ device %s not ready after SCPD fetch, dropping", uuid)
		return
	}

	p.mu.Lock()
	p.roots[uuid] = d
	p.mu.Unlock()

	log.Infof("✅ device added: %s (%s)", uuid, d.DeviceType())
	for _, l := range p.listenersSnapshot() {
		l.DeviceAdded(d)
	}
}

// fetchDescription GETs and parses the device description document at
// location.
func (p *Point) fetchDescription(ctx context.Context, location string) (*device.Device, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("control: GET %s: status %s", location, resp.Status)
	}

	d, err := device.ParseDescription(resp.Body, location)
	if err != nil {
		return nil, err
	}
	if err := d.RewriteLocalhost(remoteHost(resp)); err != nil {
		return nil, err
	}
	return d, nil
}

// remoteHost extracts the host the description was actually fetched from,
// for the "locality quirk" rewrite (spec §4.2).
func remoteHost(resp *http.Response) string {
	if resp.Request == nil || resp.Request.URL == nil {
		return ""
	}
	return resp.Request.URL.Hostname()
}

// fetchAllSCPDs walks d's own services and, recursively, its embedded
// devices up to maxEmbeddedDepth, fetching and installing each service's
// SCPD. Any single failure aborts the whole device (spec §4.5 step 5).
func (p *Point) fetchAllSCPDs(ctx context.Context, d *device.Device, depth int) error {
	if depth > maxEmbeddedDepth {
		return fmt.Errorf("control: embedded device tree exceeds depth %d", maxEmbeddedDepth)
	}

	for svc := range d.Services().All() {
		scpdURL, err := d.ResolveURL(svc.SCPDURL())
		if err != nil {
			return err
		}
		scpd, err := p.fetchSCPD(ctx, scpdURL)
		if err != nil {
			return fmt.Errorf("control: SCPD fetch %s: %w", scpdURL, err)
		}
		svc.SetSCPD(scpd)
	}

	for _, child := range d.EmbeddedDevices() {
		if err := p.fetchAllSCPDs(ctx, child, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (p *Point) fetchSCPD(ctx context.Context, url string) (*schema.SCPD, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %s", resp.Status)
	}
	return schema.ParseSCPD(resp.Body)
}
