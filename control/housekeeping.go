package control

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
)

// housekeep runs once per 5 s tick (spec §4.5 "Housekeeping task"):
// expire stale root devices and schedule renewals for subscriptions
// nearing expiry. Per spec §5's collect-outside-lock convention, both
// scans gather their work under the lock, then perform I/O after
// releasing it.
func (p *Point) housekeep(ctx context.Context) {
	now := time.Now()

	p.mu.Lock()
	var expiredUUIDs []string
	for uuid, d := range p.roots {
		if d.IsExpired(now) {
			expiredUUIDs = append(expiredUUIDs, uuid)
		}
	}
	var dueRenewals []*Subscription
	for _, sub := range p.subs {
		if sub.expired(now) || sub.renewalDue(now) {
			dueRenewals = append(dueRenewals, sub)
		}
	}
	p.mu.Unlock()

	for _, uuid := range expiredUUIDs {
		log.Infof("⏰ device %s expired without renewal", uuid)
		p.handleByebye(uuid)
	}

	if len(dueRenewals) == 0 {
		return
	}

	var errs *multierror.Error
	for _, sub := range dueRenewals {
		if err := p.Renew(ctx, sub); err != nil {
			errs = multierror.Append(errs, err)
			// A renewal that fails outright (peer gone, 412, etc.) is
			// treated like an expiry: drop it locally rather than retry
			// forever against a dead endpoint.
			p.mu.Lock()
			delete(p.subs, sub.SID())
			p.mu.Unlock()
		}
	}
	if errs.ErrorOrNil() != nil {
		log.Debugf("🐞 housekeeping renewal errors (non-fatal): %v", errs)
	}
}
