// Package gena implements the GENA event subsystem (spec §4.4): the
// per-service subscriber registry, SUBSCRIBE/RENEW/UNSUBSCRIBE lifecycle,
// the moderated event task, and NOTIFY formatting/delivery. Grounded on the
// teacher's upnp/serviceinstance.go EventSubHandler stub (a structural
// placeholder this package replaces with a real implementation) and
// upnp/devices/services/statevariables/statevalueinstance.go's GenerateEvent
// (the <e:propertyset> shape).
package gena

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout is used when a SUBSCRIBE request's Timeout header is
// missing or "Second-infinite" (spec §4.4 "New subscribe").
const DefaultTimeout = 300 * time.Second

// MaxSubscribers caps concurrent subscribers per service (spec §4.4).
const MaxSubscribers = 30

// EvictionGrace is how long past expiration a subscriber with a failed
// last notification is kept before eviction (spec §4.4 "Event delivery"
// step 3).
const EvictionGrace = 30 * time.Second

// Subscriber is one GENA subscription (spec §3 "Subscriber"): SID,
// callback URLs, the local interface the SUBSCRIBE arrived on, a monotonic
// event key, an expiration timestamp, and the last-notify outcome used for
// eviction decisions.
type Subscriber struct {
	mu sync.RWMutex

	sid            string
	callbacks      []string
	localInterface string
	eventKey       uint32
	expiration     time.Time

	lastNotifyFailed bool
}

func newSID() string {
	return "uuid:" + uuid.New().String()
}

// NewSubscriber creates a subscriber with a fresh SID, expiring after
// timeout (clamped to DefaultTimeout if <= 0).
func NewSubscriber(callbacks []string, localInterface string, timeout time.Duration) *Subscriber {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Subscriber{
		sid:            newSID(),
		callbacks:      callbacks,
		localInterface: localInterface,
		expiration:     time.Now().Add(timeout),
	}
}

func (s *Subscriber) SID() string { return s.sid }

func (s *Subscriber) Callbacks() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.callbacks
}

func (s *Subscriber) Expiration() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiration
}

// Timeout returns the remaining lease, clamped to 0.
func (s *Subscriber) Timeout() time.Duration {
	d := time.Until(s.Expiration())
	if d < 0 {
		return 0
	}
	return d
}

func (s *Subscriber) IsExpired(now time.Time) bool {
	return now.After(s.Expiration())
}

// ShouldEvict reports whether this subscriber has been expired beyond the
// grace window with its last notification having failed (spec §4.4 "Event
// delivery" step 3).
func (s *Subscriber) ShouldEvict(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !now.After(s.expiration.Add(EvictionGrace)) {
		return false
	}
	return s.lastNotifyFailed
}

// Renew extends the subscriber's expiration and updates the local
// interface (spec §4.4 "Renew": "in case the subscriber reconnected
// through a different path").
func (s *Subscriber) Renew(timeout time.Duration, localInterface string) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiration = time.Now().Add(timeout)
	if localInterface != "" {
		s.localInterface = localInterface
	}
}

// NextEventKey increments and returns the subscriber's event key, wrapping
// 0xFFFFFFFF back to 1 — never 0 (spec §3, §5 "Ordering guarantees").
func (s *Subscriber) NextEventKey() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventKey++
	if s.eventKey == 0 {
		s.eventKey = 1
	}
	return s.eventKey
}

// EventKey reports the last assigned event key without incrementing it.
func (s *Subscriber) EventKey() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eventKey
}

// MarkNotifyResult records whether the most recent NOTIFY delivery
// succeeded, feeding ShouldEvict.
func (s *Subscriber) MarkNotifyResult(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastNotifyFailed = !ok
}
