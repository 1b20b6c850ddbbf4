package gena

import (
	"sync"
	"time"

	"gargoton.petite-maison-orange.fr/eric/upnpcore/xerr"
)

// Registry is one service's subscriber set (spec §3 "Subscriber",
// §4.4 "Subscription lifecycle (device side)"), capped at MaxSubscribers.
type Registry struct {
	mu   sync.Mutex
	subs map[string]*Subscriber
}

func NewRegistry() *Registry {
	return &Registry{subs: make(map[string]*Subscriber)}
}

// Add registers sub, rejecting with xerr.ResourceExhausted once
// MaxSubscribers is reached (the caller maps this to "500 Internal Server
// Error" per spec §4.4, distinct from the 412 a lifecycle violation gets).
func (r *Registry) Add(sub *Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.subs) >= MaxSubscribers {
		return xerr.New(xerr.ResourceExhausted, "subscriber cap (%d) reached", MaxSubscribers)
	}
	r.subs[sub.SID()] = sub
	return nil
}

func (r *Registry) Get(sid string) (*Subscriber, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[sid]
	return sub, ok
}

func (r *Registry) Remove(sid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, sid)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// All returns a snapshot of every current subscriber.
func (r *Registry) All() []*Subscriber {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Subscriber, 0, len(r.subs))
	for _, s := range r.subs {
		out = append(out, s)
	}
	return out
}

// EvictExpired removes and returns every subscriber whose ShouldEvict(now)
// holds (spec §4.4 "Event delivery" step 3).
func (r *Registry) EvictExpired(now time.Time) []*Subscriber {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []*Subscriber
	for sid, sub := range r.subs {
		if sub.ShouldEvict(now) {
			evicted = append(evicted, sub)
			delete(r.subs, sid)
		}
	}
	return evicted
}
