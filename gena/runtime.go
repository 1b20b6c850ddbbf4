package gena

import (
	"context"
	"time"

	"github.com/beevik/etree"

	"gargoton.petite-maison-orange.fr/eric/upnpcore/schema"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/task"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/xerr"
)

// Runtime binds one service's live state to its subscriber set: the
// StateValueSet holding current values, an optional LastChangeAggregator
// for services that use the UPnP-AV LastChange pattern, and the Registry
// (spec §3 "Subscriber", §4.1 "LastChange aggregation", §4.4). InstanceID
// is always 0 for this core — multi-instance support is a MediaRenderer/
// AVTransport profile concern, out of scope.
type Runtime struct {
	ServiceID  string
	InstanceID uint32

	Values     *schema.StateValueSet
	LastChange *schema.LastChangeAggregator

	Registry *Registry
}

// NewRuntime creates a runtime for one service instance. lastChange may be
// nil for services with no LastChange aggregator.
func NewRuntime(serviceID string, values *schema.StateValueSet, lastChange *schema.LastChangeAggregator) *Runtime {
	return &Runtime{
		ServiceID:  serviceID,
		Values:     values,
		LastChange: lastChange,
		Registry:   NewRegistry(),
	}
}

// Subscribe handles a new SUBSCRIBE request (spec §4.4 "New subscribe"):
// registers the subscriber (capped at MaxSubscribers), then builds the
// initial event body and attempts delivery — a failed initial delivery
// removes the subscriber again, surfaced to the caller as a 412-mapped
// error.
func (rt *Runtime) Subscribe(ctx context.Context, callbacks []string, localInterface string, timeout time.Duration) (*Subscriber, error) {
	if len(callbacks) == 0 {
		return nil, xerr.New(xerr.InvalidParameters, "SUBSCRIBE requires at least one CALLBACK URL")
	}

	sub := NewSubscriber(callbacks, localInterface, timeout)
	if err := rt.Registry.Add(sub); err != nil {
		return nil, err
	}

	body := BuildPropertySet(rt.InitialEventProperties())
	ok := false
	for _, url := range sub.Callbacks() {
		if err := SendNotify(ctx, url, sub.SID(), sub.NextEventKey(), body); err == nil {
			ok = true
			break
		}
	}
	if !ok {
		rt.Registry.Remove(sub.SID())
		return nil, xerr.New(xerr.Timeout, "initial NOTIFY delivery failed for all callback URLs")
	}

	return sub, nil
}

// Renew handles a RENEW request (spec §4.4 "Renew").
func (rt *Runtime) Renew(sid string, timeout time.Duration, localInterface string) (*Subscriber, error) {
	sub, ok := rt.Registry.Get(sid)
	if !ok {
		return nil, xerr.New(xerr.NotFound, "no such subscriber: %s", sid)
	}
	if sub.IsExpired(time.Now()) {
		return nil, xerr.New(xerr.InvalidState, "subscriber %s already expired", sid)
	}
	sub.Renew(timeout, localInterface)
	return sub, nil
}

// Unsubscribe handles an UNSUBSCRIBE request (spec §4.4 "Unsubscribe").
func (rt *Runtime) Unsubscribe(sid string) error {
	if _, ok := rt.Registry.Get(sid); !ok {
		return xerr.New(xerr.NotFound, "no such subscriber: %s", sid)
	}
	rt.Registry.Remove(sid)
	return nil
}

// collectLastChange folds every pending indirectly-evented value into the
// LastChange aggregator's buffer, clearing each value's own pending flag
// (spec §4.1: "whenever any of them changes, the service rewrites
// LastChange").
func (rt *Runtime) collectLastChange() {
	if rt.LastChange == nil {
		return
	}
	for _, v := range rt.Values.All() {
		if v.Model().SendEventsIndirectly() && v.PendingEvent() {
			rt.LastChange.Record(rt.InstanceID, v.Name(), v.StringValue())
			v.ClearPending()
		}
	}
}

// RunEventTask starts the moderated event task (spec §4.4 "Event delivery"):
// every 100 ms, gather publishable properties and NOTIFY every subscriber,
// evicting those past their grace window.
func RunEventTask(ctx context.Context, manager *task.Manager, rt *Runtime) *task.Task {
	return manager.Spawn(ctx, func(ctx context.Context) {
		task.Ticker(ctx, 100*time.Millisecond, func(ctx context.Context) {
			rt.tick(ctx)
		})
	})
}

func (rt *Runtime) tick(ctx context.Context) {
	now := time.Now()

	var props []*etree.Element
	for _, v := range rt.Values.PublishableNow(now) {
		props = append(props, v.PropertyElement())
		v.ClearPending()
	}

	rt.collectLastChange()
	if rt.LastChange != nil && rt.LastChange.MayPublishNow(now) {
		if xmlDoc, ok := rt.LastChange.Publish(now); ok {
			props = append(props, BuildLastChangeProperty(rt.LastChange.Name(), xmlDoc))
		}
	}

	rt.Registry.EvictExpired(now)

	if len(props) == 0 {
		return
	}

	body := BuildPropertySet(props)
	for _, sub := range rt.Registry.All() {
		DeliverTo(ctx, sub, body)
	}
}

// InitialEventProperties builds the full initial-subscribe event (spec
// §4.4: "every sendable state variable... populated from all
// indirectly-eventing vars").
func (rt *Runtime) InitialEventProperties() []*etree.Element {
	var props []*etree.Element
	for _, v := range rt.Values.All() {
		if v.Model().IsEvented() {
			props = append(props, v.PropertyElement())
			v.ClearPending()
		}
	}

	if rt.LastChange != nil {
		for _, v := range rt.Values.All() {
			if v.Model().SendEventsIndirectly() {
				rt.LastChange.Record(rt.InstanceID, v.Name(), v.StringValue())
			}
		}
		if xmlDoc, ok := rt.LastChange.Publish(time.Now()); ok {
			props = append(props, BuildLastChangeProperty(rt.LastChange.Name(), xmlDoc))
		}
	}
	return props
}
