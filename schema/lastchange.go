package schema

import (
	"sync"
	"time"

	"github.com/beevik/etree"
)

// LastChangeAggregator implements the UPnP-AV LastChange pattern (spec §3,
// §4.1 "LastChange aggregation"): a set of state variables flagged
// sendEventsIndirectly report through a single aggregator variable instead
// of emitting individual GENA events. Each change is buffered by
// InstanceID until the next publish, then the buffer is cleared.
type LastChangeAggregator struct {
	name      string
	namespace string
	rate      time.Duration

	mu      sync.Mutex
	pending map[uint32]map[string]string // instanceID -> varName -> string value
	last    time.Time
}

// NewLastChangeAggregator creates an aggregator variable named name (almost
// always "LastChange"), serialized under the given event namespace (e.g.
// "urn:schemas-upnp-org:metadata-1-0/AVT/").
func NewLastChangeAggregator(name, namespace string) *LastChangeAggregator {
	return &LastChangeAggregator{
		name:      name,
		namespace: namespace,
		pending:   make(map[uint32]map[string]string),
	}
}

func (a *LastChangeAggregator) Name() string { return a.name }

// SetRate sets the minimum wall-clock interval between LastChange
// publications.
func (a *LastChangeAggregator) SetRate(rate time.Duration) *LastChangeAggregator {
	a.rate = rate
	return a
}

// Record buffers a change to varName under instanceID, to be folded into
// the next LastChange publication. Called whenever an indirectly-evented
// state variable's value changes (spec §4.1).
func (a *LastChangeAggregator) Record(instanceID uint32, varName, stringValue string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	bucket, ok := a.pending[instanceID]
	if !ok {
		bucket = make(map[string]string)
		a.pending[instanceID] = bucket
	}
	bucket[varName] = stringValue
}

// HasPending reports whether any change is buffered.
func (a *LastChangeAggregator) HasPending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending) > 0
}

// MayPublishNow applies the aggregator's own moderation rate.
func (a *LastChangeAggregator) MayPublishNow(now time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.rate <= 0 {
		return true
	}
	return now.Sub(a.last) >= a.rate
}

// Publish renders the buffered changes as an <Event> document (spec §4.1:
// `<Event xmlns=…><InstanceID val="0"><VarA val="…"/>…</InstanceID></Event>`)
// and clears the buffer. Returns ("", false) if nothing was pending.
func (a *LastChangeAggregator) Publish(now time.Time) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.pending) == 0 {
		return "", false
	}

	doc := etree.NewDocument()
	event := doc.CreateElement("Event")
	event.CreateAttr("xmlns", a.namespace)

	for instanceID, vars := range a.pending {
		instElem := event.CreateElement("InstanceID")
		instElem.CreateAttr("val", itoa(int(instanceID)))
		for name, value := range vars {
			varElem := instElem.CreateElement(name)
			varElem.CreateAttr("val", value)
		}
	}

	doc.Indent(0)
	text, err := doc.WriteToString()
	if err != nil {
		return "", false
	}

	a.pending = make(map[uint32]map[string]string)
	a.last = now
	return text, true
}
