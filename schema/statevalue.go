package schema

import (
	"strconv"
	"sync"
	"time"

	"github.com/beevik/etree"

	"gargoton.petite-maison-orange.fr/eric/upnpcore/xerr"
)

// StateValue is the live, per-service-instance value behind a StateVariable
// descriptor. SetValue validates against the model's constraints and, for
// evented variables, marks the value as pending so the next moderated GENA
// NOTIFY (or ALIVE multicast event, spec §9 D 5) picks it up.
type StateValue struct {
	model      *StateVariable
	mu         sync.RWMutex
	value      interface{}
	changed    time.Time
	pending    bool
	lastEvent  time.Time
}

// NewStateValue seeds a value at its model's default.
func NewStateValue(model *StateVariable) *StateValue {
	return &StateValue{model: model, value: model.DefaultValue(), changed: time.Now()}
}

func (v *StateValue) Model() *StateVariable { return v.model }
func (v *StateValue) Name() string          { return v.model.Name() }

func (v *StateValue) Value() interface{} {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

// SetValue validates and stores val. Returns (changed, error): changed is
// true only when the new value differs from the old one (by the model's
// Equal), which is what callers use to decide whether to bump the
// evented-properties set (spec §5 "moderated event").
func (v *StateValue) SetValue(val interface{}) (bool, error) {
	cv, err := v.model.Validate(val)
	if err != nil {
		return false, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	same, err := v.model.Type().Equal(v.value, cv)
	if err != nil {
		same = false
	}
	if same {
		return false, nil
	}

	v.value = cv
	v.changed = time.Now()
	if v.model.IsEvented() {
		v.pending = true
	}
	return true, nil
}

// Increment parses the current value as an integer and stores val+1 (spec
// §4.1 "Increment state variable"), the convenience SystemUpdateID-style
// counters use instead of computing and setting their own next value.
func (v *StateValue) Increment() (bool, error) {
	cur, err := strconv.Atoi(v.StringValue())
	if err != nil {
		return false, xerr.Wrap(xerr.InvalidParameters, err, "increment %s: current value is not an integer", v.Name())
	}
	return v.SetValue(cur + 1)
}

// PendingEvent reports whether this value has changed since its last
// published event.
func (v *StateValue) PendingEvent() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.pending
}

// ClearPending marks the current value as published, to be called once a
// GENA NOTIFY (or multicast event) carrying it has been sent.
func (v *StateValue) ClearPending() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pending = false
	v.lastEvent = time.Now()
}

// MayPublishNow reports whether this variable's moderation rate (spec §3,
// §4.4 "Event delivery" step 1) permits a notification at time now.
func (v *StateValue) MayPublishNow(now time.Time) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.model.Rate() <= 0 {
		return true
	}
	return now.Sub(v.lastEvent) >= v.model.Rate()
}

// LastChanged returns when the value was last modified.
func (v *StateValue) LastChanged() time.Time {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.changed
}

// PropertyElement renders <e:property><Name>value</Name></e:property> for
// inclusion in a GENA propertyset (spec §5 "NOTIFY").
func (v *StateValue) PropertyElement() *etree.Element {
	prop := etree.NewElement("e:property")
	elem := prop.CreateElement(v.Name())
	elem.SetText(v.StringValue())
	return prop
}

// StringValue renders the current value in its SCPD lexical form — used by
// the gena package both for direct GENA properties and for folding
// indirectly-evented values into a LastChangeAggregator (spec §4.1).
func (v *StateValue) StringValue() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.model.valueToString(v.value)
}

// StateValueSet holds the live values for every state variable of one
// service instance, keyed by variable name.
type StateValueSet struct {
	mu     sync.RWMutex
	values map[string]*StateValue
}

// NewStateValueSet seeds one StateValue per variable in table.
func NewStateValueSet(table *StateVariableSet) *StateValueSet {
	s := &StateValueSet{values: make(map[string]*StateValue)}
	for sv := range table.All() {
		s.values[sv.Name()] = NewStateValue(sv)
	}
	return s
}

func (s *StateValueSet) Get(name string) (*StateValue, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[name]
	return v, ok
}

// Set looks up the named variable's live value and validates/stores val
// through it, returning xerr.NotFound if no such variable exists.
func (s *StateValueSet) Set(name string, val interface{}) (bool, error) {
	v, ok := s.Get(name)
	if !ok {
		return false, xerr.New(xerr.NotFound, "no such state variable: %s", name)
	}
	return v.SetValue(val)
}

// Increment looks up the named variable's live value and increments it
// (spec §4.1 "Increment state variable"), returning xerr.NotFound if no
// such variable exists.
func (s *StateValueSet) Increment(name string) (bool, error) {
	v, ok := s.Get(name)
	if !ok {
		return false, xerr.New(xerr.NotFound, "no such state variable: %s", name)
	}
	return v.Increment()
}

// Pending returns every value with an unpublished change.
func (s *StateValueSet) Pending() []*StateValue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*StateValue, 0)
	for _, v := range s.values {
		if v.PendingEvent() {
			out = append(out, v)
		}
	}
	return out
}

// PublishableNow returns every directly-evented value that has both a
// pending change and a moderation rate that permits publishing at time now
// (spec §4.4 "Event delivery" step 1). Indirectly-evented values are
// excluded — they publish through their LastChange aggregator instead.
func (s *StateValueSet) PublishableNow(now time.Time) []*StateValue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*StateValue, 0)
	for _, v := range s.values {
		if v.model.SendEventsIndirectly() {
			continue
		}
		if v.PendingEvent() && v.MayPublishNow(now) {
			out = append(out, v)
		}
	}
	return out
}

// All returns every live value, evented or not — used to build the initial
// SUBSCRIBE response event (spec §5: "the first event message... contains
// the current value of every evented variable").
func (s *StateValueSet) All() []*StateValue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*StateValue, 0, len(s.values))
	for _, v := range s.values {
		out = append(out, v)
	}
	return out
}
