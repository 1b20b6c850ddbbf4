package schema

import (
	"iter"
	"strings"
	"time"

	"github.com/beevik/etree"
	log "github.com/sirupsen/logrus"

	"gargoton.petite-maison-orange.fr/eric/upnpcore/objectstore"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/upnptype"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/xerr"
)

// StateVariable is the immutable descriptor of an SCPD <stateVariable>: its
// type, default, range/allowed-value constraints and whether it is evented
// (spec §3 "state variable"). Per-device values live in StateValue.
type StateVariable struct {
	name          string
	varType       upnptype.Type
	sendEvents    bool
	multicast     bool
	defaultValue  interface{}
	valueRange    *upnptype.Range
	allowedValues []interface{}
	description   string

	// indirect, when non-empty, names the LastChange aggregator variable
	// this variable reports through instead of its own GENA event (spec §3
	// "sendEventsIndirectly", §4.1 "LastChange aggregation").
	indirect string
	// rate is the minimum wall-clock interval between notifications for
	// this variable (spec §3 "moderation rate"); zero means unmoderated.
	rate time.Duration
	// extraAttrs holds SCPD attributes beyond sendEvents, e.g.
	// channel="Master" on RenderingControl volume-family variables.
	extraAttrs map[string]string
}

// NewStateVariable declares a non-evented state variable of type t.
// SetSendEvents/SetMulticast turn on GENA/multicast eventing.
func NewStateVariable(name string, t upnptype.Type) *StateVariable {
	sv := &StateVariable{name: name, varType: t}
	sv.defaultValue = t.Default()
	return sv
}

func (sv *StateVariable) Name() string        { return sv.name }
func (sv *StateVariable) TypeID() string      { return "StateVariable" }
func (sv *StateVariable) Type() upnptype.Type { return sv.varType }

func (sv *StateVariable) SetSendEvents() *StateVariable {
	sv.sendEvents = true
	return sv
}

// SetMulticast marks the variable as eligible for ALIVE-time multicast
// eventing in addition to unicast GENA NOTIFY (spec §5, UPnP DA 1.1
// extension); the host package decides whether to actually use it.
func (sv *StateVariable) SetMulticast() *StateVariable {
	sv.multicast = true
	return sv
}

func (sv *StateVariable) IsEvented() bool   { return sv.sendEvents }
func (sv *StateVariable) IsMulticast() bool { return sv.multicast }

// SetIndirect routes this variable's events through the named LastChange
// aggregator instead of its own GENA property. A variable cannot be both
// directly and indirectly evented; SetIndirect clears sendEvents.
func (sv *StateVariable) SetIndirect(aggregator string) *StateVariable {
	sv.indirect = aggregator
	sv.sendEvents = false
	return sv
}

// SendEventsIndirectly reports whether this variable reports through a
// LastChange aggregator rather than emitting its own GENA event.
func (sv *StateVariable) SendEventsIndirectly() bool { return sv.indirect != "" }

// AggregatorName returns the LastChange variable name this variable reports
// through, or "" if it is not indirectly evented.
func (sv *StateVariable) AggregatorName() string { return sv.indirect }

// SetRate declares the minimum wall-clock interval between notifications
// for this variable (spec §3 "moderation rate"); zero (the default)
// disables moderation.
func (sv *StateVariable) SetRate(rate time.Duration) *StateVariable {
	sv.rate = rate
	return sv
}

func (sv *StateVariable) Rate() time.Duration { return sv.rate }

// SetExtraAttr records an SCPD serialization attribute beyond sendEvents,
// e.g. channel="Master" on RenderingControl's volume-family variables.
func (sv *StateVariable) SetExtraAttr(key, value string) *StateVariable {
	if sv.extraAttrs == nil {
		sv.extraAttrs = make(map[string]string)
	}
	sv.extraAttrs[key] = value
	return sv
}

func (sv *StateVariable) ExtraAttr(key string) (string, bool) {
	v, ok := sv.extraAttrs[key]
	return v, ok
}

func (sv *StateVariable) SetDescription(desc string) *StateVariable {
	sv.description = strings.TrimSpace(desc)
	return sv
}

func (sv *StateVariable) Description() string { return sv.description }

// SetDefault casts and validates value against any range/allowed-value
// constraint already declared, returning xerr.InvalidParameters if it
// doesn't fit.
func (sv *StateVariable) SetDefault(value interface{}) error {
	cv, err := sv.varType.Cast(value)
	if err != nil {
		return xerr.Wrap(xerr.InvalidParameters, err, "default value for %s", sv.name)
	}
	if ok, err := sv.isConstrained(cv); err != nil || !ok {
		return xerr.New(xerr.InvalidParameters, "default value %v for %s violates its own constraints", value, sv.name)
	}
	sv.defaultValue = cv
	return nil
}

func (sv *StateVariable) DefaultValue() interface{} { return sv.defaultValue }

// SetRange declares an inclusive [min, max] constraint with optional step.
func (sv *StateVariable) SetRange(min, max, step interface{}) error {
	r, err := sv.varType.NewRange(min, max, step)
	if err != nil {
		return xerr.Wrap(xerr.InvalidParameters, err, "range for %s", sv.name)
	}
	sv.valueRange = r
	return nil
}

func (sv *StateVariable) HasRange() bool          { return sv.valueRange != nil }
func (sv *StateVariable) Range() *upnptype.Range  { return sv.valueRange }

// SetAllowedValues declares the exhaustive list of values this variable may
// take (SCPD <allowedValueList>), replacing any previous list.
func (sv *StateVariable) SetAllowedValues(values ...interface{}) error {
	cast := make([]interface{}, 0, len(values))
	for _, v := range values {
		cv, err := sv.varType.Cast(v)
		if err != nil {
			return xerr.Wrap(xerr.InvalidParameters, err, "allowed value %v for %s", v, sv.name)
		}
		cast = append(cast, cv)
	}
	sv.allowedValues = cast
	return nil
}

func (sv *StateVariable) HasAllowedValues() bool        { return len(sv.allowedValues) > 0 }
func (sv *StateVariable) AllowedValues() []interface{}  { return sv.allowedValues }

func (sv *StateVariable) isConstrained(cv interface{}) (bool, error) {
	if sv.valueRange != nil {
		inRange, err := sv.varType.InRange(cv, sv.valueRange)
		if err != nil || !inRange {
			return false, err
		}
	}
	if len(sv.allowedValues) > 0 {
		allowed := false
		for _, v := range sv.allowedValues {
			if eq, _ := sv.varType.Equal(cv, v); eq {
				allowed = true
				break
			}
		}
		if !allowed {
			return false, nil
		}
	}
	return true, nil
}

// Validate casts value to this variable's type and checks it against any
// declared range/allowed-value constraint. Returns the canonical Go value
// and an xerr.InvalidParameters error if either check fails.
func (sv *StateVariable) Validate(value interface{}) (interface{}, error) {
	cv, err := sv.varType.Cast(value)
	if err != nil {
		return nil, xerr.Wrap(xerr.InvalidParameters, err, "value for %s", sv.name)
	}
	ok, err := sv.isConstrained(cv)
	if err != nil {
		return nil, xerr.Wrap(xerr.InvalidParameters, err, "constraint check for %s", sv.name)
	}
	if !ok {
		return nil, xerr.New(xerr.InvalidParameters, "value %v is out of range or not in the allowed list for %s", value, sv.name)
	}
	return cv, nil
}

func (sv *StateVariable) valueToString(v interface{}) string {
	if v == nil {
		return ""
	}
	if sv.varType == upnptype.Boolean {
		if b, ok := v.(bool); ok {
			if b {
				return "1"
			}
			return "0"
		}
	}
	return sv.varType.Format(v)
}

func (sv *StateVariable) ToXMLElement() *etree.Element {
	elem := etree.NewElement("stateVariable")
	if sv.sendEvents {
		elem.CreateAttr("sendEvents", "yes")
	} else {
		elem.CreateAttr("sendEvents", "no")
	}
	if sv.multicast {
		elem.CreateAttr("multicast", "yes")
	}

	elem.CreateElement("name").SetText(sv.name)
	elem.CreateElement("dataType").SetText(sv.varType.String())

	if sv.defaultValue != nil {
		elem.CreateElement("defaultValue").SetText(sv.valueToString(sv.defaultValue))
	}

	if sv.valueRange != nil {
		rangeElem := elem.CreateElement("allowedValueRange")
		rangeElem.CreateElement("minimum").SetText(sv.valueToString(sv.valueRange.Min))
		rangeElem.CreateElement("maximum").SetText(sv.valueToString(sv.valueRange.Max))
		if sv.valueRange.Step != nil {
			rangeElem.CreateElement("step").SetText(sv.valueToString(sv.valueRange.Step))
		}
	}

	if len(sv.allowedValues) > 0 {
		listElem := elem.CreateElement("allowedValueList")
		for _, v := range sv.allowedValues {
			listElem.CreateElement("allowedValue").SetText(sv.valueToString(v))
		}
	}

	if sv.description != "" {
		elem.CreateElement("description").SetText(sv.description)
	}

	for k, v := range sv.extraAttrs {
		elem.CreateAttr(k, v)
	}

	return elem
}

// parseStateVariableXML builds a StateVariable from a parsed SCPD
// <stateVariable> element. Unknown/malformed dataType yields
// xerr.InvalidSyntax since it makes the whole service unusable.
func parseStateVariableXML(elem *etree.Element) (*StateVariable, error) {
	nameEl := elem.SelectElement("name")
	typeEl := elem.SelectElement("dataType")
	if nameEl == nil || typeEl == nil {
		return nil, xerr.New(xerr.InvalidSyntax, "stateVariable missing name or dataType")
	}

	t := upnptype.Parse(typeEl.Text())
	if t == upnptype.Unknown {
		return nil, xerr.New(xerr.InvalidSyntax, "stateVariable %s: unknown dataType %q", nameEl.Text(), typeEl.Text())
	}

	sv := NewStateVariable(strings.TrimSpace(nameEl.Text()), t)

	if attr := elem.SelectAttr("sendEvents"); attr != nil {
		sv.sendEvents = strings.EqualFold(attr.Value, "yes")
	}
	if attr := elem.SelectAttr("multicast"); attr != nil && strings.EqualFold(attr.Value, "yes") {
		sv.multicast = true
	}

	if defEl := elem.SelectElement("defaultValue"); defEl != nil {
		if err := sv.SetDefault(defEl.Text()); err != nil {
			log.Warnf("🐞 %s: ignoring invalid defaultValue %q: %v", sv.name, defEl.Text(), err)
		}
	}

	if rangeEl := elem.SelectElement("allowedValueRange"); rangeEl != nil {
		minEl := rangeEl.SelectElement("minimum")
		maxEl := rangeEl.SelectElement("maximum")
		if minEl != nil && maxEl != nil {
			var step interface{}
			if stepEl := rangeEl.SelectElement("step"); stepEl != nil {
				step = stepEl.Text()
			}
			if err := sv.SetRange(minEl.Text(), maxEl.Text(), step); err != nil {
				return nil, err
			}
		}
	}

	if listEl := elem.SelectElement("allowedValueList"); listEl != nil {
		values := make([]interface{}, 0)
		for _, v := range listEl.SelectElements("allowedValue") {
			values = append(values, v.Text())
		}
		if err := sv.SetAllowedValues(values...); err != nil {
			return nil, err
		}
	}

	if descEl := elem.SelectElement("description"); descEl != nil {
		sv.SetDescription(descEl.Text())
	}

	return sv, nil
}

// StateVariableSet is a name-keyed collection of StateVariable descriptors.
type StateVariableSet objectstore.ObjectSet[*StateVariable]

func NewStateVariableSet() StateVariableSet {
	return StateVariableSet(objectstore.NewObjectSet[*StateVariable]())
}

func (s *StateVariableSet) Insert(sv *StateVariable) {
	(*objectstore.ObjectSet[*StateVariable])(s).Insert(sv)
}

func (s *StateVariableSet) Get(name string) (*StateVariable, bool) {
	return (*objectstore.ObjectSet[*StateVariable])(s).Get(name)
}

// GetFold looks up a state variable case-insensitively, as control points
// occasionally send a relatedStateVariable name with mismatched case.
func (s *StateVariableSet) GetFold(name string) (*StateVariable, bool) {
	if sv, ok := s.Get(name); ok {
		return sv, true
	}
	for sv := range s.All() {
		if eqFold(sv.Name(), name) {
			return sv, true
		}
	}
	return nil, false
}

func (s *StateVariableSet) Len() int { return (*objectstore.ObjectSet[*StateVariable])(s).Len() }

func (s *StateVariableSet) All() iter.Seq[*StateVariable] {
	return (*objectstore.ObjectSet[*StateVariable])(s).All()
}

func (s *StateVariableSet) ToXMLElement() *etree.Element {
	elem := etree.NewElement("serviceStateTable")
	for sv := range s.All() {
		elem.AddChild(sv.ToXMLElement())
	}
	return elem
}
