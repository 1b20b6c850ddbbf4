package upnptype

import "fmt"

// Range is an inclusive [Min, Max] constraint on a state variable's value,
// as declared by an SCPD <allowedValueRange> (spec §3 "allowedValueRange").
type Range struct {
	Min  interface{}
	Max  interface{}
	Step interface{} // optional SCPD <step>; nil if not declared
}

// NewRange casts min and max to t and returns the resulting Range, swapping
// them if declared backwards. step may be nil.
func (t Type) NewRange(min, max, step interface{}) (*Range, error) {
	if !t.IsComparable() {
		return nil, fmt.Errorf("type %s has no natural ordering, cannot build a range", t)
	}

	cmin, err := t.Cast(min)
	if err != nil {
		return nil, fmt.Errorf("range min %v is not castable to %s: %w", min, t, err)
	}
	cmax, err := t.Cast(max)
	if err != nil {
		return nil, fmt.Errorf("range max %v is not castable to %s: %w", max, t, err)
	}

	if cmp, err := t.Cmp(cmin, cmax); err == nil && cmp > 0 {
		cmin, cmax = cmax, cmin
	}

	var cstep interface{}
	if step != nil {
		cstep, err = t.Cast(step)
		if err != nil {
			return nil, fmt.Errorf("range step %v is not castable to %s: %w", step, t, err)
		}
	}

	return &Range{Min: cmin, Max: cmax, Step: cstep}, nil
}

// InRange reports whether val falls within r (inclusive). A nil r means
// unconstrained.
func (t Type) InRange(val interface{}, r *Range) (bool, error) {
	if r == nil {
		return true, nil
	}
	low, err := t.Cmp(val, r.Min)
	if err != nil {
		return false, err
	}
	high, err := t.Cmp(val, r.Max)
	if err != nil {
		return false, err
	}
	return low >= 0 && high <= 0, nil
}
