package upnptype

import "fmt"

func toNumericOperands(t Type, a, b interface{}) (float64, float64, error) {
	if !t.IsNumeric() {
		return 0, 0, fmt.Errorf("type %s is not numeric", t)
	}

	ca, err := t.Cast(a)
	if err != nil {
		return 0, 0, err
	}
	cb, err := t.Cast(b)
	if err != nil {
		return 0, 0, err
	}

	af, err := toFloat(ca, 64)
	if err != nil {
		return 0, 0, err
	}
	bf, err := toFloat(cb, 64)
	if err != nil {
		return 0, 0, err
	}
	return af, bf, nil
}

// Add, Sub, Mul and Div apply the named arithmetic operation to a and b
// after casting both to t, then cast the float64 result back to t. Used by
// the `number`/`relative` step arithmetic state variables can declare via
// allowedValueRange.Step (spec §3).
func (t Type) Add(a, b interface{}) (interface{}, error) {
	af, bf, err := toNumericOperands(t, a, b)
	if err != nil {
		return nil, err
	}
	return t.Cast(af + bf)
}

func (t Type) Sub(a, b interface{}) (interface{}, error) {
	af, bf, err := toNumericOperands(t, a, b)
	if err != nil {
		return nil, err
	}
	return t.Cast(af - bf)
}

func (t Type) Mul(a, b interface{}) (interface{}, error) {
	af, bf, err := toNumericOperands(t, a, b)
	if err != nil {
		return nil, err
	}
	return t.Cast(af * bf)
}

func (t Type) Div(a, b interface{}) (interface{}, error) {
	af, bf, err := toNumericOperands(t, a, b)
	if err != nil {
		return nil, err
	}
	if bf == 0 {
		return nil, fmt.Errorf("division by zero")
	}
	return t.Cast(af / bf)
}
