package upnptype

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Cmp compares two values of type t, returning -1, 0 or 1 as v1 is less
// than, equal to or greater than v2. Both values are cast to t first, so
// callers may pass either the canonical Go representation or its wire-text
// form. Returns an error instead of panicking if either value can't be cast
// or if t has no natural ordering (see IsComparable).
func (t Type) Cmp(v1, v2 interface{}) (int, error) {
	if !t.IsComparable() {
		return 0, fmt.Errorf("type %s has no natural ordering", t)
	}

	c1, err := t.Cast(v1)
	if err != nil {
		return 0, fmt.Errorf("cannot compare: %w", err)
	}
	c2, err := t.Cast(v2)
	if err != nil {
		return 0, fmt.Errorf("cannot compare: %w", err)
	}

	switch t {
	case UI1, UI2, UI4:
		i1 := reflect.ValueOf(c1).Uint()
		i2 := reflect.ValueOf(c2).Uint()
		switch {
		case i1 < i2:
			return -1, nil
		case i1 > i2:
			return 1, nil
		default:
			return 0, nil
		}

	case I1, I2, I4, Int:
		i1 := reflect.ValueOf(c1).Int()
		i2 := reflect.ValueOf(c2).Int()
		switch {
		case i1 < i2:
			return -1, nil
		case i1 > i2:
			return 1, nil
		default:
			return 0, nil
		}

	case R4:
		return cmpFloat64(float64(c1.(float32)), float64(c2.(float32))), nil

	case R8, Number, Fixed14_4:
		return cmpFloat64(c1.(float64), c2.(float64)), nil

	case Boolean:
		return cmpBool(c1.(bool), c2.(bool)), nil

	case Char:
		r1, r2 := c1.(rune), c2.(rune)
		switch {
		case r1 < r2:
			return -1, nil
		case r1 > r2:
			return 1, nil
		default:
			return 0, nil
		}

	case String, UUID, URI:
		return strings.Compare(fmt.Sprint(c1), fmt.Sprint(c2)), nil

	case Date, DateTime, DateTimeTZ, Time, TimeTZ:
		ts1, ts2 := c1.(time.Time), c2.(time.Time)
		switch {
		case ts1.Before(ts2):
			return -1, nil
		case ts1.After(ts2):
			return 1, nil
		default:
			return 0, nil
		}

	default:
		return 0, fmt.Errorf("unsupported state variable type: %s", t)
	}
}

// cmpBytes compares two binary values byte-wise; exposed separately because
// BinBase64/BinHex are not IsComparable (no UPnP ordering is defined for
// them) but equality still matters for event-change detection.
func cmpBytes(a, b []byte) int {
	return bytes.Compare(a, b)
}

// Equal reports whether v1 and v2 represent the same value of type t. Unlike
// Cmp, this works for binary types too (straight byte comparison), which is
// what state-variable change detection (spec §5 "eventing") needs.
func (t Type) Equal(v1, v2 interface{}) (bool, error) {
	c1, err := t.Cast(v1)
	if err != nil {
		return false, err
	}
	c2, err := t.Cast(v2)
	if err != nil {
		return false, err
	}

	if t == BinBase64 || t == BinHex {
		return cmpBytes(c1.([]byte), c2.([]byte)) == 0, nil
	}

	cmp, err := t.Cmp(c1, c2)
	if err != nil {
		return false, err
	}
	return cmp == 0, nil
}
