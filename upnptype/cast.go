package upnptype

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Cast converts val into the Go representation canonical for t:
//
//	UIx/Ix/Int   -> uintN/intN
//	R4/R8/Number/Fixed14_4 -> float32/float64
//	Boolean      -> bool
//	Char         -> rune
//	String       -> string
//	UUID         -> uuid.UUID
//	URI          -> *url.URL
//	BinBase64/BinHex -> []byte
//	Date/Time family -> time.Time
//
// Accepts the matching Go type as-is, plus the string encoding used on the
// wire (SOAP argument text, SCPD defaultValue/allowedValue). Returns an
// error for unsupported conversions, overflow or malformed strings.
func (t Type) Cast(val interface{}) (interface{}, error) {
	switch t {
	case UI1:
		v, err := toUint(val, 8)
		if err != nil {
			return nil, fmt.Errorf("cannot cast %v (%T) to ui1: %w", val, val, err)
		}
		return uint8(v), nil

	case UI2:
		v, err := toUint(val, 16)
		if err != nil {
			return nil, fmt.Errorf("cannot cast %v (%T) to ui2: %w", val, val, err)
		}
		return uint16(v), nil

	case UI4:
		v, err := toUint(val, 32)
		if err != nil {
			return nil, fmt.Errorf("cannot cast %v (%T) to ui4: %w", val, val, err)
		}
		return uint32(v), nil

	case I1:
		v, err := toInt(val, 8)
		if err != nil {
			return nil, fmt.Errorf("cannot cast %v (%T) to i1: %w", val, val, err)
		}
		return int8(v), nil

	case I2:
		v, err := toInt(val, 16)
		if err != nil {
			return nil, fmt.Errorf("cannot cast %v (%T) to i2: %w", val, val, err)
		}
		return int16(v), nil

	case I4, Int:
		v, err := toInt(val, 32)
		if err != nil {
			return nil, fmt.Errorf("cannot cast %v (%T) to i4: %w", val, val, err)
		}
		return int32(v), nil

	case R4:
		v, err := toFloat(val, 32)
		if err != nil {
			return nil, fmt.Errorf("cannot cast %v (%T) to r4: %w", val, val, err)
		}
		return float32(v), nil

	case R8, Number, Fixed14_4:
		v, err := toFloat(val, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot cast %v (%T) to r8: %w", val, val, err)
		}
		return v, nil

	case Boolean:
		b, err := toBool(val)
		if err != nil {
			return nil, fmt.Errorf("cannot cast %v (%T) to boolean: %w", val, val, err)
		}
		return b, nil

	case Char:
		switch v := val.(type) {
		case string:
			if len(v) != 1 {
				return nil, fmt.Errorf("invalid char: string %q is not one byte long", v)
			}
			return rune(v[0]), nil
		case rune:
			return v, nil
		default:
			return nil, fmt.Errorf("cannot cast %v (%T) to char", val, val)
		}

	case String:
		return fmt.Sprint(val), nil

	case UUID:
		switch v := val.(type) {
		case uuid.UUID:
			return v, nil
		case string:
			u, err := uuid.Parse(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("invalid uuid %q: %w", v, err)
			}
			return u, nil
		default:
			return nil, fmt.Errorf("cannot cast %v (%T) to uuid", val, val)
		}

	case URI:
		switch v := val.(type) {
		case *url.URL:
			return v, nil
		case string:
			u, err := url.Parse(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("invalid uri %q: %w", v, err)
			}
			return u, nil
		default:
			return nil, fmt.Errorf("cannot cast %v (%T) to uri", val, val)
		}

	case BinBase64, BinHex:
		switch v := val.(type) {
		case []byte:
			return v, nil
		case string:
			return decodeBinary(t, v)
		default:
			return nil, fmt.Errorf("cannot cast %v (%T) to binary", val, val)
		}

	case Date, DateTime, DateTimeTZ, Time, TimeTZ:
		switch v := val.(type) {
		case time.Time:
			return v, nil
		case string:
			return parseUPnPTime(t, v)
		default:
			return nil, fmt.Errorf("cannot cast %v (%T) to %s", val, val, t)
		}

	default:
		return nil, fmt.Errorf("unsupported state variable type: %s", t)
	}
}

// Format renders v as the SOAP/SCPD wire-text representation for t. Assumes
// v is already t's canonical Go representation (the result of Cast).
func (t Type) Format(v interface{}) string {
	switch t {
	case BinBase64, BinHex:
		if b, ok := v.([]byte); ok {
			return encodeBinary(t, b)
		}
	case Date, DateTime, DateTimeTZ, Time, TimeTZ:
		if tv, ok := v.(time.Time); ok {
			return formatUPnPTime(t, tv)
		}
	}
	return fmt.Sprint(v)
}
