// Package upnptype implements the lexical UPnP state-variable type system:
// parsing type names out of SCPD, casting arbitrary Go values into the
// canonical representation for a type, comparing values, and range
// validation (spec.md §3 "State variable").
package upnptype

import "strings"

// Type represents a UPnP state-variable data type.
type Type int

const (
	Unknown Type = iota
	UI1
	UI2
	UI4
	I1
	I2
	I4
	Int
	R4
	R8
	Number
	Fixed14_4
	Char
	String
	Boolean
	BinBase64
	BinHex
	Date
	DateTime
	DateTimeTZ
	Time
	TimeTZ
	UUID
	URI
)

var names = map[string]Type{
	"ui1":         UI1,
	"ui2":         UI2,
	"ui4":         UI4,
	"i1":          I1,
	"i2":          I2,
	"i4":          I4,
	"int":         Int,
	"r4":          R4,
	"r8":          R8,
	"number":      Number,
	"fixed.14.4":  Fixed14_4,
	"char":        Char,
	"string":      String,
	"boolean":     Boolean,
	"bin.base64":  BinBase64,
	"bin.hex":     BinHex,
	"date":        Date,
	"dateTime":    DateTime,
	"dateTime.tz": DateTimeTZ,
	"time":        Time,
	"time.tz":     TimeTZ,
	"uuid":        UUID,
	"uri":         URI,
}

var strs = [...]string{
	"unknown", "ui1", "ui2", "ui4", "i1", "i2", "i4", "int", "r4", "r8",
	"number", "fixed.14.4", "char", "string", "boolean", "bin.base64",
	"bin.hex", "date", "dateTime", "dateTime.tz", "time", "time.tz",
	"uuid", "uri",
}

// String returns the canonical SCPD spelling of t, or "unknown".
func (t Type) String() string {
	if int(t) >= 0 && int(t) < len(strs) {
		return strs[t]
	}
	return "unknown"
}

// Parse maps an SCPD dataType element's text to a Type. Case-insensitive,
// trims whitespace. Returns Unknown for unrecognized names.
func Parse(s string) Type {
	s = strings.TrimSpace(s)
	for name, v := range names {
		if strings.EqualFold(name, s) {
			return v
		}
	}
	return Unknown
}

// IsNumeric reports whether t holds numeric (integer or floating) values.
func (t Type) IsNumeric() bool {
	switch t {
	case UI1, UI2, UI4, I1, I2, I4, Int, R4, R8, Number, Fixed14_4:
		return true
	default:
		return false
	}
}

// IsInteger reports whether t holds one of the fixed-width integer types.
func (t Type) IsInteger() bool {
	switch t {
	case UI1, UI2, UI4, I1, I2, I4, Int:
		return true
	default:
		return false
	}
}

// IsUnsigned reports whether t is one of the unsigned integer types.
func (t Type) IsUnsigned() bool {
	switch t {
	case UI1, UI2, UI4:
		return true
	default:
		return false
	}
}

// IsComparable reports whether Cmp can order two values of t. Binary types
// have no natural ordering.
func (t Type) IsComparable() bool {
	switch t {
	case BinBase64, BinHex:
		return false
	default:
		return true
	}
}

// BitSize returns the bit width backing t's Go representation (8, 16, 32 or
// 64), or -1 if t has no fixed bit width (strings, times, binary, ...).
func (t Type) BitSize() int {
	switch t {
	case UI1, I1:
		return 8
	case UI2, I2:
		return 16
	case UI4, I4, Int, R4:
		return 32
	case R8, Number, Fixed14_4:
		return 64
	default:
		return -1
	}
}
