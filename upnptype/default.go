package upnptype

import "time"

// epoch is used as the zero-ish default for time-family types: SCPD leaves
// defaultValue optional for them and a zero time.Time still formats to a
// valid (if meaningless) wire value, which is what device implementations
// actually ship.
var epoch = time.Unix(1718985600, 0).UTC()

// Default returns the zero value SCPD generation uses for t when no
// <defaultValue> was declared.
func (t Type) Default() interface{} {
	switch t {
	case UI1, UI2, UI4:
		return uint64(0)
	case I1, I2, I4, Int:
		return int64(0)
	case R4, R8, Number, Fixed14_4:
		return float64(0)
	case Char, String, UUID, URI:
		return ""
	case Boolean:
		return false
	case BinBase64, BinHex:
		return []byte{}
	case Date, DateTime, DateTimeTZ, Time, TimeTZ:
		return epoch
	default:
		return nil
	}
}
