package upnptype

import (
	"fmt"
	"strings"
	"time"
)

// parseUPnPTime parses s using the layout appropriate to t:
//
//	Date:        "2006-01-02"
//	Time:        "15:04:05"
//	TimeTZ:      "15:04:05Z07:00"
//	DateTime:    "2006-01-02T15:04:05"
//	DateTimeTZ:  "2006-01-02T15:04:05Z07:00" (plus two tolerant fallbacks)
func parseUPnPTime(t Type, s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	var layouts []string
	switch t {
	case Date:
		layouts = []string{"2006-01-02"}
	case Time:
		layouts = []string{"15:04:05"}
	case TimeTZ:
		layouts = []string{"15:04:05Z07:00"}
	case DateTime:
		layouts = []string{"2006-01-02T15:04:05"}
	case DateTimeTZ:
		layouts = []string{
			"2006-01-02T15:04:05Z07:00",
			"2006-01-02T15:04:05-0700",
			"2006-01-02T15:04:05Z",
		}
	default:
		return time.Time{}, fmt.Errorf("unsupported date/time type: %s", t)
	}

	for _, layout := range layouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid %s value: %q", t, s)
}

func formatUPnPTime(t Type, v time.Time) string {
	switch t {
	case Date:
		return v.Format("2006-01-02")
	case Time:
		return v.Format("15:04:05")
	case TimeTZ:
		return v.Format("15:04:05Z07:00")
	case DateTime:
		return v.Format("2006-01-02T15:04:05")
	case DateTimeTZ:
		return v.Format("2006-01-02T15:04:05Z07:00")
	default:
		return v.Format(time.RFC3339)
	}
}
