package soap

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// Fault carries a parsed or to-be-built UPnP control error (spec §6
// "Error codes", §4.6 "Action dispatch").
type Fault struct {
	ErrorCode        int
	ErrorDescription string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("upnp fault %d: %s", f.ErrorCode, f.ErrorDescription)
}

// Standard wire-level error codes (spec §6).
const (
	ErrInvalidAction      = 401
	ErrInvalidArgs        = 402
	ErrActionFailed       = 501
	ErrNoSuchObject       = 701
	ErrInvalidInstanceID  = 702 // RenderingControl
	ErrNoSuchConnection   = 706
	ErrInvalidInstanceIDT = 718 // AVTransport
	ErrInternal           = 800
)

// defaultDescriptions gives every standard code a human-readable default,
// used when a caller raises a Fault by code alone.
var defaultDescriptions = map[int]string{
	ErrInvalidAction:      "Invalid Action",
	ErrInvalidArgs:        "Invalid Args",
	ErrActionFailed:       "Action Failed",
	ErrNoSuchObject:       "No Such Object",
	ErrInvalidInstanceID:  "Invalid InstanceID",
	ErrNoSuchConnection:   "No Such Connection",
	ErrInvalidInstanceIDT: "Invalid InstanceID",
	ErrInternal:           "Internal Error",
}

// NewFault builds a Fault for code, falling back to the standard
// description when description is empty.
func NewFault(code int, description string) *Fault {
	if description == "" {
		description = defaultDescriptions[code]
		if description == "" {
			description = "Unknown Error"
		}
	}
	return &Fault{ErrorCode: code, ErrorDescription: description}
}

// BuildFaultEnvelope renders the standard UPnP SOAP fault shape (spec §6):
// faultcode=s:Client, faultstring=UPnPError, detail/UPnPError{errorCode,
// errorDescription} in the urn:schemas-upnp-org:control-1-0 namespace.
func BuildFaultEnvelope(f *Fault) []byte {
	inner := fmt.Sprintf(
		`<s:Fault><faultcode>s:Client</faultcode><faultstring>UPnPError</faultstring>`+
			`<detail><UPnPError xmlns="%s"><errorCode>%d</errorCode>`+
			`<errorDescription>%s</errorDescription></UPnPError></detail></s:Fault>`,
		ControlNS, f.ErrorCode, xmlEscape(f.ErrorDescription),
	)
	return envelope(inner)
}

func parseFaultElement(dec *xml.Decoder, start xml.StartElement) (*Fault, error) {
	var raw struct {
		Detail struct {
			UPnPError struct {
				ErrorCode        int    `xml:"errorCode"`
				ErrorDescription string `xml:"errorDescription"`
			} `xml:"UPnPError"`
		} `xml:"detail"`
	}
	if err := dec.DecodeElement(&raw, &start); err != nil {
		return nil, fmt.Errorf("soap: decoding Fault: %w", err)
	}
	return &Fault{
		ErrorCode:        raw.Detail.UPnPError.ErrorCode,
		ErrorDescription: raw.Detail.UPnPError.ErrorDescription,
	}, nil
}

// IsFaultXML is a cheap pre-check some callers use to avoid a full parse
// when only distinguishing a fault from a normal response matters.
func IsFaultXML(body []byte) bool {
	return bytes.Contains(body, []byte("<s:Fault>")) || bytes.Contains(body, []byte(":Fault>"))
}
