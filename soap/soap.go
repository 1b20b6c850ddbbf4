// Package soap builds and parses the UPnP SOAP-over-HTTP action envelope
// (spec §4.5 "Action invocation", §6 "SOAP envelope"). Grounded on the
// teacher's hand-rolled soap/buildsoap.go and soap/parseSoap.go envelope
// construction; continuing that approach deliberately rather than adopting
// github.com/globusdigital/soap, since UPnP's action name and argument set
// are runtime data parsed from SCPD rather than compile-time Go structs —
// see DESIGN.md's dropped-dependency entry for globusdigital/soap.
package soap

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

const (
	EnvelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"
	EncodingNS = "http://schemas.xmlsoap.org/soap/encoding/"
	ControlNS  = "urn:schemas-upnp-org:control-1-0"
)

// Envelope is the parsed s:Envelope/s:Body shell; Body.Content holds the
// inner XML (an action request, an action response, or a Fault) for a
// second parsing pass once the caller knows which it is.
type Envelope struct {
	XMLName xml.Name `xml:"http://schemas.xmlsoap.org/soap/envelope/ Envelope"`
	Body    Body     `xml:"Body"`
}

type Body struct {
	Content []byte `xml:",innerxml"`
}

// ActionRequest is a parsed incoming control request (device-host side).
type ActionRequest struct {
	ServiceType string
	Name        string
	Args        map[string]string
	// ArgOrder preserves the order arguments appeared on the wire, so
	// callers needing positional semantics don't have to re-sort a map.
	ArgOrder []string
}

// ActionResponse is a parsed outgoing action reply (control-point side).
type ActionResponse struct {
	Name   string
	Values map[string]string
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func envelope(bodyInner string) []byte {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	fmt.Fprintf(&buf, `<s:Envelope xmlns:s="%s" s:encodingStyle="%s">`, EnvelopeNS, EncodingNS)
	buf.WriteString(`<s:Body>`)
	buf.WriteString(bodyInner)
	buf.WriteString(`</s:Body></s:Envelope>`)
	return buf.Bytes()
}

// BuildActionRequest renders the control-point → device POST body (spec
// §4.5): "<u:ActionName xmlns:u=serviceType>" with one child per "in"
// argument, in descriptor order.
func BuildActionRequest(serviceType, action string, args []Arg) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<u:%s xmlns:u="%s">`, action, serviceType)
	for _, a := range args {
		fmt.Fprintf(&buf, "<%s>%s</%s>", a.Name, xmlEscape(a.Value), a.Name)
	}
	fmt.Fprintf(&buf, `</u:%s>`, action)
	return envelope(buf.String())
}

// Arg is one in/out argument name+value pair in wire order.
type Arg struct {
	Name  string
	Value string
}

// BuildActionResponse renders the device → control-point reply body: one
// child per declared "out" argument, in descriptor order.
func BuildActionResponse(serviceType, action string, values []Arg) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<u:%sResponse xmlns:u="%s">`, action, serviceType)
	for _, v := range values {
		fmt.Fprintf(&buf, "<%s>%s</%s>", v.Name, xmlEscape(v.Value), v.Name)
	}
	fmt.Fprintf(&buf, `</u:%sResponse>`, action)
	return envelope(buf.String())
}

// SOAPActionHeader renders the "SOAPAction" HTTP header value for an
// action POST (spec §4.5): "<serviceType>#<actionName>", quoted.
func SOAPActionHeader(serviceType, action string) string {
	return fmt.Sprintf(`"%s#%s"`, serviceType, action)
}

// ParseEnvelope decodes the outer s:Envelope/s:Body shell.
func ParseEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("soap: unmarshal envelope: %w", err)
	}
	return &env, nil
}
