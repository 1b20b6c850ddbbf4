// Package ssdp implements the SSDP wire engine (spec §4.3): message
// encode/decode, the shared multicast listener, the device-side
// announcement scheduler and M-SEARCH responder, and the control-point
// search task. Grounded on the teacher's ssdp/server.go (message
// formatting style, logrus emoji-marker logging, multicast socket
// handling) with the listener-dispatch shape enriched from
// other_examples' gossdp (AliveMessage/ByeMessage/ResponseMessage +
// SsdpListener interface pattern).
package ssdp

import (
	"bufio"
	"fmt"
	"net/textproto"
	"strconv"
	"strings"
	"time"
)

const (
	MulticastAddr = "239.255.255.250"
	Port          = 1900
	// DefaultMaxAge is the lease time advertised when none is supplied.
	DefaultMaxAge = 1800
)

// NotificationType distinguishes the two NOTIFY kinds SSDP carries.
type NotificationType string

const (
	Alive  NotificationType = "ssdp:alive"
	Byebye NotificationType = "ssdp:byebye"
)

// Kind classifies a parsed inbound message.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotify
	KindMSearch
	KindSearchResponse
)

// Message is a parsed SSDP datagram — the HTTP-derived NOTIFY, M-SEARCH,
// or "HTTP/1.1 200 OK" search-response shape (spec §4.3 "Wire format").
// Headers are looked up case-insensitively as SSDP/HTTP requires.
type Message struct {
	Kind    Kind
	Header  textproto.MIMEHeader
	rawFirst string
}

func (m *Message) Get(key string) string { return m.Header.Get(key) }

// USN/NT/NTS/ST/Location/Server/SID/MAN are the header accessors every
// higher-level component reads.
func (m *Message) USN() string      { return m.Get("USN") }
func (m *Message) NT() string       { return m.Get("NT") }
func (m *Message) NTS() string      { return m.Get("NTS") }
func (m *Message) ST() string       { return m.Get("ST") }
func (m *Message) Location() string { return m.Get("LOCATION") }
func (m *Message) Server() string   { return m.Get("SERVER") }
func (m *Message) SID() string      { return m.Get("SID") }
func (m *Message) MAN() string      { return m.Get("MAN") }

func (m *Message) MX() int {
	mx, err := strconv.Atoi(strings.TrimSpace(m.Get("MX")))
	if err != nil {
		return 0
	}
	return mx
}

// MaxAge extracts the lease seconds from "CACHE-CONTROL: max-age=N".
func (m *Message) MaxAge() int {
	cc := m.Get("CACHE-CONTROL")
	idx := strings.Index(strings.ToLower(cc), "max-age=")
	if idx < 0 {
		return 0
	}
	rest := cc[idx+len("max-age="):]
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	n, _ := strconv.Atoi(rest[:end])
	return n
}

// ParseMessage decodes a raw SSDP datagram into a Message.
func ParseMessage(data []byte) (*Message, error) {
	reader := textproto.NewReader(bufio.NewReader(strings.NewReader(string(data))))

	firstLine, err := reader.ReadLine()
	if err != nil {
		return nil, fmt.Errorf("ssdp: reading first line: %w", err)
	}

	header, err := reader.ReadMIMEHeader()
	if err != nil && len(header) == 0 {
		return nil, fmt.Errorf("ssdp: reading headers: %w", err)
	}

	msg := &Message{Header: header, rawFirst: firstLine}

	switch {
	case strings.HasPrefix(firstLine, "NOTIFY"):
		msg.Kind = KindNotify
	case strings.HasPrefix(firstLine, "M-SEARCH"):
		msg.Kind = KindMSearch
	case strings.HasPrefix(firstLine, "HTTP/1.1 200"), strings.HasPrefix(firstLine, "HTTP/1.0 200"):
		msg.Kind = KindSearchResponse
	default:
		msg.Kind = KindUnknown
	}
	return msg, nil
}

func crlf(lines ...string) []byte {
	return []byte(strings.Join(lines, "\r\n") + "\r\n\r\n")
}

// BuildNotify renders a NOTIFY * HTTP/1.1 datagram (spec §4.3). location,
// server and maxAge are only meaningful (and only emitted) for Alive.
func BuildNotify(nts NotificationType, nt, usn, location, server string, maxAge int) []byte {
	lines := []string{
		"NOTIFY * HTTP/1.1",
		fmt.Sprintf("HOST: %s:%d", MulticastAddr, Port),
		fmt.Sprintf("NT: %s", nt),
		fmt.Sprintf("NTS: %s", nts),
		fmt.Sprintf("USN: %s", usn),
	}
	if nts == Alive {
		lines = append(lines,
			fmt.Sprintf("CACHE-CONTROL: max-age=%d", maxAge),
			fmt.Sprintf("LOCATION: %s", location),
			fmt.Sprintf("SERVER: %s", server),
		)
	}
	return crlf(lines...)
}

// BuildMSearch renders an M-SEARCH * HTTP/1.1 datagram.
func BuildMSearch(st string, mx int) []byte {
	return crlf(
		"M-SEARCH * HTTP/1.1",
		fmt.Sprintf("HOST: %s:%d", MulticastAddr, Port),
		`MAN: "ssdp:discover"`,
		fmt.Sprintf("ST: %s", st),
		fmt.Sprintf("MX: %d", mx),
	)
}

// BuildSearchResponse renders the unicast "HTTP/1.1 200 OK" reply to an
// M-SEARCH.
func BuildSearchResponse(st, usn, location, server string, maxAge int) []byte {
	return crlf(
		"HTTP/1.1 200 OK",
		fmt.Sprintf("CACHE-CONTROL: max-age=%d", maxAge),
		fmt.Sprintf("DATE: %s", time.Now().UTC().Format(time.RFC1123)),
		"EXT:",
		fmt.Sprintf("LOCATION: %s", location),
		fmt.Sprintf("SERVER: %s", server),
		fmt.Sprintf("ST: %s", st),
		fmt.Sprintf("USN: %s", usn),
	)
}

// DeviceUSNForms returns the three-for-root (or two-for-embedded) USN
// (nt, usn) pairs spec §4.3 specifies, plus one pair per service type.
// isRoot controls whether the "upnp:rootdevice" form is included.
func DeviceUSNForms(udn, deviceType string, serviceTypes []string, isRoot bool) []struct{ NT, USN string } {
	uuidNT := "uuid:" + udn
	out := make([]struct{ NT, USN string }, 0, 4+len(serviceTypes))

	if isRoot {
		out = append(out, struct{ NT, USN string }{"upnp:rootdevice", uuidNT + "::upnp:rootdevice"})
	}
	out = append(out, struct{ NT, USN string }{uuidNT, uuidNT})
	out = append(out, struct{ NT, USN string }{deviceType, uuidNT + "::" + deviceType})
	for _, st := range serviceTypes {
		out = append(out, struct{ NT, USN string }{st, uuidNT + "::" + st})
	}
	return out
}
