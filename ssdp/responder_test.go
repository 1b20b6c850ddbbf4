package ssdp

import (
	"net"
	"testing"
)

func TestStMatches(t *testing.T) {
	form := struct{ NT, USN string }{NT: "urn:schemas-upnp-org:service:ContentDirectory:1"}

	if !stMatches("ssdp:all", form) {
		t.Fatal("ssdp:all should match any form")
	}
	if !stMatches(form.NT, form) {
		t.Fatal("exact NT should match")
	}
	if stMatches("urn:schemas-upnp-org:service:AVTransport:1", form) {
		t.Fatal("unrelated ST should not match")
	}
}

func TestHandleMSearchRejectsMissingMAN(t *testing.T) {
	r := NewResponder(false)
	r.Add(&Announcement{
		UUID:     "abc",
		Location: "http://192.168.1.5:4000/desc.xml",
		Server:   "upnpcore/1.0",
		NTs: []struct{ NT, USN string }{
			{NT: "upnp:rootdevice", USN: "uuid:abc::upnp:rootdevice"},
		},
	})

	data := crlf(
		"M-SEARCH * HTTP/1.1",
		"HOST: 239.255.255.250:1900",
		"ST: ssdp:all",
		"MX: 1",
	)
	msg, err := ParseMessage(data)
	if err != nil {
		t.Fatal(err)
	}

	replied := false
	r.HandleMSearch(msg, nil, func(b []byte) error { replied = true; return nil })
	if replied {
		t.Fatal("should not reply without MAN header")
	}
}

func TestHandleMSearchRejectsMissingMX(t *testing.T) {
	r := NewResponder(false)
	data := crlf(
		"M-SEARCH * HTTP/1.1",
		"HOST: 239.255.255.250:1900",
		`MAN: "ssdp:discover"`,
		"ST: ssdp:all",
	)
	msg, err := ParseMessage(data)
	if err != nil {
		t.Fatal(err)
	}

	replied := false
	r.HandleMSearch(msg, nil, func(b []byte) error { replied = true; return nil })
	if replied {
		t.Fatal("should not reply without MX header")
	}
}

// TestInterfaceMatchesSourceLoopback exercises the connect-then-compare
// dedup with a genuine, non-nil source address (spec §4.3 testable
// scenario #6): a loopback destination must route through the loopback
// interface, whose primary address must then agree with what the kernel
// picked.
func TestInterfaceMatchesSourceLoopback(t *testing.T) {
	r := NewResponder(false)
	src := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 1900}
	if !r.interfaceMatchesSource(src) {
		t.Fatal("loopback source should match the loopback interface")
	}
}

func TestHandleMSearchRepliesForMatchingSource(t *testing.T) {
	r := NewResponder(false)
	r.Add(&Announcement{
		UUID:     "abc",
		Location: "http://192.168.1.5:4000/desc.xml",
		Server:   "upnpcore/1.0",
		NTs: []struct{ NT, USN string }{
			{NT: "upnp:rootdevice", USN: "uuid:abc::upnp:rootdevice"},
		},
	})

	data := crlf(
		"M-SEARCH * HTTP/1.1",
		"HOST: 239.255.255.250:1900",
		`MAN: "ssdp:discover"`,
		"ST: ssdp:all",
		"MX: 0",
	)
	msg, err := ParseMessage(data)
	if err != nil {
		t.Fatal(err)
	}

	src := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 1900}
	replied := false
	r.HandleMSearch(msg, src, func(b []byte) error { replied = true; return nil })
	if !replied {
		t.Fatal("expected a reply for a source reachable over a usable interface")
	}
}
