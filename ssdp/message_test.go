package ssdp

import (
	"strings"
	"testing"
)

func TestBuildAndParseNotifyAlive(t *testing.T) {
	data := BuildNotify(Alive, "upnp:rootdevice", "uuid:abc::upnp:rootdevice", "http://192.168.1.5:4000/desc.xml", "upnpcore/1.0", 1800)

	msg, err := ParseMessage(data)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Kind != KindNotify {
		t.Fatalf("Kind = %v, want KindNotify", msg.Kind)
	}
	if msg.NTS() != string(Alive) {
		t.Fatalf("NTS = %q", msg.NTS())
	}
	if msg.MaxAge() != 1800 {
		t.Fatalf("MaxAge = %d, want 1800", msg.MaxAge())
	}
	if msg.Location() != "http://192.168.1.5:4000/desc.xml" {
		t.Fatalf("Location = %q", msg.Location())
	}
}

func TestBuildAndParseByebye(t *testing.T) {
	data := BuildNotify(Byebye, "upnp:rootdevice", "uuid:abc::upnp:rootdevice", "", "", 0)
	msg, err := ParseMessage(data)
	if err != nil {
		t.Fatal(err)
	}
	if msg.NTS() != string(Byebye) {
		t.Fatalf("NTS = %q", msg.NTS())
	}
	if strings.Contains(string(data), "LOCATION") {
		t.Fatal("byebye should not carry a LOCATION header")
	}
}

func TestBuildAndParseMSearch(t *testing.T) {
	data := BuildMSearch("ssdp:all", 3)
	msg, err := ParseMessage(data)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Kind != KindMSearch {
		t.Fatalf("Kind = %v, want KindMSearch", msg.Kind)
	}
	if msg.MX() != 3 {
		t.Fatalf("MX = %d, want 3", msg.MX())
	}
	if msg.ST() != "ssdp:all" {
		t.Fatalf("ST = %q", msg.ST())
	}
}

func TestBuildAndParseSearchResponse(t *testing.T) {
	data := BuildSearchResponse("upnp:rootdevice", "uuid:abc::upnp:rootdevice", "http://x/desc.xml", "server/1.0", 1800)
	msg, err := ParseMessage(data)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Kind != KindSearchResponse {
		t.Fatalf("Kind = %v, want KindSearchResponse", msg.Kind)
	}
	if msg.ST() != "upnp:rootdevice" {
		t.Fatalf("ST = %q", msg.ST())
	}
}

func TestDeviceUSNFormsRoot(t *testing.T) {
	forms := DeviceUSNForms("abc", "urn:schemas-upnp-org:device:MediaServer:1",
		[]string{"urn:schemas-upnp-org:service:ContentDirectory:1"}, true)

	if len(forms) != 4 {
		t.Fatalf("expected 4 entries (root+uuid+device+1 service), got %d", len(forms))
	}
	if forms[0].NT != "upnp:rootdevice" {
		t.Fatalf("forms[0].NT = %q, want upnp:rootdevice", forms[0].NT)
	}
	if forms[1].USN != "uuid:abc" {
		t.Fatalf("forms[1].USN = %q, want uuid:abc", forms[1].USN)
	}
}

func TestDeviceUSNFormsEmbedded(t *testing.T) {
	forms := DeviceUSNForms("xyz", "urn:schemas-upnp-org:device:MediaRenderer:1", nil, false)
	if len(forms) != 2 {
		t.Fatalf("expected 2 entries for an embedded device with no services, got %d", len(forms))
	}
}
