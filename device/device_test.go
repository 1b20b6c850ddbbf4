package device

import (
	"strings"
	"testing"
	"time"

	"gargoton.petite-maison-orange.fr/eric/upnpcore/schema"
)

func buildSampleDevice(t *testing.T) *Device {
	t.Helper()
	d := NewDevice("urn:schemas-upnp-org:device:MediaServer:1")
	d.SetFriendlyName("Test Server").SetManufacturer("Acme").SetModelName("Widget")

	svc := schema.NewService("ContentDirectory")
	svc.Actions().Insert(schema.NewAction("Browse"))
	d.AddService(svc)
	return d
}

func TestDescriptionRoundTrip(t *testing.T) {
	original := buildSampleDevice(t)
	if err := original.SetURLBase("http://192.168.1.10:4000/"); err != nil {
		t.Fatal(err)
	}

	var buf strings.Builder
	doc := original.ToXMLDocument()
	if _, err := doc.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}

	parsed, err := ParseDescription(strings.NewReader(buf.String()), "http://192.168.1.10:4000/desc.xml")
	if err != nil {
		t.Fatal(err)
	}

	if parsed.UUID() != original.UUID() {
		t.Fatalf("UUID mismatch: got %s, want %s", parsed.UUID(), original.UUID())
	}
	if parsed.FriendlyName() != "Test Server" {
		t.Fatalf("friendlyName = %q", parsed.FriendlyName())
	}
	if parsed.Services().Len() != 1 {
		t.Fatalf("expected 1 service, got %d", parsed.Services().Len())
	}
	if parsed.URLBase() != "http://192.168.1.10:4000/" {
		t.Fatalf("URLBase = %q", parsed.URLBase())
	}
}

func TestIsReady(t *testing.T) {
	d := buildSampleDevice(t)
	if !d.IsReady() {
		t.Fatal("device with one host-authored service should be ready")
	}

	d2 := NewDevice("urn:schemas-upnp-org:device:MediaServer:1")
	if d2.IsReady() {
		t.Fatal("device with no services or embedded devices should not be ready")
	}

	stub := schema.NewServiceStub("ContentDirectory")
	d2.AddService(stub)
	if d2.IsReady() {
		t.Fatal("device with an unfetched SCPD stub should not be ready")
	}
	stub.SetSCPD(schema.NewSCPD())
	if !d2.IsReady() {
		t.Fatal("device should become ready once its stub's SCPD is set")
	}
}

func TestLeaseClamping(t *testing.T) {
	d := NewDevice("urn:schemas-upnp-org:device:MediaServer:1")
	d.SetLeaseTime(2 * time.Second)
	if d.LeaseTime() != DefaultLeaseTime {
		t.Fatalf("lease below minimum should clamp to default, got %v", d.LeaseTime())
	}

	d.SetLeaseTime(60 * time.Second)
	if d.LeaseTime() != 60*time.Second {
		t.Fatalf("valid lease should be kept, got %v", d.LeaseTime())
	}
}

func TestIsExpired(t *testing.T) {
	d := NewDevice("urn:schemas-upnp-org:device:MediaServer:1")
	d.SetLeaseTime(10 * time.Second)
	d.Touch()

	if d.IsExpired(time.Now().Add(5 * time.Second)) {
		t.Fatal("should not be expired within lease window")
	}
	if !d.IsExpired(time.Now().Add(30 * time.Second)) {
		t.Fatal("should be expired past 2x lease time")
	}
}

func TestLocalhostRewrite(t *testing.T) {
	d := NewDevice("urn:schemas-upnp-org:device:MediaServer:1")
	if err := d.SetURLBase("http://127.0.0.1:4000/"); err != nil {
		t.Fatal(err)
	}
	if err := d.RewriteLocalhost("192.168.1.20"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(d.URLBase(), "192.168.1.20") {
		t.Fatalf("expected localhost rewrite, got %s", d.URLBase())
	}
}

func TestSelectIcon(t *testing.T) {
	d := NewDevice("urn:schemas-upnp-org:device:MediaServer:1")
	d.SetIcons([]*Icon{
		{Mimetype: "image/png", Width: 32, Height: 32, Depth: 24, URL: "/icon32.png"},
		{Mimetype: "image/png", Width: 120, Height: 120, Depth: 24, URL: "/icon120.png"},
		{Mimetype: "image/png", Width: 256, Height: 256, Depth: 24, URL: ""},
	})

	icon, ok := d.SelectIcon("image/png", 128, 128, 0)
	if !ok {
		t.Fatal("expected a matching icon")
	}
	if icon.URL != "/icon120.png" {
		t.Fatalf("expected the largest icon within bounds, got %s", icon.URL)
	}
}

func TestMatchTypeWildcard(t *testing.T) {
	if !matchType("urn:schemas-upnp-org:service:ContentDirectory:1", "urn:schemas-upnp-org:service:ContentDirectory:*") {
		t.Fatal("wildcard should match version 1")
	}
	if matchType("urn:schemas-upnp-org:service:AVTransport:1", "urn:schemas-upnp-org:service:ContentDirectory:*") {
		t.Fatal("wildcard should not match a different service name")
	}
}
