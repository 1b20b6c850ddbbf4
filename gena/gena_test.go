package gena

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gargoton.petite-maison-orange.fr/eric/upnpcore/schema"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/upnptype"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/xerr"
)

func TestParseCallbackHeader(t *testing.T) {
	got := ParseCallbackHeader("<http://10.0.0.5:8080/a><http://10.0.0.5:8080/b>")
	if len(got) != 2 || got[0] != "http://10.0.0.5:8080/a" || got[1] != "http://10.0.0.5:8080/b" {
		t.Fatalf("got %v", got)
	}
}

func TestParseTimeoutHeader(t *testing.T) {
	if d := ParseTimeoutHeader("Second-300"); d != 300*time.Second {
		t.Fatalf("got %v, want 300s", d)
	}
	if d := ParseTimeoutHeader("Second-infinite"); d != 0 {
		t.Fatalf("infinite should map to 0 (use default), got %v", d)
	}
	if d := ParseTimeoutHeader(""); d != 0 {
		t.Fatalf("missing header should map to 0, got %v", d)
	}
}

func TestSubscriberEventKeyWrapsNeverZero(t *testing.T) {
	sub := NewSubscriber([]string{"http://x/"}, "", time.Minute)
	sub.eventKey = 0xFFFFFFFF
	next := sub.NextEventKey()
	if next != 1 {
		t.Fatalf("expected wrap to 1, got %d", next)
	}
}

func TestRegistryCapsAtMax(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < MaxSubscribers; i++ {
		if err := r.Add(NewSubscriber([]string{"http://x/"}, "", time.Minute)); err != nil {
			t.Fatalf("unexpected error at subscriber %d: %v", i, err)
		}
	}
	err := r.Add(NewSubscriber([]string{"http://x/"}, "", time.Minute))
	if err == nil {
		t.Fatal("expected an error once the cap is reached")
	}
	// Distinct from a lifecycle InvalidState: the caller maps this to 500,
	// not the 412 an expired-subscriber Renew produces.
	if !xerr.Is(err, xerr.ResourceExhausted) {
		t.Fatalf("expected xerr.ResourceExhausted, got %v", err)
	}
}

func TestSubscribeDeliversInitialEventAndRegisters(t *testing.T) {
	received := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "NOTIFY" {
			t.Errorf("method = %s, want NOTIFY", r.Method)
		}
		w.WriteHeader(http.StatusOK)
		received <- struct{}{}
	}))
	defer srv.Close()

	table := schema.NewStateVariableSet()
	table.Insert(schema.NewStateVariable("Volume", upnptype.UI4).SetSendEvents())
	values := schema.NewStateValueSet(&table)

	rt := NewRuntime("urn:upnp-org:serviceId:RenderingControl", values, nil)

	sub, err := rt.Subscribe(context.Background(), []string{srv.URL}, "127.0.0.1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if rt.Registry.Len() != 1 {
		t.Fatalf("expected 1 registered subscriber, got %d", rt.Registry.Len())
	}
	if sub.Timeout() <= 0 {
		t.Fatal("expected a positive default timeout")
	}

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("initial NOTIFY was not delivered")
	}
}

func TestEventTaskPublishesChangedValue(t *testing.T) {
	var gotBody []byte
	done := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "NOTIFY" {
			buf, _ := io.ReadAll(r.Body)
			gotBody = buf
			select {
			case done <- struct{}{}:
			default:
			}
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	table := schema.NewStateVariableSet()
	table.Insert(schema.NewStateVariable("Volume", upnptype.UI4).SetSendEvents())
	values := schema.NewStateValueSet(&table)

	rt := NewRuntime("urn:upnp-org:serviceId:RenderingControl", values, nil)
	sub, err := rt.Subscribe(context.Background(), []string{srv.URL}, "127.0.0.1", 0)
	if err != nil {
		t.Fatal(err)
	}
	<-done // drain the initial event

	v, _ := values.Get("Volume")
	v.SetValue(uint32(42))

	rt.tick(context.Background())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("change NOTIFY was not delivered")
	}
	if len(gotBody) == 0 {
		t.Fatal("expected a non-empty propertyset body")
	}
	if sub.EventKey() < 2 {
		t.Fatalf("expected event key to have advanced past the initial event, got %d", sub.EventKey())
	}
}

func TestParsePropertySetAndLastChange(t *testing.T) {
	body := []byte(`<?xml version="1.0"?>
<e:propertyset xmlns:e="urn:schemas-upnp-org:event-1-0">
  <e:property><Volume>42</Volume></e:property>
</e:propertyset>`)

	values, err := ParsePropertySet(body)
	if err != nil {
		t.Fatal(err)
	}
	if values["Volume"] != "42" {
		t.Fatalf("Volume = %q, want 42", values["Volume"])
	}

	lastChange := `<Event xmlns="urn:schemas-upnp-org:metadata-1-0/AVT/">
  <InstanceID val="0">
    <TransportState val="PLAYING"/>
  </InstanceID>
</Event>`

	decomposed, err := DecomposeLastChange(lastChange)
	if err != nil {
		t.Fatal(err)
	}
	if decomposed[0]["TransportState"] != "PLAYING" {
		t.Fatalf("decomposed = %v", decomposed)
	}
}
