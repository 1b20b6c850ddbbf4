package control

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gargoton.petite-maison-orange.fr/eric/upnpcore/device"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/schema"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/soap"
)

func TestUUIDFromUSN(t *testing.T) {
	cases := map[string]string{
		"uuid:abc-123":                          "abc-123",
		"uuid:abc-123::upnp:rootdevice":          "abc-123",
		"uuid:abc-123::urn:schemas-upnp-org:...": "abc-123",
		"not-a-uuid-line":                        "not-a-uuid-line",
	}
	for in, want := range cases {
		if got := uuidFromUSN(in); got != want {
			t.Fatalf("uuidFromUSN(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPendingQueuePushDrainFIFOAndCap(t *testing.T) {
	q := newPendingQueue(2)
	q.push(pendingNotify{sid: "a", seq: 1})
	q.push(pendingNotify{sid: "a", seq: 2})
	q.push(pendingNotify{sid: "a", seq: 3}) // evicts seq 1

	got := q.drain("a")
	if len(got) != 2 {
		t.Fatalf("expected 2 surviving entries, got %d", len(got))
	}
	if got[0].seq != 2 || got[1].seq != 3 {
		t.Fatalf("expected FIFO order [2 3], got [%d %d]", got[0].seq, got[1].seq)
	}
	if len(q.drain("a")) != 0 {
		t.Fatal("drain should have emptied the queue for sid a")
	}
}

func TestPendingQueueDrainOnlyMatchingSID(t *testing.T) {
	q := newPendingQueue(10)
	q.push(pendingNotify{sid: "a", seq: 1})
	q.push(pendingNotify{sid: "b", seq: 1})

	got := q.drain("a")
	if len(got) != 1 {
		t.Fatalf("expected 1 entry for sid a, got %d", len(got))
	}
	remaining := q.drain("b")
	if len(remaining) != 1 {
		t.Fatalf("expected 1 entry for sid b, got %d", len(remaining))
	}
}

func TestSubscriptionAcceptSequence(t *testing.T) {
	sub := &Subscription{}

	if !sub.acceptSequence(5) {
		t.Fatal("first NOTIFY should seed the sequence counter")
	}
	if !sub.acceptSequence(6) {
		t.Fatal("sequential NOTIFY should be accepted")
	}
	if sub.acceptSequence(6) {
		t.Fatal("duplicate NOTIFY should be rejected")
	}
	if sub.acceptSequence(8) {
		t.Fatal("skipped NOTIFY should be rejected")
	}
}

func TestSubscriptionAcceptSequenceWrap(t *testing.T) {
	sub := &Subscription{haveSeq: true, lastSeq: 0xFFFFFFFF}
	if !sub.acceptSequence(1) {
		t.Fatal("sequence must wrap from 0xFFFFFFFF to 1, never 0")
	}
}

func TestActionRefFailed(t *testing.T) {
	ref := &ActionRef{}
	if ref.Failed() {
		t.Fatal("zero-value ActionRef should not report failure")
	}
	ref.ErrorCode = soap.ErrActionFailed
	if !ref.Failed() {
		t.Fatal("non-zero ErrorCode should report failure")
	}
}

func buildTestDevice(t *testing.T, controlURL string) (*device.Device, *schema.Service) {
	t.Helper()
	d := device.NewDevice("urn:schemas-upnp-org:device:TestServer:1")
	if err := d.SetURLBase(controlURL); err != nil {
		t.Fatal(err)
	}

	svc := schema.NewService("TestService")
	svc.SetControlURL("control")
	svc.SetEventSubURL("event")

	action := schema.NewAction("DoThing")
	action.AddArgument(schema.NewArgument("In1", schema.In, "A_ARG_In1"))
	action.AddArgument(schema.NewArgument("Out1", schema.Out, "A_ARG_Out1"))
	svc.Actions().Insert(action)

	d.AddService(svc)
	return d, svc
}

func TestInvokeActionSyncSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("SOAPAction") == "" {
			t.Error("expected SOAPAction header")
		}
		w.Write(soap.BuildActionResponse("urn:schemas-upnp-org:service:TestService:1", "DoThing",
			[]soap.Arg{{Name: "Out1", Value: "42"}}))
	}))
	defer srv.Close()

	d, svc := buildTestDevice(t, srv.URL+"/")
	p := NewPoint(nil, nil)

	ref, err := p.InvokeActionSync(context.Background(), d, svc, "DoThing", map[string]string{"In1": "hello"}, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if ref.Failed() {
		t.Fatalf("unexpected failure: %s", ref.ErrorString)
	}
	if ref.Out["Out1"] != "42" {
		t.Fatalf("Out1 = %q, want 42", ref.Out["Out1"])
	}
}

func TestInvokeActionSyncFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write(soap.BuildFaultEnvelope(&soap.Fault{ErrorCode: 402, ErrorDescription: "Invalid Args"}))
	}))
	defer srv.Close()

	d, svc := buildTestDevice(t, srv.URL+"/")
	p := NewPoint(nil, nil)

	ref, err := p.InvokeActionSync(context.Background(), d, svc, "DoThing", map[string]string{"In1": "x"}, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if !ref.Failed() {
		t.Fatal("expected a SOAP fault to be reported as failure")
	}
	if ref.ErrorCode != 402 {
		t.Fatalf("ErrorCode = %d, want 402", ref.ErrorCode)
	}
}

func TestInvokeActionSyncUnknownAction(t *testing.T) {
	d, svc := buildTestDevice(t, "http://127.0.0.1:1/")
	p := NewPoint(nil, nil)

	if _, err := p.InvokeActionSync(context.Background(), d, svc, "NoSuchAction", nil, time.Second); err == nil {
		t.Fatal("expected an error for an undeclared action")
	}
}

func TestSubscribeAndRenew(t *testing.T) {
	var sawRenew bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "SUBSCRIBE" {
			t.Fatalf("unexpected method %s", r.Method)
		}
		if sid := r.Header.Get("SID"); sid != "" {
			sawRenew = true
			w.Header().Set("SID", sid)
			w.Header().Set("TIMEOUT", "Second-300")
			return
		}
		if r.Header.Get("CALLBACK") == "" {
			t.Error("expected CALLBACK header on initial SUBSCRIBE")
		}
		w.Header().Set("SID", "uuid:test-sid")
		w.Header().Set("TIMEOUT", "Second-300")
	}))
	defer srv.Close()

	d, svc := buildTestDevice(t, srv.URL+"/")
	p := NewPoint(nil, nil)
	p.localURL = "http://127.0.0.1:9"

	sub, err := p.Subscribe(context.Background(), d, svc, 0)
	if err != nil {
		t.Fatal(err)
	}
	if sub.SID() != "uuid:test-sid" {
		t.Fatalf("SID = %q", sub.SID())
	}

	if err := p.Renew(context.Background(), sub); err != nil {
		t.Fatal(err)
	}
	if !sawRenew {
		t.Fatal("expected the server to observe a renewal request carrying SID")
	}
}

func TestHandleNotifyDispatchesToListener(t *testing.T) {
	p := NewPoint(nil, nil)
	sub := &Subscription{sid: "uuid:known"}
	p.subs[sub.sid] = sub

	rec := &captureListener{}
	p.AddListener(rec)

	body := []byte(`<?xml version="1.0"?>
<e:propertyset xmlns:e="urn:schemas-upnp-org:event-1-0">
  <e:property><Foo>bar</Foo></e:property>
</e:propertyset>`)
	req := httptest.NewRequest("NOTIFY", "/uuid-x/svc-y", bytes.NewReader(body))
	req.Header.Set("SID", "uuid:known")
	req.Header.Set("NT", "upnp:event")
	req.Header.Set("NTS", "upnp:propchange")
	req.Header.Set("SEQ", "0")

	w := httptest.NewRecorder()
	p.handleNotify(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if rec.values["Foo"] != "bar" {
		t.Fatalf("expected event value Foo=bar, got %v", rec.values)
	}
}

func TestHandleNotifyQueuesUnknownSID(t *testing.T) {
	p := NewPoint(nil, nil)
	body := []byte(`<?xml version="1.0"?>
<e:propertyset xmlns:e="urn:schemas-upnp-org:event-1-0">
  <e:property><Foo>bar</Foo></e:property>
</e:propertyset>`)
	req := httptest.NewRequest("NOTIFY", "/uuid-x/svc-y", bytes.NewReader(body))
	req.Header.Set("SID", "uuid:unknown")
	req.Header.Set("NT", "upnp:event")
	req.Header.Set("NTS", "upnp:propchange")
	req.Header.Set("SEQ", "1")

	w := httptest.NewRecorder()
	p.handleNotify(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	sub := &Subscription{sid: "uuid:unknown"}
	rec := &captureListener{}
	p.AddListener(rec)
	p.drainPendingFor(sub)

	if rec.values["Foo"] != "bar" {
		t.Fatalf("expected the queued NOTIFY to replay once the subscription is known, got %v", rec.values)
	}
}

type captureListener struct {
	values map[string]string
}

func (c *captureListener) DeviceAdded(d *device.Device)                  {}
func (c *captureListener) DeviceRemoved(d *device.Device)                {}
func (c *captureListener) ActionComplete(ref *ActionRef, userdata any)   {}
func (c *captureListener) EventNotify(sub *Subscription, values map[string]string) {
	c.values = values
}
