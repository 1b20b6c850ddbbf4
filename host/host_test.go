package host

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"gargoton.petite-maison-orange.fr/eric/upnpcore/config"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/device"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/gena"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/schema"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/soap"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/upnptype"
)

func buildTestHost(t *testing.T) (*Host, *device.Device, *schema.Service) {
	t.Helper()
	d := device.NewDevice("urn:schemas-upnp-org:device:TestServer:1")
	svc := schema.NewService("TestService")

	action := schema.NewAction("SetName")
	action.AddArgument(schema.NewArgument("NewName", schema.In, "Name"))
	action.AddArgument(schema.NewArgument("OldName", schema.Out, "Name"))
	svc.Actions().Insert(action)

	nameVar := schema.NewStateVariable("Name", upnptype.String)
	svc.Variables().Insert(nameVar)

	d.AddService(svc)

	h := NewHost(d, config.Load(""))
	h.localIP = "127.0.0.1"
	return h, d, svc
}

type recordingHandler struct {
	lastArgs map[string]string
	out      map[string]string
	err      error
}

func (r *recordingHandler) OnAction(ctx context.Context, d *device.Device, svc *schema.Service, action *schema.Action, args map[string]string) (map[string]string, error) {
	r.lastArgs = args
	if r.err != nil {
		return nil, r.err
	}
	return r.out, nil
}

func TestHandleControlSuccess(t *testing.T) {
	h, d, svc := buildTestHost(t)
	rh := &recordingHandler{out: map[string]string{"OldName": "previous"}}
	h.handler = rh

	body := soap.BuildActionRequest(svc.ServiceType(), "SetName", []soap.Arg{{Name: "NewName", Value: "next"}})
	req := httptest.NewRequest(http.MethodPost, svc.ControlURL(), bytes.NewReader(body))
	req.Header.Set("SOAPAction", soap.SOAPActionHeader(svc.ServiceType(), "SetName"))

	w := httptest.NewRecorder()
	h.handleControl(d, svc)(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if rh.lastArgs["NewName"] != "next" {
		t.Fatalf("handler did not receive validated arg, got %v", rh.lastArgs)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("previous")) {
		t.Fatalf("response missing out argument: %s", w.Body.String())
	}
}

func TestHandleControlUnknownAction(t *testing.T) {
	h, d, svc := buildTestHost(t)
	h.handler = &recordingHandler{}

	body := soap.BuildActionRequest(svc.ServiceType(), "NoSuchAction", nil)
	req := httptest.NewRequest(http.MethodPost, svc.ControlURL(), bytes.NewReader(body))

	w := httptest.NewRecorder()
	h.handleControl(d, svc)(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 (SOAP faults ride HTTP 500)", w.Code)
	}
	if !soap.IsFaultXML(w.Body.Bytes()) {
		t.Fatalf("expected a Fault envelope, got %s", w.Body.String())
	}
}

func TestHandleControlMissingArgument(t *testing.T) {
	h, d, svc := buildTestHost(t)
	h.handler = &recordingHandler{}

	body := soap.BuildActionRequest(svc.ServiceType(), "SetName", nil)
	req := httptest.NewRequest(http.MethodPost, svc.ControlURL(), bytes.NewReader(body))

	w := httptest.NewRecorder()
	h.handleControl(d, svc)(w, req)

	if w.Code != http.StatusInternalServerError || !soap.IsFaultXML(w.Body.Bytes()) {
		t.Fatalf("expected a Fault for the missing argument, got %d %s", w.Code, w.Body.String())
	}
}

func TestHandleControlHandlerFault(t *testing.T) {
	h, d, svc := buildTestHost(t)
	h.handler = &recordingHandler{err: soap.NewFault(soap.ErrActionFailed, "boom")}

	body := soap.BuildActionRequest(svc.ServiceType(), "SetName", []soap.Arg{{Name: "NewName", Value: "x"}})
	req := httptest.NewRequest(http.MethodPost, svc.ControlURL(), bytes.NewReader(body))

	w := httptest.NewRecorder()
	h.handleControl(d, svc)(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("boom")) {
		t.Fatalf("expected handler's fault description to survive, got %s", w.Body.String())
	}
}

func TestHandleEventSubscribeAndUnsubscribe(t *testing.T) {
	h, _, svc := buildTestHost(t)
	values := schema.NewStateValueSet(svc.Variables())
	rt := gena.NewRuntime(svc.ServiceId(), values, nil)
	h.InstallRuntime(rt)

	// The initial NOTIFY must be delivered for the subscribe to succeed, so
	// the CALLBACK points at a live server that accepts it.
	cb := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer cb.Close()

	req := httptest.NewRequest("SUBSCRIBE", svc.EventSubURL(), nil)
	req.Header.Set("NT", "upnp:event")
	req.Header.Set("CALLBACK", "<"+cb.URL+"/cb>")
	req.Header.Set("TIMEOUT", "Second-300")

	w := httptest.NewRecorder()
	h.handleEvent(svc)(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("subscribe status = %d, body = %s", w.Code, w.Body.String())
	}
	sid := w.Header().Get("SID")
	if sid == "" {
		t.Fatal("expected a SID header on successful subscribe")
	}

	unreq := httptest.NewRequest("UNSUBSCRIBE", svc.EventSubURL(), nil)
	unreq.Header.Set("SID", sid)
	unw := httptest.NewRecorder()
	h.handleEvent(svc)(unw, unreq)
	if unw.Code != http.StatusOK {
		t.Fatalf("unsubscribe status = %d", unw.Code)
	}

	// A second UNSUBSCRIBE for the same (now-gone) SID must fail.
	unw2 := httptest.NewRecorder()
	h.handleEvent(svc)(unw2, unreq)
	if unw2.Code != http.StatusPreconditionFailed {
		t.Fatalf("expected 412 for a double unsubscribe, got %d", unw2.Code)
	}
}

func TestHandleEventSubscribeMissingCallback(t *testing.T) {
	h, _, svc := buildTestHost(t)
	values := schema.NewStateValueSet(svc.Variables())
	rt := gena.NewRuntime(svc.ServiceId(), values, nil)
	h.InstallRuntime(rt)

	req := httptest.NewRequest("SUBSCRIBE", svc.EventSubURL(), nil)
	req.Header.Set("NT", "upnp:event")

	w := httptest.NewRecorder()
	h.handleEvent(svc)(w, req)
	if w.Code != http.StatusPreconditionFailed {
		t.Fatalf("expected 412 for a CALLBACK-less subscribe, got %d", w.Code)
	}
}

// TestHandleEventSubscribeCapReached checks that a full subscriber registry
// answers 500, not the 412 an expired-on-renew subscriber gets — the two
// share no xerr.Kind since spec §4.4 assigns them different HTTP statuses.
func TestHandleEventSubscribeCapReached(t *testing.T) {
	h, _, svc := buildTestHost(t)
	values := schema.NewStateValueSet(svc.Variables())
	rt := gena.NewRuntime(svc.ServiceId(), values, nil)
	h.InstallRuntime(rt)

	for i := 0; i < gena.MaxSubscribers; i++ {
		sub := gena.NewSubscriber([]string{"http://127.0.0.1:9/cb"}, "127.0.0.1", 0)
		if err := rt.Registry.Add(sub); err != nil {
			t.Fatalf("unexpected error filling registry at %d: %v", i, err)
		}
	}

	req := httptest.NewRequest("SUBSCRIBE", svc.EventSubURL(), nil)
	req.Header.Set("NT", "upnp:event")
	req.Header.Set("CALLBACK", "<http://127.0.0.1:9/cb>")

	w := httptest.NewRecorder()
	h.handleEvent(svc)(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 once the subscriber cap is reached, got %d", w.Code)
	}
}

func TestDefaultURLScheme(t *testing.T) {
	scpd, control, event := DefaultURLScheme("uuid-1", "AVTransport")
	if scpd != "/AVTransport/uuid-1/scpd.xml" {
		t.Fatalf("scpd path = %s", scpd)
	}
	if control != "/AVTransport/uuid-1/control.xml" {
		t.Fatalf("control path = %s", control)
	}
	if event != "/AVTransport/uuid-1/event.xml" {
		t.Fatalf("event path = %s", event)
	}
}

func TestXboxURLScheme(t *testing.T) {
	scpd, control, event := XboxURLScheme("uuid-1", "ContentDirectory")
	if scpd != "/Content/ContentDirectory" || control != "/Control/ContentDirectory" || event != "/Event/ContentDirectory" {
		t.Fatalf("unexpected Xbox scheme paths: %s %s %s", scpd, control, event)
	}
}
