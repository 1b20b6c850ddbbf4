package control

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"gargoton.petite-maison-orange.fr/eric/upnpcore/device"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/schema"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/soap"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/xerr"
)

// ActionRef is a single action invocation in flight or completed (spec
// §4.5 "Action invocation"/"Action response parsing", grounded on
// PLT_ActionReference — generalized from its get/set-argument-by-name
// methods into plain Go maps since this core has no IDL-generated typed
// action classes).
type ActionRef struct {
	Device      *device.Device
	ServiceID   string
	Name        string
	In          map[string]string
	Out         map[string]string
	ErrorCode   int
	ErrorString string
}

// Failed reports whether the invocation ended in a SOAP fault (ErrorCode
// != 0) rather than a parsed success response.
func (a *ActionRef) Failed() bool { return a.ErrorCode != 0 }

// InvokeAction builds and POSTs a SOAP action request for svc (owned by
// root device d), dispatching the resulting ActionRef to every listener's
// ActionComplete once the response (or fault) has been parsed. The HTTP
// round trip runs through the bounded task manager (spec §5 "short-lived
// HTTP client requests") on a background goroutine, so InvokeAction
// returns as soon as that goroutine is started, before the task manager
// has granted it a slot and well before it has completed — callers that
// need the result synchronously use InvokeActionSync.
func (p *Point) InvokeAction(ctx context.Context, d *device.Device, svc *schema.Service, name string, in map[string]string, userdata interface{}) error {
	action, ok := svc.Actions().GetFold(name)
	if !ok {
		return xerr.New(xerr.NotFound, "no such action: %s", name)
	}

	go func() {
		ref := p.doInvoke(ctx, d, svc, action, in)
		for _, l := range p.listenersSnapshot() {
			l.ActionComplete(ref, userdata)
		}
	}()
	return nil
}

// InvokeActionSync behaves like InvokeAction but blocks the caller until
// the response arrives or timeout elapses, using the one-shot-channel
// completion primitive spec.md §9 prescribes in place of the teacher's
// Browse/OnBrowseResponse blocking-bridge pattern.
func (p *Point) InvokeActionSync(ctx context.Context, d *device.Device, svc *schema.Service, name string, in map[string]string, timeout time.Duration) (*ActionRef, error) {
	action, ok := svc.Actions().GetFold(name)
	if !ok {
		return nil, xerr.New(xerr.NotFound, "no such action: %s", name)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	result := make(chan *ActionRef, 1)
	go func() { result <- p.doInvoke(ctx, d, svc, action, in) }()

	select {
	case ref := <-result:
		return ref, nil
	case <-time.After(timeout):
		return nil, xerr.New(xerr.Timeout, "action %s timed out after %s", name, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Point) doInvoke(ctx context.Context, d *device.Device, svc *schema.Service, action *schema.Action, in map[string]string) *ActionRef {
	ref := &ActionRef{Device: d, ServiceID: svc.ServiceId(), Name: action.Name(), In: in}

	controlURL, err := d.ResolveURL(svc.ControlURL())
	if err != nil {
		ref.ErrorCode = soap.ErrActionFailed
		ref.ErrorString = err.Error()
		return ref
	}

	var args []soap.Arg
	for a := range action.Arguments().In() {
		args = append(args, soap.Arg{Name: a.Name(), Value: in[a.Name()]})
	}
	body := soap.BuildActionRequest(svc.ServiceType(), action.Name(), args)

	err = p.manager.Run(ctx, func(ctx context.Context) error {
		return p.postAction(ctx, controlURL, svc.ServiceType(), action.Name(), body, ref)
	})
	if err != nil {
		ref.ErrorCode = soap.ErrActionFailed
		ref.ErrorString = err.Error()
	}
	return ref
}

func (p *Point) postAction(ctx context.Context, controlURL, serviceType, actionName string, body []byte, ref *ActionRef) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, controlURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SOAPAction", soap.SOAPActionHeader(serviceType, actionName))

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return err
	}

	env, err := soap.ParseEnvelope(buf.Bytes())
	if err != nil {
		return err
	}
	actionResp, fault, err := soap.ParseActionResponse(env)
	if err != nil {
		return err
	}
	if fault != nil {
		ref.ErrorCode = fault.ErrorCode
		ref.ErrorString = fault.ErrorDescription
		log.Debugf("🐞 action %s failed: %d %s", actionName, fault.ErrorCode, fault.ErrorDescription)
		return nil
	}

	ref.Out = actionResp.Values
	return p.verifyOutArguments(ref)
}

// verifyOutArguments checks that every declared "out" argument of the
// invoked action is present in the parsed response (spec §4.5 "After
// filling, verify all declared 'out' arguments are present").
func (p *Point) verifyOutArguments(ref *ActionRef) error {
	owner, svcName, ok := ref.Device.FindServiceByID(ref.ServiceID, true)
	if !ok {
		return fmt.Errorf("control: service %s no longer present on device", ref.ServiceID)
	}
	svc, ok := owner.Services().Get(svcName)
	if !ok {
		return nil
	}
	action, ok := svc.Actions().GetFold(ref.Name)
	if !ok {
		return nil
	}
	for a := range action.Arguments().Out() {
		if _, present := ref.Out[a.Name()]; !present {
			return fmt.Errorf("control: response missing declared out argument %s", a.Name())
		}
	}
	return nil
}
