package host

import (
	"context"
	"fmt"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"

	"gargoton.petite-maison-orange.fr/eric/upnpcore/device"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/gena"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/schema"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/soap"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/xerr"
)

// handleControl implements the SOAP action-dispatch endpoint (spec §4.6
// "Action dispatch"): parse the envelope, resolve the action against the
// service's SCPD, validate every "in" argument against its related state
// variable, call the ActionHandler, and render either a response envelope
// or a fault envelope. Every early return after the envelope has been
// parsed answers with HTTP 500 carrying a SOAP Fault body, matching UPnP's
// convention of reporting control errors in-band rather than via HTTP
// status (spec §6 "Error codes").
func (h *Host) handleControl(d *device.Device, svc *schema.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			h.writeFault(w, soap.ErrInternal, "")
			return
		}

		env, err := soap.ParseEnvelope(body)
		if err != nil {
			log.Warnf("❌ control request for %s: %v", svc.Name(), err)
			h.writeFault(w, soap.ErrInvalidArgs, "")
			return
		}

		req, err := soap.ParseActionRequest(env)
		if err != nil {
			h.writeFault(w, soap.ErrInvalidArgs, "")
			return
		}

		wantHeader := soap.SOAPActionHeader(svc.ServiceType(), req.Name)
		if got := r.Header.Get("SOAPAction"); got != "" && got != wantHeader {
			h.writeFault(w, soap.ErrInvalidAction, "SOAPAction header does not match request body")
			return
		}

		action, ok := svc.Actions().GetFold(req.Name)
		if !ok {
			h.writeFault(w, soap.ErrInvalidAction, "")
			return
		}

		validated := make(map[string]string, len(req.Args))
		for arg := range action.Arguments().In() {
			raw, present := req.Args[arg.Name()]
			if !present {
				h.writeFault(w, soap.ErrInvalidArgs, fmt.Sprintf("missing argument %s", arg.Name()))
				return
			}
			if sv, ok := svc.Variables().Get(arg.RelatedStateVariable()); ok {
				if _, err := sv.Validate(raw); err != nil {
					h.writeFault(w, soap.ErrInvalidArgs, err.Error())
					return
				}
			}
			validated[arg.Name()] = raw
		}

		if h.handler == nil {
			h.writeFault(w, soap.ErrActionFailed, "no action handler installed")
			return
		}

		out, err := h.handler.OnAction(r.Context(), d, svc, action, validated)
		if err != nil {
			h.writeFault(w, faultCodeFor(err), err.Error())
			return
		}

		var values []soap.Arg
		for arg := range action.Arguments().Out() {
			values = append(values, soap.Arg{Name: arg.Name(), Value: out[arg.Name()]})
		}

		w.Header().Set("Content-Type", `text/xml; charset="utf-8"`)
		w.Header().Set("EXT", "")
		_, _ = w.Write(soap.BuildActionResponse(svc.ServiceType(), req.Name, values))
	}
}

// faultCodeFor maps a handler error to a wire error code. A *soap.Fault
// returned directly by the handler passes its code through unchanged;
// anything else becomes a generic 501 Action Failed (spec §7 "error
// planes": internal errors never leak their Go error string as a wire
// error code).
func faultCodeFor(err error) int {
	if f, ok := err.(*soap.Fault); ok {
		return f.ErrorCode
	}
	return soap.ErrActionFailed
}

func (h *Host) writeFault(w http.ResponseWriter, code int, description string) {
	w.Header().Set("Content-Type", `text/xml; charset="utf-8"`)
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write(soap.BuildFaultEnvelope(soap.NewFault(code, description)))
}

// handleEvent implements the GENA SUBSCRIBE/RENEW/UNSUBSCRIBE endpoint
// (spec §4.4, §4.6), dispatching by HTTP method onto the service's
// gena.Runtime. Any method other than these three never reaches here —
// registerDeviceRoutes only wires them.
func (h *Host) handleEvent(svc *schema.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rt, ok := h.Runtime(svc.ServiceId())
		if !ok {
			http.Error(w, "no event runtime for this service", http.StatusInternalServerError)
			return
		}

		switch r.Method {
		case "SUBSCRIBE":
			h.handleSubscribe(r.Context(), w, r, rt)
		case "UNSUBSCRIBE":
			h.handleUnsubscribe(w, r, rt)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

// handleSubscribe answers both a new SUBSCRIBE (has CALLBACK, no SID) and
// a renewal (has SID, no CALLBACK) on the same route, matching GENA's wire
// convention (spec §4.4 "New subscribe"/"Renew").
func (h *Host) handleSubscribe(ctx context.Context, w http.ResponseWriter, r *http.Request, rt *gena.Runtime) {
	timeout := gena.ParseTimeoutHeader(r.Header.Get("TIMEOUT"))

	if sid := r.Header.Get("SID"); sid != "" {
		if r.Header.Get("CALLBACK") != "" || r.Header.Get("NT") != "" {
			w.WriteHeader(http.StatusPreconditionFailed)
			return
		}
		sub, err := rt.Renew(sid, timeout, h.localInterfaceIP())
		if err != nil {
			writeGenaError(w, err)
			return
		}
		writeSubscribeOK(w, sub)
		return
	}

	if r.Header.Get("NT") != "upnp:event" {
		w.WriteHeader(http.StatusPreconditionFailed)
		return
	}
	callbacks := gena.ParseCallbackHeader(r.Header.Get("CALLBACK"))
	if len(callbacks) == 0 {
		w.WriteHeader(http.StatusPreconditionFailed)
		return
	}
	sub, err := rt.Subscribe(ctx, callbacks, h.localInterfaceIP(), timeout)
	if err != nil {
		writeGenaError(w, err)
		return
	}
	writeSubscribeOK(w, sub)
}

func (h *Host) handleUnsubscribe(w http.ResponseWriter, r *http.Request, rt *gena.Runtime) {
	sid := r.Header.Get("SID")
	if sid == "" || r.Header.Get("CALLBACK") != "" {
		w.WriteHeader(http.StatusPreconditionFailed)
		return
	}
	if err := rt.Unsubscribe(sid); err != nil {
		writeGenaError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func writeSubscribeOK(w http.ResponseWriter, sub *gena.Subscriber) {
	w.Header().Set("SID", sub.SID())
	w.Header().Set("TIMEOUT", gena.TimeoutHeader(sub.Timeout()))
	w.WriteHeader(http.StatusOK)
}

// writeGenaError maps the internal xerr taxonomy onto the HTTP status
// codes GENA's subscribe surface uses for errors (spec §7 "error planes":
// the event subsystem reports over HTTP status, unlike SOAP control which
// reports in-band).
func writeGenaError(w http.ResponseWriter, err error) {
	switch {
	case xerr.Is(err, xerr.NotFound):
		w.WriteHeader(http.StatusPreconditionFailed)
	case xerr.Is(err, xerr.Timeout):
		w.WriteHeader(http.StatusPreconditionFailed)
	case xerr.Is(err, xerr.InvalidParameters):
		w.WriteHeader(http.StatusBadRequest)
	case xerr.Is(err, xerr.InvalidState):
		w.WriteHeader(http.StatusPreconditionFailed)
	case xerr.Is(err, xerr.ResourceExhausted):
		w.WriteHeader(http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (h *Host) localInterfaceIP() string { return h.localIP }
