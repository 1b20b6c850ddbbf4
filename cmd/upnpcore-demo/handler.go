package main

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"gargoton.petite-maison-orange.fr/eric/upnpcore/device"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/gena"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/host"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/schema"
)

// OnAction implements host.ActionHandler: the whole of the demo's business
// logic is "remember one integer"; the SOAP dispatch core has already
// validated it against the state variable's declared range before calling
// in (spec §4.6 "Action dispatch"), so no clamping happens here.
func (d *dimmerDevice) OnAction(ctx context.Context, dev *device.Device, svc *schema.Service, action *schema.Action, args map[string]string) (map[string]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch action.Name() {
	case "SetLoadLevelTarget":
		var target int
		if _, err := fmt.Sscanf(args["NewLoadLevelTarget"], "%d", &target); err != nil {
			return nil, fmt.Errorf("NewLoadLevelTarget: %w", err)
		}
		d.level = target
		if d.values != nil {
			if _, err := d.values.Set("LoadLevelStatus", d.level); err != nil {
				return nil, err
			}
		}
		return nil, nil
	case "GetLoadLevelStatus":
		return map[string]string{"RetLoadLevelStatus": fmt.Sprintf("%d", d.level)}, nil
	default:
		return nil, fmt.Errorf("unknown action %s", action.Name())
	}
}

// setup installs the service's live value set and gena.Runtime before the
// host starts advertising (spec §4.6 "Calls an overridable SetupServices
// hook"). It also keeps a handle back to the *schema.StateValueSet so
// OnAction's publish step can push changes into it.
func (d *dimmerDevice) setup(h *host.Host) error {
	svc, ok := h.Root().Services().Get("Dimming")
	if !ok {
		return fmt.Errorf("upnpcore-demo: device has no Dimming service")
	}

	values := schema.NewStateValueSet(svc.Variables())
	d.values = values
	rt := gena.NewRuntime(svc.ServiceId(), values, nil)
	h.InstallRuntime(rt)

	log.Infof("🔧 installed event runtime for %s", svc.ServiceId())
	return nil
}
