package main

import (
	"sync"

	"gargoton.petite-maison-orange.fr/eric/upnpcore/config"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/device"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/schema"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/upnptype"
)

// dimmerDevice is a single evented state variable ("LoadLevelStatus",
// 0-100) and one action pair (SetLoadLevelTarget/GetLoadLevelStatus) wired
// to it — the minimal shape that exercises SOAP control, SCPD authoring,
// and GENA eventing at once, without modeling any real UPnP-AV profile.
type dimmerDevice struct {
	mu     sync.Mutex
	level  int
	values *schema.StateValueSet // installed by setup, before Start
}

func newDimmerDevice() *dimmerDevice {
	return &dimmerDevice{level: 50}
}

// buildDevice authors the root device and its one service's SCPD (spec §4.6
// "SetupServices hook"). cfg persists the device's UDN across restarts the
// way the teacher's GetDeviceUDN does.
func buildDevice(cfg *config.Config) *device.Device {
	root := device.NewDevice("urn:schemas-upnp-org:device:DimmableLight:1")
	root.SetUUID(cfg.GetDeviceUDN("DimmableLight", "upnpcore-demo"))
	root.SetFriendlyName("upnpcore demo dimmer")
	root.SetManufacturer("upnpcore")
	root.SetModelName("upnpcore-demo")

	svc := schema.NewService("Dimming")

	level := schema.NewStateVariable("LoadLevelStatus", upnptype.UI1)
	level.SetSendEvents()
	if err := level.SetRange(0, 100, 1); err != nil {
		panic(err)
	}
	svc.Variables().Insert(level)

	setLevel := schema.NewAction("SetLoadLevelTarget")
	setLevel.AddArgument(schema.NewArgument("NewLoadLevelTarget", schema.In, "LoadLevelStatus"))
	svc.Actions().Insert(setLevel)

	getLevel := schema.NewAction("GetLoadLevelStatus")
	getLevel.AddArgument(schema.NewArgument("RetLoadLevelStatus", schema.Out, "LoadLevelStatus").SetRetval())
	svc.Actions().Insert(getLevel)

	root.AddService(svc)
	return root
}
