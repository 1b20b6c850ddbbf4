package main

import (
	log "github.com/sirupsen/logrus"

	"gargoton.petite-maison-orange.fr/eric/upnpcore/control"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/device"
)

// logListener is a control.Listener that just narrates discovery/event
// traffic — enough to prove the control point half of the demo actually
// sees the hosted devices on the network, without any profile logic.
type logListener struct{}

func (logListener) DeviceAdded(d *device.Device) {
	log.Infof("🔎 discovered %s (%s)", d.UUID(), d.DeviceType())
}

func (logListener) DeviceRemoved(d *device.Device) {
	log.Infof("📤 lost %s", d.UUID())
}

func (logListener) ActionComplete(ref *control.ActionRef, userdata interface{}) {
	if ref.Failed() {
		log.Warnf("❌ action failed: code=%d", ref.ErrorCode)
		return
	}
	log.Infof("✅ action completed: %v", ref.Out)
}

func (logListener) EventNotify(sub *control.Subscription, values map[string]string) {
	log.Infof("📣 event from %s: %v", sub.SID(), values)
}
