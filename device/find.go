package device

import "strings"

// matchType compares a service/device type URN against a pattern, honoring
// a trailing "*" wildcard that matches any version suffix (spec §4.2 "Type
// lookup supports a trailing * wildcard that matches any version suffix").
func matchType(actual, pattern string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(actual, strings.TrimSuffix(pattern, "*"))
	}
	return actual == pattern
}

// FindServiceByType searches this device's own services for one whose
// ServiceType matches typeURN (wildcard-aware). recursive also searches
// embedded devices.
func (d *Device) FindServiceByType(typeURN string, recursive bool) (*Device, string, bool) {
	for svc := range d.Services().All() {
		if matchType(svc.ServiceType(), typeURN) {
			return d, svc.Name(), true
		}
	}
	if recursive {
		for _, child := range d.EmbeddedDevices() {
			if owner, name, ok := child.FindServiceByType(typeURN, true); ok {
				return owner, name, true
			}
		}
	}
	return nil, "", false
}

// FindServiceByID searches by serviceId URN.
func (d *Device) FindServiceByID(serviceID string, recursive bool) (*Device, string, bool) {
	for svc := range d.Services().All() {
		if svc.ServiceId() == serviceID {
			return d, svc.Name(), true
		}
	}
	if recursive {
		for _, child := range d.EmbeddedDevices() {
			if owner, name, ok := child.FindServiceByID(serviceID, true); ok {
				return owner, name, true
			}
		}
	}
	return nil, "", false
}

// FindServiceByName searches by the service's short name (used internally
// as its object-set key).
func (d *Device) FindServiceByName(name string, recursive bool) (*Device, bool) {
	if _, ok := d.Services().Get(name); ok {
		return d, true
	}
	if recursive {
		for _, child := range d.EmbeddedDevices() {
			if owner, ok := child.FindServiceByName(name, true); ok {
				return owner, true
			}
		}
	}
	return nil, false
}

type serviceURLKind int

const (
	scpdURLKind serviceURLKind = iota
	controlURLKind
	eventURLKind
)

func (d *Device) findServiceByURL(url string, kind serviceURLKind, recursive bool) (*Device, string, bool) {
	for svc := range d.Services().All() {
		var candidate string
		switch kind {
		case scpdURLKind:
			candidate = svc.SCPDURL()
		case controlURLKind:
			candidate = svc.ControlURL()
		case eventURLKind:
			candidate = svc.EventSubURL()
		}
		if candidate == url {
			return d, svc.Name(), true
		}
	}
	if recursive {
		for _, child := range d.EmbeddedDevices() {
			if owner, name, ok := child.findServiceByURL(url, kind, true); ok {
				return owner, name, true
			}
		}
	}
	return nil, "", false
}

func (d *Device) FindServiceBySCPDURL(u string, recursive bool) (*Device, string, bool) {
	return d.findServiceByURL(u, scpdURLKind, recursive)
}

func (d *Device) FindServiceByControlURL(u string, recursive bool) (*Device, string, bool) {
	return d.findServiceByURL(u, controlURLKind, recursive)
}

func (d *Device) FindServiceByEventURL(u string, recursive bool) (*Device, string, bool) {
	return d.findServiceByURL(u, eventURLKind, recursive)
}

// FindEmbeddedDeviceByUUID searches this device's subtree (including
// itself) for a device with the given UUID.
func (d *Device) FindEmbeddedDeviceByUUID(uuid string) (*Device, bool) {
	if d.UUID() == uuid {
		return d, true
	}
	for _, child := range d.EmbeddedDevices() {
		if found, ok := child.FindEmbeddedDeviceByUUID(uuid); ok {
			return found, true
		}
	}
	return nil, false
}

// FindEmbeddedDeviceByType searches this device's subtree (excluding
// itself) for an embedded device whose type matches typeURN
// (wildcard-aware).
func (d *Device) FindEmbeddedDeviceByType(typeURN string) (*Device, bool) {
	for _, child := range d.EmbeddedDevices() {
		if matchType(child.DeviceType(), typeURN) {
			return child, true
		}
		if found, ok := child.FindEmbeddedDeviceByType(typeURN); ok {
			return found, true
		}
	}
	return nil, false
}

// FindEmbeddedDeviceByName searches this device's subtree (excluding
// itself) for an embedded device whose friendly name matches name.
func (d *Device) FindEmbeddedDeviceByName(name string) (*Device, bool) {
	for _, child := range d.EmbeddedDevices() {
		if child.FriendlyName() == name {
			return child, true
		}
		if found, ok := child.FindEmbeddedDeviceByName(name); ok {
			return found, true
		}
	}
	return nil, false
}
