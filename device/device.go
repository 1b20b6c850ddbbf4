// Package device implements the UPnP device model (spec §3 "Device data",
// §4.2 "Device model"): device description composition/parsing, URL
// normalization, icon selection, and the embedded-device tree. It is
// type-agnostic — it knows nothing about MediaServer/MediaRenderer/etc.,
// which are external collaborators that merely populate a Device's services.
package device

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"gargoton.petite-maison-orange.fr/eric/upnpcore/schema"
)

// DefaultLeaseTime is used whenever a supplied lease time is invalid (spec
// §8 "Lease time < 10 s must be clamped to the default").
const DefaultLeaseTime = 1800 * time.Second

// MinLeaseTime is the smallest lease time a device may advertise.
const MinLeaseTime = 10 * time.Second

// Icon describes one entry of a device's icon list (spec §4.2 "Icon
// selection").
type Icon struct {
	Mimetype string
	Width    int
	Height   int
	Depth    int
	URL      string
}

// Device is a UPnP device: either locally authored (device-host side,
// built with NewDevice + AddService/AddEmbeddedDevice) or reconstructed
// from a fetched description (control-point side, via ParseDescription).
// A device owns its services and embedded devices; embedded devices hold a
// non-owning back-reference to their parent (spec §9 "cyclic ownership").
type Device struct {
	mu sync.RWMutex

	uuid       string
	deviceType string // full URN, e.g. "urn:schemas-upnp-org:device:MediaServer:1"
	version    int

	friendlyName     string
	manufacturer     string
	manufacturerURL  string
	modelDescription string
	modelName        string
	modelNumber      string
	modelURL         string
	serialNumber     string
	presentationURL  string

	dlnaDoc string
	dlnaCap string

	descriptionURL string
	urlBase        string

	icons    []*Icon
	services schema.ServiceSet
	embedded []*Device
	parent   *Device // non-owning

	leaseTime        time.Duration
	lastUpdate       time.Time
	localInterfaceIP string
}

// NewDevice creates a locally-authored device of the given full type URN
// (e.g. "urn:schemas-upnp-org:device:MediaServer:1"), with a freshly
// generated UUID and the default lease time. The caller populates it with
// AddService/AddEmbeddedDevice before handing it to a host.
func NewDevice(deviceType string) *Device {
	return &Device{
		uuid:       uuid.New().String(),
		deviceType: deviceType,
		services:   schema.NewServiceSet(),
		leaseTime:  DefaultLeaseTime,
		lastUpdate: time.Now(),
	}
}

func (d *Device) UUID() string { d.mu.RLock(); defer d.mu.RUnlock(); return d.uuid }
func (d *Device) SetUUID(u string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.uuid = u
}

func (d *Device) DeviceType() string { d.mu.RLock(); defer d.mu.RUnlock(); return d.deviceType }
func (d *Device) SetDeviceType(t string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deviceType = t
}

func (d *Device) FriendlyName() string { d.mu.RLock(); defer d.mu.RUnlock(); return d.friendlyName }
func (d *Device) SetFriendlyName(v string) *Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.friendlyName = v
	return d
}

func (d *Device) Manufacturer() string { d.mu.RLock(); defer d.mu.RUnlock(); return d.manufacturer }
func (d *Device) SetManufacturer(v string) *Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.manufacturer = v
	return d
}

func (d *Device) SetManufacturerURL(v string) *Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.manufacturerURL = v
	return d
}

func (d *Device) ModelName() string { d.mu.RLock(); defer d.mu.RUnlock(); return d.modelName }
func (d *Device) SetModelName(v string) *Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.modelName = v
	return d
}

func (d *Device) SetModelDescription(v string) *Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.modelDescription = v
	return d
}

func (d *Device) SetModelNumber(v string) *Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.modelNumber = v
	return d
}

func (d *Device) SetModelURL(v string) *Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.modelURL = v
	return d
}

func (d *Device) SerialNumber() string { d.mu.RLock(); defer d.mu.RUnlock(); return d.serialNumber }
func (d *Device) SetSerialNumber(v string) *Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.serialNumber = v
	return d
}

func (d *Device) SetPresentationURL(v string) *Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.presentationURL = v
	return d
}

// SetDLNA sets the optional DLNA X_DLNADOC/X_DLNACAP extension values (spec
// §4.2 "optional DLNA extension children").
func (d *Device) SetDLNA(doc, cap string) *Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dlnaDoc = doc
	d.dlnaCap = cap
	return d
}

func (d *Device) DescriptionURL() string { d.mu.RLock(); defer d.mu.RUnlock(); return d.descriptionURL }
func (d *Device) SetDescriptionURL(v string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.descriptionURL = v
}

// AddService adds an owned service to this device.
func (d *Device) AddService(svc *schema.Service) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.services.Insert(svc)
}

func (d *Device) Services() *schema.ServiceSet {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return &d.services
}

// AddEmbeddedDevice adds an owned embedded device, setting its parent
// back-reference (spec §3 "parent UUID back-link").
func (d *Device) AddEmbeddedDevice(child *Device) {
	d.mu.Lock()
	defer d.mu.Unlock()
	child.parent = d
	d.embedded = append(d.embedded, child)
}

func (d *Device) EmbeddedDevices() []*Device {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Device, len(d.embedded))
	copy(out, d.embedded)
	return out
}

// Parent returns the non-owning back-reference to the containing device,
// or nil for a root device.
func (d *Device) Parent() *Device {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.parent
}

func (d *Device) IsRoot() bool { return d.Parent() == nil }

// SetIcons replaces the device's icon list.
func (d *Device) SetIcons(icons []*Icon) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.icons = icons
}

func (d *Device) Icons() []*Icon {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Icon, len(d.icons))
	copy(out, d.icons)
	return out
}

// SetLeaseTime stores the advertised lease time, clamping invalid input
// (< MinLeaseTime) to DefaultLeaseTime (spec §3, §8).
func (d *Device) SetLeaseTime(lease time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if lease < MinLeaseTime {
		lease = DefaultLeaseTime
	}
	d.leaseTime = lease
}

func (d *Device) LeaseTime() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.leaseTime
}

// Touch records that a fresh advertisement (NOTIFY alive or search
// response) was observed for this device, resetting the lease clock.
func (d *Device) Touch() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastUpdate = time.Now()
}

func (d *Device) LastUpdate() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastUpdate
}

// IsExpired reports whether now is past double the lease allowance since
// the last refresh (spec §4.5 housekeeping: "now > lastUpdate + 2 ×
// leaseTime").
func (d *Device) IsExpired(now time.Time) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return now.After(d.lastUpdate.Add(2 * d.leaseTime))
}

func (d *Device) SetLocalInterfaceIP(ip string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.localInterfaceIP = ip
}

func (d *Device) LocalInterfaceIP() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.localInterfaceIP
}

// IsReady implements the device-readiness invariant (spec §3): every
// service must have a parsed/authored SCPD, and the device must have at
// least one service or one embedded device.
func (d *Device) IsReady() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	hasAny := d.services.Len() > 0 || len(d.embedded) > 0
	if !hasAny {
		return false
	}
	for svc := range d.services.All() {
		if !svc.IsReady() {
			return false
		}
	}
	for _, child := range d.embedded {
		if !child.IsReady() {
			return false
		}
	}
	return true
}

func (d *Device) String() string {
	return fmt.Sprintf("Device(%s, uuid=%s)", d.deviceType, d.uuid)
}
