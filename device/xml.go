package device

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"

	"gargoton.petite-maison-orange.fr/eric/upnpcore/schema"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/xerr"
)

const deviceNamespace = "urn:schemas-upnp-org:device-1-0"
const dlnaNamespace = "urn:schemas-dlna-org:device-1-0"

// ToXMLDocument composes the full device description document (spec §4.2
// "Compose device description XML recursively") — only meaningful on a
// root device.
func (d *Device) ToXMLDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)

	root := doc.CreateElement("root")
	root.CreateAttr("xmlns", deviceNamespace)

	spec := root.CreateElement("specVersion")
	spec.CreateElement("major").SetText("1")
	spec.CreateElement("minor").SetText("0")

	if base := d.URLBase(); base != "" {
		root.CreateElement("URLBase").SetText(base)
	}

	root.AddChild(d.deviceXMLElement())
	return doc
}

// deviceXMLElement renders this device (and, recursively, its embedded
// devices and services) as a <device> element.
func (d *Device) deviceXMLElement() *etree.Element {
	elem := etree.NewElement("device")

	if d.dlnaDoc != "" || d.dlnaCap != "" {
		elem.CreateAttr("xmlns:dlna", dlnaNamespace)
	}

	elem.CreateElement("deviceType").SetText(d.DeviceType())
	elem.CreateElement("friendlyName").SetText(d.FriendlyName())
	elem.CreateElement("manufacturer").SetText(d.Manufacturer())
	if d.manufacturerURL != "" {
		elem.CreateElement("manufacturerURL").SetText(d.manufacturerURL)
	}
	if d.modelDescription != "" {
		elem.CreateElement("modelDescription").SetText(d.modelDescription)
	}
	elem.CreateElement("modelName").SetText(d.ModelName())
	if d.modelNumber != "" {
		elem.CreateElement("modelNumber").SetText(d.modelNumber)
	}
	if d.modelURL != "" {
		elem.CreateElement("modelURL").SetText(d.modelURL)
	}
	if d.SerialNumber() != "" {
		elem.CreateElement("serialNumber").SetText(d.SerialNumber())
	}
	elem.CreateElement("UDN").SetText("uuid:" + d.UUID())

	if d.presentationURL != "" {
		elem.CreateElement("presentationURL").SetText(d.presentationURL)
	}
	if d.dlnaDoc != "" {
		elem.CreateElement("dlna:X_DLNADOC").SetText(d.dlnaDoc)
	}
	if d.dlnaCap != "" {
		elem.CreateElement("dlna:X_DLNACAP").SetText(d.dlnaCap)
	}

	if icons := d.Icons(); len(icons) > 0 {
		iconList := elem.CreateElement("iconList")
		for _, icon := range icons {
			ie := iconList.CreateElement("icon")
			ie.CreateElement("mimetype").SetText(icon.Mimetype)
			ie.CreateElement("width").SetText(strconv.Itoa(icon.Width))
			ie.CreateElement("height").SetText(strconv.Itoa(icon.Height))
			ie.CreateElement("depth").SetText(strconv.Itoa(icon.Depth))
			ie.CreateElement("url").SetText(icon.URL)
		}
	}

	if d.services.Len() > 0 {
		elem.AddChild(d.services.ToXMLElement())
	}

	if embedded := d.EmbeddedDevices(); len(embedded) > 0 {
		deviceList := elem.CreateElement("deviceList")
		for _, child := range embedded {
			deviceList.AddChild(child.deviceXMLElement())
		}
	}

	return elem
}

// ParseDescription parses a UPnP device description document (spec §4.2
// "Parse device description XML"). fetchedFrom is the URL the document was
// retrieved from, used to derive URLBase when the document omits it.
func ParseDescription(r io.Reader, fetchedFrom string) (*Device, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, xerr.Wrap(xerr.InvalidSyntax, err, "reading device description")
	}

	root := doc.SelectElement("root")
	if root == nil {
		return nil, xerr.New(xerr.InvalidSyntax, "device description root element is not <root>")
	}

	urlBase := ""
	if ub := root.SelectElement("URLBase"); ub != nil {
		urlBase = strings.TrimSpace(ub.Text())
	} else if fetchedFrom != "" {
		derived, err := deriveURLBase(fetchedFrom)
		if err == nil {
			urlBase = derived
		}
	}

	devElem := root.SelectElement("device")
	if devElem == nil {
		return nil, xerr.New(xerr.InvalidSyntax, "device description has no <device> element")
	}

	d, err := parseDeviceElement(devElem)
	if err != nil {
		return nil, err
	}

	d.descriptionURL = fetchedFrom
	if urlBase != "" {
		if err := d.SetURLBase(urlBase); err != nil {
			return nil, xerr.Wrap(xerr.InvalidSyntax, err, "invalid URLBase")
		}
	}
	return d, nil
}

func elemText(parent *etree.Element, tag string) string {
	e := parent.SelectElement(tag)
	if e == nil {
		return ""
	}
	return strings.TrimSpace(e.Text())
}

func parseDeviceElement(elem *etree.Element) (*Device, error) {
	devType := elemText(elem, "deviceType")
	if devType == "" {
		return nil, xerr.New(xerr.InvalidSyntax, "device element has no deviceType")
	}

	udn := elemText(elem, "UDN")
	udn = strings.TrimPrefix(udn, "uuid:")
	if udn == "" {
		return nil, xerr.New(xerr.InvalidSyntax, "device element has no UDN")
	}

	d := &Device{
		uuid:       udn,
		deviceType: devType,
		services:   schema.NewServiceSet(),
		leaseTime:  DefaultLeaseTime,
		lastUpdate: time.Now(),
	}

	d.friendlyName = elemText(elem, "friendlyName")
	d.manufacturer = elemText(elem, "manufacturer")
	d.manufacturerURL = elemText(elem, "manufacturerURL")
	d.modelDescription = elemText(elem, "modelDescription")
	d.modelName = elemText(elem, "modelName")
	d.modelNumber = elemText(elem, "modelNumber")
	d.modelURL = elemText(elem, "modelURL")
	d.serialNumber = elemText(elem, "serialNumber")
	d.presentationURL = elemText(elem, "presentationURL")
	d.dlnaDoc = elemText(elem, "X_DLNADOC")
	d.dlnaCap = elemText(elem, "X_DLNACAP")

	if iconList := elem.SelectElement("iconList"); iconList != nil {
		for _, ie := range iconList.SelectElements("icon") {
			icon := &Icon{
				Mimetype: elemText(ie, "mimetype"),
				URL:      elemText(ie, "url"),
			}
			icon.Width, _ = strconv.Atoi(elemText(ie, "width"))
			icon.Height, _ = strconv.Atoi(elemText(ie, "height"))
			icon.Depth, _ = strconv.Atoi(elemText(ie, "depth"))
			d.icons = append(d.icons, icon)
		}
	}

	if serviceList := elem.SelectElement("serviceList"); serviceList != nil {
		for _, se := range serviceList.SelectElements("service") {
			svc, err := parseServiceStub(se)
			if err != nil {
				return nil, err
			}
			d.services.Insert(svc)
		}
	}

	if deviceList := elem.SelectElement("deviceList"); deviceList != nil {
		for _, de := range deviceList.SelectElements("device") {
			child, err := parseDeviceElement(de)
			if err != nil {
				return nil, err
			}
			d.AddEmbeddedDevice(child)
		}
	}

	return d, nil
}

func parseServiceStub(elem *etree.Element) (*schema.Service, error) {
	serviceType := elemText(elem, "serviceType")
	serviceID := elemText(elem, "serviceId")
	if serviceType == "" || serviceID == "" {
		return nil, xerr.New(xerr.InvalidSyntax, "service element missing serviceType or serviceId")
	}

	shortType, version, domain := splitServiceType(serviceType)
	svc := schema.NewServiceStub(shortType)
	svc.SetDomain(domain)
	if version > 0 {
		_ = svc.SetVersion(version)
	}
	svc.SetIdentifier(lastSegment(serviceID))
	svc.SetSCPDURL(elemText(elem, "SCPDURL"))
	svc.SetControlURL(elemText(elem, "controlURL"))
	svc.SetEventSubURL(elemText(elem, "eventSubURL"))
	return svc, nil
}

// splitServiceType decomposes "urn:schemas-upnp-org:service:ContentDirectory:1"
// into ("ContentDirectory", 1, "schemas-upnp-org").
func splitServiceType(urn string) (shortType string, version int, domain string) {
	parts := strings.Split(urn, ":")
	if len(parts) < 5 {
		return urn, 0, "schemas-upnp-org"
	}
	domain = parts[1]
	shortType = parts[3]
	version, _ = strconv.Atoi(parts[4])
	return
}

func lastSegment(urn string) string {
	idx := strings.LastIndex(urn, ":")
	if idx < 0 {
		return urn
	}
	return urn[idx+1:]
}
