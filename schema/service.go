package schema

import (
	"fmt"
	"iter"

	"github.com/beevik/etree"

	"gargoton.petite-maison-orange.fr/eric/upnpcore/objectstore"
)

// Service binds an SCPD document to the identity and endpoint URLs a device
// description advertises for it (spec §3 "embedded service"): serviceType,
// serviceId, SCPDURL, controlURL, eventSubURL.
type Service struct {
	shortType   string // e.g. "ContentDirectory"
	identifier  string
	version     int
	domain      string // defaults to "schemas-upnp-org" / "upnp-org"

	controlURL  string
	eventSubURL string
	scpdURL     string

	scpd  *SCPD
	ready bool // true once the SCPD has been authored locally or fetched/parsed
}

// NewService declares a service of the given short type name (e.g.
// "AVTransport") at version 1, with conventional relative endpoint URLs and
// an empty SCPD. Use AddAction/AddVariable (via SCPD()) to populate it.
// Host-authored services are ready immediately.
func NewService(shortType string) *Service {
	return &Service{
		shortType:   shortType,
		identifier:  shortType,
		domain:      "schemas-upnp-org",
		version:     1,
		controlURL:  "/service/" + shortType + "/control",
		eventSubURL: "/service/" + shortType + "/event",
		scpdURL:     "/service/" + shortType + "/desc.xml",
		scpd:        NewSCPD(),
		ready:       true,
	}
}

// NewServiceStub declares a service whose endpoint URLs are known (parsed
// from a device description) but whose SCPD has not been fetched yet (spec
// §4.2: "service stub fills SCPD/control/event URLs but defers action/state
// parsing until SCPD fetch completes"). IsReady reports false until SetSCPD
// is called.
func NewServiceStub(shortType string) *Service {
	svc := NewService(shortType)
	svc.ready = false
	return svc
}

// IsReady reports whether this service's SCPD has been authored or
// successfully fetched and parsed (spec §3 device-readiness invariant).
func (svc *Service) IsReady() bool { return svc.ready }

func (svc *Service) Name() string   { return svc.shortType }
func (svc *Service) TypeID() string { return "Service" }

func (svc *Service) ServiceType() string {
	return fmt.Sprintf("urn:%s:service:%s:%d", svc.domain, svc.shortType, svc.version)
}

func (svc *Service) ServiceId() string {
	return fmt.Sprintf("urn:upnp-org:serviceId:%s", svc.identifier)
}

func (svc *Service) SetIdentifier(id string) *Service {
	svc.identifier = id
	return svc
}

func (svc *Service) SetDomain(domain string) *Service {
	svc.domain = domain
	return svc
}

func (svc *Service) ControlURL() string      { return svc.controlURL }
func (svc *Service) SetControlURL(u string)  { svc.controlURL = u }
func (svc *Service) EventSubURL() string     { return svc.eventSubURL }
func (svc *Service) SetEventSubURL(u string) { svc.eventSubURL = u }
func (svc *Service) SCPDURL() string         { return svc.scpdURL }
func (svc *Service) SetSCPDURL(u string)     { svc.scpdURL = u }

func (svc *Service) SetVersion(version int) error {
	if version < 1 {
		return fmt.Errorf("service version must be >= 1, got %d", version)
	}
	svc.version = version
	return nil
}

func (svc *Service) Version() int { return svc.version }

// ForceVersion rewrites the final digit of the service type URN (spec §4.1
// "Version downgrade") so a control point with v1 knowledge can safely talk
// to a v2+ device. Rejects n < 1.
func (svc *Service) ForceVersion(n int) error {
	return svc.SetVersion(n)
}

// SCPD returns the service's control protocol description, for populating
// (AddAction/AddVariable) when building a service or for inspecting when
// one was fetched over HTTP by a control point.
func (svc *Service) SCPD() *SCPD { return svc.scpd }

// SetSCPD replaces the service's SCPD wholesale and marks the service ready
// — used by the control package after fetching and parsing a remote
// service's description.
func (svc *Service) SetSCPD(scpd *SCPD) {
	svc.scpd = scpd
	svc.ready = true
}

func (svc *Service) Actions() *ActionSet           { return &svc.scpd.Actions }
func (svc *Service) Variables() *StateVariableSet   { return &svc.scpd.Variables }

func (svc *Service) ToXMLElement() *etree.Element {
	elem := etree.NewElement("service")
	elem.CreateElement("serviceType").SetText(svc.ServiceType())
	elem.CreateElement("serviceId").SetText(svc.ServiceId())
	elem.CreateElement("SCPDURL").SetText(svc.SCPDURL())
	elem.CreateElement("controlURL").SetText(svc.ControlURL())
	elem.CreateElement("eventSubURL").SetText(svc.EventSubURL())
	return elem
}

// ServiceSet is a name-keyed (by short type) collection of Services.
type ServiceSet objectstore.ObjectSet[*Service]

func NewServiceSet() ServiceSet {
	return ServiceSet(objectstore.NewObjectSet[*Service]())
}

func (s *ServiceSet) Insert(svc *Service) {
	(*objectstore.ObjectSet[*Service])(s).Insert(svc)
}

func (s *ServiceSet) Get(name string) (*Service, bool) {
	return (*objectstore.ObjectSet[*Service])(s).Get(name)
}

func (s *ServiceSet) Len() int { return (*objectstore.ObjectSet[*Service])(s).Len() }

func (s *ServiceSet) All() iter.Seq[*Service] {
	return (*objectstore.ObjectSet[*Service])(s).All()
}

// ByServiceId finds a service by its full serviceId URN, as used when
// routing an inbound control/event request by URL rather than by type.
func (s *ServiceSet) ByServiceId(serviceId string) (*Service, bool) {
	for svc := range s.All() {
		if svc.ServiceId() == serviceId {
			return svc, true
		}
	}
	return nil, false
}

func (s *ServiceSet) ToXMLElement() *etree.Element {
	elem := etree.NewElement("serviceList")
	for svc := range s.All() {
		elem.AddChild(svc.ToXMLElement())
	}
	return elem
}
