// Package host implements the UPnP device host (spec §4.6): the HTTP
// surface serving description/SCPD/control/event URLs, the announcement
// scheduler wiring, and SOAP action/GENA subscribe dispatch. Grounded on
// the teacher's `upnp/server.go` (Server holding an HTTP server plus SSDP
// registration, `ServerOption` functional options) and
// `upnp/serviceinstance.go` (per-service URL composition and handler
// registration), generalized from the teacher's bare `http.ServeMux` (which
// cannot route the custom SUBSCRIBE/UNSUBSCRIBE HTTP verbs) onto
// `github.com/go-chi/chi/v5`, the same router the `control` package's event
// callback server uses.
package host

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"gargoton.petite-maison-orange.fr/eric/upnpcore/config"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/device"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/gena"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/netutil"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/schema"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/ssdp"
	"gargoton.petite-maison-orange.fr/eric/upnpcore/task"
)

// DescriptionPath is the path advertised as the root device description's
// LOCATION. The description is served both here and at "/"; the path is a
// constant and is not configurable.
const DescriptionPath = "/description.xml"

// ActionHandler is the external collaborator a device profile implements
// to answer invoked actions (spec §4.6 "The handler calls the external
// OnAction"; spec §9 "Inheritance collapses... profile-specific hosts
// implement an ActionHandler capability whose methods are called by the
// dispatch core"). Returning a non-nil fault takes precedence over values.
type ActionHandler interface {
	OnAction(ctx context.Context, d *device.Device, svc *schema.Service, action *schema.Action, args map[string]string) (map[string]string, error)
}

// SetupHook is the overridable hook a profile uses to populate services and
// state variables on its devices before the host starts advertising (spec
// §4.6 "Calls an overridable SetupServices hook").
type SetupHook func(h *Host) error

// GetHook answers a GET request that matches no description/SCPD path
// (spec §6's "GET other -> delegate to ProcessHttpGetRequest", an
// out-of-scope collaborator this core merely provides a slot for).
type GetHook func(w http.ResponseWriter, r *http.Request) bool

// URLScheme computes a service's three endpoint paths given its owning
// device's UUID and short name. DefaultURLScheme follows spec §6 literally;
// XboxURLScheme is the documented device-specific override.
type URLScheme func(deviceUUID, serviceName string) (scpdPath, controlPath, eventPath string)

// DefaultURLScheme is spec §6's "<service-name>/<uuid>/scpd.xml" layout.
func DefaultURLScheme(deviceUUID, serviceName string) (string, string, string) {
	base := "/" + serviceName + "/" + deviceUUID
	return base + "/scpd.xml", base + "/control.xml", base + "/event.xml"
}

// XboxURLScheme reproduces the Xbox 360 interoperability quirk spec §6
// calls out by name: fixed "/Content"/"/Control"/"/Event" prefixes instead
// of a per-device path segment.
func XboxURLScheme(_ string, serviceName string) (string, string, string) {
	return "/Content/" + serviceName, "/Control/" + serviceName, "/Event/" + serviceName
}

// Host advertises a device tree over SSDP and serves its HTTP surface.
type Host struct {
	cfg *config.Config

	root     *device.Device
	scheme   URLScheme
	handler  ActionHandler
	setup    SetupHook
	getHook  GetHook

	manager    *task.Manager
	socket     *ssdp.Socket
	ownsSocket bool
	announcer  *ssdp.Announcer
	responder  *ssdp.Responder

	mu        sync.RWMutex
	runtimes  map[string]*gena.Runtime // serviceId -> runtime
	eventSrv  *http.Server
	listener  net.Listener
	baseURL   string
	localIP   string
	tasks     []*task.Task
}

// Option configures a Host at construction time.
type Option func(*Host)

// WithSocket shares an existing SSDP socket (e.g. one a control point in
// the same process also listens on) instead of binding a new one.
func WithSocket(sock *ssdp.Socket) Option {
	return func(h *Host) { h.socket = sock }
}

// WithActionHandler installs the profile's action dispatch target.
func WithActionHandler(handler ActionHandler) Option {
	return func(h *Host) { h.handler = handler }
}

// WithSetupHook installs the hook called once before the first advertisement.
func WithSetupHook(hook SetupHook) Option {
	return func(h *Host) { h.setup = hook }
}

// WithGetHook installs a fallback handler for GET requests matching no
// known description/SCPD path.
func WithGetHook(hook GetHook) Option {
	return func(h *Host) { h.getHook = hook }
}

// WithURLScheme overrides the per-service URL layout (e.g. XboxURLScheme).
func WithURLScheme(scheme URLScheme) Option {
	return func(h *Host) { h.scheme = scheme }
}

// NewHost creates a host advertising root (already populated with services
// and embedded devices by the caller or by the SetupHook).
func NewHost(root *device.Device, cfg *config.Config, opts ...Option) *Host {
	h := &Host{
		cfg:      cfg,
		root:     root,
		scheme:   DefaultURLScheme,
		manager:  task.NewManager(16),
		runtimes: make(map[string]*gena.Runtime),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Root returns the device tree this host advertises.
func (h *Host) Root() *device.Device { return h.root }

// Runtime returns the live gena.Runtime bound to svc, if any has been
// installed via InstallRuntime.
func (h *Host) Runtime(serviceID string) (*gena.Runtime, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rt, ok := h.runtimes[serviceID]
	return rt, ok
}

// InstallRuntime binds a live gena.Runtime to one of root's services,
// enabling subscribe/event dispatch for it. Call during the SetupHook,
// before Start.
func (h *Host) InstallRuntime(rt *gena.Runtime) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runtimes[rt.ServiceID] = rt
}

// Start binds the HTTP server (configured port, 0 = ephemeral; a failed
// non-zero port is retried once on an ephemeral port),
// rewrites the description URL's port to match, runs the SetupHook, wires
// per-service routes, and begins advertising (spec §4.6 "Lifecycle").
func (h *Host) Start(ctx context.Context) error {
	if h.socket == nil {
		sock, err := ssdp.NewSocket()
		if err != nil {
			return err
		}
		h.socket = sock
		h.ownsSocket = true
		h.tasks = append(h.tasks, h.manager.Spawn(ctx, func(ctx context.Context) { h.socket.Run(ctx) }))
	}

	ln, err := h.bindHTTP()
	if err != nil {
		return err
	}
	h.listener = ln

	ip, err := netutil.GuessLocalIP()
	if err != nil {
		return err
	}
	h.localIP = ip
	port := ln.Addr().(*net.TCPAddr).Port
	h.baseURL = fmt.Sprintf("http://%s:%d", ip, port)
	if err := h.root.SetURLBase(h.baseURL + "/"); err != nil {
		return err
	}
	h.root.SetDescriptionURL(h.baseURL + DescriptionPath)

	if h.setup != nil {
		if err := h.setup(h); err != nil {
			return fmt.Errorf("host: setup hook: %w", err)
		}
	}

	r := chi.NewRouter()
	h.registerDescriptionRoute(r)
	h.registerDeviceRoutes(r, h.root)
	h.registerFallback(r)

	srv := &http.Server{Handler: r}
	h.eventSrv = srv
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Warnf("❌ host HTTP server stopped: %v", err)
		}
	}()

	h.startAdvertising(ctx)
	for _, rt := range h.runtimeSnapshot() {
		h.tasks = append(h.tasks, gena.RunEventTask(ctx, h.manager, rt))
	}

	log.Infof("✅ device host %s started at %s", h.root.UUID(), h.baseURL)
	return nil
}

func (h *Host) runtimeSnapshot() []*gena.Runtime {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*gena.Runtime, 0, len(h.runtimes))
	for _, rt := range h.runtimes {
		out = append(out, rt)
	}
	return out
}

// bindHTTP binds the configured port (0 = ephemeral); on failure it retries
// once with a fresh ephemeral port (spec §4.6 "port 0 = ephemeral, optional
// rebind on bind failure").
func (h *Host) bindHTTP() (net.Listener, error) {
	port := 0
	if h.cfg != nil {
		port = h.cfg.GetHTTPPort()
	}
	ln, err := net.Listen("tcp4", fmt.Sprintf(":%d", port))
	if err != nil && port != 0 {
		ln, err = net.Listen("tcp4", ":0")
	}
	return ln, err
}

func (h *Host) startAdvertising(ctx context.Context) {
	specStrict := h.cfg != nil && h.cfg.GetSpecStrict()
	h.announcer = ssdp.NewAnnouncer(h.socket, h.manager, specStrict)
	h.responder = ssdp.NewResponder(specStrict)

	h.addAnnouncement(h.root, true)
	for _, child := range h.root.EmbeddedDevices() {
		h.addEmbeddedAnnouncements(child)
	}

	h.socket.AddSearchHandler(h.responder)
	h.tasks = append(h.tasks, h.announcer.Start(ctx, true))
}

func (h *Host) addEmbeddedAnnouncements(d *device.Device) {
	h.addAnnouncement(d, false)
	for _, child := range d.EmbeddedDevices() {
		h.addEmbeddedAnnouncements(child)
	}
}

func (h *Host) addAnnouncement(d *device.Device, isRoot bool) {
	var serviceTypes []string
	for svc := range d.Services().All() {
		serviceTypes = append(serviceTypes, svc.ServiceType())
	}
	leaseTime := 1800 * time.Second
	if h.cfg != nil {
		leaseTime = h.cfg.GetLeaseTime()
	}
	server := "upnpcore/1.0 UPnP/1.1"
	if h.cfg != nil {
		server = h.cfg.GetServerHeader()
	}

	ann := &ssdp.Announcement{
		UUID:      d.UUID(),
		Location:  h.root.DescriptionURL(),
		Server:    server,
		NTs:       ssdp.DeviceUSNForms(d.UUID(), d.DeviceType(), serviceTypes, isRoot),
		LeaseTime: leaseTime,
	}
	h.announcer.Add(ann)
	h.responder.Add(ann)
}

// Stop sends a byebye sweep, tears down the HTTP server, deregisters from
// the SSDP listener (by closing the socket if this host owns it), and
// stops every owned task (spec §4.6 "Shutdown").
func (h *Host) Stop() {
	if h.announcer != nil {
		h.announcer.ByebyeAll()
	}
	for _, t := range h.tasks {
		t.Stop()
	}
	if h.eventSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.eventSrv.Shutdown(ctx)
	}
	if h.ownsSocket && h.socket != nil {
		_ = h.socket.Close()
	}
	log.Infof("👋 device host %s stopped", h.root.UUID())
}

// BaseURL returns the host's advertised HTTP origin, valid after Start.
func (h *Host) BaseURL() string { return h.baseURL }
