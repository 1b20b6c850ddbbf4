package host

import (
	"net/http"

	"github.com/beevik/etree"
	"github.com/go-chi/chi/v5"

	"gargoton.petite-maison-orange.fr/eric/upnpcore/device"
)

// registerDescriptionRoute serves the root device description document at
// DescriptionPath and at "/".
func (h *Host) registerDescriptionRoute(r chi.Router) {
	r.Get(DescriptionPath, func(w http.ResponseWriter, req *http.Request) {
		h.serveXML(w, h.root.ToXMLDocument())
	})
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		h.serveXML(w, h.root.ToXMLDocument())
	})
}

// registerDeviceRoutes walks d and its embedded devices, installing the
// scpd/control/event routes for every service using h.scheme to compute
// each service's path triple (spec §6 "External interfaces").
func (h *Host) registerDeviceRoutes(r chi.Router, d *device.Device) {
	for svc := range d.Services().All() {
		scpdPath, controlPath, eventPath := h.scheme(d.UUID(), svc.Name())
		svc.SetSCPDURL(scpdPath)
		svc.SetControlURL(controlPath)
		svc.SetEventSubURL(eventPath)

		svc := svc
		r.Get(scpdPath, func(w http.ResponseWriter, req *http.Request) {
			h.serveXML(w, svc.SCPD().ToXMLDocument())
		})
		r.Post(controlPath, h.handleControl(d, svc))
		r.MethodFunc("SUBSCRIBE", eventPath, h.handleEvent(svc))
		r.MethodFunc("UNSUBSCRIBE", eventPath, h.handleEvent(svc))
	}

	for _, child := range d.EmbeddedDevices() {
		h.registerDeviceRoutes(r, child)
	}
}

// registerFallback wires the Xbox360-style GET-anything hook and a final
// 404 (spec §6 "GET other -> delegate to ProcessHttpGetRequest").
func (h *Host) registerFallback(r chi.Router) {
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodGet && h.getHook != nil && h.getHook(w, req) {
			return
		}
		http.NotFound(w, req)
	})
}

// serveXML writes doc with the Server/Connection/Cache-Control/EXT headers
// the teacher's ServeXML composes for every description-family response
// (grounded on upnp/server.go's ServeXML).
func (h *Host) serveXML(w http.ResponseWriter, doc *etree.Document) {
	server := "upnpcore/1.0 UPnP/1.1"
	if h.cfg != nil {
		server = h.cfg.GetServerHeader()
	}
	w.Header().Set("Content-Type", `text/xml; charset="utf-8"`)
	w.Header().Set("Server", server)
	w.Header().Set("Connection", "close")
	w.Header().Set("Cache-Control", "max-age=1800")
	w.Header().Set("EXT", "")
	_, _ = doc.WriteTo(w)
}
