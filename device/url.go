package device

import (
	"net/url"
	"path"
	"strings"
)

// SetURLBase stores the device's URL base, ensuring it ends with "/" (spec
// §4.2 "Base URL must end with '/' — a trailing filename is stripped
// during setup").
func (d *Device) SetURLBase(base string) error {
	u, err := url.Parse(base)
	if err != nil {
		return err
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path = path.Dir(u.Path) + "/"
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urlBase = u.String()
	return nil
}

func (d *Device) URLBase() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.urlBase
}

// ResolveURL normalizes a service-declared URL against the device's URL
// base (spec §4.2 "URL normalization"): absolute HTTP(S) URLs pass through
// unchanged, relative ones resolve against URLBase (falling back to the
// description URL's origin if no explicit base was set).
func (d *Device) ResolveURL(ref string) (string, error) {
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	if refURL.IsAbs() {
		return refURL.String(), nil
	}

	d.mu.RLock()
	base := d.urlBase
	if base == "" {
		base = d.descriptionURL
	}
	d.mu.RUnlock()

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(refURL).String(), nil
}

// RewriteLocalhost implements the interoperability quirk of spec §4.2
// "Locality quirk": if the advertised host component is localhost or
// 127.0.0.1, rewrite it to the remote IP the description was actually
// fetched from.
func (d *Device) RewriteLocalhost(remoteIP string) error {
	d.mu.RLock()
	base := d.urlBase
	d.mu.RUnlock()
	if base == "" {
		return nil
	}

	u, err := url.Parse(base)
	if err != nil {
		return err
	}
	host := u.Hostname()
	if host != "localhost" && host != "127.0.0.1" {
		return nil
	}

	port := u.Port()
	if port != "" {
		u.Host = remoteIP + ":" + port
	} else {
		u.Host = remoteIP
	}

	d.mu.Lock()
	d.urlBase = u.String()
	d.mu.Unlock()
	return nil
}

// deriveURLBase computes a URL base from the URL the description document
// was fetched from, used when the document carries no explicit URLBase
// element (spec §4.2: "extract URLBase if present, else derive from the
// fetched URL").
func deriveURLBase(fetchedFrom string) (string, error) {
	u, err := url.Parse(fetchedFrom)
	if err != nil {
		return "", err
	}
	u.Path = path.Dir(u.Path) + "/"
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}
