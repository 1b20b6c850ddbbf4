package gena

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/beevik/etree"
	log "github.com/sirupsen/logrus"
)

// eventNS is the GENA propertyset namespace (spec §4.4 "Event delivery").
const eventNS = "urn:schemas-upnp-org:event-1-0"

// BuildPropertySet composes "<e:propertyset xmlns:e=...>" wrapping the
// given property elements (one per changed/initial variable).
func BuildPropertySet(props []*etree.Element) []byte {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0"`)
	set := doc.CreateElement("e:propertyset")
	set.CreateAttr("xmlns:e", eventNS)
	for _, p := range props {
		set.AddChild(p)
	}
	buf := &bytes.Buffer{}
	_, _ = doc.WriteTo(buf)
	return buf.Bytes()
}

// BuildLastChangeProperty wraps a rendered LastChange <Event> document as
// the GENA property carrying it (spec §4.1, §4.4).
func BuildLastChangeProperty(name, innerXML string) *etree.Element {
	prop := etree.NewElement("e:property")
	elem := prop.CreateElement(name)
	elem.SetText(innerXML)
	return prop
}

// notifyClient has a short overall timeout (spec §5 "2 s for NOTIFY to
// avoid hanging on dead subscribers") — deliberately tighter than the
// default HTTP client used elsewhere in this core.
var notifyClient = &http.Client{Timeout: 2 * time.Second}

// SendNotify POSTs a NOTIFY request (the GENA wire method, not plain POST)
// carrying the given propertyset body to one subscriber callback URL.
func SendNotify(ctx context.Context, callbackURL, sid string, seq uint32, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, "NOTIFY", callbackURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("NT", "upnp:event")
	req.Header.Set("NTS", "upnp:propchange")
	req.Header.Set("SID", sid)
	req.Header.Set("SEQ", fmt.Sprintf("%d", seq))

	resp, err := notifyClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gena: NOTIFY to %s: unexpected status %s", callbackURL, resp.Status)
	}
	return nil
}

// DeliverTo sends body to every callback URL registered for sub, stopping
// at the first that succeeds (spec §3 "one or more callback URLs" — UPnP
// only requires trying alternates on failure, not fanning out to all).
// It records the outcome on sub via MarkNotifyResult.
func DeliverTo(ctx context.Context, sub *Subscriber, body []byte) {
	seq := sub.NextEventKey()
	var lastErr error
	for _, url := range sub.Callbacks() {
		if err := SendNotify(ctx, url, sub.SID(), seq, body); err != nil {
			lastErr = err
			continue
		}
		sub.MarkNotifyResult(true)
		return
	}
	sub.MarkNotifyResult(false)
	if lastErr != nil {
		log.Warnf("❌ NOTIFY delivery failed for SID %s: %v", sub.SID(), lastErr)
	}
}
