package control

import (
	"io"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"gargoton.petite-maison-orange.fr/eric/upnpcore/gena"
)

// newEventServer binds an ephemeral TCP listener and a chi router
// accepting only the custom GENA "NOTIFY" method at the control-point
// callback path "/<device-uuid>/<service-id>" (spec §6 "Control point:
// event callback path... accepts NOTIFY only").
func newEventServer(p *Point) (*http.Server, net.Listener, error) {
	ln, err := net.Listen("tcp4", ":0")
	if err != nil {
		return nil, nil, err
	}

	r := chi.NewRouter()
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
	r.MethodFunc("NOTIFY", "/{uuid}/{serviceId}", p.handleNotify)

	return &http.Server{Handler: r}, ln, nil
}

// handleNotify parses an inbound NOTIFY, matches it against a known
// subscription by SID, and either dispatches EventNotify (in order, per
// spec §5 "strictly increasing" sequence numbers) or drops/queues it.
func (p *Point) handleNotify(w http.ResponseWriter, r *http.Request) {
	sid := r.Header.Get("SID")
	nt := r.Header.Get("NT")
	nts := r.Header.Get("NTS")
	if sid == "" || nt != "upnp:event" || nts != "upnp:propchange" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	seq, _ := strconv.ParseUint(r.Header.Get("SEQ"), 10, 32)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	values, err := gena.ParsePropertySet(body)
	if err != nil {
		log.Warnf("❌ malformed NOTIFY body for SID %s: %v", sid, err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	// Fold a LastChange aggregator's InstanceID 0 entries into the flat map
	// so listeners see per-variable updates alongside the raw LastChange.
	if lc, ok := values["LastChange"]; ok {
		if decomposed, err := gena.DecomposeLastChange(lc); err == nil {
			for name, v := range decomposed[0] {
				values[name] = v
			}
		}
	}

	sub, ok := p.findSubscriptionBySID(sid)
	if !ok {
		// Unknown SID: the SUBSCRIBE response may not have been processed
		// yet (race between the 200-OK and the first NOTIFY). Queue it
		// rather than drop it outright (spec §9 D 4 "bounded
		// pending-notification queue").
		p.notifyQueue.push(pendingNotify{sid: sid, seq: uint32(seq), values: values})
		w.WriteHeader(http.StatusOK)
		return
	}

	if !sub.acceptSequence(uint32(seq)) {
		log.Debugf("🐞 dropping out-of-order NOTIFY for SID %s (seq %d)", sid, seq)
		w.WriteHeader(http.StatusOK)
		return
	}

	w.WriteHeader(http.StatusOK)
	for _, l := range p.listenersSnapshot() {
		l.EventNotify(sub, values)
	}
}

func (p *Point) findSubscriptionBySID(sid string) (*Subscription, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sub, ok := p.subs[sid]
	return sub, ok
}

// drainPendingFor replays any queued NOTIFYs that arrived before sub was
// registered, in FIFO order, once the subscription is known.
func (p *Point) drainPendingFor(sub *Subscription) {
	for _, n := range p.notifyQueue.drain(sub.SID()) {
		if !sub.acceptSequence(n.seq) {
			continue
		}
		for _, l := range p.listenersSnapshot() {
			l.EventNotify(sub, n.values)
		}
	}
}
