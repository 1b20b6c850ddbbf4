package ssdp

import (
	"context"
	"net"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Listener receives parsed inbound SSDP traffic from the shared multicast
// socket (spec §4.6 "Registers with the shared SSDP listener"). A single
// process runs one Listener; both a device host (interested in M-SEARCH)
// and a control point (interested in NOTIFY/search-response) register
// against it. Grounded on other_examples' gossdp SsdpListener interface
// (NotifyAlive/NotifyBye/Response), generalized to one NotifyMessage
// entry point plus a dedicated MSearch hook since this core's host and
// control point share one socket instead of gossdp's client-or-server
// split.
type Listener interface {
	// NotifyMessage is called for every parsed NOTIFY (alive or byebye),
	// with the source address it arrived from.
	NotifyMessage(msg *Message, src *net.UDPAddr)
	// SearchResponse is called for every parsed "HTTP/1.1 200 OK" search
	// response, with the source address it arrived from.
	SearchResponse(msg *Message, src *net.UDPAddr)
}

// SearchHandler is implemented by a device host wanting to answer
// M-SEARCH requests arriving on the shared socket.
type SearchHandler interface {
	HandleMSearch(msg *Message, src *net.UDPAddr, reply func(data []byte) error)
}

// Socket wraps the shared multicast UDP connection: one read loop
// dispatches parsed messages to every registered Listener/SearchHandler,
// and Send/SendTo let callers (Announcer, Responder, search task) write
// datagrams.
type Socket struct {
	conn *net.UDPConn

	mu        sync.RWMutex
	listeners []Listener
	searchers []SearchHandler
}

// NewSocket binds the shared SSDP multicast group (239.255.255.250:1900).
func NewSocket() (*Socket, error) {
	addr := &net.UDPAddr{IP: net.ParseIP(MulticastAddr), Port: Port}
	conn, err := net.ListenMulticastUDP("udp4", nil, addr)
	if err != nil {
		return nil, err
	}
	conn.SetReadBuffer(8192)
	return &Socket{conn: conn}, nil
}

func (s *Socket) AddListener(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Socket) AddSearchHandler(h SearchHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchers = append(s.searchers, h)
}

// Send writes a datagram to the multicast group.
func (s *Socket) Send(data []byte) error {
	addr := &net.UDPAddr{IP: net.ParseIP(MulticastAddr), Port: Port}
	_, err := s.conn.WriteToUDP(data, addr)
	return err
}

// SendTo writes a unicast datagram, e.g. an M-SEARCH response.
func (s *Socket) SendTo(data []byte, dst *net.UDPAddr) error {
	_, err := s.conn.WriteToUDP(data, dst)
	return err
}

// Run reads datagrams until ctx is cancelled, dispatching each to the
// registered listeners/search handlers. On cancellation the underlying
// socket is closed so the blocking read unblocks (spec §5 "Sockets MUST
// be cancellable from another thread").
func (s *Socket) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		s.conn.Close()
	}()

	buf := make([]byte, 8192)
	for {
		s.conn.SetReadDeadline(time.Now().Add(1 * time.Second))
		n, src, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			log.Warnf("❌ SSDP read error: %v", err)
			continue
		}

		msg, err := ParseMessage(buf[:n])
		if err != nil {
			continue
		}
		s.dispatch(msg, src)
	}
}

func (s *Socket) dispatch(msg *Message, src *net.UDPAddr) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch msg.Kind {
	case KindNotify:
		for _, l := range s.listeners {
			l.NotifyMessage(msg, src)
		}
	case KindSearchResponse:
		for _, l := range s.listeners {
			l.SearchResponse(msg, src)
		}
	case KindMSearch:
		for _, h := range s.searchers {
			h.HandleMSearch(msg, src, func(data []byte) error {
				return s.SendTo(data, src)
			})
		}
	}
}

func (s *Socket) Close() error { return s.conn.Close() }
