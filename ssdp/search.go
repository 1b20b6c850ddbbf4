package ssdp

import (
	"context"
	"math/rand"
	"net"
	"time"

	log "github.com/sirupsen/logrus"

	"gargoton.petite-maison-orange.fr/eric/upnpcore/task"
)

const minEphemeralPort = 1024
const maxEphemeralPort = 65535
const maxBindAttempts = 20

// SearchTask is the control-point side search loop (spec §4.3 "Search
// task"): binds an ephemeral UDP socket, sends M-SEARCH twice
// back-to-back, reads responses until the repeat interval elapses,
// re-sends, and repeats until aborted.
type SearchTask struct {
	conn     *net.UDPConn
	listener Listener
}

// bindEphemeralSocket binds a UDP socket to a random port outside
// [0,1024) and never 1900, retrying up to maxBindAttempts times.
func bindEphemeralSocket() (*net.UDPConn, error) {
	var lastErr error
	for i := 0; i < maxBindAttempts; i++ {
		port := minEphemeralPort + rand.Intn(maxEphemeralPort-minEphemeralPort)
		if port == Port {
			continue
		}
		conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: port})
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// NewSearchTask binds an ephemeral search socket.
func NewSearchTask(listener Listener) (*SearchTask, error) {
	conn, err := bindEphemeralSocket()
	if err != nil {
		return nil, err
	}
	return &SearchTask{conn: conn, listener: listener}, nil
}

// Run sends M-SEARCH for st every repeatInterval (clamped to >= 5s) until
// ctx is cancelled, dispatching parsed responses to the listener.
func (t *SearchTask) Run(ctx context.Context, manager *task.Manager, st string, mx int, repeatInterval time.Duration) *task.Task {
	if repeatInterval < 5*time.Second {
		repeatInterval = 5 * time.Second
	}

	return manager.Spawn(ctx, func(ctx context.Context) {
		go func() {
			<-ctx.Done()
			t.conn.Close()
		}()

		for {
			if ctx.Err() != nil {
				return
			}
			t.sendSearch(st, mx)
			t.sendSearch(st, mx)
			t.readUntil(ctx, repeatInterval)
		}
	})
}

func (t *SearchTask) sendSearch(st string, mx int) {
	dst := &net.UDPAddr{IP: net.ParseIP(MulticastAddr), Port: Port}
	data := BuildMSearch(st, mx)
	if _, err := t.conn.WriteToUDP(data, dst); err != nil {
		log.Warnf("❌ M-SEARCH send failed: %v", err)
	}
}

func (t *SearchTask) readUntil(ctx context.Context, d time.Duration) {
	deadline := time.Now().Add(d)
	buf := make([]byte, 8192)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 || ctx.Err() != nil {
			return
		}
		t.conn.SetReadDeadline(time.Now().Add(minDuration(remaining, time.Second)))

		n, src, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			log.Warnf("❌ search read error: %v", err)
			continue
		}

		msg, err := ParseMessage(buf[:n])
		if err != nil || msg.Kind != KindSearchResponse {
			continue
		}
		if t.listener != nil {
			t.listener.SearchResponse(msg, src)
		}
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
