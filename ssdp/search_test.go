package ssdp

import (
	"net"
	"testing"
)

func TestBindEphemeralSocketAvoidsSsdpPort(t *testing.T) {
	conn, err := bindEphemeralSocket()
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	addr := conn.LocalAddr().String()
	if addr == "" {
		t.Fatal("expected a bound local address")
	}
	port := conn.LocalAddr().(*net.UDPAddr).Port
	if port == Port || port < minEphemeralPort {
		t.Fatalf("bound port %d, want a port >= %d other than %d", port, minEphemeralPort, Port)
	}
}

func TestMinDuration(t *testing.T) {
	if minDuration(1, 2) != 1 {
		t.Fatal("minDuration should return the smaller value")
	}
	if minDuration(5, 2) != 2 {
		t.Fatal("minDuration should return the smaller value")
	}
}
