// Package netutil provides the local network interface helpers the SSDP
// engine needs: local-IP guessing, per-interface IPv4 address listing, and
// the interface iteration filter spec §4.3 describes ("enumerate host
// network interfaces and filter to those that are up, non-point-to-point,
// have at least one non-zero IP, and are multicast- or broadcast-capable").
package netutil

import "net"

// GuessLocalIP returns the local IP address that would be used to reach
// the public internet, without sending any actual traffic (a UDP "connect"
// only resolves routing, it never transmits). Falls back to loopback if
// no route is available.
func GuessLocalIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1", nil
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String(), nil
}

// ListAllIPs returns a map of interface names to their associated,
// non-loopback IPv4 addresses.
func ListAllIPs() map[string][]string {
	result := make(map[string][]string)

	ifaces, err := net.Interfaces()
	if err != nil {
		return result
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		var ips []string
		for _, addr := range addrs {
			ip := addrIP(addr)
			if ip == nil || ip.To4() == nil || ip.IsLoopback() {
				continue
			}
			ips = append(ips, ip.String())
		}

		if len(ips) > 0 {
			result[iface.Name] = ips
		}
	}

	return result
}

func addrIP(addr net.Addr) net.IP {
	switch v := addr.(type) {
	case *net.IPNet:
		return v.IP
	case *net.IPAddr:
		return v.IP
	}
	return nil
}

// Usable is one network interface eligible for SSDP send/receive: up,
// non-point-to-point, multicast- or broadcast-capable, with at least one
// IPv4 address.
type Usable struct {
	Iface net.Interface
	IPv4  net.IP
}

// MulticastInterfaces enumerates the interfaces usable for SSDP traffic
// (spec §4.3 "Interface iteration"): up, non-P2P, at least one non-zero
// IPv4 address, multicast- or broadcast-capable.
func MulticastInterfaces() ([]Usable, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var out []Usable
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		if iface.Flags&net.FlagPointToPoint != 0 {
			continue
		}
		if iface.Flags&(net.FlagMulticast|net.FlagBroadcast) == 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			ip := addrIP(addr)
			if ip == nil || ip.To4() == nil || ip.IsUnspecified() {
				continue
			}
			out = append(out, Usable{Iface: iface, IPv4: ip.To4()})
			break
		}
	}
	return out, nil
}

// PrimaryAddress reports the primary IPv4 address of a named interface —
// used by the search-response connect-then-compare de-duplication step
// (spec §4.3: "connects a UDP socket to the querier so the kernel chooses
// the outbound interface, then compares that interface's primary address
// against the iterated interface").
func PrimaryAddress(ifaceName string) (net.IP, error) {
	iface, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return nil, err
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return nil, err
	}
	for _, addr := range addrs {
		ip := addrIP(addr)
		if ip != nil && ip.To4() != nil {
			return ip.To4(), nil
		}
	}
	return nil, nil
}

// InterfaceForDestination "connects" a UDP socket to dst without sending
// traffic, then reports which local interface the kernel would route
// through by matching the chosen local address against each usable
// interface's addresses.
func InterfaceForDestination(dst string) (string, net.IP, error) {
	conn, err := net.Dial("udp4", dst)
	if err != nil {
		return "", nil, err
	}
	defer conn.Close()

	local := conn.LocalAddr().(*net.UDPAddr).IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return "", local, err
	}
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ip := addrIP(addr); ip != nil && ip.Equal(local) {
				return iface.Name, local, nil
			}
		}
	}
	return "", local, nil
}
