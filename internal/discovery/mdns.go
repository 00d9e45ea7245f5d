// ABOUTME: Advertises this session core on the local network via mDNS so players can find it
// ABOUTME: Narrow wrapper over hashicorp/mdns; grounded on the teacher's Manager.Advertise, browsing dropped as out of scope
package discovery

import (
	"fmt"
	"net"

	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service this core advertises under, matching the
// "-server" suffix the teacher's own Config.ServerMode path uses.
const ServiceType = "_resonate-session-server._tcp"

// Advertiser is the narrow contract cmd/sessiond depends on — just enough
// to stop an mDNS announcement it started. Anything that satisfies it
// (including a fake in tests) can stand in for the real mdns.Server.
type Advertiser interface {
	Shutdown() error
}

// Server advertises this process's websocket endpoint via mDNS.
type Server struct {
	underlying *mdns.Server
}

// Advertise starts announcing name on port, with txt as the service's TXT
// record entries (e.g. "path=/ws"). The returned Server must be Shutdown
// when the process stops advertising.
func Advertise(name string, port int, txt []string) (*Server, error) {
	ips, err := localIPs()
	if err != nil {
		return nil, fmt.Errorf("discovery: resolve local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(name, ServiceType, "", "", port, ips, txt)
	if err != nil {
		return nil, fmt.Errorf("discovery: build service record: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("discovery: start server: %w", err)
	}

	return &Server{underlying: server}, nil
}

// Shutdown stops advertising.
func (s *Server) Shutdown() error {
	return s.underlying.Shutdown()
}

var _ Advertiser = (*Server)(nil)

// localIPs enumerates non-loopback IPv4 addresses across every up
// interface, the set a discovered service record should advertise.
func localIPs() ([]net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var ips []net.IP
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok || ipnet.IP.IsLoopback() || ipnet.IP.To4() == nil {
				continue
			}
			ips = append(ips, ipnet.IP)
		}
	}

	if len(ips) == 0 {
		return nil, fmt.Errorf("no usable non-loopback IPv4 addresses found")
	}
	return ips, nil
}
