// Package discovery advertises the API on the local network so controllers
// can find it during provisioning without a hard-coded address.
package discovery

import (
	"fmt"
	"log"
	"net"
	"os"

	"github.com/hashicorp/mdns"

	"smarthome-backend/config"
)

func txtRecords() []string {
	return []string{"path=/api/v1", "validate=/api/v1/devices/validatedevice", "control=/api/v1/devices/control"}
}

// Service builds the mDNS zone advertised for the API.
func Service(cfg config.MDNSConfig, port int) (*mdns.MDNSService, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("reading hostname: %w", err)
	}
	service, err := mdns.NewMDNSService(cfg.Instance, cfg.Service, "", host+".", port, localIPs(), txtRecords())
	if err != nil {
		return nil, fmt.Errorf("building mdns service: %w", err)
	}
	return service, nil
}

// localIPs lists the non-loopback unicast addresses of this host, falling back
// to loopback when there are none.
func localIPs() []net.IP {
	var ips []net.IP
	addrs, err := net.InterfaceAddrs()
	if err == nil {
		for _, a := range addrs {
			if ipNet, ok := a.(*net.IPNet); ok && !ipNet.IP.IsLoopback() && ipNet.IP.IsGlobalUnicast() {
				ips = append(ips, ipNet.IP)
			}
		}
	}
	if len(ips) == 0 {
		ips = []net.IP{net.IPv4(127, 0, 0, 1)}
	}
	return ips
}

// Advertise starts answering mDNS queries for the API. Call Shutdown on the
// returned server to stop.
func Advertise(cfg config.MDNSConfig, port int) (*mdns.Server, error) {
	service, err := Service(cfg, port)
	if err != nil {
		return nil, err
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("starting mdns server: %w", err)
	}
	log.Printf("[discovery] advertising %s.%s on port %d", cfg.Instance, cfg.Service, port)
	return server, nil
}
