package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Gateway represents a T8000 gateway found on the network
type Gateway struct {
	// Serial is the gateway serial number (e.g., "00000001")
	Serial string

	// Hostname is the mDNS hostname (e.g., "T8000-00000001.local.")
	Hostname string

	// IP is the address the gateway answered from, IPv4 preferred
	IP string

	// Port is the configuration API port (9000 unless advertised otherwise)
	Port int

	// Metadata holds the TXT record, e.g. "fw=1.4.2", "edition=embedded"
	Metadata map[string]string

	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the gateway
func (g *Gateway) String() string {
	return fmt.Sprintf("T8000 %s (%s) at %s", g.Serial, g.Hostname, net.JoinHostPort(g.IP, strconv.Itoa(g.Port)))
}

// BaseURL returns the HTTP base URL of the configuration API
func (g *Gateway) BaseURL() string {
	return "http://" + net.JoinHostPort(g.IP, strconv.Itoa(g.Port))
}

// GetMetadata retrieves a TXT value by key, or returns empty string if not found
func (g *Gateway) GetMetadata(key string) string {
	if g.Metadata == nil {
		return ""
	}
	return g.Metadata[key]
}

// Edition returns the advertised edition label, "embedded" when absent.
func (g *Gateway) Edition() string {
	if e := g.GetMetadata("edition"); e != "" {
		return e
	}
	return "embedded"
}

// Firmware returns the advertised firmware version, if any.
func (g *Gateway) Firmware() string {
	return g.GetMetadata("fw")
}
