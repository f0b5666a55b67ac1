// Package discovery finds T8000 gateways on the local network over mDNS.
//
// Gateways advertise an "_http._tcp" service under the hostname
// T8000-<serial>.local and serve their configuration API on port 9000.
// The TXT record may carry "fw" (firmware version) and "edition".
//
// # Usage Example
//
//	gateways, err := discovery.Scan(ctx, 5*time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, g := range gateways {
//	    fmt.Println(g, g.BaseURL())
//	}
//
// FirstURL stops at the first gateway that answers and is what the CLI
// uses when no profile names a gateway.
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Gateways must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
