package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func TestScanner_parseServiceEntry(t *testing.T) {
	scanner := NewScanner()

	tests := []struct {
		name       string
		entry      *zeroconf.ServiceEntry
		wantNil    bool
		wantSerial string
		wantIP     string
		wantPort   int
	}{
		{
			name: "gateway with IPv4",
			entry: &zeroconf.ServiceEntry{
				HostName: "T8000-00000001.local.",
				Port:     9000,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.50")},
				Text:     []string{"fw=1.4.2"},
			},
			wantSerial: "00000001",
			wantIP:     "192.168.1.50",
			wantPort:   9000,
		},
		{
			name: "no trailing dot and custom port",
			entry: &zeroconf.ServiceEntry{
				HostName: "T8000-A1B2C3.local",
				Port:     8080,
				AddrIPv4: []net.IP{net.ParseIP("10.0.0.5")},
			},
			wantSerial: "A1B2C3",
			wantIP:     "10.0.0.5",
			wantPort:   8080,
		},
		{
			name: "no port advertised defaults to 9000",
			entry: &zeroconf.ServiceEntry{
				HostName: "T8000-00000002.local",
				AddrIPv4: []net.IP{net.ParseIP("172.16.0.1")},
			},
			wantSerial: "00000002",
			wantIP:     "172.16.0.1",
			wantPort:   DefaultPort,
		},
		{
			name: "other http service",
			entry: &zeroconf.ServiceEntry{
				HostName: "printer.local.",
				Port:     80,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.1")},
			},
			wantNil: true,
		},
		{
			name: "empty hostname",
			entry: &zeroconf.ServiceEntry{
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.1")},
			},
			wantNil: true,
		},
		{
			name: "no address",
			entry: &zeroconf.ServiceEntry{
				HostName: "T8000-00000003.local.",
				Port:     9000,
			},
			wantNil: true,
		},
		{
			name: "IPv6 only",
			entry: &zeroconf.ServiceEntry{
				HostName: "T8000-00000004.local.",
				Port:     9000,
				AddrIPv6: []net.IP{net.ParseIP("fe80::1")},
			},
			wantSerial: "00000004",
			wantIP:     "fe80::1",
			wantPort:   9000,
		},
		{
			name: "prefers IPv4",
			entry: &zeroconf.ServiceEntry{
				HostName: "T8000-00000005.local.",
				Port:     9000,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.55")},
				AddrIPv6: []net.IP{net.ParseIP("fe80::2")},
			},
			wantSerial: "00000005",
			wantIP:     "192.168.1.55",
			wantPort:   9000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := scanner.parseServiceEntry(tt.entry)

			if tt.wantNil {
				if gw != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", gw)
				}
				return
			}
			if gw == nil {
				t.Fatal("parseServiceEntry() = nil, want gateway")
			}
			if gw.Serial != tt.wantSerial {
				t.Errorf("Serial = %v, want %v", gw.Serial, tt.wantSerial)
			}
			if gw.IP != tt.wantIP {
				t.Errorf("IP = %v, want %v", gw.IP, tt.wantIP)
			}
			if gw.Port != tt.wantPort {
				t.Errorf("Port = %v, want %v", gw.Port, tt.wantPort)
			}
			if time.Since(gw.DiscoveredAt) > time.Second {
				t.Errorf("DiscoveredAt is not recent: %v", gw.DiscoveredAt)
			}
		})
	}
}

func TestScanner_parseServiceEntry_Metadata(t *testing.T) {
	gw := NewScanner().parseServiceEntry(&zeroconf.ServiceEntry{
		HostName: "T8000-00000001.local.",
		Port:     9000,
		AddrIPv4: []net.IP{net.ParseIP("192.168.1.50")},
		Text:     []string{"fw=1.4.2", "edition=cloud", "beta", "path=/api=v1"},
	})
	if gw == nil {
		t.Fatal("parseServiceEntry() = nil, want gateway")
	}

	want := map[string]string{
		"fw":      "1.4.2",
		"edition": "cloud",
		"beta":    "",
		"path":    "/api=v1",
	}
	if len(gw.Metadata) != len(want) {
		t.Errorf("Metadata has %d entries, want %d", len(gw.Metadata), len(want))
	}
	for k, v := range want {
		if got, ok := gw.Metadata[k]; !ok || got != v {
			t.Errorf("Metadata[%q] = %q, want %q", k, got, v)
		}
	}
	if gw.Edition() != "cloud" || gw.Firmware() != "1.4.2" {
		t.Errorf("Edition()/Firmware() = %q/%q", gw.Edition(), gw.Firmware())
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()
	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("scanner.Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
}

func TestSerialPattern(t *testing.T) {
	tests := []struct {
		hostname    string
		shouldMatch bool
		serial      string
	}{
		{"T8000-00000001.local", true, "00000001"},
		{"T8000-00000001.local.", true, "00000001"},
		{"T8000-AB12.local", true, "AB12"},
		{"t8000-00000001.local", false, ""},
		{"T8000-.local", false, ""},
		{"T8000-0001_x.local", false, ""},
		{"T9000-00000001.local", false, ""},
		{"T8000-00000001", false, ""},
		{"", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.hostname, func(t *testing.T) {
			matches := serialPattern.FindStringSubmatch(tt.hostname)
			if tt.shouldMatch {
				if len(matches) < 2 {
					t.Errorf("serialPattern did not match %q", tt.hostname)
				} else if matches[1] != tt.serial {
					t.Errorf("serialPattern matched %q with serial %q, want %q", tt.hostname, matches[1], tt.serial)
				}
			} else if matches != nil {
				t.Errorf("serialPattern matched %q, want no match", tt.hostname)
			}
		})
	}
}
