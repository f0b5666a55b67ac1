package discovery

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/tcam/gwcfg/internal/logging"
)

const (
	// ServiceType is the mDNS service type gateways advertise
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for gateway discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is the configuration API port of a gateway
	DefaultPort = 9000
)

// ErrNoGateways is returned when a scan finishes without a match.
var ErrNoGateways = errors.New("no gateways found on the local network")

// serialPattern matches gateway hostnames (e.g., "T8000-00000001.local.")
var serialPattern = regexp.MustCompile(`^T8000-([0-9A-Za-z]+)\.local\.?$`)

// Scanner handles mDNS gateway discovery
type Scanner struct {
	// Timeout is the maximum time to wait for answers
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Scan browses for gateways until the timeout elapses or ctx is cancelled.
// Results are sorted by serial; a gateway answering twice is listed once.
func (s *Scanner) Scan(ctx context.Context) ([]*Gateway, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var (
		mu    sync.Mutex
		found = make(map[string]*Gateway)
	)
	err := s.browse(ctx, func(g *Gateway) bool {
		mu.Lock()
		found[g.Serial] = g
		mu.Unlock()
		return true
	})
	if err != nil {
		return nil, err
	}

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	gateways := make([]*Gateway, 0, len(found))
	for _, g := range found {
		gateways = append(gateways, g)
	}
	sort.Slice(gateways, func(i, j int) bool { return gateways[i].Serial < gateways[j].Serial })
	logging.Debug("mDNS scan finished", zap.Int("gateways", len(gateways)))
	return gateways, nil
}

// WaitFor waits for the gateway with the given serial, or any gateway when
// serial is empty.
func (s *Scanner) WaitFor(ctx context.Context, serial string) (*Gateway, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	gatewayChan := make(chan *Gateway, 1)
	err := s.browse(ctx, func(g *Gateway) bool {
		if serial != "" && g.Serial != serial {
			return true
		}
		select {
		case gatewayChan <- g:
		default:
		}
		cancel()
		return false
	})
	if err != nil {
		return nil, err
	}

	select {
	case g := <-gatewayChan:
		return g, nil
	case <-ctx.Done():
		// cancel() may have raced the send
		select {
		case g := <-gatewayChan:
			return g, nil
		default:
		}
		if serial == "" {
			return nil, ErrNoGateways
		}
		return nil, fmt.Errorf("gateway with serial %s not found within timeout", serial)
	}
}

// browse feeds every matching entry to fn until fn returns false or ctx ends.
func (s *Scanner) browse(ctx context.Context, fn func(*Gateway) bool) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	go func() {
		for entry := range entries {
			g := s.parseServiceEntry(entry)
			if g == nil {
				continue
			}
			logging.Debug("Gateway answered", zap.String("serial", g.Serial), zap.String("ip", g.IP))
			if !fn(g) {
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return fmt.Errorf("failed to browse for mDNS services: %w", err)
	}
	return nil
}

// parseServiceEntry converts a zeroconf service entry to a Gateway.
// Returns nil if the entry is not a gateway.
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Gateway {
	hostname := entry.HostName
	if hostname == "" {
		return nil
	}

	matches := serialPattern.FindStringSubmatch(hostname)
	if len(matches) < 2 {
		return nil
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}

	return &Gateway{
		Serial:       matches[1],
		Hostname:     hostname,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// Scan is a convenience function to scan with a custom timeout
func Scan(ctx context.Context, timeout time.Duration) ([]*Gateway, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.Scan(ctx)
}

// FirstURL returns the base URL of the first gateway that answers. Its
// signature fits config.ResolveOptions.Discover.
func FirstURL(ctx context.Context, timeout time.Duration) (string, error) {
	scanner := NewScanner()
	if timeout > 0 {
		scanner.Timeout = timeout
	}
	g, err := scanner.WaitFor(ctx, "")
	if err != nil {
		return "", err
	}
	return g.BaseURL(), nil
}
