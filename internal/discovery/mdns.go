package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/onvifctl/internal/logging"
)

const (
	// ServiceType is the DNS-SD service type some ONVIF devices advertise.
	ServiceType = "_onvif._tcp"

	// ServiceDomain is the mDNS domain.
	ServiceDomain = "local."

	// DefaultScanTimeout is the default browse window.
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is used when an entry carries no port.
	DefaultPort = 80

	// DefaultDevicePath is the device service path used when the TXT
	// records do not name one.
	DefaultDevicePath = "/onvif/device_service"
)

// Scanner browses mDNS for ONVIF devices. It complements WS-Discovery on
// networks that filter SSDP-style multicast.
type Scanner struct {
	Timeout     time.Duration
	ServiceType string
	Domain      string
}

// NewScanner creates an mDNS scanner with default settings.
func NewScanner() *Scanner {
	return &Scanner{
		Timeout:     DefaultScanTimeout,
		ServiceType: ServiceType,
		Domain:      ServiceDomain,
	}
}

// Scan browses until the timeout or ctx ends and returns every device
// found, deduplicated by URN.
func (s *Scanner) Scan(ctx context.Context) ([]*Probe, error) {
	log := logging.Named("mdns")

	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	var (
		mu     sync.Mutex
		seen   = make(map[string]bool)
		probes []*Probe
	)
	entries := make(chan *zeroconf.ServiceEntry)
	go func() {
		for entry := range entries {
			p := parseServiceEntry(entry)
			if p == nil {
				continue
			}
			mu.Lock()
			if !seen[p.URN] {
				seen[p.URN] = true
				probes = append(probes, p)
				log.Debug("Device found", zap.String("instance", entry.Instance), zap.String("xaddr", p.DeviceServiceURL()))
			}
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, s.ServiceType, s.Domain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	out := make([]*Probe, len(probes))
	copy(out, probes)
	return out, nil
}

// parseServiceEntry converts a service entry into a Probe. It returns nil
// for entries without a usable address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Probe {
	var ip net.IP
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0]
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0]
	}
	if ip == nil {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	txt := parseTXT(entry.Text)
	path := txt["path"]
	if path == "" {
		path = DefaultDevicePath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	host := net.JoinHostPort(ip.String(), strconv.Itoa(port))
	urn := txt["urn"]
	if urn == "" {
		urn = "mdns:" + entry.Instance + "@" + host
	}

	p := &Probe{
		URN:          urn,
		Name:         strings.ReplaceAll(entry.Instance, "_", " "),
		Hardware:     firstNonEmpty(txt["hardware"], txt["model"]),
		Location:     txt["location"],
		Types:        []string{"dn:NetworkVideoTransmitter"},
		XAddrs:       []string{"http://" + host + path},
		From:         host,
		DiscoveredAt: time.Now(),
	}
	if name := txt["name"]; name != "" {
		p.Name = strings.ReplaceAll(name, "_", " ")
	}
	return p
}

// parseTXT splits "key=value" TXT strings. A bare key maps to "".
func parseTXT(records []string) map[string]string {
	out := make(map[string]string, len(records))
	for _, r := range records {
		k, v, _ := strings.Cut(r, "=")
		out[strings.ToLower(k)] = v
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
