package discovery

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/muurk/onvifctl/internal/soap"
)

// Scope prefixes that carry human-readable device metadata.
const (
	scopeHardware = "onvif://www.onvif.org/hardware/"
	scopeLocation = "onvif://www.onvif.org/location/"
	scopeName     = "onvif://www.onvif.org/name/"
)

// Probe is one device that answered a WS-Discovery probe.
type Probe struct {
	// URN is the device endpoint reference, e.g. "urn:uuid:...".
	URN      string
	Name     string
	Hardware string
	Location string
	Types    []string
	XAddrs   []string
	Scopes   []string

	// From is the address the reply came from.
	From string

	DiscoveredAt time.Time
}

// String returns a human-readable representation of the probe.
func (p *Probe) String() string {
	name := p.Name
	if name == "" {
		name = p.URN
	}
	return fmt.Sprintf("ONVIF device %s (%s) at %s", name, p.Hardware, p.DeviceServiceURL())
}

// DeviceServiceURL returns the first advertised XAddr, preferring plain
// http endpoints over https ones.
func (p *Probe) DeviceServiceURL() string {
	for _, x := range p.XAddrs {
		if strings.HasPrefix(x, "http://") {
			return x
		}
	}
	if len(p.XAddrs) > 0 {
		return p.XAddrs[0]
	}
	return ""
}

// Host returns the host[:port] of DeviceServiceURL.
func (p *Probe) Host() string {
	u, err := url.Parse(p.DeviceServiceURL())
	if err != nil {
		return ""
	}
	return u.Host
}

// applyScopes fills Name, Hardware and Location from the scope list. The
// value is the last path segment of the matching scope.
func (p *Probe) applyScopes() {
	for _, s := range p.Scopes {
		switch {
		case strings.HasPrefix(s, scopeHardware):
			p.Hardware = lastSegment(s)
		case strings.HasPrefix(s, scopeLocation):
			p.Location = lastSegment(s)
		case strings.HasPrefix(s, scopeName):
			p.Name = strings.ReplaceAll(lastSegment(s), "_", " ")
		}
	}
}

func lastSegment(s string) string {
	seg := s[strings.LastIndex(s, "/")+1:]
	if dec, err := url.PathUnescape(seg); err == nil {
		return dec
	}
	return seg
}

// BuildProbeMessage renders a WS-Discovery Probe for one ONVIF device type.
func BuildProbeMessage(messageID, deviceType string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope" xmlns:a="http://schemas.xmlsoap.org/ws/2004/08/addressing">`)
	b.WriteString(`<s:Header>`)
	b.WriteString(`<a:Action s:mustUnderstand="1">http://schemas.xmlsoap.org/ws/2005/04/discovery/Probe</a:Action>`)
	b.WriteString(`<a:MessageID>` + soap.Escape(messageID) + `</a:MessageID>`)
	b.WriteString(`<a:ReplyTo><a:Address>http://schemas.xmlsoap.org/ws/2004/08/addressing/role/anonymous</a:Address></a:ReplyTo>`)
	b.WriteString(`<a:To s:mustUnderstand="1">urn:schemas-xmlsoap-org:ws:2005:04:discovery</a:To>`)
	b.WriteString(`</s:Header>`)
	b.WriteString(`<s:Body>`)
	b.WriteString(`<Probe xmlns="http://schemas.xmlsoap.org/ws/2005/04/discovery">`)
	b.WriteString(`<d:Types xmlns:d="http://schemas.xmlsoap.org/ws/2005/04/discovery" xmlns:dp0="http://www.onvif.org/ver10/network/wsdl">dp0:` + soap.Escape(deviceType) + `</d:Types>`)
	b.WriteString(`</Probe>`)
	b.WriteString(`</s:Body>`)
	b.WriteString(`</s:Envelope>`)
	return b.String()
}

// ParseProbeMatch decodes a ProbeMatches reply. It reports false for
// anything that is not a usable match: unparsable XML, or a match missing
// its endpoint address, XAddrs or Scopes.
func ParseProbeMatch(data []byte) (*Probe, bool) {
	root, err := soap.Parse(data)
	if err != nil {
		return nil, false
	}

	match := soap.Body(root).Path("ProbeMatches", "ProbeMatch")
	if match == nil {
		return nil, false
	}

	p := &Probe{
		URN:    match.TextAt("EndpointReference", "Address"),
		XAddrs: soap.Fields(match.TextAt("XAddrs")),
		Scopes: soap.Fields(match.TextAt("Scopes")),
		Types:  soap.Fields(match.TextAt("Types")),
	}
	if p.URN == "" || len(p.XAddrs) == 0 || len(p.Scopes) == 0 {
		return nil, false
	}
	p.applyScopes()
	return p, true
}
