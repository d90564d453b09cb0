// Package discovery finds ONVIF devices on the local network.
//
// The primary mechanism is WS-Discovery: a Session multicasts Probe
// messages for each ONVIF device type to 239.255.255.250:3702 and collects
// the unicast ProbeMatches replies for a fixed window. Each type is sent
// several times, paced by an interval, since UDP probes are easily lost.
// Replies are deduplicated by endpoint URN and the first one wins.
//
//	s := discovery.NewSession(discovery.WithWait(5 * time.Second))
//	probes, err := s.Run(ctx)
//	for _, p := range probes {
//	    fmt.Println(p.Name, p.DeviceServiceURL())
//	}
//
// A Scanner offers an mDNS alternative for devices that advertise
// themselves over DNS-SD. It produces the same Probe records.
//
// # Network Requirements
//
//   - Multicast must be routed to the local interface
//   - Firewalls must allow inbound UDP replies to the ephemeral probe port
//   - mDNS browsing additionally needs UDP port 5353
package discovery
