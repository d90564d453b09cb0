package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/ipv4"

	"github.com/muurk/onvifctl/internal/logging"
)

const (
	// MulticastAddress is the WS-Discovery group and port.
	MulticastAddress = "239.255.255.250:3702"

	DefaultRetries       = 3
	DefaultInterval      = 150 * time.Millisecond
	DefaultWait          = 3 * time.Second
	DefaultDeliveryDelay = 100 * time.Millisecond

	// multicastTTL keeps probes on the local segment and one router hop.
	multicastTTL = 2

	maxDatagram = 64 * 1024
)

// DefaultTypes are the ONVIF device types probed for, in send order.
var DefaultTypes = []string{"NetworkVideoTransmitter", "Device", "NetworkVideoDisplay"}

// ErrAlreadyRunning is returned by Run while another Run is in progress.
var ErrAlreadyRunning = errors.New("discovery is already running")

// State is the lifecycle of a Session.
type State int

const (
	StateIdle State = iota
	StateProbing
	StateCollecting
	StateCompleted
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateProbing:
		return "Probing"
	case StateCollecting:
		return "Collecting"
	case StateCompleted:
		return "Completed"
	case StateFailed:
		return "Failed"
	case StateClosed:
		return "Closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Option configures a Session.
type Option func(*Session)

// WithRetries sets how many times the full set of probes is sent.
func WithRetries(n int) Option { return func(s *Session) { s.retries = n } }

// WithInterval sets the pause between consecutive probe datagrams.
func WithInterval(d time.Duration) Option { return func(s *Session) { s.interval = d } }

// WithWait sets the collection window, measured from socket bind.
func WithWait(d time.Duration) Option { return func(s *Session) { s.wait = d } }

// WithTypes replaces the probed device types.
func WithTypes(types ...string) Option { return func(s *Session) { s.types = types } }

// WithTarget sends probes to addr instead of the multicast group.
func WithTarget(addr string) Option { return func(s *Session) { s.target = addr } }

// WithListenAddress binds the probe socket to addr. The default is an
// ephemeral port on all interfaces.
func WithListenAddress(addr string) Option { return func(s *Session) { s.listen = addr } }

// WithDeliveryDelay sets the pause between callbacks in Stream.
func WithDeliveryDelay(d time.Duration) Option { return func(s *Session) { s.deliveryDelay = d } }

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) Option { return func(s *Session) { s.logger = l } }

// Session runs WS-Discovery probes. A Session may be reused, but only one
// Run may be active at a time.
type Session struct {
	retries       int
	interval      time.Duration
	wait          time.Duration
	deliveryDelay time.Duration
	types         []string
	target        string
	listen        string
	logger        *zap.Logger

	mu      sync.Mutex
	state   State
	running bool
	conn    net.PacketConn
	cancel  context.CancelFunc
	stopped bool
	devices map[string]*Probe
	order   []string
}

// NewSession creates a Session with the default timing.
func NewSession(opts ...Option) *Session {
	s := &Session{
		retries:       DefaultRetries,
		interval:      DefaultInterval,
		wait:          DefaultWait,
		deliveryDelay: DefaultDeliveryDelay,
		types:         DefaultTypes,
		target:        MulticastAddress,
		listen:        "0.0.0.0:0",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.Named("discovery")
	}
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Run probes the network and collects replies until the wait window ends,
// ctx is cancelled, or Stop is called. Probes are returned in the order they
// were first seen. Stop is not an error: Run returns what it gathered.
func (s *Session) Run(ctx context.Context) ([]*Probe, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	s.running = true
	s.stopped = false
	s.devices = make(map[string]*Probe)
	s.order = nil
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.conn = nil
		s.cancel = nil
		s.mu.Unlock()
	}()

	target, err := net.ResolveUDPAddr("udp4", s.target)
	if err != nil {
		s.setState(StateFailed)
		return nil, fmt.Errorf("invalid probe target %q: %w", s.target, err)
	}

	conn, err := net.ListenPacket("udp4", s.listen)
	if err != nil {
		s.setState(StateFailed)
		return nil, fmt.Errorf("failed to open discovery socket: %w", err)
	}
	defer conn.Close()

	pc := ipv4.NewPacketConn(conn)
	if err := pc.SetMulticastTTL(multicastTTL); err != nil {
		s.logger.Debug("Failed to set multicast TTL", zap.Error(err))
	}
	if err := pc.SetMulticastLoopback(true); err != nil {
		s.logger.Debug("Failed to enable multicast loopback", zap.Error(err))
	}

	runCtx, cancel := context.WithTimeout(ctx, s.wait)
	defer cancel()

	s.mu.Lock()
	s.conn = conn
	s.cancel = cancel
	s.state = StateProbing
	if s.stopped {
		cancel()
	}
	s.mu.Unlock()

	s.logger.Debug("Discovery started",
		zap.String("local", conn.LocalAddr().String()),
		zap.String("target", target.String()),
		zap.Int("retries", s.retries),
		zap.Duration("wait", s.wait),
	)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.receive(conn)
	}()

	sendErr := s.send(runCtx, conn, target)
	if sendErr == nil {
		s.setState(StateCollecting)
	}

	<-runCtx.Done()
	// Unblocks the reader.
	_ = conn.Close()
	wg.Wait()

	probes := s.snapshot()

	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()

	switch {
	case stopped:
		s.setState(StateClosed)
		return probes, nil
	case sendErr != nil:
		s.setState(StateFailed)
		return probes, sendErr
	case errors.Is(ctx.Err(), context.Canceled):
		s.setState(StateClosed)
		return probes, ctx.Err()
	}

	s.setState(StateCompleted)
	s.logger.Debug("Discovery completed", zap.Int("devices", len(probes)))
	return probes, nil
}

// send writes retries×types probes, pausing interval between datagrams.
// Every retry of a type reuses that type's MessageID.
func (s *Session) send(ctx context.Context, conn net.PacketConn, target net.Addr) error {
	messages := make([][]byte, len(s.types))
	for i, t := range s.types {
		messages[i] = []byte(BuildProbeMessage("uuid:"+uuid.NewString(), t))
	}

	first := true
	for r := 0; r < s.retries; r++ {
		for _, msg := range messages {
			if !first {
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(s.interval):
				}
			}
			first = false

			if _, err := conn.WriteTo(msg, target); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("failed to send probe: %w", err)
			}
		}
	}
	return nil
}

func (s *Session) receive(conn net.PacketConn) {
	buf := make([]byte, maxDatagram)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			return
		}

		p, ok := ParseProbeMatch(buf[:n])
		if !ok {
			s.logger.Debug("Ignoring datagram", zap.Stringer("from", from), zap.Int("bytes", n))
			continue
		}
		p.From = from.String()
		p.DiscoveredAt = time.Now()
		s.add(p)
	}
}

// add records p unless its URN was already seen.
func (s *Session) add(p *Probe) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[p.URN]; ok {
		return
	}
	s.devices[p.URN] = p
	s.order = append(s.order, p.URN)
	s.logger.Debug("Device found", zap.String("urn", p.URN), zap.Strings("xaddrs", p.XAddrs))
}

func (s *Session) snapshot() []*Probe {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Probe, 0, len(s.order))
	for _, urn := range s.order {
		out = append(out, s.devices[urn])
	}
	return out
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

// Stop ends a running probe early. It is a no-op when nothing is running.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		s.state = StateClosed
		return
	}
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
}

// Stream runs a probe and then hands each device to fn in discovery order,
// pausing the delivery delay between callbacks.
func (s *Session) Stream(ctx context.Context, fn func(*Probe)) error {
	probes, err := s.Run(ctx)
	if err != nil {
		return err
	}

	for i, p := range probes {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.deliveryDelay):
			}
		}
		fn(p)
	}
	return nil
}

// ProbeDevices runs a one-off multicast probe with the given wait window.
// The result is sorted by URN.
func ProbeDevices(ctx context.Context, wait time.Duration) ([]*Probe, error) {
	probes, err := NewSession(WithWait(wait)).Run(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(probes, func(i, j int) bool { return probes[i].URN < probes[j].URN })
	return probes, nil
}
