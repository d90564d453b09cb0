package discovery

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/onvifctl/internal/soap"
)

// responder answers every probe on a loopback socket with the given
// replies, in order.
type responder struct {
	conn     net.PacketConn
	probes   atomic.Int32
	mu       sync.Mutex
	messages []string
}

func newResponder(t *testing.T, replies ...string) *responder {
	t.Helper()
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	r := &responder{conn: conn}
	t.Cleanup(func() { _ = conn.Close() })

	go func() {
		buf := make([]byte, maxDatagram)
		for {
			n, from, err := conn.ReadFrom(buf)
			if err != nil {
				return
			}
			r.probes.Add(1)
			r.mu.Lock()
			r.messages = append(r.messages, string(buf[:n]))
			r.mu.Unlock()
			for _, reply := range replies {
				_, _ = conn.WriteTo([]byte(reply), from)
			}
		}
	}()
	return r
}

func testSession(r *responder, opts ...Option) *Session {
	base := []Option{
		WithTarget(r.conn.LocalAddr().String()),
		WithListenAddress("127.0.0.1:0"),
		WithInterval(5 * time.Millisecond),
		WithWait(300 * time.Millisecond),
		WithDeliveryDelay(time.Millisecond),
	}
	return NewSession(append(base, opts...)...)
}

func TestSessionRunDedupsByURN(t *testing.T) {
	a := probeMatch("urn:uuid:a", "http://10.0.0.1/onvif/device_service", "onvif://www.onvif.org/name/First", "")
	aLater := probeMatch("urn:uuid:a", "http://10.0.0.9/onvif/device_service", "onvif://www.onvif.org/name/Second", "")
	b := probeMatch("urn:uuid:b", "http://10.0.0.2/onvif/device_service", "onvif://www.onvif.org/name/Other", "")
	r := newResponder(t, a, aLater, "garbage", b)

	s := testSession(r)
	probes, err := s.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, probes, 2)
	assert.Equal(t, "urn:uuid:a", probes[0].URN)
	assert.Equal(t, "First", probes[0].Name, "first reply per URN wins")
	assert.Equal(t, "urn:uuid:b", probes[1].URN)
	assert.NotEmpty(t, probes[0].From)
	assert.Equal(t, StateCompleted, s.State())

	assert.Equal(t, int32(DefaultRetries*len(DefaultTypes)), r.probes.Load())
}

func TestSessionProbeMessages(t *testing.T) {
	r := newResponder(t)

	s := testSession(r, WithRetries(2), WithTypes("NetworkVideoTransmitter", "Device"))
	_, err := s.Run(context.Background())
	require.NoError(t, err)

	r.mu.Lock()
	defer r.mu.Unlock()
	require.Len(t, r.messages, 4)

	ids := make([]string, len(r.messages))
	for i, m := range r.messages {
		root, err := soap.Parse([]byte(m))
		require.NoError(t, err)
		ids[i] = root.TextAt("Header", "MessageID")
		assert.Regexp(t, `^uuid:[0-9a-f-]{36}$`, ids[i])
	}
	assert.Contains(t, r.messages[0], "dp0:NetworkVideoTransmitter")
	assert.Contains(t, r.messages[1], "dp0:Device")
	assert.NotEqual(t, ids[0], ids[1])
	assert.Equal(t, ids[0], ids[2], "retries reuse the MessageID of their type")
}

func TestSessionRunResetsDevices(t *testing.T) {
	a := probeMatch("urn:uuid:a", "http://10.0.0.1/onvif/device_service", "onvif://www.onvif.org/name/A", "")
	r := newResponder(t, a)
	s := testSession(r, WithRetries(1), WithTypes("Device"))

	first, err := s.Run(context.Background())
	require.NoError(t, err)
	second, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, first, 1)
	assert.Len(t, second, 1)
	assert.NotSame(t, first[0], second[0])
}

func TestSessionStop(t *testing.T) {
	a := probeMatch("urn:uuid:a", "http://10.0.0.1/onvif/device_service", "onvif://www.onvif.org/name/A", "")
	r := newResponder(t, a)
	s := testSession(r, WithWait(10*time.Second))

	done := make(chan struct{})
	var probes []*Probe
	var runErr error
	go func() {
		defer close(done)
		probes, runErr = s.Run(context.Background())
	}()

	require.Eventually(t, func() bool { return r.probes.Load() > 0 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
	assert.NoError(t, runErr)
	assert.Len(t, probes, 1)
	assert.Equal(t, StateClosed, s.State())
}

func TestSessionConcurrentRun(t *testing.T) {
	r := newResponder(t)
	s := testSession(r, WithWait(500*time.Millisecond))

	go func() { _, _ = s.Run(context.Background()) }()
	require.Eventually(t, func() bool { return s.State() == StateProbing || s.State() == StateCollecting }, time.Second, time.Millisecond)

	_, err := s.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	s.Stop()
}

func TestSessionBindFailure(t *testing.T) {
	s := NewSession(WithListenAddress("256.0.0.1:0"), WithWait(10*time.Millisecond))

	_, err := s.Run(context.Background())
	assert.Error(t, err)
	assert.Equal(t, StateFailed, s.State())
}

func TestSessionStream(t *testing.T) {
	a := probeMatch("urn:uuid:a", "http://10.0.0.1/onvif/device_service", "onvif://www.onvif.org/name/A", "")
	b := probeMatch("urn:uuid:b", "http://10.0.0.2/onvif/device_service", "onvif://www.onvif.org/name/B", "")
	r := newResponder(t, a, b)
	s := testSession(r, WithRetries(1), WithTypes("Device"), WithDeliveryDelay(20*time.Millisecond))

	var got []string
	var stamps []time.Time
	err := s.Stream(context.Background(), func(p *Probe) {
		got = append(got, p.URN)
		stamps = append(stamps, time.Now())
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"urn:uuid:a", "urn:uuid:b"}, got)
	require.Len(t, stamps, 2)
	assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), 20*time.Millisecond)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Idle", StateIdle.String())
	assert.Equal(t, "Collecting", StateCollecting.String())
	assert.Equal(t, "Closed", StateClosed.String())
	assert.Equal(t, "State(42)", State(42).String())
}
