package service

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/muurk/onvifctl/internal/soap"
)

// Caller sends one SOAP envelope and returns the parsed reply.
// *transport.Dispatcher implements it.
type Caller interface {
	Dispatch(ctx context.Context, endpoint, action, envelope string) (*soap.Result, error)
}

// Config holds what every service client needs.
type Config struct {
	XAddr    string
	Username string
	Password string
	// TimeDiff is the device clock minus the local clock.
	TimeDiff time.Duration
	Caller   Caller
	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// base carries the endpoint, credentials and clock offset shared by the
// service clients. All access goes through the mutex since SetAuth may run
// while requests are in flight.
type base struct {
	mu         sync.RWMutex
	xaddr      string
	username   string
	password   string
	timeDiff   time.Duration
	namespaces []soap.Namespace
	caller     Caller
	now        func() time.Time
}

func newBase(cfg Config, namespaces []soap.Namespace) base {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return base{
		xaddr:      cfg.XAddr,
		username:   cfg.Username,
		password:   cfg.Password,
		timeDiff:   cfg.TimeDiff,
		namespaces: namespaces,
		caller:     cfg.Caller,
		now:        now,
	}
}

// XAddr returns the service endpoint.
func (b *base) XAddr() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.xaddr
}

// URL returns the endpoint with the current credentials embedded as
// userinfo. An empty username yields the bare endpoint.
func (b *base) URL() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	u, err := url.Parse(b.xaddr)
	if err != nil {
		return b.xaddr
	}
	if b.username != "" {
		u.User = url.UserPassword(b.username, b.password)
	} else {
		u.User = nil
	}
	return u.String()
}

// SetAuth replaces the credentials used for later requests.
func (b *base) SetAuth(username, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.username = username
	b.password = password
}

// TimeDiff returns the device clock offset used for WS-Security tokens.
func (b *base) TimeDiff() time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.timeDiff
}

// SetTimeDiff sets the device clock offset.
func (b *base) SetTimeDiff(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.timeDiff = d
}

func (b *base) envelope(body string, signed bool) (string, error) {
	b.mu.RLock()
	opts := soap.EnvelopeOptions{
		Namespaces: b.namespaces,
		TimeDiff:   b.timeDiff,
		Body:       body,
		Now:        b.now,
	}
	if signed {
		opts.Username = b.username
		opts.Password = b.password
	}
	b.mu.RUnlock()

	return soap.BuildEnvelope(opts)
}

func (b *base) call(ctx context.Context, action, body string) (*soap.Result, error) {
	return b.send(ctx, action, body, true)
}

func (b *base) send(ctx context.Context, action, body string, signed bool) (*soap.Result, error) {
	env, err := b.envelope(body, signed)
	if err != nil {
		return nil, err
	}
	return b.caller.Dispatch(ctx, b.XAddr(), action, env)
}
