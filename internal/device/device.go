package device

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/onvifctl/internal/logging"
	"github.com/muurk/onvifctl/internal/service"
	"github.com/muurk/onvifctl/internal/transport"
)

// DefaultURIConcurrency resolves stream and snapshot URIs one at a time.
const DefaultURIConcurrency = 1

// Information identifies the device hardware and firmware.
type Information = service.DeviceInformation

// Config describes how to reach a device.
type Config struct {
	// XAddr is the full device service URL. It takes precedence over Address.
	XAddr string
	// Address is a bare host[:port]. Every URL the device reports is then
	// rewritten to use this host, for devices behind NAT or a proxy.
	Address string

	Username string
	Password string

	// Caller sends SOAP requests. Nil means a new transport.Dispatcher.
	Caller service.Caller
	// HTTPClient fetches snapshots. Nil means a client bounded by
	// transport.DefaultTimeout.
	HTTPClient *http.Client

	// URIConcurrency bounds parallel GetStreamUri/GetSnapshotUri calls.
	URIConcurrency int

	Logger *zap.Logger
	Now    func() time.Time
}

// Services holds the service clients resolved from the device
// capabilities. Clients the device does not advertise are nil.
type Services struct {
	Device *service.DeviceService
	Events *service.EventsService
	Media  *service.MediaService
	PTZ    *service.PTZService
}

// Device is one ONVIF device session.
type Device struct {
	address    string
	keepAddr   bool
	caller     service.Caller
	httpClient *http.Client
	uriLimit   int
	logger     *zap.Logger
	now        func() time.Time

	mu        sync.RWMutex
	username  string
	password  string
	timeDiff  time.Duration
	services  Services
	info      *Information
	profiles  []*Profile
	current   *Profile
	ptzMoving bool
}

// New creates a device session. Nothing is sent until Init.
func New(cfg Config) (*Device, error) {
	d := &Device{
		caller:     cfg.Caller,
		httpClient: cfg.HTTPClient,
		uriLimit:   cfg.URIConcurrency,
		logger:     cfg.Logger,
		now:        cfg.Now,
		username:   cfg.Username,
		password:   cfg.Password,
	}

	var xaddr string
	switch {
	case cfg.XAddr != "":
		u, err := url.Parse(cfg.XAddr)
		if err != nil || u.Host == "" {
			return nil, transport.NewValidationError("invalid device XAddr: " + cfg.XAddr)
		}
		xaddr = cfg.XAddr
		d.address = u.Hostname()
	case cfg.Address != "":
		d.address = cfg.Address
		d.keepAddr = true
		xaddr = "http://" + cfg.Address + "/onvif/device_service"
	default:
		return nil, transport.NewValidationError("either an XAddr or an address is required")
	}

	if d.caller == nil {
		d.caller = transport.NewDispatcher()
	}
	if d.httpClient == nil {
		d.httpClient = &http.Client{Timeout: transport.DefaultTimeout}
	}
	if d.uriLimit < 1 {
		d.uriLimit = DefaultURIConcurrency
	}
	if d.logger == nil {
		d.logger = logging.Named("device")
	}

	d.services.Device = service.NewDeviceService(d.serviceConfig(xaddr))
	return d, nil
}

func (d *Device) serviceConfig(xaddr string) service.Config {
	return service.Config{
		XAddr:    xaddr,
		Username: d.username,
		Password: d.password,
		TimeDiff: d.timeDiff,
		Caller:   d.caller,
		Now:      d.now,
	}
}

// Address returns the host this session talks to.
func (d *Device) Address() string { return d.address }

// XAddr returns the device service URL.
func (d *Device) XAddr() string { return d.services.Device.XAddr() }

// SessionURL returns the device service URL with the current credentials
// embedded as userinfo.
func (d *Device) SessionURL() string { return d.services.Device.URL() }

// Information returns the identity read by Init, or nil before Init.
func (d *Device) Information() *Information {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.info
}

// Profiles returns the media profiles read by Init.
func (d *Device) Profiles() []*Profile {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Profile, len(d.profiles))
	copy(out, d.profiles)
	return out
}

// CurrentProfile returns the selected profile, or nil.
func (d *Device) CurrentProfile() *Profile {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current
}

// Services returns the resolved service clients.
func (d *Device) Services() Services {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.services
}

// TimeDiff returns the device clock minus the local clock.
func (d *Device) TimeDiff() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.timeDiff
}

// SelectProfileIndex selects the profile at index i.
func (d *Device) SelectProfileIndex(i int) (*Profile, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i < 0 || i >= len(d.profiles) {
		return nil, false
	}
	d.current = d.profiles[i]
	return d.current, true
}

// SelectProfileToken selects the first profile with the given token.
func (d *Device) SelectProfileToken(token string) (*Profile, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.profiles {
		if p.Token == token {
			d.current = p
			return p, true
		}
	}
	return nil, false
}

// UDPStreamURL returns the UDP stream URI of the selected profile, or "".
func (d *Device) UDPStreamURL() string {
	p := d.CurrentProfile()
	if p == nil {
		return ""
	}
	return p.Stream.UDP
}

// SetAuth replaces the credentials on the session and every resolved
// service. An empty username removes credentials from URLs.
func (d *Device) SetAuth(username, password string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.username = username
	d.password = password

	s := d.services
	if s.Device != nil {
		s.Device.SetAuth(username, password)
	}
	if s.Events != nil {
		s.Events.SetAuth(username, password)
	}
	if s.Media != nil {
		s.Media.SetAuth(username, password)
	}
	if s.PTZ != nil {
		s.PTZ.SetAuth(username, password)
	}
}

func (d *Device) credentials() (string, string) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.username, d.password
}
