package config

import (
	"sort"
	"time"
)

// Registry is the whole user configuration file.
type Registry struct {
	Version     int                `yaml:"version"`
	Cameras     map[string]*Camera `yaml:"cameras,omitempty"` // Keyed by camera name
	Preferences *Preferences       `yaml:"preferences,omitempty"`
}

// Camera is a saved camera. Passwords are never stored.
type Camera struct {
	Nickname string    `yaml:"nickname,omitempty"`
	Address  string    `yaml:"address,omitempty"` // host[:port], enables URL rewriting
	XAddr    string    `yaml:"xaddr,omitempty"`   // full device service URL
	URN      string    `yaml:"urn,omitempty"`     // WS-Discovery endpoint reference
	Username string    `yaml:"username,omitempty"`
	Hardware string    `yaml:"hardware,omitempty"`
	LastSeen time.Time `yaml:"last_seen,omitempty"`
}

// Preferences are application-wide defaults. CLI flags override them.
type Preferences struct {
	DiscoverTimeout int    `yaml:"discover_timeout"` // seconds
	HTTPTimeout     int    `yaml:"http_timeout"`     // seconds
	DefaultUsername string `yaml:"default_username,omitempty"`
	URIConcurrency  int    `yaml:"uri_concurrency"`
}

// DefaultPreferences returns the preferences used when none are saved.
func DefaultPreferences() *Preferences {
	return &Preferences{
		DiscoverTimeout: 3,
		HTTPTimeout:     3,
		DefaultUsername: "admin",
		URIConcurrency:  1,
	}
}

// DiscoverWait returns DiscoverTimeout as a duration.
func (p *Preferences) DiscoverWait() time.Duration {
	return time.Duration(p.DiscoverTimeout) * time.Second
}

// RequestTimeout returns HTTPTimeout as a duration.
func (p *Preferences) RequestTimeout() time.Duration {
	return time.Duration(p.HTTPTimeout) * time.Second
}

// NewRegistry creates a Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Cameras:     make(map[string]*Camera),
		Preferences: DefaultPreferences(),
	}
}

// GetCamera returns the camera saved under name, or nil.
func (r *Registry) GetCamera(name string) *Camera {
	return r.Cameras[name]
}

// FindCamera looks a camera up by name, then by URN, then by address.
// It returns the key it was found under.
func (r *Registry) FindCamera(ref string) (string, *Camera) {
	if c, ok := r.Cameras[ref]; ok {
		return ref, c
	}
	for _, name := range r.Names() {
		c := r.Cameras[name]
		if c.URN == ref || c.Address == ref {
			return name, c
		}
	}
	return "", nil
}

// EnsureCamera returns the camera saved under name, creating it if needed.
func (r *Registry) EnsureCamera(name string) *Camera {
	if r.Cameras == nil {
		r.Cameras = make(map[string]*Camera)
	}
	if c, ok := r.Cameras[name]; ok {
		return c
	}
	c := &Camera{}
	r.Cameras[name] = c
	return c
}

// RememberProbe records a discovered camera, refreshing LastSeen. An
// existing entry with the same URN is updated in place.
func (r *Registry) RememberProbe(name, urn, xaddr, hardware string) *Camera {
	key := name
	for _, n := range r.Names() {
		if urn != "" && r.Cameras[n].URN == urn {
			key = n
			break
		}
	}

	c := r.EnsureCamera(key)
	c.URN = urn
	c.XAddr = xaddr
	if hardware != "" {
		c.Hardware = hardware
	}
	c.LastSeen = time.Now()
	return c
}

// RemoveCamera deletes a camera. It reports whether one was removed.
func (r *Registry) RemoveCamera(name string) bool {
	if _, ok := r.Cameras[name]; !ok {
		return false
	}
	delete(r.Cameras, name)
	return true
}

// Names returns the camera names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.Cameras))
	for n := range r.Cameras {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
