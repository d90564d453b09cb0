package device

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/onvifctl/internal/httpauth"
	"github.com/muurk/onvifctl/internal/service"
	"github.com/muurk/onvifctl/internal/transport"
)

const (
	// DefaultPTZTimeout is how long a continuous move runs when the caller
	// does not say.
	DefaultPTZTimeout = time.Second

	maxSnapshotBytes = 32 << 20
)

// PTZMoveParams is a continuous move request. Speeds are in the device's
// generic velocity space, usually -1..1.
type PTZMoveParams struct {
	X, Y, Z float64
	Timeout time.Duration
}

func (d *Device) ptzTarget() (*service.PTZService, string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.current == nil {
		return nil, "", transport.NewStateError("no media profile is selected")
	}
	if d.services.PTZ == nil {
		return nil, "", transport.NewStateError("the device does not support PTZ")
	}
	return d.services.PTZ, d.current.Token, nil
}

// PTZMove starts a continuous move on the selected profile.
func (d *Device) PTZMove(ctx context.Context, p PTZMoveParams) error {
	ptz, token, err := d.ptzTarget()
	if err != nil {
		return err
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultPTZTimeout
	}
	if _, err := ptz.ContinuousMove(ctx, token, service.Vector{X: p.X, Y: p.Y, Z: p.Z}, timeout); err != nil {
		return err
	}

	d.mu.Lock()
	d.ptzMoving = true
	d.mu.Unlock()
	return nil
}

// PTZStop stops pan, tilt and zoom on the selected profile.
func (d *Device) PTZStop(ctx context.Context) error {
	ptz, token, err := d.ptzTarget()
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.ptzMoving = false
	d.mu.Unlock()

	_, err = ptz.Stop(ctx, token, true, true)
	return err
}

// PTZMoving reports whether a move was started and not yet stopped.
func (d *Device) PTZMoving() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ptzMoving
}

// Snapshot is one image fetched from the device.
type Snapshot struct {
	ContentType string
	Header      http.Header
	Body        []byte
}

// FetchSnapshot downloads a still image from the selected profile's
// snapshot URI, answering a Digest challenge if the device sends one.
func (d *Device) FetchSnapshot(ctx context.Context) (*Snapshot, error) {
	d.mu.RLock()
	current := d.current
	d.mu.RUnlock()

	if current == nil {
		return nil, transport.NewStateError("no media profile is selected")
	}
	if current.Snapshot == "" {
		return nil, transport.NewStateError("the device does not support snapshot or you have not been authorized by the device")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, current.Snapshot, nil)
	if err != nil {
		return nil, transport.NewValidationError(fmt.Sprintf("invalid snapshot URI %q: %v", current.Snapshot, err))
	}

	user, pass := d.credentials()
	resp, err := httpauth.NewClient(d.httpClient, user, pass).Do(req)
	if err != nil {
		return nil, transport.NewNetworkError("snapshot request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes))
	if err != nil {
		return nil, transport.NewNetworkError("failed to read snapshot", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, transport.NewHTTPError(resp.StatusCode, resp.Status, "")
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "image/jpeg"
	}
	lower := strings.ToLower(ct)

	switch {
	case strings.Contains(lower, "image/"):
		d.logger.Debug("Snapshot fetched", zap.String("content_type", ct), zap.Int("bytes", len(body)))
		return &Snapshot{ContentType: ct, Header: resp.Header, Body: body}, nil
	case strings.HasPrefix(lower, "text/"):
		return nil, fmt.Errorf("snapshot request returned text: %s", strings.TrimSpace(string(body)))
	default:
		return nil, fmt.Errorf("unexpected data: %s", ct)
	}
}
