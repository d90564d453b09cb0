package device

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/onvifctl/internal/service"
	"github.com/muurk/onvifctl/internal/transport"
)

// ErrNoProfiles is returned by Init when the device lists no media profiles.
var ErrNoProfiles = errors.New("the targeted device does not have any media profiles")

// Init bootstraps the session: clock offset, capabilities, device
// information, media profiles and their stream and snapshot URIs.
//
// Clock and URI failures are logged and tolerated. Any other failure aborts
// Init and leaves the session as it was before the failing step.
func (d *Device) Init(ctx context.Context) (*Information, error) {
	d.syncTime(ctx)

	if err := d.resolveServices(ctx); err != nil {
		return nil, initError(err)
	}

	info, err := d.services.Device.GetDeviceInformation(ctx)
	if err != nil {
		return nil, initError(err)
	}
	d.mu.Lock()
	d.info = info
	d.mu.Unlock()

	profiles, err := d.fetchProfiles(ctx)
	if err != nil {
		return nil, initError(err)
	}

	d.resolveURIs(ctx, profiles)

	d.mu.Lock()
	d.profiles = profiles
	d.current = profiles[0]
	d.ptzMoving = false
	d.mu.Unlock()

	return info, nil
}

func initError(err error) error {
	return fmt.Errorf("failed to initialize the device: %w", err)
}

func (d *Device) syncTime(ctx context.Context) {
	dev := d.services.Device
	if _, err := dev.GetSystemDateAndTime(ctx); err != nil {
		d.logger.Debug("Could not read the device clock, assuming no offset", zap.Error(err))
		return
	}

	diff := dev.TimeDiff()
	d.mu.Lock()
	d.timeDiff = diff
	d.mu.Unlock()
	d.logger.Debug("Device clock offset", zap.Duration("time_diff", diff))
}

// resolveServices creates a client for every service the device
// advertises. Nothing is replaced unless GetCapabilities succeeds.
func (d *Device) resolveServices(ctx context.Context) error {
	caps, err := d.services.Device.GetCapabilities(ctx)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.services.Events = nil
	d.services.Media = nil
	d.services.PTZ = nil
	if caps.EventsXAddr != "" {
		d.services.Events = service.NewEventsService(d.serviceConfig(d.rewriteXAddr(caps.EventsXAddr)))
	}
	if caps.MediaXAddr != "" {
		d.services.Media = service.NewMediaService(d.serviceConfig(d.rewriteXAddr(caps.MediaXAddr)))
	}
	if caps.PTZXAddr != "" {
		d.services.PTZ = service.NewPTZService(d.serviceConfig(d.rewriteXAddr(caps.PTZXAddr)))
	}

	d.logger.Debug("Services resolved",
		zap.String("events", caps.EventsXAddr),
		zap.String("media", caps.MediaXAddr),
		zap.String("ptz", caps.PTZXAddr),
	)
	return nil
}

func (d *Device) fetchProfiles(ctx context.Context) ([]*Profile, error) {
	media := d.Services().Media
	if media == nil {
		return nil, transport.NewStateError("the device does not advertise a media service")
	}

	nodes, err := media.GetProfiles(ctx)
	if err != nil {
		return nil, err
	}
	profiles := parseProfiles(nodes)
	if len(profiles) == 0 {
		return nil, ErrNoProfiles
	}
	return profiles, nil
}

var streamProtocols = []string{service.ProtocolUDP, service.ProtocolHTTP, service.ProtocolRTSP}

// resolveURIs fills every profile's stream and snapshot URIs. Each
// (profile, protocol) slot succeeds or fails on its own.
func (d *Device) resolveURIs(ctx context.Context, profiles []*Profile) {
	media := d.Services().Media

	var g errgroup.Group
	g.SetLimit(d.uriLimit)

	for _, p := range profiles {
		for _, proto := range streamProtocols {
			g.Go(func() error {
				uri, err := media.GetStreamUri(ctx, p.Token, proto)
				if err != nil {
					d.logger.Warn("GetStreamUri failed",
						zap.String("profile", p.Token),
						zap.String("protocol", proto),
						zap.Error(err),
					)
					return nil
				}
				p.setStream(proto, d.rewriteURI(uri))
				return nil
			})
		}
	}
	_ = g.Wait()

	for _, p := range profiles {
		g.Go(func() error {
			uri, err := media.GetSnapshotUri(ctx, p.Token)
			if err != nil {
				d.logger.Warn("GetSnapshotUri failed", zap.String("profile", p.Token), zap.Error(err))
				return nil
			}
			p.Snapshot = d.rewriteSnapshotURI(uri)
			return nil
		})
	}
	_ = g.Wait()
}

func (p *Profile) setStream(protocol, uri string) {
	switch protocol {
	case service.ProtocolUDP:
		p.Stream.UDP = uri
	case service.ProtocolHTTP:
		p.Stream.HTTP = uri
	case service.ProtocolRTSP:
		p.Stream.RTSP = uri
	}
}
