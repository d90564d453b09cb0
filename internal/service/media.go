package service

import (
	"context"

	"github.com/muurk/onvifctl/internal/soap"
)

// MediaNamespaces are declared on every media envelope.
var MediaNamespaces = []soap.Namespace{
	{Prefix: "trt", URI: "http://www.onvif.org/ver10/media/wsdl"},
	{Prefix: "tt", URI: "http://www.onvif.org/ver10/schema"},
}

// Stream transport protocols accepted by GetStreamUri.
const (
	ProtocolUDP  = "UDP"
	ProtocolHTTP = "HTTP"
	ProtocolRTSP = "RTSP"
)

// MediaService is a client for the ONVIF media service.
type MediaService struct {
	base
}

// NewMediaService creates a media client.
func NewMediaService(cfg Config) *MediaService {
	return &MediaService{base: newBase(cfg, MediaNamespaces)}
}

// GetProfiles returns the raw Profiles elements in document order. A device
// with one profile yields a one-element slice.
func (s *MediaService) GetProfiles(ctx context.Context) ([]*soap.Node, error) {
	const action = "GetProfiles"
	res, err := s.call(ctx, action, "<trt:GetProfiles/>")
	if err != nil {
		return nil, err
	}
	return res.Payload(action).ChildrenNamed("Profiles"), nil
}

// GetStreamUri returns the RTP unicast stream URI of a profile over the
// given transport protocol.
func (s *MediaService) GetStreamUri(ctx context.Context, profileToken, protocol string) (string, error) {
	const action = "GetStreamUri"
	body := "<trt:GetStreamUri>" +
		"<trt:StreamSetup>" +
		"<tt:Stream>RTP-Unicast</tt:Stream>" +
		"<tt:Transport><tt:Protocol>" + soap.Escape(protocol) + "</tt:Protocol></tt:Transport>" +
		"</trt:StreamSetup>" +
		"<trt:ProfileToken>" + soap.Escape(profileToken) + "</trt:ProfileToken>" +
		"</trt:GetStreamUri>"

	res, err := s.call(ctx, action, body)
	if err != nil {
		return "", err
	}
	return res.Payload(action).TextAt("MediaUri", "Uri"), nil
}

// GetSnapshotUri returns the JPEG snapshot URI of a profile.
func (s *MediaService) GetSnapshotUri(ctx context.Context, profileToken string) (string, error) {
	const action = "GetSnapshotUri"
	body := "<trt:GetSnapshotUri>" +
		"<trt:ProfileToken>" + soap.Escape(profileToken) + "</trt:ProfileToken>" +
		"</trt:GetSnapshotUri>"

	res, err := s.call(ctx, action, body)
	if err != nil {
		return "", err
	}
	return res.Payload(action).TextAt("MediaUri", "Uri"), nil
}
