package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/muurk/onvifctl/internal/soap"
)

// PTZNamespaces are declared on every PTZ envelope.
var PTZNamespaces = []soap.Namespace{
	{Prefix: "ter", URI: "http://www.onvif.org/ver10/error"},
	{Prefix: "xs", URI: "http://www.w3.org/2001/XMLSchema"},
	{Prefix: "tt", URI: "http://www.onvif.org/ver10/schema"},
	{Prefix: "tptz", URI: "http://www.onvif.org/ver20/ptz/wsdl"},
}

// PTZService is a client for the ONVIF PTZ service.
type PTZService struct {
	base
}

// NewPTZService creates a PTZ client.
func NewPTZService(cfg Config) *PTZService {
	return &PTZService{base: newBase(cfg, PTZNamespaces)}
}

// Vector is a pan/tilt/zoom triple. X and Y are pan and tilt, Z is zoom.
type Vector struct {
	X, Y, Z float64
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// writeVector writes PanTilt and Zoom children. Axes that are all zero are
// left out so devices without zoom do not reject the request.
func writeVector(b *strings.Builder, v Vector, always bool) {
	if always || v.X != 0 || v.Y != 0 {
		b.WriteString(`<tt:PanTilt x="` + formatFloat(v.X) + `" y="` + formatFloat(v.Y) + `"/>`)
	}
	if always || v.Z != 0 {
		b.WriteString(`<tt:Zoom x="` + formatFloat(v.Z) + `"/>`)
	}
}

func writeSpeed(b *strings.Builder, speed *Vector) {
	if speed == nil {
		return
	}
	b.WriteString("<tptz:Speed>")
	writeVector(b, *speed, false)
	b.WriteString("</tptz:Speed>")
}

// FormatTimeout renders d as an xs:duration in seconds, e.g. "PT1S".
func FormatTimeout(d time.Duration) string {
	return "PT" + formatFloat(d.Seconds()) + "S"
}

func profileElement(token string) string {
	return "<tptz:ProfileToken>" + soap.Escape(token) + "</tptz:ProfileToken>"
}

// ContinuousMove starts moving at the given velocity. A positive timeout
// makes the device stop on its own.
func (s *PTZService) ContinuousMove(ctx context.Context, profileToken string, velocity Vector, timeout time.Duration) (*soap.Result, error) {
	var b strings.Builder
	b.WriteString("<tptz:ContinuousMove>")
	b.WriteString(profileElement(profileToken))
	b.WriteString("<tptz:Velocity>")
	if velocity == (Vector{}) {
		writeVector(&b, velocity, true)
	} else {
		writeVector(&b, velocity, false)
	}
	b.WriteString("</tptz:Velocity>")
	if timeout > 0 {
		b.WriteString("<tptz:Timeout>" + FormatTimeout(timeout) + "</tptz:Timeout>")
	}
	b.WriteString("</tptz:ContinuousMove>")

	return s.call(ctx, "ContinuousMove", b.String())
}

// AbsoluteMove moves to an absolute position.
func (s *PTZService) AbsoluteMove(ctx context.Context, profileToken string, position Vector, speed *Vector) (*soap.Result, error) {
	var b strings.Builder
	b.WriteString("<tptz:AbsoluteMove>")
	b.WriteString(profileElement(profileToken))
	b.WriteString("<tptz:Position>")
	writeVector(&b, position, true)
	b.WriteString("</tptz:Position>")
	writeSpeed(&b, speed)
	b.WriteString("</tptz:AbsoluteMove>")

	return s.call(ctx, "AbsoluteMove", b.String())
}

// RelativeMove moves by a translation relative to the current position.
func (s *PTZService) RelativeMove(ctx context.Context, profileToken string, translation Vector, speed *Vector) (*soap.Result, error) {
	var b strings.Builder
	b.WriteString("<tptz:RelativeMove>")
	b.WriteString(profileElement(profileToken))
	b.WriteString("<tptz:Translation>")
	writeVector(&b, translation, true)
	b.WriteString("</tptz:Translation>")
	writeSpeed(&b, speed)
	b.WriteString("</tptz:RelativeMove>")

	return s.call(ctx, "RelativeMove", b.String())
}

// Stop halts pan/tilt, zoom, or both.
func (s *PTZService) Stop(ctx context.Context, profileToken string, panTilt, zoom bool) (*soap.Result, error) {
	var b strings.Builder
	b.WriteString("<tptz:Stop>")
	b.WriteString(profileElement(profileToken))
	if panTilt {
		b.WriteString("<tptz:PanTilt>true</tptz:PanTilt>")
	}
	if zoom {
		b.WriteString("<tptz:Zoom>true</tptz:Zoom>")
	}
	b.WriteString("</tptz:Stop>")

	return s.call(ctx, "Stop", b.String())
}

// GotoHomePosition moves to the configured home position.
func (s *PTZService) GotoHomePosition(ctx context.Context, profileToken string, speed *Vector) (*soap.Result, error) {
	var b strings.Builder
	b.WriteString("<tptz:GotoHomePosition>")
	b.WriteString(profileElement(profileToken))
	writeSpeed(&b, speed)
	b.WriteString("</tptz:GotoHomePosition>")

	return s.call(ctx, "GotoHomePosition", b.String())
}

// Preset is a stored PTZ position.
type Preset struct {
	Token string
	Name  string
}

// GetPresets lists the stored presets of a profile.
func (s *PTZService) GetPresets(ctx context.Context, profileToken string) ([]Preset, error) {
	const action = "GetPresets"
	res, err := s.call(ctx, action, "<tptz:GetPresets>"+profileElement(profileToken)+"</tptz:GetPresets>")
	if err != nil {
		return nil, err
	}

	var presets []Preset
	for _, n := range res.Payload(action).ChildrenNamed("Preset") {
		presets = append(presets, Preset{Token: n.Attr("token"), Name: n.TextAt("Name")})
	}
	return presets, nil
}

// GotoPreset moves to a stored preset.
func (s *PTZService) GotoPreset(ctx context.Context, profileToken, presetToken string, speed *Vector) (*soap.Result, error) {
	var b strings.Builder
	b.WriteString("<tptz:GotoPreset>")
	b.WriteString(profileElement(profileToken))
	b.WriteString("<tptz:PresetToken>" + soap.Escape(presetToken) + "</tptz:PresetToken>")
	writeSpeed(&b, speed)
	b.WriteString("</tptz:GotoPreset>")

	return s.call(ctx, "GotoPreset", b.String())
}

// PTZStatus is the current position and movement state.
type PTZStatus struct {
	Position      Vector
	PanTiltStatus string
	ZoomStatus    string
	UTCTime       string
}

// GetStatus reads the current position of a profile's PTZ node.
func (s *PTZService) GetStatus(ctx context.Context, profileToken string) (*PTZStatus, error) {
	const action = "GetStatus"
	res, err := s.call(ctx, action, "<tptz:GetStatus>"+profileElement(profileToken)+"</tptz:GetStatus>")
	if err != nil {
		return nil, err
	}

	st := res.Payload(action).Child("PTZStatus")
	pos := st.Child("Position")
	return &PTZStatus{
		Position: Vector{
			X: parseFloat(pos.Child("PanTilt").Attr("x")),
			Y: parseFloat(pos.Child("PanTilt").Attr("y")),
			Z: parseFloat(pos.Child("Zoom").Attr("x")),
		},
		PanTiltStatus: st.TextAt("MoveStatus", "PanTilt"),
		ZoomStatus:    st.TextAt("MoveStatus", "Zoom"),
		UTCTime:       st.TextAt("UtcTime"),
	}, nil
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
