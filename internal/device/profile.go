package device

import (
	"strconv"

	"github.com/muurk/onvifctl/internal/soap"
)

// Profile is a media profile with its resolved URIs.
type Profile struct {
	Token string `json:"token" yaml:"token"`
	Name  string `json:"name" yaml:"name"`

	Video struct {
		Source  *VideoSource  `json:"source,omitempty" yaml:"source,omitempty"`
		Encoder *VideoEncoder `json:"encoder,omitempty" yaml:"encoder,omitempty"`
	} `json:"video" yaml:"video"`

	Audio struct {
		Source  *AudioSource  `json:"source,omitempty" yaml:"source,omitempty"`
		Encoder *AudioEncoder `json:"encoder,omitempty" yaml:"encoder,omitempty"`
	} `json:"audio" yaml:"audio"`

	Stream StreamURIs `json:"stream" yaml:"stream"`

	Snapshot string `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`

	PTZ struct {
		Range PTZRange `json:"range" yaml:"range"`
	} `json:"ptz" yaml:"ptz"`
}

// StreamURIs holds one stream URI per transport. Empty means the device
// did not return one.
type StreamURIs struct {
	UDP  string `json:"udp,omitempty" yaml:"udp,omitempty"`
	HTTP string `json:"http,omitempty" yaml:"http,omitempty"`
	RTSP string `json:"rtsp,omitempty" yaml:"rtsp,omitempty"`
}

// VideoSource is a profile's VideoSourceConfiguration.
type VideoSource struct {
	Token  string `json:"token" yaml:"token"`
	Name   string `json:"name" yaml:"name"`
	Bounds Bounds `json:"bounds" yaml:"bounds"`
}

// Bounds is a capture window.
type Bounds struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
}

// VideoEncoder is a profile's VideoEncoderConfiguration.
type VideoEncoder struct {
	Token      string     `json:"token" yaml:"token"`
	Name       string     `json:"name" yaml:"name"`
	Resolution Resolution `json:"resolution" yaml:"resolution"`
	Quality    int        `json:"quality" yaml:"quality"`
	FrameRate  int        `json:"framerate" yaml:"framerate"`
	Bitrate    int        `json:"bitrate" yaml:"bitrate"`
	Encoding   string     `json:"encoding" yaml:"encoding"`
}

// Resolution is an encoded frame size.
type Resolution struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// AudioSource is a profile's AudioSourceConfiguration.
type AudioSource struct {
	Token string `json:"token" yaml:"token"`
	Name  string `json:"name" yaml:"name"`
}

// AudioEncoder is a profile's AudioEncoderConfiguration.
type AudioEncoder struct {
	Token      string `json:"token" yaml:"token"`
	Name       string `json:"name" yaml:"name"`
	Bitrate    int    `json:"bitrate" yaml:"bitrate"`
	SampleRate int    `json:"samplerate" yaml:"samplerate"`
	Encoding   string `json:"encoding" yaml:"encoding"`
}

// AxisRange is the accepted range of one PTZ axis.
type AxisRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// PTZRange holds the pan (X), tilt (Y) and zoom (Z) ranges.
type PTZRange struct {
	X AxisRange `json:"x" yaml:"x"`
	Y AxisRange `json:"y" yaml:"y"`
	Z AxisRange `json:"z" yaml:"z"`
}

// parseProfiles converts GetProfiles elements into profiles, skipping any
// whose non-empty token was already seen.
func parseProfiles(nodes []*soap.Node) []*Profile {
	seen := make(map[string]bool, len(nodes))
	var out []*Profile
	for _, n := range nodes {
		p := parseProfile(n)
		if p.Token != "" {
			if seen[p.Token] {
				continue
			}
			seen[p.Token] = true
		}
		out = append(out, p)
	}
	return out
}

func parseProfile(n *soap.Node) *Profile {
	p := &Profile{
		Token: n.Attr("token"),
		Name:  n.TextAt("Name"),
	}

	if vs := n.Child("VideoSourceConfiguration"); vs != nil {
		b := vs.Child("Bounds")
		p.Video.Source = &VideoSource{
			Token: vs.Attr("token"),
			Name:  vs.TextAt("Name"),
			Bounds: Bounds{
				Width:  atoi(b.Attr("width")),
				Height: atoi(b.Attr("height")),
				X:      atoi(b.Attr("x")),
				Y:      atoi(b.Attr("y")),
			},
		}
	}

	if ve := n.Child("VideoEncoderConfiguration"); ve != nil {
		p.Video.Encoder = &VideoEncoder{
			Token: ve.Attr("token"),
			Name:  ve.TextAt("Name"),
			Resolution: Resolution{
				Width:  atoi(ve.TextAt("Resolution", "Width")),
				Height: atoi(ve.TextAt("Resolution", "Height")),
			},
			Quality:   atoi(ve.TextAt("Quality")),
			FrameRate: atoi(ve.TextAt("RateControl", "FrameRateLimit")),
			Bitrate:   atoi(ve.TextAt("RateControl", "BitrateLimit")),
			Encoding:  ve.TextAt("Encoding"),
		}
	}

	if as := n.Child("AudioSourceConfiguration"); as != nil {
		p.Audio.Source = &AudioSource{
			Token: as.Attr("token"),
			Name:  as.TextAt("Name"),
		}
	}

	if ae := n.Child("AudioEncoderConfiguration"); ae != nil {
		p.Audio.Encoder = &AudioEncoder{
			Token:      ae.Attr("token"),
			Name:       ae.TextAt("Name"),
			Bitrate:    atoi(ae.TextAt("Bitrate")),
			SampleRate: atoi(ae.TextAt("SampleRate")),
			Encoding:   ae.TextAt("Encoding"),
		}
	}

	if ptz := n.Child("PTZConfiguration"); ptz != nil {
		p.PTZ.Range.X = parseAxis(ptz.Path("PanTiltLimits", "Range", "XRange"))
		p.PTZ.Range.Y = parseAxis(ptz.Path("PanTiltLimits", "Range", "YRange"))
		p.PTZ.Range.Z = parseAxis(ptz.Path("ZoomLimits", "Range", "XRange"))
	}

	return p
}

// parseAxis reads Min/Max. Either bound that is missing or malformed
// leaves the whole axis zeroed.
func parseAxis(n *soap.Node) AxisRange {
	if n == nil {
		return AxisRange{}
	}
	lo, err := strconv.ParseFloat(n.TextAt("Min"), 64)
	if err != nil {
		return AxisRange{}
	}
	hi, err := strconv.ParseFloat(n.TextAt("Max"), 64)
	if err != nil {
		return AxisRange{}
	}
	return AxisRange{Min: lo, Max: hi}
}

func atoi(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}
