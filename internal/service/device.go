package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/onvifctl/internal/logging"
	"github.com/muurk/onvifctl/internal/soap"
	"github.com/muurk/onvifctl/internal/transport"
)

// DeviceNamespaces are declared on every device management envelope.
var DeviceNamespaces = []soap.Namespace{
	{Prefix: "tds", URI: "http://www.onvif.org/ver10/device/wsdl"},
	{Prefix: "tt", URI: "http://www.onvif.org/ver10/schema"},
}

// DeviceService is a client for the ONVIF device management service.
type DeviceService struct {
	base
}

// NewDeviceService creates a device management client.
func NewDeviceService(cfg Config) *DeviceService {
	return &DeviceService{base: newBase(cfg, DeviceNamespaces)}
}

// SystemDateAndTime is the device clock as reported by GetSystemDateAndTime.
type SystemDateAndTime struct {
	DateTimeType    string
	DaylightSavings bool
	TimeZone        string
	// UTC is the zero time when the device omitted or garbled UTCDateTime.
	UTC time.Time
}

// GetSystemDateAndTime reads the device clock. The request is sent without
// credentials first, since many devices allow it anonymously, and repeated
// with a UsernameToken if that fails. A successful read updates TimeDiff.
func (s *DeviceService) GetSystemDateAndTime(ctx context.Context) (*SystemDateAndTime, error) {
	const action = "GetSystemDateAndTime"
	body := "<tds:GetSystemDateAndTime/>"

	res, err := s.send(ctx, action, body, false)
	if err != nil {
		logging.Debug("Anonymous GetSystemDateAndTime failed, retrying with credentials",
			zap.String("xaddr", s.XAddr()),
			zap.Error(err),
		)
		res, err = s.call(ctx, action, body)
		if err != nil {
			return nil, err
		}
	}

	dt := parseSystemDateAndTime(res.Payload(action).Child("SystemDateAndTime"))
	if !dt.UTC.IsZero() {
		s.SetTimeDiff(dt.UTC.Sub(s.now()))
	}
	return dt, nil
}

func parseSystemDateAndTime(n *soap.Node) *SystemDateAndTime {
	dt := &SystemDateAndTime{
		DateTimeType:    n.TextAt("DateTimeType"),
		DaylightSavings: n.TextAt("DaylightSavings") == "true",
		TimeZone:        n.TextAt("TimeZone", "TZ"),
	}

	date := n.Path("UTCDateTime", "Date")
	clock := n.Path("UTCDateTime", "Time")
	fields := []string{
		date.TextAt("Year"), date.TextAt("Month"), date.TextAt("Day"),
		clock.TextAt("Hour"), clock.TextAt("Minute"), clock.TextAt("Second"),
	}

	var v [6]int
	for i, f := range fields {
		x, err := strconv.Atoi(f)
		if err != nil {
			return dt
		}
		v[i] = x
	}
	dt.UTC = time.Date(v[0], time.Month(v[1]), v[2], v[3], v[4], v[5], 0, time.UTC)
	return dt
}

// SetSystemDateAndTimeParams configures the device clock.
type SetSystemDateAndTimeParams struct {
	DateTimeType    string // "NTP" or "Manual"
	DaylightSavings bool
	TimeZone        string
	// UTCDateTime is sent only when non-zero.
	UTCDateTime time.Time
}

// SetSystemDateAndTime sets the device clock. TimeZone is validated before
// anything is sent.
func (s *DeviceService) SetSystemDateAndTime(ctx context.Context, p SetSystemDateAndTimeParams) (*soap.Result, error) {
	if err := ValidateTimeZone(p.TimeZone); err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("<tds:SetSystemDateAndTime>")
	b.WriteString("<tds:DateTimeType>" + soap.Escape(p.DateTimeType) + "</tds:DateTimeType>")
	b.WriteString("<tds:DaylightSavings>" + strconv.FormatBool(p.DaylightSavings) + "</tds:DaylightSavings>")
	b.WriteString("<tds:TimeZone><tt:TZ>" + p.TimeZone + "</tt:TZ></tds:TimeZone>")
	if !p.UTCDateTime.IsZero() {
		t := p.UTCDateTime.UTC()
		fmt.Fprintf(&b, "<tds:UTCDateTime><tt:Time><tt:Hour>%d</tt:Hour><tt:Minute>%d</tt:Minute><tt:Second>%d</tt:Second></tt:Time>",
			t.Hour(), t.Minute(), t.Second())
		fmt.Fprintf(&b, "<tt:Date><tt:Year>%d</tt:Year><tt:Month>%d</tt:Month><tt:Day>%d</tt:Day></tt:Date></tds:UTCDateTime>",
			t.Year(), int(t.Month()), t.Day())
	}
	b.WriteString("</tds:SetSystemDateAndTime>")

	return s.call(ctx, "SetSystemDateAndTime", b.String())
}

// Capabilities lists the service endpoints a device advertises.
type Capabilities struct {
	DeviceXAddr    string
	EventsXAddr    string
	MediaXAddr     string
	PTZXAddr       string
	ImagingXAddr   string
	AnalyticsXAddr string
}

// GetCapabilities asks for all capability categories.
func (s *DeviceService) GetCapabilities(ctx context.Context) (*Capabilities, error) {
	const action = "GetCapabilities"
	res, err := s.call(ctx, action, "<tds:GetCapabilities><tds:Category>All</tds:Category></tds:GetCapabilities>")
	if err != nil {
		return nil, err
	}

	c := res.Payload(action).Child("Capabilities")
	if c == nil {
		return nil, transport.NewParseError("no capabilities were found", nil)
	}

	return &Capabilities{
		DeviceXAddr:    c.TextAt("Device", "XAddr"),
		EventsXAddr:    c.TextAt("Events", "XAddr"),
		MediaXAddr:     c.TextAt("Media", "XAddr"),
		PTZXAddr:       c.TextAt("PTZ", "XAddr"),
		ImagingXAddr:   c.TextAt("Imaging", "XAddr"),
		AnalyticsXAddr: c.TextAt("Analytics", "XAddr"),
	}, nil
}

// DeviceInformation identifies the device hardware and firmware.
type DeviceInformation struct {
	Manufacturer    string `json:"manufacturer" yaml:"manufacturer"`
	Model           string `json:"model" yaml:"model"`
	FirmwareVersion string `json:"firmware_version" yaml:"firmware_version"`
	SerialNumber    string `json:"serial_number" yaml:"serial_number"`
	HardwareID      string `json:"hardware_id" yaml:"hardware_id"`
}

// GetDeviceInformation reads manufacturer, model and version details.
func (s *DeviceService) GetDeviceInformation(ctx context.Context) (*DeviceInformation, error) {
	const action = "GetDeviceInformation"
	res, err := s.call(ctx, action, "<tds:GetDeviceInformation/>")
	if err != nil {
		return nil, err
	}

	p := res.Payload(action)
	return &DeviceInformation{
		Manufacturer:    p.TextAt("Manufacturer"),
		Model:           p.TextAt("Model"),
		FirmwareVersion: p.TextAt("FirmwareVersion"),
		SerialNumber:    p.TextAt("SerialNumber"),
		HardwareID:      p.TextAt("HardwareId"),
	}, nil
}

// GetHostname returns the configured hostname.
func (s *DeviceService) GetHostname(ctx context.Context) (string, error) {
	const action = "GetHostname"
	res, err := s.call(ctx, action, "<tds:GetHostname/>")
	if err != nil {
		return "", err
	}
	return res.Payload(action).TextAt("HostnameInformation", "Name"), nil
}

// GetScopes returns the device's scope URIs.
func (s *DeviceService) GetScopes(ctx context.Context) ([]string, error) {
	const action = "GetScopes"
	res, err := s.call(ctx, action, "<tds:GetScopes/>")
	if err != nil {
		return nil, err
	}

	var scopes []string
	for _, n := range res.Payload(action).ChildrenNamed("Scopes") {
		if item := n.TextAt("ScopeItem"); item != "" {
			scopes = append(scopes, item)
		}
	}
	return scopes, nil
}

// ServiceInfo describes one entry of GetServices.
type ServiceInfo struct {
	Namespace string
	XAddr     string
	Version   string
}

// GetServices lists the services the device implements.
func (s *DeviceService) GetServices(ctx context.Context) ([]ServiceInfo, error) {
	const action = "GetServices"
	res, err := s.call(ctx, action, "<tds:GetServices><tds:IncludeCapability>false</tds:IncludeCapability></tds:GetServices>")
	if err != nil {
		return nil, err
	}

	var out []ServiceInfo
	for _, n := range res.Payload(action).ChildrenNamed("Service") {
		v := n.Child("Version")
		version := ""
		if major := v.TextAt("Major"); major != "" {
			version = major + "." + v.TextAt("Minor")
		}
		out = append(out, ServiceInfo{
			Namespace: n.TextAt("Namespace"),
			XAddr:     n.TextAt("XAddr"),
			Version:   version,
		})
	}
	return out, nil
}

// SystemReboot asks the device to reboot and returns its message.
func (s *DeviceService) SystemReboot(ctx context.Context) (string, error) {
	const action = "SystemReboot"
	res, err := s.call(ctx, action, "<tds:SystemReboot/>")
	if err != nil {
		return "", err
	}
	return res.Payload(action).TextAt("Message"), nil
}

// IPv4Filter is one entry of an IP address filter.
type IPv4Filter struct {
	Address      string
	PrefixLength int
}

// SetIPAddressFilter replaces the device's IP filter. Type is "Allow" or
// "Deny". Every address is validated before anything is sent.
func (s *DeviceService) SetIPAddressFilter(ctx context.Context, filterType string, addrs []IPv4Filter) (*soap.Result, error) {
	for _, a := range addrs {
		if err := ValidateIPv4(a.Address); err != nil {
			return nil, err
		}
		if err := ValidatePrefixLength(a.PrefixLength); err != nil {
			return nil, err
		}
	}

	var b strings.Builder
	b.WriteString("<tds:SetIPAddressFilter><tds:IPAddressFilter>")
	b.WriteString("<tt:Type>" + soap.Escape(filterType) + "</tt:Type>")
	for _, a := range addrs {
		fmt.Fprintf(&b, "<tt:IPv4Address><tt:Address>%s</tt:Address><tt:PrefixLength>%d</tt:PrefixLength></tt:IPv4Address>",
			a.Address, a.PrefixLength)
	}
	b.WriteString("</tds:IPAddressFilter></tds:SetIPAddressFilter>")

	return s.call(ctx, "SetIPAddressFilter", b.String())
}
