package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/muurk/onvifctl/internal/config"
	"github.com/muurk/onvifctl/internal/device"
	"github.com/muurk/onvifctl/internal/logging"
	"github.com/muurk/onvifctl/internal/transport"
	"github.com/muurk/onvifctl/internal/ui"
)

// PasswordEnvVar supplies the camera password when --password is not given.
const PasswordEnvVar = "ONVIFCTL_PASSWORD"

// Connection flags shared by every device command
var (
	deviceAddr   string
	deviceXAddr  string
	cameraName   string
	username     string
	password     string
	httpTimeout  int
	outputFormat string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&deviceAddr, "device", "", "Camera host[:port]; reported URLs are rewritten to this host")
	rootCmd.PersistentFlags().StringVar(&deviceXAddr, "xaddr", "", "Full device service URL")
	rootCmd.PersistentFlags().StringVar(&cameraName, "camera", "", "Saved camera name, URN or address")
	rootCmd.PersistentFlags().StringVarP(&username, "user", "u", "", "ONVIF username (default from config)")
	rootCmd.PersistentFlags().StringVarP(&password, "password", "p", "", "ONVIF password (or set "+PasswordEnvVar+")")
	rootCmd.PersistentFlags().IntVar(&httpTimeout, "http-timeout", 0, "Per-request timeout in seconds (default from config)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, json, yaml)")

	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(rebootCmd)
}

// target is a resolved connection: where to go and as whom.
type target struct {
	name     string // saved camera name, if any
	xaddr    string
	address  string
	username string
}

func (t target) String() string {
	if t.xaddr != "" {
		return t.xaddr
	}
	return t.address
}

// resolveTarget applies --xaddr, --device and --camera, in that order of
// precedence, falling back to registry defaults for the username.
func resolveTarget(reg *config.Registry) (target, error) {
	t := target{xaddr: deviceXAddr, address: deviceAddr, username: username}

	if t.xaddr == "" && t.address == "" {
		if cameraName == "" {
			return t, transport.NewValidationError("no camera given: use --device, --xaddr or --camera")
		}
		name, cam := reg.FindCamera(cameraName)
		if cam == nil {
			return t, transport.NewValidationError(fmt.Sprintf("camera %q is not in the config file (see 'onvifctl cameras')", cameraName))
		}
		t.name = name
		t.xaddr = cam.XAddr
		t.address = cam.Address
		if t.username == "" {
			t.username = cam.Username
		}
		// A saved address means the user wants rewriting.
		if t.address != "" {
			t.xaddr = ""
		}
	}

	if t.username == "" {
		t.username = reg.Preferences.DefaultUsername
	}
	return t, nil
}

// resolvePassword returns --password, then the environment variable, then
// prompts on an interactive terminal. Anything else means no password.
func resolvePassword(user string) (string, error) {
	if password != "" {
		return password, nil
	}
	if p := os.Getenv(PasswordEnvVar); p != "" {
		return p, nil
	}
	fd := int(os.Stdin.Fd())
	if user == "" || !term.IsTerminal(fd) {
		return "", nil
	}

	fmt.Fprintf(os.Stderr, "Password for %s (empty for none): ", user)
	data, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(data), nil
}

func requestTimeout(reg *config.Registry) time.Duration {
	if httpTimeout > 0 {
		return time.Duration(httpTimeout) * time.Second
	}
	return reg.Preferences.RequestTimeout()
}

// connect loads the config, builds a device session and runs Init.
func connect(ctx context.Context) (*device.Device, target, error) {
	reg, err := config.Load()
	if err != nil {
		return nil, target{}, err
	}

	t, err := resolveTarget(reg)
	if err != nil {
		return nil, t, err
	}
	pass, err := resolvePassword(t.username)
	if err != nil {
		return nil, t, err
	}

	timeout := requestTimeout(reg)
	dispatcher := transport.NewDispatcher()
	dispatcher.SetTimeout(timeout)

	d, err := device.New(device.Config{
		XAddr:          t.xaddr,
		Address:        t.address,
		Username:       t.username,
		Password:       pass,
		Caller:         dispatcher,
		HTTPClient:     &http.Client{Timeout: timeout},
		URIConcurrency: reg.Preferences.URIConcurrency,
		Logger:         logging.Named("device"),
	})
	if err != nil {
		return nil, t, err
	}

	if _, err := d.Init(ctx); err != nil {
		return nil, t, err
	}
	return d, t, nil
}

// printStructured writes v as JSON or YAML. It reports false for the
// detailed format so the caller renders its own view.
func printStructured(v any) (bool, error) {
	switch outputFormat {
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return true, fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(data))
		return true, nil
	case "yaml":
		data, err := yaml.Marshal(v)
		if err != nil {
			return true, fmt.Errorf("failed to marshal YAML: %w", err)
		}
		fmt.Print(string(data))
		return true, nil
	case "detailed", "":
		return false, nil
	default:
		return true, transport.NewValidationError("unknown --format " + strconv.Quote(outputFormat))
	}
}

// infoCmd shows device identity and services
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show device information",
	Long: `Connect to a camera and show its manufacturer, model, firmware and the
ONVIF services it advertises.

The camera clock offset is measured during connection and used for
WS-Security timestamps.`,
	Example: `  # By address, rewriting reported URLs to this host
  onvifctl info --device 192.168.1.10

  # By device service URL
  onvifctl info --xaddr http://192.168.1.10:8000/onvif/device_service

  # Saved camera, JSON output
  onvifctl info --camera porch --format json`,
	RunE: runInfo,
}

// infoView is the structured form of 'onvifctl info'.
type infoView struct {
	XAddr    string              `json:"xaddr" yaml:"xaddr"`
	Device   *device.Information `json:"device" yaml:"device"`
	TimeDiff string              `json:"time_diff" yaml:"time_diff"`
	Hostname string              `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	Scopes   []string            `json:"scopes,omitempty" yaml:"scopes,omitempty"`
	Services map[string]string   `json:"services" yaml:"services"`
	Topics   []string            `json:"event_topics,omitempty" yaml:"event_topics,omitempty"`
	Profiles int                 `json:"profiles" yaml:"profiles"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	d, t, err := connect(ctx)
	if err != nil {
		return err
	}

	view := infoView{
		XAddr:    d.XAddr(),
		Device:   d.Information(),
		TimeDiff: d.TimeDiff().String(),
		Services: map[string]string{},
		Profiles: len(d.Profiles()),
	}

	svc := d.Services()
	// Optional extras; failures are ignored.
	if name, err := svc.Device.GetHostname(ctx); err == nil {
		view.Hostname = name
	}
	if scopes, err := svc.Device.GetScopes(ctx); err == nil {
		view.Scopes = scopes
	}
	view.Services["device"] = svc.Device.XAddr()
	if svc.Media != nil {
		view.Services["media"] = svc.Media.XAddr()
	}
	if svc.PTZ != nil {
		view.Services["ptz"] = svc.PTZ.XAddr()
	}
	if svc.Events != nil {
		view.Services["events"] = svc.Events.XAddr()
		if props, err := svc.Events.GetEventProperties(ctx); err == nil {
			view.Topics = props.Topics
		}
	}

	if done, err := printStructured(view); done {
		return err
	}

	p := ui.NewPrinter(nil)
	p.PrintHeader("Device information", "onvifctl info", ui.Param{Key: "Camera", Value: t.String()})
	p.Newline()

	info := view.Device
	p.PrintSection("Device",
		ui.Param{Key: "Manufacturer", Value: info.Manufacturer},
		ui.Param{Key: "Model", Value: info.Model},
		ui.Param{Key: "Firmware", Value: info.FirmwareVersion},
		ui.Param{Key: "Serial", Value: info.SerialNumber},
		ui.Param{Key: "Hardware ID", Value: info.HardwareID},
		ui.Param{Key: "Hostname", Value: view.Hostname},
		ui.Param{Key: "Clock offset", Value: view.TimeDiff},
	)
	p.Newline()

	p.PrintSection("Services",
		ui.Param{Key: "Device", Value: view.Services["device"]},
		ui.Param{Key: "Media", Value: view.Services["media"]},
		ui.Param{Key: "PTZ", Value: view.Services["ptz"]},
		ui.Param{Key: "Events", Value: view.Services["events"]},
		ui.Param{Key: "Profiles", Value: strconv.Itoa(view.Profiles)},
	)

	if len(view.Scopes) > 0 {
		p.Newline()
		p.PrintSection("Scopes")
		for _, s := range view.Scopes {
			p.Println("  " + s)
		}
	}
	if len(view.Topics) > 0 {
		p.Newline()
		p.PrintSection("Event topics", ui.Param{Key: "Topics", Value: strings.Join(view.Topics, ", ")})
	}
	return nil
}

// profilesCmd lists media profiles and their URIs
var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List media profiles and stream URIs",
	Example: `  onvifctl profiles --device 192.168.1.10
  onvifctl profiles --camera porch --format yaml`,
	RunE: runProfiles,
}

func runProfiles(cmd *cobra.Command, args []string) error {
	d, t, err := connect(cmd.Context())
	if err != nil {
		return err
	}

	profiles := d.Profiles()
	if done, err := printStructured(profiles); done {
		return err
	}

	p := ui.NewPrinter(nil)
	p.PrintHeader("Media profiles", "onvifctl profiles", ui.Param{Key: "Camera", Value: t.String()})
	p.Newline()

	for i, prof := range profiles {
		details := []ui.Param{{Key: "Token", Value: prof.Token}}
		if enc := prof.Video.Encoder; enc != nil {
			details = append(details,
				ui.Param{Key: "Video", Value: fmt.Sprintf("%s %dx%d @ %d fps, %d kbps",
					enc.Encoding, enc.Resolution.Width, enc.Resolution.Height, enc.FrameRate, enc.Bitrate)})
		}
		if enc := prof.Audio.Encoder; enc != nil {
			details = append(details,
				ui.Param{Key: "Audio", Value: fmt.Sprintf("%s %d Hz, %d kbps", enc.Encoding, enc.SampleRate, enc.Bitrate)})
		}
		details = append(details,
			ui.Param{Key: "RTSP", Value: prof.Stream.RTSP},
			ui.Param{Key: "HTTP", Value: prof.Stream.HTTP},
			ui.Param{Key: "UDP", Value: prof.Stream.UDP},
			ui.Param{Key: "Snapshot", Value: prof.Snapshot},
		)
		if r := prof.PTZ.Range; r.X != (device.AxisRange{}) || r.Z != (device.AxisRange{}) {
			details = append(details, ui.Param{Key: "PTZ range", Value: fmt.Sprintf("x %g..%g  y %g..%g  z %g..%g",
				r.X.Min, r.X.Max, r.Y.Min, r.Y.Max, r.Z.Min, r.Z.Max)})
		}

		p.PrintSection(fmt.Sprintf("[%d] %s", i, prof.Name), details...)
		p.Newline()
	}
	return nil
}

var (
	snapshotOut     string
	snapshotProfile string
)

// snapshotCmd saves a still image
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Save a snapshot image",
	Long: `Fetch a still image from a profile's snapshot URI and write it to a file.

Basic credentials are sent first; a Digest challenge is answered
automatically.`,
	Example: `  onvifctl snapshot --device 192.168.1.10 --out porch.jpg
  onvifctl snapshot --camera porch --profile 1 --out -`,
	RunE: runSnapshot,
}

func init() {
	snapshotCmd.Flags().StringVarP(&snapshotOut, "out", "o", "", "Output file, or - for stdout")
	snapshotCmd.Flags().StringVar(&snapshotProfile, "profile", "", "Profile index or token (default: first profile)")
	_ = snapshotCmd.MarkFlagRequired("out")
}

// selectProfile applies a --profile value, which is an index or a token.
func selectProfile(d *device.Device, ref string) error {
	if ref == "" {
		return nil
	}
	if i, err := strconv.Atoi(ref); err == nil {
		if _, ok := d.SelectProfileIndex(i); ok {
			return nil
		}
	}
	if _, ok := d.SelectProfileToken(ref); ok {
		return nil
	}
	return transport.NewValidationError(fmt.Sprintf("no profile %q (see 'onvifctl profiles')", ref))
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	d, _, err := connect(ctx)
	if err != nil {
		return err
	}
	if err := selectProfile(d, snapshotProfile); err != nil {
		return err
	}

	snap, err := d.FetchSnapshot(ctx)
	if err != nil {
		return err
	}

	if snapshotOut == "-" {
		_, err := os.Stdout.Write(snap.Body)
		return err
	}
	if err := os.WriteFile(snapshotOut, snap.Body, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	ui.NewPrinter(nil).PrintSuccess("Snapshot saved",
		ui.Param{Key: "File", Value: snapshotOut},
		ui.Param{Key: "Profile", Value: d.CurrentProfile().Name},
		ui.Param{Key: "Content-Type", Value: snap.ContentType},
		ui.Param{Key: "Size", Value: fmt.Sprintf("%d bytes", len(snap.Body))},
	)
	return nil
}

var rebootYes bool

// rebootCmd restarts the camera
var rebootCmd = &cobra.Command{
	Use:   "reboot",
	Short: "Reboot the camera",
	Example: `  onvifctl reboot --camera porch
  onvifctl reboot --device 192.168.1.10 --yes`,
	RunE: runReboot,
}

func init() {
	rebootCmd.Flags().BoolVarP(&rebootYes, "yes", "y", false, "Skip the confirmation prompt")
}

func runReboot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	d, t, err := connect(ctx)
	if err != nil {
		return err
	}

	if !rebootYes {
		answer := t.name
		if answer == "" {
			answer = d.Address()
		}
		ok := ui.Confirm(bufio.NewReader(os.Stdin), os.Stdout, "REBOOT "+strings.ToUpper(answer), []string{
			"The camera stops streaming until it has restarted",
			"Recording to the camera's own storage is interrupted",
		}, answer)
		if !ok {
			return nil
		}
	}

	msg, err := d.Services().Device.SystemReboot(ctx)
	if err != nil {
		return err
	}
	ui.NewPrinter(nil).PrintSuccess("Reboot requested",
		ui.Param{Key: "Camera", Value: t.String()},
		ui.Param{Key: "Message", Value: msg},
	)
	return nil
}
