package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/onvifctl/internal/device"
	"github.com/muurk/onvifctl/internal/service"
	"github.com/muurk/onvifctl/internal/transport"
	"github.com/muurk/onvifctl/internal/ui"
)

var (
	ptzProfile  string
	ptzX        float64
	ptzY        float64
	ptzZ        float64
	ptzDuration time.Duration
	ptzHold     bool
)

// ptzCmd groups the pan/tilt/zoom commands
var ptzCmd = &cobra.Command{
	Use:   "ptz",
	Short: "Control pan, tilt and zoom",
	Long: `Drive the PTZ head attached to a media profile.

Velocities are in the camera's generic space, usually -1..1. Positive x
pans right, positive y tilts up, positive z zooms in.`,
}

var ptzMoveCmd = &cobra.Command{
	Use:   "move",
	Short: "Start a continuous move",
	Example: `  # Pan right at half speed for two seconds, then stop
  onvifctl ptz move --camera porch --x 0.5 --duration 2s

  # Zoom in and leave the move to the camera's own timeout
  onvifctl ptz move --camera porch --z 0.3 --hold`,
	RunE: runPTZMove,
}

var ptzStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop all PTZ movement",
	RunE:  runPTZStop,
}

var ptzHomeCmd = &cobra.Command{
	Use:   "home",
	Short: "Return to the home position",
	RunE:  runPTZHome,
}

var ptzPresetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List stored presets",
	RunE:  runPTZPresets,
}

var ptzGotoCmd = &cobra.Command{
	Use:   "goto PRESET",
	Short: "Move to a stored preset (token or name)",
	Args:  cobra.ExactArgs(1),
	RunE:  runPTZGoto,
}

var ptzStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current PTZ position",
	RunE:  runPTZStatus,
}

func init() {
	ptzCmd.PersistentFlags().StringVar(&ptzProfile, "profile", "", "Profile index or token (default: first profile)")

	ptzMoveCmd.Flags().Float64Var(&ptzX, "x", 0, "Pan velocity")
	ptzMoveCmd.Flags().Float64Var(&ptzY, "y", 0, "Tilt velocity")
	ptzMoveCmd.Flags().Float64Var(&ptzZ, "z", 0, "Zoom velocity")
	ptzMoveCmd.Flags().DurationVar(&ptzDuration, "duration", device.DefaultPTZTimeout, "How long to move")
	ptzMoveCmd.Flags().BoolVar(&ptzHold, "hold", false, "Return immediately and let the camera timeout end the move")

	ptzCmd.AddCommand(ptzMoveCmd, ptzStopCmd, ptzHomeCmd, ptzPresetsCmd, ptzGotoCmd, ptzStatusCmd)
	rootCmd.AddCommand(ptzCmd)
}

// ptzSession connects and returns the PTZ client and profile token.
func ptzSession(cmd *cobra.Command) (*device.Device, *service.PTZService, string, error) {
	d, _, err := connect(cmd.Context())
	if err != nil {
		return nil, nil, "", err
	}
	if err := selectProfile(d, ptzProfile); err != nil {
		return nil, nil, "", err
	}
	ptz := d.Services().PTZ
	if ptz == nil {
		return nil, nil, "", transport.NewStateError("the device does not support PTZ")
	}
	return d, ptz, d.CurrentProfile().Token, nil
}

func runPTZMove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	d, _, _, err := ptzSession(cmd)
	if err != nil {
		return err
	}

	if err := d.PTZMove(ctx, device.PTZMoveParams{X: ptzX, Y: ptzY, Z: ptzZ, Timeout: ptzDuration}); err != nil {
		return err
	}
	if ptzHold {
		return nil
	}

	select {
	case <-ctx.Done():
	case <-time.After(ptzDuration):
	}
	// Stop even when interrupted.
	return d.PTZStop(context.WithoutCancel(ctx))
}

func runPTZStop(cmd *cobra.Command, args []string) error {
	d, _, _, err := ptzSession(cmd)
	if err != nil {
		return err
	}
	return d.PTZStop(cmd.Context())
}

func runPTZHome(cmd *cobra.Command, args []string) error {
	_, ptz, token, err := ptzSession(cmd)
	if err != nil {
		return err
	}
	_, err = ptz.GotoHomePosition(cmd.Context(), token, nil)
	return err
}

func runPTZPresets(cmd *cobra.Command, args []string) error {
	_, ptz, token, err := ptzSession(cmd)
	if err != nil {
		return err
	}
	presets, err := ptz.GetPresets(cmd.Context(), token)
	if err != nil {
		return err
	}

	if done, err := printStructured(presets); done {
		return err
	}
	if len(presets) == 0 {
		fmt.Println("No presets stored.")
		return nil
	}
	rows := make([][]string, 0, len(presets))
	for i, pr := range presets {
		rows = append(rows, []string{strconv.Itoa(i + 1), pr.Token, pr.Name})
	}
	ui.NewPrinter(nil).PrintTable([]string{"#", "TOKEN", "NAME"}, rows)
	return nil
}

func runPTZGoto(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	_, ptz, token, err := ptzSession(cmd)
	if err != nil {
		return err
	}

	presets, err := ptz.GetPresets(ctx, token)
	if err != nil {
		return err
	}
	preset := args[0]
	for _, pr := range presets {
		if pr.Name == preset {
			preset = pr.Token
			break
		}
	}

	_, err = ptz.GotoPreset(ctx, token, preset, nil)
	return err
}

func runPTZStatus(cmd *cobra.Command, args []string) error {
	_, ptz, token, err := ptzSession(cmd)
	if err != nil {
		return err
	}
	st, err := ptz.GetStatus(cmd.Context(), token)
	if err != nil {
		return err
	}

	if done, err := printStructured(st); done {
		return err
	}
	ui.NewPrinter(nil).PrintSection("PTZ status",
		ui.Param{Key: "Pan", Value: strconv.FormatFloat(st.Position.X, 'g', -1, 64)},
		ui.Param{Key: "Tilt", Value: strconv.FormatFloat(st.Position.Y, 'g', -1, 64)},
		ui.Param{Key: "Zoom", Value: strconv.FormatFloat(st.Position.Z, 'g', -1, 64)},
		ui.Param{Key: "Pan/tilt", Value: st.PanTiltStatus},
		ui.Param{Key: "Zoom status", Value: st.ZoomStatus},
		ui.Param{Key: "UTC time", Value: st.UTCTime},
	)
	return nil
}
