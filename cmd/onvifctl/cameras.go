package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/onvifctl/internal/config"
	"github.com/muurk/onvifctl/internal/transport"
	"github.com/muurk/onvifctl/internal/ui"
)

// camerasCmd manages the saved camera list
var camerasCmd = &cobra.Command{
	Use:   "cameras",
	Short: "List saved cameras",
	Long: `List the cameras saved in the config file.

Passwords are never saved; supply them with --password, ` + PasswordEnvVar + `
or the prompt.`,
	RunE: runCameras,
}

var camerasAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Save a camera under a name",
	Example: `  onvifctl cameras add porch --device 192.168.1.10:8080 --user viewer
  onvifctl cameras add garage --xaddr http://10.0.0.7/onvif/device_service`,
	Args: cobra.ExactArgs(1),
	RunE: runCamerasAdd,
}

var camerasRemoveCmd = &cobra.Command{
	Use:     "remove NAME",
	Aliases: []string{"rm"},
	Short:   "Forget a saved camera",
	Args:    cobra.ExactArgs(1),
	RunE:    runCamerasRemove,
}

var cameraNickname string

func init() {
	camerasAddCmd.Flags().StringVar(&cameraNickname, "nickname", "", "Display name")

	camerasCmd.AddCommand(camerasAddCmd)
	camerasCmd.AddCommand(camerasRemoveCmd)
	rootCmd.AddCommand(camerasCmd)
}

func runCameras(cmd *cobra.Command, args []string) error {
	reg, err := config.Load()
	if err != nil {
		return err
	}

	if done, err := printStructured(reg.Cameras); done {
		return err
	}

	p := ui.NewPrinter(nil)
	names := reg.Names()
	if len(names) == 0 {
		p.Println("No saved cameras. Use 'onvifctl discover --save' or 'onvifctl cameras add'.")
		return nil
	}

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		c := reg.Cameras[name]
		where := c.Address
		if where == "" {
			where = c.XAddr
		}
		seen := ""
		if !c.LastSeen.IsZero() {
			seen = c.LastSeen.Local().Format(time.DateTime)
		}
		rows = append(rows, []string{name, c.Nickname, where, c.Username, c.Hardware, seen})
	}
	p.PrintTable([]string{"NAME", "NICKNAME", "ADDRESS", "USER", "HARDWARE", "LAST SEEN"}, rows)
	return nil
}

func runCamerasAdd(cmd *cobra.Command, args []string) error {
	if deviceAddr == "" && deviceXAddr == "" {
		return transport.NewValidationError("cameras add needs --device or --xaddr")
	}

	reg, err := config.Load()
	if err != nil {
		return err
	}

	name := args[0]
	c := reg.EnsureCamera(name)
	c.Address = deviceAddr
	c.XAddr = deviceXAddr
	if username != "" {
		c.Username = username
	}
	if cameraNickname != "" {
		c.Nickname = cameraNickname
	}

	if err := reg.Save(); err != nil {
		return err
	}
	ui.NewPrinter(nil).PrintSuccess("Camera saved",
		ui.Param{Key: "Name", Value: name},
		ui.Param{Key: "Address", Value: c.Address},
		ui.Param{Key: "XAddr", Value: c.XAddr},
	)
	return nil
}

func runCamerasRemove(cmd *cobra.Command, args []string) error {
	reg, err := config.Load()
	if err != nil {
		return err
	}
	if !reg.RemoveCamera(args[0]) {
		return transport.NewValidationError(fmt.Sprintf("camera %q is not saved", args[0]))
	}
	return reg.Save()
}
