// Onvifctl is a command-line client for ONVIF IP cameras.
//
// It finds cameras with WS-Discovery (and optionally mDNS), reads device
// information and media profiles, fetches snapshots and drives PTZ heads.
// Cameras can be saved under a name so later commands only need --camera.
//
// Usage:
//
//	onvifctl [command] [flags]
//
// See 'onvifctl --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/onvifctl/internal/logging"
	"github.com/muurk/onvifctl/internal/transport"
	"github.com/muurk/onvifctl/internal/urls"
	"github.com/muurk/onvifctl/internal/version"
)

func main() {
	if err := logging.InitializeFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if hint := transport.Hint(err); hint != "" {
			fmt.Fprintf(os.Stderr, "\n%s\n", hint)
		}
		if transport.IsUnsupported(err) || transport.IsSOAPFault(err) {
			fmt.Fprintf(os.Stderr, "\nSee: %s\n", urls.Profiles)
		}
		stop()
		logging.Sync()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "onvifctl",
	Short: "ONVIF camera client",
	Long: `A command-line client for ONVIF IP cameras.

Discovers cameras on the local network, shows device information and
media profiles, saves snapshots and controls pan/tilt/zoom.

Connect with --device <host[:port]> (every URL the camera reports is
rewritten to that host), --xaddr <device service URL>, or --camera <name>
for a camera saved with 'onvifctl discover --save' or 'onvifctl cameras add'.

Protocol reference: ` + urls.CoreSpecification,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("onvifctl %s\n", version.Full())
	},
}
