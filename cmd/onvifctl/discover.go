package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/onvifctl/internal/config"
	"github.com/muurk/onvifctl/internal/discovery"
	"github.com/muurk/onvifctl/internal/logging"
	"github.com/muurk/onvifctl/internal/ui"
	"github.com/muurk/onvifctl/internal/urls"
)

var (
	discoverTimeout int
	discoverRetries int
	discoverMDNS    bool
	discoverSave    bool
)

// discoverCmd finds cameras on the local network
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover ONVIF cameras on the network",
	Long: `Send WS-Discovery probes to 239.255.255.250:3702 and list every camera
that answers. With --mdns, cameras advertising _onvif._tcp over mDNS are
included as well.

With --save, each camera is stored in the config file under its ONVIF
name so it can be used with --camera later.`,
	Example: `  # Probe with the configured wait window
  onvifctl discover

  # Longer window, include mDNS, remember what was found
  onvifctl discover --timeout 6 --mdns --save`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().IntVar(&discoverTimeout, "timeout", 0, "Seconds to wait for replies (default from config)")
	discoverCmd.Flags().IntVar(&discoverRetries, "retries", discovery.DefaultRetries, "Probe rounds to send")
	discoverCmd.Flags().BoolVar(&discoverMDNS, "mdns", false, "Also browse mDNS for _onvif._tcp")
	discoverCmd.Flags().BoolVar(&discoverSave, "save", false, "Save discovered cameras to the config file")

	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	reg, err := config.Load()
	if err != nil {
		return err
	}
	wait := reg.Preferences.DiscoverWait()
	if discoverTimeout > 0 {
		wait = time.Duration(discoverTimeout) * time.Second
	}

	p := ui.NewPrinter(nil)
	params := []ui.Param{{Key: "Wait", Value: wait.String()}}
	if discoverMDNS {
		params = append(params, ui.Param{Key: "mDNS", Value: "_onvif._tcp"})
	}
	p.PrintHeader("Camera discovery", "onvifctl discover", params...)
	p.Newline()

	var wsProbes, mdnsProbes []*discovery.Probe
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		session := discovery.NewSession(
			discovery.WithWait(wait),
			discovery.WithRetries(discoverRetries),
			discovery.WithLogger(logging.Named("wsdiscovery")),
		)
		return session.Stream(gctx, func(probe *discovery.Probe) {
			wsProbes = append(wsProbes, probe)
			p.Println(ui.MutedStyle.Render("  found " + probe.String()))
		})
	})
	if discoverMDNS {
		g.Go(func() error {
			scanner := discovery.NewScanner()
			scanner.Timeout = wait
			probes, err := scanner.Scan(gctx)
			mdnsProbes = probes
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	probes := mergeProbes(wsProbes, mdnsProbes)
	if len(probes) == 0 {
		p.PrintWarning("No cameras found",
			ui.Param{Key: "Check", Value: "the camera is on this subnet and ONVIF is enabled"},
			ui.Param{Key: "Try", Value: "a longer --timeout, or --mdns"},
			ui.Param{Key: "Or", Value: "connect directly with --device <ip>"},
			ui.Param{Key: "Protocol", Value: urls.WSDiscovery},
		)
		return nil
	}

	p.Newline()
	rows := make([][]string, 0, len(probes))
	for i, probe := range probes {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			probe.Name,
			probe.Hardware,
			probe.DeviceServiceURL(),
			probe.URN,
		})
	}
	p.PrintTable([]string{"#", "NAME", "HARDWARE", "XADDR", "URN"}, rows)

	if discoverSave {
		var saved []string
		for _, probe := range probes {
			name := cameraKey(probe)
			reg.RememberProbe(name, probe.URN, probe.DeviceServiceURL(), probe.Hardware)
			saved = append(saved, name)
		}
		if err := reg.Save(); err != nil {
			return err
		}
		p.Newline()
		p.PrintSuccess("Cameras saved", ui.Param{Key: "Names", Value: strings.Join(saved, ", ")})
		return nil
	}

	p.Newline()
	p.Println("Use 'onvifctl info --xaddr <xaddr>' to connect, or re-run with --save")
	return nil
}

// mergeProbes combines WS-Discovery and mDNS results. WS-Discovery wins
// when both report the same URN or device service URL.
func mergeProbes(primary, secondary []*discovery.Probe) []*discovery.Probe {
	seen := make(map[string]bool, len(primary)+len(secondary))
	var out []*discovery.Probe
	for _, list := range [][]*discovery.Probe{primary, secondary} {
		for _, probe := range list {
			xaddr := probe.DeviceServiceURL()
			if seen[probe.URN] || (xaddr != "" && seen[xaddr]) {
				continue
			}
			seen[probe.URN] = true
			if xaddr != "" {
				seen[xaddr] = true
			}
			out = append(out, probe)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].URN < out[j].URN })
	return out
}

// cameraKey is the config name for a discovered camera: its ONVIF name,
// or the host when the camera has none.
func cameraKey(probe *discovery.Probe) string {
	name := strings.TrimSpace(probe.Name)
	if name == "" {
		name = probe.Host()
	}
	if name == "" {
		name = probe.URN
	}
	return strings.ToLower(strings.ReplaceAll(name, " ", "-"))
}
