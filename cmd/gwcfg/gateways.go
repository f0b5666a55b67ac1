package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/tcam/gwcfg/internal/config"
	"github.com/tcam/gwcfg/internal/discovery"
	"github.com/tcam/gwcfg/internal/ui"
	"github.com/tcam/gwcfg/internal/wizard/tui"
)

// Gateway command flags
var (
	scanTimeout time.Duration
	scanPick    bool
	saveAs      string
	gwEdition   string
)

// scanCmd discovers gateways on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for gateways on the local network",
	Long: `Scan for gateways using mDNS/DNS-SD discovery.

Gateways announce themselves as T8000-<serial>.local. With --pick an
interactive list opens and the chosen gateway is saved as a profile.`,
	Example: `  # Scan for 5 seconds (default)
  gwcfg scan

  # Pick one and save it as the default profile
  gwcfg scan --pick --save lab`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	if scanPick {
		return runPicker()
	}

	fmt.Printf("Scanning for gateways (timeout: %s)...\n\n", scanTimeout)
	gateways, err := discovery.Scan(cmd.Context(), scanTimeout)
	if err != nil && !errors.Is(err, discovery.ErrNoGateways) {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(gateways) == 0 {
		fmt.Println("No gateways found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure the gateway is powered on and on this network")
		fmt.Println("  - Multicast DNS may be blocked by the router or a VPN")
		fmt.Println("  - Try increasing --timeout for slower networks")
		fmt.Println("  - Use 'gwcfg gateways add <name> <url>' to save a gateway by address")
		return nil
	}

	rows := make([][]string, 0, len(gateways))
	for _, gw := range gateways {
		rows = append(rows, []string{gw.Hostname, gw.Serial, gw.BaseURL(), orDash(gw.Edition()), orDash(gw.Firmware())})
	}
	fmt.Printf("Found %d gateway(s):\n", len(gateways))
	ui.NewPrinter(os.Stdout).PrintTable([]string{"Host", "Serial", "URL", "Edition", "Firmware"}, rows)
	fmt.Println()
	fmt.Println("Use 'gwcfg scan --pick' to save one as a profile")
	return nil
}

func runPicker() error {
	final, err := tea.NewProgram(tui.NewGatewayPickerModel(scanTimeout), tea.WithAltScreen()).Run()
	if err != nil {
		return fmt.Errorf("picker error: %w", err)
	}
	gw := final.(tui.GatewayPickerModel).Selected()
	if gw == nil {
		fmt.Println("No gateway selected.")
		return nil
	}

	name := saveAs
	if name == "" {
		name = profileName(gw)
	}
	edition := gw.Edition()
	if edition == "" {
		edition = config.EditionEmbedded
	}
	profile := &config.Gateway{
		Name:     name,
		BaseURL:  gw.BaseURL(),
		Edition:  edition,
		Serial:   gw.Serial,
		LastSeen: time.Now(),
	}
	if err := registry.AddGateway(profile); err != nil {
		return err
	}
	if err := registry.UseGateway(name); err != nil {
		return err
	}
	if err := registry.Save(); err != nil {
		return err
	}
	fmt.Printf("✓ Saved %s as %q (default)\n", profile.BaseURL, name)
	return nil
}

// profileName derives a profile name from a discovered gateway.
func profileName(gw *discovery.Gateway) string {
	if gw.Serial != "" && gw.Serial != "manual" {
		return strings.ToLower(gw.Serial)
	}
	return strings.TrimSuffix(gw.Hostname, ".local")
}

var gatewaysCmd = &cobra.Command{
	Use:     "gateways",
	Aliases: []string{"gw"},
	Short:   "Manage saved gateway profiles",
}

var gatewaysAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Save a gateway profile",
	Example: `  gwcfg gateways add lab http://192.168.1.50:9000
  gwcfg gateways add hq https://gw.example.com --edition cloud`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := registry.AddGateway(&config.Gateway{Name: args[0], BaseURL: args[1], Edition: gwEdition}); err != nil {
			return err
		}
		if err := registry.Save(); err != nil {
			return err
		}
		fmt.Printf("✓ Gateway %q saved\n", args[0])
		return nil
	},
}

var gatewaysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved gateway profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		names := registry.GatewayNames()
		if len(names) == 0 {
			fmt.Println("No gateways saved.")
			fmt.Println("Use 'gwcfg scan --pick' or 'gwcfg gateways add <name> <url>'.")
			return nil
		}
		rows := make([][]string, 0, len(names))
		for _, name := range names {
			g := registry.GetGateway(name)
			mark := ""
			if name == registry.DefaultGateway {
				mark = "*"
			}
			seen := "-"
			if !g.LastSeen.IsZero() {
				seen = g.LastSeen.Format("2006-01-02 15:04")
			}
			rows = append(rows, []string{mark, name, g.BaseURL, g.Edition, orDash(g.Serial), seen})
		}
		ui.NewPrinter(os.Stdout).PrintTable([]string{"", "Name", "URL", "Edition", "Serial", "Last Seen"}, rows)
		return nil
	},
}

var gatewaysUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Make a profile the default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := registry.UseGateway(args[0]); err != nil {
			return err
		}
		if err := registry.Save(); err != nil {
			return err
		}
		fmt.Printf("✓ Using %q by default\n", args[0])
		return nil
	},
}

var gatewaysRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Delete a saved profile",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := registry.RemoveGateway(args[0]); err != nil {
			return err
		}
		if err := registry.Save(); err != nil {
			return err
		}
		fmt.Printf("✓ Gateway %q removed\n", args[0])
		return nil
	},
}

func init() {
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", discovery.DefaultScanTimeout, "Scan timeout")
	scanCmd.Flags().BoolVar(&scanPick, "pick", false, "Pick a gateway interactively and save it")
	scanCmd.Flags().StringVar(&saveAs, "save", "", "Profile name for the picked gateway")
	gatewaysAddCmd.Flags().StringVar(&gwEdition, "edition", config.EditionEmbedded, "Gateway edition (embedded, cloud)")

	gatewaysCmd.AddCommand(gatewaysAddCmd, gatewaysListCmd, gatewaysUseCmd, gatewaysRemoveCmd)
	rootCmd.AddCommand(scanCmd, gatewaysCmd)
}
