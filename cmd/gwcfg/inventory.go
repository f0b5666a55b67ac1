package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/tcam/gwcfg/internal/api"
	"github.com/tcam/gwcfg/internal/config"
	"github.com/tcam/gwcfg/internal/ui"
)

// Inventory command flags
var (
	paramModel    string
	watchOverview bool
	watchInterval time.Duration
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Device models known to the gateway",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered device models",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, target, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		models, err := client.ListModels(cmd.Context())
		if err != nil {
			return err
		}
		touch(target)

		if len(models) == 0 {
			fmt.Println("No models registered.")
			fmt.Println("Use 'gwcfg add model' to add one.")
			return nil
		}
		rows := make([][]string, 0, len(models))
		for _, m := range models {
			rows = append(rows, []string{strconv.FormatInt(m.ID, 10), m.Model, m.Type, m.Brand, strconv.Itoa(m.Usage)})
		}
		ui.NewPrinter(os.Stdout).PrintTable([]string{"ID", "Model", "Type", "Brand", "Devices"}, rows)
		return nil
	},
}

var parametersCmd = &cobra.Command{
	Use:   "parameters",
	Short: "Parameters defined on the gateway",
}

var parametersListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List parameters, optionally for one model",
	Args:    cobra.NoArgs,
	Example: `  gwcfg parameters list --model T-OCC-01`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, target, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		params, err := client.ListParameters(cmd.Context())
		if err != nil {
			return err
		}
		touch(target)

		var rows [][]string
		for _, p := range params {
			if paramModel != "" && p.Device != paramModel {
				continue
			}
			rows = append(rows, []string{
				strconv.FormatInt(p.ID, 10), p.Name, p.Device, p.DataType, orDash(p.Unit),
				p.Access, p.SourceInterface, limits(p.LowerLimit, p.UpperLimit),
			})
		}
		if len(rows) == 0 {
			fmt.Println("No parameters found.")
			return nil
		}
		ui.NewPrinter(os.Stdout).PrintTable(
			[]string{"ID", "Name", "Model", "Type", "Unit", "Access", "Source", "Limits"}, rows)
		return nil
	},
}

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Show gateway system information",
	Long: `Show the gateway's identity and resource usage.

With --watch the figures are refreshed until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, target, err := connect(ctx)
		if err != nil {
			return err
		}
		if err := printOverview(ctx, client, target); err != nil {
			return err
		}
		touch(target)
		if !watchOverview {
			return nil
		}

		ticker := time.NewTicker(watchInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				fmt.Println()
				if err := printOverview(ctx, client, target); err != nil {
					// keep polling; the gateway may just be busy
					fmt.Printf("✗ %s\n", api.GetShortErrorMessage(err))
				}
			}
		}
	},
}

func printOverview(ctx context.Context, client *api.Client, target *config.Target) error {
	o, err := client.Overview(ctx)
	if err != nil {
		return err
	}
	p := ui.NewPrinter(os.Stdout)
	p.PrintHeader(commandHeader("Gateway Overview", "gwcfg overview", target,
		ui.Param{Key: "Updated", Value: time.Now().Format("15:04:05")},
	))
	p.PrintTable([]string{"Item", "Value"}, [][]string{
		{"Devices", strconv.Itoa(o.DeviceCount)},
		{"Serial number", o.SerialNumber},
		{"Firmware", o.FirmwareVersion},
		{"Hardware", o.HardwareVersion},
		{"IP address", o.NetworkIP},
		{"MAC address", o.MACAddress},
		{"CPU", percent(o.CPUUsage)},
		{"Memory", percent(o.MemoryUsage)},
		{"Disk", percent(o.DiskUsage)},
		{"Clock", o.RTC},
	})
	return nil
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Follow configuration changes on the gateway",
	Long: `Print a line for every model, parameter, device, link or rule that is
created, updated or deleted on the gateway, until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Following %s (Ctrl+C to stop)\n\n", client.EventsURL())
		return client.WatchEvents(cmd.Context(), func(e api.Event) {
			at := e.At
			if at == "" {
				at = time.Now().Format(time.RFC3339)
			}
			fmt.Printf("%s  %-8s %-9s #%d\n", at, e.Type, e.Entity, e.ID)
		})
	},
}

func init() {
	parametersListCmd.Flags().StringVar(&paramModel, "model", "", "Only parameters of this model")
	overviewCmd.Flags().BoolVarP(&watchOverview, "watch", "w", false, "Refresh until interrupted")
	overviewCmd.Flags().DurationVar(&watchInterval, "interval", 10*time.Second, "Refresh interval for --watch")

	modelsCmd.AddCommand(modelsListCmd)
	parametersCmd.AddCommand(parametersListCmd)
	rootCmd.AddCommand(modelsCmd, parametersCmd, overviewCmd, eventsCmd)
}

func percent(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}

func limits(lo, hi *float64) string {
	if lo == nil && hi == nil {
		return "-"
	}
	format := func(v *float64) string {
		if v == nil {
			return "…"
		}
		return strconv.FormatFloat(*v, 'g', -1, 64)
	}
	return format(lo) + " .. " + format(hi)
}
