package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tcam/gwcfg/internal/api"
	"github.com/tcam/gwcfg/internal/flows"
	"github.com/tcam/gwcfg/internal/ui"
)

// Device command flags
var (
	assumeYes   bool
	sensitivity float64
	patchSet    []string
	patchClear  []string
	noVerify    bool
	retries     int
)

var devicesCmd = &cobra.Command{
	Use:     "devices",
	Aliases: []string{"device"},
	Short:   "List, inspect and edit devices",
}

var devicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List devices registered on the gateway",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, target, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		devices, err := client.ListDevices(cmd.Context())
		if err != nil {
			return err
		}
		touch(target)

		if len(devices) == 0 {
			fmt.Println("No devices registered.")
			fmt.Println("Use 'gwcfg add device' to add one.")
			return nil
		}
		rows := make([][]string, 0, len(devices))
		for _, d := range devices {
			rows = append(rows, []string{
				strconv.FormatInt(d.ID, 10), d.Name, d.ModelName, d.Location,
				networkStatus(d.NwkStatus), yesNo(d.Enabled == 1), lastSeen(d.LastSeen),
			})
		}
		ui.NewPrinter(os.Stdout).PrintTable(
			[]string{"ID", "Device", "Model", "Location", "Network", "Enabled", "Last Seen"}, rows)
		return nil
	},
}

var devicesShowCmd = &cobra.Command{
	Use:     "show <id>",
	Short:   "Show a device and its linked parameters",
	Args:    cobra.ExactArgs(1),
	Example: `  gwcfg devices show 3`,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		client, target, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		d, err := client.GetDevice(cmd.Context(), id)
		if err != nil {
			return err
		}
		params, err := client.ListDeviceParameters(cmd.Context(), id)
		if err != nil {
			return err
		}
		touch(target)

		p := ui.NewPrinter(os.Stdout)
		p.PrintHeader(commandHeader(d.Name, "gwcfg devices show "+args[0], target,
			ui.Param{Key: "Model", Value: d.ModelName},
			ui.Param{Key: "Location", Value: orDash(d.Location)},
			ui.Param{Key: "Address", Value: orDash(deref(d.PriAddr))},
			ui.Param{Key: "Network", Value: networkStatus(d.NwkStatus)},
			ui.Param{Key: "Last seen", Value: lastSeen(d.LastSeen)},
		))
		if len(params) == 0 {
			p.Println("No parameters linked.")
			return nil
		}
		rows := make([][]string, 0, len(params))
		for _, dp := range params {
			rows = append(rows, []string{
				strconv.FormatInt(dp.MapID, 10), strconv.FormatInt(dp.ID, 10), dp.Name,
				dp.DataType, orDash(dp.Unit), dp.RW, strconv.FormatFloat(dp.Sensitivity, 'g', -1, 64),
			})
		}
		p.PrintTable([]string{"Map", "Param", "Name", "Type", "Unit", "Access", "Sensitivity"}, rows)
		return nil
	},
}

var devicesUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change selected fields of a device",
	Long: `Send only the fields named on the command line.

Values are sent as numbers when they parse as one, otherwise as text.
--clear sends null for a field. The device is then read back until the
changes show, unless --no-verify is given.`,
	Example: `  # Move a device and change its logging interval
  gwcfg devices update 3 --set loc_name="Block B" --set log_intvl=5

  # Forget the tertiary address
  gwcfg devices update 3 --clear ter_addr`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		patch, err := buildPatch(patchSet, patchClear)
		if err != nil {
			return err
		}
		client, target, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		var opts *flows.VerifyOptions
		if !noVerify {
			opts = flows.DefaultVerifyOptions()
			opts.MaxRetries = retries
		}
		v := flows.UpdateDevice(cmd.Context(), client, id, patch, opts)
		if !v.OK() {
			if len(v.Mismatches) > 0 {
				fmt.Println("Mismatches detected:")
				for _, m := range v.Mismatches {
					fmt.Printf("  - %s\n", m)
				}
			}
			return v.Err
		}
		touch(target)

		if noVerify {
			fmt.Printf("✓ Device %d updated (not verified)\n", id)
			return nil
		}
		fmt.Printf("✓ Device %d updated and verified (%d attempt(s))\n", id, v.Attempts)
		if len(v.Unchecked) > 0 {
			fmt.Printf("  Not shown by the gateway, so not checked: %s\n", strings.Join(v.Unchecked, ", "))
		}
		return nil
	},
}

var devicesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a device and its parameter links",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		client, target, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		d, err := client.GetDevice(cmd.Context(), id)
		if err != nil {
			return err
		}

		if !assumeYes {
			ok := ui.Confirm(os.Stdin, os.Stdout, "Delete device "+d.Name, []string{
				"The device and all of its parameter links are removed",
				"Rules referring to it stop matching",
				"This cannot be undone",
			}, d.Name)
			if !ok {
				fmt.Println("Cancelled.")
				return nil
			}
		}

		if err := client.DeleteDevice(cmd.Context(), id); err != nil {
			return err
		}
		touch(target)
		fmt.Printf("✓ Device %s deleted\n", d.Name)
		return nil
	},
}

var devicesLinkCmd = &cobra.Command{
	Use:     "link <device-id> <parameter-id>",
	Short:   "Link a parameter to a device",
	Args:    cobra.ExactArgs(2),
	Example: `  gwcfg devices link 3 17 --sensitivity 0.5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		devID, err := parseID(args[0])
		if err != nil {
			return err
		}
		paramID, err := parseID(args[1])
		if err != nil {
			return err
		}
		client, target, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		mapID, err := client.LinkDeviceParameter(cmd.Context(), &api.LinkParameterRequest{
			DevID:       devID,
			ParamID:     paramID,
			Sensitivity: sensitivity,
		})
		if err != nil {
			return err
		}
		touch(target)
		fmt.Printf("✓ Parameter %d linked to device %d (map %d)\n", paramID, devID, mapID)
		return nil
	},
}

var devicesUnlinkCmd = &cobra.Command{
	Use:     "unlink <map-id>",
	Short:   "Remove a parameter link",
	Long:    `Remove a parameter link by the map ID shown by 'gwcfg devices show'.`,
	Args:    cobra.ExactArgs(1),
	Example: `  gwcfg devices unlink 42`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mapID, err := parseID(args[0])
		if err != nil {
			return err
		}
		client, target, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		if err := client.UnlinkDeviceParameter(cmd.Context(), mapID); err != nil {
			return err
		}
		touch(target)
		fmt.Printf("✓ Link %d removed\n", mapID)
		return nil
	},
}

func init() {
	devicesUpdateCmd.Flags().StringArrayVar(&patchSet, "set", nil, "field=value to change (repeatable)")
	devicesUpdateCmd.Flags().StringArrayVar(&patchClear, "clear", nil, "field to set to null (repeatable)")
	devicesUpdateCmd.Flags().BoolVar(&noVerify, "no-verify", false, "Skip reading the device back after the update")
	devicesUpdateCmd.Flags().IntVar(&retries, "retries", 3, "Number of verification retries")
	devicesDeleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
	devicesLinkCmd.Flags().Float64Var(&sensitivity, "sensitivity", 1, "Change sensitivity of the link")

	devicesCmd.AddCommand(devicesListCmd, devicesShowCmd, devicesUpdateCmd, devicesDeleteCmd, devicesLinkCmd, devicesUnlinkCmd)
	rootCmd.AddCommand(devicesCmd)
}

// buildPatch turns --set and --clear flags into a patch of changed fields.
func buildPatch(set, clear []string) (api.DevicePatch, error) {
	patch := make(api.DevicePatch)
	for _, kv := range set {
		key, raw, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q (want field=value)", kv)
		}
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			patch[key] = n
		} else {
			patch[key] = raw
		}
	}
	for _, key := range clear {
		patch[strings.TrimSpace(key)] = nil
	}
	if len(patch) == 0 {
		return nil, fmt.Errorf("nothing to update (use --set or --clear)")
	}
	return patch, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func networkStatus(s int) string {
	if s == 1 {
		return "online"
	}
	return "offline"
}

func lastSeen(unix int64) string {
	if unix == 0 {
		return "-"
	}
	return time.Unix(unix, 0).Format("2006-01-02 15:04")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
