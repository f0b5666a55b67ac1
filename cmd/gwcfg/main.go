// Gwcfg is the operator console for TCAM IoT gateways.
//
// It adds device models, parameters, devices and automation rules through
// guided multi-step wizards, and lists or edits what a gateway already
// holds. Wizards run interactively in the terminal, or from a YAML answer
// file for scripted provisioning.
//
// Usage:
//
//	gwcfg [command] [flags]
//
// The gateway is taken from --url, GWCFG_BASE_URL, a saved profile, or
// mDNS discovery on the local network. See 'gwcfg --help' for commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tcam/gwcfg/internal/api"
	"github.com/tcam/gwcfg/internal/config"
	"github.com/tcam/gwcfg/internal/discovery"
	"github.com/tcam/gwcfg/internal/logging"
	"github.com/tcam/gwcfg/internal/session"
	"github.com/tcam/gwcfg/internal/ui"
	"github.com/tcam/gwcfg/internal/version"
	"github.com/tcam/gwcfg/internal/wizard/tui"
)

// rateBurst is how many requests may go out back to back before the
// profile's rate limit applies.
const rateBurst = 5

// Global flags
var (
	flagURL      string
	flagGateway  string
	flagLogLevel string
	flagTimeout  time.Duration
)

// Loaded once per invocation by the root PersistentPreRunE.
var (
	registry *config.Registry
	envCfg   config.Env
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gwcfg",
	Short: "TCAM Gateway Configuration Console",
	Long: `An operator console for TCAM IoT gateways.

Guided wizards add device models, parameters, devices and automation
rules, submitting each entity and its dependents in order. Listing and
editing commands cover what the gateway already holds.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if envCfg, err = config.LoadEnv(); err != nil {
			return err
		}
		if registry, err = config.LoadRegistry(); err != nil {
			return err
		}
		return logging.Initialize(registry.LogLevel(flagLogLevel, envCfg))
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&flagURL, "url", "", "Gateway base URL (skips profiles and discovery)")
	rootCmd.PersistentFlags().StringVar(&flagGateway, "gateway", "", "Saved gateway profile to use")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error); silent when unset")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 0, "Per-request timeout, 0 for none (default from profile preferences)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gwcfg %s\n", version.Full())
	},
}

// connect resolves the gateway for this invocation and builds a client for it.
func connect(ctx context.Context) (*api.Client, *config.Target, error) {
	target, err := registry.Resolve(ctx, config.ResolveOptions{
		URL:      flagURL,
		Gateway:  flagGateway,
		Env:      envCfg,
		Discover: discovery.FirstURL,
	})
	if err != nil {
		return nil, nil, err
	}

	timeout := flagTimeout
	if timeout <= 0 {
		timeout = registry.RequestTimeout(envCfg)
	}
	opts := []api.Option{api.WithTimeout(timeout), api.WithToken(registry.Token)}
	if p := registry.Preferences; p != nil && p.RateLimit > 0 {
		opts = append(opts, api.WithRateLimit(p.RateLimit, rateBurst))
	}

	logging.Info("Gateway selected",
		zap.String("gateway", target.Name),
		zap.String("base_url", target.BaseURL),
		zap.String("source", target.Source),
	)
	return api.NewClient(target.BaseURL, opts...), target, nil
}

// touch records a successful exchange with a profiled gateway.
func touch(target *config.Target) {
	if target.Name == "" {
		return
	}
	registry.TouchGateway(target.Name)
	if err := registry.Save(); err != nil {
		logging.Warn("Failed to save gateway profile", zap.Error(err))
	}
}

func operator() string {
	return session.DisplayName(registry.CurrentUser)
}

func headerInfo(target *config.Target) tui.HeaderInfo {
	return tui.HeaderInfo{Gateway: target.BaseURL, Edition: target.Edition, User: operator()}
}

// commandHeader builds the header printed by non-interactive commands.
func commandHeader(title, command string, target *config.Target, params ...ui.Param) *ui.Header {
	h := ui.NewHeader(title, command).
		Add("Gateway", target.BaseURL).
		Add("Edition", target.Edition)
	for _, p := range params {
		h.Add(p.Key, p.Value)
	}
	return h
}
