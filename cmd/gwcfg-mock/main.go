// Gwcfg-mock is a stand-in gateway configuration service for development
// and demos.
//
// It serves the same REST endpoints and event WebSocket as a T8000 gateway,
// backed by an in-memory store that is seeded with the built-in model
// templates and a handful of devices unless --empty is given.
//
// Usage:
//
//	gwcfg-mock [flags]
//
// See 'gwcfg-mock --help' for available options.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tcam/gwcfg/internal/config"
	"github.com/tcam/gwcfg/internal/server"
	"github.com/tcam/gwcfg/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Server flags
var (
	certPath string
	keyPath  string
	host     string
	port     int
	logLevel string
	empty    bool
	register bool
)

var rootCmd = &cobra.Command{
	Use:   "gwcfg-mock",
	Short: "Mock gateway configuration service",
	Long: `A local stand-in for the gateway configuration API.

Serves /api/models, /api/parameters, /api/devices, /api/rules and the
/ws/events stream from an in-memory store. Use it to try the gwcfg
wizards without a gateway on the network.

Sign in with admin/admin (full access) or viewer/viewer (read only).`,
	Version: version.Version,
	Example: `  # Serve the seeded fixtures on the default port
  gwcfg-mock

  # Start empty and register the mock as the "local" gateway profile
  gwcfg-mock --empty --register

  # Serve HTTPS with your own certificate
  gwcfg-mock --port 9443 --cert cert.pem --key key.pem`,
	Args: cobra.NoArgs,
	RunE: runServer,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.Flags().StringVar(&certPath, "cert", "", "Path to TLS certificate file (serves HTTPS with --key)")
	rootCmd.Flags().StringVar(&keyPath, "key", "", "Path to TLS private key file")
	rootCmd.Flags().StringVar(&host, "host", "", "Listen address (empty = all interfaces)")
	rootCmd.Flags().IntVar(&port, "port", 9000, "Listen port")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&empty, "empty", false, "Start without fixture models and devices")
	rootCmd.Flags().BoolVar(&register, "register", false, "Add this server to the gwcfg registry as the \"local\" gateway")

	rootCmd.AddCommand(versionCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	if (certPath != "") != (keyPath != "") {
		return fmt.Errorf("both --cert and --key must be provided together, or neither")
	}
	for _, p := range []string{certPath, keyPath} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", p)
		}
	}

	if register {
		if err := config.AddLocalGateway(port); err != nil {
			return fmt.Errorf("failed to register gateway profile: %w", err)
		}
		fmt.Printf("Registered gateway profile \"local\" at http://localhost:%d\n", port)
	}

	srv, err := server.New(&server.Config{
		Host:     host,
		Port:     port,
		CertPath: certPath,
		KeyPath:  keyPath,
		LogLevel: logLevel,
		Empty:    empty,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gwcfg-mock %s\n", version.Full())
	},
}
