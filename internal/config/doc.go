// Package config manages the gwcfg user configuration.
//
// A YAML registry stores saved gateway profiles, the default profile,
// preferences (discovery, request timeout, rate limit, log level) and the
// operator signed in with 'gwcfg login'.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/gwcfg/config.yaml or $HOME/.config/gwcfg/config.yaml
//   - macOS: $HOME/.config/gwcfg/config.yaml
//   - Windows: %LOCALAPPDATA%\gwcfg\config.yaml
//
// GWCFG_CONFIG_DIR overrides the directory on every platform.
//
// # Environment
//
// GWCFG_BASE_URL, GWCFG_GATEWAY, GWCFG_EDITION, GWCFG_LOG_LEVEL and
// GWCFG_REQUEST_TIMEOUT override the file; see Env and Registry.Resolve.
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = registry.AddGateway(&config.Gateway{
//	    Name:    "plant-a",
//	    BaseURL: "http://192.168.1.50:9000",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes.
package config
