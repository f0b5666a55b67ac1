package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const envPrefix = "GWCFG_"

// FallbackURL is used when nothing else names a gateway.
const FallbackURL = "http://localhost:9000"

// Env holds the GWCFG_* environment overrides.
type Env struct {
	BaseURL        string        `env:"BASE_URL"`
	Gateway        string        `env:"GATEWAY"`
	Edition        string        `env:"EDITION"`
	LogLevel       string        `env:"LOG_LEVEL"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
	ConfigDir      string        `env:"CONFIG_DIR"`
}

// LoadEnv parses the GWCFG_* variables.
func LoadEnv() (Env, error) {
	e, err := env.ParseAsWithOptions[Env](env.Options{Prefix: envPrefix})
	if err != nil {
		return Env{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return e, nil
}

// Where a resolved target came from.
const (
	SourceFlag     = "flag"
	SourceEnv      = "env"
	SourceProfile  = "profile"
	SourceDefault  = "default"
	SourceMDNS     = "mdns"
	SourceFallback = "fallback"
)

// Target is the gateway a command talks to.
type Target struct {
	Name    string // profile name, empty when not from a profile
	BaseURL string
	Edition string
	Source  string
}

// ResolveOptions carries the inputs of Resolve besides the registry.
type ResolveOptions struct {
	URL      string // --url
	Gateway  string // --gateway
	Env      Env
	Discover func(ctx context.Context, timeout time.Duration) (string, error)
}

// Resolve picks the backend URL: --url, GWCFG_BASE_URL, the named profile
// (--gateway, then GWCFG_GATEWAY), the default profile, mDNS discovery,
// then FallbackURL. A named profile that does not exist is an error.
func (r *Registry) Resolve(ctx context.Context, opts ResolveOptions) (*Target, error) {
	t, err := r.resolve(ctx, opts)
	if err != nil {
		return nil, err
	}
	if opts.Env.Edition != "" {
		t.Edition = opts.Env.Edition
	}
	if t.Edition == "" {
		t.Edition = EditionEmbedded
	}
	return t, nil
}

func (r *Registry) resolve(ctx context.Context, opts ResolveOptions) (*Target, error) {
	if opts.URL != "" {
		return &Target{BaseURL: opts.URL, Source: SourceFlag}, nil
	}
	if opts.Env.BaseURL != "" {
		return &Target{BaseURL: opts.Env.BaseURL, Source: SourceEnv}, nil
	}

	name := opts.Gateway
	if name == "" {
		name = opts.Env.Gateway
	}
	if name != "" {
		g := r.GetGateway(name)
		if g == nil {
			return nil, fmt.Errorf("no gateway named %q (see 'gwcfg gateways list')", name)
		}
		return &Target{Name: name, BaseURL: g.BaseURL, Edition: g.Edition, Source: SourceProfile}, nil
	}

	if g := r.GetGateway(r.DefaultGateway); g != nil {
		return &Target{Name: g.Name, BaseURL: g.BaseURL, Edition: g.Edition, Source: SourceDefault}, nil
	}

	prefs := r.Preferences
	if prefs == nil {
		prefs = defaultPreferences()
	}
	if prefs.AutoDiscover && opts.Discover != nil {
		timeout := time.Duration(prefs.DiscoverTimeout) * time.Second
		if url, err := opts.Discover(ctx, timeout); err == nil && url != "" {
			return &Target{BaseURL: url, Source: SourceMDNS}, nil
		}
	}

	return &Target{BaseURL: FallbackURL, Source: SourceFallback}, nil
}

// RequestTimeout returns the effective per-request timeout. Zero means the
// client sets none.
func (r *Registry) RequestTimeout(e Env) time.Duration {
	if e.RequestTimeout > 0 {
		return e.RequestTimeout
	}
	if r.Preferences != nil && r.Preferences.RequestTimeout > 0 {
		return time.Duration(r.Preferences.RequestTimeout) * time.Second
	}
	return 0
}

// LogLevel returns the effective log level, empty for silent.
func (r *Registry) LogLevel(flag string, e Env) string {
	switch {
	case flag != "":
		return flag
	case e.LogLevel != "":
		return e.LogLevel
	case r.Preferences != nil:
		return r.Preferences.LogLevel
	}
	return ""
}
