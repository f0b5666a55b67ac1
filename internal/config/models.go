package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tcam/gwcfg/internal/session"
)

// Editions a gateway profile may carry. The label is shown in headers only.
const (
	EditionEmbedded = "embedded"
	EditionCloud    = "cloud"
)

// Registry represents the entire user configuration file.
// It stores gateway profiles, preferences and the signed-in operator.
type Registry struct {
	Version        int                 `yaml:"version"`
	DefaultGateway string              `yaml:"default_gateway,omitempty"`
	Gateways       map[string]*Gateway `yaml:"gateways,omitempty"` // Keyed by profile name
	Preferences    *Preferences        `yaml:"preferences,omitempty"`
	CurrentUser    *session.User       `yaml:"current_user,omitempty"`
	Token          string              `yaml:"token,omitempty"`
}

// Gateway is a saved connection profile for one gateway.
type Gateway struct {
	Name     string    `yaml:"-" validate:"required,max=50"`
	BaseURL  string    `yaml:"base_url" validate:"required,url"`
	Edition  string    `yaml:"edition,omitempty" validate:"omitempty,oneof=embedded cloud"`
	Serial   string    `yaml:"serial,omitempty"`
	LastSeen time.Time `yaml:"last_seen,omitempty"`
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	AutoDiscover    bool    `yaml:"auto_discover"`    // Fall back to mDNS when no profile matches
	DiscoverTimeout int     `yaml:"discover_timeout"` // mDNS discovery timeout in seconds
	RequestTimeout  int     `yaml:"request_timeout"`  // Per-request timeout in seconds, 0 for none
	RateLimit       float64 `yaml:"rate_limit"`       // Requests per second toward the gateway, 0 disables
	LogLevel        string  `yaml:"log_level,omitempty"`
}

func defaultPreferences() *Preferences {
	return &Preferences{
		AutoDiscover:    true,
		DiscoverTimeout: 3,
		RateLimit:       10,
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Gateways:    make(map[string]*Gateway),
		Preferences: defaultPreferences(),
	}
}

var profileValidator = validator.New()

// Validate checks a profile's name, URL and edition.
func (g *Gateway) Validate() error {
	err := profileValidator.Struct(g)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		if fe.Field() == "BaseURL" {
			return errors.New("gateway URL is required")
		}
		return fmt.Errorf("gateway %s is required", strings.ToLower(fe.Field()))
	case "url":
		return fmt.Errorf("gateway URL %q is not a valid URL", g.BaseURL)
	case "oneof":
		return fmt.Errorf("edition must be one of: %s", fe.Param())
	default:
		return fmt.Errorf("gateway %s is invalid (%s)", strings.ToLower(fe.Field()), fe.Tag())
	}
}

// GetGateway returns the named profile, or nil.
func (r *Registry) GetGateway(name string) *Gateway {
	g := r.Gateways[name]
	if g != nil {
		g.Name = name
	}
	return g
}

// AddGateway validates and stores a profile, replacing any profile of the
// same name. The first profile added becomes the default.
func (r *Registry) AddGateway(g *Gateway) error {
	g.BaseURL = strings.TrimRight(g.BaseURL, "/")
	if g.Edition == "" {
		g.Edition = EditionEmbedded
	}
	if err := g.Validate(); err != nil {
		return err
	}
	if r.Gateways == nil {
		r.Gateways = make(map[string]*Gateway)
	}
	r.Gateways[g.Name] = g
	if r.DefaultGateway == "" {
		r.DefaultGateway = g.Name
	}
	return nil
}

// UseGateway makes name the default profile.
func (r *Registry) UseGateway(name string) error {
	if r.Gateways[name] == nil {
		return fmt.Errorf("no gateway named %q", name)
	}
	r.DefaultGateway = name
	return nil
}

// RemoveGateway deletes a profile. Removing the default clears it.
func (r *Registry) RemoveGateway(name string) error {
	if r.Gateways[name] == nil {
		return fmt.Errorf("no gateway named %q", name)
	}
	delete(r.Gateways, name)
	if r.DefaultGateway == name {
		r.DefaultGateway = ""
	}
	return nil
}

// GatewayNames returns profile names in sorted order.
func (r *Registry) GatewayNames() []string {
	names := make([]string, 0, len(r.Gateways))
	for name := range r.Gateways {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TouchGateway records that the named gateway answered just now.
func (r *Registry) TouchGateway(name string) {
	if g := r.Gateways[name]; g != nil {
		g.LastSeen = time.Now()
	}
}

// SignIn stores the signed-in user and their token.
func (r *Registry) SignIn(u *session.User, token string) {
	r.CurrentUser = u.Public()
	r.Token = token
}

// SignOut forgets the signed-in user.
func (r *Registry) SignOut() {
	r.CurrentUser = nil
	r.Token = ""
}
