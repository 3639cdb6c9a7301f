// Package config loads porkddns settings from a TOML file, PORKDDNS_* environment variables and flags.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	ProviderPorkbun    = "porkbun"
	ProviderCloudflare = "cloudflare"

	ResolverPorkbun   = "porkbun"
	ResolverWeb       = "web"
	ResolverInterface = "interface"
	ResolverStatic    = "static"
)

// Config holds every porkddns setting. Keys are the mapstructure tags.
type Config struct {
	Domain string `mapstructure:"domain" toml:"domain" validate:"required,fqdn"`
	Zone   string `mapstructure:"zone" toml:"zone,omitempty" validate:"omitempty,fqdn"`

	APIKey       string `mapstructure:"api_key" toml:"api_key"`
	SecretAPIKey string `mapstructure:"secret_api_key" toml:"secret_api_key"`

	Provider        string `mapstructure:"provider" toml:"provider,omitempty" validate:"oneof=porkbun cloudflare"`
	CloudflareToken string `mapstructure:"cloudflare_token" toml:"cloudflare_token,omitempty" validate:"required_if=Provider cloudflare"`

	Resolver    string   `mapstructure:"resolver" toml:"resolver,omitempty" validate:"oneof=porkbun web interface static"`
	IP          string   `mapstructure:"ip" toml:"ip,omitempty"`
	Interfaces  []string `mapstructure:"interfaces" toml:"interfaces,omitempty"`
	WebServices []string `mapstructure:"web_services" toml:"web_services,omitempty" validate:"omitempty,dive,url"`

	TTL       int           `mapstructure:"ttl" toml:"ttl,omitempty" validate:"gte=60"`
	Interval  time.Duration `mapstructure:"interval" toml:"-"`
	StateFile string        `mapstructure:"state_file" toml:"state_file,omitempty"`
	Force     bool          `mapstructure:"force" toml:"-"`
	Verbose   bool          `mapstructure:"verbose" toml:"-"`
}

// Default returns a Config with default values.
func Default() Config {
	return Config{
		Provider:  ProviderPorkbun,
		Resolver:  ResolverPorkbun,
		TTL:       600,
		StateFile: filepath.Join(Dir(), "state.db"),
	}
}

// Dir returns the directory holding the default config and state files.
// Returns ~/.porkddns if the user home directory is accessible.
func Dir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".porkddns")
	}
	return ""
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	if d := Dir(); d != "" {
		return filepath.Join(d, "config.toml")
	}
	return ""
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report config keys rather than Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(validateCombinations, Config{})
	return v
}

// validateCombinations checks rules that depend on more than one field.
func validateCombinations(sl validator.StructLevel) {
	c := sl.Current().Interface().(Config)

	if c.Provider == ProviderPorkbun || c.Resolver == ResolverPorkbun {
		if c.APIKey == "" {
			sl.ReportError(c.APIKey, "api_key", "APIKey", "required_porkbun", "")
		}
		if c.SecretAPIKey == "" {
			sl.ReportError(c.SecretAPIKey, "secret_api_key", "SecretAPIKey", "required_porkbun", "")
		}
	}
	switch c.Resolver {
	case ResolverStatic:
		if c.IP == "" {
			sl.ReportError(c.IP, "ip", "IP", "required_static", "")
		}
		for _, s := range strings.Split(c.IP, ",") {
			if _, err := netip.ParseAddr(strings.TrimSpace(s)); c.IP != "" && err != nil {
				sl.ReportError(c.IP, "ip", "IP", "ip", s)
			}
		}
	case ResolverWeb:
		if len(c.WebServices) == 0 {
			sl.ReportError(c.WebServices, "web_services", "WebServices", "required_web", "")
		}
	}
	if c.Interval != 0 && c.Interval < time.Minute {
		sl.ReportError(c.Interval, "interval", "Interval", "min_interval", "1m")
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	key := fe.Field()
	switch fe.Tag() {
	case "required", "required_if":
		return key + " is required"
	case "required_porkbun":
		return key + " is required for the porkbun provider and resolver (run \"porkddns setup\")"
	case "required_static":
		return key + " is required for the static resolver"
	case "required_web":
		return key + " needs at least one URL for the web resolver"
	case "min_interval":
		return key + " must be 0 (run once) or at least 1m"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", key, fe.Param())
	case "fqdn":
		return fmt.Sprintf("%s %q is not a fully qualified domain name", key, fe.Value())
	default:
		return fmt.Sprintf("%s failed the %q check", key, fe.Tag())
	}
}

// Masked returns a copy that is safe to log.
func (c Config) Masked() Config {
	for _, s := range []*string{&c.APIKey, &c.SecretAPIKey, &c.CloudflareToken} {
		if *s != "" {
			*s = "*****"
		}
	}
	return c
}
