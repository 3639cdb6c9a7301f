package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. PORKDDNS_API_KEY.
const EnvPrefix = "PORKDDNS"

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"domain":           "domain",
	"zone":             "zone",
	"api-key":          "api_key",
	"secret-api-key":   "secret_api_key",
	"provider":         "provider",
	"cloudflare-token": "cloudflare_token",
	"resolver":         "resolver",
	"ip":               "ip",
	"iface":            "interfaces",
	"web-service":      "web_services",
	"ttl":              "ttl",
	"interval":         "interval",
	"state":            "state_file",
	"force":            "force",
	"verbose":          "verbose",
}

// New returns a viper instance with defaults and environment variables configured.
// Flags in flags that are listed in flagKeys take precedence over the file and
// the environment when the user set them.
func New(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	d := Default()
	v.SetDefault("domain", d.Domain)
	v.SetDefault("zone", d.Zone)
	v.SetDefault("api_key", d.APIKey)
	v.SetDefault("secret_api_key", d.SecretAPIKey)
	v.SetDefault("provider", d.Provider)
	v.SetDefault("cloudflare_token", d.CloudflareToken)
	v.SetDefault("resolver", d.Resolver)
	v.SetDefault("ip", d.IP)
	v.SetDefault("interfaces", []string{})
	v.SetDefault("web_services", []string{})
	v.SetDefault("ttl", d.TTL)
	v.SetDefault("interval", d.Interval)
	v.SetDefault("state_file", d.StateFile)
	v.SetDefault("force", d.Force)
	v.SetDefault("verbose", d.Verbose)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags == nil {
		return v, nil
	}
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return v, nil
}

// Load reads the config file at path into v and decodes the result.
// A missing file is only an error when required is true.
func Load(v *viper.Viper, path string, required bool) (Config, error) {
	if path != "" {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			if err := CheckPermissions(path); err != nil {
				return Config{}, err
			}
			v.SetConfigFile(path)
			v.SetConfigType("toml")
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !required:
		default:
			return Config{}, fmt.Errorf("config file: %w", err)
		}
	}
	return Decode(v)
}

// Decode converts the current state of v into a Config.
func Decode(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}

// Watch reports changes to the config file read by v.
// Changes arriving while a previous one is unread are coalesced.
func Watch(v *viper.Viper) <-chan fsnotify.Event {
	changes := make(chan fsnotify.Event, 1)
	v.OnConfigChange(func(e fsnotify.Event) {
		select {
		case changes <- e:
		default:
		}
	})
	v.WatchConfig()
	return changes
}

// CheckPermissions rejects config files readable by anyone but the owner,
// since they hold API credentials.
func CheckPermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("error checking config file permissions: %w", err)
	}

	perms := info.Mode().Perm()
	// Error messages will state that we want 0600,
	// but we'll also accept 0400 which is even more restricted.
	// The file might be provided by some secrets managing software as readonly.
	if perms != 0600 && perms != 0400 {
		return fmt.Errorf("invalid permissions for %q: expected file permissions \"-rw-------\"; found %q", path, fs.FileMode(perms))
	}
	return nil
}
