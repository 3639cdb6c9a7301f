package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Travis-Britz/porkddns/internal/config"
)

var exampleUsage = strings.TrimSpace(`
  porkddns setup --domain home.example.com
  porkddns --domain home.example.com --interval 10m
  porkddns --provider cloudflare --resolver web --web-service https://icanhazip.com/
  porkddns ip
`)

var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
	With().Timestamp().Logger().
	Level(zerolog.InfoLevel)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		logger.Error().Err(err).Msg("porkddns")
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var cfgPath string
	d := config.Default()

	root := &cobra.Command{
		Use:           "porkddns",
		Short:         "Keep the A and AAAA records of a domain pointed at this host",
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd, cfgPath)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&cfgPath, "config", "c", "", fmt.Sprintf("path to config file (default %s)", config.DefaultPath()))
	pf.String("api-key", "", "Porkbun API key")
	pf.String("secret-api-key", "", "Porkbun secret API key")
	pf.BoolP("verbose", "v", false, "enable debug logging")

	f := root.Flags()
	f.StringP("domain", "d", "", "DNS name to update")
	f.StringP("zone", "z", "", "zone the domain belongs to (default: the last two labels)")
	f.String("provider", d.Provider, "DNS provider: porkbun or cloudflare")
	f.String("cloudflare-token", "", "Cloudflare API token")
	f.String("resolver", d.Resolver, "address source: porkbun, web, interface or static")
	f.String("ip", "", "comma separated addresses for the static resolver")
	f.StringSlice("iface", nil, "network interfaces for the interface resolver (default: all)")
	f.StringSlice("web-service", nil, "URLs for the web resolver")
	f.Int("ttl", d.TTL, "TTL in seconds for created and updated records")
	f.DurationP("interval", "i", 0, "check again every interval (0 runs once)")
	f.String("state", d.StateFile, "path to the published address history")
	f.Bool("force", false, "update records even if the addresses have not changed")

	root.AddCommand(newIPCommand(&cfgPath), newSetupCommand(&cfgPath))
	return root
}

// loadConfig merges the config file, PORKDDNS_* variables and the flags of cmd.
// The viper instance is returned so the file can be watched.
func loadConfig(cmd *cobra.Command, cfgPath string) (config.Config, *viper.Viper, error) {
	path, required := cfgPath, true
	if path == "" {
		path, required = config.DefaultPath(), false
	}

	// cobra merges the persistent flags into Flags() while parsing
	v, err := config.New(cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}
	c, err := config.Load(v, path, required)
	if err != nil {
		return config.Config{}, nil, err
	}
	setVerbose(c.Verbose)
	return c, v, nil
}

func setVerbose(verbose bool) {
	if verbose {
		logger = logger.Level(zerolog.DebugLevel)
		return
	}
	logger = logger.Level(zerolog.InfoLevel)
}
