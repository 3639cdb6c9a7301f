package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	ddns "github.com/Travis-Britz/porkddns"
	"github.com/Travis-Britz/porkddns/internal/config"
	"github.com/Travis-Britz/porkddns/internal/history"
)

func runUpdate(cmd *cobra.Command, cfgPath string) error {
	cfg, v, err := loadConfig(cmd, cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.Debug().Interface("config", cfg.Masked()).Msg("configuration")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Interval == 0 {
		client, closer, err := buildClient(cfg)
		if err != nil {
			return err
		}
		defer closer.Close()
		return client.RunDDNS(ctx)
	}

	var changes <-chan struct{}
	if v.ConfigFileUsed() != "" {
		changes = watch(v)
	}
	for {
		err := daemon(ctx, cfg, changes)
		if ctx.Err() != nil {
			logger.Info().Msg("received signal, stopping")
			return nil
		}
		if err != nil {
			return err
		}

		// the config file changed
		next, err := reloadConfig(v)
		if err != nil {
			logger.Error().Err(err).Msg("ignoring config change")
			continue
		}
		logger.Info().Interface("config", next.Masked()).Msg("config reloaded")
		cfg = next
	}
}

// reloadConfig applies the same checks to a changed config file as startup does.
func reloadConfig(v *viper.Viper) (config.Config, error) {
	if path := v.ConfigFileUsed(); path != "" {
		if err := config.CheckPermissions(path); err != nil {
			return config.Config{}, err
		}
	}
	next, err := config.Decode(v)
	if err != nil {
		return config.Config{}, err
	}
	if err := next.Validate(); err != nil {
		return config.Config{}, err
	}
	setVerbose(next.Verbose)
	return next, nil
}

// daemon updates records on every cfg.Interval until ctx is done or changes fires.
func daemon(ctx context.Context, cfg config.Config, changes <-chan struct{}) error {
	client, closer, err := buildClient(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-changes:
			cancel()
		case <-ctx.Done():
		}
	}()
	logger.Info().Str("domain", cfg.Domain).Dur("interval", cfg.Interval).Msg("starting")
	ddns.RunDaemon(ctx, client, cfg.Interval, logger)
	return nil
}

func watch(v *viper.Viper) <-chan struct{} {
	events := config.Watch(v)
	changes := make(chan struct{})
	go func() {
		for e := range events {
			logger.Debug().Str("file", e.Name).Stringer("op", e.Op).Msg("config file changed")
			changes <- struct{}{}
		}
	}()
	return changes
}

// buildClient translates cfg into ddns options.
// The returned closer releases the address history.
func buildClient(cfg config.Config) (ddns.DDNSClient, io.Closer, error) {
	opts := []ddns.Option{
		ddns.WithLogger(logger),
		ddns.WithTTL(cfg.TTL),
		ddns.WithZone(cfg.Zone),
	}

	switch cfg.Provider {
	case config.ProviderPorkbun:
		opts = append(opts, ddns.UsingPorkbun(cfg.APIKey, cfg.SecretAPIKey))
	case config.ProviderCloudflare:
		opts = append(opts, ddns.UsingCloudflare(cfg.CloudflareToken))
	default:
		return nil, nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	switch cfg.Resolver {
	case config.ResolverPorkbun:
		opts = append(opts, ddns.UsingResolver(ddns.PorkbunResolver(cfg.APIKey, cfg.SecretAPIKey)))
	case config.ResolverWeb:
		opts = append(opts, ddns.UsingWebResolver(cfg.WebServices...))
	case config.ResolverInterface:
		opts = append(opts, ddns.UsingResolver(ddns.InterfaceResolver(cfg.Interfaces...)))
	case config.ResolverStatic:
		r, err := ddns.FromString(cfg.IP)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, ddns.UsingResolver(r))
	default:
		return nil, nil, fmt.Errorf("unknown resolver %q", cfg.Resolver)
	}

	var closer io.Closer = nopCloser{}
	if !cfg.Force && cfg.StateFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.StateFile), 0700); err != nil {
			return nil, nil, fmt.Errorf("create state directory: %w", err)
		}
		store, err := history.Open(cfg.StateFile)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, ddns.UsingCache(store))
		closer = store
	}

	client, err := ddns.New(cfg.Domain, opts...)
	if err != nil {
		return nil, nil, errors.Join(err, closer.Close())
	}
	return client, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
