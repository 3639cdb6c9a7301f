package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Travis-Britz/porkddns/porkbun"
)

func newIPCommand(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ip",
		Short: "Print the public address Porkbun sees for this host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd, *cfgPath)
			if err != nil {
				return err
			}
			if cfg.APIKey == "" || cfg.SecretAPIKey == "" {
				return errors.New("api_key and secret_api_key are required (run \"porkddns setup\")")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			api := porkbun.NewClient(porkbun.WithLogger(logger))
			ip, err := api.RequestIP(ctx, porkbun.Credentials{APIKey: cfg.APIKey, SecretAPIKey: cfg.SecretAPIKey})
			if err != nil {
				return describeAPIError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), ip)
			return nil
		},
	}
}

// describeAPIError adds a hint for the errors a user can fix.
func describeAPIError(err error) error {
	var webErr *porkbun.WebRequestError
	switch {
	case errors.Is(err, porkbun.ErrInvalidCredentials):
		return fmt.Errorf("%w: check the keys and that API access is enabled for the domain", err)
	case errors.As(err, &webErr):
		return fmt.Errorf("unable to reach Porkbun: %w", err)
	default:
		return err
	}
}
