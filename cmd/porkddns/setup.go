package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Travis-Britz/porkddns/internal/config"
	"github.com/Travis-Britz/porkddns/porkbun"
)

func newSetupCommand(cfgPath *string) *cobra.Command {
	var (
		domain    string
		zone      string
		overwrite bool
	)
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Verify Porkbun API keys and write them to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := *cfgPath
			if path == "" {
				path = config.DefaultPath()
			}
			if path == "" {
				return errors.New("no home directory; use --config to choose a path")
			}
			verbose, _ := cmd.Flags().GetBool("verbose")
			setVerbose(verbose)

			apiKey, _ := cmd.Flags().GetString("api-key")
			secret, _ := cmd.Flags().GetString("secret-api-key")
			var err error
			if apiKey == "" {
				if apiKey, err = prompt(cmd, "Enter Porkbun API key: "); err != nil {
					return err
				}
			}
			if secret == "" {
				if secret, err = prompt(cmd, "Enter Porkbun secret API key: "); err != nil {
					return err
				}
			}

			creds := porkbun.Credentials{APIKey: apiKey, SecretAPIKey: secret}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			logger.Info().Msg("verifying API keys...")
			ip, err := porkbun.NewClient(porkbun.WithLogger(logger)).RequestIP(ctx, creds)
			if err != nil {
				return fmt.Errorf("unable to verify API keys: %w", describeAPIError(err))
			}
			logger.Info().Str("ip", ip).Msg("API keys verified")

			c := config.Default()
			c.Domain, c.Zone = domain, zone
			c.APIKey, c.SecretAPIKey = apiKey, secret
			if err := config.Write(path, c, overwrite); err != nil {
				return err
			}
			logger.Info().Str("path", path).Msg("config written")
			if domain == "" {
				logger.Warn().Msgf("no domain was given; set domain in %s before running porkddns", path)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&domain, "domain", "d", "", "DNS name to update")
	cmd.Flags().StringVarP(&zone, "zone", "z", "", "zone the domain belongs to")
	cmd.Flags().BoolVar(&overwrite, "force", false, "replace an existing config file")
	return cmd
}

// prompt reads a secret from the terminal without echo.
// Input that is not a terminal is read a line at a time.
func prompt(cmd *cobra.Command, label string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), label)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("error reading from stdin: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := stdin.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("error reading from stdin: %w", err)
	}
	if line = strings.TrimSpace(line); line == "" {
		return "", errors.New("no input")
	}
	return line, nil
}

var stdin = bufio.NewReader(os.Stdin)
