package ddns

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"time"

	"github.com/rs/zerolog"

	"github.com/Travis-Britz/porkddns/porkbun"
)

// DefaultResolver is used when no resolver option was given
// and the provider has no way to look up the public address itself.
var DefaultResolver Resolver = InterfaceResolver()

// DefaultTTL is the TTL for new records. It is the smallest TTL Porkbun accepts.
const DefaultTTL = 600

// New constructs a client that keeps the A and AAAA records of domain up to date.
//
// A provider option such as UsingPorkbun or UsingCloudflare is required.
// With UsingPorkbun and no resolver option,
// the public address is looked up from the Porkbun ping endpoint using the same credentials.
func New(domain string, options ...Option) (DDNSClient, error) {
	if domain == "" {
		return nil, fmt.Errorf("ddns.New: domain cannot be empty")
	}
	c := &client{
		domain: domain,
		logger: zerolog.Nop(),
		ttl:    DefaultTTL,
	}
	for i, opt := range options {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("ddns.New: option %d returned an error: %w", i, err)
		}
	}

	if c.Provider == nil {
		return nil, fmt.Errorf("ddns.New: no DNS provider was registered and there is no default option - use ddns.UsingPorkbun or similar")
	}
	if c.Resolver == nil {
		if p, ok := c.Provider.(*porkbunProvider); ok {
			c.Resolver = &porkbunResolver{creds: p.creds}
		} else {
			c.Resolver = DefaultResolver
		}
	}

	// dependencies are configured last so the order of options doesn't matter
	c.configure(c.Provider)
	c.configure(c.Resolver)
	return c, nil
}

// Option configures the client returned by New.
type Option func(*client) error

// UsingPorkbun publishes records through the Porkbun API.
func UsingPorkbun(apiKey, secretAPIKey string) Option {
	return func(c *client) error {
		if apiKey == "" || secretAPIKey == "" {
			return errors.New("ddns.UsingPorkbun: API key and secret API key are required")
		}
		c.Provider = &porkbunProvider{creds: porkbun.Credentials{APIKey: apiKey, SecretAPIKey: secretAPIKey}}
		return nil
	}
}

func UsingCloudflare(token string) Option {
	return func(c *client) (err error) {
		if c.Provider, err = newCloudflareProvider(token); err != nil {
			return fmt.Errorf("ddns.UsingCloudflare: error creating cloudflare DNS provider: %w", err)
		}
		return nil
	}
}

// UsingProvider publishes records through any Provider implementation.
func UsingProvider(provider Provider) Option {
	return func(c *client) error {
		if provider == nil {
			return errors.New("ddns.UsingProvider: provider cannot be nil")
		}
		c.Provider = provider
		return nil
	}
}

func UsingResolver(resolver Resolver) Option {
	return func(c *client) error {
		if resolver == nil {
			resolver = DefaultResolver
		}
		c.Resolver = resolver
		return nil
	}
}

// UsingWebResolver is shorthand for UsingResolver(WebResolver(serviceURL...)).
func UsingWebResolver(serviceURL ...string) Option {
	return func(c *client) error {
		if len(serviceURL) == 0 {
			return errors.New("ddns.UsingWebResolver: at least one service URL is required")
		}
		c.Resolver = WebResolver(serviceURL...)
		return nil
	}
}

// UsingCache skips provider calls while the resolved addresses match what cache last recorded.
func UsingCache(cache Cache) Option {
	return func(c *client) error {
		c.cache = cache
		return nil
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *client) error {
		c.logger = logger
		return nil
	}
}

func UsingHTTPClient(httpclient *http.Client) Option {
	return func(c *client) error {
		c.httpClient = httpclient
		return nil
	}
}

// WithZone names the DNS zone the domain belongs to, e.g. "example.com" for "home.example.com".
// Without it the zone is derived by the provider.
func WithZone(zone string) Option {
	return func(c *client) error {
		c.zone = zone
		return nil
	}
}

// WithTTL sets the TTL in seconds for created and updated records.
func WithTTL(ttl int) Option {
	return func(c *client) error {
		if ttl <= 0 {
			return fmt.Errorf("ddns.WithTTL: invalid TTL %d", ttl)
		}
		c.ttl = ttl
		return nil
	}
}

// configure passes client-wide settings to a resolver or provider that accepts them.
func (c *client) configure(dep any) {
	type setLogger interface {
		SetLogger(zerolog.Logger)
	}
	type setHTTPClient interface {
		SetHTTPClient(*http.Client)
	}
	type setRecordOptions interface {
		SetRecordOptions(zone string, ttl int)
	}

	if j, ok := dep.(joinResolver); ok {
		for _, r := range j {
			c.configure(r)
		}
		return
	}
	if d, ok := dep.(setLogger); ok {
		d.SetLogger(c.logger)
	}
	if d, ok := dep.(setRecordOptions); ok {
		d.SetRecordOptions(c.zone, c.ttl)
	}
	if d, ok := dep.(setHTTPClient); ok {
		httpclient := c.httpClient
		if httpclient == nil {
			httpclient = http.DefaultClient
		}
		d.SetHTTPClient(httpclient)
	}
}

type DDNSClient interface {
	RunDDNS(ctx context.Context) error
}

type client struct {
	Resolver
	Provider
	cache      Cache
	logger     zerolog.Logger
	httpClient *http.Client
	domain     string
	zone       string
	ttl        int
}

// RunDDNS resolves the current addresses and publishes them.
func (c *client) RunDDNS(ctx context.Context) error {
	addrs, err := c.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("error getting IPs: %w", err)
	}
	if len(addrs) == 0 {
		return errors.New("error getting IPs: resolver returned no addresses")
	}
	c.logger.Info().Str("domain", c.domain).Stringer("addrs", addrList(addrs)).Msg("resolved addresses")

	if c.cache != nil {
		unchanged, err := c.cache.Unchanged(ctx, c.domain, addrs)
		switch {
		case err != nil:
			c.logger.Warn().Err(err).Msg("unable to read address history; updating anyway")
		case unchanged:
			c.logger.Info().Str("domain", c.domain).Msg("addresses unchanged since last update")
			return nil
		}
	}

	if err := c.SetDNSRecords(ctx, c.domain, addrs); err != nil {
		return fmt.Errorf("error updating %s with new IPs: %w", c.domain, err)
	}
	c.logger.Info().Str("domain", c.domain).Msg("DNS records updated")

	if c.cache != nil {
		if err := c.cache.Remember(ctx, c.domain, addrs); err != nil {
			return fmt.Errorf("error recording published IPs: %w", err)
		}
	}
	return nil
}

// RunDaemon runs ddnsClient immediately and then on every interval until ctx is done.
//
// Intervals shorter than a minute are raised to a minute.
// Errors from a run are logged and do not stop the loop.
func RunDaemon(ctx context.Context, ddnsClient DDNSClient, interval time.Duration, logger zerolog.Logger) {
	if interval < 1*time.Minute {
		interval = 1 * time.Minute
	}
	run := func() {
		if err := ddnsClient.RunDDNS(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("ddns update failed")
		}
	}

	run()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

type addrList []netip.Addr

func (l addrList) String() string {
	return fmt.Sprint([]netip.Addr(l))
}

func recordType(a netip.Addr) string {
	if a.Is4() || a.Is4In6() {
		return "A"
	}
	if a.Is6() {
		return "AAAA"
	}
	panic("unknown ip configuration")
}
