package ddns

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Travis-Britz/porkddns/porkbun"
)

// PorkbunResolver constructs a resolver that asks the Porkbun ping endpoint for the public IPv4 address.
func PorkbunResolver(apiKey, secretAPIKey string) Resolver {
	return &porkbunResolver{creds: porkbun.Credentials{APIKey: apiKey, SecretAPIKey: secretAPIKey}}
}

type porkbunResolver struct {
	creds  porkbun.Credentials
	api    *porkbun.Client
	logger zerolog.Logger
}

func (r *porkbunResolver) SetLogger(logger zerolog.Logger) {
	r.logger = logger
}

func (r *porkbunResolver) SetHTTPClient(httpclient *http.Client) {
	r.api = porkbun.NewClient(porkbun.WithHTTPClient(httpclient), porkbun.WithLogger(r.logger))
}

func (r *porkbunResolver) Resolve(ctx context.Context) ([]netip.Addr, error) {
	api := r.api
	if api == nil {
		api = porkbun.NewClient()
	}
	ip, err := api.RequestIP(ctx, r.creds)
	if err != nil {
		return nil, fmt.Errorf("porkbun ping failed: %w", err)
	}
	// the ping response is not validated by the API client
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return nil, fmt.Errorf("porkbun returned an invalid IP %q: %w", ip, err)
	}
	return []netip.Addr{addr.Unmap()}, nil
}

// porkbunProvider implements ddns.Provider.
//
// Porkbun keeps one content value per name and type when editing by name,
// so at most one IPv4 and one IPv6 address are published.
// Records of a type with no current address are deleted.
type porkbunProvider struct {
	creds  porkbun.Credentials
	api    *porkbun.Client
	logger zerolog.Logger
	zone   string
	ttl    int
}

func (p *porkbunProvider) SetLogger(logger zerolog.Logger) {
	p.logger = logger
	p.rebuild(nil)
}

func (p *porkbunProvider) SetHTTPClient(httpclient *http.Client) {
	p.rebuild(httpclient)
}

func (p *porkbunProvider) SetRecordOptions(zone string, ttl int) {
	p.zone, p.ttl = zone, ttl
}

func (p *porkbunProvider) rebuild(httpclient *http.Client) {
	opts := []porkbun.Option{porkbun.WithLogger(p.logger)}
	if httpclient != nil {
		opts = append(opts, porkbun.WithHTTPClient(httpclient))
	}
	p.api = porkbun.NewClient(opts...)
}

func (p *porkbunProvider) SetDNSRecords(ctx context.Context, domain string, addrs []netip.Addr) error {
	if p.api == nil {
		return errors.New("ddns.porkbunProvider.SetDNSRecords: provider should be constructed with ddns.UsingPorkbun")
	}
	zone, sub, err := splitDomain(domain, p.zone)
	if err != nil {
		return err
	}

	byType := map[string]netip.Addr{}
	for _, a := range addrs {
		t := recordType(a)
		if prev, found := byType[t]; found {
			p.logger.Warn().Str("kept", prev.String()).Str("ignored", a.String()).Msgf("only one %s record is published per name", t)
			continue
		}
		byType[t] = a.Unmap()
	}

	var errs []error
	for _, t := range []string{"A", "AAAA"} {
		a, ok := byType[t]
		if !ok {
			if err := p.clearRecords(ctx, zone, sub, t); err != nil {
				errs = append(errs, fmt.Errorf("error removing %s records for %s: %w", t, domain, err))
			}
			continue
		}
		if err := p.setRecord(ctx, zone, sub, t, a); err != nil {
			errs = append(errs, fmt.Errorf("error setting %s record for %s: %w", t, domain, err))
		}
	}
	return errors.Join(errs...)
}

// clearRecords deletes records of a type that has no current address.
func (p *porkbunProvider) clearRecords(ctx context.Context, zone, sub, typ string) error {
	existing, err := p.api.RetrieveRecords(ctx, p.creds, zone, typ, sub)
	if err != nil {
		return fmt.Errorf("error listing records: %w", err)
	}
	if len(existing) == 0 {
		return nil
	}
	p.logger.Info().Str("zone", zone).Str("name", sub).Str("type", typ).Int("count", len(existing)).Msg("deleting stale records")
	if err := p.api.DeleteRecords(ctx, p.creds, zone, typ, sub); err != nil {
		return fmt.Errorf("error deleting records: %w", err)
	}
	return nil
}

func (p *porkbunProvider) setRecord(ctx context.Context, zone, sub, typ string, addr netip.Addr) error {
	log := p.logger.With().Str("zone", zone).Str("name", sub).Str("type", typ).Logger()

	existing, err := p.api.RetrieveRecords(ctx, p.creds, zone, typ, sub)
	if err != nil {
		return fmt.Errorf("error listing records: %w", err)
	}
	log.Debug().Int("count", len(existing)).Msg("found existing records")

	content := addr.String()
	if len(existing) == 1 && existing[0].Content == content {
		log.Info().Str("content", content).Msg("record already up to date")
		return nil
	}

	if len(existing) > 0 {
		log.Info().Str("content", content).Msg("editing existing records")
		if err := p.api.EditRecords(ctx, p.creds, zone, typ, sub, content, p.ttl); err != nil {
			return fmt.Errorf("error editing records: %w", err)
		}
		return nil
	}

	log.Info().Str("content", content).Msg("creating record")
	id, err := p.api.CreateRecord(ctx, p.creds, zone, porkbun.Record{
		Name:    sub,
		Type:    typ,
		Content: content,
		TTL:     strconv.Itoa(p.ttl),
	})
	if err != nil {
		return fmt.Errorf("error creating record: %w", err)
	}
	log.Info().Str("id", id).Msg("created record")
	return nil
}

// splitDomain returns the zone and the subdomain within it.
// Without an explicit zone the last two labels of domain are used.
func splitDomain(domain, zone string) (string, string, error) {
	domain = strings.TrimSuffix(strings.ToLower(domain), ".")
	if zone == "" {
		labels := strings.Split(domain, ".")
		if len(labels) < 2 {
			return "", "", fmt.Errorf("domain %q must have at least one dot", domain)
		}
		zone = strings.Join(labels[len(labels)-2:], ".")
	}
	zone = strings.TrimSuffix(strings.ToLower(zone), ".")

	if domain == zone {
		return zone, "", nil
	}
	if !strings.HasSuffix(domain, "."+zone) {
		return "", "", fmt.Errorf("domain %q is not within zone %q", domain, zone)
	}
	return zone, strings.TrimSuffix(domain, "."+zone), nil
}
