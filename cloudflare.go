package ddns

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"strings"

	"github.com/cloudflare/cloudflare-go"
	"github.com/rs/zerolog"
)

func newCloudflareProvider(token string) (cf *cloudflareProvider, err error) {
	cf = new(cloudflareProvider)
	cf.api, err = cloudflare.NewWithAPIToken(token)
	if err != nil {
		return nil, fmt.Errorf("error creating cloudflare api client: %w", err)
	}
	cf.logger = zerolog.Nop()
	cf.comment = "managed by porkddns"
	cf.ttl = 60
	return cf, nil
}

// cloudflareProvider implements ddns.Provider.
//
// Unlike Porkbun, every address is published as its own record
// and records for addresses that are no longer current are deleted.
type cloudflareProvider struct {
	api     *cloudflare.API
	logger  zerolog.Logger
	zone    string // optional zone name; looked up from the zone list when empty
	ttl     int
	comment string // optional comment to attach to each new DNS entry
}

func (cf *cloudflareProvider) SetLogger(logger zerolog.Logger) { cf.logger = logger }

func (cf *cloudflareProvider) SetHTTPClient(httpclient *http.Client) {
	cloudflare.HTTPClient(httpclient)(cf.api)
}

func (cf *cloudflareProvider) SetRecordOptions(zone string, ttl int) {
	cf.zone = zone
	// cloudflare allows 60 seconds, so only a non-default TTL is passed on
	if ttl > 0 && ttl != DefaultTTL {
		cf.ttl = ttl
	}
}

func (cf *cloudflareProvider) SetDNSRecords(ctx context.Context, domain string, addrs []netip.Addr) error {
	if cf.api == nil {
		return errors.New("ddns.cloudflareProvider.SetDNSRecords: provider should be constructed with ddns.UsingCloudflare")
	}

	zid, err := cf.zoneID(ctx, domain)
	if err != nil {
		return fmt.Errorf("unable to get zone ID for %s: %w", domain, err)
	}
	log := cf.logger.With().Str("zone_id", zid).Str("domain", domain).Logger()

	records, _, err := cf.api.ListDNSRecords(ctx, cloudflare.ZoneIdentifier(zid), cloudflare.ListDNSRecordsParams{
		Type: "A,AAAA",
		Name: domain,
	})
	if err != nil {
		return fmt.Errorf("error listing DNS records: %w", err)
	}
	log.Debug().Int("count", len(records)).Msg("found existing records")

	existing := map[netip.Addr]bool{}
	wanted := map[netip.Addr]bool{}
	for _, a := range addrs {
		wanted[a.Unmap()] = true
	}
	for _, r := range records {
		a, err := netip.ParseAddr(r.Content)
		if err != nil {
			return fmt.Errorf("error parsing IP from content: %w", err)
		}
		existing[a] = true
		if wanted[a] {
			log.Debug().Str("addr", a.String()).Msg("record already exists")
			continue
		}

		log.Info().Str("addr", a.String()).Msg("deleting stale record")
		if err := cf.api.DeleteDNSRecord(ctx, cloudflare.ZoneIdentifier(zid), r.ID); err != nil {
			return fmt.Errorf("unable to delete DNS record %s: %w", r.ID, err)
		}
	}

	for a := range wanted {
		if existing[a] {
			continue
		}
		log.Info().Str("addr", a.String()).Msg("creating record")
		record, err := cf.api.CreateDNSRecord(ctx, cloudflare.ZoneIdentifier(zid), cloudflare.CreateDNSRecordParams{
			Type:    recordType(a),
			Name:    domain,
			Content: a.String(),
			ZoneID:  zid,
			TTL:     cf.ttl,
			Comment: cf.comment,
		})
		if err != nil {
			return fmt.Errorf("error creating DNS record: %w", err)
		}
		log.Debug().Interface("record", record).Msg("created record")
	}

	return nil
}

// zoneID resolves the configured zone by name,
// or picks the longest zone name that is a suffix of domain.
func (cf *cloudflareProvider) zoneID(ctx context.Context, domain string) (string, error) {
	if cf.zone != "" {
		return cf.api.ZoneIDByName(cf.zone)
	}

	zones, err := cf.api.ListZones(ctx)
	if err != nil {
		return "", fmt.Errorf("error listing zones: %w", err)
	}
	var zid string
	max := 0
	for _, z := range zones {
		if (domain == z.Name || strings.HasSuffix(domain, "."+z.Name)) && len(z.Name) > max {
			max, zid = len(z.Name), z.ID
		}
	}
	if max == 0 {
		return "", fmt.Errorf("unable to find a zone matching %q", domain)
	}
	return zid, nil
}
