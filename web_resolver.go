package ddns

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// WebResolver constructs a resolver which uses external web services to look up a "public" IP address.
//
// Each serviceURL must speak http and return status "200 OK",
// with a valid IPv4 or IPv6 address as the first line of the response body.
// All other responses are considered an error.
//
// With a single serviceURL the resolver returns that service's answer.
// With more, the first three are queried concurrently
// and the lookup only succeeds if the first two non-error responses agree.
//
// The Porkbun ping endpoint (see PorkbunResolver) is usually the better choice
// when records are published through Porkbun anyway.
func WebResolver(serviceURL ...string) Resolver {
	return &webResolver{serviceURLs: serviceURL, logger: zerolog.Nop()}
}

type webResolver struct {
	httpClient  *http.Client
	logger      zerolog.Logger
	serviceURLs []string
}

func (wr *webResolver) SetHTTPClient(httpclient *http.Client) { wr.httpClient = httpclient }
func (wr *webResolver) SetLogger(logger zerolog.Logger)        { wr.logger = logger }

// Resolve implements ddns.Resolver.
func (wr *webResolver) Resolve(ctx context.Context) ([]netip.Addr, error) {
	if len(wr.serviceURLs) == 0 {
		return nil, errors.New("no external IP lookup services were provided")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		url  string
		addr netip.Addr
		err  error
	}

	n := min(len(wr.serviceURLs), 3)
	need := min(n, 2)
	// buffered so lookups still in flight after an early return never block
	results := make(chan result, n)
	for _, u := range wr.serviceURLs[:n] {
		go func() {
			addr, err := wr.lookup(ctx, u)
			results <- result{url: u, addr: addr, err: err}
		}()
	}

	var errs []error
	var agreed []netip.Addr
	for i := 0; i < n; i++ {
		r := <-results
		if r.err != nil {
			wr.logger.Debug().Err(r.err).Str("url", r.url).Msg("IP lookup failed")
			errs = append(errs, r.err)
			continue
		}
		wr.logger.Debug().Str("url", r.url).Str("addr", r.addr.String()).Msg("IP lookup succeeded")
		agreed = append(agreed, r.addr)
		if len(agreed) < need {
			continue
		}
		if agreed[0] != agreed[len(agreed)-1] {
			return nil, fmt.Errorf("IP resolvers did not agree on our IP: got %s and %s", agreed[0], agreed[len(agreed)-1])
		}
		return []netip.Addr{agreed[0]}, nil
	}
	return nil, fmt.Errorf("not enough resolvers responded without errors: %w", errors.Join(errs...))
}

func (wr *webResolver) lookup(ctx context.Context, url string) (netip.Addr, error) {
	// bounds the lookup even when the caller's context and http client have no deadline
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	httpclient := wr.httpClient
	if httpclient == nil {
		httpclient = http.DefaultClient
	}

	resp, err := httpclient.Do(req)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return netip.Addr{}, fmt.Errorf("http request to %s returned %s", url, resp.Status)
	}

	line, err := bufio.NewReader(io.LimitReader(resp.Body, 512)).ReadString('\n')
	if err != nil && err != io.EOF {
		return netip.Addr{}, fmt.Errorf("error reading response body: %w", err)
	}
	ip, err := netip.ParseAddr(strings.TrimSpace(line))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error parsing IP address from response body: %w", err)
	}
	return ip.Unmap(), nil
}
