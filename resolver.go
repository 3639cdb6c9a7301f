package ddns

import (
	"context"
	"errors"
	"net/netip"
	"sync"
)

// Resolver looks up the addresses that should be published.
type Resolver interface {
	Resolve(context.Context) ([]netip.Addr, error)
}

// Provider replaces the A and AAAA records of domain with records.
type Provider interface {
	SetDNSRecords(ctx context.Context, domain string, records []netip.Addr) error
}

// Cache remembers the addresses last published for a domain
// so that unchanged addresses don't cause provider calls.
type Cache interface {
	Unchanged(ctx context.Context, domain string, addrs []netip.Addr) (bool, error)
	Remember(ctx context.Context, domain string, addrs []netip.Addr) error
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(context.Context) ([]netip.Addr, error)

func (f ResolverFunc) Resolve(ctx context.Context) ([]netip.Addr, error) { return f(ctx) }

// Join constructs a resolver that runs every resolver concurrently
// and returns the combined set of addresses.
//
// Any resolver error fails the whole lookup,
// since publishing a partial set would delete the missing records.
func Join(resolvers ...Resolver) Resolver {
	return joinResolver(resolvers)
}

type joinResolver []Resolver

func (j joinResolver) Resolve(ctx context.Context) ([]netip.Addr, error) {
	results := make([][]netip.Addr, len(j))
	errs := make([]error, len(j))

	var wg sync.WaitGroup
	wg.Add(len(j))
	for i, r := range j {
		go func() {
			defer wg.Done()
			results[i], errs[i] = r.Resolve(ctx)
		}()
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	seen := map[netip.Addr]bool{}
	var addrs []netip.Addr
	for _, res := range results {
		for _, a := range res {
			if seen[a] {
				continue
			}
			seen[a] = true
			addrs = append(addrs, a)
		}
	}
	return addrs, nil
}
