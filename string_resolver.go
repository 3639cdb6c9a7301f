package ddns

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
)

// FromString constructs a resolver that always returns the given addresses.
// Multiple addresses are separated by commas, e.g. "203.0.113.7,2001:db8::7".
func FromString(addrs string) (Resolver, error) {
	var r staticResolver
	for _, s := range strings.Split(addrs, ",") {
		a, err := netip.ParseAddr(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("unable to parse IP: %w", err)
		}
		r = append(r, a.Unmap())
	}
	return r, nil
}

type staticResolver []netip.Addr

func (s staticResolver) Resolve(context.Context) ([]netip.Addr, error) {
	return append([]netip.Addr(nil), s...), nil
}
