package ddns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
)

// InterfaceResolver constructs a resolver that returns the IP addresses reported by the given interfaces.
// If no interfaces are provided then all interfaces will be used.
// Loopback and link-local addresses are always skipped.
func InterfaceResolver(iface ...string) Resolver {
	return interfaceResolver{names: iface}
}

type interfaceResolver struct {
	names []string
}

func (r interfaceResolver) Resolve(ctx context.Context) ([]netip.Addr, error) {
	if len(r.names) == 0 {
		all, err := net.InterfaceAddrs()
		if err != nil {
			return nil, fmt.Errorf("error getting interface addresses: %w", err)
		}
		return usableAddrs(all, "")
	}

	var addrs []netip.Addr
	var errs []error
	for _, name := range r.names {
		iface, err := net.InterfaceByName(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("error getting interface %s by name: %w", name, err))
			continue
		}
		ifaddrs, err := iface.Addrs()
		if err != nil {
			errs = append(errs, fmt.Errorf("error looking up addresses for interface %s: %w", name, err))
			continue
		}
		a, err := usableAddrs(ifaddrs, name)
		addrs = append(addrs, a...)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return addrs, errors.Join(errs...)
}

// usableAddrs converts interface addresses, which look like
// ip+net:192.168.86.253/24 or ip+net:fe80::2cc9:801b:3551:9a43/64.
func usableAddrs(ifaddrs []net.Addr, iface string) ([]netip.Addr, error) {
	var addrs []netip.Addr
	var errs []error
	for _, addr := range ifaddrs {
		prefix, err := netip.ParsePrefix(addr.String())
		if err != nil {
			errs = append(errs, fmt.Errorf("error parsing local ip %s %s: %w", addr.String(), iface, err))
			continue
		}
		a := prefix.Addr().Unmap()
		if a.IsLoopback() || a.IsLinkLocalUnicast() {
			continue
		}
		addrs = append(addrs, a)
	}
	return addrs, errors.Join(errs...)
}
