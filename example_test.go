package ddns_test

import (
	"context"
	"log"
	"net/netip"
	"os"
	"time"

	"github.com/rs/zerolog"

	ddns "github.com/Travis-Britz/porkddns"
)

func ExampleNew() {
	c, err := ddns.New(
		"home.example.com",
		ddns.UsingPorkbun(os.Getenv("PORKBUN_API_KEY"), os.Getenv("PORKBUN_SECRET_API_KEY")),
		ddns.WithLogger(zerolog.New(os.Stderr).With().Timestamp().Logger()),
	)
	if err != nil {
		log.Fatalf("error creating ddns client: %s", err)
	}
	// run once:
	err = c.RunDDNS(context.Background())
	if err != nil {
		log.Fatalf("ddns update failed: %s", err)
	}
}

func ExampleWebResolver() {
	// I'm not vouching for these services, but they do return the IP of the client connection.
	// If possible, run your own and provide the URL here instead.
	r := ddns.WebResolver(
		"https://checkip.amazonaws.com/",
		"https://icanhazip.com/",
		"https://ipinfo.io/ip",
	)
	ddnsClient, err := ddns.New(
		"home.example.com",
		ddns.UsingCloudflare(os.Getenv("CLOUDFLARE_ZONE_TOKEN")),
		ddns.UsingResolver(r),
	)
	if err != nil {
		log.Fatalf("error creating ddns client: %s", err)
	}
	err = ddnsClient.RunDDNS(context.Background())
	if err != nil {
		log.Fatalf("ddns update failed: %s", err)
	}
}

func ExampleRunDaemon() {
	ddnsClient, err := ddns.New("home.example.com",
		ddns.UsingPorkbun(os.Getenv("PORKBUN_API_KEY"), os.Getenv("PORKBUN_SECRET_API_KEY")),
	)
	if err != nil {
		log.Fatalf("error creating ddns client: %s", err)
	}

	// run every 5 minutes and stop after an hour:
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Hour)
	defer cancel()
	ddns.RunDaemon(ctx, ddnsClient, 5*time.Minute, zerolog.New(os.Stderr))
}

func ExampleJoin() {
	// the ping endpoint only reports IPv4, so the IPv6 address comes from the interface
	r := ddns.Join(
		ddns.PorkbunResolver(os.Getenv("PORKBUN_API_KEY"), os.Getenv("PORKBUN_SECRET_API_KEY")),
		ddns.ResolverFunc(func(ctx context.Context) ([]netip.Addr, error) {
			addrs, err := ddns.InterfaceResolver("eth0").Resolve(ctx)
			var v6 []netip.Addr
			for _, a := range addrs {
				if a.Is6() {
					v6 = append(v6, a)
				}
			}
			return v6, err
		}),
	)
	ddnsClient, err := ddns.New("home.example.com",
		ddns.UsingPorkbun(os.Getenv("PORKBUN_API_KEY"), os.Getenv("PORKBUN_SECRET_API_KEY")),
		ddns.UsingResolver(r),
	)
	if err != nil {
		log.Fatalf("error creating ddns client: %s", err)
	}
	err = ddnsClient.RunDDNS(context.Background())
	if err != nil {
		log.Fatalf("ddns update failed: %s", err)
	}
}
