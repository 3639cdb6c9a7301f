/*
Package ddns keeps Dynamic DNS records pointed at the current public address.

Usage will always start with [ddns.New],
which returns the DDNSClient implementation.
New requires a domain name which will be updated and a [Provider] implementation for a DNS provider,
usually [UsingPorkbun].
With Porkbun credentials and no other [Resolver],
the public address is looked up through the Porkbun ping endpoint.
The Porkbun API client itself lives in the porkbun subpackage.
*/
package ddns
