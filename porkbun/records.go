package porkbun

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Record is a DNS record as returned by the Porkbun API.
// Porkbun encodes every value, including TTL and priority, as a string.
type Record struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Content string `json:"content"`
	TTL     string `json:"ttl,omitempty"`
	Prio    string `json:"prio,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

type editRequest struct {
	Credentials
	Content string `json:"content"`
	TTL     string `json:"ttl,omitempty"`
}

type createRequest struct {
	Credentials
	Name    string `json:"name"`
	Type    string `json:"type"`
	Content string `json:"content"`
	TTL     string `json:"ttl,omitempty"`
}

// RetrieveRecords lists the records of type recordType at subdomain.domain.
// An empty subdomain refers to the domain apex.
func (c *Client) RetrieveRecords(ctx context.Context, creds Credentials, domain, recordType, subdomain string) ([]Record, error) {
	fields, err := c.call(ctx, endpoint("dns/retrieveByNameType", domain, recordType, subdomain), creds)
	if err != nil {
		return nil, err
	}
	raw, ok := fields["records"]
	if !ok {
		return nil, nil
	}
	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, ErrResponseDecode
	}
	return records, nil
}

// EditRecords sets the content of every record of type recordType at subdomain.domain.
// A ttl of zero keeps Porkbun's default.
func (c *Client) EditRecords(ctx context.Context, creds Credentials, domain, recordType, subdomain, content string, ttl int) error {
	_, err := c.call(ctx, endpoint("dns/editByNameType", domain, recordType, subdomain), editRequest{
		Credentials: creds,
		Content:     content,
		TTL:         formatTTL(ttl),
	})
	return err
}

// CreateRecord creates r under domain and returns the new record ID.
// r.Name is the subdomain; leave it empty for the apex.
func (c *Client) CreateRecord(ctx context.Context, creds Credentials, domain string, r Record) (string, error) {
	fields, err := c.call(ctx, endpoint("dns/create", domain), createRequest{
		Credentials: creds,
		Name:        r.Name,
		Type:        r.Type,
		Content:     r.Content,
		TTL:         r.TTL,
	})
	if err != nil {
		return "", err
	}
	// the ID comes back as a number
	var id json.Number
	if raw, ok := fields["id"]; ok {
		if err := json.Unmarshal(raw, &id); err != nil {
			return "", ErrResponseDecode
		}
	}
	return id.String(), nil
}

// DeleteRecords removes every record of type recordType at subdomain.domain.
func (c *Client) DeleteRecords(ctx context.Context, creds Credentials, domain, recordType, subdomain string) error {
	_, err := c.call(ctx, endpoint("dns/deleteByNameType", domain, recordType, subdomain), creds)
	return err
}

func (c *Client) call(ctx context.Context, path string, body any) (map[string]json.RawMessage, error) {
	u := c.baseURL + "/" + path
	c.logger.Debug().Str("url", u).Msg("calling porkbun API")
	b, err := post(ctx, c.transport, u, body)
	if err != nil {
		return nil, err
	}
	fields, err := decodeStatus(b)
	if err != nil {
		c.logger.Debug().Err(err).Str("url", u).Msg("porkbun API call failed")
		return nil, err
	}
	return fields, nil
}

// endpoint joins the non-empty path segments, escaping each one.
func endpoint(prefix string, segments ...string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, s := range segments {
		if s == "" {
			continue
		}
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

func formatTTL(ttl int) string {
	if ttl <= 0 {
		return ""
	}
	return strconv.Itoa(ttl)
}

// String formats r the way it would appear in a zone file.
func (r Record) String() string {
	return fmt.Sprintf("%s %s %s %s", r.Name, r.TTL, r.Type, r.Content)
}
