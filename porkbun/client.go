package porkbun

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

const (
	// PingURL is the ping endpoint on Porkbun's IPv4-only API host,
	// so the address it reports is always the caller's IPv4 address.
	PingURL = "https://api-ipv4.porkbun.com/api/json/v3/ping"

	// DefaultBaseURL is the root of the v3 API used for DNS record calls.
	DefaultBaseURL = "https://api.porkbun.com/api/json/v3"

	statusSuccess = "SUCCESS"

	// responses are tiny; anything bigger than this is not a Porkbun response.
	maxResponseBytes = 1 << 20
)

// Client calls the Porkbun API.
//
// It should be constructed using NewClient.
// A Client holds no per-call state and is safe for concurrent use
// when its Transport is.
type Client struct {
	transport Transport
	pingURL   string
	baseURL   string
	logger    zerolog.Logger
}

type Option func(*Client)

// WithTransport replaces the transport used for every call.
func WithTransport(t Transport) Option {
	return func(c *Client) {
		if t == nil {
			t = DefaultTransport
		}
		c.transport = t
	}
}

// WithHTTPClient sends requests through httpclient.
func WithHTTPClient(httpclient *http.Client) Option {
	return WithTransport(&HTTPTransport{Client: httpclient})
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithPingURL overrides PingURL.
func WithPingURL(u string) Option {
	return func(c *Client) { c.pingURL = u }
}

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

func NewClient(options ...Option) *Client {
	c := &Client{
		transport: DefaultTransport,
		pingURL:   PingURL,
		baseURL:   DefaultBaseURL,
		logger:    zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// RequestIP asks Porkbun for the public IP address the request came from.
// See the package-level RequestIP.
func (c *Client) RequestIP(ctx context.Context, creds Credentials) (string, error) {
	c.logger.Debug().Str("url", c.pingURL).Msg("requesting public IP from porkbun")
	ip, err := requestIP(ctx, c.transport, c.pingURL, creds)
	if err != nil {
		c.logger.Debug().Err(err).Msg("porkbun ping failed")
		return "", err
	}
	c.logger.Debug().Str("ip", ip).Msg("porkbun ping succeeded")
	return ip, nil
}

// RequestIP posts creds to PingURL through t and returns the caller's IP address
// exactly as Porkbun reported it. The address is not validated.
//
// Errors from t are returned unchanged.
// A response that is neither a ping success nor a Porkbun error yields ErrResponseDecode.
// A Porkbun error message is returned as ErrInvalidCredentials or an *APIError.
func RequestIP(ctx context.Context, t Transport, creds Credentials) (string, error) {
	if t == nil {
		t = DefaultTransport
	}
	return requestIP(ctx, t, PingURL, creds)
}

func requestIP(ctx context.Context, t Transport, url string, creds Credentials) (string, error) {
	body, err := post(ctx, t, url, creds)
	if err != nil {
		return "", err
	}
	ping, err := decodePing(body)
	if err != nil {
		return "", err
	}
	if !ping.ok {
		return "", classify(ping.message)
	}
	return ping.yourIP, nil
}

// post sends body and returns the raw response body.
func post(ctx context.Context, t Transport, url string, body any) ([]byte, error) {
	resp, err := t.PostJSON(ctx, url, body)
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Body == nil {
		return nil, ErrResponseDecode
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, ErrResponseDecode
	}
	return b, nil
}

// pingResponse is the decoded ping response.
// When ok is true yourIP is set, otherwise message is.
type pingResponse struct {
	ok      bool
	status  string
	yourIP  string
	message string
}

// decodePing probes body for the success shape {status, yourIp}
// and then for the failure shape {status, message}.
func decodePing(body []byte) (pingResponse, error) {
	fields, err := decodeObject(body)
	if err != nil {
		return pingResponse{}, err
	}
	status, ok := stringField(fields, "status")
	if !ok {
		return pingResponse{}, ErrResponseDecode
	}
	if ip, ok := stringField(fields, "yourIp"); ok {
		return pingResponse{ok: true, status: status, yourIP: ip}, nil
	}
	if msg, ok := stringField(fields, "message"); ok {
		return pingResponse{status: status, message: msg}, nil
	}
	return pingResponse{}, ErrResponseDecode
}

// decodeStatus checks a response from an endpoint whose only success marker is
// status "SUCCESS" and returns its fields.
func decodeStatus(body []byte) (map[string]json.RawMessage, error) {
	fields, err := decodeObject(body)
	if err != nil {
		return nil, err
	}
	status, ok := stringField(fields, "status")
	if !ok {
		return nil, ErrResponseDecode
	}
	if status == statusSuccess {
		return fields, nil
	}
	if msg, ok := stringField(fields, "message"); ok {
		return nil, classify(msg)
	}
	return nil, ErrResponseDecode
}

// decodeObject splits a JSON object into its raw members.
// Invalid UTF-8, duplicate keys and trailing data are rejected.
func decodeObject(body []byte) (map[string]json.RawMessage, error) {
	// encoding/json would silently replace invalid bytes with U+FFFD
	if !utf8.Valid(body) {
		return nil, ErrResponseDecode
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, ErrResponseDecode
	}
	fields := map[string]json.RawMessage{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, ErrResponseDecode
		}
		key, ok := tok.(string)
		if !ok {
			return nil, ErrResponseDecode
		}
		if _, dup := fields[key]; dup {
			return nil, ErrResponseDecode
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, ErrResponseDecode
		}
		fields[key] = raw
	}
	if tok, err := dec.Token(); err != nil || tok != json.Delim('}') {
		return nil, ErrResponseDecode
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, ErrResponseDecode
	}
	return fields, nil
}

// stringField reports the value of key if it is present and holds a JSON string.
func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil || s == nil {
		return "", false
	}
	return *s, true
}
