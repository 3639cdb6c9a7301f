package porkbun_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Travis-Britz/porkddns/porkbun"
)

// scripted returns a transport that answers every request with body.
func scripted(body string) porkbun.Transport {
	return porkbun.TransportFunc(func(ctx context.Context, url string, _ any) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(body)),
		}, nil
	})
}

var testCreds = porkbun.Credentials{APIKey: "pk1_test", SecretAPIKey: "sk1_test"}

func TestRequestIPSuccess(t *testing.T) {
	ip, err := porkbun.RequestIP(context.Background(), scripted(`{"status":"SUCCESS","yourIp":"192.168.1.1"}`), testCreds)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.1", ip)
}

func TestRequestIPReturnsValueUntouched(t *testing.T) {
	for _, v := range []string{"2001:db8::1", " 10.0.0.1 ", "not an ip", ""} {
		body, err := json.Marshal(map[string]string{"status": "SUCCESS", "yourIp": v})
		require.NoError(t, err)

		ip, err := porkbun.RequestIP(context.Background(), scripted(string(body)), testCreds)
		require.NoError(t, err)
		assert.Equal(t, v, ip)
	}
}

func TestRequestIPInvalidCredentials(t *testing.T) {
	_, err := porkbun.RequestIP(context.Background(), scripted(`{"status":"ERROR","message":"Invalid API key. (002)"}`), testCreds)
	assert.ErrorIs(t, err, porkbun.ErrInvalidCredentials)
}

func TestRequestIPAPIError(t *testing.T) {
	const msg = "Non-specific, unknown error (000)"
	_, err := porkbun.RequestIP(context.Background(), scripted(`{"status":"ERROR","message":"`+msg+`"}`), testCreds)

	var apiErr *porkbun.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, msg, apiErr.Message)
	assert.NotErrorIs(t, err, porkbun.ErrInvalidCredentials)
}

func TestRequestIPCredentialMessageIsExactMatch(t *testing.T) {
	_, err := porkbun.RequestIP(context.Background(), scripted(`{"status":"ERROR","message":"invalid api key. (002)"}`), testCreds)

	var apiErr *porkbun.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid api key. (002)", apiErr.Message)
}

func TestRequestIPDecodeError(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown shape", `{"foo":"bar"}`},
		{"invalid json", `{"status":`},
		{"empty body", ``},
		{"html error page", `<html><body>502 Bad Gateway</body></html>`},
		{"array", `[{"status":"SUCCESS","yourIp":"10.0.0.1"}]`},
		{"null", `null`},
		{"missing status", `{"yourIp":"10.0.0.1"}`},
		{"status only", `{"status":"SUCCESS"}`},
		{"null ip and no message", `{"status":"SUCCESS","yourIp":null}`},
		{"numeric message", `{"status":"ERROR","message":2}`},
		{"invalid utf-8", "{\"status\":\"SUCCESS\",\"yourIp\":\"10.0.0.\xff\"}"},
		{"invalid utf-8 message", "{\"status\":\"ERROR\",\"message\":\"bad \xfe key\"}"},
		{"duplicate ip", `{"status":"SUCCESS","yourIp":"1.1.1.1","yourIp":"2.2.2.2"}`},
		{"duplicate status", `{"status":"ERROR","status":"SUCCESS","yourIp":"1.1.1.1"}`},
		{"trailing data", `{"status":"SUCCESS","yourIp":"1.1.1.1"} {}`},
		{"trailing comma", `{"status":"SUCCESS","yourIp":"1.1.1.1",}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := porkbun.RequestIP(context.Background(), scripted(tt.body), testCreds)
			assert.ErrorIs(t, err, porkbun.ErrResponseDecode)
		})
	}
}

func TestRequestIPEscapedIPIsDecoded(t *testing.T) {
	ip, err := porkbun.RequestIP(context.Background(), scripted(`{"status":"SUCCESS","yourIp":"10.0.0.\u0031"}`), testCreds)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", ip)
}

func TestRequestIPConcurrent(t *testing.T) {
	t.Parallel()
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		io.WriteString(w, `{"status":"SUCCESS","yourIp":"198.51.100.8"}`)
	}))
	defer srv.Close()
	c := porkbun.NewClient(porkbun.WithHTTPClient(srv.Client()), porkbun.WithPingURL(srv.URL))

	const n = 16
	var wg sync.WaitGroup
	ips := make([]string, n)
	errs := make([]error, n)
	wg.Add(n)
	for i := range n {
		go func() {
			defer wg.Done()
			ips[i], errs[i] = c.RequestIP(context.Background(), testCreds)
		}()
	}
	wg.Wait()

	for i := range n {
		require.NoError(t, errs[i])
		assert.Equal(t, "198.51.100.8", ips[i])
	}
	assert.Equal(t, int64(n), hits.Load())
}

func TestRequestIPSuccessShapeWins(t *testing.T) {
	ip, err := porkbun.RequestIP(context.Background(),
		scripted(`{"status":"ERROR","yourIp":"10.0.0.1","message":"Invalid API key. (002)"}`), testCreds)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", ip)
}

func TestRequestIPFallsBackToFailureShape(t *testing.T) {
	// a non-string yourIp fails the success shape
	_, err := porkbun.RequestIP(context.Background(),
		scripted(`{"status":"ERROR","yourIp":17,"message":"Invalid API key. (002)"}`), testCreds)
	assert.ErrorIs(t, err, porkbun.ErrInvalidCredentials)
}

func TestRequestIPPropagatesTransportError(t *testing.T) {
	want := &porkbun.WebRequestError{Err: errors.New("dial tcp: lookup api-ipv4.porkbun.com: no such host")}
	failing := porkbun.TransportFunc(func(context.Context, string, any) (*http.Response, error) {
		return nil, want
	})

	_, err := porkbun.RequestIP(context.Background(), failing, testCreds)
	assert.Same(t, want, err)
}

func TestRequestIPConnectionFailure(t *testing.T) {
	// grab a free port and close it so nothing is listening
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	c := porkbun.NewClient(porkbun.WithPingURL("http://" + addr + "/api/json/v3/ping"))
	_, err = c.RequestIP(context.Background(), testCreds)

	var webErr *porkbun.WebRequestError
	require.ErrorAs(t, err, &webErr)
	assert.NotEmpty(t, webErr.Error())
	assert.NotNil(t, webErr.Unwrap())
}

func TestRequestIPIdempotent(t *testing.T) {
	for _, body := range []string{
		`{"status":"SUCCESS","yourIp":"203.0.113.9"}`,
		`{"status":"ERROR","message":"Invalid API key. (002)"}`,
		`{"status":"ERROR","message":"Non-specific, unknown error (000)"}`,
		`{"foo":"bar"}`,
	} {
		tr := scripted(body)
		ip1, err1 := porkbun.RequestIP(context.Background(), tr, testCreds)
		ip2, err2 := porkbun.RequestIP(context.Background(), tr, testCreds)
		assert.Equal(t, ip1, ip2)
		assert.Equal(t, err1, err2)
	}
}

func TestRequestIPOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"apikey": "pk1_test", "secretapikey": "sk1_test"}, body)

		io.WriteString(w, `{"status":"SUCCESS","yourIp":"198.51.100.7"}`)
	}))
	defer srv.Close()

	c := porkbun.NewClient(porkbun.WithHTTPClient(srv.Client()), porkbun.WithPingURL(srv.URL+"/api/json/v3/ping"))
	ip, err := c.RequestIP(context.Background(), testCreds)
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.7", ip)
}

func TestRequestIPIgnoresHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"status":"ERROR","message":"Invalid API key. (002)"}`)
	}))
	defer srv.Close()

	c := porkbun.NewClient(porkbun.WithPingURL(srv.URL))
	_, err := c.RequestIP(context.Background(), testCreds)
	assert.ErrorIs(t, err, porkbun.ErrInvalidCredentials)
}

func TestCredentialsStringMasksKeys(t *testing.T) {
	s := testCreds.String()
	assert.NotContains(t, s, "pk1_test")
	assert.NotContains(t, s, "sk1_test")
}
