package porkbun

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Transport sends a JSON body to url with a POST request.
//
// Implementations return the response regardless of its status code
// and report connection failures as a *WebRequestError.
// The caller closes the response body.
type Transport interface {
	PostJSON(ctx context.Context, url string, body any) (*http.Response, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, url string, body any) (*http.Response, error)

func (f TransportFunc) PostJSON(ctx context.Context, url string, body any) (*http.Response, error) {
	return f(ctx, url, body)
}

// DefaultTransport uses http.DefaultClient.
var DefaultTransport Transport = &HTTPTransport{}

// HTTPTransport implements Transport with an *http.Client.
// The zero value uses http.DefaultClient.
type HTTPTransport struct {
	Client *http.Client
}

func (t *HTTPTransport) PostJSON(ctx context.Context, url string, body any) (*http.Response, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, &WebRequestError{Err: fmt.Errorf("encoding request body: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, &WebRequestError{Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	httpclient := t.Client
	if httpclient == nil {
		httpclient = http.DefaultClient
	}
	resp, err := httpclient.Do(req)
	if err != nil {
		return nil, &WebRequestError{Err: err}
	}
	return resp, nil
}
