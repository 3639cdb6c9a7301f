package porkbun

import (
	"errors"
)

var (
	// ErrInvalidCredentials is returned when Porkbun rejects the API key or secret.
	ErrInvalidCredentials = errors.New("porkbun: invalid API credentials")

	// ErrResponseDecode is returned when a response body matches none of the known response shapes.
	ErrResponseDecode = errors.New("porkbun: unrecognized API response")
)

// APIError is an error reported by Porkbun that has no more specific error value.
type APIError struct {
	// Message is the text Porkbun returned, unmodified.
	Message string
}

func (e *APIError) Error() string {
	return "porkbun: API error: " + e.Message
}

// WebRequestError is returned when a request never produced a response,
// e.g. DNS resolution, TLS, timeouts, or a reset connection.
type WebRequestError struct {
	Err error
}

func (e *WebRequestError) Error() string {
	if e.Err == nil {
		return "porkbun: web request failed"
	}
	return "porkbun: web request failed: " + e.Err.Error()
}

func (e *WebRequestError) Unwrap() error { return e.Err }

// knownErrors maps exact Porkbun error messages to error values.
// Messages not listed here become an *APIError.
var knownErrors = map[string]error{
	"Invalid API key. (002)": ErrInvalidCredentials,
}

// classify turns a Porkbun error message into an error value.
func classify(message string) error {
	if err, ok := knownErrors[message]; ok {
		return err
	}
	return &APIError{Message: message}
}
