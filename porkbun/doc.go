/*
Package porkbun is a small client for the Porkbun JSON API (v3).

The client performs exactly one request/response cycle per call.
It never retries, caches, or rate-limits;
callers that need any of that wrap the call themselves.

Every failure is returned as one of a closed set of errors:

  - [*WebRequestError] when the request could not be sent or the connection failed,
  - [ErrResponseDecode] when the response body is not a recognized Porkbun response,
  - [ErrInvalidCredentials] when Porkbun rejected the API key,
  - [*APIError] for every other error reported by Porkbun, with its message preserved.

HTTP status codes are not inspected: Porkbun reports failures in the JSON body,
frequently alongside a 4xx status.
*/
package porkbun
