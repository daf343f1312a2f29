// Package provider holds helpers shared by the third-party HTTP API clients.
package provider

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// StatusError is a non-2xx response from an upstream API.
type StatusError struct {
	Service string
	Status  int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed (status %d): %s", e.Service, e.Status, e.Body)
}

// CheckResponse returns a *StatusError for a non-2xx response, including
// the first 2 KiB of the body.
func CheckResponse(resp *http.Response, service string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &StatusError{Service: service, Status: resp.StatusCode, Body: string(body)}
}

// HTTPStatus maps an upstream failure to the status a proxy should answer
// with: credential problems 401, throttling 429, everything else 500.
func HTTPStatus(err error) int {
	var se *StatusError
	if !errors.As(err, &se) {
		return http.StatusInternalServerError
	}
	switch se.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return http.StatusUnauthorized
	case http.StatusTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
