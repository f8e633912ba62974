package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnauthenticated is returned by protected calls when no session token is
// available, and wrapped by APIError for 401 responses.
var ErrUnauthenticated = errors.New("not authenticated")

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Unwrap lets errors.Is match ErrUnauthenticated for 401 responses.
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthenticated
	}
	return nil
}

// newAPIError builds an APIError from the backend's {"error": "..."} body,
// falling back to the supplied message.
func newAPIError(status int, body []byte, fallback string) *APIError {
	var payload struct {
		Error string `json:"error"`
	}
	msg := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		msg = strings.TrimSpace(payload.Error)
	}
	if msg == "" {
		msg = fallback
	}
	if msg == "" {
		msg = fmt.Sprintf("request failed: %s", http.StatusText(status))
	}
	return &APIError{Status: status, Message: msg}
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
