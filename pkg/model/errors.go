package model

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized is returned for any 401 from the API. The session is
	// already purged by the time a caller sees it.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrAuthExpired means the stored token is missing or past its expiry.
	ErrAuthExpired = errors.New("session expired")
	// ErrNoIdentity is returned by operations that need a signed-in agent.
	ErrNoIdentity = errors.New("not signed in")
)

// GenericFailureMessage is shown when the API gives no message of its own.
const GenericFailureMessage = "Something went wrong. Please try again."

// APIError is a non-2xx response from the reminder API.
type APIError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Unwrap lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// IsUnauthorized reports whether err stems from a 401 or a missing session.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrAuthExpired)
}

// UserMessage extracts a message fit for a toast from err.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return GenericFailureMessage
}
