package ai

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrProviderAuth is returned before any network call when the
	// configured credential env var is empty.
	ErrProviderAuth = errors.New("provider credential not configured")

	// ErrEmptyGeneration is returned when a provider answers 2xx without
	// usable text.
	ErrEmptyGeneration = errors.New("provider returned no text")
)

// ProviderHTTPError reports a non-2xx provider response. A StatusCode of 0
// means the request never completed (timeout, connection failure).
type ProviderHTTPError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderHTTPError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("provider request failed: %v", e.Err)
	}
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}

func (e *ProviderHTTPError) Unwrap() error {
	return e.Err
}

// IsRateLimited reports whether err is a provider 429 response.
func IsRateLimited(err error) bool {
	var httpErr *ProviderHTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusTooManyRequests
}
