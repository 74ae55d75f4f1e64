package provider

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"stock-screener/internal/retry"
)

// APIError is a non-2xx response from a provider.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return fmt.Sprintf("%s %s returned %d: %s", e.Provider, e.Endpoint, e.StatusCode, msg)
}

// checkResponse maps an HTTP status to the retry taxonomy: 429 is a rate
// limit, auth and not-found failures are permanent, anything else transient.
func checkResponse(provider, endpoint string, resp *resty.Response) error {
	code := resp.StatusCode()
	if code >= 200 && code < 300 {
		return nil
	}

	if code == http.StatusTooManyRequests {
		return &retry.RateLimitError{
			Provider:   provider,
			RetryAfter: parseRetryAfter(resp.Header().Get("Retry-After")),
		}
	}

	apiErr := &APIError{
		Provider:   provider,
		StatusCode: code,
		Message:    resp.String(),
		Endpoint:   endpoint,
	}
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return retry.Permanent(apiErr)
	}
	return apiErr
}

// parseRetryAfter handles the delta-seconds form of Retry-After.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
