package generation

import (
	"fmt"
	"net/http"
	"strings"
)

// ClassifyHTTPStatus maps a failed provider HTTP response onto the error
// taxonomy. The response body is inspected only for well-known quota markers
// and is never included in the returned error.
func ClassifyHTTPStatus(provider string, status int, body []byte) error {
	lower := strings.ToLower(string(body))
	switch {
	case status == http.StatusPaymentRequired,
		strings.Contains(lower, "insufficient_quota"),
		strings.Contains(lower, "credit balance is too low"):
		return fmt.Errorf("%w: %s returned status %d", ErrQuotaExceeded, provider, status)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return fmt.Errorf("%w: %s rejected the credentials (status %d)", ErrInvalidConfig, provider, status)
	case status == http.StatusTooManyRequests,
		status == http.StatusRequestTimeout,
		status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s returned status %d", ErrTransientFailure, provider, status)
	default:
		return fmt.Errorf("%w: %s returned status %d", ErrGenerationFailed, provider, status)
	}
}
