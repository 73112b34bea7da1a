package errs

import (
	"errors"
	"fmt"
	"time"
)

// ErrConfig marks a missing required credential or endpoint. It surfaces at
// the point of first use and is never absorbed by best-effort fallbacks.
var ErrConfig = errors.New("missing configuration")

// UpstreamError reports a non-success response or malformed payload from an
// external provider. Retryable is populated by the HTTP client layer from the
// status code (429) so callers never have to sniff error text.
type UpstreamError struct {
	Service    string
	Status     int
	Body       string
	Retryable  bool
	RetryAfter time.Duration
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s error %d", e.Service, e.Status)
	}
	return fmt.Sprintf("%s error %d: %s", e.Service, e.Status, e.Body)
}

// IsRetryable reports whether err wraps a retryable upstream failure.
func IsRetryable(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.Retryable
}
