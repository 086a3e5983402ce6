package activities

import (
	"errors"
	"fmt"
	"net/http"

	"go.temporal.io/sdk/temporal"

	"github.com/camrobjones/papernet/internal/domain"
)

// Application error types reported to workflows.
const (
	ErrTypeInvalidInput        = "invalid_input"
	ErrTypeNotFound            = "not_found"
	ErrTypeUpstreamData        = "upstream_data"
	ErrTypeUpstreamRejected    = "upstream_rejected"
	ErrTypeConflictingIdentity = "conflicting_identity"
	ErrTypeRateLimited         = "rate_limited"
)

// classifyError converts err into a Temporal application error so that
// failures which cannot succeed on retry stop the retry policy. Rate limits
// stay retryable and carry the upstream's retry delay. Anything else is
// returned wrapped and retried.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf("%s: %s", op, err)

	var rateLimit *domain.RateLimitError
	if errors.As(err, &rateLimit) {
		return temporal.NewApplicationErrorWithOptions(msg, ErrTypeRateLimited, temporal.ApplicationErrorOptions{
			Cause:          err,
			NextRetryDelay: rateLimit.RetryAfter,
		})
	}

	switch {
	case errors.Is(err, domain.ErrInvalidDOI), errors.Is(err, domain.ErrInvalidInput):
		return temporal.NewNonRetryableApplicationError(msg, ErrTypeInvalidInput, err)
	case errors.Is(err, domain.ErrNotFound):
		return temporal.NewNonRetryableApplicationError(msg, ErrTypeNotFound, err)
	case errors.Is(err, domain.ErrUpstreamData):
		return temporal.NewNonRetryableApplicationError(msg, ErrTypeUpstreamData, err)
	case errors.Is(err, domain.ErrConflictingIdentity):
		return temporal.NewNonRetryableApplicationError(msg, ErrTypeConflictingIdentity, err)
	}

	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		return temporal.NewNonRetryableApplicationError(msg, ErrTypeInvalidInput, err)
	}

	var apiErr *domain.ExternalAPIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 &&
		apiErr.StatusCode != http.StatusTooManyRequests && apiErr.StatusCode != http.StatusRequestTimeout {
		return temporal.NewNonRetryableApplicationError(msg, ErrTypeUpstreamRejected, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}
