package activities

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"

	"github.com/camrobjones/papernet/internal/domain"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		errType      string
		nonRetryable bool
	}{
		{"invalid doi", domain.NewInvalidDOIError("x"), ErrTypeInvalidInput, true},
		{"validation", domain.NewValidationError("limit", "must be positive"), ErrTypeInvalidInput, true},
		{"not found", fmt.Errorf("failed to fetch work: %w", domain.NewNotFoundError("work", "10.1/x")), ErrTypeNotFound, true},
		{"upstream data", domain.NewUpstreamDataError("crossref", "no doi"), ErrTypeUpstreamData, true},
		{"conflicting identity", domain.NewConflictingIdentityError("print_issn", []string{"1", "2"}), ErrTypeConflictingIdentity, true},
		{"bad request", domain.NewExternalAPIError("crossref", 400, "bad filter", nil), ErrTypeUpstreamRejected, true},
		{"rate limited", domain.NewRateLimitError("crossref", time.Second), ErrTypeRateLimited, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyError("op", tt.err)

			var appErr *temporal.ApplicationError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.errType, appErr.Type())
			assert.Equal(t, tt.nonRetryable, appErr.NonRetryable())
			assert.Contains(t, appErr.Error(), "op")
		})
	}
}

func TestClassifyError_Transient(t *testing.T) {
	cause := domain.NewExternalAPIError("crossref", 503, "unavailable", nil)
	err := classifyError("fetch paper", cause)

	var appErr *temporal.ApplicationError
	assert.False(t, errors.As(err, &appErr))
	assert.True(t, errors.Is(err, cause))

	assert.NoError(t, classifyError("op", nil))
}
