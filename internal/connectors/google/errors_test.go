package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/juris/internal/core/domain"
)

func TestWrapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unauthorised", &googleapi.Error{Code: http.StatusUnauthorized}, domain.ErrMissingCredentials},
		{"not found", &googleapi.Error{Code: http.StatusNotFound}, domain.ErrNotFound},
		{"rate limited", &googleapi.Error{Code: http.StatusTooManyRequests}, domain.ErrRateLimited},
		{
			"legacy rate limit",
			&googleapi.Error{Code: http.StatusForbidden, Errors: []googleapi.ErrorItem{{Reason: "userRateLimitExceeded"}}},
			domain.ErrRateLimited,
		},
		{"server error", &googleapi.Error{Code: http.StatusBadGateway}, domain.ErrProviderUnavailable},
		{"bad request", &googleapi.Error{Code: http.StatusBadRequest}, domain.ErrInvalidInput},
		{"wrapped api error", fmt.Errorf("list: %w", &googleapi.Error{Code: http.StatusServiceUnavailable}), domain.ErrProviderUnavailable},
		{"transport", errors.New("dial tcp: refused"), domain.ErrProviderUnavailable},
		{"deadline", context.DeadlineExceeded, domain.ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, WrapError("drive", tt.err), tt.want)
		})
	}

	assert.NoError(t, WrapError("drive", nil))
	assert.Equal(t, context.Canceled, WrapError("drive", context.Canceled))
}

func TestRetryAfter(t *testing.T) {
	err := &googleapi.Error{Code: http.StatusTooManyRequests, Header: http.Header{"Retry-After": {"7"}}}
	assert.True(t, IsRateLimited(err))
	assert.Equal(t, 7, RetryAfter(err))

	assert.Equal(t, 0, RetryAfter(&googleapi.Error{Code: http.StatusTooManyRequests}))
	assert.Equal(t, 0, RetryAfter(errors.New("plain")))
	assert.False(t, IsRateLimited(errors.New("plain")))
}
