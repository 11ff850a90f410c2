package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/juris/internal/core/domain"
)

// IsRateLimited returns true if the error is a Google 429 response.
func IsRateLimited(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests
	}
	return false
}

// RetryAfter returns the Retry-After seconds of a Google error, or zero.
func RetryAfter(err error) int {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Header == nil {
		return 0
	}
	seconds, convErr := strconv.Atoi(gerr.Header.Get("Retry-After"))
	if convErr != nil {
		return 0
	}
	return seconds
}

// WrapError converts a Google API error to the domain taxonomy.
// Errors that are not API responses are treated as the service being
// unreachable, except for context cancellation which passes through.
func WrapError(service string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", service, err, domain.ErrTimeout)
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return fmt.Errorf("%s: %w: %w", service, err, domain.ErrProviderUnavailable)
	}

	// 403 with a rate limit reason is Google's legacy throttling response.
	if gerr.Code == http.StatusForbidden {
		for _, item := range gerr.Errors {
			if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
				return fmt.Errorf("%s: %w: %w", service, err, domain.ErrRateLimited)
			}
		}
	}
	if sentinel := domain.ErrorForStatus(gerr.Code); sentinel != nil {
		return fmt.Errorf("%s: %w: %w", service, err, sentinel)
	}
	return err
}
