package httpapi

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/custodia-labs/juris/internal/core/domain"
)

// GRPCError maps an error from a gRPC-based Google client onto the
// domain taxonomy. Errors without a gRPC status are transient.
func GRPCError(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", provider, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %v: %w", provider, err, domain.ErrTimeout)
	}

	var sentinel error
	switch status.Code(err) {
	case codes.ResourceExhausted:
		sentinel = domain.ErrRateLimited
	case codes.DeadlineExceeded:
		sentinel = domain.ErrTimeout
	case codes.Unauthenticated, codes.PermissionDenied:
		sentinel = domain.ErrMissingCredentials
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		sentinel = domain.ErrInvalidInput
	case codes.NotFound:
		sentinel = domain.ErrNotFound
	default:
		sentinel = domain.ErrProviderUnavailable
	}
	return fmt.Errorf("%s: %v: %w", provider, err, sentinel)
}
