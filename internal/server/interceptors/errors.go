package interceptors

import (
	"context"

	"github.com/cockroachdb/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"projectbeheer/backend/internal/actor"
	"projectbeheer/backend/internal/audit"
	"projectbeheer/backend/internal/logging"
	phasedomain "projectbeheer/backend/internal/phase/domain"
	"projectbeheer/backend/internal/platform/apperr"
	"projectbeheer/backend/internal/storage"
	"projectbeheer/backend/internal/visibility"
)

// ErrorUnary returns a unary server interceptor that turns service errors into
// gRPC status errors. Errors that already carry a status pass through; anything
// unrecognized is logged and reported as Internal without detail.
func ErrorUnary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}
		return resp, toStatus(ctx, err)
	}
}

func toStatus(ctx context.Context, err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	// A serialization failure during the audit append is still a retryable
	// conflict; any other failed append is internal, whatever it wraps.
	switch {
	case errors.Is(err, storage.ErrVersionConflict):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, audit.ErrWriteFailed):
		logging.FromContext(ctx).ErrorContext(ctx, "audit write failed", "error", err)
		return status.Error(codes.Internal, "change could not be recorded")
	case errors.Is(err, storage.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, storage.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, apperr.ErrForbidden), errors.Is(err, visibility.ErrInvalidPrincipal):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, apperr.ErrInvalidArgument), errors.Is(err, actor.ErrEmptyActor):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, phasedomain.ErrInvalidTransition):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	default:
		logging.FromContext(ctx).ErrorContext(ctx, "unhandled error", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}
