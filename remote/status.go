package remote

import (
	"context"
	"errors"

	errorskg "github.com/sweetpotato0/remote-llm/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps a backend failure to the gRPC status returned to the caller.
// The original message is kept so clients see what the backend reported.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var code codes.Code
	switch {
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, errorskg.ErrInvalidInput):
		code = codes.InvalidArgument
	case errors.Is(err, errorskg.ErrNotImplemented), errors.Is(err, errorskg.ErrUnsupportedOperation):
		code = codes.Unimplemented
	case errors.Is(err, errorskg.ErrProtocolViolation), errors.Is(err, errorskg.ErrInternal):
		code = codes.Internal
	case errors.Is(err, errorskg.ErrNotFound):
		code = codes.NotFound
	default:
		code = codes.Unknown
	}
	return status.Error(code, err.Error())
}
