package errors

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
)

// Sentinel errors for common error conditions
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that input validation failed
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal error")

	// ErrNotImplemented is returned by a generation path the backend does not support.
	// The dispatcher treats it as a signal to use the blocking path instead.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedOperation indicates an operation that can never succeed on the receiver,
	// such as saving a remote LLM to a local file.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrProtocolViolation indicates a reply whose shape does not match its request.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrRemoteCall indicates the remote call itself failed.
	ErrRemoteCall = errors.New("remote call failed")
)

// ProtocolError reports a generation reply whose batch count differs from the
// number of prompts sent.
type ProtocolError struct {
	Want int
	Got  int
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: expected %d generation lists, got %d", ErrProtocolViolation, e.Want, e.Got)
}

// Is reports whether target is ErrProtocolViolation.
func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocolViolation
}

// RemoteCallError wraps a failed RPC with the method it was issued for.
type RemoteCallError struct {
	Method string
	Code   codes.Code
	Err    error
}

func (e *RemoteCallError) Error() string {
	return fmt.Sprintf("%s: %s (%s): %v", ErrRemoteCall, e.Method, e.Code, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *RemoteCallError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrRemoteCall.
func (e *RemoteCallError) Is(target error) bool {
	return target == ErrRemoteCall
}
