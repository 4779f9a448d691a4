package imoji

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrymomot/imoji/pkg/api"
	"github.com/dmitrymomot/imoji/pkg/storage"
)

// ErrorCode enumerates the failures a Session reports.
type ErrorCode int

const (
	CodeServerError ErrorCode = iota
	CodeInvalidCredentials
	CodeImojiDoesNotExist
	CodeInvalidArgument
	CodeInvalidImage
	CodeSessionNotSynchronized
	CodeUserAuthenticationFailed
	CodeApplicationNotInstalled
	CodeRenderingUnavailable
)

var codeMessages = map[ErrorCode]string{
	CodeServerError:              "server error",
	CodeInvalidCredentials:       "invalid credentials",
	CodeImojiDoesNotExist:        "imoji does not exist",
	CodeInvalidArgument:          "invalid argument",
	CodeInvalidImage:             "invalid image",
	CodeSessionNotSynchronized:   "session not synchronized",
	CodeUserAuthenticationFailed: "user authentication failed",
	CodeApplicationNotInstalled:  "application not installed",
	CodeRenderingUnavailable:     "rendering unavailable",
}

func (c ErrorCode) String() string {
	if msg, ok := codeMessages[c]; ok {
		return msg
	}
	return fmt.Sprintf("error code %d", int(c))
}

// Error is the single error type reported through Session callbacks.
// errors.Is matches any two *Error values with the same Code, so the
// package sentinels work as targets:
//
//	if errors.Is(err, imoji.ErrSessionNotSynchronized) { ... }
type Error struct {
	Code ErrorCode
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := "imoji: "
	if e.Op != "" {
		msg += e.Op + ": "
	}
	msg += e.Code.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrServerError              = &Error{Code: CodeServerError}
	ErrInvalidCredentials       = &Error{Code: CodeInvalidCredentials}
	ErrImojiDoesNotExist        = &Error{Code: CodeImojiDoesNotExist}
	ErrInvalidArgument          = &Error{Code: CodeInvalidArgument}
	ErrInvalidImage             = &Error{Code: CodeInvalidImage}
	ErrSessionNotSynchronized   = &Error{Code: CodeSessionNotSynchronized}
	ErrUserAuthenticationFailed = &Error{Code: CodeUserAuthenticationFailed}
	ErrApplicationNotInstalled  = &Error{Code: CodeApplicationNotInstalled}
	ErrRenderingUnavailable     = &Error{Code: CodeRenderingUnavailable}
)

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}

func newError(code ErrorCode, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

func invalidArgument(op, format string, args ...any) *Error {
	return newError(CodeInvalidArgument, op, fmt.Errorf(format, args...))
}

// classify maps lower-level failures onto the Session taxonomy. Once ctx has
// ended its error is returned instead; callers drop it rather than report it.
// A request deadline inside a live ctx is a server failure, not a cancellation.
func classify(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}

	switch {
	case errors.Is(err, api.ErrUnauthorized):
		return newError(CodeInvalidCredentials, op, err)
	case errors.Is(err, api.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return newError(CodeImojiDoesNotExist, op, err)
	case errors.Is(err, api.ErrBadRequest), errors.Is(err, api.ErrInvalidInput),
		errors.Is(err, storage.ErrInvalidPath):
		return newError(CodeInvalidArgument, op, err)
	default:
		// Timeouts, exhausted retries and an open breaker land here.
		return newError(CodeServerError, op, err)
	}
}

// isCanceled reports whether err was caused by ctx ending.
func isCanceled(ctx context.Context, err error) bool {
	return err != nil && ctx.Err() != nil
}
