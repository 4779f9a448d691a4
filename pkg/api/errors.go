package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/dmitrymomot/imoji/pkg/transport"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("bad request")
	ErrServer       = errors.New("server error")
	ErrDecode       = errors.New("malformed response")
	ErrInvalidInput = errors.New("invalid input")
)

// Error is a failed API call. It unwraps to one of the category sentinels
// and to the transport error underneath.
type Error struct {
	StatusCode int
	Message    string
	Endpoint   string
	kind       error
	cause      error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("imoji api %s: %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("imoji api %s: %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("imoji api %s: %v", e.Endpoint, e.cause)
}

func (e *Error) Unwrap() []error {
	errs := []error{e.kind}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

type failureBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// kindForStatus maps an HTTP status to an error category.
func kindForStatus(status int) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrBadRequest
	default:
		return ErrServer
	}
}

// classify turns a transport error into an *Error. Errors of the caller's
// context pass through untouched so callers can tell cancellation apart; a
// per-request timeout is a server failure.
func classify(endpoint string, err error) error {
	if err == nil {
		return nil
	}
	if isContextErr(err) && !errors.Is(err, transport.ErrTimeout) {
		return err
	}

	e := &Error{Endpoint: endpoint, cause: err}

	var se *transport.StatusError
	if errors.As(err, &se) {
		e.StatusCode = se.StatusCode
		var body failureBody
		if json.Unmarshal(se.Body, &body) == nil {
			e.Message = body.Message
		}
		e.kind = kindForStatus(se.StatusCode)
		return e
	}

	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.Response != nil {
			e.StatusCode = re.Response.StatusCode
		}
		e.Message = re.ErrorDescription
		if e.Message == "" {
			e.Message = re.ErrorCode
		}
		switch {
		case re.ErrorCode == "invalid_client", re.ErrorCode == "invalid_grant", re.ErrorCode == "unauthorized_client":
			e.kind = ErrUnauthorized
		case e.StatusCode != 0:
			e.kind = kindForStatus(e.StatusCode)
		default:
			e.kind = ErrServer
		}
		return e
	}

	e.kind = ErrServer
	return e
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
