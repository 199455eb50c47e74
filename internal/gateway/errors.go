package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Failure codes produced by the gateway itself. Codes reported by the remote
// service in an error envelope are passed through unchanged.
const (
	CodeNetwork       = "NETWORK_ERROR"
	CodeTimeout       = "TIMEOUT"
	CodeCanceled      = "CANCELED"
	CodeMalformed     = "MALFORMED_RESPONSE"
	CodeRequestFailed = "REQUEST_FAILED"
	CodeInvalidInput  = "INVALID_INPUT"
)

// Error is the single failure shape returned by every gateway operation.
type Error struct {
	Code    string
	Message string
	// Status is the HTTP status code, zero when no response was received.
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// RemoteCode exposes the failure code to callers that only see an error.
func (e *Error) RemoteCode() string {
	if e == nil {
		return ""
	}
	return e.Code
}

// AsError extracts a gateway failure from err.
func AsError(err error) (*Error, bool) {
	var gErr *Error
	if errors.As(err, &gErr) {
		return gErr, true
	}
	return nil, false
}

func fallbackMessage(operation string) string {
	return "Failed to " + operation
}

func transportError(operation string, err error) *Error {
	switch {
	case errors.Is(err, context.Canceled):
		return &Error{Code: CodeCanceled, Message: fallbackMessage(operation) + ": request canceled", Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Code: CodeTimeout, Message: fallbackMessage(operation) + ": request timed out", Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Code: CodeTimeout, Message: fallbackMessage(operation) + ": request timed out", Err: err}
	}
	return &Error{Code: CodeNetwork, Message: fallbackMessage(operation) + ": " + err.Error(), Err: err}
}

func malformedError(operation string, status int, err error) *Error {
	msg := fallbackMessage(operation) + ": malformed response"
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &Error{Code: CodeMalformed, Message: msg, Status: status, Err: err}
}

// envelopeError converts a success=false envelope, or an error-only body,
// into an Error.
func envelopeError(operation string, status int, failure *remoteFailure) *Error {
	if failure == nil {
		failure = &remoteFailure{}
	}
	gErr := &Error{Code: failure.Code, Message: failure.Message, Status: status}
	if gErr.Code == "" {
		gErr.Code = CodeRequestFailed
	}
	if gErr.Message == "" {
		gErr.Message = fallbackMessage(operation)
	}
	return gErr
}

func statusError(operation string, status int, body *remoteFailure) *Error {
	gErr := &Error{
		Code:    fmt.Sprintf("HTTP_%d", status),
		Message: fallbackMessage(operation),
		Status:  status,
	}
	if body != nil {
		if body.Code != "" {
			gErr.Code = body.Code
		}
		if body.Message != "" {
			gErr.Message = body.Message
		}
	}
	if gErr.Message == fallbackMessage(operation) && status != 0 {
		gErr.Message = fmt.Sprintf("%s (%d %s)", gErr.Message, status, http.StatusText(status))
	}
	return gErr
}
