package transport

import (
	"errors"
	"fmt"
)

// Kind classifies a transport failure.
type Kind string

const (
	KindHTTPStatus Kind = "http_status"
	KindNetwork    Kind = "network"
	KindDecode     Kind = "decode"
)

// Error is a failed batch exchange. Body carries the raw response text for
// KindHTTPStatus; Err carries the cause for the other kinds.
type Error struct {
	Kind       Kind
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Body)
	case KindDecode:
		return fmt.Sprintf("decode batch response: %v", e.Err)
	default:
		return fmt.Sprintf("batch request failed: %v", e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// FailureKind names the kind for diagnostics records.
func (e *Error) FailureKind() string {
	return string(e.Kind)
}

func httpStatusError(code int, body string) *Error {
	return &Error{Kind: KindHTTPStatus, StatusCode: code, Body: body}
}

func networkError(err error) *Error {
	return &Error{Kind: KindNetwork, Err: err}
}

func decodeError(err error) *Error {
	return &Error{Kind: KindDecode, Err: err}
}

// AsError extracts a transport error from err.
func AsError(err error) (*Error, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
