package client

import "fmt"

// ErrorKind classifies transport-level failures against the pipeline API.
type ErrorKind string

const (
	ErrKindNetwork          ErrorKind = "network"
	ErrKindUnauthorized     ErrorKind = "unauthorized"
	ErrKindForbidden        ErrorKind = "forbidden"
	ErrKindNotFound         ErrorKind = "not_found"
	ErrKindServer           ErrorKind = "server_error"
	ErrKindUnexpectedStatus ErrorKind = "unexpected_status"
	ErrKindEncoding         ErrorKind = "encoding"
	ErrKindDecoding         ErrorKind = "decoding"
)

// APIError is the typed transport error surfaced to orchestrating
// components. It never represents an application-level "failed" job
// status; those arrive inside a successfully decoded body.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("pipeline api: %s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("pipeline api: %s: %s", e.Kind, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// statusError maps a non-2xx response to its error kind.
func statusError(status int, body string) *APIError {
	kind := ErrKindUnexpectedStatus
	switch {
	case status == 401:
		kind = ErrKindUnauthorized
	case status == 403:
		kind = ErrKindForbidden
	case status == 404:
		kind = ErrKindNotFound
	case status >= 500:
		kind = ErrKindServer
	}
	return &APIError{Kind: kind, StatusCode: status, Message: body}
}
