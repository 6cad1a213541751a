package client

import (
	"errors"
	"fmt"
)

// Failure categories for registry and runner requests.
var (
	ErrDownloadFailed = errors.New("download failed")
	ErrEmptyResponse  = errors.New("empty response")
	ErrPublishFailed  = errors.New("publish failed")
	ErrRunFailed      = errors.New("remote run failed")
	ErrAdminRequest   = errors.New("admin request failed")
)

// RequestError wraps one of the sentinel categories with request detail
// (the package, registry URL, or address involved).
type RequestError struct {
	Kind   error
	Detail string
}

func (e *RequestError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%v: %s", e.Kind, e.Detail)
	}
	return e.Kind.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Kind
}

// NewRequestError creates a RequestError for the given category.
func NewRequestError(kind error, detail string) *RequestError {
	return &RequestError{Kind: kind, Detail: detail}
}
