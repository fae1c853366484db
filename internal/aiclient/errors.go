package aiclient

import (
	"errors"
	"fmt"
)

// Kind classifies a failed call. Exactly one kind is reported per failure.
type Kind string

const (
	KindInvalidEndpoint   Kind = "invalid_endpoint"
	KindEncoding          Kind = "encoding"
	KindTransport         Kind = "transport"
	KindStatus            Kind = "status"
	KindDecode            Kind = "decode"
	KindMissingCredential Kind = "missing_credential"
)

// Error is returned by every Client method on failure.
type Error struct {
	Kind Kind
	// StatusCode is set for KindStatus.
	StatusCode int
	// Message, Type and Code come from a structured API error body, when
	// the backend sent one.
	Message string
	Type    string
	Code    any
	Err     error
}

var _ error = (*Error)(nil)

func (e *Error) Error() string {
	switch e.Kind {
	case KindStatus:
		if e.Message != "" {
			return fmt.Sprintf("ai: api error (status %d): %s", e.StatusCode, e.Message)
		}
		return fmt.Sprintf("ai: unexpected http status %d", e.StatusCode)
	case KindMissingCredential:
		return "ai: client is not configured: missing api key"
	}
	if e.Err != nil {
		return fmt.Sprintf("ai: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("ai: %s", e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ErrorResponse is the error body of an OpenAI-compatible backend.
type ErrorResponse struct {
	Error *APIError `json:"error,omitempty"`
}

// APIError is the structured part of ErrorResponse. Code is a string on
// OpenAI and a number on some compatible servers.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Code    any    `json:"code,omitempty"`
}
