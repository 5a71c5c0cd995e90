// Package drafterr defines the user-facing failure categories of a drafting run.
package drafterr

import (
	"errors"
	"fmt"
)

// Kind is a failure category shown to the user.
type Kind string

const (
	// KindUnknown covers errors that carry no category.
	KindUnknown Kind = "unknown"
	// KindConfiguration means a required credential is missing.
	KindConfiguration Kind = "configuration"
	// KindAuth means the service rejected the key or denied model access.
	KindAuth Kind = "auth"
	// KindNotFound means the model identifier is not recognized.
	KindNotFound Kind = "not_found"
	// KindRateLimit means throughput or quota ran out after the permitted retry.
	KindRateLimit Kind = "rate_limit"
	// KindService is any other non-success response.
	KindService Kind = "service"
	// KindExtraction means the page could not be read.
	KindExtraction Kind = "extraction"
	// KindDeliveryDegraded means the draft went to the clipboard instead of the editor.
	KindDeliveryDegraded Kind = "delivery_degraded"
)

// Error is a categorized failure with a message meant for the user.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// New returns an Error of kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an Error of kind carrying cause.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the category of err, or KindUnknown.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// Is reports whether err carries kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
