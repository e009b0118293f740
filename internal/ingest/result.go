package ingest

import (
	"fmt"
	"time"

	"example.com/trackevent/internal/domain"
)

// Acknowledgement confirms an event was durably stored.
type Acknowledgement struct {
	EventID    string
	ReceivedAt time.Time
}

// Kind classifies a Failure. The set is closed.
type Kind int

const (
	// KindValidation is a caller-correctable problem with one field.
	KindValidation Kind = iota + 1
	// KindInternal covers storage and unexpected failures.
	KindInternal
)

// Stable machine-readable codes.
const (
	CodeInvalidPayload = "INVALID_PAYLOAD"
	CodeInternalError  = "INTERNAL_ERROR"
)

const internalMessage = "Unexpected error occurred"

// Failure is the only error type Handle returns.
// For KindInternal, Err holds the cause for logging; it is never shown to callers.
type Failure struct {
	Kind   Kind
	Field  string
	Reason string
	Err    error
}

func validationFailure(field, reason string) *Failure {
	return &Failure{Kind: KindValidation, Field: field, Reason: reason}
}

func internalFailure(err error) *Failure {
	return &Failure{Kind: KindInternal, Err: err}
}

// Code returns the outward error code.
func (f *Failure) Code() string {
	if f.Kind == KindValidation {
		return CodeInvalidPayload
	}
	return CodeInternalError
}

// Message is safe to return to the caller.
func (f *Failure) Message() string {
	if f.Kind != KindValidation {
		return internalMessage
	}
	if f.Reason == domain.ReasonMissing {
		return fmt.Sprintf("field '%s' is required", f.Field)
	}
	return fmt.Sprintf("field '%s' has %s", f.Field, f.Reason)
}

func (f *Failure) Error() string {
	if f.Kind == KindValidation {
		return fmt.Sprintf("invalid payload: %s: %s", f.Field, f.Reason)
	}
	return fmt.Sprintf("internal error: %v", f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }
