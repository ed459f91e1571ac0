package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies research call failures.
type ErrorKind string

const (
	// ErrorKindParseSkip marks a stream line that could not be decoded. Never fatal.
	ErrorKindParseSkip ErrorKind = "parse_skip"
	// ErrorKindRemote indicates a non-success status from the agent service.
	ErrorKindRemote ErrorKind = "remote_error"
	// ErrorKindTimeout indicates the call budget ran out before a final report.
	ErrorKindTimeout ErrorKind = "timeout_exceeded"
	// ErrorKindConnection indicates a transport failure (refused, reset, DNS).
	ErrorKindConnection ErrorKind = "connection_failure"
	// ErrorKindIncomplete indicates the stream ended without a final report.
	ErrorKindIncomplete ErrorKind = "incomplete_result"
	// ErrorKindInternal covers failures outside the agent call itself.
	ErrorKindInternal ErrorKind = "internal_error"
)

// Sentinels for errors.Is matching against a *ResearchError of the same kind.
var (
	ErrRemote     = &ResearchError{Kind: ErrorKindRemote}
	ErrTimeout    = &ResearchError{Kind: ErrorKindTimeout}
	ErrConnection = &ResearchError{Kind: ErrorKindConnection}
	ErrIncomplete = &ResearchError{Kind: ErrorKindIncomplete}
)

const maxErrorBody = 1000

// ResearchError is the typed failure of a single research call.
type ResearchError struct {
	Kind       ErrorKind
	StatusCode int
	Body       string
	Timeout    time.Duration
	// Notes collected before the failure, kept for diagnostics only.
	Notes []string
	Err   error
}

// Error implements the error interface.
func (e *ResearchError) Error() string {
	switch e.Kind {
	case ErrorKindRemote:
		return fmt.Sprintf("%s: status %d: %s", e.Kind, e.StatusCode, truncate(e.Body, maxErrorBody))
	case ErrorKindTimeout:
		return fmt.Sprintf("%s: no final report after %s", e.Kind, e.Timeout)
	case ErrorKindIncomplete:
		if e.Err != nil {
			return fmt.Sprintf("%s: %v (%d notes collected)", e.Kind, e.Err, len(e.Notes))
		}
		return fmt.Sprintf("%s: stream closed without a final report (%d notes collected)", e.Kind, len(e.Notes))
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Kind, e.Err)
		}
		return string(e.Kind)
	}
}

// Unwrap implements the error unwrapping interface.
func (e *ResearchError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a ResearchError of the same kind.
func (e *ResearchError) Is(target error) bool {
	var t *ResearchError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// NewRemoteError creates an error for a non-success agent response.
func NewRemoteError(statusCode int, body string) *ResearchError {
	return &ResearchError{
		Kind:       ErrorKindRemote,
		StatusCode: statusCode,
		Body:       body,
	}
}

// NewTimeoutError creates an error for an exhausted call budget.
func NewTimeoutError(timeout time.Duration, notes []string, err error) *ResearchError {
	return &ResearchError{
		Kind:    ErrorKindTimeout,
		Timeout: timeout,
		Notes:   notes,
		Err:     err,
	}
}

// NewConnectionError creates an error for a transport-level failure.
func NewConnectionError(notes []string, err error) *ResearchError {
	return &ResearchError{
		Kind:  ErrorKindConnection,
		Notes: notes,
		Err:   err,
	}
}

// NewIncompleteError creates an error for a stream that ended without a final report.
// Err may be set afterwards when a read failure such as an oversized line cut the stream short.
func NewIncompleteError(notes []string) *ResearchError {
	return &ResearchError{
		Kind:  ErrorKindIncomplete,
		Notes: notes,
	}
}

// KindOf returns the kind of a research error, or ErrorKindInternal for other errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var re *ResearchError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ErrorKindInternal
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
