package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrBranchExists  = errors.New("branch already exists")
	ErrNoIntegration = errors.New("project has no integration")
	ErrDisconnected  = errors.New("integration is disconnected")
)

// RemoteAccessError is a network or auth failure talking to source control.
// It is retryable from the user's point of view.
type RemoteAccessError struct {
	Op     string
	Status int
	Err    error
}

func (e *RemoteAccessError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteAccessError) Unwrap() error { return e.Err }

// ParseError reports a file that could not be parsed.
type ParseError struct {
	Path   string
	Format string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s (%s): %v", e.Path, e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every problem found in one input batch.
type ValidationError struct {
	Problems []FieldError
}

func (e *ValidationError) Add(field, msg string) {
	e.Problems = append(e.Problems, FieldError{Field: field, Message: msg})
}

// ErrOrNil returns the error only when problems were recorded.
func (e *ValidationError) ErrOrNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	out := *e
	return &out
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.Field+" "+p.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ConflictStateError marks a resolution that has no matching conflict.
type ConflictStateError struct {
	Language string
	Key      string
}

func (e *ConflictStateError) Error() string {
	return fmt.Sprintf("no conflict for key %q in language %q", e.Key, e.Language)
}

// PublishError carries the stage a publish attempt failed in.
type PublishError struct {
	Stage string
	Err   error
}

func (e *PublishError) Error() string { return fmt.Sprintf("publish failed at %s: %v", e.Stage, e.Err) }

func (e *PublishError) Unwrap() error { return e.Err }
