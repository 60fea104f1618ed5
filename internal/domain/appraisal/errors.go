package appraisal

import (
	"errors"
	"strings"
)

var (
	ErrNotFound             = errors.New("appraisal not found")
	ErrUnauthorized         = errors.New("not authorized for this appraisal")
	ErrInvalidTransition    = errors.New("action not allowed in current state")
	ErrValidation           = errors.New("validation failed")
	ErrDirectoryUnavailable = errors.New("employee directory unavailable")
	ErrStaleVersion         = errors.New("appraisal was modified by another request")
)

type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError carries the offending fields. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func invalid(field, reason string) error {
	return &ValidationError{Fields: []FieldError{{Field: field, Reason: reason}}}
}
