package application

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrUnauthorized is returned when no user is bound to the workspace.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrUnknownStage is returned when a deal or task is moved to a stage that does not exist.
	ErrUnknownStage = errors.New("application: unknown stage")
	// ErrStageInUse is returned when the last stage is deleted while records still reference it.
	ErrStageInUse = errors.New("application: stage still referenced and no fallback stage remains")
	// ErrInvalidStageOrder is returned when a reorder does not list exactly the existing stages.
	ErrInvalidStageOrder = errors.New("application: stage order must contain every existing stage exactly once")
	// ErrWorkspaceOffline is returned when a booking arrives while no user is
	// bound, so the meeting could not be persisted.
	ErrWorkspaceOffline = errors.New("application: no workspace is bound")
	// ErrUnsupportedSchema is returned when a stored snapshot was written by a newer schema.
	ErrUnsupportedSchema = errors.New("application: unsupported snapshot schema version")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface, naming the offending fields.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error. The first message per field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}
