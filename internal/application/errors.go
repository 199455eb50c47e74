package application

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrForbidden is returned when the current user lacks the capability for an action.
	ErrForbidden = errors.New("application: forbidden")
	// ErrNotAuthenticated is returned when an action requires a signed-in user.
	ErrNotAuthenticated = errors.New("application: not authenticated")
	// ErrUnknownRole is returned when a role falls outside the closed enumeration.
	ErrUnknownRole = errors.New("application: unknown role")
	// ErrSessionExpired is returned when a persisted token is no longer valid.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrNotCancellable is returned when an application is no longer pending.
	ErrNotCancellable = errors.New("application: application is not pending")
	// ErrDetached is returned by tasks whose store was closed before completion.
	ErrDetached = errors.New("application: store detached")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
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

// Field returns the message recorded for field, if any.
func (v *ValidationError) Field(field string) (string, bool) {
	if v == nil {
		return "", false
	}
	msg, ok := v.FieldErrors[field]
	return msg, ok
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

// errOrNil returns v as an error only when it recorded something.
func (v *ValidationError) errOrNil() error {
	if v.HasErrors() {
		return v
	}
	return nil
}
