package application

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	empty := &ValidationError{}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for empty error, got %q", got)
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"region": "bad", "capacity": "bad"}}
	if got := withFields.Error(); got != "validation failed: capacity, region" {
		t.Fatalf("expected sorted field names, got %q", got)
	}
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	if (&ValidationError{}).HasErrors() {
		t.Fatalf("expected HasErrors to report false for empty error")
	}
	if !(&ValidationError{FieldErrors: map[string]string{"field": "bad"}}).HasErrors() {
		t.Fatalf("expected HasErrors to report true when fields are present")
	}
}

func TestValidationError_AddKeepsFirstMessage(t *testing.T) {
	t.Parallel()

	vErr := &ValidationError{}
	if vErr.errOrNil() != nil {
		t.Fatalf("expected empty error to collapse to nil")
	}
	vErr.add("endTime", "End time is required")
	vErr.add("endTime", "End time must be after start time")
	if msg, ok := vErr.Field("endTime"); !ok || msg != "End time is required" {
		t.Fatalf("expected first message to win, got %q", msg)
	}
	if _, ok := vErr.Field("startTime"); ok {
		t.Fatalf("expected unknown field to be absent")
	}
	if vErr.errOrNil() == nil {
		t.Fatalf("expected populated error to be returned")
	}
}

type fakeRemote struct{}

func (fakeRemote) Error() string      { return "remote failure" }
func (fakeRemote) RemoteCode() string { return "NETWORK_ERROR" }

func TestErrorKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "forbidden wrapped", err: fmt.Errorf("%w: delete schedules", ErrForbidden), want: "forbidden"},
		{name: "not authenticated", err: ErrNotAuthenticated, want: "not_authenticated"},
		{name: "unknown role", err: ErrUnknownRole, want: "unknown_role"},
		{name: "expired", err: ErrSessionExpired, want: "session_expired"},
		{name: "not cancellable", err: ErrNotCancellable, want: "not_cancellable"},
		{name: "detached", err: ErrDetached, want: "detached"},
		{name: "validation", err: fmt.Errorf("save: %w", &ValidationError{FieldErrors: map[string]string{"a": "b"}}), want: "validation"},
		{name: "remote", err: fmt.Errorf("list: %w", fakeRemote{}), want: "remote"},
		{name: "other", err: errors.New("boom"), want: "unexpected"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ErrorKind(tc.err); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
