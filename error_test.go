package txn

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func Test_Code_And_ClassOf(t *testing.T) {
	cases := []struct {
		name      string
		in        error
		wantCode  ErrorCode
		wantClass FailureClass
	}{
		{"nil-ish plain error", errors.New("plain"), Unknown, ClassUnknown},
		{"acquisition", NewError(AcquisitionFailed, errBoom), AcquisitionFailed, ClassUnknown},
		{"capability", NewError(CapabilityUnsupported, errBoom), CapabilityUnsupported, ClassUnknown},
		{"backend not found", NewBackendFailure(ClassNotFound, errBoom), BackendFailure, ClassNotFound},
		{"backend timeout", NewBackendFailure(ClassTimeout, errBoom), BackendFailure, ClassTimeout},
		{"wrapped", fmt.Errorf("outer: %w", NewBackendFailure(ClassConstraint, errBoom)), BackendFailure, ClassConstraint},
	}
	for _, tt := range cases {
		if got := Code(tt.in); got != tt.wantCode {
			t.Fatalf("%s: Code=%v, want %v", tt.name, got, tt.wantCode)
		}
		if got := ClassOf(tt.in); got != tt.wantClass {
			t.Fatalf("%s: ClassOf=%v, want %v", tt.name, got, tt.wantClass)
		}
	}
}

func Test_Classify(t *testing.T) {
	cases := []struct {
		name      string
		in        error
		wantCode  ErrorCode
		wantClass FailureClass
	}{
		{"canceled", context.Canceled, Cancelled, ClassUnknown},
		{"deadline", context.DeadlineExceeded, Cancelled, ClassTimeout},
		{"plain", errors.New("io glitch"), BackendFailure, ClassUnknown},
		{"already classified", NewBackendFailure(ClassNotFound, errBoom), BackendFailure, ClassNotFound},
	}
	for _, tt := range cases {
		got := Classify(tt.in)
		if Code(got) != tt.wantCode || ClassOf(got) != tt.wantClass {
			t.Fatalf("%s: got code=%v class=%v, want %v/%v", tt.name, Code(got), ClassOf(got), tt.wantCode, tt.wantClass)
		}
		if !errors.Is(got, tt.in) {
			t.Fatalf("%s: cause not preserved", tt.name)
		}
	}
	if Classify(nil) != nil {
		t.Fatal("Classify(nil) must be nil")
	}
}

func Test_Error_Unwrap(t *testing.T) {
	err := NewBackendFailure(ClassConnectivity, errBoom)
	if !errors.Is(err, errBoom) {
		t.Fatal("Unwrap does not expose cause")
	}
	var e *Error
	if !errors.As(err, &e) || e.Class != ClassConnectivity {
		t.Fatal("errors.As lost the class")
	}
}
