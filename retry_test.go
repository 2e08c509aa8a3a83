package txn

import (
	"context"
	"testing"
	"time"
)

func Test_ShouldRetry(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want bool
	}{
		{"nil", nil, false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"cancelled code", NewError(Cancelled, context.Canceled), false},
		{"acquisition failed", NewError(AcquisitionFailed, errBoom), true},
		{"capability unsupported", NewError(CapabilityUnsupported, errBoom), false},
		{"boundary failure", NewError(BoundaryFailure, errBoom), false},
		{"backend connectivity", NewBackendFailure(ClassConnectivity, errBoom), true},
		{"backend timeout", NewBackendFailure(ClassTimeout, errBoom), true},
		{"backend serialization", NewBackendFailure(ClassSerialization, errBoom), true},
		{"backend constraint", NewBackendFailure(ClassConstraint, errBoom), false},
		{"backend not found", NewBackendFailure(ClassNotFound, errBoom), false},
		{"unknown", errBoom, false},
	}
	for _, tt := range cases {
		if got := ShouldRetry(tt.in); got != tt.want {
			t.Fatalf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func Test_RunWithRetry_RecoversTransientFailures(t *testing.T) {
	old := retryBase
	retryBase = time.Millisecond
	defer func() { retryBase = old }()

	provider := &fakeProvider{sess: &fakeSession{}}
	interp := newStubInterpreter()
	interp.failOn[1] = NewBackendFailure(ClassConnectivity, errBoom)
	interp.failOn[2] = NewBackendFailure(ClassTimeout, errBoom)
	r := NewRunner(provider, interp)

	v, err := RunWithRetry(context.Background(), r, echo("ok"))
	if err != nil || v != "ok" {
		t.Fatalf("got (%q, %v), want (\"ok\", nil)", v, err)
	}
	if interp.calls != 3 {
		t.Fatalf("interpreter calls=%d, want 3 (two transient failures then success)", interp.calls)
	}
	// Each attempt is a full execution with its own boundary and release.
	if provider.releases != 3 {
		t.Fatalf("releases=%d, want 3", provider.releases)
	}
	if provider.sess.rollbacks != 2 || provider.sess.commits != 1 {
		t.Fatalf("rollbacks=%d commits=%d, want 2/1", provider.sess.rollbacks, provider.sess.commits)
	}
}

func Test_RunWithRetry_DoesNotRetryPermanentFailures(t *testing.T) {
	provider := &fakeProvider{sess: &fakeSession{}}
	interp := newStubInterpreter()
	interp.failOn[1] = NewBackendFailure(ClassConstraint, errBoom)
	interp.failOn[2] = NewBackendFailure(ClassConstraint, errBoom)
	r := NewRunner(provider, interp)

	_, err := RunWithRetry(context.Background(), r, echo("x"))
	if Code(err) != BackendFailure || ClassOf(err) != ClassConstraint {
		t.Fatalf("got %v, want constraint BackendFailure", err)
	}
	if interp.calls != 1 {
		t.Fatalf("interpreter calls=%d, want 1 (no retry)", interp.calls)
	}
}
