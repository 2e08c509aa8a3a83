package txn

import (
	"context"
	"fmt"
)

// Interpreter translates abstract Operations into real calls against a
// Session of one backend kind. One Interpreter exists per backend.
//
// Interpret must classify every underlying failure into the error taxonomy
// before returning; it never discards errors. All backend side effects
// happen here and only here.
type Interpreter interface {
	// Supports reports whether the capability is served.
	Supports(c Capability) bool
	// Interpret issues the concrete backend call for op against sess.
	Interpret(ctx context.Context, sess Session, op Op) (any, error)
}

// Env is what a Description runs against: the Session and Interpreter bound
// by the Runner for one execution, plus the execution's ID for tracing.
type Env struct {
	Session     Session
	Interpreter Interpreter
	// ID identifies the execution in logs.
	ID UUID
}

// Handler is one capability's concrete backend call.
type Handler func(ctx context.Context, sess Session, op Op) (any, error)

// Dispatch is a capability-to-handler table implementing Interpreter.
// Adapters build one at construction time; lookup misses fail with
// CapabilityUnsupported.
type Dispatch struct {
	handlers map[Capability]Handler
}

// NewDispatch returns an empty Dispatch.
func NewDispatch() *Dispatch {
	return &Dispatch{handlers: map[Capability]Handler{}}
}

// Handle registers h for capability c, replacing any previous handler.
func (d *Dispatch) Handle(c Capability, h Handler) {
	d.handlers[c] = h
}

// Supports implements Interpreter.
func (d *Dispatch) Supports(c Capability) bool {
	_, ok := d.handlers[c]
	return ok
}

// Interpret implements Interpreter.
func (d *Dispatch) Interpret(ctx context.Context, sess Session, op Op) (any, error) {
	h, ok := d.handlers[op.Capability]
	if !ok {
		return nil, NewError(CapabilityUnsupported,
			fmt.Errorf("capability %q is not served by this interpreter", op.Capability))
	}
	return h(ctx, sess, op)
}
