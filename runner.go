package txn

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
)

// State enumerates the transaction boundary states of one execution.
type State int

const (
	StateIdle State = iota
	StateSessionAcquired
	StateBoundaryOpen
	StateCommitted
	StateRolledBack
	StateClosed
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSessionAcquired:
		return "session_acquired"
	case StateBoundaryOpen:
		return "boundary_open"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Runner orchestrates executions against one backend: it acquires a Session
// from the Provider, opens the transaction boundary, has the Interpreter
// walk the Description, commits or rolls back, and always releases the
// Session. A Runner is safe for concurrent use; each execution owns its own
// state.
type Runner struct {
	provider    Provider
	interpreter Interpreter
	onCommit    []func(ctx context.Context) error
}

// NewRunner returns a Runner bound to one Provider and one Interpreter.
// Backend selection happens here, at construction time, never during
// interpretation.
func NewRunner(provider Provider, interpreter Interpreter) *Runner {
	return &Runner{provider: provider, interpreter: interpreter}
}

// OnCommit registers a callback invoked after every successful commit.
// Callback errors are logged, not propagated: the commit already happened.
// This is the seam for post-transaction notification (and for an outer saga
// coordinating other backends). Not safe to call concurrently with Run.
func (r *Runner) OnCommit(callback func(ctx context.Context) error) {
	r.onCommit = append(r.onCommit, callback)
}

// execution tracks the boundary state machine for a single Run call.
// Never shared: concurrent executions cannot observe each other's state.
type execution struct {
	id    UUID
	state State
}

func (e *execution) transition(to State) {
	log.Debug("txn state transition", "txn_id", e.id.String(), "from", e.state.String(), "to", to.String())
	e.state = to
}

// Run executes the Description against the Runner's backend and returns
// exactly one result: the success value after commit, or a taxonomy error
// after rollback. The Session is released on every exit path. Run is a free
// function because Go methods cannot be generic.
func Run[T any](ctx context.Context, r *Runner, d Description[T]) (T, error) {
	var zero T
	exec := &execution{id: NewUUID(), state: StateIdle}

	// Cancellation before the boundary opens follows the acquisition
	// failure path: nothing to roll back.
	if err := ctx.Err(); err != nil {
		return zero, Classify(err)
	}

	sess, err := r.provider.Acquire(ctx)
	if err != nil {
		if Code(err) == AcquisitionFailed || Code(err) == Cancelled {
			return zero, err
		}
		return zero, NewError(AcquisitionFailed, err)
	}
	exec.transition(StateSessionAcquired)

	// Cleanup must survive caller cancellation.
	cleanupCtx := context.WithoutCancel(ctx)
	released := false
	release := func() {
		if released {
			return
		}
		released = true
		if rerr := r.provider.Release(cleanupCtx, sess); rerr != nil {
			log.Warn("txn session release failed", "txn_id", exec.id.String(), "error", rerr)
		}
		exec.transition(StateClosed)
	}
	defer release()

	if err := ctx.Err(); err != nil {
		return zero, Classify(err)
	}

	if err := sess.Begin(ctx); err != nil {
		return zero, NewError(BoundaryFailure, fmt.Errorf("begin: %w", err))
	}
	exec.transition(StateBoundaryOpen)

	env := &Env{Session: sess, Interpreter: r.interpreter, ID: exec.id}
	v, err := d.Run(ctx, env)
	if err == nil {
		// Cancellation after the boundary opened counts as a failure.
		err = ctx.Err()
	}
	if err != nil {
		err = Classify(err)
		if rbErr := sess.Rollback(cleanupCtx); rbErr != nil {
			exec.transition(StateRolledBack)
			return zero, &Error{Code: BoundaryFailure, Err: errors.Join(err, fmt.Errorf("rollback: %w", rbErr))}
		}
		exec.transition(StateRolledBack)
		log.Debug("txn rolled back", "txn_id", exec.id.String(), "error", err)
		return zero, err
	}

	if err := sess.Commit(ctx); err != nil {
		// Discard the boundary so the backend does not hold it open; the
		// commit failure is what gets reported.
		if rbErr := sess.Rollback(cleanupCtx); rbErr != nil {
			exec.transition(StateRolledBack)
			return zero, &Error{Code: BoundaryFailure, Err: errors.Join(fmt.Errorf("commit: %w", err), fmt.Errorf("rollback: %w", rbErr))}
		}
		exec.transition(StateRolledBack)
		return zero, NewError(BoundaryFailure, fmt.Errorf("commit: %w", err))
	}
	exec.transition(StateCommitted)

	for _, callback := range r.onCommit {
		if cbErr := callback(ctx); cbErr != nil {
			log.Warn("txn on-commit callback failed", "txn_id", exec.id.String(), "error", cbErr)
		}
	}
	return v, nil
}
