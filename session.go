package txn

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Session is a live handle to one backend, owned exclusively by one
// in-flight execution from acquisition to release. Begin/Commit/Rollback
// map to the backend's native transaction boundary; backends without
// explicit boundaries embed NoBoundary.
type Session interface {
	// Begin opens the backend transaction boundary.
	Begin(ctx context.Context) error
	// Commit finalizes all work performed since Begin.
	Commit(ctx context.Context) error
	// Rollback discards all work performed since Begin.
	Rollback(ctx context.Context) error
}

// Provider supplies Sessions to Runners. Pooling, retry-on-acquire and
// connection configuration belong to the Provider, outside the core.
type Provider interface {
	// Acquire obtains a Session for exclusive use by one execution.
	Acquire(ctx context.Context) (Session, error)
	// Release returns the Session; called exactly once per execution.
	Release(ctx context.Context, sess Session) error
}

// NoBoundary provides no-op Begin/Commit/Rollback for backends whose
// operations are already atomic (single-key cache writes, blob puts).
type NoBoundary struct{}

func (NoBoundary) Begin(context.Context) error    { return nil }
func (NoBoundary) Commit(context.Context) error   { return nil }
func (NoBoundary) Rollback(context.Context) error { return nil }

// SingleSessionProvider hands out one underlying Session to at most one
// execution at a time. Concurrent Acquire calls block until the current
// owner releases, so exclusive ownership holds even when callers share a
// Runner across goroutines.
type SingleSessionProvider struct {
	sess Session
	sem  *semaphore.Weighted
}

// NewSingleSessionProvider wraps sess in a SingleSessionProvider.
func NewSingleSessionProvider(sess Session) *SingleSessionProvider {
	return &SingleSessionProvider{
		sess: sess,
		sem:  semaphore.NewWeighted(1),
	}
}

// Acquire implements Provider. Blocks until the Session is free or ctx is
// done.
func (p *SingleSessionProvider) Acquire(ctx context.Context) (Session, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, NewError(AcquisitionFailed, err)
	}
	return p.sess, nil
}

// Release implements Provider.
func (p *SingleSessionProvider) Release(context.Context, Session) error {
	p.sem.Release(1)
	return nil
}

// ProviderFunc adapts acquire/release funcs into a Provider.
type ProviderFunc struct {
	AcquireFunc func(ctx context.Context) (Session, error)
	ReleaseFunc func(ctx context.Context, sess Session) error
}

// Acquire implements Provider.
func (p ProviderFunc) Acquire(ctx context.Context) (Session, error) {
	return p.AcquireFunc(ctx)
}

// Release implements Provider.
func (p ProviderFunc) Release(ctx context.Context, sess Session) error {
	if p.ReleaseFunc == nil {
		return nil
	}
	return p.ReleaseFunc(ctx, sess)
}
