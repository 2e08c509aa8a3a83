// Package txn provides a backend-agnostic transaction abstraction: business
// logic composes a Description of reads and writes against abstract session
// capabilities, and a Runner executes that Description against one concrete
// backend with uniform begin/commit/rollback and error classification.
// Concrete backends live in subpackages under adapters (memory, redis,
// cassandra, sqldb, rabbitmq, s3); each supplies a Session, a Provider, and
// an Interpreter for the capabilities it can serve.
//
// A Description is pure data/behavior until it reaches a Runner. It never
// names a backend, only capabilities, so the same business program can run
// against a relational database in production and the in-memory adapter in
// tests.
package txn

// Execution model
//
// One call to Run is one traversal of the boundary state machine
// Idle → SessionAcquired → BoundaryOpen → (Committed|RolledBack) → Closed.
// The Session is owned exclusively by that execution and is released on
// every exit path, including failures of commit or rollback themselves.
// Operations inside a Description are interpreted strictly in composition
// order; independent executions may run in parallel since they never share
// a Session.
