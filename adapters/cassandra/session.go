package cassandra

import (
	"context"
	"errors"
	"fmt"

	"github.com/gocql/gocql"

	"github.com/sharedkit/txn"
)

// Session owns one execution's view of the cluster. Begin opens a logged
// batch; sql.exec statements stage into it and apply atomically at Commit.
// sql.query statements run directly and observe committed state only.
type Session struct {
	session *gocql.Session
	batch   *gocql.Batch
}

// Begin implements txn.Session.
func (s *Session) Begin(context.Context) error {
	s.batch = s.session.NewBatch(gocql.LoggedBatch)
	return nil
}

// Commit implements txn.Session. Executes the staged batch; an empty batch
// commits trivially.
func (s *Session) Commit(ctx context.Context) error {
	if s.batch == nil {
		return fmt.Errorf("cassandra: commit without begin")
	}
	batch := s.batch.WithContext(ctx)
	s.batch = nil
	if len(batch.Entries) == 0 {
		return nil
	}
	return s.session.ExecuteBatch(batch)
}

// Rollback implements txn.Session. Drops the staged batch.
func (s *Session) Rollback(context.Context) error {
	s.batch = nil
	return nil
}

// NewProvider returns a Provider handing out a fresh Session per execution
// over the shared gocql session (which pools connections internally).
func NewProvider(conn *Connection) txn.Provider {
	return txn.ProviderFunc{
		AcquireFunc: func(ctx context.Context) (txn.Session, error) {
			if conn == nil || conn.Session == nil {
				return nil, txn.NewError(txn.AcquisitionFailed, fmt.Errorf("cassandra: connection is closed"))
			}
			return &Session{session: conn.Session}, nil
		},
	}
}

// NewInterpreter returns the Interpreter serving relational capabilities
// against Cassandra Sessions.
func NewInterpreter() txn.Interpreter {
	d := txn.NewDispatch()
	d.Handle(txn.SQLExec, func(_ context.Context, sess txn.Session, op txn.Op) (any, error) {
		s, q, err := sessionAndQuery(sess, op)
		if err != nil {
			return nil, err
		}
		if s.batch == nil {
			return nil, txn.NewBackendFailure(txn.ClassUnknown, fmt.Errorf("cassandra: sql.exec outside transaction boundary"))
		}
		s.batch.Query(q.Statement, q.Args...)
		// Rows affected is unknowable until the batch executes at commit.
		return txn.ExecResult{}, nil
	})
	d.Handle(txn.SQLQuery, func(ctx context.Context, sess txn.Session, op txn.Op) (any, error) {
		s, q, err := sessionAndQuery(sess, op)
		if err != nil {
			return nil, err
		}
		iter := s.session.Query(q.Statement, q.Args...).WithContext(ctx).Iter()
		rows := make([]txn.Row, 0, iter.NumRows())
		for {
			row := map[string]any{}
			if !iter.MapScan(row) {
				break
			}
			rows = append(rows, txn.Row(row))
		}
		if err := iter.Close(); err != nil {
			return nil, classify(err)
		}
		return rows, nil
	})
	return d
}

// classify maps gocql errors onto the taxonomy.
func classify(err error) error {
	if errors.Is(err, gocql.ErrNotFound) {
		return txn.NewBackendFailure(txn.ClassNotFound, err)
	}
	if errors.Is(err, gocql.ErrTimeoutNoResponse) || errors.Is(err, gocql.ErrConnectionClosed) {
		return txn.NewBackendFailure(txn.ClassConnectivity, err)
	}
	var reqErr gocql.RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.Code() {
		case gocql.ErrCodeReadTimeout, gocql.ErrCodeWriteTimeout:
			return txn.NewBackendFailure(txn.ClassTimeout, err)
		case gocql.ErrCodeUnavailable, gocql.ErrCodeOverloaded:
			return txn.NewBackendFailure(txn.ClassConnectivity, err)
		case gocql.ErrCodeInvalid, gocql.ErrCodeSyntax, gocql.ErrCodeAlreadyExists:
			return txn.NewBackendFailure(txn.ClassConstraint, err)
		}
	}
	return txn.Classify(err)
}

func sessionAndQuery(sess txn.Session, op txn.Op) (*Session, txn.Query, error) {
	s, ok := sess.(*Session)
	if !ok {
		return nil, txn.Query{}, txn.NewBackendFailure(txn.ClassUnknown, fmt.Errorf("cassandra: session is %T, want *cassandra.Session", sess))
	}
	q, ok := op.Input.(txn.Query)
	if !ok {
		return nil, txn.Query{}, txn.NewBackendFailure(txn.ClassSerialization, fmt.Errorf("cassandra: %s wants Query, got %T", op.Capability, op.Input))
	}
	return s, q, nil
}
