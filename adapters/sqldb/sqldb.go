// Package sqldb provides a relational backend over database/sql. Each
// execution owns one pooled connection with a native transaction opened at
// the boundary, so reads observe the execution's own uncommitted writes.
// The SQL driver is supplied by the caller when opening the *sql.DB.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"

	"github.com/sharedkit/txn"
)

// Session owns one pooled connection and, once Begin has run, one open
// database transaction.
type Session struct {
	conn *sql.Conn
	tx   *sql.Tx
}

// Begin implements txn.Session.
func (s *Session) Begin(ctx context.Context) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	s.tx = tx
	return nil
}

// Commit implements txn.Session.
func (s *Session) Commit(context.Context) error {
	if s.tx == nil {
		return fmt.Errorf("sqldb: commit without begin")
	}
	err := s.tx.Commit()
	s.tx = nil
	return err
}

// Rollback implements txn.Session.
func (s *Session) Rollback(context.Context) error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Rollback()
	s.tx = nil
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// NewProvider returns a Provider that checks one connection out of db's
// pool per execution and returns it on release.
func NewProvider(db *sql.DB) txn.Provider {
	return txn.ProviderFunc{
		AcquireFunc: func(ctx context.Context) (txn.Session, error) {
			conn, err := db.Conn(ctx)
			if err != nil {
				return nil, txn.NewError(txn.AcquisitionFailed, err)
			}
			return &Session{conn: conn}, nil
		},
		ReleaseFunc: func(_ context.Context, sess txn.Session) error {
			s, ok := sess.(*Session)
			if !ok {
				return fmt.Errorf("sqldb: release of %T, want *sqldb.Session", sess)
			}
			return s.conn.Close()
		},
	}
}

// NewInterpreter returns the Interpreter serving relational capabilities
// against database/sql Sessions.
func NewInterpreter() txn.Interpreter {
	d := txn.NewDispatch()
	d.Handle(txn.SQLExec, func(ctx context.Context, sess txn.Session, op txn.Op) (any, error) {
		s, q, err := sessionAndQuery(sess, op)
		if err != nil {
			return nil, err
		}
		res, err := s.tx.ExecContext(ctx, q.Statement, q.Args...)
		if err != nil {
			return nil, classify(err)
		}
		// Not all drivers report affected rows; treat that as zero.
		n, err := res.RowsAffected()
		if err != nil {
			n = 0
		}
		return txn.ExecResult{RowsAffected: n}, nil
	})
	d.Handle(txn.SQLQuery, func(ctx context.Context, sess txn.Session, op txn.Op) (any, error) {
		s, q, err := sessionAndQuery(sess, op)
		if err != nil {
			return nil, err
		}
		rows, err := s.tx.QueryContext(ctx, q.Statement, q.Args...)
		if err != nil {
			return nil, classify(err)
		}
		defer rows.Close()
		out, err := collectRows(rows)
		if err != nil {
			return nil, classify(err)
		}
		return out, nil
	})
	return d
}

func collectRows(rows *sql.Rows) ([]txn.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []txn.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(txn.Row, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// classify maps database/sql errors onto the taxonomy. Driver-specific
// constraint codes stay with the driver; callers needing them can unwrap.
func classify(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return txn.NewBackendFailure(txn.ClassNotFound, err)
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, sql.ErrTxDone) {
		return txn.NewBackendFailure(txn.ClassConnectivity, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return txn.NewBackendFailure(txn.ClassTimeout, err)
		}
		return txn.NewBackendFailure(txn.ClassConnectivity, err)
	}
	return txn.Classify(err)
}

func sessionAndQuery(sess txn.Session, op txn.Op) (*Session, txn.Query, error) {
	s, ok := sess.(*Session)
	if !ok {
		return nil, txn.Query{}, txn.NewBackendFailure(txn.ClassUnknown, fmt.Errorf("sqldb: session is %T, want *sqldb.Session", sess))
	}
	if s.tx == nil {
		return nil, txn.Query{}, txn.NewBackendFailure(txn.ClassUnknown, fmt.Errorf("sqldb: %s outside transaction boundary", op.Capability))
	}
	q, ok := op.Input.(txn.Query)
	if !ok {
		return nil, txn.Query{}, txn.NewBackendFailure(txn.ClassSerialization, fmt.Errorf("sqldb: %s wants Query, got %T", op.Capability, op.Input))
	}
	return s, q, nil
}
