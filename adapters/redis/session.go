package redis

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/redis/go-redis/v9"

	"github.com/sharedkit/txn"
)

// Session owns one execution's view of the Redis backend. Begin opens a
// MULTI/EXEC transaction pipeline; writes queue on it and land atomically
// at Commit, while reads bypass the pipeline and observe committed state
// only (Redis queues commands without executing them, so transactional
// read-your-writes is not available).
type Session struct {
	client *redis.Client
	pipe   redis.Pipeliner
}

// Begin implements txn.Session.
func (s *Session) Begin(context.Context) error {
	s.pipe = s.client.TxPipeline()
	return nil
}

// Commit implements txn.Session. Executes the queued pipeline.
func (s *Session) Commit(ctx context.Context) error {
	if s.pipe == nil {
		return fmt.Errorf("redis: commit without begin")
	}
	_, err := s.pipe.Exec(ctx)
	s.pipe = nil
	return err
}

// Rollback implements txn.Session. Discards all queued commands.
func (s *Session) Rollback(context.Context) error {
	if s.pipe != nil {
		s.pipe.Discard()
		s.pipe = nil
	}
	return nil
}

// NewProvider returns a Provider handing out a fresh Session per execution
// over the shared client (go-redis pools the underlying connections).
func NewProvider(conn *Connection) txn.Provider {
	return txn.ProviderFunc{
		AcquireFunc: func(ctx context.Context) (txn.Session, error) {
			if conn == nil || conn.Client == nil {
				return nil, txn.NewError(txn.AcquisitionFailed, fmt.Errorf("redis: connection is closed"))
			}
			return &Session{client: conn.Client}, nil
		},
	}
}

// NewInterpreter returns the Interpreter serving keyed-store capabilities
// against Redis Sessions.
func NewInterpreter() txn.Interpreter {
	d := txn.NewDispatch()
	d.Handle(txn.KVGet, func(ctx context.Context, sess txn.Session, op txn.Op) (any, error) {
		s, key, err := sessionAndKey(sess, op)
		if err != nil {
			return nil, err
		}
		v, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			return nil, classify(err)
		}
		return v, nil
	})
	d.Handle(txn.KVSet, func(ctx context.Context, sess txn.Session, op txn.Op) (any, error) {
		s, err := session(sess)
		if err != nil {
			return nil, err
		}
		kv, ok := op.Input.(txn.KeyValue)
		if !ok {
			return nil, txn.NewBackendFailure(txn.ClassSerialization, fmt.Errorf("redis: kv.set wants KeyValue, got %T", op.Input))
		}
		if s.pipe == nil {
			return nil, txn.NewBackendFailure(txn.ClassUnknown, fmt.Errorf("redis: kv.set outside transaction boundary"))
		}
		s.pipe.Set(ctx, kv.Key, kv.Value, kv.TTL)
		return nil, nil
	})
	d.Handle(txn.KVDelete, func(ctx context.Context, sess txn.Session, op txn.Op) (any, error) {
		s, key, err := sessionAndKey(sess, op)
		if err != nil {
			return nil, err
		}
		if s.pipe == nil {
			return nil, txn.NewBackendFailure(txn.ClassUnknown, fmt.Errorf("redis: kv.delete outside transaction boundary"))
		}
		s.pipe.Del(ctx, key)
		return nil, nil
	})
	d.Handle(txn.KVExists, func(ctx context.Context, sess txn.Session, op txn.Op) (any, error) {
		s, key, err := sessionAndKey(sess, op)
		if err != nil {
			return nil, err
		}
		n, err := s.client.Exists(ctx, key).Result()
		if err != nil {
			return nil, classify(err)
		}
		return n > 0, nil
	})
	return d
}

// classify maps go-redis errors onto the taxonomy.
func classify(err error) error {
	if errors.Is(err, redis.Nil) {
		return txn.NewBackendFailure(txn.ClassNotFound, err)
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

func session(sess txn.Session) (*Session, error) {
	s, ok := sess.(*Session)
	if !ok {
		return nil, txn.NewBackendFailure(txn.ClassUnknown, fmt.Errorf("redis: session is %T, want *redis.Session", sess))
	}
	return s, nil
}

func sessionAndKey(sess txn.Session, op txn.Op) (*Session, string, error) {
	s, err := session(sess)
	if err != nil {
		return nil, "", err
	}
	key, ok := op.Input.(string)
	if !ok {
		return nil, "", txn.NewBackendFailure(txn.ClassSerialization, fmt.Errorf("redis: %s wants string key, got %T", op.Capability, op.Input))
	}
	return s, key, nil
}
