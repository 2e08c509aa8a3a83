// Package memory provides an in-process keyed-store backend. Writes stage
// in the Session and apply atomically on commit, which makes it the
// reference backend for atomicity tests and for embedding without any
// external service.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/sharedkit/txn"
)

// Store is a process-local key/value store shared by all Sessions a
// Provider hands out. Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{data: map[string][]byte{}}
}

// Get returns the committed value under key, for direct inspection outside
// a transaction.
func (s *Store) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Len returns the number of committed keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

type write struct {
	key    string
	value  []byte
	delete bool
}

// Session stages writes until Commit applies them to the Store in one
// critical section. Reads observe staged writes first (read-your-writes)
// and fall back to committed data.
type Session struct {
	store  *Store
	staged []write
	open   bool
}

// Begin implements txn.Session.
func (s *Session) Begin(context.Context) error {
	s.staged = s.staged[:0]
	s.open = true
	return nil
}

// Commit implements txn.Session. Applies all staged writes atomically.
func (s *Session) Commit(context.Context) error {
	if !s.open {
		return fmt.Errorf("memory: commit without begin")
	}
	s.store.mu.Lock()
	for _, w := range s.staged {
		if w.delete {
			delete(s.store.data, w.key)
			continue
		}
		s.store.data[w.key] = w.value
	}
	s.store.mu.Unlock()
	s.staged = nil
	s.open = false
	return nil
}

// Rollback implements txn.Session. Drops all staged writes.
func (s *Session) Rollback(context.Context) error {
	s.staged = nil
	s.open = false
	return nil
}

// lookup resolves key against staged writes first, then committed data.
func (s *Session) lookup(key string) ([]byte, bool) {
	for i := len(s.staged) - 1; i >= 0; i-- {
		if s.staged[i].key == key {
			if s.staged[i].delete {
				return nil, false
			}
			return s.staged[i].value, true
		}
	}
	return s.store.Get(key)
}

// NewProvider returns a Provider handing out a fresh Session per execution,
// all sharing the given Store.
func NewProvider(store *Store) txn.Provider {
	return txn.ProviderFunc{
		AcquireFunc: func(context.Context) (txn.Session, error) {
			return &Session{store: store}, nil
		},
	}
}

// NewInterpreter returns the Interpreter serving the keyed-store
// capabilities against memory Sessions.
func NewInterpreter() txn.Interpreter {
	d := txn.NewDispatch()
	d.Handle(txn.KVGet, func(_ context.Context, sess txn.Session, op txn.Op) (any, error) {
		s, key, err := sessionAndKey(sess, op)
		if err != nil {
			return nil, err
		}
		v, ok := s.lookup(key)
		if !ok {
			return nil, txn.NewBackendFailure(txn.ClassNotFound, fmt.Errorf("memory: key %q not found", key))
		}
		return v, nil
	})
	d.Handle(txn.KVSet, func(_ context.Context, sess txn.Session, op txn.Op) (any, error) {
		s, err := session(sess)
		if err != nil {
			return nil, err
		}
		kv, ok := op.Input.(txn.KeyValue)
		if !ok {
			return nil, txn.NewBackendFailure(txn.ClassSerialization, fmt.Errorf("memory: kv.set wants KeyValue, got %T", op.Input))
		}
		// TTL is ignored; the in-process store does not expire keys.
		s.staged = append(s.staged, write{key: kv.Key, value: kv.Value})
		return nil, nil
	})
	d.Handle(txn.KVDelete, func(_ context.Context, sess txn.Session, op txn.Op) (any, error) {
		s, key, err := sessionAndKey(sess, op)
		if err != nil {
			return nil, err
		}
		s.staged = append(s.staged, write{key: key, delete: true})
		return nil, nil
	})
	d.Handle(txn.KVExists, func(_ context.Context, sess txn.Session, op txn.Op) (any, error) {
		s, key, err := sessionAndKey(sess, op)
		if err != nil {
			return nil, err
		}
		_, ok := s.lookup(key)
		return ok, nil
	})
	return d
}

func session(sess txn.Session) (*Session, error) {
	s, ok := sess.(*Session)
	if !ok {
		return nil, txn.NewBackendFailure(txn.ClassUnknown, fmt.Errorf("memory: session is %T, want *memory.Session", sess))
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
		return nil, "", txn.NewBackendFailure(txn.ClassSerialization, fmt.Errorf("memory: %s wants string key, got %T", op.Capability, op.Input))
	}
	return s, key, nil
}
