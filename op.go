package txn

import (
	"context"
	"fmt"
	"time"
)

// Capability names an abstract requirement an Operation places on a
// Session, e.g. "supports keyed read". Descriptions reference capabilities
// only; Interpreters bind them to concrete backend calls.
type Capability string

// Capabilities served by the bundled adapters. Backends are free to define
// additional ones; a Description using a capability its Interpreter does not
// serve fails with CapabilityUnsupported.
const (
	// Keyed store.
	KVGet    Capability = "kv.get"
	KVSet    Capability = "kv.set"
	KVDelete Capability = "kv.delete"
	KVExists Capability = "kv.exists"

	// Relational / query.
	SQLExec  Capability = "sql.exec"
	SQLQuery Capability = "sql.query"

	// Message broker.
	MQPublish Capability = "mq.publish"

	// Blob store.
	BlobPut    Capability = "blob.put"
	BlobGet    Capability = "blob.get"
	BlobDelete Capability = "blob.delete"
)

// Op is the smallest describable unit of work: a capability requirement
// plus an input payload. Immutable once constructed.
type Op struct {
	Capability Capability
	Input      any
}

// KeyValue is the payload for keyed writes.
type KeyValue struct {
	Key   string
	Value []byte
	// TTL of 0 means no expiry.
	TTL time.Duration
}

// Query is the payload for relational operations.
type Query struct {
	Statement string
	Args      []any
}

// ExecResult is the result of SQLExec.
type ExecResult struct {
	RowsAffected int64
}

// Row is one result row keyed by column name.
type Row map[string]any

// Message is the payload for MQPublish.
type Message struct {
	Queue       string
	Body        []byte
	ContentType string
}

// Blob is the payload for blob operations. Data is ignored on get/delete.
type Blob struct {
	Container string
	Name      string
	Data      []byte
}

// Operation lifts a single abstract Operation into a Description producing
// T. Interpretation fails with CapabilityUnsupported when the bound
// Interpreter does not serve c, and with a serialization-classed
// BackendFailure when the Interpreter's result is not a T.
func Operation[T any](c Capability, input any) Description[T] {
	return Func[T](func(ctx context.Context, env *Env) (T, error) {
		var zero T
		if !env.Interpreter.Supports(c) {
			return zero, NewError(CapabilityUnsupported,
				fmt.Errorf("capability %q is not served by this interpreter", c))
		}
		v, err := env.Interpreter.Interpret(ctx, env.Session, Op{Capability: c, Input: input})
		if err != nil {
			return zero, Classify(err)
		}
		if v == nil {
			return zero, nil
		}
		t, ok := v.(T)
		if !ok {
			return zero, NewBackendFailure(ClassSerialization,
				fmt.Errorf("capability %q produced %T, want %T", c, v, zero))
		}
		return t, nil
	})
}

// GetValue reads the value stored under key. Missing keys fail with a
// not-found classed BackendFailure; compose with OrElse or Recover for a
// default.
func GetValue(key string) Description[[]byte] {
	return Operation[[]byte](KVGet, key)
}

// SetValue writes value under key. A ttl of 0 means no expiry.
func SetValue(key string, value []byte, ttl time.Duration) Description[struct{}] {
	return Operation[struct{}](KVSet, KeyValue{Key: key, Value: value, TTL: ttl})
}

// DeleteKey removes key. Deleting a missing key succeeds.
func DeleteKey(key string) Description[struct{}] {
	return Operation[struct{}](KVDelete, key)
}

// KeyExists reports whether key is present.
func KeyExists(key string) Description[bool] {
	return Operation[bool](KVExists, key)
}

// Exec runs a statement that does not return rows.
func Exec(statement string, args ...any) Description[ExecResult] {
	return Operation[ExecResult](SQLExec, Query{Statement: statement, Args: args})
}

// QueryRows runs a statement and collects the result rows.
func QueryRows(statement string, args ...any) Description[[]Row] {
	return Operation[[]Row](SQLQuery, Query{Statement: statement, Args: args})
}

// Publish enqueues a message to the named queue.
func Publish(queue string, body []byte, contentType string) Description[struct{}] {
	return Operation[struct{}](MQPublish, Message{Queue: queue, Body: body, ContentType: contentType})
}

// PutBlob stores data under container/name.
func PutBlob(container, name string, data []byte) Description[struct{}] {
	return Operation[struct{}](BlobPut, Blob{Container: container, Name: name, Data: data})
}

// GetBlob fetches the blob stored under container/name.
func GetBlob(container, name string) Description[[]byte] {
	return Operation[[]byte](BlobGet, Blob{Container: container, Name: name})
}

// DeleteBlob removes the blob stored under container/name.
func DeleteBlob(container, name string) Description[struct{}] {
	return Operation[struct{}](BlobDelete, Blob{Container: container, Name: name})
}
