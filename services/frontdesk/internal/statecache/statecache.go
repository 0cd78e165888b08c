// Package statecache holds the staff console's working copy of reservation,
// room and request state. Mutations made ahead of a remote call run through an
// Operation: begin snapshots the touched keys, apply overwrites them, and the
// caller finishes with exactly one of Commit or Rollback. Rollback restores
// the snapshotted bytes untouched.
package statecache

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrOperationClosed = errors.New("operation already committed or rolled back")
	ErrKeyNotSnapshot  = errors.New("key not covered by operation snapshot")
	ErrNotFound        = errors.New("key not found")
)

// Entries are stored as raw JSON so snapshots restore byte for byte, with no
// dependence on how a struct happens to re-marshal.
type Cache struct {
	mu      sync.Mutex
	entries map[string]json.RawMessage
	pending map[string]*Operation
}

type opState int

const (
	opPending opState = iota
	opCommitted
	opRolledBack
)

// Operation is one optimistic mutation in flight. Snapshots are keyed by
// cache key; a nil snapshot records that the key was absent.
type Operation struct {
	id        string
	snapshots map[string]json.RawMessage
	state     opState
}

func (o *Operation) ID() string { return o.id }

func New() *Cache {
	return &Cache{
		entries: make(map[string]json.RawMessage),
		pending: make(map[string]*Operation),
	}
}

// Put writes a value outside any operation.
func (c *Cache) Put(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	return nil
}

// Get decodes the entry at key into out.
func (c *Cache) Get(key string, out interface{}) error {
	c.mu.Lock()
	raw, ok := c.entries[key]
	c.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(raw, out)
}

// Invalidate drops keys whose cached value can no longer be trusted.
func (c *Cache) Invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
	}
}

// View returns a copy of every entry, for read-only rendering.
func (c *Cache) View() map[string]json.RawMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	view := make(map[string]json.RawMessage, len(c.entries))
	for key, raw := range c.entries {
		copied := make(json.RawMessage, len(raw))
		copy(copied, raw)
		view[key] = copied
	}
	return view
}

// Begin snapshots the named keys and opens an operation over them. Only keys
// in the snapshot may be applied through the operation.
func (c *Cache) Begin(keys ...string) *Operation {
	c.mu.Lock()
	defer c.mu.Unlock()

	op := &Operation{
		id:        uuid.NewString(),
		snapshots: make(map[string]json.RawMessage, len(keys)),
	}
	for _, key := range keys {
		if raw, ok := c.entries[key]; ok {
			copied := make(json.RawMessage, len(raw))
			copy(copied, raw)
			op.snapshots[key] = copied
		} else {
			op.snapshots[key] = nil
		}
	}
	c.pending[op.id] = op
	return op
}

// Apply overwrites a snapshotted key with the optimistic value.
func (c *Cache) Apply(op *Operation, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if op.state != opPending {
		return ErrOperationClosed
	}
	if _, ok := op.snapshots[key]; !ok {
		return ErrKeyNotSnapshot
	}
	c.entries[key] = raw
	return nil
}

// Commit keeps the applied values and discards the snapshots.
func (c *Cache) Commit(op *Operation) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if op.state != opPending {
		return ErrOperationClosed
	}
	op.state = opCommitted
	delete(c.pending, op.id)
	return nil
}

// Rollback restores every snapshotted key to its pre-operation bytes; keys
// that were absent at Begin are removed again.
func (c *Cache) Rollback(op *Operation) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if op.state != opPending {
		return ErrOperationClosed
	}
	for key, raw := range op.snapshots {
		if raw == nil {
			delete(c.entries, key)
		} else {
			c.entries[key] = raw
		}
	}
	op.state = opRolledBack
	delete(c.pending, op.id)
	return nil
}
