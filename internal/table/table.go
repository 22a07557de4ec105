package table

import (
	"errors"
	"sync"
)

// ErrKeyNotFound is returned by Get when the requested key has no entry,
// and is the sentinel replgroup's Leader maps to the wire reply
// "Error: Non existent key".
var ErrKeyNotFound = errors.New("non-existent key")

// Entry is a stored (value, req_id) pair, the unit of data the table
// holds per key.
type Entry struct {
	Value []byte
	ReqID int64
}

// Stats is a point-in-time snapshot of table occupancy.
type Stats struct {
	Keys int
}

// Table is the node-local, idempotent key-value map. All operations
// are safe for concurrent use.
type Table struct {
	mu   sync.Mutex
	data map[string]Entry
}

// New returns an empty, ready-to-use Table.
func New() *Table {
	return &Table{data: make(map[string]Entry)}
}

// Set stores (value, reqID) for key if reqID is strictly greater than any
// existing entry's req_id for that key; otherwise it is a no-op. Returns
// whether the table was actually updated.
func (t *Table) Set(key string, value []byte, reqID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.data[key]; ok && reqID <= existing.ReqID {
		return false
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	t.data[key] = Entry{Value: stored, ReqID: reqID}
	return true
}

// Get returns the stored (value, req_id) for key, or ErrKeyNotFound if
// the key has no entry.
func (t *Table) Get(key string) (Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.data[key]
	if !ok {
		return Entry{}, ErrKeyNotFound
	}

	value := make([]byte, len(entry.Value))
	copy(value, entry.Value)
	return Entry{Value: value, ReqID: entry.ReqID}, nil
}

// Delete removes key's entry if reqID is strictly greater than the
// stored req_id (or the key is absent, in which case it is also a
// no-op). Returns whether an entry was actually removed.
func (t *Table) Delete(key string, reqID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	existing, ok := t.data[key]
	if !ok {
		return false
	}
	if reqID <= existing.ReqID {
		return false
	}

	delete(t.data, key)
	return true
}

// Stats returns a snapshot of current table occupancy.
func (t *Table) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Stats{Keys: len(t.data)}
}

// Keys returns a snapshot of all keys currently present. Order is not
// guaranteed.
func (t *Table) Keys() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	keys := make([]string, 0, len(t.data))
	for k := range t.data {
		keys = append(keys, k)
	}
	return keys
}
