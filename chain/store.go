package chain

import (
	"bytes"
	"sync"

	"github.com/tidwall/btree"
)

// KVStore is the ordered byte-keyed store contracts and the bank keep
// their state in. Get returns a nil value for a missing key; stored
// values are never empty.
type KVStore interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	// Iterate calls fn for every key starting with prefix in ascending
	// order until fn returns false.
	Iterate(prefix []byte, fn func(key, value []byte) bool) error
}

// Flusher is implemented by stores that buffer committed state and need an
// explicit call to persist it.
type Flusher interface {
	Flush() error
}

// MemDB is an in-memory KVStore backed by a B-tree. It is safe for
// concurrent use.
type MemDB struct {
	mu   sync.RWMutex
	tree *btree.Map[string, []byte]
}

// NewMemDB creates an empty in-memory store.
func NewMemDB() *MemDB {
	return &MemDB{tree: btree.NewMap[string, []byte](32)}
}

func (m *MemDB) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.tree.Get(string(key))
	if !ok {
		return nil, nil
	}
	return bytes.Clone(v), nil
}

func (m *MemDB) Has(key []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.tree.Get(string(key))
	return ok, nil
}

func (m *MemDB) Set(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tree.Set(string(key), bytes.Clone(value))
	return nil
}

func (m *MemDB) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tree.Delete(string(key))
	return nil
}

func (m *MemDB) Iterate(prefix []byte, fn func(key, value []byte) bool) error {
	m.mu.RLock()
	snapshot := m.tree.Copy()
	m.mu.RUnlock()

	ascendPrefix(snapshot, string(prefix), func(k string, v []byte) bool {
		return fn([]byte(k), bytes.Clone(v))
	})
	return nil
}

// Len returns the number of keys held.
func (m *MemDB) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree.Len()
}

func ascendPrefix[V any](tree *btree.Map[string, V], prefix string, fn func(k string, v V) bool) {
	tree.Ascend(prefix, func(k string, v V) bool {
		if len(k) < len(prefix) || k[:len(prefix)] != prefix {
			return false
		}
		return fn(k, v)
	})
}

// PrefixStore namespaces every key of an underlying store.
type PrefixStore struct {
	parent KVStore
	prefix []byte
}

// NewPrefixStore returns a view of parent where every key is prefixed.
func NewPrefixStore(parent KVStore, prefix string) *PrefixStore {
	return &PrefixStore{parent: parent, prefix: []byte(prefix)}
}

func (p *PrefixStore) key(k []byte) []byte {
	out := make([]byte, 0, len(p.prefix)+len(k))
	out = append(out, p.prefix...)
	return append(out, k...)
}

func (p *PrefixStore) Get(key []byte) ([]byte, error) { return p.parent.Get(p.key(key)) }
func (p *PrefixStore) Has(key []byte) (bool, error)   { return p.parent.Has(p.key(key)) }
func (p *PrefixStore) Set(key, value []byte) error    { return p.parent.Set(p.key(key), value) }
func (p *PrefixStore) Delete(key []byte) error        { return p.parent.Delete(p.key(key)) }

func (p *PrefixStore) Iterate(prefix []byte, fn func(key, value []byte) bool) error {
	return p.parent.Iterate(p.key(prefix), func(key, value []byte) bool {
		return fn(key[len(p.prefix):], value)
	})
}
