package chain

import (
	"encoding/json"
	"fmt"
)

// Item is a single JSON encoded value stored under a fixed key.
type Item[T any] struct {
	key []byte
}

func NewItem[T any](key string) Item[T] {
	return Item[T]{key: []byte(key)}
}

// Key returns the storage key.
func (i Item[T]) Key() string {
	return string(i.key)
}

func (i Item[T]) Save(s KVStore, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", i.key, err)
	}
	return s.Set(i.key, data)
}

// Load returns the stored value or ErrNotFound.
func (i Item[T]) Load(s KVStore) (T, error) {
	v, ok, err := i.MayLoad(s)
	if err != nil {
		return v, err
	}
	if !ok {
		return v, fmt.Errorf("%s: %w", i.key, ErrNotFound)
	}
	return v, nil
}

// MayLoad returns the stored value and whether it was present.
func (i Item[T]) MayLoad(s KVStore) (T, bool, error) {
	var v T
	data, err := s.Get(i.key)
	if err != nil || data == nil {
		return v, false, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false, fmt.Errorf("failed to unmarshal %s: %w", i.key, err)
	}
	return v, true, nil
}

func (i Item[T]) Exists(s KVStore) (bool, error) {
	return s.Has(i.key)
}

func (i Item[T]) Remove(s KVStore) error {
	return s.Delete(i.key)
}

// Map is a namespace of JSON encoded values keyed by string.
type Map[T any] struct {
	namespace string
}

func NewMap[T any](namespace string) Map[T] {
	return Map[T]{namespace: namespace}
}

func (m Map[T]) prefix() []byte {
	return []byte(m.namespace + "/")
}

func (m Map[T]) key(k string) []byte {
	return []byte(m.namespace + "/" + k)
}

func (m Map[T]) Save(s KVStore, k string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s/%s: %w", m.namespace, k, err)
	}
	return s.Set(m.key(k), data)
}

// Load returns the value under k or ErrNotFound.
func (m Map[T]) Load(s KVStore, k string) (T, error) {
	v, ok, err := m.MayLoad(s, k)
	if err != nil {
		return v, err
	}
	if !ok {
		return v, fmt.Errorf("%s/%s: %w", m.namespace, k, ErrNotFound)
	}
	return v, nil
}

func (m Map[T]) MayLoad(s KVStore, k string) (T, bool, error) {
	var v T
	data, err := s.Get(m.key(k))
	if err != nil || data == nil {
		return v, false, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false, fmt.Errorf("failed to unmarshal %s/%s: %w", m.namespace, k, err)
	}
	return v, true, nil
}

func (m Map[T]) Has(s KVStore, k string) (bool, error) {
	return s.Has(m.key(k))
}

func (m Map[T]) Remove(s KVStore, k string) error {
	return s.Delete(m.key(k))
}

// Range visits entries whose key starts with keyPrefix, in key order,
// until fn returns false.
func (m Map[T]) Range(s KVStore, keyPrefix string, fn func(k string, v T) bool) error {
	var decodeErr error
	prefix := m.prefix()
	err := s.Iterate(append(prefix, keyPrefix...), func(key, value []byte) bool {
		var v T
		if err := json.Unmarshal(value, &v); err != nil {
			decodeErr = fmt.Errorf("failed to unmarshal %s: %w", key, err)
			return false
		}
		return fn(string(key[len(prefix):]), v)
	})
	if err != nil {
		return err
	}
	return decodeErr
}

// Keys lists every key in the namespace.
func (m Map[T]) Keys(s KVStore) ([]string, error) {
	var out []string
	err := m.Range(s, "", func(k string, _ T) bool {
		out = append(out, k)
		return true
	})
	return out, err
}
