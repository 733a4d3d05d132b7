package chain

import (
	"bytes"
	"fmt"

	"github.com/tidwall/btree"
)

type cacheEntry struct {
	value   []byte
	deleted bool
}

// CacheKV buffers writes on top of a parent store. Reads see the buffered
// writes first. Write commits the buffer to the parent; dropping the
// CacheKV discards it.
//
// CacheKV is not safe for concurrent use. The runtime only touches a
// branch from the goroutine executing the transaction.
type CacheKV struct {
	parent KVStore
	writes *btree.Map[string, cacheEntry]
}

// NewCacheKV branches parent.
func NewCacheKV(parent KVStore) *CacheKV {
	return &CacheKV{
		parent: parent,
		writes: btree.NewMap[string, cacheEntry](32),
	}
}

func (c *CacheKV) Get(key []byte) ([]byte, error) {
	if e, ok := c.writes.Get(string(key)); ok {
		if e.deleted {
			return nil, nil
		}
		return bytes.Clone(e.value), nil
	}
	return c.parent.Get(key)
}

func (c *CacheKV) Has(key []byte) (bool, error) {
	if e, ok := c.writes.Get(string(key)); ok {
		return !e.deleted, nil
	}
	return c.parent.Has(key)
}

func (c *CacheKV) Set(key, value []byte) error {
	if len(value) == 0 {
		return fmt.Errorf("%w: empty value for key %q", ErrInvalidMessage, key)
	}
	c.writes.Set(string(key), cacheEntry{value: bytes.Clone(value)})
	return nil
}

func (c *CacheKV) Delete(key []byte) error {
	c.writes.Set(string(key), cacheEntry{deleted: true})
	return nil
}

// Iterate merges the parent's keys with the buffered writes.
func (c *CacheKV) Iterate(prefix []byte, fn func(key, value []byte) bool) error {
	merged := btree.NewMap[string, []byte](32)
	err := c.parent.Iterate(prefix, func(key, value []byte) bool {
		merged.Set(string(key), value)
		return true
	})
	if err != nil {
		return err
	}
	ascendPrefix(c.writes, string(prefix), func(k string, e cacheEntry) bool {
		if e.deleted {
			merged.Delete(k)
		} else {
			merged.Set(k, e.value)
		}
		return true
	})
	ascendPrefix(merged, string(prefix), func(k string, v []byte) bool {
		return fn([]byte(k), bytes.Clone(v))
	})
	return nil
}

// Write commits the buffered writes to the parent in key order and resets
// the buffer.
func (c *CacheKV) Write() error {
	var err error
	c.writes.Scan(func(k string, e cacheEntry) bool {
		if e.deleted {
			err = c.parent.Delete([]byte(k))
		} else {
			err = c.parent.Set([]byte(k), e.value)
		}
		return err == nil
	})
	if err != nil {
		return fmt.Errorf("commit cached writes: %w", err)
	}
	c.writes = btree.NewMap[string, cacheEntry](32)
	return nil
}

// Dirty reports whether there are uncommitted writes.
func (c *CacheKV) Dirty() bool {
	return c.writes.Len() > 0
}
