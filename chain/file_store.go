package chain

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileDB is a MemDB that persists its contents as a JSON snapshot on disk.
// The snapshot is read when the store is opened and rewritten on Flush,
// which the runtime calls after every committed transaction.
type FileDB struct {
	*MemDB
	path string
	mu   sync.Mutex // serializes snapshot writes
}

// snapshot maps base64 keys to base64 values so binary keys round-trip.
type snapshot struct {
	Entries map[string]string `json:"entries"`
}

// OpenFileDB opens (or creates) the snapshot at path.
func OpenFileDB(path string) (*FileDB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	f := &FileDB{MemDB: NewMemDB(), path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	for k, v := range snap.Entries {
		key, err := base64.StdEncoding.DecodeString(k)
		if err != nil {
			return nil, fmt.Errorf("corrupt snapshot key %q: %w", k, err)
		}
		value, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("corrupt snapshot value for %q: %w", key, err)
		}
		if err := f.MemDB.Set(key, value); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Flush rewrites the snapshot. The new file is written beside the old one
// and renamed into place.
func (f *FileDB) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	snap := snapshot{Entries: make(map[string]string, f.Len())}
	err := f.Iterate(nil, func(key, value []byte) bool {
		snap.Entries[base64.StdEncoding.EncodeToString(key)] = base64.StdEncoding.EncodeToString(value)
		return true
	})
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// Path returns the snapshot location.
func (f *FileDB) Path() string {
	return f.path
}
