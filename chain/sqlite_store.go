package chain

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Schema version tracking:
// 0 - empty database
// 1 - kv table
const sqliteSchemaVersion = 1

// SQLiteDB is a KVStore kept in a single SQLite table.
type SQLiteDB struct {
	db *sql.DB
}

// OpenSQLiteDB creates or opens the database at path and applies pragmas
// and migrations. Use ":memory:" for a throwaway database.
func OpenSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := migrateSQLite(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLiteDB{db: db}, nil
}

func migrateSQLite(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version >= sqliteSchemaVersion {
		return nil
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key   BLOB PRIMARY KEY,
		value BLOB NOT NULL
	) WITHOUT ROWID`); err != nil {
		return fmt.Errorf("create kv table: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", sqliteSchemaVersion)); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDB) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteDB) Get(key []byte) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteDB) Has(key []byte) (bool, error) {
	v, err := s.Get(key)
	return v != nil, err
}

func (s *SQLiteDB) Set(key, value []byte) error {
	_, err := s.db.Exec(
		"INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteDB) Delete(key []byte) error {
	if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// Iterate reads matching rows into memory before calling fn, so fn may
// write to the store.
func (s *SQLiteDB) Iterate(prefix []byte, fn func(key, value []byte) bool) error {
	var (
		rows *sql.Rows
		err  error
	)
	if len(prefix) == 0 {
		rows, err = s.db.Query("SELECT key, value FROM kv ORDER BY key")
	} else {
		rows, err = s.db.Query("SELECT key, value FROM kv WHERE key >= ? ORDER BY key", prefix)
	}
	if err != nil {
		return fmt.Errorf("iterate %q: %w", prefix, err)
	}
	type row struct{ key, value []byte }
	var matched []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.key, &r.value); err != nil {
			rows.Close()
			return fmt.Errorf("scan row: %w", err)
		}
		if !bytes.HasPrefix(r.key, prefix) {
			break
		}
		matched = append(matched, r)
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for _, r := range matched {
		if !fn(r.key, r.value) {
			break
		}
	}
	return nil
}
