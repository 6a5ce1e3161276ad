package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lazypower/keepsake/internal/memory"
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection to the keepsake SQLite database.
type DB struct {
	*sql.DB
	Path string
}

// DefaultDBPath returns the default database path: ~/.keepsake/memory.db
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".keepsake", "memory.db"), nil
}

// Open opens (or creates) the SQLite database at the given path,
// configures pragmas, and runs migrations. Failures wrap
// memory.ErrStoreUnavailable so callers can distinguish "store broken"
// from operation-level errors.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create db dir: %w", memory.ErrStoreUnavailable, err)
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %w", memory.ErrStoreUnavailable, err)
	}

	db := &DB{DB: sqlDB, Path: path}
	if err := db.configurePragmas(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("%w: %w", memory.ErrStoreUnavailable, err)
	}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("%w: migrate: %w", memory.ErrStoreUnavailable, err)
	}
	return db, nil
}

// OpenMemory opens an in-memory SQLite database for testing.
func OpenMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}

	db := &DB{DB: sqlDB, Path: ":memory:"}
	if err := db.configurePragmas(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// OpenReadOnly opens an existing database without creating files or
// applying migrations. Used by migrate to read a source store without
// ever writing to it.
func OpenReadOnly(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", memory.ErrSourceNotFound, path)
	}

	sqlDB, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %w", memory.ErrStoreUnavailable, err)
	}

	db := &DB{DB: sqlDB, Path: path}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("%w: %w", memory.ErrStoreUnavailable, err)
	}
	return db, nil
}

// FileSize returns the database file size in bytes, 0 for in-memory stores.
func (db *DB) FileSize() int64 {
	if db.Path == ":memory:" {
		return 0
	}
	info, err := os.Stat(db.Path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func (db *DB) configurePragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA mmap_size=268435456", // 256MB
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	return nil
}

// HasTable reports whether a table with the given name exists.
func (db *DB) HasTable(name string) (bool, error) {
	var found string
	err := db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return true, nil
}
