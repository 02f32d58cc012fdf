//go:build mips64 || mips64le || ppc64 || s390x

package storage

import (
	"errors"
	"log/slog"
	"time"
)

var errSQLiteUnavailable = errors.New("SQLite storage not available")

// SQLiteStore implements Store using SQLite with WAL mode.
// This is a stub implementation for unsupported platforms.
type SQLiteStore struct{}

// NewSQLiteStore creates a new SQLite store at the given path.
// On unsupported platforms, this returns an error.
func NewSQLiteStore(path string, maxRows int, logger *slog.Logger) (*SQLiteStore, error) {
	return nil, errors.New("SQLite storage is not supported on this platform, use memory storage instead")
}

func (s *SQLiteStore) Insert(l *Load) error                  { return errSQLiteUnavailable }
func (s *SQLiteStore) Update(id string, upd LoadUpdate) error { return errSQLiteUnavailable }
func (s *SQLiteStore) GetByID(id string) (*Load, error)       { return nil, errSQLiteUnavailable }
func (s *SQLiteStore) List(opts ListOptions) ([]Load, error)  { return nil, errSQLiteUnavailable }

func (s *SQLiteStore) Overview(window time.Duration) (*Overview, error) {
	return nil, errSQLiteUnavailable
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return nil
}
