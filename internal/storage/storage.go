/*
Package storage implements the persistent store for review records.

All entities live in one SQLite file opened through modernc.org/sqlite
(a pure Go, CGo-free implementation). Foreign keys are enforced by the
database and parents are checked explicitly before children are created,
so callers get ErrNotFound instead of a constraint failure.
*/
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for malformed input or duplicate records.
	ErrValidation = errors.New("validation error")
)

// SQLiteStorage is the SQLite-backed store.
type SQLiteStorage struct {
	db       *sql.DB
	dbPath   string
	logger   *zap.Logger
	mu       sync.Mutex
	initOnce sync.Once
}

// NewStorage creates a store for the database file at dbPath. Call Init
// before use.
func NewStorage(dbPath string, logger *zap.Logger) *SQLiteStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLiteStorage{
		dbPath: dbPath,
		logger: logger.Named("storage"),
	}
}

// Open creates and initializes a store in one step.
func Open(dbPath string, logger *zap.Logger) (*SQLiteStorage, error) {
	s := NewStorage(dbPath, logger)
	if err := s.Init(); err != nil {
		return nil, err
	}
	return s, nil
}

// Init opens the database and runs migrations.
func (s *SQLiteStorage) Init() error {
	var initErr error
	s.initOnce.Do(func() {
		if err := os.MkdirAll(filepath.Dir(s.dbPath), 0755); err != nil {
			initErr = fmt.Errorf("failed to create db directory: %w", err)
			return
		}

		dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", s.dbPath)
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			initErr = fmt.Errorf("failed to open database: %w", err)
			return
		}
		// One connection keeps the foreign_keys pragma in effect for every statement.
		db.SetMaxOpenConns(1)

		if err := db.Ping(); err != nil {
			db.Close()
			initErr = fmt.Errorf("failed to ping database: %w", err)
			return
		}
		s.db = db

		if err := s.runMigrations(); err != nil {
			initErr = fmt.Errorf("failed to run migrations: %w", err)
			return
		}
		s.logger.Debug("database ready", zap.String("path", s.dbPath))
	})
	if initErr == nil && s.db == nil {
		initErr = errors.New("storage initialization previously failed")
	}
	return initErr
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	s.db = nil
	return nil
}

// withTx runs fn in a transaction, rolling back on error.
func (s *SQLiteStorage) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Warn("rollback failed", zap.Error(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type queryer interface {
	QueryRow(query string, args ...any) *sql.Row
}

// requireRow returns ErrNotFound unless table has a row with the given id.
func requireRow(q queryer, table, label string, id int64) error {
	var exists int
	err := q.QueryRow("SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", label, id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to look up %s %d: %w", label, id, err)
	}
	return nil
}

// deleteRow deletes by id and maps "no rows affected" to ErrNotFound.
func (s *SQLiteStorage) deleteRow(table, label string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete %s %d: %w", label, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s %d: %w", label, id, ErrNotFound)
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullID(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func idPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
