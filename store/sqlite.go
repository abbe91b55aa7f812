package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"github.com/spetersoncode/concierge"
)

// SQLiteAdapter is a Repository backed by a single SQLite table.
type SQLiteAdapter struct {
	db *sql.DB
}

var _ concierge.Repository = (*SQLiteAdapter)(nil)

// OpenSQLite opens the database at dsn with the pure-Go SQLite driver and
// prepares the schema. Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteAdapter, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, concierge.Wrap(concierge.ErrStorage, "open sqlite", err)
	}
	if dsn == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	s, err := NewSQLiteAdapter(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteAdapter initializes the schema in db and returns an adapter.
// The caller owns db.
func NewSQLiteAdapter(ctx context.Context, db *sql.DB) (*SQLiteAdapter, error) {
	s := &SQLiteAdapter{db: db}
	if err := s.initSchema(ctx); err != nil {
		return nil, concierge.Wrap(concierge.ErrStorage, "init sqlite schema", err)
	}
	return s, nil
}

func (s *SQLiteAdapter) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			doc_key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
	)
	return err
}

// Get retrieves the value stored under key.
func (s *SQLiteAdapter) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM documents WHERE doc_key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, concierge.Wrap(concierge.ErrStorage, "sqlite get "+key, err)
	}
	return value, true, nil
}

// Put inserts or replaces the value under key.
func (s *SQLiteAdapter) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (doc_key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(doc_key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixNano(),
	)
	if err != nil {
		return concierge.Wrap(concierge.ErrStorage, "sqlite put "+key, err)
	}
	return nil
}

// Delete removes a key. No error if key doesn't exist.
func (s *SQLiteAdapter) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE doc_key = ?`, key); err != nil {
		return concierge.Wrap(concierge.ErrStorage, "sqlite delete "+key, err)
	}
	return nil
}

// List returns the sorted keys starting with prefix.
func (s *SQLiteAdapter) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_key FROM documents WHERE ? = '' OR instr(doc_key, ?) = 1 ORDER BY doc_key`,
		prefix, prefix,
	)
	if err != nil {
		return nil, concierge.Wrap(concierge.ErrStorage, "sqlite list "+prefix, err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, concierge.Wrap(concierge.ErrStorage, "sqlite scan key", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, concierge.Wrap(concierge.ErrStorage, "sqlite list "+prefix, err)
	}
	return keys, nil
}

// Close closes the underlying database.
func (s *SQLiteAdapter) Close() error {
	return s.db.Close()
}
