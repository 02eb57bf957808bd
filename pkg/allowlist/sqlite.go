package allowlist

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// SQLiteStore keeps the allow-list in a sqlite table. The relay only reads it;
// the allowlist CLI writes it.
type SQLiteStore struct {
	db *sql.DB
}

var _ Checker = &SQLiteStore{}

// StoredBusiness is a Business plus its creation time.
type StoredBusiness struct {
	Business
	CreatedAtMs int64
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, errors.New("sqlite allow-list store: empty dsn")
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// SQLiteDSNForFile builds a DSN with WAL and a busy timeout for a database file.
func SQLiteDSNForFile(path string) (string, error) {
	if path == "" {
		return "", errors.New("sqlite allow-list store: empty path")
	}
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path), nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	if s == nil || s.db == nil {
		return errors.New("sqlite allow-list store: db is nil")
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS businesses (
		  id TEXT PRIMARY KEY,
		  name TEXT NOT NULL DEFAULT '',
		  created_at_ms INTEGER NOT NULL
		);`,
	}
	for _, st := range stmts {
		if _, err := s.db.Exec(st); err != nil {
			return errors.Wrap(err, "sqlite allow-list store: migrate")
		}
	}
	return nil
}

func (s *SQLiteStore) IsValidBusiness(ctx context.Context, businessID string) (bool, error) {
	if s == nil || s.db == nil {
		return false, errors.New("sqlite allow-list store: db is nil")
	}
	if businessID == "" {
		return false, nil
	}
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM businesses WHERE id = ?`, businessID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "sqlite allow-list store: lookup")
	}
	return true, nil
}

// Add inserts or renames a business.
func (s *SQLiteStore) Add(ctx context.Context, b Business) error {
	if s == nil || s.db == nil {
		return errors.New("sqlite allow-list store: db is nil")
	}
	b.ID = strings.TrimSpace(b.ID)
	if b.ID == "" {
		return errors.New("sqlite allow-list store: business id is empty")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO businesses (id, name, created_at_ms) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, b.ID, b.Name, time.Now().UnixMilli())
	if err != nil {
		return errors.Wrap(err, "sqlite allow-list store: add")
	}
	return nil
}

// Remove deletes a business and reports whether it existed.
func (s *SQLiteStore) Remove(ctx context.Context, businessID string) (bool, error) {
	if s == nil || s.db == nil {
		return false, errors.New("sqlite allow-list store: db is nil")
	}
	businessID = strings.TrimSpace(businessID)
	if businessID == "" {
		return false, nil
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM businesses WHERE id = ?`, businessID)
	if err != nil {
		return false, errors.Wrap(err, "sqlite allow-list store: remove")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "sqlite allow-list store: rows affected")
	}
	return n > 0, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]StoredBusiness, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("sqlite allow-list store: db is nil")
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at_ms FROM businesses ORDER BY id ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite allow-list store: list")
	}
	defer func() { _ = rows.Close() }()

	var out []StoredBusiness
	for rows.Next() {
		var b StoredBusiness
		if err := rows.Scan(&b.ID, &b.Name, &b.CreatedAtMs); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "sqlite allow-list store: list rows")
	}
	return out, nil
}
