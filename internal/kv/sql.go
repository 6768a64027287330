package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const schemaName = "agenda"

// SQL stores each key as one row of the kv_entries table. It serves both the
// sqlite3 and postgres drivers; only the placeholder style differs.
type SQL struct {
	db     *sql.DB
	driver string
}

// OpenSQL opens dsn with driver ("sqlite3" or "postgres") and migrates the schema.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQL, error) {
	switch driver {
	case "sqlite3", "postgres":
	default:
		return nil, fmt.Errorf("kv: unsupported sql driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == "sqlite3" {
		// One writer at a time; the store serializes mutations anyway.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	s := &SQL{db: db, driver: driver}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("kv: migrate: %w", err)
	}
	return s, nil
}

// bind rewrites ? placeholders to $n for postgres.
func (s *SQL) bind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQL) migrate(ctx context.Context) error {
	var version int
	err := s.db.QueryRowContext(ctx, s.bind(`SELECT version FROM db_version WHERE name = ?`), schemaName).Scan(&version)
	if err != nil {
		if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS db_version (
			name TEXT PRIMARY KEY,
			version INTEGER
		)`); err != nil {
			return fmt.Errorf("create db_version table: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, s.bind(`INSERT INTO db_version (name, version) VALUES (?, 0)`), schemaName); err != nil {
			return fmt.Errorf("initialize db_version table: %w", err)
		}
		version = 0
	}

	if version == 0 {
		if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS kv_entries (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`); err != nil {
			return fmt.Errorf("create kv_entries table: %w", err)
		}
		version = 1
		if _, err := s.db.ExecContext(ctx, s.bind(`UPDATE db_version SET version = ? WHERE name = ?`), version, schemaName); err != nil {
			return fmt.Errorf("update db_version table: %w", err)
		}
	}
	return nil
}

func (s *SQL) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.bind(`SELECT value FROM kv_entries WHERE key = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(value), true, nil
}

func (s *SQL) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, s.bind(`
		INSERT INTO kv_entries (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`), key, string(value))
	return err
}

func (s *SQL) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQL) Close() error { return s.db.Close() }
