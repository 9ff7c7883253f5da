package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// journalMigration upgrades the journal tables from version-1 to version.
type journalMigration struct {
	version int
	desc    string
	stmt    string
}

// journalMigrations run in order on top of schema.sql. Each one commits
// together with the user_version it brings the journal to.
var journalMigrations = []journalMigration{
	{
		version: 1,
		desc:    "index decisions by outcome for trace --outcome",
		stmt:    `CREATE INDEX IF NOT EXISTS idx_decisions_outcome ON decisions(outcome, pass_id)`,
	},
	{
		version: 2,
		desc:    "record how polymorphic sites were split",
		stmt:    `ALTER TABLE decisions ADD COLUMN dispatch TEXT NOT NULL DEFAULT ''`,
	},
}

// JournalVersion is the journal schema version a freshly opened store is at.
var JournalVersion = journalMigrations[len(journalMigrations)-1].version

// connParams are applied by the driver to every connection it opens.
var connParams = url.Values{
	"_journal_mode": {"WAL"},
	"_synchronous":  {"NORMAL"},
	"_busy_timeout": {"5000"},
	"_foreign_keys": {"1"},
}

// Store is a SQLite-backed decision journal.
type Store struct {
	db *sql.DB
}

// Open opens or creates the journal at path and brings it to
// JournalVersion. ":memory:" opens a private in-memory journal.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", journalDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// One connection: SQLite has a single writer, and an in-memory journal
	// lives and dies with its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.upgrade(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func journalDSN(path string) string {
	return "file:" + path + "?" + connParams.Encode()
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Query executes a query and returns the resulting rows.
// Callers are responsible for closing the returned rows.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

// upgrade creates the base tables and applies every migration above the
// journal's current version.
func (s *Store) upgrade(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create journal tables: %w", err)
	}
	version, err := s.version(ctx)
	if err != nil {
		return err
	}
	if version > JournalVersion {
		return fmt.Errorf("journal version %d is newer than supported version %d", version, JournalVersion)
	}
	for _, m := range journalMigrations {
		if m.version <= version {
			continue
		}
		if err := s.migrate(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) migrate(ctx context.Context, m journalMigration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrate to v%d: %w", m.version, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.stmt); err != nil {
		return fmt.Errorf("migrate to v%d (%s): %w", m.version, m.desc, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
		return fmt.Errorf("migrate to v%d: set user_version: %w", m.version, err)
	}
	return tx.Commit()
}

// version reads the journal schema version from the database header.
func (s *Store) version(ctx context.Context) (int, error) {
	var v int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read journal version: %w", err)
	}
	return v, nil
}
