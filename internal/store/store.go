package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned when a lookup matches no rows.
var ErrNotFound = errors.New("not found")

// CommitStore holds raw contribution events and the derived per-author
// summaries. It runs on SQLite for local use or Postgres when given a
// DSN; every query it issues is portable between the two.
type CommitStore struct {
	db     *sqlx.DB
	driver string
	logger *logrus.Logger
}

// Open connects to the commit store and ensures the schema exists.
// driver is "sqlite3" (dsn is a file path or ":memory:") or "postgres"
// (dsn is a connection string).
func Open(driver, dsn string, logger *logrus.Logger) (*CommitStore, error) {
	if driver == "sqlite3" && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", driver, err)
	}

	s := &CommitStore{db: db, driver: driver, logger: logger}

	if driver == "sqlite3" {
		// These speed SQLite up by a whole lot.
		for _, pragma := range []string{
			"PRAGMA temp_store = memory",
			"PRAGMA cache_size = 16384",
			"PRAGMA synchronous = normal",
			"PRAGMA journal_mode = WAL",
			"PRAGMA wal_autocheckpoint = 10000",
			"PRAGMA journal_size_limit = 10000000",
		} {
			db.Exec(pragma)
		}
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return s, nil
}

func (s *CommitStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS raw_commits (
		id TEXT PRIMARY KEY,
		repo_name TEXT NOT NULL,
		author_name TEXT,
		author_email TEXT,
		author_domain TEXT,
		author_time BIGINT,
		author_year INTEGER,
		author_month INTEGER,
		committer_name TEXT,
		committer_email TEXT,
		committer_time BIGINT,
		n_insertions INTEGER,
		n_deletions INTEGER,
		show_domain BOOLEAN
	);

	CREATE TABLE IF NOT EXISTS raw_commit_suffixes (
		commit_id TEXT NOT NULL,
		suffix TEXT NOT NULL,
		n_changes INTEGER NOT NULL,
		PRIMARY KEY (commit_id, suffix)
	);

	CREATE INDEX IF NOT EXISTS idx_commits_repo_name ON raw_commits (repo_name);
	CREATE INDEX IF NOT EXISTS idx_commits_author_name ON raw_commits (author_name);
	CREATE INDEX IF NOT EXISTS idx_commits_author_domain ON raw_commits (author_domain);
	CREATE INDEX IF NOT EXISTS idx_commits_author_time ON raw_commits (author_time);
	CREATE INDEX IF NOT EXISTS idx_commits_author_year ON raw_commits (author_year);
	CREATE INDEX IF NOT EXISTS idx_suffixes_commit ON raw_commit_suffixes (commit_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// DB exposes the underlying connection for the aggregation engine.
func (s *CommitStore) DB() *sqlx.DB {
	return s.db
}

// Close closes the database connection.
func (s *CommitStore) Close() error {
	return s.db.Close()
}
