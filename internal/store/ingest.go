package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gitcohort/gitcohort-go/internal/gitlog"
)

// epochYear is stored for commits with unparseable author timestamps;
// Postprocess trims those rows before any cohort analysis.
const epochYear = 1970

// InsertCommits stores a batch of raw commits and their per-suffix
// change counts in one transaction. Commits already present (same id)
// are left untouched, which makes re-ingestion idempotent.
func (s *CommitStore) InsertCommits(ctx context.Context, commits []*gitlog.Commit) error {
	if len(commits) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	commitQuery := tx.Rebind(`
		INSERT INTO raw_commits
		(id, repo_name, author_name, author_email, author_domain,
		 author_time, author_year, author_month,
		 committer_name, committer_email, committer_time,
		 n_insertions, n_deletions, show_domain)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, TRUE)
		ON CONFLICT (id) DO NOTHING
	`)
	suffixQuery := tx.Rebind(`
		INSERT INTO raw_commit_suffixes (commit_id, suffix, n_changes)
		VALUES (?, ?, ?)
		ON CONFLICT (commit_id, suffix) DO NOTHING
	`)

	for _, c := range commits {
		authorTime, authorYear, authorMonth := splitTime(c.AuthorTime)
		committerTime, _, _ := splitTime(c.CommitterTime)

		_, err := tx.ExecContext(ctx, commitQuery,
			c.ID, c.RepoName, c.AuthorName, c.AuthorEmail,
			gitlog.EmailToDomain(c.AuthorEmail),
			authorTime, authorYear, authorMonth,
			c.CommitterName, c.CommitterEmail, committerTime,
			c.Insertions, c.Deletions)
		if err != nil {
			return fmt.Errorf("insert commit %s: %w", c.ID, err)
		}

		for suffix, nChanges := range c.ChangesPerSuffix {
			if _, err := tx.ExecContext(ctx, suffixQuery, c.ID, suffix, nChanges); err != nil {
				return fmt.Errorf("insert suffix changes for %s: %w", c.ID, err)
			}
		}
	}

	return tx.Commit()
}

// splitTime breaks a timestamp into the stored unix/year/month triple.
// The month is 0-based. Zero timestamps map to the epoch marker.
func splitTime(t time.Time) (unix int64, year, month int) {
	if t.IsZero() {
		return 0, epochYear, 0
	}
	return t.Unix(), t.Year(), int(t.Month()) - 1
}

// LastAuthorTime returns the newest author timestamp stored for a
// repository, or the zero time when the repository has no commits yet.
// Ingestion uses this to resume where the previous run stopped.
func (s *CommitStore) LastAuthorTime(ctx context.Context, repoName string) (time.Time, error) {
	var unix int64
	query := s.db.Rebind(`
		SELECT author_time FROM raw_commits
		WHERE repo_name = ?
		ORDER BY author_time DESC
		LIMIT 1
	`)

	err := s.db.GetContext(ctx, &unix, query, repoName)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("query last author time: %w", err)
	}

	return time.Unix(unix, 0).UTC(), nil
}

// CommitCount returns the number of stored commits, optionally limited
// to one repository.
func (s *CommitStore) CommitCount(ctx context.Context, repoName string) (int, error) {
	var n int
	var err error
	if repoName != "" {
		err = s.db.GetContext(ctx, &n,
			s.db.Rebind(`SELECT COUNT(*) FROM raw_commits WHERE repo_name = ?`), repoName)
	} else {
		err = s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM raw_commits`)
	}
	if err != nil {
		return 0, fmt.Errorf("count commits: %w", err)
	}
	return n, nil
}
