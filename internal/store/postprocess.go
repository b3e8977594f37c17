package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gitcohort/gitcohort-go/internal/meta"
)

// Postprocess prepares stored commits for aggregation: commits with
// unlikely timestamps are dropped (they would confuse range detection),
// domain visibility is reset, and the project metadata's domain rules
// are applied. Safe to repeat; each run starts from the raw state of
// author_domain only where rules rewrite it.
func (s *CommitStore) Postprocess(ctx context.Context, pm *meta.ProjectMeta) error {
	trim := s.db.Rebind(`
		DELETE FROM raw_commits
		WHERE author_year < 1980 OR author_year > ?
	`)
	if _, err := s.db.ExecContext(ctx, trim, time.Now().Year()); err != nil {
		return fmt.Errorf("trim wayward commits: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM raw_commit_suffixes
		WHERE commit_id NOT IN (SELECT id FROM raw_commits)
	`); err != nil {
		return fmt.Errorf("trim orphaned suffix rows: %w", err)
	}

	// Show all domains by default.
	if _, err := s.db.ExecContext(ctx, `UPDATE raw_commits SET show_domain = TRUE`); err != nil {
		return fmt.Errorf("reset domain visibility: %w", err)
	}

	if pm == nil {
		return nil
	}

	for _, rule := range pm.Domains {
		if len(rule.AggregateEmails) > 0 {
			clause, args := emailSelector(rule.AggregateEmails)
			query := s.db.Rebind(fmt.Sprintf(
				`UPDATE raw_commits SET author_domain = ? WHERE %s`, clause))
			if _, err := s.db.ExecContext(ctx, query, append([]any{rule.Name}, args...)...); err != nil {
				return fmt.Errorf("apply domain rule %q: %w", rule.Name, err)
			}
		}

		if rule.Show != nil {
			query := s.db.Rebind(`UPDATE raw_commits SET show_domain = ? WHERE author_domain = ?`)
			if _, err := s.db.ExecContext(ctx, query, *rule.Show, rule.Name); err != nil {
				return fmt.Errorf("apply visibility for domain %q: %w", rule.Name, err)
			}
		}
	}

	return nil
}

// emailSelector builds a WHERE clause matching any of the rule's email
// patterns within their optional time windows.
func emailSelector(patterns []meta.AggregatePattern) (string, []any) {
	var clauses []string
	var args []any

	for _, p := range patterns {
		conds := []string{`author_email LIKE ? ESCAPE '\'`}
		args = append(args, globToLike(p.Pattern))

		begin, end := p.Window()
		if begin != nil {
			conds = append(conds, "author_time >= ?")
			args = append(args, begin.Begin().Unix())
		}
		if end != nil {
			conds = append(conds, "author_time < ?")
			args = append(args, end.End().Unix())
		}

		clauses = append(clauses, "("+strings.Join(conds, " AND ")+")")
	}

	return strings.Join(clauses, " OR "), args
}

// globToLike translates a shell-style glob (*, ?) into a LIKE pattern,
// escaping LIKE's own metacharacters. Used instead of SQLite's GLOB so
// the same rules work on Postgres.
func globToLike(glob string) string {
	var sb strings.Builder
	for _, r := range glob {
		switch r {
		case '*':
			sb.WriteByte('%')
		case '?':
			sb.WriteByte('_')
		case '%', '_', '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// RebuildAuthors recreates the derived per-author summary relation from
// the current commit set: first/last event time and year, active span,
// commit count and total change size. The table is request-scoped
// intermediate state and is rebuilt from scratch on every aggregation
// run; a missing table is not an error.
func (s *CommitStore) RebuildAuthors(ctx context.Context) error {
	// Ignore the error: the table may not exist yet.
	s.db.ExecContext(ctx, `DROP TABLE IF EXISTS authors`)

	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE authors AS
		SELECT author_name,
		       first_time,
		       first_year,
		       last_time,
		       last_year,
		       last_time - first_time AS active_time,
		       n_commits,
		       n_changes
		FROM (
			SELECT author_name,
			       MIN(author_time) AS first_time,
			       MIN(author_year) AS first_year,
			       MAX(author_time) AS last_time,
			       MAX(author_year) AS last_year,
			       COUNT(id) AS n_commits,
			       SUM(n_insertions) + SUM(n_deletions) AS n_changes
			FROM raw_commits
			GROUP BY author_name
		) summary
	`)
	if err != nil {
		return fmt.Errorf("create author summaries: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_authors_name ON authors (author_name);
		CREATE INDEX IF NOT EXISTS idx_authors_first_time ON authors (first_time);
		CREATE INDEX IF NOT EXISTS idx_authors_active_time ON authors (active_time)
	`)
	if err != nil {
		return fmt.Errorf("index author summaries: %w", err)
	}

	return nil
}
