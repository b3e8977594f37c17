package store

import (
	"context"
	"testing"
	"time"

	"github.com/gitcohort/gitcohort-go/internal/gitlog"
	"github.com/gitcohort/gitcohort-go/internal/meta"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *CommitStore {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	s, err := Open("sqlite3", ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testCommit(id, author, email string, at time.Time) *gitlog.Commit {
	return &gitlog.Commit{
		ID:               id,
		RepoName:         "repo-a",
		AuthorName:       author,
		AuthorEmail:      email,
		AuthorTime:       at,
		CommitterName:    author,
		CommitterEmail:   email,
		CommitterTime:    at,
		Insertions:       10,
		Deletions:        5,
		ChangesPerSuffix: map[string]int{"c": 12, "h": 3},
	}
}

func TestInsertCommitsIdempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	at := time.Date(2020, time.March, 15, 12, 0, 0, 0, time.UTC)
	commits := []*gitlog.Commit{testCommit("abc", "Alice", "alice@example.org", at)}

	require.NoError(t, s.InsertCommits(ctx, commits))
	require.NoError(t, s.InsertCommits(ctx, commits))

	n, err := s.CommitCount(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var nSuffixes int
	require.NoError(t, s.db.Get(&nSuffixes, `SELECT COUNT(*) FROM raw_commit_suffixes`))
	assert.Equal(t, 2, nSuffixes)
}

func TestInsertDerivesDomainAndBin(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	at := time.Date(2020, time.March, 15, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.InsertCommits(ctx, []*gitlog.Commit{
		testCommit("abc", "Alice", "alice@mail.example.org", at),
	}))

	var row struct {
		Domain string `db:"author_domain"`
		Year   int    `db:"author_year"`
		Month  int    `db:"author_month"`
	}
	require.NoError(t, s.db.Get(&row,
		`SELECT author_domain, author_year, author_month FROM raw_commits WHERE id = 'abc'`))
	assert.Equal(t, "example.org", row.Domain)
	assert.Equal(t, 2020, row.Year)
	assert.Equal(t, 2, row.Month, "stored month is 0-based")
}

func TestLastAuthorTime(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	last, err := s.LastAuthorTime(ctx, "repo-a")
	require.NoError(t, err)
	assert.True(t, last.IsZero(), "empty repo yields zero time")

	t1 := time.Date(2019, time.June, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2021, time.June, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.InsertCommits(ctx, []*gitlog.Commit{
		testCommit("a", "Alice", "alice@example.org", t1),
		testCommit("b", "Alice", "alice@example.org", t2),
	}))

	last, err = s.LastAuthorTime(ctx, "repo-a")
	require.NoError(t, err)
	assert.Equal(t, t2, last)

	last, err = s.LastAuthorTime(ctx, "other-repo")
	require.NoError(t, err)
	assert.True(t, last.IsZero())
}

func TestPostprocessTrimsWaywardCommits(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	good := testCommit("good", "Alice", "alice@example.org",
		time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC))
	// Zero timestamp stores as the epoch marker year.
	bad := testCommit("bad", "Bob", "bob@example.org", time.Time{})

	require.NoError(t, s.InsertCommits(ctx, []*gitlog.Commit{good, bad}))
	require.NoError(t, s.Postprocess(ctx, nil))

	n, err := s.CommitCount(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var nSuffixes int
	require.NoError(t, s.db.Get(&nSuffixes, `SELECT COUNT(*) FROM raw_commit_suffixes`))
	assert.Equal(t, 2, nSuffixes, "orphaned suffix rows are trimmed with their commit")
}

func TestPostprocessDomainRules(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	at := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.InsertCommits(ctx, []*gitlog.Commit{
		testCommit("a", "Alice", "alice@fedoraproject.org", at),
		testCommit("b", "Bob", "bob@gmail.com", at),
	}))

	show := false
	pm := &meta.ProjectMeta{
		Domains: []meta.DomainRule{
			{
				Name: "redhat.com",
				AggregateEmails: []meta.AggregatePattern{
					{Pattern: "*@fedoraproject.org"},
				},
			},
			{Name: "gmail.com", Show: &show},
		},
	}
	require.NoError(t, s.Postprocess(ctx, pm))

	var domain string
	require.NoError(t, s.db.Get(&domain,
		`SELECT author_domain FROM raw_commits WHERE id = 'a'`))
	assert.Equal(t, "redhat.com", domain)

	var shown bool
	require.NoError(t, s.db.Get(&shown,
		`SELECT show_domain FROM raw_commits WHERE id = 'b'`))
	assert.False(t, shown)
}

func TestPostprocessDomainRuleTimeWindow(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	inside := testCommit("in", "Alice", "alice@corp.example",
		time.Date(2015, time.June, 1, 0, 0, 0, 0, time.UTC))
	outside := testCommit("out", "Alice", "alice@corp.example",
		time.Date(2019, time.June, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, s.InsertCommits(ctx, []*gitlog.Commit{inside, outside}))

	begin := 2014
	end := 2016
	pm := &meta.ProjectMeta{
		Domains: []meta.DomainRule{{
			Name: "acme.com",
			AggregateEmails: []meta.AggregatePattern{{
				Pattern: "*@corp.example",
				Begin:   yearSpec(begin),
				End:     yearSpec(end),
			}},
		}},
	}
	require.NoError(t, s.Postprocess(ctx, pm))

	var domains []string
	require.NoError(t, s.db.Select(&domains,
		`SELECT author_domain FROM raw_commits ORDER BY id`))
	assert.Equal(t, []string{"acme.com", "corp.example"}, domains)
}

func TestGlobToLike(t *testing.T) {
	tests := []struct {
		glob string
		want string
	}{
		{"*@example.org", "%@example.org"},
		{"user?@example.org", "user_@example.org"},
		{"50%_done", `50\%\_done`},
	}

	for _, tt := range tests {
		t.Run(tt.glob, func(t *testing.T) {
			assert.Equal(t, tt.want, globToLike(tt.glob))
		})
	}
}

func TestRebuildAuthors(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	t1 := time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2020, time.June, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.InsertCommits(ctx, []*gitlog.Commit{
		testCommit("a", "Alice", "alice@example.org", t1),
		testCommit("b", "Alice", "alice@example.org", t2),
		testCommit("c", "Bob", "bob@example.org", t2),
	}))

	// Rebuild twice: recreation must tolerate both absence and presence.
	require.NoError(t, s.RebuildAuthors(ctx))
	require.NoError(t, s.RebuildAuthors(ctx))

	var alice struct {
		FirstYear  int   `db:"first_year"`
		LastYear   int   `db:"last_year"`
		ActiveTime int64 `db:"active_time"`
		NCommits   int   `db:"n_commits"`
		NChanges   int   `db:"n_changes"`
	}
	require.NoError(t, s.db.Get(&alice, `
		SELECT first_year, last_year, active_time, n_commits, n_changes
		FROM authors WHERE author_name = 'Alice'`))

	assert.Equal(t, 2019, alice.FirstYear)
	assert.Equal(t, 2020, alice.LastYear)
	assert.Equal(t, t2.Unix()-t1.Unix(), alice.ActiveTime)
	assert.Equal(t, 2, alice.NCommits)
	assert.Equal(t, 30, alice.NChanges)

	var nAuthors int
	require.NoError(t, s.db.Get(&nAuthors, `SELECT COUNT(*) FROM authors`))
	assert.Equal(t, 2, nAuthors)
}

func yearSpec(year int) *meta.BinSpec {
	return &meta.BinSpec{Year: year}
}
