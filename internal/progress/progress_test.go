package progress

import (
	"bytes"
	"testing"
	"time"

	"github.com/gitcohort/gitcohort-go/internal/gitlog"
	"github.com/stretchr/testify/assert"
)

func testLogger(buf *bytes.Buffer, isTerminal bool) *StatusLogger {
	clock := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	return &StatusLogger{
		w:          buf,
		isTerminal: isTerminal,
		now:        func() time.Time { return clock },
	}
}

func commitAt(at time.Time) *gitlog.Commit {
	return &gitlog.Commit{ID: "abc", AuthorTime: at}
}

func TestNonTerminalPrintsOnlySummary(t *testing.T) {
	var buf bytes.Buffer
	sl := testLogger(&buf, false)

	sl.BeginRepo("repo-a")
	sl.LogCommit(commitAt(time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC)))
	sl.LogCommit(commitAt(time.Date(2020, time.April, 1, 0, 0, 0, 0, time.UTC)))
	sl.EndRepo()

	assert.Equal(t, "repo-a: 2020-04 (2 commits)\n", buf.String())
}

func TestTerminalRewritesStatusLine(t *testing.T) {
	var buf bytes.Buffer
	sl := testLogger(&buf, true)

	sl.BeginRepo("repo-a")
	sl.LogCommit(commitAt(time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC)))
	sl.EndRepo()

	assert.Contains(t, buf.String(), "\rrepo-a: 2020-03 (1 commits)")
	assert.Contains(t, buf.String(), "\x1b[K")
}

func TestUnparseableTimesStillCount(t *testing.T) {
	var buf bytes.Buffer
	sl := testLogger(&buf, false)

	sl.BeginRepo("repo-a")
	sl.LogCommit(commitAt(time.Time{}))
	sl.LogCommit(commitAt(time.Time{}))
	sl.EndRepo()

	assert.Equal(t, "repo-a: 2 commits\n", buf.String())
}
