// Package progress reports per-repository ingestion status on stderr.
// Output is throttled and rewritten in place when stderr is a terminal;
// otherwise only the final per-repo summary line is printed.
package progress

import (
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/gitcohort/gitcohort-go/internal/gitlog"
	"github.com/gitcohort/gitcohort-go/internal/histogram"
)

const updateInterval = 500 * time.Millisecond

// StatusLogger tracks one repository at a time during ingestion.
type StatusLogger struct {
	w          io.Writer
	isTerminal bool
	now        func() time.Time

	repoName   string
	nCommits   int
	lastUpdate time.Time
	lastBin    histogram.YearMonth
	haveBin    bool
}

// NewStatusLogger writes to stderr, with in-place updates only when
// stderr is a TTY.
func NewStatusLogger() *StatusLogger {
	return &StatusLogger{
		w:          os.Stderr,
		isTerminal: term.IsTerminal(int(os.Stderr.Fd())),
		now:        time.Now,
	}
}

// BeginRepo resets counters and announces the repository.
func (sl *StatusLogger) BeginRepo(repoName string) {
	sl.repoName = repoName
	sl.nCommits = 0
	sl.lastUpdate = time.Time{}
	sl.haveBin = false

	if sl.isTerminal {
		fmt.Fprintf(sl.w, "%s: \x1b[K", repoName)
	}
}

// LogCommit counts one commit and refreshes the status line when the
// month changes or enough time has passed.
func (sl *StatusLogger) LogCommit(c *gitlog.Commit) {
	sl.nCommits++

	if c.AuthorTime.IsZero() {
		return
	}
	bin := histogram.YearMonth{
		Year:  c.AuthorTime.UTC().Year(),
		Month: int(c.AuthorTime.UTC().Month()) - 1,
	}
	now := sl.now()

	if !sl.haveBin || bin != sl.lastBin || now.Sub(sl.lastUpdate) > updateInterval {
		if sl.isTerminal {
			fmt.Fprintf(sl.w, "\r%s: %d-%02d (%d commits)\x1b[K",
				sl.repoName, bin.Year, bin.Month+1, sl.nCommits)
		}
		sl.lastUpdate = now
		sl.lastBin = bin
		sl.haveBin = true
	}
}

// EndRepo finishes the repository's status line with a summary.
func (sl *StatusLogger) EndRepo() {
	prefix, suffix := "", ""
	if sl.isTerminal {
		prefix, suffix = "\r", "\x1b[K"
	}
	if sl.haveBin {
		fmt.Fprintf(sl.w, "%s%s: %d-%02d (%d commits)%s\n",
			prefix, sl.repoName, sl.lastBin.Year, sl.lastBin.Month+1, sl.nCommits, suffix)
	} else {
		fmt.Fprintf(sl.w, "%s%s: %d commits%s\n", prefix, sl.repoName, sl.nCommits, suffix)
	}
}
