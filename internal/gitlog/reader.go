package gitlog

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// fieldSep separates the fields of the custom pretty format. Chosen to
// never occur in names, emails or RFC 2822 dates.
const fieldSep = "__sep__"

// Git prints %aD without zero-padded day-of-month, so time.RFC1123Z does
// not fit directly.
const rfc2822Layout = "Mon, 2 Jan 2006 15:04:05 -0700"

var (
	commitRe     = regexp.MustCompile(`^[0-9a-f]+__sep__`)
	insertionsRe = regexp.MustCompile(`([0-9]+) insertions?`)
	deletionsRe  = regexp.MustCompile(`([0-9]+) deletions?`)
	fileChangeRe = regexp.MustCompile(`^ +([^ ]+) +[|] +([0-9]+)`)
	suffixRe     = regexp.MustCompile(`.*[./](.+)$`)
)

// Reader streams commits out of one git repository by running git log.
type Reader struct {
	repoPath string
	repoName string
}

// NewReader creates a Reader for the repository at repoPath. repoName is
// attached to every emitted commit.
func NewReader(repoPath, repoName string) *Reader {
	return &Reader{repoPath: repoPath, repoName: repoName}
}

// HasPromisor reports whether the origin remote has a promisor
// configured. Promisor remotes keep most blobs remote, so gathering
// --stat change counts would fetch them all; callers should disable
// stats in that case.
func (r *Reader) HasPromisor(ctx context.Context) bool {
	cmd := exec.CommandContext(ctx, "git", "-C", r.repoPath, "config", "remote.origin.promisor")
	out, err := cmd.Output()
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(out)) == "true"
}

// Read runs git log across all branches and remotes, oldest first, and
// calls fn once per commit. Commits older than since are skipped, which
// lets repeated ingestion resume where it left off. With useStat false,
// insertion/deletion and per-suffix counts stay zero.
func (r *Reader) Read(ctx context.Context, since time.Time, useStat bool, fn func(*Commit) error) error {
	if since.IsZero() {
		// git rejects pre-epoch RFC 2822 dates.
		since = time.Unix(0, 0).UTC()
	}
	args := []string{
		"-C", r.repoPath,
		"log",
		"--branches",
		"--remotes",
		"--pretty=format:%H" + fieldSep + "%aD" + fieldSep + "%aN" + fieldSep + "%aE" +
			fieldSep + "%cD" + fieldSep + "%cN" + fieldSep + "%cE",
		"--reverse",
		"--since", since.Format(rfc2822Layout),
		"--date-order",
		"HEAD",
	}
	if useStat {
		args = append(args, "--stat")
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("pipe git log: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn git log: %w", err)
	}

	parseErr := parseLog(stdout, r.repoName, fn)

	if err := cmd.Wait(); err != nil && parseErr == nil {
		return fmt.Errorf("git log in %s: %w", r.repoPath, err)
	}
	return parseErr
}

// parseLog scans git log output: one header line per commit followed by
// optional --stat lines (per-file change counts and a summary with
// insertion/deletion totals).
func parseLog(src io.Reader, repoName string, fn func(*Commit) error) error {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var current *Commit
	flush := func() error {
		if current == nil {
			return nil
		}
		err := fn(current)
		current = nil
		return err
	}

	for scanner.Scan() {
		line := scanner.Text()

		if commitRe.MatchString(line) {
			if err := flush(); err != nil {
				return err
			}
			current = parseHeader(line, repoName)
			continue
		}
		if current == nil {
			continue
		}

		// Insertions and deletions can appear on the same summary line;
		// either can be absent.
		if m := insertionsRe.FindStringSubmatch(line); m != nil {
			n, _ := strconv.Atoi(m[1])
			current.Insertions += n
		}
		if m := deletionsRe.FindStringSubmatch(line); m != nil {
			n, _ := strconv.Atoi(m[1])
			current.Deletions += n
		}
		if m := fileChangeRe.FindStringSubmatch(line); m != nil {
			n, _ := strconv.Atoi(m[2])
			addPathChanges(current, m[1], n)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan git log output: %w", err)
	}

	return flush()
}

func parseHeader(line, repoName string) *Commit {
	parts := strings.SplitN(line, fieldSep, 7)
	if len(parts) != 7 {
		return nil
	}

	c := &Commit{
		ID:               parts[0],
		RepoName:         repoName,
		AuthorName:       parts[2],
		AuthorEmail:      strings.ToLower(parts[3]),
		CommitterName:    parts[5],
		CommitterEmail:   strings.ToLower(parts[6]),
		ChangesPerSuffix: make(map[string]int),
	}

	// Unparseable dates leave the zero value; those commits are trimmed
	// from cohort analysis during postprocessing.
	if t, err := time.Parse(rfc2822Layout, parts[1]); err == nil {
		c.AuthorTime = t
	}
	if t, err := time.Parse(rfc2822Layout, parts[4]); err == nil {
		c.CommitterTime = t
	}

	return c
}

// addPathChanges accumulates per-suffix change counts. The suffix is the
// last path segment after '.' or '/'; paths without either count under
// themselves.
func addPathChanges(c *Commit, path string, nChanges int) {
	suffix := path
	if m := suffixRe.FindStringSubmatch(path); m != nil {
		suffix = m[1]
	}
	c.ChangesPerSuffix[suffix] += nChanges
}
