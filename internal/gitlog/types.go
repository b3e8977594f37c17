package gitlog

import "time"

// Commit is one raw contribution event as parsed from git log. AuthorTime
// and CommitterTime are zero when the underlying date could not be
// parsed; such commits still count toward ingestion totals but are
// pruned from cohort analysis later.
type Commit struct {
	ID               string
	RepoName         string
	AuthorName       string
	AuthorEmail      string
	AuthorTime       time.Time
	CommitterName    string
	CommitterEmail   string
	CommitterTime    time.Time
	Insertions       int
	Deletions        int
	ChangesPerSuffix map[string]int
}
