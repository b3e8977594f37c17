package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gitcohort/gitcohort-go/internal/gitlog"
	"github.com/gitcohort/gitcohort-go/internal/progress"
	"github.com/gitcohort/gitcohort-go/internal/store"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

// insertBatchSize bounds memory per insert transaction.
const insertBatchSize = 512

var ingestCmd = &cobra.Command{
	Use:   "ingest <repo-path>...",
	Short: "Read commit history from git repositories into the database",
	Long: `Read commit history from one or more local git clones into the commit
database. Repeated runs resume from each repository's newest stored commit,
so keeping a database current is cheap.

Repositories cloned with a promisor remote (partial clones) are ingested
without --stat change details, since gathering those would fetch every
remote blob. Author and commit counts still work for such clones.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Int("jobs", 4, "repositories to read concurrently")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	jobs, _ := cmd.Flags().GetInt("jobs")
	if jobs < 1 {
		jobs = 1
	}
	// In-place progress lines from concurrent readers would collide on a
	// terminal; fall back to one repository at a time there.
	if term.IsTerminal(int(os.Stderr.Fd())) && len(args) > 1 {
		jobs = 1
	}

	batches := make(chan []*gitlog.Commit, jobs)

	// Single writer; sqlite allows one writing transaction at a time.
	writerErr := make(chan error, 1)
	go func() {
		for batch := range batches {
			if err := s.InsertCommits(ctx, batch); err != nil {
				writerErr <- fmt.Errorf("store commits: %w", err)
				for range batches {
					// Drain so readers do not block.
				}
				return
			}
		}
		writerErr <- nil
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for _, path := range args {
		path := path
		g.Go(func() error {
			return ingestRepo(gctx, s, path, batches)
		})
	}
	readErr := g.Wait()
	close(batches)
	if err := <-writerErr; err != nil {
		return err
	}
	return readErr
}

// ingestRepo streams one repository's commits into the writer channel,
// resuming after the newest commit already stored for it.
func ingestRepo(ctx context.Context, s *store.CommitStore, path string, batches chan<- []*gitlog.Commit) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	repoName := filepath.Base(abs)

	since, err := s.LastAuthorTime(ctx, repoName)
	if err != nil {
		return fmt.Errorf("resume point for %s: %w", repoName, err)
	}

	reader := gitlog.NewReader(abs, repoName)
	useStat := true
	if reader.HasPromisor(ctx) {
		logger.WithField("repo", repoName).Warn("origin has a promisor; change details omitted")
		useStat = false
	}

	sl := progress.NewStatusLogger()
	sl.BeginRepo(repoName)

	batch := make([]*gitlog.Commit, 0, insertBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		select {
		case batches <- batch:
		case <-ctx.Done():
			return ctx.Err()
		}
		batch = make([]*gitlog.Commit, 0, insertBatchSize)
		return nil
	}

	err = reader.Read(ctx, since, useStat, func(c *gitlog.Commit) error {
		sl.LogCommit(c)
		batch = append(batch, c)
		if len(batch) == insertBatchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("read %s: %w", repoName, err)
	}
	if err := flush(); err != nil {
		return err
	}

	sl.EndRepo()
	return nil
}
