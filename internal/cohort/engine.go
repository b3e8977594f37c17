package cohort

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gitcohort/gitcohort-go/internal/histogram"
	"github.com/gitcohort/gitcohort-go/internal/store"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultBriefThreshold is the active-span cutoff below which an
	// author counts as a brief contributor.
	DefaultBriefThreshold = 90 * 24 * time.Hour

	// DefaultTopN is how many categories keep their own cohort in
	// categorical histograms; the rest fold into Other.
	DefaultTopN = 15

	// OtherCohort is the overflow bucket for categories outside the top
	// N. Distinct from histogram.NoCohort, which carries the Brief
	// bucket; the two overflow meanings never share an id.
	OtherCohort = 0
)

// Options tune one aggregation run.
type Options struct {
	BriefThreshold time.Duration
	TopN           int
	FromYear       *int // inclusive display range start
	ToYear         *int // inclusive display range end
}

// Engine turns the stored event set into cohort histograms. It is
// stateless across invocations: every BuildHistogram call rebuilds the
// author summaries and runs the chosen strategy from scratch.
type Engine struct {
	store  *store.CommitStore
	db     *sqlx.DB
	logger *logrus.Logger
	opts   Options
}

// NewEngine creates an engine over a commit store.
func NewEngine(st *store.CommitStore, logger *logrus.Logger, opts Options) *Engine {
	if opts.BriefThreshold == 0 {
		opts.BriefThreshold = DefaultBriefThreshold
	}
	if opts.TopN == 0 {
		opts.TopN = DefaultTopN
	}
	return &Engine{store: st, db: st.DB(), logger: logger, opts: opts}
}

// BuildHistogram computes one histogram for the given cohort type, unit
// and interval. Returns an empty histogram (nil Bounds) when the event
// set is empty.
func (e *Engine) BuildHistogram(ctx context.Context, cohortType CohortType, unit UnitType, interval IntervalType) (*histogram.CohortHist, error) {
	e.logger.WithFields(logrus.Fields{
		"cohort":   cohortType.String(),
		"unit":     unit.String(),
		"interval": interval.String(),
	}).Debug("building histogram")

	if err := e.store.RebuildAuthors(ctx); err != nil {
		return nil, fmt.Errorf("author summary: %w", err)
	}

	if cohortType == FirstYear {
		return e.firstYearHist(ctx, unit, interval)
	}
	if unit == Authors {
		return e.fractionalHist(ctx, cohortType, interval)
	}
	return e.categoricalHist(ctx, cohortType, unit, interval)
}

// thresholdSeconds is the brief cutoff in the authors table's unit.
func (e *Engine) thresholdSeconds() int64 {
	return int64(e.opts.BriefThreshold / time.Second)
}

// newQuery starts a request over the given FROM clause with the
// configured date-range filters applied.
func (e *Engine) newQuery(interval IntervalType, from string) *binnedQuery {
	q := &binnedQuery{interval: interval, from: from}
	if e.opts.FromYear != nil {
		begin := histogram.YearMonth{Year: *e.opts.FromYear, Month: histogram.NoMonth}
		q.filter("r.author_time >= ?", begin.Begin().Unix())
	}
	if e.opts.ToYear != nil {
		end := histogram.YearMonth{Year: *e.opts.ToYear, Month: histogram.NoMonth}
		q.filter("r.author_time < ?", end.End().Unix())
	}
	return q
}

// commitMetric is the per-event aggregate for a unit, over raw commits.
func commitMetric(unit UnitType) string {
	switch unit {
	case Authors:
		return "COUNT(DISTINCT r.author_name)"
	case Changes:
		return "COALESCE(SUM(r.n_insertions + r.n_deletions), 0)"
	default:
		return "COUNT(*)"
	}
}

// forEachRow runs a request and invokes scan once per result row. The
// bin columns land in the YearMonth handed to scan; the remaining
// columns fill dest in order.
func (e *Engine) forEachRow(ctx context.Context, q *binnedQuery, scan func(ym histogram.YearMonth) error, dest ...any) error {
	rows, err := e.db.QueryContext(ctx, e.db.Rebind(q.SQL()), q.args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		ym := histogram.YearMonth{Month: histogram.NoMonth}
		targets := []any{&ym.Year}
		if q.interval == Month {
			targets = append(targets, &ym.Month)
		}
		targets = append(targets, dest...)
		if err := rows.Scan(targets...); err != nil {
			return err
		}
		if err := scan(ym); err != nil {
			return err
		}
	}
	return rows.Err()
}

// firstYearHist implements the tenure strategy: cohort id is the
// calendar year of the author's first commit, so later activity stays
// labeled by the debut year. Brief authors go to the sentinel instead.
func (e *Engine) firstYearHist(ctx context.Context, unit UnitType, interval IntervalType) (*histogram.CohortHist, error) {
	hist := histogram.New()

	q := e.newQuery(interval, baseFrom)
	q.selects = []string{"a.first_year", commitMetric(unit)}
	q.groupBy = []string{"a.first_year"}
	q.filter("a.active_time > ?", e.thresholdSeconds())

	var cohortYear int
	var value int64
	err := e.forEachRow(ctx, q, func(ym histogram.YearMonth) error {
		if err := hist.Set(ym, cohortYear, int(value)); err != nil {
			return err
		}
		hist.SetName(cohortYear, strconv.Itoa(cohortYear))
		return nil
	}, &cohortYear, &value)
	if err != nil {
		return nil, fmt.Errorf("bin accumulation (tenure cohorts): %w", err)
	}

	if err := e.briefPass(ctx, hist, unit, interval); err != nil {
		return nil, err
	}

	return hist, nil
}

// briefPass adds the Brief bucket: for authors at or below the tenure
// threshold, every event lands on the sentinel cohort regardless of the
// strategy in effect.
func (e *Engine) briefPass(ctx context.Context, hist *histogram.CohortHist, unit UnitType, interval IntervalType) error {
	q := e.newQuery(interval, baseFrom)
	q.selects = []string{commitMetric(unit)}
	q.filter("a.active_time <= ?", e.thresholdSeconds())

	var value int64
	err := e.forEachRow(ctx, q, func(ym histogram.YearMonth) error {
		return hist.Set(ym, histogram.NoCohort, int(value))
	}, &value)
	if err != nil {
		return fmt.Errorf("bin accumulation (brief bucket): %w", err)
	}

	hist.SetName(histogram.NoCohort, "Brief")
	return nil
}
