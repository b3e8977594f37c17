package cohort

import (
	"context"
	"fmt"
	"math"

	"github.com/gitcohort/gitcohort-go/internal/histogram"
)

// binAuthor identifies one author's activity within one bin.
type binAuthor struct {
	ym     histogram.YearMonth
	author string
}

// fractionalEvent is one (bin, author, category) observation with its
// event count; the fraction is filled in once the author's bin total is
// known.
type fractionalEvent struct {
	ym       histogram.YearMonth
	author   string
	category string
	n        int
}

// fractionalHist implements the authors unit for categorical cohorts.
// An author active in a bin counts as one person split across the
// categories they touched, weighted by event share, so the bin total
// over all cohorts stays at the number of distinct authors.
func (e *Engine) fractionalHist(ctx context.Context, cohortType CohortType, interval IntervalType) (*histogram.CohortHist, error) {
	src, err := sourceFor(cohortType)
	if err != nil {
		return nil, err
	}

	q := e.newQuery(interval, src.from)
	q.selects = []string{"r.author_name", src.expr, "COUNT(*)"}
	q.groupBy = []string{"r.author_name", src.expr}
	q.filter("a.active_time > ?", e.thresholdSeconds())
	q.where = append(q.where, src.where...)

	var events []fractionalEvent
	totals := make(map[binAuthor]int)
	var author, category string
	var n int64
	err = e.forEachRow(ctx, q, func(ym histogram.YearMonth) error {
		events = append(events, fractionalEvent{ym, author, category, int(n)})
		totals[binAuthor{ym, author}] += int(n)
		return nil
	}, &author, &category, &n)
	if err != nil {
		return nil, fmt.Errorf("bin accumulation (%s cohorts, fractional): %w", cohortType, err)
	}

	// Rank categories by their summed author fractions across all bins.
	weights := make(map[string]float64)
	for _, ev := range events {
		weights[ev.category] += float64(ev.n) / float64(totals[binAuthor{ev.ym, ev.author}])
	}
	ranked := make([]rankedCategory, 0, len(weights))
	for name, w := range weights {
		ranked = append(ranked, rankedCategory{name, w})
	}
	sortRanked(ranked)
	ids := assignIDs(ranked, e.opts.TopN)

	acc := make(map[binCohort]float64)
	var bins []binCohort
	for _, ev := range events {
		key := binCohort{ev.ym, ids[ev.category]}
		if _, seen := acc[key]; !seen {
			bins = append(bins, key)
		}
		acc[key] += float64(ev.n) / float64(totals[binAuthor{ev.ym, ev.author}])
	}

	hist := histogram.New()
	for _, key := range bins {
		if err := hist.Set(key.ym, key.cohort, int(math.Floor(acc[key]))); err != nil {
			return nil, fmt.Errorf("bin accumulation (%s cohorts, fractional): %w", cohortType, err)
		}
	}
	nameCohorts(hist, ranked, ids)

	if err := e.briefPass(ctx, hist, Authors, interval); err != nil {
		return nil, err
	}

	return hist, nil
}
