package cohort

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/gitcohort/gitcohort-go/internal/histogram"
)

// categorySource describes where a categorical cohort's key comes from
// and how each unit is measured over it.
type categorySource struct {
	expr  string   // expression yielding the category value per row
	from  string   // FROM/JOIN clause
	where []string // extra membership filters
}

func sourceFor(cohortType CohortType) (categorySource, error) {
	switch cohortType {
	case Domain:
		return categorySource{
			expr:  "r.author_domain",
			from:  baseFrom,
			where: []string{"r.show_domain = TRUE"},
		}, nil
	case Repo:
		return categorySource{expr: "r.repo_name", from: baseFrom}, nil
	case Suffix:
		return categorySource{expr: "s.suffix", from: suffixFrom}, nil
	default:
		return categorySource{}, fmt.Errorf("cohort type %s is not categorical", cohortType)
	}
}

// metric returns the aggregate for a unit over this source. Suffix rows
// carry their own change weights; a commit touching several suffixes
// contributes one event per suffix.
func (cs categorySource) metric(unit UnitType) string {
	if cs.from == suffixFrom && unit == Changes {
		return "COALESCE(SUM(s.n_changes), 0)"
	}
	return commitMetric(unit)
}

// binCohort is one accumulation key.
type binCohort struct {
	ym     histogram.YearMonth
	cohort int
}

// rankedCategory is one candidate category with its global weight.
type rankedCategory struct {
	name   string
	weight float64
}

// assignIDs maps ranked categories (heaviest first) to cohort ids: rank
// r of the top N gets id N+1-r so the biggest category stacks highest;
// everything beyond N folds into OtherCohort.
func assignIDs(ranked []rankedCategory, topN int) map[string]int {
	ids := make(map[string]int, len(ranked))
	for i, rc := range ranked {
		if i < topN {
			ids[rc.name] = topN - i
		} else {
			ids[rc.name] = OtherCohort
		}
	}
	return ids
}

// nameCohorts labels every named cohort and the Other bucket when any
// category overflowed into it.
func nameCohorts(hist *histogram.CohortHist, ranked []rankedCategory, ids map[string]int) {
	overflow := false
	for _, rc := range ranked {
		id := ids[rc.name]
		if id == OtherCohort {
			overflow = true
			continue
		}
		hist.SetName(id, rc.name)
	}
	if overflow {
		hist.SetName(OtherCohort, "Other")
	}
}

// categoricalHist implements domain/repo/suffix cohorts for the commits
// and changes units: categories are ranked once globally among
// above-threshold authors, the top N keep their own cohort, the rest
// collapse into Other, and brief authors land on the Brief sentinel.
func (e *Engine) categoricalHist(ctx context.Context, cohortType CohortType, unit UnitType, interval IntervalType) (*histogram.CohortHist, error) {
	src, err := sourceFor(cohortType)
	if err != nil {
		return nil, err
	}

	ranked, err := e.rankCategories(ctx, src, unit)
	if err != nil {
		return nil, fmt.Errorf("top-N selection: %w", err)
	}
	ids := assignIDs(ranked, e.opts.TopN)

	q := e.newQuery(interval, src.from)
	q.selects = []string{src.expr, src.metric(unit)}
	q.groupBy = []string{src.expr}
	q.filter("a.active_time > ?", e.thresholdSeconds())
	q.where = append(q.where, src.where...)

	// Several categories can fold into the same Other cohort per bin, so
	// accumulate first and write each histogram key exactly once.
	acc := make(map[binCohort]int)
	var bins []binCohort
	var category string
	var value int64
	err = e.forEachRow(ctx, q, func(ym histogram.YearMonth) error {
		id, ok := ids[category]
		if !ok {
			return fmt.Errorf("category %q missing from ranking", category)
		}
		key := binCohort{ym, id}
		if _, seen := acc[key]; !seen {
			bins = append(bins, key)
		}
		acc[key] += int(value)
		return nil
	}, &category, &value)
	if err != nil {
		return nil, fmt.Errorf("bin accumulation (%s cohorts): %w", cohortType, err)
	}

	hist := histogram.New()
	for _, key := range bins {
		if err := hist.Set(key.ym, key.cohort, acc[key]); err != nil {
			return nil, fmt.Errorf("bin accumulation (%s cohorts): %w", cohortType, err)
		}
	}
	nameCohorts(hist, ranked, ids)

	if err := e.briefPass(ctx, hist, unit, interval); err != nil {
		return nil, err
	}

	return hist, nil
}

// rankCategories totals the unit metric per category over all bins,
// restricted to above-threshold authors, heaviest first. Ties break on
// category name for deterministic ids.
func (e *Engine) rankCategories(ctx context.Context, src categorySource, unit UnitType) ([]rankedCategory, error) {
	where := append([]string{"a.active_time > ?"}, src.where...)
	args := []any{e.thresholdSeconds()}
	if e.opts.FromYear != nil {
		begin := histogram.YearMonth{Year: *e.opts.FromYear, Month: histogram.NoMonth}
		where = append(where, "r.author_time >= ?")
		args = append(args, begin.Begin().Unix())
	}
	if e.opts.ToYear != nil {
		end := histogram.YearMonth{Year: *e.opts.ToYear, Month: histogram.NoMonth}
		where = append(where, "r.author_time < ?")
		args = append(args, end.End().Unix())
	}

	query := fmt.Sprintf(
		`SELECT %s AS category, %s AS weight FROM %s WHERE %s GROUP BY %s ORDER BY weight DESC, category ASC`,
		src.expr, src.metric(unit), src.from, strings.Join(where, " AND "), src.expr)

	rows, err := e.db.QueryContext(ctx, e.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ranked []rankedCategory
	for rows.Next() {
		var rc rankedCategory
		if err := rows.Scan(&rc.name, &rc.weight); err != nil {
			return nil, err
		}
		ranked = append(ranked, rc)
	}
	return ranked, rows.Err()
}

// sortRanked orders candidates by weight descending, then name, in
// place. Used by the fractional strategy, whose weights are computed in
// memory rather than by the store.
func sortRanked(ranked []rankedCategory) {
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].weight != ranked[j].weight {
			return ranked[i].weight > ranked[j].weight
		}
		return ranked[i].name < ranked[j].name
	})
}
