package cohort

import (
	"strings"
)

// binnedQuery is a declarative binned-aggregation request: bin columns
// (year, or year+month) followed by optional key expressions and one
// aggregate, over a FROM clause with filters. One builder renders every
// strategy's SQL instead of one bespoke query per cohort/unit/interval
// combination.
type binnedQuery struct {
	interval IntervalType
	selects  []string // key expressions and the aggregate, after the bin columns
	from     string
	where    []string
	args     []any
	groupBy  []string // key expressions to group by, after the bin columns
	orderBy  string
}

// baseFrom joins events with their author summaries.
const baseFrom = `raw_commits r JOIN authors a ON r.author_name = a.author_name`

// suffixFrom additionally joins the per-suffix change counts, one row
// per (commit, suffix).
const suffixFrom = baseFrom + ` JOIN raw_commit_suffixes s ON s.commit_id = r.id`

func (q *binnedQuery) binColumns() string {
	if q.interval == Month {
		return "r.author_year, r.author_month"
	}
	return "r.author_year"
}

// SQL renders the request with '?' placeholders; callers rebind for the
// store's driver.
func (q *binnedQuery) SQL() string {
	var sb strings.Builder

	sb.WriteString("SELECT ")
	sb.WriteString(q.binColumns())
	for _, sel := range q.selects {
		sb.WriteString(", ")
		sb.WriteString(sel)
	}

	sb.WriteString(" FROM ")
	sb.WriteString(q.from)

	if len(q.where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(q.where, " AND "))
	}

	sb.WriteString(" GROUP BY ")
	sb.WriteString(q.binColumns())
	for _, g := range q.groupBy {
		sb.WriteString(", ")
		sb.WriteString(g)
	}

	if q.orderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(q.orderBy)
	}

	return sb.String()
}

// filter appends a predicate with its arguments.
func (q *binnedQuery) filter(cond string, args ...any) {
	q.where = append(q.where, cond)
	q.args = append(q.args, args...)
}
