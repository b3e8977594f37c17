package histogram

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// NoCohort is the reserved sentinel cohort id. Values stored under it are
// excluded from the tracked cohort bounds; exports fold them into the
// leading Sum column, and additionally emit them as a trailing column when
// the sentinel has a display name (the "Brief" bucket).
const NoCohort = -1

// BlankName replaces empty column headers on export; empty headers break
// downstream plotting.
const BlankName = "(blank)"

var (
	// ErrDuplicateKey is returned by Set when a (bin, cohort) key already
	// holds a value. The aggregation engine writes each key at most once,
	// so a duplicate means the caller is double-counting.
	ErrDuplicateKey = errors.New("histogram: duplicate bin/cohort key")

	// ErrEmpty is returned when exporting a histogram with no bins.
	ErrEmpty = errors.New("histogram: no data")
)

// Bounds describes the populated extent of a histogram: the first and
// last time bins, and the lowest and highest non-sentinel cohort ids.
type Bounds struct {
	FirstBin    YearMonth
	LastBin     YearMonth
	FirstCohort int
	LastCohort  int
}

// CohortHist is a sparse (time bin, cohort) -> value table with display
// names per cohort. It is populated by exactly one aggregation run and
// read-only afterwards.
type CohortHist struct {
	bins        map[YearMonth]map[int]int
	firstCohort int
	lastCohort  int
	names       map[int]string
}

// New returns an empty histogram.
func New() *CohortHist {
	return &CohortHist{
		bins:        make(map[YearMonth]map[int]int),
		firstCohort: math.MaxInt32,
		lastCohort:  math.MinInt32,
		names:       make(map[int]string),
	}
}

// Set stores value under (ym, cohort) and extends the cohort bounds for
// non-sentinel ids. Writing the same key twice returns ErrDuplicateKey.
func (h *CohortHist) Set(ym YearMonth, cohort, value int) error {
	if cohort != NoCohort {
		if cohort < h.firstCohort {
			h.firstCohort = cohort
		}
		if cohort > h.lastCohort {
			h.lastCohort = cohort
		}
	}

	row := h.bins[ym]
	if row == nil {
		row = make(map[int]int)
		h.bins[ym] = row
	}
	if _, exists := row[cohort]; exists {
		return fmt.Errorf("%w: %d-%d cohort %d", ErrDuplicateKey, ym.Year, ym.Month, cohort)
	}
	row[cohort] = value
	return nil
}

// Get returns the value stored under (ym, cohort). The second return is
// false when no value was stored, which is distinct from a stored zero.
func (h *CohortHist) Get(ym YearMonth, cohort int) (int, bool) {
	row, ok := h.bins[ym]
	if !ok {
		return 0, false
	}
	v, ok := row[cohort]
	return v, ok
}

// SetName assigns a display name to a cohort. Blank names are replaced by
// the BlankName placeholder so column headers are never empty.
func (h *CohortHist) SetName(cohort int, name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = BlankName
	}
	h.names[cohort] = name
}

// Name returns the display name for a cohort, or "" if none was set.
func (h *CohortHist) Name(cohort int) string {
	return h.names[cohort]
}

// Bounds returns the populated extent, or nil for an empty histogram.
// When only sentinel values were stored, FirstCohort > LastCohort.
func (h *CohortHist) Bounds() *Bounds {
	if len(h.bins) == 0 {
		return nil
	}

	var first, last YearMonth
	started := false
	for ym := range h.bins {
		if !started {
			first, last = ym, ym
			started = true
			continue
		}
		if ym.Before(first) {
			first = ym
		}
		if last.Before(ym) {
			last = ym
		}
	}

	return &Bounds{
		FirstBin:    first,
		LastBin:     last,
		FirstCohort: h.firstCohort,
		LastCohort:  h.lastCohort,
	}
}

// NumCohorts returns the count of non-sentinel cohort ids in the tracked
// bounds.
func (h *CohortHist) NumCohorts() int {
	if h.firstCohort > h.lastCohort {
		return 0
	}
	return h.lastCohort - h.firstCohort + 1
}

// binSum totals every value recorded directly in a bin, sentinel included.
func (h *CohortHist) binSum(ym YearMonth) int {
	sum := 0
	for _, v := range h.bins[ym] {
		sum += v
	}
	return sum
}
