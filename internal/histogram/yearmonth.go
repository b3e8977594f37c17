package histogram

import "time"

// NoMonth marks a bin that covers a whole calendar year.
const NoMonth = -1

// YearMonth is one bin on the histogram's time axis: either a calendar
// year (Month == NoMonth) or a single month of a year (Month in 0..11).
// Whole-year bins order before any month of the same year.
type YearMonth struct {
	Year  int `yaml:"year"`
	Month int `yaml:"month"`
}

// HasMonth reports whether the bin has month granularity.
func (ym YearMonth) HasMonth() bool {
	return ym.Month != NoMonth
}

// Next returns the successor bin at the same granularity.
func (ym YearMonth) Next() YearMonth {
	switch {
	case ym.Month == NoMonth:
		return YearMonth{Year: ym.Year + 1, Month: NoMonth}
	case ym.Month == 11:
		return YearMonth{Year: ym.Year + 1, Month: 0}
	default:
		return YearMonth{Year: ym.Year, Month: ym.Month + 1}
	}
}

// Prev returns the predecessor bin at the same granularity.
func (ym YearMonth) Prev() YearMonth {
	switch {
	case ym.Month == NoMonth:
		return YearMonth{Year: ym.Year - 1, Month: NoMonth}
	case ym.Month == 0:
		return YearMonth{Year: ym.Year - 1, Month: 11}
	default:
		return YearMonth{Year: ym.Year, Month: ym.Month - 1}
	}
}

// Compare orders bins by year, then month, with NoMonth sorting below
// January of the same year.
func (ym YearMonth) Compare(other YearMonth) int {
	if ym.Year != other.Year {
		if ym.Year < other.Year {
			return -1
		}
		return 1
	}
	if ym.Month != other.Month {
		if ym.Month < other.Month {
			return -1
		}
		return 1
	}
	return 0
}

// Before reports whether ym orders strictly before other.
func (ym YearMonth) Before(other YearMonth) bool {
	return ym.Compare(other) < 0
}

// Begin returns the first instant covered by the bin, in UTC.
func (ym YearMonth) Begin() time.Time {
	m := ym.Month
	if m == NoMonth {
		m = 0
	}
	return time.Date(ym.Year, time.Month(m+1), 1, 0, 0, 0, 0, time.UTC)
}

// End returns the first instant after the bin, in UTC. Together with
// Begin this forms the half-open interval [Begin, End) used for
// date-range filtering.
func (ym YearMonth) End() time.Time {
	switch {
	case ym.Month == NoMonth, ym.Month == 11:
		return time.Date(ym.Year+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(ym.Year, time.Month(ym.Month+2), 1, 0, 0, 0, 0, time.UTC)
	}
}
