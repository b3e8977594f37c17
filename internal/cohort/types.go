package cohort

import (
	"fmt"
	"strings"
)

// CohortType selects how authors and events are bucketed.
type CohortType int

const (
	// FirstYear buckets an author's entire activity by the calendar year
	// of their first commit.
	FirstYear CohortType = iota
	// Domain buckets events by the author's trimmed email domain.
	Domain
	// Repo buckets events by repository name.
	Repo
	// Suffix buckets events by file-type suffix, weighted per suffix.
	Suffix
)

// UnitType selects the metric counted per bin.
type UnitType int

const (
	// Authors counts distinct contributors (fractionally attributed in
	// categorical cohorts).
	Authors UnitType = iota
	// Commits counts events.
	Commits
	// Changes sums insertions plus deletions.
	Changes
)

// IntervalType selects the time-axis granularity.
type IntervalType int

const (
	Year IntervalType = iota
	Month
)

func (c CohortType) String() string {
	switch c {
	case FirstYear:
		return "firstyear"
	case Domain:
		return "domain"
	case Repo:
		return "repo"
	case Suffix:
		return "suffix"
	}
	return "unknown"
}

func (u UnitType) String() string {
	switch u {
	case Authors:
		return "authors"
	case Commits:
		return "commits"
	case Changes:
		return "changes"
	}
	return "unknown"
}

func (i IntervalType) String() string {
	if i == Month {
		return "month"
	}
	return "year"
}

// ParseCohortType parses a cohort type name as given on the command line.
func ParseCohortType(s string) (CohortType, error) {
	switch strings.ToLower(s) {
	case "firstyear":
		return FirstYear, nil
	case "domain":
		return Domain, nil
	case "repo":
		return Repo, nil
	case "suffix":
		return Suffix, nil
	}
	return 0, fmt.Errorf("unknown cohort type %q (want firstyear, domain, repo or suffix)", s)
}

// ParseUnitType parses a unit name as given on the command line.
func ParseUnitType(s string) (UnitType, error) {
	switch strings.ToLower(s) {
	case "authors":
		return Authors, nil
	case "commits":
		return Commits, nil
	case "changes":
		return Changes, nil
	}
	return 0, fmt.Errorf("unknown unit %q (want authors, commits or changes)", s)
}

// ParseIntervalType parses an interval name as given on the command line.
func ParseIntervalType(s string) (IntervalType, error) {
	switch strings.ToLower(s) {
	case "year":
		return Year, nil
	case "month":
		return Month, nil
	}
	return 0, fmt.Errorf("unknown interval %q (want month or year)", s)
}
