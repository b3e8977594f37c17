package histogram

import (
	"fmt"
	"strings"
)

// Cell is one (cohort, value) pair inside an exported row.
type Cell struct {
	Cohort int
	Value  int
}

// Row is one exported time bin: the leading sentinel cell holds the sum
// of everything recorded directly in the bin, followed by one cell per
// cohort id in bounds order, and finally the sentinel again when it has
// a display name of its own.
type Row struct {
	Bin   YearMonth
	Cells []Cell
}

// Rows materializes every bin from the first to the last inclusive,
// stepping by Next, so bins without data still appear with zero values.
// The first bin's month is truncated to January so multi-year monthly
// exports align. Returns nil for an empty histogram.
func (h *CohortHist) Rows() []Row {
	bounds := h.Bounds()
	if bounds == nil {
		return nil
	}

	// Pad out so all months are present in the first year.
	ym := bounds.FirstBin
	if ym.HasMonth() {
		ym.Month = 0
	}

	trailingSentinel := h.Name(NoCohort) != ""

	var rows []Row
	for !bounds.LastBin.Before(ym) {
		cells := make([]Cell, 0, h.NumCohorts()+2)
		cells = append(cells, Cell{NoCohort, h.binSum(ym)})

		for g := bounds.FirstCohort; g <= bounds.LastCohort; g++ {
			v, _ := h.Get(ym, g)
			cells = append(cells, Cell{g, v})
		}

		if trailingSentinel {
			v, _ := h.Get(ym, NoCohort)
			cells = append(cells, Cell{NoCohort, v})
		}

		rows = append(rows, Row{Bin: ym, Cells: cells})
		ym = ym.Next()
	}

	return rows
}

// Table renders the histogram as a pipe-delimited text table with a
// header row: Year[|Month]|Sum|<cohort names...>. This is the contract
// consumed by the plotter. Exporting an empty histogram is an error.
func (h *CohortHist) Table() (string, error) {
	bounds := h.Bounds()
	if bounds == nil {
		return "", ErrEmpty
	}
	rows := h.Rows()

	var sb strings.Builder
	if rows[0].Bin.HasMonth() {
		sb.WriteString("Year|Month|Sum")
	} else {
		sb.WriteString("Year|Sum")
	}

	for g := bounds.FirstCohort; g <= bounds.LastCohort; g++ {
		name := h.Name(g)
		if name == "" {
			name = BlankName
		}
		sb.WriteString("|")
		sb.WriteString(name)
	}

	if name := h.Name(NoCohort); name != "" {
		sb.WriteString("|")
		sb.WriteString(name)
	}
	sb.WriteString("\n")

	for i, row := range rows {
		if i > 0 {
			sb.WriteString("\n")
		}
		if row.Bin.HasMonth() {
			fmt.Fprintf(&sb, "%d|%d", row.Bin.Year, row.Bin.Month)
		} else {
			fmt.Fprintf(&sb, "%d", row.Bin.Year)
		}
		for _, cell := range row.Cells {
			fmt.Fprintf(&sb, "|%d", cell.Value)
		}
	}

	return sb.String(), nil
}
