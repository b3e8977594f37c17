package histogram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyBounds(t *testing.T) {
	h := New()
	assert.Nil(t, h.Bounds())
	assert.Nil(t, h.Rows())

	_, err := h.Table()
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestBounds(t *testing.T) {
	h := New()
	require.NoError(t, h.Set(YearMonth{2020, 0}, 0, 0))
	require.NoError(t, h.Set(YearMonth{2020, 1}, 1, 1))
	require.NoError(t, h.Set(YearMonth{2020, 2}, 2, 2))

	b := h.Bounds()
	require.NotNil(t, b)
	assert.Equal(t, YearMonth{2020, 0}, b.FirstBin)
	assert.Equal(t, YearMonth{2020, 2}, b.LastBin)
	assert.Equal(t, 0, b.FirstCohort)
	assert.Equal(t, 2, b.LastCohort)
	assert.Equal(t, 3, h.NumCohorts())
}

func TestBoundsWholeYearBins(t *testing.T) {
	h := New()
	require.NoError(t, h.Set(YearMonth{2020, NoMonth}, 0, 0))
	require.NoError(t, h.Set(YearMonth{2020, NoMonth}, 1, 1))
	require.NoError(t, h.Set(YearMonth{2020, NoMonth}, 2, 2))

	b := h.Bounds()
	require.NotNil(t, b)
	assert.Equal(t, YearMonth{2020, NoMonth}, b.FirstBin)
	assert.Equal(t, YearMonth{2020, NoMonth}, b.LastBin)
	assert.Equal(t, 0, b.FirstCohort)
	assert.Equal(t, 2, b.LastCohort)
}

func TestSentinelExcludedFromCohortBounds(t *testing.T) {
	h := New()
	require.NoError(t, h.Set(YearMonth{2020, NoMonth}, NoCohort, 5))
	require.NoError(t, h.Set(YearMonth{2020, NoMonth}, 3, 1))

	b := h.Bounds()
	require.NotNil(t, b)
	assert.Equal(t, 3, b.FirstCohort)
	assert.Equal(t, 3, b.LastCohort)
}

func TestDuplicateSetFails(t *testing.T) {
	h := New()
	require.NoError(t, h.Set(YearMonth{2020, 3}, 1, 10))
	err := h.Set(YearMonth{2020, 3}, 1, 20)
	assert.ErrorIs(t, err, ErrDuplicateKey)

	// The original value survives.
	v, ok := h.Get(YearMonth{2020, 3}, 1)
	assert.True(t, ok)
	assert.Equal(t, 10, v)
}

func TestGetDistinguishesMissingFromZero(t *testing.T) {
	h := New()
	require.NoError(t, h.Set(YearMonth{2020, 0}, 1, 0))

	v, ok := h.Get(YearMonth{2020, 0}, 1)
	assert.True(t, ok)
	assert.Equal(t, 0, v)

	_, ok = h.Get(YearMonth{2020, 0}, 2)
	assert.False(t, ok)
}

func TestNames(t *testing.T) {
	h := New()
	h.SetName(1, " core ")
	assert.Equal(t, "core", h.Name(1))

	h.SetName(2, "   ")
	assert.Equal(t, BlankName, h.Name(2))

	assert.Equal(t, "", h.Name(3))
}

// Rows must materialize every bin between first and last even when the
// input data skips bins entirely.
func TestRowsFillGaps(t *testing.T) {
	h := New()
	require.NoError(t, h.Set(YearMonth{2019, 10}, 1, 3))
	require.NoError(t, h.Set(YearMonth{2020, 4}, 1, 7))

	rows := h.Rows()
	// First year is padded back to January: 2019-00 .. 2020-04.
	require.Len(t, rows, 17)
	assert.Equal(t, YearMonth{2019, 0}, rows[0].Bin)
	assert.Equal(t, YearMonth{2020, 4}, rows[len(rows)-1].Bin)

	for i := 1; i < len(rows); i++ {
		assert.Equal(t, rows[i-1].Bin.Next(), rows[i].Bin, "rows must step by Next with no gaps")
	}
}

func TestRowsYearGranularity(t *testing.T) {
	h := New()
	require.NoError(t, h.Set(YearMonth{2018, NoMonth}, 2018, 4))
	require.NoError(t, h.Set(YearMonth{2021, NoMonth}, 2018, 1))

	rows := h.Rows()
	require.Len(t, rows, 4)
	for i, row := range rows {
		assert.Equal(t, YearMonth{2018 + i, NoMonth}, row.Bin)
	}

	// Leading cell carries the bin sum; missing cohort entries read as 0.
	assert.Equal(t, Cell{NoCohort, 4}, rows[0].Cells[0])
	assert.Equal(t, Cell{NoCohort, 0}, rows[1].Cells[0])
}

func TestRowsTrailingSentinelColumn(t *testing.T) {
	h := New()
	require.NoError(t, h.Set(YearMonth{2020, NoMonth}, 1, 2))
	require.NoError(t, h.Set(YearMonth{2020, NoMonth}, NoCohort, 5))

	// Without a sentinel name the sentinel only appears folded into Sum.
	rows := h.Rows()
	require.Len(t, rows, 1)
	require.Len(t, rows[0].Cells, 2)
	assert.Equal(t, Cell{NoCohort, 7}, rows[0].Cells[0])
	assert.Equal(t, Cell{1, 2}, rows[0].Cells[1])

	// Naming the sentinel adds it as its own trailing column.
	h.SetName(NoCohort, "Brief")
	rows = h.Rows()
	require.Len(t, rows[0].Cells, 3)
	assert.Equal(t, Cell{NoCohort, 5}, rows[0].Cells[2])
}

func TestTableYearly(t *testing.T) {
	h := New()
	require.NoError(t, h.Set(YearMonth{2019, NoMonth}, 2019, 2))
	require.NoError(t, h.Set(YearMonth{2020, NoMonth}, 2019, 3))
	require.NoError(t, h.Set(YearMonth{2020, NoMonth}, 2020, 1))
	require.NoError(t, h.Set(YearMonth{2020, NoMonth}, NoCohort, 1))
	h.SetName(2019, "2019")
	h.SetName(2020, "2020")
	h.SetName(NoCohort, "Brief")

	table, err := h.Table()
	require.NoError(t, err)

	lines := strings.Split(table, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Year|Sum|2019|2020|Brief", lines[0])
	assert.Equal(t, "2019|2|2|0|0", lines[1])
	assert.Equal(t, "2020|5|3|1|1", lines[2])
}

func TestTableMonthlyHeaderAndBlankNames(t *testing.T) {
	h := New()
	require.NoError(t, h.Set(YearMonth{2020, 0}, 1, 4))

	table, err := h.Table()
	require.NoError(t, err)

	lines := strings.Split(table, "\n")
	assert.Equal(t, "Year|Month|Sum|(blank)", lines[0])
	assert.Equal(t, "2020|0|4|4", lines[1])
}

// A histogram whose bins exist but hold only zeros still exports one row
// per bin, not missing rows.
func TestTableAllZeroRows(t *testing.T) {
	h := New()
	require.NoError(t, h.Set(YearMonth{2019, NoMonth}, 1, 0))
	require.NoError(t, h.Set(YearMonth{2021, NoMonth}, 1, 0))
	h.SetName(1, "core")

	table, err := h.Table()
	require.NoError(t, err)

	lines := strings.Split(table, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "2019|0|0", lines[1])
	assert.Equal(t, "2020|0|0", lines[2])
	assert.Equal(t, "2021|0|0", lines[3])
}
