// Package plot renders cohort histograms as stacked bar charts by
// generating a gnuplot script around the exported table and running
// gnuplot on it.
package plot

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/gitcohort/gitcohort-go/internal/histogram"
	"github.com/gitcohort/gitcohort-go/internal/meta"
)

// cohortStyles assigns a fixed color per stacked cohort, repeating after
// 26 so deep histories still render.
const cohortStyles = `
set style line 1 lt 1 lc rgb '#909090';
set style line 2 lt 1 lc rgb '#505050';
set style line 3 lt 1 lc rgb '#a6cee3';
set style line 4 lt 1 lc rgb '#1f78b4';
set style line 5 lt 1 lc rgb '#c2a5cf';
set style line 6 lt 1 lc rgb '#9970ab';
set style line 7 lt 1 lc rgb '#b2df8a';
set style line 8 lt 1 lc rgb '#33a02c';
set style line 9 lt 1 lc rgb '#fb9a99';
set style line 10 lt 1 lc rgb '#e31a1c';
set style line 11 lt 1 lc rgb '#fdbf6f';
set style line 12 lt 1 lc rgb '#ff7f00';
set style line 13 lt 1 lc rgb '#6b3d15';
set style line 14 lt 1 lc rgb '#bf812d';
set style line 15 lt 1 lc rgb '#458e81';
set style line 16 lt 1 lc rgb '#34c0b5';
set style line 17 lt 1 lc rgb '#40004b';
set style line 18 lt 1 lc rgb '#762a83';
set style line 19 lt 1 lc rgb '#00441b';
set style line 20 lt 1 lc rgb '#1b7837';
set style line 21 lt 1 lc rgb '#a50026';
set style line 22 lt 1 lc rgb '#d73027';
set style line 23 lt 1 lc rgb '#053061';
set style line 24 lt 1 lc rgb '#2166ac';
set style line 25 lt 1 lc rgb '#40004b';
set style line 26 lt 1 lc rgb '#762a83';
set style line 27 lt 1 lc rgb '#909090';
set style line 28 lt 1 lc rgb '#505050';
set style line 29 lt 1 lc rgb '#a6cee3';
set style line 30 lt 1 lc rgb '#1f78b4';
set style line 31 lt 1 lc rgb '#c2a5cf';
set style line 32 lt 1 lc rgb '#9970ab';
set style line 33 lt 1 lc rgb '#b2df8a';
set style line 34 lt 1 lc rgb '#33a02c';
set style line 35 lt 1 lc rgb '#fb9a99';
set style line 36 lt 1 lc rgb '#e31a1c';
set style line 37 lt 1 lc rgb '#fdbf6f';
set style line 38 lt 1 lc rgb '#ff7f00';
set style line 39 lt 1 lc rgb '#6b3d15';
set style line 40 lt 1 lc rgb '#bf812d';
set style line 41 lt 1 lc rgb '#458e81';
set style line 42 lt 1 lc rgb '#34c0b5';
set style line 43 lt 1 lc rgb '#40004b';
set style line 44 lt 1 lc rgb '#762a83';
set style line 45 lt 1 lc rgb '#00441b';
`

const chartCommon = `
set datafile separator '|';
set rmargin 1.1;
set tmargin 0.6;
set bmargin 7.0;
set border 3;
set format y "%'.0f";
set border lw 2;
set style fill solid;
set style line 101 lc rgb "0x50000000" dashtype '-' lw 2;
set yrange [] writeback;
set style data histogram;
set style histogram rowstacked;
set xtics scale 0 nomirror offset 0,graph 0.015;
set ytics nomirror;
set key autotitle columnheader;
set key reverse Left horizontal nobox bmargin left width 1.1;
set ytics textcolor rgb "0xff000000" scale 0;
`

// Plotter renders charts with an external gnuplot binary.
type Plotter struct {
	logger *logrus.Logger
	binary string
	width  int
	height int
}

// New creates a plotter using the gnuplot binary on PATH.
func New(logger *logrus.Logger, width, height int) *Plotter {
	return &Plotter{logger: logger, binary: "gnuplot", width: width, height: height}
}

// YearlyCohorts renders a yearly stacked histogram to outFile. The last
// bounds year is dropped by default since it is usually incomplete;
// meta year hints or explicit bounds override that.
func (p *Plotter) YearlyCohorts(ctx context.Context, pm *meta.ProjectMeta, unit string, hist *histogram.CohortHist, outFile string, firstYear, lastYear *int) error {
	table, err := hist.Table()
	if err != nil {
		return fmt.Errorf("render data: %w", err)
	}
	b := hist.Bounds()

	first := b.FirstBin.Year
	if firstYear != nil {
		first = *firstYear
	} else if pm.FirstYear != nil {
		first = *pm.FirstYear
	}
	last := b.LastBin.Year
	if lastYear != nil {
		last = *lastYear
	} else if pm.LastYear != nil {
		last = *pm.LastYear
	} else if b.FirstBin.Year != b.LastBin.Year {
		last = b.LastBin.Year - 1
	}

	cols := p.dataColumns(hist)
	markers, nMarkers := markersArray(pm)

	labels := ""
	if nMarkers > 0 {
		labels = fmt.Sprintf(`
set for [i=0:%d:1] label left markers[int(i)*4+4] at ((markers[int(i)*4+1]+%d)*12+(markers[int(i)*4+2]-1))/12.0-(1.1/2.0), (0.977-0.05*markers[int(i)*4+3])*GPVAL_Y_MAX front tc ls 0 boxed;
`, nMarkers-1, -b.FirstBin.Year)
	}

	script := fmt.Sprintf(`
%s
%s
set terminal pngcairo size %d,%d enhanced background rgb 'white' font 'Verdana,25';
set style line %d lt 1 lc rgb '#ffffd0';
$data << EOD
%s
EOD
set output "%s";
set ylabel "%s";
set xrange [%f:%f];
set multiplot;
plot for [i=3:%d] '$data' using i:xtic(stringcolumn(1)) ls i-2 title columnheader(i);
unset key;
set style data histep;
set xtics textcolor rgb "0xff000000" scale 1 0.5,1;
set ytics textcolor rgb "0x00000000" scale default;
set grid xtics ytics front linestyle 101;
set yrange restore;
set style textbox opaque noborder;
%s
%s
plot '$data' using 2 lc rgb 'black' lw 2 notitle;
unset multiplot;
`,
		cohortStyles, chartCommon, p.width, p.height,
		cols+1, table, outFile, unit,
		float64(first-b.FirstBin.Year)-0.5,
		float64(last-b.FirstBin.Year)+0.5,
		cols+2, markers, labels)

	return p.run(ctx, script, outFile)
}

// MonthlyCohorts renders a monthly stacked histogram to outFile, with
// year labels centered on June.
func (p *Plotter) MonthlyCohorts(ctx context.Context, pm *meta.ProjectMeta, unit string, hist *histogram.CohortHist, outFile string, firstYear, lastYear *int) error {
	table, err := hist.Table()
	if err != nil {
		return fmt.Errorf("render data: %w", err)
	}
	b := hist.Bounds()

	first := b.FirstBin.Year
	if firstYear != nil {
		first = *firstYear
	} else if pm.FirstYear != nil {
		first = *pm.FirstYear
	}
	last := b.LastBin.Year
	if lastYear != nil {
		last = *lastYear
	} else if pm.LastYear != nil {
		last = *pm.LastYear
	}

	cols := p.dataColumns(hist)
	markers, nMarkers := markersArray(pm)

	labels := ""
	if nMarkers > 0 {
		labels = fmt.Sprintf(`
set for [i=0:%d:1] label left markers[int(i)*4+4] at ((markers[int(i)*4+1]+%d)*12+(markers[int(i)*4+2]))-(2.5), (0.977-0.05*markers[int(i)*4+3])*GPVAL_Y_MAX front tc ls 0 boxed;
`, nMarkers-1, -b.FirstBin.Year)
	}

	script := fmt.Sprintf(`
%s
%s
set terminal pngcairo size %d,%d enhanced background rgb 'white' font 'Verdana,25';
set style line %d lt 1 lc rgb '#ffffd0';
$data << EOD
%s
EOD
set output "%s";
set ylabel "%s";
set xrange [%f:%f];
set multiplot;
plot for [i=4:%d] '$data' using i:xtic($2=="06" ? stringcolumn(1) : "") ls i-3 title columnheader(i);
unset key;
set style data histep;
set xtics scale 1 11.5,12 textcolor black;
set xtics textcolor rgb "0xff000000";
set ytics textcolor rgb "0x00000000" scale default;
set grid xtics ytics front linestyle 101;
set yrange restore;
set style textbox opaque noborder;
%s
%s
plot '$data' using 3 lc rgb 'black' lw 2 notitle;
unset multiplot;
`,
		cohortStyles, chartCommon, p.width, p.height,
		cols+1, table, outFile, unit,
		float64((first-b.FirstBin.Year)*12)-0.5,
		float64((last-b.FirstBin.Year)*12+12)-0.5,
		cols+3, markers, labels)

	return p.run(ctx, script, outFile)
}

// dataColumns is how many stacked cohort columns the exported table
// carries, including a trailing sentinel column when it is named.
func (p *Plotter) dataColumns(hist *histogram.CohortHist) int {
	n := hist.NumCohorts()
	if hist.Name(histogram.NoCohort) != "" {
		n++
	}
	return n
}

// markersArray renders chart markers as a gnuplot array of
// (year, month, row, text) quadruples.
func markersArray(pm *meta.ProjectMeta) (string, int) {
	if len(pm.Markers) == 0 {
		return "", 0
	}

	quads := make([]string, 0, len(pm.Markers))
	for _, m := range pm.Markers {
		month := -1
		if m.Time.Month != nil {
			month = *m.Time.Month
		}
		quads = append(quads, fmt.Sprintf("'%d', '%02d', %d, '%s'",
			m.Time.Year, month, m.Row, m.Text))
	}
	return "array markers = [ " + strings.Join(quads, ", ") + " ];", len(pm.Markers)
}

// run writes the script to a temp file and invokes gnuplot on it.
func (p *Plotter) run(ctx context.Context, script, outFile string) error {
	f, err := os.CreateTemp("", "gitcohort-*.gnuplot")
	if err != nil {
		return fmt.Errorf("write gnuplot script: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.WriteString(script); err != nil {
		f.Close()
		return fmt.Errorf("write gnuplot script: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write gnuplot script: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"script": f.Name(),
		"output": outFile,
	}).Debug("running gnuplot")

	out, err := exec.CommandContext(ctx, p.binary, f.Name()).CombinedOutput()
	if err != nil {
		return fmt.Errorf("gnuplot: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
