package meta

import (
	"fmt"
	"os"

	"github.com/gitcohort/gitcohort-go/internal/histogram"
	"gopkg.in/yaml.v3"
)

// BinSpec is the YAML form of a time bin; month is optional and omitting
// it means a whole-year bin.
type BinSpec struct {
	Year  int  `yaml:"year"`
	Month *int `yaml:"month"`
}

func (b *BinSpec) toYearMonth() histogram.YearMonth {
	if b == nil {
		return histogram.YearMonth{}
	}
	ym := histogram.YearMonth{Year: b.Year, Month: histogram.NoMonth}
	if b.Month != nil {
		ym.Month = *b.Month
	}
	return ym
}

// Marker is a labeled point in time overlaid on rendered charts. Row
// offsets labels vertically so nearby markers do not collide.
type Marker struct {
	Time BinSpec `yaml:"time"`
	Row  int     `yaml:"row"`
	Text string  `yaml:"text"`
}

// Bin returns the marker's time bin.
func (m *Marker) Bin() histogram.YearMonth {
	return m.Time.toYearMonth()
}

// AggregatePattern selects author emails by glob pattern, optionally
// restricted to a time window of bins (half-open: [begin, end)).
type AggregatePattern struct {
	Pattern string   `yaml:"pattern"`
	Begin   *BinSpec `yaml:"begin"`
	End     *BinSpec `yaml:"end"`
}

// Window returns the pattern's time restriction; either bound may be nil.
func (p *AggregatePattern) Window() (begin, end *histogram.YearMonth) {
	if p.Begin != nil {
		ym := p.Begin.toYearMonth()
		begin = &ym
	}
	if p.End != nil {
		ym := p.End.toYearMonth()
		end = &ym
	}
	return begin, end
}

// DomainRule renames or hides an origin domain. AggregateEmails folds
// every matching author email into the named domain; Show toggles the
// domain's visibility in domain-cohort histograms.
type DomainRule struct {
	Name            string             `yaml:"name"`
	Show            *bool              `yaml:"show"`
	AggregateEmails []AggregatePattern `yaml:"aggregate_emails"`
}

// ProjectMeta is optional per-project metadata: display name, the year
// range charts should show, chart markers, and domain rules applied
// before aggregation.
type ProjectMeta struct {
	Name      string       `yaml:"name"`
	FirstYear *int         `yaml:"first_year"`
	LastYear  *int         `yaml:"last_year"`
	Domains   []DomainRule `yaml:"domains"`
	Markers   []Marker     `yaml:"markers"`
}

// Load reads project metadata from a YAML file.
func Load(path string) (*ProjectMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read meta file: %w", err)
	}

	var pm ProjectMeta
	if err := yaml.Unmarshal(data, &pm); err != nil {
		return nil, fmt.Errorf("parse meta file %s: %w", path, err)
	}

	return &pm, nil
}
