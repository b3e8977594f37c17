package meta

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gitcohort/gitcohort-go/internal/histogram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMeta(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meta.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeMeta(t, `
name: Linux
first_year: 2005
last_year: 2023
domains:
  - name: redhat.com
    aggregate_emails:
      - pattern: "*@fedoraproject.org"
      - pattern: "*@redhat.*"
        begin: { year: 2010 }
        end: { year: 2020, month: 5 }
  - name: example.org
    show: false
markers:
  - time: { year: 2015, month: 3 }
    row: 1
    text: "4.0 release"
`)

	pm, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Linux", pm.Name)
	require.NotNil(t, pm.FirstYear)
	assert.Equal(t, 2005, *pm.FirstYear)

	require.Len(t, pm.Domains, 2)
	redhat := pm.Domains[0]
	assert.Equal(t, "redhat.com", redhat.Name)
	require.Len(t, redhat.AggregateEmails, 2)

	begin, end := redhat.AggregateEmails[0].Window()
	assert.Nil(t, begin)
	assert.Nil(t, end)

	begin, end = redhat.AggregateEmails[1].Window()
	require.NotNil(t, begin)
	require.NotNil(t, end)
	assert.Equal(t, histogram.YearMonth{Year: 2010, Month: histogram.NoMonth}, *begin)
	assert.Equal(t, histogram.YearMonth{Year: 2020, Month: 5}, *end)

	require.NotNil(t, pm.Domains[1].Show)
	assert.False(t, *pm.Domains[1].Show)

	require.Len(t, pm.Markers, 1)
	assert.Equal(t, histogram.YearMonth{Year: 2015, Month: 3}, pm.Markers[0].Bin())
	assert.Equal(t, "4.0 release", pm.Markers[0].Text)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/meta.yaml")
	assert.Error(t, err)
}
