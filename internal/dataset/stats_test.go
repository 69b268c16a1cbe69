package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/mapsignal/crimegrid/internal/region"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadStats_CSVByGeoID(t *testing.T) {
	path := writeTempFile(t, "crime.csv",
		"GEOID,County,Index Crimes\n"+
			"48201,Harris County,\"12,345\"\n"+
			"48039,Brazoria County,872\n"+
			",Orphan Row,99\n"+
			"48157,Fort Bend County,not-a-number\n")

	stats, err := ReadStats(StatsSource{
		Path:        path,
		KeyColumn:   "GEOID",
		ValueColumn: "Index Crimes",
	})
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, 12345.0, stats["48201"])
	assert.Equal(t, 872.0, stats["48039"])
}

func TestReadStats_CSVByCountyNormalizesKeys(t *testing.T) {
	path := writeTempFile(t, "crime.csv",
		"County,Rate\n"+
			"HARRIS,412.7\n"+
			"Brazoria County,120.1\n")

	stats, err := ReadStats(StatsSource{
		Path:        path,
		KeyColumn:   "County",
		ValueColumn: "Rate",
		KeyKind:     "county",
	})
	require.NoError(t, err)
	assert.Equal(t, 412.7, stats["Harris County"])
	assert.Equal(t, 120.1, stats["Brazoria County"])
}

func TestReadStats_SkipRows(t *testing.T) {
	path := writeTempFile(t, "crime.csv",
		"Crime in Texas 2024\n"+
			"GEOID,Total\n"+
			"48201,10\n")

	stats, err := ReadStats(StatsSource{
		Path:        path,
		KeyColumn:   "GEOID",
		ValueColumn: "Total",
		SkipRows:    1,
	})
	require.NoError(t, err)
	assert.Equal(t, 10.0, stats["48201"])
}

func TestReadStats_MissingColumn(t *testing.T) {
	path := writeTempFile(t, "crime.csv", "GEOID,Total\n48201,10\n")

	_, err := ReadStats(StatsSource{
		Path:        path,
		KeyColumn:   "GEOID",
		ValueColumn: "Nope",
	})
	require.Error(t, err)
}

func TestReadStats_XLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Crime")
	require.NoError(t, err)

	header := sheet.AddRow()
	header.AddCell().Value = "GEOID"
	header.AddCell().Value = "Total"

	row := sheet.AddRow()
	row.AddCell().Value = "48201"
	row.AddCell().Value = "12345"

	path := filepath.Join(t.TempDir(), "crime.xlsx")
	require.NoError(t, f.Save(path))

	stats, err := ReadStats(StatsSource{
		Path:        path,
		Sheet:       "Crime",
		KeyColumn:   "GEOID",
		ValueColumn: "Total",
	})
	require.NoError(t, err)
	assert.Equal(t, 12345.0, stats["48201"])
}

func TestReadStats_UnsupportedFormat(t *testing.T) {
	_, err := ReadStats(StatsSource{Path: "crime.parquet", KeyColumn: "a", ValueColumn: "b"})
	require.Error(t, err)
}

func TestApplyStats_ByGeoID(t *testing.T) {
	regions := []*region.Region{
		{GeoID: "48201", County: "Harris County"},
		{GeoID: "48039", County: "Brazoria County"},
	}

	matched := ApplyStats(regions, map[string]float64{"48201": 42}, "geoid")
	assert.Equal(t, 1, matched)
	require.NotNil(t, regions[0].Stat)
	assert.Equal(t, 42.0, *regions[0].Stat)
	assert.Nil(t, regions[1].Stat)
}

func TestApplyStats_ByCounty(t *testing.T) {
	regions := []*region.Region{
		{GeoID: "48201", County: "Harris County"},
	}

	matched := ApplyStats(regions, map[string]float64{"Harris County": 42}, "county")
	assert.Equal(t, 1, matched)
	require.NotNil(t, regions[0].Stat)
}

func TestNormalizeCounty(t *testing.T) {
	cases := map[string]string{
		"HARRIS":          "Harris County",
		"Harris County":   "Harris County",
		"  harris county": "Harris County",
		"Fort Bend":       "Fort Bend County",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeCounty(in), in)
	}
}
