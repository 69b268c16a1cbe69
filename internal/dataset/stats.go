package dataset

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mapsignal/crimegrid/internal/region"
)

// StatsSource describes one crime-statistics file in the manifest.
type StatsSource struct {
	Path        string `yaml:"path"`
	Format      string `yaml:"format"`       // "csv" or "xlsx"; inferred from extension when empty
	Sheet       string `yaml:"sheet"`        // xlsx only; first sheet when empty
	KeyColumn   string `yaml:"key_column"`   // column holding the geo_id or county name
	ValueColumn string `yaml:"value_column"` // column holding the raw statistic
	KeyKind     string `yaml:"key_kind"`     // "geoid" (default) or "county"
	SkipRows    int    `yaml:"skip_rows"`    // extra rows before the header row
}

// ReadStats parses a stats file into key → raw statistic. Rows with an empty
// key or an unparseable value are skipped.
func ReadStats(src StatsSource) (map[string]float64, error) {
	format := src.Format
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(src.Path), ".")
	}

	var rows [][]string
	var err error
	switch strings.ToLower(format) {
	case "csv":
		rows, err = readCSVRows(src.Path)
	case "xlsx":
		rows, err = readXLSXRows(src.Path, src.Sheet)
	default:
		return nil, eris.Errorf("dataset: unsupported stats format %q", format)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) <= src.SkipRows {
		return nil, eris.Errorf("dataset: stats file %s has no header row", src.Path)
	}
	rows = rows[src.SkipRows:]

	header := rows[0]
	keyIdx, valIdx := -1, -1
	for i, name := range header {
		switch {
		case strings.EqualFold(strings.TrimSpace(name), src.KeyColumn):
			keyIdx = i
		case strings.EqualFold(strings.TrimSpace(name), src.ValueColumn):
			valIdx = i
		}
	}
	if keyIdx < 0 || valIdx < 0 {
		return nil, eris.Errorf("dataset: stats file %s missing column %q or %q",
			src.Path, src.KeyColumn, src.ValueColumn)
	}

	stats := make(map[string]float64)
	var skipped int
	for _, row := range rows[1:] {
		if keyIdx >= len(row) || valIdx >= len(row) {
			skipped++
			continue
		}
		key := strings.TrimSpace(row[keyIdx])
		if key == "" {
			skipped++
			continue
		}
		if strings.EqualFold(src.KeyKind, "county") {
			key = NormalizeCounty(key)
		}

		raw := strings.ReplaceAll(strings.TrimSpace(row[valIdx]), ",", "")
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			skipped++
			continue
		}
		stats[key] = v
	}

	if skipped > 0 {
		zap.L().Debug("dataset: skipped stats rows",
			zap.String("path", src.Path),
			zap.Int("skipped", skipped),
		)
	}

	return stats, nil
}

// ApplyStats attaches statistics to regions, joining by geo_id or normalized
// county name per keyKind. Returns the number of regions that got a statistic.
func ApplyStats(regions []*region.Region, stats map[string]float64, keyKind string) int {
	byCounty := strings.EqualFold(keyKind, "county")

	var matched int
	for _, r := range regions {
		key := r.GeoID
		if byCounty {
			key = NormalizeCounty(r.County)
		}
		if v, ok := stats[key]; ok {
			stat := v
			r.Stat = &stat
			matched++
		}
	}
	return matched
}

var countyTitle = cases.Title(language.AmericanEnglish)

// NormalizeCounty canonicalizes a county label for joining: trims whitespace,
// title-cases, and ensures a single " County" suffix, so "HARRIS" and
// "Harris County" meet in the middle.
func NormalizeCounty(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimSuffix(countyTitle.String(strings.ToLower(name)), " County")
	return name + " County"
}

// readCSVRows reads a CSV file into string rows.
func readCSVRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open stats csv %s", path)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // crime exports have ragged trailing columns
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read stats csv %s", path)
	}
	return rows, nil
}

// readXLSXRows reads an XLSX sheet into string rows.
func readXLSXRows(path, sheetName string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open stats xlsx %s", path)
	}

	var sheet *xlsx.Sheet
	if sheetName != "" {
		s, ok := f.Sheet[sheetName]
		if !ok {
			return nil, eris.Errorf("dataset: sheet %q not found in %s", sheetName, path)
		}
		sheet = s
	} else {
		if len(f.Sheets) == 0 {
			return nil, eris.Errorf("dataset: no sheets in %s", path)
		}
		sheet = f.Sheets[0]
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
