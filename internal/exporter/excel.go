package exporter

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/xuri/excelize/v2"

	"csvcompare/internal/dataprocessing"
)

const (
	summarySheetName = "Summary"

	// maxSheetNameLen is the xlsx sheet name limit.
	maxSheetNameLen = 31
	truncatedSuffix = "_etc"

	highlightFillColor = "FFFF00"
)

// HighlightKey flags one row of one file for visual marking.
type HighlightKey struct {
	File string
	Key  float64
}

// HighlightSet is the full set of (file, key value) rows whose
// difference exceeded the threshold. It is computed once and consumed
// read-only by the renderer.
type HighlightSet map[HighlightKey]struct{}

// BuildHighlights derives the highlight set from the difference
// series. A difference must be strictly greater than the threshold to
// flag a row; equality never highlights. Both sides of the comparison
// are attributed.
func BuildHighlights(results map[dataprocessing.SeriesKey]dataprocessing.DifferenceSeries, threshold float64) HighlightSet {
	set := make(HighlightSet)
	for key, series := range results {
		for _, pair := range series {
			if math.Abs(pair.Diff) > threshold {
				set[HighlightKey{File: key.RefFile, Key: pair.Key}] = struct{}{}
				set[HighlightKey{File: key.OtherFile, Key: pair.Key}] = struct{}{}
			}
		}
	}
	return set
}

// ComparedColumns returns the sorted distinct column names that
// produced at least one difference series.
func ComparedColumns(results map[dataprocessing.SeriesKey]dataprocessing.DifferenceSeries) []string {
	seen := make(map[string]struct{})
	for key := range results {
		seen[key.Column] = struct{}{}
	}
	columns := make([]string, 0, len(seen))
	for name := range seen {
		columns = append(columns, name)
	}
	sort.Strings(columns)
	return columns
}

// ReportFileName builds the unique artifact name for one generation.
func ReportFileName(base string, now time.Time) string {
	return fmt.Sprintf("%s_%s.xlsx", base, now.Format("20060102_150405"))
}

// WriteReport renders the comparison report: a Summary sheet plus one
// sheet per validated table with threshold-exceeding rows filled
// row-wide.
func WriteReport(
	path string,
	tables []*dataprocessing.ValidatedTable,
	results map[dataprocessing.SeriesKey]dataprocessing.DifferenceSeries,
	keyColumn string,
	threshold float64,
) error {
	highlights := BuildHighlights(results, threshold)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), summarySheetName); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := writeSummary(f, tables, results, highlights, keyColumn, threshold); err != nil {
		return err
	}

	highlightStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{highlightFillColor}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create highlight style: %w", err)
	}

	// Sheet names must stay unique after sanitizing or excelize reuses
	// the existing sheet and the later table overwrites the earlier one.
	used := map[string]struct{}{summarySheetName: {}}
	for _, table := range tables {
		sheet := uniqueSheetName(table.Source, used)
		used[sheet] = struct{}{}
		if err := writeTableSheet(f, table, sheet, highlights, keyColumn, highlightStyle); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	slog.Info("comparison report written",
		slog.String("path", path),
		slog.Int("tables", len(tables)),
		slog.Int("highlighted_rows", len(highlights)))
	return nil
}

func writeSummary(
	f *excelize.File,
	tables []*dataprocessing.ValidatedTable,
	results map[dataprocessing.SeriesKey]dataprocessing.DifferenceSeries,
	highlights HighlightSet,
	keyColumn string,
	threshold float64,
) error {
	names := make([]string, len(tables))
	counts := make([]string, len(tables))
	for i, table := range tables {
		names[i] = table.Source
		counts[i] = fmt.Sprintf("%s: %d", table.Source, highlightCount(table, highlights, keyColumn))
	}

	compared := "N/A"
	if columns := ComparedColumns(results); len(columns) > 0 {
		compared = strings.Join(columns, ", ")
	}

	rows := [][]interface{}{
		{"Parameter", "Value"},
		{"Input Files", strings.Join(names, ", ")},
		{"Operation Column", keyColumn},
		{"Threshold Value", threshold},
		{"Total Highlighted Rows per File", strings.Join(counts, "; ")},
		{"Compared Columns", compared},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("failed to address summary row: %w", err)
		}
		if err := f.SetSheetRow(summarySheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}
	return nil
}

func writeTableSheet(
	f *excelize.File,
	table *dataprocessing.ValidatedTable,
	sheet string,
	highlights HighlightSet,
	keyColumn string,
	highlightStyle int,
) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet for %s: %w", table.Source, err)
	}

	header := make([]interface{}, len(table.Table.Columns))
	for i, name := range table.Table.ColumnNames() {
		header[i] = name
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header for %s: %w", table.Source, err)
	}

	key := table.Table.Column(keyColumn)

	for i := 0; i < table.Table.RowCount(); i++ {
		row := make([]interface{}, len(table.Table.Columns))
		for j := range table.Table.Columns {
			col := &table.Table.Columns[j]
			switch {
			case col.IsMissing(i):
				row[j] = nil
			case col.Type == dataprocessing.ColumnNumeric:
				row[j] = col.Floats[i]
			default:
				row[j] = col.Strings[i]
			}
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address row in %s: %w", table.Source, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", table.Source, err)
		}

		// A table without the key column is still written, just never
		// highlighted.
		if key == nil {
			continue
		}
		if _, flagged := highlights[HighlightKey{File: table.Source, Key: key.Floats[i]}]; flagged {
			end, err := excelize.CoordinatesToCellName(len(table.Table.Columns), i+2)
			if err != nil {
				return fmt.Errorf("failed to address highlight in %s: %w", table.Source, err)
			}
			if err := f.SetCellStyle(sheet, cell, end, highlightStyle); err != nil {
				return fmt.Errorf("failed to highlight row in %s: %w", table.Source, err)
			}
		}
	}
	return nil
}

func highlightCount(table *dataprocessing.ValidatedTable, highlights HighlightSet, keyColumn string) int {
	key := table.Table.Column(keyColumn)
	if key == nil {
		return 0
	}
	count := 0
	for _, v := range key.Floats {
		if _, flagged := highlights[HighlightKey{File: table.Source, Key: v}]; flagged {
			count++
		}
	}
	return count
}

// SanitizeSheetName replaces every non-alphanumeric rune with an
// underscore and truncates over-long names with a marker suffix, per
// the xlsx 31-character sheet name limit.
func SanitizeSheetName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	// The sheet name limit counts characters, so truncate over runes;
	// a byte slice could cut a multibyte rune in half.
	safe := []rune(b.String())
	if len(safe) > maxSheetNameLen {
		safe = append(safe[:maxSheetNameLen-len(truncatedSuffix)], []rune(truncatedSuffix)...)
	}
	return string(safe)
}

// uniqueSheetName sanitizes a source name and disambiguates collisions
// with a numeric suffix, keeping the result within the sheet name
// limit.
func uniqueSheetName(source string, used map[string]struct{}) string {
	name := SanitizeSheetName(source)
	if _, taken := used[name]; !taken {
		return name
	}
	for i := 2; ; i++ {
		suffix := fmt.Sprintf("_%d", i)
		candidate := []rune(name)
		if len(candidate)+len(suffix) > maxSheetNameLen {
			candidate = candidate[:maxSheetNameLen-len(suffix)]
		}
		if _, taken := used[string(candidate)+suffix]; !taken {
			return string(candidate) + suffix
		}
	}
}
