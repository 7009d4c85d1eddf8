package exporter

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"csvcompare/internal/dataprocessing"
)

func validatedTable(t *testing.T, name, content, keyColumn string) *dataprocessing.ValidatedTable {
	t.Helper()
	table, diag := dataprocessing.ParseFile(name, []byte(content))
	require.Nil(t, diag)
	validated, diag := dataprocessing.ValidateTable(table, keyColumn)
	require.Nil(t, diag)
	return validated
}

func TestBuildHighlights(t *testing.T) {
	results := map[dataprocessing.SeriesKey]dataprocessing.DifferenceSeries{
		{Column: "v", RefFile: "a.csv", OtherFile: "b.csv"}: {
			{Key: 1, Diff: 5},  // equal to threshold: not highlighted
			{Key: 2, Diff: 6},  // strictly greater: highlighted on both sides
			{Key: 3, Diff: 4.9},
		},
	}

	set := BuildHighlights(results, 5)
	assert.Len(t, set, 2)
	assert.Contains(t, set, HighlightKey{File: "a.csv", Key: 2})
	assert.Contains(t, set, HighlightKey{File: "b.csv", Key: 2})
	assert.NotContains(t, set, HighlightKey{File: "a.csv", Key: 1})
}

func TestComparedColumns(t *testing.T) {
	results := map[dataprocessing.SeriesKey]dataprocessing.DifferenceSeries{
		{Column: "w", RefFile: "a", OtherFile: "b"}: {},
		{Column: "v", RefFile: "a", OtherFile: "b"}: {},
		{Column: "v", RefFile: "a", OtherFile: "c"}: {},
	}
	assert.Equal(t, []string{"v", "w"}, ComparedColumns(results))
	assert.Empty(t, ComparedColumns(nil))
}

func TestReportFileName(t *testing.T) {
	now := time.Date(2026, 8, 31, 14, 5, 9, 0, time.UTC)
	assert.Equal(t, "comparison_report_20260831_140509.xlsx", ReportFileName("comparison_report", now))
}

func TestSanitizeSheetName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain", input: "prices", expected: "prices"},
		{name: "filename characters replaced", input: "q1 report.csv", expected: "q1_report_csv"},
		{name: "truncated with marker", input: strings.Repeat("x", 40), expected: strings.Repeat("x", 27) + "_etc"},
		{name: "multibyte runes survive truncation", input: strings.Repeat("é", 40), expected: strings.Repeat("é", 27) + "_etc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeSheetName(tt.input)
			assert.Equal(t, tt.expected, got)
			assert.True(t, utf8.ValidString(got))
			assert.LessOrEqual(t, utf8.RuneCountInString(got), 31)
		})
	}
}

func TestWriteReport(t *testing.T) {
	tables := []*dataprocessing.ValidatedTable{
		validatedTable(t, "file1.csv", "id,v\n1,10\n2,20\n3,30", "id"),
		validatedTable(t, "file2.csv", "id,v\n1,20\n2,19\n4,99", "id"),
	}
	results, warnings := dataprocessing.CompareTables(tables, "id")
	require.Empty(t, warnings)

	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, WriteReport(path, tables, results, "id", 5))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "file1_csv", "file2_csv"}, f.GetSheetList())

	// Summary parameters mirror the request.
	files, err := f.GetCellValue("Summary", "B2")
	require.NoError(t, err)
	assert.Equal(t, "file1.csv, file2.csv", files)

	keyColumn, err := f.GetCellValue("Summary", "B3")
	require.NoError(t, err)
	assert.Equal(t, "id", keyColumn)

	counts, err := f.GetCellValue("Summary", "B5")
	require.NoError(t, err)
	assert.Equal(t, "file1.csv: 1; file2.csv: 1", counts)

	compared, err := f.GetCellValue("Summary", "B6")
	require.NoError(t, err)
	assert.Equal(t, "v", compared)

	// Every row of each table is written below the header.
	rows, err := f.GetRows("file1_csv")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"id", "v"}, rows[0])

	// id=1 differs by 10 > 5, so that row carries the highlight style
	// while the id=2 row does not.
	flagged, err := f.GetCellStyle("file1_csv", "A2")
	require.NoError(t, err)
	plain, err := f.GetCellStyle("file1_csv", "A3")
	require.NoError(t, err)
	assert.NotEqual(t, plain, flagged)
}

func TestWriteReport_CollidingSheetNames(t *testing.T) {
	// "data.csv" and "data_csv" sanitize to the same sheet name; each
	// table must still get its own sheet with its own rows.
	tables := []*dataprocessing.ValidatedTable{
		validatedTable(t, "data.csv", "id,v\n1,10", "id"),
		validatedTable(t, "data_csv", "id,v\n1,11", "id"),
	}
	results, warnings := dataprocessing.CompareTables(tables, "id")
	require.Empty(t, warnings)

	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, WriteReport(path, tables, results, "id", 5))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "data_csv", "data_csv_2"}, f.GetSheetList())

	first, err := f.GetCellValue("data_csv", "B2")
	require.NoError(t, err)
	assert.Equal(t, "10", first)

	second, err := f.GetCellValue("data_csv_2", "B2")
	require.NoError(t, err)
	assert.Equal(t, "11", second)
}

func TestWriteReport_NoHighlightsAtThreshold(t *testing.T) {
	tables := []*dataprocessing.ValidatedTable{
		validatedTable(t, "file1.csv", "id,v\n1,10\n2,20\n3,30", "id"),
		validatedTable(t, "file2.csv", "id,v\n1,11\n2,19\n4,99", "id"),
	}
	results, warnings := dataprocessing.CompareTables(tables, "id")
	require.Empty(t, warnings)

	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, WriteReport(path, tables, results, "id", 5))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	counts, err := f.GetCellValue("Summary", "B5")
	require.NoError(t, err)
	assert.Equal(t, "file1.csv: 0; file2.csv: 0", counts)
}
