package dataprocessing

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const (
	// binaryProbeSize is how many leading bytes are scanned for null
	// bytes before any decode is attempted.
	binaryProbeSize = 1024

	// sampleLineCount is how many raw lines are sampled when checking
	// a multi-column result for spurious splitting.
	sampleLineCount = 5
)

// delimiterCandidates are tried in order when auto-detection fails to
// produce a multi-column table.
var delimiterCandidates = []rune{',', ';', '\t', '|'}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type encodingTrial struct {
	name   string
	decode func([]byte) (string, error)
}

// encodingTrials are ordered most to least likely to detect and strip
// a byte-order marker. The first trial yielding a multi-column table
// wins and later trials stay untried.
var encodingTrials = []encodingTrial{
	{name: "utf-8-sig", decode: decodeUTF8Sig},
	{name: "utf-8", decode: decodeUTF8},
	{name: "latin-1", decode: decodeLatin1},
}

func decodeUTF8Sig(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	return decodeUTF8(data)
}

func decodeUTF8(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("invalid UTF-8 byte sequence")
	}
	return string(data), nil
}

func decodeLatin1(data []byte) (string, error) {
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("latin-1 decode failed: %w", err)
	}
	return string(decoded), nil
}

// ParseFile normalizes one delimited-text file into a ParsedTable.
// It is a pure transform: identical bytes always produce an identical
// table. A non-nil diagnostic is always fatal for the file.
func ParseFile(name string, data []byte) (*ParsedTable, *ParseDiagnostic) {
	if isLikelyBinary(data) {
		return nil, &ParseDiagnostic{
			Source:  name,
			Message: "file appears to be binary or contains null bytes, making it unparseable as delimited text",
			Fatal:   true,
		}
	}

	var (
		best     *ParsedTable
		bestText string
		attempts []string
	)
	for _, trial := range encodingTrials {
		text, err := trial.decode(data)
		if err != nil {
			attempts = append(attempts, fmt.Sprintf("encoding '%s': %v", trial.name, err))
			continue
		}

		candidate, err := parseText(name, text)
		if err != nil {
			attempts = append(attempts, fmt.Sprintf("encoding '%s': %v", trial.name, err))
			continue
		}

		if best == nil || len(candidate.Columns) > len(best.Columns) {
			best = candidate
			bestText = text
		}
		if len(best.Columns) > 1 {
			slog.Debug("multi-column parse found",
				slog.String("file", name),
				slog.String("encoding", trial.name),
				slog.Int("columns", len(best.Columns)))
			break
		}
	}

	if best == nil {
		msg := "could not parse file; tried encodings utf-8-sig, utf-8, latin-1"
		if len(attempts) > 0 {
			msg += ". Specific errors: " + strings.Join(attempts, "; ")
		}
		return nil, &ParseDiagnostic{Source: name, Message: msg, Fatal: true}
	}

	stripHeaderBOM(best)
	best = correctOverSplit(best, bestText)

	if len(best.Columns) == 0 {
		return nil, &ParseDiagnostic{
			Source:  name,
			Message: "parsed as an empty table with no columns; content might be invalid or truly empty",
			Fatal:   true,
		}
	}

	return best, nil
}

// isLikelyBinary reports whether the leading bytes contain a null
// byte, a strong indicator of non-text content.
func isLikelyBinary(data []byte) bool {
	probe := data
	if len(probe) > binaryProbeSize {
		probe = probe[:binaryProbeSize]
	}
	return bytes.IndexByte(probe, 0x00) >= 0
}

// parseText applies the delimiter strategies to decoded text:
// auto-detection first, then header re-splitting per candidate, then a
// direct full parse per candidate, keeping the widest result.
func parseText(name, text string) (*ParsedTable, error) {
	var (
		best     *ParsedTable
		firstErr error
	)

	keep := func(t *ParsedTable) {
		if best == nil || len(t.Columns) > len(best.Columns) {
			best = t
		}
	}

	if delim, ok := sniffDelimiter(text); ok {
		t, err := parseDelimited(name, text, delim)
		if err == nil {
			if len(t.Columns) > 1 {
				return t, nil
			}
			keep(t)
		} else if firstErr == nil {
			firstErr = err
		}
	}

	header := firstLine(text)
	for _, delim := range delimiterCandidates {
		if !strings.ContainsRune(header, delim) || len(strings.Split(header, string(delim))) < 2 {
			continue
		}
		t, err := parseDelimited(name, text, delim)
		if err == nil {
			if len(t.Columns) > 1 {
				return t, nil
			}
			keep(t)
		} else if firstErr == nil {
			firstErr = err
		}
	}

	for _, delim := range delimiterCandidates {
		t, err := parseDelimited(name, text, delim)
		if err == nil {
			if len(t.Columns) > 1 {
				return t, nil
			}
			keep(t)
		} else if firstErr == nil {
			firstErr = err
		}
	}

	if best == nil {
		if firstErr != nil {
			return nil, firstErr
		}
		return nil, fmt.Errorf("no delimiter strategy produced a table")
	}
	return best, nil
}

// sniffDelimiter picks the candidate appearing a consistent, non-zero
// number of times across the first few lines.
func sniffDelimiter(text string) (rune, bool) {
	lines := sampleLines(text, sampleLineCount)
	if len(lines) == 0 {
		return 0, false
	}

	var (
		bestDelim rune
		bestCount int
	)
	for _, delim := range delimiterCandidates {
		count := strings.Count(lines[0], string(delim))
		if count == 0 {
			continue
		}
		consistent := true
		for _, line := range lines[1:] {
			if strings.Count(line, string(delim)) != count {
				consistent = false
				break
			}
		}
		if consistent && count > bestCount {
			bestDelim = delim
			bestCount = count
		}
	}
	return bestDelim, bestCount > 0
}

// parseDelimited parses text with one fixed delimiter. The first
// record is the header; ragged data rows are padded or truncated to
// the header width.
func parseDelimited(name, text string, delim rune) (*ParsedTable, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("delimiter %q: %w", delim, err)
	}
	if len(records) == 0 {
		return &ParsedTable{Source: name}, nil
	}

	header := dedupeHeader(records[0])
	width := len(header)

	rows := make([][]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make([]string, width)
		copy(row, record)
		rows = append(rows, row)
	}

	return &ParsedTable{Source: name, Columns: buildColumns(header, rows)}, nil
}

// dedupeHeader keeps column names unique by suffixing repeats with an
// incrementing ".N", preserving order.
func dedupeHeader(header []string) []string {
	seen := make(map[string]int, len(header))
	out := make([]string, len(header))
	for i, name := range header {
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			out[i] = fmt.Sprintf("%s.%d", name, n)
		} else {
			seen[name] = 1
			out[i] = name
		}
	}
	return out
}

// buildColumns infers each column's type: numeric when every non-empty
// cell parses as a float, text otherwise. Empty numeric cells become NaN.
func buildColumns(header []string, rows [][]string) []Column {
	columns := make([]Column, len(header))
	for j, name := range header {
		numeric := true
		for i := range rows {
			cell := strings.TrimSpace(rows[i][j])
			if cell == "" {
				continue
			}
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				numeric = false
				break
			}
		}

		col := Column{Name: name}
		if numeric {
			col.Type = ColumnNumeric
			col.Floats = make([]float64, len(rows))
			for i := range rows {
				cell := strings.TrimSpace(rows[i][j])
				if cell == "" {
					col.Floats[i] = math.NaN()
					continue
				}
				col.Floats[i], _ = strconv.ParseFloat(cell, 64)
			}
		} else {
			col.Type = ColumnText
			col.Strings = make([]string, len(rows))
			for i := range rows {
				col.Strings[i] = rows[i][j]
			}
		}
		columns[j] = col
	}
	return columns
}

// stripHeaderBOM removes a byte-order-mark character that survived
// decoding into the first column name.
func stripHeaderBOM(t *ParsedTable) {
	if len(t.Columns) > 0 {
		t.Columns[0].Name = strings.TrimPrefix(t.Columns[0].Name, "\uFEFF")
	}
}

// correctOverSplit discards a multi-column result when a sample of the
// raw lines contains none of the delimiter candidates; the split was
// spurious and the content is re-read as a single unnamed column.
func correctOverSplit(t *ParsedTable, text string) *ParsedTable {
	if len(t.Columns) < 2 || t.RowCount() == 0 {
		return t
	}

	sample := strings.Join(sampleLines(text, sampleLineCount), " ")
	for _, delim := range delimiterCandidates {
		if strings.ContainsRune(sample, delim) {
			return t
		}
	}

	slog.Debug("discarding spurious multi-column split",
		slog.String("file", t.Source),
		slog.Int("columns", len(t.Columns)))

	lines := nonEmptyLines(text)
	rows := make([][]string, len(lines))
	for i, line := range lines {
		rows[i] = []string{line}
	}
	return &ParsedTable{
		Source:  t.Source,
		Columns: buildColumns([]string{"data"}, rows),
	}
}

func firstLine(text string) string {
	if idx := strings.IndexAny(text, "\r\n"); idx >= 0 {
		return text[:idx]
	}
	return text
}

func sampleLines(text string, max int) []string {
	lines := nonEmptyLines(text)
	if len(lines) > max {
		lines = lines[:max]
	}
	return lines
}

func nonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
