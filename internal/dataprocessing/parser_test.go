package dataprocessing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFile_CommaDelimited(t *testing.T) {
	table, diag := ParseFile("basic.csv", []byte("id,value\n1,10\n2,20"))
	require.Nil(t, diag)
	require.NotNil(t, table)

	assert.Equal(t, "basic.csv", table.Source)
	assert.Equal(t, []string{"id", "value"}, table.ColumnNames())
	assert.Equal(t, 2, table.RowCount())

	id := table.Column("id")
	require.NotNil(t, id)
	assert.Equal(t, ColumnNumeric, id.Type)
	assert.Equal(t, []float64{1, 2}, id.Floats)

	value := table.Column("value")
	require.NotNil(t, value)
	assert.Equal(t, ColumnNumeric, value.Type)
	assert.Equal(t, []float64{10, 20}, value.Floats)
}

func TestParseFile_DelimiterEquivalence(t *testing.T) {
	tests := []struct {
		name  string
		delim string
	}{
		{name: "comma", delim: ","},
		{name: "semicolon", delim: ";"},
		{name: "tab", delim: "\t"},
		{name: "pipe", delim: "|"},
	}

	reference, diag := ParseFile("ref.csv", []byte("id,value\n1,10\n2,20"))
	require.Nil(t, diag)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := strings.Join([]string{
				"id" + tt.delim + "value",
				"1" + tt.delim + "10",
				"2" + tt.delim + "20",
			}, "\n")

			table, diag := ParseFile("ref.csv", []byte(content))
			require.Nil(t, diag)
			assert.Equal(t, reference, table)
		})
	}
}

func TestParseFile_Idempotent(t *testing.T) {
	data := []byte("id;value;note\n1;10;first\n2;20;second\n")

	first, diag := ParseFile("twice.csv", data)
	require.Nil(t, diag)
	second, diag := ParseFile("twice.csv", data)
	require.Nil(t, diag)

	assert.Equal(t, first, second)
}

func TestParseFile_HeaderOnly(t *testing.T) {
	table, diag := ParseFile("header.csv", []byte("a,b,c"))
	require.Nil(t, diag)

	assert.Equal(t, []string{"a", "b", "c"}, table.ColumnNames())
	assert.Equal(t, 0, table.RowCount())
}

func TestParseFile_BinaryRejected(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "null byte at start", data: []byte{0x00, 'a', 'b'}},
		{name: "null byte mid-prefix", data: append([]byte("id,value\n1,10"), 0x00)},
		{name: "png-like header", data: []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, diag := ParseFile("blob.csv", tt.data)
			assert.Nil(t, table)
			require.NotNil(t, diag)
			assert.True(t, diag.Fatal)
			assert.Contains(t, diag.Message, "binary")
		})
	}
}

func TestParseFile_NullByteBeyondProbeIgnored(t *testing.T) {
	data := []byte("id,value\n" + strings.Repeat("1,10\n", 300))
	require.Greater(t, len(data), binaryProbeSize)
	data = append(data, 0x00)

	// The probe only covers the leading bytes; a trailing null byte in
	// a large file does not trip the binary check.
	table, diag := ParseFile("big.csv", data)
	require.Nil(t, diag)
	assert.Equal(t, []string{"id", "value"}, table.ColumnNames())
}

func TestParseFile_BOMStripped(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("id,value\n1,10")...)

	table, diag := ParseFile("bom.csv", data)
	require.Nil(t, diag)
	assert.Equal(t, []string{"id", "value"}, table.ColumnNames())
}

func TestStripHeaderBOM(t *testing.T) {
	table := &ParsedTable{
		Source: "bom.csv",
		Columns: []Column{
			{Name: "\uFEFFid", Type: ColumnNumeric, Floats: []float64{1}},
			{Name: "value", Type: ColumnNumeric, Floats: []float64{10}},
		},
	}

	stripHeaderBOM(table)
	assert.Equal(t, []string{"id", "value"}, table.ColumnNames())

	// Only a leading marker on the first column is stripped.
	stripHeaderBOM(table)
	assert.Equal(t, []string{"id", "value"}, table.ColumnNames())
}

func TestParseFile_Latin1Fallback(t *testing.T) {
	// 0xE9 is é in Latin-1 and an invalid byte sequence in UTF-8.
	data := []byte("nom,valeur\ncaf\xe9,10\nth\xe9,20")

	table, diag := ParseFile("latin.csv", data)
	require.Nil(t, diag)
	assert.Equal(t, []string{"nom", "valeur"}, table.ColumnNames())

	nom := table.Column("nom")
	require.NotNil(t, nom)
	assert.Equal(t, ColumnText, nom.Type)
	assert.Equal(t, []string{"café", "thé"}, nom.Strings)
}

func TestParseFile_SingleColumnFallback(t *testing.T) {
	table, diag := ParseFile("plain.txt", []byte("alpha\nbeta\ngamma"))
	require.Nil(t, diag)

	require.Len(t, table.Columns, 1)
	assert.Equal(t, 2, table.RowCount())
}

func TestParseFile_EmptyInput(t *testing.T) {
	table, diag := ParseFile("empty.csv", []byte(""))
	assert.Nil(t, table)
	require.NotNil(t, diag)
	assert.True(t, diag.Fatal)
	assert.Contains(t, diag.Message, "no columns")
}

func TestParseFile_DuplicateHeadersDeduplicated(t *testing.T) {
	table, diag := ParseFile("dup.csv", []byte("a,a,b\n1,2,3"))
	require.Nil(t, diag)
	assert.Equal(t, []string{"a", "a.1", "b"}, table.ColumnNames())
}

func TestParseFile_QuotedFields(t *testing.T) {
	table, diag := ParseFile("quoted.csv", []byte("id,label\n1,\"a, quoted\"\n2,plain"))
	require.Nil(t, diag)

	label := table.Column("label")
	require.NotNil(t, label)
	assert.Equal(t, ColumnText, label.Type)
	assert.Equal(t, []string{"a, quoted", "plain"}, label.Strings)
}

func TestParseFile_RaggedRowsPadded(t *testing.T) {
	table, diag := ParseFile("ragged.csv", []byte("id,value,note\n1,10\n2,20,ok,extra"))
	require.Nil(t, diag)

	assert.Equal(t, []string{"id", "value", "note"}, table.ColumnNames())
	assert.Equal(t, 2, table.RowCount())

	note := table.Column("note")
	require.NotNil(t, note)
	assert.Equal(t, []string{"", "ok"}, note.Strings)
}

func TestParseFile_MissingNumericCellsBecomeNaN(t *testing.T) {
	table, diag := ParseFile("gaps.csv", []byte("id,value\n1,10\n2,\n3,30"))
	require.Nil(t, diag)

	value := table.Column("value")
	require.NotNil(t, value)
	require.Equal(t, ColumnNumeric, value.Type)
	assert.Equal(t, 10.0, value.Floats[0])
	assert.True(t, value.IsMissing(1))
	assert.Equal(t, 30.0, value.Floats[2])
}

func TestSniffDelimiter(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected rune
		found    bool
	}{
		{name: "comma", text: "a,b\n1,2\n3,4", expected: ',', found: true},
		{name: "semicolon", text: "a;b\n1;2", expected: ';', found: true},
		{name: "tab", text: "a\tb\n1\t2", expected: '\t', found: true},
		{name: "pipe", text: "a|b|c\n1|2|3", expected: '|', found: true},
		{name: "no delimiter", text: "alpha\nbeta", found: false},
		{name: "inconsistent counts", text: "a;b\nplain\nrows", found: false},
		{name: "empty", text: "", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delim, ok := sniffDelimiter(tt.text)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.expected, delim)
			}
		})
	}
}

func TestCorrectOverSplit(t *testing.T) {
	// A multi-column table whose raw content shows no delimiter at all
	// must collapse back to a single unnamed column of raw lines.
	spurious := &ParsedTable{
		Source: "plain.txt",
		Columns: []Column{
			{Name: "alpha", Type: ColumnText, Strings: []string{"beta"}},
			{Name: "ghost", Type: ColumnText, Strings: []string{""}},
		},
	}

	corrected := correctOverSplit(spurious, "alpha\nbeta\ngamma")
	require.Len(t, corrected.Columns, 1)
	assert.Equal(t, "data", corrected.Columns[0].Name)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, corrected.Columns[0].Strings)

	// A genuine multi-column table is left alone.
	genuine, diag := ParseFile("real.csv", []byte("a,b\n1,2"))
	require.Nil(t, diag)
	assert.Equal(t, genuine, correctOverSplit(genuine, "a,b\n1,2"))
}
