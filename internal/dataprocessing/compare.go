package dataprocessing

import (
	"fmt"
	"math"
)

// joinedRow pairs a shared key value with the row indices it occupies
// in the reference and other tables.
type joinedRow struct {
	key      float64
	refIdx   int
	otherIdx int
}

// CompareTables computes per-column absolute differences between the
// first (reference) table and every other table, joined on keyColumn.
// Tables are never compared against each other, only against the
// reference. Warnings accumulate and never abort remaining columns or
// pairs, so the result holds every series that could be produced.
func CompareTables(tables []*ValidatedTable, keyColumn string) (map[SeriesKey]DifferenceSeries, []Warning) {
	results := make(map[SeriesKey]DifferenceSeries)
	var warnings []Warning

	if len(tables) < 2 {
		warnings = append(warnings, Warning{
			Kind:    WarnSetup,
			Message: "at least two tables are required for comparison",
		})
		return results, warnings
	}

	ref := tables[0]
	refKey := ref.Table.Column(keyColumn)

	for _, other := range tables[1:] {
		otherKey := other.Table.Column(keyColumn)

		joined := innerJoin(refKey, otherKey)
		if len(joined) == 0 {
			warnings = append(warnings, Warning{
				Kind: WarnMerge,
				Message: fmt.Sprintf(
					"merge of '%s' and '%s' on '%s' resulted in an empty table; no common '%s' values",
					ref.Source, other.Source, keyColumn, keyColumn),
			})
			continue
		}

		for _, colName := range ref.NumericColumns {
			refCol := ref.Table.Column(colName)
			if refCol == nil || refCol.Type != ColumnNumeric {
				warnings = append(warnings, Warning{
					Kind: WarnInternalLogic,
					Message: fmt.Sprintf(
						"reference column '%s' was not found in merged data between '%s' and '%s'; check consistency of the numeric column list",
						colName, ref.Source, other.Source),
				})
				continue
			}

			otherCol := other.Table.Column(colName)
			if otherCol == nil {
				warnings = append(warnings, Warning{
					Kind: WarnColumnMissing,
					Message: fmt.Sprintf(
						"column '%s' (from '%s') did not have a corresponding numeric column in '%s' for comparison",
						colName, ref.Source, other.Source),
				})
				continue
			}
			if otherCol.Type != ColumnNumeric {
				warnings = append(warnings, Warning{
					Kind: WarnDataType,
					Message: fmt.Sprintf(
						"columns for '%s' are not consistently numeric in merged data for '%s' vs '%s'; skipping difference calculation",
						colName, ref.Source, other.Source),
				})
				continue
			}

			series := make(DifferenceSeries, 0, len(joined))
			for _, row := range joined {
				series = append(series, DifferencePair{
					Key:  row.key,
					Diff: math.Abs(refCol.Floats[row.refIdx] - otherCol.Floats[row.otherIdx]),
				})
			}
			results[SeriesKey{Column: colName, RefFile: ref.Source, OtherFile: other.Source}] = series
		}
	}

	return results, warnings
}

// innerJoin matches reference rows to other rows sharing a key value,
// preserving reference row order. Duplicate keys produce one joined
// row per matching pair, as an inner join does.
func innerJoin(refKey, otherKey *Column) []joinedRow {
	if refKey == nil || otherKey == nil {
		return nil
	}

	otherRows := make(map[float64][]int, otherKey.Len())
	for i, v := range otherKey.Floats {
		otherRows[v] = append(otherRows[v], i)
	}

	var joined []joinedRow
	for i, v := range refKey.Floats {
		for _, j := range otherRows[v] {
			joined = append(joined, joinedRow{key: v, refIdx: i, otherIdx: j})
		}
	}
	return joined
}
