package dataprocessing

import "math"

// SeriesStats summarizes one difference series for the response
// payload. Aggregates skip NaN differences; Rows counts every joined
// row, including those whose difference is NaN.
type SeriesStats struct {
	Rows int     `json:"rows_compared"`
	Mean float64 `json:"mean_difference"`
	Std  float64 `json:"std_difference"`
	Min  float64 `json:"min_difference"`
	Max  float64 `json:"max_difference"`
}

// Summarize computes the descriptive statistics of the series. Std is
// the sample standard deviation; it is NaN for fewer than two values.
func (s DifferenceSeries) Summarize() SeriesStats {
	stats := SeriesStats{Rows: len(s)}

	var values []float64
	for _, pair := range s {
		if !math.IsNaN(pair.Diff) {
			values = append(values, pair.Diff)
		}
	}
	if len(values) == 0 {
		stats.Mean = math.NaN()
		stats.Std = math.NaN()
		stats.Min = math.NaN()
		stats.Max = math.NaN()
		return stats
	}

	sum := 0.0
	stats.Min = values[0]
	stats.Max = values[0]
	for _, v := range values {
		sum += v
		stats.Min = math.Min(stats.Min, v)
		stats.Max = math.Max(stats.Max, v)
	}
	stats.Mean = sum / float64(len(values))

	if len(values) < 2 {
		stats.Std = math.NaN()
		return stats
	}
	sq := 0.0
	for _, v := range values {
		d := v - stats.Mean
		sq += d * d
	}
	stats.Std = math.Sqrt(sq / float64(len(values)-1))
	return stats
}
