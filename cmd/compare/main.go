package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"csvcompare/internal/dataprocessing"
	"csvcompare/internal/exporter"
)

func main() {
	keyColumn := flag.String("key", "", "operation column used to align rows across files (required)")
	threshold := flag.Float64("threshold", 0, "absolute difference above which rows are highlighted")
	outDir := flag.String("out", ".", "output directory for the Excel report")
	baseName := flag.String("base", "comparison_report", "report file name prefix")
	flag.Parse()

	if *keyColumn == "" {
		fmt.Fprintln(os.Stderr, "usage: compare -key <column> [-threshold N] [-out dir] file1.csv file2.csv ...")
		os.Exit(2)
	}
	if *threshold < 0 {
		slog.Error("threshold must not be negative", slog.Float64("threshold", *threshold))
		os.Exit(2)
	}
	paths := flag.Args()
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "no input files given")
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	var validated []*dataprocessing.ValidatedTable
	exitCode := 0

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Error("could not read file", slog.String("path", path), slog.String("error", err.Error()))
			exitCode = 1
			continue
		}

		table, diag := dataprocessing.ParseFile(filepath.Base(path), data)
		if diag != nil && diag.Fatal {
			logger.Error("parse failed", slog.String("file", diag.Source), slog.String("reason", diag.Message))
			exitCode = 1
			continue
		}

		vt, diag := dataprocessing.ValidateTable(table, *keyColumn)
		if diag != nil {
			logger.Error("validation failed", slog.String("file", diag.Source), slog.String("reason", diag.Message))
			exitCode = 1
			continue
		}
		validated = append(validated, vt)
		logger.Info("file accepted",
			slog.String("file", vt.Source),
			slog.Int("rows", vt.Table.RowCount()),
			slog.Any("numeric_columns", vt.NumericColumns))
	}

	if len(validated) == 0 {
		logger.Error("no files could be processed")
		os.Exit(1)
	}

	results, warnings := dataprocessing.CompareTables(validated, *keyColumn)
	for _, w := range warnings {
		logger.Warn(w.Message, slog.String("kind", w.Kind))
	}

	printStats(results)

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		logger.Error("could not create output directory", slog.String("error", err.Error()))
		os.Exit(1)
	}
	reportName := exporter.ReportFileName(*baseName, time.Now())
	reportPath := filepath.Join(*outDir, reportName)
	if err := exporter.WriteReport(reportPath, validated, results, *keyColumn, *threshold); err != nil {
		logger.Error("report generation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Println(reportPath)
	os.Exit(exitCode)
}

func printStats(results map[dataprocessing.SeriesKey]dataprocessing.DifferenceSeries) {
	type entry struct {
		Column    string   `json:"compared_column"`
		RefFile   string   `json:"reference_file"`
		OtherFile string   `json:"other_file"`
		Rows      int      `json:"rows_compared"`
		Mean      *float64 `json:"mean_difference"`
		Std       *float64 `json:"std_difference"`
		Min       *float64 `json:"min_difference"`
		Max       *float64 `json:"max_difference"`
	}
	entries := make([]entry, 0, len(results))
	for key, series := range results {
		stats := series.Summarize()
		entries = append(entries, entry{
			Column:    key.Column,
			RefFile:   key.RefFile,
			OtherFile: key.OtherFile,
			Rows:      stats.Rows,
			Mean:      finite(stats.Mean),
			Std:       finite(stats.Std),
			Min:       finite(stats.Min),
			Max:       finite(stats.Max),
		})
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			slog.Warn("could not print statistics", slog.String("error", err.Error()))
			return
		}
	}
}

// finite drops NaN so the summary stays valid JSON.
func finite(f float64) *float64 {
	if math.IsNaN(f) {
		return nil
	}
	return &f
}
