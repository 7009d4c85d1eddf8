package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	apierrors "csvcompare/internal/errors"

	"csvcompare/internal/config"
	"csvcompare/internal/dataprocessing"
	"csvcompare/internal/exporter"
	"csvcompare/internal/files"
)

// Pipeline outcome statuses reported in the Response.
const (
	StatusSuccess        = "success"
	StatusPartialSuccess = "partial_success"
	StatusFailed         = "failed"
)

// Request describes one comparison run over previously uploaded files.
type Request struct {
	FileNames       []string `json:"files" validate:"required,min=1,dive,required"`
	OperationColumn string   `json:"operation_column" validate:"required"`
	Threshold       float64  `json:"threshold_value" validate:"gte=0"`
}

// FileSummary reports the shape of one file after initial parsing.
type FileSummary struct {
	FileName    string   `json:"filename"`
	Rows        int      `json:"rows"`
	Columns     int      `json:"columns"`
	ColumnNames []string `json:"column_names"`
}

// ValidatedSummary reports one file that survived key-column validation.
// The operation column is always float64 once validation has coerced it.
type ValidatedSummary struct {
	FileName             string   `json:"filename"`
	Rows                 int      `json:"rows"`
	Columns              int      `json:"columns"`
	NumericColumns       []string `json:"numeric_columns"`
	OperationColumnDtype string   `json:"operation_column_dtype"`
}

// ComparisonEntry is the per-series statistics block of the response.
// Aggregate fields are nil when the series had no finite differences.
type ComparisonEntry struct {
	Column    string   `json:"compared_column"`
	RefFile   string   `json:"reference_file"`
	OtherFile string   `json:"other_file"`
	Rows      int      `json:"rows_compared"`
	Mean      *float64 `json:"mean_difference"`
	Std       *float64 `json:"std_difference"`
	Min       *float64 `json:"min_difference"`
	Max       *float64 `json:"max_difference"`
}

// Response is the full outcome of a comparison run.
type Response struct {
	Status          string                            `json:"status"`
	Message         string                            `json:"message"`
	InitialParsing  []FileSummary                     `json:"initial_parsing_summary"`
	ValidatedFiles  []ValidatedSummary                `json:"validated_files_summary"`
	Comparisons     []ComparisonEntry                 `json:"comparison_summary"`
	ReportFileName  string                            `json:"excel_report_filename,omitempty"`
	Errors          []dataprocessing.ParseDiagnostic  `json:"errors"`
	Warnings        []dataprocessing.Warning          `json:"warnings"`
	OperationColumn string                            `json:"operation_column"`
	Threshold       float64                           `json:"threshold_value"`
}

// CompareService orchestrates the parse, validate, compare and report
// stages over uploaded files.
type CompareService struct {
	config   *config.Config
	files    *files.Manager
	logger   *slog.Logger
	metrics  *Metrics
	validate *validator.Validate

	// now is swappable so report names are deterministic in tests.
	now func() time.Time
}

// NewCompareService creates the pipeline orchestrator.
func NewCompareService(cfg *config.Config, fm *files.Manager, logger *slog.Logger, metrics *Metrics) *CompareService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompareService{
		config:   cfg,
		files:    fm,
		logger:   logger,
		metrics:  metrics,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Process runs the full comparison pipeline. Per-file failures become
// diagnostics in the response rather than errors; the returned error
// is reserved for malformed requests and context cancellation.
func (s *CompareService) Process(ctx context.Context, req Request) (*Response, error) {
	s.metrics.ProcessRequests.Inc()

	if err := s.validate.Struct(req); err != nil {
		return nil, apierrors.InvalidRequestWithError(err)
	}

	logger := s.logger.With(
		slog.String("operation_column", req.OperationColumn),
		slog.Float64("threshold", req.Threshold),
		slog.Int("files", len(req.FileNames)))
	logger.InfoContext(ctx, "comparison run started")

	resp := &Response{
		InitialParsing:  []FileSummary{},
		ValidatedFiles:  []ValidatedSummary{},
		Comparisons:     []ComparisonEntry{},
		Errors:          []dataprocessing.ParseDiagnostic{},
		Warnings:        []dataprocessing.Warning{},
		OperationColumn: req.OperationColumn,
		Threshold:       req.Threshold,
	}
	defer s.cleanupUploads(ctx, req.FileNames)

	parsed, parseDiags, err := s.parseAll(ctx, req.FileNames)
	if err != nil {
		return nil, err
	}
	resp.Errors = append(resp.Errors, parseDiags...)

	var validated []*dataprocessing.ValidatedTable
	for _, table := range parsed {
		resp.InitialParsing = append(resp.InitialParsing, FileSummary{
			FileName:    table.Source,
			Rows:        table.RowCount(),
			Columns:     len(table.Columns),
			ColumnNames: table.ColumnNames(),
		})

		vt, diag := dataprocessing.ValidateTable(table, req.OperationColumn)
		if diag != nil {
			s.metrics.ParseFailures.Inc()
			resp.Errors = append(resp.Errors, *diag)
			continue
		}
		validated = append(validated, vt)
		resp.ValidatedFiles = append(resp.ValidatedFiles, ValidatedSummary{
			FileName:             vt.Source,
			Rows:                 vt.Table.RowCount(),
			Columns:              len(vt.Table.Columns),
			NumericColumns:       vt.NumericColumns,
			OperationColumnDtype: "float64",
		})
	}

	if len(validated) == 0 {
		resp.Status = StatusFailed
		resp.Message = "no files could be processed"
		logger.WarnContext(ctx, "comparison run produced no validated files",
			slog.Int("errors", len(resp.Errors)))
		return resp, nil
	}

	results, warnings := dataprocessing.CompareTables(validated, req.OperationColumn)
	resp.Warnings = append(resp.Warnings, warnings...)
	resp.Comparisons = buildComparisonEntries(results)

	reportName := exporter.ReportFileName(s.config.Pipeline.ReportBaseName, s.now())
	reportPath, err := s.files.ReportPath(reportName)
	if err != nil {
		resp.Warnings = append(resp.Warnings, dataprocessing.Warning{
			Kind:    dataprocessing.WarnReportGenerate,
			Message: fmt.Sprintf("could not prepare report location: %v", err),
		})
	} else if err := exporter.WriteReport(reportPath, validated, results, req.OperationColumn, req.Threshold); err != nil {
		resp.Warnings = append(resp.Warnings, dataprocessing.Warning{
			Kind:    dataprocessing.WarnReportGenerate,
			Message: fmt.Sprintf("failed to generate Excel report: %v", err),
		})
	} else {
		s.metrics.ReportsWritten.Inc()
		resp.ReportFileName = reportName
	}

	switch {
	case len(resp.Errors) > 0 || len(resp.Warnings) > 0:
		resp.Status = StatusPartialSuccess
		resp.Message = "comparison completed with issues"
	default:
		resp.Status = StatusSuccess
		resp.Message = "comparison completed successfully"
	}

	logger.InfoContext(ctx, "comparison run finished",
		slog.String("status", resp.Status),
		slog.Int("validated_files", len(validated)),
		slog.Int("comparisons", len(resp.Comparisons)),
		slog.Int("errors", len(resp.Errors)),
		slog.Int("warnings", len(resp.Warnings)))
	return resp, nil
}

// parseAll reads and parses the named uploads concurrently, bounded by
// the configured worker count. Results preserve request order; files
// that fail contribute a diagnostic instead of a table.
func (s *CompareService) parseAll(ctx context.Context, names []string) ([]*dataprocessing.ParsedTable, []dataprocessing.ParseDiagnostic, error) {
	type slot struct {
		table *dataprocessing.ParsedTable
		diag  *dataprocessing.ParseDiagnostic
	}
	slots := make([]slot, len(names))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	workers := s.config.Pipeline.ParseWorkers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			if !s.files.UploadExists(name) {
				mu.Lock()
				slots[i] = slot{diag: &dataprocessing.ParseDiagnostic{
					Source:  name,
					Message: fmt.Sprintf("file '%s' not found", name),
					Fatal:   true,
				}}
				mu.Unlock()
				return nil
			}

			data, err := s.files.ReadUpload(name)
			if err != nil {
				mu.Lock()
				slots[i] = slot{diag: &dataprocessing.ParseDiagnostic{
					Source:  name,
					Message: fmt.Sprintf("could not read file: %v", err),
					Fatal:   true,
				}}
				mu.Unlock()
				return nil
			}

			table, diag := dataprocessing.ParseFile(name, data)
			mu.Lock()
			slots[i] = slot{table: table, diag: diag}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var tables []*dataprocessing.ParsedTable
	var diags []dataprocessing.ParseDiagnostic
	for _, sl := range slots {
		if sl.diag != nil && sl.diag.Fatal {
			s.metrics.ParseFailures.Inc()
			diags = append(diags, *sl.diag)
			continue
		}
		if sl.table != nil {
			s.metrics.FilesParsed.Inc()
			tables = append(tables, sl.table)
		}
	}
	return tables, diags, nil
}

// cleanupUploads removes the request's uploads after the pipeline has
// run. Failures are logged and never surfaced in the response.
func (s *CompareService) cleanupUploads(ctx context.Context, names []string) {
	for _, name := range names {
		if err := s.files.DeleteUpload(name); err != nil {
			s.logger.WarnContext(ctx, "failed to remove processed upload",
				slog.String("filename", name),
				slog.String("error", err.Error()))
		}
	}
}

// buildComparisonEntries flattens the difference series map into a
// deterministically ordered response block, replacing NaN aggregates
// with nulls.
func buildComparisonEntries(results map[dataprocessing.SeriesKey]dataprocessing.DifferenceSeries) []ComparisonEntry {
	entries := make([]ComparisonEntry, 0, len(results))
	for key, series := range results {
		stats := series.Summarize()
		entries = append(entries, ComparisonEntry{
			Column:    key.Column,
			RefFile:   key.RefFile,
			OtherFile: key.OtherFile,
			Rows:      stats.Rows,
			Mean:      jsonFloat(stats.Mean),
			Std:       jsonFloat(stats.Std),
			Min:       jsonFloat(stats.Min),
			Max:       jsonFloat(stats.Max),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Column != entries[j].Column {
			return entries[i].Column < entries[j].Column
		}
		if entries[i].RefFile != entries[j].RefFile {
			return entries[i].RefFile < entries[j].RefFile
		}
		return entries[i].OtherFile < entries[j].OtherFile
	})
	return entries
}

// jsonFloat converts NaN to nil so the response stays valid JSON.
func jsonFloat(f float64) *float64 {
	if math.IsNaN(f) {
		return nil
	}
	return &f
}
