package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "csvcompare/internal/errors"

	"csvcompare/internal/config"
	"csvcompare/internal/dataprocessing"
	"csvcompare/internal/files"
)

func newTestService(t *testing.T) (*CompareService, *files.Manager) {
	t.Helper()

	cfg := &config.Config{
		Paths: config.PathsConfig{
			UploadsDir: "uploads",
			ReportsDir: "processed",
			LogsDir:    "logs",
		},
		Pipeline: config.PipelineConfig{
			MaxUploadSize:     1 << 20,
			ParseWorkers:      2,
			ReportBaseName:    "comparison_report",
			AllowedExtensions: []string{".csv", ".txt", ".tsv", ".tab"},
		},
	}

	paths := config.NewPaths(t.TempDir(), cfg.Paths)
	require.NoError(t, paths.EnsureDirectories())

	fm := files.NewManager(paths)
	svc := NewCompareService(cfg, fm, nil, NewMetrics(prometheus.NewRegistry()))
	svc.now = func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return svc, fm
}

func uploadFixture(t *testing.T, fm *files.Manager, name, content string) {
	t.Helper()
	require.NoError(t, fm.SaveUpload(name, []byte(content)))
}

func TestProcess_Success(t *testing.T) {
	svc, fm := newTestService(t)
	uploadFixture(t, fm, "file1.csv", "id,v\n1,10\n2,20\n3,30\n")
	uploadFixture(t, fm, "file2.csv", "id,v\n1,11\n2,22\n4,44\n")

	resp, err := svc.Process(context.Background(), Request{
		FileNames:       []string{"file1.csv", "file2.csv"},
		OperationColumn: "id",
		Threshold:       5,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, resp.Status)
	assert.Empty(t, resp.Errors)
	assert.Empty(t, resp.Warnings)
	assert.Equal(t, "id", resp.OperationColumn)
	assert.Equal(t, 5.0, resp.Threshold)

	require.Len(t, resp.InitialParsing, 2)
	assert.Equal(t, 3, resp.InitialParsing[0].Rows)
	assert.Equal(t, []string{"id", "v"}, resp.InitialParsing[0].ColumnNames)

	require.Len(t, resp.ValidatedFiles, 2)
	assert.Equal(t, []string{"v"}, resp.ValidatedFiles[0].NumericColumns)
	assert.Equal(t, "float64", resp.ValidatedFiles[0].OperationColumnDtype)

	require.Len(t, resp.Comparisons, 1)
	entry := resp.Comparisons[0]
	assert.Equal(t, "v", entry.Column)
	assert.Equal(t, "file1.csv", entry.RefFile)
	assert.Equal(t, "file2.csv", entry.OtherFile)
	assert.Equal(t, 2, entry.Rows)
	require.NotNil(t, entry.Mean)
	assert.InDelta(t, 1.5, *entry.Mean, 1e-9)

	assert.Equal(t, "comparison_report_20250601_120000.xlsx", resp.ReportFileName)
	assert.True(t, fm.ReportExists(resp.ReportFileName))
}

func TestProcess_RemovesUploadsAfterRun(t *testing.T) {
	svc, fm := newTestService(t)
	uploadFixture(t, fm, "file1.csv", "id,v\n1,10\n")
	uploadFixture(t, fm, "file2.csv", "id,v\n1,11\n")

	_, err := svc.Process(context.Background(), Request{
		FileNames:       []string{"file1.csv", "file2.csv"},
		OperationColumn: "id",
		Threshold:       1,
	})
	require.NoError(t, err)

	assert.False(t, fm.UploadExists("file1.csv"))
	assert.False(t, fm.UploadExists("file2.csv"))
}

func TestProcess_MissingUpload(t *testing.T) {
	svc, fm := newTestService(t)
	uploadFixture(t, fm, "file1.csv", "id,v\n1,10\n2,20\n")

	resp, err := svc.Process(context.Background(), Request{
		FileNames:       []string{"file1.csv", "ghost.csv"},
		OperationColumn: "id",
		Threshold:       5,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPartialSuccess, resp.Status)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "ghost.csv", resp.Errors[0].Source)
	assert.Contains(t, resp.Errors[0].Message, "not found")

	// Only one table validated, so the comparison stage warns and the
	// report still covers the surviving file.
	require.NotEmpty(t, resp.Warnings)
	assert.Equal(t, dataprocessing.WarnSetup, resp.Warnings[0].Kind)
	assert.NotEmpty(t, resp.ReportFileName)
}

func TestProcess_ValidationFailureIsDiagnostic(t *testing.T) {
	svc, fm := newTestService(t)
	uploadFixture(t, fm, "file1.csv", "id,v\n1,10\n2,20\n")
	uploadFixture(t, fm, "file2.csv", "name,v\nalpha,11\nbeta,22\n")

	resp, err := svc.Process(context.Background(), Request{
		FileNames:       []string{"file1.csv", "file2.csv"},
		OperationColumn: "id",
		Threshold:       5,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPartialSuccess, resp.Status)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "file2.csv", resp.Errors[0].Source)
	assert.Contains(t, resp.Errors[0].Message, "not found")
	require.Len(t, resp.ValidatedFiles, 1)
	assert.Equal(t, "file1.csv", resp.ValidatedFiles[0].FileName)
}

func TestProcess_AllFilesFail(t *testing.T) {
	svc, fm := newTestService(t)
	uploadFixture(t, fm, "binary.csv", "ab\x00cd\x00ef")

	resp, err := svc.Process(context.Background(), Request{
		FileNames:       []string{"binary.csv", "absent.csv"},
		OperationColumn: "id",
		Threshold:       5,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, resp.Status)
	assert.Equal(t, "no files could be processed", resp.Message)
	assert.Len(t, resp.Errors, 2)
	assert.Empty(t, resp.ReportFileName)
	assert.Empty(t, resp.ValidatedFiles)
}

func TestProcess_InvalidRequest(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name string
		req  Request
	}{
		{"no files", Request{OperationColumn: "id", Threshold: 1}},
		{"empty file name", Request{FileNames: []string{""}, OperationColumn: "id", Threshold: 1}},
		{"no operation column", Request{FileNames: []string{"a.csv"}, Threshold: 1}},
		{"negative threshold", Request{FileNames: []string{"a.csv"}, OperationColumn: "id", Threshold: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Process(context.Background(), tt.req)
			require.Error(t, err)
			var apiErr *apierrors.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, 400, apiErr.StatusCode)
		})
	}
}

func TestProcess_HighlightScenarioStillSucceeds(t *testing.T) {
	svc, fm := newTestService(t)
	uploadFixture(t, fm, "file1.csv", "id,v\n1,10\n2,20\n3,30\n")
	uploadFixture(t, fm, "file2.csv", "id,v\n1,20\n2,22\n4,44\n")

	resp, err := svc.Process(context.Background(), Request{
		FileNames:       []string{"file1.csv", "file2.csv"},
		OperationColumn: "id",
		Threshold:       5,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, resp.Status)
	require.Len(t, resp.Comparisons, 1)
	require.NotNil(t, resp.Comparisons[0].Max)
	assert.InDelta(t, 10.0, *resp.Comparisons[0].Max, 1e-9)
	assert.True(t, fm.ReportExists(resp.ReportFileName))
}

func TestProcess_CancelledContext(t *testing.T) {
	svc, fm := newTestService(t)
	uploadFixture(t, fm, "file1.csv", "id,v\n1,10\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Process(ctx, Request{
		FileNames:       []string{"file1.csv"},
		OperationColumn: "id",
		Threshold:       1,
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestProcess_ReportDirectoryFailureBecomesWarning(t *testing.T) {
	svc, fm := newTestService(t)
	uploadFixture(t, fm, "file1.csv", "id,v\n1,10\n")
	uploadFixture(t, fm, "file2.csv", "id,v\n1,11\n")

	// Replace the reports directory with a regular file so report
	// writing cannot succeed.
	reportsDir := filepath.Dir(mustReportPath(t, fm))
	require.NoError(t, os.RemoveAll(reportsDir))
	require.NoError(t, os.WriteFile(reportsDir, []byte("x"), 0o644))

	resp, err := svc.Process(context.Background(), Request{
		FileNames:       []string{"file1.csv", "file2.csv"},
		OperationColumn: "id",
		Threshold:       5,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPartialSuccess, resp.Status)
	assert.Empty(t, resp.ReportFileName)
	require.NotEmpty(t, resp.Warnings)
	found := false
	for _, w := range resp.Warnings {
		if w.Kind == dataprocessing.WarnReportGenerate {
			found = true
		}
	}
	assert.True(t, found, "expected a report generation warning")
}

func mustReportPath(t *testing.T, fm *files.Manager) string {
	t.Helper()
	path, err := fm.ReportPath("probe.xlsx")
	require.NoError(t, err)
	return path
}
