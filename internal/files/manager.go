package files

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"csvcompare/internal/config"
)

// Manager provides file management for transient uploads and report
// artifacts. Uploads are byte-read by name; reports are written once
// under uniquely generated names, so concurrent requests never race on
// a destination path.
type Manager struct {
	paths *config.Paths
}

// NewManager creates a new file manager instance
func NewManager(paths *config.Paths) *Manager {
	return &Manager{paths: paths}
}

// UploadExists checks whether a stored upload is present. Callers use
// this before reading so a missing file yields a distinguishable "not
// found" diagnostic instead of a bare read error.
func (m *Manager) UploadExists(name string) bool {
	fullPath := m.paths.UploadPath(name)
	_, err := os.Stat(fullPath)
	exists := err == nil

	slog.Debug("upload existence check",
		slog.String("name", name),
		slog.String("full_path", fullPath),
		slog.Bool("exists", exists))

	return exists
}

// ReadUpload reads the entire content of a stored upload.
func (m *Manager) ReadUpload(name string) ([]byte, error) {
	fullPath := m.paths.UploadPath(name)

	slog.Debug("reading upload",
		slog.String("name", name),
		slog.String("full_path", fullPath))

	return os.ReadFile(fullPath)
}

// SaveUpload stores uploaded bytes under the given name.
func (m *Manager) SaveUpload(name string, data []byte) error {
	fullPath := m.paths.UploadPath(name)

	slog.Info("saving upload",
		slog.String("name", name),
		slog.String("full_path", fullPath),
		slog.Int("size_bytes", len(data)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create uploads directory: %w", err)
	}
	return os.WriteFile(fullPath, data, 0644)
}

// DeleteUpload removes a stored upload after the pipeline is done with
// it. Missing files are not an error; the cleanup already happened.
func (m *Manager) DeleteUpload(name string) error {
	fullPath := m.paths.UploadPath(name)

	slog.Debug("deleting upload",
		slog.String("name", name),
		slog.String("full_path", fullPath))

	err := os.Remove(fullPath)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// ReportPath returns the full destination path for a report artifact,
// creating the reports directory if needed.
func (m *Manager) ReportPath(name string) (string, error) {
	if err := os.MkdirAll(m.paths.ReportsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}
	return m.paths.ReportPath(name), nil
}

// ReportExists checks whether a report artifact is present.
func (m *Manager) ReportExists(name string) bool {
	_, err := os.Stat(m.paths.ReportPath(name))
	return err == nil
}

// OpenReport opens a report artifact for serving.
func (m *Manager) OpenReport(name string) (*os.File, error) {
	return os.Open(m.paths.ReportPath(name))
}

// ListReports returns the report artifact names currently on disk.
func (m *Manager) ListReports() ([]string, error) {
	entries, err := os.ReadDir(m.paths.ReportsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}
