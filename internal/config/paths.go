package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths resolves the writable directories the pipeline touches:
// transient uploads, generated report artifacts and log output.
type Paths struct {
	BaseDir    string
	UploadsDir string
	ReportsDir string
	LogsDir    string
}

// NewPaths resolves the configured directories against a base
// directory; absolute configured paths are kept as-is.
func NewPaths(baseDir string, cfg PathsConfig) *Paths {
	resolve := func(dir string) string {
		if filepath.IsAbs(dir) {
			return dir
		}
		return filepath.Join(baseDir, dir)
	}
	return &Paths{
		BaseDir:    baseDir,
		UploadsDir: resolve(cfg.UploadsDir),
		ReportsDir: resolve(cfg.ReportsDir),
		LogsDir:    resolve(cfg.LogsDir),
	}
}

// EnsureDirectories creates every managed directory that is missing.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.UploadsDir, p.ReportsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// UploadPath returns the full path of a stored upload.
func (p *Paths) UploadPath(name string) string {
	return filepath.Join(p.UploadsDir, name)
}

// ReportPath returns the full path of a report artifact.
func (p *Paths) ReportPath(name string) string {
	return filepath.Join(p.ReportsDir, name)
}

// LogPath returns the full path of a log file.
func (p *Paths) LogPath(name string) string {
	return filepath.Join(p.LogsDir, name)
}

// LogPathResolution records where everything resolved to, for startup
// debugging.
func (p *Paths) LogPathResolution() {
	slog.Debug("path resolution",
		slog.String("base_dir", p.BaseDir),
		slog.String("uploads_dir", p.UploadsDir),
		slog.String("reports_dir", p.ReportsDir),
		slog.String("logs_dir", p.LogsDir))
}
