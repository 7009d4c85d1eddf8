package validation

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// FileValidator guards the names that cross the transport boundary:
// uploaded source files and requested report downloads.
type FileValidator struct {
	logger            *slog.Logger
	allowedExtensions []string
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger, allowedExtensions []string) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger:            logger,
		allowedExtensions: allowedExtensions,
	}
}

// ValidateUploadName checks that an uploaded filename is safe to store
// and carries a delimited-text extension.
func (v *FileValidator) ValidateUploadName(name string) error {
	if name == "" {
		return fmt.Errorf("filename is required")
	}
	if err := checkTraversal(name); err != nil {
		v.logger.Warn("rejected upload filename",
			slog.String("filename", name),
			slog.String("reason", err.Error()))
		return err
	}

	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range v.allowedExtensions {
		if strings.ToLower(allowed) == ext {
			return nil
		}
	}

	v.logger.Warn("rejected upload extension",
		slog.String("filename", name),
		slog.String("extension", ext))
	return fmt.Errorf("invalid file type %q; only delimited text files are allowed (%s)",
		ext, strings.Join(v.allowedExtensions, ", "))
}

// ValidateReportName checks that a requested download names a report
// artifact and cannot escape the reports directory.
func (v *FileValidator) ValidateReportName(name string) error {
	if name == "" {
		return fmt.Errorf("filename is required")
	}
	if err := checkTraversal(name); err != nil {
		v.logger.Warn("rejected download filename",
			slog.String("filename", name),
			slog.String("reason", err.Error()))
		return err
	}
	if !strings.HasSuffix(strings.ToLower(name), ".xlsx") {
		return fmt.Errorf("invalid file type; only .xlsx reports can be downloaded")
	}
	return nil
}

// checkTraversal rejects path separators, parent references and
// absolute path markers.
func checkTraversal(name string) error {
	switch {
	case strings.Contains(name, ".."):
		return fmt.Errorf("filename must not contain path traversal sequences")
	case strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`):
		return fmt.Errorf("filename must not be an absolute path")
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("filename must not contain path separators")
	case filepath.IsAbs(name):
		return fmt.Errorf("filename must not be an absolute path")
	}
	return nil
}
