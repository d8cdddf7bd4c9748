// Package fsutil reads and writes the small text control files under /sys and /proc that plugins
// use, reporting failures as diagnostics instead of errors. It also writes powermodes' own state
// files.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"

	"powermodes/internal/diag"
	"powermodes/internal/logging"
)

const (
	// DefaultFilePermissions is used when a control file has to be created (only happens in tests,
	// kernel files always exist) and for state files
	DefaultFilePermissions = 0o644
	// DefaultStatePermissions is the permission for state directories
	DefaultStatePermissions = 0o750
)

// ReadText returns the contents of the file at path. On failure it returns onFailure instead.
func ReadText(path string, onFailure diag.Diagnostic, logger *logging.Logger) (string, *diag.Diagnostic) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		logger.Debug("fsutil.read.failed", "Failed to read control file", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return "", &onFailure
	}
	return string(data), nil
}

// WriteText writes contents to the file at path, truncating it. On failure it returns false and
// onFailure.
func WriteText(path, contents string, onFailure diag.Diagnostic, logger *logging.Logger) (bool, *diag.Diagnostic) {
	if err := writeFile(path, contents); err != nil {
		logger.Debug("fsutil.write.failed", "Failed to write control file", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return false, &onFailure
	}

	logger.Debug("fsutil.write", "Control file written", map[string]interface{}{
		"path":  path,
		"bytes": len(contents),
	})
	return true, nil
}

// writeFile writes in a single call because sysfs attributes must be set in one write
func writeFile(path, contents string) error {
	f, err := os.OpenFile(filepath.Clean(path), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, DefaultFilePermissions)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}

	if _, err := f.WriteString(contents); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

// EnsureStateDirectory creates the state directory if it doesn't exist
func EnsureStateDirectory(path string) error {
	if err := os.MkdirAll(path, DefaultStatePermissions); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	return nil
}

// AtomicWriteFile writes data to a temporary file next to path and renames it over path, so
// readers never see a partial file.
func AtomicWriteFile(path string, data []byte, perm os.FileMode, logger *logging.Logger) error {
	tmpPath := path + ".tmp"

	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		if removeErr := os.Remove(tmpPath); removeErr != nil && !os.IsNotExist(removeErr) {
			logger.Warn("fsutil.cleanup_failed", "Failed to remove temp file", map[string]interface{}{
				"path":  tmpPath,
				"error": removeErr.Error(),
			})
		}
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}
