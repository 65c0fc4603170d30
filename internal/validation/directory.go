package validation

import (
	"fmt"
	"log/slog"
	"os"

	apperrors "classwatch/internal/errors"
)

// DirectoryValidator checks output locations before a run writes to them.
type DirectoryValidator struct {
	logger *slog.Logger
}

// NewDirectoryValidator creates a validator. A nil logger uses slog.Default.
func NewDirectoryValidator(logger *slog.Logger) *DirectoryValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectoryValidator{logger: logger}
}

// ValidateOutputDirectory ensures dir exists (creating it if needed) and is
// writable. Failures are StorageErrors.
func (v *DirectoryValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError("failed to create output directory", err).
			WithContext("directory", dir)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return apperrors.NewStorageError("failed to stat output directory", err).
			WithContext("directory", dir)
	}
	if !info.IsDir() {
		return apperrors.NewStorageError("output path is not a directory", fmt.Errorf("%s is a file", dir)).
			WithContext("directory", dir)
	}

	probe, err := os.CreateTemp(dir, ".write_test-*")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError("output directory is not writable", err).
			WithContext("directory", dir)
	}
	probe.Close()
	os.Remove(probe.Name())

	v.logger.Debug("Output directory validated", slog.String("directory", dir))
	return nil
}
