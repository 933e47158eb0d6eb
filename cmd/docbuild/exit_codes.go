package main

import (
	"errors"
	"os"

	docbuild "github.com/alnah/go-docbuild"
	"github.com/alnah/go-docbuild/internal/config"
)

// Exit codes for the docbuild CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // All documents built
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or validation
	ExitIO      = 3 // File not found, permission denied
	ExitBrowser = 4 // Browser/Chrome errors
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Browser errors (exit 4)
	if errors.Is(err, docbuild.ErrBrowserConnect) ||
		errors.Is(err, docbuild.ErrPageCreate) ||
		errors.Is(err, docbuild.ErrPageLoad) ||
		errors.Is(err, docbuild.ErrPDFGeneration) {
		return ExitBrowser
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadDocument) ||
		errors.Is(err, ErrWritePDF) ||
		errors.Is(err, ErrNoInput) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, docbuild.ErrEmptyDocument) ||
		errors.Is(err, docbuild.ErrFrontMatter) ||
		errors.Is(err, docbuild.ErrInvalidDate) ||
		errors.Is(err, docbuild.ErrInvalidPageSize) ||
		errors.Is(err, docbuild.ErrInvalidMargin) ||
		errors.Is(err, ErrOutputConflict) {
		return ExitUsage
	}

	return ExitGeneral
}
