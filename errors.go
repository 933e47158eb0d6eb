package docbuild

import "errors"

// Sentinel errors for library operations.
var (
	ErrEmptyDocument  = errors.New("document content cannot be empty")
	ErrLayout         = errors.New("pagination failed")
	ErrPDFGeneration  = errors.New("PDF generation failed")
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrCoverRender    = errors.New("cover template rendering failed")
	ErrFrontMatter    = errors.New("invalid front matter")
	ErrInvalidDate    = errors.New("invalid date value")

	// Page settings validation errors.
	ErrInvalidPageSize = errors.New("invalid page size")
	ErrInvalidMargin   = errors.New("invalid margin")
)
