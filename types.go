package docbuild

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/alnah/go-docbuild/internal/mermaid"
)

// Page size constants.
const (
	PageSizeA4     = "a4"
	PageSizeLetter = "letter"
	PageSizeLegal  = "legal"
)

// Margin bounds in millimeters.
const (
	MinMarginMM = 0
	MaxMarginMM = 100
)

// Physical paper dimensions in millimeters.
var paperSizes = map[string]struct{ widthMM, heightMM float64 }{
	PageSizeA4:     {210, 297},
	PageSizeLetter: {215.9, 279.4},
	PageSizeLegal:  {215.9, 355.6},
}

// PageSettings configures the physical page. Margins are in millimeters and
// apply to the content area the paginator fills; the PDF printer itself runs
// with zero margins because each page is drawn as a full-bleed frame.
type PageSettings struct {
	Size           string // "a4", "letter", "legal"
	MarginTopMM    float64
	MarginRightMM  float64
	MarginBottomMM float64
	MarginLeftMM   float64
}

// DefaultPageSettings returns A4 with the default margins.
func DefaultPageSettings() *PageSettings {
	return &PageSettings{
		Size:           PageSizeA4,
		MarginTopMM:    25,
		MarginRightMM:  20,
		MarginBottomMM: 25,
		MarginLeftMM:   20,
	}
}

// Validate checks that page settings are valid.
// Returns nil if p is nil (nil means use defaults).
func (p *PageSettings) Validate() error {
	if p == nil {
		return nil
	}
	if _, ok := paperSizes[strings.ToLower(p.Size)]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPageSize, p.Size)
	}
	for _, m := range []float64{p.MarginTopMM, p.MarginRightMM, p.MarginBottomMM, p.MarginLeftMM} {
		if m < MinMarginMM || m > MaxMarginMM {
			return fmt.Errorf("%w: %.1fmm (must be between %.0f and %.0f)",
				ErrInvalidMargin, m, float64(MinMarginMM), float64(MaxMarginMM))
		}
	}
	return nil
}

// paper returns the physical dimensions for the configured size.
func (p *PageSettings) paper() (widthMM, heightMM float64) {
	dims, ok := paperSizes[strings.ToLower(p.Size)]
	if !ok {
		dims = paperSizes[PageSizeA4]
	}
	return dims.widthMM, dims.heightMM
}

// Metadata describes the document for the cover page. Zero-valued fields
// fall back in order: front matter, then builder defaults, then derivation
// (title from the first H1, date from today).
type Metadata struct {
	Title    string
	Subtitle string
	Author   string
	Date     string
	Version  string
}

// merge overlays non-empty fields of other on top of m.
func (m Metadata) merge(other Metadata) Metadata {
	if other.Title != "" {
		m.Title = other.Title
	}
	if other.Subtitle != "" {
		m.Subtitle = other.Subtitle
	}
	if other.Author != "" {
		m.Author = other.Author
	}
	if other.Date != "" {
		m.Date = other.Date
	}
	if other.Version != "" {
		m.Version = other.Version
	}
	return m
}

// Input contains the parameters of one document build.
type Input struct {
	Markdown string        // Document content (required)
	Meta     Metadata      // Cover metadata defaults (front matter wins)
	Page     *PageSettings // Page settings (optional, nil = defaults)
}

// BuildResult is the outcome of one successful document build.
type BuildResult struct {
	PDF   []byte
	Pages int    // content pages, cover excluded
	Title string // resolved title after all fallbacks
}

// Option configures a Builder.
type Option func(*Builder)

// builderConfig holds internal configuration for Builder.
type builderConfig struct {
	timeout            time.Duration
	leftAlignThreshold int
	mermaid            mermaid.Options
}

// defaultTimeout is used when no timeout is specified.
const defaultTimeout = 60 * time.Second

// WithTimeout sets the PDF rendering timeout.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("docbuild: WithTimeout duration must be positive")
	}
	return func(b *Builder) {
		b.cfg.timeout = d
	}
}

// WithLeftAlignThreshold sets the paragraph length below which text is
// left-aligned instead of justified. Zero keeps the default.
func WithLeftAlignThreshold(chars int) Option {
	return func(b *Builder) {
		b.cfg.leftAlignThreshold = chars
	}
}

// WithMermaid sets the diagram rendering options.
func WithMermaid(opts mermaid.Options) Option {
	return func(b *Builder) {
		b.cfg.mermaid = opts
	}
}

// WithPrompter overrides the interactive prompter used when a diagram needs
// consent to retry with simplified labels.
func WithPrompter(p mermaid.Prompter) Option {
	return func(b *Builder) {
		b.prompter = p
	}
}

// WithLogger routes pipeline diagnostics to the given logger. The default
// discards them.
func WithLogger(logger *log.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}
