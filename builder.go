package docbuild

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/alnah/go-docbuild/internal/dateutil"
	"github.com/alnah/go-docbuild/internal/flow"
	"github.com/alnah/go-docbuild/internal/layout"
	"github.com/alnah/go-docbuild/internal/mermaid"
	"github.com/alnah/go-docbuild/internal/tracker"
)

// Builder orchestrates the markdown-to-PDF pipeline. It owns the headless
// browser and the diagram prompt session, both of which span sequential
// builds; everything else is created fresh per build.
type Builder struct {
	cfg       builderConfig
	markdown  goldmark.Markdown
	diagrams  mermaid.Renderer
	session   *mermaid.Session
	prompter  mermaid.Prompter
	converter pdfConverter
	logger    *log.Logger
}

// NewBuilder creates a Builder with default configuration.
// Use options to customize behavior (e.g., WithTimeout, WithMermaid).
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		cfg: builderConfig{
			timeout: defaultTimeout,
			mermaid: mermaid.DefaultOptions(),
		},
		markdown: goldmark.New(goldmark.WithExtensions(extension.Table)),
		session:  mermaid.NewSession(),
		logger:   log.New(io.Discard),
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.diagrams == nil {
		b.diagrams = mermaid.NewCLIRenderer()
	}
	if b.prompter == nil {
		b.prompter = mermaid.NewStdinPrompter()
	}

	// Create PDF converter if not injected (e.g., by tests)
	if b.converter == nil {
		b.converter = newRodConverter(b.cfg.timeout)
	}

	return b
}

// Build runs the full pipeline for one document and returns the PDF.
// Temporary diagram artifacts are released before Build returns, on success
// and on failure alike.
func (b *Builder) Build(ctx context.Context, input Input) (*BuildResult, error) {
	if strings.TrimSpace(input.Markdown) == "" {
		return nil, ErrEmptyDocument
	}
	page := input.Page
	if page == nil {
		page = DefaultPageSettings()
	}
	if err := page.Validate(); err != nil {
		return nil, err
	}

	meta, body, err := parseFrontMatter(input.Markdown)
	if err != nil {
		return nil, err
	}
	meta = input.Meta.merge(meta)
	if meta.Date == "" {
		meta.Date = "auto"
	}
	meta.Date, err = dateutil.ResolveDate(meta.Date, time.Now())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDate, err)
	}

	tr := tracker.New()
	defer func() {
		for _, err := range tr.ReleaseAll() {
			b.logger.Warn("failed to remove temporary artifact", "error", err)
		}
	}()

	source := []byte(body)
	doc := b.markdown.Parser().Parse(text.NewReader(source))

	var diagrams flow.DiagramRenderer
	if b.cfg.mermaid.Enabled {
		diagrams = mermaid.NewCascade(b.cfg.mermaid, b.diagrams, tr, b.session, b.prompter, b.logger)
	}

	assembler := &flow.Assembler{
		Source:             source,
		Diagrams:           diagrams,
		FallbackToCode:     b.cfg.mermaid.FallbackToCode || !b.cfg.mermaid.Enabled,
		LeftAlignThreshold: b.cfg.leftAlignThreshold,
		Logger:             b.logger,
	}
	blocks, err := assembler.Assemble(ctx, doc, flow.NewBuildContext(tr))
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, ErrEmptyDocument
	}

	if meta.Title == "" {
		meta.Title = firstTopHeading(blocks)
	}

	widthMM, heightMM := page.paper()
	metrics := layout.MetricsFor(widthMM, heightMM,
		(page.MarginLeftMM+page.MarginRightMM)/2,
		(page.MarginTopMM+page.MarginBottomMM)/2)

	paginated, err := layout.Resolve(layout.NewFrameEngine(metrics), blocks)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLayout, err)
	}

	writer := newPageWriter(page, b.cfg.mermaid.MaxWidthPercent)
	htmlContent, err := writer.WriteDocument(paginated, meta)
	if err != nil {
		return nil, err
	}

	pdfBytes, err := b.converter.ToPDF(ctx, htmlContent, page)
	if err != nil {
		return nil, fmt.Errorf("converting to PDF: %w", err)
	}

	return &BuildResult{
		PDF:   pdfBytes,
		Pages: len(paginated.Pages),
		Title: meta.Title,
	}, nil
}

// Close releases resources (headless Chrome browser).
func (b *Builder) Close() error {
	if b.converter != nil {
		return b.converter.Close()
	}
	return nil
}

// firstTopHeading returns the text of the first level-1 heading, the title
// fallback when neither front matter nor configuration names one.
func firstTopHeading(blocks []flow.Block) string {
	for _, blk := range blocks {
		if blk.Kind == flow.KindHeading && blk.Level == 1 {
			return blk.Text
		}
	}
	return ""
}
