// Package layout paginates a block sequence onto fixed-size pages and
// resolves the table of contents through a bounded multi-pass protocol.
// The engine works on estimated block heights; it never talks to a browser.
package layout

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/alnah/go-docbuild/internal/flow"
)

// ErrNoContent indicates a layout request with an empty block sequence.
var ErrNoContent = errors.New("no content to lay out")

// Engine places blocks onto pages. Callers treat it as opaque: the resolver
// only consumes the placement, never the engine's internals.
type Engine interface {
	Layout(blocks []flow.Block) (*Placement, error)
}

// Placement is one full pagination of a document.
type Placement struct {
	Pages       [][]flow.Block
	AnchorPages map[flow.Anchor]int // 1-based page per heading anchor
}

// pixels per millimeter at CSS resolution (96 dpi).
const pxPerMM = 96.0 / 25.4

// Metrics is the usable content box of one page, in CSS pixels.
type Metrics struct {
	ContentWidth  float64
	ContentHeight float64
}

// MetricsFor derives the content box from physical page dimensions and
// margins, all in millimeters.
func MetricsFor(pageWidthMM, pageHeightMM, marginHorizontalMM, marginVerticalMM float64) Metrics {
	return Metrics{
		ContentWidth:  (pageWidthMM - 2*marginHorizontalMM) * pxPerMM,
		ContentHeight: (pageHeightMM - 2*marginVerticalMM) * pxPerMM,
	}
}

// Typographic constants matching the page stylesheet. Estimates only need to
// be consistent between passes, not pixel-exact.
const (
	bodyLineHeight  = 19.2 // 12px * 1.6
	codeLineHeight  = 16.8 // 11px * ~1.5 monospace
	blockSpacing    = 10.0 // vertical margin between blocks
	avgCharWidth    = 6.6  // body font average glyph advance
	codeCharWidth   = 6.8
	codePadding     = 18.0 // code frame top+bottom padding
	quotePadding    = 12.0
	tableRowHeight  = 26.0
	tocTitleHeight  = 44.0
	tocEntryHeight  = 22.0
	imageMaxPortion = 0.9 // image height cap as a share of the content box

	// Minimum lines kept together when a code block splits across pages.
	minCodeSplit = 3
)

func headingHeight(level int) float64 {
	switch level {
	case 1:
		return 48.0
	case 2:
		return 38.0
	case 3:
		return 30.0
	default:
		return 26.0
	}
}

// FrameEngine estimates block heights from the page metrics and fills pages
// top to bottom. It is deterministic: the same blocks always produce the
// same placement.
type FrameEngine struct {
	Metrics Metrics
}

// NewFrameEngine builds an engine for the given content box.
func NewFrameEngine(m Metrics) *FrameEngine {
	return &FrameEngine{Metrics: m}
}

// Layout paginates the sequence. Headings keep with the start of the block
// that follows them; code blocks taller than the remaining space split
// across pages.
func (e *FrameEngine) Layout(blocks []flow.Block) (*Placement, error) {
	if len(blocks) == 0 {
		return nil, ErrNoContent
	}
	if e.Metrics.ContentHeight <= 0 || e.Metrics.ContentWidth <= 0 {
		return nil, fmt.Errorf("invalid page metrics: %+v", e.Metrics)
	}

	p := &pager{
		engine:  e,
		anchors: make(map[flow.Anchor]int),
	}

	for i := 0; i < len(blocks); i++ {
		b := blocks[i]
		if b.Kind == flow.KindHeading {
			p.placeHeading(b, e.followerLead(blocks, i+1))
			continue
		}
		p.place(b)
	}
	p.flush()

	return &Placement{Pages: p.pages, AnchorPages: p.anchors}, nil
}

// followerLead is the height the block after a heading needs to start, so a
// heading never strands at the bottom of a page.
func (e *FrameEngine) followerLead(blocks []flow.Block, next int) float64 {
	if next >= len(blocks) {
		return 0
	}
	b := blocks[next]
	if b.Kind == flow.KindCode {
		return codePadding + minCodeSplit*codeLineHeight
	}
	lead := e.height(b)
	if lead > 3*bodyLineHeight {
		lead = 3 * bodyLineHeight
	}
	return lead
}

// height estimates the rendered height of one block in CSS pixels.
func (e *FrameEngine) height(b flow.Block) float64 {
	switch b.Kind {
	case flow.KindHeading:
		return headingHeight(b.Level) + blockSpacing
	case flow.KindParagraph:
		return e.textHeight(visibleLength(b.HTML), avgCharWidth, bodyLineHeight) + blockSpacing
	case flow.KindCode:
		return float64(len(b.Lines))*codeLineHeight + codePadding + blockSpacing
	case flow.KindQuote:
		return e.textHeight(len(b.Text), avgCharWidth, bodyLineHeight) + quotePadding + blockSpacing
	case flow.KindList:
		var h float64
		for _, item := range b.Items {
			h += e.textHeight(visibleLength(item), avgCharWidth, bodyLineHeight)
		}
		return h + blockSpacing
	case flow.KindTable:
		return float64(len(b.Rows))*tableRowHeight + blockSpacing
	case flow.KindImage:
		return e.imageHeight(b) + blockSpacing
	case flow.KindTOC:
		return tocTitleHeight + float64(len(b.Entries))*tocEntryHeight + blockSpacing
	default:
		return bodyLineHeight + blockSpacing
	}
}

func (e *FrameEngine) textHeight(chars int, charWidth, lineHeight float64) float64 {
	if chars <= 0 {
		return lineHeight
	}
	perLine := math.Max(1, e.Metrics.ContentWidth/charWidth)
	lines := math.Ceil(float64(chars) / perLine)
	return lines * lineHeight
}

// imageHeight scales the natural dimensions to fit the content width, then
// caps the result so a tall diagram still fits on one page.
func (e *FrameEngine) imageHeight(b flow.Block) float64 {
	if b.Width <= 0 || b.Height <= 0 {
		return bodyLineHeight
	}
	h := float64(b.Height)
	if float64(b.Width) > e.Metrics.ContentWidth {
		h *= e.Metrics.ContentWidth / float64(b.Width)
	}
	return math.Min(h, e.Metrics.ContentHeight*imageMaxPortion)
}

// visibleLength approximates the rendered character count of an HTML
// fragment by dropping tags.
func visibleLength(fragment string) int {
	n, inTag := 0, false
	for _, r := range fragment {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			n++
		}
	}
	return n
}

// pager is the mutable fill state of one Layout call.
type pager struct {
	engine  *FrameEngine
	pages   [][]flow.Block
	current []flow.Block
	used    float64
	anchors map[flow.Anchor]int
}

func (p *pager) remaining() float64 {
	return p.engine.Metrics.ContentHeight - p.used
}

// pageNumber is the 1-based number of the page being filled.
func (p *pager) pageNumber() int {
	return len(p.pages) + 1
}

func (p *pager) breakPage() {
	if len(p.current) == 0 {
		return
	}
	p.pages = append(p.pages, p.current)
	p.current = nil
	p.used = 0
}

func (p *pager) flush() {
	if len(p.current) > 0 {
		p.pages = append(p.pages, p.current)
		p.current = nil
	}
}

func (p *pager) append(b flow.Block, h float64) {
	p.current = append(p.current, b)
	p.used += h
}

// place puts one block on the current page, breaking or splitting as needed.
func (p *pager) place(b flow.Block) {
	h := p.engine.height(b)
	if h <= p.remaining() {
		p.append(b, h)
		return
	}
	if b.Kind == flow.KindCode && p.splitCode(b) {
		return
	}
	p.breakPage()
	// An oversized block still occupies a page of its own.
	p.append(b, math.Min(h, p.engine.Metrics.ContentHeight))
}

// placeHeading keeps the heading attached to the start of what follows it.
func (p *pager) placeHeading(b flow.Block, followerLead float64) {
	h := p.engine.height(b)
	if h+followerLead > p.remaining() {
		p.breakPage()
	}
	p.append(b, h)
	if b.Anchor != flow.AnchorNone {
		p.anchors[b.Anchor] = p.pageNumber()
	}
}

// splitCode carves the leading lines that fit into the remaining space and
// pushes the rest onto following pages. Splits below minCodeSplit lines are
// not worth the torn frame.
func (p *pager) splitCode(b flow.Block) bool {
	fit := int((p.remaining() - codePadding - blockSpacing) / codeLineHeight)
	if fit < minCodeSplit || fit >= len(b.Lines) {
		return false
	}

	head := b
	head.Lines = b.Lines[:fit]
	head.Raw = rawSlice(b.Raw, 0, fit)
	p.append(head, p.remaining())
	p.breakPage()

	tail := b
	tail.Lines = b.Lines[fit:]
	tail.Raw = rawSlice(b.Raw, fit, len(b.Lines))
	p.place(tail)
	return true
}

func rawSlice(raw string, from, to int) string {
	lines := strings.Split(raw, "\n")
	if from >= len(lines) {
		return ""
	}
	if to > len(lines) {
		to = len(lines)
	}
	return strings.Join(lines[from:to], "\n")
}
