// Package flow converts a parsed document tree into the ordered sequence of
// typed layout blocks the paginator consumes. Assembly is deterministic and
// strictly in document order; blocks are never mutated once appended.
package flow

import (
	"github.com/alnah/go-docbuild/internal/tracker"
)

// Anchor correlates a heading's logical position with its eventual physical
// page. Anchors are assigned sequentially within one build, starting at 1,
// and are meaningless outside it.
type Anchor int

// AnchorNone marks blocks that carry no navigation anchor.
const AnchorNone Anchor = 0

// PageUnresolved is the sentinel page number of a TOC entry before the
// layout pass that reaches its anchor completes.
const PageUnresolved = 0

// Kind discriminates the Block variants.
type Kind int

const (
	KindHeading Kind = iota
	KindParagraph
	KindCode
	KindQuote
	KindList
	KindTable
	KindImage
	KindTOC
)

// TOCEntry is one line of the generated table of contents.
type TOCEntry struct {
	Level  int
	Text   string
	Page   int // PageUnresolved until pagination resolves it
	Anchor Anchor
}

// Block is a tagged variant over the layout block kinds. Only the fields of
// the active Kind are meaningful. Anchor and TOC metadata are carried as
// explicit fields rather than smuggled through attributes on a generic
// layout object.
type Block struct {
	Kind Kind

	// KindHeading
	Level  int
	Text   string // also the quote text for KindQuote
	Anchor Anchor

	// KindParagraph (inline-rendered rich text)
	HTML      string
	AlignLeft bool // rendering hint: skip justification on sparse paragraphs

	// KindCode
	Lang  string
	Lines []string // HTML-escaped source lines
	Raw   string   // unescaped source, kept for syntax highlighting

	// KindList
	Ordered bool
	Items   []string // inline-rendered item HTML

	// KindTable
	Rows [][]string // Rows[0] is the header row

	// KindImage
	Path          string
	Width, Height int // natural pixel dimensions

	// KindTOC
	Entries []TOCEntry
}

// BuildContext is the per-document build state: the heading/anchor counter
// and the temporary artifact tracker. It is owned by exactly one build
// invocation and never shared across concurrent builds.
type BuildContext struct {
	Tracker  *tracker.Tracker
	headings int
}

// NewBuildContext creates the state for one document build.
func NewBuildContext(tr *tracker.Tracker) *BuildContext {
	return &BuildContext{Tracker: tr}
}

// NextAnchor assigns the next sequential anchor.
func (bc *BuildContext) NextAnchor() Anchor {
	bc.headings++
	return Anchor(bc.headings)
}

// Headings returns the number of anchors assigned so far.
func (bc *BuildContext) Headings() int {
	return bc.headings
}
