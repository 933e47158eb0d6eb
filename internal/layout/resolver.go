package layout

import (
	"fmt"

	"github.com/alnah/go-docbuild/internal/flow"
)

// State names the resolver's pagination phases. The protocol is bounded:
// exactly one pass for documents without a generated TOC, exactly two
// otherwise.
type State int

const (
	StateLayoutPass State = iota // first pagination with unresolved TOC pages
	StateBackfill                // copy anchor pages into the TOC entries
	StateFinalPass               // repaginate with resolved entries
	StateDone
)

func (s State) String() string {
	switch s {
	case StateLayoutPass:
		return "layout_pass"
	case StateBackfill:
		return "backfill"
	case StateFinalPass:
		return "final_pass"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Document is a fully paginated document with a resolved table of contents.
// Entries is nil when the document has no generated TOC.
type Document struct {
	Pages   [][]flow.Block
	Entries []flow.TOCEntry
}

// Resolve paginates the block sequence and fixes up the table of contents.
//
// The TOC block's height depends only on its entry count, which is fixed
// before the first pass. Backfilled page numbers therefore never change any
// block's size, so the second pagination converges: it exists to re-record
// anchor pages in case the first pass placed the placeholder differently
// than instinct suggests, and its numbers are written back into the entries
// the final pages share.
func Resolve(engine Engine, blocks []flow.Block) (*Document, error) {
	entries := headingEntries(blocks)
	tocIdx := tocIndex(blocks)
	if len(entries) == 0 || tocIdx < 0 {
		// No headings, or headings without a placeholder (the assembler
		// withholds one when the only heading titles a hand-written table
		// of contents): a single pass is already final.
		placement, err := engine.Layout(blocks)
		if err != nil {
			return nil, err
		}
		return &Document{Pages: placement.Pages}, nil
	}

	// Callers keep their block slice untouched; the entries attach to a copy.
	blocks = append(make([]flow.Block, 0, len(blocks)), blocks...)
	blocks[tocIdx].Entries = entries

	var placement *Placement
	for state := StateLayoutPass; state != StateDone; {
		switch state {
		case StateLayoutPass:
			p, err := engine.Layout(blocks)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", state, err)
			}
			placement = p
			state = StateBackfill

		case StateBackfill:
			backfill(entries, placement.AnchorPages)
			state = StateFinalPass

		case StateFinalPass:
			p, err := engine.Layout(blocks)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", state, err)
			}
			placement = p
			backfill(entries, placement.AnchorPages)
			state = StateDone
		}
	}

	return &Document{Pages: placement.Pages, Entries: entries}, nil
}

// headingEntries builds the unresolved TOC entries in document order.
func headingEntries(blocks []flow.Block) []flow.TOCEntry {
	var entries []flow.TOCEntry
	for _, b := range blocks {
		if b.Kind != flow.KindHeading {
			continue
		}
		entries = append(entries, flow.TOCEntry{
			Level:  b.Level,
			Text:   b.Text,
			Page:   flow.PageUnresolved,
			Anchor: b.Anchor,
		})
	}
	return entries
}

func tocIndex(blocks []flow.Block) int {
	for i, b := range blocks {
		if b.Kind == flow.KindTOC {
			return i
		}
	}
	return -1
}

// backfill writes each anchor's resolved page into its entry. Anchors the
// placement never saw stay unresolved rather than pointing at a wrong page.
func backfill(entries []flow.TOCEntry, anchorPages map[flow.Anchor]int) {
	for i := range entries {
		if page, ok := anchorPages[entries[i].Anchor]; ok {
			entries[i].Page = page
		}
	}
}
