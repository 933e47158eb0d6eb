package layout

import (
	"strings"
	"testing"

	"github.com/alnah/go-docbuild/internal/flow"
)

// testMetrics is a deliberately small content box so a handful of blocks
// forces page breaks.
func testMetrics() Metrics {
	return Metrics{ContentWidth: 400, ContentHeight: 200}
}

func paragraph(text string) flow.Block {
	return flow.Block{Kind: flow.KindParagraph, HTML: text}
}

func heading(level int, text string, anchor flow.Anchor) flow.Block {
	return flow.Block{Kind: flow.KindHeading, Level: level, Text: text, Anchor: anchor}
}

func TestFrameEngine_EmptyInput(t *testing.T) {
	t.Parallel()

	_, err := NewFrameEngine(testMetrics()).Layout(nil)
	if err != ErrNoContent {
		t.Fatalf("Layout(nil) error = %v, want ErrNoContent", err)
	}
}

func TestFrameEngine_InvalidMetrics(t *testing.T) {
	t.Parallel()

	e := NewFrameEngine(Metrics{})
	if _, err := e.Layout([]flow.Block{paragraph("x")}); err == nil {
		t.Fatal("Layout() with zero metrics returned nil error")
	}
}

func TestFrameEngine_FillsAndBreaksPages(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("w", 600) // several lines at 400px width
	blocks := []flow.Block{paragraph(long), paragraph(long), paragraph(long)}

	placement, err := NewFrameEngine(testMetrics()).Layout(blocks)
	if err != nil {
		t.Fatalf("Layout() error = %v", err)
	}
	if len(placement.Pages) < 2 {
		t.Fatalf("got %d pages, want at least 2", len(placement.Pages))
	}
	total := 0
	for _, page := range placement.Pages {
		total += len(page)
	}
	if total != len(blocks) {
		t.Errorf("blocks across pages = %d, want %d", total, len(blocks))
	}
}

func TestFrameEngine_HeadingKeepsWithFollower(t *testing.T) {
	t.Parallel()

	// Fill most of page one, then place a heading whose follower cannot
	// start on the same page.
	filler := paragraph(strings.Repeat("w", 400))
	blocks := []flow.Block{
		filler, filler, filler,
		heading(2, "Details", 1),
		paragraph(strings.Repeat("w", 300)),
	}

	placement, err := NewFrameEngine(testMetrics()).Layout(blocks)
	if err != nil {
		t.Fatalf("Layout() error = %v", err)
	}

	headingPage, followerPage := 0, 0
	for i, page := range placement.Pages {
		for _, b := range page {
			switch b.Kind {
			case flow.KindHeading:
				headingPage = i + 1
			case flow.KindParagraph:
				if headingPage != 0 {
					followerPage = i + 1
				}
			}
		}
	}
	if headingPage == 0 || followerPage == 0 {
		t.Fatal("heading or follower missing from placement")
	}
	if headingPage != followerPage {
		t.Errorf("heading on page %d, follower on page %d, want same page", headingPage, followerPage)
	}
	if placement.AnchorPages[1] != headingPage {
		t.Errorf("AnchorPages[1] = %d, want %d", placement.AnchorPages[1], headingPage)
	}
}

func TestFrameEngine_CodeBlockSplitsAcrossPages(t *testing.T) {
	t.Parallel()

	lines := make([]string, 30) // ~500px of code against a 200px page
	for i := range lines {
		lines[i] = "line"
	}
	code := flow.Block{Kind: flow.KindCode, Lang: "go", Lines: lines, Raw: strings.Join(lines, "\n")}

	placement, err := NewFrameEngine(testMetrics()).Layout([]flow.Block{code})
	if err != nil {
		t.Fatalf("Layout() error = %v", err)
	}
	if len(placement.Pages) < 2 {
		t.Fatalf("got %d pages, want the code to split", len(placement.Pages))
	}
	total := 0
	for _, page := range placement.Pages {
		for _, b := range page {
			if b.Kind != flow.KindCode {
				t.Fatalf("unexpected block kind %v among code fragments", b.Kind)
			}
			if b.Lang != "go" {
				t.Errorf("fragment Lang = %q, want go", b.Lang)
			}
			total += len(b.Lines)
		}
	}
	if total != len(lines) {
		t.Errorf("lines across fragments = %d, want %d", total, len(lines))
	}
}

func TestFrameEngine_OversizedImageClamped(t *testing.T) {
	t.Parallel()

	img := flow.Block{Kind: flow.KindImage, Path: "d.png", Width: 300, Height: 5000}
	placement, err := NewFrameEngine(testMetrics()).Layout([]flow.Block{
		paragraph("before"), img, paragraph("after"),
	})
	if err != nil {
		t.Fatalf("Layout() error = %v", err)
	}
	found := false
	for _, page := range placement.Pages {
		for _, b := range page {
			if b.Kind == flow.KindImage {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("image dropped from placement")
	}
}

func TestFrameEngine_TOCHeightGrowsWithEntries(t *testing.T) {
	t.Parallel()

	e := NewFrameEngine(testMetrics())
	small := e.height(flow.Block{Kind: flow.KindTOC, Entries: make([]flow.TOCEntry, 2)})
	large := e.height(flow.Block{Kind: flow.KindTOC, Entries: make([]flow.TOCEntry, 20)})
	if large <= small {
		t.Errorf("height(20 entries) = %v, not greater than height(2 entries) = %v", large, small)
	}
}

func TestMetricsFor(t *testing.T) {
	t.Parallel()

	m := MetricsFor(210, 297, 20, 20) // A4 with 20mm margins
	if m.ContentWidth <= 0 || m.ContentHeight <= 0 {
		t.Fatalf("MetricsFor produced non-positive box: %+v", m)
	}
	if m.ContentWidth >= m.ContentHeight {
		t.Errorf("portrait A4 content box not taller than wide: %+v", m)
	}
}
