package flow

import (
	"context"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/alnah/go-docbuild/internal/tracker"
)

func parseDoc(t *testing.T, markdown string) (ast.Node, []byte) {
	t.Helper()
	source := []byte(markdown)
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	return md.Parser().Parse(text.NewReader(source)), source
}

func assemble(t *testing.T, a *Assembler, markdown string) []Block {
	t.Helper()
	doc, source := parseDoc(t, markdown)
	a.Source = source
	if a.Logger == nil {
		a.Logger = log.New(io.Discard)
	}
	blocks, err := a.Assemble(context.Background(), doc, NewBuildContext(tracker.New()))
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	return blocks
}

type fakeDiagrams struct {
	path  string
	ok    bool
	calls []string
}

func (f *fakeDiagrams) Render(_ context.Context, source string) (string, bool) {
	f.calls = append(f.calls, source)
	return f.path, f.ok
}

func writeTestPNG(t *testing.T, width, height int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "diagram.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create png: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, width, height))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return path
}

func kindsOf(blocks []Block) []Kind {
	kinds := make([]Kind, len(blocks))
	for i, b := range blocks {
		kinds[i] = b.Kind
	}
	return kinds
}

func TestAssemble_HeadingsGetSequentialAnchors(t *testing.T) {
	t.Parallel()

	blocks := assemble(t, &Assembler{}, "# One\n\n## Two\n\ntext here\n\n# Three\n")

	if blocks[0].Kind != KindTOC {
		t.Fatalf("first block kind = %v, want KindTOC", blocks[0].Kind)
	}
	var anchors []Anchor
	for _, b := range blocks {
		if b.Kind == KindHeading {
			anchors = append(anchors, b.Anchor)
		}
	}
	want := []Anchor{1, 2, 3}
	if len(anchors) != len(want) {
		t.Fatalf("got %d heading anchors, want %d", len(anchors), len(want))
	}
	for i := range want {
		if anchors[i] != want[i] {
			t.Errorf("anchor[%d] = %d, want %d", i, anchors[i], want[i])
		}
	}
}

func TestAssemble_NoHeadingsNoTOC(t *testing.T) {
	t.Parallel()

	blocks := assemble(t, &Assembler{}, "just a paragraph\n\nand another one\n")

	for _, b := range blocks {
		if b.Kind == KindTOC {
			t.Fatal("TOC placeholder emitted for a document without headings")
		}
	}
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2 paragraphs: %v", len(blocks), kindsOf(blocks))
	}
}

func TestAssemble_ManualTOCSectionElided(t *testing.T) {
	t.Parallel()

	md := strings.Join([]string{
		"# Intro",
		"",
		"## Table of Contents",
		"",
		"- [Intro](#intro)",
		"- [Details](#details)",
		"",
		"### Stale subsection",
		"",
		"stale text under the manual listing",
		"",
		"## Details",
		"",
		"real content",
	}, "\n")

	blocks := assemble(t, &Assembler{}, md)

	for _, b := range blocks {
		if b.Kind == KindList {
			t.Error("manual TOC list survived elision")
		}
		if b.Kind == KindHeading && strings.EqualFold(b.Text, "Table of Contents") {
			t.Error("manual TOC heading survived elision")
		}
		if b.Kind == KindHeading && b.Text == "Stale subsection" {
			t.Error("subsection inside manual TOC survived elision")
		}
		if b.Kind == KindParagraph && strings.Contains(b.HTML, "stale text") {
			t.Error("paragraph inside manual TOC survived elision")
		}
	}
	var headings []string
	for _, b := range blocks {
		if b.Kind == KindHeading {
			headings = append(headings, b.Text)
		}
	}
	if len(headings) != 2 || headings[0] != "Intro" || headings[1] != "Details" {
		t.Fatalf("headings = %v, want [Intro Details]", headings)
	}
}

func TestAssemble_OnlyManualTOCHeadingIsKept(t *testing.T) {
	t.Parallel()

	// With no other headings there is no generated TOC, so there is nothing
	// the manual section would duplicate.
	blocks := assemble(t, &Assembler{}, "# Table of Contents\n\n- one\n- two\n")

	if blocks[0].Kind == KindTOC {
		t.Fatal("TOC scheduled for a document whose only heading is a manual TOC title")
	}
	if blocks[0].Kind != KindHeading || !strings.EqualFold(blocks[0].Text, "Table of Contents") {
		t.Fatalf("first block = %+v, want the manual heading kept", blocks[0])
	}
}

func TestAssemble_ParagraphAlignment(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("steadily flowing prose ", 12)
	tests := []struct {
		name          string
		markdown      string
		wantAlignLeft bool
	}{
		{"short paragraph aligns left", "short note\n", true},
		{"long paragraph justifies", long + "\n", false},
		{"two code spans align left", "call `open` then `close` to finish the " + long + "\n", true},
		{"single code span justifies", "only `open` appears in the " + long + "\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			blocks := assemble(t, &Assembler{}, tt.markdown)
			if len(blocks) != 1 || blocks[0].Kind != KindParagraph {
				t.Fatalf("blocks = %v, want one paragraph", kindsOf(blocks))
			}
			if blocks[0].AlignLeft != tt.wantAlignLeft {
				t.Errorf("AlignLeft = %v, want %v", blocks[0].AlignLeft, tt.wantAlignLeft)
			}
		})
	}
}

func TestAssemble_ImageOnlyParagraphSkipped(t *testing.T) {
	t.Parallel()

	blocks := assemble(t, &Assembler{}, "![logo](logo.png)\n\nreal text\n")

	if len(blocks) != 1 || blocks[0].Kind != KindParagraph {
		t.Fatalf("blocks = %v, want only the text paragraph", kindsOf(blocks))
	}
	if strings.Contains(blocks[0].HTML, "logo") {
		t.Errorf("image leaked into paragraph HTML: %q", blocks[0].HTML)
	}
}

func TestAssemble_DiagramRenderedToImage(t *testing.T) {
	t.Parallel()

	path := writeTestPNG(t, 320, 200)
	diagrams := &fakeDiagrams{path: path, ok: true}
	blocks := assemble(t, &Assembler{Diagrams: diagrams},
		"```mermaid\ngraph TD\nA --> B\n```\n")

	if len(blocks) != 1 || blocks[0].Kind != KindImage {
		t.Fatalf("blocks = %v, want one image", kindsOf(blocks))
	}
	if blocks[0].Path != path {
		t.Errorf("Path = %q, want %q", blocks[0].Path, path)
	}
	if blocks[0].Width != 320 || blocks[0].Height != 200 {
		t.Errorf("dimensions = %dx%d, want 320x200", blocks[0].Width, blocks[0].Height)
	}
	if len(diagrams.calls) != 1 || !strings.Contains(diagrams.calls[0], "A --> B") {
		t.Errorf("renderer calls = %q, want the fence body", diagrams.calls)
	}
}

func TestAssemble_DiagramFailureFallsBackToCode(t *testing.T) {
	t.Parallel()

	diagrams := &fakeDiagrams{ok: false}
	blocks := assemble(t, &Assembler{Diagrams: diagrams, FallbackToCode: true},
		"```mermaid\ngraph TD\nA --> B\n```\n")

	if len(blocks) != 1 || blocks[0].Kind != KindCode {
		t.Fatalf("blocks = %v, want one code block", kindsOf(blocks))
	}
	if blocks[0].Lang != "mermaid" {
		t.Errorf("Lang = %q, want mermaid", blocks[0].Lang)
	}
}

func TestAssemble_DiagramFailureWithoutFallbackDropsBlock(t *testing.T) {
	t.Parallel()

	diagrams := &fakeDiagrams{ok: false}
	blocks := assemble(t, &Assembler{Diagrams: diagrams, FallbackToCode: false},
		"before\n\n```mermaid\ngraph TD\n```\n\nafter\n")

	if len(blocks) != 2 {
		t.Fatalf("blocks = %v, want only the two paragraphs", kindsOf(blocks))
	}
}

func TestAssemble_CodeBlockEscapesHTML(t *testing.T) {
	t.Parallel()

	blocks := assemble(t, &Assembler{}, "```go\nif a < b && c > d {\n```\n")

	if len(blocks) != 1 || blocks[0].Kind != KindCode {
		t.Fatalf("blocks = %v, want one code block", kindsOf(blocks))
	}
	got := blocks[0].Lines[0]
	if !strings.Contains(got, "&lt;") || !strings.Contains(got, "&amp;&amp;") {
		t.Errorf("escaped line = %q, want &lt; and &amp;&amp;", got)
	}
	if !strings.Contains(blocks[0].Raw, "a < b") {
		t.Errorf("Raw = %q, want unescaped source preserved", blocks[0].Raw)
	}
}

func TestAssemble_ListAndQuoteAndTable(t *testing.T) {
	t.Parallel()

	md := strings.Join([]string{
		"1. first step",
		"2. second step",
		"",
		"> careful with state",
		"",
		"| Name | Role |",
		"| ---- | ---- |",
		"| ada  | eng  |",
	}, "\n")

	blocks := assemble(t, &Assembler{}, md)
	if got := kindsOf(blocks); len(got) != 3 || got[0] != KindList || got[1] != KindQuote || got[2] != KindTable {
		t.Fatalf("kinds = %v, want [list quote table]", got)
	}

	list := blocks[0]
	if !list.Ordered || len(list.Items) != 2 || list.Items[0] != "first step" {
		t.Errorf("list = %+v, want two ordered items", list)
	}
	if blocks[1].Text != "careful with state" {
		t.Errorf("quote text = %q", blocks[1].Text)
	}
	table := blocks[2]
	if len(table.Rows) != 2 || table.Rows[0][0] != "Name" || table.Rows[1][1] != "eng" {
		t.Errorf("table rows = %v", table.Rows)
	}
}

func TestAssemble_ThematicBreakSkipped(t *testing.T) {
	t.Parallel()

	blocks := assemble(t, &Assembler{}, "above\n\n---\n\nbelow\n")

	if len(blocks) != 2 {
		t.Fatalf("blocks = %v, want two paragraphs", kindsOf(blocks))
	}
}

func TestAssemble_ContextCancellation(t *testing.T) {
	t.Parallel()

	doc, source := parseDoc(t, "# One\n\ntext\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := &Assembler{Source: source, Logger: log.New(io.Discard)}
	if _, err := a.Assemble(ctx, doc, NewBuildContext(tracker.New())); err == nil {
		t.Fatal("Assemble() with cancelled context returned nil error")
	}
}
