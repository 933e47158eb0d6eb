package flow

import (
	"context"
	"html"
	"image"
	"io"
	"os"
	"strings"

	_ "image/jpeg" // artifact dimension probing
	_ "image/png"

	"github.com/charmbracelet/log"
	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"
)

// DiagramRenderer turns a diagram source into an image artifact path.
// ok=false means the caller must fall back to a literal code block.
type DiagramRenderer interface {
	Render(ctx context.Context, source string) (path string, ok bool)
}

// diagramLanguage is the fence info string that routes a code block through
// the diagram renderer.
const diagramLanguage = "mermaid"

// manualTOCTitle is the heading title that marks a hand-written table of
// contents section, compared case-insensitively.
const manualTOCTitle = "table of contents"

// DefaultLeftAlignThreshold is the paragraph length under which justified
// alignment produces visually sparse lines. Preserved as a configurable
// default, not a correctness constraint.
const DefaultLeftAlignThreshold = 150

// Assembler maps parsed tree nodes one-to-one onto layout blocks.
type Assembler struct {
	Source             []byte          // the markdown the tree's segments point into
	Diagrams           DiagramRenderer // nil disables diagram rendering
	FallbackToCode     bool            // render failed diagrams as code blocks
	LeftAlignThreshold int             // 0 = DefaultLeftAlignThreshold
	Logger             *log.Logger
}

// Assemble walks the parsed document tree in order and emits the block
// sequence. Headings receive fresh sequential anchors from the build
// context. A TOC placeholder is prepended exactly when the document will
// emit at least one heading. Structurally-invalid sub-trees are skipped.
func (a *Assembler) Assemble(ctx context.Context, doc ast.Node, bc *BuildContext) ([]Block, error) {
	logger := a.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	threshold := a.LeftAlignThreshold
	if threshold <= 0 {
		threshold = DefaultLeftAlignThreshold
	}

	tocScheduled := a.hasContentHeadings(doc)

	var blocks []Block
	elideLevel := 0 // >0 while skipping a manual TOC section

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if h, isHeading := n.(*ast.Heading); isHeading {
			title := strings.TrimSpace(textOf(h, a.Source))

			if elideLevel > 0 && h.Level > elideLevel {
				continue // still inside the elided manual TOC section
			}
			elideLevel = 0

			if tocScheduled && strings.EqualFold(title, manualTOCTitle) {
				elideLevel = h.Level
				logger.Debug("suppressed manual table of contents section")
				continue
			}

			blocks = append(blocks, Block{
				Kind:   KindHeading,
				Level:  h.Level,
				Text:   title,
				Anchor: bc.NextAnchor(),
			})
			continue
		}

		if elideLevel > 0 {
			continue
		}

		switch v := n.(type) {
		case *ast.Paragraph:
			if b, ok := a.paragraphBlock(v, threshold); ok {
				blocks = append(blocks, b)
			}
		case *ast.FencedCodeBlock:
			blocks = append(blocks, a.fencedBlock(ctx, v, logger)...)
		case *ast.CodeBlock:
			blocks = append(blocks, a.codeBlock("", blockLines(v, a.Source)))
		case *ast.Blockquote:
			if text := strings.TrimSpace(textOf(v, a.Source)); text != "" {
				blocks = append(blocks, Block{Kind: KindQuote, Text: text})
			}
		case *ast.List:
			if b, ok := a.listBlock(v); ok {
				blocks = append(blocks, b)
			}
		case *east.Table:
			if b, ok := a.tableBlock(v); ok {
				blocks = append(blocks, b)
			}
		default:
			// Thematic breaks, raw HTML blocks and anything unrecognized
			// carry no layout content.
		}
	}

	if tocScheduled {
		blocks = append([]Block{{Kind: KindTOC}}, blocks...)
	}
	return blocks, nil
}

// hasContentHeadings reports whether the document contains at least one
// heading that is not a manual TOC title, which is exactly the condition for
// scheduling a generated TOC.
func (a *Assembler) hasContentHeadings(doc ast.Node) bool {
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(textOf(h, a.Source)), manualTOCTitle) {
			return true
		}
	}
	return false
}

// paragraphBlock renders a paragraph's rich text. Paragraphs that contain
// only an image carry no flowable text and are skipped.
func (a *Assembler) paragraphBlock(p *ast.Paragraph, threshold int) (Block, bool) {
	htmlText, codeSpans := renderInline(p, a.Source)
	if strings.TrimSpace(stripBreakTags(htmlText)) == "" {
		return Block{}, false
	}

	// Dense inline code defeats justification; so do short paragraphs.
	alignLeft := false
	if codeSpans > 0 {
		alignLeft = codeSpans >= 2
	} else {
		alignLeft = len(htmlText) < threshold
	}

	return Block{Kind: KindParagraph, HTML: htmlText, AlignLeft: alignLeft}, true
}

// fencedBlock routes diagram fences through the render cascade and turns
// everything else into literal code blocks.
func (a *Assembler) fencedBlock(ctx context.Context, f *ast.FencedCodeBlock, logger *log.Logger) []Block {
	lang := string(f.Language(a.Source))
	lines := blockLines(f, a.Source)

	if lang != diagramLanguage || a.Diagrams == nil {
		return []Block{a.codeBlock(lang, lines)}
	}

	source := strings.Join(lines, "\n")
	if path, ok := a.Diagrams.Render(ctx, source); ok {
		if img, err := imageBlock(path); err == nil {
			return []Block{img}
		} else {
			logger.Warn("unreadable diagram artifact, falling back to code", "error", err)
		}
	}
	if a.FallbackToCode {
		return []Block{a.codeBlock(diagramLanguage, lines)}
	}
	logger.Warn("diagram dropped: rendering failed and code fallback is disabled")
	return nil
}

// codeBlock builds a literal code block with HTML-unsafe characters escaped.
func (a *Assembler) codeBlock(lang string, lines []string) Block {
	escaped := make([]string, len(lines))
	for i, line := range lines {
		escaped[i] = html.EscapeString(line)
	}
	return Block{
		Kind:  KindCode,
		Lang:  lang,
		Lines: escaped,
		Raw:   strings.Join(lines, "\n"),
	}
}

// listBlock renders each top-level item's inline content. Nested structures
// flatten into their parent item.
func (a *Assembler) listBlock(l *ast.List) (Block, bool) {
	var items []string
	for li := l.FirstChild(); li != nil; li = li.NextSibling() {
		var parts []string
		for c := li.FirstChild(); c != nil; c = c.NextSibling() {
			if htmlText, _ := renderInline(c, a.Source); strings.TrimSpace(htmlText) != "" {
				parts = append(parts, htmlText)
			}
		}
		if len(parts) > 0 {
			items = append(items, strings.Join(parts, "<br/>"))
		}
	}
	if len(items) == 0 {
		return Block{}, false
	}
	return Block{Kind: KindList, Ordered: l.IsOrdered(), Items: items}, true
}

// tableBlock extracts cell text row by row; the header row comes first.
func (a *Assembler) tableBlock(t *east.Table) (Block, bool) {
	var rows [][]string
	for section := t.FirstChild(); section != nil; section = section.NextSibling() {
		switch row := section.(type) {
		case *east.TableHeader:
			rows = append(rows, a.tableCells(row))
		case *east.TableRow:
			rows = append(rows, a.tableCells(row))
		}
	}
	if len(rows) == 0 {
		return Block{}, false
	}
	return Block{Kind: KindTable, Rows: rows}, true
}

func (a *Assembler) tableCells(row ast.Node) []string {
	var cells []string
	for c := row.FirstChild(); c != nil; c = c.NextSibling() {
		cells = append(cells, strings.TrimSpace(textOf(c, a.Source)))
	}
	return cells
}

// blockLines extracts the raw source lines of a code block node.
func blockLines(n ast.Node, source []byte) []string {
	segments := n.Lines()
	lines := make([]string, 0, segments.Len())
	for i := 0; i < segments.Len(); i++ {
		seg := segments.At(i)
		lines = append(lines, strings.TrimRight(string(seg.Value(source)), "\n"))
	}
	return lines
}

// imageBlock reads the artifact's natural dimensions.
func imageBlock(path string) (Block, error) {
	f, err := os.Open(path) // #nosec G304 -- cascade-produced artifact path
	if err != nil {
		return Block{}, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return Block{}, err
	}
	return Block{Kind: KindImage, Path: path, Width: cfg.Width, Height: cfg.Height}, nil
}

// stripBreakTags removes explicit break tags so emptiness checks see only
// real text.
func stripBreakTags(s string) string {
	return strings.ReplaceAll(s, "<br/>", "")
}
