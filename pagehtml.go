package docbuild

import (
	"fmt"
	"html"
	"html/template"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/alnah/go-docbuild/internal/assets"
	"github.com/alnah/go-docbuild/internal/flow"
	"github.com/alnah/go-docbuild/internal/layout"
)

// pxPerMM converts millimeters to CSS pixels at 96 dpi.
const pxPerMM = 96.0 / 25.4

// codeStyleName is the chroma style applied inside code frames.
const codeStyleName = "monokai"

// pageWriter turns a paginated document into a single self-contained HTML
// string of fixed-size page frames. The PDF printer runs with zero margins;
// every margin, footer and page number here is drawn inside the frames.
type pageWriter struct {
	page            *PageSettings
	imageWidthPct   int
	codeFormatter   *chromahtml.Formatter
	codeChromaStyle *chroma.Style
}

func newPageWriter(page *PageSettings, imageWidthPct int) *pageWriter {
	if page == nil {
		page = DefaultPageSettings()
	}
	if imageWidthPct <= 0 || imageWidthPct > 100 {
		imageWidthPct = 90
	}
	style := styles.Get(codeStyleName)
	if style == nil {
		style = styles.Fallback
	}
	return &pageWriter{
		page:            page,
		imageWidthPct:   imageWidthPct,
		codeFormatter:   chromahtml.New(chromahtml.WithClasses(false), chromahtml.PreventSurroundingPre(true)),
		codeChromaStyle: style,
	}
}

// WriteDocument renders the cover (when meta has a title) followed by the
// content pages. Content page numbers start at 1; the cover is unnumbered.
func (w *pageWriter) WriteDocument(doc *layout.Document, meta Metadata) (string, error) {
	var b strings.Builder

	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	if meta.Title != "" {
		fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(meta.Title))
	}
	css, err := w.stylesheet()
	if err != nil {
		return "", err
	}
	b.WriteString("<style>\n" + css + "</style>\n</head>\n<body>\n")

	if meta.Title != "" {
		cover, err := w.renderCover(meta)
		if err != nil {
			return "", err
		}
		b.WriteString(cover)
	}

	total := len(doc.Pages)
	for i, page := range doc.Pages {
		b.WriteString(`<div class="page">` + "\n")
		if meta.Title != "" {
			fmt.Fprintf(&b, `<div class="page-header">%s</div>`+"\n", html.EscapeString(meta.Title))
		}
		for _, block := range page {
			w.writeBlock(&b, block)
		}
		fmt.Fprintf(&b, `<div class="page-footer">Page %d of %d</div>`+"\n", i+1, total)
		b.WriteString("</div>\n")
	}

	b.WriteString("</body>\n</html>\n")
	return b.String(), nil
}

// stylesheet combines the embedded base sheet with the computed page frame
// geometry.
func (w *pageWriter) stylesheet() (string, error) {
	base, err := assets.Style("document")
	if err != nil {
		return "", err
	}

	widthMM, heightMM := w.page.paper()
	var b strings.Builder
	b.WriteString(base)
	fmt.Fprintf(&b, `
div.page {
  position: relative;
  width: %.1fpx;
  height: %.1fpx;
  padding: %.1fpx %.1fpx %.1fpx %.1fpx;
  overflow: hidden;
  page-break-after: always;
}
div.page-header {
  top: %.1fpx;
}
div.page-footer {
  bottom: %.1fpx;
}
img.diagram {
  max-width: %d%%;
}
`,
		widthMM*pxPerMM, heightMM*pxPerMM,
		w.page.MarginTopMM*pxPerMM, w.page.MarginRightMM*pxPerMM,
		w.page.MarginBottomMM*pxPerMM, w.page.MarginLeftMM*pxPerMM,
		w.page.MarginTopMM*pxPerMM/2,
		w.page.MarginBottomMM*pxPerMM/2,
		w.imageWidthPct)
	return b.String(), nil
}

// renderCover fills the embedded cover template.
func (w *pageWriter) renderCover(meta Metadata) (string, error) {
	raw, err := assets.Template("cover")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCoverRender, err)
	}
	tmpl, err := template.New("cover").Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCoverRender, err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, meta); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCoverRender, err)
	}
	return b.String(), nil
}

func (w *pageWriter) writeBlock(b *strings.Builder, block flow.Block) {
	switch block.Kind {
	case flow.KindHeading:
		level := block.Level
		if level < 1 || level > 6 {
			level = 6
		}
		id := ""
		if block.Anchor != flow.AnchorNone {
			id = fmt.Sprintf(` id="h-%d"`, block.Anchor)
		}
		fmt.Fprintf(b, "<h%d%s>%s</h%d>\n", level, id, html.EscapeString(block.Text), level)

	case flow.KindParagraph:
		class := "justified"
		if block.AlignLeft {
			class = "left"
		}
		fmt.Fprintf(b, `<p class="%s">%s</p>`+"\n", class, block.HTML)

	case flow.KindCode:
		w.writeCode(b, block)

	case flow.KindQuote:
		fmt.Fprintf(b, "<blockquote>%s</blockquote>\n", html.EscapeString(block.Text))

	case flow.KindList:
		tag := "ul"
		if block.Ordered {
			tag = "ol"
		}
		fmt.Fprintf(b, "<%s>\n", tag)
		for _, item := range block.Items {
			fmt.Fprintf(b, "<li>%s</li>\n", item)
		}
		fmt.Fprintf(b, "</%s>\n", tag)

	case flow.KindTable:
		w.writeTable(b, block.Rows)

	case flow.KindImage:
		fmt.Fprintf(b, `<img class="diagram" src="file://%s" width="%d" height="%d">`+"\n",
			html.EscapeString(block.Path), block.Width, block.Height)

	case flow.KindTOC:
		w.writeTOC(b, block.Entries)
	}
}

// writeCode highlights the fragment's raw source; if the highlighter cannot
// tokenize it, the pre-escaped lines render verbatim.
func (w *pageWriter) writeCode(b *strings.Builder, block flow.Block) {
	b.WriteString(`<div class="code-frame"><pre>`)
	if err := w.highlight(b, block.Raw, block.Lang); err != nil {
		b.WriteString(strings.Join(block.Lines, "\n"))
	}
	b.WriteString("</pre></div>\n")
}

func (w *pageWriter) highlight(b *strings.Builder, source, lang string) error {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)
	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		return err
	}
	return w.codeFormatter.Format(b, w.codeChromaStyle, iterator)
}

func (w *pageWriter) writeTable(b *strings.Builder, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	b.WriteString("<table>\n<tr>")
	for _, cell := range rows[0] {
		fmt.Fprintf(b, "<th>%s</th>", html.EscapeString(cell))
	}
	b.WriteString("</tr>\n")
	for _, row := range rows[1:] {
		b.WriteString("<tr>")
		for _, cell := range row {
			fmt.Fprintf(b, "<td>%s</td>", html.EscapeString(cell))
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</table>\n")
}

func (w *pageWriter) writeTOC(b *strings.Builder, entries []flow.TOCEntry) {
	b.WriteString(`<div class="toc-title">Table of Contents</div>` + "\n")
	for _, e := range entries {
		page := ""
		if e.Page != flow.PageUnresolved {
			page = fmt.Sprintf("%d", e.Page)
		}
		fmt.Fprintf(b,
			`<div class="toc-entry toc-level-%d"><a href="#h-%d">%s</a><span class="toc-dots"></span><span class="toc-page">%s</span></div>`+"\n",
			e.Level, e.Anchor, html.EscapeString(e.Text), page)
	}
}
