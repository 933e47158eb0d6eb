package flow

import (
	"html"
	"strings"

	"github.com/yuin/goldmark/ast"
)

// renderInline converts the inline children of a node into an HTML fragment.
// Newlines become explicit break tags, matching how the page renderer treats
// paragraph text. Unsafe raw HTML is dropped, never passed through. The code
// span count feeds the left-alignment heuristic.
func renderInline(n ast.Node, source []byte) (htmlText string, codeSpans int) {
	var b strings.Builder
	codeSpans = renderInlineChildren(&b, n, source)
	return b.String(), codeSpans
}

func renderInlineChildren(b *strings.Builder, n ast.Node, source []byte) int {
	codeSpans := 0
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		codeSpans += renderInlineNode(b, c, source)
	}
	return codeSpans
}

func renderInlineNode(b *strings.Builder, n ast.Node, source []byte) int {
	switch v := n.(type) {
	case *ast.Text:
		b.WriteString(html.EscapeString(string(v.Segment.Value(source))))
		if v.HardLineBreak() || v.SoftLineBreak() {
			b.WriteString("<br/>")
		}
		return 0
	case *ast.String:
		b.WriteString(html.EscapeString(string(v.Value)))
		return 0
	case *ast.CodeSpan:
		b.WriteString(`<code>`)
		b.WriteString(html.EscapeString(textOf(v, source)))
		b.WriteString(`</code>`)
		return 1
	case *ast.Emphasis:
		tag := "em"
		if v.Level >= 2 {
			tag = "strong"
		}
		b.WriteString("<" + tag + ">")
		spans := renderInlineChildren(b, v, source)
		b.WriteString("</" + tag + ">")
		return spans
	case *ast.Link:
		b.WriteString(`<a href="` + html.EscapeString(string(v.Destination)) + `">`)
		spans := renderInlineChildren(b, v, source)
		b.WriteString(`</a>`)
		return spans
	case *ast.AutoLink:
		url := html.EscapeString(string(v.URL(source)))
		b.WriteString(`<a href="` + url + `">` + html.EscapeString(string(v.Label(source))) + `</a>`)
		return 0
	case *ast.Image, *ast.RawHTML:
		// Inline images and raw HTML are dropped from rich text.
		return 0
	default:
		return renderInlineChildren(b, n, source)
	}
}

// textOf extracts the plain text content of a node and its descendants.
func textOf(n ast.Node, source []byte) string {
	var b strings.Builder
	collectText(&b, n, source)
	return b.String()
}

func collectText(b *strings.Builder, n ast.Node, source []byte) {
	switch v := n.(type) {
	case *ast.Text:
		b.Write(v.Segment.Value(source))
		if v.SoftLineBreak() || v.HardLineBreak() {
			b.WriteByte(' ')
		}
	case *ast.String:
		b.Write(v.Value)
	default:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			collectText(b, c, source)
		}
	}
}
