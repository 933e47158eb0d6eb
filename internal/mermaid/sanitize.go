// Package mermaid repairs and renders Mermaid diagram sources. The sanitizer
// rewrites known-invalid patterns so the strict external renderer accepts
// them without changing the diagram structure (nodes, edges, subgraphs). The
// cascade turns a diagram source into an image artifact, degrading to a code
// block when rendering is impossible.
package mermaid

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultMaxLabelLength is the wrap threshold for long labels.
const DefaultMaxLabelLength = 50

// lineBreakMarker is the explicit in-label line break understood by the renderer.
const lineBreakMarker = "<br/>"

// Result holds the sanitized source and descriptions of the fixes applied.
// The fix list is diagnostic only; it carries no behavioral meaning.
type Result struct {
	Text  string
	Fixes []string
}

// Precompiled patterns shared by the sanitization steps.
var (
	quotedLabel   = regexp.MustCompile(`(?s)"[^"]*"`)
	bracketLabel  = regexp.MustCompile(`\[[^\[\]"\n]+\]`)
	parenLabel    = regexp.MustCompile(`\([^()"\n]+\)`)
	pipeLabel     = regexp.MustCompile(`\|[^|\n]*\|`)
	breakMarkers  = regexp.MustCompile(`(?i)(?:<br\s*/?>\s*){2,}`)
	anyBreakTag   = regexp.MustCompile(`(?i)<br\s*/?>`)
	arrowToken    = regexp.MustCompile(`(?:-->|->|==>|=>)`)
	labeledEdge   = regexp.MustCompile(`(-->|->|==>|=>)[ \t]*\|([^|\n]*)\|`)
	trailingArrow = regexp.MustCompile(`((?:-->|->|==>|=>)[ \t]*\|[^|\n]*\|)[ \t]*(?:-->|->|==>|=>)`)
	arrowPipeGap  = regexp.MustCompile(`(-->|->|==>|=>)[ \t]+\|`)
	pipeSpaceRuns = regexp.MustCompile(`\|[ \t]{2,}`)
	blankLineRuns = regexp.MustCompile(`\n{3,}`)
	spaceRuns     = regexp.MustCompile(`[ \t]{2,}`)
	subgraphLine  = regexp.MustCompile(`^(\s*subgraph\s+)(.+)$`)
)

// Sanitize repairs known-invalid Mermaid source patterns using the default
// label wrap threshold. It never fails; worst case it returns the input
// unchanged with an empty fix list. Reapplying it to its own output yields
// no further changes.
func Sanitize(source string) Result {
	return SanitizeWithLimit(source, DefaultMaxLabelLength)
}

// SanitizeWithLimit is Sanitize with an explicit label wrap threshold.
// A non-positive limit disables label wrapping.
func SanitizeWithLimit(source string, maxLabelLength int) Result {
	res := Result{Text: source}

	steps := []func(string, int) (string, []string){
		stripUnsupportedSymbols,
		collapseNodeLabelBreaks,
		repairEdgeLabelArrows,
		collapseEdgeLabelBreaks,
		wrapLongLabels,
		tidyWhitespace,
		normalizeArrowSpacing,
	}

	for _, step := range steps {
		text, fixes := step(res.Text, maxLabelLength)
		res.Text = text
		res.Fixes = append(res.Fixes, fixes...)
	}
	return res
}

// stripUnsupportedSymbols removes pictographic glyphs the renderer's parser
// rejects. Newlines are never touched, so line counts stay intact for the
// later steps.
func stripUnsupportedSymbols(source string, _ int) (string, []string) {
	var b strings.Builder
	b.Grow(len(source))
	removed := 0
	for _, r := range source {
		if isUnsupportedSymbol(r) {
			removed++
			continue
		}
		b.WriteRune(r)
	}
	if removed == 0 {
		return source, nil
	}
	return b.String(), []string{fmt.Sprintf("removed %d unsupported symbol(s)", removed)}
}

// isUnsupportedSymbol reports whether r lies in a pictographic range that is
// a known, deterministic cause of renderer parse failures.
func isUnsupportedSymbol(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF: // emoji, symbols, pictographs
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	case r >= 0x2B00 && r <= 0x2BFF: // misc symbols and arrows
		return true
	case r >= 0xFE00 && r <= 0xFE0F: // variation selectors
		return true
	case r == 0x200D: // zero-width joiner
		return true
	}
	return false
}

// collapseNodeLabelBreaks rewrites embedded line breaks inside quoted node
// labels, unquoted bracket labels, and parenthesis labels into the explicit
// line-break marker. Runs of markers collapse to one.
func collapseNodeLabelBreaks(source string, _ int) (string, []string) {
	var fixes []string

	replaced := quotedLabel.ReplaceAllStringFunc(source, func(label string) string {
		return rewriteLabelBreaks(label, true)
	})
	replaced = bracketLabel.ReplaceAllStringFunc(replaced, func(label string) string {
		return rewriteLabelBreaks(label, false)
	})
	replaced = parenLabel.ReplaceAllStringFunc(replaced, func(label string) string {
		return rewriteLabelBreaks(label, false)
	})

	if replaced != source {
		fixes = append(fixes, "replaced line breaks with "+lineBreakMarker+" in node labels")
	}
	return replaced, fixes
}

// rewriteLabelBreaks converts literal \n escapes (and, inside quoted labels,
// real newlines) to the line-break marker, then collapses marker runs.
func rewriteLabelBreaks(label string, quoted bool) string {
	out := strings.ReplaceAll(label, `\r\n`, lineBreakMarker)
	out = strings.ReplaceAll(out, `\n`, lineBreakMarker)
	if quoted {
		out = strings.ReplaceAll(out, "\r\n", lineBreakMarker)
		out = strings.ReplaceAll(out, "\n", lineBreakMarker)
	}
	out = anyBreakTag.ReplaceAllString(out, lineBreakMarker)
	return breakMarkers.ReplaceAllString(out, lineBreakMarker)
}

// repairEdgeLabelArrows fixes edge labels carrying a stray nested arrow token,
// both the arrow-inside-label and the arrow-immediately-after-label shapes.
// Repaired label text is quoted so the renderer tokenizes it as plain text.
func repairEdgeLabelArrows(source string, _ int) (string, []string) {
	var fixes []string

	repaired := labeledEdge.ReplaceAllStringFunc(source, func(edge string) string {
		m := labeledEdge.FindStringSubmatch(edge)
		arrow, content := m[1], m[2]

		stripped := arrowToken.ReplaceAllString(content, "")
		if stripped == content {
			return edge
		}
		stripped = strings.TrimSpace(stripped)
		if !strings.HasPrefix(stripped, `"`) || !strings.HasSuffix(stripped, `"`) {
			stripped = `"` + strings.Trim(stripped, `"`) + `"`
		}
		fixes = append(fixes, "removed nested arrow from edge label")
		return arrow + "|" + stripped + "|"
	})

	if cleaned := trailingArrow.ReplaceAllString(repaired, "$1 "); cleaned != repaired {
		repaired = pipeSpaceRuns.ReplaceAllString(cleaned, "| ")
		fixes = append(fixes, "removed stray arrow after edge label")
	}
	return repaired, fixes
}

// collapseEdgeLabelBreaks normalizes embedded line breaks inside |...| edge
// labels the same way as node labels, and flattens subgraph titles to a
// single line (titles never take a break marker).
func collapseEdgeLabelBreaks(source string, _ int) (string, []string) {
	var fixes []string

	replaced := pipeLabel.ReplaceAllStringFunc(source, func(label string) string {
		return rewriteLabelBreaks(label, false)
	})
	if replaced != source {
		fixes = append(fixes, "replaced line breaks with "+lineBreakMarker+" in edge labels")
	}

	lines := strings.Split(replaced, "\n")
	titleFixed := false
	for i, line := range lines {
		m := subgraphLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		title := strings.ReplaceAll(m[2], `\n`, " ")
		title = anyBreakTag.ReplaceAllString(title, " ")
		title = spaceRuns.ReplaceAllString(title, " ")
		if flat := m[1] + strings.TrimRight(title, " "); flat != line {
			lines[i] = flat
			titleFixed = true
		}
	}
	if titleFixed {
		replaced = strings.Join(lines, "\n")
		fixes = append(fixes, "flattened subgraph title to a single line")
	}
	return replaced, fixes
}

// wrapLongLabels breaks quoted labels longer than the threshold at word
// boundaries, inserting line-break markers between the wrapped lines.
func wrapLongLabels(source string, maxLen int) (string, []string) {
	if maxLen <= 0 {
		return source, nil
	}
	var fixes []string

	wrapped := quotedLabel.ReplaceAllStringFunc(source, func(label string) string {
		content := label[1 : len(label)-1]
		segments := strings.Split(content, lineBreakMarker)
		changed := false
		for i, seg := range segments {
			if len(seg) <= maxLen {
				continue
			}
			lines := wrapWords(seg, maxLen)
			if len(lines) > 1 {
				segments[i] = strings.Join(lines, lineBreakMarker)
				changed = true
			}
		}
		if !changed {
			return label
		}
		out := strings.Join(segments, lineBreakMarker)
		fixes = append(fixes, fmt.Sprintf("wrapped %d-character label to %d lines",
			len(content), strings.Count(out, lineBreakMarker)+1))
		return `"` + out + `"`
	})

	return wrapped, fixes
}

// wrapWords greedily wraps text at word boundaries. Words longer than the
// limit are kept whole rather than split.
func wrapWords(text string, maxLen int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{text}
	}
	var lines []string
	current := words[0]
	for _, w := range words[1:] {
		if len(current)+1+len(w) <= maxLen {
			current += " " + w
			continue
		}
		lines = append(lines, current)
		current = w
	}
	return append(lines, current)
}

// tidyWhitespace drops trailing whitespace per line and collapses runs of
// blank lines to a single blank line.
func tidyWhitespace(source string, _ int) (string, []string) {
	lines := strings.Split(source, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	cleaned := blankLineRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	if cleaned == source {
		return source, nil
	}
	return cleaned, []string{"normalized whitespace"}
}

// normalizeArrowSpacing closes the gap between an arrow and the opening label
// delimiter. Only the arrow side is touched: tightening the closing side
// would recreate the arrow-after-label shape the repair step removes.
func normalizeArrowSpacing(source string, _ int) (string, []string) {
	closed := arrowPipeGap.ReplaceAllString(source, "$1|")
	if closed == source {
		return source, nil
	}
	return closed, []string{"normalized spacing between arrows and label delimiters"}
}
