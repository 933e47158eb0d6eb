package mermaid

import (
	"regexp"
	"strings"
)

// genericLabel replaces node label text when rendering with reduced fidelity.
const genericLabel = "node"

var (
	quotedText      = regexp.MustCompile(`(?s)"[^"]*"`)
	bracketText     = regexp.MustCompile(`\[[^\[\]\n]+\]`)
	parenText       = regexp.MustCompile(`\(([^()\n]+)\)`)
	braceText       = regexp.MustCompile(`\{[^{}\n]+\}`)
	edgeLabelText   = regexp.MustCompile(`\|[^|\n]*\|`)
	simplifySkipRow = regexp.MustCompile(`^\s*(graph|flowchart|sequenceDiagram|classDiagram|stateDiagram|erDiagram|gantt|pie|end)\b`)
)

// Simplify replaces every node and edge label with a generic placeholder
// while preserving the graph topology: node ids, edges, and subgraph nesting
// are untouched. Used as the reduced-fidelity retry when the full-fidelity
// source is rejected by the renderer.
func Simplify(source string) string {
	lines := strings.Split(source, "\n")
	for i, line := range lines {
		if simplifySkipRow.MatchString(line) {
			continue
		}
		if m := subgraphLine.FindStringSubmatch(line); m != nil {
			// Keep the subgraph id, drop its display title.
			id := strings.Fields(m[2])
			if len(id) > 0 {
				lines[i] = m[1] + id[0]
			}
			continue
		}
		out := edgeLabelText.ReplaceAllString(line, "")
		out = quotedText.ReplaceAllString(out, `"`+genericLabel+`"`)
		out = bracketText.ReplaceAllStringFunc(out, func(s string) string {
			return replaceShapeLabel(s, "[", "]")
		})
		out = parenText.ReplaceAllString(out, "("+genericLabel+")")
		out = braceText.ReplaceAllString(out, "{"+genericLabel+"}")
		lines[i] = strings.TrimRight(out, " \t")
	}
	return strings.Join(lines, "\n")
}

// replaceShapeLabel swaps the text between shape delimiters for the generic
// placeholder, preserving inner shape markers like ([...]) and [[...]].
func replaceShapeLabel(s, open, close string) string {
	inner := strings.TrimPrefix(s, open)
	inner = strings.TrimSuffix(inner, close)

	prefix, suffix := "", ""
	for len(inner) > 0 {
		switch inner[0] {
		case '[', '(', '{':
			prefix += string(inner[0])
			inner = inner[1:]
			continue
		}
		break
	}
	for len(inner) > 0 {
		switch inner[len(inner)-1] {
		case ']', ')', '}':
			suffix = string(inner[len(inner)-1]) + suffix
			inner = inner[:len(inner)-1]
			continue
		}
		break
	}
	return open + prefix + genericLabel + suffix + close
}
