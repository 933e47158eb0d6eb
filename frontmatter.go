package docbuild

import (
	"fmt"
	"strings"

	"github.com/alnah/go-docbuild/internal/yamlutil"
)

// frontMatterDelimiter opens and closes the metadata block.
const frontMatterDelimiter = "---"

// frontMatter mirrors the YAML metadata block at the top of a document.
type frontMatter struct {
	Title    string `yaml:"title"`
	Subtitle string `yaml:"subtitle"`
	Author   string `yaml:"author"`
	Date     string `yaml:"date"`
	Version  string `yaml:"version"`
}

// parseFrontMatter splits an optional leading YAML metadata block from the
// document body. A document without an opening delimiter, or without a
// closing one, is all body. A well-formed block with invalid YAML is an
// error rather than silently dropped metadata.
func parseFrontMatter(markdown string) (Metadata, string, error) {
	lines := strings.SplitAfter(markdown, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != frontMatterDelimiter {
		return Metadata{}, markdown, nil
	}

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != frontMatterDelimiter {
			continue
		}
		block := strings.Join(lines[1:i], "")
		body := strings.Join(lines[i+1:], "")

		var fm frontMatter
		if strings.TrimSpace(block) != "" {
			if err := yamlutil.Unmarshal([]byte(block), &fm); err != nil {
				return Metadata{}, "", fmt.Errorf("%w: %v", ErrFrontMatter, err)
			}
		}
		return Metadata{
			Title:    fm.Title,
			Subtitle: fm.Subtitle,
			Author:   fm.Author,
			Date:     fm.Date,
			Version:  fm.Version,
		}, body, nil
	}

	// No closing delimiter: the opener was a thematic break, not metadata.
	return Metadata{}, markdown, nil
}
