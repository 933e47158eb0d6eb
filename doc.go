// Package docbuild converts markdown documents into paginated PDFs with a
// cover page, a generated table of contents with resolved page numbers, and
// rendered mermaid diagrams.
//
// Basic usage:
//
//	builder := docbuild.NewBuilder()
//	defer builder.Close()
//
//	result, err := builder.Build(ctx, docbuild.Input{
//		Markdown: "# Title\n\nHello, PDF!",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	os.WriteFile("out.pdf", result.PDF, 0o644)
//
// The pipeline is: front matter extraction, markdown parsing, block
// assembly (mermaid code fences go through a sanitize/simplify/code render
// cascade), two-pass pagination that backfills TOC page numbers, page HTML
// generation, and a headless-Chrome print with the page frames carrying all
// margins and footers.
//
// Documents may open with a YAML front matter block:
//
//	---
//	title: Operations Runbook
//	author: Platform Team
//	version: 2.1.0
//	---
//
// Front matter fields override Input.Meta; a missing title falls back to
// the document's first level-1 heading. A document that resolves no title
// is built without a cover page.
//
// The Builder owns the headless browser and the per-process diagram prompt
// session. It is not safe for concurrent use; build documents sequentially
// and call Close when done.
package docbuild
