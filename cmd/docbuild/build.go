package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	docbuild "github.com/alnah/go-docbuild"
	"github.com/alnah/go-docbuild/internal/config"
	"github.com/alnah/go-docbuild/internal/hints"
	"github.com/alnah/go-docbuild/internal/mermaid"
)

// I/O sentinel errors.
var (
	ErrReadDocument   = errors.New("failed to read document")
	ErrWritePDF       = errors.New("failed to write PDF")
	ErrOutputConflict = errors.New("-o requires exactly one input")
)

// documentBuilder is the slice of docbuild.Builder the CLI needs; tests
// substitute a fake.
type documentBuilder interface {
	Build(ctx context.Context, input docbuild.Input) (*docbuild.BuildResult, error)
	Close() error
}

// BuildOutcome holds the result of building a single document.
type BuildOutcome struct {
	InputPath  string
	OutputPath string
	Pages      int
	Err        error
	Duration   time.Duration
}

// ResultSummary holds the count of succeeded and failed builds.
type ResultSummary struct {
	Succeeded int
	Failed    int
}

// countResults tallies succeeded and failed builds.
func countResults(results []BuildOutcome) ResultSummary {
	var summary ResultSummary
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}
	return summary
}

// run executes the whole CLI invocation and returns the process exit code.
func run(flags *cliFlags, inputs []string, env *Environment) int {
	if flags.version {
		fmt.Fprintf(env.Stdout, "docbuild %s\n", Version)
		return ExitSuccess
	}
	if flags.help {
		return ExitSuccess
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		hint := ""
		if errors.Is(err, config.ErrConfigNotFound) {
			hint = hints.ForConfigNotFound(config.SearchPaths(flags.config))
		}
		fmt.Fprintf(env.Stderr, "%v%s\n", err, hint)
		return exitCodeFor(err)
	}

	files, err := discoverInputs(inputs)
	if err != nil {
		fmt.Fprintln(env.Stderr, err)
		return exitCodeFor(err)
	}
	if flags.output != "" && len(files) != 1 {
		fmt.Fprintln(env.Stderr, ErrOutputConflict)
		return ExitUsage
	}

	level := log.WarnLevel
	if flags.verbose {
		level = log.DebugLevel
	}
	if flags.quiet {
		level = log.ErrorLevel
	}
	logger := log.NewWithOptions(env.Stderr, log.Options{Level: level, ReportTimestamp: false})

	builder := docbuild.NewBuilder(
		docbuild.WithMermaid(mermaidOptions(cfg, flags)),
		docbuild.WithLeftAlignThreshold(cfg.Text.LeftAlignThreshold),
		docbuild.WithLogger(logger),
	)
	defer func() {
		if err := builder.Close(); err != nil {
			logger.Warn("closing browser", "error", err)
		}
	}()

	results := buildAll(context.Background(), builder, files, cfg, flags, env)
	return printResults(results, flags.quiet, flags.verbose, env)
}

// loadConfig resolves the effective configuration.
func loadConfig(flags *cliFlags) (*config.Config, error) {
	if flags.config == "" {
		return config.DefaultConfig(), nil
	}
	return config.LoadConfig(flags.config)
}

// mermaidOptions maps config and flag overrides onto diagram options.
func mermaidOptions(cfg *config.Config, flags *cliFlags) mermaid.Options {
	m := cfg.Mermaid
	opts := mermaid.Options{
		Enabled:                m.Enabled && !flags.noMermaid,
		AutoFixEdgeCases:       m.AutoFixEdgeCases,
		ShowFixWarnings:        m.ShowFixWarnings,
		MaxLabelLength:         m.MaxLabelLength,
		FallbackToSimplified:   m.FallbackToSimplified,
		AutoAcceptSimplified:   m.AutoAcceptSimplified || flags.acceptDiagrams,
		PromptBeforeSimplified: m.PromptBeforeSimplified,
		FallbackToCode:         m.FallbackToCode,
		MaxWidthPercent:        m.MaxWidthPercent,
		Background:             m.Background,
		ViewportWidth:          m.ViewportWidth,
		ViewportHeight:         m.ViewportHeight,
		Theme:                  m.Theme,
		FlowCurve:              m.FlowCurve,
	}
	return opts
}

// buildAll runs sequential builds, catching per-document failures so one bad
// file never aborts the batch.
func buildAll(ctx context.Context, builder documentBuilder, files []string, cfg *config.Config, flags *cliFlags, env *Environment) []BuildOutcome {
	page := &docbuild.PageSettings{
		Size:           cfg.Page.Size,
		MarginTopMM:    cfg.Page.MarginTopMM,
		MarginRightMM:  cfg.Page.MarginRightMM,
		MarginBottomMM: cfg.Page.MarginBottomMM,
		MarginLeftMM:   cfg.Page.MarginLeftMM,
	}
	meta := docbuild.Metadata{
		Title:   firstNonEmpty(flags.title, cfg.Document.Title),
		Author:  firstNonEmpty(flags.author, cfg.Document.Author),
		Date:    firstNonEmpty(flags.date, cfg.Document.Date),
		Version: firstNonEmpty(flags.docVer, cfg.Document.Version),
	}

	results := make([]BuildOutcome, 0, len(files))
	for _, path := range files {
		results = append(results, buildOne(ctx, builder, path, page, meta, cfg, flags, env.Now))
	}
	return results
}

func buildOne(ctx context.Context, builder documentBuilder, path string, page *docbuild.PageSettings, meta docbuild.Metadata, cfg *config.Config, flags *cliFlags, now func() time.Time) BuildOutcome {
	start := now()
	outcome := BuildOutcome{InputPath: path}

	markdown, err := readDocument(path)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	result, err := builder.Build(ctx, docbuild.Input{
		Markdown: markdown,
		Meta:     meta,
		Page:     page,
	})
	if err != nil {
		outcome.Err = fmt.Errorf("building %s: %w", path, err)
		return outcome
	}

	outPath := flags.output
	if outPath == "" {
		outPath = outputPathFor(path, firstNonEmpty(flags.outputDir, cfg.Output.Dir), cfg.Output.FilenamePrefix, now())
	}
	if err := os.WriteFile(outPath, result.PDF, 0o644); err != nil { // #nosec G306 -- generated document
		outcome.Err = fmt.Errorf("%w: %v", ErrWritePDF, err)
		return outcome
	}

	outcome.OutputPath = outPath
	outcome.Pages = result.Pages
	outcome.Duration = now().Sub(start)
	return outcome
}

// readDocument loads a document, converting plain text inputs so their lines
// cannot be misread as markdown structure.
func readDocument(path string) (string, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- CLI input path
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrReadDocument, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		return textToMarkdown(string(data)), nil
	}
	return string(data), nil
}

// markdownStructural are line prefixes that would change document structure
// if left unescaped in plain text input.
var markdownStructural = []string{"#", ">", "-", "*", "+", "`", "=", "|"}

// textToMarkdown keeps the blank-line paragraph structure of a text file
// while neutralizing markdown syntax at line starts.
func textToMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		escaped := escapeOrderedListMarker(trimmed)
		if escaped == trimmed {
			for _, prefix := range markdownStructural {
				if strings.HasPrefix(trimmed, prefix) {
					escaped = "\\" + trimmed
					break
				}
			}
		}
		if escaped != trimmed {
			lines[i] = strings.Replace(line, trimmed, escaped, 1)
		}
	}
	return strings.Join(lines, "\n")
}

// escapeOrderedListMarker neutralizes "1. " and "1) " style line starts,
// which would otherwise re-parse numbered plain text as a markdown list.
// The marker only counts when its delimiter is followed by a space or ends
// the line, so "1.5 miles" passes through.
func escapeOrderedListMarker(trimmed string) string {
	i := 0
	for i < len(trimmed) && trimmed[i] >= '0' && trimmed[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(trimmed) {
		return trimmed
	}
	if trimmed[i] != '.' && trimmed[i] != ')' {
		return trimmed
	}
	if i+1 < len(trimmed) && trimmed[i+1] != ' ' && trimmed[i+1] != '\t' {
		return trimmed
	}
	return trimmed[:i] + "\\" + trimmed[i:]
}

// outputPathFor derives the destination filename: <prefix><stem>_<timestamp>.pdf
// next to the source, or inside outputDir when configured.
func outputPathFor(inputPath, outputDir, prefix string, now time.Time) string {
	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	name := fmt.Sprintf("%s%s_%s.pdf", prefix, stem, now.Format("20060102_150405"))
	dir := outputDir
	if dir == "" {
		dir = filepath.Dir(inputPath)
	}
	return filepath.Join(dir, name)
}

// printResults reports per-file outcomes and the summary, returning the
// process exit code.
func printResults(results []BuildOutcome, quiet, verbose bool, env *Environment) int {
	summary := countResults(results)
	worst := ExitSuccess

	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(env.Stderr, "FAILED %s: %v%s\n", r.InputPath, r.Err, hintFor(r.Err))
			if code := exitCodeFor(r.Err); code > worst {
				worst = code
			}
			continue
		}
		if quiet {
			continue
		}
		if verbose {
			fmt.Fprintf(env.Stdout, "%s -> %s (%d pages, %v)\n",
				r.InputPath, r.OutputPath, r.Pages, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(env.Stdout, "Created %s\n", r.OutputPath)
		}
	}

	if !quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", summary.Succeeded, summary.Failed)
	}
	return worst
}

// hintFor maps a build failure to an actionable hint, or returns "".
func hintFor(err error) string {
	switch {
	case errors.Is(err, docbuild.ErrBrowserConnect):
		return hints.ForBrowserConnect()
	case errors.Is(err, ErrWritePDF):
		return hints.ForOutputDirectory()
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
