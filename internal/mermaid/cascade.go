package mermaid

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/alnah/go-docbuild/internal/fileutil"
	"github.com/alnah/go-docbuild/internal/hints"
	"github.com/alnah/go-docbuild/internal/tracker"
)

// Options is the diagram rendering configuration surface.
type Options struct {
	Enabled                bool
	AutoFixEdgeCases       bool
	ShowFixWarnings        bool
	MaxLabelLength         int
	FallbackToSimplified   bool
	AutoAcceptSimplified   bool
	PromptBeforeSimplified bool
	FallbackToCode         bool
	MaxWidthPercent        int
	Background             string
	ViewportWidth          int
	ViewportHeight         int
	Theme                  string
	FlowCurve              string
}

// DefaultOptions returns the rendering defaults.
func DefaultOptions() Options {
	return Options{
		Enabled:                true,
		AutoFixEdgeCases:       true,
		ShowFixWarnings:        true,
		MaxLabelLength:         DefaultMaxLabelLength,
		FallbackToSimplified:   true,
		AutoAcceptSimplified:   false,
		PromptBeforeSimplified: true,
		FallbackToCode:         true,
		MaxWidthPercent:        90,
		Background:             "white",
		ViewportWidth:          1600,
		ViewportHeight:         1200,
		Theme:                  "default",
		FlowCurve:              "basis",
	}
}

// Cascade obtains a rasterized image for a diagram source, trying up to two
// renderer invocations (sanitized, then simplified) before giving up. The
// overall document build never fails because of a diagram: total cascade
// failure means the caller renders the source as a literal code block.
type Cascade struct {
	opts     Options
	renderer Renderer
	tracker  *tracker.Tracker
	session  *Session
	prompter Prompter
	logger   *log.Logger
}

// NewCascade wires a cascade for one document build. The tracker must be the
// build's own; the session spans the whole process run.
func NewCascade(opts Options, renderer Renderer, tr *tracker.Tracker, session *Session, prompter Prompter, logger *log.Logger) *Cascade {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if prompter == nil {
		prompter = NewStdinPrompter()
	}
	if session == nil {
		session = NewSession()
	}
	return &Cascade{
		opts:     opts,
		renderer: renderer,
		tracker:  tr,
		session:  session,
		prompter: prompter,
		logger:   logger,
	}
}

// Render returns the path of a rendered image artifact and true, or "" and
// false when the caller should fall back to a code block. The winning
// artifact is registered with the build tracker; every other transient file
// is removed before Render returns. Renderer errors never propagate.
func (c *Cascade) Render(ctx context.Context, source string) (string, bool) {
	if !c.opts.Enabled || c.renderer == nil {
		return "", false
	}

	// Sanitized tier: full label fidelity.
	input := source
	if c.opts.AutoFixEdgeCases {
		res := SanitizeWithLimit(source, c.opts.MaxLabelLength)
		input = res.Text
		if c.opts.ShowFixWarnings {
			for _, fix := range res.Fixes {
				c.logger.Warn("diagram source repaired", "fix", fix)
			}
		}
	}

	if path, err := c.attempt(ctx, input, true); err == nil {
		return path, true
	} else {
		if errors.Is(err, exec.ErrNotFound) {
			c.logger.Warnf("diagram renderer not installed%s", hints.ForMermaidCLI())
			return "", false
		}
		c.logger.Warn("diagram render failed, trying simplified labels",
			"error", summarizeError(err))
	}

	// Simplified tier: placeholder labels, topology preserved.
	if c.opts.FallbackToSimplified && c.allowSimplified() {
		if path, err := c.attempt(ctx, Simplify(input), false); err == nil {
			return path, true
		} else {
			c.logger.Warn("simplified diagram render failed",
				"error", summarizeError(err))
		}
	}

	// Code fallback: signal "no image".
	return "", false
}

// allowSimplified resolves the tier-2 gate from config and, when prompting
// is requested, the session-scoped user decision.
func (c *Cascade) allowSimplified() bool {
	if c.opts.AutoAcceptSimplified {
		return true
	}
	if !c.opts.PromptBeforeSimplified {
		return true
	}
	return c.session.Allow(c.prompter, "Diagram failed to render. Retry with simplified labels?")
}

// attempt performs a single renderer invocation. The transient input file is
// always removed; the output file is removed unless the attempt succeeds, in
// which case it is registered with the build tracker and returned.
func (c *Cascade) attempt(ctx context.Context, source string, htmlLabels bool) (path string, err error) {
	var outPath string
	defer func() {
		if r := recover(); r != nil {
			path = ""
			err = newPanicError(r)
		}
		if err != nil && outPath != "" {
			_ = os.Remove(outPath)
		}
	}()

	inPath, cleanupIn, err := fileutil.WriteTempFile(source, "mmd")
	if err != nil {
		return "", err
	}
	defer cleanupIn()

	outPath, err = tempArtifactPath()
	if err != nil {
		return "", err
	}

	req := RenderRequest{
		InputPath:      inPath,
		OutputPath:     outPath,
		Format:         "png",
		Background:     c.opts.Background,
		ViewportWidth:  c.opts.ViewportWidth,
		ViewportHeight: c.opts.ViewportHeight,
		Theme:          c.opts.Theme,
		HTMLLabels:     htmlLabels,
		Curve:          c.opts.FlowCurve,
	}

	if err := c.renderer.Render(ctx, req); err != nil {
		return "", err
	}

	c.tracker.Track(outPath)
	return outPath, nil
}

// tempArtifactPath reserves a temp file path for the renderer output.
func tempArtifactPath() (string, error) {
	tmp, err := os.CreateTemp("", "docbuild-diagram-*.png")
	if err != nil {
		return "", err
	}
	path := tmp.Name()
	if err := tmp.Close(); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

// maxErrorSummaryLength caps logged renderer failures; mmdc dumps whole
// browser stack traces on parse errors.
const maxErrorSummaryLength = 200

// summarizeError reduces a renderer failure to a single truncated line.
func summarizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()

	var lines []string
	for _, line := range strings.Split(msg, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	msg = strings.Join(lines, " | ")

	if len(msg) > maxErrorSummaryLength {
		cut := maxErrorSummaryLength
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut] + "..."
	}
	return msg
}

// panicError wraps a recovered panic from a renderer implementation.
type panicError struct{ v any }

func newPanicError(v any) error { return panicError{v: v} }

func (e panicError) Error() string {
	return fmt.Sprintf("renderer panic: %v", e.v)
}
