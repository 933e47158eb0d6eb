package mermaid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/alnah/go-docbuild/internal/process"
)

// Sentinel errors for renderer invocations.
var (
	ErrRendererFailed = errors.New("diagram renderer failed")
	ErrNoOutput       = errors.New("diagram renderer produced no output")
)

// RenderRequest carries one invocation of the external diagram renderer.
type RenderRequest struct {
	InputPath      string
	OutputPath     string
	Format         string
	Background     string
	ViewportWidth  int
	ViewportHeight int
	Theme          string
	HTMLLabels     bool // full label fidelity when true
	Curve          string
}

// Renderer rasterizes a diagram source file into an image file.
// The cascade depends only on this contract, not on a particular renderer.
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) error
}

// CommandRunner abstracts subprocess execution to enable testing without
// real subprocesses.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

// ExecRunner implements CommandRunner using os/exec. The command runs in its
// own process group: the Mermaid CLI spawns a headless browser, and a plain
// context kill would orphan it.
type ExecRunner struct{}

// Run executes the command, capturing stdout and stderr separately. On
// context expiry the whole process group is killed.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.Command(name, args...) // #nosec G204 -- fixed binary, built args
	process.Isolate(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return "", "", err
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		process.KillProcessGroup(cmd.Process.Pid)
		<-done
		return stdout.String(), stderr.String(), ctx.Err()
	case err := <-done:
		return stdout.String(), stderr.String(), err
	}
}

// mmdcBinary is the Mermaid CLI executable name.
const mmdcBinary = "mmdc"

// CLIRenderer invokes the Mermaid CLI. Rod-independent: the CLI brings its
// own headless browser.
type CLIRenderer struct {
	Runner CommandRunner
	Binary string
}

// NewCLIRenderer creates a CLIRenderer with a real command runner.
func NewCLIRenderer() *CLIRenderer {
	return &CLIRenderer{Runner: &ExecRunner{}, Binary: mmdcBinary}
}

// flowchartConfig is the renderer-side flowchart configuration passed via a
// JSON config file; the CLI exposes htmlLabels and curve only through it.
type flowchartConfig struct {
	Flowchart struct {
		HTMLLabels bool   `json:"htmlLabels"`
		Curve      string `json:"curve,omitempty"`
	} `json:"flowchart"`
}

// Render invokes the Mermaid CLI. It raises on any renderer failure,
// including the CLI exiting zero without writing the output file.
func (r *CLIRenderer) Render(ctx context.Context, req RenderRequest) error {
	cfgPath, cleanup, err := writeFlowchartConfig(req)
	if err != nil {
		return err
	}
	defer cleanup()

	args := []string{
		"-i", req.InputPath,
		"-o", req.OutputPath,
		"-e", req.Format,
		"-b", req.Background,
		"-w", fmt.Sprint(req.ViewportWidth),
		"-H", fmt.Sprint(req.ViewportHeight),
		"-t", req.Theme,
		"--configFile", cfgPath,
	}

	_, stderr, err := r.Runner.Run(ctx, r.binary(), args...)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRendererFailed, stderr, err)
	}

	if info, statErr := os.Stat(req.OutputPath); statErr != nil || info.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrNoOutput, req.OutputPath)
	}
	return nil
}

func (r *CLIRenderer) binary() string {
	if r.Binary != "" {
		return r.Binary
	}
	return mmdcBinary
}

// writeFlowchartConfig writes the per-invocation renderer config to a temp
// file. The returned cleanup removes it.
func writeFlowchartConfig(req RenderRequest) (string, func(), error) {
	var cfg flowchartConfig
	cfg.Flowchart.HTMLLabels = req.HTMLLabels
	cfg.Flowchart.Curve = req.Curve

	data, err := json.Marshal(cfg)
	if err != nil {
		return "", nil, fmt.Errorf("marshaling renderer config: %w", err)
	}

	tmp, err := os.CreateTemp("", "docbuild-mermaid-*.json")
	if err != nil {
		return "", nil, fmt.Errorf("creating renderer config: %w", err)
	}
	path := tmp.Name()
	cleanup := func() { _ = os.Remove(path) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", nil, fmt.Errorf("writing renderer config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("closing renderer config: %w", err)
	}
	return path, cleanup, nil
}
