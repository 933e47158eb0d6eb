package mermaid

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Choice is a user's answer to the reduced-fidelity confirmation prompt.
type Choice int

const (
	ChoiceYes Choice = iota
	ChoiceNo
	ChoiceAlways
	ChoiceNever
)

// Prompter asks the user whether a diagram may be rendered with simplified
// labels. Implementations must be safe to call once per diagram.
type Prompter interface {
	Confirm(question string) (Choice, error)
}

// Session remembers an "always"/"never" answer for the remainder of the
// current process invocation. It is created once per run and passed into
// every cascade; it is never persisted.
type Session struct {
	mu      sync.Mutex
	decided bool
	accept  bool
}

// NewSession returns a Session with no remembered decision.
func NewSession() *Session {
	return &Session{}
}

// Allow reports whether simplified rendering may proceed, consulting the
// remembered decision first and the prompter otherwise. A prompter error
// counts as consent: rendering a simplified diagram beats losing it.
func (s *Session) Allow(p Prompter, question string) bool {
	s.mu.Lock()
	if s.decided {
		accept := s.accept
		s.mu.Unlock()
		return accept
	}
	s.mu.Unlock()

	choice, err := p.Confirm(question)
	if err != nil {
		return true
	}

	switch choice {
	case ChoiceAlways, ChoiceNever:
		s.mu.Lock()
		s.decided = true
		s.accept = choice == ChoiceAlways
		s.mu.Unlock()
		return s.accept
	case ChoiceYes:
		return true
	default:
		return false
	}
}

// StdinPrompter reads y/n/always/never answers from an interactive terminal.
// When stdin is not a terminal it answers yes without blocking, which keeps
// unattended builds moving with the safe default.
type StdinPrompter struct {
	In  io.Reader
	Out io.Writer
	// IsTerminal overrides TTY detection in tests.
	IsTerminal func() bool
}

// NewStdinPrompter creates a prompter bound to the process stdin/stderr.
func NewStdinPrompter() *StdinPrompter {
	return &StdinPrompter{In: os.Stdin, Out: os.Stderr}
}

// Confirm implements Prompter.
func (p *StdinPrompter) Confirm(question string) (Choice, error) {
	interactive := p.IsTerminal
	if interactive == nil {
		interactive = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
	}
	if !interactive() {
		return ChoiceYes, nil
	}

	fmt.Fprintf(p.Out, "%s [y/n/always/never] ", question)

	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && line == "" {
		return ChoiceYes, err
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "":
		return ChoiceYes, nil
	case "a", "always":
		return ChoiceAlways, nil
	case "never":
		return ChoiceNever, nil
	default:
		return ChoiceNo, nil
	}
}
