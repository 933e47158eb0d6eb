package main

import (
	"errors"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
)

// ErrNoInput indicates no input files or directories were given.
var ErrNoInput = errors.New("no input files")

// cliFlags holds all parsed command-line options.
type cliFlags struct {
	config    string
	output    string
	outputDir string

	title   string
	author  string
	docVer  string
	date    string

	noMermaid      bool
	acceptDiagrams bool

	quiet   bool
	verbose bool
	version bool
	help    bool
}

const usageText = `Usage: docbuild [flags] <file|dir>...

Builds paginated PDFs from markdown (.md) or plain text (.txt) documents.
Directories are searched for documents non-recursively.

Flags:
`

// parseFlags parses args (including the program name) and returns the flags
// and the positional inputs.
func parseFlags(args []string) (*cliFlags, []string, error) {
	flags := &cliFlags{}
	fs := flag.NewFlagSet("docbuild", flag.ContinueOnError)

	fs.StringVarP(&flags.config, "config", "c", "", "config file path or name")
	fs.StringVarP(&flags.output, "output", "o", "", "output PDF path (single input only)")
	fs.StringVar(&flags.outputDir, "output-dir", "", "directory for generated PDFs")

	fs.StringVar(&flags.title, "title", "", "document title (front matter wins)")
	fs.StringVar(&flags.author, "author", "", "document author")
	fs.StringVar(&flags.docVer, "doc-version", "", "document version string")
	fs.StringVar(&flags.date, "date", "", "document date (default: today)")

	fs.BoolVar(&flags.noMermaid, "no-mermaid", false, "render diagram fences as code blocks")
	fs.BoolVarP(&flags.acceptDiagrams, "yes", "y", false, "accept simplified diagrams without prompting")

	fs.BoolVarP(&flags.quiet, "quiet", "q", false, "suppress per-file output")
	fs.BoolVarP(&flags.verbose, "verbose", "v", false, "verbose diagnostics")
	fs.BoolVar(&flags.version, "version", false, "print version and exit")
	fs.BoolVarP(&flags.help, "help", "h", false, "print help and exit")

	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usageText)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args[1:]); err != nil {
		return nil, nil, err
	}
	if flags.help {
		fs.Usage()
	}
	return flags, fs.Args(), nil
}
