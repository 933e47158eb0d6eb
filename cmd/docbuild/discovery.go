package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// documentExtensions lists the input types the CLI accepts.
var documentExtensions = map[string]bool{
	".md":  true,
	".txt": true,
}

// discoverInputs expands file and directory arguments into the sorted set of
// documents to build. Directories are searched non-recursively; unknown
// extensions inside a directory are skipped, but a file named explicitly
// must be a supported type.
func discoverInputs(args []string) ([]string, error) {
	if len(args) == 0 {
		return nil, ErrNoInput
	}

	var files []string
	seen := map[string]bool{}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", arg, err)
		}

		if !info.IsDir() {
			if !documentExtensions[strings.ToLower(filepath.Ext(arg))] {
				return nil, fmt.Errorf("input %s: unsupported extension (want .md or .txt)", arg)
			}
			if !seen[arg] {
				seen[arg] = true
				files = append(files, arg)
			}
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("reading directory %s: %w", arg, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !documentExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
				continue
			}
			path := filepath.Join(arg, entry.Name())
			if !seen[path] {
				seen[path] = true
				files = append(files, path)
			}
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no .md or .txt documents found", ErrNoInput)
	}
	sort.Strings(files)
	return files, nil
}
