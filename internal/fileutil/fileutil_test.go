package fileutil_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alnah/go-docbuild/internal/fileutil"
)

func TestWriteTempFile(t *testing.T) {
	t.Parallel()

	path, cleanup, err := fileutil.WriteTempFile("graph TD\nA --> B", "mmd")
	if err != nil {
		t.Fatalf("WriteTempFile() error = %v", err)
	}
	defer cleanup()

	if !strings.HasSuffix(path, ".mmd") {
		t.Errorf("path %q does not carry the extension", path)
	}

	content, err := os.ReadFile(path) // #nosec G304 -- test-created path
	if err != nil {
		t.Fatalf("reading temp file: %v", err)
	}
	if string(content) != "graph TD\nA --> B" {
		t.Errorf("content = %q", content)
	}

	cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("cleanup did not remove the file")
	}
}

func TestWriteTempFile_InvalidExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		extension string
		wantErr   error
	}{
		{name: "empty", extension: "", wantErr: fileutil.ErrExtensionEmpty},
		{name: "path separator", extension: "a/b", wantErr: fileutil.ErrExtensionPathTraversal},
		{name: "backslash", extension: `a\b`, wantErr: fileutil.ErrExtensionPathTraversal},
		{name: "null byte", extension: "a\x00b", wantErr: fileutil.ErrExtensionPathTraversal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := fileutil.WriteTempFile("x", tt.extension)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("WriteTempFile(%q) error = %v, want %v", tt.extension, err, tt.wantErr)
			}
		})
	}
}

func TestFileExists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "doc.md")
	if err := os.WriteFile(file, []byte("# Title"), 0o644); err != nil {
		t.Fatal(err)
	}

	if !fileutil.FileExists(file) {
		t.Error("FileExists(file) = false, want true")
	}
	if fileutil.FileExists(dir) {
		t.Error("FileExists(dir) = true, want false")
	}
	if fileutil.FileExists(filepath.Join(dir, "missing.md")) {
		t.Error("FileExists(missing) = true, want false")
	}
}

func TestIsFilePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  bool
	}{
		{"default", false},
		{"./local.yaml", true},
		{"../up/config.yml", true},
		{"/abs/config.yaml", true},
		{`C:\win\config.yaml`, true},
		{"my-config", false},
	}

	for _, tt := range tests {
		if got := fileutil.IsFilePath(tt.input); got != tt.want {
			t.Errorf("IsFilePath(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
