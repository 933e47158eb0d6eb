package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Page.Size != "a4" {
		t.Errorf("Page.Size = %q, want a4", cfg.Page.Size)
	}
	if cfg.Page.MarginTopMM != 25 || cfg.Page.MarginLeftMM != 20 {
		t.Errorf("default margins = %+v, want 25/20/25/20", cfg.Page)
	}
	if cfg.Text.LeftAlignThreshold != 150 {
		t.Errorf("Text.LeftAlignThreshold = %d, want 150", cfg.Text.LeftAlignThreshold)
	}
	if !cfg.Mermaid.Enabled {
		t.Error("Mermaid.Enabled = false, want true")
	}
	if !cfg.Mermaid.PromptBeforeSimplified {
		t.Error("Mermaid.PromptBeforeSimplified = false, want true")
	}
	if cfg.Mermaid.AutoAcceptSimplified {
		t.Error("Mermaid.AutoAcceptSimplified = true, want false")
	}
	if cfg.Mermaid.MaxLabelLength != 50 {
		t.Errorf("Mermaid.MaxLabelLength = %d, want 50", cfg.Mermaid.MaxLabelLength)
	}
	if cfg.Output.Dir != "" {
		t.Errorf("Output.Dir = %q, want empty", cfg.Output.Dir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v, want nil", err)
	}
}

func TestValidateFieldLength(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		maxLength int
		wantErr   bool
	}{
		{"empty value is valid", "", 10, false},
		{"value at limit is valid", "1234567890", 10, false},
		{"value under limit is valid", "12345", 10, false},
		{"value over limit returns error", "12345678901", 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFieldLength("test.field", tt.value, tt.maxLength)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, ErrFieldTooLong) {
					t.Errorf("error = %v, want ErrFieldTooLong", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(*Config) {},
		},
		{
			name:    "invalid page size",
			mutate:  func(c *Config) { c.Page.Size = "tabloid" },
			wantErr: "page.size",
		},
		{
			name:    "negative margin",
			mutate:  func(c *Config) { c.Page.MarginTopMM = -1 },
			wantErr: "page.marginTopMM",
		},
		{
			name:    "margin over limit",
			mutate:  func(c *Config) { c.Page.MarginLeftMM = 150 },
			wantErr: "page.marginLeftMM",
		},
		{
			name:    "negative left align threshold",
			mutate:  func(c *Config) { c.Text.LeftAlignThreshold = -10 },
			wantErr: "text.leftAlignThreshold",
		},
		{
			name:    "negative label length",
			mutate:  func(c *Config) { c.Mermaid.MaxLabelLength = -1 },
			wantErr: "mermaid.maxLabelLength",
		},
		{
			name:    "width percent over 100",
			mutate:  func(c *Config) { c.Mermaid.MaxWidthPercent = 120 },
			wantErr: "mermaid.maxWidthPercent",
		},
		{
			name:    "negative viewport",
			mutate:  func(c *Config) { c.Mermaid.ViewportWidth = -5 },
			wantErr: "mermaid viewport",
		},
		{
			name:    "title too long",
			mutate:  func(c *Config) { c.Document.Title = strings.Repeat("x", MaxTitleLength+1) },
			wantErr: "document.title",
		},
		{
			name:    "theme too long",
			mutate:  func(c *Config) { c.Mermaid.Theme = strings.Repeat("t", MaxThemeLength+1) },
			wantErr: "mermaid.theme",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_EmptyName(t *testing.T) {
	_, err := LoadConfig("")
	if !errors.Is(err, ErrEmptyConfigName) {
		t.Errorf("error = %v, want ErrEmptyConfigName", err)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("error = %v, want ErrConfigNotFound", err)
	}
}

func TestLoadConfig_FromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.yaml")
	content := `
document:
  title: Runbook
  author: Ops Team
page:
  size: letter
mermaid:
  maxLabelLength: 40
  autoAcceptSimplified: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Document.Title != "Runbook" {
		t.Errorf("Document.Title = %q, want Runbook", cfg.Document.Title)
	}
	if cfg.Page.Size != "letter" {
		t.Errorf("Page.Size = %q, want letter", cfg.Page.Size)
	}
	if cfg.Mermaid.MaxLabelLength != 40 {
		t.Errorf("Mermaid.MaxLabelLength = %d, want 40", cfg.Mermaid.MaxLabelLength)
	}
	if !cfg.Mermaid.AutoAcceptSimplified {
		t.Error("Mermaid.AutoAcceptSimplified = false, want true")
	}
	// Unspecified sections keep their defaults.
	if cfg.Text.LeftAlignThreshold != 150 {
		t.Errorf("Text.LeftAlignThreshold = %d, want default 150", cfg.Text.LeftAlignThreshold)
	}
	if cfg.Page.MarginTopMM != 25 {
		t.Errorf("Page.MarginTopMM = %v, want default 25", cfg.Page.MarginTopMM)
	}
}

func TestLoadConfig_RejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.yaml")
	content := "document:\n  title: ok\n  publisher: nope\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := LoadConfig(path)
	if !errors.Is(err, ErrConfigParse) {
		t.Errorf("error = %v, want ErrConfigParse for unknown key", err)
	}
}

func TestLoadConfig_InvalidValuesRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.yaml")
	content := "page:\n  size: tabloid\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected validation error, got nil")
	}
}

func TestLoadConfig_ResolvesNameInCurrentDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "team.yml"), []byte("document:\n  author: doc team\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := LoadConfig("team")
	if err != nil {
		t.Fatalf("LoadConfig(name) error = %v", err)
	}
	if cfg.Document.Author != "doc team" {
		t.Errorf("Document.Author = %q, want %q", cfg.Document.Author, "doc team")
	}
}

func TestSearchPaths(t *testing.T) {
	paths := SearchPaths("build")

	if len(paths) < 2 {
		t.Fatalf("SearchPaths() returned %d paths, want at least cwd candidates", len(paths))
	}
	if paths[0] != "build.yaml" || paths[1] != "build.yml" {
		t.Errorf("cwd candidates = %v, want build.yaml then build.yml", paths[:2])
	}
	for _, p := range paths[2:] {
		if !strings.Contains(p, "go-docbuild") {
			t.Errorf("user config candidate %q not under go-docbuild", p)
		}
	}
}
