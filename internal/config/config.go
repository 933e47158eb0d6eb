package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-docbuild/internal/fileutil"
	"github.com/alnah/go-docbuild/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
)

// Field length limits for multi-tenant safety.
const (
	MaxTitleLength    = 200 // Document/cover title
	MaxAuthorLength   = 100 // Author name
	MaxDateLength     = 30  // "2025-12-31" or "December 31, 2025"
	MaxVersionLength  = 50  // Version string
	MaxPrefixLength   = 50  // Output filename prefix
	MaxPageSizeLength = 10  // "a4", "letter", "legal"
	MaxColorLength    = 20  // "#ffffff" or color name
	MaxThemeLength    = 30  // mermaid theme name
	MaxCurveLength    = 20  // flowchart curve style
)

// Config holds all configuration for document generation.
type Config struct {
	Document DocumentConfig `yaml:"document"`
	Output   OutputConfig   `yaml:"output"`
	Page     PageConfig     `yaml:"page"`
	Text     TextConfig     `yaml:"text"`
	Mermaid  MermaidConfig  `yaml:"mermaid"`
}

// DocumentConfig defines cover metadata defaults. Front matter in the
// document overrides these; an empty title falls back to the first H1.
type DocumentConfig struct {
	Title   string `yaml:"title"`
	Author  string `yaml:"author"`
	Date    string `yaml:"date"` // Empty = today
	Version string `yaml:"version"`
}

// OutputConfig defines output destination options.
type OutputConfig struct {
	Dir            string `yaml:"dir"`            // Empty = same as source
	FilenamePrefix string `yaml:"filenamePrefix"` // Prepended to the output stem
}

// PageConfig defines physical page settings, margins in millimeters.
type PageConfig struct {
	Size           string  `yaml:"size"` // "a4", "letter", "legal" (default: "a4")
	MarginTopMM    float64 `yaml:"marginTopMM"`
	MarginRightMM  float64 `yaml:"marginRightMM"`
	MarginBottomMM float64 `yaml:"marginBottomMM"`
	MarginLeftMM   float64 `yaml:"marginLeftMM"`
}

// TextConfig defines text flow options.
type TextConfig struct {
	// Paragraphs shorter than this many rendered characters are
	// left-aligned instead of justified. 0 = default.
	LeftAlignThreshold int `yaml:"leftAlignThreshold"`
}

// MermaidConfig defines diagram rendering options.
type MermaidConfig struct {
	Enabled                bool   `yaml:"enabled"`
	AutoFixEdgeCases       bool   `yaml:"autoFixEdgeCases"`
	ShowFixWarnings        bool   `yaml:"showFixWarnings"`
	MaxLabelLength         int    `yaml:"maxLabelLength"`
	FallbackToSimplified   bool   `yaml:"fallbackToSimplified"`
	AutoAcceptSimplified   bool   `yaml:"autoAcceptSimplified"`
	PromptBeforeSimplified bool   `yaml:"promptBeforeSimplified"`
	FallbackToCode         bool   `yaml:"fallbackToCode"`
	MaxWidthPercent        int    `yaml:"maxWidthPercent"`
	Background             string `yaml:"background"`
	ViewportWidth          int    `yaml:"viewportWidth"`
	ViewportHeight         int    `yaml:"viewportHeight"`
	Theme                  string `yaml:"theme"`
	FlowCurve              string `yaml:"flowCurve"`
}

// Validate checks field lengths and value ranges. Called automatically by
// LoadConfig, but available for consumers who construct Config manually.
func (c *Config) Validate() error {
	if err := validateFieldLength("document.title", c.Document.Title, MaxTitleLength); err != nil {
		return err
	}
	if err := validateFieldLength("document.author", c.Document.Author, MaxAuthorLength); err != nil {
		return err
	}
	if err := validateFieldLength("document.date", c.Document.Date, MaxDateLength); err != nil {
		return err
	}
	if err := validateFieldLength("document.version", c.Document.Version, MaxVersionLength); err != nil {
		return err
	}
	if err := validateFieldLength("output.filenamePrefix", c.Output.FilenamePrefix, MaxPrefixLength); err != nil {
		return err
	}

	if err := validateFieldLength("page.size", c.Page.Size, MaxPageSizeLength); err != nil {
		return err
	}
	if c.Page.Size != "" {
		switch strings.ToLower(c.Page.Size) {
		case "a4", "letter", "legal":
			// valid
		default:
			return fmt.Errorf("page.size: invalid value %q (must be a4, letter, or legal)", c.Page.Size)
		}
	}
	for _, m := range []struct {
		name  string
		value float64
	}{
		{"page.marginTopMM", c.Page.MarginTopMM},
		{"page.marginRightMM", c.Page.MarginRightMM},
		{"page.marginBottomMM", c.Page.MarginBottomMM},
		{"page.marginLeftMM", c.Page.MarginLeftMM},
	} {
		if m.value < 0 || m.value > 100 {
			return fmt.Errorf("%s: must be between 0 and 100, got %.1f", m.name, m.value)
		}
	}

	if c.Text.LeftAlignThreshold < 0 {
		return fmt.Errorf("text.leftAlignThreshold: must be non-negative, got %d", c.Text.LeftAlignThreshold)
	}

	if c.Mermaid.MaxLabelLength < 0 {
		return fmt.Errorf("mermaid.maxLabelLength: must be non-negative, got %d", c.Mermaid.MaxLabelLength)
	}
	if c.Mermaid.MaxWidthPercent < 0 || c.Mermaid.MaxWidthPercent > 100 {
		return fmt.Errorf("mermaid.maxWidthPercent: must be between 0 and 100, got %d", c.Mermaid.MaxWidthPercent)
	}
	if c.Mermaid.ViewportWidth < 0 || c.Mermaid.ViewportHeight < 0 {
		return fmt.Errorf("mermaid viewport: must be non-negative, got %dx%d",
			c.Mermaid.ViewportWidth, c.Mermaid.ViewportHeight)
	}
	if err := validateFieldLength("mermaid.background", c.Mermaid.Background, MaxColorLength); err != nil {
		return err
	}
	if err := validateFieldLength("mermaid.theme", c.Mermaid.Theme, MaxThemeLength); err != nil {
		return err
	}
	if err := validateFieldLength("mermaid.flowCurve", c.Mermaid.FlowCurve, MaxCurveLength); err != nil {
		return err
	}

	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Document: DocumentConfig{Version: "1.0.0"},
		Page: PageConfig{
			Size:           "a4",
			MarginTopMM:    25,
			MarginRightMM:  20,
			MarginBottomMM: 25,
			MarginLeftMM:   20,
		},
		Text: TextConfig{LeftAlignThreshold: 150},
		Mermaid: MermaidConfig{
			Enabled:                true,
			AutoFixEdgeCases:       true,
			ShowFixWarnings:        true,
			MaxLabelLength:         50,
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
		},
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if fileutil.IsFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SearchPaths returns the candidate file paths tried when resolving a config
// by name, in search order: current directory first, then the user config
// directory, with .yaml before .yml in each.
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2) // 2 locations

	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(userConfigDir, "go-docbuild", name+ext))
		}
	}

	return paths
}

// resolveConfigPath searches for a config file by name in standard locations.
func resolveConfigPath(name string) (string, error) {
	tried := SearchPaths(name)
	for _, p := range tried {
		if fileutil.FileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(tried, ", "))
}
