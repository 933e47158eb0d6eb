// Package yamlutil is the single point of contact with the YAML library,
// shared by config loading and front matter parsing.
package yamlutil

import (
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
)

// MaxInputSize caps YAML input; front matter and config files are tiny, so
// anything near this is hostile or corrupt.
var MaxInputSize = 1 << 20

var (
	ErrNilData        = errors.New("yamlutil: nil or empty data")
	ErrNilDestination = errors.New("yamlutil: nil destination pointer")
	ErrInputTooLarge  = errors.New("yamlutil: input exceeds maximum size")
)

// Unmarshal parses YAML into v, tolerating unknown fields. Front matter
// uses this form: documents may carry keys the pipeline does not consume.
func Unmarshal(data []byte, v any) error {
	return unmarshal(data, v)
}

// UnmarshalStrict parses YAML into v and rejects unknown fields. Config
// files use this form so a typoed key fails loudly instead of silently
// keeping the default.
func UnmarshalStrict(data []byte, v any) error {
	return unmarshal(data, v, yaml.Strict())
}

func unmarshal(data []byte, v any, opts ...yaml.DecodeOption) error {
	if len(data) == 0 {
		return ErrNilData
	}
	if len(data) > MaxInputSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, len(data), MaxInputSize)
	}
	if v == nil {
		return ErrNilDestination
	}
	if err := yaml.UnmarshalWithOptions(data, v, opts...); err != nil {
		return fmt.Errorf("yamlutil: %w", err)
	}
	return nil
}
