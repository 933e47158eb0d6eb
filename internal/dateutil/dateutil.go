// Package dateutil resolves document date values, including the
// "auto" and "auto:FORMAT" syntax for current-date substitution.
package dateutil

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidFormat indicates a date format string that cannot be parsed.
var ErrInvalidFormat = errors.New("invalid date format")

// maxFormatLength bounds user-supplied format strings.
const maxFormatLength = 50

// isoFormat is the default when "auto" carries no explicit format.
const isoFormat = "YYYY-MM-DD"

// tokens maps friendly format tokens to Go reference-time components,
// longest first so greedy matching never splits a token.
var tokens = [...][2]string{
	{"YYYY", "2006"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"YY", "06"},
	{"MM", "01"},
	{"DD", "02"},
	{"M", "1"},
	{"D", "2"},
}

// presets are named shortcuts accepted after "auto:".
var presets = map[string]string{
	"iso":      isoFormat,
	"european": "DD/MM/YYYY",
	"us":       "MM/DD/YYYY",
	"long":     "MMMM D, YYYY",
}

// ResolveDate expands "auto" values into the current date and passes
// anything else through unchanged. Accepted forms:
//
//	auto            current date as YYYY-MM-DD
//	auto:FORMAT     current date in a token format, e.g. auto:DD/MM/YYYY
//	auto:PRESET     one of iso, european, us, long
//
// The time argument is the clock, injectable for tests.
func ResolveDate(value string, now time.Time) (string, error) {
	lower := strings.ToLower(value)
	if !strings.HasPrefix(lower, "auto") {
		return value, nil
	}

	format := isoFormat
	if lower != "auto" {
		rest, ok := strings.CutPrefix(value, value[:5])
		if !strings.HasPrefix(lower, "auto:") || !ok || rest == "" {
			return "", fmt.Errorf("%w: %q, use \"auto\" or \"auto:FORMAT\"", ErrInvalidFormat, value)
		}
		format = rest
		if preset, found := presets[strings.ToLower(format)]; found {
			format = preset
		}
	}

	goFmt, err := toGoFormat(format)
	if err != nil {
		return "", err
	}
	return now.Format(goFmt), nil
}

// toGoFormat translates a token format into Go's reference-time layout.
// Bracketed text is copied literally, so [D]D renders as "D" then the
// day number; stray characters outside brackets pass through as-is.
func toGoFormat(format string) (string, error) {
	if format == "" {
		return "", fmt.Errorf("%w: empty format", ErrInvalidFormat)
	}
	if len(format) > maxFormatLength {
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidFormat, maxFormatLength)
	}

	var out strings.Builder
	for i := 0; i < len(format); {
		if format[i] == '[' {
			end := strings.IndexByte(format[i:], ']')
			if end < 0 {
				return "", fmt.Errorf("%w: unclosed bracket at position %d", ErrInvalidFormat, i)
			}
			out.WriteString(format[i+1 : i+end])
			i += end + 1
			continue
		}

		matched := false
		for _, tok := range tokens {
			if strings.HasPrefix(format[i:], tok[0]) {
				out.WriteString(tok[1])
				i += len(tok[0])
				matched = true
				break
			}
		}
		if !matched {
			out.WriteByte(format[i])
			i++
		}
	}
	return out.String(), nil
}
