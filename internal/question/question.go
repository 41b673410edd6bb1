// Package question sanitizes and shape-checks raw question text before any
// policy scanning runs.
package question

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxChars caps question length after sanitization.
const DefaultMaxChars = 500

const minChars = 3

// Outcome is the result of validating one question. Errors are ordered the
// way the checks ran.
type Outcome struct {
	Valid     bool
	Sanitized string
	Errors    []string
}

// Validator applies sanitization and schema checks to raw question text.
type Validator struct {
	maxChars int
}

// NewValidator builds a validator. maxChars <= 0 selects the default cap.
func NewValidator(maxChars int) *Validator {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Validator{maxChars: maxChars}
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Sanitize strips control characters, collapses whitespace runs to a single
// space and trims both ends.
func Sanitize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(b.String(), " "))
}

// Validate sanitizes the raw text and runs the schema checks. Length checks
// fail fast; the content checks run only once length passes and collect
// every applicable error.
func (v *Validator) Validate(raw string) Outcome {
	sanitized := Sanitize(raw)

	length := utf8.RuneCountInString(sanitized)
	if length < minChars {
		if sanitized == "" {
			return Outcome{Sanitized: sanitized, Errors: []string{"question is empty after sanitization"}}
		}
		return Outcome{Sanitized: sanitized, Errors: []string{"question is too short"}}
	}
	if length > v.maxChars {
		return Outcome{Sanitized: sanitized, Errors: []string{"question is too long"}}
	}

	var errs []string
	if ratio := specialCharRatio(sanitized); ratio > 0.5 {
		errs = append(errs, "question contains too many special characters")
	}

	if len(errs) > 0 {
		return Outcome{Sanitized: sanitized, Errors: errs}
	}
	return Outcome{Valid: true, Sanitized: sanitized}
}

// specialCharRatio is the share of runes that are neither alphanumeric nor
// spaces.
func specialCharRatio(s string) float64 {
	if s == "" {
		return 0
	}
	var special, total int
	for _, r := range s {
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			continue
		}
		special++
	}
	return float64(special) / float64(total)
}
