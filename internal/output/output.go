// Package output validates generated answers before they can leave the
// service and supplies the fixed fallback used whenever validation fails.
package output

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/memberwise-ai/memberwise/internal/provider"
)

// Default length caps for generated answers.
const (
	DefaultMaxSummaryChars   = 2000
	DefaultMaxReasoningChars = 1000
)

// FallbackSummary is the static answer substituted for any invalid output.
const FallbackSummary = "I wasn't able to produce a reliable answer for that question. " +
	"Please try rephrasing it, or narrow it to a specific location, plan or time period."

// forbidden content markers checked against summary and reasoning.
var forbiddenPatterns = []struct {
	label   string
	pattern *regexp.Regexp
}{
	{"credential leak", regexp.MustCompile(`(?i)\b(password|passwd|api[ _-]?key|secret[ _-]?key|access[ _-]?token)\b`)},
	{"script injection", regexp.MustCompile(`(?i)(<\s*script|javascript\s*:|on(click|load|error)\s*=)`)},
	{"inappropriate content", regexp.MustCompile(`(?i)\b(kill yourself|kys)\b`)},
}

// Validator schema-checks an answer and defensively truncates it.
type Validator struct {
	maxSummaryChars   int
	maxReasoningChars int
}

// NewValidator builds a validator; non-positive caps select the defaults.
func NewValidator(maxSummaryChars, maxReasoningChars int) *Validator {
	if maxSummaryChars <= 0 {
		maxSummaryChars = DefaultMaxSummaryChars
	}
	if maxReasoningChars <= 0 {
		maxReasoningChars = DefaultMaxReasoningChars
	}
	return &Validator{
		maxSummaryChars:   maxSummaryChars,
		maxReasoningChars: maxReasoningChars,
	}
}

// Validate checks schema and content safety. On any failure it returns
// (zero answer, errors) — never a partially sanitized version of the
// rejected content; callers substitute Fallback(). On success the summary
// and reasoning are truncated to the caps even when they already passed the
// length check.
func (v *Validator) Validate(ans provider.Answer) (provider.Answer, []string) {
	var errs []string

	if strings.TrimSpace(ans.Summary) == "" {
		errs = append(errs, "summary is empty")
	}
	if utf8.RuneCountInString(ans.Summary) > v.maxSummaryChars {
		errs = append(errs, fmt.Sprintf("summary exceeds %d characters", v.maxSummaryChars))
	}
	if !validConfidence(ans.Confidence) {
		errs = append(errs, fmt.Sprintf("confidence %q is not one of high, medium, low", ans.Confidence))
	}
	if utf8.RuneCountInString(ans.Reasoning) > v.maxReasoningChars {
		errs = append(errs, fmt.Sprintf("reasoning exceeds %d characters", v.maxReasoningChars))
	}

	for _, f := range forbiddenPatterns {
		if f.pattern.MatchString(ans.Summary) {
			errs = append(errs, fmt.Sprintf("summary contains %s marker", f.label))
		}
		if ans.Reasoning != "" && f.pattern.MatchString(ans.Reasoning) {
			errs = append(errs, fmt.Sprintf("reasoning contains %s marker", f.label))
		}
	}

	if len(errs) > 0 {
		return provider.Answer{}, errs
	}

	ans.Summary = truncate(ans.Summary, v.maxSummaryChars)
	ans.Reasoning = truncate(ans.Reasoning, v.maxReasoningChars)
	return ans, nil
}

// Fallback returns the fixed safe answer. Pure and deterministic.
func Fallback() provider.Answer {
	return provider.Answer{
		Summary:    FallbackSummary,
		Confidence: provider.ConfidenceLow,
	}
}

func validConfidence(c provider.Confidence) bool {
	switch c {
	case provider.ConfidenceHigh, provider.ConfidenceMedium, provider.ConfidenceLow:
		return true
	}
	return false
}

// truncate caps s at max runes, never splitting a UTF-8 sequence.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
