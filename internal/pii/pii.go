// Package pii detects and redacts categories of personal data. The same
// scanner runs on inbound questions (block) and outbound answers (redact).
package pii

import (
	"fmt"
	"regexp"
	"strings"
)

// Category labels a class of personal data.
type Category string

const (
	CategoryNationalID Category = "national_id"
	CategoryEmail      Category = "email"
	CategoryPhone      Category = "phone"
	CategoryCard       Category = "payment_card"
	CategoryDOB        Category = "date_of_birth"
	CategoryPostalCode Category = "postal_code"
	CategoryMRN        Category = "medical_record_number"
	CategoryNumericID  Category = "numeric_identifier"
)

// DetectedError is returned by AssertNone when text carries personal data.
// The message stays generic; callers decide how much to reveal.
type DetectedError struct {
	Categories []Category
}

func (e *DetectedError) Error() string {
	names := make([]string, len(e.Categories))
	for i, c := range e.Categories {
		names[i] = string(c)
	}
	return fmt.Sprintf("personal data detected: %s", strings.Join(names, ", "))
}

// Rule pairs a category pattern with its replacement marker. Rules are
// applied in declaration order against the accumulating redacted string, so
// later patterns see earlier replacements and never reprocess them; none of
// the patterns can match a marker, which makes Redact idempotent.
type Rule struct {
	Category Category
	Pattern  *regexp.Regexp
	Marker   string
}

var rules = []Rule{
	{CategoryNationalID, regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), "[SSN REDACTED]"},
	{CategoryEmail, regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`), "[EMAIL REDACTED]"},
	{CategoryPhone, regexp.MustCompile(`(\+\d{1,3}[-. ])?\(?\d{3}\)?[-. ]\d{3}[-. ]\d{4}\b`), "[PHONE REDACTED]"},
	{CategoryCard, regexp.MustCompile(`\b(?:\d[ -]?){12,15}\d\b`), "[CARD REDACTED]"},
	{CategoryDOB, regexp.MustCompile(`\b(?:\d{1,2}[/-]\d{1,2}[/-](?:19|20)\d{2}|(?:19|20)\d{2}-\d{2}-\d{2})\b`), "[DOB REDACTED]"},
	{CategoryPostalCode, regexp.MustCompile(`\b\d{5}(-\d{4})?\b`), "[POSTAL CODE REDACTED]"},
	{CategoryMRN, regexp.MustCompile(`(?i)\bMRN[:# ]?\s*\d{6,}\b`), "[MRN REDACTED]"},
	{CategoryNumericID, regexp.MustCompile(`\b\d{9,}\b`), "[ID REDACTED]"},
}

// Result reports every category that matched, plus the fully redacted text.
type Result struct {
	Matched    bool
	Categories []Category
	Redacted   string
}

// Scanner applies the ordered category rules.
type Scanner struct {
	rules []Rule
}

// NewScanner returns a scanner backed by the package rule set.
func NewScanner() *Scanner {
	return &Scanner{rules: rules}
}

// Scan redacts every rule in order and reports all categories that matched
// anywhere in the text, not only the first, so callers can name the full
// set in user-facing messages.
func (s *Scanner) Scan(text string) Result {
	res := Result{Redacted: text}
	for _, r := range s.rules {
		out := r.Pattern.ReplaceAllString(res.Redacted, r.Marker)
		if out != res.Redacted {
			res.Matched = true
			res.Categories = append(res.Categories, r.Category)
			res.Redacted = out
		}
	}
	return res
}

// Redact masks every detected category and returns the result. Running it
// on already-redacted text is a no-op.
func (s *Scanner) Redact(text string) string {
	return s.Scan(text).Redacted
}

// AssertNone fails when the text contains any personal data category. Used
// on the inbound path, which blocks rather than masks.
func (s *Scanner) AssertNone(text string) error {
	res := s.Scan(text)
	if !res.Matched {
		return nil
	}
	return &DetectedError{Categories: res.Categories}
}
