package output

import (
	"strings"
	"testing"

	"github.com/memberwise-ai/memberwise/internal/provider"
)

func TestValidate_AcceptsAndTruncates(t *testing.T) {
	v := NewValidator(50, 30)

	ans := provider.Answer{
		Summary:    strings.Repeat("a", 40),
		Confidence: provider.ConfidenceHigh,
		Reasoning:  strings.Repeat("b", 20),
	}

	validated, errs := v.Validate(ans)
	if len(errs) != 0 {
		t.Fatalf("expected valid, got: %v", errs)
	}
	if validated.Summary != ans.Summary || validated.Reasoning != ans.Reasoning {
		t.Fatalf("in-budget answer must pass through unchanged")
	}

	// Defensive truncation applies even when the caps shrink between
	// check and return.
	long := provider.Answer{
		Summary:    strings.Repeat("a", 50),
		Confidence: provider.ConfidenceMedium,
	}
	validated, errs = v.Validate(long)
	if len(errs) != 0 {
		t.Fatalf("expected valid at exactly the cap, got: %v", errs)
	}
	if len(validated.Summary) != 50 {
		t.Fatalf("expected summary kept at cap, got %d", len(validated.Summary))
	}
}

func TestValidate_CapsCountRunes(t *testing.T) {
	v := NewValidator(5, 5)

	// 5 characters, 6 bytes; must pass the cap and survive untouched.
	validated, errs := v.Validate(provider.Answer{Summary: "übung", Confidence: provider.ConfidenceLow})
	if len(errs) != 0 {
		t.Fatalf("expected valid at the rune cap, got: %v", errs)
	}
	if validated.Summary != "übung" {
		t.Fatalf("truncation damaged a multibyte summary: %q", validated.Summary)
	}

	if _, errs := v.Validate(provider.Answer{Summary: "übungen", Confidence: provider.ConfidenceLow}); len(errs) == 0 {
		t.Fatalf("expected 7-character summary rejected at a 5-character cap")
	}
}

func TestValidate_SchemaRejections(t *testing.T) {
	v := NewValidator(2000, 1000)

	cases := []struct {
		name string
		ans  provider.Answer
	}{
		{"empty summary", provider.Answer{Summary: "  ", Confidence: provider.ConfidenceLow}},
		{"summary too long", provider.Answer{Summary: strings.Repeat("a", 2500), Confidence: provider.ConfidenceMedium}},
		{"bad confidence", provider.Answer{Summary: "fine", Confidence: "certain"}},
		{"reasoning too long", provider.Answer{Summary: "fine", Confidence: provider.ConfidenceLow, Reasoning: strings.Repeat("r", 1500)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			validated, errs := v.Validate(tc.ans)
			if len(errs) == 0 {
				t.Fatalf("expected rejection")
			}
			if validated.Summary != "" {
				t.Fatalf("rejected answers must not return partial output, got %q", validated.Summary)
			}
		})
	}
}

func TestValidate_ForbiddenContent(t *testing.T) {
	v := NewValidator(2000, 1000)

	cases := []struct {
		name string
		ans  provider.Answer
	}{
		{"credential marker in summary", provider.Answer{Summary: "The admin password is hunter2", Confidence: provider.ConfidenceHigh}},
		{"api key marker", provider.Answer{Summary: "Use this api key to query the data", Confidence: provider.ConfidenceHigh}},
		{"script tag", provider.Answer{Summary: "Results: <script>alert(1)</script>", Confidence: provider.ConfidenceMedium}},
		{"javascript scheme in reasoning", provider.Answer{Summary: "fine", Confidence: provider.ConfidenceLow, Reasoning: "see javascript:void(0)"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, errs := v.Validate(tc.ans); len(errs) == 0 {
				t.Fatalf("expected forbidden-content rejection")
			}
		})
	}
}

func TestFallback(t *testing.T) {
	fb := Fallback()
	if fb.Summary != FallbackSummary {
		t.Fatalf("unexpected fallback summary: %q", fb.Summary)
	}
	if fb.Confidence != provider.ConfidenceLow {
		t.Fatalf("fallback confidence must be low, got %q", fb.Confidence)
	}
	if fb != Fallback() {
		t.Fatalf("fallback must be deterministic")
	}
}
