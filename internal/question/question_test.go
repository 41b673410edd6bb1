package question

import (
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"control chars stripped", "why\x00 did\x1b this happen", "why did this happen"},
		{"whitespace collapsed", "why   did\tthis\n\nhappen", "why did this happen"},
		{"trimmed", "  hello  ", "hello"},
		{"already clean", "hello world", "hello world"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Sanitize(tc.in); got != tc.want {
				t.Fatalf("Sanitize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestValidate_Rejections(t *testing.T) {
	v := NewValidator(500)

	cases := []struct {
		name    string
		in      string
		wantErr string
	}{
		{"too short", "Hi", "question is too short"},
		{"empty after sanitization", "\x00\x01 \t", "question is empty after sanitization"},
		{"too long", strings.Repeat("a", 501), "question is too long"},
		{"too many special characters", "???!!!###$$$ why", "question contains too many special characters"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := v.Validate(tc.in)
			if out.Valid {
				t.Fatalf("expected rejection for %q", tc.in)
			}
			found := false
			for _, e := range out.Errors {
				if e == tc.wantErr {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected error %q, got %v", tc.wantErr, out.Errors)
			}
		})
	}
}

func TestValidate_AcceptsNormalQuestion(t *testing.T) {
	v := NewValidator(500)

	out := v.Validate("  Why does   location 123 have high dropout rates? ")
	if !out.Valid {
		t.Fatalf("expected valid, got errors: %v", out.Errors)
	}
	if out.Sanitized != "Why does location 123 have high dropout rates?" {
		t.Fatalf("unexpected sanitized text: %q", out.Sanitized)
	}
	if len(out.Errors) != 0 {
		t.Fatalf("expected no errors, got %v", out.Errors)
	}
}

func TestValidate_LengthCountsRunes(t *testing.T) {
	v := NewValidator(500)

	// 500 characters but well over 500 bytes.
	out := v.Validate(strings.Repeat("ü", 500))
	if !out.Valid {
		t.Fatalf("expected 500-character multibyte question to pass, got %v", out.Errors)
	}

	out = v.Validate(strings.Repeat("ü", 501))
	if out.Valid {
		t.Fatalf("expected 501-character question to be rejected")
	}
	if out.Errors[0] != "question is too long" {
		t.Fatalf("unexpected errors: %v", out.Errors)
	}
}

func TestValidate_LengthUsesSanitizedText(t *testing.T) {
	v := NewValidator(500)

	// Raw text is over the cap but collapses under it after sanitization.
	raw := "why " + strings.Repeat(" ", 600) + "did this happen"
	out := v.Validate(raw)
	if !out.Valid {
		t.Fatalf("expected valid after whitespace collapse, got %v", out.Errors)
	}
}
