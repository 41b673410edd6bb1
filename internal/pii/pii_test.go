package pii

import (
	"errors"
	"strings"
	"testing"
)

func TestScan_DetectsAndRedactsCategories(t *testing.T) {
	s := NewScanner()

	cases := []struct {
		name     string
		in       string
		category Category
		marker   string
		secret   string
	}{
		{"national id", "my ssn is 123-45-6789 thanks", CategoryNationalID, "[SSN REDACTED]", "123-45-6789"},
		{"email", "reach me at jane.doe@example.com", CategoryEmail, "[EMAIL REDACTED]", "jane.doe@example.com"},
		{"phone", "call (555) 123-4567 after noon", CategoryPhone, "[PHONE REDACTED]", "123-4567"},
		{"payment card", "card 4111 1111 1111 1111 on file", CategoryCard, "[CARD REDACTED]", "4111 1111 1111 1111"},
		{"date of birth", "born 12/05/1990 in Ohio", CategoryDOB, "[DOB REDACTED]", "12/05/1990"},
		{"postal code", "ships to 90210 by friday", CategoryPostalCode, "[POSTAL CODE REDACTED]", "90210"},
		{"medical record number", "chart MRN 4857392 was updated", CategoryMRN, "[MRN REDACTED]", "4857392"},
		{"long numeric id", "internal ref 9876543210 follow up", CategoryNumericID, "[ID REDACTED]", "9876543210"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := s.Scan(tc.in)
			if !res.Matched {
				t.Fatalf("expected a match for %q", tc.in)
			}
			if !hasCategory(res.Categories, tc.category) {
				t.Fatalf("expected category %q, got %v", tc.category, res.Categories)
			}
			if strings.Contains(res.Redacted, tc.secret) {
				t.Fatalf("redacted text still contains %q: %s", tc.secret, res.Redacted)
			}
			if !strings.Contains(res.Redacted, tc.marker) {
				t.Fatalf("expected marker %q in %q", tc.marker, res.Redacted)
			}
		})
	}
}

func TestScan_ReportsAllCategoriesNotJustFirst(t *testing.T) {
	s := NewScanner()

	res := s.Scan("ssn 123-45-6789, email jane@example.com, phone 555-123-4567")
	if !res.Matched {
		t.Fatalf("expected matches")
	}
	for _, want := range []Category{CategoryNationalID, CategoryEmail, CategoryPhone} {
		if !hasCategory(res.Categories, want) {
			t.Fatalf("missing category %q in %v", want, res.Categories)
		}
	}
}

func TestScan_CleanText(t *testing.T) {
	s := NewScanner()

	res := s.Scan("Why does location 123 have high dropout rates?")
	if res.Matched {
		t.Fatalf("expected no match, got %v", res.Categories)
	}
	if res.Redacted != "Why does location 123 have high dropout rates?" {
		t.Fatalf("clean text must pass through unchanged, got %q", res.Redacted)
	}
}

func TestRedact_Idempotent(t *testing.T) {
	s := NewScanner()

	inputs := []string{
		"ssn 123-45-6789 and email jane@example.com",
		"card 4111-1111-1111-1111, MRN 4857392, zip 90210",
		"no personal data here at all",
		"",
	}

	for _, in := range inputs {
		once := s.Redact(in)
		twice := s.Redact(once)
		if once != twice {
			t.Fatalf("redact not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestAssertNone(t *testing.T) {
	s := NewScanner()

	if err := s.AssertNone("safe business question about churn"); err != nil {
		t.Fatalf("expected nil for clean text, got: %v", err)
	}

	err := s.AssertNone("my ssn is 123-45-6789")
	var de *DetectedError
	if !errors.As(err, &de) {
		t.Fatalf("expected DetectedError, got: %v", err)
	}
	if !hasCategory(de.Categories, CategoryNationalID) {
		t.Fatalf("expected national_id category, got %v", de.Categories)
	}
}

func hasCategory(cats []Category, want Category) bool {
	for _, c := range cats {
		if c == want {
			return true
		}
	}
	return false
}
