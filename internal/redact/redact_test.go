package redact

import (
	"strings"
	"testing"
)

func TestStringRedaction(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		disallow []string
		require  []string
	}{
		{
			name:     "bearer header",
			input:    "Authorization: Bearer mw-secret-123",
			disallow: []string{"mw-secret-123"},
			require:  []string{"[REDACTED]"},
		},
		{
			name:     "api keys slice",
			input:    "api_keys=[proj-key-1 proj-key-2]",
			disallow: []string{"proj-key-1", "proj-key-2"},
			require:  []string{"api_keys=[REDACTED]"},
		},
		{
			name:     "email address",
			input:    "member contact jane.doe@example.com updated",
			disallow: []string{"jane.doe@example.com"},
			require:  []string{"[REDACTED_EMAIL]"},
		},
		{
			name:     "signed url",
			input:    "fetched https://api.example.com/exports/report.json?sig=abc123",
			disallow: []string{"report.json?sig=abc123"},
			require:  []string{"https://api.example.com/report.json"},
		},
		{
			name:     "mixed tokens",
			input:    "Bearer abc key=supersecret token=anotherone url=https://files.example.test/batch/",
			disallow: []string{"supersecret", "anotherone", "batch/"},
			require:  []string{"[REDACTED]", "https://files.example.test/[REDACTED_PATH]"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := String(tc.input)
			for _, bad := range tc.disallow {
				if bad != "" && strings.Contains(out, bad) {
					t.Fatalf("output still contains %q: %s", bad, out)
				}
			}
			for _, want := range tc.require {
				if want != "" && !strings.Contains(out, want) {
					t.Fatalf("output missing required substring %q: %s", want, out)
				}
			}
		})
	}
}
