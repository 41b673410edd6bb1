package provider

import "testing"

func TestParseAnswer_CleanJSON(t *testing.T) {
	raw := `{"summary": "Attendance dropped 12% at GYM_101.", "confidence": "high", "reasoning": "Comparing Q1 to Q2 visits."}`

	p := ParseAnswer(raw)
	if !p.Parsed {
		t.Fatalf("expected parsed answer")
	}
	if p.Answer.Summary != "Attendance dropped 12% at GYM_101." {
		t.Fatalf("unexpected summary: %q", p.Answer.Summary)
	}
	if p.Answer.Confidence != ConfidenceHigh {
		t.Fatalf("unexpected confidence: %q", p.Answer.Confidence)
	}
	if p.Answer.Reasoning == "" {
		t.Fatalf("expected reasoning to be carried over")
	}
}

func TestParseAnswer_JSONWrappedInProse(t *testing.T) {
	raw := "Sure, here is the analysis:\n```json\n{\"summary\": \"Churn is concentrated in the basic tier.\", \"confidence\": \"medium\"}\n```\nLet me know if you need more."

	p := ParseAnswer(raw)
	if !p.Parsed {
		t.Fatalf("expected parsed answer from fenced JSON")
	}
	if p.Answer.Summary != "Churn is concentrated in the basic tier." {
		t.Fatalf("unexpected summary: %q", p.Answer.Summary)
	}
	if p.Answer.Confidence != ConfidenceMedium {
		t.Fatalf("unexpected confidence: %q", p.Answer.Confidence)
	}
}

func TestParseAnswer_PlainTextFallsBack(t *testing.T) {
	raw := "Attendance is fine, nothing to report."

	p := ParseAnswer(raw)
	if p.Parsed {
		t.Fatalf("expected unparsed result for plain text")
	}
	if p.Answer.Summary != raw {
		t.Fatalf("expected raw text carried as summary, got %q", p.Answer.Summary)
	}
	if p.Answer.Confidence != ConfidenceLow {
		t.Fatalf("expected low confidence fallback, got %q", p.Answer.Confidence)
	}
}

func TestParseAnswer_UnknownConfidenceNormalizesLow(t *testing.T) {
	raw := `{"summary": "ok", "confidence": "very sure"}`

	p := ParseAnswer(raw)
	if !p.Parsed {
		t.Fatalf("expected parsed answer")
	}
	if p.Answer.Confidence != ConfidenceLow {
		t.Fatalf("unknown confidence must normalize to low, got %q", p.Answer.Confidence)
	}
}

func TestFirstJSONObject(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, true},
		{"prefixed", `noise {"a":1} trailing`, `{"a":1}`, true},
		{"nested", `{"a":{"b":2}}`, `{"a":{"b":2}}`, true},
		{"brace in string", `{"a":"}{"}`, `{"a":"}{"}`, true},
		{"unbalanced", `{"a":1`, "", false},
		{"no object", "plain text", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := FirstJSONObject(tc.in)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}
