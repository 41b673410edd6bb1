package grounding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/memberwise-ai/memberwise/internal/provider"
)

func auditorReplying(raw string) *provider.Fake {
	f := provider.NewFake("auditor")
	f.Respond = func(question, recordContext, systemPrompt string) (*provider.Answer, error) {
		parsed := provider.ParseAnswer(raw)
		return &parsed.Answer, nil
	}
	return f
}

func TestCheck_GroundedVerdict(t *testing.T) {
	f := auditorReplying(`{"grounded": true, "score": 0.95, "reason": "all claims cited"}`)
	v := NewVerifier(f, 0, 0)

	verdict := v.Check(context.Background(), "GYM_101 charges $15.50 [GYM_101]", "GYM_101 charges $15.50 [GYM_101]")
	if !verdict.Grounded {
		t.Fatalf("expected grounded verdict, got: %+v", verdict)
	}
	if verdict.Score < 0.8 {
		t.Fatalf("expected score >= 0.8, got %v", verdict.Score)
	}
	if !v.IsGrounded(context.Background(), "GYM_101 charges $15.50 [GYM_101]", "GYM_101 charges $15.50 [GYM_101]") {
		t.Fatalf("IsGrounded should agree with the verdict")
	}
}

func TestCheck_UnsupportedClaims(t *testing.T) {
	f := auditorReplying(`{"grounded": false, "score": 0.2, "reason": "membership count not in records", "unsupported_claims": ["GYM_101 has 500 members"]}`)
	v := NewVerifier(f, 0, 0)

	verdict := v.Check(context.Background(), "GYM_101 charges $15.50 [GYM_101]", "GYM_101 has 500 members")
	if verdict.Grounded {
		t.Fatalf("expected ungrounded verdict, got: %+v", verdict)
	}
	if len(verdict.UnsupportedClaims) == 0 {
		t.Fatalf("expected unsupported claims to be reported")
	}
}

func TestCheck_ProviderFailureFailsClosed(t *testing.T) {
	f := provider.NewFake("auditor")
	f.Respond = func(question, recordContext, systemPrompt string) (*provider.Answer, error) {
		return nil, errors.New("upstream timeout")
	}
	v := NewVerifier(f, 0, 50*time.Millisecond)

	verdict := v.Check(context.Background(), "facts", "answer")
	if verdict.Grounded || verdict.Score != 0 || verdict.Reason != FailedReason {
		t.Fatalf("expected the exact safe default, got: %+v", verdict)
	}
}

func TestCheck_UnparseableVerdictUsesConfidence(t *testing.T) {
	cases := []struct {
		name       string
		confidence provider.Confidence
		grounded   bool
		score      float64
	}{
		{"high confidence", provider.ConfidenceHigh, true, 0.9},
		{"medium confidence", provider.ConfidenceMedium, false, 0.6},
		{"low confidence", provider.ConfidenceLow, false, 0.3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := provider.NewFake("auditor")
			f.Respond = func(question, recordContext, systemPrompt string) (*provider.Answer, error) {
				return &provider.Answer{
					Summary:    "the answer looks supported by the records",
					Confidence: tc.confidence,
					Raw:        "the answer looks supported by the records",
				}, nil
			}
			v := NewVerifier(f, 0, 0)

			verdict := v.Check(context.Background(), "facts", "answer")
			if verdict.Grounded != tc.grounded {
				t.Fatalf("grounded = %v, want %v (%+v)", verdict.Grounded, tc.grounded, verdict)
			}
			if verdict.Score != tc.score {
				t.Fatalf("score = %v, want %v", verdict.Score, tc.score)
			}
		})
	}
}

func TestCheck_ScoreClampedToUnitRange(t *testing.T) {
	f := auditorReplying(`{"grounded": true, "score": 3.5}`)
	v := NewVerifier(f, 0, 0)

	verdict := v.Check(context.Background(), "facts", "answer")
	if verdict.Score != 1 {
		t.Fatalf("expected score clamped to 1, got %v", verdict.Score)
	}
}
