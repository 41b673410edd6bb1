// Package grounding audits generated answers against the retrieved facts by
// delegating a second pass to the generative-model collaborator. It never
// fails open: any error degrades to an ungrounded verdict.
package grounding

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/memberwise-ai/memberwise/internal/provider"
	"github.com/memberwise-ai/memberwise/internal/redact"
)

// DefaultThreshold is the score at or above which an answer counts as
// grounded.
const DefaultThreshold = 0.8

// FailedReason is the reason reported when the audit call itself failed.
const FailedReason = "Grounding verification failed"

// Verdict is the outcome of one audit pass. It is advisory: logged and
// counted, never surfaced to the user.
type Verdict struct {
	Grounded          bool     `json:"grounded"`
	Score             float64  `json:"score"`
	Reason            string   `json:"reason"`
	UnsupportedClaims []string `json:"unsupported_claims,omitempty"`
}

const auditSystemPrompt = "You are a strict fact-checking auditor. " +
	"Given source records and a generated answer, verify that every claim in the answer " +
	"is directly supported by the records, flag any claim that introduces information " +
	"absent from the records, and verify that every factual statement cites a record " +
	"identifier that exists in the records. " +
	`Respond with only a JSON object: {"grounded": true|false, "score": 0.0-1.0, ` +
	`"reason": "...", "unsupported_claims": ["..."]}.`

// Verifier issues audit calls and parses verdicts defensively.
type Verifier struct {
	provider  provider.Provider
	threshold float64
	timeout   time.Duration
}

// NewVerifier builds a verifier. A non-positive threshold selects the
// default; a non-positive timeout disables the per-audit deadline.
func NewVerifier(p provider.Provider, threshold float64, timeout time.Duration) *Verifier {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Verifier{provider: p, threshold: threshold, timeout: timeout}
}

// Check audits the answer against the facts. Provider failures, timeouts
// and unparseable verdicts all degrade to safe results; this method never
// returns an error.
func (v *Verifier) Check(ctx context.Context, facts, answer string) Verdict {
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	question := "Audit the following answer against the records.\n\nAnswer:\n" + answer

	ans, err := v.provider.Analyze(ctx, question, facts, auditSystemPrompt)
	if err != nil || ans == nil {
		if err != nil {
			redact.Logf("grounding: audit call failed: %v", err)
		}
		return Verdict{Grounded: false, Score: 0, Reason: FailedReason}
	}

	if verdict, ok := parseVerdict(ans); ok {
		return verdict
	}

	// The auditor replied but not with the strict JSON schema; fall back to
	// its self-reported confidence as a score heuristic.
	score := confidenceScore(ans.Confidence)
	return Verdict{
		Grounded: score >= v.threshold,
		Score:    score,
		Reason:   "verdict unparseable; derived from auditor confidence",
	}
}

// IsGrounded reports whether the answer meets the verifier's threshold.
func (v *Verifier) IsGrounded(ctx context.Context, facts, answer string) bool {
	verdict := v.Check(ctx, facts, answer)
	return verdict.Grounded && verdict.Score >= v.threshold
}

// Threshold returns the configured grounding threshold.
func (v *Verifier) Threshold() float64 {
	return v.threshold
}

// verdictSchema mirrors the JSON the auditor is instructed to return.
// Pointer fields distinguish "absent" from zero values.
type verdictSchema struct {
	Grounded          *bool    `json:"grounded"`
	Score             *float64 `json:"score"`
	Reason            string   `json:"reason"`
	UnsupportedClaims []string `json:"unsupported_claims"`
}

func parseVerdict(ans *provider.Answer) (Verdict, bool) {
	raw := ans.Raw
	if strings.TrimSpace(raw) == "" {
		raw = ans.Summary
	}

	obj, ok := provider.FirstJSONObject(raw)
	if !ok {
		return Verdict{}, false
	}

	var schema verdictSchema
	if err := json.Unmarshal([]byte(obj), &schema); err != nil {
		return Verdict{}, false
	}
	if schema.Grounded == nil && schema.Score == nil {
		// Some other JSON object in the reply, not a verdict.
		return Verdict{}, false
	}

	verdict := Verdict{
		Reason:            strings.TrimSpace(schema.Reason),
		UnsupportedClaims: schema.UnsupportedClaims,
	}
	if schema.Score != nil {
		verdict.Score = clamp01(*schema.Score)
	}
	if schema.Grounded != nil {
		verdict.Grounded = *schema.Grounded
	} else {
		verdict.Grounded = verdict.Score >= DefaultThreshold
	}
	if verdict.Reason == "" {
		if verdict.Grounded {
			verdict.Reason = "all claims supported by records"
		} else {
			verdict.Reason = "auditor reported unsupported claims"
		}
	}
	return verdict, true
}

func confidenceScore(c provider.Confidence) float64 {
	switch c {
	case provider.ConfidenceHigh:
		return 0.9
	case provider.ConfidenceMedium:
		return 0.6
	default:
		return 0.3
	}
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
