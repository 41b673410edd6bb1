// Package guard runs the full admission pipeline around a model call:
// rate limiting, question validation, injection screening and personal-data
// checks on the way in, output validation and redaction on the way out.
package guard

import (
	"fmt"
	"strings"

	"github.com/memberwise-ai/memberwise/internal/injection"
	"github.com/memberwise-ai/memberwise/internal/output"
	"github.com/memberwise-ai/memberwise/internal/pii"
	"github.com/memberwise-ai/memberwise/internal/provider"
	"github.com/memberwise-ai/memberwise/internal/question"
	"github.com/memberwise-ai/memberwise/internal/ratelimit"
	"github.com/memberwise-ai/memberwise/internal/redact"
)

// ValidationError reports why a question failed the shape checks. Reasons
// are safe to surface to the caller verbatim.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "question validation failed: " + strings.Join(e.Reasons, "; ")
}

// InjectionError reports a blocked adversarial pattern. Its message names
// the category for logs; handlers must not echo it to the caller.
type InjectionError struct {
	Category  injection.Category
	PatternID string
}

func (e *InjectionError) Error() string {
	return fmt.Sprintf("potential prompt injection detected (%s)", e.Category)
}

// PIIError reports personal data in an inbound question. Inbound personal
// data blocks the request instead of being masked, so the sender learns the
// question needs rephrasing rather than silently losing content.
type PIIError struct {
	Categories []pii.Category
}

func (e *PIIError) Error() string {
	names := make([]string, len(e.Categories))
	for i, c := range e.Categories {
		names[i] = string(c)
	}
	return "personal data detected in question: " + strings.Join(names, ", ")
}

// Config carries the tunables for one pipeline.
type Config struct {
	RateLimit        ratelimit.Config
	MaxQuestionChars int
	MaxSummaryChars  int
	MaxReasonChars   int
}

// Pipeline wires the guard stages together. One Pipeline serves all
// identities; per-identity state lives in the limiter.
type Pipeline struct {
	limiter   *ratelimit.Limiter
	questions *question.Validator
	injector  *injection.Detector
	scanner   *pii.Scanner
	outputs   *output.Validator
}

// New builds a pipeline with the given tunables. Zero values select the
// package defaults of each stage.
func New(cfg Config) *Pipeline {
	return &Pipeline{
		limiter:   ratelimit.New(cfg.RateLimit),
		questions: question.NewValidator(cfg.MaxQuestionChars),
		injector:  injection.NewDetector(),
		scanner:   pii.NewScanner(),
		outputs:   output.NewValidator(cfg.MaxSummaryChars, cfg.MaxReasonChars),
	}
}

// Close stops the limiter's background sweep.
func (p *Pipeline) Close() {
	p.limiter.Close()
}

// PreProcess admits and screens one inbound question. On success it returns
// the sanitized question and the identity holds a concurrency slot; the
// caller must balance it with exactly one PostProcess or HandleError call.
// On failure nothing is held or charged against the window budgets and the
// typed error names the failing stage.
func (p *Pipeline) PreProcess(raw, identity string) (string, error) {
	if err := p.limiter.Admit(identity); err != nil {
		redact.Logf("guard: rate limited identity=%s: %v", identity, err)
		return "", err
	}

	outcome := p.questions.Validate(raw)
	if !outcome.Valid {
		p.limiter.Unadmit(identity)
		redact.Logf("guard: question rejected identity=%s reasons=%v", identity, outcome.Errors)
		return "", &ValidationError{Reasons: outcome.Errors}
	}

	if res := p.injector.Detect(outcome.Sanitized); res.Blocked {
		p.limiter.Unadmit(identity)
		redact.Logf("guard: injection blocked identity=%s category=%s pattern=%s", identity, res.Category, res.PatternID)
		return "", &InjectionError{Category: res.Category, PatternID: res.PatternID}
	}

	if res := p.scanner.Scan(outcome.Sanitized); res.Matched {
		p.limiter.Unadmit(identity)
		redact.Logf("guard: inbound personal data blocked identity=%s categories=%v", identity, res.Categories)
		return "", &PIIError{Categories: res.Categories}
	}

	return outcome.Sanitized, nil
}

// PostProcess screens one model answer and releases the identity's
// concurrency slot. Schema or content failures substitute the deterministic
// fallback instead of surfacing partial output, reported by the second
// return; personal data in a passing answer is masked, never blocked.
func (p *Pipeline) PostProcess(ans provider.Answer, identity string) (provider.Answer, bool) {
	defer p.limiter.Release(identity)

	validated, errs := p.outputs.Validate(ans)
	if len(errs) > 0 {
		redact.Logf("guard: answer rejected identity=%s reasons=%v", identity, errs)
		return output.Fallback(), true
	}

	validated.Summary = p.scanner.Redact(validated.Summary)
	validated.Reasoning = p.scanner.Redact(validated.Reasoning)
	return validated, false
}

// HandleError resolves a failed model call after a successful PreProcess.
// It releases the concurrency slot and returns the fallback answer so the
// caller can still reply with something safe.
func (p *Pipeline) HandleError(err error, identity string) provider.Answer {
	p.limiter.Release(identity)
	redact.Logf("guard: model call failed identity=%s: %v", identity, err)
	return output.Fallback()
}

// Usage reports the identity's live limiter counters for diagnostics.
func (p *Pipeline) Usage(identity string) (minute, hour, concurrent int) {
	return p.limiter.Usage(identity)
}
