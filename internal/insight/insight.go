// Package insight runs one question end to end: guard admission, record
// retrieval, the model call, output screening and the advisory grounding
// audit, with one audit event per request.
package insight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/memberwise-ai/memberwise/internal/audit"
	"github.com/memberwise-ai/memberwise/internal/auth"
	"github.com/memberwise-ai/memberwise/internal/grounding"
	"github.com/memberwise-ai/memberwise/internal/guard"
	"github.com/memberwise-ai/memberwise/internal/pii"
	"github.com/memberwise-ai/memberwise/internal/provider"
	"github.com/memberwise-ai/memberwise/internal/ratelimit"
	"github.com/memberwise-ai/memberwise/internal/redact"
	"github.com/memberwise-ai/memberwise/internal/retrieval"
	"github.com/memberwise-ai/memberwise/internal/telemetry"
)

// Insight is the answer payload returned to callers.
type Insight struct {
	ID          string              `json:"id"`
	Question    string              `json:"question"`
	Summary     string              `json:"summary"`
	Confidence  provider.Confidence `json:"confidence"`
	Reasoning   string              `json:"reasoning,omitempty"`
	Provider    string              `json:"provider,omitempty"`
	GeneratedAt time.Time           `json:"generated_at"`
}

// Config wires the service's collaborators. Verifier, Audit and Telemetry
// are optional; a nil value disables that concern.
type Config struct {
	Guard           *guard.Pipeline
	Records         retrieval.Provider
	Providers       map[string]provider.Provider
	DefaultProvider string
	Verifier        *grounding.Verifier
	Audit           *audit.Emitter
	Telemetry       *telemetry.Provider
}

// Service answers questions for authenticated projects.
type Service struct {
	cfg     Config
	scanner *pii.Scanner
	now     func() time.Time
}

func NewService(cfg Config) *Service {
	return &Service{
		cfg:     cfg,
		scanner: pii.NewScanner(),
		now:     time.Now,
	}
}

// Analyze runs the full pipeline for one question. Guard rejections return
// the stage's typed error; model and retrieval failures degrade to a
// fallback Insight and a nil error, so only pre-admission problems ever
// surface as errors.
func (s *Service) Analyze(ctx context.Context, rawQuestion string, project auth.Project) (*Insight, error) {
	start := s.now()
	ev := audit.NewEvent(project.ID)

	sanitized, err := s.cfg.Guard.PreProcess(rawQuestion, project.ID)
	if err != nil {
		stage, categories := classifyRejection(err)
		ev.Decision = audit.DecisionRejectedPre
		ev.Stage = stage
		ev.Categories = categories
		s.finish(ev, start)
		s.cfg.Telemetry.RecordRejection(stage, project.ID)
		return nil, err
	}
	ev.SetQuestionPreview(sanitized)

	p, err := s.resolveProvider(project)
	if err != nil {
		return s.fallbackInsight(ev, start, sanitized, "", audit.DecisionFallbackProvider, err, project), nil
	}
	ev.Provider = p.Name()

	recs, err := s.cfg.Records.Search(ctx, sanitized, project.ID)
	if err != nil {
		return s.fallbackInsight(ev, start, sanitized, p.Name(), audit.DecisionFallbackProvider, err, project), nil
	}
	ev.RecordCount = len(recs)

	// Records can themselves carry personal data; mask it before anything
	// leaves the process.
	for i := range recs {
		recs[i].Text = s.scanner.Redact(recs[i].Text)
	}
	recordContext := retrieval.FormatContext(recs)

	ans, err := p.Analyze(ctx, sanitized, recordContext, "")
	if err != nil || ans == nil {
		if err == nil {
			err = errors.New("provider returned no answer")
		}
		final := s.cfg.Guard.HandleError(err, project.ID)
		ev.Decision = audit.DecisionFallbackProvider
		ev.SetAnswerPreview(final.Summary)
		s.finish(ev, start)
		s.cfg.Telemetry.RecordFallback("provider", project.ID)
		s.cfg.Telemetry.RecordRequest(string(audit.DecisionFallbackProvider), project.ID, p.Name(), msSince(start, s.now()))
		return s.buildInsight(sanitized, final, p.Name()), nil
	}

	final, fellBack := s.cfg.Guard.PostProcess(*ans, project.ID)
	if fellBack {
		ev.Decision = audit.DecisionFallbackOutput
		ev.SetAnswerPreview(final.Summary)
		s.finish(ev, start)
		s.cfg.Telemetry.RecordFallback("output", project.ID)
		s.cfg.Telemetry.RecordRequest(string(audit.DecisionFallbackOutput), project.ID, p.Name(), msSince(start, s.now()))
		return s.buildInsight(sanitized, final, p.Name()), nil
	}

	// Advisory only: a failed audit is logged and counted, never blocks.
	if s.cfg.Verifier != nil {
		verdict := s.cfg.Verifier.Check(ctx, recordContext, final.Summary)
		ev.Grounding = &audit.GroundingInfo{
			Grounded: verdict.Grounded,
			Score:    verdict.Score,
			Reason:   verdict.Reason,
		}
		s.cfg.Telemetry.RecordGroundingScore(project.ID, verdict.Score, verdict.Grounded)
		if !verdict.Grounded {
			redact.Logf("insight: ungrounded answer project=%s score=%.2f reason=%s", project.ID, verdict.Score, verdict.Reason)
		}
	}

	ev.Decision = audit.DecisionAllow
	ev.SetAnswerPreview(final.Summary)
	s.finish(ev, start)
	s.cfg.Telemetry.RecordRequest(string(audit.DecisionAllow), project.ID, p.Name(), msSince(start, s.now()))
	return s.buildInsight(sanitized, final, p.Name()), nil
}

func (s *Service) resolveProvider(project auth.Project) (provider.Provider, error) {
	name := project.Provider
	if name == "" {
		name = s.cfg.DefaultProvider
	}
	p, ok := s.cfg.Providers[name]
	if !ok || p == nil {
		return nil, fmt.Errorf("no provider %q for project %q", name, project.ID)
	}
	return p, nil
}

func (s *Service) fallbackInsight(ev *audit.Event, start time.Time, question, providerName string, decision audit.Decision, cause error, project auth.Project) *Insight {
	final := s.cfg.Guard.HandleError(cause, project.ID)
	ev.Decision = decision
	ev.SetAnswerPreview(final.Summary)
	s.finish(ev, start)
	s.cfg.Telemetry.RecordFallback("provider", project.ID)
	s.cfg.Telemetry.RecordRequest(string(decision), project.ID, providerName, msSince(start, s.now()))
	return s.buildInsight(question, final, providerName)
}

func (s *Service) buildInsight(question string, ans provider.Answer, providerName string) *Insight {
	return &Insight{
		ID:          uuid.NewString(),
		Question:    question,
		Summary:     ans.Summary,
		Confidence:  ans.Confidence,
		Reasoning:   ans.Reasoning,
		Provider:    providerName,
		GeneratedAt: s.now().UTC(),
	}
}

func (s *Service) finish(ev *audit.Event, start time.Time) {
	ev.LatencyMs = msSince(start, s.now())
	s.cfg.Audit.Emit(ev)
}

func classifyRejection(err error) (stage string, categories []string) {
	var le *ratelimit.LimitError
	var ve *guard.ValidationError
	var ie *guard.InjectionError
	var pe *guard.PIIError
	switch {
	case errors.As(err, &le):
		return "rate_limit", []string{string(le.Scope)}
	case errors.As(err, &ve):
		return "validation", ve.Reasons
	case errors.As(err, &ie):
		return "injection", []string{string(ie.Category)}
	case errors.As(err, &pe):
		cats := make([]string, len(pe.Categories))
		for i, c := range pe.Categories {
			cats[i] = string(c)
		}
		return "pii", cats
	}
	return "unknown", nil
}

func msSince(start, now time.Time) float64 {
	return float64(now.Sub(start)) / float64(time.Millisecond)
}
