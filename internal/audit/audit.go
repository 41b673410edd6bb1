// Package audit records one decision event per request. Events carry only
// redacted previews and are delivered off the request path through a bounded
// queue; when the queue is full events are dropped, never blocking a caller.
package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/memberwise-ai/memberwise/internal/redact"
)

// Decision is the outcome of one request from the guard's perspective.
type Decision string

const (
	DecisionAllow            Decision = "allow"
	DecisionRejectedPre      Decision = "rejected_pre"
	DecisionFallbackOutput   Decision = "fallback_output"
	DecisionFallbackProvider Decision = "fallback_provider"
)

// GroundingInfo is the advisory verdict attached to allowed answers.
type GroundingInfo struct {
	Grounded bool    `json:"grounded"`
	Score    float64 `json:"score"`
	Reason   string  `json:"reason,omitempty"`
}

// Event is the canonical audit payload, one per request.
type Event struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	ProjectID string    `json:"project_id"`
	Provider  string    `json:"provider,omitempty"`

	Decision   Decision `json:"decision"`
	Stage      string   `json:"stage,omitempty"`
	Categories []string `json:"categories,omitempty"`

	QuestionPreview string         `json:"question_preview,omitempty"`
	AnswerPreview   string         `json:"answer_preview,omitempty"`
	Grounding       *GroundingInfo `json:"grounding,omitempty"`

	RecordCount int     `json:"record_count,omitempty"`
	LatencyMs   float64 `json:"latency_ms"`
}

const previewLimit = 160

// NewEvent stamps identity and time and assigns the request ID.
func NewEvent(projectID string) *Event {
	return &Event{
		RequestID: uuid.NewString(),
		Timestamp: time.Now().UTC(),
		ProjectID: projectID,
	}
}

// SetQuestionPreview stores a redacted, truncated copy of the question.
func (e *Event) SetQuestionPreview(q string) {
	e.QuestionPreview = preview(q)
}

// SetAnswerPreview stores a redacted, truncated copy of the answer summary.
func (e *Event) SetAnswerPreview(a string) {
	e.AnswerPreview = preview(a)
}

func preview(s string) string {
	s = redact.String(s)
	if len(s) > previewLimit {
		s = s[:previewLimit] + "..."
	}
	return s
}
