// Package provider defines the generative-model collaborator contract and
// its adapters. Providers are swappable without touching pipeline logic.
package provider

import (
	"context"
	"encoding/json"
	"strings"
)

// Confidence is the model's self-reported confidence bucket.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Answer is the normalized result of one model call.
type Answer struct {
	Summary    string     `json:"summary"`
	Confidence Confidence `json:"confidence"`
	Reasoning  string     `json:"reasoning,omitempty"`
	// Raw carries the unmodified model text so second-pass consumers
	// (grounding audits) can reparse it with their own schema.
	Raw string `json:"-"`
}

// Provider is the interface for upstream generative models. Analyze is used
// both for the primary answer and for the grounding audit pass.
type Provider interface {
	// Analyze sends the question with its supporting record context and an
	// optional system prompt, and returns the normalized answer.
	Analyze(ctx context.Context, question, recordContext, systemPrompt string) (*Answer, error)
	// Name identifies the provider for logging and the Insight payload.
	Name() string
}

// answerSchema is the JSON shape models are instructed to return.
type answerSchema struct {
	Summary    string `json:"summary"`
	Confidence string `json:"confidence"`
	Reasoning  string `json:"reasoning"`
}

// ParsedAnswer is the result of a fallible parse. Parsed reports whether a
// JSON object with a usable summary was found; when false the raw text is
// carried as the summary with low confidence rather than being discarded.
type ParsedAnswer struct {
	Answer Answer
	Parsed bool
}

// ParseAnswer defensively extracts a structured answer from free-form model
// output. Model output often wraps the object in prose or code fences, so
// the first balanced JSON object is located instead of unmarshalling the
// whole string.
func ParseAnswer(raw string) ParsedAnswer {
	trimmed := strings.TrimSpace(raw)

	if obj, ok := FirstJSONObject(trimmed); ok {
		var schema answerSchema
		if err := json.Unmarshal([]byte(obj), &schema); err == nil && strings.TrimSpace(schema.Summary) != "" {
			return ParsedAnswer{
				Answer: Answer{
					Summary:    strings.TrimSpace(schema.Summary),
					Confidence: normalizeConfidence(schema.Confidence),
					Reasoning:  strings.TrimSpace(schema.Reasoning),
					Raw:        raw,
				},
				Parsed: true,
			}
		}
	}

	return ParsedAnswer{
		Answer: Answer{
			Summary:    trimmed,
			Confidence: ConfidenceLow,
			Raw:        raw,
		},
	}
}

// FirstJSONObject returns the first balanced top-level JSON object in the
// text. Braces inside JSON strings are skipped.
func FirstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func normalizeConfidence(c string) Confidence {
	switch strings.ToLower(strings.TrimSpace(c)) {
	case "high":
		return ConfidenceHigh
	case "medium":
		return ConfidenceMedium
	case "low":
		return ConfidenceLow
	default:
		return ConfidenceLow
	}
}
