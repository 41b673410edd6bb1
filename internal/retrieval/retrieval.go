// Package retrieval supplies the source records an answer must be grounded
// in. The service only ever sees records scoped to the asking project.
package retrieval

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Record is one retrievable fact. ID is the citation token answers are
// expected to reference, e.g. "GYM_101".
type Record struct {
	ID   string `json:"id"`
	Kind string `json:"kind,omitempty"`
	Text string `json:"text"`
}

// Provider returns the records relevant to a query, scoped to an identity.
type Provider interface {
	Search(ctx context.Context, query, identity string) ([]Record, error)
}

// DefaultMaxResults caps how many records one search returns.
const DefaultMaxResults = 8

// MemoryStore is an in-process Provider keyed by identity. Matching is
// keyword overlap, which is enough for development and tests; production
// deployments swap in a real search backend behind the same interface.
type MemoryStore struct {
	mu         sync.RWMutex
	records    map[string][]Record
	maxResults int
}

// NewMemoryStore builds an empty store. maxResults <= 0 selects the default.
func NewMemoryStore(maxResults int) *MemoryStore {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &MemoryStore{
		records:    make(map[string][]Record),
		maxResults: maxResults,
	}
}

// Add appends records for an identity.
func (s *MemoryStore) Add(identity string, recs ...Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[identity] = append(s.records[identity], recs...)
}

// LoadFile seeds the store from a YAML file mapping project IDs to record
// lists.
func (s *MemoryStore) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read records file: %w", err)
	}
	var byProject map[string][]Record
	if err := yaml.Unmarshal(data, &byProject); err != nil {
		return fmt.Errorf("parse records file: %w", err)
	}
	for project, recs := range byProject {
		s.Add(project, recs...)
	}
	return nil
}

// Search scores the identity's records by keyword overlap with the query and
// returns the best matches, ties broken by insertion order so results are
// deterministic.
func (s *MemoryStore) Search(ctx context.Context, query, identity string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	recs := s.records[identity]
	s.mu.RUnlock()

	terms := tokenize(query)
	if len(terms) == 0 || len(recs) == 0 {
		return nil, nil
	}

	type scored struct {
		rec   Record
		score int
		pos   int
	}
	var hits []scored
	for i, r := range recs {
		text := strings.ToLower(r.ID + " " + r.Kind + " " + r.Text)
		score := 0
		for term := range terms {
			if strings.Contains(text, term) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{rec: r, score: score, pos: i})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].pos < hits[j].pos
	})

	n := len(hits)
	if n > s.maxResults {
		n = s.maxResults
	}
	out := make([]Record, 0, n)
	for _, h := range hits[:n] {
		out = append(out, h.rec)
	}
	return out, nil
}

// FormatContext renders records as one "[ID] text" line each, the shape the
// model and the grounding auditor are prompted to cite.
func FormatContext(recs []Record) string {
	if len(recs) == 0 {
		return ""
	}
	var b strings.Builder
	for i, r := range recs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("[" + r.ID + "] " + r.Text)
	}
	return b.String()
}

// stopwords are query tokens too common to discriminate between records.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "of": {}, "in": {}, "on": {}, "for": {},
	"to": {}, "is": {}, "are": {}, "what": {}, "which": {}, "how": {},
	"many": {}, "much": {}, "do": {}, "does": {}, "this": {}, "that": {},
	"and": {}, "or": {}, "with": {}, "my": {}, "our": {},
}

func tokenize(query string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, f := range strings.Fields(strings.ToLower(query)) {
		f = strings.Trim(f, ".,?!\"'()[]")
		if len(f) < 2 {
			continue
		}
		if _, skip := stopwords[f]; skip {
			continue
		}
		out[f] = struct{}{}
	}
	return out
}
