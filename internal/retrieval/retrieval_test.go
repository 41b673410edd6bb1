package retrieval

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func seededStore() *MemoryStore {
	s := NewMemoryStore(0)
	s.Add("proj-a",
		Record{ID: "GYM_101", Kind: "plan", Text: "Standard plan charges $15.50 per month"},
		Record{ID: "GYM_102", Kind: "plan", Text: "Premium plan charges $29.00 per month with sauna access"},
		Record{ID: "GYM_201", Kind: "stats", Text: "Churn rate for the standard plan was 4.2% in July"},
	)
	s.Add("proj-b",
		Record{ID: "CLUB_900", Kind: "plan", Text: "Tennis club annual plan costs $420"},
	)
	return s
}

func TestSearch_RanksByOverlap(t *testing.T) {
	s := seededStore()

	recs, err := s.Search(context.Background(), "What does the standard plan charge per month?", "proj-a")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(recs) == 0 {
		t.Fatalf("expected matches")
	}
	if recs[0].ID != "GYM_101" {
		t.Fatalf("expected GYM_101 ranked first, got %s", recs[0].ID)
	}
}

func TestSearch_ScopedToIdentity(t *testing.T) {
	s := seededStore()

	recs, err := s.Search(context.Background(), "standard plan charge", "proj-b")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for _, r := range recs {
		if strings.HasPrefix(r.ID, "GYM_") {
			t.Fatalf("record from another identity leaked: %s", r.ID)
		}
	}
}

func TestSearch_NoMatches(t *testing.T) {
	s := seededStore()

	recs, err := s.Search(context.Background(), "zebra migration forecasts", "proj-a")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected no matches, got %d", len(recs))
	}
}

func TestSearch_CapsResults(t *testing.T) {
	s := NewMemoryStore(2)
	for _, id := range []string{"A", "B", "C", "D"} {
		s.Add("proj-a", Record{ID: id, Text: "monthly revenue summary"})
	}

	recs, err := s.Search(context.Background(), "monthly revenue", "proj-a")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 results, got %d", len(recs))
	}
	if recs[0].ID != "A" || recs[1].ID != "B" {
		t.Fatalf("ties must keep insertion order, got %s %s", recs[0].ID, recs[1].ID)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.yaml")
	doc := `
proj-a:
  - id: GYM_101
    kind: plan
    text: Standard plan charges $15.50 per month
proj-b:
  - id: CLUB_900
    text: Tennis club annual plan costs $420
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := NewMemoryStore(0)
	if err := s.LoadFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}

	recs, err := s.Search(context.Background(), "standard plan charges", "proj-a")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != "GYM_101" {
		t.Fatalf("unexpected results: %+v", recs)
	}
}

func TestFormatContext(t *testing.T) {
	got := FormatContext([]Record{
		{ID: "GYM_101", Text: "Standard plan charges $15.50 per month"},
		{ID: "GYM_201", Text: "Churn rate was 4.2% in July"},
	})
	want := "[GYM_101] Standard plan charges $15.50 per month\n[GYM_201] Churn rate was 4.2% in July"
	if got != want {
		t.Fatalf("unexpected context:\n%s", got)
	}
	if FormatContext(nil) != "" {
		t.Fatalf("empty input must render empty context")
	}
}
