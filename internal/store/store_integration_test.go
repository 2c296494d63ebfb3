//go:build integration

package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JoJeongHyeon/gongja-mailservice/internal/counsel"
	"github.com/JoJeongHyeon/gongja-mailservice/internal/knowledge"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestIntegration_AppendAndGetSession(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	row := counsel.LogRow{
		ID:              uuid.New(),
		Timestamp:       time.Now().UTC().Truncate(time.Microsecond),
		Source:          counsel.SourceEmail,
		Email:           "integration@example.com",
		OriginalConcern: "오늘 회사에서 실수를 해서 너무 속상하다",
		ConcernSummary:  "업무 실수로 인한 자책",
		Concept:         "충서",
		SelectedQuote:   "학이-8: 허물이 있으면 고치기를 꺼리지 말라.",
		Advice:          "자네, 허물을 두려워하지 말게.",
		AnalysisSeconds: 1.25,
		AdviceSeconds:   3.5,
	}
	t.Cleanup(func() {
		s.pool.Exec(ctx, "DELETE FROM counsel_sessions WHERE id = $1", row.ID)
	})

	if err := s.Append(ctx, row); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	got, err := s.GetSession(ctx, row.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.Source != counsel.SourceEmail {
		t.Errorf("expected source email, got %q", got.Source)
	}
	if got.OriginalConcern != row.OriginalConcern {
		t.Errorf("expected concern %q, got %q", row.OriginalConcern, got.OriginalConcern)
	}
	if got.AdviceSeconds != 3.5 {
		t.Errorf("expected advice_time 3.5, got %f", got.AdviceSeconds)
	}
	if !got.Timestamp.Equal(row.Timestamp) {
		t.Errorf("expected timestamp %v, got %v", row.Timestamp, got.Timestamp)
	}

	recent, err := s.RecentSessions(ctx, 5)
	if err != nil {
		t.Fatalf("RecentSessions failed: %v", err)
	}
	if len(recent) == 0 {
		t.Fatal("expected at least one recent session")
	}
}

func TestIntegration_ImportAndLoadPassages(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	section := "시험-" + uuid.New().String()[:8]

	corpus := knowledge.NewCorpus([]knowledge.Passage{
		{Section: section, Number: 1, Text: "첫 구절"},
		{Section: section, Number: 2, Text: "둘째 구절", Original: "原文"},
	})
	t.Cleanup(func() {
		s.pool.Exec(ctx, "DELETE FROM passages WHERE section = $1", section)
	})

	n, err := s.ImportPassages(ctx, corpus)
	if err != nil {
		t.Fatalf("ImportPassages failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 passages imported, got %d", n)
	}

	// Re-import updates in place.
	updated := knowledge.NewCorpus([]knowledge.Passage{{Section: section, Number: 1, Text: "고친 구절"}})
	if _, err := s.ImportPassages(ctx, updated); err != nil {
		t.Fatalf("ImportPassages (update) failed: %v", err)
	}

	loaded, err := s.LoadPassages(ctx)
	if err != nil {
		t.Fatalf("LoadPassages failed: %v", err)
	}
	found := map[int]knowledge.Passage{}
	for _, p := range loaded.All() {
		if p.Section == section {
			found[p.Number] = p
		}
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 passages in section, got %d", len(found))
	}
	if found[1].Text != "고친 구절" {
		t.Errorf("expected updated text, got %q", found[1].Text)
	}
	if found[2].Original != "原文" {
		t.Errorf("expected original text, got %q", found[2].Original)
	}
}
