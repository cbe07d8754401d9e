package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/pricewatch/backend/internal/domain"
)

func buildTestIndex(t *testing.T, names ...string) *Index {
	t.Helper()

	rows := make([]domain.RawRow, len(names))
	for i, name := range names {
		rows[i] = domain.RawRow{Name: name, StoreID: "aldi", Price: float64(100 * (i + 1))}
	}

	builder := NewIndexBuilder(NewNormalizer(NormalizerConfig{}), false)
	index, _, err := builder.Build(testSnapshot(rows...))
	if err != nil {
		t.Fatalf("failed to build test index: %v", err)
	}
	return index
}

func newTestMatcher(t *testing.T, minScore float64) *Matcher {
	t.Helper()

	matcher, err := NewMatcher(NewNormalizer(NormalizerConfig{}), MatcherConfig{MinScore: minScore})
	if err != nil {
		t.Fatalf("failed to create matcher: %v", err)
	}
	t.Cleanup(matcher.Release)
	return matcher
}

func TestSearchValidation(t *testing.T) {
	matcher := newTestMatcher(t, 45)
	index := buildTestIndex(t, "Coca Cola 1.75l")
	ctx := context.Background()

	t.Run("empty query fails", func(t *testing.T) {
		_, err := matcher.Search(ctx, index, "", 5, -1)
		if !errors.Is(err, domain.ErrInvalidQuery) {
			t.Errorf("error = %v, want ErrInvalidQuery", err)
		}
	})

	t.Run("whitespace-only query fails", func(t *testing.T) {
		_, err := matcher.Search(ctx, index, "   \t", 5, -1)
		if !errors.Is(err, domain.ErrInvalidQuery) {
			t.Errorf("error = %v, want ErrInvalidQuery", err)
		}
	})

	t.Run("zero limit fails", func(t *testing.T) {
		_, err := matcher.Search(ctx, index, "x", 0, -1)
		if !errors.Is(err, domain.ErrInvalidQuery) {
			t.Errorf("error = %v, want ErrInvalidQuery", err)
		}
	})

	t.Run("negative limit fails", func(t *testing.T) {
		_, err := matcher.Search(ctx, index, "x", -3, -1)
		if !errors.Is(err, domain.ErrInvalidQuery) {
			t.Errorf("error = %v, want ErrInvalidQuery", err)
		}
	})
}

func TestSearchExactMatchScoresHundred(t *testing.T) {
	matcher := newTestMatcher(t, 45)
	index := buildTestIndex(t, "Coca Cola 1.75l", "Pepsi 1.5l")

	results, err := matcher.Search(context.Background(), index, "Coca Cola 1.75l", 5, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one result")
	}
	if results[0].Record.NormalizedName != "coca cola 1.75l" {
		t.Errorf("top result = %q, want coca cola 1.75l", results[0].Record.NormalizedName)
	}
	if results[0].Score != 100 {
		t.Errorf("top score = %v, want 100", results[0].Score)
	}
}

func TestSearchRanking(t *testing.T) {
	matcher := newTestMatcher(t, 45)
	index := buildTestIndex(t, "Coca Cola 1.75l", "Pepsi 1.5l", "Coca-Cola Zero 1.75l")

	results, err := matcher.Search(context.Background(), index, "Coca Cola 1.75l", 2, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].Record.NormalizedName != "coca cola 1.75l" {
		t.Errorf("first result = %q, want the near-exact match", results[0].Record.NormalizedName)
	}
	if results[1].Record.NormalizedName != "coca cola zero 1.75l" {
		t.Errorf("second result = %q, want the Zero variant", results[1].Record.NormalizedName)
	}
	for _, result := range results {
		if result.Record.NormalizedName == "pepsi 1.5l" {
			t.Error("Pepsi should not rank in the top 2")
		}
	}
}

func TestSearchTokenOrderIndependence(t *testing.T) {
	matcher := newTestMatcher(t, 45)
	index := buildTestIndex(t, "Coca Cola 1.75l")

	results, err := matcher.Search(context.Background(), index, "1.75l cola coca", 5, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].Score != 100 {
		t.Errorf("score = %v, want 100 regardless of token order", results[0].Score)
	}
}

func TestSearchRespectsLimitAndOrdering(t *testing.T) {
	matcher := newTestMatcher(t, 1)
	index := buildTestIndex(t,
		"Alma juice", "Alma nektár", "Alma szörp", "Alma ital", "Alma lé")

	results, err := matcher.Search(context.Background(), index, "alma", 3, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) > 3 {
		t.Errorf("len(results) = %d, want at most 3", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("scores not non-increasing: %v then %v", results[i-1].Score, results[i].Score)
		}
	}
}

func TestSearchIsDeterministic(t *testing.T) {
	matcher := newTestMatcher(t, 1)
	index := buildTestIndex(t, "Sajt trappista", "Sajt edami", "Sajt gouda", "Sajt fustolt")

	first, err := matcher.Search(context.Background(), index, "sajt", 10, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := matcher.Search(context.Background(), index, "sajt", 10, -1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(again) != len(first) {
			t.Fatalf("result count changed between runs: %d vs %d", len(first), len(again))
		}
		for j := range again {
			if again[j].ProductKey != first[j].ProductKey {
				t.Fatalf("ordering changed between runs at position %d", j)
			}
		}
	}
}

func TestSearchThreshold(t *testing.T) {
	t.Run("zero matches is an empty success", func(t *testing.T) {
		matcher := newTestMatcher(t, 45)
		index := buildTestIndex(t, "Coca Cola 1.75l")

		results, err := matcher.Search(context.Background(), index, "kenyer felbarna", 5, -1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 0 {
			t.Errorf("len(results) = %d, want 0", len(results))
		}
	})

	t.Run("per-call override tightens the cutoff", func(t *testing.T) {
		matcher := newTestMatcher(t, 1)
		index := buildTestIndex(t, "Coca Cola 1.75l", "Pepsi 1.5l")

		results, err := matcher.Search(context.Background(), index, "coca cola", 5, 99)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, result := range results {
			if result.Score < 99 {
				t.Errorf("score %v below the requested cutoff", result.Score)
			}
		}
	})
}

func TestSearchCancelledContext(t *testing.T) {
	matcher := newTestMatcher(t, 45)
	index := buildTestIndex(t, "Coca Cola 1.75l")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := matcher.Search(ctx, index, "coca cola", 5, -1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestScoreTokens(t *testing.T) {
	n := NewNormalizer(NormalizerConfig{})

	t.Run("identical sequences score 100", func(t *testing.T) {
		tokens := n.Tokenize("coca cola 1.75l")
		if got := scoreTokens(tokens, tokens); got != 100 {
			t.Errorf("score = %v, want 100", got)
		}
	})

	t.Run("query subset of record scores 100", func(t *testing.T) {
		q := n.Tokenize("coca cola")
		r := n.Tokenize("coca cola zero 1.75l")
		if got := scoreTokens(q, r); got != 100 {
			t.Errorf("score = %v, want 100", got)
		}
	})

	t.Run("misspelling still scores high", func(t *testing.T) {
		q := n.Tokenize("coca kola 1.75l")
		r := n.Tokenize("coca cola 1.75l")
		if got := scoreTokens(q, r); got < 80 {
			t.Errorf("score = %v, want >= 80 for a one-letter variation", got)
		}
	})

	t.Run("unrelated products score low", func(t *testing.T) {
		q := n.Tokenize("trappista sajt")
		r := n.Tokenize("coca cola 1.75l")
		if got := scoreTokens(q, r); got >= 45 {
			t.Errorf("score = %v, want below 45", got)
		}
	})

	t.Run("empty query scores zero", func(t *testing.T) {
		if got := scoreTokens(nil, n.Tokenize("coca cola")); got != 0 {
			t.Errorf("score = %v, want 0", got)
		}
	})
}
