package testsupport

import (
	"context"
	"testing"

	"sedori/internal/alerts"
	"sedori/internal/config"
	"sedori/internal/similarity"
)

// MustOpenStore opens an alerts.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *alerts.Store {
	t.Helper()

	store, err := alerts.Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("alerts.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// Result builds a qualifying-looking comparison result with titles, links,
// and prices filled in from id.
func Result(id string, score, margin float64) similarity.ComparisonResult {
	return similarity.ComparisonResult{
		CandidateID:           id,
		SimilarityScore:       score,
		EstimatedProfitMargin: margin,
		EstimatedProfitAmount: margin / 10,
		ShippingCost:          2,
		Matched:               true,
		Source: similarity.Listing{
			ID:       "src-" + id,
			Title:    "source " + id,
			Link:     "https://source.example/" + id,
			Price:    1000,
			Currency: "JPY",
		},
		Candidate: similarity.Listing{
			ID:       id,
			Title:    "candidate " + id,
			Link:     "https://sold.example/" + id,
			Price:    20,
			Currency: "USD",
		},
	}
}

// NewAlerts ingests count qualifying results and returns their ids.
func NewAlerts(t testing.TB, store *alerts.Store, count int) []int64 {
	t.Helper()

	results := make([]similarity.ComparisonResult, count)
	for i := range results {
		results[i] = Result(string(rune('a'+i%26)), 90, 40)
	}
	ids, err := store.CreateFromComparisons(context.Background(), results, similarity.Thresholds{MinSimilarity: 70, MinProfitMargin: 20})
	if err != nil {
		t.Fatalf("CreateFromComparisons: %v", err)
	}
	if len(ids) != count {
		t.Fatalf("expected %d ids, got %d", count, len(ids))
	}
	return ids
}
