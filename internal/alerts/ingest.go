package alerts

import (
	"context"
	"math"
	"time"

	"sedori/internal/logging"
	"sedori/internal/similarity"
)

// Qualifies reports whether a comparison result clears both thresholds.
func Qualifies(result similarity.ComparisonResult, thresholds similarity.Thresholds) bool {
	if math.IsNaN(result.SimilarityScore) || math.IsNaN(result.EstimatedProfitMargin) {
		return false
	}
	return result.SimilarityScore >= thresholds.MinSimilarity &&
		result.EstimatedProfitMargin >= thresholds.MinProfitMargin
}

// CreateFromComparisons creates one pending alert per qualifying result, in
// input order, and persists them in a single flush. It returns the new ids;
// on a persistence failure no alert is created and no id is consumed.
func (s *Store) CreateFromComparisons(ctx context.Context, results []similarity.ComparisonResult, thresholds similarity.Thresholds) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := s.working()
	now := s.now().UTC()
	var ids []int64
	skipped := 0
	for _, result := range results {
		if !Qualifies(result, thresholds) {
			skipped++
			continue
		}
		id := snap.NextID
		snap.NextID++
		snap.Alerts = append(snap.Alerts, alertFromResult(id, result, now))
		ids = append(ids, id)
	}

	if len(ids) == 0 {
		s.logger.Debug("no comparison results qualified",
			logging.Int("results", len(results)),
			logging.Float64("min_similarity", thresholds.MinSimilarity),
			logging.Float64("min_profit_margin", thresholds.MinProfitMargin),
		)
		return []int64{}, nil
	}
	if err := s.persist(ctx, "create", snap); err != nil {
		return nil, err
	}
	s.logger.Info("alerts created",
		logging.String(logging.FieldEventType, "alerts_created"),
		logging.Int("created", len(ids)),
		logging.Int("skipped", skipped),
		logging.IDs("ids", ids),
	)
	return ids, nil
}

func alertFromResult(id int64, result similarity.ComparisonResult, now time.Time) Alert {
	return Alert{
		ID:             id,
		State:          StatePending,
		CandidateID:    result.CandidateID,
		SourceTitle:    result.Source.Title,
		CandidateTitle: result.Candidate.Title,
		SourceLink:     result.Source.Link,
		CandidateLink:  result.Candidate.Link,
		Similarity:     result.SimilarityScore,
		ProfitMargin:   result.EstimatedProfitMargin,
		SourcePrice:    Money{Amount: result.Source.Price, Currency: result.Source.Currency},
		CandidatePrice: Money{Amount: result.Candidate.Price, Currency: result.Candidate.Currency},
		ShippingCost:   Money{Amount: result.ShippingCost, Currency: result.Candidate.Currency},
		SoldDate:       result.Candidate.SoldDate,
		ThumbnailURL:   result.Candidate.ThumbnailURL,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
