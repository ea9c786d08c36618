package similarity

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"sedori/internal/logging"
	"sedori/internal/services"
	"sedori/internal/textutil"
)

// Engine scores (source, candidate) pairs. It is safe for concurrent use.
type Engine struct {
	logger   *slog.Logger
	observer Observer
}

// Option customizes an Engine.
type Option func(*Engine)

// WithObserver registers an observer invoked after every successful comparison.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// NewEngine constructs an engine.
func NewEngine(logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{logger: logging.NewComponentLogger(logger, "similarity")}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Compare scores one candidate against the source. Configuration and price
// problems return an InvalidInputError before any image is decoded; an
// unreadable image returns an ImageDecodeError.
func (e *Engine) Compare(ctx context.Context, source Source, candidate Candidate, cfg Config) (ComparisonResult, error) {
	cfg = cfg.normalized()
	if err := cfg.Validate(); err != nil {
		return ComparisonResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return ComparisonResult{}, err
	}
	if _, err := cfg.Profit.Estimate(source.Price, candidate.Price); err != nil {
		return ComparisonResult{}, err
	}
	src, err := prepare(source.Image, cfg.Tuning)
	if err != nil {
		return ComparisonResult{}, &ImageDecodeError{Role: "source", Ref: source.Image.String(), Err: err}
	}
	return e.compareOne(ctx, source, src, candidate, cfg)
}

// CompareBatch scores every candidate against one source, preparing the source
// image once. One candidate's failure never affects another; each outcome
// carries its own result or typed error, in input order. Cancellation is
// checked between candidates: candidates not yet started receive ctx.Err() and
// the same error is returned alongside the outcomes.
func (e *Engine) CompareBatch(ctx context.Context, source Source, candidates []Candidate, cfg Config) ([]Outcome, error) {
	cfg = cfg.normalized()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, e.logger)
	started := time.Now()

	outcomes := make([]Outcome, len(candidates))
	for i, c := range candidates {
		outcomes[i] = Outcome{Index: i, CandidateID: c.ID}
	}

	src, srcErr := prepare(source.Image, cfg.Tuning)
	if srcErr != nil {
		decodeErr := &ImageDecodeError{Role: "source", Ref: source.Image.String(), Err: srcErr}
		logging.WarnWithContext(logger, "source image unreadable", "source_decode_failed",
			logging.Error(srcErr),
			logging.String("image", source.Image.String()),
			logging.String(logging.FieldImpact, "every candidate in the batch fails"),
			logging.String(logging.FieldErrorHint, "check the source image path or re-download it"),
		)
		for i := range outcomes {
			outcomes[i].Err = decodeErr
		}
		return outcomes, nil
	}

	var g errgroup.Group
	g.SetLimit(cfg.Tuning.Workers)
	for i, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			outcomes[i].Err = err
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i].Err = err
				return nil
			}
			result, err := e.compareOne(ctx, source, src, candidate, cfg)
			outcomes[i].Result = result
			outcomes[i].Err = err
			return nil
		})
	}
	_ = g.Wait()

	matched, failed := 0, 0
	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			failed++
		case o.Result.Matched:
			matched++
		}
	}
	logger.Info("batch comparison complete",
		logging.Int("candidates", len(candidates)),
		logging.Int("matched", matched),
		logging.Int("failed", failed),
		logging.Duration("elapsed", time.Since(started)),
	)
	return outcomes, ctx.Err()
}

func (e *Engine) compareOne(ctx context.Context, source Source, src *prepared, candidate Candidate, cfg Config) (ComparisonResult, error) {
	ctx = services.WithCandidateID(ctx, candidate.ID)
	logger := logging.WithContext(ctx, e.logger)
	started := time.Now()

	profit, err := cfg.Profit.Estimate(source.Price, candidate.Price)
	if err != nil {
		logger.Debug("candidate rejected", logging.Error(err), logging.ErrorKind(err))
		return ComparisonResult{}, err
	}
	cand, err := prepare(candidate.Image, cfg.Tuning)
	if err != nil {
		decodeErr := &ImageDecodeError{Role: "candidate", Ref: candidate.Image.String(), Err: err}
		logging.WarnWithContext(logger, "candidate image unreadable", "candidate_decode_failed",
			logging.Error(err),
			logging.String("image", candidate.Image.String()),
			logging.String(logging.FieldImpact, "candidate skipped"),
		)
		return ComparisonResult{}, decodeErr
	}

	scores, diag := scoreImages(src, cand, cfg)
	imageScore, ok := composite(scores, cfg.Thresholds.MetricWeights)
	if !ok {
		err := invalidInput("metric_weights", "no weighted metric produced a score (excluded: %s)", metricNames(diag.Excluded))
		logging.WarnWithContext(logger, "candidate unscorable", "candidate_unscorable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "give weight to a metric that is always computed, or lower min_keypoints"),
			logging.String(logging.FieldImpact, "candidate skipped"),
		)
		return ComparisonResult{}, err
	}
	diag.ImageScore = imageScore

	final := imageScore
	if title, ok := textutil.TitleSimilarity(source.Title, candidate.Title); ok {
		scores[MetricTitle] = title
		final, diag.TitleBlended = blendTitle(imageScore, title, cfg)
	}
	diag.Duration = time.Since(started)

	result := ComparisonResult{
		CandidateID:           candidate.ID,
		SimilarityScore:       final,
		ComponentScores:       scores,
		EstimatedProfitMargin: profit.Margin,
		EstimatedProfitAmount: profit.Amount,
		ShippingCost:          cfg.Profit.ShippingEstimate,
		Matched:               isMatch(final, cfg.Thresholds.MinSimilarity),
		Source:                withCurrency(source.Listing, cfg.Profit.SourceCurrency),
		Candidate:             withCurrency(candidate.Listing, cfg.Profit.TargetCurrency),
		Diagnostics:           diag,
	}

	logger.Debug("candidate scored",
		logging.Float64("score", result.SimilarityScore),
		logging.Float64("margin", result.EstimatedProfitMargin),
		logging.Bool("matched", result.Matched),
		logging.Int("matches", diag.Matches),
	)

	if e.observer != nil {
		obs := Observation{
			RunID:     runIDOf(ctx),
			Source:    src.rgba,
			Candidate: cand.rgba,
			Result:    result,
		}
		if err := e.observer.Observe(ctx, obs); err != nil {
			logging.WarnWithContext(logger, "debug observer failed", "observer_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "debug artifacts missing for this comparison"),
			)
		}
	}
	return result, nil
}

// scoreImages computes every metric that can produce a score for the pair.
func scoreImages(a, b *prepared, cfg Config) (map[Metric]float64, Diagnostics) {
	scores := make(map[Metric]float64, len(Metrics)+1)
	diag := Diagnostics{
		SourceKeypoints:    len(a.features.points),
		CandidateKeypoints: len(b.features.points),
	}

	minKP := cfg.Tuning.MinKeypoints
	if diag.SourceKeypoints < minKP || diag.CandidateKeypoints < minKP || diag.SourceKeypoints+diag.CandidateKeypoints == 0 {
		diag.Excluded = append(diag.Excluded, MetricKeypoints)
	} else {
		matches := matchFeatures(a.features, b.features)
		diag.Matches = len(matches)
		kp := keypointScore(len(matches), diag.SourceKeypoints, diag.CandidateKeypoints)
		if cfg.Thresholds.UseGeometricVerification {
			diag.GeometricVerified = true
			diag.Inliers = countHomographyInliers(matchedPairs(matches, a.features, b.features))
			if diag.Inliers < cfg.Tuning.GeometricMinInliers {
				kp *= cfg.Tuning.GeometricPenalty
				diag.GeometricPenaltyApplied = true
			}
		}
		scores[MetricKeypoints] = kp
	}

	scores[MetricStructural] = structuralScore(a.gray, b.gray)
	scores[MetricHistogram] = histogramScore(a.hist, b.hist)
	scores[MetricTemplate] = templateScore(a.edges, b.edges)
	return scores, diag
}

// composite is the weighted mean of the available metric scores, with weights
// renormalized over the metrics present. ok is false when no weighted metric
// produced a score.
func composite(scores map[Metric]float64, weights map[Metric]float64) (float64, bool) {
	var sum, total float64
	for _, metric := range Metrics {
		score, ok := scores[metric]
		if !ok {
			continue
		}
		w := weights[metric]
		sum += w * score
		total += w
	}
	if total <= 0 {
		return 0, false
	}
	return clampScore(sum / total), true
}

// blendTitle mixes in the title score only when the image score sits within
// TitleBand points of MinSimilarity. Outside that band the image score stands.
func blendTitle(imageScore, titleScore float64, cfg Config) (float64, bool) {
	w := cfg.Tuning.TitleWeight
	if w <= 0 || math.Abs(imageScore-cfg.Thresholds.MinSimilarity) > cfg.Tuning.TitleBand {
		return imageScore, false
	}
	return clampScore((1-w)*imageScore + w*titleScore), true
}

func isMatch(score, minSimilarity float64) bool {
	return score >= minSimilarity
}

func withCurrency(l Listing, fallback string) Listing {
	if strings.TrimSpace(l.Currency) == "" {
		l.Currency = fallback
	}
	return l
}

func runIDOf(ctx context.Context) string {
	id, _ := services.RunIDFromContext(ctx)
	return id
}

func metricNames(metrics []Metric) string {
	if len(metrics) == 0 {
		return "none"
	}
	names := make([]string, len(metrics))
	for i, m := range metrics {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}
