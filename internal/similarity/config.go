package similarity

import (
	"fmt"
	"math"
	"strings"

	"sedori/internal/config"
)

const weightSumTolerance = 1e-6

// Thresholds holds the per-run ingestion bars and metric weighting.
type Thresholds struct {
	MinSimilarity            float64
	MinProfitMargin          float64
	MetricWeights            map[Metric]float64
	UseGeometricVerification bool
}

// ProfitModel converts prices between marketplaces and applies fees.
type ProfitModel struct {
	ExchangeRate     float64
	FeeRate          float64
	ShippingEstimate float64
	SourceCurrency   string
	TargetCurrency   string
}

// Tuning holds engine parameters that do not change what a match means.
type Tuning struct {
	WorkingSize         int
	MinKeypoints        int
	MaxKeypoints        int
	TitleWeight         float64
	TitleBand           float64
	GeometricMinInliers int
	GeometricPenalty    float64
	Workers             int
}

// Config is everything a comparison depends on. It is passed explicitly to
// every call; the engine reads no ambient settings.
type Config struct {
	Thresholds Thresholds
	Profit     ProfitModel
	Tuning     Tuning
}

// Preset returns a copy of the named metric weight preset.
//   - listing: full-size listing photos, keypoint heavy
//   - thumbnail: small search thumbnails, where structure and edges carry more
func Preset(name string) (map[Metric]float64, bool) {
	var weights map[Metric]float64
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "listing":
		weights = map[Metric]float64{
			MetricKeypoints:  0.50,
			MetricStructural: 0.15,
			MetricHistogram:  0.15,
			MetricTemplate:   0.20,
		}
	case "thumbnail":
		weights = map[Metric]float64{
			MetricKeypoints:  0.40,
			MetricStructural: 0.25,
			MetricHistogram:  0.10,
			MetricTemplate:   0.25,
		}
	default:
		return nil, false
	}
	return weights, true
}

// DefaultConfig returns the listing preset with repository defaults.
func DefaultConfig() Config {
	weights, _ := Preset("listing")
	return Config{
		Thresholds: Thresholds{
			MinSimilarity:   70,
			MinProfitMargin: 20,
			MetricWeights:   weights,
		},
		Profit: ProfitModel{
			ExchangeRate:     0.0067,
			FeeRate:          0.13,
			ShippingEstimate: 15,
			SourceCurrency:   "JPY",
			TargetCurrency:   "USD",
		},
		Tuning: DefaultTuning(),
	}
}

// DefaultTuning returns the engine's standard parameters.
func DefaultTuning() Tuning {
	return Tuning{
		WorkingSize:         400,
		MinKeypoints:        10,
		MaxKeypoints:        500,
		TitleWeight:         0.15,
		TitleBand:           5,
		GeometricMinInliers: 8,
		GeometricPenalty:    0.5,
		Workers:             4,
	}
}

// ConfigFrom converts file configuration into an engine Config. Explicit
// [thresholds.metric_weights] override the selected preset.
func ConfigFrom(cfg *config.Config) (Config, error) {
	if cfg == nil {
		return DefaultConfig(), nil
	}
	weights, ok := Preset(cfg.Matching.Preset)
	if !ok {
		return Config{}, invalidInput("matching.preset", "unknown preset %q", cfg.Matching.Preset)
	}
	if len(cfg.Thresholds.MetricWeights) > 0 {
		weights = make(map[Metric]float64, len(cfg.Thresholds.MetricWeights))
		for name, weight := range cfg.Thresholds.MetricWeights {
			weights[Metric(strings.ToLower(strings.TrimSpace(name)))] = weight
		}
	}
	out := Config{
		Thresholds: Thresholds{
			MinSimilarity:            cfg.Thresholds.MinSimilarity,
			MinProfitMargin:          cfg.Thresholds.MinProfitMargin,
			MetricWeights:            weights,
			UseGeometricVerification: cfg.Thresholds.UseGeometricVerification,
		},
		Profit: ProfitModel{
			ExchangeRate:     cfg.Profit.ExchangeRate,
			FeeRate:          cfg.Profit.FeeRate,
			ShippingEstimate: cfg.Profit.ShippingEstimate,
			SourceCurrency:   cfg.Profit.SourceCurrency,
			TargetCurrency:   cfg.Profit.TargetCurrency,
		},
		Tuning: Tuning{
			WorkingSize:         cfg.Matching.WorkingSize,
			MinKeypoints:        cfg.Matching.MinKeypoints,
			MaxKeypoints:        cfg.Matching.MaxKeypoints,
			TitleWeight:         cfg.Matching.TitleWeight,
			TitleBand:           cfg.Matching.TitleBand,
			GeometricMinInliers: cfg.Matching.GeometricMinInliers,
			GeometricPenalty:    cfg.Matching.GeometricPenalty,
			Workers:             cfg.Matching.Workers,
		},
	}
	if err := out.Validate(); err != nil {
		return Config{}, err
	}
	return out, nil
}

func (t Tuning) normalized() Tuning {
	d := DefaultTuning()
	if t.WorkingSize < 64 {
		t.WorkingSize = d.WorkingSize
	}
	if t.MinKeypoints < 0 {
		t.MinKeypoints = d.MinKeypoints
	}
	if t.MaxKeypoints <= 0 {
		t.MaxKeypoints = d.MaxKeypoints
	}
	if t.TitleWeight < 0 || t.TitleWeight > 1 {
		t.TitleWeight = d.TitleWeight
	}
	if t.TitleBand < 0 {
		t.TitleBand = d.TitleBand
	}
	if t.GeometricMinInliers <= 0 {
		t.GeometricMinInliers = d.GeometricMinInliers
	}
	if t.GeometricPenalty < 0 || t.GeometricPenalty > 1 {
		t.GeometricPenalty = d.GeometricPenalty
	}
	if t.Workers <= 0 {
		t.Workers = d.Workers
	}
	return t
}

func (c Config) normalized() Config {
	c.Tuning = c.Tuning.normalized()
	return c
}

// Validate reports an InvalidInputError for weights that are unknown,
// negative, or do not sum to 1, and for an unusable profit model.
func (c Config) Validate() error {
	if err := ValidateWeights(c.Thresholds.MetricWeights); err != nil {
		return err
	}
	if isBad(c.Thresholds.MinSimilarity) {
		return invalidInput("min_similarity", "must be a finite number")
	}
	if isBad(c.Thresholds.MinProfitMargin) {
		return invalidInput("min_profit_margin", "must be a finite number")
	}
	p := c.Profit
	if isBad(p.ExchangeRate) || p.ExchangeRate <= 0 {
		return invalidInput("exchange_rate", "must be positive, got %v", p.ExchangeRate)
	}
	if isBad(p.FeeRate) || p.FeeRate < 0 || p.FeeRate >= 1 {
		return invalidInput("fee_rate", "must be a fraction in [0, 1), got %v", p.FeeRate)
	}
	if isBad(p.ShippingEstimate) || p.ShippingEstimate < 0 {
		return invalidInput("shipping_estimate", "must be >= 0, got %v", p.ShippingEstimate)
	}
	return nil
}

// ValidateWeights checks a metric weight mapping.
func ValidateWeights(weights map[Metric]float64) error {
	if len(weights) == 0 {
		return invalidInput("metric_weights", "no weights configured")
	}
	var sum float64
	for _, metric := range Metrics {
		weight, ok := weights[metric]
		if !ok {
			continue
		}
		if isBad(weight) || weight < 0 {
			return invalidInput("metric_weights", "%s weight must be >= 0, got %v", metric, weight)
		}
		sum += weight
	}
	for metric := range weights {
		if !isMetric(metric) {
			return invalidInput("metric_weights", "unknown metric %q", string(metric))
		}
	}
	if math.Abs(sum-1) > weightSumTolerance {
		return invalidInput("metric_weights", "must sum to 1.0, got %s", formatSum(sum))
	}
	return nil
}

func isMetric(m Metric) bool {
	for _, known := range Metrics {
		if known == m {
			return true
		}
	}
	return false
}

func isBad(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

func formatSum(v float64) string {
	return fmt.Sprintf("%.6f", v)
}
