package config

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// MetricNames lists the metric weight keys accepted in [thresholds.metric_weights].
var MetricNames = []string{"keypoints", "structural", "histogram", "template"}

// PresetNames lists the accepted [matching] preset values.
var PresetNames = []string{"listing", "thumbnail"}

const weightSumTolerance = 1e-6

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateThresholds(); err != nil {
		return err
	}
	if err := c.validateProfit(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case "json", "sqlite":
		return nil
	default:
		return fmt.Errorf("store.backend must be \"json\" or \"sqlite\", got %q", c.Store.Backend)
	}
}

func (c *Config) validateThresholds() error {
	if c.Thresholds.MinSimilarity < 0 || c.Thresholds.MinSimilarity > 100 {
		return errors.New("thresholds.min_similarity must be between 0 and 100")
	}
	return ValidateWeights(c.Thresholds.MetricWeights)
}

// ValidateWeights checks that every key is a known metric, no weight is
// negative, and the weights sum to 1. An empty map is valid (preset weights apply).
func ValidateWeights(weights map[string]float64) error {
	if len(weights) == 0 {
		return nil
	}
	keys := make([]string, 0, len(weights))
	for name := range weights {
		keys = append(keys, name)
	}
	sort.Strings(keys)
	var sum float64
	for _, name := range keys {
		if !contains(MetricNames, name) {
			return fmt.Errorf("thresholds.metric_weights: unknown metric %q", name)
		}
		weight := weights[name]
		if weight < 0 || math.IsNaN(weight) {
			return fmt.Errorf("thresholds.metric_weights.%s must be >= 0", name)
		}
		sum += weight
	}
	if math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("thresholds.metric_weights must sum to 1.0 (got %.6f)", sum)
	}
	return nil
}

func (c *Config) validateProfit() error {
	if c.Profit.ExchangeRate <= 0 {
		return errors.New("profit.exchange_rate must be positive")
	}
	if c.Profit.FeeRate < 0 || c.Profit.FeeRate >= 1 {
		return errors.New("profit.fee_rate must be a fraction in [0, 1)")
	}
	if c.Profit.ShippingEstimate < 0 {
		return errors.New("profit.shipping_estimate must be >= 0")
	}
	return nil
}

func (c *Config) validateMatching() error {
	if !contains(PresetNames, c.Matching.Preset) {
		return fmt.Errorf("matching.preset must be one of %v, got %q", PresetNames, c.Matching.Preset)
	}
	if c.Matching.WorkingSize < 64 {
		return errors.New("matching.working_size must be at least 64")
	}
	if c.Matching.MinKeypoints < 0 {
		return errors.New("matching.min_keypoints must be >= 0")
	}
	if c.Matching.TitleWeight < 0 || c.Matching.TitleWeight > 1 {
		return errors.New("matching.title_weight must be between 0 and 1")
	}
	if c.Matching.TitleBand < 0 {
		return errors.New("matching.title_band must be >= 0")
	}
	if c.Matching.GeometricPenalty < 0 || c.Matching.GeometricPenalty > 1 {
		return errors.New("matching.geometric_penalty must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	switch c.Workflow.BulkTransitionPolicy {
	case "strict", "direct":
		return nil
	default:
		return fmt.Errorf("workflow.bulk_transition_policy must be \"strict\" or \"direct\", got %q", c.Workflow.BulkTransitionPolicy)
	}
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
