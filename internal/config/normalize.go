package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStore(); err != nil {
		return err
	}
	c.normalizeThresholds()
	if err := c.normalizeProfit(); err != nil {
		return err
	}
	c.normalizeMatching()
	c.normalizeWorkflow()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DebugDir) == "" {
		c.Paths.DebugDir = filepath.Join(c.Paths.DataDir, "debug")
	}
	if c.Paths.DebugDir, err = expandPath(c.Paths.DebugDir); err != nil {
		return fmt.Errorf("paths.debug_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStore() error {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend == "" {
		c.Store.Backend = defaultStoreBackend
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		name := "alerts.json"
		if c.Store.Backend == "sqlite" {
			name = "alerts.db"
		}
		c.Store.Path = filepath.Join(c.Paths.DataDir, name)
	}
	var err error
	if c.Store.Path, err = expandPath(c.Store.Path); err != nil {
		return fmt.Errorf("store.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeThresholds() {
	if len(c.Thresholds.MetricWeights) == 0 {
		c.Thresholds.MetricWeights = nil
		return
	}
	weights := make(map[string]float64, len(c.Thresholds.MetricWeights))
	for name, weight := range c.Thresholds.MetricWeights {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		weights[key] += weight
	}
	c.Thresholds.MetricWeights = weights
}

func (c *Config) normalizeProfit() error {
	if value, ok := os.LookupEnv("SEDORI_EXCHANGE_RATE"); ok && strings.TrimSpace(value) != "" {
		rate, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("SEDORI_EXCHANGE_RATE: %w", err)
		}
		c.Profit.ExchangeRate = rate
	}
	c.Profit.SourceCurrency = strings.ToUpper(strings.TrimSpace(c.Profit.SourceCurrency))
	if c.Profit.SourceCurrency == "" {
		c.Profit.SourceCurrency = defaultSourceCurrency
	}
	c.Profit.TargetCurrency = strings.ToUpper(strings.TrimSpace(c.Profit.TargetCurrency))
	if c.Profit.TargetCurrency == "" {
		c.Profit.TargetCurrency = defaultTargetCurrency
	}
	return nil
}

func (c *Config) normalizeMatching() {
	c.Matching.Preset = strings.ToLower(strings.TrimSpace(c.Matching.Preset))
	if c.Matching.Preset == "" {
		c.Matching.Preset = defaultPreset
	}
	if c.Matching.WorkingSize <= 0 {
		c.Matching.WorkingSize = defaultWorkingSize
	}
	if c.Matching.MaxKeypoints <= 0 {
		c.Matching.MaxKeypoints = defaultMaxKeypoints
	}
	if c.Matching.Workers <= 0 {
		c.Matching.Workers = defaultWorkers
	}
	if c.Matching.GeometricMinInliers <= 0 {
		c.Matching.GeometricMinInliers = defaultGeometricMinInliers
	}
}

func (c *Config) normalizeWorkflow() {
	c.Workflow.BulkTransitionPolicy = strings.ToLower(strings.TrimSpace(c.Workflow.BulkTransitionPolicy))
	if c.Workflow.BulkTransitionPolicy == "" {
		c.Workflow.BulkTransitionPolicy = defaultBulkTransitionPolicy
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("SEDORI_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
