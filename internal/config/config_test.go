package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"sedori/internal/config"
	"sedori/internal/services"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("SEDORI_NTFY_TOPIC", "")
	t.Setenv("SEDORI_EXCHANGE_RATE", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "sedori")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Store.Path != filepath.Join(wantData, "alerts.json") {
		t.Fatalf("unexpected store path: %q", cfg.Store.Path)
	}
	if cfg.Thresholds.MinSimilarity != 70 || cfg.Thresholds.MinProfitMargin != 20 {
		t.Fatalf("unexpected default thresholds: %+v", cfg.Thresholds)
	}
	if cfg.Thresholds.UseGeometricVerification {
		t.Fatal("expected geometric verification disabled by default")
	}
	if cfg.Workflow.BulkTransitionPolicy != "strict" {
		t.Fatalf("expected strict bulk policy, got %q", cfg.Workflow.BulkTransitionPolicy)
	}
	if cfg.Matching.Preset != "listing" {
		t.Fatalf("expected listing preset, got %q", cfg.Matching.Preset)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "sedori.toml")

	type payload struct {
		Store struct {
			Backend string `toml:"backend"`
		} `toml:"store"`
		Thresholds struct {
			MinSimilarity float64            `toml:"min_similarity"`
			MetricWeights map[string]float64 `toml:"metric_weights"`
		} `toml:"thresholds"`
		Workflow struct {
			BulkTransitionPolicy string `toml:"bulk_transition_policy"`
		} `toml:"workflow"`
	}
	custom := payload{}
	custom.Store.Backend = "SQLite"
	custom.Thresholds.MinSimilarity = 80
	custom.Thresholds.MetricWeights = map[string]float64{
		"Keypoints":  0.4,
		"structural": 0.2,
		"histogram":  0.2,
		"template":   0.2,
	}
	custom.Workflow.BulkTransitionPolicy = "direct"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Store.Backend != "sqlite" {
		t.Fatalf("expected normalized sqlite backend, got %q", cfg.Store.Backend)
	}
	if !strings.HasSuffix(cfg.Store.Path, "alerts.db") {
		t.Fatalf("expected sqlite store path, got %q", cfg.Store.Path)
	}
	if cfg.Thresholds.MinSimilarity != 80 {
		t.Fatalf("expected min similarity 80, got %v", cfg.Thresholds.MinSimilarity)
	}
	if cfg.Thresholds.MetricWeights["keypoints"] != 0.4 {
		t.Fatalf("expected lowercased keypoints weight, got %v", cfg.Thresholds.MetricWeights)
	}
	if cfg.Thresholds.MinProfitMargin != 20 {
		t.Fatalf("expected default profit margin to survive partial file, got %v", cfg.Thresholds.MinProfitMargin)
	}
	if cfg.Workflow.BulkTransitionPolicy != "direct" {
		t.Fatalf("expected direct policy, got %q", cfg.Workflow.BulkTransitionPolicy)
	}
}

func TestLoadYAMLConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "sedori.yaml")
	content := "thresholds:\n  min_profit_margin: 35\nprofit:\n  fee_rate: 0.1\n  target_currency: gbp\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write yaml config: %v", err)
	}
	cfg, _, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected yaml config to exist")
	}
	if cfg.Thresholds.MinProfitMargin != 35 {
		t.Fatalf("expected min profit 35, got %v", cfg.Thresholds.MinProfitMargin)
	}
	if cfg.Profit.FeeRate != 0.1 {
		t.Fatalf("expected fee rate 0.1, got %v", cfg.Profit.FeeRate)
	}
	if cfg.Profit.TargetCurrency != "GBP" {
		t.Fatalf("expected uppercased currency, got %q", cfg.Profit.TargetCurrency)
	}
}

func TestEnvFallbacks(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "sedori.toml")
	t.Setenv("SEDORI_NTFY_TOPIC", "https://ntfy.example/topic")
	t.Setenv("SEDORI_EXCHANGE_RATE", "0.0071")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.example/topic" {
		t.Fatalf("expected topic from env, got %q", cfg.Notifications.NtfyTopic)
	}
	if cfg.Profit.ExchangeRate != 0.0071 {
		t.Fatalf("expected exchange rate from env, got %v", cfg.Profit.ExchangeRate)
	}

	t.Setenv("SEDORI_EXCHANGE_RATE", "not-a-number")
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected error for malformed exchange rate")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "bulk_transition_policy") {
		t.Fatalf("sample config missing workflow section: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.DataDir, "sedori") {
		t.Fatalf("expected data dir to contain sedori, got %q", cfg.Paths.DataDir)
	}
	if cfg.Thresholds.MinSimilarity != config.Default().Thresholds.MinSimilarity {
		t.Fatalf("sample min_similarity drifted from default: %v", cfg.Thresholds.MinSimilarity)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"backend", func(c *config.Config) { c.Store.Backend = "postgres" }},
		{"similarity range", func(c *config.Config) { c.Thresholds.MinSimilarity = 120 }},
		{"weights sum", func(c *config.Config) {
			c.Thresholds.MetricWeights = map[string]float64{"keypoints": 0.5, "structural": 0.2}
		}},
		{"unknown metric", func(c *config.Config) {
			c.Thresholds.MetricWeights = map[string]float64{"keypoints": 0.5, "phash": 0.5}
		}},
		{"negative weight", func(c *config.Config) {
			c.Thresholds.MetricWeights = map[string]float64{"keypoints": 1.2, "template": -0.2}
		}},
		{"exchange rate", func(c *config.Config) { c.Profit.ExchangeRate = 0 }},
		{"fee rate", func(c *config.Config) { c.Profit.FeeRate = 13 }},
		{"preset", func(c *config.Config) { c.Matching.Preset = "fast" }},
		{"bulk policy", func(c *config.Config) { c.Workflow.BulkTransitionPolicy = "skip" }},
		{"penalty", func(c *config.Config) { c.Matching.GeometricPenalty = 2 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadReportsConfigurationKind(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SEDORI_NTFY_TOPIC", "")
	t.Setenv("SEDORI_EXCHANGE_RATE", "")

	dir := t.TempDir()
	invalid := filepath.Join(dir, "invalid.toml")
	if err := os.WriteFile(invalid, []byte("[workflow]\nbulk_transition_policy = \"skip\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	malformed := filepath.Join(dir, "malformed.toml")
	if err := os.WriteFile(malformed, []byte("[paths\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	for _, path := range []string{invalid, malformed} {
		_, _, _, err := config.Load(path)
		if err == nil {
			t.Fatalf("expected error loading %s", filepath.Base(path))
		}
		if kind := services.Kind(err); kind != services.KindConfiguration {
			t.Fatalf("%s: kind = %q, want %q (%v)", filepath.Base(path), kind, services.KindConfiguration, err)
		}
		if !strings.Contains(err.Error(), path) {
			t.Fatalf("expected error to name %s, got %v", path, err)
		}
	}
}
