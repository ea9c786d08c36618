package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"sedori/internal/services"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir  string `toml:"data_dir" yaml:"data_dir"`
	LogDir   string `toml:"log_dir" yaml:"log_dir"`
	DebugDir string `toml:"debug_dir" yaml:"debug_dir"`
}

// Store selects the alert persistence backend.
type Store struct {
	Backend string `toml:"backend" yaml:"backend"` // "json" or "sqlite"
	Path    string `toml:"path" yaml:"path"`       // Default: <data_dir>/alerts.json or alerts.db
}

// Thresholds contains the ingestion bars and metric weighting.
type Thresholds struct {
	MinSimilarity            float64            `toml:"min_similarity" yaml:"min_similarity"`
	MinProfitMargin          float64            `toml:"min_profit_margin" yaml:"min_profit_margin"`
	UseGeometricVerification bool               `toml:"use_geometric_verification" yaml:"use_geometric_verification"`
	MetricWeights            map[string]float64 `toml:"metric_weights" yaml:"metric_weights"`
}

// Profit contains the currency conversion and fee model.
type Profit struct {
	// ExchangeRate converts one unit of the source currency into the target currency.
	ExchangeRate float64 `toml:"exchange_rate" yaml:"exchange_rate"`
	// FeeRate is the target marketplace fee as a fraction (0.13 = 13%).
	FeeRate float64 `toml:"fee_rate" yaml:"fee_rate"`
	// ShippingEstimate is a flat shipping cost in the target currency.
	ShippingEstimate float64 `toml:"shipping_estimate" yaml:"shipping_estimate"`
	SourceCurrency   string  `toml:"source_currency" yaml:"source_currency"`
	TargetCurrency   string  `toml:"target_currency" yaml:"target_currency"`
}

// Matching contains similarity engine tuning.
type Matching struct {
	Preset              string  `toml:"preset" yaml:"preset"`
	WorkingSize         int     `toml:"working_size" yaml:"working_size"`
	MinKeypoints        int     `toml:"min_keypoints" yaml:"min_keypoints"`
	MaxKeypoints        int     `toml:"max_keypoints" yaml:"max_keypoints"`
	TitleWeight         float64 `toml:"title_weight" yaml:"title_weight"`
	TitleBand           float64 `toml:"title_band" yaml:"title_band"`
	GeometricMinInliers int     `toml:"geometric_min_inliers" yaml:"geometric_min_inliers"`
	GeometricPenalty    float64 `toml:"geometric_penalty" yaml:"geometric_penalty"`
	Workers             int     `toml:"workers" yaml:"workers"`
	Debug               bool    `toml:"debug" yaml:"debug"`
}

// Workflow contains alert lifecycle options.
type Workflow struct {
	// BulkTransitionPolicy is "strict" (single forward step) or "direct"
	// (bulk operations may jump forward along the chain).
	BulkTransitionPolicy string `toml:"bulk_transition_policy" yaml:"bulk_transition_policy"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic" yaml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout" yaml:"request_timeout"`
	Ingest         bool   `toml:"ingest" yaml:"ingest"`
	Errors         bool   `toml:"errors" yaml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" yaml:"format"`
	Level  string `toml:"level" yaml:"level"`
}

// Config encapsulates all configuration values for sedori.
//
// Configuration sections by subsystem:
//   - Paths: data, log, and debug artifact directories
//   - Store: alert persistence backend and location
//   - Thresholds: ingestion bars and metric weights
//   - Profit: exchange rate, marketplace fee, shipping estimate
//   - Matching: similarity engine tuning
//   - Workflow: bulk transition policy
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths" yaml:"paths"`
	Store         Store         `toml:"store" yaml:"store"`
	Thresholds    Thresholds    `toml:"thresholds" yaml:"thresholds"`
	Profit        Profit        `toml:"profit" yaml:"profit"`
	Matching      Matching      `toml:"matching" yaml:"matching"`
	Workflow      Workflow      `toml:"workflow" yaml:"workflow"`
	Notifications Notifications `toml:"notifications" yaml:"notifications"`
	Logging       Logging       `toml:"logging" yaml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	loadDotEnv()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		if err := decodeFile(resolvedPath, &cfg); err != nil {
			return nil, "", false, services.Wrap(services.ErrConfiguration, "config", "decode", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, services.Wrap(services.ErrConfiguration, "config", "normalize", "", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, services.Wrap(services.ErrConfiguration, "config", "validate", resolvedPath, err)
	}

	return &cfg, resolvedPath, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.NewDecoder(file).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parse config: %w", err)
		}
	default:
		if err := toml.NewDecoder(file).Decode(cfg); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
	}
	return nil
}

// loadDotEnv populates unset environment variables from ./.env when present.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	_ = godotenv.Load(".env")
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("sedori.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for CLI operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir}
	if storeDir := filepath.Dir(c.Store.Path); c.Store.Path != "" && storeDir != "" {
		dirs = append(dirs, storeDir)
	}
	if c.Matching.Debug && strings.TrimSpace(c.Paths.DebugDir) != "" {
		dirs = append(dirs, c.Paths.DebugDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ExpandPath resolves tilde prefixes and returns an absolute, cleaned path.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
