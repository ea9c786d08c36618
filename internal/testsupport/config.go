package testsupport

import (
	"path/filepath"
	"testing"

	"sedori/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The store defaults to the JSON backend under the temp data dir.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.DebugDir = filepath.Join(base, "debug")
	cfgVal.Store.Backend = "json"
	cfgVal.Store.Path = filepath.Join(cfgVal.Paths.DataDir, "alerts.json")
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithBackend switches the store backend and resets the store path to
// match it.
func WithBackend(backend string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Store.Backend = backend
		name := "alerts.json"
		if backend == "sqlite" {
			name = "alerts.db"
		}
		b.cfg.Store.Path = filepath.Join(b.cfg.Paths.DataDir, name)
	}
}

// WithBulkPolicy sets workflow.bulk_transition_policy.
func WithBulkPolicy(policy string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.BulkTransitionPolicy = policy
	}
}

// WithDebug enables debug artifact capture.
func WithDebug() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Matching.Debug = true
	}
}

// WithNtfyTopic points notifications at topic.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
