package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"sedori/internal/config"
	"sedori/internal/services"
)

// Backend names accepted by [store] backend.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Open builds the store described by cfg: it creates the store directory,
// picks the backend, applies the bulk transition policy, and loads the
// collection.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "alerts", "open", "nil config", nil)
	}
	policy, err := ParsePolicy(cfg.Workflow.BulkTransitionPolicy)
	if err != nil {
		return nil, err
	}
	path := strings.TrimSpace(cfg.Store.Path)
	if path == "" {
		return nil, services.Wrap(services.ErrConfiguration, "alerts", "open", "store path is empty", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &PersistenceError{Op: "open", Err: err}
	}

	var backend Backend
	switch strings.ToLower(strings.TrimSpace(cfg.Store.Backend)) {
	case "", BackendJSON:
		backend = NewJSONBackend(path)
	case BackendSQLite:
		sqlite, err := OpenSQLite(ctx, path)
		if err != nil {
			return nil, &PersistenceError{Op: "open", Err: err}
		}
		backend = sqlite
	default:
		return nil, services.Wrap(services.ErrConfiguration, "alerts", "open",
			fmt.Sprintf("unknown store backend %q", cfg.Store.Backend), nil)
	}

	store, err := NewStore(ctx, backend, WithPolicy(policy), WithLogger(logger))
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return store, nil
}
