package preflight

import (
	"context"
	"path/filepath"
	"strings"

	"sedori/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := DirectoryChecks(cfg)
	results = append(results, CheckMatching(cfg))
	results = append(results, CheckStore(ctx, cfg))

	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		results = append(results, CheckNtfy(ctx, cfg.Notifications.NtfyTopic))
	}
	return results
}

// DirectoryChecks verifies every directory sedori writes to.
func DirectoryChecks(cfg *config.Config) []Result {
	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if storeDir := filepath.Dir(cfg.Store.Path); cfg.Store.Path != "" && storeDir != filepath.Clean(cfg.Paths.DataDir) {
		results = append(results, CheckDirectoryAccess("Store directory", storeDir))
	}
	if cfg.Matching.Debug {
		results = append(results, CheckDirectoryAccess("Debug directory", cfg.Paths.DebugDir))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
