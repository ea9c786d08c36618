package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"sedori/internal/alerts"
	"sedori/internal/config"
	"sedori/internal/similarity"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "(error: not configured)"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckMatching verifies the weights and profit model resolve to a valid
// engine configuration.
func CheckMatching(cfg *config.Config) Result {
	const name = "Matching config"

	engineCfg, err := similarity.ConfigFrom(cfg)
	if err == nil {
		err = engineCfg.Validate()
	}
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("preset %s, min similarity %.1f, min margin %.1f%%",
		cfg.Matching.Preset, engineCfg.Thresholds.MinSimilarity, engineCfg.Thresholds.MinProfitMargin)}
}

// CheckStore opens the alert store and reports how many alerts it holds.
func CheckStore(ctx context.Context, cfg *config.Config) Result {
	name := fmt.Sprintf("Alert store (%s)", cfg.Store.Backend)

	store, err := alerts.Open(ctx, cfg, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", cfg.Store.Path, err)}
	}
	defer store.Close()
	stats := store.Stats()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d alerts, next id %d)", cfg.Store.Path, stats.Total, stats.NextID)}
}

// CheckNtfy verifies the ntfy topic URL answers a poll request.
func CheckNtfy(ctx context.Context, topic string) Result {
	const name = "ntfy"

	base := strings.TrimRight(strings.TrimSpace(topic), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing topic"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/json?poll=1&since=1s", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("poll failed (%v)", err)}
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeHTTPError(err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: "topic requires authentication"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("poll failed (%d)", resp.StatusCode)}
	}
}

func summarizeHTTPError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "poll timed out (server unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "poll timed out (server unreachable)"
	}
	return fmt.Sprintf("poll failed (%v)", err)
}
