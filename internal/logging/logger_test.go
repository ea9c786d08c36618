package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sedori/internal/alerts"
	"sedori/internal/config"
	"sedori/internal/logging"
	"sedori/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from test")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "sedori.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello from test") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerFormatsComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	component := logging.NewComponentLogger(logger, "alerts")
	component.Info("alert transitioned", logging.String("state", "yay"), logging.String("title", "two words"))

	line := buf.String()
	if !strings.Contains(line, "alerts: alert transitioned") {
		t.Fatalf("expected component prefix, got %q", line)
	}
	if !strings.Contains(line, "state=yay") {
		t.Fatalf("expected state field, got %q", line)
	}
	if !strings.Contains(line, `title="two words"`) {
		t.Fatalf("expected quoted value, got %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should be rendered as prefix only, got %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", line)
	}
}

func TestConsoleLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "warn", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("suppressed")
	logger.Warn("visible")

	if strings.Contains(buf.String(), "suppressed") {
		t.Fatalf("info line should be filtered at warn level: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("warn line missing: %q", buf.String())
	}
}

func TestJSONLoggerUsesShortKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("compared", logging.Float64("score", 81.5))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, buf.String())
	}
	for _, key := range []string{"ts", "level", "msg", "score"} {
		if _, ok := payload[key]; !ok {
			t.Fatalf("expected key %q in %v", key, payload)
		}
	}
	if payload["level"] != "info" {
		t.Fatalf("expected lowercase level, got %v", payload["level"])
	}
}

func TestLoggersNormalizeDomainValues(t *testing.T) {
	attrs := []logging.Attr{
		logging.Float64("score", 88.49999999),
		logging.Float64("ratio", 0.123456),
		logging.IDs("ids", []int64{3, 7, 9}),
		logging.Any("price", alerts.Money{Amount: 1200, Currency: "JPY"}),
		logging.Duration("elapsed", 1234567*time.Microsecond),
	}

	var console bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &console})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.LogAttrs(context.Background(), slog.LevelInfo, "alerts created", attrs...)
	line := console.String()
	for _, want := range []string{"score=88.5", "ratio=0.123456", "ids=3,7,9", `price="1,200 JPY"`, "elapsed=1.235s"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}

	var js bytes.Buffer
	logger, err = logging.New(logging.Options{Format: "json", Level: "info", Writer: &js})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.LogAttrs(context.Background(), slog.LevelInfo, "alerts created", attrs...)
	var payload map[string]any
	if err := json.Unmarshal(js.Bytes(), &payload); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, js.String())
	}
	if payload["score"] != 88.5 {
		t.Fatalf("score = %v, want 88.5", payload["score"])
	}
	if payload["ids"] != "3,7,9" {
		t.Fatalf("ids = %v, want 3,7,9", payload["ids"])
	}
	if payload["price"] != "1,200 JPY" {
		t.Fatalf("price = %v, want 1,200 JPY", payload["price"])
	}
}

func TestConsoleLoggerRendersEmptyIDList(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("bulk delete applied", logging.IDs("ids", nil))
	if !strings.Contains(buf.String(), "ids=-") {
		t.Fatalf("expected placeholder for empty ids, got %q", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml", Writer: &bytes.Buffer{}}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithAlertID(context.Background(), 42)
	ctx = services.WithCandidateID(ctx, "m123")
	ctx = services.WithRunID(ctx, "run-1")
	logging.WithContext(ctx, logger).Info("context message")

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if payload[logging.FieldAlertID] != float64(42) {
		t.Fatalf("expected alert_id 42, got %v", payload[logging.FieldAlertID])
	}
	if payload[logging.FieldCandidateID] != "m123" {
		t.Fatalf("expected candidate_id, got %v", payload[logging.FieldCandidateID])
	}
	if payload[logging.FieldRunID] != "run-1" {
		t.Fatalf("expected run_id, got %v", payload[logging.FieldRunID])
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "candidate skipped", "image_decode_failed",
		logging.String(logging.FieldImpact, "candidate excluded from batch"))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if payload[logging.FieldEventType] != "image_decode_failed" {
		t.Fatalf("expected event_type, got %v", payload)
	}
	if payload[logging.FieldErrorHint] == nil {
		t.Fatalf("expected default error_hint, got %v", payload)
	}
	if payload[logging.FieldImpact] != "candidate excluded from batch" {
		t.Fatalf("explicit impact should be kept, got %v", payload[logging.FieldImpact])
	}
}

func TestErrorKindAttr(t *testing.T) {
	err := services.Wrap(services.ErrNotFound, "alerts", "get", "missing", errors.New("id 7"))
	attr := logging.ErrorKind(fmt.Errorf("outer: %w", err))
	if attr.Value.String() != "not_found" {
		t.Fatalf("expected not_found kind, got %q", attr.Value.String())
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 12) {
		t.Fatal("nop logger should never be enabled")
	}
}
