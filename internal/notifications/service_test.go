package notifications_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sedori/internal/alerts"
	"sedori/internal/config"
	"sedori/internal/notifications"
	"sedori/internal/services"
)

type capture struct {
	calls    int
	title    string
	tags     string
	priority string
	body     string
}

func newServer(t *testing.T, status int) (*httptest.Server, *capture) {
	t.Helper()
	captured := &capture{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		captured.calls++
		captured.title = r.Header.Get("Title")
		captured.tags = r.Header.Get("Tags")
		captured.priority = r.Header.Get("Priority")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		captured.body = string(body)
		_ = r.Body.Close()
		w.WriteHeader(status)
		_, _ = w.Write([]byte("nope"))
	}))
	t.Cleanup(server.Close)
	return server, captured
}

func configFor(url string) *config.Config {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = url
	cfg.Notifications.RequestTimeout = 5
	return &cfg
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyAlertsIngested(context.Background(), 3, alerts.Alert{}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	best := alerts.Alert{SourceTitle: "ガンダム RX-78", Similarity: 88.5, ProfitMargin: 35, CandidateLink: "https://sold.example/1"}
	tests := []struct {
		name           string
		send           func(notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:           "ingested",
			send:           func(s notifications.Service) error { return s.NotifyAlertsIngested(context.Background(), 2, best) },
			expectTitle:    "Sedori - New Alerts",
			expectMessage:  "🛒 2 new alerts\nBest: ガンダム RX-78 (88.5% match, 35.0% margin)\nhttps://sold.example/1",
			expectTags:     "sedori,alerts,new",
			expectPriority: "high",
		},
		{
			name:           "single ingested without details",
			send:           func(s notifications.Service) error { return s.NotifyAlertsIngested(context.Background(), 1, alerts.Alert{}) },
			expectTitle:    "Sedori - New Alerts",
			expectMessage:  "🛒 1 new alert",
			expectTags:     "sedori,alerts,new",
			expectPriority: "high",
		},
		{
			name:          "batch with failures",
			send:          func(s notifications.Service) error { return s.NotifyBatchCompleted(context.Background(), 10, 2, 1500*time.Millisecond) },
			expectTitle:   "Sedori - Comparison Finished (with errors)",
			expectMessage: "Compared 10 candidates, 2 failed in 1.5s",
			expectTags:    "sedori,compare,warning",
		},
		{
			name:           "error",
			send:           func(s notifications.Service) error { return s.NotifyError(context.Background(), errors.New("disk full"), "alert store") },
			expectTitle:    "Sedori - Error",
			expectMessage:  "❌ Error with alert store: disk full",
			expectTags:     "sedori,error,alert",
			expectPriority: "high",
		},
		{
			name:           "test",
			send:           func(s notifications.Service) error { return s.TestNotification(context.Background()) },
			expectTitle:    "Sedori - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "sedori,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server, captured := newServer(t, http.StatusOK)
			svc := notifications.NewService(configFor(server.URL))
			if err := tc.send(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}
			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceSuppressesDisabledEvents(t *testing.T) {
	server, captured := newServer(t, http.StatusOK)
	cfg := configFor(server.URL)
	cfg.Notifications.Ingest = false
	cfg.Notifications.Errors = false
	svc := notifications.NewService(cfg)

	ctx := context.Background()
	_ = svc.NotifyAlertsIngested(ctx, 5, alerts.Alert{})
	_ = svc.NotifyError(ctx, errors.New("boom"), "")
	_ = svc.NotifyBatchCompleted(ctx, 5, 0, time.Second)
	if captured.calls != 0 {
		t.Fatalf("expected no requests, got %d", captured.calls)
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	tests := []struct {
		status int
		kind   string
	}{
		{http.StatusForbidden, services.KindConfiguration},
		{http.StatusTooManyRequests, services.KindTransient},
		{http.StatusServiceUnavailable, services.KindTransient},
	}
	for _, tt := range tests {
		server, _ := newServer(t, tt.status)
		svc := notifications.NewService(configFor(server.URL))
		err := svc.TestNotification(context.Background())
		if err == nil || !strings.Contains(err.Error(), fmt.Sprintf("%d", tt.status)) {
			t.Fatalf("expected %d error, got %v", tt.status, err)
		}
		if kind := services.Kind(err); kind != tt.kind {
			t.Fatalf("status %d: kind = %q, want %q", tt.status, kind, tt.kind)
		}
	}
}

func TestNtfyServiceUnreachableIsTransient(t *testing.T) {
	server, _ := newServer(t, http.StatusOK)
	url := server.URL
	server.Close()
	err := notifications.NewService(configFor(url)).TestNotification(context.Background())
	if services.Kind(err) != services.KindTransient {
		t.Fatalf("expected transient error, got %v", err)
	}
}
