package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sedori/internal/alerts"
	"sedori/internal/config"
	"sedori/internal/services"
)

const userAgent = "sedori/0.1.0"

// Service defines the notification surface used by the CLI.
type Service interface {
	NotifyAlertsIngested(ctx context.Context, count int, best alerts.Alert) error
	NotifyBatchCompleted(ctx context.Context, compared, failed int, duration time.Duration) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		ingest:   cfg.Notifications.Ingest,
		errors:   cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	ingest   bool
	errors   bool
}

func (n *ntfyService) NotifyAlertsIngested(ctx context.Context, count int, best alerts.Alert) error {
	if !n.ingest || count <= 0 {
		return nil
	}
	noun := "alerts"
	if count == 1 {
		noun = "alert"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🛒 %d new %s", count, noun)
	if title := strings.TrimSpace(best.SourceTitle); title != "" {
		fmt.Fprintf(&b, "\nBest: %s (%.1f%% match, %.1f%% margin)", title, best.Similarity, best.ProfitMargin)
	}
	if link := strings.TrimSpace(best.CandidateLink); link != "" {
		fmt.Fprintf(&b, "\n%s", link)
	}
	data := payload{
		title:    "Sedori - New Alerts",
		message:  b.String(),
		tags:     []string{"sedori", "alerts", "new"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyBatchCompleted(ctx context.Context, compared, failed int, duration time.Duration) error {
	if failed == 0 {
		return nil
	}
	duration = duration.Round(time.Millisecond)
	if duration < 0 {
		duration = 0
	}
	data := payload{
		title:   "Sedori - Comparison Finished (with errors)",
		message: fmt.Sprintf("Compared %d candidates, %d failed in %s", compared, failed, duration),
		tags:    []string{"sedori", "compare", "warning"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Sedori - Error",
		message:  builder.String(),
		tags:     []string{"sedori", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Sedori - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"sedori", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "notifications", "send", "ntfy unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		detail := fmt.Sprintf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		// 4xx other than 429: bad topic or credentials.
		marker := services.ErrTransient
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			marker = services.ErrConfiguration
		}
		return services.Wrap(marker, "notifications", "send", detail, nil)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyAlertsIngested(context.Context, int, alerts.Alert) error       { return nil }
func (noopService) NotifyBatchCompleted(context.Context, int, int, time.Duration) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error                    { return nil }
func (noopService) TestNotification(context.Context) error                              { return nil }
