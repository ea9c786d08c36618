package services

import "context"

type contextKey string

const (
	alertIDKey     contextKey = "alert_id"
	candidateIDKey contextKey = "candidate_id"
	runIDKey       contextKey = "run_id"
)

// WithAlertID annotates context with the tracked alert identifier.
func WithAlertID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, alertIDKey, id)
}

// AlertIDFromContext extracts the alert identifier if present.
func AlertIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(alertIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithCandidateID annotates context with the candidate listing identifier.
func WithCandidateID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, candidateIDKey, id)
}

// CandidateIDFromContext returns the candidate identifier if present.
func CandidateIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(candidateIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRunID annotates context with a batch run correlation identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
