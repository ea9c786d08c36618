package services_test

import (
	"context"
	"testing"

	"sedori/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithAlertID(ctx, 42)
	ctx = services.WithCandidateID(ctx, "m123")
	ctx = services.WithRunID(ctx, "run-1")

	if id, ok := services.AlertIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected alert id: %v %v", id, ok)
	}
	if cid, ok := services.CandidateIDFromContext(ctx); !ok || cid != "m123" {
		t.Fatalf("unexpected candidate id: %v %v", cid, ok)
	}
	if rid, ok := services.RunIDFromContext(ctx); !ok || rid != "run-1" {
		t.Fatalf("unexpected run id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithCandidateID(ctx, "")
	ctx = services.WithRunID(ctx, "")
	if _, ok := services.CandidateIDFromContext(ctx); ok {
		t.Fatal("expected blank candidate id to be ignored")
	}
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected blank run id to be ignored")
	}
	if _, ok := services.AlertIDFromContext(ctx); ok {
		t.Fatal("expected missing alert id")
	}
}
