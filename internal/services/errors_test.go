package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"sedori/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrPersistence, "alerts", "save", "write failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrPersistence) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"alerts", "save", "write failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestKindMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"decode", services.Wrap(services.ErrImageDecode, "similarity", "decode", "source", nil), services.KindImageDecode},
		{"invalid", fmt.Errorf("outer: %w", services.ErrInvalidInput), services.KindInvalidInput},
		{"not found", services.ErrNotFound, services.KindNotFound},
		{"illegal", services.ErrIllegalTransition, services.KindIllegalTransition},
		{"persistence", services.ErrPersistence, services.KindPersistence},
		{"configuration", services.Wrap(services.ErrConfiguration, "config", "validate", "", nil), services.KindConfiguration},
		{"transient", services.Wrap(nil, "notifications", "send", "", nil), services.KindTransient},
		{"canceled", context.Canceled, services.KindCanceled},
		{"unknown", errors.New("other"), services.KindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.Kind(tc.err); got != tc.want {
				t.Fatalf("Kind() = %q, want %q", got, tc.want)
			}
		})
	}
}
