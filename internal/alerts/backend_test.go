package alerts_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sedori/internal/alerts"
	"sedori/internal/services"
	"sedori/internal/similarity"
	"sedori/internal/testsupport"
)

func assertSameAlert(t *testing.T, got, want alerts.Alert) {
	t.Helper()
	if !got.CreatedAt.Equal(want.CreatedAt) || !got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Fatalf("alert %d timestamps differ: got %v/%v want %v/%v", want.ID, got.CreatedAt, got.UpdatedAt, want.CreatedAt, want.UpdatedAt)
	}
	got.CreatedAt, got.UpdatedAt = want.CreatedAt, want.UpdatedAt
	if got != want {
		t.Fatalf("alert %d differs:\n got  %+v\n want %+v", want.ID, got, want)
	}
}

func TestBackendsRoundTrip(t *testing.T) {
	for _, backend := range []string{"json", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			cfg := testsupport.NewConfig(t, testsupport.WithBackend(backend))
			ctx := context.Background()
			store, err := alerts.Open(ctx, cfg, nil)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}

			full := testsupport.Result("full", 91.25, 33.3)
			full.Candidate.SoldDate = "2026-01-15"
			full.Candidate.ThumbnailURL = "https://sold.example/full.jpg"
			bare := similarity.ComparisonResult{CandidateID: "bare", SimilarityScore: 70, EstimatedProfitMargin: 20}
			ids, err := store.CreateFromComparisons(ctx, []similarity.ComparisonResult{full, bare, testsupport.Result("gone", 80, 80)}, defaultThresholds)
			if err != nil {
				t.Fatalf("CreateFromComparisons: %v", err)
			}
			if _, err := store.Transition(ctx, ids[0], alerts.StateYay); err != nil {
				t.Fatalf("Transition: %v", err)
			}
			if err := store.Delete(ctx, ids[2]); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			want := store.List()
			if err := store.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			reopened := testsupport.MustOpenStore(t, cfg)
			got := reopened.List()
			if len(got) != len(want) {
				t.Fatalf("reopened %d alerts, want %d", len(got), len(want))
			}
			for i := range want {
				assertSameAlert(t, got[i], want[i])
			}
			if got[1].SoldDate != "" || got[1].ThumbnailURL != "" || got[1].SourcePrice != (alerts.Money{}) {
				t.Fatalf("absent optional fields not preserved: %+v", got[1])
			}
			if next := reopened.Stats().NextID; next != 4 {
				t.Fatalf("next id = %d, want 4", next)
			}
		})
	}
}

func TestJSONBackendLegacyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.json")
	legacy := `
  [
    {"id": 3, "state": "YAY", "source_title": "ガンダム", "source_price": "¥1,200",
     "candidate_price": "$15.50", "created_at": "2025-06-01T10:00:00Z", "updated_at": "2025-05-01T10:00:00Z"},
    {"id": 7, "source_title": "no state", "created_at": "2025-06-02T10:00:00Z"}
  ]
`
	testsupport.WriteFile(t, path, []byte(legacy))

	store, err := alerts.NewStore(context.Background(), alerts.NewJSONBackend(path))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	items := store.List()
	if len(items) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(items))
	}
	first := items[0]
	if first.State != alerts.StateYay {
		t.Fatalf("state = %q, want yay", first.State)
	}
	if first.SourcePrice != (alerts.Money{Amount: 1200, Currency: "JPY"}) {
		t.Fatalf("source price = %+v", first.SourcePrice)
	}
	if first.CandidatePrice != (alerts.Money{Amount: 15.5, Currency: "USD"}) {
		t.Fatalf("candidate price = %+v", first.CandidatePrice)
	}
	if first.UpdatedAt.Before(first.CreatedAt) {
		t.Fatalf("updated_at not clamped: %v < %v", first.UpdatedAt, first.CreatedAt)
	}
	if items[1].State != alerts.StatePending {
		t.Fatalf("blank state should default to pending, got %q", items[1].State)
	}
	if next := store.Stats().NextID; next != 8 {
		t.Fatalf("next id = %d, want 8", next)
	}

	// The first save rewrites the file as an envelope.
	if _, err := store.Transition(context.Background(), 7, alerts.StateNay); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env struct {
		NextID int64             `json:"next_id"`
		Alerts []json.RawMessage `json:"alerts"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("envelope: %v", err)
	}
	if env.NextID != 8 || len(env.Alerts) != 2 {
		t.Fatalf("envelope = next %d, %d alerts", env.NextID, len(env.Alerts))
	}
}

func TestJSONBackendToleratesBlankFiles(t *testing.T) {
	for name, content := range map[string]string{"empty": "", "whitespace": " \n\t\n", "bom": "\xef\xbb\xbf\n"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "alerts.json")
			testsupport.WriteFile(t, path, []byte(content))
			snap, err := alerts.NewJSONBackend(path).Load(context.Background())
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(snap.Alerts) != 0 || snap.NextID != 1 {
				t.Fatalf("unexpected snapshot %+v", snap)
			}
		})
	}
}

func TestJSONBackendRejectsCorruptDocuments(t *testing.T) {
	tests := map[string]string{
		"unknown state": `{"next_id": 2, "alerts": [{"id": 1, "state": "refunded"}]}`,
		"duplicate id":  `[{"id": 1}, {"id": 1}]`,
		"zero id":       `[{"id": 0}]`,
		"truncated":     `{"next_id": 2, "alerts": [`,
		"scalar":        `42`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t)
			testsupport.WriteFile(t, cfg.Store.Path, []byte(content))
			_, err := alerts.Open(context.Background(), cfg, nil)
			if !errors.Is(err, services.ErrPersistence) {
				t.Fatalf("expected persistence error, got %v", err)
			}
			var pe *alerts.PersistenceError
			if !errors.As(err, &pe) || pe.Op != "load" {
				t.Fatalf("expected load PersistenceError, got %v", err)
			}
		})
	}
}

func TestJSONBackendLeavesNoTempFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.NewAlerts(t, store, 2)

	entries, err := os.ReadDir(filepath.Dir(cfg.Store.Path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if name != "alerts.json" && name != "alerts.json.lock" {
			t.Fatalf("unexpected file %q in store dir", name)
		}
	}
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Store.Backend = "redis"
	_, err := alerts.Open(context.Background(), cfg, nil)
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if kind := services.Kind(err); kind != services.KindConfiguration {
		t.Fatalf("kind = %q, want %q (%v)", kind, services.KindConfiguration, err)
	}

	cfg.Store.Backend = "json"
	cfg.Workflow.BulkTransitionPolicy = "loose"
	if _, err := alerts.Open(context.Background(), cfg, nil); services.Kind(err) != services.KindConfiguration {
		t.Fatalf("expected configuration error for unknown policy, got %v", err)
	}
}

func TestSQLiteBackendPreservesOrderAfterReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.db")
	ctx := context.Background()
	backend, err := alerts.OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	created := time.Date(2026, 1, 2, 3, 4, 5, 600, time.UTC)
	snap := alerts.Snapshot{NextID: 10, Alerts: []alerts.Alert{
		{ID: 9, State: alerts.StatePosted, CreatedAt: created, UpdatedAt: created},
		{ID: 2, State: alerts.StatePending, CreatedAt: created, UpdatedAt: created.Add(time.Minute)},
	}}
	if err := backend.Save(ctx, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	_ = backend.Close()

	backend, err = alerts.OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer backend.Close()
	got, err := backend.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.NextID != 10 || len(got.Alerts) != 2 || got.Alerts[0].ID != 9 || got.Alerts[1].ID != 2 {
		t.Fatalf("unexpected snapshot %+v", got)
	}
	if !got.Alerts[0].CreatedAt.Equal(created) {
		t.Fatalf("created_at = %v, want %v", got.Alerts[0].CreatedAt, created)
	}
}

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in   string
		want alerts.Money
	}{
		{"¥1,200", alerts.Money{Amount: 1200, Currency: "JPY"}},
		{"1200円", alerts.Money{Amount: 1200, Currency: "JPY"}},
		{"$12.50", alerts.Money{Amount: 12.5, Currency: "USD"}},
		{"US$ 8", alerts.Money{Amount: 8, Currency: "USD"}},
		{"12.50 usd", alerts.Money{Amount: 12.5, Currency: "USD"}},
		{"GBP 3", alerts.Money{Amount: 3, Currency: "GBP"}},
		{"42", alerts.Money{Amount: 42}},
		{"", alerts.Money{}},
	}
	for _, tc := range tests {
		got, err := alerts.ParseMoney(tc.in)
		if err != nil {
			t.Fatalf("ParseMoney(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseMoney(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
	if _, err := alerts.ParseMoney("¥abc"); err == nil {
		t.Fatal("expected error for non-numeric amount")
	}
}

func TestMoneyString(t *testing.T) {
	tests := map[string]alerts.Money{
		"1,200 JPY":    {Amount: 1200, Currency: "JPY"},
		"12.50 USD":    {Amount: 12.5, Currency: "USD"},
		"1,234,567.89": {Amount: 1234567.89},
	}
	for want, m := range tests {
		if got := m.String(); got != want {
			t.Fatalf("%+v.String() = %q, want %q", m, got, want)
		}
	}
}
