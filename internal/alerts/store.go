package alerts

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"sedori/internal/logging"
)

// Store is the in-memory alert collection backed by a Backend.
type Store struct {
	mu      sync.RWMutex
	backend Backend
	logger  *slog.Logger
	policy  Policy
	now     func() time.Time

	items  []Alert
	index  map[int64]int
	nextID int64
}

// Option configures a Store.
type Option func(*Store)

// WithPolicy sets the bulk transition policy. The default is PolicyStrict.
func WithPolicy(p Policy) Option {
	return func(s *Store) {
		if p != "" {
			s.policy = p
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logging.NewComponentLogger(logger, "alerts")
	}
}

// WithClock overrides the time source used for CreatedAt/UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore loads the collection from backend. Load failures are returned as
// *PersistenceError and the backend is left open for the caller to close.
func NewStore(ctx context.Context, backend Backend, opts ...Option) (*Store, error) {
	s := &Store{
		backend: backend,
		logger:  logging.NewComponentLogger(nil, "alerts"),
		policy:  PolicyStrict,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	snap, err := backend.Load(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Err: err}
	}
	s.commit(snap)
	s.logger.Debug("alert store loaded",
		logging.Int("alerts", len(s.items)),
		logging.Int64("next_id", s.nextID),
		logging.String("policy", string(s.policy)),
	)
	return s, nil
}

// Policy returns the bulk transition policy in effect.
func (s *Store) Policy() Policy { return s.policy }

// Close releases the backend.
func (s *Store) Close() error {
	if s == nil || s.backend == nil {
		return nil
	}
	return s.backend.Close()
}

// commit installs snap as the live collection. Callers hold the write lock
// (or own s exclusively).
func (s *Store) commit(snap Snapshot) {
	s.items = snap.Alerts
	s.index = make(map[int64]int, len(snap.Alerts))
	for i, item := range snap.Alerts {
		s.index[item.ID] = i
	}
	s.nextID = snap.NextID
	if s.nextID < 1 {
		s.nextID = 1
	}
}

// persist saves snap and commits it only when the backend accepts it.
func (s *Store) persist(ctx context.Context, op string, snap Snapshot) error {
	if err := s.backend.Save(ctx, snap); err != nil {
		logging.ErrorWithContext(logging.WithContext(ctx, s.logger), "alert store save failed", "store_save_failed",
			logging.String("operation", op),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check store path permissions and free disk space"),
		)
		return &PersistenceError{Op: op, Err: err}
	}
	s.commit(snap)
	return nil
}

func (s *Store) working() Snapshot {
	return Snapshot{NextID: s.nextID, Alerts: cloneAlerts(s.items)}
}

// stamp returns the modification time for item, never earlier than CreatedAt.
func (s *Store) stamp(item Alert) time.Time {
	now := s.now().UTC()
	if now.Before(item.CreatedAt) {
		return item.CreatedAt
	}
	return now
}

// Get returns a copy of one alert.
func (s *Store) Get(id int64) (Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.index[id]
	if !ok {
		return Alert{}, &NotFoundError{ID: id}
	}
	return s.items[pos], nil
}

// GetMany returns the alerts for ids in request order, one entry per
// requested occurrence. Unknown ids are omitted, so len(result) < len(ids)
// means at least one id was missing.
func (s *Store) GetMany(ids []int64) []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Alert, 0, len(ids))
	for _, id := range ids {
		if pos, ok := s.index[id]; ok {
			out = append(out, s.items[pos])
		}
	}
	return out
}

// List returns alerts in insertion order, filtered to states when any are given.
func (s *Store) List(states ...State) []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var filter map[State]struct{}
	if len(states) > 0 {
		filter = make(map[State]struct{}, len(states))
		for _, st := range states {
			filter[st] = struct{}{}
		}
	}
	out := make([]Alert, 0, len(s.items))
	for _, item := range s.items {
		if filter != nil {
			if _, ok := filter[item.State]; !ok {
				continue
			}
		}
		out = append(out, item)
	}
	return out
}

// Stats summarizes the collection.
type Stats struct {
	Total   int
	ByState map[State]int
	NextID  int64
}

// Stats returns counts per state. Every known state is present in ByState.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := Stats{
		Total:   len(s.items),
		ByState: make(map[State]int, len(allStates)),
		NextID:  s.nextID,
	}
	for _, st := range allStates {
		stats.ByState[st] = 0
	}
	for _, item := range s.items {
		stats.ByState[item.State]++
	}
	return stats
}
