package alerts

import (
	"context"
	"fmt"
	"time"
)

// Snapshot is the full persisted collection.
type Snapshot struct {
	NextID int64
	Alerts []Alert
}

// Backend persists whole snapshots. Save must be atomic: after a failed Save
// the previous snapshot is still what Load returns.
type Backend interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
	Close() error
}

// sanitizeSnapshot validates loaded records and repairs what can be repaired
// without guessing: blank states default to pending, UpdatedAt is clamped to
// CreatedAt, and NextID is raised past the highest stored id.
func sanitizeSnapshot(snap Snapshot) (Snapshot, error) {
	seen := make(map[int64]struct{}, len(snap.Alerts))
	var maxID int64
	for i := range snap.Alerts {
		item := &snap.Alerts[i]
		if item.ID <= 0 {
			return Snapshot{}, fmt.Errorf("record %d: invalid id %d", i, item.ID)
		}
		if _, dup := seen[item.ID]; dup {
			return Snapshot{}, fmt.Errorf("duplicate alert id %d", item.ID)
		}
		seen[item.ID] = struct{}{}
		if item.ID > maxID {
			maxID = item.ID
		}

		if item.State == "" {
			item.State = StatePending
		} else {
			state, ok := ParseState(string(item.State))
			if !ok {
				return Snapshot{}, fmt.Errorf("alert %d: unknown state %q", item.ID, item.State)
			}
			item.State = state
		}

		if item.CreatedAt.IsZero() {
			item.CreatedAt = item.UpdatedAt
		}
		if item.UpdatedAt.Before(item.CreatedAt) {
			item.UpdatedAt = item.CreatedAt
		}
		item.CreatedAt = item.CreatedAt.UTC()
		item.UpdatedAt = item.UpdatedAt.UTC()
	}
	if snap.NextID <= maxID {
		snap.NextID = maxID + 1
	}
	if snap.NextID < 1 {
		snap.NextID = 1
	}
	return snap, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}
