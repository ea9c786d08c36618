package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"sedori/internal/fileutil"
)

// JSONBackend stores the collection as one JSON document.
type JSONBackend struct {
	path string
	lock *flock.Flock
}

type jsonEnvelope struct {
	NextID int64   `json:"next_id"`
	Alerts []Alert `json:"alerts"`
}

// NewJSONBackend returns a backend for path. A sibling "<path>.lock" file
// guards reads and writes across processes.
func NewJSONBackend(path string) *JSONBackend {
	return &JSONBackend{path: path, lock: flock.New(path + ".lock")}
}

// Path returns the document path.
func (b *JSONBackend) Path() string { return b.path }

// Load reads the document. A missing or blank file is an empty collection.
func (b *JSONBackend) Load(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	if err := b.lock.RLock(); err != nil {
		return Snapshot{}, fmt.Errorf("lock %s: %w", b.lock.Path(), err)
	}
	defer func() { _ = b.lock.Unlock() }()

	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Snapshot{NextID: 1}, nil
		}
		return Snapshot{}, fmt.Errorf("read %s: %w", b.path, err)
	}
	snap, err := decodeSnapshot(data)
	if err != nil {
		return Snapshot{}, fmt.Errorf("decode %s: %w", b.path, err)
	}
	return snap, nil
}

func decodeSnapshot(data []byte) (Snapshot, error) {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	if len(trimmed) == 0 {
		return Snapshot{NextID: 1}, nil
	}
	var snap Snapshot
	switch trimmed[0] {
	case '[':
		var items []Alert
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return Snapshot{}, err
		}
		snap.Alerts = items
	case '{':
		var env jsonEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return Snapshot{}, err
		}
		snap.NextID = env.NextID
		snap.Alerts = env.Alerts
	default:
		return Snapshot{}, fmt.Errorf("unexpected document start %q", trimmed[0])
	}
	return sanitizeSnapshot(snap)
}

// Save writes the document to a temp file in the same directory, syncs it,
// and renames it over the previous version.
func (b *JSONBackend) Save(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	items := snap.Alerts
	if items == nil {
		items = []Alert{}
	}
	payload, err := json.MarshalIndent(jsonEnvelope{NextID: snap.NextID, Alerts: items}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode alerts: %w", err)
	}
	payload = append(payload, '\n')

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	if err := b.lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", b.lock.Path(), err)
	}
	defer func() { _ = b.lock.Unlock() }()

	return fileutil.WriteFileAtomic(b.path, payload, 0o644)
}

// Close is a no-op; the lock is only held during Load and Save.
func (b *JSONBackend) Close() error { return nil }
