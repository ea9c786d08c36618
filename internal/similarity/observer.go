package similarity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"sedori/internal/fileutil"
	"sedori/internal/textutil"
)

// Observation is handed to an Observer after a comparison is scored.
type Observation struct {
	RunID     string
	Source    *image.RGBA // normalized working image
	Candidate *image.RGBA
	Result    ComparisonResult
}

// Observer receives scored comparisons. Implementations must be safe for
// concurrent use; batch comparisons call Observe from several goroutines.
type Observer interface {
	Observe(ctx context.Context, obs Observation) error
}

// DirObserver writes each normalized image pair and a JSON summary into its
// own directory under Root, named <utc timestamp>-<sequence>-<random> so
// concurrent writers never collide.
type DirObserver struct {
	Root string

	seq atomic.Uint64
	now func() time.Time
}

// NewDirObserver creates an observer rooted at dir.
func NewDirObserver(dir string) *DirObserver {
	return &DirObserver{Root: dir, now: time.Now}
}

// Observe implements Observer.
func (d *DirObserver) Observe(_ context.Context, obs Observation) error {
	dir := filepath.Join(d.Root, d.nextName(obs.Result.CandidateID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create debug dir: %w", err)
	}
	if err := writePNG(filepath.Join(dir, "source.png"), obs.Source); err != nil {
		return err
	}
	if err := writePNG(filepath.Join(dir, "candidate.png"), obs.Candidate); err != nil {
		return err
	}
	summary := struct {
		RunID  string           `json:"run_id,omitempty"`
		Result ComparisonResult `json:"result"`
	}{RunID: obs.RunID, Result: obs.Result}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encode debug summary: %w", err)
	}
	if err := fileutil.WriteFileAtomic(filepath.Join(dir, "result.json"), data, 0o644); err != nil {
		return fmt.Errorf("write debug summary: %w", err)
	}
	return nil
}

func (d *DirObserver) nextName(candidateID string) string {
	now := time.Now
	if d.now != nil {
		now = d.now
	}
	seq := d.seq.Add(1)
	return fmt.Sprintf("%s-%06d-%s-%s",
		now().UTC().Format("20060102T150405.000000Z"),
		seq,
		uuid.NewString()[:8],
		textutil.SanitizeToken(candidateID),
	)
}

func writePNG(path string, img *image.RGBA) error {
	if img == nil {
		return nil
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644)
}
