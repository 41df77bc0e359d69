// Package store defines persistence for analysis runs.
package store

import (
	"context"
	"crypto/rand"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/slopfx/pkg/slop/canon"
	"github.com/cognicore/slopfx/pkg/slop/fingerprint"
	"github.com/cognicore/slopfx/pkg/slop/internalerr"
)

// Store persists analysis runs.
type Store interface {
	Close() error

	// SaveRun stores a complete run. Saving an ID twice fails with
	// internalerr.ErrDuplicate.
	SaveRun(ctx context.Context, r Run) error

	// GetRun loads a run, or fails with internalerr.ErrNotFound.
	GetRun(ctx context.Context, id string) (Run, error)

	// ListRuns returns run headers, newest first. limit <= 0 returns all.
	ListRuns(ctx context.Context, limit int) ([]RunInfo, error)
}

// Run is one persisted analysis.
type Run struct {
	ID        string
	CreatedAt time.Time
	Sources   []SourceRecord   // in input order
	Lists     *canon.SlopLists // nil when canonicalization failed
	Newick    string           // empty when no tree was built
	TreeJSON  string
}

// SourceRecord is the outcome for one source of a run. Error is set instead of
// Fingerprint when profiling failed.
type SourceRecord struct {
	Name        string
	Fingerprint fingerprint.Fingerprint
	Error       string
}

// OK reports whether the source was profiled.
func (s SourceRecord) OK() bool { return s.Error == "" }

// RunInfo is the header of a stored run.
type RunInfo struct {
	ID        string
	CreatedAt time.Time
	Sources   int
	Failed    int
	HasTree   bool
}

// Validate checks the fields every store requires.
func (r Run) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: run id is required", internalerr.ErrInvalidConfig)
	}
	seen := make(map[string]struct{}, len(r.Sources))
	for _, s := range r.Sources {
		if s.Name == "" {
			return fmt.Errorf("%w: run %s has a source without a name", internalerr.ErrInvalidConfig, r.ID)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("%w: run %s lists source %q twice", internalerr.ErrDuplicate, r.ID, s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	return nil
}

// Info summarizes the run.
func (r Run) Info() RunInfo {
	info := RunInfo{ID: r.ID, CreatedAt: r.CreatedAt, Sources: len(r.Sources), HasTree: r.Newick != ""}
	for _, s := range r.Sources {
		if !s.OK() {
			info.Failed++
		}
	}
	return info
}

// Fingerprints returns the fingerprints of the successfully profiled sources.
func (r Run) Fingerprints() map[string]fingerprint.Fingerprint {
	out := make(map[string]fingerprint.Fingerprint, len(r.Sources))
	for _, s := range r.Sources {
		if s.OK() {
			out[s.Name] = s.Fingerprint
		}
	}
	return out
}

// SortInfos orders run headers newest first. Run IDs are ULIDs, so ID order
// breaks ties between runs created in the same instant.
func SortInfos(infos []RunInfo) {
	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].CreatedAt.After(infos[j].CreatedAt)
		}
		return infos[i].ID > infos[j].ID
	})
}

// IDGenerator issues ULID run identifiers that sort by creation time.
// It is safe for concurrent use.
type IDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewIDGenerator creates a generator backed by crypto/rand.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// New returns an ID for a run created at t.
func (g *IDGenerator) New(t time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), g.entropy).String()
}
