package memstore

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/cognicore/slopfx/pkg/slop/canon"
	"github.com/cognicore/slopfx/pkg/slop/internalerr"
	"github.com/cognicore/slopfx/pkg/slop/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu   sync.RWMutex
	runs map[string]store.Run
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{runs: make(map[string]store.Run)}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// SaveRun implements store.Store.
func (s *Store) SaveRun(ctx context.Context, r store.Run) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[r.ID]; ok {
		return fmt.Errorf("%w: run %s", internalerr.ErrDuplicate, r.ID)
	}
	s.runs[r.ID] = copyRun(r)
	return nil
}

// GetRun implements store.Store.
func (s *Store) GetRun(ctx context.Context, id string) (store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[id]
	if !ok {
		return store.Run{}, fmt.Errorf("%w: run %s", internalerr.ErrNotFound, id)
	}
	return copyRun(r), nil
}

// ListRuns implements store.Store.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]store.RunInfo, error) {
	s.mu.RLock()
	infos := make([]store.RunInfo, 0, len(s.runs))
	for _, r := range s.runs {
		infos = append(infos, r.Info())
	}
	s.mu.RUnlock()

	store.SortInfos(infos)
	if limit > 0 && len(infos) > limit {
		infos = infos[:limit]
	}
	return infos, nil
}

func copyRun(r store.Run) store.Run {
	out := r
	out.Sources = make([]store.SourceRecord, len(r.Sources))
	for i, src := range r.Sources {
		fp := src.Fingerprint
		fp.TopRepetitiveWords = slices.Clone(fp.TopRepetitiveWords)
		fp.TopBigrams = slices.Clone(fp.TopBigrams)
		fp.TopTrigrams = slices.Clone(fp.TopTrigrams)
		src.Fingerprint = fp
		out.Sources[i] = src
	}
	if r.Lists != nil {
		lists := canon.SlopLists{
			Words:    slices.Clone(r.Lists.Words),
			Bigrams:  slices.Clone(r.Lists.Bigrams),
			Trigrams: slices.Clone(r.Lists.Trigrams),
		}
		if r.Lists.Generic != nil {
			lists.Generic = make(map[int][]string, len(r.Lists.Generic))
			for n, terms := range r.Lists.Generic {
				lists.Generic[n] = slices.Clone(terms)
			}
		}
		out.Lists = &lists
	}
	return out
}
