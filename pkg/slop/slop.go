// Package slop detects over-represented vocabulary ("slop") in generated
// text. The Engine profiles each source, reduces the fingerprints to
// canonical slop lists and clusters the sources into a similarity tree.
package slop

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cognicore/slopfx/pkg/slop/canon"
	"github.com/cognicore/slopfx/pkg/slop/config"
	"github.com/cognicore/slopfx/pkg/slop/fingerprint"
	"github.com/cognicore/slopfx/pkg/slop/internalerr"
	"github.com/cognicore/slopfx/pkg/slop/phylo"
	"github.com/cognicore/slopfx/pkg/slop/profile"
	"github.com/cognicore/slopfx/pkg/slop/store"
)

// Engine is the analysis facade
type Engine struct {
	profiler *profile.Profiler
	canon    canon.Options
	phylo    *phylo.Options
	workers  int
	store    store.Store
	logger   *slog.Logger
	clock    func() time.Time
	ids      *store.IDGenerator
}

// Options configures an Engine
type Options struct {
	Profiler *profile.Profiler // nil uses profile defaults
	Canon    canon.Options
	Phylo    *phylo.Options // nil skips tree construction
	Workers  int            // profiling concurrency; <= 0 uses GOMAXPROCS
	Store    store.Store    // optional run persistence
	Logger   *slog.Logger   // nil discards
	Clock    func() time.Time
}

// New creates an Engine with the given dependencies
func New(opts Options) *Engine {
	e := &Engine{
		profiler: opts.Profiler,
		canon:    opts.Canon,
		phylo:    opts.Phylo,
		workers:  opts.Workers,
		store:    opts.Store,
		logger:   opts.Logger,
		clock:    opts.Clock,
		ids:      store.NewIDGenerator(),
	}
	if e.profiler == nil {
		e.profiler = profile.New(profile.Options{Clock: opts.Clock})
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	return e
}

// FromComponents wires an Engine from loaded configuration.
func FromComponents(c *config.Components, logger *slog.Logger) *Engine {
	return New(Options{
		Profiler: c.Profiler,
		Canon:    c.Canon,
		Phylo:    c.Phylo,
		Workers:  c.Workers,
		Store:    c.Store,
		Logger:   logger,
	})
}

// Store returns the configured store, or nil.
func (e *Engine) Store() store.Store { return e.store }

// Close releases the store, if any.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// Report is the outcome of one analysis. Stage failures are reported in
// their own fields; a nil list or tree always comes with an error unless
// the stage was disabled.
type Report struct {
	RunID     string
	CreatedAt time.Time
	Batch     profile.Batch

	Lists    *canon.SlopLists
	ListsErr error

	Tree    *phylo.Tree // nil when tree building is disabled or failed
	TreeErr error
}

// Fingerprints returns the successfully profiled sources.
func (r *Report) Fingerprints() map[string]fingerprint.Fingerprint {
	return r.Batch.Fingerprints()
}

// Analyze profiles sources, canonicalizes their slop lists and builds the
// similarity tree. It fails with internalerr.ErrEmptyInput when no source
// could be profiled. Later stage failures are recorded on the report.
func (e *Engine) Analyze(ctx context.Context, sources []profile.Source) (*Report, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no sources", internalerr.ErrEmptyInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	createdAt := e.clock().UTC()
	report := &Report{
		RunID:     e.ids.New(createdAt),
		CreatedAt: createdAt,
	}
	log := e.logger.With("run_id", report.RunID)
	log.Info("analysis started", "sources", len(sources), "workers", e.workers)

	report.Batch = e.profiler.ProfileAll(ctx, sources, e.workers)
	for _, r := range report.Batch.Failed() {
		log.Warn("source not profiled", "source", r.Source, "error", r.Err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fps := report.Batch.Fingerprints()
	if len(fps) == 0 {
		return nil, fmt.Errorf("%w: no source profiled successfully: %w", internalerr.ErrEmptyInput, report.Batch.Err())
	}

	lists, err := canon.Canonicalize(fps, e.canon)
	if err != nil {
		report.ListsErr = err
		log.Warn("canonicalization failed", "error", err)
	} else {
		report.Lists = &lists
		log.Debug("slop lists built", "words", len(lists.Words), "bigrams", len(lists.Bigrams), "trigrams", len(lists.Trigrams))
	}

	if e.phylo != nil {
		tree, err := phylo.BuildTree(fps, *e.phylo)
		if err != nil {
			report.TreeErr = err
			log.Warn("tree not built", "error", err)
		} else {
			report.Tree = tree
			log.Debug("tree built", "leaves", len(tree.Leaves), "height", tree.Height())
		}
	}

	if e.store != nil {
		run, err := report.Record()
		if err != nil {
			return nil, err
		}
		if err := e.store.SaveRun(ctx, run); err != nil {
			return nil, fmt.Errorf("save run %s: %w", report.RunID, err)
		}
		log.Debug("run stored")
	}

	log.Info("analysis complete",
		"profiled", report.Batch.Succeeded(),
		"failed", len(report.Batch.Failed()),
		"tree", report.Tree != nil,
	)
	return report, nil
}

// Record converts the report into its persisted form. Unnamed and repeated
// sources are not recorded.
func (r *Report) Record() (store.Run, error) {
	run := store.Run{
		ID:        r.RunID,
		CreatedAt: r.CreatedAt,
		Lists:     r.Lists,
	}
	seen := make(map[string]struct{}, len(r.Batch.Results))
	for _, res := range r.Batch.Results {
		if _, dup := seen[res.Source]; dup || res.Source == "" {
			continue
		}
		seen[res.Source] = struct{}{}

		rec := store.SourceRecord{Name: res.Source, Fingerprint: res.Fingerprint}
		if res.Err != nil {
			rec = store.SourceRecord{Name: res.Source, Error: res.Err.Error()}
		}
		run.Sources = append(run.Sources, rec)
	}
	if r.Tree != nil {
		data, err := json.Marshal(r.Tree)
		if err != nil {
			return store.Run{}, fmt.Errorf("encode tree: %w", err)
		}
		run.Newick = r.Tree.Newick()
		run.TreeJSON = string(data)
	}
	return run, nil
}
