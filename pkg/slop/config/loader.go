package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cognicore/slopfx/pkg/slop/analytics"
	"github.com/cognicore/slopfx/pkg/slop/baseline"
	"github.com/cognicore/slopfx/pkg/slop/canon"
	"github.com/cognicore/slopfx/pkg/slop/ingest"
	"github.com/cognicore/slopfx/pkg/slop/phylo"
	"github.com/cognicore/slopfx/pkg/slop/profile"
	"github.com/cognicore/slopfx/pkg/slop/store"
	"github.com/cognicore/slopfx/pkg/slop/store/memstore"
	"github.com/cognicore/slopfx/pkg/slop/store/sqlite"
)

// Loader loads all configuration files and constructs components
type Loader struct {
	Config Config
	Clock  func() time.Time // passed to the profiler; nil uses time.Now
}

// Components holds all loaded configuration components
type Components struct {
	Tokenizer *ingest.Tokenizer
	Baseline  baseline.Baseline
	Profiler  *profile.Profiler
	Canon     canon.Options
	Phylo     *phylo.Options // nil when tree building is disabled
	Workers   int
	Store     store.Store // nil when persistence is disabled; caller closes
}

// Load reads every referenced file and returns initialized components
func (l *Loader) Load(ctx context.Context) (*Components, error) {
	cfg := l.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	comp := &Components{Canon: cfg.Canon, Workers: cfg.Workers}

	stopwords := append([]string(nil), cfg.Profile.Stopwords...)
	if cfg.Profile.Stoplist != "" {
		stoplist, err := LoadStoplist(cfg.Profile.Stoplist)
		if err != nil {
			return nil, fmt.Errorf("load stoplist: %w", err)
		}
		stopwords = append(stopwords, stoplist.Terms...)
	}
	comp.Tokenizer = ingest.NewTokenizer(ingest.TokenizerOptions{
		Stopwords:         stopwords,
		MinLength:         cfg.Profile.MinLength,
		DropNumeric:       cfg.Profile.DropNumeric,
		SplitContractions: cfg.Profile.SplitContractions,
	})

	switch {
	case cfg.Profile.Baseline != "":
		table, err := LoadBaseline(cfg.Profile.Baseline)
		if err != nil {
			return nil, fmt.Errorf("load baseline: %w", err)
		}
		comp.Baseline = table
	case cfg.Profile.BaselineCorpus != "":
		table, err := corpusBaseline(cfg.Profile.BaselineCorpus, comp.Tokenizer, cfg.Profile.BaselineSmoothing)
		if err != nil {
			return nil, fmt.Errorf("load baseline corpus: %w", err)
		}
		comp.Baseline = table
	default:
		comp.Baseline = baseline.Uniform{}
	}

	comp.Profiler = profile.New(profile.Options{
		Tokenizer: comp.Tokenizer,
		Baseline:  comp.Baseline,
		Combiner:  cfg.Score,
		TopK:      cfg.Profile.TopK,
		MinCount:  cfg.Profile.MinCount,
		Clock:     l.Clock,
	})

	if cfg.Phylo.Enabled {
		opts := phylo.Options{
			TopNFeatures: cfg.Phylo.TopNFeatures,
			Distance:     phylo.Distance(cfg.Phylo.Distance),
			Linkage:      phylo.Linkage(cfg.Phylo.Linkage),
			Features:     phylo.FeatureMode(cfg.Phylo.Features),
		}
		if len(cfg.Phylo.Ignore) > 0 {
			opts.Ignore = make(map[string]struct{}, len(cfg.Phylo.Ignore))
			for _, name := range cfg.Phylo.Ignore {
				opts.Ignore[name] = struct{}{}
			}
		}
		comp.Phylo = &opts
	}

	switch cfg.Store.Driver {
	case "memory":
		comp.Store = memstore.New()
	case "sqlite":
		st, err := sqlite.OpenSQLite(ctx, cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		comp.Store = st
	}

	return comp, nil
}

// corpusBaseline counts a plain-text reference corpus with the same
// tokenizer used for profiling.
func corpusBaseline(path string, tok *ingest.Tokenizer, smoothing float64) (*baseline.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	counter := analytics.NewCounter()
	for _, sentence := range ingest.SplitSentences(string(data)) {
		counter.Process(sentence, tok.Analyze(sentence))
	}
	return baseline.FromCorpus([]analytics.Stats{counter.Snapshot()}, smoothing), nil
}
