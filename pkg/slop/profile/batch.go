package profile

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/cognicore/slopfx/pkg/slop/fingerprint"
	"github.com/cognicore/slopfx/pkg/slop/internalerr"
)

// Result is the outcome of profiling one source.
type Result struct {
	Source      string
	Fingerprint fingerprint.Fingerprint
	Err         error
}

// OK reports whether the source was profiled successfully.
func (r Result) OK() bool { return r.Err == nil }

// Batch collects per-source results in input order. The caller decides
// whether partial failure is acceptable.
type Batch struct {
	Results []Result
}

// Fingerprints returns the successful fingerprints keyed by source name.
func (b Batch) Fingerprints() map[string]fingerprint.Fingerprint {
	out := make(map[string]fingerprint.Fingerprint, len(b.Results))
	for _, r := range b.Results {
		if r.OK() {
			out[r.Source] = r.Fingerprint
		}
	}
	return out
}

// Failed returns the results that carry an error.
func (b Batch) Failed() []Result {
	var out []Result
	for _, r := range b.Results {
		if !r.OK() {
			out = append(out, r)
		}
	}
	return out
}

// Succeeded returns the number of successfully profiled sources.
func (b Batch) Succeeded() int {
	n := 0
	for _, r := range b.Results {
		if r.OK() {
			n++
		}
	}
	return n
}

// Err joins every per-source failure, or returns nil when all succeeded.
func (b Batch) Err() error {
	var errs []error
	for _, r := range b.Failed() {
		errs = append(errs, fmt.Errorf("source %q: %w", r.Source, r.Err))
	}
	return errors.Join(errs...)
}

// ProfileAll profiles independent sources concurrently with at most workers
// goroutines (GOMAXPROCS when workers <= 0). Duplicate source names fail with
// internalerr.ErrDuplicate; sources not yet started when ctx is cancelled fail
// with the context error.
func (p *Profiler) ProfileAll(ctx context.Context, sources []Source, workers int) Batch {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]Result, len(sources))
	seen := make(map[string]struct{}, len(sources))

	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)

	for i, src := range sources {
		results[i].Source = src.Name

		if err := src.Validate(); err != nil {
			results[i].Err = err
			continue
		}
		if _, dup := seen[src.Name]; dup {
			results[i].Err = fmt.Errorf("%w: source %q", internalerr.ErrDuplicate, src.Name)
			continue
		}
		seen[src.Name] = struct{}{}

		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		select {
		case <-ctx.Done():
			results[i].Err = ctx.Err()
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			defer func() { <-sem }()

			fp, err := p.Profile(src)
			results[i].Fingerprint = fp
			results[i].Err = err
		}(i, src)
	}

	wg.Wait()
	return Batch{Results: results}
}
