package slop

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/slopfx/pkg/slop/config"
	"github.com/cognicore/slopfx/pkg/slop/internalerr"
	"github.com/cognicore/slopfx/pkg/slop/phylo"
	"github.com/cognicore/slopfx/pkg/slop/profile"
	"github.com/cognicore/slopfx/pkg/slop/store/memstore"
)

var fixedTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedTime }

func testSources() []profile.Source {
	return []profile.Source{
		{Name: "model-a", Sentences: []string{
			"Let us delve into the rich tapestry of ideas.",
			"We delve deeper into the tapestry.",
		}},
		{Name: "model-b", Sentences: []string{
			"A shiver ran down her spine.",
			"The whisper sent a shiver down the hall.",
		}},
		{Name: "model-c", Sentences: []string{
			"They delve into a tapestry of whispers.",
			"A testament to the tapestry of time.",
		}},
	}
}

func newTestEngine(opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = fixedClock
	}
	if opts.Profiler == nil {
		opts.Profiler = profile.New(profile.Options{Clock: opts.Clock})
	}
	return New(opts)
}

func TestAnalyzeFullPipeline(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	e := newTestEngine(Options{Store: st, Phylo: &phylo.Options{TopNFeatures: 10}, Workers: 2})
	defer e.Close()

	report, err := e.Analyze(ctx, testSources())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if _, err := ulid.Parse(report.RunID); err != nil {
		t.Errorf("run id %q is not a ulid: %v", report.RunID, err)
	}
	if !report.CreatedAt.Equal(fixedTime) {
		t.Errorf("created at: %v", report.CreatedAt)
	}
	if report.Batch.Succeeded() != 3 {
		t.Fatalf("expected 3 profiled sources: %v", report.Batch.Err())
	}
	if report.Lists == nil || report.ListsErr != nil {
		t.Fatalf("lists missing: %v", report.ListsErr)
	}
	if report.Tree == nil || report.TreeErr != nil {
		t.Fatalf("tree missing: %v", report.TreeErr)
	}
	if len(report.Tree.Leaves) != 3 {
		t.Errorf("leaves: %v", report.Tree.Leaves)
	}

	for _, w := range report.Lists.Words {
		if w.Term == "the" && w.Sources == 3 {
			t.Error("a word ranked by every source must not be canonical")
		}
	}

	run, err := st.GetRun(ctx, report.RunID)
	if err != nil {
		t.Fatalf("run not stored: %v", err)
	}
	if len(run.Sources) != 3 || run.Newick != report.Tree.Newick() || run.TreeJSON == "" {
		t.Errorf("unexpected stored run: %+v", run.Info())
	}
	if len(run.Fingerprints()) != 3 {
		t.Error("stored run should carry every fingerprint")
	}
}

func TestAnalyzePartialFailure(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	e := newTestEngine(Options{Store: st, Phylo: &phylo.Options{}})

	sources := append(testSources(),
		profile.Source{Name: "silent", Sentences: []string{"...", "!!"}},
		profile.Source{Name: "model-a", Sentences: []string{"duplicate name"}},
	)
	report, err := e.Analyze(ctx, sources)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	failed := report.Batch.Failed()
	if len(failed) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(failed))
	}
	if !errors.Is(failed[0].Err, internalerr.ErrEmptyInput) || !errors.Is(failed[1].Err, internalerr.ErrDuplicate) {
		t.Errorf("unexpected failures: %v", report.Batch.Err())
	}
	if len(report.Tree.Leaves) != 3 {
		t.Errorf("failed sources must not appear in the tree: %v", report.Tree.Leaves)
	}

	run, err := st.GetRun(ctx, report.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if info := run.Info(); info.Sources != 4 || info.Failed != 1 {
		t.Errorf("stored run: %+v", info)
	}
}

func TestAnalyzeSingleSource(t *testing.T) {
	e := newTestEngine(Options{Phylo: &phylo.Options{}})

	src := testSources()[:1]
	report, err := e.Analyze(context.Background(), src)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if report.Tree != nil || !errors.Is(report.TreeErr, internalerr.ErrInsufficientSources) {
		t.Errorf("expected insufficient sources, got tree=%v err=%v", report.Tree, report.TreeErr)
	}

	fp := report.Fingerprints()["model-a"]
	if len(report.Lists.Words) != len(fp.TopRepetitiveWords) {
		t.Fatalf("single source lists should match its ranking")
	}
	for i, w := range fp.TopRepetitiveWords {
		if report.Lists.Words[i].Term != w.Word {
			t.Errorf("position %d: got %q, want %q", i, report.Lists.Words[i].Term, w.Word)
		}
	}
}

func TestAnalyzeWithoutTree(t *testing.T) {
	e := newTestEngine(Options{})
	report, err := e.Analyze(context.Background(), testSources())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.Tree != nil || report.TreeErr != nil {
		t.Errorf("tree stage should be skipped: %v %v", report.Tree, report.TreeErr)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	e := newTestEngine(Options{})

	if _, err := e.Analyze(context.Background(), nil); !errors.Is(err, internalerr.ErrEmptyInput) {
		t.Errorf("no sources: expected ErrEmptyInput, got %v", err)
	}

	empty := []profile.Source{{Name: "a"}, {Name: "b", Sentences: []string{"   "}}}
	if _, err := e.Analyze(context.Background(), empty); !errors.Is(err, internalerr.ErrEmptyInput) {
		t.Errorf("nothing profiled: expected ErrEmptyInput, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Analyze(ctx, testSources()); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled: expected context.Canceled, got %v", err)
	}
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	opts := Options{Phylo: &phylo.Options{}, Workers: 3}
	first, err := newTestEngine(opts).Analyze(context.Background(), testSources())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	reversed := testSources()
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	second, err := newTestEngine(opts).Analyze(context.Background(), reversed)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if first.Tree.Newick() != second.Tree.Newick() {
		t.Errorf("tree depends on input order:\n%s\n%s", first.Tree.Newick(), second.Tree.Newick())
	}
	if len(first.Lists.Words) != len(second.Lists.Words) {
		t.Fatal("lists depend on input order")
	}
	for i := range first.Lists.Words {
		if first.Lists.Words[i] != second.Lists.Words[i] {
			t.Errorf("word %d: %+v vs %+v", i, first.Lists.Words[i], second.Lists.Words[i])
		}
	}
}

func TestAnalyzeLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e := newTestEngine(Options{Logger: logger})

	report, err := e.Analyze(context.Background(), append(testSources(), profile.Source{Name: "empty"}))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	out := buf.String()
	for _, want := range []string{`"msg":"analysis complete"`, `"msg":"source not profiled"`, `"source":"empty"`, report.RunID} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %s:\n%s", want, out)
		}
	}
}

func TestFromComponents(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = "memory"
	comp, err := (&config.Loader{Config: cfg, Clock: fixedClock}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	e := FromComponents(comp, nil)
	defer e.Close()

	report, err := e.Analyze(context.Background(), testSources())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.Tree == nil {
		t.Errorf("default config builds a tree: %v", report.TreeErr)
	}
	runs, err := e.Store().ListRuns(context.Background(), 0)
	if err != nil || len(runs) != 1 || runs[0].ID != report.RunID {
		t.Errorf("run not persisted: %v %v", runs, err)
	}
}
