package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/cognicore/slopfx/pkg/slop/canon"
	"github.com/cognicore/slopfx/pkg/slop/fingerprint"
	"github.com/cognicore/slopfx/pkg/slop/internalerr"
	"github.com/cognicore/slopfx/pkg/slop/store"
)

func sampleRun(id string, at time.Time) store.Run {
	return store.Run{
		ID:        id,
		CreatedAt: at,
		Sources: []store.SourceRecord{
			{Name: "zeta", Fingerprint: fingerprint.Fingerprint{
				Model:              "zeta",
				NumSentences:       2,
				TotalTokens:        6,
				UniqueTokens:       4,
				AvgLength:          11,
				VocabComplexity:    0.6666666666666666,
				RepetitionScore:    1.25,
				SlopScore:          1.5833333333333335,
				TopRepetitiveWords: []fingerprint.WordScore{{Word: "delve", Score: 3, Count: 2}, {Word: "tapestry", Score: 1.5, Count: 1}},
				TopBigrams:         []fingerprint.NGramScore{{NGram: "rich tapestry", Score: 2, Count: 1}},
				TopTrigrams:        []fingerprint.NGramScore{},
				AnalysisTimestamp:  at,
			}},
			{Name: "alpha", Error: "empty input: source \"alpha\" has no tokens"},
		},
		Lists: &canon.SlopLists{
			Words:    []canon.Term{{Term: "delve", Score: 3, Sources: 1}},
			Bigrams:  []canon.Term{{Term: "rich tapestry", Score: 2, Sources: 1}},
			Trigrams: []canon.Term{},
			Generic:  map[int][]string{1: {"the"}},
		},
		Newick:   "(alpha:1,zeta:1);",
		TreeJSON: `{"root":{}}`,
	}
}

func openTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	at := time.Date(2025, 6, 1, 8, 30, 0, 123456789, time.UTC)
	run := sampleRun("01J0000000000000000000000A", at)
	if err := st.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := st.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}

	if !got.CreatedAt.Equal(at) {
		t.Errorf("created_at: got %v, want %v", got.CreatedAt, at)
	}
	if got.Newick != run.Newick || got.TreeJSON != run.TreeJSON {
		t.Errorf("tree not preserved: %q %q", got.Newick, got.TreeJSON)
	}
	if !reflect.DeepEqual(got.Lists, run.Lists) {
		t.Errorf("lists: got %+v, want %+v", got.Lists, run.Lists)
	}

	if len(got.Sources) != 2 || got.Sources[0].Name != "zeta" || got.Sources[1].Name != "alpha" {
		t.Fatalf("sources not in input order: %+v", got.Sources)
	}
	fp := got.Sources[0].Fingerprint
	if err := fp.Validate(); err != nil {
		t.Errorf("stored fingerprint invalid: %v", err)
	}
	want := run.Sources[0].Fingerprint
	if !fp.AnalysisTimestamp.Equal(want.AnalysisTimestamp) {
		t.Errorf("timestamp: got %v", fp.AnalysisTimestamp)
	}
	fp.AnalysisTimestamp, want.AnalysisTimestamp = time.Time{}, time.Time{}
	if !reflect.DeepEqual(fp, want) {
		t.Errorf("fingerprint: got %+v, want %+v", fp, want)
	}
	if got.Sources[1].OK() || got.Sources[1].Error != run.Sources[1].Error {
		t.Errorf("failure not preserved: %+v", got.Sources[1])
	}
}

func TestSQLiteWithoutListsOrTree(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	run := sampleRun("r-bare", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	run.Lists = nil
	run.Newick = ""
	run.TreeJSON = ""
	if err := st.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := st.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Lists != nil {
		t.Errorf("expected nil lists, got %+v", got.Lists)
	}
	if got.Info().HasTree {
		t.Error("run without newick should report no tree")
	}
}

func TestSQLiteErrors(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	run := sampleRun("r1", time.Now())
	if err := st.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if err := st.SaveRun(ctx, run); !errors.Is(err, internalerr.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
	if _, err := st.GetRun(ctx, "nope"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := st.SaveRun(ctx, store.Run{}); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestSQLiteListRuns(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	times := []time.Time{t0, t0.Add(1500 * time.Millisecond), t0.Add(time.Second)}
	for i, id := range []string{"r1", "r2", "r3"} {
		run := sampleRun(id, times[i])
		if id == "r3" {
			run.Newick = ""
		}
		if err := st.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun %s: %v", id, err)
		}
	}

	infos, err := st.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	var ids []string
	for _, info := range infos {
		ids = append(ids, info.ID)
	}
	if !reflect.DeepEqual(ids, []string{"r2", "r3", "r1"}) {
		t.Fatalf("unexpected order: %v", ids)
	}
	if infos[0].Sources != 2 || infos[0].Failed != 1 || !infos[0].HasTree {
		t.Errorf("unexpected header: %+v", infos[0])
	}
	if infos[1].HasTree {
		t.Errorf("r3 has no tree: %+v", infos[1])
	}

	limited, err := st.ListRuns(ctx, 1)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "r2" {
		t.Errorf("limit not applied: %+v", limited)
	}
}

func TestSQLiteReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	st, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := st.SaveRun(ctx, sampleRun("persisted", time.Now())); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	st.Close()

	st, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()
	if _, err := st.GetRun(ctx, "persisted"); err != nil {
		t.Errorf("run lost after reopen: %v", err)
	}
}
