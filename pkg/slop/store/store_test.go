package store

import (
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/slopfx/pkg/slop/internalerr"
)

func TestIDGeneratorSortsByTime(t *testing.T) {
	gen := NewIDGenerator()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	prev := ""
	for i := 0; i < 50; i++ {
		// Several IDs share a millisecond; monotonic entropy keeps them ordered.
		id := gen.New(base.Add(time.Duration(i/10) * time.Millisecond))
		if _, err := ulid.Parse(id); err != nil {
			t.Fatalf("invalid ulid %q: %v", id, err)
		}
		if id <= prev {
			t.Fatalf("id %s not after %s", id, prev)
		}
		prev = id
	}

	parsed := ulid.MustParse(prev)
	if got := ulid.Time(parsed.Time()); !got.Equal(base.Add(4 * time.Millisecond)) {
		t.Errorf("embedded time: got %v", got)
	}
}

func TestRunValidate(t *testing.T) {
	tests := []struct {
		name string
		run  Run
		want error
	}{
		{"ok", Run{ID: "r1", Sources: []SourceRecord{{Name: "a"}, {Name: "b"}}}, nil},
		{"missing id", Run{}, internalerr.ErrInvalidConfig},
		{"unnamed source", Run{ID: "r1", Sources: []SourceRecord{{}}}, internalerr.ErrInvalidConfig},
		{"duplicate source", Run{ID: "r1", Sources: []SourceRecord{{Name: "a"}, {Name: "a"}}}, internalerr.ErrDuplicate},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run.Validate()
			if tc.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestRunInfoAndFingerprints(t *testing.T) {
	r := Run{
		ID:     "r1",
		Newick: "(a:1,b:1);",
		Sources: []SourceRecord{
			{Name: "a"},
			{Name: "b"},
			{Name: "c", Error: "empty input"},
		},
	}

	info := r.Info()
	if info.Sources != 3 || info.Failed != 1 || !info.HasTree {
		t.Errorf("unexpected info: %+v", info)
	}

	fps := r.Fingerprints()
	if len(fps) != 2 {
		t.Errorf("expected 2 fingerprints, got %d", len(fps))
	}
	if _, ok := fps["c"]; ok {
		t.Error("failed source should not have a fingerprint")
	}
}

func TestSortInfos(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	infos := []RunInfo{
		{ID: "A", CreatedAt: t0},
		{ID: "C", CreatedAt: t0.Add(time.Hour)},
		{ID: "B", CreatedAt: t0},
	}
	SortInfos(infos)

	want := []string{"C", "B", "A"}
	for i, id := range want {
		if infos[i].ID != id {
			t.Fatalf("position %d: got %s, want %s", i, infos[i].ID, id)
		}
	}
}
