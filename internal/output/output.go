package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cognicore/slopfx/internal/dataset"
	"github.com/cognicore/slopfx/pkg/slop"
	"github.com/cognicore/slopfx/pkg/slop/fingerprint"
	"github.com/cognicore/slopfx/pkg/slop/summary"
)

// Directory layout below the output root.
const (
	DatasetsDir  = "datasets"
	AnalysisDir  = "analysis"
	SlopListsDir = "slop_lists"
	PhylogenyDir = "phylogeny"
)

// Writer lays out analysis artifacts below Dir.
type Writer struct {
	Dir string
}

// Paths lists the files written for one report.
type Paths struct {
	Datasets        []string          `json:"datasets,omitempty"`
	Analysis        map[string]string `json:"analysis"`
	CombinedMetrics string            `json:"combined_metrics"`
	SlopLists       []string          `json:"slop_lists,omitempty"`
	Newick          string            `json:"newick,omitempty"`
	TreeJSON        string            `json:"tree_json,omitempty"`
	Summary         string            `json:"summary"`
	SummaryMarkdown string            `json:"summary_markdown"`
}

// New creates the output directories.
func New(dir string) (*Writer, error) {
	for _, sub := range []string{DatasetsDir, AnalysisDir, SlopListsDir, PhylogenyDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	return &Writer{Dir: dir}, nil
}

// WriteDataset stores the items of one model as datasets/generated_<model>.jsonl.
func (w *Writer) WriteDataset(model string, items []dataset.Item) (string, error) {
	path := filepath.Join(w.Dir, DatasetsDir, "generated_"+SanitizeFilename(model)+".jsonl")
	if err := dataset.WriteJSONL(path, items); err != nil {
		return "", err
	}
	return path, nil
}

// WriteReport writes per-model fingerprints, the combined metrics, the slop
// lists, the tree and the summary. Stages that did not produce output are
// skipped.
func (w *Writer) WriteReport(r *slop.Report, s summary.Summary) (Paths, error) {
	paths := Paths{Analysis: make(map[string]string)}

	fps := r.Fingerprints()
	for _, name := range fingerprint.SortedNames(fps) {
		path := filepath.Join(w.Dir, AnalysisDir, "slop_profile__"+SanitizeFilename(name)+".json")
		if err := writeJSON(path, fps[name]); err != nil {
			return paths, err
		}
		paths.Analysis[name] = path
	}

	paths.CombinedMetrics = filepath.Join(w.Dir, "combined_metrics.json")
	if err := writeJSON(paths.CombinedMetrics, fps); err != nil {
		return paths, err
	}

	if r.Lists != nil {
		lists := []struct {
			name string
			v    any
		}{
			{"slop_list.json", r.Lists.WordList()},
			{"slop_list_bigrams.json", r.Lists.BigramList()},
			{"slop_list_trigrams.json", r.Lists.TrigramList()},
			{"slop_lists_scored.json", r.Lists},
		}
		for _, l := range lists {
			path := filepath.Join(w.Dir, SlopListsDir, l.name)
			if err := writeJSON(path, l.v); err != nil {
				return paths, err
			}
			paths.SlopLists = append(paths.SlopLists, path)
		}
	}

	if r.Tree != nil {
		paths.Newick = filepath.Join(w.Dir, PhylogenyDir, "tree.nwk")
		if err := os.WriteFile(paths.Newick, []byte(r.Tree.Newick()+"\n"), 0644); err != nil {
			return paths, err
		}
		paths.TreeJSON = filepath.Join(w.Dir, PhylogenyDir, "tree.json")
		if err := writeJSON(paths.TreeJSON, r.Tree); err != nil {
			return paths, err
		}
	}

	paths.Summary = filepath.Join(w.Dir, "analysis_summary.json")
	if err := writeJSON(paths.Summary, s); err != nil {
		return paths, err
	}
	paths.SummaryMarkdown = filepath.Join(w.Dir, "analysis_summary.md")
	if err := os.WriteFile(paths.SummaryMarkdown, []byte(s.Markdown()), 0644); err != nil {
		return paths, err
	}
	return paths, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// SanitizeFilename maps a model name to a safe file name component. Runs of
// characters other than letters, digits, '-', '_' and '.' become one '_'.
func SanitizeFilename(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range name {
		ok := r == '-' || r == '_' || r == '.' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if ok {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unnamed"
	}
	return out
}
