package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cognicore/slopfx/pkg/slop/fingerprint"
	"github.com/cognicore/slopfx/pkg/slop/phylo"
	"github.com/cognicore/slopfx/pkg/slop/store/sqlite"
)

var treeCmd = &cobra.Command{
	Use:   "tree [profile.json...]",
	Short: "Rebuild a similarity tree from stored fingerprints",
	Long: `Tree clusters fingerprints written by "analyze --out" (the
analysis/slop_profile__<model>.json files) or those of a run stored with
--db. Tree options can be varied without profiling again.`,
	RunE: runTree,
}

var (
	treeDB       string
	treeRun      string
	treeTopN     int
	treeDistance string
	treeLinkage  string
	treeFeatures string
	treeIgnore   []string
	treeNewick   string
)

func init() {
	rootCmd.AddCommand(treeCmd)
	treeCmd.Flags().StringVar(&treeDB, "db", "", "SQLite database holding the run")
	treeCmd.Flags().StringVar(&treeRun, "run", "", "Run ID to load from --db")
	treeCmd.Flags().IntVarP(&treeTopN, "top-n", "n", phylo.DefaultTopNFeatures, "Feature words (0 = all)")
	treeCmd.Flags().StringVar(&treeDistance, "distance", string(phylo.Euclidean), "euclidean or cosine")
	treeCmd.Flags().StringVar(&treeLinkage, "linkage", string(phylo.Average), "average, single or complete")
	treeCmd.Flags().StringVar(&treeFeatures, "features", string(phylo.FeaturesGlobal), "global or per_source")
	treeCmd.Flags().StringSliceVar(&treeIgnore, "ignore", nil, "Models to leave out")
	treeCmd.Flags().StringVar(&treeNewick, "newick", "", "Also write the Newick string to this file")
}

func runTree(cmd *cobra.Command, args []string) error {
	fps, err := treeInputs(cmd.Context(), args)
	if err != nil {
		return err
	}

	opts := phylo.Options{
		TopNFeatures: treeTopN,
		Distance:     phylo.Distance(treeDistance),
		Linkage:      phylo.Linkage(treeLinkage),
		Features:     phylo.FeatureMode(treeFeatures),
	}
	if len(treeIgnore) > 0 {
		opts.Ignore = make(map[string]struct{}, len(treeIgnore))
		for _, name := range treeIgnore {
			opts.Ignore[name] = struct{}{}
		}
	}

	tree, err := phylo.BuildTree(fps, opts)
	if err != nil {
		return err
	}
	renderTree(cmd.OutOrStdout(), tree)

	if treeNewick != "" {
		if err := os.WriteFile(treeNewick, []byte(tree.Newick()+"\n"), 0644); err != nil {
			return err
		}
	}
	return nil
}

func treeInputs(ctx context.Context, paths []string) (map[string]fingerprint.Fingerprint, error) {
	if treeRun != "" {
		if treeDB == "" {
			return nil, fmt.Errorf("--run requires --db")
		}
		st, err := sqlite.OpenSQLite(ctx, treeDB)
		if err != nil {
			return nil, err
		}
		defer st.Close()
		run, err := st.GetRun(ctx, treeRun)
		if err != nil {
			return nil, err
		}
		return run.Fingerprints(), nil
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("give fingerprint files or --db with --run")
	}
	fps := make(map[string]fingerprint.Fingerprint, len(paths))
	for _, path := range paths {
		fp, err := readFingerprint(path)
		if err != nil {
			return nil, err
		}
		name := fp.Model
		if name == "" {
			name = strings.TrimPrefix(strings.TrimSuffix(filepath.Base(path), ".json"), "slop_profile__")
		}
		if _, dup := fps[name]; dup {
			return nil, fmt.Errorf("model %q appears in more than one file", name)
		}
		fps[name] = fp
	}
	return fps, nil
}

func readFingerprint(path string) (fingerprint.Fingerprint, error) {
	f, err := os.Open(path)
	if err != nil {
		return fingerprint.Fingerprint{}, err
	}
	defer f.Close()

	fp, err := fingerprint.Decode(f)
	if err != nil {
		return fingerprint.Fingerprint{}, fmt.Errorf("%s: %w", path, err)
	}
	return fp, nil
}
