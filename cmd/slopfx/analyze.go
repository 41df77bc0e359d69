package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cognicore/slopfx/internal/dataset"
	"github.com/cognicore/slopfx/internal/output"
	"github.com/cognicore/slopfx/pkg/slop"
	"github.com/cognicore/slopfx/pkg/slop/config"
	"github.com/cognicore/slopfx/pkg/slop/summary"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [files...]",
	Short: "Profile models and build slop lists and a similarity tree",
	Long: `Analyze reads generated text and reports the vocabulary each model
overuses.

Inputs may be JSONL datasets (one {"model","output"} object per line; rows
without a model are named after the file), plain-text files or HTML pages.
Text and HTML files are split into sentences and named after the file unless
--model is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

var (
	analyzeConfig      string
	analyzeOut         string
	analyzeDB          string
	analyzeWorkers     int
	analyzeNoPhylogeny bool
	analyzeIgnore      []string
	analyzeModel       string
	analyzeSplit       bool
	analyzeMarkdown    bool
)

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&analyzeConfig, "config", "c", "", "YAML configuration file")
	analyzeCmd.Flags().StringVarP(&analyzeOut, "out", "o", "", "Directory for datasets, profiles, slop lists and tree files")
	analyzeCmd.Flags().StringVar(&analyzeDB, "db", "", "SQLite database to store the run in")
	analyzeCmd.Flags().IntVarP(&analyzeWorkers, "workers", "w", 0, "Concurrent profiling workers (0 = one per CPU)")
	analyzeCmd.Flags().BoolVar(&analyzeNoPhylogeny, "no-phylogeny", false, "Skip building the similarity tree")
	analyzeCmd.Flags().StringSliceVar(&analyzeIgnore, "ignore", nil, "Models to leave out of the tree")
	analyzeCmd.Flags().StringVarP(&analyzeModel, "model", "m", "", "Model name for text and HTML inputs")
	analyzeCmd.Flags().BoolVar(&analyzeSplit, "split", false, "Split JSONL outputs into sentences")
	analyzeCmd.Flags().BoolVar(&analyzeMarkdown, "markdown", false, "Print the full summary as rendered Markdown")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := analyzeSettings(cmd)
	if err != nil {
		return err
	}

	items, err := loadInputs(args, analyzeModel)
	if err != nil {
		return err
	}
	sources := dataset.Group(items, analyzeSplit)

	comp, err := (&config.Loader{Config: cfg}).Load(ctx)
	if err != nil {
		return err
	}
	engine := slop.FromComponents(comp, logger())
	defer engine.Close()

	report, err := engine.Analyze(ctx, sources)
	if err != nil {
		return err
	}
	sum := summary.Build(report)

	out := cmd.OutOrStdout()
	if analyzeMarkdown {
		renderMarkdown(out, sum.Markdown())
	} else {
		renderMetrics(out, sum)
		if report.Tree != nil {
			renderTree(out, report.Tree)
		} else if report.TreeErr != nil {
			fmt.Fprintf(out, "\n%s %v\n", styles.Dim.Render("no tree:"), report.TreeErr)
		}
	}

	if analyzeOut != "" {
		if err := writeOutputs(analyzeOut, items, report, sum); err != nil {
			return err
		}
		fmt.Fprintf(out, "\nResults written to %s\n", analyzeOut)
	}
	if engine.Store() != nil {
		fmt.Fprintf(out, "Run stored as %s\n", report.RunID)
	}
	return nil
}

// analyzeSettings loads the config file and applies command-line overrides.
func analyzeSettings(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if analyzeConfig != "" {
		var err error
		if cfg, err = config.Load(analyzeConfig); err != nil {
			return config.Config{}, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Workers = analyzeWorkers
	}
	if flags.Changed("db") {
		cfg.Store = config.StoreConfig{Driver: "sqlite", Path: analyzeDB}
	}
	if analyzeNoPhylogeny {
		cfg.Phylo.Enabled = false
	}
	if len(analyzeIgnore) > 0 {
		cfg.Phylo.Ignore = append(cfg.Phylo.Ignore, analyzeIgnore...)
	}
	return cfg, cfg.Validate()
}

// loadInputs reads every input file into dataset items.
func loadInputs(paths []string, model string) ([]dataset.Item, error) {
	var items []dataset.Item
	for _, path := range paths {
		if strings.EqualFold(filepath.Ext(path), ".jsonl") {
			loaded, err := dataset.LoadFromJSONL(path, dataset.ModelFromPath(path))
			if err != nil {
				return nil, err
			}
			items = append(items, loaded...)
			continue
		}

		src, err := dataset.LoadDocument(path, model)
		if err != nil {
			return nil, err
		}
		if len(src.Sentences) == 0 {
			return nil, fmt.Errorf("no sentences found in %s", path)
		}
		items = append(items, dataset.FromSentences(src.Name, src.Sentences)...)
	}
	return items, nil
}

func writeOutputs(dir string, items []dataset.Item, report *slop.Report, sum summary.Summary) error {
	w, err := output.New(dir)
	if err != nil {
		return err
	}

	byModel := make(map[string][]dataset.Item)
	var models []string
	for _, item := range items {
		if _, ok := byModel[item.Model]; !ok {
			models = append(models, item.Model)
		}
		byModel[item.Model] = append(byModel[item.Model], item)
	}
	for _, model := range models {
		if _, err := w.WriteDataset(model, byModel[model]); err != nil {
			return err
		}
	}

	_, err = w.WriteReport(report, sum)
	return err
}
