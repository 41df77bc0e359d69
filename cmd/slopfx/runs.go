package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cognicore/slopfx/pkg/slop/store"
	"github.com/cognicore/slopfx/pkg/slop/store/sqlite"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List analysis runs stored in a SQLite database",
	RunE:  runRuns,
}

var (
	runsDB    string
	runsLimit int
	runsShow  string
)

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().StringVar(&runsDB, "db", "slopfx.db", "SQLite database")
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "l", 20, "Maximum runs to list (0 = all)")
	runsCmd.Flags().StringVar(&runsShow, "show", "", "Show the sources of one run")
}

func runRuns(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	st, err := sqlite.OpenSQLite(ctx, runsDB)
	if err != nil {
		return err
	}
	defer st.Close()

	out := cmd.OutOrStdout()
	if runsShow != "" {
		run, err := st.GetRun(ctx, runsShow)
		if err != nil {
			return err
		}
		renderRuns(out, []store.RunInfo{run.Info()})
		fmt.Fprintln(out)
		for _, src := range run.Sources {
			if !src.OK() {
				fmt.Fprintf(out, "%s %s: %s\n", styles.Error.Render("✗"), src.Name, src.Error)
				continue
			}
			fmt.Fprintf(out, "%s %s  slop %.3f\n", styles.Model.Render("●"), src.Name, src.Fingerprint.SlopScore)
		}
		if run.Newick != "" {
			fmt.Fprintf(out, "\n%s\n", styles.Dim.Render(run.Newick))
		}
		return nil
	}

	infos, err := st.ListRuns(ctx, runsLimit)
	if err != nil {
		return err
	}
	renderRuns(out, infos)
	return nil
}
