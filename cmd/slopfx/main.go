package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "slopfx",
	Short: "Find over-represented vocabulary in generated text",
	Long: `slopfx profiles text from one or more models, ranks the words and
phrases each model overuses, merges them into canonical slop lists and
clusters the models by stylistic similarity.

Pipeline: profile → canonicalize → tree`,
	SilenceUsage: true,
}

var verbose bool

func init() {
	rootCmd.Version = "0.1.0"
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline progress to stderr")
}

func logger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
