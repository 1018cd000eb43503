package cmd

import (
	"context"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"restaurant-rank/adapters/storage"
	"restaurant-rank/core/output"
	"restaurant-rank/internal/config"
)

var (
	historySource string
	historyLimit  int
	historyFormat string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect stored ranking runs",
	Long: `Stored runs are written by "rank --save" or when history is enabled in
the configuration. The backend (file, sqlite, memory) comes from the
configuration.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored runs, newest first",
	Args:  cobra.NoArgs,
	RunE: withHistory(func(ctx context.Context, cmd *cobra.Command, store storage.Store, args []string) error {
		runs, err := store.List(ctx, &storage.ListFilter{Source: historySource, Limit: historyLimit})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs stored.")
			return nil
		}
		fmt.Fprintf(out, "%-36s  %-20s  %-10s  %-24s  %7s  %8s\n", "ID", "CREATED", "PROFILE", "SOURCE", "RECORDS", "MEAN")
		for _, run := range runs {
			count, mean := 0, 0.0
			if run.Report != nil {
				count, mean = run.Report.Summary.Count, run.Report.Summary.Mean
			}
			fmt.Fprintf(out, "%-36s  %-20s  %-10s  %-24s  %7d  %8.2f\n",
				run.ID, run.CreatedAt.Local().Format(time.DateTime), run.Profile, truncate(run.Source, 24), count, mean)
		}
		return nil
	}),
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a stored run",
	Args:  cobra.ExactArgs(1),
	RunE: withHistory(func(ctx context.Context, cmd *cobra.Command, store storage.Store, args []string) error {
		run, err := store.Get(ctx, args[0])
		if err != nil {
			return err
		}
		if run.Report == nil {
			return fmt.Errorf("run %s has no report", run.ID)
		}

		cfg := config.Get()
		format := historyFormat
		if format == "" {
			format = cfg.Output.DefaultFormat
		}
		registry := output.NewDefaultRegistry(outputOptions(cfg, cfg.Output.Precision))
		formatter, ok := registry.Get(output.Format(format))
		if !ok {
			return fmt.Errorf("unsupported format: %s (available: %v)", format, registry.Formats())
		}
		return formatter.Render(cmd.OutOrStdout(), run.Report)
	}),
}

var historyCompareCmd = &cobra.Command{
	Use:   "compare <old-id> <new-id>",
	Short: "Compare the rankings of two runs",
	Args:  cobra.ExactArgs(2),
	RunE: withHistory(func(ctx context.Context, cmd *cobra.Command, store storage.Store, args []string) error {
		cmp, err := store.Compare(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		printComparison(cmd.OutOrStdout(), cmp)
		return nil
	}),
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored run",
	Args:  cobra.ExactArgs(1),
	RunE: withHistory(func(ctx context.Context, cmd *cobra.Command, store storage.Store, args []string) error {
		if err := store.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCompareCmd)
	historyCmd.AddCommand(historyDeleteCmd)

	historyListCmd.Flags().StringVar(&historySource, "source", "", "only runs of this input file name")
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum runs to list")
	historyShowCmd.Flags().StringVarP(&historyFormat, "format", "f", "", "output format (table, json, csv, markdown)")
}

type historyFunc func(ctx context.Context, cmd *cobra.Command, store storage.Store, args []string) error

func withHistory(fn historyFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		store, err := openHistory(config.Get())
		if err != nil {
			return err
		}
		defer store.Close()
		return fn(cmd.Context(), cmd, store, args)
	}
}

func printComparison(w io.Writer, cmp *storage.CompareResult) {
	fmt.Fprintf(w, "Comparing %s -> %s\n", cmp.OldID, cmp.NewID)
	fmt.Fprintf(w, "Mean score: %.2f -> %.2f (%+.2f)\n\n", cmp.OldMean, cmp.NewMean, cmp.MeanDelta)

	fmt.Fprintf(w, "%-24s  %8s  %8s  %10s  %10s\n", "ID", "OLD RANK", "NEW RANK", "OLD SCORE", "NEW SCORE")
	for _, c := range cmp.Changes {
		fmt.Fprintf(w, "%-24s  %8s  %8s  %10s  %10s  %s\n",
			truncate(c.ID, 24), rankCell(c.OldRank), rankCell(c.NewRank),
			scoreCell(c.OldRank, c.OldScore), scoreCell(c.NewRank, c.NewScore), movement(c))
	}
}

func rankCell(rank int) string {
	if rank == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", rank)
}

func scoreCell(rank int, score float64) string {
	if rank == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f", score)
}

func movement(c storage.RankChange) string {
	switch {
	case c.OldRank == 0:
		return "new"
	case c.NewRank == 0:
		return "dropped"
	case !c.Moved():
		return ""
	case c.NewRank < c.OldRank:
		return fmt.Sprintf("up %d", c.OldRank-c.NewRank)
	case c.NewRank > c.OldRank:
		return fmt.Sprintf("down %d", c.NewRank-c.OldRank)
	}
	return ""
}

func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen-3]) + "..."
}
