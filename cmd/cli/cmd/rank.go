package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"restaurant-rank/adapters/storage"
	"restaurant-rank/adapters/tabular"
	"restaurant-rank/core/fuzzy"
	"restaurant-rank/core/output"
	"restaurant-rank/core/ranking"
	"restaurant-rank/internal/config"
	"restaurant-rank/internal/logging"
)

var (
	rankFormat    string
	rankOutput    string
	rankTop       int
	rankProfile   string
	rankOnError   string
	rankWorkers   int
	rankPrecision int32
	rankSave      bool
)

// rankCmd represents the rank command
var rankCmd = &cobra.Command{
	Use:   "rank <input>",
	Short: "Rank the restaurants in a CSV, TSV or JSON file",
	Long: `Score every restaurant in the input and print the most suitable ones.

The input needs an id, a service score and a price column. Defaults follow the
original spreadsheet ("id Pelanggan", "Pelayanan", "harga") and can be changed
in the configuration.

Examples:
  restaurant-rank rank restoran.csv
  restaurant-rank rank --top 10 --format markdown restoran.csv
  restaurant-rank rank --on-error skip -o peringkat.json restoran.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runRank,
}

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().StringVarP(&rankFormat, "format", "f", "", "output format (table, json, csv, markdown); defaults to the output file extension or config")
	rankCmd.Flags().StringVarP(&rankOutput, "output", "o", "", "write the ranking to a file instead of stdout")
	rankCmd.Flags().IntVarP(&rankTop, "top", "k", ranking.DefaultTopK, "number of results to keep; negative keeps all")
	rankCmd.Flags().StringVar(&rankProfile, "profile", fuzzy.ProfileStandard, "membership profile")
	rankCmd.Flags().StringVar(&rankOnError, "on-error", string(ranking.PolicyFail), "per-record failure policy (fail, skip)")
	rankCmd.Flags().IntVar(&rankWorkers, "workers", 1, "concurrent evaluations")
	rankCmd.Flags().Int32Var(&rankPrecision, "precision", 2, "decimal places for scores; -1 disables rounding")
	rankCmd.Flags().BoolVar(&rankSave, "save", false, "store the run in history")
}

// applyRankFlags overrides configuration with flags the user set explicitly
func applyRankFlags(cmd *cobra.Command, cfg config.Config) (config.Config, error) {
	flags := cmd.Flags()
	if flags.Changed("top") {
		cfg.Ranking.TopK = rankTop
	}
	if flags.Changed("profile") {
		cfg.Engine.Profile = rankProfile
	}
	if flags.Changed("on-error") {
		cfg.Ranking.OnError = rankOnError
	}
	if flags.Changed("workers") {
		cfg.Ranking.Workers = rankWorkers
	}
	if flags.Changed("precision") {
		cfg.Output.Precision = rankPrecision
	}
	if flags.Changed("save") {
		cfg.History.Enabled = rankSave
	}
	if flags.Changed("format") {
		cfg.Output.DefaultFormat = rankFormat
	}
	return cfg, cfg.Validate()
}

func newEvaluator(cfg config.Config, log *zap.Logger) (fuzzy.Evaluator, *fuzzy.CachedEvaluator, error) {
	profile, err := fuzzy.LookupProfile(cfg.Engine.Profile)
	if err != nil {
		return nil, nil, err
	}
	engine := fuzzy.NewEngine(profile)
	if cfg.Engine.CacheSize <= 0 {
		return engine, nil, nil
	}
	cached, err := fuzzy.NewCachedEvaluator(engine, cfg.Engine.CacheSize)
	if err != nil {
		log.Warn("evaluation cache disabled", zap.Error(err))
		return engine, nil, nil
	}
	return cached, cached, nil
}

func runRank(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	input := args[0]
	log := logging.Named("cli")

	cfg, err := applyRankFlags(cmd, *config.Get())
	if err != nil {
		return err
	}

	evaluator, cache, err := newEvaluator(cfg, log)
	if err != nil {
		return err
	}

	policy := ranking.Policy(cfg.Ranking.OnError)
	ranker := ranking.NewRanker(evaluator, ranking.Options{
		TopK:        cfg.Ranking.TopK,
		OnError:     policy,
		Workers:     cfg.Ranking.Workers,
		ProfileName: cfg.Engine.Profile,
		Logger:      logging.Named("ranking"),
	})

	source := tabular.NewFileSource(input, tabular.ParseOptions{
		Columns: tabular.Columns{
			ID:      cfg.Input.IDColumn,
			Service: cfg.Input.ServiceColumn,
			Price:   cfg.Input.PriceColumn,
		},
		SkipMalformed: cfg.Input.SkipMalformed && policy == ranking.PolicySkip,
	})

	format := output.Format(cfg.Output.DefaultFormat)
	if rankOutput != "" && !cmd.Flags().Changed("format") {
		format = output.ForPath(rankOutput, format)
	}
	registry := output.NewDefaultRegistry(outputOptions(&cfg, cfg.Output.Precision))
	formatter, ok := registry.Get(format)
	if !ok {
		return fmt.Errorf("unsupported format: %s (available: %v)", format, registry.Formats())
	}

	var sinks []ranking.Sink
	if rankOutput != "" {
		sinks = append(sinks, tabular.NewFileSink(rankOutput, formatter))
	} else {
		sinks = append(sinks, tabular.NewStreamSink(cmd.OutOrStdout(), formatter))
	}

	if cfg.History.Enabled {
		store, err := openHistory(&cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		sinks = append(sinks, storage.NewHistorySink(store, source.Name()))
	}

	log.Debug("ranking input",
		zap.String("path", input),
		zap.String("profile", cfg.Engine.Profile),
		zap.String("format", string(format)),
		zap.Int("workers", cfg.Ranking.Workers),
	)

	report, err := ranking.NewPipeline(source, ranker, sinks...).Run(ctx)
	if err != nil {
		return err
	}

	if cache != nil {
		hits, misses := cache.Stats()
		log.Debug("evaluation cache", zap.Int64("hits", hits), zap.Int64("misses", misses))
	}

	if rankOutput != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Output saved to %s\n", rankOutput)
	}
	if cfg.History.Enabled {
		fmt.Fprintf(cmd.ErrOrStderr(), "Run %s saved to history\n", report.ID)
	}
	return nil
}
