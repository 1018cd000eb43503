// Package cmd provides the CLI commands for restaurant-rank.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"restaurant-rank/adapters/storage"
	"restaurant-rank/core/output"
	"restaurant-rank/internal/config"
	"restaurant-rank/internal/logging"
)

// Version is set at build time
var Version = "0.1.0"

var (
	cfgFile string
	envFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "restaurant-rank",
	Short: "Rank restaurants by fuzzy suitability",
	Long: `restaurant-rank scores restaurants on service quality and price with a
fuzzy rule base and reports the most suitable ones.

Examples:
  restaurant-rank rank restoran.csv
  restaurant-rank rank --format json --top 10 restoran.csv
  restaurant-rank rank -o peringkat.csv restoran.tsv
  restaurant-rank explain --service 70 --price 32000`,
	SilenceUsage: true,
}

// Execute runs the CLI
func Execute() error {
	defer logging.Sync()
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file, .json, .yaml or .hcl (default is $HOME/.restaurant-rank/config.json)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "file of RANKER_* variables to load")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configShowCmd.Flags().StringVarP(&configFormat, "format", "f", "json", "output format (json, yaml, hcl)")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
}

func defaultConfigPath() string {
	return filepath.Join(config.HomeDir(), "config.json")
}

func initConfig() {
	if err := config.LoadDotEnv(envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading env file: %v\n", err)
		os.Exit(1)
	}

	path := cfgFile
	if path == "" {
		path = defaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	config.Set(cfg)

	// Initialize logging
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
}

func outputOptions(cfg *config.Config, precision int32) output.Options {
	opts := output.Options{Precision: precision, Locale: language.English}
	if tag, err := language.Parse(cfg.Output.Locale); err == nil {
		opts.Locale = tag
	}
	return opts
}

func openHistory(cfg *config.Config) (storage.Store, error) {
	return storage.StoreFactory(storage.Backend(cfg.History.Backend), map[string]string{
		"path": cfg.History.Path,
	})
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "restaurant-rank version %s\n", Version)
	},
}
