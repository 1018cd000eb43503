package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"restaurant-rank/adapters/tabular"
	"restaurant-rank/core/fuzzy"
	"restaurant-rank/internal/config"
	rerrors "restaurant-rank/internal/errors"
)

var (
	explainService float64
	explainPrice   string
	explainProfile string
	explainFormat  string
)

// explainCmd shows the inference trace for one pair
var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Show how a single service score and price are scored",
	Long: `Print the membership degrees, fired rules, aggregated output and final
score for one (service, price) pair.

Examples:
  restaurant-rank explain --service 70 --price 32000
  restaurant-rank explain --service 95 --price 26000 --profile alternate --format json`,
	Args: cobra.NoArgs,
	RunE: runExplain,
}

func init() {
	rootCmd.AddCommand(explainCmd)

	explainCmd.Flags().Float64VarP(&explainService, "service", "s", 0, "service score [REQUIRED]")
	explainCmd.Flags().StringVarP(&explainPrice, "price", "p", "", "price [REQUIRED]")
	explainCmd.Flags().StringVar(&explainProfile, "profile", "", "membership profile (default from config)")
	explainCmd.Flags().StringVarP(&explainFormat, "format", "f", "text", "output format (text, json)")
	explainCmd.MarkFlagRequired("service")
	explainCmd.MarkFlagRequired("price")
}

func runExplain(cmd *cobra.Command, args []string) error {
	name := explainProfile
	if name == "" {
		name = config.Get().Engine.Profile
	}
	profile, err := fuzzy.LookupProfile(name)
	if err != nil {
		return rerrors.Wrap(rerrors.TypeInput, "invalid profile", err)
	}

	price, err := decimal.NewFromString(tabular.NormalizeNumber(explainPrice))
	if err != nil {
		return rerrors.Wrap(rerrors.TypeInput, fmt.Sprintf("invalid price %q", explainPrice), err)
	}

	ev := fuzzy.NewEngine(profile).Evaluate(explainService, price.InexactFloat64())

	switch explainFormat {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Profile string `json:"profile"`
			fuzzy.Evaluation
		}{profile.Name, ev})
	case "text":
		printExplanation(cmd.OutOrStdout(), profile, explainService, price, ev)
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", explainFormat)
	}
}

func printExplanation(w io.Writer, profile fuzzy.Profile, service float64, price decimal.Decimal, ev fuzzy.Evaluation) {
	fmt.Fprintf(w, "Profile: %s\n\n", profile.Name)

	fmt.Fprintf(w, "Service %s\n", num(service))
	for _, lvl := range fuzzy.ServiceLevels() {
		fmt.Fprintf(w, "  %-10s %s\n", lvl, degree(ev.Service[lvl]))
	}

	fmt.Fprintf(w, "\nPrice %s\n", price.String())
	for _, lvl := range fuzzy.PriceLevels() {
		fmt.Fprintf(w, "  %-10s %s\n", lvl, degree(ev.Price[lvl]))
	}

	fmt.Fprintln(w, "\nRules fired")
	if len(ev.Firings) == 0 {
		fmt.Fprintln(w, "  none: input lies outside every membership shape")
	}
	for _, f := range ev.Firings {
		fmt.Fprintf(w, "  service %-6s AND price %-9s -> %-15s alpha %s\n", f.Service, f.Price, f.Output, degree(f.Alpha))
	}

	fmt.Fprintln(w, "\nAggregate")
	for _, s := range fuzzy.Suitabilities() {
		strength, ok := ev.Output[s]
		if !ok {
			continue
		}
		anchor, _ := profile.Anchors.Of(s)
		fmt.Fprintf(w, "  %-15s %s x %s\n", s, degree(strength), num(anchor))
	}

	fmt.Fprintf(w, "\nScore: %s\n", decimal.NewFromFloat(ev.Score).Round(4).String())
}

func degree(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
