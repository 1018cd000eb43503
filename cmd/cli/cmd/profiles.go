package cmd

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/spf13/cobra"

	"restaurant-rank/core/fuzzy"
)

// profilesCmd lists the compiled membership profiles
var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the membership profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for i, name := range fuzzy.ProfileNames() {
			profile, err := fuzzy.LookupProfile(name)
			if err != nil {
				return err
			}
			if i > 0 {
				fmt.Fprintln(out)
			}
			printProfile(out, profile)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}

func printProfile(w io.Writer, p fuzzy.Profile) {
	fmt.Fprintf(w, "%s: %s\n", p.Name, p.Description)

	fmt.Fprintln(w, "  service")
	fmt.Fprintf(w, "    %-10s %s\n", fuzzy.ServiceLow, shape(p.Service.Low))
	fmt.Fprintf(w, "    %-10s %s\n", fuzzy.ServiceMedium, shape(p.Service.Medium))
	fmt.Fprintf(w, "    %-10s %s\n", fuzzy.ServiceHigh, shape(p.Service.High))

	fmt.Fprintln(w, "  price")
	fmt.Fprintf(w, "    %-10s %s\n", fuzzy.PriceCheap, shape(p.Price.Cheap))
	fmt.Fprintf(w, "    %-10s %s\n", fuzzy.PriceMedium, shape(p.Price.Medium))
	fmt.Fprintf(w, "    %-10s %s\n", fuzzy.PriceExpensive, shape(p.Price.Expensive))

	fmt.Fprintln(w, "  anchors")
	for _, s := range fuzzy.Suitabilities() {
		v, _ := p.Anchors.Of(s)
		fmt.Fprintf(w, "    %-15s %s\n", s, bound(v))
	}
}

func shape(t fuzzy.Trapezoid) string {
	return fmt.Sprintf("[%s, %s, %s, %s]", bound(t.A), bound(t.B), bound(t.C), bound(t.D))
}

func bound(v float64) string {
	switch {
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsInf(v, 1):
		return "+inf"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
