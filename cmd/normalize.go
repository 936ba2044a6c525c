package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/cost"
	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/model"
	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/report"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <fee text>",
	Short: "Normalize a tuition fee string to an annual reference amount",
	Example: `  gradapp normalize "SEK 145,000 per year"
  gradapp normalize --currency USD "€8,000/semester"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		currency, _ := cmd.Flags().GetString("currency")
		live, _ := cmd.Flags().GetBool("live-rates")
		asJSON, _ := cmd.Flags().GetBool("json")
		return runNormalize(cmd.Context(), strings.Join(args, " "), currency, live, asJSON, cmd.OutOrStdout())
	},
}

func init() {
	normalizeCmd.Flags().String("currency", "EUR", "reference currency when currency.reference is unset")
	normalizeCmd.Flags().Bool("live-rates", false, "fetch exchange rates from currency.live_rates_url")
	normalizeCmd.Flags().Bool("json", false, "print the normalized cost as JSON")
	rootCmd.AddCommand(normalizeCmd)
}

func runNormalize(ctx context.Context, text, currency string, live, asJSON bool, out io.Writer) error {
	fees, err := buildNormalizer(ctx, strings.ToUpper(currency), live)
	if err != nil {
		return err
	}
	nc, err := fees.Normalize(text)
	if errors.Is(err, cost.ErrUnparseable) {
		return eris.Errorf("normalize: no recognizable amount in %q", text)
	}
	if err != nil {
		return err
	}
	if asJSON {
		return report.WriteJSON(out, nc)
	}
	formatCost(out, nc)
	return nil
}

// formatCost prints the amount with its conversion provenance.
func formatCost(out io.Writer, nc model.NormalizedCost) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Annual:\t%s\n", cost.Format(nc.Amount, nc.Currency))
	if nc.Free {
		_, _ = fmt.Fprintln(w, "Source:\ttuition-free")
		_ = w.Flush()
		return
	}
	_, _ = fmt.Fprintf(w, "Source:\t%s\n", cost.Format(nc.SourceAmount, nc.SourceCurrency))
	_, _ = fmt.Fprintf(w, "Rate:\t%.6f %s per %s\n", nc.Rate, nc.Currency, nc.SourceCurrency)
	if nc.PerSemester {
		_, _ = fmt.Fprintln(w, "Basis:\tper semester, doubled")
	}
	_ = w.Flush()
}
