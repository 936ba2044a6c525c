package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/model"
	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/report"
	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect stored evaluation runs",
	Long:  "Commands for listing stored runs, viewing one in full and following a school across runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored runs, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		runs, err := st.ListRuns(ctx, store.RunFilter{Limit: limit, Offset: offset})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(cmd.OutOrStdout(), runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a stored run (use \"latest\" for the newest)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		formatStr, _ := cmd.Flags().GetString("format")
		format, err := report.ParseFormat(formatStr)
		if err != nil {
			return err
		}
		if format.Binary() {
			return eris.Errorf("runs show: --format %s is not supported here; use evaluate --output", format)
		}

		var run *model.RunResult
		if args[0] == "latest" {
			run, err = st.LatestRun(ctx)
			if err == nil && run == nil {
				err = store.ErrNotFound
			}
		} else {
			run, err = st.GetRun(ctx, args[0])
		}
		if err != nil {
			return eris.Wrap(err, "runs show")
		}
		return report.Write(cmd.OutOrStdout(), run, format)
	},
}

// -- runs history --

var runsHistoryCmd = &cobra.Command{
	Use:   "history <school-id>",
	Short: "Show one school's status and probability across runs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		history, err := st.SchoolHistory(ctx, args[0], limit)
		if err != nil {
			return eris.Wrap(err, "runs history")
		}
		if len(history) == 0 {
			fmt.Fprintf(os.Stderr, "No stored runs include %s.\n", args[0])
			return nil
		}

		formatSchoolHistory(cmd.OutOrStdout(), history)
		return nil
	},
}

func init() {
	runsListCmd.Flags().Int("limit", 20, "max number of runs to display")
	runsListCmd.Flags().Int("offset", 0, "number of runs to skip")
	runsShowCmd.Flags().String("format", "json", "output format: json, table or csv")
	runsHistoryCmd.Flags().Int("limit", 20, "max number of runs to display")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsHistoryCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []store.RunSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tGENERATED\tSCHOOLS\tRISK\tEXPECTED")
	_, _ = fmt.Fprintln(w, "--\t---------\t-------\t----\t--------")

	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%.1f\t%.2f\n",
			truncateID(r.ID),
			r.GeneratedAt.Format("2006-01-02 15:04"),
			r.SchoolCount,
			r.TotalRiskScore,
			r.ExpectedAcceptances,
		)
	}
	_ = w.Flush()
}

// formatSchoolHistory writes one school's snapshots to w.
func formatSchoolHistory(out io.Writer, history []store.SchoolSnapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RUN\tGENERATED\tSTATUS\tCATEGORY\tPROB\tOVERALL")
	_, _ = fmt.Fprintln(w, "---\t---------\t------\t--------\t----\t-------")

	for _, h := range history {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.0f%%\t%.2f\n",
			truncateID(h.RunID),
			h.GeneratedAt.Format("2006-01-02 15:04"),
			h.OverallStatus,
			h.RiskCategory,
			h.AdmissionProbability*100,
			h.OverallScore,
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
