package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"statement-reconciliation-backend/internal/models"
	"statement-reconciliation-backend/internal/repository"
)

var (
	reportFrom string
	reportTo   string
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show transaction counts and totals per status",
	Example: `  reconciler summary --tenant 3f0c...
  reconciler summary --tenant 3f0c... --from 2025-01-01 --to 2025-01-31 -o json`,
	PreRunE: validateReportFlags,
	RunE:    runSummary,
}

var batchesCmd = &cobra.Command{
	Use:     "batches",
	Short:   "Show per import batch totals, most recent first",
	Example: `  reconciler batches --tenant 3f0c...`,
	PreRunE: validateReportFlags,
	RunE:    runBatches,
}

func init() {
	rootCmd.AddCommand(summaryCmd, batchesCmd)

	for _, c := range []*cobra.Command{summaryCmd, batchesCmd} {
		c.Flags().StringVar(&reportFrom, "from", "", "first transaction date (YYYY-MM-DD)")
		c.Flags().StringVar(&reportTo, "to", "", "last transaction date (YYYY-MM-DD)")
	}
}

func validateReportFlags(cmd *cobra.Command, args []string) error {
	if _, err := tenantFlag(); err != nil {
		return err
	}
	if _, err := outputFlag(); err != nil {
		return err
	}
	_, err := reportRange()
	return err
}

func reportRange() (*repository.DateRange, error) {
	from, err := parseDateFlag("from", reportFrom)
	if err != nil {
		return nil, err
	}
	to, err := parseDateFlag("to", reportTo)
	if err != nil {
		return nil, err
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, fmt.Errorf("--from must not be after --to")
	}
	return &repository.DateRange{From: from, To: to}, nil
}

func runSummary(cmd *cobra.Command, args []string) error {
	tenant, _ := tenantFlag()
	output, _ := outputFlag()
	rng, _ := reportRange()

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	summary, err := a.reporting.Summary(a.context(cmd, tenant), tenant, rng)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if output == "json" {
		return printJSON(out, summary)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STATUS\tCOUNT\tAMOUNT")
	for _, status := range models.AllStatuses {
		b := summary.ByStatus[status]
		fmt.Fprintf(w, "%s\t%d\t%s\n", status, b.Count, b.TotalAmount.StringFixed(2))
	}
	fmt.Fprintf(w, "total\t%d\t%s\n", summary.Total.Count, summary.Total.TotalAmount.StringFixed(2))
	return w.Flush()
}

func runBatches(cmd *cobra.Command, args []string) error {
	tenant, _ := tenantFlag()
	output, _ := outputFlag()
	rng, _ := reportRange()

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	rollup, err := a.reporting.BatchRollup(a.context(cmd, tenant), tenant, rng)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if output == "json" {
		return printJSON(out, rollup)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "BATCH\tIMPORTED AT\tROWS\tMATCHED\tUNMATCHED\tAMOUNT")
	for _, b := range rollup {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
			b.ImportBatchID, b.ImportedAt.Format(time.RFC3339), b.TotalCount, b.MatchedCount, b.UnmatchedCount, b.TotalAmount.StringFixed(2))
	}
	return w.Flush()
}
