package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"statement-reconciliation-backend/internal/config"
	"statement-reconciliation-backend/internal/services/matching"
)

var (
	automatchBatch    string
	automatchMinScore int
)

var automatchCmd = &cobra.Command{
	Use:   "automatch",
	Short: "Match unmatched transactions to bookings",
	Long: `Automatch scores every unmatched transaction of the tenant against its
candidate bookings. Transactions reaching the minimum score are matched,
moderate candidates are printed as suggestions.

Examples:
  reconciler automatch --tenant 3f0c...
  reconciler automatch --tenant 3f0c... --batch 0190... --min-score 80 --workers 4`,
	PreRunE: validateAutomatchFlags,
	RunE:    runAutomatch,
}

func init() {
	rootCmd.AddCommand(automatchCmd)

	automatchCmd.Flags().StringVar(&automatchBatch, "batch", "", "only match transactions of this import batch")
	automatchCmd.Flags().IntVar(&automatchMinScore, "min-score", 70, "minimum score for an automatic match (0-100)")
	automatchCmd.Flags().Int("workers", 1, "transactions processed concurrently")

	_ = v.BindPFlag(config.KeyMatchWorkers, automatchCmd.Flags().Lookup("workers"))
}

func validateAutomatchFlags(cmd *cobra.Command, args []string) error {
	if _, err := tenantFlag(); err != nil {
		return err
	}
	if _, err := outputFlag(); err != nil {
		return err
	}
	if automatchBatch != "" {
		if _, err := uuid.Parse(automatchBatch); err != nil {
			return fmt.Errorf("invalid --batch %q", automatchBatch)
		}
	}
	if automatchMinScore < 0 || automatchMinScore > 100 {
		return fmt.Errorf("--min-score must be between 0 and 100")
	}
	return nil
}

func runAutomatch(cmd *cobra.Command, args []string) error {
	tenant, _ := tenantFlag()
	output, _ := outputFlag()

	req := matching.AutoMatchRequest{TenantID: tenant}
	if automatchBatch != "" {
		batchID := uuid.MustParse(automatchBatch)
		req.BatchID = &batchID
	}
	if cmd.Flags().Changed("min-score") {
		minScore := automatchMinScore
		req.MinScore = &minScore
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.recon.AutoMatch(a.context(cmd, tenant), req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if output == "json" {
		return printJSON(out, result)
	}

	fmt.Fprintf(out, "Matched:    %d\n", result.MatchedCount)
	fmt.Fprintf(out, "Unmatched:  %d (failed: %d)\n", result.UnmatchedCount, result.FailedCount)
	if len(result.Suggestions) > 0 {
		fmt.Fprintln(out, "\nSuggestions:")
		for _, s := range result.Suggestions {
			fmt.Fprintf(out, "  %s -> %s (%s) score %d\n", s.TransactionID, s.Booking.BookingNumber, s.Booking.ID, s.Score)
		}
	}
	return nil
}
