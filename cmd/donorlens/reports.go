package main

import (
	"fmt"
	"time"

	"github.com/civicgraph/donorlens/internal/cli"
	"github.com/civicgraph/donorlens/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func reportsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Inspect and manage finished analysis reports",
	}

	cmd.AddCommand(reportsListCmd())
	cmd.AddCommand(reportsPruneCmd())

	return cmd
}

func reportsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all stored reports",
		RunE:  runReportsList,
	}
}

func runReportsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	reports, err := store.ListReports(ctx)
	if err != nil {
		return fmt.Errorf("failed to list reports: %w", err)
	}

	if len(reports) == 0 {
		fmt.Println(cli.SubtleStyle.Render("No reports yet"))
		return nil
	}

	fmt.Println(cli.FormatTitle("Reports"))
	for _, report := range reports {
		fmt.Printf("%s cycle %d: $%s from %d donors (top-10 %.1f%%, nakamoto %d)%s\n",
			report.CommitteeID,
			report.Cycle,
			report.TotalAmount.StringFixed(2),
			report.DonorCount,
			report.Top10Ratio*100,
			report.Nakamoto,
			reconciliationNote(report.Reconciliation))
	}

	return nil
}

func reconciliationNote(rec model.Reconciliation) string {
	if !rec.HasReference {
		return cli.SubtleStyle.Render("  [no reference total]")
	}
	if rec.Flagged {
		return cli.WarningStyle.Render(fmt.Sprintf("  [delta %.2f%%]", rec.PercentDelta))
	}
	return ""
}

func reportsPruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete reports from old election cycles",
		Long: `Remove reports older than the retention window. The window is counted
in two-year cycles back from the current one, so --keep 3 retains the
current cycle plus the two before it.`,
		RunE: runReportsPrune,
	}

	cmd.Flags().Int("keep", 3, "Number of cycles to retain, including the current one")

	return cmd
}

func runReportsPrune(cmd *cobra.Command, _ []string) error {
	keep, _ := cmd.Flags().GetInt("keep")
	if keep < 1 {
		return fmt.Errorf("--keep must be at least 1")
	}
	if v := viper.GetInt("reports.keep_cycles"); v > 0 && !cmd.Flags().Changed("keep") {
		keep = v
	}

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	pruned, err := store.PruneReports(ctx, model.CurrentCycle(time.Now()), keep)
	if err != nil {
		return fmt.Errorf("failed to prune reports: %w", err)
	}

	if pruned == 0 {
		fmt.Println(cli.SubtleStyle.Render("Nothing to prune"))
		return nil
	}
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Pruned %d report(s)", pruned)))
	return nil
}
