package main

import (
	"fmt"

	"github.com/civicgraph/donorlens/internal/cli"
	"github.com/civicgraph/donorlens/internal/model"
	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the analysis phase of every watched committee",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	eng, store, err := initEngine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	statuses, err := eng.Statuses(ctx)
	if err != nil {
		return fmt.Errorf("failed to collect statuses: %w", err)
	}

	if len(statuses) == 0 {
		fmt.Println(cli.SubtleStyle.Render("No committees registered yet. Add one with 'donorlens queue add'."))
		return nil
	}

	fmt.Println(cli.FormatTitle("Committee Status"))
	for _, status := range statuses {
		fmt.Printf("%s  %s (cycle %d)\n", phaseBadge(status.Phase), status.Name, status.Cycle)

		switch status.Phase {
		case model.PhaseComplete:
			report := status.Report
			fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf(
				"     %d donors, %d contributions, $%s total, top-10 %.1f%%, nakamoto %d",
				report.DonorCount, report.TxnCount, report.TotalAmount.StringFixed(2),
				report.Top10Ratio*100, report.Nakamoto)))
			if report.Reconciliation.Flagged {
				fmt.Println("     " + cli.FormatWarning(fmt.Sprintf(
					"reconciliation off by %.2f%%", report.Reconciliation.PercentDelta)))
			}
		case model.PhaseInProgress:
			fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf(
				"     %d contributions from %d donors so far, %d runs",
				status.TxnCount, status.DonorCount, status.RunCount)))
		case model.PhasePending:
			fmt.Println(cli.SubtleStyle.Render("     waiting for first run"))
		}
	}

	return nil
}

func phaseBadge(phase model.Phase) string {
	switch phase {
	case model.PhaseComplete:
		return cli.SuccessStyle.Render(cli.SuccessIcon)
	case model.PhaseInProgress:
		return cli.WarningStyle.Render("…")
	default:
		return cli.SubtleStyle.Render("·")
	}
}
