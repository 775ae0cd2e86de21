package main

import (
	"fmt"

	"github.com/civicgraph/donorlens/internal/cli"
	"github.com/spf13/cobra"
)

func reprocessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reprocess <committee-id>",
		Short: "Discard a committee's report and re-queue it",
		Long: `Delete a committee's finished report and any leftover checkpoint,
then put it back on the pending queue. Use this after the disclosure
source has published amended filings.`,
		Args: cobra.ExactArgs(1),
		RunE: runReprocess,
	}
}

func runReprocess(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	eng, store, err := initEngine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := eng.Reprocess(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to reprocess committee: %w", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Committee %s queued for reprocessing", args[0])))
	return nil
}
