package main

import (
	"fmt"

	"github.com/civicgraph/donorlens/internal/cli"
	"github.com/spf13/cobra"
)

func queueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Manage the pending committee queue",
	}

	cmd.AddCommand(queueAddCmd())
	cmd.AddCommand(queueListCmd())

	return cmd
}

func queueAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <id> <name>",
		Short: "Register a committee and queue it for analysis",
		Long: `Register a committee under a local identifier and add it to the
pending queue. The committee's disclosure source ID is resolved by
name on its first processing run; --state and --category narrow that
search.`,
		Args: cobra.ExactArgs(2),
		RunE: runQueueAdd,
	}

	cmd.Flags().String("state", "", "Two-letter state filter for resolution")
	cmd.Flags().String("category", "", "Committee category filter for resolution")

	return cmd
}

func runQueueAdd(cmd *cobra.Command, args []string) error {
	state, _ := cmd.Flags().GetString("state")
	category, _ := cmd.Flags().GetString("category")

	ctx := cmd.Context()
	eng, store, err := initEngine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	committee, err := eng.Register(ctx, args[0], args[1], state, category)
	if err != nil {
		return fmt.Errorf("failed to register committee: %w", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Queued %s for cycle %d", committee.Name, committee.Cycle)))
	return nil
}

func queueListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List queued committees in processing order",
		RunE:  runQueueList,
	}
}

func runQueueList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	queued, err := store.ListQueue(ctx)
	if err != nil {
		return fmt.Errorf("failed to list queue: %w", err)
	}

	if len(queued) == 0 {
		fmt.Println(cli.SubtleStyle.Render("Queue is empty"))
		return nil
	}

	fmt.Println(cli.FormatTitle("Pending Queue"))
	for i, id := range queued {
		committee, err := store.GetCommittee(ctx, id)
		if err != nil {
			fmt.Printf("%2d. %s\n", i+1, id)
			continue
		}
		fmt.Printf("%2d. %s  %s\n", i+1, committee.Name, cli.SubtleStyle.Render("("+id+")"))
	}

	return nil
}
