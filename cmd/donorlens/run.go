package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/civicgraph/donorlens/internal/cli"
	"github.com/civicgraph/donorlens/internal/engine"
	"github.com/civicgraph/donorlens/internal/service"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// maxConsecutivePartials bounds how many back-to-back partial
// invocations the drain loop tolerates before giving up on the head
// committee. Saved progress survives the abort.
const maxConsecutivePartials = 3

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process the committee at the head of the queue",
		Long: `Advance the next queued committee by up to the configured page budget.

Progress is checkpointed after every page, so this command is safe to
run on a fixed schedule (for example from cron). A committee whose
contribution history exceeds one invocation's budget simply stays at
the head of the queue and resumes on the next run.`,
		RunE: runRun,
	}

	cmd.Flags().Bool("until-complete", false, "Keep invoking until the queue is drained")

	return cmd
}

func runRun(cmd *cobra.Command, _ []string) error {
	untilComplete, _ := cmd.Flags().GetBool("until-complete")

	ctx := cmd.Context()
	eng, store, err := initEngine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if !untilComplete {
		result, err := eng.ProcessNext(ctx)
		if err != nil {
			return fmt.Errorf("invocation failed: %w", err)
		}
		printInvocation(result)
		return nil
	}

	return drainQueue(ctx, eng, store)
}

// drainQueue repeatedly invokes the engine until the queue is empty. Each
// iteration is a full independent invocation; interrupting between
// iterations loses no progress.
func drainQueue(ctx context.Context, eng *engine.Engine, store service.Storage) error {
	queued, err := store.ListQueue(ctx)
	if err != nil {
		return fmt.Errorf("failed to read queue: %w", err)
	}
	if len(queued) == 0 {
		fmt.Println(cli.FormatSuccess("Queue is already empty"))
		return nil
	}

	bar := progressbar.NewOptions(len(queued),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Analyzing committees...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)

	consecutivePartials := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := eng.ProcessNext(ctx)
		if err != nil {
			return fmt.Errorf("invocation failed: %w", err)
		}
		if result.QueueEmpty {
			break
		}
		if result.ResolutionFailed {
			// The committee stays at the head; retrying immediately in
			// the same process would spin on the same failure.
			return fmt.Errorf("resolution failed for committee %s, leaving it queued", result.CommitteeID)
		}
		if result.Partial {
			// Same spin hazard as resolution: a persistent source failure
			// (for example a terminal 4xx on one page) keeps the committee
			// at the head, and an unbounded loop would hammer the source.
			consecutivePartials++
			if consecutivePartials >= maxConsecutivePartials {
				return fmt.Errorf("aborting drain after %d consecutive partial invocations for committee %s: %w",
					consecutivePartials, result.CommitteeID, result.FetchErr)
			}
			slog.Warn("Partial invocation, progress saved",
				"committee_id", result.CommitteeID,
				"consecutive", consecutivePartials,
				"error", result.FetchErr)
			continue
		}
		consecutivePartials = 0
		if result.Complete {
			if err := bar.Add(1); err != nil {
				slog.Warn("Failed to advance progress bar", "error", err)
			}
		}
	}

	_ = bar.Finish()
	fmt.Println(cli.FormatSuccess("Queue drained"))
	return nil
}

func printInvocation(result *engine.InvocationResult) {
	switch {
	case result.QueueEmpty:
		fmt.Println(cli.SubtleStyle.Render("Queue is empty, nothing to do"))
	case result.ResolutionFailed:
		fmt.Println(cli.FormatError(fmt.Sprintf("Could not resolve committee %s; it remains queued", result.CommitteeID)))
	case result.Complete:
		report := result.Report
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Committee %s complete: %d donors across %d contributions",
			result.CommitteeID, report.DonorCount, report.TxnCount)))
		fmt.Printf("  Total: $%s  Top-10: %.1f%%  Whale weight: %.1f%%  Nakamoto: %d\n",
			report.TotalAmount.StringFixed(2),
			report.Top10Ratio*100,
			report.WhaleWeight*100,
			report.Nakamoto)
		if report.Reconciliation.Flagged {
			fmt.Println(cli.FormatWarning(fmt.Sprintf("Reconciliation delta %.2f%% exceeds tolerance %.2f%%",
				report.Reconciliation.PercentDelta, report.Reconciliation.TolerancePct)))
		}
	case result.Partial:
		fmt.Println(cli.FormatWarning(fmt.Sprintf("Committee %s interrupted after %d pages; progress saved",
			result.CommitteeID, result.PagesFetched)))
		if result.FetchErr != nil {
			fmt.Println(cli.SubtleStyle.Render("  last error: " + result.FetchErr.Error()))
		}
	default:
		fmt.Printf("Committee %s advanced %d pages (%d records); more remain\n",
			result.CommitteeID, result.PagesFetched, result.RecordsSeen)
	}
}
