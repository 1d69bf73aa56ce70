package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"taskweave/store"
	"taskweave/streamers"
	"taskweave/streamers/cli"
)

var (
	historyLimit  int
	historyEvents bool
)

var historyCmd = &cobra.Command{
	Use:   "history [runId]",
	Short: "Show stored runs",
	Long: `Without arguments, list the most recent runs. With a run id, show the
run and its steps, or replay its progress events with --events.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		stores, err := store.NewBundle(context.Background(), storageFor(cfg))
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer stores.Close()

		if len(args) == 0 {
			return listRuns(cmd, stores.Runs)
		}
		if historyEvents {
			return streamers.Replay(stores.Runs, args[0], cli.NewWriterHandler(cmd.OutOrStdout()))
		}
		return showRun(cmd, stores.Runs, args[0])
	},
}

func listRuns(cmd *cobra.Command, runs store.RunStore) error {
	list, total, err := runs.ListRuns(historyLimit, 0)
	if err != nil {
		return err
	}
	if total == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs stored")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tSTEPS\tSTARTED\tREQUEST")
	for _, r := range list {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", r.ID, r.Status, r.StepCount, r.StartedAt.Local().Format("2006-01-02 15:04:05"), shorten(r.Request, 60))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if total > len(list) {
		fmt.Fprintf(cmd.OutOrStdout(), "(%d of %d runs)\n", len(list), total)
	}
	return nil
}

func showRun(cmd *cobra.Command, runs store.RunStore, id string) error {
	run, err := runs.GetRun(id)
	if err != nil {
		return err
	}
	steps, err := runs.GetSteps(id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:     %s\n", run.ID)
	fmt.Fprintf(out, "Request: %s\n", run.Request)
	fmt.Fprintf(out, "Status:  %s\n", run.Status)
	if run.Result != nil {
		fmt.Fprintf(out, "Result:  %s\n", *run.Result)
	}
	if run.Error != nil {
		fmt.Fprintf(out, "Error:   %s\n", *run.Error)
	}

	fmt.Fprintf(out, "\nSteps:\n")
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, s := range steps {
		status := "ok"
		if !s.Success {
			status = "failed: " + s.Error
		}
		fmt.Fprintf(w, "  %d\t%s\t%s\t%dms\t%s\n", s.Index+1, s.Solver, shorten(s.TaskName, 50), s.DurationMs, status)
	}
	return w.Flush()
}

func shorten(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to list")
	historyCmd.Flags().BoolVar(&historyEvents, "events", false, "Replay the stored progress events of a run")
}
