package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"taskweave/streamers"
	"taskweave/streamers/cli"
	"taskweave/workflow"
	"taskweave/wsbridge"
)

var (
	runMaxSteps int
	runJSON     bool
	runBridge   bool
)

var runCmd = &cobra.Command{
	Use:   "run [request]",
	Short: "Answer a request",
	Long: `Plan the request into subtasks, run each with a solver, aggregate the
results and validate the answer. The run is stored in the run history.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		request := strings.Join(args, " ")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, appOptions{maxSteps: runMaxSteps, withRunner: true})
		if err != nil {
			return err
		}
		defer a.Close()

		var handler streamers.RunHandler = cli.NewRunHandler()
		if runJSON {
			handler = streamers.Nop()
		}

		var (
			bridge   *wsbridge.Client
			bridgeID string
		)
		if runBridge {
			if a.cfg.Bridge == nil {
				return fmt.Errorf("--bridge needs a bridge block in the config")
			}
			bridge, err = connectBridge(ctx, a, nil)
			if err != nil {
				return err
			}
			defer bridge.Close()
			bridgeID = uuid.NewString()
			handler = streamers.Multi{handler, bridge.Handler(bridgeID)}
		}

		runID, state, runErr := a.runner.Run(ctx, request, handler)
		if state == nil {
			return runErr
		}
		report := workflow.NewReport(state, runErr)
		if bridge != nil {
			if err := bridge.Completed(bridgeID, report); err != nil {
				a.logger.Warn("bridge completion not sent", "error", err)
			}
		}

		if runJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
		} else {
			usage, cost := a.usage()
			fmt.Fprintf(os.Stderr, "\nRun %s: %d steps, %d input / %d output tokens, $%.4f\n",
				runID, len(state.History), usage.InputTokens, usage.OutputTokens, cost)
		}
		return runErr
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().IntVar(&runMaxSteps, "max-steps", 0, "Override the executor step ceiling")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the final state as JSON")
	runCmd.Flags().BoolVar(&runBridge, "bridge", false, "Publish events over the configured bridge")
}
