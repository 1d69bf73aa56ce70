package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"taskweave/config"
	"taskweave/server"
	"taskweave/streamers"
	"taskweave/workflow"
	"taskweave/wsbridge"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and, with a bridge block, accept remote runs",
	Long: `Start a long-running process that answers requests over HTTP.
POST /api/v1/runs runs a request, GET /api/v1/runs reads the history and
/mcp exposes the same operations as MCP tools.

With a "bridge" block in the config the instance also registers with the
dashboard at its url and runs the requests it sends.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, appOptions{withRunner: true})
		if err != nil {
			return err
		}
		defer a.Close()

		addr := a.cfg.ServerOrDefault().Address
		if serveAddr != "" {
			addr = serveAddr
		}
		srv := server.New(a.runner, a.stores.Runs, Version, a.logger)

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start(addr) }()
		fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", addr)

		if a.cfg.Bridge != nil {
			go serveBridge(ctx, a, stop)
		}

		select {
		case err := <-errCh:
			if err != nil {
				return err
			}
		case <-ctx.Done():
		}

		fmt.Fprintln(cmd.OutOrStdout(), "\nShutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

// runFunc answers bridge requests with the app's runner.
func runFunc(a *app) wsbridge.RunFunc {
	return func(ctx context.Context, request string, handler streamers.RunHandler) workflow.Report {
		_, state, err := a.runner.Run(ctx, request, handler)
		if state == nil {
			return workflow.Report{Request: request, Error: err.Error()}
		}
		return workflow.NewReport(state, err)
	}
}

// serveBridge keeps a bridge connection up until ctx ends. A client is
// single use, so every reconnect dials a fresh one.
func serveBridge(ctx context.Context, a *app, stop context.CancelFunc) {
	bridgeCfg := a.cfg.Bridge
	for {
		client, err := connectBridge(ctx, a, runFunc(a))
		if err != nil {
			a.logger.Error("bridge unavailable", "error", err)
			stop()
			return
		}
		a.logger.Info("connected to bridge", "url", bridgeCfg.URL, "instance_id", client.InstanceID())

		err = client.Run(ctx)
		client.Close()
		if ctx.Err() != nil {
			return
		}
		a.logger.Warn("bridge connection lost", "error", err)
		if !bridgeCfg.AutoReconnect {
			stop()
			return
		}
	}
}

// connectBridge dials the configured bridge, retrying when auto_reconnect
// is set.
func connectBridge(ctx context.Context, a *app, run wsbridge.RunFunc) (*wsbridge.Client, error) {
	bridgeCfg := a.cfg.Bridge
	maxAttempts := 1
	if bridgeCfg.AutoReconnect {
		maxAttempts = 10
	}
	interval := time.Duration(bridgeCfg.ReconnectInterval) * time.Second

	for attempt := 1; ; attempt++ {
		client := wsbridge.NewClient(bridgeOptions(a, bridgeCfg, run))
		err := client.Connect(ctx)
		if err == nil {
			return client, nil
		}
		if attempt == maxAttempts {
			return nil, fmt.Errorf("failed to connect after %d attempts: %w", maxAttempts, err)
		}
		a.logger.Warn("bridge connection failed", "attempt", attempt, "max", maxAttempts, "retry_in", interval, "error", err)
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func bridgeOptions(a *app, bridgeCfg *config.BridgeConfig, run wsbridge.RunFunc) wsbridge.Options {
	infos := make([]wsbridge.SolverInfo, 0, len(a.solvers))
	for _, s := range a.solvers {
		infos = append(infos, wsbridge.SolverInfo{Name: s.Name(), Description: s.Description(), Version: s.Version()})
	}
	return wsbridge.Options{
		URL:          bridgeCfg.URL,
		InstanceName: bridgeCfg.InstanceName,
		Version:      Version,
		Solvers:      infos,
		Logger:       a.logger.Named("bridge"),
		Run:          run,
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides the server block)")
}
