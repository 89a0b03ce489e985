package app

import (
	"context"
	"fmt"

	"github.com/macaw-rl/macawlab/internal/ctxlog"
	"github.com/macaw-rl/macawlab/internal/dag"
	"github.com/macaw-rl/macawlab/internal/history"
	"github.com/macaw-rl/macawlab/internal/relay"
	"github.com/macaw-rl/macawlab/internal/runner"
)

// runSuite executes the loaded suite's experiments.
func (a *App) runSuite(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	logger.Debug("Building dependency graph from suite...")
	graph, err := dag.Build(ctx, a.suite)
	if err != nil {
		return fmt.Errorf("failed to build dependency graph: %w", err)
	}
	logger.Debug("Dependency graph built.", "node_count", len(graph.Nodes))

	if len(graph.Nodes) == 0 {
		logger.Warn("No experiments found in suite, execution not required.")
		return nil
	}

	command := a.suite.Defaults.Runner
	if len(a.config.RunnerCommand) > 0 {
		command = a.config.RunnerCommand
	}

	// History and relay are best effort: a dry run gets neither, and a
	// failure to reach either never blocks training.
	var store *history.Store
	if !a.config.DryRun {
		store, err = history.Open(a.suite.Defaults.LogRoot)
		if err != nil {
			logger.Warn("Run history unavailable.", "error", err)
			store = nil
		} else {
			defer store.Close()
		}
	}

	var relayClient *relay.Client
	if a.config.RelayURL != "" && !a.config.DryRun {
		relayClient, err = relay.Dial(ctx, a.config.RelayURL)
		if err != nil {
			logger.Warn("Metrics relay unavailable.", "error", err)
			relayClient = nil
		} else {
			defer relayClient.Close()
		}
	}

	reg := runner.NewRegistry()
	reg.Register(&runner.Launcher{
		Command: command,
		Store:   store,
		Relay:   relayClient,
	})
	reg.Register(&runner.DryRun{Command: command, Out: a.outW})

	if err := reg.Validate(a.suite); err != nil {
		return err
	}

	forced := ""
	if a.config.DryRun {
		forced = "dryrun"
		logger.Info("Dry run: printing runner invocations instead of executing.")
	}

	logger.Info("🚀 Starting concurrent execution...", "experiments", len(graph.Nodes), "workers", a.config.WorkerCount)
	exec := dag.NewExecutor(graph, a.config.WorkerCount, reg.RunFunc(forced))
	if err := exec.Run(ctx); err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	logger.Info("🏁 Execution finished.")

	return nil
}
