package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/macaw-rl/macawlab/internal/ctxlog"
	"github.com/macaw-rl/macawlab/internal/dag"
	"github.com/macaw-rl/macawlab/internal/model"
	"github.com/macaw-rl/macawlab/internal/params"
	"github.com/macaw-rl/macawlab/internal/watch"
)

// validateSuite checks the loaded suite once, and keeps revalidating on
// file changes when watch mode is on.
func (a *App) validateSuite(ctx context.Context) error {
	if err := checkSuite(ctx, a.suite); err != nil {
		return err
	}
	fmt.Fprintf(a.outW, "Suite OK: %d experiment(s)\n", len(a.suite.Experiments))

	if !a.config.Watch {
		return nil
	}

	logger := ctxlog.FromContext(ctx)
	watcher := watch.New(a.config.SuitePath, func(ctx context.Context) {
		suite, err := model.LoadSuite(ctx, a.config.SuitePath)
		if err == nil {
			err = checkSuite(ctx, suite)
		}
		if err != nil {
			logger.Error("❌ Suite invalid.", "error", err)
			fmt.Fprintf(a.outW, "Suite invalid: %v\n", err)
			return
		}
		logger.Info("Suite revalidated.")
		fmt.Fprintf(a.outW, "Suite OK: %d experiment(s)\n", len(suite.Experiments))
	})

	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// checkSuite runs the full pre-flight battery over a suite: the dependency
// graph must build (acyclic, known targets) and every referenced config
// file must parse and validate. File checks fan out, one goroutine per
// experiment.
func checkSuite(ctx context.Context, suite *model.Suite) error {
	if _, err := dag.Build(ctx, suite); err != nil {
		return err
	}

	group, _ := errgroup.WithContext(ctx)
	for _, exp := range suite.Experiments {
		group.Go(func() error {
			if err := params.ValidateTaskConfig(exp.TaskConfig); err != nil {
				return fmt.Errorf("experiment %q (declared in %s): %w", exp.Name, exp.SourceFile, err)
			}
			if err := params.ValidateAlgoParams(exp.AlgoParams); err != nil {
				return fmt.Errorf("experiment %q (declared in %s): %w", exp.Name, exp.SourceFile, err)
			}
			if err := params.ValidateAlgoParams(exp.Override); err != nil {
				return fmt.Errorf("experiment %q (declared in %s): %w", exp.Name, exp.SourceFile, err)
			}
			return nil
		})
	}
	return group.Wait()
}
