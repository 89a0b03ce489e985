package runner

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/macaw-rl/macawlab/internal/ctxlog"
	"github.com/macaw-rl/macawlab/internal/model"
)

// DryRun is the "dryrun" handler: it prints the exact command line a local
// run would exec, without touching the filesystem or starting a process.
type DryRun struct {
	// Command is the runner command prefix the positional values are shown
	// with.
	Command []string

	// Out receives one line per experiment.
	Out io.Writer
}

// Name implements Handler.
func (d *DryRun) Name() string { return "dryrun" }

// Run implements Handler.
func (d *DryRun) Run(ctx context.Context, exp *model.Experiment) error {
	logger := ctxlog.FromContext(ctx).With("experiment", exp.Name)

	argv := append(append([]string{}, d.Command...), exp.ForwardArgs()...)
	if _, err := fmt.Fprintln(d.Out, strings.Join(argv, " ")); err != nil {
		return fmt.Errorf("failed to print dry-run command: %w", err)
	}

	logger.Info("Dry run", "argv", argv)
	return nil
}
