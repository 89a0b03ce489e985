package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/macaw-rl/macawlab/internal/ctxlog"
	"github.com/macaw-rl/macawlab/internal/fsutil"
	"github.com/macaw-rl/macawlab/internal/history"
	"github.com/macaw-rl/macawlab/internal/model"
	"github.com/macaw-rl/macawlab/internal/params"
	"github.com/macaw-rl/macawlab/internal/relay"
)

// RunnerLogName is the file each run's subprocess output is captured in,
// inside the experiment's log directory.
const RunnerLogName = "runner.log"

// scannerBufferSize bounds a single runner output line (1 MiB).
const scannerBufferSize = 1024 * 1024

// Launcher is the "local" run handler: it execs the configured runner
// command with the five positional values and shepherds the subprocess to
// completion.
type Launcher struct {
	// Command is the runner command prefix, e.g. ["python3", "-m", "run"].
	Command []string

	// Runner starts subprocesses. Defaults to ExecCommandRunner.
	Runner CommandRunner

	// Store records run history when non-nil.
	Store *history.Store

	// Relay forwards lifecycle and metric events. A nil relay is a no-op.
	Relay *relay.Client
}

// Name implements Handler.
func (l *Launcher) Name() string { return "local" }

// Run implements Handler. It validates the experiment's configuration
// files, writes the resolved parameter document, and launches the runner
// with exactly five positional arguments: name, log directory, task config,
// algorithm params, override.
func (l *Launcher) Run(ctx context.Context, exp *model.Experiment) error {
	logger := ctxlog.FromContext(ctx).With("experiment", exp.Name)

	if len(l.Command) == 0 {
		return errors.New("launcher has no runner command configured")
	}

	if err := l.preflight(exp); err != nil {
		return err
	}

	runID := uuid.NewString()
	logger = logger.With("run_id", runID)
	if !exp.OverrideExplicit {
		logger.Debug("Override inherited from the suite's no-override file.", "override", exp.Override)
	}

	if l.Store != nil {
		if err := l.Store.Begin(ctx, history.Run{
			ID:         runID,
			Experiment: exp.Name,
			LogDir:     exp.LogDir,
			TaskConfig: exp.TaskConfig,
			AlgoParams: exp.AlgoParams,
			Override:   exp.Override,
			StartedAt:  time.Now(),
		}); err != nil {
			logger.Warn("Failed to record run start, continuing without history.", "error", err)
		}
	}
	l.Relay.RunStarted(runID, exp.Name)

	metricLines, runErr := l.launch(ctx, logger, runID, exp)
	exitCode := exitCodeOf(runErr)

	status := "succeeded"
	errText := ""
	if runErr != nil {
		status = "failed"
		errText = runErr.Error()
	}
	if l.Store != nil {
		if err := l.Store.Finish(context.WithoutCancel(ctx), runID, status, exitCode, errText, metricLines); err != nil {
			logger.Warn("Failed to record run finish.", "error", err)
		}
	}
	l.Relay.RunFinished(runID, exp.Name, status, exitCode)

	if runErr != nil {
		return fmt.Errorf("runner for experiment %q failed: %w", exp.Name, runErr)
	}
	logger.Info("✅ Experiment finished", "metric_lines", metricLines)
	return nil
}

// preflight validates the three configuration files and writes the resolved
// parameter document into the log directory, all before the subprocess
// starts.
func (l *Launcher) preflight(exp *model.Experiment) error {
	if err := params.ValidateTaskConfig(exp.TaskConfig); err != nil {
		return fmt.Errorf("experiment %q preflight: %w", exp.Name, err)
	}
	if err := params.ValidateAlgoParams(exp.AlgoParams); err != nil {
		return fmt.Errorf("experiment %q preflight: %w", exp.Name, err)
	}
	if err := params.ValidateAlgoParams(exp.Override); err != nil {
		return fmt.Errorf("experiment %q preflight: %w", exp.Name, err)
	}

	if err := fsutil.EnsureDir(exp.LogDir); err != nil {
		return fmt.Errorf("experiment %q preflight: %w", exp.Name, err)
	}

	resolved, err := params.Resolve(exp.AlgoParams, exp.Override)
	if err != nil {
		return fmt.Errorf("experiment %q preflight: %w", exp.Name, err)
	}
	if err := params.WriteResolved(exp.LogDir, resolved); err != nil {
		return fmt.Errorf("experiment %q preflight: %w", exp.Name, err)
	}
	return nil
}

// launch starts the subprocess and pumps its output until exit. It returns
// the number of metric lines observed and the process error, if any.
func (l *Launcher) launch(ctx context.Context, logger *slog.Logger, runID string, exp *model.Experiment) (int, error) {
	runCtx := ctx
	if exp.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, exp.Timeout)
		defer cancel()
	}

	name := l.Command[0]
	args := append(append([]string{}, l.Command[1:]...), exp.ForwardArgs()...)

	var extraEnv []string
	for k, v := range exp.Env {
		extraEnv = append(extraEnv, fmt.Sprintf("%s=%s", k, v))
	}

	cmdRunner := l.Runner
	if cmdRunner == nil {
		cmdRunner = ExecCommandRunner{}
	}

	logger.Info("🚀 Launching runner", "command", name, "args", args)
	stdout, stderr, wait, err := cmdRunner.Start(runCtx, name, args, extraEnv)
	if err != nil {
		return 0, fmt.Errorf("failed to start runner: %w", err)
	}

	runnerLog := &lumberjack.Logger{
		Filename:   filepath.Join(exp.LogDir, RunnerLogName),
		MaxSize:    50, // megabytes
		MaxBackups: 3,
	}
	defer runnerLog.Close()

	metricCount := 0
	var group errgroup.Group

	group.Go(func() error {
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), scannerBufferSize)
		for scanner.Scan() {
			line := scanner.Bytes()
			if _, err := runnerLog.Write(append(line, '\n')); err != nil {
				logger.Warn("Failed to write runner log line.", "error", err)
			}

			if metric, ok := ParseMetricLine(line); ok {
				metricCount++
				logger.Info("📈 Training metric", "metric", metric)
				l.Relay.Metric(runID, exp.Name, metric)
				continue
			}
			logger.Debug("runner stdout", "line", string(line))
		}
		return drainAfter(scanner.Err(), stdout)
	})

	group.Go(func() error {
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, 64*1024), scannerBufferSize)
		for scanner.Scan() {
			line := scanner.Bytes()
			if _, err := runnerLog.Write(append(line, '\n')); err != nil {
				logger.Warn("Failed to write runner log line.", "error", err)
			}
			logger.Debug("runner stderr", "line", string(line))
		}
		return drainAfter(scanner.Err(), stderr)
	})

	if err := group.Wait(); err != nil {
		logger.Warn("Failed reading runner output.", "error", err)
	}

	if err := wait(); err != nil {
		if exp.Timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return metricCount, fmt.Errorf("timed out after %v: %w", exp.Timeout, err)
		}
		return metricCount, err
	}
	return metricCount, nil
}

// drainAfter consumes the rest of a pipe once the scanner has given up
// (an over-long line, say). The subprocess keeps writing until it exits, and
// an undrained pipe would block it, leaving wait() stuck forever.
func drainAfter(scanErr error, r io.Reader) error {
	if scanErr == nil {
		return nil
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return errors.Join(scanErr, err)
	}
	return scanErr
}

// exitCodeOf extracts a process exit code from a wait error. A nil error is
// exit code 0; a non-exec failure is reported as -1.
func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
