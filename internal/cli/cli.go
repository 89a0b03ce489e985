package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/macaw-rl/macawlab/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated
// app.Config, a boolean indicating if the program should exit cleanly, or
// an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("macawlab", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
macawlab - a launcher for offline meta-RL training experiments.

Usage:
  macawlab [options] [command] SUITE_PATH [OVERRIDE_JSON]

Commands:
  run        Execute the suite's experiments (default).
  validate   Check suite files, config schemas, and the dependency graph.
  history    Show recent runs recorded under the suite's log root.

Arguments:
  SUITE_PATH
    Path to a single .hcl suite file or a directory containing .hcl files.
  OVERRIDE_JSON
    Optional algorithm-parameter override file. When omitted, each
    experiment uses its declared override (or the suite's designated
    "no override" file). When supplied, it is forwarded verbatim to the
    runner for every experiment.

Options:
`)
		flagSet.PrintDefaults()
	}

	suiteFlag := flagSet.String("suite", "", "Path to the suite file or directory.")
	sFlag := flagSet.String("s", "", "Path to the suite file or directory (shorthand).")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text', 'json' or 'pretty'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	logFileFlag := flagSet.String("log-file", "", "Copy launcher logs to this rotated file.")
	workersFlag := flagSet.Int("workers", 2, "Number of concurrent workers for the executor.")
	dryRunFlag := flagSet.Bool("dry-run", false, "Print runner invocations instead of executing them.")
	relayURLFlag := flagSet.String("relay-url", "", "socket.io endpoint to stream run lifecycle and metric events to.")
	runnerFlag := flagSet.String("runner", "", "Runner command overriding the suite's defaults.runner (whitespace separated).")
	watchFlag := flagSet.Bool("watch", false, "With 'validate': keep revalidating on file changes.")
	historyLimitFlag := flagSet.Int("n", 10, "With 'history': number of runs to show.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	rest := flagSet.Args()

	command := app.CommandRun
	if len(rest) > 0 {
		switch rest[0] {
		case app.CommandRun, app.CommandValidate, app.CommandHistory:
			command = rest[0]
			rest = rest[1:]
		}
	}

	suitePath := ""
	if *suiteFlag != "" {
		suitePath = *suiteFlag
	} else if *sFlag != "" {
		suitePath = *sFlag
	}

	overridePath := ""
	switch {
	case suitePath == "" && len(rest) > 0:
		suitePath = rest[0]
		rest = rest[1:]
	}
	if command == app.CommandRun && len(rest) > 0 {
		overridePath = rest[0]
		rest = rest[1:]
	}
	if len(rest) > 0 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unexpected arguments: %s", strings.Join(rest, " "))}
	}

	if suitePath == "" {
		flagSet.Usage()
		return nil, false, &ExitError{Code: 2, Message: "a suite path is required"}
	}

	var runnerCommand []string
	if *runnerFlag != "" {
		runnerCommand = strings.Fields(*runnerFlag)
	}

	cfg, err := app.NewConfig(app.Config{
		Command:         command,
		SuitePath:       suitePath,
		OverridePath:    overridePath,
		RunnerCommand:   runnerCommand,
		LogFormat:       *logFormatFlag,
		LogLevel:        *logLevelFlag,
		LogFile:         *logFileFlag,
		HealthcheckPort: *healthPortFlag,
		WorkerCount:     *workersFlag,
		DryRun:          *dryRunFlag,
		RelayURL:        *relayURLFlag,
		Watch:           *watchFlag,
		HistoryLimit:    *historyLimitFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	return cfg, false, nil
}
