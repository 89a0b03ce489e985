package app

import (
	"errors"
	"fmt"
)

// Commands understood by App.Run.
const (
	CommandRun      = "run"
	CommandValidate = "validate"
	CommandHistory  = "history"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// Command selects what App.Run does: run, validate, or history.
	Command string

	// SuitePath points at a .hcl suite file or a directory of them.
	SuitePath string

	// OverridePath, when non-empty, supersedes every experiment's override
	// file. It is forwarded verbatim.
	OverridePath string

	// RunnerCommand, when non-empty, replaces the suite's runner command.
	RunnerCommand []string

	LogFormat       string
	LogLevel        string
	LogFile         string
	HealthcheckPort int
	WorkerCount     int
	DryRun          bool
	RelayURL        string

	// Watch keeps the validate command alive, revalidating on file change.
	Watch bool

	// HistoryLimit caps the number of rows the history command prints.
	HistoryLimit int
}

// NewConfig validates a Config and applies defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.SuitePath == "" {
		return nil, errors.New("SuitePath is a required configuration field and cannot be empty")
	}

	switch cfg.Command {
	case CommandRun, CommandValidate, CommandHistory:
	case "":
		cfg.Command = CommandRun
	default:
		return nil, fmt.Errorf("unknown command %q", cfg.Command)
	}

	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 2
	}
	if cfg.HistoryLimit < 1 {
		cfg.HistoryLimit = 10
	}

	return &cfg, nil
}
