// This file defines the Experiment structure, the atomic unit of work in a
// suite. It represents a single, configured invocation of the downstream
// training runner.
//
// Why the Experiment struct?
//
// An `experiment` block in a suite file captures the user's intent: which
// task configuration to train on, which algorithm parameters to use, and
// which override file (if any) supersedes those parameters. The launcher's
// only contract with the training engine is the five positional values this
// struct carries, so the struct is deliberately small and fully resolved:
// by the time an Experiment exists, every path has been defaulted and made
// absolute against its defining file, and no further interpretation happens
// downstream.
package model

import (
	"time"
)

// Experiment is the resolved representation of an `experiment` block.
type Experiment struct {
	// Name is the experiment label, unique within a suite.
	Name string

	// The five values forwarded to the runner, in positional order.
	LogDir     string
	TaskConfig string
	AlgoParams string
	Override   string

	// OverrideExplicit records whether the override path was declared on the
	// block itself rather than inherited from defaults.no_override.
	OverrideExplicit bool

	// DependsOn lists names of experiments that must finish first.
	DependsOn []string

	// Env holds extra environment variables for the runner process.
	Env map[string]string

	// Timeout bounds the runner process. Zero means no limit.
	Timeout time.Duration

	// RunnerType selects the registered run handler. Defaults to "local".
	RunnerType string

	// SourceFile is the suite file this experiment was declared in.
	SourceFile string
}

// ForwardArgs returns the five positional values passed to the downstream
// runner, in the fixed order it expects: name, log directory, task config,
// algorithm params, override.
func (e *Experiment) ForwardArgs() []string {
	return []string{e.Name, e.LogDir, e.TaskConfig, e.AlgoParams, e.Override}
}
