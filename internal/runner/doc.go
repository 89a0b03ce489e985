// Package runner launches the downstream training engine. It owns the
// subprocess contract (the five positional values appended to the runner
// command) plus output streaming into the experiment's log directory,
// metric line detection, and the registry of run handlers ("local",
// "dryrun") that experiments select with runner_type.
package runner
