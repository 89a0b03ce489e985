package model

// Defaults is the resolved representation of the optional `defaults` block.
// At most one defaults block may appear across the whole suite.
type Defaults struct {
	// Runner is the command prefix the five positional values are appended
	// to, e.g. ["python3", "-m", "run"].
	Runner []string

	// LogRoot is the directory experiment log dirs default into.
	LogRoot string

	// NoOverride is the designated "no override" file used when an
	// experiment block declares no override of its own.
	NoOverride string

	// RunnerType is the default run handler for experiments that do not set
	// their own.
	RunnerType string
}

// defaultRunner is used when no defaults block declares one.
var defaultRunner = []string{"python3", "-m", "run"}

const (
	defaultLogRoot    = "log"
	defaultRunnerType = "local"
)
