package runner

import (
	"context"
	"io"
	"os"
	"os/exec"
)

// CommandRunner is the interface for starting external processes. Tests
// substitute a fake to exercise the launcher without a Python installation.
type CommandRunner interface {
	Start(ctx context.Context, name string, args, extraEnv []string) (stdout, stderr io.ReadCloser, wait func() error, err error)
}

// ExecCommandRunner uses os/exec.
type ExecCommandRunner struct{}

// Start starts a command with the process environment plus extraEnv. The
// command is killed when ctx is cancelled.
func (ExecCommandRunner) Start(ctx context.Context, name string, args, extraEnv []string) (stdout, stderr io.ReadCloser, wait func() error, err error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if len(extraEnv) > 0 {
		cmd.Env = append(os.Environ(), extraEnv...)
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, nil, err
	}

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, nil, err
	}

	return stdoutPipe, stderrPipe, cmd.Wait, nil
}
