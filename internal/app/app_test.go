package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macaw-rl/macawlab/internal/history"
)

// writeSuiteFixture lays down a complete, valid two-experiment suite and
// returns the suite file path and its directory.
func writeSuiteFixture(t *testing.T) (suitePath, dir string) {
	t.Helper()
	dir = t.TempDir()

	files := map[string]string{
		"config/tasks.json": `{
			"env": "cheetah_vel",
			"total_tasks": 50,
			"train_tasks": [0, 1],
			"test_tasks": [2]
		}`,
		"config/alg.json":         `{"batch_size": 256}`,
		"config/no_override.json": `{}`,
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}

	suitePath = filepath.Join(dir, "suite.hcl")
	require.NoError(t, os.WriteFile(suitePath, []byte(`
defaults {
  runner      = ["python3", "-m", "run"]
  log_root    = "log"
  no_override = "config/no_override.json"
}

experiment "train" {
  task_config = "config/tasks.json"
  algo_params = "config/alg.json"
}

experiment "eval" {
  task_config = "config/tasks.json"
  algo_params = "config/alg.json"
  depends_on  = ["train"]
}
`), 0o600))
	return suitePath, dir
}

func TestNewConfig(t *testing.T) {
	t.Parallel()

	t.Run("applies defaults", func(t *testing.T) {
		cfg, err := NewConfig(Config{SuitePath: "suite.hcl"})
		require.NoError(t, err)
		assert.Equal(t, CommandRun, cfg.Command)
		assert.Equal(t, 2, cfg.WorkerCount)
		assert.Equal(t, 10, cfg.HistoryLimit)
	})

	t.Run("requires a suite path", func(t *testing.T) {
		_, err := NewConfig(Config{})
		assert.ErrorContains(t, err, "SuitePath is a required configuration field")
	})

	t.Run("rejects unknown commands", func(t *testing.T) {
		_, err := NewConfig(Config{SuitePath: "s.hcl", Command: "launch"})
		assert.ErrorContains(t, err, `unknown command "launch"`)
	})

	t.Run("keeps explicit values", func(t *testing.T) {
		cfg, err := NewConfig(Config{SuitePath: "s.hcl", Command: CommandValidate, WorkerCount: 8, HistoryLimit: 3})
		require.NoError(t, err)
		assert.Equal(t, CommandValidate, cfg.Command)
		assert.Equal(t, 8, cfg.WorkerCount)
		assert.Equal(t, 3, cfg.HistoryLimit)
	})
}

func TestNewApp_PanicsOnUnloadableSuite(t *testing.T) {
	t.Parallel()

	cfg, err := NewConfig(Config{SuitePath: filepath.Join(t.TempDir(), "missing.hcl"), LogLevel: "error"})
	require.NoError(t, err)

	assert.Panics(t, func() { NewApp(&bytes.Buffer{}, cfg) })
}

func TestApp_DryRun(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	suitePath, dir := writeSuiteFixture(t)
	cfg, err := NewConfig(Config{
		SuitePath: suitePath,
		Command:   CommandRun,
		DryRun:    true,
		LogLevel:  "error",
	})
	require.NoError(t, err)

	var out bytes.Buffer
	app := NewApp(&out, cfg)

	// --- Act ---
	err = app.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	printed := out.String()
	assert.Contains(t, printed, "python3 -m run train "+filepath.Join(dir, "log", "train"))
	assert.Contains(t, printed, "python3 -m run eval "+filepath.Join(dir, "log", "eval"))
	// Dry runs never create log directories or history.
	assert.NoDirExists(t, filepath.Join(dir, "log"))
}

func TestApp_RunExecutesRunnerCommand(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	suitePath, dir := writeSuiteFixture(t)
	cfg, err := NewConfig(Config{
		SuitePath:     suitePath,
		Command:       CommandRun,
		RunnerCommand: []string{"true"},
		LogLevel:      "error",
	})
	require.NoError(t, err)

	var out bytes.Buffer
	app := NewApp(&out, cfg)

	// --- Act ---
	err = app.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "log", "train", "resolved_params.json"))
	assert.FileExists(t, filepath.Join(dir, "log", "eval", "resolved_params.json"))
	assert.FileExists(t, filepath.Join(dir, "log", history.FileName))

	store, err := history.Open(filepath.Join(dir, "log"))
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	for _, run := range runs {
		assert.Equal(t, "succeeded", run.Status)
	}
}

func TestApp_Validate(t *testing.T) {
	t.Parallel()

	t.Run("valid suite", func(t *testing.T) {
		t.Parallel()

		// --- Arrange ---
		suitePath, _ := writeSuiteFixture(t)
		cfg, err := NewConfig(Config{SuitePath: suitePath, Command: CommandValidate, LogLevel: "error"})
		require.NoError(t, err)
		var out bytes.Buffer
		app := NewApp(&out, cfg)

		// --- Act ---
		err = app.Run(context.Background())

		// --- Assert ---
		require.NoError(t, err)
		assert.Contains(t, out.String(), "Suite OK: 2 experiment(s)")
	})

	t.Run("invalid task config", func(t *testing.T) {
		t.Parallel()

		// --- Arrange ---
		suitePath, dir := writeSuiteFixture(t)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "tasks.json"), []byte(`{"env": 7}`), 0o600))
		cfg, err := NewConfig(Config{SuitePath: suitePath, Command: CommandValidate, LogLevel: "error"})
		require.NoError(t, err)
		app := NewApp(&bytes.Buffer{}, cfg)

		// --- Act ---
		err = app.Run(context.Background())

		// --- Assert ---
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed validation")
		// The error names the suite file that declared the experiment.
		assert.Contains(t, err.Error(), "declared in "+suitePath)
	})
}

func TestApp_History(t *testing.T) {
	t.Parallel()

	t.Run("no runs recorded", func(t *testing.T) {
		t.Parallel()

		// --- Arrange ---
		suitePath, _ := writeSuiteFixture(t)
		cfg, err := NewConfig(Config{SuitePath: suitePath, Command: CommandHistory, LogLevel: "error"})
		require.NoError(t, err)
		var out bytes.Buffer
		app := NewApp(&out, cfg)

		// --- Act ---
		err = app.Run(context.Background())

		// --- Assert ---
		require.NoError(t, err)
		assert.Contains(t, out.String(), "No runs recorded yet.")
	})

	t.Run("prints recorded runs", func(t *testing.T) {
		t.Parallel()

		// --- Arrange ---
		suitePath, dir := writeSuiteFixture(t)
		store, err := history.Open(filepath.Join(dir, "log"))
		require.NoError(t, err)
		require.NoError(t, store.Begin(context.Background(), history.Run{
			ID:         "run-1",
			Experiment: "train",
			StartedAt:  time.Now(),
		}))
		require.NoError(t, store.Finish(context.Background(), "run-1", "succeeded", 0, "", 3))
		require.NoError(t, store.Close())

		cfg, err := NewConfig(Config{SuitePath: suitePath, Command: CommandHistory, LogLevel: "error"})
		require.NoError(t, err)
		var out bytes.Buffer
		app := NewApp(&out, cfg)

		// --- Act ---
		err = app.Run(context.Background())

		// --- Assert ---
		require.NoError(t, err)
		assert.Contains(t, out.String(), "EXPERIMENT")
		assert.Contains(t, out.String(), "train")
		assert.Contains(t, out.String(), "succeeded")
	})
}

func TestApp_OverrideFromCommandLine(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	suitePath, _ := writeSuiteFixture(t)
	cfg, err := NewConfig(Config{
		SuitePath:    suitePath,
		Command:      CommandRun,
		DryRun:       true,
		OverridePath: "overrides/no_norm.json",
		LogLevel:     "error",
	})
	require.NoError(t, err)

	var out bytes.Buffer
	app := NewApp(&out, cfg)

	// --- Act ---
	err = app.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	// The command-line override is forwarded verbatim, unresolved.
	assert.Contains(t, out.String(), " overrides/no_norm.json")
	for _, exp := range app.Suite().Experiments {
		assert.Equal(t, "overrides/no_norm.json", exp.Override)
	}
}
