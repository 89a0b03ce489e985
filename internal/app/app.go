package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/macaw-rl/macawlab/internal/ctxlog"
	"github.com/macaw-rl/macawlab/internal/model"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	suite  *model.Suite

	// httpServer is the health check server, when one was started.
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and a loaded,
// resolved suite.
func NewApp(outW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW, cfg.LogFile)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	suite, err := model.LoadSuite(ctx, cfg.SuitePath)
	if err != nil {
		// A failure to load the suite is a fatal startup error.
		panic(fmt.Errorf("failed to load suite: %w", err))
	}
	logger.Debug("Suite loaded and resolved.", "experiments", len(suite.Experiments))

	if cfg.OverridePath != "" {
		suite.ApplyOverride(cfg.OverridePath)
		logger.Info("Override supplied on the command line, superseding declared overrides.", "override", cfg.OverridePath)
	}

	return &App{
		outW:   outW,
		logger: logger,
		config: cfg,
		suite:  suite,
	}
}

// Suite returns the loaded suite. This is primarily for testing.
func (a *App) Suite() *model.Suite {
	return a.suite
}

// Run executes the selected command.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "command", a.config.Command)

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(a.config.HealthcheckPort)
		defer a.closeHealthcheckServer()
	}

	switch a.config.Command {
	case CommandRun:
		return a.runSuite(ctx)
	case CommandValidate:
		return a.validateSuite(ctx)
	case CommandHistory:
		return a.showHistory(ctx)
	default:
		return fmt.Errorf("unknown command %q", a.config.Command)
	}
}
