package runner

import (
	"context"
	"fmt"

	"github.com/macaw-rl/macawlab/internal/model"
)

// Handler executes a single experiment. Implementations are selected by an
// experiment's runner_type.
type Handler interface {
	Name() string
	Run(ctx context.Context, exp *model.Experiment) error
}

// Registry holds the run handlers available to a launcher instance.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler under its name, replacing any previous one.
func (r *Registry) Register(h Handler) {
	r.handlers[h.Name()] = h
}

// Get returns the handler registered under name.
func (r *Registry) Get(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Names lists the registered handler names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

// RunFunc returns the dispatch function handed to the executor. When forced
// is non-empty every experiment runs through that handler regardless of its
// declared runner_type (this is how --dry-run works).
func (r *Registry) RunFunc(forced string) func(ctx context.Context, exp *model.Experiment) error {
	return func(ctx context.Context, exp *model.Experiment) error {
		name := exp.RunnerType
		if forced != "" {
			name = forced
		}
		handler, ok := r.Get(name)
		if !ok {
			return fmt.Errorf("unknown runner type %q for experiment %q", name, exp.Name)
		}
		return handler.Run(ctx, exp)
	}
}

// Validate checks that every experiment's runner_type resolves to a
// registered handler, so misconfiguration surfaces before execution.
func (r *Registry) Validate(suite *model.Suite) error {
	for _, exp := range suite.Experiments {
		if _, ok := r.Get(exp.RunnerType); !ok {
			return fmt.Errorf("experiment %q uses unknown runner type %q (registered: %v)", exp.Name, exp.RunnerType, r.Names())
		}
	}
	return nil
}
