package dag

import (
	"context"
	"errors"
	"fmt"

	"github.com/dominikbraun/graph"

	"github.com/macaw-rl/macawlab/internal/ctxlog"
	"github.com/macaw-rl/macawlab/internal/model"
)

// Build constructs a complete, validated dependency graph from a suite.
func Build(ctx context.Context, suite *model.Suite) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.")

	g := &Graph{Nodes: make(map[string]*Node)}

	// First pass: create all nodes. Suite loading already rejected
	// duplicate names and unknown depends_on targets.
	dg := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())
	for _, exp := range suite.Experiments {
		g.Nodes[exp.Name] = &Node{
			ID:         exp.Name,
			Experiment: exp,
			Deps:       make(map[string]*Node),
			Dependents: make(map[string]*Node),
		}
		if err := dg.AddVertex(exp.Name); err != nil {
			return nil, fmt.Errorf("failed to add experiment %q to graph: %w", exp.Name, err)
		}
	}
	logger.Debug("Build: Node creation complete.", "node_count", len(g.Nodes))

	// Second pass: link dependencies. PreventCycles makes edge insertion
	// reject any edge that would close a cycle.
	for _, exp := range suite.Experiments {
		node := g.Nodes[exp.Name]
		for _, depName := range exp.DependsOn {
			dep := g.Nodes[depName]
			if err := dg.AddEdge(depName, exp.Name); err != nil {
				if errors.Is(err, graph.ErrEdgeCreatesCycle) {
					return nil, fmt.Errorf("dependency cycle detected involving %q and %q", depName, exp.Name)
				}
				if errors.Is(err, graph.ErrEdgeAlreadyExists) {
					continue
				}
				return nil, fmt.Errorf("failed to link %q -> %q: %w", depName, exp.Name, err)
			}
			node.Deps[depName] = dep
			dep.Dependents[exp.Name] = node
		}
	}
	logger.Debug("Build: Node linking complete.")

	// Third pass: initialize counters and capture a stable ordering.
	for _, node := range g.Nodes {
		node.SetInitialCounters()
	}
	order, err := graph.StableTopologicalSort(dg, func(a, b string) bool { return a < b })
	if err != nil {
		return nil, fmt.Errorf("error validating dependency graph: %w", err)
	}
	g.Order = order
	logger.Debug("Build: Topological ordering established.", "order", order)

	logger.Debug("Build: Graph construction successful.")
	return g, nil
}
