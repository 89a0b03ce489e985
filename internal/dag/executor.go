package dag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/macaw-rl/macawlab/internal/ctxlog"
	"github.com/macaw-rl/macawlab/internal/model"
)

// RunFunc executes a single experiment. The executor is deliberately
// ignorant of how experiments run; the runner package supplies this.
type RunFunc func(ctx context.Context, exp *model.Experiment) error

// Executor walks a Graph concurrently with a fixed-size worker pool.
type Executor struct {
	graph      *Graph
	numWorkers int
	run        RunFunc
	wg         sync.WaitGroup
}

// NewExecutor creates an Executor for the given graph.
func NewExecutor(g *Graph, workers int, run RunFunc) *Executor {
	if workers < 1 {
		workers = 1
	}
	return &Executor{
		graph:      g,
		numWorkers: workers,
		run:        run,
	}
}

// Run executes the entire graph concurrently and returns an error if any
// node fails. A failed node skips its transitive dependents but does not
// stop unrelated experiments; only context cancellation stops the run.
func (e *Executor) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	readyChan := make(chan *Node, len(e.graph.Nodes))

	logger.Debug("Initializing executor, finding root nodes...")
	rootNodeCount := 0
	for _, node := range e.graph.Nodes {
		if node.depCount.Load() == 0 {
			logger.Debug("Found root node.", "nodeID", node.ID)
			readyChan <- node
			rootNodeCount++
		}
	}
	logger.Debug("Found all root nodes.", "count", rootNodeCount)

	e.wg.Add(len(e.graph.Nodes))

	logger.Debug("Starting worker pool.", "workers", e.numWorkers)
	for i := 0; i < e.numWorkers; i++ {
		go e.worker(ctx, readyChan, i)
	}

	logger.Info("Waiting for all experiments to complete...")
	e.wg.Wait()
	close(readyChan)
	logger.Info("All experiments completed.")

	return e.collectErrors(ctx)
}

// collectErrors walks the finished graph in stable order and reports every
// failure, wrapping the first real failure as the root cause. Skips are
// symptoms, not causes, and never become the root cause themselves.
func (e *Executor) collectErrors(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	var failedNodes []string
	var rootCauseError error
	for _, id := range e.graph.Order {
		node := e.graph.Nodes[id]
		switch NodeState(node.State.Load()) {
		case Failed:
			logger.Error("Experiment failed.", "nodeID", node.ID, "error", node.Error)
			failedNodes = append(failedNodes, node.ID)
			if rootCauseError == nil && node.Error != nil && !errors.Is(node.Error, context.Canceled) {
				rootCauseError = node.Error
			}
		case Skipped:
			logger.Warn("Experiment skipped.", "nodeID", node.ID, "reason", node.Error)
		}
	}

	if rootCauseError != nil {
		return fmt.Errorf("execution failed for %s: %w", strings.Join(failedNodes, ", "), rootCauseError)
	}
	if ctx.Err() != nil {
		return fmt.Errorf("execution interrupted: %w", ctx.Err())
	}
	return nil
}

// skipNode marks a node as skipped exactly once, accounting for it in the
// WaitGroup and cascading to its dependents. A node can reach this path
// twice (an upstream failure and a later cancellation, say), hence the Once.
func (e *Executor) skipNode(ctx context.Context, node *Node, cause error) {
	node.skipOnce.Do(func() {
		node.State.Store(int32(Skipped))
		node.Error = cause
		e.wg.Done()
		e.skipDependents(ctx, node)
	})
}

// skipDependents recursively marks all downstream nodes as skipped.
func (e *Executor) skipDependents(ctx context.Context, node *Node) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range node.Dependents {
		logger.Warn("Skipping dependent experiment.", "nodeID", dependent.ID, "dependency", node.ID)
		e.skipNode(ctx, dependent, fmt.Errorf("skipped due to upstream failure of '%s'", node.ID))
	}
}

// worker is the core processing loop for a single concurrent worker.
func (e *Executor) worker(ctx context.Context, readyChan chan *Node, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for node := range readyChan {
		workerLogger := logger.With("workerID", workerID, "nodeID", node.ID)

		if ctx.Err() != nil {
			workerLogger.Warn("Context canceled, skipping experiment.")
			e.skipNode(ctx, node, ctx.Err())
			continue
		}

		// A node can land on the ready channel after an upstream failure
		// already skipped it, when its remaining dependencies succeed. The
		// CAS keeps such nodes from running or being accounted twice.
		if !node.State.CompareAndSwap(int32(Pending), int32(Running)) {
			workerLogger.Debug("Experiment already settled, ignoring.", "state", NodeState(node.State.Load()).String())
			continue
		}

		workerLogger.Debug("Worker picked up experiment.")
		err := e.run(ctx, node.Experiment)

		if err != nil {
			workerLogger.Error("Experiment execution failed.", "error", err)
			node.State.Store(int32(Failed))
			node.Error = err
			e.skipDependents(ctx, node)
			e.wg.Done()
			continue
		}

		workerLogger.Debug("Experiment execution succeeded.")
		node.State.Store(int32(Done))

		for _, dependent := range node.Dependents {
			if dependent.depCount.Add(-1) == 0 {
				workerLogger.Debug("Unlocking dependent experiment.", "dependentID", dependent.ID)
				readyChan <- dependent
			}
		}

		e.wg.Done()
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}
