package dag

import (
	"sync"
	"sync/atomic"

	"github.com/macaw-rl/macawlab/internal/model"
)

// NodeState represents the execution state of a node.
type NodeState int32

const (
	// Pending means the node has not been picked up by a worker yet.
	Pending NodeState = iota
	// Running means the node's experiment is currently executing.
	Running
	// Done means the node completed successfully.
	Done
	// Failed means the node's experiment returned an error.
	Failed
	// Skipped means the node never ran because an upstream dependency
	// failed or the run was cancelled.
	Skipped
)

// String returns the lowercase name of the state, as stored in run history.
func (s NodeState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Done:
		return "succeeded"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Node represents a single experiment in the execution graph.
type Node struct {
	// ID is the experiment name; suite loading guarantees uniqueness.
	ID string

	// Experiment is the resolved configuration this node executes.
	Experiment *model.Experiment

	// Deps holds the nodes this node depends on (predecessors).
	Deps map[string]*Node

	// Dependents holds the nodes that depend on this node (successors).
	Dependents map[string]*Node

	// State tracks execution state transitions atomically.
	State atomic.Int32

	// Error records why the node failed or was skipped.
	Error error

	// depCount is decremented as dependencies finish; the node becomes
	// ready at zero.
	depCount atomic.Int32

	// skipOnce guards the failure/skip path so a node is only ever
	// accounted for once in the executor's WaitGroup.
	skipOnce sync.Once
}

// SetInitialCounters primes the dependency counter before execution starts.
func (n *Node) SetInitialCounters() {
	n.depCount.Store(int32(len(n.Deps)))
}

// Graph is the validated dependency graph of a suite.
type Graph struct {
	// Nodes stores all nodes keyed by experiment name.
	Nodes map[string]*Node

	// Order is a stable topological ordering of the node IDs, used for
	// deterministic reporting.
	Order []string
}
