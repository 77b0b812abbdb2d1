package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/hookflow/hookflow/internal/domain/workflow"
	"github.com/hookflow/hookflow/internal/services/executor/actions"
	"github.com/hookflow/hookflow/pkg/logger"
	"github.com/hookflow/hookflow/pkg/metrics"
)

// ErrNoStartNode means the workflow cannot be run until a start node is added.
var ErrNoStartNode = errors.New("no start node found in workflow")

// Engine walks a workflow graph depth-first from the start node, running
// each reachable node's action exactly once. The visited set makes cycles
// and diamond fan-ins terminate.
type Engine struct {
	registry *actions.Registry
	logger   logger.Logger
}

func New(registry *actions.Registry, log logger.Logger) *Engine {
	return &Engine{registry: registry, logger: log}
}

// Run returns how many nodes executed. On an action error the walk stops
// immediately; visited still counts the failing node.
func (e *Engine) Run(ctx context.Context, wf *workflow.Workflow, run actions.RunContext) (int, error) {
	start := wf.StartNode()
	if start == nil {
		return 0, ErrNoStartNode
	}

	nodes := make(map[string]workflow.Node, len(wf.Nodes))
	for _, n := range wf.Nodes {
		nodes[n.ID] = n
	}

	// Adjacency in connection-collection order; fan-out follows it.
	next := make(map[string][]string, len(wf.Connections))
	for _, c := range wf.Connections {
		next[c.Source] = append(next[c.Source], c.Target)
	}

	visited := make(map[string]struct{}, len(wf.Nodes))

	var visit func(node workflow.Node) error
	visit = func(node workflow.Node) error {
		if _, seen := visited[node.ID]; seen {
			return nil
		}
		visited[node.ID] = struct{}{}

		if err := ctx.Err(); err != nil {
			return err
		}

		e.logger.Debug("executing node",
			"executionId", run.ExecutionID, "nodeId", node.ID, "nodeType", node.Type)

		if err := e.registry.Resolve(node.Type).Execute(ctx, node, run); err != nil {
			metrics.NodeExecutionsTotal.WithLabelValues(node.Type, "failed").Inc()
			return fmt.Errorf("node %s (%s): %w", node.ID, node.Type, err)
		}
		metrics.NodeExecutionsTotal.WithLabelValues(node.Type, "completed").Inc()

		for _, targetID := range next[node.ID] {
			target, ok := nodes[targetID]
			if !ok {
				// Dangling connection, nothing to run.
				continue
			}
			if err := visit(target); err != nil {
				return err
			}
		}
		return nil
	}

	if err := visit(*start); err != nil {
		return len(visited), err
	}
	return len(visited), nil
}
