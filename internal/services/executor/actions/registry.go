package actions

import (
	"context"
	"sync"

	"github.com/hookflow/hookflow/internal/domain/workflow"
	"github.com/hookflow/hookflow/pkg/logger"
)

// Registry maps node types to their actions. Unknown types resolve to a
// shared no-op so a workflow containing a type this build does not know
// still runs to completion.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]Action
	noop    Action
	logger  logger.Logger
}

func NewRegistry(log logger.Logger) *Registry {
	return &Registry{
		actions: make(map[string]Action),
		noop:    NoOp(),
		logger:  log,
	}
}

func (r *Registry) Register(nodeType string, action Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[nodeType] = action
}

// Resolve never fails; unregistered types get the no-op and a warning.
func (r *Registry) Resolve(nodeType string) Action {
	r.mu.RLock()
	action, ok := r.actions[nodeType]
	r.mu.RUnlock()

	if !ok {
		r.logger.Warn("unknown node type, executing as no-op", "nodeType", nodeType)
		return r.noop
	}
	return action
}

func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.actions))
	for t := range r.actions {
		types = append(types, t)
	}
	return types
}

// NoOp returns an action that does nothing. Structural nodes (start, end,
// webhook trigger markers) use it: their meaning lives in the graph, not
// in a side effect.
func NoOp() Action {
	return ActionFunc(func(ctx context.Context, node workflow.Node, run RunContext) error {
		return nil
	})
}

// NewDefaultRegistry wires the built-in node set.
func NewDefaultRegistry(resolver CredentialResolver, mail EmailSender, chat ChatSender, defaultFrom string, log logger.Logger) *Registry {
	r := NewRegistry(log)
	r.Register(workflow.NodeTypeStart, NoOp())
	r.Register(workflow.NodeTypeEnd, NoOp())
	r.Register(workflow.NodeTypeWebhook, NoOp())
	r.Register(workflow.NodeTypeEmail, NewEmailAction(resolver, mail, defaultFrom))
	r.Register(workflow.NodeTypeTelegram, NewTelegramAction(resolver, chat))
	return r
}
