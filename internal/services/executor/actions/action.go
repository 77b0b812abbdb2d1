package actions

import (
	"context"

	"github.com/hookflow/hookflow/internal/domain/credential"
	"github.com/hookflow/hookflow/internal/domain/workflow"
)

// RunContext carries the identity of the run a node executes within.
type RunContext struct {
	ExecutionID string
	WorkflowID  string
	UserID      string
	Input       map[string]interface{}
}

// Action performs the side effect of a single node type.
type Action interface {
	Execute(ctx context.Context, node workflow.Node, run RunContext) error
}

// ActionFunc adapts a function to the Action interface.
type ActionFunc func(ctx context.Context, node workflow.Node, run RunContext) error

func (f ActionFunc) Execute(ctx context.Context, node workflow.Node, run RunContext) error {
	return f(ctx, node, run)
}

// CredentialResolver finds the effective credential of a user for a
// platform, with its secret already decrypted.
type CredentialResolver interface {
	Resolve(ctx context.Context, userID, platform string) (*credential.Credential, error)
}
