package notification

import (
	"context"
	"fmt"

	"github.com/hookflow/hookflow/internal/domain/user"
	"github.com/hookflow/hookflow/internal/integrations/email"
	"github.com/hookflow/hookflow/pkg/logger"
	"github.com/hookflow/hookflow/pkg/resilience"
)

// UserStore looks up the account that owns a workflow.
type UserStore interface {
	GetUserByID(ctx context.Context, id string) (*user.User, error)
}

// Sender delivers a message with the platform's own API key, not a user
// credential.
type Sender interface {
	Send(ctx context.Context, apiKey string, msg email.Message) error
}

// Notifier emails workflow owners about failed runs. Delivery is best
// effort: a notification problem never changes an execution's outcome.
type Notifier struct {
	users  UserStore
	sender Sender
	apiKey string
	from   string
	logger logger.Logger
}

func New(users UserStore, sender Sender, apiKey, from string, log logger.Logger) *Notifier {
	return &Notifier{users: users, sender: sender, apiKey: apiKey, from: from, logger: log}
}

func (n *Notifier) RunFailed(ctx context.Context, userID, workflowTitle, reason string) {
	if n.apiKey == "" {
		n.logger.Debug("system email key not configured, skipping failure notification")
		return
	}

	owner, err := n.users.GetUserByID(ctx, userID)
	if err != nil {
		n.logger.Warn("failed to load workflow owner for notification", "userId", userID, "error", err)
		return
	}

	msg := email.Message{
		From:    n.from,
		To:      []string{owner.Email},
		Subject: fmt.Sprintf("Workflow %q failed", workflowTitle),
		HTML: fmt.Sprintf(
			"<p>Hi %s,</p><p>Your workflow <strong>%s</strong> failed to complete.</p><p>Reason: %s</p>",
			owner.Name, workflowTitle, reason,
		),
	}
	err = resilience.Retry(ctx, resilience.DefaultRetryConfig(), func() error {
		return n.sender.Send(ctx, n.apiKey, msg)
	})
	if err != nil {
		n.logger.Warn("failed to send failure notification", "userId", userID, "error", err)
		return
	}
	n.logger.Info("failure notification sent", "userId", userID, "workflow", workflowTitle)
}
