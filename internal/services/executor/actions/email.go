package actions

import (
	"context"
	"errors"
	"fmt"

	"github.com/hookflow/hookflow/internal/domain/credential"
	"github.com/hookflow/hookflow/internal/domain/workflow"
	"github.com/hookflow/hookflow/internal/integrations/email"
)

// EmailSender sends one message with the given Resend API key.
type EmailSender interface {
	Send(ctx context.Context, apiKey string, msg email.Message) error
}

// ErrCredentialNotFound is what resolvers return when the user has no
// credential for the requested platform.
var ErrCredentialNotFound = errors.New("credential not found")

type emailAction struct {
	credentials CredentialResolver
	sender      EmailSender
	defaultFrom string
}

func NewEmailAction(resolver CredentialResolver, sender EmailSender, defaultFrom string) Action {
	return &emailAction{credentials: resolver, sender: sender, defaultFrom: defaultFrom}
}

func (a *emailAction) Execute(ctx context.Context, node workflow.Node, run RunContext) error {
	to, _ := node.Data["to"].(string)
	subject, _ := node.Data["subject"].(string)
	body, _ := node.Data["body"].(string)

	var missing []string
	if to == "" {
		missing = append(missing, "to")
	}
	if subject == "" {
		missing = append(missing, "subject")
	}
	if body == "" {
		missing = append(missing, "body")
	}
	if len(missing) > 0 {
		return &MissingFieldError{NodeType: workflow.NodeTypeEmail, Fields: missing}
	}

	cred, err := a.credentials.Resolve(ctx, run.UserID, credential.PlatformEmail)
	if err != nil {
		if errors.Is(err, ErrCredentialNotFound) {
			return &CredentialMissingError{Platform: credential.PlatformEmail}
		}
		return fmt.Errorf("resolve email credential: %w", err)
	}

	apiKey, _ := cred.Data["apiKey"].(string)
	if apiKey == "" {
		return &CredentialMissingError{Platform: credential.PlatformEmail}
	}

	from, _ := node.Data["from"].(string)
	if from == "" {
		from = a.defaultFrom
	}

	msg := email.Message{
		From:    from,
		To:      []string{to},
		Subject: subject,
		HTML:    body,
	}
	if err := a.sender.Send(ctx, apiKey, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
