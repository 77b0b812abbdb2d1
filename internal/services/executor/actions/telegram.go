package actions

import (
	"context"
	"errors"
	"fmt"

	"github.com/hookflow/hookflow/internal/domain/credential"
	"github.com/hookflow/hookflow/internal/domain/workflow"
	"github.com/hookflow/hookflow/internal/integrations/telegram"
)

// ChatSender delivers one Bot API message with the given bot token.
type ChatSender interface {
	SendMessage(ctx context.Context, botToken string, msg telegram.Message) error
}

type telegramAction struct {
	credentials CredentialResolver
	sender      ChatSender
}

func NewTelegramAction(resolver CredentialResolver, sender ChatSender) Action {
	return &telegramAction{credentials: resolver, sender: sender}
}

func (a *telegramAction) Execute(ctx context.Context, node workflow.Node, run RunContext) error {
	chatID := stringify(node.Data["chatId"])
	message, _ := node.Data["message"].(string)

	var missing []string
	if chatID == "" {
		missing = append(missing, "chatId")
	}
	if message == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		return &MissingFieldError{NodeType: workflow.NodeTypeTelegram, Fields: missing}
	}

	cred, err := a.credentials.Resolve(ctx, run.UserID, credential.PlatformTelegram)
	if err != nil {
		if errors.Is(err, ErrCredentialNotFound) {
			return &CredentialMissingError{Platform: credential.PlatformTelegram}
		}
		return fmt.Errorf("resolve telegram credential: %w", err)
	}

	botToken, _ := cred.Data["botToken"].(string)
	if botToken == "" {
		return &CredentialMissingError{Platform: credential.PlatformTelegram}
	}

	parseMode, _ := node.Data["parseMode"].(string)
	if parseMode == "" {
		parseMode = "HTML"
	}

	msg := telegram.Message{
		ChatID:    chatID,
		Text:      message,
		ParseMode: parseMode,
	}
	if err := a.sender.SendMessage(ctx, botToken, msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

// stringify tolerates numeric chat ids arriving from JSON editors.
func stringify(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return fmt.Sprintf("%.0f", val)
	case int:
		return fmt.Sprintf("%d", val)
	default:
		return ""
	}
}
