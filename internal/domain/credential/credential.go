package credential

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Platforms a credential can belong to. A user keeps at most one effective
// credential per platform; lookups take the most recently updated.
const (
	PlatformEmail    = "email"
	PlatformTelegram = "telegram"
	PlatformWebhook  = "webhook"
)

type Credential struct {
	ID        string                 `json:"id" gorm:"primaryKey"`
	Title     string                 `json:"title" gorm:"not null"`
	Platform  string                 `json:"platform" gorm:"not null;index"`
	Data      map[string]interface{} `json:"data" gorm:"serializer:json"`
	UserID    string                 `json:"userId" gorm:"not null;index"`
	CreatedAt time.Time              `json:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

func New(title, platform, userID string, data map[string]interface{}) *Credential {
	if data == nil {
		data = make(map[string]interface{})
	}
	return &Credential{
		ID:       uuid.New().String(),
		Title:    title,
		Platform: platform,
		Data:     data,
		UserID:   userID,
	}
}

func (c *Credential) Validate() error {
	if c.Title == "" {
		return errors.New("credential title is required")
	}
	if c.UserID == "" {
		return errors.New("user id is required")
	}

	switch c.Platform {
	case PlatformEmail:
		if s, _ := c.Data["apiKey"].(string); s == "" {
			return errors.New("email credential requires apiKey")
		}
	case PlatformTelegram:
		if s, _ := c.Data["botToken"].(string); s == "" {
			return errors.New("telegram credential requires botToken")
		}
	case PlatformWebhook:
		// Webhook credentials carry free-form data.
	default:
		return errors.New("unsupported credential platform")
	}

	return nil
}

// SecretField names the data key that holds the platform's secret,
// the one field encrypted at rest.
func SecretField(platform string) string {
	switch platform {
	case PlatformEmail:
		return "apiKey"
	case PlatformTelegram:
		return "botToken"
	default:
		return ""
	}
}
