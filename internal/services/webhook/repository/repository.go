package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/hookflow/hookflow/internal/domain/webhook"
	"github.com/hookflow/hookflow/pkg/database"
)

var ErrNotFound = errors.New("webhook not found")

type WebhookRepository struct {
	db *database.DB
}

func NewWebhookRepository(db *database.DB) *WebhookRepository {
	return &WebhookRepository{db: db}
}

func (r *WebhookRepository) Create(ctx context.Context, hook *webhook.Webhook) error {
	return r.db.WithContext(ctx).Create(hook).Error
}

func (r *WebhookRepository) Update(ctx context.Context, hook *webhook.Webhook) error {
	return r.db.WithContext(ctx).Save(hook).Error
}

func (r *WebhookRepository) GetByIDAndUser(ctx context.Context, id, userID string) (*webhook.Webhook, error) {
	var hook webhook.Webhook
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&hook).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &hook, nil
}

// GetByPathID resolves the public handler path; triggers are unauthenticated
// so there is no user scoping here.
func (r *WebhookRepository) GetByPathID(ctx context.Context, pathID string) (*webhook.Webhook, error) {
	var hook webhook.Webhook
	err := r.db.WithContext(ctx).Where("path = ?", "/webhook/handler/"+pathID).First(&hook).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &hook, nil
}

func (r *WebhookRepository) ListByUser(ctx context.Context, userID string) ([]*webhook.Webhook, error) {
	var hooks []*webhook.Webhook
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&hooks).Error
	return hooks, err
}

func (r *WebhookRepository) Delete(ctx context.Context, id, userID string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&webhook.Webhook{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
