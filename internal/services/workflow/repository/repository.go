package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/hookflow/hookflow/internal/domain/workflow"
	"github.com/hookflow/hookflow/pkg/database"
)

var ErrNotFound = errors.New("workflow not found")

type WorkflowRepository struct {
	db *database.DB
}

func NewWorkflowRepository(db *database.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

func (r *WorkflowRepository) Create(ctx context.Context, wf *workflow.Workflow) error {
	return r.db.WithContext(ctx).Create(wf).Error
}

func (r *WorkflowRepository) Update(ctx context.Context, wf *workflow.Workflow) error {
	return r.db.WithContext(ctx).Save(wf).Error
}

func (r *WorkflowRepository) GetByIDAndUser(ctx context.Context, id, userID string) (*workflow.Workflow, error) {
	var wf workflow.Workflow
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&wf).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &wf, nil
}

func (r *WorkflowRepository) ListByUser(ctx context.Context, userID string) ([]*workflow.Workflow, error) {
	var workflows []*workflow.Workflow
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&workflows).Error
	return workflows, err
}

func (r *WorkflowRepository) Delete(ctx context.Context, id, userID string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&workflow.Workflow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
