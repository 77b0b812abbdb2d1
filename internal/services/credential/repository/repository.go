package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/hookflow/hookflow/internal/domain/credential"
	"github.com/hookflow/hookflow/pkg/database"
)

var ErrNotFound = errors.New("credential not found")

type CredentialRepository struct {
	db *database.DB
}

func NewCredentialRepository(db *database.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

func (r *CredentialRepository) Create(ctx context.Context, cred *credential.Credential) error {
	return r.db.WithContext(ctx).Create(cred).Error
}

func (r *CredentialRepository) Update(ctx context.Context, cred *credential.Credential) error {
	return r.db.WithContext(ctx).Save(cred).Error
}

func (r *CredentialRepository) GetByIDAndUser(ctx context.Context, id, userID string) (*credential.Credential, error) {
	var cred credential.Credential
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *CredentialRepository) ListByUser(ctx context.Context, userID string) ([]*credential.Credential, error) {
	var creds []*credential.Credential
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&creds).Error
	return creds, err
}

// FindByUserAndPlatform returns the user's effective credential for a
// platform: the most recently updated one.
func (r *CredentialRepository) FindByUserAndPlatform(ctx context.Context, userID, platform string) (*credential.Credential, error) {
	var cred credential.Credential
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND platform = ?", userID, platform).
		Order("updated_at DESC").
		First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *CredentialRepository) Delete(ctx context.Context, id, userID string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&credential.Credential{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
