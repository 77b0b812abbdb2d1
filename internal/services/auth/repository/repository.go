package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/hookflow/hookflow/internal/domain/user"
	"github.com/hookflow/hookflow/pkg/database"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrOtpNotFound  = errors.New("otp token not found")
)

type AuthRepository struct {
	db *database.DB
}

func NewAuthRepository(db *database.DB) *AuthRepository {
	return &AuthRepository{db: db}
}

func (r *AuthRepository) CreateUser(ctx context.Context, u *user.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *AuthRepository) UpdateUser(ctx context.Context, u *user.User) error {
	return r.db.WithContext(ctx).Save(u).Error
}

func (r *AuthRepository) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	var u user.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *AuthRepository) GetUserByID(ctx context.Context, id string) (*user.User, error) {
	var u user.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SaveOtp replaces any outstanding code for the email; only the latest one
// is redeemable.
func (r *AuthRepository) SaveOtp(ctx context.Context, token *user.OtpToken) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ?", token.Email).Delete(&user.OtpToken{}).Error; err != nil {
			return err
		}
		return tx.Create(token).Error
	})
}

func (r *AuthRepository) GetOtp(ctx context.Context, email string) (*user.OtpToken, error) {
	var token user.OtpToken
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		Order("created_at DESC").
		First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOtpNotFound
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *AuthRepository) DeleteOtp(ctx context.Context, email string) error {
	return r.db.WithContext(ctx).Where("email = ?", email).Delete(&user.OtpToken{}).Error
}
