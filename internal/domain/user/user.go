package user

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	Email      string    `json:"email" gorm:"uniqueIndex;not null"`
	Password   string    `json:"-" gorm:"not null"`
	Name       string    `json:"name"`
	IsVerified bool      `json:"isVerified" gorm:"default:false"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func New(email, passwordHash, name string) *User {
	return &User{
		ID:       uuid.New().String(),
		Email:    email,
		Password: passwordHash,
		Name:     name,
	}
}

// OtpToken is a short-lived signup verification code.
type OtpToken struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Email     string    `json:"email" gorm:"index;not null"`
	Token     string    `json:"-" gorm:"not null"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewOtpToken(email, token string, ttl time.Duration) *OtpToken {
	return &OtpToken{
		ID:        uuid.New().String(),
		Email:     email,
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}
}

func (t *OtpToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
