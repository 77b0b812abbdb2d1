package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	m := NewManager("test-secret", 24, "hookflow")

	token, err := m.Generate("user-1", "sam@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "sam@example.com", claims.Email)
	assert.Equal(t, "hookflow", claims.Issuer)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := NewManager("secret-a", 24, "hookflow").Generate("user-1", "sam@example.com")
	require.NoError(t, err)

	_, err = NewManager("secret-b", 24, "hookflow").Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpired(t *testing.T) {
	m := NewManager("test-secret", -1, "hookflow")
	m.expiry = -time.Hour

	token, err := m.Generate("user-1", "sam@example.com")
	require.NoError(t, err)

	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsGarbage(t *testing.T) {
	m := NewManager("test-secret", 24, "hookflow")
	_, err := m.Validate("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
