package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hookflow/hookflow/internal/domain/credential"
	"github.com/hookflow/hookflow/internal/services/credential/repository"
	"github.com/hookflow/hookflow/internal/services/credential/vault"
	"github.com/hookflow/hookflow/internal/services/executor/actions"
	"github.com/hookflow/hookflow/pkg/database"
	"github.com/hookflow/hookflow/pkg/logger"
)

type fakeVerifiers struct {
	keyErr   error
	tokenErr error
}

func (f *fakeVerifiers) VerifyKey(ctx context.Context, apiKey string) error { return f.keyErr }
func (f *fakeVerifiers) GetMe(ctx context.Context, botToken string) error   { return f.tokenErr }

func setupService(t *testing.T, verifiers *fakeVerifiers) (*CredentialService, *repository.CredentialRepository) {
	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gormDB.AutoMigrate(&credential.Credential{}))

	v, err := vault.New("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	repo := repository.NewCredentialRepository(&database.DB{DB: gormDB})
	return NewCredentialService(repo, v, verifiers, verifiers, logger.NewNop()), repo
}

func TestCreateEncryptsAtRest(t *testing.T) {
	svc, repo := setupService(t, &fakeVerifiers{})
	ctx := context.Background()

	cred, err := svc.Create(ctx, "user-1", CreateRequest{
		Title:    "my bot",
		Platform: credential.PlatformTelegram,
		Data:     map[string]interface{}{"botToken": "123:abc"},
	})
	require.NoError(t, err)
	// The service returns the secret in the clear.
	assert.Equal(t, "123:abc", cred.Data["botToken"])

	// The stored row does not.
	raw, err := repo.GetByIDAndUser(ctx, cred.ID, "user-1")
	require.NoError(t, err)
	assert.NotEqual(t, "123:abc", raw.Data["botToken"])
	assert.Equal(t, true, raw.Data["encrypted"])
}

func TestCreateValidatesPlatformData(t *testing.T) {
	svc, _ := setupService(t, &fakeVerifiers{})

	_, err := svc.Create(context.Background(), "user-1", CreateRequest{
		Title:    "broken",
		Platform: credential.PlatformEmail,
		Data:     map[string]interface{}{},
	})
	assert.ErrorIs(t, err, ErrInvalidCredential)

	_, err = svc.Create(context.Background(), "user-1", CreateRequest{
		Title:    "unknown",
		Platform: "slack",
		Data:     map[string]interface{}{"token": "x"},
	})
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestResolveReturnsMostRecentlyUpdated(t *testing.T) {
	svc, _ := setupService(t, &fakeVerifiers{})
	ctx := context.Background()

	first, err := svc.Create(ctx, "user-1", CreateRequest{
		Title:    "old key",
		Platform: credential.PlatformEmail,
		Data:     map[string]interface{}{"apiKey": "re_old"},
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, "user-1", CreateRequest{
		Title:    "new key",
		Platform: credential.PlatformEmail,
		Data:     map[string]interface{}{"apiKey": "re_new"},
	})
	require.NoError(t, err)

	// Updating the first one makes it effective again.
	data := map[string]interface{}{"apiKey": "re_rotated"}
	_, err = svc.Update(ctx, first.ID, "user-1", UpdateRequest{Data: &data})
	require.NoError(t, err)

	cred, err := svc.Resolve(ctx, "user-1", credential.PlatformEmail)
	require.NoError(t, err)
	assert.Equal(t, "re_rotated", cred.Data["apiKey"])
}

func TestResolveMissingPlatform(t *testing.T) {
	svc, _ := setupService(t, &fakeVerifiers{})

	_, err := svc.Resolve(context.Background(), "user-1", credential.PlatformTelegram)
	assert.ErrorIs(t, err, actions.ErrCredentialNotFound)
}

func TestOwnershipScoping(t *testing.T) {
	svc, _ := setupService(t, &fakeVerifiers{})
	ctx := context.Background()

	cred, err := svc.Create(ctx, "user-1", CreateRequest{
		Title:    "mine",
		Platform: credential.PlatformEmail,
		Data:     map[string]interface{}{"apiKey": "re_x"},
	})
	require.NoError(t, err)

	_, err = svc.Get(ctx, cred.ID, "user-2")
	assert.ErrorIs(t, err, ErrCredentialNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, cred.ID, "user-2"), ErrCredentialNotFound)
}

func TestTestEndpointOutcomes(t *testing.T) {
	t.Run("ValidTelegramToken", func(t *testing.T) {
		svc, _ := setupService(t, &fakeVerifiers{})
		cred, err := svc.Create(context.Background(), "user-1", CreateRequest{
			Title:    "bot",
			Platform: credential.PlatformTelegram,
			Data:     map[string]interface{}{"botToken": "123:abc"},
		})
		require.NoError(t, err)

		res, err := svc.Test(context.Background(), cred.ID, "user-1")
		require.NoError(t, err)
		assert.True(t, res.IsValid)
	})

	t.Run("InvalidResendKey", func(t *testing.T) {
		svc, _ := setupService(t, &fakeVerifiers{keyErr: errors.New("401")})
		cred, err := svc.Create(context.Background(), "user-1", CreateRequest{
			Title:    "mail",
			Platform: credential.PlatformEmail,
			Data:     map[string]interface{}{"apiKey": "re_bad"},
		})
		require.NoError(t, err)

		res, err := svc.Test(context.Background(), cred.ID, "user-1")
		require.NoError(t, err)
		assert.False(t, res.IsValid)
		assert.Contains(t, res.Error, "resend")
	})
}
