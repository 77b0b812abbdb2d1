package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/hookflow/hookflow/internal/domain/credential"
	"github.com/hookflow/hookflow/internal/integrations/email"
	"github.com/hookflow/hookflow/internal/integrations/telegram"
	"github.com/hookflow/hookflow/internal/services/credential/repository"
	"github.com/hookflow/hookflow/internal/services/credential/vault"
	"github.com/hookflow/hookflow/internal/services/executor/actions"
	"github.com/hookflow/hookflow/pkg/logger"
)

var (
	ErrCredentialNotFound = errors.New("credential not found")
	ErrInvalidCredential  = errors.New("invalid credential")
)

// KeyVerifier checks a Resend API key; implemented by the email client.
type KeyVerifier interface {
	VerifyKey(ctx context.Context, apiKey string) error
}

// TokenVerifier checks a Telegram bot token; implemented by the bot client.
type TokenVerifier interface {
	GetMe(ctx context.Context, botToken string) error
}

type CredentialService struct {
	repo   *repository.CredentialRepository
	vault  *vault.Vault
	mail   KeyVerifier
	chat   TokenVerifier
	logger logger.Logger
}

func NewCredentialService(repo *repository.CredentialRepository, v *vault.Vault, mail KeyVerifier, chat TokenVerifier, log logger.Logger) *CredentialService {
	return &CredentialService{repo: repo, vault: v, mail: mail, chat: chat, logger: log}
}

type CreateRequest struct {
	Title    string                 `json:"title" binding:"required"`
	Platform string                 `json:"platform" binding:"required"`
	Data     map[string]interface{} `json:"data" binding:"required"`
}

type UpdateRequest struct {
	Title *string                 `json:"title"`
	Data  *map[string]interface{} `json:"data"`
}

func (s *CredentialService) Create(ctx context.Context, userID string, req CreateRequest) (*credential.Credential, error) {
	cred := credential.New(req.Title, req.Platform, userID, req.Data)
	if err := cred.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCredential, err)
	}

	if err := s.vault.EncryptCredential(cred); err != nil {
		return nil, fmt.Errorf("encrypt credential: %w", err)
	}
	if err := s.repo.Create(ctx, cred); err != nil {
		return nil, fmt.Errorf("create credential: %w", err)
	}

	s.logger.Info("credential created", "credentialId", cred.ID, "platform", cred.Platform)
	return s.decrypted(cred)
}

func (s *CredentialService) Update(ctx context.Context, id, userID string, req UpdateRequest) (*credential.Credential, error) {
	cred, err := s.repo.GetByIDAndUser(ctx, id, userID)
	if err != nil {
		return nil, s.mapNotFound(err)
	}

	if req.Title != nil {
		cred.Title = *req.Title
	}
	if req.Data != nil {
		cred.Data = *req.Data
	}

	if err := cred.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCredential, err)
	}

	if req.Data != nil {
		if err := s.vault.EncryptCredential(cred); err != nil {
			return nil, fmt.Errorf("encrypt credential: %w", err)
		}
	}
	if err := s.repo.Update(ctx, cred); err != nil {
		return nil, fmt.Errorf("update credential: %w", err)
	}
	return s.decrypted(cred)
}

func (s *CredentialService) Get(ctx context.Context, id, userID string) (*credential.Credential, error) {
	cred, err := s.repo.GetByIDAndUser(ctx, id, userID)
	if err != nil {
		return nil, s.mapNotFound(err)
	}
	return s.decrypted(cred)
}

func (s *CredentialService) List(ctx context.Context, userID string) ([]*credential.Credential, error) {
	creds, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, cred := range creds {
		if err := s.vault.DecryptCredential(cred); err != nil {
			return nil, fmt.Errorf("decrypt credential %s: %w", cred.ID, err)
		}
	}
	return creds, nil
}

func (s *CredentialService) Delete(ctx context.Context, id, userID string) error {
	return s.mapNotFound(s.repo.Delete(ctx, id, userID))
}

// Resolve implements actions.CredentialResolver: the executor asks for the
// effective credential of (user, platform) with its secret in the clear.
func (s *CredentialService) Resolve(ctx context.Context, userID, platform string) (*credential.Credential, error) {
	cred, err := s.repo.FindByUserAndPlatform(ctx, userID, platform)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, actions.ErrCredentialNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.decrypted(cred)
}

// TestResult reports whether the stored secret still works against the
// provider.
type TestResult struct {
	IsValid bool   `json:"isValid"`
	Error   string `json:"error,omitempty"`
}

func (s *CredentialService) Test(ctx context.Context, id, userID string) (*TestResult, error) {
	cred, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	switch cred.Platform {
	case credential.PlatformTelegram:
		token, _ := cred.Data["botToken"].(string)
		if err := s.chat.GetMe(ctx, token); err != nil {
			return &TestResult{IsValid: false, Error: "invalid telegram bot token"}, nil
		}
	case credential.PlatformEmail:
		apiKey, _ := cred.Data["apiKey"].(string)
		if err := s.mail.VerifyKey(ctx, apiKey); err != nil {
			return &TestResult{IsValid: false, Error: "invalid resend api key"}, nil
		}
	default:
		return &TestResult{IsValid: false, Error: "platform does not support testing"}, nil
	}

	return &TestResult{IsValid: true}, nil
}

func (s *CredentialService) decrypted(cred *credential.Credential) (*credential.Credential, error) {
	if err := s.vault.DecryptCredential(cred); err != nil {
		return nil, fmt.Errorf("decrypt credential: %w", err)
	}
	return cred, nil
}

func (s *CredentialService) mapNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrCredentialNotFound
	}
	return err
}

var (
	_ actions.CredentialResolver = (*CredentialService)(nil)
	_ KeyVerifier                = (*email.Client)(nil)
	_ TokenVerifier              = (*telegram.Client)(nil)
)
