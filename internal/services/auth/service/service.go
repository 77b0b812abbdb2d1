package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hookflow/hookflow/internal/domain/user"
	"github.com/hookflow/hookflow/internal/integrations/email"
	"github.com/hookflow/hookflow/internal/services/auth/jwt"
	"github.com/hookflow/hookflow/internal/services/auth/repository"
	"github.com/hookflow/hookflow/pkg/logger"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotVerified    = errors.New("email not verified")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidOtp         = errors.New("invalid verification code")
	ErrOtpExpired         = errors.New("verification code expired")
)

const (
	bcryptCost = 12
	otpTTL     = 10 * time.Minute
)

// Mailer delivers OTP codes with the platform's own API key.
type Mailer interface {
	Send(ctx context.Context, apiKey string, msg email.Message) error
}

type AuthService struct {
	repo   *repository.AuthRepository
	tokens *jwt.Manager
	mailer Mailer
	apiKey string
	from   string
	logger logger.Logger
}

func NewAuthService(repo *repository.AuthRepository, tokens *jwt.Manager, mailer Mailer, apiKey, from string, log logger.Logger) *AuthService {
	return &AuthService{
		repo:   repo,
		tokens: tokens,
		mailer: mailer,
		apiKey: apiKey,
		from:   from,
		logger: log,
	}
}

type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
}

type SigninRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type VerifyOtpRequest struct {
	Email string `json:"email" binding:"required,email"`
	Token string `json:"token" binding:"required"`
}

// Signup registers an unverified account and emails a one-time code. The
// account cannot sign in until the code is redeemed.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*user.User, error) {
	emailAddr := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := s.repo.GetUserByEmail(ctx, emailAddr); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := user.New(emailAddr, string(hash), req.Name)
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.issueOtp(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("user signed up", "userId", u.ID)
	return u, nil
}

// VerifyOtp redeems the signup code and returns a ready-to-use token.
func (s *AuthService) VerifyOtp(ctx context.Context, req VerifyOtpRequest) (string, *user.User, error) {
	emailAddr := strings.ToLower(strings.TrimSpace(req.Email))

	u, err := s.repo.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", nil, ErrUserNotFound
		}
		return "", nil, err
	}

	otp, err := s.repo.GetOtp(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrOtpNotFound) {
			return "", nil, ErrInvalidOtp
		}
		return "", nil, err
	}
	if otp.Expired(time.Now().UTC()) {
		return "", nil, ErrOtpExpired
	}
	if otp.Token != req.Token {
		return "", nil, ErrInvalidOtp
	}

	u.IsVerified = true
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return "", nil, fmt.Errorf("verify user: %w", err)
	}
	if err := s.repo.DeleteOtp(ctx, emailAddr); err != nil {
		s.logger.Warn("failed to delete redeemed otp", "email", emailAddr, "error", err)
	}

	token, err := s.tokens.Generate(u.ID, u.Email)
	if err != nil {
		return "", nil, err
	}
	s.logger.Info("user verified", "userId", u.ID)
	return token, u, nil
}

// ResendOtp issues a fresh code for an unverified account.
func (s *AuthService) ResendOtp(ctx context.Context, emailAddr string) error {
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))

	u, err := s.repo.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if u.IsVerified {
		return nil
	}
	return s.issueOtp(ctx, u)
}

func (s *AuthService) Signin(ctx context.Context, req SigninRequest) (string, *user.User, error) {
	emailAddr := strings.ToLower(strings.TrimSpace(req.Email))

	u, err := s.repo.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(req.Password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if !u.IsVerified {
		return "", nil, ErrUserNotVerified
	}

	token, err := s.tokens.Generate(u.ID, u.Email)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// GetUserByID backs the auth middleware and the notification service.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*user.User, error) {
	u, err := s.repo.GetUserByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func (s *AuthService) issueOtp(ctx context.Context, u *user.User) error {
	code, err := generateOtp()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}

	token := user.NewOtpToken(u.Email, code, otpTTL)
	if err := s.repo.SaveOtp(ctx, token); err != nil {
		return fmt.Errorf("save otp: %w", err)
	}

	msg := email.Message{
		From:    s.from,
		To:      []string{u.Email},
		Subject: "Your verification code",
		HTML: fmt.Sprintf(
			"<p>Hi %s,</p><p>Your verification code is <strong>%s</strong>. It expires in %d minutes.</p>",
			u.Name, code, int(otpTTL.Minutes()),
		),
	}
	if err := s.mailer.Send(ctx, s.apiKey, msg); err != nil {
		return fmt.Errorf("send otp email: %w", err)
	}
	return nil
}

// generateOtp returns a 6 digit code from crypto/rand.
func generateOtp() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
