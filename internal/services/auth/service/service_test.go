package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hookflow/hookflow/internal/domain/user"
	"github.com/hookflow/hookflow/internal/integrations/email"
	"github.com/hookflow/hookflow/internal/services/auth/jwt"
	"github.com/hookflow/hookflow/internal/services/auth/repository"
	"github.com/hookflow/hookflow/pkg/database"
	"github.com/hookflow/hookflow/pkg/logger"
)

var otpPattern = regexp.MustCompile(`\b(\d{6})\b`)

type fakeMailer struct {
	sent []email.Message
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, apiKey string, msg email.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMailer) lastOtp(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.sent)
	match := otpPattern.FindStringSubmatch(f.sent[len(f.sent)-1].HTML)
	require.Len(t, match, 2, "otp email contains a 6 digit code")
	return match[1]
}

func setupService(t *testing.T) (*AuthService, *fakeMailer, *repository.AuthRepository) {
	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gormDB.AutoMigrate(&user.User{}, &user.OtpToken{}))

	mailer := &fakeMailer{}
	repo := repository.NewAuthRepository(&database.DB{DB: gormDB})
	tokens := jwt.NewManager("test-secret", 24, "hookflow")
	svc := NewAuthService(repo, tokens, mailer, "re_system", "noreply@hookflow.dev", logger.NewNop())
	return svc, mailer, repo
}

func signupAndVerify(t *testing.T, svc *AuthService, mailer *fakeMailer, emailAddr, password string) *user.User {
	t.Helper()
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupRequest{Email: emailAddr, Password: password, Name: "Sam"})
	require.NoError(t, err)

	_, u, err := svc.VerifyOtp(ctx, VerifyOtpRequest{Email: emailAddr, Token: mailer.lastOtp(t)})
	require.NoError(t, err)
	return u
}

func TestSignupSendsOtpAndBlocksSignin(t *testing.T) {
	svc, mailer, _ := setupService(t)
	ctx := context.Background()

	u, err := svc.Signup(ctx, SignupRequest{Email: "Sam@Example.com", Password: "hunter2secret", Name: "Sam"})
	require.NoError(t, err)
	assert.Equal(t, "sam@example.com", u.Email, "email normalized")
	assert.False(t, u.IsVerified)
	assert.NotEqual(t, "hunter2secret", u.Password, "stored hashed")

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, []string{"sam@example.com"}, mailer.sent[0].To)

	_, _, err = svc.Signin(ctx, SigninRequest{Email: "sam@example.com", Password: "hunter2secret"})
	assert.ErrorIs(t, err, ErrUserNotVerified)
}

func TestSignupRejectsDuplicateEmail(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupRequest{Email: "sam@example.com", Password: "hunter2secret", Name: "Sam"})
	require.NoError(t, err)

	_, err = svc.Signup(ctx, SignupRequest{Email: "SAM@example.com", Password: "otherpassword", Name: "Imposter"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestVerifyOtpThenSignin(t *testing.T) {
	svc, mailer, _ := setupService(t)
	ctx := context.Background()

	u := signupAndVerify(t, svc, mailer, "sam@example.com", "hunter2secret")
	assert.True(t, u.IsVerified)

	token, got, err := svc.Signin(ctx, SigninRequest{Email: "sam@example.com", Password: "hunter2secret"})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, u.ID, got.ID)
}

func TestVerifyOtpWrongCode(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupRequest{Email: "sam@example.com", Password: "hunter2secret", Name: "Sam"})
	require.NoError(t, err)

	_, _, err = svc.VerifyOtp(ctx, VerifyOtpRequest{Email: "sam@example.com", Token: "000000"})
	if err == nil {
		t.Fatal("expected wrong code to be rejected")
	}
	assert.ErrorIs(t, err, ErrInvalidOtp)
}

func TestVerifyOtpExpiredCode(t *testing.T) {
	svc, _, repo := setupService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupRequest{Email: "sam@example.com", Password: "hunter2secret", Name: "Sam"})
	require.NoError(t, err)

	expired := user.NewOtpToken("sam@example.com", "123456", -time.Minute)
	require.NoError(t, repo.SaveOtp(ctx, expired))

	_, _, err = svc.VerifyOtp(ctx, VerifyOtpRequest{Email: "sam@example.com", Token: "123456"})
	assert.ErrorIs(t, err, ErrOtpExpired)
}

func TestResendOtpInvalidatesOldCode(t *testing.T) {
	svc, mailer, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupRequest{Email: "sam@example.com", Password: "hunter2secret", Name: "Sam"})
	require.NoError(t, err)
	firstCode := mailer.lastOtp(t)

	require.NoError(t, svc.ResendOtp(ctx, "sam@example.com"))
	require.Len(t, mailer.sent, 2)
	secondCode := mailer.lastOtp(t)

	if firstCode != secondCode {
		_, _, err = svc.VerifyOtp(ctx, VerifyOtpRequest{Email: "sam@example.com", Token: firstCode})
		assert.ErrorIs(t, err, ErrInvalidOtp, "old code no longer redeemable")
	}

	_, _, err = svc.VerifyOtp(ctx, VerifyOtpRequest{Email: "sam@example.com", Token: secondCode})
	assert.NoError(t, err)
}

func TestSigninWrongPassword(t *testing.T) {
	svc, mailer, _ := setupService(t)

	signupAndVerify(t, svc, mailer, "sam@example.com", "hunter2secret")

	_, _, err := svc.Signin(context.Background(), SigninRequest{Email: "sam@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Signin(context.Background(), SigninRequest{Email: "ghost@example.com", Password: "whatever"})
	assert.ErrorIs(t, err, ErrInvalidCredentials, "unknown email looks the same as a bad password")
}
