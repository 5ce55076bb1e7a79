package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caremont/hospital-api/internal/auth"
	"github.com/caremont/hospital-api/internal/models"
	pkgauth "github.com/caremont/hospital-api/pkg/auth"
)

const testPassword = "SecurePassword123!"

func newTestTokenManager() *auth.TokenManager {
	return auth.NewTokenManager("test-secret-at-least-32-characters!!", 15*time.Minute, 24*time.Hour)
}

func newAuthFixture(t *testing.T, repo UserRepository, resetRepo PasswordResetRepository, sender EmailSender) *AuthService {
	t.Helper()
	if resetRepo == nil {
		resetRepo = &MockPasswordResetRepository{}
	}
	if sender == nil {
		sender = &MockEmailSender{}
	}
	lockout := NewLockoutService(repo, newTestLogger(), newTestAuditLogger())
	return NewAuthService(
		repo,
		resetRepo,
		&MockPreferencesRepository{},
		lockout,
		sender,
		newTestTokenManager(),
		auth.NewTimingDelay(auth.TimingConfig{}),
		newTestLogger(),
		newTestAuditLogger(),
		time.Hour,
		"https://hospital.example/reset-password",
	)
}

func activeUser(t *testing.T) *models.User {
	t.Helper()
	hash, err := pkgauth.HashPassword(testPassword)
	require.NoError(t, err)
	return &models.User{
		ID:           "user123",
		Email:        "staff@hospital.example",
		PasswordHash: hash,
		Name:         "Test Staff",
		Role:         "staff",
		Status:       "active",
	}
}

// ============================================================================
// Login
// ============================================================================

func TestAuthService_Login_Success(t *testing.T) {
	repo := newMemoryUserRepo(activeUser(t))
	svc := newAuthFixture(t, repo, nil, nil)

	resp, err := svc.Login(context.Background(), "staff@hospital.example", testPassword)

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "user123", resp.User.ID)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	repo := newMemoryUserRepo(activeUser(t))
	svc := newAuthFixture(t, repo, nil, nil)

	resp, err := svc.Login(context.Background(), "staff@hospital.example", "wrong-password")

	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.Nil(t, resp)

	stored, err := repo.GetByID(context.Background(), "user123")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.FailedLoginAttempts)
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	repo := newMemoryUserRepo(activeUser(t))
	svc := newAuthFixture(t, repo, nil, nil)

	resp, err := svc.Login(context.Background(), "nobody@hospital.example", testPassword)

	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.Nil(t, resp)
}

func TestAuthService_Login_LocksAfterFifthFailure(t *testing.T) {
	user := activeUser(t)
	user.FailedLoginAttempts = 4
	repo := newMemoryUserRepo(user)
	svc := newAuthFixture(t, repo, nil, nil)

	resp, err := svc.Login(context.Background(), "staff@hospital.example", "wrong-password")
	require.Error(t, err)
	assert.Nil(t, resp)

	var locked *AccountLockedError
	require.True(t, errors.As(err, &locked))
	assert.ErrorIs(t, err, models.ErrAccountLocked)
	assert.InDelta(t, 900, locked.RemainingSeconds, 2)

	// Even the correct password is rejected while the window holds.
	_, err = svc.Login(context.Background(), "staff@hospital.example", testPassword)
	require.True(t, errors.As(err, &locked))
	assert.Greater(t, locked.RemainingSeconds, 0)
}

func TestAuthService_Login_SuccessResetsCounter(t *testing.T) {
	user := activeUser(t)
	user.FailedLoginAttempts = 3
	repo := newMemoryUserRepo(user)
	svc := newAuthFixture(t, repo, nil, nil)

	_, err := svc.Login(context.Background(), "staff@hospital.example", testPassword)
	require.NoError(t, err)

	stored, err := repo.GetByID(context.Background(), "user123")
	require.NoError(t, err)
	assert.Equal(t, 0, stored.FailedLoginAttempts)
	assert.Nil(t, stored.LockedUntil)
}

func TestAuthService_Login_ExpiredLockAllowsLogin(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	user := activeUser(t)
	user.FailedLoginAttempts = 5
	user.LockedUntil = &past
	repo := newMemoryUserRepo(user)
	svc := newAuthFixture(t, repo, nil, nil)

	resp, err := svc.Login(context.Background(), "staff@hospital.example", testPassword)

	require.NoError(t, err)
	assert.NotNil(t, resp)
}

func TestAuthService_Login_SuspendedAccount(t *testing.T) {
	user := activeUser(t)
	user.Status = "suspended"
	repo := newMemoryUserRepo(user)
	svc := newAuthFixture(t, repo, nil, nil)

	_, err := svc.Login(context.Background(), "staff@hospital.example", testPassword)
	assert.ErrorIs(t, err, models.ErrAccountSuspended)
}

// ============================================================================
// Register
// ============================================================================

func TestAuthService_Register_Success(t *testing.T) {
	repo := &MockUserRepository{
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			user.ID = "user123"
			user.CreatedAt = time.Now()
			user.UpdatedAt = time.Now()
			return user, nil
		},
	}
	svc := newAuthFixture(t, repo, nil, nil)

	resp, err := svc.Register(context.Background(), "New.Staff@Hospital.Example", testPassword, "New Staff")

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "new.staff@hospital.example", resp.User.Email)
	assert.Equal(t, "staff", resp.User.Role)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	repo := newMemoryUserRepo(activeUser(t))
	svc := newAuthFixture(t, repo, nil, nil)

	resp, err := svc.Register(context.Background(), "staff@hospital.example", testPassword, "Someone Else")

	assert.ErrorIs(t, err, models.ErrConflict)
	assert.Nil(t, resp)
}

func TestAuthService_Register_WeakPassword(t *testing.T) {
	svc := newAuthFixture(t, &MockUserRepository{}, nil, nil)

	_, err := svc.Register(context.Background(), "new@hospital.example", "short", "New Staff")
	assert.Error(t, err)
}

// ============================================================================
// Token refresh
// ============================================================================

func TestAuthService_RefreshToken_Success(t *testing.T) {
	repo := newMemoryUserRepo(activeUser(t))
	svc := newAuthFixture(t, repo, nil, nil)

	login, err := svc.Login(context.Background(), "staff@hospital.example", testPassword)
	require.NoError(t, err)

	resp, err := svc.RefreshToken(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
}

func TestAuthService_RefreshToken_RejectsAccessToken(t *testing.T) {
	repo := newMemoryUserRepo(activeUser(t))
	svc := newAuthFixture(t, repo, nil, nil)

	login, err := svc.Login(context.Background(), "staff@hospital.example", testPassword)
	require.NoError(t, err)

	_, err = svc.RefreshToken(context.Background(), login.AccessToken)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestAuthService_RefreshToken_RejectedAfterPasswordChange(t *testing.T) {
	repo := newMemoryUserRepo(activeUser(t))
	svc := newAuthFixture(t, repo, nil, nil)

	login, err := svc.Login(context.Background(), "staff@hospital.example", testPassword)
	require.NoError(t, err)

	changed := time.Now().Add(time.Minute)
	repo.mu.Lock()
	repo.user.PasswordChangedAt = &changed
	repo.mu.Unlock()

	_, err = svc.RefreshToken(context.Background(), login.RefreshToken)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

// ============================================================================
// Password reset flow
// ============================================================================

func TestAuthService_ForgotPassword_SendsResetEmail(t *testing.T) {
	repo := newMemoryUserRepo(activeUser(t))
	sender := &MockEmailSender{}

	var storedHash string
	resetRepo := &MockPasswordResetRepository{
		CreateFunc: func(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (*models.PasswordResetToken, error) {
			storedHash = tokenHash
			return &models.PasswordResetToken{ID: "token_123", UserID: userID, TokenHash: tokenHash, ExpiresAt: expiresAt}, nil
		},
	}
	svc := newAuthFixture(t, repo, resetRepo, sender)

	err := svc.ForgotPassword(context.Background(), "staff@hospital.example")

	require.NoError(t, err)
	assert.Equal(t, 1, sender.CallCount())
	assert.Equal(t, []string{"staff@hospital.example"}, sender.Recipients())
	assert.NotEmpty(t, storedHash)
}

func TestAuthService_ForgotPassword_UnknownEmailIsSilent(t *testing.T) {
	repo := newMemoryUserRepo(activeUser(t))
	sender := &MockEmailSender{}
	svc := newAuthFixture(t, repo, nil, sender)

	err := svc.ForgotPassword(context.Background(), "nobody@hospital.example")

	require.NoError(t, err)
	assert.Equal(t, 0, sender.CallCount())
}

func TestAuthService_ResetPassword_Success(t *testing.T) {
	user := activeUser(t)
	until := time.Now().Add(10 * time.Minute)
	user.FailedLoginAttempts = 5
	user.LockedUntil = &until
	repo := newMemoryUserRepo(user)

	token := "a-raw-reset-token"
	digest := sha256.Sum256([]byte(token))
	tokenHash := hex.EncodeToString(digest[:])

	consumed := false
	resetRepo := &MockPasswordResetRepository{
		GetByTokenHashFunc: func(ctx context.Context, h string) (*models.PasswordResetToken, error) {
			if h != tokenHash {
				return nil, models.ErrNotFound
			}
			return &models.PasswordResetToken{
				ID:        "token_123",
				UserID:    "user123",
				TokenHash: tokenHash,
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
		ConsumeFunc: func(ctx context.Context, tokenID, userID, passwordHash string) error {
			assert.Equal(t, "token_123", tokenID)
			assert.Equal(t, "user123", userID)
			assert.NotEmpty(t, passwordHash)
			consumed = true
			return nil
		},
	}
	svc := newAuthFixture(t, repo, resetRepo, nil)

	err := svc.ResetPassword(context.Background(), token, "BrandNewSecret456!")

	require.NoError(t, err)
	assert.True(t, consumed)

	// The reset also cleared the lockout.
	stored, err := repo.GetByID(context.Background(), "user123")
	require.NoError(t, err)
	assert.Equal(t, 0, stored.FailedLoginAttempts)
	assert.Nil(t, stored.LockedUntil)
}

func TestAuthService_ResetPassword_ExpiredToken(t *testing.T) {
	resetRepo := &MockPasswordResetRepository{
		GetByTokenHashFunc: func(ctx context.Context, h string) (*models.PasswordResetToken, error) {
			return &models.PasswordResetToken{
				ID:        "token_123",
				UserID:    "user123",
				ExpiresAt: time.Now().Add(-time.Minute),
			}, nil
		},
	}
	svc := newAuthFixture(t, newMemoryUserRepo(activeUser(t)), resetRepo, nil)

	err := svc.ResetPassword(context.Background(), "whatever", "BrandNewSecret456!")
	assert.ErrorIs(t, err, models.ErrTokenExpired)
}

func TestAuthService_ResetPassword_UsedToken(t *testing.T) {
	used := time.Now().Add(-time.Minute)
	resetRepo := &MockPasswordResetRepository{
		GetByTokenHashFunc: func(ctx context.Context, h string) (*models.PasswordResetToken, error) {
			return &models.PasswordResetToken{
				ID:        "token_123",
				UserID:    "user123",
				ExpiresAt: time.Now().Add(time.Hour),
				UsedAt:    &used,
			}, nil
		},
	}
	svc := newAuthFixture(t, newMemoryUserRepo(activeUser(t)), resetRepo, nil)

	err := svc.ResetPassword(context.Background(), "whatever", "BrandNewSecret456!")
	assert.ErrorIs(t, err, models.ErrTokenUsed)
}

func TestAuthService_ResetPassword_UnknownToken(t *testing.T) {
	svc := newAuthFixture(t, newMemoryUserRepo(activeUser(t)), &MockPasswordResetRepository{}, nil)

	err := svc.ResetPassword(context.Background(), "bogus", "BrandNewSecret456!")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}
