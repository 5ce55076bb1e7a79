package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caremont/hospital-api/internal/auth"
	"github.com/caremont/hospital-api/internal/models"
	pkgauth "github.com/caremont/hospital-api/pkg/auth"
	pkglogger "github.com/caremont/hospital-api/pkg/logger"
)

// PasswordResetRepository defines the interface for reset token storage
type PasswordResetRepository interface {
	Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (*models.PasswordResetToken, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error)
	Consume(ctx context.Context, tokenID, userID, passwordHash string) error
	DeleteByUserID(ctx context.Context, userID string) error
}

// AccountLockedError reports a login rejected because the account is in
// its lockout window. Unwraps to models.ErrAccountLocked.
type AccountLockedError struct {
	RemainingSeconds int
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked, try again in %d seconds", e.RemainingSeconds)
}

func (e *AccountLockedError) Unwrap() error {
	return models.ErrAccountLocked
}

// AuthService handles authentication business logic
type AuthService struct {
	repo        UserRepository
	resetRepo   PasswordResetRepository
	prefsRepo   PreferencesRepository
	lockout     *LockoutService
	sender      EmailSender
	tm          *auth.TokenManager
	td          *auth.TimingDelay
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger

	resetTokenExpiry time.Duration
	resetURLBase     string
}

// NewAuthService creates a new AuthService
func NewAuthService(
	repo UserRepository,
	resetRepo PasswordResetRepository,
	prefsRepo PreferencesRepository,
	lockout *LockoutService,
	sender EmailSender,
	tm *auth.TokenManager,
	td *auth.TimingDelay,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
	resetTokenExpiry time.Duration,
	resetURLBase string,
) *AuthService {
	return &AuthService{
		repo:             repo,
		resetRepo:        resetRepo,
		prefsRepo:        prefsRepo,
		lockout:          lockout,
		sender:           sender,
		tm:               tm,
		td:               td,
		logger:           logger,
		auditLogger:      auditLogger,
		resetTokenExpiry: resetTokenExpiry,
		resetURLBase:     resetURLBase,
	}
}

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// AuthResponse represents the response from auth operations
type AuthResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	User         *UserResponse `json:"user"`
}

// Login authenticates a user and returns tokens. Failed attempts feed the
// lockout counter; an account inside its lockout window is rejected before
// the password is even checked.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	start := time.Now()

	if email = strings.ToLower(strings.TrimSpace(email)); email == "" {
		s.logger.Warn("login attempt with empty email")
		return nil, models.ErrUnauthorized
	}

	status, err := s.lockout.CheckLockStatusByEmail(ctx, email)
	if err != nil {
		return nil, models.ErrInternalServer
	}
	if status.IsLocked {
		s.logger.Info("login rejected: account locked",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Int("remaining_seconds", status.RemainingSeconds))
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			FailureReason: "account_locked",
			Success:       false,
		})
		return nil, &AccountLockedError{RemainingSeconds: status.RemainingSeconds}
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Unknown emails take the same path as wrong passwords so
			// responses do not reveal which addresses have accounts. The
			// recording call is a silent no-op here.
			if _, rerr := s.lockout.RecordFailedAttemptByEmail(ctx, email); rerr != nil {
				s.logger.Error("failed to record login attempt", slog.Any("error", rerr))
			}
			s.logger.Info("login failed: invalid credentials",
				slog.String("email", pkglogger.SanitizedEmail(email)))
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "login_failed",
				FailureReason: "invalid_credentials",
				Success:       false,
			})
			s.td.WaitFrom(start, false)
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := validateAccountState(user); err != nil {
		s.logger.Info("login blocked due to account state",
			slog.String("user_id", user.ID),
			slog.String("status", user.Status),
			slog.Any("error", err))
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			UserID:        user.ID,
			FailureReason: "account_blocked",
			Success:       false,
		})
		return nil, err
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		attempt, rerr := s.lockout.RecordFailedAttempt(ctx, user.ID)
		if rerr != nil {
			// A lockout bookkeeping failure is security-relevant; the
			// login still fails closed with a generic error.
			s.logger.Error("failed to record failed login attempt",
				slog.String("user_id", user.ID),
				slog.Any("error", rerr))
		}
		s.logger.Info("login failed: invalid credentials", slog.String("user_id", user.ID))
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			UserID:        user.ID,
			FailureReason: "invalid_credentials",
			Success:       false,
		})
		s.td.WaitFrom(start, false)
		if attempt != nil && attempt.IsLocked {
			return nil, &AccountLockedError{RemainingSeconds: attempt.RemainingSeconds}
		}
		return nil, models.ErrUnauthorized
	}

	if err := s.lockout.ResetFailedAttempts(ctx, user.ID); err != nil {
		s.logger.Error("failed to reset login attempts",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
	}

	resp, err := s.tokenResponse(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		UserID:    user.ID,
		Success:   true,
	})

	return resp, nil
}

// RefreshToken generates a new token pair from a refresh token
func (s *AuthService) RefreshToken(ctx context.Context, refreshTokenString string) (*AuthResponse, error) {
	if refreshTokenString = strings.TrimSpace(refreshTokenString); refreshTokenString == "" {
		return nil, models.ErrUnauthorized
	}

	claims, err := s.tm.ValidateToken(refreshTokenString)
	if err != nil {
		s.logger.Info("refresh token validation failed", slog.Any("error", err))
		return nil, models.ErrUnauthorized
	}

	if claims.Type != "refresh" {
		s.logger.Warn("refresh attempt with non-refresh token", slog.String("user_id", claims.UserID))
		return nil, models.ErrUnauthorized
	}

	user, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("user not found for token refresh", slog.String("user_id", claims.UserID))
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get user for token refresh", slog.String("user_id", claims.UserID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := validateAccountState(user); err != nil {
		s.logger.Info("token refresh blocked due to account state",
			slog.String("user_id", user.ID),
			slog.String("status", user.Status))
		return nil, models.ErrUnauthorized
	}

	// Invalidate tokens issued before the last password change
	if user.PasswordChangedAt != nil && claims.IssuedAt != nil {
		if claims.IssuedAt.Time.Before(*user.PasswordChangedAt) {
			s.logger.Info("token refresh blocked: issued before password change",
				slog.String("user_id", user.ID))
			return nil, models.ErrUnauthorized
		}
	}

	resp, err := s.tokenResponse(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("token refreshed", slog.String("user_id", user.ID))
	return resp, nil
}

// Register creates a new staff user account and seeds its default
// notification preferences.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*AuthResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, err
	}

	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		s.logger.Info("registration failed: user already exists")
		return nil, models.ErrConflict
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check if user exists", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	now := time.Now()
	user := &models.User{
		Email:             email,
		PasswordHash:      hashedPassword,
		Name:              name,
		Role:              "staff",
		PasswordChangedAt: &now,
	}

	createdUser, err := s.repo.Create(ctx, user)
	if err != nil {
		s.logger.Error("failed to create user", slog.Any("error", err))
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		return nil, models.ErrInternalServer
	}

	if _, err := s.prefsRepo.Upsert(ctx, DefaultPreferences(createdUser.ID)); err != nil {
		// The preference read path falls back to the same defaults, so a
		// failed seed only costs a row, not behavior.
		s.logger.Error("failed to seed notification preferences",
			slog.String("user_id", createdUser.ID),
			slog.Any("error", err))
	}

	resp, err := s.tokenResponse(createdUser)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", slog.String("user_id", createdUser.ID))
	s.auditLogger.LogAccountAction("user_registered", createdUser.ID, "", nil)

	return resp, nil
}

// ForgotPassword starts the reset flow. It always reports success to the
// caller so the endpoint cannot be used to probe for registered emails.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("password reset requested for unknown email",
				slog.String("email", pkglogger.SanitizedEmail(email)))
			return nil
		}
		s.logger.Error("failed to get user for password reset", slog.Any("error", err))
		return models.ErrInternalServer
	}

	token, tokenHash, err := generateResetToken()
	if err != nil {
		s.logger.Error("failed to generate reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	// One outstanding token per user; a new request invalidates the old link.
	if err := s.resetRepo.DeleteByUserID(ctx, user.ID); err != nil {
		s.logger.Error("failed to clear previous reset tokens",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	if _, err := s.resetRepo.Create(ctx, user.ID, tokenHash, time.Now().Add(s.resetTokenExpiry)); err != nil {
		s.logger.Error("failed to store reset token",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	resetLink := fmt.Sprintf("%s?token=%s", s.resetURLBase, token)
	subject := "Reset your password"
	text := fmt.Sprintf("A password reset was requested for your account.\n\n"+
		"Open the link below to choose a new password. It expires in %s.\n\n%s\n\n"+
		"If you did not request this, you can ignore this email.",
		s.resetTokenExpiry, resetLink)

	// Reset emails bypass notification preferences; delivery problems are
	// contained in the transport and logged there.
	if _, err := s.sender.SendEmail(ctx, user.Email, subject, text, ""); err != nil {
		s.logger.Error("failed to dispatch reset email",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
	}

	s.auditLogger.LogAccountAction("password_reset_requested", user.ID, "", nil)
	return nil
}

// ResetPassword completes the reset flow with a token from ForgotPassword.
// A successful reset also clears any active lockout.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.ErrUnauthorized
	}

	hash := sha256.Sum256([]byte(token))
	record, err := s.resetRepo.GetByTokenHash(ctx, hex.EncodeToString(hash[:]))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("password reset with unknown token")
			return models.ErrUnauthorized
		}
		s.logger.Error("failed to look up reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if record.UsedAt != nil {
		s.logger.Warn("password reset with already-used token", slog.String("user_id", record.UserID))
		return models.ErrTokenUsed
	}
	if time.Now().After(record.ExpiresAt) {
		return models.ErrTokenExpired
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}

	hashedPassword, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.resetRepo.Consume(ctx, record.ID, record.UserID, hashedPassword); err != nil {
		if errors.Is(err, models.ErrTokenUsed) {
			return models.ErrTokenUsed
		}
		s.logger.Error("failed to consume reset token",
			slog.String("user_id", record.UserID),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.lockout.ResetFailedAttempts(ctx, record.UserID); err != nil {
		s.logger.Error("failed to clear lockout after password reset",
			slog.String("user_id", record.UserID),
			slog.Any("error", err))
	}

	s.logger.Info("password reset completed", slog.String("user_id", record.UserID))
	s.auditLogger.LogAccountAction("password_reset_completed", record.UserID, "", nil)
	return nil
}

func (s *AuthService) tokenResponse(user *models.User) (*AuthResponse, error) {
	accessToken, err := s.tm.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	refreshToken, err := s.tm.GenerateRefreshToken(user.ID, user.Email, user.Role)
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         userModelToResponse(user),
	}, nil
}

// generateResetToken returns the raw token for the email link and the
// SHA-256 hex digest that gets stored.
func generateResetToken() (token, tokenHash string, err error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(raw)
	digest := sha256.Sum256([]byte(token))
	return token, hex.EncodeToString(digest[:]), nil
}

func validateAccountState(user *models.User) error {
	switch user.Status {
	case "disabled":
		return models.ErrAccountDisabled
	case "suspended":
		return models.ErrAccountSuspended
	case "active":
		// Continue to other checks
	default:
		return fmt.Errorf("unknown account status: %s", user.Status)
	}

	if user.LockedUntil != nil && time.Now().Before(*user.LockedUntil) {
		return models.ErrAccountLocked
	}

	return nil
}

func userModelToResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		Status:    user.Status,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.Format(time.RFC3339),
	}
}
