package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/caremont/hospital-api/internal/models"
	pkglogger "github.com/caremont/hospital-api/pkg/logger"
)

const (
	// MaxFailedAttempts is the number of consecutive failed logins that
	// locks an account.
	MaxFailedAttempts = 5

	// LockoutDuration is how long an account stays locked after hitting
	// the attempt limit.
	LockoutDuration = 15 * time.Minute
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, id string, user *models.User) (*models.User, error)
	UpdateLockState(ctx context.Context, id string, failedAttempts int, lockedUntil *time.Time) error
	Delete(ctx context.Context, id string) error
}

// LockStatus describes the lockout state of an account at a point in time.
type LockStatus struct {
	IsLocked          bool `json:"is_locked"`
	RemainingSeconds  int  `json:"remaining_seconds"`
	AttemptsRemaining int  `json:"attempts_remaining"`
}

// LockoutService tracks failed login attempts and enforces temporary
// account lockouts. The counter is read-modify-write without row locking;
// two concurrent failures for the same account may record as one. That is
// acceptable here since the limit is a throttle, not an exact quota.
type LockoutService struct {
	repo        UserRepository
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time
}

// NewLockoutService creates a new LockoutService
func NewLockoutService(repo UserRepository, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *LockoutService {
	return &LockoutService{
		repo:        repo,
		logger:      logger,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// CheckLockStatus reports whether the account is currently locked and how
// many attempts remain before it would be. An expired lock is cleared as a
// side effect of the read, so repeated checks after expiry are idempotent.
// An unknown user reports not-locked rather than an error; a deleted
// account must not break callers that only want the status.
func (s *LockoutService) CheckLockStatus(ctx context.Context, userID string) (*LockStatus, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return &LockStatus{IsLocked: false, AttemptsRemaining: MaxFailedAttempts}, nil
		}
		s.logger.Error("failed to get user for lock check", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return s.checkAndClear(ctx, user)
}

// CheckLockStatusByEmail is CheckLockStatus keyed by email. An unknown
// email reports not-locked so login responses cannot be used to probe
// which addresses have accounts.
func (s *LockoutService) CheckLockStatusByEmail(ctx context.Context, email string) (*LockStatus, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return &LockStatus{IsLocked: false, AttemptsRemaining: MaxFailedAttempts}, nil
		}
		s.logger.Error("failed to get user for lock check", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return s.checkAndClear(ctx, user)
}

// RecordFailedAttempt increments the failed-login counter and returns the
// resulting status. The attempt that reaches MaxFailedAttempts sets the
// lock. Attempts recorded while a lock is already active still count but
// do not extend it. An unknown user is silently skipped, same as the
// email-keyed variant.
func (s *LockoutService) RecordFailedAttempt(ctx context.Context, userID string) (*LockStatus, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return &LockStatus{IsLocked: false, AttemptsRemaining: MaxFailedAttempts}, nil
		}
		s.logger.Error("failed to get user for attempt tracking", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return s.recordFailure(ctx, user)
}

// RecordFailedAttemptByEmail is RecordFailedAttempt keyed by email.
// Unknown emails are silently skipped and report not-locked.
func (s *LockoutService) RecordFailedAttemptByEmail(ctx context.Context, email string) (*LockStatus, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return &LockStatus{IsLocked: false, AttemptsRemaining: MaxFailedAttempts}, nil
		}
		s.logger.Error("failed to get user for attempt tracking", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return s.recordFailure(ctx, user)
}

// ResetFailedAttempts clears the counter and any active lock. Called on
// successful login and on password reset.
func (s *LockoutService) ResetFailedAttempts(ctx context.Context, userID string) error {
	if err := s.repo.UpdateLockState(ctx, userID, 0, nil); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to reset lock state", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

// ResetFailedAttemptsByEmail is ResetFailedAttempts keyed by email.
// Unknown emails are a no-op.
func (s *LockoutService) ResetFailedAttemptsByEmail(ctx context.Context, email string) error {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		s.logger.Error("failed to get user for lock reset", slog.Any("error", err))
		return models.ErrInternalServer
	}

	return s.ResetFailedAttempts(ctx, user.ID)
}

func (s *LockoutService) recordFailure(ctx context.Context, user *models.User) (*LockStatus, error) {
	now := s.now()

	attempts := user.FailedLoginAttempts
	lockedUntil := user.LockedUntil

	// An expired lock means the previous window is over; start counting
	// from scratch.
	if lockedUntil != nil && !lockedUntil.After(now) {
		attempts = 0
		lockedUntil = nil
	}

	attempts++

	if attempts >= MaxFailedAttempts && (lockedUntil == nil || !lockedUntil.After(now)) {
		until := now.Add(LockoutDuration)
		lockedUntil = &until
	}

	if err := s.repo.UpdateLockState(ctx, user.ID, attempts, lockedUntil); err != nil {
		s.logger.Error("failed to update lock state", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if lockedUntil != nil && user.LockedUntil == nil {
		s.logger.Warn("account locked after repeated failed logins",
			slog.String("user_id", user.ID),
			slog.Int("attempts", attempts),
			slog.Time("locked_until", *lockedUntil))
		s.auditLogger.LogLockout(user.ID, *lockedUntil)
	}

	return s.status(attempts, lockedUntil), nil
}

// checkAndClear resolves the current status and clears an expired lock in
// the same pass.
func (s *LockoutService) checkAndClear(ctx context.Context, user *models.User) (*LockStatus, error) {
	if user.LockedUntil != nil && !user.LockedUntil.After(s.now()) {
		if err := s.repo.UpdateLockState(ctx, user.ID, 0, nil); err != nil {
			s.logger.Error("failed to clear expired lock", slog.String("user_id", user.ID), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		return &LockStatus{IsLocked: false, AttemptsRemaining: MaxFailedAttempts}, nil
	}

	return s.status(user.FailedLoginAttempts, user.LockedUntil), nil
}

func (s *LockoutService) status(attempts int, lockedUntil *time.Time) *LockStatus {
	now := s.now()

	if lockedUntil != nil && lockedUntil.After(now) {
		remaining := int(lockedUntil.Sub(now).Round(time.Second).Seconds())
		if remaining < 1 {
			remaining = 1
		}
		return &LockStatus{
			IsLocked:         true,
			RemainingSeconds: remaining,
		}
	}

	left := MaxFailedAttempts - attempts
	if left < 0 {
		left = 0
	}
	return &LockStatus{IsLocked: false, AttemptsRemaining: left}
}
