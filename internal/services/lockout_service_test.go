package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caremont/hospital-api/internal/models"
)

func newLockoutFixture(t *testing.T, user *models.User) (*LockoutService, *memoryUserRepo) {
	t.Helper()
	repo := newMemoryUserRepo(user)
	svc := NewLockoutService(repo, newTestLogger(), newTestAuditLogger())
	return svc, repo
}

func testUser() *models.User {
	return &models.User{
		ID:     "user123",
		Email:  "staff@hospital.example",
		Status: "active",
	}
}

// ============================================================================
// Threshold behavior
// ============================================================================

func TestLockoutService_LocksOnFifthFailure(t *testing.T) {
	svc, _ := newLockoutFixture(t, testUser())
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		status, err := svc.RecordFailedAttempt(ctx, "user123")
		require.NoError(t, err)
		assert.False(t, status.IsLocked, "attempt %d must not lock", i)
		assert.Equal(t, MaxFailedAttempts-i, status.AttemptsRemaining)
	}

	status, err := svc.RecordFailedAttempt(ctx, "user123")
	require.NoError(t, err)
	assert.True(t, status.IsLocked)
	assert.InDelta(t, 900, status.RemainingSeconds, 2)
}

func TestLockoutService_FourthFailureLeavesOneAttempt(t *testing.T) {
	user := testUser()
	user.FailedLoginAttempts = 3
	svc, _ := newLockoutFixture(t, user)

	status, err := svc.RecordFailedAttempt(context.Background(), "user123")
	require.NoError(t, err)
	assert.False(t, status.IsLocked)
	assert.Equal(t, 1, status.AttemptsRemaining)
}

func TestLockoutService_FifthFailureFromStoredState(t *testing.T) {
	user := testUser()
	user.FailedLoginAttempts = 4
	svc, _ := newLockoutFixture(t, user)
	ctx := context.Background()

	status, err := svc.RecordFailedAttempt(ctx, "user123")
	require.NoError(t, err)
	assert.True(t, status.IsLocked)
	assert.InDelta(t, 900, status.RemainingSeconds, 2)

	// A later check inside the window still reports locked, with less time left.
	svc.now = func() time.Time { return time.Now().Add(5 * time.Minute) }
	check, err := svc.CheckLockStatus(ctx, "user123")
	require.NoError(t, err)
	assert.True(t, check.IsLocked)
	assert.Less(t, check.RemainingSeconds, status.RemainingSeconds)
	assert.Greater(t, check.RemainingSeconds, 0)
}

// ============================================================================
// Expiry and reset
// ============================================================================

func TestLockoutService_ExpiredLockClearsOnCheck(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	user := testUser()
	user.FailedLoginAttempts = 5
	user.LockedUntil = &past

	svc, repo := newLockoutFixture(t, user)
	ctx := context.Background()

	// Repeated checks after expiry are idempotent.
	for i := 0; i < 3; i++ {
		status, err := svc.CheckLockStatus(ctx, "user123")
		require.NoError(t, err)
		assert.False(t, status.IsLocked)
		assert.Equal(t, MaxFailedAttempts, status.AttemptsRemaining)
	}

	stored, err := repo.GetByID(ctx, "user123")
	require.NoError(t, err)
	assert.Equal(t, 0, stored.FailedLoginAttempts)
	assert.Nil(t, stored.LockedUntil)
}

func TestLockoutService_ExpiredLockRestartsCounting(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	user := testUser()
	user.FailedLoginAttempts = 5
	user.LockedUntil = &past

	svc, _ := newLockoutFixture(t, user)

	// The first failure after an expired lock starts a fresh window.
	status, err := svc.RecordFailedAttempt(context.Background(), "user123")
	require.NoError(t, err)
	assert.False(t, status.IsLocked)
	assert.Equal(t, MaxFailedAttempts-1, status.AttemptsRemaining)
}

func TestLockoutService_ResetClearsState(t *testing.T) {
	until := time.Now().Add(10 * time.Minute)
	user := testUser()
	user.FailedLoginAttempts = 5
	user.LockedUntil = &until

	svc, _ := newLockoutFixture(t, user)
	ctx := context.Background()

	require.NoError(t, svc.ResetFailedAttempts(ctx, "user123"))

	status, err := svc.CheckLockStatus(ctx, "user123")
	require.NoError(t, err)
	assert.False(t, status.IsLocked)
	assert.Equal(t, MaxFailedAttempts, status.AttemptsRemaining)
}

// ============================================================================
// Email-keyed variants
// ============================================================================

func TestLockoutService_UnknownEmailReportsNotLocked(t *testing.T) {
	svc, _ := newLockoutFixture(t, testUser())
	ctx := context.Background()

	status, err := svc.CheckLockStatusByEmail(ctx, "nobody@hospital.example")
	require.NoError(t, err)
	assert.False(t, status.IsLocked)
	assert.Equal(t, MaxFailedAttempts, status.AttemptsRemaining)
}

func TestLockoutService_UnknownEmailRecordIsSilentNoop(t *testing.T) {
	svc, repo := newLockoutFixture(t, testUser())
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		status, err := svc.RecordFailedAttemptByEmail(ctx, "nobody@hospital.example")
		require.NoError(t, err)
		assert.False(t, status.IsLocked)
	}

	// The real account was untouched by the probing.
	stored, err := repo.GetByID(ctx, "user123")
	require.NoError(t, err)
	assert.Equal(t, 0, stored.FailedLoginAttempts)
}

func TestLockoutService_KnownEmailRecordsNormally(t *testing.T) {
	svc, _ := newLockoutFixture(t, testUser())
	ctx := context.Background()

	var last *LockStatus
	for i := 0; i < MaxFailedAttempts; i++ {
		var err error
		last, err = svc.RecordFailedAttemptByEmail(ctx, "staff@hospital.example")
		require.NoError(t, err)
	}
	assert.True(t, last.IsLocked)

	require.NoError(t, svc.ResetFailedAttemptsByEmail(ctx, "staff@hospital.example"))
	status, err := svc.CheckLockStatusByEmail(ctx, "staff@hospital.example")
	require.NoError(t, err)
	assert.False(t, status.IsLocked)
	assert.Equal(t, MaxFailedAttempts, status.AttemptsRemaining)
}

func TestLockoutService_UnknownUserIDFailsOpen(t *testing.T) {
	svc, repo := newLockoutFixture(t, testUser())
	ctx := context.Background()

	status, err := svc.CheckLockStatus(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, status.IsLocked)
	assert.Equal(t, MaxFailedAttempts, status.AttemptsRemaining)

	// Recording against a missing account is a silent skip, never a lock.
	for i := 0; i < MaxFailedAttempts+1; i++ {
		status, err = svc.RecordFailedAttempt(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, status.IsLocked)
		assert.Equal(t, MaxFailedAttempts, status.AttemptsRemaining)
	}

	// The real account's counter was never touched.
	stored, err := repo.GetByID(ctx, "user123")
	require.NoError(t, err)
	assert.Equal(t, 0, stored.FailedLoginAttempts)
}
