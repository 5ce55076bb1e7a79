package repositories

import (
	"context"
	"time"

	"github.com/caremont/hospital-api/internal/database"
	"github.com/caremont/hospital-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PasswordResetRepository handles database operations for password reset tokens
type PasswordResetRepository struct {
	db *database.DB
}

func NewPasswordResetRepository(db *database.DB) *PasswordResetRepository {
	return &PasswordResetRepository{db: db}
}

const resetTokenColumns = `id, user_id, token_hash, expires_at, used_at, created_at`

func scanResetTokenRow(scanner rowScanner) (*models.PasswordResetToken, error) {
	var t models.PasswordResetToken

	err := scanner.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &t, nil
}

func (r *PasswordResetRepository) Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (*models.PasswordResetToken, error) {
	query := `
		INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + resetTokenColumns

	return scanResetTokenRow(r.db.Pool.QueryRow(ctx, query,
		uuid.New().String(), userID, tokenHash, expiresAt, time.Now(),
	))
}

func (r *PasswordResetRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error) {
	query := `SELECT ` + resetTokenColumns + ` FROM password_reset_tokens WHERE token_hash = $1`
	return scanResetTokenRow(r.db.Pool.QueryRow(ctx, query, tokenHash))
}

// Consume marks the token used and writes the new password hash in one
// transaction, so a token can never be spent without the password changing.
// Stamps password_changed_at so previously issued JWTs can be invalidated.
func (r *PasswordResetRepository) Consume(ctx context.Context, tokenID, userID, passwordHash string) error {
	now := time.Now()

	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx,
			`UPDATE password_reset_tokens SET used_at = $1 WHERE id = $2 AND used_at IS NULL`,
			now, tokenID,
		)
		if err != nil {
			return database.MapPostgresError(err)
		}
		if result.RowsAffected() == 0 {
			return models.ErrTokenUsed
		}

		result, err = tx.Exec(ctx,
			`UPDATE users SET password_hash = $1, password_changed_at = $2, updated_at = $2 WHERE id = $3`,
			passwordHash, now, userID,
		)
		if err != nil {
			return database.MapPostgresError(err)
		}
		if result.RowsAffected() == 0 {
			return models.ErrNotFound
		}
		return nil
	})
}

func (r *PasswordResetRepository) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM password_reset_tokens WHERE user_id = $1`, userID)
	return database.MapPostgresError(err)
}

// CleanupExpired removes tokens past their expiry. Used by the background
// cleanup task.
func (r *PasswordResetRepository) CleanupExpired(ctx context.Context) (int64, error) {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM password_reset_tokens WHERE expires_at <= now()`)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}
