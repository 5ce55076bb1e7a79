package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/caremont/hospital-api/internal/database"
	"github.com/caremont/hospital-api/internal/models"
	"github.com/google/uuid"
)

type ContactMessageRepository struct {
	db *database.DB
}

func NewContactMessageRepository(db *database.DB) *ContactMessageRepository {
	return &ContactMessageRepository{db: db}
}

const contactColumns = `id, name, email, subject, message, status, created_at`

func scanContactRow(scanner rowScanner) (*models.ContactMessage, error) {
	var m models.ContactMessage

	err := scanner.Scan(
		&m.ID, &m.Name, &m.Email, &m.Subject, &m.Message, &m.Status, &m.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &m, nil
}

func (r *ContactMessageRepository) GetByID(ctx context.Context, id string) (*models.ContactMessage, error) {
	query := `SELECT ` + contactColumns + ` FROM contact_messages WHERE id = $1`
	return scanContactRow(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *ContactMessageRepository) List(ctx context.Context, status string, limit, offset int) ([]*models.ContactMessage, error) {
	query := `SELECT ` + contactColumns + ` FROM contact_messages WHERE 1=1`
	args := []interface{}{}
	argN := 1

	if status != "" {
		query += fmt.Sprintf(" AND status = $%d", argN)
		args = append(args, status)
		argN++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argN, argN+1)
	args = append(args, limit, offset)

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query contact messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*models.ContactMessage, 0)
	for rows.Next() {
		m, err := scanContactRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact message: %w", err)
		}
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return messages, nil
}

func (r *ContactMessageRepository) Create(ctx context.Context, msg *models.ContactMessage) (*models.ContactMessage, error) {
	msg.ID = uuid.New().String()
	msg.CreatedAt = time.Now()

	if msg.Status == "" {
		msg.Status = "new"
	}

	query := `
		INSERT INTO contact_messages (id, name, email, subject, message, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + contactColumns

	return scanContactRow(r.db.Pool.QueryRow(ctx, query,
		msg.ID, msg.Name, msg.Email, msg.Subject, msg.Message, msg.Status, msg.CreatedAt,
	))
}

// UpdateStatus marks a contact message as read or replied.
func (r *ContactMessageRepository) UpdateStatus(ctx context.Context, id, status string) (*models.ContactMessage, error) {
	query := `
		UPDATE contact_messages SET status = $1
		WHERE id = $2
		RETURNING ` + contactColumns

	return scanContactRow(r.db.Pool.QueryRow(ctx, query, status, id))
}

func (r *ContactMessageRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM contact_messages WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
