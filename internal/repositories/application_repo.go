package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/caremont/hospital-api/internal/database"
	"github.com/caremont/hospital-api/internal/models"
	"github.com/google/uuid"
)

// ApplicationFilter narrows job application listings.
type ApplicationFilter struct {
	Status   string
	Position string
}

type ApplicationRepository struct {
	db *database.DB
}

func NewApplicationRepository(db *database.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

const applicationColumns = `id, applicant_name, applicant_email, phone, position, department_id, cover_letter, status, created_at, updated_at`

func scanApplicationRow(scanner rowScanner) (*models.Application, error) {
	var a models.Application

	err := scanner.Scan(
		&a.ID, &a.ApplicantName, &a.ApplicantEmail, &a.Phone, &a.Position,
		&a.DepartmentID, &a.CoverLetter, &a.Status,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &a, nil
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`
	return scanApplicationRow(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *ApplicationRepository) List(ctx context.Context, filter ApplicationFilter, limit, offset int) ([]*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE 1=1`
	args := []interface{}{}
	argN := 1

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argN)
		args = append(args, filter.Status)
		argN++
	}
	if filter.Position != "" {
		query += fmt.Sprintf(" AND position = $%d", argN)
		args = append(args, filter.Position)
		argN++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argN, argN+1)
	args = append(args, limit, offset)

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query applications: %w", err)
	}
	defer rows.Close()

	applications := make([]*models.Application, 0)
	for rows.Next() {
		a, err := scanApplicationRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		applications = append(applications, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return applications, nil
}

func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) (*models.Application, error) {
	app.ID = uuid.New().String()

	now := time.Now()
	app.CreatedAt = now
	app.UpdatedAt = now

	if app.Status == "" {
		app.Status = models.ApplicationSubmitted
	}

	query := `
		INSERT INTO applications (id, applicant_name, applicant_email, phone, position, department_id, cover_letter, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + applicationColumns

	return scanApplicationRow(r.db.Pool.QueryRow(ctx, query,
		app.ID, app.ApplicantName, app.ApplicantEmail, app.Phone, app.Position,
		app.DepartmentID, app.CoverLetter, app.Status,
		app.CreatedAt, app.UpdatedAt,
	))
}

// UpdateStatus transitions an application to a new status and returns the
// updated row.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id, status string) (*models.Application, error) {
	query := `
		UPDATE applications SET status = $1, updated_at = $2
		WHERE id = $3
		RETURNING ` + applicationColumns

	return scanApplicationRow(r.db.Pool.QueryRow(ctx, query, status, time.Now(), id))
}

func (r *ApplicationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
