package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/caremont/hospital-api/internal/database"
	"github.com/caremont/hospital-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DoctorFilter narrows doctor listings.
type DoctorFilter struct {
	DepartmentID string
	Specialty    string
	Status       string
}

type DoctorRepository struct {
	db *database.DB
}

func NewDoctorRepository(db *database.DB) *DoctorRepository {
	return &DoctorRepository{db: db}
}

const doctorColumns = `id, user_id, first_name, last_name, email, phone, specialty, department_id, status, created_at, updated_at`

func scanDoctorRow(scanner rowScanner) (*models.Doctor, error) {
	var d models.Doctor

	err := scanner.Scan(
		&d.ID, &d.UserID, &d.FirstName, &d.LastName, &d.Email, &d.Phone,
		&d.Specialty, &d.DepartmentID, &d.Status,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &d, nil
}

func scanDoctorRows(rows pgx.Rows) ([]*models.Doctor, error) {
	defer rows.Close()

	doctors := make([]*models.Doctor, 0)
	for rows.Next() {
		d, err := scanDoctorRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan doctor: %w", err)
		}
		doctors = append(doctors, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return doctors, nil
}

func (r *DoctorRepository) GetByID(ctx context.Context, id string) (*models.Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors WHERE id = $1`
	return scanDoctorRow(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *DoctorRepository) List(ctx context.Context, filter DoctorFilter, limit, offset int) ([]*models.Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors WHERE 1=1`
	args := []interface{}{}
	argN := 1

	if filter.DepartmentID != "" {
		query += fmt.Sprintf(" AND department_id = $%d", argN)
		args = append(args, filter.DepartmentID)
		argN++
	}
	if filter.Specialty != "" {
		query += fmt.Sprintf(" AND specialty = $%d", argN)
		args = append(args, filter.Specialty)
		argN++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argN)
		args = append(args, filter.Status)
		argN++
	}

	query += fmt.Sprintf(" ORDER BY last_name, first_name LIMIT $%d OFFSET $%d", argN, argN+1)
	args = append(args, limit, offset)

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query doctors: %w", err)
	}

	return scanDoctorRows(rows)
}

func (r *DoctorRepository) Create(ctx context.Context, doctor *models.Doctor) (*models.Doctor, error) {
	doctor.ID = uuid.New().String()

	now := time.Now()
	doctor.CreatedAt = now
	doctor.UpdatedAt = now

	if doctor.Status == "" {
		doctor.Status = "active"
	}

	query := `
		INSERT INTO doctors (id, user_id, first_name, last_name, email, phone, specialty, department_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + doctorColumns

	return scanDoctorRow(r.db.Pool.QueryRow(ctx, query,
		doctor.ID, doctor.UserID, doctor.FirstName, doctor.LastName, doctor.Email, doctor.Phone,
		doctor.Specialty, doctor.DepartmentID, doctor.Status,
		doctor.CreatedAt, doctor.UpdatedAt,
	))
}

func (r *DoctorRepository) Update(ctx context.Context, id string, doctor *models.Doctor) (*models.Doctor, error) {
	doctor.UpdatedAt = time.Now()

	query := `
		UPDATE doctors SET first_name = $1, last_name = $2, email = $3, phone = $4,
			specialty = $5, department_id = $6, status = $7, updated_at = $8
		WHERE id = $9
		RETURNING ` + doctorColumns

	return scanDoctorRow(r.db.Pool.QueryRow(ctx, query,
		doctor.FirstName, doctor.LastName, doctor.Email, doctor.Phone,
		doctor.Specialty, doctor.DepartmentID, doctor.Status,
		doctor.UpdatedAt, id,
	))
}

func (r *DoctorRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM doctors WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
