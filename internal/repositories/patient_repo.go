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

// PatientFilter narrows patient listings.
type PatientFilter struct {
	Status string
	Search string // Matches first or last name, case-insensitive prefix
}

type PatientRepository struct {
	db *database.DB
}

func NewPatientRepository(db *database.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

const patientColumns = `id, first_name, last_name, email, phone, date_of_birth, gender, blood_group, address, status, created_at, updated_at`

func scanPatientRow(scanner rowScanner) (*models.Patient, error) {
	var p models.Patient
	var dob *time.Time

	err := scanner.Scan(
		&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Phone,
		&dob, &p.Gender, &p.BloodGroup, &p.Address, &p.Status,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	p.DateOfBirth = dob
	return &p, nil
}

func scanPatientRows(rows pgx.Rows) ([]*models.Patient, error) {
	defer rows.Close()

	patients := make([]*models.Patient, 0)
	for rows.Next() {
		p, err := scanPatientRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan patient: %w", err)
		}
		patients = append(patients, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return patients, nil
}

func (r *PatientRepository) GetByID(ctx context.Context, id string) (*models.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`
	return scanPatientRow(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *PatientRepository) List(ctx context.Context, filter PatientFilter, limit, offset int) ([]*models.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE 1=1`
	args := []interface{}{}
	argN := 1

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argN)
		args = append(args, filter.Status)
		argN++
	}
	if filter.Search != "" {
		query += fmt.Sprintf(" AND (first_name ILIKE $%d OR last_name ILIKE $%d)", argN, argN)
		args = append(args, filter.Search+"%")
		argN++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argN, argN+1)
	args = append(args, limit, offset)

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query patients: %w", err)
	}

	return scanPatientRows(rows)
}

func (r *PatientRepository) Create(ctx context.Context, patient *models.Patient) (*models.Patient, error) {
	patient.ID = uuid.New().String()

	now := time.Now()
	patient.CreatedAt = now
	patient.UpdatedAt = now

	if patient.Status == "" {
		patient.Status = "active"
	}

	query := `
		INSERT INTO patients (id, first_name, last_name, email, phone, date_of_birth, gender, blood_group, address, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + patientColumns

	return scanPatientRow(r.db.Pool.QueryRow(ctx, query,
		patient.ID, patient.FirstName, patient.LastName, patient.Email, patient.Phone,
		patient.DateOfBirth, patient.Gender, patient.BloodGroup, patient.Address, patient.Status,
		patient.CreatedAt, patient.UpdatedAt,
	))
}

func (r *PatientRepository) Update(ctx context.Context, id string, patient *models.Patient) (*models.Patient, error) {
	patient.UpdatedAt = time.Now()

	query := `
		UPDATE patients SET first_name = $1, last_name = $2, email = $3, phone = $4,
			date_of_birth = $5, gender = $6, blood_group = $7, address = $8, status = $9, updated_at = $10
		WHERE id = $11
		RETURNING ` + patientColumns

	return scanPatientRow(r.db.Pool.QueryRow(ctx, query,
		patient.FirstName, patient.LastName, patient.Email, patient.Phone,
		patient.DateOfBirth, patient.Gender, patient.BloodGroup, patient.Address, patient.Status,
		patient.UpdatedAt, id,
	))
}

func (r *PatientRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
