package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/caremont/hospital-api/internal/database"
	"github.com/caremont/hospital-api/internal/models"
	"github.com/google/uuid"
)

type DepartmentRepository struct {
	db *database.DB
}

func NewDepartmentRepository(db *database.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

const departmentColumns = `id, name, description, head_doctor_id, created_at, updated_at`

func scanDepartmentRow(scanner rowScanner) (*models.Department, error) {
	var d models.Department

	err := scanner.Scan(
		&d.ID, &d.Name, &d.Description, &d.HeadDoctorID,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &d, nil
}

func (r *DepartmentRepository) GetByID(ctx context.Context, id string) (*models.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE id = $1`
	return scanDepartmentRow(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *DepartmentRepository) List(ctx context.Context, limit, offset int) ([]*models.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments ORDER BY name LIMIT $1 OFFSET $2`

	rows, err := r.db.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query departments: %w", err)
	}
	defer rows.Close()

	departments := make([]*models.Department, 0)
	for rows.Next() {
		d, err := scanDepartmentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		departments = append(departments, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return departments, nil
}

func (r *DepartmentRepository) Create(ctx context.Context, dept *models.Department) (*models.Department, error) {
	dept.ID = uuid.New().String()

	now := time.Now()
	dept.CreatedAt = now
	dept.UpdatedAt = now

	query := `
		INSERT INTO departments (id, name, description, head_doctor_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + departmentColumns

	return scanDepartmentRow(r.db.Pool.QueryRow(ctx, query,
		dept.ID, dept.Name, dept.Description, dept.HeadDoctorID,
		dept.CreatedAt, dept.UpdatedAt,
	))
}

func (r *DepartmentRepository) Update(ctx context.Context, id string, dept *models.Department) (*models.Department, error) {
	dept.UpdatedAt = time.Now()

	query := `
		UPDATE departments SET name = $1, description = $2, head_doctor_id = $3, updated_at = $4
		WHERE id = $5
		RETURNING ` + departmentColumns

	return scanDepartmentRow(r.db.Pool.QueryRow(ctx, query,
		dept.Name, dept.Description, dept.HeadDoctorID, dept.UpdatedAt, id,
	))
}

func (r *DepartmentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
