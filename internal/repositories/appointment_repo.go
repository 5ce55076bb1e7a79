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

// AppointmentFilter narrows appointment listings.
type AppointmentFilter struct {
	PatientID string
	DoctorID  string
	Status    string
	From      *time.Time
	To        *time.Time
}

type AppointmentRepository struct {
	db *database.DB
}

func NewAppointmentRepository(db *database.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

const appointmentColumns = `id, patient_id, doctor_id, department_id, scheduled_at, reason, status, notes, created_at, updated_at`

func scanAppointmentRow(scanner rowScanner) (*models.Appointment, error) {
	var a models.Appointment

	err := scanner.Scan(
		&a.ID, &a.PatientID, &a.DoctorID, &a.DepartmentID,
		&a.ScheduledAt, &a.Reason, &a.Status, &a.Notes,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &a, nil
}

func scanAppointmentRows(rows pgx.Rows) ([]*models.Appointment, error) {
	defer rows.Close()

	appointments := make([]*models.Appointment, 0)
	for rows.Next() {
		a, err := scanAppointmentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appointments = append(appointments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return appointments, nil
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	return scanAppointmentRow(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *AppointmentRepository) List(ctx context.Context, filter AppointmentFilter, limit, offset int) ([]*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE 1=1`
	args := []interface{}{}
	argN := 1

	if filter.PatientID != "" {
		query += fmt.Sprintf(" AND patient_id = $%d", argN)
		args = append(args, filter.PatientID)
		argN++
	}
	if filter.DoctorID != "" {
		query += fmt.Sprintf(" AND doctor_id = $%d", argN)
		args = append(args, filter.DoctorID)
		argN++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argN)
		args = append(args, filter.Status)
		argN++
	}
	if filter.From != nil {
		query += fmt.Sprintf(" AND scheduled_at >= $%d", argN)
		args = append(args, *filter.From)
		argN++
	}
	if filter.To != nil {
		query += fmt.Sprintf(" AND scheduled_at < $%d", argN)
		args = append(args, *filter.To)
		argN++
	}

	query += fmt.Sprintf(" ORDER BY scheduled_at LIMIT $%d OFFSET $%d", argN, argN+1)
	args = append(args, limit, offset)

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}

	return scanAppointmentRows(rows)
}

// FindConflicting returns appointments for the same doctor overlapping the
// given time, excluding cancelled and no-show slots.
func (r *AppointmentRepository) FindConflicting(ctx context.Context, doctorID string, scheduledAt time.Time, slot time.Duration) ([]*models.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + ` FROM appointments
		WHERE doctor_id = $1
		  AND status NOT IN ('cancelled', 'no_show')
		  AND scheduled_at >= $2 AND scheduled_at < $3
	`

	rows, err := r.db.Pool.Query(ctx, query, doctorID, scheduledAt.Add(-slot), scheduledAt.Add(slot))
	if err != nil {
		return nil, fmt.Errorf("failed to query conflicting appointments: %w", err)
	}

	return scanAppointmentRows(rows)
}

func (r *AppointmentRepository) Create(ctx context.Context, appt *models.Appointment) (*models.Appointment, error) {
	appt.ID = uuid.New().String()

	now := time.Now()
	appt.CreatedAt = now
	appt.UpdatedAt = now

	if appt.Status == "" {
		appt.Status = models.AppointmentPending
	}

	query := `
		INSERT INTO appointments (id, patient_id, doctor_id, department_id, scheduled_at, reason, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + appointmentColumns

	return scanAppointmentRow(r.db.Pool.QueryRow(ctx, query,
		appt.ID, appt.PatientID, appt.DoctorID, appt.DepartmentID,
		appt.ScheduledAt, appt.Reason, appt.Status, appt.Notes,
		appt.CreatedAt, appt.UpdatedAt,
	))
}

func (r *AppointmentRepository) Update(ctx context.Context, id string, appt *models.Appointment) (*models.Appointment, error) {
	appt.UpdatedAt = time.Now()

	query := `
		UPDATE appointments SET scheduled_at = $1, reason = $2, status = $3, notes = $4, updated_at = $5
		WHERE id = $6
		RETURNING ` + appointmentColumns

	return scanAppointmentRow(r.db.Pool.QueryRow(ctx, query,
		appt.ScheduledAt, appt.Reason, appt.Status, appt.Notes, appt.UpdatedAt, id,
	))
}

// UpdateStatus transitions an appointment to a new status and returns the
// updated row.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id, status string) (*models.Appointment, error) {
	query := `
		UPDATE appointments SET status = $1, updated_at = $2
		WHERE id = $3
		RETURNING ` + appointmentColumns

	return scanAppointmentRow(r.db.Pool.QueryRow(ctx, query, status, time.Now(), id))
}

func (r *AppointmentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
