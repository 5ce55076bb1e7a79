package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caremont/hospital-api/internal/models"
	"github.com/caremont/hospital-api/internal/repositories"
)

// appointmentSlot is the booking granularity used for conflict detection.
const appointmentSlot = 30 * time.Minute

// AppointmentRepository defines the interface for appointment data access
type AppointmentRepository interface {
	GetByID(ctx context.Context, id string) (*models.Appointment, error)
	List(ctx context.Context, filter repositories.AppointmentFilter, limit, offset int) ([]*models.Appointment, error)
	FindConflicting(ctx context.Context, doctorID string, scheduledAt time.Time, slot time.Duration) ([]*models.Appointment, error)
	Create(ctx context.Context, appt *models.Appointment) (*models.Appointment, error)
	Update(ctx context.Context, id string, appt *models.Appointment) (*models.Appointment, error)
	UpdateStatus(ctx context.Context, id, status string) (*models.Appointment, error)
	Delete(ctx context.Context, id string) error
}

// AppointmentService handles scheduling business logic and fires
// notifications after state changes commit.
type AppointmentService struct {
	repo        AppointmentRepository
	patientRepo PatientRepository
	doctorRepo  DoctorRepository
	notifier    *NotificationService
	logger      *slog.Logger
}

// NewAppointmentService creates a new AppointmentService
func NewAppointmentService(
	repo AppointmentRepository,
	patientRepo PatientRepository,
	doctorRepo DoctorRepository,
	notifier *NotificationService,
	logger *slog.Logger,
) *AppointmentService {
	return &AppointmentService{
		repo:        repo,
		patientRepo: patientRepo,
		doctorRepo:  doctorRepo,
		notifier:    notifier,
		logger:      logger,
	}
}

// GetAppointmentByID retrieves an appointment by ID
func (s *AppointmentService) GetAppointmentByID(ctx context.Context, id string) (*models.Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get appointment", slog.String("appointment_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return appt, nil
}

// ListAppointments retrieves appointments matching the filter
func (s *AppointmentService) ListAppointments(ctx context.Context, filter repositories.AppointmentFilter, limit, offset int) ([]*models.Appointment, error) {
	appts, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		s.logger.Error("failed to list appointments", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return appts, nil
}

// CreateAppointment books a slot after verifying the patient and doctor
// exist and the doctor has no overlapping booking. The confirmation emails
// are best-effort; the booking stands even if they cannot be delivered.
func (s *AppointmentService) CreateAppointment(ctx context.Context, appt *models.Appointment) (*models.Appointment, error) {
	patient, err := s.patientRepo.GetByID(ctx, appt.PatientID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrBadRequest
		}
		s.logger.Error("failed to verify patient", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	doctor, err := s.doctorRepo.GetByID(ctx, appt.DoctorID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrBadRequest
		}
		s.logger.Error("failed to verify doctor", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if appt.ScheduledAt.Before(time.Now()) {
		return nil, models.ErrBadRequest
	}

	conflicts, err := s.repo.FindConflicting(ctx, appt.DoctorID, appt.ScheduledAt, appointmentSlot)
	if err != nil {
		s.logger.Error("failed to check appointment conflicts", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if len(conflicts) > 0 {
		s.logger.Info("appointment slot already taken",
			slog.String("doctor_id", appt.DoctorID),
			slog.Time("scheduled_at", appt.ScheduledAt))
		return nil, models.ErrConflict
	}

	created, err := s.repo.Create(ctx, appt)
	if err != nil {
		s.logger.Error("failed to create appointment", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("appointment created",
		slog.String("appointment_id", created.ID),
		slog.String("doctor_id", created.DoctorID))

	s.notifyBooked(ctx, created, patient, doctor)

	return created, nil
}

// UpdateAppointment updates schedule details for an existing appointment
func (s *AppointmentService) UpdateAppointment(ctx context.Context, id string, appt *models.Appointment) (*models.Appointment, error) {
	updated, err := s.repo.Update(ctx, id, appt)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update appointment", slog.String("appointment_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("appointment updated", slog.String("appointment_id", id))
	return updated, nil
}

// UpdateAppointmentStatus transitions an appointment and notifies the
// patient when the change is visible to them.
func (s *AppointmentService) UpdateAppointmentStatus(ctx context.Context, id, status string) (*models.Appointment, error) {
	if !models.ValidAppointmentStatus(status) {
		return nil, models.ErrBadRequest
	}

	updated, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update appointment status", slog.String("appointment_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("appointment status updated",
		slog.String("appointment_id", id),
		slog.String("status", status))

	if status == models.AppointmentConfirmed || status == models.AppointmentCancelled {
		s.notifyStatusChange(ctx, updated, status)
	}

	return updated, nil
}

// DeleteAppointment removes an appointment record
func (s *AppointmentService) DeleteAppointment(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete appointment", slog.String("appointment_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("appointment deleted", slog.String("appointment_id", id))
	return nil
}

func (s *AppointmentService) notifyBooked(ctx context.Context, appt *models.Appointment, patient *models.Patient, doctor *models.Doctor) {
	when := appt.ScheduledAt.Format("Monday, 2 January 2006 at 15:04")

	// Patients have no account, so their copy is ungated.
	if patient.Email != "" {
		s.notifier.SendNotification(ctx, &models.NotificationRequest{
			RecipientEmail: patient.Email,
			Subject:        "Appointment received",
			BodyText: fmt.Sprintf("Dear %s %s,\n\nYour appointment with Dr. %s %s on %s has been received and is pending confirmation.",
				patient.FirstName, patient.LastName, doctor.FirstName, doctor.LastName, when),
			Category: models.CategoryAppointment,
		})
	}

	// The doctor's copy goes through their linked account's preferences.
	if doctor.Email != "" {
		req := &models.NotificationRequest{
			RecipientEmail: doctor.Email,
			Subject:        "New appointment booked",
			BodyText: fmt.Sprintf("A new appointment with patient %s %s was booked for %s.",
				patient.FirstName, patient.LastName, when),
			Category: models.CategoryAppointment,
		}
		if doctor.UserID != nil {
			req.UserID = *doctor.UserID
		}
		s.notifier.SendNotification(ctx, req)
	}
}

func (s *AppointmentService) notifyStatusChange(ctx context.Context, appt *models.Appointment, status string) {
	patient, err := s.patientRepo.GetByID(ctx, appt.PatientID)
	if err != nil || patient.Email == "" {
		if err != nil {
			s.logger.Error("failed to load patient for notification",
				slog.String("appointment_id", appt.ID),
				slog.Any("error", err))
		}
		return
	}

	subject := "Appointment confirmed"
	verb := "confirmed"
	if status == models.AppointmentCancelled {
		subject = "Appointment cancelled"
		verb = "cancelled"
	}

	s.notifier.SendNotification(ctx, &models.NotificationRequest{
		RecipientEmail: patient.Email,
		Subject:        subject,
		BodyText: fmt.Sprintf("Dear %s %s,\n\nYour appointment on %s has been %s.",
			patient.FirstName, patient.LastName,
			appt.ScheduledAt.Format("Monday, 2 January 2006 at 15:04"), verb),
		Category: models.CategoryAppointment,
	})
}
