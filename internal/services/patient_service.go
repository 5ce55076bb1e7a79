package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/caremont/hospital-api/internal/models"
	"github.com/caremont/hospital-api/internal/repositories"
	pkglogger "github.com/caremont/hospital-api/pkg/logger"
)

// PatientRepository defines the interface for patient data access
type PatientRepository interface {
	GetByID(ctx context.Context, id string) (*models.Patient, error)
	List(ctx context.Context, filter repositories.PatientFilter, limit, offset int) ([]*models.Patient, error)
	Create(ctx context.Context, patient *models.Patient) (*models.Patient, error)
	Update(ctx context.Context, id string, patient *models.Patient) (*models.Patient, error)
	Delete(ctx context.Context, id string) error
}

// PatientService handles patient record business logic
type PatientService struct {
	repo   PatientRepository
	logger *slog.Logger
}

// NewPatientService creates a new PatientService
func NewPatientService(repo PatientRepository, logger *slog.Logger) *PatientService {
	return &PatientService{
		repo:   repo,
		logger: logger,
	}
}

// GetPatientByID retrieves a patient by ID
func (s *PatientService) GetPatientByID(ctx context.Context, id string) (*models.Patient, error) {
	patient, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get patient", slog.String("patient_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return patient, nil
}

// ListPatients retrieves patients matching the filter with pagination
func (s *PatientService) ListPatients(ctx context.Context, filter repositories.PatientFilter, limit, offset int) ([]*models.Patient, error) {
	patients, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		s.logger.Error("failed to list patients", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return patients, nil
}

// CreatePatient registers a new patient record
func (s *PatientService) CreatePatient(ctx context.Context, patient *models.Patient) (*models.Patient, error) {
	patient.Email = strings.ToLower(strings.TrimSpace(patient.Email))

	created, err := s.repo.Create(ctx, patient)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.logger.Info("patient already exists",
				slog.String("email", pkglogger.SanitizedEmail(patient.Email)))
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create patient", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("patient created", slog.String("patient_id", created.ID))
	return created, nil
}

// UpdatePatient updates mutable patient fields
func (s *PatientService) UpdatePatient(ctx context.Context, id string, patient *models.Patient) (*models.Patient, error) {
	updated, err := s.repo.Update(ctx, id, patient)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to update patient", slog.String("patient_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("patient updated", slog.String("patient_id", id))
	return updated, nil
}

// DeletePatient removes a patient record
func (s *PatientService) DeletePatient(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete patient", slog.String("patient_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("patient deleted", slog.String("patient_id", id))
	return nil
}
