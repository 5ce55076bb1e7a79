package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/caremont/hospital-api/internal/models"
	"github.com/caremont/hospital-api/internal/repositories"
)

// DoctorRepository defines the interface for doctor data access
type DoctorRepository interface {
	GetByID(ctx context.Context, id string) (*models.Doctor, error)
	List(ctx context.Context, filter repositories.DoctorFilter, limit, offset int) ([]*models.Doctor, error)
	Create(ctx context.Context, doctor *models.Doctor) (*models.Doctor, error)
	Update(ctx context.Context, id string, doctor *models.Doctor) (*models.Doctor, error)
	Delete(ctx context.Context, id string) error
}

// DepartmentRepository defines the interface for department data access
type DepartmentRepository interface {
	GetByID(ctx context.Context, id string) (*models.Department, error)
	List(ctx context.Context, limit, offset int) ([]*models.Department, error)
	Create(ctx context.Context, dept *models.Department) (*models.Department, error)
	Update(ctx context.Context, id string, dept *models.Department) (*models.Department, error)
	Delete(ctx context.Context, id string) error
}

// DoctorService handles doctor roster business logic
type DoctorService struct {
	repo     DoctorRepository
	deptRepo DepartmentRepository
	logger   *slog.Logger
}

// NewDoctorService creates a new DoctorService
func NewDoctorService(repo DoctorRepository, deptRepo DepartmentRepository, logger *slog.Logger) *DoctorService {
	return &DoctorService{
		repo:     repo,
		deptRepo: deptRepo,
		logger:   logger,
	}
}

// GetDoctorByID retrieves a doctor by ID
func (s *DoctorService) GetDoctorByID(ctx context.Context, id string) (*models.Doctor, error) {
	doctor, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get doctor", slog.String("doctor_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return doctor, nil
}

// ListDoctors retrieves doctors matching the filter with pagination
func (s *DoctorService) ListDoctors(ctx context.Context, filter repositories.DoctorFilter, limit, offset int) ([]*models.Doctor, error) {
	doctors, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		s.logger.Error("failed to list doctors", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return doctors, nil
}

// CreateDoctor adds a doctor to the roster. The department, when given,
// must exist.
func (s *DoctorService) CreateDoctor(ctx context.Context, doctor *models.Doctor) (*models.Doctor, error) {
	doctor.Email = strings.ToLower(strings.TrimSpace(doctor.Email))

	if doctor.DepartmentID != nil {
		if _, err := s.deptRepo.GetByID(ctx, *doctor.DepartmentID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, models.ErrBadRequest
			}
			s.logger.Error("failed to verify department", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
	}

	created, err := s.repo.Create(ctx, doctor)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create doctor", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("doctor created", slog.String("doctor_id", created.ID))
	return created, nil
}

// UpdateDoctor updates mutable doctor fields
func (s *DoctorService) UpdateDoctor(ctx context.Context, id string, doctor *models.Doctor) (*models.Doctor, error) {
	if doctor.DepartmentID != nil {
		if _, err := s.deptRepo.GetByID(ctx, *doctor.DepartmentID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, models.ErrBadRequest
			}
			s.logger.Error("failed to verify department", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
	}

	updated, err := s.repo.Update(ctx, id, doctor)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to update doctor", slog.String("doctor_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("doctor updated", slog.String("doctor_id", id))
	return updated, nil
}

// DeleteDoctor removes a doctor from the roster
func (s *DoctorService) DeleteDoctor(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete doctor", slog.String("doctor_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("doctor deleted", slog.String("doctor_id", id))
	return nil
}

// DepartmentService handles department business logic
type DepartmentService struct {
	repo   DepartmentRepository
	logger *slog.Logger
}

// NewDepartmentService creates a new DepartmentService
func NewDepartmentService(repo DepartmentRepository, logger *slog.Logger) *DepartmentService {
	return &DepartmentService{
		repo:   repo,
		logger: logger,
	}
}

func (s *DepartmentService) GetDepartmentByID(ctx context.Context, id string) (*models.Department, error) {
	dept, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get department", slog.String("department_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return dept, nil
}

func (s *DepartmentService) ListDepartments(ctx context.Context, limit, offset int) ([]*models.Department, error) {
	depts, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list departments", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return depts, nil
}

func (s *DepartmentService) CreateDepartment(ctx context.Context, dept *models.Department) (*models.Department, error) {
	created, err := s.repo.Create(ctx, dept)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create department", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("department created", slog.String("department_id", created.ID))
	return created, nil
}

func (s *DepartmentService) UpdateDepartment(ctx context.Context, id string, dept *models.Department) (*models.Department, error) {
	updated, err := s.repo.Update(ctx, id, dept)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to update department", slog.String("department_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("department updated", slog.String("department_id", id))
	return updated, nil
}

func (s *DepartmentService) DeleteDepartment(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		if errors.Is(err, models.ErrBadRequest) {
			// Departments with doctors still attached cannot be removed.
			return models.ErrBadRequest
		}
		s.logger.Error("failed to delete department", slog.String("department_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("department deleted", slog.String("department_id", id))
	return nil
}
