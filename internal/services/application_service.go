package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/caremont/hospital-api/internal/models"
	"github.com/caremont/hospital-api/internal/repositories"
)

// ApplicationRepository defines the interface for job application data access
type ApplicationRepository interface {
	GetByID(ctx context.Context, id string) (*models.Application, error)
	List(ctx context.Context, filter repositories.ApplicationFilter, limit, offset int) ([]*models.Application, error)
	Create(ctx context.Context, app *models.Application) (*models.Application, error)
	UpdateStatus(ctx context.Context, id, status string) (*models.Application, error)
	Delete(ctx context.Context, id string) error
}

// ApplicationService handles job application business logic
type ApplicationService struct {
	repo     ApplicationRepository
	notifier *NotificationService
	logger   *slog.Logger
}

// NewApplicationService creates a new ApplicationService
func NewApplicationService(repo ApplicationRepository, notifier *NotificationService, logger *slog.Logger) *ApplicationService {
	return &ApplicationService{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
	}
}

// GetApplicationByID retrieves an application by ID
func (s *ApplicationService) GetApplicationByID(ctx context.Context, id string) (*models.Application, error) {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get application", slog.String("application_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return app, nil
}

// ListApplications retrieves applications matching the filter
func (s *ApplicationService) ListApplications(ctx context.Context, filter repositories.ApplicationFilter, limit, offset int) ([]*models.Application, error) {
	apps, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		s.logger.Error("failed to list applications", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return apps, nil
}

// SubmitApplication stores a new application and acknowledges it by email.
// Applicants have no account, so the acknowledgement is ungated.
func (s *ApplicationService) SubmitApplication(ctx context.Context, app *models.Application) (*models.Application, error) {
	app.ApplicantEmail = strings.ToLower(strings.TrimSpace(app.ApplicantEmail))

	created, err := s.repo.Create(ctx, app)
	if err != nil {
		s.logger.Error("failed to create application", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("application submitted",
		slog.String("application_id", created.ID),
		slog.String("position", created.Position))

	s.notifier.SendNotification(ctx, &models.NotificationRequest{
		RecipientEmail: created.ApplicantEmail,
		Subject:        "Application received",
		BodyText: fmt.Sprintf("Dear %s,\n\nWe have received your application for the %s position. Our team will review it and get back to you.",
			created.ApplicantName, created.Position),
		Category: models.CategoryApplication,
	})

	return created, nil
}

// UpdateApplicationStatus transitions an application and informs the
// applicant of the decision.
func (s *ApplicationService) UpdateApplicationStatus(ctx context.Context, id, status string) (*models.Application, error) {
	if !models.ValidApplicationStatus(status) {
		return nil, models.ErrBadRequest
	}

	updated, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update application status", slog.String("application_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("application status updated",
		slog.String("application_id", id),
		slog.String("status", status))

	if status == models.ApplicationAccepted || status == models.ApplicationRejected {
		s.notifyDecision(ctx, updated, status)
	}

	return updated, nil
}

// DeleteApplication removes an application record
func (s *ApplicationService) DeleteApplication(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete application", slog.String("application_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("application deleted", slog.String("application_id", id))
	return nil
}

func (s *ApplicationService) notifyDecision(ctx context.Context, app *models.Application, status string) {
	var body string
	switch status {
	case models.ApplicationAccepted:
		body = fmt.Sprintf("Dear %s,\n\nCongratulations! Your application for the %s position has been accepted. We will contact you shortly with next steps.",
			app.ApplicantName, app.Position)
	case models.ApplicationRejected:
		body = fmt.Sprintf("Dear %s,\n\nThank you for your interest in the %s position. After careful review we have decided not to move forward with your application.",
			app.ApplicantName, app.Position)
	default:
		return
	}

	s.notifier.SendNotification(ctx, &models.NotificationRequest{
		RecipientEmail: app.ApplicantEmail,
		Subject:        "Update on your application",
		BodyText:       body,
		Category:       models.CategoryApplication,
	})
}
