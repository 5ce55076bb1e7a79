package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/caremont/hospital-api/internal/models"
)

// ContactRepository defines the interface for contact message storage
type ContactRepository interface {
	GetByID(ctx context.Context, id string) (*models.ContactMessage, error)
	List(ctx context.Context, status string, limit, offset int) ([]*models.ContactMessage, error)
	Create(ctx context.Context, msg *models.ContactMessage) (*models.ContactMessage, error)
	UpdateStatus(ctx context.Context, id, status string) (*models.ContactMessage, error)
	Delete(ctx context.Context, id string) error
}

// ContactService stores public contact-form submissions and forwards them
// to the staff inbox.
type ContactService struct {
	repo       ContactRepository
	notifier   *NotificationService
	staffInbox string
	logger     *slog.Logger
}

// NewContactService creates a new ContactService
func NewContactService(repo ContactRepository, notifier *NotificationService, staffInbox string, logger *slog.Logger) *ContactService {
	return &ContactService{
		repo:       repo,
		notifier:   notifier,
		staffInbox: staffInbox,
		logger:     logger,
	}
}

// GetMessageByID retrieves a contact message by ID
func (s *ContactService) GetMessageByID(ctx context.Context, id string) (*models.ContactMessage, error) {
	msg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get contact message", slog.String("message_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return msg, nil
}

// ListMessages retrieves contact messages, optionally filtered by status
func (s *ContactService) ListMessages(ctx context.Context, status string, limit, offset int) ([]*models.ContactMessage, error) {
	msgs, err := s.repo.List(ctx, status, limit, offset)
	if err != nil {
		s.logger.Error("failed to list contact messages", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return msgs, nil
}

// SubmitMessage stores a contact-form submission and forwards it to the
// staff inbox. The forward is system-originated and carries no user, so it
// is always attempted regardless of anyone's preferences.
func (s *ContactService) SubmitMessage(ctx context.Context, msg *models.ContactMessage) (*models.ContactMessage, error) {
	msg.Email = strings.ToLower(strings.TrimSpace(msg.Email))

	created, err := s.repo.Create(ctx, msg)
	if err != nil {
		s.logger.Error("failed to store contact message", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("contact message received", slog.String("message_id", created.ID))

	if s.staffInbox != "" {
		s.notifier.SendNotification(ctx, &models.NotificationRequest{
			RecipientEmail: s.staffInbox,
			Subject:        fmt.Sprintf("Contact form: %s", created.Subject),
			BodyText: fmt.Sprintf("From: %s <%s>\n\n%s",
				created.Name, created.Email, created.Message),
			Category: models.CategoryContact,
		})
	}

	return created, nil
}

// UpdateMessageStatus marks a message as read or replied
func (s *ContactService) UpdateMessageStatus(ctx context.Context, id, status string) (*models.ContactMessage, error) {
	switch status {
	case "new", "read", "replied":
	default:
		return nil, models.ErrBadRequest
	}

	updated, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update contact message", slog.String("message_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return updated, nil
}

// DeleteMessage removes a contact message
func (s *ContactService) DeleteMessage(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete contact message", slog.String("message_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}
