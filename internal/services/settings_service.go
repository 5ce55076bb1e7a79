package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/caremont/hospital-api/internal/models"
)

// SettingsService manages per-user notification preferences. Reads fall
// back to defaults for users who never saved anything; the row is only
// materialized on the first write.
type SettingsService struct {
	repo   PreferencesRepository
	logger *slog.Logger
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(repo PreferencesRepository, logger *slog.Logger) *SettingsService {
	return &SettingsService{
		repo:   repo,
		logger: logger,
	}
}

// GetPreferences returns the user's stored preferences, or the defaults if
// none exist yet.
func (s *SettingsService) GetPreferences(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
	prefs, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return DefaultPreferences(userID), nil
		}
		s.logger.Error("failed to get notification preferences",
			slog.String("user_id", userID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return prefs, nil
}

// UpdatePreferences replaces the user's preference record.
func (s *SettingsService) UpdatePreferences(ctx context.Context, prefs *models.NotificationPreferences) (*models.NotificationPreferences, error) {
	if prefs.UserID == "" {
		return nil, models.ErrBadRequest
	}

	updated, err := s.repo.Upsert(ctx, prefs)
	if err != nil {
		s.logger.Error("failed to update notification preferences",
			slog.String("user_id", prefs.UserID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("notification preferences updated", slog.String("user_id", prefs.UserID))
	return updated, nil
}
