package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/caremont/hospital-api/internal/models"
	"github.com/caremont/hospital-api/pkg/auth"
)

// UserService handles user business logic
type UserService struct {
	repo   UserRepository
	logger *slog.Logger
}

// NewUserService creates a new UserService
func NewUserService(repo UserRepository, logger *slog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		logger: logger,
	}
}

// GetUserByID retrieves a user by ID
func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("user not found", slog.String("user_id", id))
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return user, nil
}

// ListUsers retrieves a list of users with pagination
func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	users, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list users", slog.Int("limit", limit), slog.Int("offset", offset), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return users, nil
}

// CreateUser creates a new user with an admin-assigned role
func (s *UserService) CreateUser(ctx context.Context, user *models.User, password string) (*models.User, error) {
	existingUser, err := s.repo.GetByEmail(ctx, user.Email)
	if err == nil && existingUser != nil {
		s.logger.Info("user already exists")
		return nil, models.ErrConflict
	}

	if password != "" {
		if err := auth.ValidatePassword(password); err != nil {
			return nil, fmt.Errorf("invalid password: %w", err)
		}

		hashedPassword, err := auth.HashPassword(password)
		if err != nil {
			s.logger.Error("failed to hash password", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		user.PasswordHash = hashedPassword
	}

	createdUser, err := s.repo.Create(ctx, user)
	if err != nil {
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user created", slog.String("user_id", createdUser.ID))
	return createdUser, nil
}

// UpdateUser updates a user's name, role or status
func (s *UserService) UpdateUser(ctx context.Context, id string, user *models.User) (*models.User, error) {
	updatedUser, err := s.repo.Update(ctx, id, user)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user updated", slog.String("user_id", id))
	return updatedUser, nil
}

// DeleteUser removes a user account
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete user", slog.String("user_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("user deleted", slog.String("user_id", id))
	return nil
}
