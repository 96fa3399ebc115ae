package service

import (
	"context"
	"time"

	"rentals/internal/domain"
	"rentals/internal/models"

	"github.com/rs/zerolog"
)

var _ domain.UserService = (*UserService)(nil)

type UserService struct {
	repo   domain.UserRepository
	logger *zerolog.Logger
}

func NewUserService(repo domain.UserRepository, logger *zerolog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		logger: logger,
	}
}

// Remember сохраняет имя и email пользователя из токена, чтобы показывать их в бронированиях
func (s *UserService) Remember(ctx context.Context, identity models.Identity) error {
	if err := requireIdentity(identity); err != nil {
		return err
	}

	return s.repo.UpsertUser(ctx, &models.User{
		ID:        identity.UserID,
		Name:      identity.Name,
		Email:     identity.Email,
		UpdatedAt: time.Now().UTC(),
	})
}
