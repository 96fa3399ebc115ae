package service

import (
	"context"
	"time"

	"rentals/internal/domain"
	"rentals/internal/models"

	"github.com/rs/zerolog"
)

var _ domain.FavoriteService = (*FavoriteService)(nil)

type FavoriteService struct {
	properties domain.PropertyRepository
	favorites  domain.FavoriteRepository
	logger     *zerolog.Logger
}

func NewFavoriteService(properties domain.PropertyRepository, favorites domain.FavoriteRepository, logger *zerolog.Logger) *FavoriteService {
	return &FavoriteService{
		properties: properties,
		favorites:  favorites,
		logger:     logger,
	}
}

// ToggleFavorite adds the property to the user's favorites or removes it if it
// is already there. It returns whether the property is a favorite afterwards.
func (s *FavoriteService) ToggleFavorite(ctx context.Context, user models.Identity, propertyID string) (bool, error) {
	if err := requireIdentity(user); err != nil {
		return false, err
	}

	// Объект должен существовать
	if _, err := s.properties.GetProperty(ctx, propertyID); err != nil {
		return false, err
	}

	removed, err := s.favorites.RemoveFavorite(ctx, user.UserID, propertyID)
	if err != nil {
		return false, err
	}
	if removed {
		s.logger.Debug().Str("user_id", user.UserID).Str("property_id", propertyID).Msg("Favorite removed")
		return false, nil
	}

	err = s.favorites.AddFavorite(ctx, &models.Favorite{
		UserID:     user.UserID,
		PropertyID: propertyID,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return false, err
	}

	s.logger.Debug().Str("user_id", user.UserID).Str("property_id", propertyID).Msg("Favorite added")
	return true, nil
}

// GetFavorites returns the user's favorite properties. Deleted properties are
// skipped.
func (s *FavoriteService) GetFavorites(ctx context.Context, user models.Identity) ([]*models.Property, error) {
	if err := requireIdentity(user); err != nil {
		return nil, err
	}

	ids, err := s.favorites.GetFavoritePropertyIDs(ctx, user.UserID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*models.Property{}, nil
	}

	properties, err := s.properties.GetPropertiesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if properties == nil {
		properties = []*models.Property{}
	}
	return properties, nil
}
