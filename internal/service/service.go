package service

import (
	"errors"
	"fmt"

	"rentals/internal/domain"
	"rentals/internal/models"

	"github.com/rs/zerolog"
)

// publishEvent отправляет событие; ошибка только логируется, операция уже выполнена
func publishEvent(logger *zerolog.Logger, bus domain.EventPublisher, eventType string, payload interface{}) {
	if bus == nil {
		return
	}
	if err := bus.PublishJSON(eventType, payload); err != nil {
		logger.Error().Err(err).Str("event", eventType).Msg("Failed to publish event")
	}
}

func isVersionConflict(err error) bool {
	return errors.Is(err, models.ErrVersionConflict)
}

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", models.ErrValidation, fmt.Sprintf(format, args...))
}

func requireIdentity(user models.Identity) error {
	if user.IsZero() {
		return fmt.Errorf("%w: authenticated user required", models.ErrUnauthorized)
	}
	return nil
}
