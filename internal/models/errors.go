package models

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to callers. Refinements wrap one of these so that
// errors.Is(err, ErrConflict) holds for every conflict.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

var (
	ErrNotAvailable      = fmt.Errorf("%w: property is not available for the requested dates", ErrConflict)
	ErrDuplicateReview   = fmt.Errorf("%w: user has already reviewed this property", ErrConflict)
	ErrInvalidTransition = fmt.Errorf("%w: booking status transition not allowed", ErrConflict)
	ErrVersionConflict   = fmt.Errorf("%w: document was modified concurrently", ErrConflict)

	ErrPropertyNotFound = fmt.Errorf("%w: property", ErrNotFound)
	ErrBookingNotFound  = fmt.Errorf("%w: booking", ErrNotFound)
	ErrReviewNotFound   = fmt.Errorf("%w: review", ErrNotFound)
	ErrImageNotFound    = fmt.Errorf("%w: image", ErrNotFound)
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
