package services

import (
	"errors"
	"fmt"

	"github.com/healthythako/booking-service/internal/model"
	"github.com/healthythako/booking-service/internal/repository"
)

var (
	ErrUnauthenticated     = fmt.Errorf("%w: authentication required", model.ErrValidation)
	ErrForbidden           = errors.New("not allowed for this user")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrConcurrentUpdate    = fmt.Errorf("%w: record was modified by another request", ErrConflict)
	ErrAlreadyReviewed     = fmt.Errorf("%w: booking already reviewed", ErrConflict)
	ErrNotReviewable       = fmt.Errorf("%w: only completed bookings can be reviewed", ErrConflict)
	ErrUnauthorizedWebhook = errors.New("webhook api key mismatch")
)

// fromRepo maps storage sentinels onto the service ones so handlers only
// deal with one set.
func fromRepo(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrConcurrentUpdate):
		return ErrConcurrentUpdate
	case errors.Is(err, repository.ErrDuplicate):
		return ErrConflict
	}
	return err
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", model.ErrValidation, fmt.Sprintf(format, args...))
}
