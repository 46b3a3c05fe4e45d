package services

import (
	"errors"

	"github.com/sjperalta/schoolfees-api/internal/repository"
	"gorm.io/gorm"
)

// Common service errors
var (
	ErrNotFound       = errors.New("record not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("access denied")
	ErrInvalidState   = errors.New("invalid state transition")
	ErrDuplicate      = errors.New("duplicate record")
	ErrValidation     = errors.New("validation failed")
	ErrPlanNotAllowed = errors.New("payment plan is not allowed for this student")
	ErrFeeSettled     = errors.New("fee is already fully paid")
	ErrNothingToPay   = errors.New("nothing to pay for this selection")
	ErrGateway        = errors.New("payment gateway unavailable")
)

// mapRepoError translates storage errors into service errors
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrDuplicateKey):
		return ErrDuplicate
	default:
		return err
	}
}
