package contract

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("validation error")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrNotFound         = errors.New("not found")
	ErrPersistence      = errors.New("persistence failure")

	// ErrReferentialViolation is a persistence failure caused by a missing referenced row.
	ErrReferentialViolation = fmt.Errorf("%w: referential violation", ErrPersistence)

	ErrSameAccount = fmt.Errorf("%w: same account on both sides of the transfer", ErrInvalidOperation)
)

// IsClassified reports whether err already belongs to the taxonomy above.
func IsClassified(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidOperation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrPersistence)
}
