package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")

	ErrInvalidShareConfiguration = fmt.Errorf("%w: contributor shares must sum to 100", ErrValidation)
	ErrInvalidAmount             = fmt.Errorf("%w: amount must be greater than zero with at most 6 decimal places", ErrValidation)
	ErrInvalidRole               = fmt.Errorf("%w: invalid contributor role", ErrValidation)
	ErrInvalidSharePercent       = fmt.Errorf("%w: share percent must be between 0 and 100", ErrValidation)
	ErrDuplicateContributor      = fmt.Errorf("%w: contributor listed more than once", ErrValidation)
	ErrInvalidCurrency           = fmt.Errorf("%w: unsupported currency", ErrValidation)
	ErrInvalidSource             = fmt.Errorf("%w: unsupported revenue source", ErrValidation)
	ErrInvalidRequest            = fmt.Errorf("%w: invalid request", ErrValidation)
	ErrInvalidMetadata           = fmt.Errorf("%w: invalid entry metadata", ErrValidation)

	ErrResourceNotFound = fmt.Errorf("resource %w", ErrNotFound)
	ErrAccountNotFound  = fmt.Errorf("account %w", ErrNotFound)

	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrInvalidDestination    = errors.New("invalid destination address")
	ErrNoContributors        = errors.New("resource has no contributors")
	ErrNoPayableContributors = errors.New("no contributor has a valid payout destination")
	ErrDistributionFailed    = errors.New("distribution failed")
	ErrGateway               = errors.New("wallet gateway error")
	ErrIdempotencyConflict   = errors.New("idempotency key reused with a different request")
	ErrEntryTerminal         = errors.New("ledger entry already in terminal state")
	ErrPayoutCapExceeded     = errors.New("payout daily cap exceeded")
)
