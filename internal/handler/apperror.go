package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken     = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken     = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrForbidden        = &AppError{http.StatusForbidden, "FORBIDDEN", "Not allowed to perform this action"}
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrAccountNotFound  = &AppError{http.StatusNotFound, "ACCOUNT_NOT_FOUND", "Account not found"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrInvalidShareConfiguration = &AppError{http.StatusBadRequest, "INVALID_SHARE_CONFIGURATION", "Contributor shares must sum to 100"}
	ErrInvalidSharePercent       = &AppError{http.StatusBadRequest, "INVALID_SHARE_PERCENT", "Share percent must be between 0 and 100"}
	ErrInvalidRole               = &AppError{http.StatusBadRequest, "INVALID_ROLE", "Role must be owner, collaborator or maintainer"}
	ErrDuplicateContributor      = &AppError{http.StatusBadRequest, "DUPLICATE_CONTRIBUTOR", "Contributor listed more than once"}
	ErrInvalidAmount             = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero with at most 6 decimal places"}
	ErrInvalidCurrency           = &AppError{http.StatusBadRequest, "INVALID_CURRENCY", "Unsupported currency"}
	ErrInvalidSource             = &AppError{http.StatusBadRequest, "INVALID_SOURCE", "Unsupported revenue source"}

	ErrInsufficientFunds     = &AppError{http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", "Insufficient funds"}
	ErrInvalidDestination    = &AppError{http.StatusUnprocessableEntity, "INVALID_DESTINATION", "Destination address is not valid for the account network"}
	ErrNoContributors        = &AppError{http.StatusUnprocessableEntity, "NO_CONTRIBUTORS", "Resource has no contributors"}
	ErrNoPayableContributors = &AppError{http.StatusUnprocessableEntity, "NO_PAYABLE_CONTRIBUTORS", "No contributor has a valid payout wallet"}
	ErrPayoutCapExceeded     = &AppError{http.StatusUnprocessableEntity, "PAYOUT_CAP_EXCEEDED", "Payout cap reached for today"}
	ErrEventConflict         = &AppError{http.StatusConflict, "EVENT_CONFLICT", "Event id already used with a different amount or source"}
	ErrGatewayUnavailable    = &AppError{http.StatusBadGateway, "GATEWAY_UNAVAILABLE", "Wallet gateway failed, retry later"}
	ErrDistributionFailed    = &AppError{http.StatusInternalServerError, "DISTRIBUTION_FAILED", "Distribution could not be recorded"}

	ErrMissingIdempotencyKey = &AppError{http.StatusBadRequest, "MISSING_IDEMPOTENCY_KEY", "Idempotency-Key header is required"}
	ErrIdempotencyConflict   = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used with a different request"}
)
