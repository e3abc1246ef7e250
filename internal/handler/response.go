package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/josh-kwaku/revenue-ledger/internal/domain"
	"github.com/josh-kwaku/revenue-ledger/internal/service/payout"
)

const (
	statusSuccess = "success"
	statusFail    = "fail"
	statusError   = "error"
)

// APIResponse is the envelope for every JSON response. Client errors carry
// status "fail", server errors "error".
type APIResponse struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Page struct {
	Items any `json:"items"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{Status: statusSuccess, Data: data})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	status := statusFail
	if appErr.Status >= http.StatusInternalServerError {
		status = statusError
	}
	RespondJSON(w, appErr.Status, APIResponse{
		Status:  status,
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: details,
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

// domainErrors is checked in order; more specific sentinels come before the
// categories they wrap. A failed distribution carries its cause and is
// reported generically.
var domainErrors = []struct {
	target error
	appErr *AppError
}{
	{domain.ErrDistributionFailed, ErrDistributionFailed},
	{domain.ErrInvalidShareConfiguration, ErrInvalidShareConfiguration},
	{domain.ErrInvalidAmount, ErrInvalidAmount},
	{domain.ErrInvalidRole, ErrInvalidRole},
	{domain.ErrInvalidSharePercent, ErrInvalidSharePercent},
	{domain.ErrDuplicateContributor, ErrDuplicateContributor},
	{domain.ErrInvalidCurrency, ErrInvalidCurrency},
	{domain.ErrInvalidSource, ErrInvalidSource},
	{domain.ErrValidation, ErrInvalidRequest},
	{domain.ErrUnauthenticated, ErrMissingToken},
	{domain.ErrForbidden, ErrForbidden},
	{domain.ErrResourceNotFound, ErrResourceNotFound},
	{domain.ErrAccountNotFound, ErrAccountNotFound},
	{domain.ErrNotFound, ErrResourceNotFound},
	{domain.ErrInsufficientFunds, ErrInsufficientFunds},
	{domain.ErrInvalidDestination, ErrInvalidDestination},
	{domain.ErrNoContributors, ErrNoContributors},
	{domain.ErrNoPayableContributors, ErrNoPayableContributors},
	{domain.ErrIdempotencyConflict, ErrEventConflict},
	{domain.ErrGateway, ErrGatewayUnavailable},
	{domain.ErrPayoutCapExceeded, ErrPayoutCapExceeded},
	{payout.ErrPolicyNotFound, ErrPayoutCapExceeded},
}

func RespondDomainError(w http.ResponseWriter, err error) {
	for _, m := range domainErrors {
		if errors.Is(err, m.target) {
			RespondAppError(w, m.appErr, nil)
			return
		}
	}
	slog.Error("unhandled domain error", "error", err)
	RespondAppError(w, ErrInternalError, nil)
}
