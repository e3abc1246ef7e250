package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/revenue-ledger/internal/domain"
	"github.com/josh-kwaku/revenue-ledger/internal/logging"
	"github.com/josh-kwaku/revenue-ledger/internal/service/balance"
	"github.com/josh-kwaku/revenue-ledger/internal/service/ledger"
)

type withdrawalService interface {
	Withdraw(ctx context.Context, req ledger.WithdrawRequest) (*domain.LedgerEntry, error)
	RevenueHistory(ctx context.Context, userID uuid.UUID, page, limit int) ([]domain.RevenueRecord, int, error)
}

type balanceService interface {
	Balance(ctx context.Context, userID uuid.UUID) (*balance.Balance, error)
	Reconcile(ctx context.Context, userID uuid.UUID) (*balance.Reconciliation, error)
}

type AccountHandler struct {
	ledger   withdrawalService
	balances balanceService
}

func NewAccountHandler(ledger withdrawalService, balances balanceService) *AccountHandler {
	return &AccountHandler{ledger: ledger, balances: balances}
}

type withdrawRequest struct {
	Amount             string `json:"amount"`
	DestinationAddress string `json:"destination_address,omitempty"`
}

func (r withdrawRequest) Validate() (decimal.Decimal, []FieldError) {
	amount, err := decimal.NewFromString(strings.TrimSpace(r.Amount))
	if err != nil {
		return decimal.Zero, []FieldError{{Field: "amount", Message: "must be a decimal number"}}
	}
	if !domain.ValidAmount(amount) {
		return decimal.Zero, []FieldError{{Field: "amount", Message: "must be positive with at most 6 decimal places"}}
	}
	return amount, nil
}

type balanceDTO struct {
	UserID        uuid.UUID `json:"user_id"`
	PendingAmount string    `json:"pending_amount"`
	CachedBalance string    `json:"cached_balance"`
}

type reconciliationDTO struct {
	UserID   uuid.UUID `json:"user_id"`
	Previous string    `json:"previous_cached_balance"`
	Current  string    `json:"pending_amount"`
	Drift    string    `json:"drift"`
}

func (h *AccountHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	claims, appErr := claimsFrom(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req withdrawRequest
	if appErr := decodeJSON(w, r, &req); appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	amount, fields := req.Validate()
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	entry, err := h.ledger.Withdraw(r.Context(), ledger.WithdrawRequest{
		UserID:      claims.UserID,
		Amount:      amount,
		Destination: req.DestinationAddress,
		Trigger:     ledger.TriggerManual,
	})
	if err != nil {
		logging.FromContext(r.Context()).Warn("withdrawal failed", "amount", amount.String(), "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusCreated, toLedgerEntryDTO(entry))
}

func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	claims, appErr := claimsFrom(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	b, err := h.balances.Balance(r.Context(), claims.UserID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, balanceDTO{
		UserID:        b.UserID,
		PendingAmount: amountString(b.PendingAmount),
		CachedBalance: amountString(b.CachedBalance),
	})
}

func (h *AccountHandler) Revenue(w http.ResponseWriter, r *http.Request) {
	claims, appErr := claimsFrom(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	page, limit := pageParams(r)
	records, total, err := h.ledger.RevenueHistory(r.Context(), claims.UserID, page, limit)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	limit, _ = ledger.Page(page, limit)
	RespondSuccess(w, http.StatusOK, Page{
		Items: toRevenueRecordDTOs(records),
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

func (h *AccountHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	claims, appErr := claimsFrom(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	if !claims.IsAdmin() {
		RespondAppError(w, ErrForbidden, nil)
		return
	}
	userID, appErr := pathUUID(r, "id")
	if appErr != nil {
		RespondAppError(w, ErrAccountNotFound, nil)
		return
	}

	rec, err := h.balances.Reconcile(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).Error("reconcile failed", "target_user_id", userID, "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, reconciliationDTO{
		UserID:   rec.UserID,
		Previous: amountString(rec.Previous),
		Current:  amountString(rec.Current),
		Drift:    amountString(rec.Drift),
	})
}
