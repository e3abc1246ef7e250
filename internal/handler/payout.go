package handler

import (
	"context"
	"net/http"

	"github.com/josh-kwaku/revenue-ledger/internal/logging"
)

type payoutRunner interface {
	RunAutomaticPayouts(ctx context.Context) (int, error)
}

type PayoutHandler struct {
	runner payoutRunner
}

func NewPayoutHandler(runner payoutRunner) *PayoutHandler {
	return &PayoutHandler{runner: runner}
}

type payoutRunDTO struct {
	Processed int `json:"processed"`
}

// RunAuto triggers a sweep synchronously. Accounts already being paid by the
// background ticker are skipped, not paid twice.
func (h *PayoutHandler) RunAuto(w http.ResponseWriter, r *http.Request) {
	claims, appErr := claimsFrom(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	if !claims.IsAdmin() {
		RespondAppError(w, ErrForbidden, nil)
		return
	}

	processed, err := h.runner.RunAutomaticPayouts(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("automatic payout sweep failed", "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, payoutRunDTO{Processed: processed})
}
