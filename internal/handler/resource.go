package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/revenue-ledger/internal/domain"
	"github.com/josh-kwaku/revenue-ledger/internal/logging"
	"github.com/josh-kwaku/revenue-ledger/internal/service/distribution"
	"github.com/josh-kwaku/revenue-ledger/internal/service/ledger"
)

type registryService interface {
	CreateResource(ctx context.Context, creatorID uuid.UUID, list []domain.Contributor) (*domain.Resource, error)
	GetResource(ctx context.Context, resourceID uuid.UUID) (*domain.Resource, error)
	GetContributors(ctx context.Context, resourceID uuid.UUID) ([]domain.Contributor, error)
	SetContributors(ctx context.Context, caller domain.Caller, resourceID uuid.UUID, list []domain.Contributor) ([]domain.Contributor, error)
}

type distributionService interface {
	Distribute(ctx context.Context, req distribution.Request) (*ledger.DistributionResult, error)
}

type distributionHistory interface {
	DistributionHistory(ctx context.Context, resourceID uuid.UUID, page, limit int) ([]domain.LedgerEntry, int, error)
}

type ResourceHandler struct {
	registry     registryService
	distribution distributionService
	history      distributionHistory
}

func NewResourceHandler(registry registryService, dist distributionService, history distributionHistory) *ResourceHandler {
	return &ResourceHandler{
		registry:     registry,
		distribution: dist,
		history:      history,
	}
}

type contributorInput struct {
	UserID              string `json:"user_id"`
	Role                string `json:"role"`
	RevenueSharePercent string `json:"revenue_share_percent"`
}

type contributorsRequest struct {
	Contributors []contributorInput `json:"contributors"`
}

// toDomain parses every entry and reports field errors by index. Semantic
// checks such as the 100% sum are left to the registry.
func (r contributorsRequest) toDomain() ([]domain.Contributor, []FieldError) {
	var errs []FieldError
	list := make([]domain.Contributor, 0, len(r.Contributors))
	for i, c := range r.Contributors {
		field := func(name string) string { return fmt.Sprintf("contributors[%d].%s", i, name) }

		id, err := uuid.Parse(c.UserID)
		if err != nil {
			errs = append(errs, FieldError{Field: field("user_id"), Message: "must be a UUID"})
		}
		pct, err := decimal.NewFromString(strings.TrimSpace(c.RevenueSharePercent))
		if err != nil {
			errs = append(errs, FieldError{Field: field("revenue_share_percent"), Message: "must be a decimal number"})
		}
		list = append(list, domain.Contributor{
			UserID:       id,
			Role:         domain.ContributorRole(c.Role),
			SharePercent: pct,
		})
	}
	return list, errs
}

func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, appErr := claimsFrom(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req contributorsRequest
	if appErr := decodeJSON(w, r, &req); appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	list, fields := req.toDomain()
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	res, err := h.registry.CreateResource(r.Context(), claims.UserID, list)
	if err != nil {
		logging.FromContext(r.Context()).Warn("failed to create resource", "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusCreated, toResourceDTO(res))
}

func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, appErr := pathUUID(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	res, err := h.registry.GetResource(r.Context(), id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toResourceDTO(res))
}

func (h *ResourceHandler) GetContributors(w http.ResponseWriter, r *http.Request) {
	id, appErr := pathUUID(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	list, err := h.registry.GetContributors(r.Context(), id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toContributorDTOs(list))
}

func (h *ResourceHandler) SetContributors(w http.ResponseWriter, r *http.Request) {
	claims, appErr := claimsFrom(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	id, appErr := pathUUID(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req contributorsRequest
	if appErr := decodeJSON(w, r, &req); appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	list, fields := req.toDomain()
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	stored, err := h.registry.SetContributors(r.Context(), callerFrom(claims), id, list)
	if err != nil {
		logging.FromContext(r.Context()).Warn("contributor update rejected", "resource_id", id, "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toContributorDTOs(stored))
}

type distributeRequest struct {
	Amount   string `json:"amount"`
	Source   string `json:"source"`
	EventID  string `json:"event_id"`
	Currency string `json:"currency,omitempty"`
}

func (r distributeRequest) Validate() (decimal.Decimal, []FieldError) {
	var errs []FieldError
	amount, err := decimal.NewFromString(strings.TrimSpace(r.Amount))
	if err != nil {
		errs = append(errs, FieldError{Field: "amount", Message: "must be a decimal number"})
	}
	if r.Source == "" {
		errs = append(errs, FieldError{Field: "source", Message: "required"})
	}
	if strings.TrimSpace(r.EventID) == "" {
		errs = append(errs, FieldError{Field: "event_id", Message: "required"})
	}
	return amount, errs
}

func (h *ResourceHandler) Distribute(w http.ResponseWriter, r *http.Request) {
	claims, appErr := claimsFrom(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	if !claims.CanDistribute() {
		RespondAppError(w, ErrForbidden, nil)
		return
	}
	id, appErr := pathUUID(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req distributeRequest
	if appErr := decodeJSON(w, r, &req); appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	amount, fields := req.Validate()
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	res, err := h.distribution.Distribute(r.Context(), distribution.Request{
		ResourceID:  id,
		GrossAmount: amount,
		Source:      domain.RevenueSource(req.Source),
		EventID:     req.EventID,
		Currency:    domain.Currency(req.Currency),
	})
	if err != nil {
		logging.FromContext(r.Context()).Warn("distribution failed", "resource_id", id, "event_id", req.EventID, "error", err)
		RespondDomainError(w, err)
		return
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	RespondSuccess(w, status, toDistributionDTO(res))
}

func (h *ResourceHandler) Distributions(w http.ResponseWriter, r *http.Request) {
	id, appErr := pathUUID(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	page, limit := pageParams(r)
	entries, total, err := h.history.DistributionHistory(r.Context(), id, page, limit)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	limit, _ = ledger.Page(page, limit)
	RespondSuccess(w, http.StatusOK, Page{
		Items: toLedgerEntryDTOs(entries),
		Page:  page,
		Limit: limit,
		Total: total,
	})
}
