package distribution

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/revenue-ledger/internal/domain"
	"github.com/josh-kwaku/revenue-ledger/internal/logging"
	"github.com/josh-kwaku/revenue-ledger/internal/repository"
	"github.com/josh-kwaku/revenue-ledger/internal/service/ledger"
)

type contributorSource interface {
	GetContributors(ctx context.Context, resourceID uuid.UUID) ([]domain.Contributor, error)
}

type walletDirectory interface {
	LookupWallets(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]repository.Wallet, error)
}

type addressVerifier interface {
	VerifyAddressFormat(network domain.WalletNetwork, address string) bool
}

type ledgerStore interface {
	Currency() domain.Currency
	FindDistribution(ctx context.Context, resourceID uuid.UUID, eventID string, gross decimal.Decimal, source domain.RevenueSource) (*ledger.DistributionResult, error)
	CommitDistribution(ctx context.Context, c ledger.Commit) (*ledger.DistributionResult, error)
}

type Request struct {
	ResourceID  uuid.UUID
	GrossAmount decimal.Decimal
	Source      domain.RevenueSource
	EventID     string
	// Currency is optional and must match the settlement currency when set.
	Currency domain.Currency
}

func (r Request) validate(settlement domain.Currency) error {
	if r.ResourceID == uuid.Nil {
		return domain.ErrInvalidRequest
	}
	if !domain.ValidAmount(r.GrossAmount) {
		return domain.ErrInvalidAmount
	}
	if !r.Source.IsValid() {
		return domain.ErrInvalidSource
	}
	if strings.TrimSpace(r.EventID) == "" {
		return fmt.Errorf("%w: event_id is required", domain.ErrInvalidRequest)
	}
	if r.Currency != "" && r.Currency.Normalize() != settlement {
		return domain.ErrInvalidCurrency
	}
	return nil
}

// Engine splits gross revenue among a resource's contributors and hands the
// result to the ledger.
type Engine struct {
	contributors contributorSource
	wallets      walletDirectory
	verifier     addressVerifier
	store        ledgerStore
}

func NewEngine(contributors contributorSource, wallets walletDirectory, verifier addressVerifier, store ledgerStore) *Engine {
	return &Engine{
		contributors: contributors,
		wallets:      wallets,
		verifier:     verifier,
		store:        store,
	}
}

// Distribute credits each payable contributor gross * share / 100, truncated
// to six decimal places. Contributors without a valid wallet are skipped and
// their share stays on the resource as pending. Retrying with the same
// event id returns the original entries.
func (e *Engine) Distribute(ctx context.Context, req Request) (*ledger.DistributionResult, error) {
	if err := req.validate(e.store.Currency()); err != nil {
		return nil, fmt.Errorf("Distribute: %w", err)
	}
	req.EventID = strings.TrimSpace(req.EventID)
	ctx, log := logging.With(ctx, "resource_id", req.ResourceID, "event_id", req.EventID)

	prior, err := e.store.FindDistribution(ctx, req.ResourceID, req.EventID, req.GrossAmount, req.Source)
	if err != nil {
		return nil, fmt.Errorf("Distribute: %w", err)
	}
	if prior != nil {
		return prior, nil
	}

	contributors, err := e.contributors.GetContributors(ctx, req.ResourceID)
	if err != nil {
		return nil, fmt.Errorf("Distribute: %w", err)
	}
	if len(contributors) == 0 {
		return nil, fmt.Errorf("Distribute: %w", domain.ErrNoContributors)
	}

	payable, err := e.payable(ctx, contributors)
	if err != nil {
		return nil, fmt.Errorf("Distribute: %w", err)
	}
	if len(payable) == 0 {
		return nil, fmt.Errorf("Distribute: %w", domain.ErrNoPayableContributors)
	}
	if skipped := len(contributors) - len(payable); skipped > 0 {
		log.Warn("contributors without a valid wallet skipped", "skipped", skipped)
	}

	shares := Split(req.GrossAmount, payable)
	if len(shares) == 0 {
		return nil, fmt.Errorf("Distribute: every share truncates to zero: %w", domain.ErrInvalidAmount)
	}

	res, err := e.store.CommitDistribution(ctx, ledger.Commit{
		ResourceID:  req.ResourceID,
		GrossAmount: req.GrossAmount,
		Source:      req.Source,
		EventID:     req.EventID,
		Shares:      shares,
	})
	if err != nil {
		return nil, fmt.Errorf("Distribute: %w", err)
	}
	return res, nil
}

func (e *Engine) payable(ctx context.Context, contributors []domain.Contributor) ([]domain.Contributor, error) {
	ids := make([]uuid.UUID, len(contributors))
	for i, c := range contributors {
		ids[i] = c.UserID
	}
	wallets, err := e.wallets.LookupWallets(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("payable: %w", err)
	}

	out := make([]domain.Contributor, 0, len(contributors))
	for _, c := range contributors {
		w, ok := wallets[c.UserID]
		if !ok || !e.verifier.VerifyAddressFormat(w.Network, w.Address) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// Split computes each contributor's amount in list order. Amounts that
// truncate to zero are dropped; the truncated remainder is not redistributed.
func Split(gross decimal.Decimal, contributors []domain.Contributor) []ledger.Share {
	shares := make([]ledger.Share, 0, len(contributors))
	for _, c := range contributors {
		amount := domain.ShareOf(gross, c.SharePercent)
		if !amount.IsPositive() {
			continue
		}
		shares = append(shares, ledger.Share{
			UserID:       c.UserID,
			Amount:       amount,
			SharePercent: c.SharePercent,
		})
	}
	return shares
}
