package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/revenue-ledger/internal/domain"
	"github.com/josh-kwaku/revenue-ledger/internal/logging"
	"github.com/josh-kwaku/revenue-ledger/internal/wallet"
)

const (
	TriggerManual = "manual"
	TriggerAuto   = "auto"
)

type WithdrawRequest struct {
	UserID uuid.UUID
	Amount decimal.Decimal
	// Destination defaults to the account's configured wallet when empty.
	Destination string
	Trigger     string
}

// Withdraw pays amount out of the user's ledger balance to an external wallet.
// The account row stays locked from the balance check until commit, and the
// gateway transfer happens inside that window: a gateway failure rolls the
// whole withdrawal back and returns ErrGateway.
func (s *Store) Withdraw(ctx context.Context, req WithdrawRequest) (*domain.LedgerEntry, error) {
	trigger := req.Trigger
	if trigger == "" {
		trigger = TriggerManual
	}
	ctx, log := logging.With(ctx, "user_id", req.UserID, "trigger", trigger)

	if !domain.ValidAmount(req.Amount) {
		return nil, fmt.Errorf("Withdraw: %w", domain.ErrInvalidAmount)
	}

	var entry *domain.LedgerEntry
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		acct, err := s.accounts.GetForUpdate(ctx, tx, req.UserID)
		if err != nil {
			return err
		}

		dest := strings.TrimSpace(req.Destination)
		if dest == "" {
			dest = acct.Wallet()
		}
		if !s.gateway.VerifyAddressFormat(acct.WalletNetwork, dest) {
			return domain.ErrInvalidDestination
		}

		pending, err := s.entries.PendingAmount(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		if pending.LessThan(req.Amount) {
			return fmt.Errorf("pending %s below %s: %w", pending, req.Amount, domain.ErrInsufficientFunds)
		}

		seq, err := s.entries.CountWithdrawals(ctx, tx, req.UserID)
		if err != nil {
			return err
		}

		now := s.now()
		entry = domain.NewPendingEntry(domain.EntryTypeWithdrawal, req.Amount, s.config.Currency, now)
		sender := req.UserID
		entry.SenderID = &sender
		entry.Metadata.DestinationAddress = dest
		entry.Metadata.Network = acct.WalletNetwork
		entry.Metadata.Trigger = trigger
		entry.Metadata.TransferRef = transferRef(req.UserID, seq+1)

		if err := s.entries.Create(ctx, tx, entry); err != nil {
			return err
		}
		if err := s.accounts.AdjustCachedBalance(ctx, tx, req.UserID, req.Amount.Neg(), now); err != nil {
			return err
		}

		ref, err := s.transfer(ctx, wallet.TransferRequest{
			Reference:   entry.Metadata.TransferRef,
			Network:     acct.WalletNetwork,
			Destination: dest,
			Amount:      req.Amount,
			Currency:    s.config.Currency,
		})
		if err != nil {
			return err
		}

		entry.Metadata.SettlementRef = ref
		if err := entry.Complete(s.now()); err != nil {
			return err
		}
		return s.entries.Finalize(ctx, tx, entry)
	})
	if err != nil {
		outcome := "failed"
		if errors.Is(err, domain.ErrInsufficientFunds) || errors.Is(err, domain.ErrInvalidDestination) {
			outcome = "rejected"
		}
		s.metrics.ObserveWithdrawal(trigger, outcome, string(s.config.Currency), req.Amount)

		if errors.Is(err, domain.ErrGateway) {
			log.Error("withdrawal rolled back after gateway failure",
				"amount", req.Amount.String(),
				"error", err,
			)
		}
		return nil, fmt.Errorf("Withdraw: %w", err)
	}

	s.metrics.ObserveWithdrawal(trigger, "success", string(s.config.Currency), req.Amount)
	log.Info("withdrawal completed",
		"entry_id", entry.ID,
		"amount", req.Amount.String(),
		"network", entry.Metadata.Network,
		"transfer_ref", entry.Metadata.TransferRef,
		"settlement_ref", entry.Metadata.SettlementRef,
	)
	return entry, nil
}

// transferRef names the nth withdrawal of a user. Nothing of a rolled-back
// attempt survives, so a retry after a lost commit sends the same reference
// and the gateway can settle it once.
func transferRef(userID uuid.UUID, n int) string {
	return fmt.Sprintf("wd-%s-%d", userID, n)
}

func (s *Store) transfer(ctx context.Context, req wallet.TransferRequest) (string, error) {
	if s.config.GatewayTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.GatewayTimeout)
		defer cancel()
	}

	start := time.Now()
	ref, err := s.gateway.Transfer(ctx, req)
	s.metrics.ObserveGateway(time.Since(start))
	if err != nil {
		if errors.Is(err, domain.ErrGateway) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", domain.ErrGateway, err)
	}
	return ref, nil
}
