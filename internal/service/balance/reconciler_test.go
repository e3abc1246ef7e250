package balance

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/revenue-ledger/internal/domain"
	"github.com/josh-kwaku/revenue-ledger/internal/metrics"
)

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *sql.Tx) error) error { return fn(nil) }

type fakeAccounts struct {
	accounts map[uuid.UUID]*domain.Account
	writes   int
}

func (f *fakeAccounts) get(userID uuid.UUID) (*domain.Account, error) {
	a, ok := f.accounts[userID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccounts) GetByUserID(_ context.Context, userID uuid.UUID) (*domain.Account, error) {
	return f.get(userID)
}

func (f *fakeAccounts) GetForUpdate(_ context.Context, _ *sql.Tx, userID uuid.UUID) (*domain.Account, error) {
	return f.get(userID)
}

func (f *fakeAccounts) SetCachedBalance(_ context.Context, _ *sql.Tx, userID uuid.UUID, bal decimal.Decimal, _ time.Time) error {
	f.writes++
	f.accounts[userID].CachedBalance = bal
	return nil
}

type fixedLedger map[uuid.UUID]decimal.Decimal

func (l fixedLedger) PendingAmount(_ context.Context, _ *sql.Tx, userID uuid.UUID) (decimal.Decimal, error) {
	p, ok := l[userID]
	if !ok {
		return decimal.Zero, errors.New("ledger unavailable")
	}
	return p, nil
}

func TestReconciler(t *testing.T) {
	user := uuid.New()
	accounts := &fakeAccounts{accounts: map[uuid.UUID]*domain.Account{
		user: {UserID: user, CachedBalance: decimal.NewFromInt(75)},
	}}
	r := NewReconciler(passthroughTx{}, accounts, fixedLedger{user: decimal.NewFromInt(70)}, metrics.Default())
	ctx := context.Background()

	b, err := r.Balance(ctx, user)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(70).Equal(b.PendingAmount), "pending comes from the ledger")
	assert.True(t, decimal.NewFromInt(75).Equal(b.CachedBalance))

	rec, err := r.Reconcile(ctx, user)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(-5).Equal(rec.Drift))
	assert.Equal(t, 1, accounts.writes)
	assert.True(t, decimal.NewFromInt(70).Equal(accounts.accounts[user].CachedBalance))

	rec, err = r.Reconcile(ctx, user)
	require.NoError(t, err)
	assert.True(t, rec.Drift.IsZero())
	assert.Equal(t, 1, accounts.writes, "no write without drift")
}

func TestReconciler_Errors(t *testing.T) {
	user := uuid.New()
	accounts := &fakeAccounts{accounts: map[uuid.UUID]*domain.Account{user: {UserID: user}}}
	r := NewReconciler(passthroughTx{}, accounts, fixedLedger{}, nil)

	_, err := r.Balance(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	_, err = r.PendingAmount(context.Background(), user)
	assert.Error(t, err)

	_, err = r.Reconcile(context.Background(), user)
	assert.Error(t, err)
	assert.Equal(t, 0, accounts.writes)
}
