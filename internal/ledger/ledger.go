// Package ledger implements the append-only customer credit ledger. Every
// balance change is a CreditTransaction row; the customer's CreditBalance is
// derived state, equal to the clamped running sum of the ledger in creation
// order. The balance never goes below zero: an overpayment settles the debt
// and the surplus is the shopkeeper's to hand back in cash.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/edcadet10/tikes/internal/localstore"
	"github.com/edcadet10/tikes/internal/model"

	"github.com/shopspring/decimal"
)

var (
	ErrAmountNotPositive = errors.New("ledger: amount must be positive")
	ErrCustomerUnknown   = errors.New("ledger: unknown customer")
)

type Ledger struct {
	store localstore.Store
}

func New(store localstore.Store) *Ledger {
	return &Ledger{store: store}
}

// GiveCredit raises the customer's debt, typically when a sale is paid on
// store credit. The transaction and the balance update land in one store
// transaction; both rows leave it pending for the next push.
func (l *Ledger) GiveCredit(ctx context.Context, customerLocalID string, amount decimal.Decimal, saleLocalID *string, notes *string) (*model.CreditTransaction, error) {
	return l.append(ctx, customerLocalID, amount, model.CreditGiven, saleLocalID, notes)
}

// ReceivePayment lowers the customer's debt.
func (l *Ledger) ReceivePayment(ctx context.Context, customerLocalID string, amount decimal.Decimal, notes *string) (*model.CreditTransaction, error) {
	return l.append(ctx, customerLocalID, amount, model.PaymentReceived, nil, notes)
}

func (l *Ledger) append(ctx context.Context, customerLocalID string, amount decimal.Decimal, txType string, saleLocalID, notes *string) (*model.CreditTransaction, error) {
	if !amount.IsPositive() {
		return nil, ErrAmountNotPositive
	}

	var entry *model.CreditTransaction
	err := l.store.RunInTx(ctx, func(tx localstore.Store) error {
		customer, err := tx.CustomerByLocalID(ctx, customerLocalID)
		if err != nil {
			if errors.Is(err, localstore.ErrNotFound) {
				return ErrCustomerUnknown
			}
			return err
		}

		now := time.Now().UTC()
		entry = &model.CreditTransaction{
			BusinessID:      customer.BusinessID,
			SyncMeta:        model.SyncMeta{LocalID: model.NewLocalID(), SyncStatus: model.SyncPending},
			CustomerLocalID: customerLocalID,
			SaleLocalID:     saleLocalID,
			Amount:          amount,
			Type:            txType,
			Notes:           notes,
			CreatedAt:       now,
		}
		entry.BalanceAfter = clamp(customer.CreditBalance.Add(entry.SignedAmount()))

		if err := tx.SaveCreditTransaction(ctx, entry); err != nil {
			return err
		}

		customer.CreditBalance = entry.BalanceAfter
		customer.SyncStatus = model.SyncPending
		customer.UpdatedAt = now
		return tx.SaveCustomer(ctx, customer)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Balance replays the customer's full ledger and returns the canonical
// balance: signed amounts accumulated in creation order, clamped at zero
// after every step. Clamping per step, not once at the end, means an
// overpayment forgives the surplus permanently — a later credit starts from
// zero, not from a negative carry.
func (l *Ledger) Balance(ctx context.Context, customerLocalID string) (decimal.Decimal, error) {
	entries, err := l.store.CreditTransactionsForCustomer(ctx, customerLocalID)
	if err != nil {
		return decimal.Zero, err
	}
	balance := decimal.Zero
	for i := range entries {
		balance = clamp(balance.Add(entries[i].SignedAmount()))
	}
	return balance, nil
}

// Repair recomputes the canonical balance from the ledger and rewrites the
// customer row if it drifted (e.g. after merging ledger entries from
// another device). Returns the canonical balance.
func (l *Ledger) Repair(ctx context.Context, customerLocalID string) (decimal.Decimal, error) {
	canonical, err := l.Balance(ctx, customerLocalID)
	if err != nil {
		return decimal.Zero, err
	}
	err = l.store.RunInTx(ctx, func(tx localstore.Store) error {
		customer, err := tx.CustomerByLocalID(ctx, customerLocalID)
		if err != nil {
			return err
		}
		if customer.CreditBalance.Equal(canonical) {
			return nil
		}
		customer.CreditBalance = canonical
		customer.SyncStatus = model.SyncPending
		customer.UpdatedAt = time.Now().UTC()
		return tx.SaveCustomer(ctx, customer)
	})
	return canonical, err
}

func clamp(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
