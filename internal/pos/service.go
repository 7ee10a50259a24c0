// Package pos is the device-side point of sale: everything a register does
// between sync cycles. All writes land in the local store marked pending;
// the sync engine drains them when connectivity allows. Nothing here ever
// touches the network.
package pos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edcadet10/tikes/internal/dto"
	"github.com/edcadet10/tikes/internal/ledger"
	"github.com/edcadet10/tikes/internal/localstore"
	"github.com/edcadet10/tikes/internal/model"

	"github.com/shopspring/decimal"
)

var (
	ErrNoItems             = errors.New("pos: sale has no items")
	ErrNoPayments          = errors.New("pos: sale has no payments")
	ErrSaleVoided          = errors.New("pos: sale already voided")
	ErrCreditNeedsCustomer = errors.New("pos: credit payment requires a customer")
)

type Service struct {
	store  localstore.Store
	ledger *ledger.Ledger
	// taxRate is the business tax percentage applied at sale time.
	taxRate decimal.Decimal
}

func NewService(store localstore.Store, l *ledger.Ledger, taxRate decimal.Decimal) *Service {
	return &Service{store: store, ledger: l, taxRate: taxRate}
}

// CreateSale builds and persists a completed sale: prices snapshot from the
// current catalog, stock decremented per item, totals computed, and — when
// one payment method is store credit — the matching ledger entry appended.
// The sale, the touched products, and the ledger rows all leave the
// transaction pending.
func (s *Service) CreateSale(ctx context.Context, req dto.CreateSaleRequest) (*model.Sale, error) {
	if len(req.Items) == 0 {
		return nil, ErrNoItems
	}
	if len(req.Payments) == 0 {
		return nil, ErrNoPayments
	}

	now := time.Now().UTC()
	sale := &model.Sale{
		SyncMeta:        model.SyncMeta{LocalID: model.NewLocalID(), SyncStatus: model.SyncPending},
		UserID:          req.UserID,
		CustomerLocalID: req.CustomerLocalID,
		Discount:        req.Discount,
		DiscountType:    req.DiscountType,
		Status:          model.SaleCompleted,
		Notes:           req.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if sale.DiscountType == "" {
		sale.DiscountType = "fixed"
	}

	var creditDue decimal.Decimal

	err := s.store.RunInTx(ctx, func(tx localstore.Store) error {
		if req.CustomerLocalID != nil {
			customer, err := tx.CustomerByLocalID(ctx, *req.CustomerLocalID)
			if err != nil {
				return fmt.Errorf("pos: customer %s: %w", *req.CustomerLocalID, err)
			}
			sale.BusinessID = customer.BusinessID
			sale.CustomerID = &customer.ID
		}

		subtotal := decimal.Zero
		for _, item := range req.Items {
			product, err := tx.ProductByLocalID(ctx, item.ProductLocalID)
			if err != nil {
				return fmt.Errorf("pos: product %s: %w", item.ProductLocalID, err)
			}
			if sale.BusinessID == 0 {
				sale.BusinessID = product.BusinessID
			}

			lineTotal := product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))).Sub(item.Discount)
			if lineTotal.IsNegative() {
				lineTotal = decimal.Zero
			}
			sale.Items = append(sale.Items, model.SaleItem{
				ProductID:   &product.ID,
				ProductRef:  product.LocalID,
				ProductName: product.Name,
				Quantity:    item.Quantity,
				UnitPrice:   product.Price,
				Discount:    item.Discount,
				Subtotal:    lineTotal,
			})
			subtotal = subtotal.Add(lineTotal)

			// Stock moves exactly once, at creation on the originating
			// device; sync only reports the result.
			product.StockQuantity -= item.Quantity
			product.SyncStatus = model.SyncPending
			product.UpdatedAt = now
			if err := tx.SaveProduct(ctx, product); err != nil {
				return err
			}
		}

		sale.Subtotal = subtotal
		discounted := applyDiscount(subtotal, sale.Discount, sale.DiscountType)
		sale.Tax = discounted.Mul(s.taxRate).Div(decimal.NewFromInt(100)).Round(2)
		sale.Total = discounted.Add(sale.Tax)

		for _, pay := range req.Payments {
			status := model.PaymentCompleted
			if pay.Method == model.PayCredit {
				if req.CustomerLocalID == nil {
					return ErrCreditNeedsCustomer
				}
				status = model.PaymentPending
				creditDue = creditDue.Add(pay.Amount)
			}
			sale.Payments = append(sale.Payments, model.Payment{
				Method:    pay.Method,
				Amount:    pay.Amount,
				Reference: pay.Reference,
				Status:    status,
			})
		}

		if err := tx.SaveSale(ctx, sale); err != nil {
			return err
		}

		if req.CustomerLocalID != nil {
			customer, err := tx.CustomerByLocalID(ctx, *req.CustomerLocalID)
			if err != nil {
				return err
			}
			customer.TotalPurchases = customer.TotalPurchases.Add(sale.Total)
			customer.SyncStatus = model.SyncPending
			customer.UpdatedAt = now
			if err := tx.SaveCustomer(ctx, customer); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The ledger entry runs in its own transaction after the sale exists, so
	// its saleLocalId reference always points at a persisted row.
	if creditDue.IsPositive() {
		saleRef := sale.LocalID
		if _, err := s.ledger.GiveCredit(ctx, *req.CustomerLocalID, creditDue, &saleRef, req.Notes); err != nil {
			return nil, err
		}
	}

	return sale, nil
}

// VoidSale flips a completed sale to voided and restores the stock its items
// consumed. The status change re-enters the push queue and travels as the
// one permitted header mutation on the otherwise write-once sale. Credit the
// sale handed out is reversed with a compensating ledger entry — the ledger
// itself stays append-only.
func (s *Service) VoidSale(ctx context.Context, saleLocalID string, reason *string) error {
	var creditToReverse decimal.Decimal
	var customerLocalID *string

	err := s.store.RunInTx(ctx, func(tx localstore.Store) error {
		sale, err := tx.SaleByLocalID(ctx, saleLocalID)
		if err != nil {
			return err
		}
		if sale.Status == model.SaleVoided {
			return ErrSaleVoided
		}
		for _, pay := range sale.Payments {
			if pay.Method == model.PayCredit && pay.Status != model.PaymentFailed {
				creditToReverse = creditToReverse.Add(pay.Amount)
			}
		}
		customerLocalID = sale.CustomerLocalID

		now := time.Now().UTC()
		for _, item := range sale.Items {
			if item.ProductRef == "" {
				continue
			}
			product, err := tx.ProductByLocalID(ctx, item.ProductRef)
			if err != nil {
				continue // reference never resolved locally; nothing to restore
			}
			product.StockQuantity += item.Quantity
			product.SyncStatus = model.SyncPending
			product.UpdatedAt = now
			if err := tx.SaveProduct(ctx, product); err != nil {
				return err
			}
		}

		sale.Status = model.SaleVoided
		if reason != nil {
			sale.Notes = reason
		}
		sale.SyncStatus = model.SyncPending
		sale.UpdatedAt = now
		return tx.SaveSale(ctx, sale)
	})
	if err != nil {
		return err
	}

	// Outstanding credit from the voided sale is forgiven through the normal
	// payment path, so the balance and the ledger stay consistent with each
	// other and the reversal syncs like any other entry.
	if creditToReverse.IsPositive() && customerLocalID != nil {
		note := fmt.Sprintf("reversal of voided sale %s", saleLocalID)
		if _, err := s.ledger.ReceivePayment(ctx, *customerLocalID, creditToReverse, &note); err != nil {
			return err
		}
	}
	return nil
}

// RecordCustomerPayment settles (part of) a customer's credit balance.
func (s *Service) RecordCustomerPayment(ctx context.Context, req dto.CreditRequest) (*model.CreditTransaction, error) {
	return s.ledger.ReceivePayment(ctx, req.CustomerLocalID, req.Amount, req.Notes)
}

// GiveCredit raises a customer's balance outside a sale (e.g. goods handed
// over informally, to be regularized later).
func (s *Service) GiveCredit(ctx context.Context, req dto.CreditRequest) (*model.CreditTransaction, error) {
	return s.ledger.GiveCredit(ctx, req.CustomerLocalID, req.Amount, nil, req.Notes)
}

// ── Catalog and customer maintenance ────────────────────────────────────────
// Every mutation mints or keeps the localId and marks the row pending.

func (s *Service) CreateCategory(ctx context.Context, businessID uint, name string, icon *string, sortOrder int) (*model.Category, error) {
	now := time.Now().UTC()
	c := &model.Category{
		BusinessID: businessID,
		SyncMeta:   model.SyncMeta{LocalID: model.NewLocalID(), SyncStatus: model.SyncPending},
		Name:       name,
		Icon:       icon,
		SortOrder:  sortOrder,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.SaveCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) CreateProduct(ctx context.Context, p *model.Product) error {
	now := time.Now().UTC()
	p.LocalID = model.NewLocalID()
	p.SyncStatus = model.SyncPending
	p.CreatedAt = now
	p.UpdatedAt = now
	return s.store.SaveProduct(ctx, p)
}

func (s *Service) UpdateProduct(ctx context.Context, p *model.Product) error {
	p.SyncStatus = model.SyncPending
	p.UpdatedAt = time.Now().UTC()
	return s.store.SaveProduct(ctx, p)
}

func (s *Service) CreateCustomer(ctx context.Context, c *model.Customer) error {
	now := time.Now().UTC()
	c.LocalID = model.NewLocalID()
	c.SyncStatus = model.SyncPending
	c.CreatedAt = now
	c.UpdatedAt = now
	return s.store.SaveCustomer(ctx, c)
}

func (s *Service) UpdateCustomer(ctx context.Context, c *model.Customer) error {
	c.SyncStatus = model.SyncPending
	c.UpdatedAt = time.Now().UTC()
	return s.store.SaveCustomer(ctx, c)
}

func applyDiscount(amount, discount decimal.Decimal, discountType string) decimal.Decimal {
	var out decimal.Decimal
	if discountType == "percentage" {
		out = amount.Sub(amount.Mul(discount).Div(decimal.NewFromInt(100))).Round(2)
	} else {
		out = amount.Sub(discount)
	}
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}
