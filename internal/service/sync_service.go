package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edcadet10/tikes/internal/dto"
	"github.com/edcadet10/tikes/internal/model"
	"github.com/edcadet10/tikes/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// SyncService is the server half of the sync protocol: it applies push
// batches and assembles pull windows, always scoped to one business.
type SyncService interface {
	ApplyPush(ctx context.Context, businessID uint, req dto.PushRequest) (*dto.PushResponse, error)
	BuildPull(ctx context.Context, businessID uint, since time.Time) (*dto.PullResponse, error)
}

type syncService struct {
	categories repository.CategoryRepository
	products   repository.ProductRepository
	customers  repository.CustomerRepository
	sales      repository.SaleRepository
	creditTxs  repository.CreditTransactionRepository
	users      repository.UserRepository
}

func NewSyncService(
	categories repository.CategoryRepository,
	products repository.ProductRepository,
	customers repository.CustomerRepository,
	sales repository.SaleRepository,
	creditTxs repository.CreditTransactionRepository,
	users repository.UserRepository,
) SyncService {
	return &syncService{
		categories: categories,
		products:   products,
		customers:  customers,
		sales:      sales,
		creditTxs:  creditTxs,
		users:      users,
	}
}

// ApplyPush applies a device's batch in fixed dependency order: categories,
// products, customers, sales, credit transactions. Foreign keys of later
// types can therefore rely on earlier types being present. A single entity's
// failure is reported and skipped — it never blocks the rest of the batch.
func (s *syncService) ApplyPush(ctx context.Context, businessID uint, req dto.PushRequest) (*dto.PushResponse, error) {
	resp := &dto.PushResponse{}

	s.pushCategories(ctx, businessID, req.Categories, resp)
	s.pushProducts(ctx, businessID, req.Products, resp)
	s.pushCustomers(ctx, businessID, req.Customers, resp)
	s.pushSales(ctx, businessID, req.Sales, resp)
	s.pushCreditTransactions(ctx, businessID, req.CreditTransactions, resp)

	resp.SyncedAt = time.Now().UTC()

	log.Info().
		Uint("business_id", businessID).
		Int("applied", resp.Synced.Total()).
		Int("errors", len(resp.Errors)).
		Int("warnings", len(resp.Warnings)).
		Msg("push batch applied")

	return resp, nil
}

func (s *syncService) pushCategories(ctx context.Context, businessID uint, payloads []dto.CategoryPayload, resp *dto.PushResponse) {
	for _, p := range payloads {
		if p.Name == "" {
			resp.Errors = append(resp.Errors, entityError("category", p.LocalID, dto.ErrCodeValidation, "name is required"))
			continue
		}

		cat := categoryFromPayload(businessID, p)
		if err := s.categories.UpsertByLocalID(ctx, cat); err != nil {
			resp.Errors = append(resp.Errors, entityError("category", p.LocalID, dto.ErrCodeInternal, err.Error()))
			continue
		}

		saved, err := s.categories.FindByLocalID(ctx, businessID, p.LocalID)
		if err != nil {
			resp.Errors = append(resp.Errors, entityError("category", p.LocalID, dto.ErrCodeInternal, err.Error()))
			continue
		}
		resp.Synced.Categories++
		resp.Mappings.Categories = append(resp.Mappings.Categories, dto.IDMapping{LocalID: p.LocalID, ServerID: saved.ID})
	}
}

func (s *syncService) pushProducts(ctx context.Context, businessID uint, payloads []dto.ProductPayload, resp *dto.PushResponse) {
	for _, p := range payloads {
		if p.Name == "" {
			resp.Errors = append(resp.Errors, entityError("product", p.LocalID, dto.ErrCodeValidation, "name is required"))
			continue
		}
		if p.Price.IsNegative() {
			resp.Errors = append(resp.Errors, entityError("product", p.LocalID, dto.ErrCodeValidation, "price must not be negative"))
			continue
		}

		prod := productFromPayload(businessID, p)

		// Resolve the owning category: direct server-id match first, then
		// exact localId lookup. Unresolved degrades to uncategorized with a
		// reported warning — never a hard failure.
		prod.CategoryID = nil
		if p.CategoryID != nil {
			if cat, err := s.categories.FindByID(ctx, businessID, *p.CategoryID); err == nil {
				prod.CategoryID = &cat.ID
			}
		}
		if prod.CategoryID == nil && p.CategoryLocalID != nil {
			if cat, err := s.categories.FindByLocalID(ctx, businessID, *p.CategoryLocalID); err == nil {
				prod.CategoryID = &cat.ID
			}
		}
		if prod.CategoryID == nil && (p.CategoryID != nil || p.CategoryLocalID != nil) {
			resp.Warnings = append(resp.Warnings, dto.SyncWarning{
				EntityType: "product", LocalID: p.LocalID, Field: "categoryId",
				Detail: "category reference could not be resolved",
			})
		}

		if err := s.products.UpsertByLocalID(ctx, prod); err != nil {
			resp.Errors = append(resp.Errors, entityError("product", p.LocalID, dto.ErrCodeInternal, err.Error()))
			continue
		}

		saved, err := s.products.FindByLocalID(ctx, businessID, p.LocalID)
		if err != nil {
			resp.Errors = append(resp.Errors, entityError("product", p.LocalID, dto.ErrCodeInternal, err.Error()))
			continue
		}
		resp.Synced.Products++
		resp.Mappings.Products = append(resp.Mappings.Products, dto.IDMapping{LocalID: p.LocalID, ServerID: saved.ID})
	}
}

func (s *syncService) pushCustomers(ctx context.Context, businessID uint, payloads []dto.CustomerPayload, resp *dto.PushResponse) {
	for _, p := range payloads {
		if p.Name == "" {
			resp.Errors = append(resp.Errors, entityError("customer", p.LocalID, dto.ErrCodeValidation, "name is required"))
			continue
		}

		cust := customerFromPayload(businessID, p)
		if err := s.customers.UpsertByLocalID(ctx, cust); err != nil {
			resp.Errors = append(resp.Errors, entityError("customer", p.LocalID, dto.ErrCodeInternal, err.Error()))
			continue
		}

		saved, err := s.customers.FindByLocalID(ctx, businessID, p.LocalID)
		if err != nil {
			resp.Errors = append(resp.Errors, entityError("customer", p.LocalID, dto.ErrCodeInternal, err.Error()))
			continue
		}
		resp.Synced.Customers++
		resp.Mappings.Customers = append(resp.Mappings.Customers, dto.IDMapping{LocalID: p.LocalID, ServerID: saved.ID})
	}
}

func (s *syncService) pushSales(ctx context.Context, businessID uint, payloads []dto.SalePayload, resp *dto.PushResponse) {
	for _, p := range payloads {
		// Idempotence guard: a sale already present under this localId is
		// write-once — never re-insert. The one mutation the header permits
		// is the status/notes change of a void, applied under
		// last-writer-wins so a replayed older batch cannot un-void.
		if existing, err := s.sales.FindByLocalID(ctx, businessID, p.LocalID); err == nil {
			if p.UpdatedAt.After(existing.UpdatedAt) &&
				(p.Status != existing.Status || !notesEqual(p.Notes, existing.Notes)) {
				if err := s.sales.UpdateHeader(ctx, existing.ID, p.Status, p.Notes, p.UpdatedAt); err != nil {
					resp.Errors = append(resp.Errors, entityError("sale", p.LocalID, dto.ErrCodeInternal, err.Error()))
					continue
				}
			}
			resp.Mappings.Sales = append(resp.Mappings.Sales, dto.IDMapping{LocalID: p.LocalID, ServerID: existing.ID})
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			resp.Errors = append(resp.Errors, entityError("sale", p.LocalID, dto.ErrCodeInternal, err.Error()))
			continue
		}

		if len(p.Items) == 0 {
			resp.Errors = append(resp.Errors, entityError("sale", p.LocalID, dto.ErrCodeValidation, "sale has no items"))
			continue
		}

		sale := saleFromPayload(businessID, p)

		// Customer is optional — absence means a walk-in sale. Direct
		// server-id match first, exact localId lookup second, warning third.
		sale.CustomerID = nil
		if p.CustomerID != nil {
			if cust, err := s.customers.FindByID(ctx, businessID, *p.CustomerID); err == nil {
				sale.CustomerID = &cust.ID
				lid := cust.LocalID
				sale.CustomerLocalID = &lid
			}
		}
		if sale.CustomerID == nil && p.CustomerLocalID != nil {
			if cust, err := s.customers.FindByLocalID(ctx, businessID, *p.CustomerLocalID); err == nil {
				sale.CustomerID = &cust.ID
			}
		}
		if sale.CustomerID == nil && (p.CustomerID != nil || p.CustomerLocalID != nil) {
			resp.Warnings = append(resp.Warnings, dto.SyncWarning{
				EntityType: "sale", LocalID: p.LocalID, Field: "customerId",
				Detail: "customer reference could not be resolved; sale stored as walk-in",
			})
		}

		// Item product references: a miss keeps the raw local identifier in
		// ProductRef, flagged for later repair. Dropping the sale would lose
		// the financially significant record.
		for i := range sale.Items {
			item := &sale.Items[i]
			if item.ProductID != nil {
				if _, err := s.products.FindByID(ctx, businessID, *item.ProductID); err == nil {
					continue
				}
				item.ProductID = nil
			}
			if item.ProductRef != "" {
				if prod, err := s.products.FindByLocalID(ctx, businessID, item.ProductRef); err == nil {
					item.ProductID = &prod.ID
					continue
				}
			}
			resp.Warnings = append(resp.Warnings, dto.SyncWarning{
				EntityType: "sale", LocalID: p.LocalID, Field: fmt.Sprintf("items[%d].productId", i),
				Detail: "product reference could not be resolved",
			})
		}

		if err := s.sales.Create(ctx, sale); err != nil {
			resp.Errors = append(resp.Errors, entityError("sale", p.LocalID, dto.ErrCodeInternal, err.Error()))
			continue
		}
		resp.Synced.Sales++
		resp.Mappings.Sales = append(resp.Mappings.Sales, dto.IDMapping{LocalID: p.LocalID, ServerID: sale.ID})
	}
}

func (s *syncService) pushCreditTransactions(ctx context.Context, businessID uint, payloads []dto.CreditTransactionPayload, resp *dto.PushResponse) {
	for _, p := range payloads {
		if p.Type != model.CreditGiven && p.Type != model.PaymentReceived {
			resp.Errors = append(resp.Errors, entityError("creditTransaction", p.LocalID, dto.ErrCodeValidation, "unknown transaction type"))
			continue
		}
		if !p.Amount.IsPositive() {
			resp.Errors = append(resp.Errors, entityError("creditTransaction", p.LocalID, dto.ErrCodeValidation, "amount must be positive"))
			continue
		}

		// The owning customer must resolve; an orphaned ledger entry cannot
		// be applied and stays pending on the device for the next cycle.
		var customerID *uint
		if p.CustomerID != nil {
			if cust, err := s.customers.FindByID(ctx, businessID, *p.CustomerID); err == nil {
				customerID = &cust.ID
			}
		}
		if customerID == nil {
			if cust, err := s.customers.FindByLocalID(ctx, businessID, p.CustomerLocalID); err == nil {
				customerID = &cust.ID
			}
		}
		if customerID == nil {
			resp.Errors = append(resp.Errors, entityError("creditTransaction", p.LocalID, dto.ErrCodeUnresolved, "customer reference could not be resolved"))
			continue
		}

		tx := creditTransactionFromPayload(businessID, p)
		tx.CustomerID = customerID

		// The balanceAfter snapshot travels as given: recomputing it across
		// concurrently-syncing devices would need a global lock.
		inserted, err := s.creditTxs.CreateIfAbsent(ctx, tx)
		if err != nil {
			resp.Errors = append(resp.Errors, entityError("creditTransaction", p.LocalID, dto.ErrCodeInternal, err.Error()))
			continue
		}
		if inserted {
			resp.Synced.CreditTransactions++
			resp.Mappings.CreditTransactions = append(resp.Mappings.CreditTransactions, dto.IDMapping{LocalID: p.LocalID, ServerID: tx.ID})
			continue
		}

		// Duplicate from a retried push: already applied, report the mapping
		// so the device can mark it synced.
		if existing, err := s.creditTxs.FindByLocalID(ctx, businessID, p.LocalID); err == nil {
			resp.Mappings.CreditTransactions = append(resp.Mappings.CreditTransactions, dto.IDMapping{LocalID: p.LocalID, ServerID: existing.ID})
		}
	}
}

// BuildPull assembles every server-side change since the watermark.
// Categories and users are always full snapshots: their volume is small and
// consistency matters more than bandwidth. SyncedAt is the server clock —
// devices advance their watermark to it, never to their own clock.
func (s *syncService) BuildPull(ctx context.Context, businessID uint, since time.Time) (*dto.PullResponse, error) {
	products, err := s.products.ListSince(ctx, businessID, since)
	if err != nil {
		return nil, fmt.Errorf("pull products: %w", err)
	}
	customers, err := s.customers.ListSince(ctx, businessID, since)
	if err != nil {
		return nil, fmt.Errorf("pull customers: %w", err)
	}
	sales, err := s.sales.ListSince(ctx, businessID, since)
	if err != nil {
		return nil, fmt.Errorf("pull sales: %w", err)
	}
	categories, err := s.categories.ListAll(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("pull categories: %w", err)
	}
	users, err := s.users.ListActive(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("pull users: %w", err)
	}

	resp := &dto.PullResponse{
		Products:   make([]dto.ProductPayload, 0, len(products)),
		Customers:  make([]dto.CustomerPayload, 0, len(customers)),
		Sales:      make([]dto.SalePayload, 0, len(sales)),
		Categories: make([]dto.CategoryPayload, 0, len(categories)),
		Users:      make([]dto.UserPayload, 0, len(users)),
		SyncedAt:   time.Now().UTC(),
	}

	for i := range products {
		resp.Products = append(resp.Products, productToPayload(&products[i]))
	}
	for i := range customers {
		resp.Customers = append(resp.Customers, customerToPayload(&customers[i]))
	}
	for i := range sales {
		resp.Sales = append(resp.Sales, saleToPayload(&sales[i]))
	}
	for i := range categories {
		resp.Categories = append(resp.Categories, categoryToPayload(&categories[i]))
	}
	for i := range users {
		resp.Users = append(resp.Users, userToPayload(&users[i]))
	}

	return resp, nil
}

func entityError(entityType, localID, code, reason string) dto.EntityError {
	return dto.EntityError{EntityType: entityType, LocalID: localID, Code: code, Reason: reason}
}

func notesEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
