package engine

import (
	"context"

	"github.com/edcadet10/tikes/internal/dto"
	"github.com/edcadet10/tikes/internal/identity"
	"github.com/edcadet10/tikes/internal/localstore"
	"github.com/edcadet10/tikes/internal/model"

	"github.com/rs/zerolog/log"
)

// Pusher drains pending local rows to the server. The batch is assembled in
// dependency order (categories, products, customers, sales, credit
// transactions) so the server can resolve foreign keys of later types
// against earlier ones, and every cross-entity reference travels in both id
// spaces: the server id when the resolver knows it, plus the referenced
// entity's localId always.
type Pusher struct {
	store localstore.Store
	ids   *identity.Resolver
}

func NewPusher(store localstore.Store, ids *identity.Resolver) *Pusher {
	return &Pusher{store: store, ids: ids}
}

// PushResult summarizes one push direction of a cycle.
type PushResult struct {
	Attempted int
	Applied   int
	Conflicts int
	Warnings  []dto.SyncWarning
}

// Run assembles the pending batch, submits it, and applies the server's
// verdict row by row. An empty batch skips the network round trip entirely.
func (p *Pusher) Run(ctx context.Context, api API) (*PushResult, error) {
	req, err := p.buildBatch(ctx)
	if err != nil {
		return nil, err
	}

	result := &PushResult{Attempted: countBatch(req)}
	if req.Empty() {
		return result, nil
	}

	resp, err := api.Push(ctx, req)
	if err != nil {
		// Transport failure after assembly: every row is still pending and
		// will be retried next cycle. Idempotence server-side makes the
		// retry safe even if the server applied the batch before dying.
		return nil, err
	}

	if err := p.applyResponse(ctx, resp, result); err != nil {
		return nil, err
	}

	// Mappings cover both freshly applied rows and duplicates from an
	// earlier interrupted push; either way the row is now synced.
	result.Applied = len(allMappings(resp))
	result.Warnings = resp.Warnings

	log.Info().
		Int("attempted", result.Attempted).
		Int("applied", result.Applied).
		Int("conflicts", result.Conflicts).
		Int("warnings", len(result.Warnings)).
		Msg("push direction complete")

	return result, nil
}

func (p *Pusher) buildBatch(ctx context.Context) (dto.PushRequest, error) {
	var req dto.PushRequest

	categories, err := p.store.PendingCategories(ctx)
	if err != nil {
		return req, err
	}
	for i := range categories {
		req.Categories = append(req.Categories, p.categoryPayload(&categories[i]))
	}

	products, err := p.store.PendingProducts(ctx)
	if err != nil {
		return req, err
	}
	for i := range products {
		req.Products = append(req.Products, p.productPayload(&products[i]))
	}

	customers, err := p.store.PendingCustomers(ctx)
	if err != nil {
		return req, err
	}
	for i := range customers {
		req.Customers = append(req.Customers, p.customerPayload(&customers[i]))
	}

	sales, err := p.store.PendingSales(ctx)
	if err != nil {
		return req, err
	}
	for i := range sales {
		req.Sales = append(req.Sales, p.salePayload(&sales[i]))
	}

	creditTxs, err := p.store.PendingCreditTransactions(ctx)
	if err != nil {
		return req, err
	}
	for i := range creditTxs {
		req.CreditTransactions = append(req.CreditTransactions, p.creditTxPayload(&creditTxs[i]))
	}

	return req, nil
}

// applyResponse walks mappings (mark synced, record identity) and entity
// errors (park in conflict or leave pending).
func (p *Pusher) applyResponse(ctx context.Context, resp *dto.PushResponse, result *PushResult) error {
	apply := func(kind string, mappings []dto.IDMapping) error {
		for _, m := range mappings {
			if err := p.ids.Record(kind, m.LocalID, m.ServerID); err != nil {
				return err
			}
			if err := p.store.MarkSynced(ctx, kind, m.LocalID, m.ServerID); err != nil {
				return err
			}
		}
		return nil
	}

	if err := apply(identity.KindCategory, resp.Mappings.Categories); err != nil {
		return err
	}
	if err := apply(identity.KindProduct, resp.Mappings.Products); err != nil {
		return err
	}
	if err := apply(identity.KindCustomer, resp.Mappings.Customers); err != nil {
		return err
	}
	if err := apply(identity.KindSale, resp.Mappings.Sales); err != nil {
		return err
	}
	if err := apply(identity.KindCreditTransaction, resp.Mappings.CreditTransactions); err != nil {
		return err
	}

	for _, e := range resp.Errors {
		switch e.Code {
		case dto.ErrCodeValidation:
			// Malformed for good: retrying verbatim can never succeed.
			if err := p.store.MarkConflict(ctx, e.EntityType, e.LocalID); err != nil {
				return err
			}
			result.Conflicts++
			log.Warn().Str("entity", e.EntityType).Str("local_id", e.LocalID).
				Str("reason", e.Reason).Msg("entity parked in conflict")
		default:
			// Unresolved references and server hiccups stay pending: the
			// missing dependency may land before the next cycle.
			log.Warn().Str("entity", e.EntityType).Str("local_id", e.LocalID).
				Str("code", e.Code).Str("reason", e.Reason).Msg("entity left pending")
		}
	}

	return nil
}

// ── Payload assembly ────────────────────────────────────────────────────────

func (p *Pusher) categoryPayload(c *model.Category) dto.CategoryPayload {
	return dto.CategoryPayload{
		LocalID:   c.LocalID,
		ServerID:  c.ServerID,
		Name:      c.Name,
		Icon:      c.Icon,
		SortOrder: c.SortOrder,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func (p *Pusher) productPayload(prod *model.Product) dto.ProductPayload {
	payload := dto.ProductPayload{
		LocalID:         prod.LocalID,
		ServerID:        prod.ServerID,
		Name:            prod.Name,
		Price:           prod.Price,
		Cost:            prod.Cost,
		Barcode:         prod.Barcode,
		CategoryLocalID: prod.CategoryLocalID,
		StockQuantity:   prod.StockQuantity,
		LowStockAlert:   prod.LowStockAlert,
		UnitType:        prod.UnitType,
		ImageURL:        prod.ImageURL,
		IsActive:        prod.IsActive,
		CreatedAt:       prod.CreatedAt,
		UpdatedAt:       prod.UpdatedAt,
	}
	if prod.CategoryLocalID != nil {
		if sid, ok := p.ids.ServerID(identity.KindCategory, *prod.CategoryLocalID); ok {
			payload.CategoryID = &sid
		}
	}
	return payload
}

func (p *Pusher) customerPayload(c *model.Customer) dto.CustomerPayload {
	return dto.CustomerPayload{
		LocalID:        c.LocalID,
		ServerID:       c.ServerID,
		Name:           c.Name,
		Phone:          c.Phone,
		Notes:          c.Notes,
		TotalPurchases: c.TotalPurchases,
		CreditBalance:  c.CreditBalance,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func (p *Pusher) salePayload(s *model.Sale) dto.SalePayload {
	payload := dto.SalePayload{
		LocalID:         s.LocalID,
		ServerID:        s.ServerID,
		UserID:          s.UserID,
		CustomerLocalID: s.CustomerLocalID,
		Subtotal:        s.Subtotal,
		Discount:        s.Discount,
		DiscountType:    s.DiscountType,
		Tax:             s.Tax,
		Total:           s.Total,
		Status:          s.Status,
		Notes:           s.Notes,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
	if s.CustomerLocalID != nil {
		if sid, ok := p.ids.ServerID(identity.KindCustomer, *s.CustomerLocalID); ok {
			payload.CustomerID = &sid
		}
	}
	for _, it := range s.Items {
		item := dto.SaleItemPayload{
			ProductLocalID: it.ProductRef,
			ProductName:    it.ProductName,
			Quantity:       it.Quantity,
			UnitPrice:      it.UnitPrice,
			Discount:       it.Discount,
			Subtotal:       it.Subtotal,
		}
		if it.ProductRef != "" {
			if sid, ok := p.ids.ServerID(identity.KindProduct, it.ProductRef); ok {
				item.ProductID = &sid
			}
		}
		payload.Items = append(payload.Items, item)
	}
	for _, pay := range s.Payments {
		payload.Payments = append(payload.Payments, dto.PaymentPayload{
			Method:    pay.Method,
			Amount:    pay.Amount,
			Reference: pay.Reference,
			Status:    pay.Status,
		})
	}
	return payload
}

func (p *Pusher) creditTxPayload(t *model.CreditTransaction) dto.CreditTransactionPayload {
	payload := dto.CreditTransactionPayload{
		LocalID:         t.LocalID,
		ServerID:        t.ServerID,
		CustomerLocalID: t.CustomerLocalID,
		SaleLocalID:     t.SaleLocalID,
		Amount:          t.Amount,
		Type:            t.Type,
		BalanceAfter:    t.BalanceAfter,
		Notes:           t.Notes,
		CreatedAt:       t.CreatedAt,
	}
	if sid, ok := p.ids.ServerID(identity.KindCustomer, t.CustomerLocalID); ok {
		payload.CustomerID = &sid
	}
	return payload
}

func countBatch(req dto.PushRequest) int {
	return len(req.Categories) + len(req.Products) + len(req.Customers) +
		len(req.Sales) + len(req.CreditTransactions)
}

func allMappings(resp *dto.PushResponse) []dto.IDMapping {
	var out []dto.IDMapping
	out = append(out, resp.Mappings.Categories...)
	out = append(out, resp.Mappings.Products...)
	out = append(out, resp.Mappings.Customers...)
	out = append(out, resp.Mappings.Sales...)
	out = append(out, resp.Mappings.CreditTransactions...)
	return out
}
