package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/edcadet10/tikes/internal/dto"
	"github.com/edcadet10/tikes/internal/identity"
	"github.com/edcadet10/tikes/internal/localstore"
	"github.com/edcadet10/tikes/internal/model"

	"github.com/rs/zerolog/log"
)

// Puller merges server-side changes into the local store. The whole merge —
// every entity type plus the watermark advance — runs in one store
// transaction: a crash mid-merge leaves the watermark untouched and the next
// pull simply replays the same window. Merge order is categories, products,
// customers, sales, users, so references of later types can resolve against
// earlier ones.
type Puller struct {
	store localstore.Store
	ids   *identity.Resolver
}

func NewPuller(store localstore.Store, ids *identity.Resolver) *Puller {
	return &Puller{store: store, ids: ids}
}

// PullResult summarizes one pull direction of a cycle.
type PullResult struct {
	Merged   int
	Skipped  int
	Warnings []dto.SyncWarning
}

func (p *Puller) Run(ctx context.Context, api API) (*PullResult, error) {
	since, err := p.store.Watermark(ctx)
	if err != nil {
		return nil, fmt.Errorf("read watermark: %w", err)
	}

	resp, err := api.Pull(ctx, since)
	if err != nil {
		return nil, err
	}

	result := &PullResult{}
	err = p.store.RunInTx(ctx, func(tx localstore.Store) error {
		for i := range resp.Categories {
			if err := p.mergeCategory(ctx, tx, &resp.Categories[i], result); err != nil {
				return err
			}
		}
		for i := range resp.Products {
			if err := p.mergeProduct(ctx, tx, &resp.Products[i], result); err != nil {
				return err
			}
		}
		for i := range resp.Customers {
			if err := p.mergeCustomer(ctx, tx, &resp.Customers[i], result); err != nil {
				return err
			}
		}
		for i := range resp.Sales {
			if err := p.mergeSale(ctx, tx, &resp.Sales[i], result); err != nil {
				return err
			}
		}
		for i := range resp.Users {
			if err := p.mergeUser(ctx, tx, &resp.Users[i]); err != nil {
				return err
			}
		}
		// Server clock, never ours: skew on the device must not open holes
		// in the pull window.
		return tx.SetWatermark(ctx, resp.SyncedAt)
	})
	if err != nil {
		return nil, err
	}

	// Identity pairs go into the resolver only once the merge transaction
	// has committed: a failed merge must not leave mappings in memory for
	// rows the store never accepted.
	p.recordIdentities(resp)

	log.Info().
		Int("merged", result.Merged).
		Int("skipped", result.Skipped).
		Time("watermark", resp.SyncedAt).
		Msg("pull direction complete")

	return result, nil
}

func (p *Puller) recordIdentities(resp *dto.PullResponse) {
	for i := range resp.Categories {
		p.record(identity.KindCategory, resp.Categories[i].LocalID, resp.Categories[i].ServerID)
	}
	for i := range resp.Products {
		p.record(identity.KindProduct, resp.Products[i].LocalID, resp.Products[i].ServerID)
	}
	for i := range resp.Customers {
		p.record(identity.KindCustomer, resp.Customers[i].LocalID, resp.Customers[i].ServerID)
	}
	for i := range resp.Sales {
		p.record(identity.KindSale, resp.Sales[i].LocalID, resp.Sales[i].ServerID)
	}
}

func (p *Puller) record(kind, localID string, serverID *uint) {
	if serverID == nil || localID == "" {
		return
	}
	if err := p.ids.Record(kind, localID, *serverID); err != nil {
		log.Error().Err(err).Str("kind", kind).Msg("identity mapping rejected")
	}
}

func (p *Puller) mergeCategory(ctx context.Context, tx localstore.Store, in *dto.CategoryPayload, result *PullResult) error {
	local, err := tx.CategoryByLocalID(ctx, in.LocalID)
	if err != nil && !errors.Is(err, localstore.ErrNotFound) {
		return err
	}
	if local != nil && !in.UpdatedAt.After(local.UpdatedAt) {
		result.Skipped++
		return nil
	}

	row := &model.Category{
		SyncMeta:  model.SyncMeta{LocalID: in.LocalID, ServerID: in.ServerID, SyncStatus: model.SyncSynced},
		Name:      in.Name,
		Icon:      in.Icon,
		SortOrder: in.SortOrder,
		CreatedAt: in.CreatedAt,
		UpdatedAt: in.UpdatedAt,
	}
	if err := tx.SaveCategory(ctx, row); err != nil {
		return err
	}
	result.Merged++
	return nil
}

func (p *Puller) mergeProduct(ctx context.Context, tx localstore.Store, in *dto.ProductPayload, result *PullResult) error {
	local, err := tx.ProductByLocalID(ctx, in.LocalID)
	if err != nil && !errors.Is(err, localstore.ErrNotFound) {
		return err
	}
	if local != nil && !in.UpdatedAt.After(local.UpdatedAt) {
		result.Skipped++
		return nil
	}

	row := &model.Product{
		SyncMeta:        model.SyncMeta{LocalID: in.LocalID, ServerID: in.ServerID, SyncStatus: model.SyncSynced},
		Name:            in.Name,
		Price:           in.Price,
		Cost:            in.Cost,
		Barcode:         in.Barcode,
		CategoryLocalID: in.CategoryLocalID,
		StockQuantity:   in.StockQuantity,
		LowStockAlert:   in.LowStockAlert,
		UnitType:        in.UnitType,
		ImageURL:        in.ImageURL,
		IsActive:        in.IsActive,
		CreatedAt:       in.CreatedAt,
		UpdatedAt:       in.UpdatedAt,
	}

	// Category reference into the local id space: exact localId lookup
	// first, then the server id through the local mirror. A miss keeps the
	// logical reference for repair on a later pull.
	if in.CategoryLocalID != nil {
		if cat, err := tx.CategoryByLocalID(ctx, *in.CategoryLocalID); err == nil {
			row.CategoryID = &cat.ID
		}
	}
	if row.CategoryID == nil && in.CategoryID != nil {
		if cat, err := tx.CategoryByServerID(ctx, *in.CategoryID); err == nil {
			row.CategoryID = &cat.ID
			lid := cat.LocalID
			row.CategoryLocalID = &lid
		}
	}
	if row.CategoryID == nil && (in.CategoryID != nil || in.CategoryLocalID != nil) {
		result.Warnings = append(result.Warnings, dto.SyncWarning{
			EntityType: "product", LocalID: in.LocalID, Field: "categoryId",
			Detail: "category reference could not be resolved locally",
		})
	}

	if err := tx.SaveProduct(ctx, row); err != nil {
		return err
	}
	result.Merged++
	return nil
}

func (p *Puller) mergeCustomer(ctx context.Context, tx localstore.Store, in *dto.CustomerPayload, result *PullResult) error {
	local, err := tx.CustomerByLocalID(ctx, in.LocalID)
	if err != nil && !errors.Is(err, localstore.ErrNotFound) {
		return err
	}
	if local != nil && !in.UpdatedAt.After(local.UpdatedAt) {
		result.Skipped++
		return nil
	}

	row := &model.Customer{
		SyncMeta:       model.SyncMeta{LocalID: in.LocalID, ServerID: in.ServerID, SyncStatus: model.SyncSynced},
		Name:           in.Name,
		Phone:          in.Phone,
		Notes:          in.Notes,
		TotalPurchases: in.TotalPurchases,
		CreditBalance:  in.CreditBalance,
		CreatedAt:      in.CreatedAt,
		UpdatedAt:      in.UpdatedAt,
	}
	if err := tx.SaveCustomer(ctx, row); err != nil {
		return err
	}
	result.Merged++
	return nil
}

func (p *Puller) mergeSale(ctx context.Context, tx localstore.Store, in *dto.SalePayload, result *PullResult) error {
	local, err := tx.SaleByLocalID(ctx, in.LocalID)
	if err != nil && !errors.Is(err, localstore.ErrNotFound) {
		return err
	}
	if local != nil {
		// Write-once: an existing sale only ever absorbs the header status
		// (completed → voided elsewhere) under last-writer-wins.
		if !in.UpdatedAt.After(local.UpdatedAt) {
			result.Skipped++
			return nil
		}
		local.Status = in.Status
		local.Notes = in.Notes
		local.UpdatedAt = in.UpdatedAt
		local.ServerID = in.ServerID
		local.SyncStatus = model.SyncSynced
		if err := tx.SaveSale(ctx, local); err != nil {
			return err
		}
		result.Merged++
		return nil
	}

	row := &model.Sale{
		SyncMeta:        model.SyncMeta{LocalID: in.LocalID, ServerID: in.ServerID, SyncStatus: model.SyncSynced},
		UserID:          in.UserID,
		CustomerLocalID: in.CustomerLocalID,
		Subtotal:        in.Subtotal,
		Discount:        in.Discount,
		DiscountType:    in.DiscountType,
		Tax:             in.Tax,
		Total:           in.Total,
		Status:          in.Status,
		Notes:           in.Notes,
		CreatedAt:       in.CreatedAt,
		UpdatedAt:       in.UpdatedAt,
	}

	// Customer reference into the local id space.
	if in.CustomerLocalID != nil {
		if cust, err := tx.CustomerByLocalID(ctx, *in.CustomerLocalID); err == nil {
			row.CustomerID = &cust.ID
		}
	}
	if row.CustomerID == nil && in.CustomerID != nil {
		if cust, err := tx.CustomerByServerID(ctx, *in.CustomerID); err == nil {
			row.CustomerID = &cust.ID
			lid := cust.LocalID
			row.CustomerLocalID = &lid
		}
	}
	if row.CustomerID == nil && (in.CustomerID != nil || in.CustomerLocalID != nil) {
		result.Warnings = append(result.Warnings, dto.SyncWarning{
			EntityType: "sale", LocalID: in.LocalID, Field: "customerId",
			Detail: "customer reference could not be resolved locally",
		})
	}

	for _, it := range in.Items {
		item := model.SaleItem{
			ProductRef:  it.ProductLocalID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Discount:    it.Discount,
			Subtotal:    it.Subtotal,
		}
		if it.ProductLocalID != "" {
			if prod, err := tx.ProductByLocalID(ctx, it.ProductLocalID); err == nil {
				item.ProductID = &prod.ID
			}
		}
		if item.ProductID == nil && it.ProductID != nil {
			if prod, err := tx.ProductByServerID(ctx, *it.ProductID); err == nil {
				item.ProductID = &prod.ID
				item.ProductRef = prod.LocalID
			}
		}
		row.Items = append(row.Items, item)
	}
	for _, pay := range in.Payments {
		row.Payments = append(row.Payments, model.Payment{
			Method:    pay.Method,
			Amount:    pay.Amount,
			Reference: pay.Reference,
			Status:    pay.Status,
		})
	}

	if err := tx.SaveSale(ctx, row); err != nil {
		return err
	}
	result.Merged++
	return nil
}

func (p *Puller) mergeUser(ctx context.Context, tx localstore.Store, in *dto.UserPayload) error {
	return tx.SaveUser(ctx, &model.User{
		ID:        in.ID,
		Name:      in.Name,
		Phone:     in.Phone,
		Role:      in.Role,
		IsActive:  in.IsActive,
		UpdatedAt: in.UpdatedAt,
	})
}
