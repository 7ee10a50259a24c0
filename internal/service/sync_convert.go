package service

import (
	"github.com/edcadet10/tikes/internal/dto"
	"github.com/edcadet10/tikes/internal/model"
)

// Payload↔model conversion for the sync protocol. The fromPayload direction
// never copies incoming server ids into rows: the server surrogate id is
// whatever the destination table assigns. The toPayload direction always sets
// ServerID from the row id so devices can record the mapping.

func categoryFromPayload(businessID uint, p dto.CategoryPayload) *model.Category {
	return &model.Category{
		BusinessID: businessID,
		SyncMeta:   model.SyncMeta{LocalID: p.LocalID, SyncStatus: model.SyncSynced},
		Name:       p.Name,
		Icon:       p.Icon,
		SortOrder:  p.SortOrder,
		CreatedAt:  p.CreatedAt,
	}
}

func categoryToPayload(c *model.Category) dto.CategoryPayload {
	id := c.ID
	return dto.CategoryPayload{
		LocalID:   c.LocalID,
		ServerID:  &id,
		Name:      c.Name,
		Icon:      c.Icon,
		SortOrder: c.SortOrder,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func productFromPayload(businessID uint, p dto.ProductPayload) *model.Product {
	return &model.Product{
		BusinessID:      businessID,
		SyncMeta:        model.SyncMeta{LocalID: p.LocalID, SyncStatus: model.SyncSynced},
		Name:            p.Name,
		Price:           p.Price,
		Cost:            p.Cost,
		Barcode:         p.Barcode,
		CategoryLocalID: p.CategoryLocalID,
		StockQuantity:   p.StockQuantity,
		LowStockAlert:   p.LowStockAlert,
		UnitType:        p.UnitType,
		ImageURL:        p.ImageURL,
		IsActive:        p.IsActive,
		CreatedAt:       p.CreatedAt,
	}
}

func productToPayload(p *model.Product) dto.ProductPayload {
	id := p.ID
	return dto.ProductPayload{
		LocalID:         p.LocalID,
		ServerID:        &id,
		Name:            p.Name,
		Price:           p.Price,
		Cost:            p.Cost,
		Barcode:         p.Barcode,
		CategoryID:      p.CategoryID,
		CategoryLocalID: p.CategoryLocalID,
		StockQuantity:   p.StockQuantity,
		LowStockAlert:   p.LowStockAlert,
		UnitType:        p.UnitType,
		ImageURL:        p.ImageURL,
		IsActive:        p.IsActive,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func customerFromPayload(businessID uint, p dto.CustomerPayload) *model.Customer {
	return &model.Customer{
		BusinessID:     businessID,
		SyncMeta:       model.SyncMeta{LocalID: p.LocalID, SyncStatus: model.SyncSynced},
		Name:           p.Name,
		Phone:          p.Phone,
		Notes:          p.Notes,
		TotalPurchases: p.TotalPurchases,
		CreditBalance:  p.CreditBalance,
		CreatedAt:      p.CreatedAt,
	}
}

func customerToPayload(c *model.Customer) dto.CustomerPayload {
	id := c.ID
	return dto.CustomerPayload{
		LocalID:        c.LocalID,
		ServerID:       &id,
		Name:           c.Name,
		Phone:          c.Phone,
		Notes:          c.Notes,
		TotalPurchases: c.TotalPurchases,
		CreditBalance:  c.CreditBalance,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func saleFromPayload(businessID uint, p dto.SalePayload) *model.Sale {
	sale := &model.Sale{
		BusinessID:      businessID,
		SyncMeta:        model.SyncMeta{LocalID: p.LocalID, SyncStatus: model.SyncSynced},
		UserID:          p.UserID,
		CustomerLocalID: p.CustomerLocalID,
		Subtotal:        p.Subtotal,
		Discount:        p.Discount,
		DiscountType:    p.DiscountType,
		Tax:             p.Tax,
		Total:           p.Total,
		Status:          p.Status,
		Notes:           p.Notes,
		CreatedAt:       p.CreatedAt,
		Items:           make([]model.SaleItem, 0, len(p.Items)),
		Payments:        make([]model.Payment, 0, len(p.Payments)),
	}
	for _, it := range p.Items {
		sale.Items = append(sale.Items, model.SaleItem{
			ProductID:   it.ProductID,
			ProductRef:  it.ProductLocalID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Discount:    it.Discount,
			Subtotal:    it.Subtotal,
		})
	}
	for _, pay := range p.Payments {
		sale.Payments = append(sale.Payments, model.Payment{
			Method:    pay.Method,
			Amount:    pay.Amount,
			Reference: pay.Reference,
			Status:    pay.Status,
		})
	}
	return sale
}

func saleToPayload(s *model.Sale) dto.SalePayload {
	id := s.ID
	p := dto.SalePayload{
		LocalID:         s.LocalID,
		ServerID:        &id,
		UserID:          s.UserID,
		CustomerID:      s.CustomerID,
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
		Items:           make([]dto.SaleItemPayload, 0, len(s.Items)),
		Payments:        make([]dto.PaymentPayload, 0, len(s.Payments)),
	}
	for _, it := range s.Items {
		p.Items = append(p.Items, dto.SaleItemPayload{
			ProductID:      it.ProductID,
			ProductLocalID: it.ProductRef,
			ProductName:    it.ProductName,
			Quantity:       it.Quantity,
			UnitPrice:      it.UnitPrice,
			Discount:       it.Discount,
			Subtotal:       it.Subtotal,
		})
	}
	for _, pay := range s.Payments {
		p.Payments = append(p.Payments, dto.PaymentPayload{
			Method:    pay.Method,
			Amount:    pay.Amount,
			Reference: pay.Reference,
			Status:    pay.Status,
		})
	}
	return p
}

func creditTransactionFromPayload(businessID uint, p dto.CreditTransactionPayload) *model.CreditTransaction {
	return &model.CreditTransaction{
		BusinessID:      businessID,
		SyncMeta:        model.SyncMeta{LocalID: p.LocalID, SyncStatus: model.SyncSynced},
		CustomerLocalID: p.CustomerLocalID,
		SaleLocalID:     p.SaleLocalID,
		Amount:          p.Amount,
		Type:            p.Type,
		BalanceAfter:    p.BalanceAfter,
		Notes:           p.Notes,
		CreatedAt:       p.CreatedAt,
	}
}

func userToPayload(u *model.User) dto.UserPayload {
	return dto.UserPayload{
		ID:        u.ID,
		Name:      u.Name,
		Phone:     u.Phone,
		Role:      u.Role,
		IsActive:  u.IsActive,
		UpdatedAt: u.UpdatedAt,
	}
}
