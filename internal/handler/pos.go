package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/edcadet10/tikes/internal/apierror"
	"github.com/edcadet10/tikes/internal/dto"
	"github.com/edcadet10/tikes/internal/engine"
	"github.com/edcadet10/tikes/internal/ledger"
	"github.com/edcadet10/tikes/internal/localstore"
	"github.com/edcadet10/tikes/internal/model"
	"github.com/edcadet10/tikes/internal/pos"

	"github.com/gin-gonic/gin"
)

// Syncer runs one push-then-pull cycle on demand.
type Syncer interface {
	Sync(ctx context.Context) (*engine.Outcome, error)
}

// PosHandler is the register's local HTTP surface, served by syncd on the
// loopback interface. The register UI talks to it instead of the server;
// every write lands in the local store marked pending and reaches the
// server on the next cycle.
type PosHandler struct {
	pos    *pos.Service
	ledger *ledger.Ledger
	store  localstore.Store
	sync   Syncer
}

func NewPosHandler(svc *pos.Service, l *ledger.Ledger, store localstore.Store, sync Syncer) *PosHandler {
	return &PosHandler{pos: svc, ledger: l, store: store, sync: sync}
}

// businessID is the business this register is enrolled to, read from the
// pulled mirrors. A fresh device that has never pulled gets zero; the
// server stamps the real scope from the JWT when the row is pushed.
func (h *PosHandler) businessID(ctx context.Context) uint {
	if users, err := h.store.ListUsers(ctx); err == nil && len(users) > 0 {
		return users[0].BusinessID
	}
	if products, err := h.store.ListProducts(ctx); err == nil && len(products) > 0 {
		return products[0].BusinessID
	}
	return 0
}

// CreateSale rings up a sale.
func (h *PosHandler) CreateSale(c *gin.Context) {
	var req dto.CreateSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}

	sale, err := h.pos.CreateSale(c.Request.Context(), req)
	switch {
	case errors.Is(err, localstore.ErrNotFound):
		c.JSON(http.StatusNotFound, apierror.New("Unknown product or customer reference"))
	case errors.Is(err, pos.ErrNoItems), errors.Is(err, pos.ErrNoPayments),
		errors.Is(err, pos.ErrCreditNeedsCustomer):
		c.JSON(http.StatusUnprocessableEntity, apierror.New(err.Error()))
	case err != nil:
		c.JSON(http.StatusInternalServerError, apierror.New("Failed to record sale"))
	default:
		c.JSON(http.StatusCreated, sale)
	}
}

// VoidSale cancels a completed sale and restores its stock. The body is an
// optional {"reason": ...}.
func (h *PosHandler) VoidSale(c *gin.Context) {
	var req dto.VoidSaleRequest
	_ = c.ShouldBindJSON(&req) // empty body is a valid void

	err := h.pos.VoidSale(c.Request.Context(), c.Param("localId"), req.Reason)
	switch {
	case errors.Is(err, localstore.ErrNotFound):
		c.JSON(http.StatusNotFound, apierror.New("Sale not found"))
	case errors.Is(err, pos.ErrSaleVoided):
		c.JSON(http.StatusConflict, apierror.New("Sale already voided"))
	case err != nil:
		c.JSON(http.StatusInternalServerError, apierror.New("Failed to void sale"))
	default:
		c.JSON(http.StatusOK, gin.H{"localId": c.Param("localId"), "status": model.SaleVoided})
	}
}

// CreateCategory adds a catalog category.
func (h *PosHandler) CreateCategory(c *gin.Context) {
	var req dto.CreateCategoryRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := c.Request.Context()
	cat, err := h.pos.CreateCategory(ctx, h.businessID(ctx), req.Name, req.Icon, req.SortOrder)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Failed to create category"))
		return
	}
	c.JSON(http.StatusCreated, cat)
}

// CreateProduct adds a sellable item to the catalog.
func (h *PosHandler) CreateProduct(c *gin.Context) {
	var req dto.CreateProductRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := c.Request.Context()
	p := &model.Product{
		BusinessID:      h.businessID(ctx),
		Name:            req.Name,
		Price:           req.Price,
		Cost:            req.Cost,
		Barcode:         req.Barcode,
		CategoryLocalID: req.CategoryLocalID,
		StockQuantity:   req.StockQuantity,
		LowStockAlert:   req.LowStockAlert,
		UnitType:        req.UnitType,
		ImageURL:        req.ImageURL,
		IsActive:        true,
	}
	if p.UnitType == "" {
		p.UnitType = model.UnitEach
	}
	if err := h.pos.CreateProduct(ctx, p); err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Failed to create product"))
		return
	}
	c.JSON(http.StatusCreated, p)
}

// ListProducts returns the full local catalog for the register screens.
func (h *PosHandler) ListProducts(c *gin.Context) {
	products, err := h.store.ListProducts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Failed to list products"))
		return
	}
	c.JSON(http.StatusOK, products)
}

// CreateCustomer registers a credit customer.
func (h *PosHandler) CreateCustomer(c *gin.Context) {
	var req dto.CreateCustomerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := c.Request.Context()
	cust := &model.Customer{
		BusinessID: h.businessID(ctx),
		Name:       req.Name,
		Phone:      req.Phone,
		Notes:      req.Notes,
	}
	if err := h.pos.CreateCustomer(ctx, cust); err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Failed to create customer"))
		return
	}
	c.JSON(http.StatusCreated, cust)
}

// ListCustomers returns all known customers.
func (h *PosHandler) ListCustomers(c *gin.Context) {
	customers, err := h.store.ListCustomers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Failed to list customers"))
		return
	}
	c.JSON(http.StatusOK, customers)
}

// GiveCredit raises a customer's balance outside a sale.
func (h *PosHandler) GiveCredit(c *gin.Context) {
	h.appendLedger(c, h.pos.GiveCredit)
}

// RecordPayment settles (part of) a customer's credit balance.
func (h *PosHandler) RecordPayment(c *gin.Context) {
	h.appendLedger(c, h.pos.RecordCustomerPayment)
}

func (h *PosHandler) appendLedger(c *gin.Context, op func(context.Context, dto.CreditRequest) (*model.CreditTransaction, error)) {
	var req dto.LedgerEntryRequest
	if !bindAndValidate(c, &req) {
		return
	}

	entry, err := op(c.Request.Context(), dto.CreditRequest{
		CustomerLocalID: c.Param("localId"),
		Amount:          req.Amount,
		Notes:           req.Notes,
	})
	switch {
	case errors.Is(err, ledger.ErrCustomerUnknown):
		c.JSON(http.StatusNotFound, apierror.New("Customer not found"))
	case errors.Is(err, ledger.ErrAmountNotPositive):
		c.JSON(http.StatusUnprocessableEntity, apierror.New("Amount must be positive"))
	case err != nil:
		c.JSON(http.StatusInternalServerError, apierror.New("Failed to record ledger entry"))
	default:
		c.JSON(http.StatusCreated, entry)
	}
}

// CreditHistory returns a customer's ledger, oldest first, with the
// canonical balance replayed from it.
func (h *PosHandler) CreditHistory(c *gin.Context) {
	ctx := c.Request.Context()
	localID := c.Param("localId")

	if _, err := h.store.CustomerByLocalID(ctx, localID); err != nil {
		c.JSON(http.StatusNotFound, apierror.New("Customer not found"))
		return
	}
	entries, err := h.store.CreditTransactionsForCustomer(ctx, localID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Failed to load ledger"))
		return
	}
	balance, err := h.ledger.Balance(ctx, localID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Failed to compute balance"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance, "entries": entries})
}

// TriggerSync starts a cycle immediately instead of waiting for the
// interval timer. At most one cycle runs at a time.
func (h *PosHandler) TriggerSync(c *gin.Context) {
	outcome, err := h.sync.Sync(c.Request.Context())
	switch {
	case errors.Is(err, engine.ErrSyncInProgress):
		c.JSON(http.StatusConflict, apierror.New("A sync cycle is already running"))
	case err != nil && outcome != nil:
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "status": outcome.Message()})
	case err != nil:
		c.JSON(http.StatusBadGateway, apierror.New("Sync failed"))
	default:
		c.JSON(http.StatusOK, gin.H{"ok": true, "status": outcome.Message()})
	}
}
