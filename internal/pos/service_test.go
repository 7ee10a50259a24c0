package pos

import (
	"context"
	"testing"
	"time"

	"github.com/edcadet10/tikes/internal/dto"
	"github.com/edcadet10/tikes/internal/ledger"
	"github.com/edcadet10/tikes/internal/localstore"
	"github.com/edcadet10/tikes/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixture(t *testing.T, taxRate decimal.Decimal) (*Service, localstore.Store) {
	t.Helper()
	store := localstore.NewMemory()
	return NewService(store, ledger.New(store), taxRate), store
}

func seedProduct(t *testing.T, store localstore.Store, name string, price decimal.Decimal, stock int) *model.Product {
	t.Helper()
	p := &model.Product{
		BusinessID:    1,
		SyncMeta:      model.SyncMeta{LocalID: model.NewLocalID(), SyncStatus: model.SyncSynced},
		Name:          name,
		Price:         price,
		StockQuantity: stock,
		IsActive:      true,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	require.NoError(t, store.SaveProduct(context.Background(), p))
	return p
}

func seedCustomer(t *testing.T, store localstore.Store) *model.Customer {
	t.Helper()
	c := &model.Customer{
		BusinessID: 1,
		SyncMeta:   model.SyncMeta{LocalID: model.NewLocalID(), SyncStatus: model.SyncSynced},
		Name:       "Jean",
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.SaveCustomer(context.Background(), c))
	return c
}

func TestCreateSale(t *testing.T) {
	svc, store := newFixture(t, decimal.Zero)
	prod := seedProduct(t, store, "Diri", decimal.NewFromInt(50), 10)

	sale, err := svc.CreateSale(context.Background(), dto.CreateSaleRequest{
		Items:    []dto.SaleItemRequest{{ProductLocalID: prod.LocalID, Quantity: 3}},
		Payments: []dto.SalePaymentRequest{{Method: model.PayCash, Amount: decimal.NewFromInt(150)}},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, sale.LocalID)
	assert.Equal(t, model.SyncPending, sale.SyncStatus)
	assert.Equal(t, model.SaleCompleted, sale.Status)
	assert.True(t, sale.Total.Equal(decimal.NewFromInt(150)))
	require.Len(t, sale.Items, 1)
	assert.Equal(t, "Diri", sale.Items[0].ProductName, "price and name snapshot at sale time")

	// Stock decremented once, product queued for push.
	after, _ := store.ProductByLocalID(context.Background(), prod.LocalID)
	assert.Equal(t, 7, after.StockQuantity)
	assert.Equal(t, model.SyncPending, after.SyncStatus)
}

func TestCreateSaleRequiresItemsAndPayments(t *testing.T) {
	svc, _ := newFixture(t, decimal.Zero)

	_, err := svc.CreateSale(context.Background(), dto.CreateSaleRequest{
		Payments: []dto.SalePaymentRequest{{Method: model.PayCash, Amount: decimal.NewFromInt(1)}},
	})
	assert.ErrorIs(t, err, ErrNoItems)

	_, err = svc.CreateSale(context.Background(), dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{{ProductLocalID: "p", Quantity: 1}},
	})
	assert.ErrorIs(t, err, ErrNoPayments)
}

func TestCreateSaleOnCredit(t *testing.T) {
	svc, store := newFixture(t, decimal.Zero)
	prod := seedProduct(t, store, "Diri", decimal.NewFromInt(100), 5)
	cust := seedCustomer(t, store)

	sale, err := svc.CreateSale(context.Background(), dto.CreateSaleRequest{
		CustomerLocalID: &cust.LocalID,
		Items:           []dto.SaleItemRequest{{ProductLocalID: prod.LocalID, Quantity: 2}},
		Payments:        []dto.SalePaymentRequest{{Method: model.PayCredit, Amount: decimal.NewFromInt(200)}},
	})
	require.NoError(t, err)

	// Credit payment appends a ledger entry tied to the sale.
	entries, err := store.CreditTransactionsForCustomer(context.Background(), cust.LocalID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.CreditGiven, entries[0].Type)
	assert.True(t, entries[0].Amount.Equal(decimal.NewFromInt(200)))
	require.NotNil(t, entries[0].SaleLocalID)
	assert.Equal(t, sale.LocalID, *entries[0].SaleLocalID)

	after, _ := store.CustomerByLocalID(context.Background(), cust.LocalID)
	assert.True(t, after.CreditBalance.Equal(decimal.NewFromInt(200)))
	assert.True(t, after.TotalPurchases.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, model.SyncPending, after.SyncStatus)
}

func TestCreateSaleCreditWithoutCustomer(t *testing.T) {
	svc, store := newFixture(t, decimal.Zero)
	prod := seedProduct(t, store, "Diri", decimal.NewFromInt(100), 5)

	_, err := svc.CreateSale(context.Background(), dto.CreateSaleRequest{
		Items:    []dto.SaleItemRequest{{ProductLocalID: prod.LocalID, Quantity: 1}},
		Payments: []dto.SalePaymentRequest{{Method: model.PayCredit, Amount: decimal.NewFromInt(100)}},
	})
	assert.ErrorIs(t, err, ErrCreditNeedsCustomer)
}

func TestCreateSaleAppliesTaxAndDiscount(t *testing.T) {
	svc, store := newFixture(t, decimal.NewFromInt(10))
	prod := seedProduct(t, store, "Diri", decimal.NewFromInt(100), 5)

	sale, err := svc.CreateSale(context.Background(), dto.CreateSaleRequest{
		Items:        []dto.SaleItemRequest{{ProductLocalID: prod.LocalID, Quantity: 2}},
		Payments:     []dto.SalePaymentRequest{{Method: model.PayCash, Amount: decimal.NewFromInt(198)}},
		Discount:     decimal.NewFromInt(10),
		DiscountType: "percentage",
	})
	require.NoError(t, err)

	// 200 − 10% = 180, +10% tax = 198.
	assert.True(t, sale.Subtotal.Equal(decimal.NewFromInt(200)), "subtotal %s", sale.Subtotal)
	assert.True(t, sale.Tax.Equal(decimal.NewFromInt(18)), "tax %s", sale.Tax)
	assert.True(t, sale.Total.Equal(decimal.NewFromInt(198)), "total %s", sale.Total)
}

func TestVoidSaleRestoresStock(t *testing.T) {
	svc, store := newFixture(t, decimal.Zero)
	prod := seedProduct(t, store, "Diri", decimal.NewFromInt(50), 10)

	sale, err := svc.CreateSale(context.Background(), dto.CreateSaleRequest{
		Items:    []dto.SaleItemRequest{{ProductLocalID: prod.LocalID, Quantity: 4}},
		Payments: []dto.SalePaymentRequest{{Method: model.PayCash, Amount: decimal.NewFromInt(200)}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.VoidSale(context.Background(), sale.LocalID, nil))

	after, _ := store.ProductByLocalID(context.Background(), prod.LocalID)
	assert.Equal(t, 10, after.StockQuantity)

	voided, _ := store.SaleByLocalID(context.Background(), sale.LocalID)
	assert.Equal(t, model.SaleVoided, voided.Status)
	assert.Equal(t, model.SyncPending, voided.SyncStatus)

	// Voiding twice is rejected.
	assert.ErrorIs(t, svc.VoidSale(context.Background(), sale.LocalID, nil), ErrSaleVoided)
}

func TestVoidCreditSaleReversesOutstandingCredit(t *testing.T) {
	svc, store := newFixture(t, decimal.Zero)
	prod := seedProduct(t, store, "Diri", decimal.NewFromInt(100), 5)
	cust := seedCustomer(t, store)

	sale, err := svc.CreateSale(context.Background(), dto.CreateSaleRequest{
		CustomerLocalID: &cust.LocalID,
		Items:           []dto.SaleItemRequest{{ProductLocalID: prod.LocalID, Quantity: 2}},
		Payments:        []dto.SalePaymentRequest{{Method: model.PayCredit, Amount: decimal.NewFromInt(200)}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.VoidSale(context.Background(), sale.LocalID, nil))

	// The debt from the voided sale is forgiven with a compensating entry;
	// the original credit_given row stays, the ledger is append-only.
	entries, err := store.CreditTransactionsForCustomer(context.Background(), cust.LocalID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.CreditGiven, entries[0].Type)
	assert.Equal(t, model.PaymentReceived, entries[1].Type)
	assert.True(t, entries[1].Amount.Equal(decimal.NewFromInt(200)))
	assert.True(t, entries[1].BalanceAfter.IsZero())

	after, _ := store.CustomerByLocalID(context.Background(), cust.LocalID)
	assert.True(t, after.CreditBalance.IsZero())
}

func TestRecordCustomerPayment(t *testing.T) {
	svc, store := newFixture(t, decimal.Zero)
	cust := seedCustomer(t, store)

	_, err := svc.GiveCredit(context.Background(), dto.CreditRequest{
		CustomerLocalID: cust.LocalID, Amount: decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	entry, err := svc.RecordCustomerPayment(context.Background(), dto.CreditRequest{
		CustomerLocalID: cust.LocalID, Amount: decimal.NewFromInt(200),
	})
	require.NoError(t, err)
	assert.True(t, entry.BalanceAfter.Equal(decimal.NewFromInt(300)))
}

func TestCatalogMutationsQueueForPush(t *testing.T) {
	svc, store := newFixture(t, decimal.Zero)

	cat, err := svc.CreateCategory(context.Background(), 1, "Drinks", nil, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, cat.LocalID)
	assert.Equal(t, model.SyncPending, cat.SyncStatus)

	p := &model.Product{BusinessID: 1, Name: "Cola", Price: decimal.NewFromInt(50), IsActive: true}
	require.NoError(t, svc.CreateProduct(context.Background(), p))
	assert.NotEmpty(t, p.LocalID)
	assert.Equal(t, model.SyncPending, p.SyncStatus)

	// Re-saving a synced product queues it again.
	p.SyncStatus = model.SyncSynced
	require.NoError(t, store.SaveProduct(context.Background(), p))
	p.Price = decimal.NewFromInt(60)
	require.NoError(t, svc.UpdateProduct(context.Background(), p))
	assert.Equal(t, model.SyncPending, p.SyncStatus)
}
