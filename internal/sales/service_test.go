package sales

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/dukapos/dukapos/internal/catalog"
	"github.com/dukapos/dukapos/internal/orders"
)

type fakeProduct struct {
	name         string
	taxInclusive bool
	stock        int
}

type fakeOrder struct {
	status orders.Status
	saleID *int64
}

// fakeStore emulates the transactional repository: WithTx serializes
// callers the way row locks do, and any error restores the pre-tx state.
type fakeStore struct {
	mu                sync.Mutex
	products          map[int64]*fakeProduct
	sales             []Sale
	lines             map[int64][]SaleLine
	counters          map[string]int
	orders            map[int64]*fakeOrder
	nextSaleID        int64
	conflictsToInject int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products: make(map[int64]*fakeProduct),
		lines:    make(map[int64][]SaleLine),
		counters: make(map[string]int),
		orders:   make(map[int64]*fakeOrder),
	}
}

type storeSnapshot struct {
	products  map[int64]fakeProduct
	saleCount int
	counters  map[string]int
	orders    map[int64]fakeOrder
}

func (s *fakeStore) snapshot() storeSnapshot {
	snap := storeSnapshot{
		products:  make(map[int64]fakeProduct, len(s.products)),
		saleCount: len(s.sales),
		counters:  make(map[string]int, len(s.counters)),
		orders:    make(map[int64]fakeOrder, len(s.orders)),
	}
	for id, p := range s.products {
		snap.products[id] = *p
	}
	for k, v := range s.counters {
		snap.counters[k] = v
	}
	for id, o := range s.orders {
		snap.orders[id] = *o
	}
	return snap
}

func (s *fakeStore) restore(snap storeSnapshot) {
	for id, p := range snap.products {
		cp := p
		s.products[id] = &cp
	}
	s.sales = s.sales[:snap.saleCount]
	s.counters = make(map[string]int, len(snap.counters))
	for k, v := range snap.counters {
		s.counters[k] = v
	}
	for id, o := range snap.orders {
		co := o
		s.orders[id] = &co
	}
}

func (s *fakeStore) WithTx(_ context.Context, fn func(context.Context, TxRepository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conflictsToInject > 0 {
		s.conflictsToInject--
		return &pgconn.PgError{Code: "40001"}
	}
	snap := s.snapshot()
	if err := fn(context.Background(), &fakeTx{store: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *fakeStore) Get(_ context.Context, id int64) (*Sale, error) {
	for i := range s.sales {
		if s.sales[i].ID == id {
			sale := s.sales[i]
			sale.Lines = s.lines[id]
			return &sale, nil
		}
	}
	return nil, ErrSaleNotFound
}

func (s *fakeStore) GetByNumber(_ context.Context, number string) (*Sale, error) {
	for i := range s.sales {
		if s.sales[i].SaleNumber == number {
			sale := s.sales[i]
			sale.Lines = s.lines[sale.ID]
			return &sale, nil
		}
	}
	return nil, ErrSaleNotFound
}

func (s *fakeStore) GetByReceiptToken(_ context.Context, token string) (*Sale, error) {
	for i := range s.sales {
		if s.sales[i].ReceiptToken == token {
			sale := s.sales[i]
			sale.Lines = s.lines[sale.ID]
			return &sale, nil
		}
	}
	return nil, ErrSaleNotFound
}

func (s *fakeStore) List(_ context.Context, _ ListFilters) ([]Sale, int, error) {
	out := make([]Sale, len(s.sales))
	copy(out, s.sales)
	return out, len(out), nil
}

type fakeTx struct {
	store *fakeStore
}

func (t *fakeTx) ProductPricing(_ context.Context, productID int64) (ProductPricing, error) {
	p, ok := t.store.products[productID]
	if !ok {
		return ProductPricing{}, catalog.ErrProductNotFound
	}
	return ProductPricing{ID: productID, Name: p.name, TaxInclusive: p.taxInclusive}, nil
}

func (t *fakeTx) ReserveStock(_ context.Context, productID int64, qty int) error {
	p, ok := t.store.products[productID]
	if !ok {
		return catalog.ErrProductNotFound
	}
	if p.stock < qty {
		return &catalog.InsufficientStockError{
			ProductID:   productID,
			ProductName: p.name,
			Requested:   qty,
			Available:   p.stock,
		}
	}
	p.stock -= qty
	return nil
}

func (t *fakeTx) NextSequence(_ context.Context, day time.Time) (int, error) {
	key := day.Format("2006-01-02")
	t.store.counters[key]++
	return t.store.counters[key], nil
}

func (t *fakeTx) InsertSale(_ context.Context, sale Sale) (int64, error) {
	t.store.nextSaleID++
	sale.ID = t.store.nextSaleID
	sale.Lines = nil
	t.store.sales = append(t.store.sales, sale)
	return sale.ID, nil
}

func (t *fakeTx) InsertLines(_ context.Context, saleID int64, lines []SaleLine) error {
	stored := make([]SaleLine, len(lines))
	copy(stored, lines)
	for i := range stored {
		stored[i].SaleID = saleID
	}
	t.store.lines[saleID] = stored
	return nil
}

func (t *fakeTx) CompleteExternalOrder(_ context.Context, orderID, saleID int64) error {
	order, ok := t.store.orders[orderID]
	if !ok {
		return orders.ErrOrderNotFound
	}
	if order.status != orders.StatusPending && order.status != orders.StatusConfirmed {
		return orders.ErrInvalidTransition
	}
	order.status = orders.StatusCompleted
	order.saleID = &saleID
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var testDay = time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

func newTestService(store *fakeStore, taxRate float64) *Service {
	svc := NewService(store, nil, nil, taxRate)
	svc.now = fixedClock(testDay)
	return svc
}

func TestCompleteSaleTaxExclusiveTotals(t *testing.T) {
	store := newFakeStore()
	store.products[1] = &fakeProduct{name: "Radio", taxInclusive: false, stock: 10}
	svc := newTestService(store, 0.18)

	sale, err := svc.CompleteSale(context.Background(), CompleteSaleInput{
		Lines:         []CartLine{{ProductID: 1, Quantity: 2, UnitPrice: 1000}},
		PaymentMethod: PaymentMethodCash,
		CashierID:     7,
	})
	require.NoError(t, err)
	require.NotEmpty(t, sale.ReceiptToken)
	require.InDelta(t, 2000.0, sale.Subtotal, 0.0001)
	require.InDelta(t, 360.0, sale.TaxAmount, 0.0001)
	require.InDelta(t, 2360.0, sale.TotalAmount, 0.0001)
	require.Equal(t, 8, store.products[1].stock)

	var lineSum float64
	for _, line := range sale.Lines {
		require.InDelta(t, float64(line.Quantity)*line.UnitPrice, line.TotalPrice, 0.0001)
		lineSum += line.TotalPrice
	}
	require.InDelta(t, sale.Subtotal, lineSum, 0.0001)
}

func TestCompleteSaleTaxInclusiveAddsNoTax(t *testing.T) {
	store := newFakeStore()
	store.products[1] = &fakeProduct{name: "Bread", taxInclusive: true, stock: 10}
	svc := newTestService(store, 0.18)

	sale, err := svc.CompleteSale(context.Background(), CompleteSaleInput{
		Lines:         []CartLine{{ProductID: 1, Quantity: 3, UnitPrice: 500}},
		PaymentMethod: PaymentMethodCash,
		CashierID:     7,
	})
	require.NoError(t, err)
	require.Zero(t, sale.TaxAmount)
	require.InDelta(t, 1500.0, sale.TotalAmount, 0.0001)
}

func TestCompleteSaleUsesCapturedPriceNotCatalog(t *testing.T) {
	store := newFakeStore()
	store.products[1] = &fakeProduct{name: "Soap", taxInclusive: true, stock: 10}
	svc := newTestService(store, 0.18)

	// The cart captured 450 even if the shelf price changed since.
	sale, err := svc.CompleteSale(context.Background(), CompleteSaleInput{
		Lines:         []CartLine{{ProductID: 1, Quantity: 1, UnitPrice: 450}},
		PaymentMethod: PaymentMethodCard,
		CashierID:     1,
	})
	require.NoError(t, err)
	require.InDelta(t, 450.0, sale.Subtotal, 0.0001)
}

func TestCompleteSaleOversizedDiscountGoesNegative(t *testing.T) {
	store := newFakeStore()
	store.products[1] = &fakeProduct{name: "Pen", taxInclusive: true, stock: 10}
	svc := newTestService(store, 0.18)

	sale, err := svc.CompleteSale(context.Background(), CompleteSaleInput{
		Lines:          []CartLine{{ProductID: 1, Quantity: 1, UnitPrice: 100}},
		DiscountAmount: 150,
		PaymentMethod:  PaymentMethodCash,
		CashierID:      1,
	})
	require.NoError(t, err)
	require.InDelta(t, -50.0, sale.TotalAmount, 0.0001)
}

func TestCompleteSaleValidation(t *testing.T) {
	svc := newTestService(newFakeStore(), 0.18)
	ctx := context.Background()

	_, err := svc.CompleteSale(ctx, CompleteSaleInput{PaymentMethod: PaymentMethodCash, CashierID: 1})
	require.ErrorIs(t, err, ErrEmptyCart)

	_, err = svc.CompleteSale(ctx, CompleteSaleInput{
		Lines:         []CartLine{{ProductID: 1, Quantity: 0, UnitPrice: 10}},
		PaymentMethod: PaymentMethodCash,
		CashierID:     1,
	})
	require.ErrorIs(t, err, ErrInvalidCartLine)

	_, err = svc.CompleteSale(ctx, CompleteSaleInput{
		Lines:          []CartLine{{ProductID: 1, Quantity: 1, UnitPrice: 10}},
		DiscountAmount: -5,
		PaymentMethod:  PaymentMethodCash,
		CashierID:      1,
	})
	require.ErrorIs(t, err, ErrInvalidDiscount)

	_, err = svc.CompleteSale(ctx, CompleteSaleInput{
		Lines:         []CartLine{{ProductID: 1, Quantity: 1, UnitPrice: 10}},
		PaymentMethod: PaymentMethod("cheque"),
		CashierID:     1,
	})
	require.ErrorIs(t, err, ErrInvalidPaymentMethod)
}

func TestCompleteSaleProductNotFound(t *testing.T) {
	svc := newTestService(newFakeStore(), 0.18)

	_, err := svc.CompleteSale(context.Background(), CompleteSaleInput{
		Lines:         []CartLine{{ProductID: 99, Quantity: 1, UnitPrice: 10}},
		PaymentMethod: PaymentMethodCash,
		CashierID:     1,
	})
	require.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestCompleteSaleInsufficientStockLeavesNothingBehind(t *testing.T) {
	store := newFakeStore()
	store.products[1] = &fakeProduct{name: "Shirt", taxInclusive: true, stock: 3}
	svc := newTestService(store, 0.18)

	_, err := svc.CompleteSale(context.Background(), CompleteSaleInput{
		Lines:         []CartLine{{ProductID: 1, Quantity: 5, UnitPrice: 1000}},
		PaymentMethod: PaymentMethodCash,
		CashierID:     1,
	})

	var stockErr *catalog.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, 5, stockErr.Requested)
	require.Equal(t, 3, stockErr.Available)
	require.Equal(t, 3, store.products[1].stock)
	require.Empty(t, store.sales)
}

func TestCompleteSaleRollsBackAllLinesOnPartialFailure(t *testing.T) {
	store := newFakeStore()
	store.products[1] = &fakeProduct{name: "Soap", taxInclusive: true, stock: 10}
	store.products[2] = &fakeProduct{name: "Shirt", taxInclusive: true, stock: 1}
	svc := newTestService(store, 0.18)

	_, err := svc.CompleteSale(context.Background(), CompleteSaleInput{
		Lines: []CartLine{
			{ProductID: 1, Quantity: 4, UnitPrice: 500},
			{ProductID: 2, Quantity: 2, UnitPrice: 1000},
		},
		PaymentMethod: PaymentMethodCash,
		CashierID:     1,
	})

	var stockErr *catalog.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, int64(2), stockErr.ProductID)
	// The first line's reservation must have been released too.
	require.Equal(t, 10, store.products[1].stock)
	require.Equal(t, 1, store.products[2].stock)
	require.Empty(t, store.sales)
}

func TestConcurrentSalesOverSameProduct(t *testing.T) {
	store := newFakeStore()
	store.products[1] = &fakeProduct{name: "Phone", taxInclusive: true, stock: 5}
	svc := newTestService(store, 0.18)

	var g errgroup.Group
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		i := i
		g.Go(func() error {
			_, err := svc.CompleteSale(context.Background(), CompleteSaleInput{
				Lines:         []CartLine{{ProductID: 1, Quantity: 3, UnitPrice: 100}},
				PaymentMethod: PaymentMethodCash,
				CashierID:     int64(i + 1),
			})
			results[i] = err
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var failures int
	for _, err := range results {
		if err != nil {
			var stockErr *catalog.InsufficientStockError
			require.ErrorAs(t, err, &stockErr)
			failures++
		}
	}
	require.Equal(t, 1, failures, "exactly one commit must fail")
	require.Equal(t, 2, store.products[1].stock)
	require.Len(t, store.sales, 1)
}

func TestSaleNumberSequenceWithinDay(t *testing.T) {
	store := newFakeStore()
	store.products[1] = &fakeProduct{name: "Tea", taxInclusive: true, stock: 100}
	svc := newTestService(store, 0.18)
	ctx := context.Background()

	input := CompleteSaleInput{
		Lines:         []CartLine{{ProductID: 1, Quantity: 1, UnitPrice: 50}},
		PaymentMethod: PaymentMethodCash,
		CashierID:     1,
	}

	// Two sales already exist for the day; the third gets 0003.
	_, err := svc.CompleteSale(ctx, input)
	require.NoError(t, err)
	_, err = svc.CompleteSale(ctx, input)
	require.NoError(t, err)
	third, err := svc.CompleteSale(ctx, input)
	require.NoError(t, err)
	require.Equal(t, "POS202608280003", third.SaleNumber)
}

func TestSaleNumberResetsOnNewDay(t *testing.T) {
	store := newFakeStore()
	store.products[1] = &fakeProduct{name: "Tea", taxInclusive: true, stock: 100}
	svc := newTestService(store, 0.18)
	ctx := context.Background()

	input := CompleteSaleInput{
		Lines:         []CartLine{{ProductID: 1, Quantity: 1, UnitPrice: 50}},
		PaymentMethod: PaymentMethodCash,
		CashierID:     1,
	}

	first, err := svc.CompleteSale(ctx, input)
	require.NoError(t, err)
	require.Equal(t, "POS202608280001", first.SaleNumber)

	svc.now = fixedClock(testDay.AddDate(0, 0, 1))
	next, err := svc.CompleteSale(ctx, input)
	require.NoError(t, err)
	require.Equal(t, "POS202608290001", next.SaleNumber)
}

func TestSaleNumbersUniqueUnderConcurrency(t *testing.T) {
	store := newFakeStore()
	const n = 10
	for i := int64(1); i <= n; i++ {
		store.products[i] = &fakeProduct{name: fmt.Sprintf("P%d", i), taxInclusive: true, stock: 100}
	}
	svc := newTestService(store, 0.18)

	numbers := make([]string, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			sale, err := svc.CompleteSale(context.Background(), CompleteSaleInput{
				Lines:         []CartLine{{ProductID: int64(i + 1), Quantity: 1, UnitPrice: 10}},
				PaymentMethod: PaymentMethodCash,
				CashierID:     1,
			})
			if err != nil {
				return err
			}
			numbers[i] = sale.SaleNumber
			return nil
		})
	}
	require.NoError(t, g.Wait())

	seen := make(map[string]bool, n)
	for _, number := range numbers {
		require.False(t, seen[number], "duplicate sale number %s", number)
		seen[number] = true
	}
}

func TestCompleteSaleMarksExternalOrderCompleted(t *testing.T) {
	store := newFakeStore()
	store.products[1] = &fakeProduct{name: "Shirt", taxInclusive: true, stock: 10}
	store.orders[5] = &fakeOrder{status: orders.StatusPending}
	svc := newTestService(store, 0.18)

	orderID := int64(5)
	sale, err := svc.CompleteSale(context.Background(), CompleteSaleInput{
		Lines:           []CartLine{{ProductID: 1, Quantity: 2, UnitPrice: 800}},
		PaymentMethod:   PaymentMethodMobile,
		CashierID:       1,
		ExternalOrderID: &orderID,
	})
	require.NoError(t, err)
	require.True(t, sale.ExternalOrigin)
	require.Equal(t, orders.StatusCompleted, store.orders[5].status)
	require.NotNil(t, store.orders[5].saleID)
	require.Equal(t, sale.ID, *store.orders[5].saleID)
}

func TestCompleteSaleRejectsCancelledExternalOrder(t *testing.T) {
	store := newFakeStore()
	store.products[1] = &fakeProduct{name: "Shirt", taxInclusive: true, stock: 10}
	store.orders[5] = &fakeOrder{status: orders.StatusCancelled}
	svc := newTestService(store, 0.18)

	orderID := int64(5)
	_, err := svc.CompleteSale(context.Background(), CompleteSaleInput{
		Lines:           []CartLine{{ProductID: 1, Quantity: 2, UnitPrice: 800}},
		PaymentMethod:   PaymentMethodCash,
		CashierID:       1,
		ExternalOrderID: &orderID,
	})
	require.ErrorIs(t, err, orders.ErrInvalidTransition)
	// The whole unit rolls back, stock included.
	require.Equal(t, 10, store.products[1].stock)
	require.Empty(t, store.sales)
	require.Nil(t, store.orders[5].saleID)
}

func TestCompleteSaleRetriesSerializationFailures(t *testing.T) {
	store := newFakeStore()
	store.products[1] = &fakeProduct{name: "Tea", taxInclusive: true, stock: 10}
	store.conflictsToInject = 2
	svc := newTestService(store, 0.18)

	sale, err := svc.CompleteSale(context.Background(), CompleteSaleInput{
		Lines:         []CartLine{{ProductID: 1, Quantity: 1, UnitPrice: 50}},
		PaymentMethod: PaymentMethodCash,
		CashierID:     1,
	})
	require.NoError(t, err)
	require.NotEmpty(t, sale.SaleNumber)
}

func TestCompleteSaleReportsConflictPastRetryBound(t *testing.T) {
	store := newFakeStore()
	store.products[1] = &fakeProduct{name: "Tea", taxInclusive: true, stock: 10}
	store.conflictsToInject = maxCommitAttempts
	svc := newTestService(store, 0.18)

	_, err := svc.CompleteSale(context.Background(), CompleteSaleInput{
		Lines:         []CartLine{{ProductID: 1, Quantity: 1, UnitPrice: 50}},
		PaymentMethod: PaymentMethodCash,
		CashierID:     1,
	})
	require.ErrorIs(t, err, ErrConcurrencyConflict)
	require.Empty(t, store.sales)
}

func TestFormatSaleNumber(t *testing.T) {
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	require.Equal(t, "POS202601050001", FormatSaleNumber(day, 1))
	require.Equal(t, "POS202601051234", FormatSaleNumber(day, 1234))
	require.Equal(t, "POS2026010510000", FormatSaleNumber(day, 10000))
}
