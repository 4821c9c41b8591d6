package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// memoryRepo emulates the PostgreSQL repository. The mutex stands in for the
// product row lock: each WithTx holds it for the whole callback, and a failed
// callback restores the pre-transaction snapshot.
type memoryRepo struct {
	mu       sync.Mutex
	products map[int64]int64
	sales    map[int64]Sale
	nextID   int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		products: make(map[int64]int64),
		sales:    make(map[int64]Sale),
	}
}

func (r *memoryRepo) addProduct(id, stock int64) {
	r.products[id] = stock
}

func (r *memoryRepo) stock(id int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.products[id]
}

func (r *memoryRepo) snapshot() (map[int64]int64, map[int64]Sale) {
	products := make(map[int64]int64, len(r.products))
	for k, v := range r.products {
		products[k] = v
	}
	sales := make(map[int64]Sale, len(r.sales))
	for k, v := range r.sales {
		sales[k] = v
	}
	return products, sales
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	products, sales := r.snapshot()
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.products = products
		r.sales = sales
		return err
	}
	return nil
}

func (r *memoryRepo) DeleteProductDirect(ctx context.Context, productID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[productID]; !ok {
		return ErrProductNotFound
	}
	for _, sale := range r.sales {
		if sale.ProductID == productID {
			return ErrProductReferenced
		}
	}
	delete(r.products, productID)
	return nil
}

func (r *memoryRepo) GetSaleByID(ctx context.Context, saleID int64) (Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sale, ok := r.sales[saleID]
	if !ok {
		return Sale{}, ErrSaleNotFound
	}
	return sale, nil
}

func (tx *memoryTx) GetProductForUpdate(ctx context.Context, productID int64) (StockRow, error) {
	stock, ok := tx.repo.products[productID]
	if !ok {
		return StockRow{}, ErrProductNotFound
	}
	return StockRow{ProductID: productID, Stock: stock}, nil
}

func (tx *memoryTx) AdjustStock(ctx context.Context, productID, delta int64) error {
	stock, ok := tx.repo.products[productID]
	if !ok {
		return ErrProductNotFound
	}
	tx.repo.products[productID] = stock + delta
	return nil
}

func (tx *memoryTx) InsertSale(ctx context.Context, sale Sale) (int64, error) {
	tx.repo.nextID++
	sale.ID = tx.repo.nextID
	sale.CreatedAt = time.Now()
	tx.repo.sales[sale.ID] = sale
	return sale.ID, nil
}

func (tx *memoryTx) GetSale(ctx context.Context, saleID int64) (Sale, error) {
	sale, ok := tx.repo.sales[saleID]
	if !ok {
		return Sale{}, ErrSaleNotFound
	}
	return sale, nil
}

func (tx *memoryTx) UpdateSaleDetails(ctx context.Context, saleID int64, details SaleDetailsInput) error {
	sale, ok := tx.repo.sales[saleID]
	if !ok {
		return ErrSaleNotFound
	}
	sale.PriceAtSale = details.PriceAtSale
	sale.ActualReceived = details.ActualReceived
	sale.DiscountPercent = details.DiscountPercent
	sale.Note = details.Note
	sale.SoldAt = details.SoldAt
	tx.repo.sales[saleID] = sale
	return nil
}

func (tx *memoryTx) MarkSaleDeleted(ctx context.Context, saleID int64, at time.Time) error {
	sale, ok := tx.repo.sales[saleID]
	if !ok {
		return ErrSaleNotFound
	}
	sale.Status = SaleStatusSoftDeleted
	sale.DeletedAt = &at
	tx.repo.sales[saleID] = sale
	return nil
}

func (tx *memoryTx) MarkSaleRestored(ctx context.Context, saleID int64) error {
	sale, ok := tx.repo.sales[saleID]
	if !ok {
		return ErrSaleNotFound
	}
	sale.Status = SaleStatusActive
	sale.DeletedAt = nil
	tx.repo.sales[saleID] = sale
	return nil
}

func (tx *memoryTx) DeleteSale(ctx context.Context, saleID int64) error {
	if _, ok := tx.repo.sales[saleID]; !ok {
		return ErrSaleNotFound
	}
	delete(tx.repo.sales, saleID)
	return nil
}

func (tx *memoryTx) DeleteSalesForProduct(ctx context.Context, productID int64) (int64, error) {
	var deleted int64
	for id, sale := range tx.repo.sales {
		if sale.ProductID == productID {
			delete(tx.repo.sales, id)
			deleted++
		}
	}
	return deleted, nil
}

func (tx *memoryTx) DeleteProduct(ctx context.Context, productID int64) error {
	if _, ok := tx.repo.products[productID]; !ok {
		return ErrProductNotFound
	}
	delete(tx.repo.products, productID)
	return nil
}

type countingBumper struct {
	mu    sync.Mutex
	count int
}

func (b *countingBumper) Bump(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count++
	return nil
}

func TestRecordSaleAppliesDefaultsAndDecrementsStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct(1, 10)
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	sale, err := svc.RecordSale(ctx, SaleInput{ProductID: 1, Quantity: 3, PriceAtSale: 100})
	require.NoError(t, err)
	require.Equal(t, int64(7), repo.stock(1))
	require.Equal(t, SaleStatusActive, sale.Status)
	require.Equal(t, 100.0, sale.ActualReceived, "actual_received defaults to price_at_sale")
	require.False(t, sale.SoldAt.IsZero(), "sold_at defaults to now")
	require.Zero(t, sale.DiscountPercent)
	require.Nil(t, sale.DeletedAt)
}

func TestRecordSaleInsufficientStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct(1, 7)
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.RecordSale(ctx, SaleInput{ProductID: 1, Quantity: 8, PriceAtSale: 100})
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, int64(7), stockErr.CurrentStock)
	require.Equal(t, int64(8), stockErr.Requested)
	require.Equal(t, int64(7), repo.stock(1), "failed check performs no writes")
	require.Empty(t, repo.sales)
}

func TestRecordSaleValidation(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct(1, 10)
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.RecordSale(ctx, SaleInput{ProductID: 1, Quantity: 0, PriceAtSale: 100})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.RecordSale(ctx, SaleInput{ProductID: 99, Quantity: 1, PriceAtSale: 100})
	require.ErrorIs(t, err, ErrProductNotFound)

	_, err = svc.RecordSale(ctx, SaleInput{ProductID: 1, Quantity: 1, PriceAtSale: 100, RequestID: "not-a-uuid"})
	require.Error(t, err)
	require.Equal(t, int64(10), repo.stock(1))
}

func TestSoftDeleteRestoreRoundTrip(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct(1, 10)
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	sale, err := svc.RecordSale(ctx, SaleInput{ProductID: 1, Quantity: 3, PriceAtSale: 100, ActualReceived: 90})
	require.NoError(t, err)
	require.Equal(t, int64(7), repo.stock(1))

	deleted, err := svc.SoftDeleteSale(ctx, sale.ID)
	require.NoError(t, err)
	require.Equal(t, int64(10), repo.stock(1), "soft delete restores stock")
	require.Equal(t, SaleStatusSoftDeleted, deleted.Status)
	require.NotNil(t, deleted.DeletedAt)

	restored, err := svc.RestoreSale(ctx, sale.ID)
	require.NoError(t, err)
	require.Equal(t, int64(7), repo.stock(1), "restore re-deducts stock")
	require.Equal(t, SaleStatusActive, restored.Status)
	require.Nil(t, restored.DeletedAt)
}

func TestSoftDeleteTwiceFails(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct(1, 10)
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	sale, err := svc.RecordSale(ctx, SaleInput{ProductID: 1, Quantity: 2, PriceAtSale: 50})
	require.NoError(t, err)

	_, err = svc.SoftDeleteSale(ctx, sale.ID)
	require.NoError(t, err)

	_, err = svc.SoftDeleteSale(ctx, sale.ID)
	require.ErrorIs(t, err, ErrInvalidState)
	require.Equal(t, int64(10), repo.stock(1), "stock incremented exactly once")
}

func TestRestoreFailsWhenStockConsumed(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct(1, 10)
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	first, err := svc.RecordSale(ctx, SaleInput{ProductID: 1, Quantity: 3, PriceAtSale: 100})
	require.NoError(t, err)
	_, err = svc.SoftDeleteSale(ctx, first.ID)
	require.NoError(t, err)

	// Newer sale consumes most of the returned stock.
	_, err = svc.RecordSale(ctx, SaleInput{ProductID: 1, Quantity: 9, PriceAtSale: 100})
	require.NoError(t, err)
	require.Equal(t, int64(1), repo.stock(1))

	_, err = svc.RestoreSale(ctx, first.ID)
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, int64(1), stockErr.CurrentStock)
	require.Equal(t, int64(1), repo.stock(1), "stock unchanged on failed restore")

	sale, err := svc.GetSale(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, SaleStatusSoftDeleted, sale.Status, "sale stays soft-deleted")
}

func TestRestoreFailsWhenProductGone(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	// Orphaned soft-deleted sale whose product no longer exists.
	now := time.Now()
	repo.sales[42] = Sale{ID: 42, ProductID: 7, Quantity: 1, Status: SaleStatusSoftDeleted, DeletedAt: &now}

	_, err := svc.RestoreSale(ctx, 42)
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestRestoreActiveSaleFails(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct(1, 10)
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	sale, err := svc.RecordSale(ctx, SaleInput{ProductID: 1, Quantity: 1, PriceAtSale: 10})
	require.NoError(t, err)

	_, err = svc.RestoreSale(ctx, sale.ID)
	require.ErrorIs(t, err, ErrInvalidState)
	require.Equal(t, int64(9), repo.stock(1))
}

func TestPurgeRequiresSoftDelete(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct(1, 10)
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	sale, err := svc.RecordSale(ctx, SaleInput{ProductID: 1, Quantity: 4, PriceAtSale: 100})
	require.NoError(t, err)

	err = svc.PurgeSale(ctx, sale.ID)
	require.ErrorIs(t, err, ErrInvalidState)
	_, err = svc.GetSale(ctx, sale.ID)
	require.NoError(t, err, "active sale untouched")

	_, err = svc.SoftDeleteSale(ctx, sale.ID)
	require.NoError(t, err)
	require.Equal(t, int64(10), repo.stock(1))

	err = svc.PurgeSale(ctx, sale.ID)
	require.NoError(t, err)
	require.Equal(t, int64(10), repo.stock(1), "purge has no stock effect")

	_, err = svc.GetSale(ctx, sale.ID)
	require.ErrorIs(t, err, ErrSaleNotFound)
}

func TestUpdateSaleDetails(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct(1, 10)
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	sale, err := svc.RecordSale(ctx, SaleInput{ProductID: 1, Quantity: 2, PriceAtSale: 100})
	require.NoError(t, err)

	updated, err := svc.UpdateSaleDetails(ctx, sale.ID, SaleDetailsInput{PriceAtSale: 120, ActualReceived: 110, DiscountPercent: 5, Note: "negotiated"})
	require.NoError(t, err)
	require.Equal(t, 120.0, updated.PriceAtSale)
	require.Equal(t, 110.0, updated.ActualReceived)
	require.Equal(t, sale.SoldAt, updated.SoldAt, "sold_at kept when omitted")
	require.Equal(t, int64(8), repo.stock(1), "detail edits never touch stock")

	_, err = svc.SoftDeleteSale(ctx, sale.ID)
	require.NoError(t, err)
	_, err = svc.UpdateSaleDetails(ctx, sale.ID, SaleDetailsInput{PriceAtSale: 10})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestDeleteProductCascades(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct(1, 10)
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	active, err := svc.RecordSale(ctx, SaleInput{ProductID: 1, Quantity: 2, PriceAtSale: 100})
	require.NoError(t, err)
	removed, err := svc.RecordSale(ctx, SaleInput{ProductID: 1, Quantity: 1, PriceAtSale: 100})
	require.NoError(t, err)
	_, err = svc.SoftDeleteSale(ctx, removed.ID)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(ctx, 1))
	require.Empty(t, repo.sales, "cascade removes active and soft-deleted sales")
	require.Empty(t, repo.products)

	_, err = svc.GetSale(ctx, active.ID)
	require.ErrorIs(t, err, ErrSaleNotFound)
}

func TestDeleteProductWithoutSales(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct(1, 3)
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.DeleteProduct(ctx, 1))
	require.ErrorIs(t, svc.DeleteProduct(ctx, 1), ErrProductNotFound)
}

func TestConcurrentRecordSalesNeverOversell(t *testing.T) {
	const stock = 5
	const workers = 20

	repo := newMemoryRepo()
	repo.addProduct(1, stock)
	svc := NewService(repo, nil, nil, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	insufficient := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordSale(ctx, SaleInput{ProductID: 1, Quantity: 1, PriceAtSale: 10})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			var stockErr *InsufficientStockError
			if errors.As(err, &stockErr) {
				insufficient++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, stock, succeeded, "exactly min(N, S) sales succeed")
	require.Equal(t, workers-stock, insufficient)
	require.Equal(t, int64(0), repo.stock(1))
	require.Len(t, repo.sales, stock)
}

func TestMutationsBumpReportCache(t *testing.T) {
	repo := newMemoryRepo()
	repo.addProduct(1, 10)
	bumper := &countingBumper{}
	svc := NewService(repo, nil, nil, bumper)
	ctx := context.Background()

	sale, err := svc.RecordSale(ctx, SaleInput{ProductID: 1, Quantity: 1, PriceAtSale: 10})
	require.NoError(t, err)
	_, err = svc.SoftDeleteSale(ctx, sale.ID)
	require.NoError(t, err)
	_, err = svc.RestoreSale(ctx, sale.ID)
	require.NoError(t, err)
	require.Equal(t, 3, bumper.count)
}
