package catalog

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shoplite/shoplite/internal/shared"
)

type memoryRepo struct {
	products map[int64]Product
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: make(map[int64]Product)}
}

func (r *memoryRepo) List(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	matched := []Product{}
	for _, p := range r.products {
		if filters.Search != "" {
			needle := strings.ToLower(filters.Search)
			if !strings.Contains(strings.ToLower(p.Name), needle) &&
				!strings.Contains(strings.ToLower(p.SKU), needle) &&
				!strings.Contains(strings.ToLower(p.Colors), needle) {
				continue
			}
		}
		matched = append(matched, p)
	}
	total := len(matched)
	if !filters.ShowAll {
		page := shared.NewPagination(filters.Page, filters.PerPage, total)
		start := page.Offset()
		if start > total {
			start = total
		}
		end := start + page.PerPage
		if end > total {
			end = total
		}
		matched = matched[start:end]
	}
	return matched, total, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Product, error) {
	p, ok := r.products[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

func (r *memoryRepo) Create(ctx context.Context, product Product) (Product, error) {
	for _, existing := range r.products {
		if product.SKU != "" && existing.SKU == product.SKU {
			return Product{}, ErrDuplicateSKU
		}
	}
	r.nextID++
	product.ID = r.nextID
	product.CreatedAt = time.Now()
	r.products[product.ID] = product
	return product, nil
}

func (r *memoryRepo) Update(ctx context.Context, id int64, product Product) error {
	existing, ok := r.products[id]
	if !ok {
		return ErrProductNotFound
	}
	existing.Name = product.Name
	existing.SKU = product.SKU
	existing.Price = product.Price
	existing.Cost = product.Cost
	existing.Colors = product.Colors
	existing.Image = product.Image
	r.products[id] = existing
	return nil
}

func TestCreateAndGet(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	created, err := svc.Create(ctx, Product{Name: "Wool Beanie", SKU: "WB-01", Price: 199.5, Cost: 120, Stock: 10})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Wool Beanie", got.Name)
	require.Equal(t, int64(10), got.Stock)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, Product{Name: "", Price: 10})
	require.ErrorIs(t, err, ErrInvalidProduct)

	_, err = svc.Create(ctx, Product{Name: "X", Price: -1})
	require.ErrorIs(t, err, ErrInvalidProduct)

	_, err = svc.Create(ctx, Product{Name: "X", Stock: -1})
	require.ErrorIs(t, err, ErrInvalidProduct)
}

func TestDuplicateSKURejected(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, Product{Name: "A", SKU: "DUP"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, Product{Name: "B", SKU: "DUP"})
	require.ErrorIs(t, err, ErrDuplicateSKU)
}

func TestUpdateNeverTouchesStock(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	created, err := svc.Create(ctx, Product{Name: "Scarf", Price: 90, Stock: 5})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, Product{Name: "Scarf v2", Price: 95, Stock: 99})
	require.NoError(t, err)
	require.Equal(t, "Scarf v2", updated.Name)
	require.Equal(t, int64(5), updated.Stock, "stock belongs to the ledger")
}

func TestListSearchAndPaging(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		name := "Plain Tee"
		if i%2 == 0 {
			name = "Knit Sweater"
		}
		_, err := svc.Create(ctx, Product{Name: name, Colors: "Milk Brown, Buckwheat Gray"})
		require.NoError(t, err)
	}

	_, total, err := svc.List(ctx, ListFilters{Search: "knit"})
	require.NoError(t, err)
	require.Equal(t, 6, total)

	page, total, err := svc.List(ctx, ListFilters{Page: 1})
	require.NoError(t, err)
	require.Equal(t, 12, total)
	require.Len(t, page, shared.DefaultPerPage)

	all, _, err := svc.List(ctx, ListFilters{ShowAll: true})
	require.NoError(t, err)
	require.Len(t, all, 12)

	byColor, _, err := svc.List(ctx, ListFilters{Search: "buckwheat", ShowAll: true})
	require.NoError(t, err)
	require.Len(t, byColor, 12)
}

func TestColorsList(t *testing.T) {
	p := Product{Colors: " Milk Brown , Buckwheat Gray ,, "}
	require.Equal(t, []string{"Milk Brown", "Buckwheat Gray"}, p.ColorsList())
	require.Nil(t, Product{}.ColorsList())
}
