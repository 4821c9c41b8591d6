package catalog

import (
	"context"
	"errors"
)

// ErrInvalidProduct indicates a product failing basic field validation.
var ErrInvalidProduct = errors.New("catalog: invalid product")

// Service coordinates product catalog operations. Stock mutation and product
// deletion (with its sale cascade) belong to the ledger, not here.
type Service struct {
	repo Repository
}

// NewService builds Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns products matching the filters plus the unfiltered-page total.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	return s.repo.List(ctx, filters)
}

// Get returns a single product.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, ErrProductNotFound
	}
	return s.repo.Get(ctx, id)
}

// Create persists a new product. Initial stock is the only stock write the
// catalog ever performs.
func (s *Service) Create(ctx context.Context, product Product) (Product, error) {
	if err := validate(product); err != nil {
		return Product{}, err
	}
	return s.repo.Create(ctx, product)
}

// Update edits product fields. Stock is excluded: only the ledger moves it.
func (s *Service) Update(ctx context.Context, id int64, product Product) (Product, error) {
	if id <= 0 {
		return Product{}, ErrProductNotFound
	}
	if err := validate(product); err != nil {
		return Product{}, err
	}
	if err := s.repo.Update(ctx, id, product); err != nil {
		return Product{}, err
	}
	return s.repo.Get(ctx, id)
}

func validate(product Product) error {
	if product.Name == "" {
		return ErrInvalidProduct
	}
	if product.Price < 0 || product.Cost < 0 || product.Stock < 0 {
		return ErrInvalidProduct
	}
	return nil
}
