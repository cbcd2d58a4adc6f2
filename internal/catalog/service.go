package catalog

import (
	"context"
	"errors"
	"strings"
)

// Service coordinates catalog reads and product master-data writes.
type Service struct {
	repo Repository
}

// NewService builds Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	if filters.Limit <= 0 {
		filters.Limit = 20
	}
	if filters.Page <= 0 {
		filters.Page = 1
	}
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	return s.repo.Get(ctx, id)
}

// Lookup resolves a product by exact barcode first, falling back to a
// name search when no barcode matches.
func (s *Service) Lookup(ctx context.Context, term string) ([]Product, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}
	if p, err := s.repo.GetByBarcode(ctx, term); err == nil {
		return []Product{p}, nil
	} else if !errors.Is(err, ErrProductNotFound) {
		return nil, err
	}
	return s.repo.SearchByNameOrBarcode(ctx, term, 20)
}

func (s *Service) Create(ctx context.Context, product Product) (Product, error) {
	if err := s.validate(product); err != nil {
		return Product{}, err
	}
	product.IsActive = true
	return s.repo.Create(ctx, product)
}

func (s *Service) Update(ctx context.Context, id int64, product Product) (Product, error) {
	if err := s.validate(product); err != nil {
		return Product{}, err
	}
	if err := s.repo.Update(ctx, id, product); err != nil {
		return Product{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return s.repo.Deactivate(ctx, id)
}

func (s *Service) ListLowStock(ctx context.Context, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListLowStock(ctx, limit)
}

func (s *Service) ListCategories(ctx context.Context) ([]CategorySummary, error) {
	return s.repo.ListCategories(ctx)
}
