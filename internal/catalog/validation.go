package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidProduct indicates a product form that fails validation.
var ErrInvalidProduct = errors.New("catalog: invalid product")

func (s *Service) validate(p Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if p.CategoryID == 0 {
		return fmt.Errorf("%w: category is required", ErrInvalidProduct)
	}
	if p.SellingPrice < 0 || p.BuyingPrice < 0 {
		return fmt.Errorf("%w: prices must be non-negative", ErrInvalidProduct)
	}
	if p.StockQuantity < 0 {
		return fmt.Errorf("%w: stock quantity must be non-negative", ErrInvalidProduct)
	}
	if p.ReorderLevel < 0 {
		return fmt.Errorf("%w: reorder level must be non-negative", ErrInvalidProduct)
	}
	return nil
}
