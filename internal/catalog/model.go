package catalog

import (
	"errors"
	"fmt"
	"time"
)

// Product is a sellable item with its quantity on hand.
type Product struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Barcode       *string   `json:"barcode,omitempty"`
	CategoryID    int64     `json:"category_id"`
	CategoryName  string    `json:"category_name,omitempty"`
	BuyingPrice   float64   `json:"buying_price"`
	SellingPrice  float64   `json:"selling_price"`
	TaxInclusive  bool      `json:"tax_inclusive"`
	StockQuantity int       `json:"stock_quantity"`
	ReorderLevel  int       `json:"reorder_level"`
	ImageFilename string    `json:"image_filename,omitempty"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsLowStock reports whether the product sits at or below its reorder level.
func (p Product) IsLowStock() bool {
	return p.StockQuantity <= p.ReorderLevel
}

// ProfitMargin returns the margin percentage over the buying price.
func (p Product) ProfitMargin() float64 {
	if p.BuyingPrice <= 0 {
		return 0
	}
	return (p.SellingPrice - p.BuyingPrice) / p.BuyingPrice * 100
}

// Category groups products.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CategorySummary carries a category together with its active product count.
type CategorySummary struct {
	Category
	ProductCount int `json:"product_count"`
}

// ListFilters narrows product listings.
type ListFilters struct {
	Search     string
	CategoryID *int64
	LowStock   bool
	Page       int
	Limit      int
}

// ErrProductNotFound indicates an unknown or inactive product.
var ErrProductNotFound = errors.New("catalog: product not found")

// ErrBarcodeTaken indicates a duplicate barcode.
var ErrBarcodeTaken = errors.New("catalog: barcode already in use")

// InsufficientStockError is returned when a reservation requests more
// units than are on hand. It carries enough detail for a user-facing
// message.
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("catalog: insufficient stock for %s: requested %d, available %d", e.ProductName, e.Requested, e.Available)
}
