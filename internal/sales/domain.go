package sales

import (
	"errors"
	"time"
)

// PaymentMethod enumerates accepted tender types.
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodMobile PaymentMethod = "mobile"
)

// Valid reports whether the payment method is one of the accepted values.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodMobile:
		return true
	}
	return false
}

// CartLine is a not-yet-committed request to sell a quantity of a product
// at the price captured when the line was added. The engine prices with
// the captured price, not a live lookup; only tax inclusivity is re-read
// from the product.
type CartLine struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Quantity  int     `json:"quantity" validate:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
}

// Sale is an immutable, numbered record of a completed transaction.
// ReceiptToken is an opaque identifier safe to print on receipts and
// share in links, unlike the guessable sale number.
type Sale struct {
	ID             int64         `json:"id"`
	SaleNumber     string        `json:"sale_number"`
	ReceiptToken   string        `json:"receipt_token"`
	SaleDate       time.Time     `json:"sale_date"`
	CustomerName   string        `json:"customer_name,omitempty"`
	CustomerPhone  string        `json:"customer_phone,omitempty"`
	Subtotal       float64       `json:"subtotal"`
	DiscountAmount float64       `json:"discount_amount"`
	TaxAmount      float64       `json:"tax_amount"`
	TotalAmount    float64       `json:"total_amount"`
	PaymentMethod  PaymentMethod `json:"payment_method"`
	Notes          string        `json:"notes,omitempty"`
	CashierID      int64         `json:"cashier_id"`
	ExternalOrigin bool          `json:"external_origin"`
	CreatedAt      time.Time     `json:"created_at"`
	Lines          []SaleLine    `json:"lines,omitempty"`
}

// SaleLine is owned exclusively by its Sale.
type SaleLine struct {
	ID         int64   `json:"id"`
	SaleID     int64   `json:"sale_id"`
	ProductID  int64   `json:"product_id"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	TotalPrice float64 `json:"total_price"`
}

// ListFilters narrows sale history listings.
type ListFilters struct {
	CashierID *int64
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	Limit     int
}

var (
	// ErrEmptyCart indicates a sale attempt with zero cart lines.
	ErrEmptyCart = errors.New("sales: cart is empty")
	// ErrInvalidCartLine indicates a malformed quantity or price.
	ErrInvalidCartLine = errors.New("sales: invalid cart line")
	// ErrInvalidDiscount indicates a negative discount amount.
	ErrInvalidDiscount = errors.New("sales: discount must be non-negative")
	// ErrInvalidPaymentMethod indicates an unknown tender type.
	ErrInvalidPaymentMethod = errors.New("sales: invalid payment method")
	// ErrSaleNotFound indicates an unknown sale.
	ErrSaleNotFound = errors.New("sales: sale not found")
	// ErrConcurrencyConflict is reported when stock or sequence contention
	// persists past the retry bound.
	ErrConcurrencyConflict = errors.New("sales: concurrent transaction conflict")
)
