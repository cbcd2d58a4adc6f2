package sales

import (
	"github.com/dukapos/dukapos/internal/shared"
)

// CompleteSaleRequest is the cart payload posted by the POS front end.
type CompleteSaleRequest struct {
	Lines           []CartLine `json:"lines" validate:"required,min=1,dive"`
	DiscountAmount  float64    `json:"discount_amount" validate:"gte=0"`
	PaymentMethod   string     `json:"payment_method" validate:"required,oneof=cash card mobile"`
	CustomerName    string     `json:"customer_name"`
	CustomerPhone   string     `json:"customer_phone"`
	Notes           string     `json:"notes"`
	CashierID       int64      `json:"cashier_id" validate:"required,gt=0"`
	ExternalOrderID *int64     `json:"external_order_id,omitempty"`
}

// SaleListResponse wraps a page of sale headers.
type SaleListResponse struct {
	Sales      []Sale            `json:"sales"`
	Pagination shared.Pagination `json:"pagination"`
}
