package catalog

// ProductForm is the payload for creating or updating a product.
type ProductForm struct {
	Name          string  `json:"name" validate:"required"`
	Description   string  `json:"description"`
	Barcode       *string `json:"barcode,omitempty"`
	CategoryID    int64   `json:"category_id" validate:"required,gt=0"`
	BuyingPrice   float64 `json:"buying_price" validate:"gte=0"`
	SellingPrice  float64 `json:"selling_price" validate:"gte=0"`
	TaxInclusive  bool    `json:"tax_inclusive"`
	StockQuantity int     `json:"stock_quantity" validate:"gte=0"`
	ReorderLevel  int     `json:"reorder_level" validate:"gte=0"`
	IsActive      bool    `json:"is_active"`
}

func (f ProductForm) toProduct() Product {
	return Product{
		Name:          f.Name,
		Description:   f.Description,
		Barcode:       f.Barcode,
		CategoryID:    f.CategoryID,
		BuyingPrice:   f.BuyingPrice,
		SellingPrice:  f.SellingPrice,
		TaxInclusive:  f.TaxInclusive,
		StockQuantity: f.StockQuantity,
		ReorderLevel:  f.ReorderLevel,
		IsActive:      f.IsActive,
	}
}
