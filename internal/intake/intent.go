package intake

// Intent is the parsed meaning of one inbound customer message. The set
// of implementations is closed; Respond switches over all of them.
type Intent interface {
	intent()
}

// HelpIntent asks for the command reference.
type HelpIntent struct{}

// CategoriesIntent asks for the category listing.
type CategoriesIntent struct{}

// SearchIntent asks for products matching a free-text term.
type SearchIntent struct {
	Term string
}

// PriceIntent asks for the price of a single named product.
type PriceIntent struct {
	Name string
}

// OrderIntent asks to place an order for a named product.
type OrderIntent struct {
	Name     string
	Quantity int
}

// UnknownIntent is anything the grammar does not recognise. Raw keeps
// the normalized text for the fallback reply.
type UnknownIntent struct {
	Raw string
}

func (HelpIntent) intent()       {}
func (CategoriesIntent) intent() {}
func (SearchIntent) intent()     {}
func (PriceIntent) intent()      {}
func (OrderIntent) intent()      {}
func (UnknownIntent) intent()    {}
