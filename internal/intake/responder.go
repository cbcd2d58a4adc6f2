package intake

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/dukapos/dukapos/internal/catalog"
	"github.com/dukapos/dukapos/internal/currency"
	"github.com/dukapos/dukapos/internal/orders"
)

const (
	maxSearchResults       = 5
	maxOrderQuantity       = 100
	maxAmbiguousCandidates = 3
)

// CatalogPort is the read surface the responder needs from the catalog.
type CatalogPort interface {
	Lookup(ctx context.Context, term string) ([]catalog.Product, error)
	ListCategories(ctx context.Context) ([]catalog.CategorySummary, error)
}

// OrdersPort records a parsed order as pending.
type OrdersPort interface {
	CreatePending(ctx context.Context, input orders.CreateOrderInput) (orders.ExternalOrder, error)
}

// MetricsPort counts handled messages by intent. Implementations must
// tolerate being nil.
type MetricsPort interface {
	IntakeMessage(intent string)
}

// Responder turns a parsed intent into the text replied to the
// customer. Every intent produces a reply; internal failures degrade to
// an apology rather than silence.
type Responder struct {
	catalog      CatalogPort
	orders       OrdersPort
	profile      currency.Profile
	businessName string
	metrics      MetricsPort
	logger       *slog.Logger

	// Bursts of simultaneous "categories" messages share one lookup.
	categoriesFlight singleflight.Group
}

// NewResponder builds Responder. metrics may be nil.
func NewResponder(cat CatalogPort, ord OrdersPort, profile currency.Profile, businessName string, metrics MetricsPort, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{
		catalog:      cat,
		orders:       ord,
		profile:      profile,
		businessName: businessName,
		metrics:      metrics,
		logger:       logger,
	}
}

// Respond handles one inbound message end to end: parse, act, reply.
func (r *Responder) Respond(ctx context.Context, from, body string) string {
	switch intent := Parse(body).(type) {
	case HelpIntent:
		r.count("help")
		return r.helpReply()
	case CategoriesIntent:
		r.count("categories")
		return r.categoriesReply(ctx)
	case SearchIntent:
		r.count("search")
		return r.searchReply(ctx, intent.Term)
	case PriceIntent:
		r.count("price")
		return r.priceReply(ctx, intent.Name)
	case OrderIntent:
		r.count("order")
		return r.orderReply(ctx, from, intent)
	case UnknownIntent:
		r.count("unknown")
		return r.unknownReply()
	default:
		return r.unknownReply()
	}
}

func (r *Responder) count(intent string) {
	if r.metrics != nil {
		r.metrics.IntakeMessage(intent)
	}
}

func (r *Responder) helpReply() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Welcome to %s!\n\n", r.businessName)
	b.WriteString("You can send:\n")
	b.WriteString("• help — this message\n")
	b.WriteString("• categories — list product categories\n")
	b.WriteString("• search <term> — find products\n")
	b.WriteString("• price <product> — check a price\n")
	b.WriteString("• order <product> <quantity> — place an order")
	return b.String()
}

func (r *Responder) categoriesReply(ctx context.Context) string {
	v, err, _ := r.categoriesFlight.Do("categories", func() (any, error) {
		return r.catalog.ListCategories(ctx)
	})
	if err != nil {
		r.logger.Error("list categories", slog.Any("error", err))
		return r.failureReply()
	}
	categories := v.([]catalog.CategorySummary)
	if len(categories) == 0 {
		return "No categories yet. Send 'search <term>' to find products."
	}

	var b strings.Builder
	b.WriteString("Our categories:\n")
	for _, c := range categories {
		fmt.Fprintf(&b, "• %s (%d products)\n", c.Name, c.ProductCount)
	}
	b.WriteString("\nSend 'search <term>' to find products.")
	return b.String()
}

func (r *Responder) searchReply(ctx context.Context, term string) string {
	products, err := r.catalog.Lookup(ctx, term)
	if err != nil {
		r.logger.Error("search products", slog.String("term", term), slog.Any("error", err))
		return r.failureReply()
	}
	if len(products) == 0 {
		return fmt.Sprintf("No products found for '%s'. Send 'categories' to browse.", term)
	}
	if len(products) > maxSearchResults {
		products = products[:maxSearchResults]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Results for '%s':\n\n", term)
	for _, p := range products {
		b.WriteString(r.productInfo(p))
		b.WriteString("\n")
	}
	b.WriteString("Send 'order <product> <quantity>' to order.")
	return b.String()
}

func (r *Responder) priceReply(ctx context.Context, name string) string {
	product, reply := r.resolveOne(ctx, name)
	if reply != "" {
		return reply
	}
	return strings.TrimRight(r.productInfo(product), "\n")
}

// productInfo renders one product the way the bot describes items:
// name, price, category, stock, then description and barcode when set.
func (r *Responder) productInfo(p catalog.Product) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s — %s\n", p.Name, currency.Format(p.SellingPrice, r.profile))
	if p.CategoryName != "" {
		fmt.Fprintf(&b, "Category: %s\n", p.CategoryName)
	}
	fmt.Fprintf(&b, "Stock: %s\n", stockPhrase(p.StockQuantity))
	if p.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", p.Description)
	}
	if p.Barcode != nil && *p.Barcode != "" {
		fmt.Fprintf(&b, "Barcode: %s\n", *p.Barcode)
	}
	return b.String()
}

func (r *Responder) orderReply(ctx context.Context, from string, intent OrderIntent) string {
	if intent.Quantity < 1 || intent.Quantity > maxOrderQuantity {
		return fmt.Sprintf("Quantity must be between 1 and %d.", maxOrderQuantity)
	}

	product, reply := r.resolveOne(ctx, intent.Name)
	if reply != "" {
		return reply
	}

	// Availability is advisory only; nothing is reserved until the sale
	// is completed at the till.
	if product.StockQuantity < intent.Quantity {
		return fmt.Sprintf("Sorry, only %d of %s available right now.", product.StockQuantity, product.Name)
	}

	order, err := r.orders.CreatePending(ctx, orders.CreateOrderInput{
		CustomerPhone: from,
		ProductID:     product.ID,
		Quantity:      intent.Quantity,
		Message:       fmt.Sprintf("order %s %d", intent.Name, intent.Quantity),
	})
	if err != nil {
		r.logger.Error("create pending order",
			slog.String("from", from),
			slog.Int64("product_id", product.ID),
			slog.Any("error", err))
		return r.failureReply()
	}

	total := product.SellingPrice * float64(intent.Quantity)
	return fmt.Sprintf("Order #%d received: %d x %s = %s.\nWe will confirm shortly.",
		order.ID, intent.Quantity, product.Name, currency.Format(total, r.profile))
}

func (r *Responder) unknownReply() string {
	return "Sorry, I did not understand that. Send 'help' to see what I can do."
}

func (r *Responder) failureReply() string {
	return "Sorry, something went wrong on our side. Please try again shortly."
}

// resolveOne narrows a name to a single product. The second return is a
// non-empty customer reply when resolution failed.
func (r *Responder) resolveOne(ctx context.Context, name string) (catalog.Product, string) {
	products, err := r.catalog.Lookup(ctx, name)
	if err != nil {
		r.logger.Error("resolve product", slog.String("name", name), slog.Any("error", err))
		return catalog.Product{}, r.failureReply()
	}
	if len(products) == 0 {
		return catalog.Product{}, fmt.Sprintf("No product found for '%s'. Send 'search %s' to look around.", name, name)
	}
	if len(products) == 1 {
		return products[0], ""
	}

	// An exact name match wins over a broader prefix match.
	for _, p := range products {
		if strings.EqualFold(p.Name, name) {
			return p, ""
		}
	}

	candidates := products
	if len(candidates) > maxAmbiguousCandidates {
		candidates = candidates[:maxAmbiguousCandidates]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "'%s' is ambiguous, be more specific. Did you mean:\n", name)
	for _, p := range candidates {
		fmt.Fprintf(&b, "• %s\n", p.Name)
	}
	return catalog.Product{}, strings.TrimRight(b.String(), "\n")
}

func stockPhrase(qty int) string {
	if qty <= 0 {
		return "out of stock"
	}
	return fmt.Sprintf("%d in stock", qty)
}
