package intake

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dukapos/dukapos/internal/catalog"
	"github.com/dukapos/dukapos/internal/currency"
	"github.com/dukapos/dukapos/internal/orders"
)

type fakeCatalog struct {
	products   []catalog.Product
	categories []catalog.CategorySummary
	lookupErr  error
}

func (f *fakeCatalog) Lookup(_ context.Context, term string) ([]catalog.Product, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	var out []catalog.Product
	for _, p := range f.products {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(term)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeCatalog) ListCategories(context.Context) ([]catalog.CategorySummary, error) {
	return f.categories, nil
}

type fakeOrders struct {
	created []orders.CreateOrderInput
	nextID  int64
	err     error
}

func (f *fakeOrders) CreatePending(_ context.Context, input orders.CreateOrderInput) (orders.ExternalOrder, error) {
	if f.err != nil {
		return orders.ExternalOrder{}, f.err
	}
	f.created = append(f.created, input)
	f.nextID++
	return orders.ExternalOrder{
		ID:            f.nextID,
		CustomerPhone: input.CustomerPhone,
		ProductID:     input.ProductID,
		Quantity:      input.Quantity,
		Status:        orders.StatusPending,
	}, nil
}

func testResponder(cat *fakeCatalog, ord *fakeOrders) *Responder {
	profile, _ := currency.ProfileFor("TSH")
	return NewResponder(cat, ord, profile, "Duka Moja", nil, slog.New(slog.DiscardHandler))
}

func shirtAndSoap() *fakeCatalog {
	barcode := "5901234123457"
	return &fakeCatalog{
		products: []catalog.Product{
			{ID: 1, Name: "Blue Shirt", CategoryName: "Clothing", Description: "Cotton, slim fit", Barcode: &barcode, SellingPrice: 15000, StockQuantity: 8},
			{ID: 2, Name: "White Shirt", CategoryName: "Clothing", SellingPrice: 12000, StockQuantity: 0},
			{ID: 3, Name: "Soap", CategoryName: "Household", SellingPrice: 1500, StockQuantity: 40},
		},
	}
}

func TestRespondHelp(t *testing.T) {
	r := testResponder(shirtAndSoap(), &fakeOrders{})
	reply := r.Respond(context.Background(), "+255700000001", "help")
	require.Contains(t, reply, "Duka Moja")
	require.Contains(t, reply, "order <product> <quantity>")
}

func TestRespondCategories(t *testing.T) {
	cat := shirtAndSoap()
	cat.categories = []catalog.CategorySummary{
		{Category: catalog.Category{ID: 1, Name: "Clothing"}, ProductCount: 2},
		{Category: catalog.Category{ID: 2, Name: "Household"}, ProductCount: 1},
	}
	r := testResponder(cat, &fakeOrders{})
	reply := r.Respond(context.Background(), "+255700000001", "categories")
	require.Contains(t, reply, "Clothing (2 products)")
	require.Contains(t, reply, "Household (1 products)")
}

func TestRespondSearchCapsResults(t *testing.T) {
	cat := &fakeCatalog{}
	for i := 0; i < 8; i++ {
		cat.products = append(cat.products, catalog.Product{
			ID: int64(i + 1), Name: "Shirt " + string(rune('A'+i)), SellingPrice: 1000, StockQuantity: 3,
		})
	}
	r := testResponder(cat, &fakeOrders{})
	reply := r.Respond(context.Background(), "+255700000001", "search shirt")
	require.Equal(t, maxSearchResults, strings.Count(reply, "Stock:"))
}

func TestRespondSearchRendersProductDetails(t *testing.T) {
	r := testResponder(shirtAndSoap(), &fakeOrders{})
	reply := r.Respond(context.Background(), "+255700000001", "search shirt")

	require.Contains(t, reply, "Blue Shirt")
	require.Contains(t, reply, "Category: Clothing")
	require.Contains(t, reply, "Description: Cotton, slim fit")
	require.Contains(t, reply, "Barcode: 5901234123457")

	// White Shirt has no description or barcode; no empty lines for them.
	require.Equal(t, 1, strings.Count(reply, "Description:"))
	require.Equal(t, 1, strings.Count(reply, "Barcode:"))
}

func TestRespondSearchShowsStockState(t *testing.T) {
	r := testResponder(shirtAndSoap(), &fakeOrders{})
	reply := r.Respond(context.Background(), "+255700000001", "search shirt")
	require.Contains(t, reply, "8 in stock")
	require.Contains(t, reply, "out of stock")
}

func TestRespondPrice(t *testing.T) {
	r := testResponder(shirtAndSoap(), &fakeOrders{})
	reply := r.Respond(context.Background(), "+255700000001", "price soap")
	require.Contains(t, reply, "Soap")
	profile, _ := currency.ProfileFor("TSH")
	require.Contains(t, reply, currency.Format(1500, profile))
	require.Contains(t, reply, "Category: Household")
	require.Contains(t, reply, "Stock: 40 in stock")
}

func TestRespondPriceIncludesDescriptionAndBarcode(t *testing.T) {
	r := testResponder(shirtAndSoap(), &fakeOrders{})
	reply := r.Respond(context.Background(), "+255700000001", "price blue shirt")
	require.Contains(t, reply, "Category: Clothing")
	require.Contains(t, reply, "Description: Cotton, slim fit")
	require.Contains(t, reply, "Barcode: 5901234123457")
}

func TestRespondPriceAmbiguous(t *testing.T) {
	r := testResponder(shirtAndSoap(), &fakeOrders{})
	reply := r.Respond(context.Background(), "+255700000001", "price shirt")
	require.Contains(t, reply, "be more specific")
	require.Contains(t, reply, "Blue Shirt")
	require.Contains(t, reply, "White Shirt")
}

func TestRespondOrderCreatesPending(t *testing.T) {
	ord := &fakeOrders{}
	r := testResponder(shirtAndSoap(), ord)

	reply := r.Respond(context.Background(), "+255700000001", "order blue shirt 2")
	require.Contains(t, reply, "Order #1 received")
	require.Contains(t, reply, "2 x Blue Shirt")

	require.Len(t, ord.created, 1)
	require.Equal(t, "+255700000001", ord.created[0].CustomerPhone)
	require.Equal(t, int64(1), ord.created[0].ProductID)
	require.Equal(t, 2, ord.created[0].Quantity)
}

func TestRespondOrderExactNameBeatsBroaderMatches(t *testing.T) {
	ord := &fakeOrders{}
	cat := &fakeCatalog{products: []catalog.Product{
		{ID: 1, Name: "Shirt", SellingPrice: 9000, StockQuantity: 4},
		{ID: 2, Name: "Shirt XL", SellingPrice: 11000, StockQuantity: 4},
	}}
	r := testResponder(cat, ord)

	reply := r.Respond(context.Background(), "+255700000001", "order shirt 1")
	require.Contains(t, reply, "received")
	require.Equal(t, int64(1), ord.created[0].ProductID)
}

func TestRespondOrderQuantityBounds(t *testing.T) {
	ord := &fakeOrders{}
	r := testResponder(shirtAndSoap(), ord)

	reply := r.Respond(context.Background(), "+255700000001", "order soap 101")
	require.Contains(t, reply, "between 1 and 100")
	require.Empty(t, ord.created)

	reply = r.Respond(context.Background(), "+255700000001", "order soap 0")
	require.Contains(t, reply, "between 1 and 100")
	require.Empty(t, ord.created)
}

func TestRespondOrderInsufficientAvailability(t *testing.T) {
	ord := &fakeOrders{}
	r := testResponder(shirtAndSoap(), ord)

	reply := r.Respond(context.Background(), "+255700000001", "order blue shirt 20")
	require.Contains(t, reply, "only 8")
	require.Empty(t, ord.created)
}

func TestRespondOrderUnknownProduct(t *testing.T) {
	ord := &fakeOrders{}
	r := testResponder(shirtAndSoap(), ord)

	reply := r.Respond(context.Background(), "+255700000001", "order spaceship 1")
	require.Contains(t, reply, "No product found")
	require.Empty(t, ord.created)
}

func TestRespondUnknownMessageStillReplies(t *testing.T) {
	ord := &fakeOrders{}
	r := testResponder(shirtAndSoap(), ord)

	reply := r.Respond(context.Background(), "+255700000001", "asdfgh qwerty")
	require.Contains(t, reply, "help")
	require.Empty(t, ord.created)
}

func TestRespondLookupFailureDegradesGracefully(t *testing.T) {
	cat := shirtAndSoap()
	cat.lookupErr = errors.New("db down")
	r := testResponder(cat, &fakeOrders{})

	reply := r.Respond(context.Background(), "+255700000001", "search soap")
	require.Contains(t, reply, "try again")
}
