package sales

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dukapos/dukapos/internal/platform/db"
	"github.com/dukapos/dukapos/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort receives domain counters from the engine. Implementations
// must tolerate being nil.
type MetricsPort interface {
	SaleCommitted(total float64)
	SaleConflict()
}

// CompleteSaleInput carries everything the engine needs to turn a cart
// into a committed sale.
type CompleteSaleInput struct {
	Lines           []CartLine
	DiscountAmount  float64
	PaymentMethod   PaymentMethod
	CustomerName    string
	CustomerPhone   string
	Notes           string
	CashierID       int64
	ExternalOrderID *int64
}

// Service is the sale transaction engine: the single path that durably
// commits inventory changes and a sale record.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	metrics MetricsPort
	taxRate float64
	now     func() time.Time
}

const maxCommitAttempts = 3

// NewService builds Service. taxRate is read-only business configuration
// applied to products that are not tax inclusive.
func NewService(repo RepositoryPort, audit AuditPort, metrics MetricsPort, taxRate float64) *Service {
	return &Service{
		repo:    repo,
		audit:   audit,
		metrics: metrics,
		taxRate: taxRate,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CompleteSale validates and prices the cart, reserves stock for every
// line, allocates a sale number and persists the sale as one atomic
// unit. Any failure leaves stock and the sale table untouched.
// Serialization conflicts are retried a bounded number of times, then
// reported as ErrConcurrencyConflict.
func (s *Service) CompleteSale(ctx context.Context, input CompleteSaleInput) (*Sale, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	var committed *Sale
	var err error
	for attempt := 1; attempt <= maxCommitAttempts; attempt++ {
		committed, err = s.commitOnce(ctx, input)
		if err == nil || !db.IsSerializationFailure(err) {
			break
		}
		if s.metrics != nil {
			s.metrics.SaleConflict()
		}
	}
	if err != nil {
		if db.IsSerializationFailure(err) {
			return nil, fmt.Errorf("%w: %v", ErrConcurrencyConflict, err)
		}
		return nil, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.CashierID,
			Action:   "sales:commit",
			Entity:   "sale",
			EntityID: committed.SaleNumber,
			Meta: map[string]any{
				"sale_id":      committed.ID,
				"total_amount": committed.TotalAmount,
				"line_count":   len(committed.Lines),
			},
		})
	}
	if s.metrics != nil {
		s.metrics.SaleCommitted(committed.TotalAmount)
	}
	return committed, nil
}

func (s *Service) validateInput(input CompleteSaleInput) error {
	if len(input.Lines) == 0 {
		return ErrEmptyCart
	}
	for _, line := range input.Lines {
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: quantity must be positive for product %d", ErrInvalidCartLine, line.ProductID)
		}
		if line.UnitPrice < 0 {
			return fmt.Errorf("%w: unit price must be non-negative for product %d", ErrInvalidCartLine, line.ProductID)
		}
	}
	if input.DiscountAmount < 0 {
		return ErrInvalidDiscount
	}
	if !input.PaymentMethod.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, input.PaymentMethod)
	}
	return nil
}

func (s *Service) commitOnce(ctx context.Context, input CompleteSaleInput) (*Sale, error) {
	now := s.now()
	var sale Sale

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var subtotal, taxAmount float64
		lines := make([]SaleLine, 0, len(input.Lines))

		for _, cartLine := range input.Lines {
			product, err := tx.ProductPricing(ctx, cartLine.ProductID)
			if err != nil {
				return fmt.Errorf("price product %d: %w", cartLine.ProductID, err)
			}

			lineTotal := cartLine.UnitPrice * float64(cartLine.Quantity)
			subtotal += lineTotal
			if !product.TaxInclusive {
				taxAmount += lineTotal * s.taxRate
			}

			lines = append(lines, SaleLine{
				ProductID:  cartLine.ProductID,
				Quantity:   cartLine.Quantity,
				UnitPrice:  cartLine.UnitPrice,
				TotalPrice: lineTotal,
			})
		}

		// Discount past the subtotal is allowed; the total goes negative.
		totalAmount := subtotal + taxAmount - input.DiscountAmount

		// Reserve in ascending product order so concurrent carts over the
		// same products lock rows in a consistent sequence.
		for _, line := range reservationOrder(lines) {
			if err := tx.ReserveStock(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}

		seq, err := tx.NextSequence(ctx, now)
		if err != nil {
			return fmt.Errorf("allocate sale number: %w", err)
		}

		sale = Sale{
			SaleNumber:     FormatSaleNumber(now, seq),
			ReceiptToken:   uuid.NewString(),
			SaleDate:       now,
			CustomerName:   input.CustomerName,
			CustomerPhone:  input.CustomerPhone,
			Subtotal:       subtotal,
			DiscountAmount: input.DiscountAmount,
			TaxAmount:      taxAmount,
			TotalAmount:    totalAmount,
			PaymentMethod:  input.PaymentMethod,
			Notes:          input.Notes,
			CashierID:      input.CashierID,
			ExternalOrigin: input.ExternalOrderID != nil,
			CreatedAt:      now,
		}

		saleID, err := tx.InsertSale(ctx, sale)
		if err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}
		sale.ID = saleID
		if err := tx.InsertLines(ctx, saleID, lines); err != nil {
			return fmt.Errorf("insert sale lines: %w", err)
		}
		for i := range lines {
			lines[i].SaleID = saleID
		}
		sale.Lines = lines

		if input.ExternalOrderID != nil {
			if err := tx.CompleteExternalOrder(ctx, *input.ExternalOrderID, saleID); err != nil {
				return fmt.Errorf("complete external order %d: %w", *input.ExternalOrderID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// reservationOrder returns lines sorted by product ID without touching
// the pricing order of the input slice.
func reservationOrder(lines []SaleLine) []SaleLine {
	ordered := make([]SaleLine, len(lines))
	copy(ordered, lines)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ProductID < ordered[j].ProductID })
	return ordered
}

// Get loads one sale with its lines.
func (s *Service) Get(ctx context.Context, id int64) (*Sale, error) {
	return s.repo.Get(ctx, id)
}

// GetByNumber loads one sale by display number.
func (s *Service) GetByNumber(ctx context.Context, number string) (*Sale, error) {
	return s.repo.GetByNumber(ctx, number)
}

// GetByReceipt loads one sale by its receipt token.
func (s *Service) GetByReceipt(ctx context.Context, token string) (*Sale, error) {
	return s.repo.GetByReceiptToken(ctx, token)
}

// List returns sale history, newest first.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Sale, int, error) {
	if filters.Limit <= 0 {
		filters.Limit = 20
	}
	if filters.Page <= 0 {
		filters.Page = 1
	}
	return s.repo.List(ctx, filters)
}
