package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Notifier queues an outbound status notification for a customer. The
// actual transport lives behind the worker; enqueue failures must not
// fail the transition.
type Notifier interface {
	EnqueueStatusNotification(ctx context.Context, orderID int64, status Status, message string) error
}

// CreateOrderInput describes a new pending order parsed from a message.
type CreateOrderInput struct {
	CustomerPhone string
	CustomerName  string
	ProductID     int64
	Quantity      int
	Message       string
}

// Service owns the pending→confirmed/cancelled→completed state machine.
// Completion itself is driven by the sale transaction engine inside its
// own transaction; this service handles the operator-driven transitions.
type Service struct {
	repo     Repository
	notifier Notifier
	logger   *slog.Logger
}

// NewService builds Service. notifier may be nil.
func NewService(repo Repository, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{repo: repo, notifier: notifier, logger: logger}
}

// CreatePending records a new external order in pending status.
func (s *Service) CreatePending(ctx context.Context, input CreateOrderInput) (ExternalOrder, error) {
	if strings.TrimSpace(input.CustomerPhone) == "" {
		return ExternalOrder{}, errors.New("orders: customer phone is required")
	}
	if input.ProductID == 0 {
		return ExternalOrder{}, errors.New("orders: product is required")
	}
	if input.Quantity <= 0 {
		return ExternalOrder{}, errors.New("orders: quantity must be positive")
	}
	return s.repo.Create(ctx, ExternalOrder{
		CustomerPhone: input.CustomerPhone,
		CustomerName:  input.CustomerName,
		ProductID:     input.ProductID,
		Quantity:      input.Quantity,
		Message:       input.Message,
	})
}

func (s *Service) Get(ctx context.Context, id int64) (ExternalOrder, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, status *Status, limit int) ([]ExternalOrder, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.List(ctx, status, limit)
}

// Confirm moves a pending order to confirmed.
func (s *Service) Confirm(ctx context.Context, id int64) (ExternalOrder, error) {
	return s.transition(ctx, id, StatusConfirmed, "")
}

// Cancel terminates a pending or confirmed order. No stock is touched:
// pending orders never held a reservation.
func (s *Service) Cancel(ctx context.Context, id int64) (ExternalOrder, error) {
	return s.transition(ctx, id, StatusCancelled, "")
}

// Notify drives the outward status-notification boundary: it applies the
// requested transition and queues a message to the customer. Completion
// is not reachable here; only the sale transaction engine completes
// orders.
func (s *Service) Notify(ctx context.Context, id int64, next Status, message string) (ExternalOrder, error) {
	if !next.Valid() {
		return ExternalOrder{}, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, next)
	}
	if next == StatusCompleted {
		return ExternalOrder{}, fmt.Errorf("%w: completion is performed by the sale transaction", ErrInvalidTransition)
	}
	return s.transition(ctx, id, next, message)
}

func (s *Service) transition(ctx context.Context, id int64, next Status, message string) (ExternalOrder, error) {
	allowed := sourcesFor(next)
	if len(allowed) == 0 {
		return ExternalOrder{}, fmt.Errorf("%w: no path to %s", ErrInvalidTransition, next)
	}

	order, err := s.repo.UpdateStatus(ctx, id, next, allowed)
	if err != nil {
		return ExternalOrder{}, err
	}

	if s.notifier != nil {
		if err := s.notifier.EnqueueStatusNotification(ctx, order.ID, next, message); err != nil && s.logger != nil {
			s.logger.Warn("enqueue order notification",
				slog.Int64("order_id", order.ID),
				slog.String("status", string(next)),
				slog.Any("error", err))
		}
	}
	return order, nil
}

// sourcesFor lists the states allowed to move into next under the
// operator-driven part of the lifecycle.
func sourcesFor(next Status) []Status {
	switch next {
	case StatusConfirmed:
		return []Status{StatusPending}
	case StatusCancelled:
		return []Status{StatusPending, StatusConfirmed}
	}
	return nil
}
