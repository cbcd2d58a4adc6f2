package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/dukapos/dukapos/internal/notify"
	"github.com/dukapos/dukapos/internal/orders"
)

// OrderReader loads one external order for notification delivery.
type OrderReader interface {
	Get(ctx context.Context, id int64) (orders.ExternalOrder, error)
}

// OrderNotificationHandler delivers status updates to customers.
type OrderNotificationHandler struct {
	orders   OrderReader
	provider notify.Provider
	logger   *slog.Logger
}

// NewOrderNotificationHandler builds OrderNotificationHandler.
func NewOrderNotificationHandler(reader OrderReader, provider notify.Provider, logger *slog.Logger) *OrderNotificationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderNotificationHandler{orders: reader, provider: provider, logger: logger}
}

// Handle processes one TaskTypeOrderNotification task.
func (h *OrderNotificationHandler) Handle(ctx context.Context, t *asynq.Task) error {
	var payload OrderNotificationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	order, err := h.orders.Get(ctx, payload.OrderID)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			// The order was removed; retrying cannot help.
			h.logger.Warn("notification for unknown order", slog.Int64("order_id", payload.OrderID))
			return asynq.SkipRetry
		}
		return fmt.Errorf("load order %d: %w", payload.OrderID, err)
	}

	message := payload.Message
	if message == "" {
		message = defaultStatusMessage(order.ID, orders.Status(payload.Status))
	}
	if err := h.provider.Send(ctx, order.CustomerPhone, message); err != nil {
		return fmt.Errorf("send notification for order %d: %w", order.ID, err)
	}

	h.logger.Info("order notification sent",
		slog.Int64("order_id", order.ID),
		slog.String("status", payload.Status))
	return nil
}

func defaultStatusMessage(orderID int64, status orders.Status) string {
	switch status {
	case orders.StatusConfirmed:
		return fmt.Sprintf("Your order #%d is confirmed and being prepared.", orderID)
	case orders.StatusCompleted:
		return fmt.Sprintf("Your order #%d is complete. Thank you!", orderID)
	case orders.StatusCancelled:
		return fmt.Sprintf("Your order #%d has been cancelled.", orderID)
	}
	return fmt.Sprintf("Your order #%d status is now %s.", orderID, status)
}
