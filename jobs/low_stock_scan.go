package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/dukapos/dukapos/internal/catalog"
	"github.com/dukapos/dukapos/internal/notify"
)

// LowStockLister reads products at or below their reorder level.
type LowStockLister interface {
	ListLowStock(ctx context.Context, limit int) ([]catalog.Product, error)
}

// LowStockScanHandler runs the periodic reorder report. When an owner
// phone is configured the report goes out as a message; it is always
// logged.
type LowStockScanHandler struct {
	catalog    LowStockLister
	provider   notify.Provider
	ownerPhone string
	logger     *slog.Logger
}

// NewLowStockScanHandler builds LowStockScanHandler. ownerPhone may be
// empty.
func NewLowStockScanHandler(lister LowStockLister, provider notify.Provider, ownerPhone string, logger *slog.Logger) *LowStockScanHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LowStockScanHandler{catalog: lister, provider: provider, ownerPhone: ownerPhone, logger: logger}
}

// Handle processes one TaskTypeLowStockScan task.
func (h *LowStockScanHandler) Handle(ctx context.Context, _ *asynq.Task) error {
	products, err := h.catalog.ListLowStock(ctx, 100)
	if err != nil {
		return fmt.Errorf("list low stock: %w", err)
	}
	if len(products) == 0 {
		h.logger.Info("low stock scan clean")
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Reorder alert: %d products low on stock.\n", len(products))
	for _, p := range products {
		fmt.Fprintf(&b, "• %s: %d left (reorder at %d)\n", p.Name, p.StockQuantity, p.ReorderLevel)
		h.logger.Warn("low stock",
			slog.Int64("product_id", p.ID),
			slog.String("name", p.Name),
			slog.Int("stock", p.StockQuantity),
			slog.Int("reorder_level", p.ReorderLevel))
	}

	if h.ownerPhone != "" && h.provider != nil {
		if err := h.provider.Send(ctx, h.ownerPhone, strings.TrimRight(b.String(), "\n")); err != nil {
			return fmt.Errorf("send low stock report: %w", err)
		}
	}
	return nil
}
