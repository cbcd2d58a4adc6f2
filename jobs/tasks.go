package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeOrderNotification delivers an order status update to the
	// customer.
	TaskTypeOrderNotification = "orders:notify_status"
	// TaskTypeLowStockScan reports products at or below reorder level.
	TaskTypeLowStockScan = "catalog:low_stock_scan"
)

// OrderNotificationPayload identifies the order and the status message
// to deliver.
type OrderNotificationPayload struct {
	OrderID int64  `json:"order_id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewOrderNotificationTask constructs the Asynq task for one status
// notification.
func NewOrderNotificationTask(payload OrderNotificationPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeOrderNotification, data), nil
}

// NewLowStockScanTask constructs the periodic low-stock scan task.
func NewLowStockScanTask() *asynq.Task {
	return asynq.NewTask(TaskTypeLowStockScan, nil)
}
