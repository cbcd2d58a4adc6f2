package jobs

import (
	"context"

	"github.com/hibiken/asynq"

	"github.com/dukapos/dukapos/internal/orders"
)

// Client submits jobs to the queue. It is the API side's handle on the
// worker: the orders service talks to it through the Notifier interface.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueStatusNotification queues one order status message for
// delivery by the worker.
func (c *Client) EnqueueStatusNotification(ctx context.Context, orderID int64, status orders.Status, message string) error {
	task, err := NewOrderNotificationTask(OrderNotificationPayload{
		OrderID: orderID,
		Status:  string(status),
		Message: message,
	})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
	return err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
