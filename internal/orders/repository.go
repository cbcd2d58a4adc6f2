package orders

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists external orders.
type Repository interface {
	Create(ctx context.Context, order ExternalOrder) (ExternalOrder, error)
	Get(ctx context.Context, id int64) (ExternalOrder, error)
	List(ctx context.Context, status *Status, limit int) ([]ExternalOrder, error)
	// UpdateStatus moves the order to next only when its current status
	// is one of the allowed source states; the guard and the write are a
	// single statement so concurrent transitions cannot interleave.
	UpdateStatus(ctx context.Context, id int64, next Status, allowedFrom []Status) (ExternalOrder, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the PostgreSQL-backed order repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const orderColumns = `id, customer_phone, customer_name, product_id, quantity, message, status, sale_id, created_at, updated_at`

func (r *repository) Create(ctx context.Context, order ExternalOrder) (ExternalOrder, error) {
	now := time.Now().UTC()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO external_orders (customer_phone, customer_name, product_id, quantity, message, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7) RETURNING id`,
		order.CustomerPhone, nullable(order.CustomerName), order.ProductID, order.Quantity,
		nullable(order.Message), string(StatusPending), now,
	).Scan(&order.ID)
	if err != nil {
		return ExternalOrder{}, err
	}
	order.Status = StatusPending
	order.CreatedAt = now
	order.UpdatedAt = now
	return order, nil
}

func (r *repository) Get(ctx context.Context, id int64) (ExternalOrder, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM external_orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ExternalOrder{}, ErrOrderNotFound
	}
	return order, err
}

func (r *repository) List(ctx context.Context, status *Status, limit int) ([]ExternalOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM external_orders`
	args := []any{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		args = append(args, limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExternalOrder
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, order)
	}
	return out, rows.Err()
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, next Status, allowedFrom []Status) (ExternalOrder, error) {
	query := `UPDATE external_orders SET status = $2, updated_at = NOW() WHERE id = $1 AND status = ANY($3) RETURNING ` + orderColumns
	from := make([]string, len(allowedFrom))
	for i, s := range allowedFrom {
		from[i] = string(s)
	}

	row := r.pool.QueryRow(ctx, query, id, string(next), from)
	order, err := scanOrder(row)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return ExternalOrder{}, err
	}

	// Distinguish a missing order from a forbidden transition.
	if _, err := r.Get(ctx, id); err != nil {
		return ExternalOrder{}, err
	}
	return ExternalOrder{}, ErrInvalidTransition
}

func scanOrder(row pgx.Row) (ExternalOrder, error) {
	var order ExternalOrder
	var name, message *string
	var status string
	err := row.Scan(&order.ID, &order.CustomerPhone, &name, &order.ProductID, &order.Quantity,
		&message, &status, &order.SaleID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return ExternalOrder{}, err
	}
	order.Status = Status(status)
	if name != nil {
		order.CustomerName = *name
	}
	if message != nil {
		order.Message = *message
	}
	return order, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
