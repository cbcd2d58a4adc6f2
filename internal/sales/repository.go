package sales

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukapos/dukapos/internal/catalog"
	"github.com/dukapos/dukapos/internal/orders"
	"github.com/dukapos/dukapos/internal/platform/db"
)

// ProductPricing is the slice of a product the engine needs while
// pricing a cart line.
type ProductPricing struct {
	ID           int64
	Name         string
	TaxInclusive bool
}

// RepositoryPort abstracts persistence for the transaction engine.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (*Sale, error)
	GetByNumber(ctx context.Context, number string) (*Sale, error)
	GetByReceiptToken(ctx context.Context, token string) (*Sale, error)
	List(ctx context.Context, filters ListFilters) ([]Sale, int, error)
}

// TxRepository exposes the operations that must share the engine's
// atomic unit: pricing reads, stock reservation, number allocation, sale
// persistence and external-order completion.
type TxRepository interface {
	ProductPricing(ctx context.Context, productID int64) (ProductPricing, error)
	ReserveStock(ctx context.Context, productID int64, qty int) error
	NextSequence(ctx context.Context, day time.Time) (int, error)
	InsertSale(ctx context.Context, sale Sale) (int64, error)
	InsertLines(ctx context.Context, saleID int64, lines []SaleLine) error
	CompleteExternalOrder(ctx context.Context, orderID, saleID int64) error
}

// Repository persists sales in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside a repeatable-read transaction. All engine writes
// go through the TxRepository handed to fn, so a failure anywhere rolls
// back the sale, its lines, every reservation and the number allocation
// together.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

type txRepo struct {
	tx pgx.Tx
}

func (r *txRepo) ProductPricing(ctx context.Context, productID int64) (ProductPricing, error) {
	var p ProductPricing
	err := r.tx.QueryRow(ctx,
		`SELECT id, name, tax_inclusive FROM products WHERE id = $1 AND is_active`,
		productID,
	).Scan(&p.ID, &p.Name, &p.TaxInclusive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductPricing{}, catalog.ErrProductNotFound
		}
		return ProductPricing{}, err
	}
	return p, nil
}

func (r *txRepo) ReserveStock(ctx context.Context, productID int64, qty int) error {
	_, err := catalog.ReserveStock(ctx, r.tx, productID, qty)
	return err
}

func (r *txRepo) NextSequence(ctx context.Context, day time.Time) (int, error) {
	var seq int
	err := r.tx.QueryRow(ctx,
		`INSERT INTO sale_counters (day, seq) VALUES ($1, 1)
		 ON CONFLICT (day) DO UPDATE SET seq = sale_counters.seq + 1
		 RETURNING seq`,
		day.Format("2006-01-02"),
	).Scan(&seq)
	return seq, err
}

func (r *txRepo) InsertSale(ctx context.Context, sale Sale) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx,
		`INSERT INTO sales (sale_number, receipt_token, sale_date, customer_name, customer_phone, subtotal,
		 discount_amount, tax_amount, total_amount, payment_method, notes, cashier_id,
		 external_origin, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING id`,
		sale.SaleNumber, sale.ReceiptToken, sale.SaleDate, nullable(sale.CustomerName), nullable(sale.CustomerPhone),
		sale.Subtotal, sale.DiscountAmount, sale.TaxAmount, sale.TotalAmount,
		string(sale.PaymentMethod), nullable(sale.Notes), sale.CashierID,
		sale.ExternalOrigin, sale.CreatedAt,
	).Scan(&id)
	return id, err
}

func (r *txRepo) InsertLines(ctx context.Context, saleID int64, lines []SaleLine) error {
	for _, line := range lines {
		_, err := r.tx.Exec(ctx,
			`INSERT INTO sale_items (sale_id, product_id, quantity, unit_price, total_price)
			 VALUES ($1, $2, $3, $4, $5)`,
			saleID, line.ProductID, line.Quantity, line.UnitPrice, line.TotalPrice,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepo) CompleteExternalOrder(ctx context.Context, orderID, saleID int64) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE external_orders SET status = $3, sale_id = $2, updated_at = NOW()
		 WHERE id = $1 AND status IN ($4, $5)`,
		orderID, saleID, string(orders.StatusCompleted), string(orders.StatusPending), string(orders.StatusConfirmed),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM external_orders WHERE id = $1)`, orderID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return orders.ErrOrderNotFound
		}
		return orders.ErrInvalidTransition
	}
	return nil
}

const saleColumns = `id, sale_number, receipt_token, sale_date, customer_name, customer_phone, subtotal,
	discount_amount, tax_amount, total_amount, payment_method, notes, cashier_id,
	external_origin, created_at`

// Get loads a sale with its lines.
func (r *Repository) Get(ctx context.Context, id int64) (*Sale, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id)
	return r.loadSale(ctx, row)
}

// GetByNumber loads a sale by its display number.
func (r *Repository) GetByNumber(ctx context.Context, number string) (*Sale, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE sale_number = $1`, number)
	return r.loadSale(ctx, row)
}

// GetByReceiptToken loads a sale by its receipt token.
func (r *Repository) GetByReceiptToken(ctx context.Context, token string) (*Sale, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE receipt_token = $1`, token)
	return r.loadSale(ctx, row)
}

func (r *Repository) loadSale(ctx context.Context, row pgx.Row) (*Sale, error) {
	sale, err := scanSale(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSaleNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, sale_id, product_id, quantity, unit_price, total_price
		 FROM sale_items WHERE sale_id = $1 ORDER BY id`, sale.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var line SaleLine
		if err := rows.Scan(&line.ID, &line.SaleID, &line.ProductID, &line.Quantity, &line.UnitPrice, &line.TotalPrice); err != nil {
			return nil, err
		}
		sale.Lines = append(sale.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &sale, nil
}

// List returns sale headers newest first.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]Sale, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.CashierID != nil {
		argCount++
		where += ` AND cashier_id = $` + strconv.Itoa(argCount)
		args = append(args, *filters.CashierID)
	}
	if filters.DateFrom != nil {
		argCount++
		where += ` AND sale_date >= $` + strconv.Itoa(argCount)
		args = append(args, *filters.DateFrom)
	}
	if filters.DateTo != nil {
		argCount++
		where += ` AND sale_date <= $` + strconv.Itoa(argCount)
		args = append(args, *filters.DateTo)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + saleColumns + ` FROM sales` + where + ` ORDER BY sale_date DESC, id DESC`
	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)

		offset := (filters.Page - 1) * filters.Limit
		if offset < 0 {
			offset = 0
		}
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		args = append(args, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var sales []Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, 0, err
		}
		sales = append(sales, sale)
	}
	return sales, total, rows.Err()
}

func scanSale(row pgx.Row) (Sale, error) {
	var sale Sale
	var customerName, customerPhone, notes *string
	var method string
	err := row.Scan(&sale.ID, &sale.SaleNumber, &sale.ReceiptToken, &sale.SaleDate, &customerName, &customerPhone,
		&sale.Subtotal, &sale.DiscountAmount, &sale.TaxAmount, &sale.TotalAmount,
		&method, &notes, &sale.CashierID, &sale.ExternalOrigin, &sale.CreatedAt)
	if err != nil {
		return Sale{}, err
	}
	sale.PaymentMethod = PaymentMethod(method)
	if customerName != nil {
		sale.CustomerName = *customerName
	}
	if customerPhone != nil {
		sale.CustomerPhone = *customerPhone
	}
	if notes != nil {
		sale.Notes = *notes
	}
	return sale, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
