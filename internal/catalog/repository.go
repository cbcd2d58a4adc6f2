package catalog

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukapos/dukapos/internal/platform/db"
)

const productColumns = `p.id, p.name, p.description, p.barcode, p.category_id, c.name AS category_name,
	p.buying_price, p.selling_price, p.tax_inclusive, p.stock_quantity, p.reorder_level,
	p.image_filename, p.is_active, p.created_at, p.updated_at`

const productFrom = ` FROM products p JOIN categories c ON c.id = p.category_id`

// Repository exposes catalog reads and product master-data writes. Stock
// decrements are not here on purpose: they happen only through
// ReserveStock inside a sale transaction.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Product, int, error)
	Get(ctx context.Context, id int64) (Product, error)
	GetByBarcode(ctx context.Context, barcode string) (Product, error)
	SearchByNameOrBarcode(ctx context.Context, term string, limit int) ([]Product, error)
	FindByName(ctx context.Context, name string, limit int) ([]Product, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, id int64, product Product) error
	Deactivate(ctx context.Context, id int64) error
	ListLowStock(ctx context.Context, limit int) ([]Product, error)
	ListCategories(ctx context.Context) ([]CategorySummary, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the PostgreSQL-backed catalog repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	where := ` WHERE p.is_active`
	args := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		where += ` AND (p.name ILIKE $` + strconv.Itoa(argCount) + ` OR p.barcode ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.CategoryID != nil {
		argCount++
		where += ` AND p.category_id = $` + strconv.Itoa(argCount)
		args = append(args, *filters.CategoryID)
	}
	if filters.LowStock {
		where += ` AND p.stock_quantity <= p.reorder_level`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products p`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + productColumns + productFrom + where + ` ORDER BY p.name ASC`
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

	products, err := scanProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+productFrom+` WHERE p.id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	return p, err
}

func (r *repository) GetByBarcode(ctx context.Context, barcode string) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+productFrom+` WHERE p.barcode = $1 AND p.is_active`, barcode)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	return p, err
}

func (r *repository) SearchByNameOrBarcode(ctx context.Context, term string, limit int) ([]Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+productFrom+`
		 WHERE p.is_active AND (p.name ILIKE $1 OR p.barcode ILIKE $1)
		 ORDER BY p.name ASC LIMIT $2`,
		"%"+term+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (r *repository) FindByName(ctx context.Context, name string, limit int) ([]Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+productFrom+`
		 WHERE p.is_active AND p.name ILIKE $1
		 ORDER BY p.name ASC LIMIT $2`,
		"%"+name+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (r *repository) Create(ctx context.Context, product Product) (Product, error) {
	now := time.Now().UTC()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO products (name, description, barcode, category_id, buying_price, selling_price,
		 tax_inclusive, stock_quantity, reorder_level, image_filename, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12) RETURNING id`,
		product.Name, product.Description, product.Barcode, product.CategoryID,
		product.BuyingPrice, product.SellingPrice, product.TaxInclusive,
		product.StockQuantity, product.ReorderLevel, product.ImageFilename,
		product.IsActive, now,
	).Scan(&product.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Product{}, ErrBarcodeTaken
		}
		return Product{}, err
	}
	product.CreatedAt = now
	product.UpdatedAt = now
	return product, nil
}

func (r *repository) Update(ctx context.Context, id int64, product Product) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE products SET name = $2, description = $3, barcode = $4, category_id = $5,
		 buying_price = $6, selling_price = $7, tax_inclusive = $8, reorder_level = $9,
		 image_filename = $10, is_active = $11, updated_at = NOW()
		 WHERE id = $1`,
		id, product.Name, product.Description, product.Barcode, product.CategoryID,
		product.BuyingPrice, product.SellingPrice, product.TaxInclusive,
		product.ReorderLevel, product.ImageFilename, product.IsActive,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrBarcodeTaken
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *repository) ListLowStock(ctx context.Context, limit int) ([]Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+productFrom+`
		 WHERE p.is_active AND p.stock_quantity <= p.reorder_level
		 ORDER BY p.stock_quantity ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (r *repository) ListCategories(ctx context.Context) ([]CategorySummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.name, c.description, c.created_at,
		        COUNT(p.id) FILTER (WHERE p.is_active) AS product_count
		 FROM categories c
		 LEFT JOIN products p ON p.category_id = c.id
		 GROUP BY c.id, c.name, c.description, c.created_at
		 ORDER BY c.name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CategorySummary
	for rows.Next() {
		var c CategorySummary
		var desc *string
		if err := rows.Scan(&c.ID, &c.Name, &desc, &c.CreatedAt, &c.ProductCount); err != nil {
			return nil, err
		}
		if desc != nil {
			c.Description = *desc
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var desc, image *string
	err := row.Scan(&p.ID, &p.Name, &desc, &p.Barcode, &p.CategoryID, &p.CategoryName,
		&p.BuyingPrice, &p.SellingPrice, &p.TaxInclusive, &p.StockQuantity, &p.ReorderLevel,
		&image, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	if desc != nil {
		p.Description = *desc
	}
	if image != nil {
		p.ImageFilename = *image
	}
	return p, nil
}

func scanProducts(rows pgx.Rows) ([]Product, error) {
	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
