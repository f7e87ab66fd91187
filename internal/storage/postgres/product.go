package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/crm/internal/domain/page"
	"github.com/xenking/crm/internal/domain/product"
)

const (
	productColumns = `id, name, price, stock, created_at, updated_at`

	createProductSQL = `INSERT INTO products (name, price, stock)
		VALUES ($1, $2, $3) RETURNING id, created_at, updated_at`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR SHARE`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products`

	productOrderBy = ` ORDER BY created_at DESC, id DESC`

	restockProductsSQL = `WITH updated AS (
			UPDATE products SET stock = $2, updated_at = now()
			WHERE stock < $1
			RETURNING ` + productColumns + `
		)
		SELECT ` + productColumns + ` FROM updated ORDER BY id`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	err := conn(ctx, r.pool).
		QueryRow(ctx, createProductSQL, p.Name, p.Price, p.Stock).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating product %q: %w", p.Name, err)
	}
	return nil
}

// GetByID returns a single product. Inside a transaction the row stays
// locked against concurrent updates until the transaction ends.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	return &p, nil
}

func (r *ProductRepository) List(ctx context.Context, f product.Filter, w page.Window) ([]product.Product, error) {
	wh := productWhere(f)
	sql := listProductsSQL + wh.String() + productOrderBy + wh.paginate(w)

	rows, err := conn(ctx, r.pool).Query(ctx, sql, wh.args...)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Restock updates all products below threshold in one statement, so
// concurrent runs never observe a partially restocked catalog.
func (r *ProductRepository) Restock(ctx context.Context, threshold, level int) ([]product.Product, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, restockProductsSQL, threshold, level)
	if err != nil {
		return nil, fmt.Errorf("restocking products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
