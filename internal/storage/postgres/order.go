package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/crm/internal/domain/order"
	"github.com/xenking/crm/internal/domain/page"
	"github.com/xenking/crm/internal/domain/product"
)

const (
	createOrderSQL = `INSERT INTO orders (customer_id, total_amount, order_date)
		VALUES ($1, $2, $3) RETURNING id, created_at, updated_at`

	linkOrderProductsSQL = `INSERT INTO order_products (order_id, product_id)
		SELECT $1, unnest($2::bigint[])
		ON CONFLICT DO NOTHING`

	listOrdersSQL = `SELECT o.id, o.customer_id, o.total_amount, o.order_date, o.created_at, o.updated_at,
			c.id, c.name, c.email, c.phone, c.created_at, c.updated_at
		FROM orders o
		JOIN customers c ON c.id = o.customer_id`

	orderOrderBy = ` ORDER BY o.order_date DESC, o.id DESC`

	listOrderProductsSQL = `SELECT op.order_id, p.id, p.name, p.price, p.stock, p.created_at, p.updated_at
		FROM order_products op
		JOIN products p ON p.id = op.product_id
		WHERE op.order_id = ANY($1)
		ORDER BY op.order_id, p.id`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
	tx   *Transactor
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool, tx: NewTransactor(pool)}
}

// Create persists the order row and its product associations. Both
// statements join the caller's transaction when there is one.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	ids := make([]int64, len(o.Products))
	for i, p := range o.Products {
		ids[i] = p.ID
	}

	return r.tx.RunAtomic(ctx, func(ctx context.Context) error {
		q := conn(ctx, r.pool)

		err := q.QueryRow(ctx, createOrderSQL, o.CustomerID, o.TotalAmount, o.OrderDate).
			Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return fmt.Errorf("creating order for customer %d: %w", o.CustomerID, err)
		}

		if _, err := q.Exec(ctx, linkOrderProductsSQL, o.ID, ids); err != nil {
			return fmt.Errorf("linking products to order %d: %w", o.ID, err)
		}
		return nil
	})
}

// List returns matching orders with their customer joined in and their
// products loaded by a second batched query.
func (r *OrderRepository) List(ctx context.Context, f order.Filter, w page.Window) ([]order.Order, error) {
	q := conn(ctx, r.pool)

	wh := orderWhere(f)
	sql := listOrdersSQL + wh.String() + orderOrderBy + wh.paginate(w)

	rows, err := q.Query(ctx, sql, wh.args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	index := make(map[int64]int, len(orders))
	ids := make([]int64, len(orders))
	for i, o := range orders {
		index[o.ID] = i
		ids[i] = o.ID
	}

	rows, err = q.Query(ctx, listOrderProductsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("listing order products: %w", err)
	}
	links, err := pgx.CollectRows(rows, scanOrderProduct)
	if err != nil {
		return nil, fmt.Errorf("listing order products: %w", err)
	}
	for _, l := range links {
		i := index[l.orderID]
		orders[i].Products = append(orders[i].Products, l.product)
	}

	return orders, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o     order.Order
		phone *string
	)
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.TotalAmount, &o.OrderDate, &o.CreatedAt, &o.UpdatedAt,
		&o.Customer.ID, &o.Customer.Name, &o.Customer.Email, &phone,
		&o.Customer.CreatedAt, &o.Customer.UpdatedAt,
	)
	if phone != nil {
		o.Customer.Phone = *phone
	}
	return o, err
}

type orderProduct struct {
	orderID int64
	product product.Product
}

func scanOrderProduct(row pgx.CollectableRow) (orderProduct, error) {
	var (
		l orderProduct
		p = &l.product
	)
	err := row.Scan(&l.orderID, &p.ID, &p.Name, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	return l, err
}
