package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/crm/internal/domain/customer"
	"github.com/xenking/crm/internal/domain/page"
)

const (
	customerColumns = `id, name, email, phone, created_at, updated_at`

	customerEmailConstraint = "customers_email_key"

	createCustomerSQL = `INSERT INTO customers (name, email, phone)
		VALUES ($1, $2, $3) RETURNING id, created_at, updated_at`

	customerEmailExistsSQL = `SELECT EXISTS (SELECT 1 FROM customers WHERE email = $1)`

	// FOR SHARE keeps the row from being deleted while an order referencing
	// it is being created.
	getCustomerByIDSQL = `SELECT ` + customerColumns + ` FROM customers WHERE id = $1 FOR SHARE`

	listCustomersSQL = `SELECT ` + customerColumns + ` FROM customers`

	customerOrderBy = ` ORDER BY created_at DESC, id DESC`
)

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository backed by PostgreSQL.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// Create inserts c. A unique violation on the email column is reported as
// *customer.DuplicateEmailError.
func (r *CustomerRepository) Create(ctx context.Context, c *customer.Customer) error {
	err := conn(ctx, r.pool).
		QueryRow(ctx, createCustomerSQL, c.Name, c.Email, nullString(c.Phone)).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, customerEmailConstraint) {
			return &customer.DuplicateEmailError{Email: c.Email}
		}
		return fmt.Errorf("creating customer %q: %w", c.Email, err)
	}
	return nil
}

func (r *CustomerRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	if err := conn(ctx, r.pool).QueryRow(ctx, customerEmailExistsSQL, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking email %q: %w", email, err)
	}
	return exists, nil
}

func (r *CustomerRepository) GetByID(ctx context.Context, id int64) (*customer.Customer, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, getCustomerByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting customer %d: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCustomer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, fmt.Errorf("getting customer %d: %w", id, err)
	}
	return &c, nil
}

// ListAll returns every customer, newest first.
func (r *CustomerRepository) ListAll(ctx context.Context) ([]customer.Customer, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, listCustomersSQL+customerOrderBy)
	if err != nil {
		return nil, fmt.Errorf("listing customers: %w", err)
	}
	return pgx.CollectRows(rows, scanCustomer)
}

func (r *CustomerRepository) List(ctx context.Context, f customer.Filter, w page.Window) ([]customer.Customer, error) {
	wh := customerWhere(f)
	sql := listCustomersSQL + wh.String() + customerOrderBy + wh.paginate(w)

	rows, err := conn(ctx, r.pool).Query(ctx, sql, wh.args...)
	if err != nil {
		return nil, fmt.Errorf("listing customers: %w", err)
	}
	return pgx.CollectRows(rows, scanCustomer)
}

func scanCustomer(row pgx.CollectableRow) (customer.Customer, error) {
	var (
		c     customer.Customer
		phone *string
	)
	err := row.Scan(&c.ID, &c.Name, &c.Email, &phone, &c.CreatedAt, &c.UpdatedAt)
	if phone != nil {
		c.Phone = *phone
	}
	return c, err
}
