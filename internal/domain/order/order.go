package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/crm/internal/domain/customer"
	"github.com/xenking/crm/internal/domain/page"
	"github.com/xenking/crm/internal/domain/product"
)

var (
	// ErrNoProducts is returned when an order is placed without products.
	ErrNoProducts = errors.New("At least one product must be selected")
	// ErrTotalTooLarge is returned when the order total does not fit the
	// stored amount.
	ErrTotalTooLarge = errors.New("Order total must be less than 100000000")
)

// CustomerNotFoundError indicates the order's customer does not exist.
type CustomerNotFoundError struct {
	ID string
}

func (e *CustomerNotFoundError) Error() string {
	return fmt.Sprintf("Customer with ID '%s' does not exist", e.ID)
}

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("Product with ID '%s' does not exist", e.ID)
}

// Order is a stored order with its customer and associated products.
// TotalAmount is fixed when the order is created.
type Order struct {
	ID          int64
	CustomerID  int64
	Customer    customer.Customer
	Products    []product.Product
	TotalAmount decimal.Decimal
	OrderDate   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateInput holds the input for creating an order. Ids are kept as the
// caller sent them so not-found errors can echo them back.
type CreateInput struct {
	CustomerID string
	ProductIDs []string
	// OrderDate defaults to the creation time when nil.
	OrderDate *time.Time
}

// Filter selects orders. Zero fields impose no constraint; all set fields
// are ANDed.
type Filter struct {
	TotalAmount    *decimal.Decimal
	TotalAmountGte *decimal.Decimal
	TotalAmountLte *decimal.Decimal

	OrderDate    *time.Time
	OrderDateGte *time.Time
	OrderDateLte *time.Time

	// CustomerName and ProductName are case-insensitive substrings matched
	// against the related customer and any associated product.
	CustomerName string
	ProductName  string
	// ProductID selects orders that include the product.
	ProductID *int64
}

// Repository persists orders.
type Repository interface {
	// Create inserts o together with its product associations and fills
	// its ID and timestamps.
	Create(ctx context.Context, o *Order) error
	// List returns at most w.Limit+1 matching orders starting at w.Offset,
	// with Customer and Products populated.
	List(ctx context.Context, f Filter, w page.Window) ([]Order, error)
}

// CustomerLookup resolves customers by id.
type CustomerLookup interface {
	GetByID(ctx context.Context, id int64) (*customer.Customer, error)
}

// ProductLookup resolves products by id.
type ProductLookup interface {
	GetByID(ctx context.Context, id int64) (*product.Product, error)
}

// Atomic runs fn in a single transaction.
type Atomic interface {
	RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error
}
