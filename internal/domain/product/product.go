package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/crm/internal/domain/page"
)

// LowStockThreshold is the stock level below which a product counts as
// low on stock.
const LowStockThreshold = 10

// PriceScale is the number of fraction digits a stored amount keeps.
const PriceScale = 2

// MaxAmount is the exclusive upper bound of a stored amount (NUMERIC(10,2)).
var MaxAmount = decimal.New(1, 8)

var (
	// ErrNotFound is returned when a product id does not resolve.
	ErrNotFound = errors.New("product not found")
	// ErrInvalidPrice is returned for a zero or negative price.
	ErrInvalidPrice = errors.New("Price must be positive")
	// ErrPricePrecision is returned for a price with more than two
	// fraction digits.
	ErrPricePrecision = errors.New("Price must have at most 2 decimal places")
	// ErrPriceTooLarge is returned for a price that does not fit the column.
	ErrPriceTooLarge = errors.New("Price must be less than 100000000")
	// ErrNegativeStock is returned for a negative stock value.
	ErrNegativeStock = errors.New("Stock cannot be negative")
)

// Product is a stored catalog entry. Price is a fixed-point amount with
// two fraction digits.
type Product struct {
	ID        int64
	Name      string
	Price     decimal.Decimal
	Stock     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Input holds the fields accepted when creating a product. A nil Stock
// defaults to zero.
type Input struct {
	Name  string          `json:"name" validate:"required,max=255"`
	Price decimal.Decimal `json:"price"`
	Stock *int            `json:"stock"`
}

// Filter selects products. Zero fields impose no constraint; all set
// fields are ANDed.
type Filter struct {
	NameContains []string

	Price    *decimal.Decimal
	PriceGte *decimal.Decimal
	PriceLte *decimal.Decimal

	Stock    *int
	StockGte *int
	StockLte *int

	// LowStock selects products with stock below LowStockThreshold.
	LowStock bool
}

// Repository persists products.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id int64) (*Product, error)
	// List returns at most w.Limit+1 matching products starting at w.Offset.
	List(ctx context.Context, f Filter, w page.Window) ([]Product, error)
	// Restock sets the stock of every product below threshold to level and
	// returns the updated products.
	Restock(ctx context.Context, threshold, level int) ([]Product, error)
}

// Atomic runs fn in a single transaction.
type Atomic interface {
	RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error
}
