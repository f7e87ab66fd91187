package product

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/crm/internal/domain/page"
	"github.com/xenking/crm/internal/validation"
)

// DefaultRestockLevel is the stock low-stock products are raised to.
const DefaultRestockLevel = LowStockThreshold

// RestockResult is the outcome of Restock.
type RestockResult struct {
	Products []Product
	Message  string
}

// Service implements product creation, listing and restocking.
type Service struct {
	repo         Repository
	tx           Atomic
	validate     *validation.Validator
	restockLevel int
}

// NewService creates a product Service. A restockLevel below
// LowStockThreshold is raised to DefaultRestockLevel.
func NewService(repo Repository, tx Atomic, v *validation.Validator, restockLevel int) *Service {
	if restockLevel < LowStockThreshold {
		restockLevel = DefaultRestockLevel
	}
	return &Service{
		repo:         repo,
		tx:           tx,
		validate:     v,
		restockLevel: restockLevel,
	}
}

// Create validates in and stores a new product.
func (s *Service) Create(ctx context.Context, in Input) (*Product, error) {
	switch {
	case !in.Price.IsPositive():
		return nil, ErrInvalidPrice
	case !in.Price.Equal(in.Price.Truncate(PriceScale)):
		return nil, ErrPricePrecision
	case in.Price.GreaterThanOrEqual(MaxAmount):
		return nil, ErrPriceTooLarge
	}
	stock := 0
	if in.Stock != nil {
		stock = *in.Stock
	}
	if stock < 0 {
		return nil, ErrNegativeStock
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	p := &Product{Name: in.Name, Price: in.Price, Stock: stock}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create product")
	}
	return p, nil
}

// List returns one page of products matching f.
func (s *Service) List(ctx context.Context, f Filter, req page.Request) (page.Connection[Product], error) {
	w, err := req.Window()
	if err != nil {
		return page.Connection[Product]{}, err
	}

	rows, err := s.repo.List(ctx, f, w)
	if err != nil {
		return page.Connection[Product]{}, errors.Wrap(err, "list products")
	}
	return page.Build(rows, w), nil
}

// Restock raises every low-stock product to the replenishment level in one
// transaction. Running it twice has the same effect as running it once.
func (s *Service) Restock(ctx context.Context) (*RestockResult, error) {
	var updated []Product
	err := s.tx.RunAtomic(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.repo.Restock(ctx, LowStockThreshold, s.restockLevel)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "restock products")
	}

	msg := "No low-stock products found"
	if len(updated) > 0 {
		msg = fmt.Sprintf("Restocked %d low-stock products to %d", len(updated), s.restockLevel)
	}
	return &RestockResult{Products: updated, Message: msg}, nil
}
