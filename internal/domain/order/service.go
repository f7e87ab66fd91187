package order

import (
	"context"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/crm/internal/domain/customer"
	"github.com/xenking/crm/internal/domain/page"
	"github.com/xenking/crm/internal/domain/product"
)

// Service encapsulates order placement and listing.
type Service struct {
	customers CustomerLookup
	products  ProductLookup
	orders    Repository
	tx        Atomic
	now       func() time.Time
}

// NewService creates an order Service with the required dependencies.
func NewService(
	customers CustomerLookup,
	products ProductLookup,
	orders Repository,
	tx Atomic,
) *Service {
	return &Service{
		customers: customers,
		products:  products,
		orders:    orders,
		tx:        tx,
		now:       time.Now,
	}
}

// Create resolves the customer and products, computes the total and
// persists the order with its associations in one transaction. Products
// are resolved in input order and the first missing one aborts the call.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Order, error) {
	var o *Order
	err := s.tx.RunAtomic(ctx, func(ctx context.Context) error {
		c, err := s.resolveCustomer(ctx, in.CustomerID)
		if err != nil {
			return err
		}

		if len(in.ProductIDs) == 0 {
			return ErrNoProducts
		}

		// Total counts every listed id; the association set holds each
		// product once.
		total := decimal.Zero
		products := make([]product.Product, 0, len(in.ProductIDs))
		seen := make(map[int64]struct{}, len(in.ProductIDs))
		for _, id := range in.ProductIDs {
			p, err := s.resolveProduct(ctx, id)
			if err != nil {
				return err
			}
			total = total.Add(p.Price)
			if _, ok := seen[p.ID]; ok {
				continue
			}
			seen[p.ID] = struct{}{}
			products = append(products, *p)
		}

		if total.GreaterThanOrEqual(product.MaxAmount) {
			return ErrTotalTooLarge
		}

		orderDate := s.now()
		if in.OrderDate != nil {
			orderDate = *in.OrderDate
		}

		o = &Order{
			CustomerID:  c.ID,
			Customer:    *c,
			Products:    products,
			TotalAmount: total,
			OrderDate:   orderDate,
		}
		return s.orders.Create(ctx, o)
	})
	if err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return o, nil
}

func (s *Service) resolveCustomer(ctx context.Context, raw string) (*customer.Customer, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, &CustomerNotFoundError{ID: raw}
	}
	c, err := s.customers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			return nil, &CustomerNotFoundError{ID: raw}
		}
		return nil, errors.Wrapf(err, "get customer %s", raw)
	}
	return c, nil
}

func (s *Service) resolveProduct(ctx context.Context, raw string) (*product.Product, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, &ProductNotFoundError{ID: raw}
	}
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, &ProductNotFoundError{ID: raw}
		}
		return nil, errors.Wrapf(err, "get product %s", raw)
	}
	return p, nil
}

// List returns one page of orders matching f.
func (s *Service) List(ctx context.Context, f Filter, req page.Request) (page.Connection[Order], error) {
	w, err := req.Window()
	if err != nil {
		return page.Connection[Order]{}, err
	}

	rows, err := s.orders.List(ctx, f, w)
	if err != nil {
		return page.Connection[Order]{}, errors.Wrap(err, "list orders")
	}
	return page.Build(rows, w), nil
}
