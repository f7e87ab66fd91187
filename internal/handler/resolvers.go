package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/crm/internal/domain/customer"
	"github.com/xenking/crm/internal/domain/order"
	"github.com/xenking/crm/internal/domain/page"
	"github.com/xenking/crm/internal/domain/product"
)

func (h *Handler) allCustomers(ctx context.Context, _ map[string]any) (any, error) {
	cs, err := h.customers.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return nonNil(cs), nil
}

func (h *Handler) allCustomersFiltered(ctx context.Context, args map[string]any) (any, error) {
	f := customer.Filter{
		NameContains:  textArgs(args, "name", "nameIcontains"),
		EmailContains: textArgs(args, "email", "emailIcontains"),
		CreatedAt:     timeArg(args, "createdAt"),
		CreatedAtGte:  timeArg(args, "createdAtGte"),
		CreatedAtLte:  timeArg(args, "createdAtLte"),
		PhonePrefix:   stringArg(args, "phonePattern"),
	}
	return h.customers.List(ctx, f, pageRequest(args))
}

func (h *Handler) allProducts(ctx context.Context, args map[string]any) (any, error) {
	f := product.Filter{
		NameContains: textArgs(args, "name", "nameIcontains"),
		Price:        decimalArg(args, "price"),
		PriceGte:     decimalArg(args, "priceGte"),
		PriceLte:     decimalArg(args, "priceLte"),
		Stock:        intArg(args, "stock"),
		StockGte:     intArg(args, "stockGte"),
		StockLte:     intArg(args, "stockLte"),
	}
	f.LowStock, _ = args["lowStock"].(bool)
	return h.products.List(ctx, f, pageRequest(args))
}

func (h *Handler) allOrders(ctx context.Context, args map[string]any) (any, error) {
	f := order.Filter{
		TotalAmount:    decimalArg(args, "totalAmount"),
		TotalAmountGte: decimalArg(args, "totalAmountGte"),
		TotalAmountLte: decimalArg(args, "totalAmountLte"),
		OrderDate:      timeArg(args, "orderDate"),
		OrderDateGte:   timeArg(args, "orderDateGte"),
		OrderDateLte:   timeArg(args, "orderDateLte"),
		CustomerName:   stringArg(args, "customerName"),
		ProductName:    stringArg(args, "productName"),
	}
	if raw := stringArg(args, "productId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, &argumentError{Name: "productId", Value: raw}
		}
		f.ProductID = &id
	}
	return h.orders.List(ctx, f, pageRequest(args))
}

func (h *Handler) createCustomer(ctx context.Context, args map[string]any) (any, error) {
	c, err := h.customers.Create(ctx, customerInput(args))
	if err != nil {
		return nil, err
	}
	return customerPayload{Customer: *c, Message: customer.CreatedMessage}, nil
}

func (h *Handler) bulkCreateCustomers(ctx context.Context, args map[string]any) (any, error) {
	rows, _ := args["input"].([]any)
	inputs := make([]customer.Input, 0, len(rows))
	for _, row := range rows {
		m, _ := row.(map[string]any)
		inputs = append(inputs, customerInput(m))
	}
	return h.customers.BulkCreate(ctx, inputs), nil
}

func (h *Handler) createProduct(ctx context.Context, args map[string]any) (any, error) {
	in, _ := args["input"].(map[string]any)

	p, err := h.products.Create(ctx, product.Input{
		Name:  stringArg(in, "name"),
		Price: valueOrZero(decimalArg(in, "price")),
		Stock: intArg(in, "stock"),
	})
	if err != nil {
		return nil, err
	}
	return productPayload{Product: *p}, nil
}

func (h *Handler) createOrder(ctx context.Context, args map[string]any) (any, error) {
	in, _ := args["input"].(map[string]any)

	raw, _ := in["productIds"].([]any)
	productIDs := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			productIDs = append(productIDs, s)
		}
	}

	o, err := h.orders.Create(ctx, order.CreateInput{
		CustomerID: stringArg(in, "customerId"),
		ProductIDs: productIDs,
		OrderDate:  timeArg(in, "orderDate"),
	})
	if err != nil {
		return nil, err
	}
	return orderPayload{Order: *o}, nil
}

func (h *Handler) updateLowStockProducts(ctx context.Context, _ map[string]any) (any, error) {
	return h.products.Restock(ctx)
}

func customerInput(m map[string]any) customer.Input {
	return customer.Input{
		Name:  stringArg(m, "name"),
		Email: stringArg(m, "email"),
		Phone: stringArg(m, "phone"),
	}
}

func pageRequest(args map[string]any) page.Request {
	return page.Request{
		First: intArg(args, "first"),
		After: stringArg(args, "after"),
	}
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

// textArgs collects the non-empty values of the named string arguments.
func textArgs(args map[string]any, names ...string) []string {
	var out []string
	for _, name := range names {
		if s := stringArg(args, name); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func intArg(args map[string]any, name string) *int {
	if v, ok := args[name].(int); ok {
		return &v
	}
	return nil
}

func timeArg(args map[string]any, name string) *time.Time {
	if v, ok := args[name].(time.Time); ok {
		return &v
	}
	return nil
}

func decimalArg(args map[string]any, name string) *decimal.Decimal {
	if v, ok := args[name].(decimal.Decimal); ok {
		return &v
	}
	return nil
}

func valueOrZero[T any](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}
