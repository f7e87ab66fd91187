package handler

import (
	"strconv"

	"github.com/go-faster/errors"
	"github.com/graphql-go/graphql"

	"github.com/xenking/crm/internal/domain/customer"
	"github.com/xenking/crm/internal/domain/order"
	"github.com/xenking/crm/internal/domain/page"
	"github.com/xenking/crm/internal/domain/product"
)

// get adapts an accessor on T into a field resolver. Every field of the
// schema is mapped explicitly through it.
func get[T any](fn func(T) any) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		switch src := p.Source.(type) {
		case T:
			return fn(src), nil
		case *T:
			if src == nil {
				return nil, nil
			}
			return fn(*src), nil
		}
		return nil, errors.Errorf("unexpected source %T", p.Source)
	}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

var nonNullID = graphql.NewNonNull(graphql.ID)

func newCustomerType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Customer",
		Fields: graphql.Fields{
			"id": {Type: nonNullID, Resolve: get(func(c customer.Customer) any { return formatID(c.ID) })},
			"name": {Type: graphql.NewNonNull(graphql.String), Resolve: get(func(c customer.Customer) any {
				return c.Name
			})},
			"email": {Type: graphql.NewNonNull(graphql.String), Resolve: get(func(c customer.Customer) any {
				return c.Email
			})},
			"phone": {Type: graphql.String, Resolve: get(func(c customer.Customer) any {
				if c.Phone == "" {
					return nil
				}
				return c.Phone
			})},
			"createdAt": {Type: graphql.DateTime, Resolve: get(func(c customer.Customer) any { return c.CreatedAt })},
			"updatedAt": {Type: graphql.DateTime, Resolve: get(func(c customer.Customer) any { return c.UpdatedAt })},
		},
	})
}

func newProductType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Product",
		Fields: graphql.Fields{
			"id":        {Type: nonNullID, Resolve: get(func(p product.Product) any { return formatID(p.ID) })},
			"name":      {Type: graphql.NewNonNull(graphql.String), Resolve: get(func(p product.Product) any { return p.Name })},
			"price":     {Type: graphql.NewNonNull(Decimal), Resolve: get(func(p product.Product) any { return p.Price })},
			"stock":     {Type: graphql.NewNonNull(graphql.Int), Resolve: get(func(p product.Product) any { return p.Stock })},
			"createdAt": {Type: graphql.DateTime, Resolve: get(func(p product.Product) any { return p.CreatedAt })},
			"updatedAt": {Type: graphql.DateTime, Resolve: get(func(p product.Product) any { return p.UpdatedAt })},
		},
	})
}

func newOrderType(customerType, productType *graphql.Object) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Order",
		Fields: graphql.Fields{
			"id": {Type: nonNullID, Resolve: get(func(o order.Order) any { return formatID(o.ID) })},
			"customer": {Type: graphql.NewNonNull(customerType), Resolve: get(func(o order.Order) any {
				return o.Customer
			})},
			"products": {Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(productType))),
				Resolve: get(func(o order.Order) any { return nonNil(o.Products) })},
			"totalAmount": {Type: graphql.NewNonNull(Decimal), Resolve: get(func(o order.Order) any {
				return o.TotalAmount
			})},
			"orderDate": {Type: graphql.DateTime, Resolve: get(func(o order.Order) any { return o.OrderDate })},
			"createdAt": {Type: graphql.DateTime, Resolve: get(func(o order.Order) any { return o.CreatedAt })},
			"updatedAt": {Type: graphql.DateTime, Resolve: get(func(o order.Order) any { return o.UpdatedAt })},
		},
	})
}

func newPageInfoType() *graphql.Object {
	optional := func(s string) any {
		if s == "" {
			return nil
		}
		return s
	}
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "PageInfo",
		Fields: graphql.Fields{
			"hasNextPage": {Type: graphql.NewNonNull(graphql.Boolean), Resolve: get(func(i page.Info) any {
				return i.HasNextPage
			})},
			"hasPreviousPage": {Type: graphql.NewNonNull(graphql.Boolean), Resolve: get(func(i page.Info) any {
				return i.HasPreviousPage
			})},
			"startCursor": {Type: graphql.String, Resolve: get(func(i page.Info) any { return optional(i.StartCursor) })},
			"endCursor":   {Type: graphql.String, Resolve: get(func(i page.Info) any { return optional(i.EndCursor) })},
		},
	})
}

// newConnectionType returns the <name>Connection type listing nodes of
// type T.
func newConnectionType[T any](name string, node, pageInfo *graphql.Object) *graphql.Object {
	edge := graphql.NewObject(graphql.ObjectConfig{
		Name: name + "Edge",
		Fields: graphql.Fields{
			"cursor": {Type: graphql.NewNonNull(graphql.String), Resolve: get(func(e page.Edge[T]) any { return e.Cursor })},
			"node":   {Type: node, Resolve: get(func(e page.Edge[T]) any { return e.Node })},
		},
	})
	return graphql.NewObject(graphql.ObjectConfig{
		Name: name + "Connection",
		Fields: graphql.Fields{
			"edges": {Type: graphql.NewNonNull(graphql.NewList(edge)), Resolve: get(func(c page.Connection[T]) any {
				return nonNil(c.Edges)
			})},
			"pageInfo": {Type: graphql.NewNonNull(pageInfo), Resolve: get(func(c page.Connection[T]) any {
				return c.PageInfo
			})},
		},
	})
}

// nonNil turns a nil slice into an empty one so lists render as [].
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
