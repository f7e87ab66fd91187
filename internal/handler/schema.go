package handler

import (
	"context"

	"github.com/graphql-go/graphql"

	"github.com/xenking/crm/internal/domain/customer"
	"github.com/xenking/crm/internal/domain/order"
	"github.com/xenking/crm/internal/domain/product"
)

// HelloMessage is returned by the hello query.
const HelloMessage = "Hello, GraphQL!"

type customerPayload struct {
	Customer customer.Customer
	Message  string
}

type productPayload struct {
	Product product.Product
}

type orderPayload struct {
	Order order.Order
}

var (
	pagingArgs = graphql.FieldConfigArgument{
		"first": {Type: graphql.Int},
		"after": {Type: graphql.String},
	}

	customerFilterArgs = graphql.FieldConfigArgument{
		"name":           {Type: graphql.String, Description: "Case-insensitive substring of the name."},
		"nameIcontains":  {Type: graphql.String},
		"email":          {Type: graphql.String, Description: "Case-insensitive substring of the email."},
		"emailIcontains": {Type: graphql.String},
		"createdAt":      {Type: graphql.DateTime},
		"createdAtGte":   {Type: graphql.DateTime},
		"createdAtLte":   {Type: graphql.DateTime},
		"phonePattern":   {Type: graphql.String, Description: "Phone prefix, e.g. \"+1\"."},
	}

	productFilterArgs = graphql.FieldConfigArgument{
		"name":          {Type: graphql.String},
		"nameIcontains": {Type: graphql.String},
		"price":         {Type: Decimal},
		"priceGte":      {Type: Decimal},
		"priceLte":      {Type: Decimal},
		"stock":         {Type: graphql.Int},
		"stockGte":      {Type: graphql.Int},
		"stockLte":      {Type: graphql.Int},
		"lowStock":      {Type: graphql.Boolean, Description: "Only products with stock below 10."},
	}

	orderFilterArgs = graphql.FieldConfigArgument{
		"totalAmount":    {Type: Decimal},
		"totalAmountGte": {Type: Decimal},
		"totalAmountLte": {Type: Decimal},
		"orderDate":      {Type: graphql.DateTime},
		"orderDateGte":   {Type: graphql.DateTime},
		"orderDateLte":   {Type: graphql.DateTime},
		"customerName":   {Type: graphql.String},
		"productName":    {Type: graphql.String},
		"productId":      {Type: graphql.ID},
	}
)

// withPaging returns args extended with first and after.
func withPaging(args graphql.FieldConfigArgument) graphql.FieldConfigArgument {
	out := make(graphql.FieldConfigArgument, len(args)+len(pagingArgs))
	for k, v := range args {
		out[k] = v
	}
	for k, v := range pagingArgs {
		out[k] = v
	}
	return out
}

// resolve adapts a resolver working on arguments and converts its errors.
func resolve(fn func(ctx context.Context, args map[string]any) (any, error)) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		v, err := fn(p.Context, p.Args)
		if err != nil {
			return nil, toGraphQLError(p.Context, err)
		}
		return v, nil
	}
}

func (h *Handler) newSchema() (graphql.Schema, error) {
	pageInfo := newPageInfoType()
	customerType := newCustomerType()
	productType := newProductType()
	orderType := newOrderType(customerType, productType)

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"hello": {
				Type: graphql.String,
				Resolve: func(graphql.ResolveParams) (any, error) {
					return HelloMessage, nil
				},
			},
			"allCustomers": {
				Type:    graphql.NewList(customerType),
				Resolve: resolve(h.allCustomers),
			},
			"allCustomersFiltered": {
				Type:    newConnectionType[customer.Customer]("Customer", customerType, pageInfo),
				Args:    withPaging(customerFilterArgs),
				Resolve: resolve(h.allCustomersFiltered),
			},
			"allProducts": {
				Type:    newConnectionType[product.Product]("Product", productType, pageInfo),
				Args:    withPaging(productFilterArgs),
				Resolve: resolve(h.allProducts),
			},
			"allOrders": {
				Type:    newConnectionType[order.Order]("Order", orderType, pageInfo),
				Args:    withPaging(orderFilterArgs),
				Resolve: resolve(h.allOrders),
			},
		},
	})

	customerInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "CustomerInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"name":  {Type: graphql.NewNonNull(graphql.String)},
			"email": {Type: graphql.NewNonNull(graphql.String)},
			"phone": {Type: graphql.String},
		},
	})
	productInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "ProductInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"name":  {Type: graphql.NewNonNull(graphql.String)},
			"price": {Type: graphql.NewNonNull(Decimal)},
			"stock": {Type: graphql.Int},
		},
	})
	orderInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "OrderInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"customerId": {Type: nonNullID},
			"productIds": {Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.ID)))},
			"orderDate":  {Type: graphql.DateTime},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createCustomer": {
				Type: graphql.NewObject(graphql.ObjectConfig{
					Name: "CreateCustomerPayload",
					Fields: graphql.Fields{
						"customer": {Type: customerType, Resolve: get(func(p customerPayload) any { return p.Customer })},
						"message":  {Type: graphql.String, Resolve: get(func(p customerPayload) any { return p.Message })},
					},
				}),
				Args: graphql.FieldConfigArgument{
					"name":  {Type: graphql.NewNonNull(graphql.String)},
					"email": {Type: graphql.NewNonNull(graphql.String)},
					"phone": {Type: graphql.String},
				},
				Resolve: resolve(h.createCustomer),
			},
			"bulkCreateCustomers": {
				Type: graphql.NewObject(graphql.ObjectConfig{
					Name: "BulkCreateCustomersPayload",
					Fields: graphql.Fields{
						"customers": {Type: graphql.NewList(customerType), Resolve: get(func(r customer.BulkResult) any {
							return nonNil(r.Customers)
						})},
						"errors": {Type: graphql.NewList(graphql.String), Resolve: get(func(r customer.BulkResult) any {
							return nonNil(r.Errors)
						})},
					},
				}),
				Args: graphql.FieldConfigArgument{
					"input": {Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(customerInput)))},
				},
				Resolve: resolve(h.bulkCreateCustomers),
			},
			"createProduct": {
				Type: graphql.NewObject(graphql.ObjectConfig{
					Name: "CreateProductPayload",
					Fields: graphql.Fields{
						"product": {Type: productType, Resolve: get(func(p productPayload) any { return p.Product })},
					},
				}),
				Args:    graphql.FieldConfigArgument{"input": {Type: graphql.NewNonNull(productInput)}},
				Resolve: resolve(h.createProduct),
			},
			"createOrder": {
				Type: graphql.NewObject(graphql.ObjectConfig{
					Name: "CreateOrderPayload",
					Fields: graphql.Fields{
						"order": {Type: orderType, Resolve: get(func(p orderPayload) any { return p.Order })},
					},
				}),
				Args:    graphql.FieldConfigArgument{"input": {Type: graphql.NewNonNull(orderInput)}},
				Resolve: resolve(h.createOrder),
			},
			"updateLowStockProducts": {
				Type: graphql.NewObject(graphql.ObjectConfig{
					Name: "UpdateLowStockProductsPayload",
					Fields: graphql.Fields{
						"updatedProducts": {Type: graphql.NewList(productType), Resolve: get(func(r product.RestockResult) any {
							return nonNil(r.Products)
						})},
						"message": {Type: graphql.String, Resolve: get(func(r product.RestockResult) any { return r.Message })},
					},
				}),
				Resolve: resolve(h.updateLowStockProducts),
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    query,
		Mutation: mutation,
	})
}
