// Package handler exposes the CRM services as a GraphQL API over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/crm/internal/domain/customer"
	"github.com/xenking/crm/internal/domain/order"
	"github.com/xenking/crm/internal/domain/page"
	"github.com/xenking/crm/internal/domain/product"
)

const (
	instrumentationName = "github.com/xenking/crm/internal/handler"

	// maxBodySize bounds the size of a POSTed GraphQL request.
	maxBodySize = 1 << 20
)

// CustomerService is the customer functionality used by the API.
type CustomerService interface {
	Create(ctx context.Context, in customer.Input) (*customer.Customer, error)
	BulkCreate(ctx context.Context, rows []customer.Input) customer.BulkResult
	ListAll(ctx context.Context) ([]customer.Customer, error)
	List(ctx context.Context, f customer.Filter, req page.Request) (page.Connection[customer.Customer], error)
}

// ProductService is the product functionality used by the API.
type ProductService interface {
	Create(ctx context.Context, in product.Input) (*product.Product, error)
	List(ctx context.Context, f product.Filter, req page.Request) (page.Connection[product.Product], error)
	Restock(ctx context.Context) (*product.RestockResult, error)
}

// OrderService is the order functionality used by the API.
type OrderService interface {
	Create(ctx context.Context, in order.CreateInput) (*order.Order, error)
	List(ctx context.Context, f order.Filter, req page.Request) (page.Connection[order.Order], error)
}

// Config holds the dependencies of a Handler. Nil providers fall back to
// the global OpenTelemetry providers.
type Config struct {
	Customers CustomerService
	Products  ProductService
	Orders    OrderService

	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Handler serves GraphQL requests.
type Handler struct {
	customers CustomerService
	products  ProductService
	orders    OrderService

	schema   graphql.Schema
	tracer   trace.Tracer
	requests metric.Int64Counter
	failures metric.Int64Counter
}

// NewHandler builds the GraphQL schema and the handler instruments.
func NewHandler(cfg Config) (*Handler, error) {
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = otel.GetMeterProvider()
	}

	h := &Handler{
		customers: cfg.Customers,
		products:  cfg.Products,
		orders:    cfg.Orders,
		tracer:    cfg.TracerProvider.Tracer(instrumentationName),
	}

	meter := cfg.MeterProvider.Meter(instrumentationName)
	var err error
	if h.requests, err = meter.Int64Counter("crm.graphql.requests",
		metric.WithDescription("GraphQL operations executed"),
	); err != nil {
		return nil, errors.Wrap(err, "create requests counter")
	}
	if h.failures, err = meter.Int64Counter("crm.graphql.errors",
		metric.WithDescription("GraphQL operations that returned errors"),
	); err != nil {
		return nil, errors.Wrap(err, "create errors counter")
	}

	if h.schema, err = h.newSchema(); err != nil {
		return nil, errors.Wrap(err, "build schema")
	}
	return h, nil
}

// Request is the JSON body of a GraphQL request.
type Request struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
	OperationName string         `json:"operationName"`
}

// Execute runs req against the schema in its own span.
func (h *Handler) Execute(ctx context.Context, req Request) *graphql.Result {
	name := req.OperationName
	if name == "" {
		name = "anonymous"
	}

	ctx, span := h.tracer.Start(ctx, "graphql "+name,
		trace.WithAttributes(attribute.String("graphql.operation.name", name)),
	)
	defer span.End()

	res := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})

	attrs := metric.WithAttributes(attribute.String("operation", name))
	h.requests.Add(ctx, 1, attrs)
	if res.HasErrors() {
		h.failures.Add(ctx, 1, attrs)
		span.SetStatus(codes.Error, res.Errors[0].Message)
	}
	return res
}

// ServeHTTP accepts queries as a POSTed JSON body or through the query,
// variables and operationName URL parameters of a GET request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req Request
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
		if v := q.Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &req.Variables); err != nil {
				writeError(w, http.StatusBadRequest, "variables must be a JSON object")
				return
			}
		}
	case http.MethodPost:
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "request body must be a JSON object")
			return
		}
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	writeJSON(w, http.StatusOK, h.Execute(r.Context(), req))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, &graphql.Result{
		Errors: []gqlerrors.FormattedError{gqlerrors.NewFormattedError(msg)},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
