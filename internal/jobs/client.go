// Package jobs implements the scheduled CRM jobs. Each job talks to the
// GraphQL API over HTTP and appends its outcome to a plain log file.
package jobs

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// ResponseError holds the messages of a GraphQL errors array.
type ResponseError struct {
	Messages []string
}

func (e *ResponseError) Error() string {
	return "graphql: " + strings.Join(e.Messages, "; ")
}

// Client is a minimal GraphQL client for the CRM API.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient returns a Client posting to endpoint. A nil httpClient uses a
// client with a 30 second timeout.
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{endpoint: endpoint, http: httpClient}
}

// do posts query with the variables written by vars and hands the data
// object of the response to data. vars and data may be nil.
func (c *Client) do(ctx context.Context, query string, vars func(e *jx.Encoder), data func(d *jx.Decoder) error) error {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("query")
	e.Str(query)
	if vars != nil {
		e.FieldStart("variables")
		e.ObjStart()
		vars(&e)
		e.ObjEnd()
	}
	e.ObjEnd()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(e.Bytes()))
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "br")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "send request")
	}
	defer func() { _ = resp.Body.Close() }()

	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "br" {
		body = brotli.NewReader(resp.Body)
	}

	var messages []string
	err = jx.Decode(body, 4096).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "data":
			if d.Next() == jx.Null || data == nil {
				return d.Skip()
			}
			return data(d)
		case "errors":
			return d.Arr(func(d *jx.Decoder) error {
				return d.Obj(func(d *jx.Decoder, key string) error {
					if key != "message" {
						return d.Skip()
					}
					msg, err := d.Str()
					messages = append(messages, msg)
					return err
				})
			})
		default:
			return d.Skip()
		}
	})
	if len(messages) > 0 {
		return &ResponseError{Messages: messages}
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

// field decodes the object at d, handing the value of key to fn and
// skipping every other member.
func field(d *jx.Decoder, key string, fn func(d *jx.Decoder) error) error {
	return d.Obj(func(d *jx.Decoder, k string) error {
		if k != key {
			return d.Skip()
		}
		return fn(d)
	})
}

const helloQuery = `query { hello }`

// Hello runs the hello query.
func (c *Client) Hello(ctx context.Context) (string, error) {
	var hello string
	err := c.do(ctx, helloQuery, nil, func(d *jx.Decoder) error {
		return field(d, "hello", func(d *jx.Decoder) error {
			var err error
			hello, err = d.Str()
			return err
		})
	})
	return hello, err
}

const restockMutation = `mutation {
	updateLowStockProducts {
		updatedProducts { name stock }
		message
	}
}`

// StockLevel is the stock of a product after restocking.
type StockLevel struct {
	Name  string
	Stock int
}

// RestockResult is the outcome of the updateLowStockProducts mutation.
type RestockResult struct {
	Message  string
	Products []StockLevel
}

// RestockLowStock runs the updateLowStockProducts mutation.
func (c *Client) RestockLowStock(ctx context.Context) (*RestockResult, error) {
	res := &RestockResult{}
	err := c.do(ctx, restockMutation, nil, func(d *jx.Decoder) error {
		return field(d, "updateLowStockProducts", func(d *jx.Decoder) error {
			return d.Obj(func(d *jx.Decoder, key string) error {
				switch key {
				case "message":
					var err error
					res.Message, err = d.Str()
					return err
				case "updatedProducts":
					return d.Arr(func(d *jx.Decoder) error {
						var p StockLevel
						err := d.Obj(func(d *jx.Decoder, key string) error {
							var err error
							switch key {
							case "name":
								p.Name, err = d.Str()
							case "stock":
								p.Stock, err = d.Int()
							default:
								err = d.Skip()
							}
							return err
						})
						res.Products = append(res.Products, p)
						return err
					})
				default:
					return d.Skip()
				}
			})
		})
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

const customersQuery = `query { allCustomers { id } }`

// CountCustomers returns the number of customers.
func (c *Client) CountCustomers(ctx context.Context) (int, error) {
	var n int
	err := c.do(ctx, customersQuery, nil, func(d *jx.Decoder) error {
		return field(d, "allCustomers", func(d *jx.Decoder) error {
			return d.Arr(func(d *jx.Decoder) error {
				n++
				return d.Skip()
			})
		})
	})
	return n, err
}

const ordersQuery = `query Orders($first: Int, $after: String, $orderDateGte: DateTime) {
	allOrders(first: $first, after: $after, orderDateGte: $orderDateGte) {
		edges { node { id totalAmount customer { email } } }
		pageInfo { hasNextPage endCursor }
	}
}`

// ordersPageSize is the page size requested by EachOrder.
const ordersPageSize = 100

// OrderSummary is the part of an order the jobs need.
type OrderSummary struct {
	ID            string
	TotalAmount   decimal.Decimal
	CustomerEmail string
}

type ordersPage struct {
	orders    []OrderSummary
	hasNext   bool
	endCursor string
}

// EachOrder calls fn for every order, following pagination until the last
// page. A non-zero since restricts orders to order dates at or after it.
func (c *Client) EachOrder(ctx context.Context, since time.Time, fn func(OrderSummary) error) error {
	var after string
	for {
		p, err := c.ordersPage(ctx, since, after)
		if err != nil {
			return err
		}
		for _, o := range p.orders {
			if err := fn(o); err != nil {
				return err
			}
		}
		if !p.hasNext || p.endCursor == "" {
			return nil
		}
		after = p.endCursor
	}
}

func (c *Client) ordersPage(ctx context.Context, since time.Time, after string) (*ordersPage, error) {
	vars := func(e *jx.Encoder) {
		e.FieldStart("first")
		e.Int(ordersPageSize)
		if after != "" {
			e.FieldStart("after")
			e.Str(after)
		}
		if !since.IsZero() {
			e.FieldStart("orderDateGte")
			e.Str(since.UTC().Format(time.RFC3339))
		}
	}

	p := &ordersPage{}
	err := c.do(ctx, ordersQuery, vars, func(d *jx.Decoder) error {
		return field(d, "allOrders", func(d *jx.Decoder) error {
			return d.Obj(func(d *jx.Decoder, key string) error {
				switch key {
				case "edges":
					return d.Arr(func(d *jx.Decoder) error {
						return field(d, "node", func(d *jx.Decoder) error {
							o, err := decodeOrder(d)
							p.orders = append(p.orders, o)
							return err
						})
					})
				case "pageInfo":
					return d.Obj(func(d *jx.Decoder, key string) error {
						var err error
						switch key {
						case "hasNextPage":
							p.hasNext, err = d.Bool()
						case "endCursor":
							if d.Next() == jx.Null {
								return d.Null()
							}
							p.endCursor, err = d.Str()
						default:
							err = d.Skip()
						}
						return err
					})
				default:
					return d.Skip()
				}
			})
		})
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func decodeOrder(d *jx.Decoder) (OrderSummary, error) {
	var o OrderSummary
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			var err error
			o.ID, err = d.Str()
			return err
		case "totalAmount":
			s, err := d.Str()
			if err != nil {
				return err
			}
			o.TotalAmount, err = decimal.NewFromString(s)
			return err
		case "customer":
			return field(d, "email", func(d *jx.Decoder) error {
				var err error
				o.CustomerEmail, err = d.Str()
				return err
			})
		default:
			return d.Skip()
		}
	})
	return o, err
}
