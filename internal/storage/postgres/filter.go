package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xenking/crm/internal/domain/customer"
	"github.com/xenking/crm/internal/domain/order"
	"github.com/xenking/crm/internal/domain/page"
	"github.com/xenking/crm/internal/domain/product"
)

// where accumulates ANDed predicates and their positional arguments.
type where struct {
	conds []string
	args  []any
}

// bind appends v to the arguments and returns its placeholder.
func (w *where) bind(v any) string {
	w.args = append(w.args, v)
	return "$" + strconv.Itoa(len(w.args))
}

// add appends a predicate; format receives the placeholder for v.
func (w *where) add(format string, v any) {
	w.conds = append(w.conds, fmt.Sprintf(format, w.bind(v)))
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// paginate returns the LIMIT/OFFSET clause fetching one row past the
// window so the caller can tell whether a next page exists.
func (w *where) paginate(win page.Window) string {
	return " LIMIT " + w.bind(win.Limit+1) + " OFFSET " + w.bind(win.Offset)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func prefixPattern(s string) string {
	return likeEscaper.Replace(s) + "%"
}

func customerWhere(f customer.Filter) *where {
	w := &where{}
	for _, s := range f.NameContains {
		if s != "" {
			w.add("name ILIKE %s", containsPattern(s))
		}
	}
	for _, s := range f.EmailContains {
		if s != "" {
			w.add("email ILIKE %s", containsPattern(s))
		}
	}
	if f.CreatedAt != nil {
		w.add("created_at = %s", *f.CreatedAt)
	}
	if f.CreatedAtGte != nil {
		w.add("created_at >= %s", *f.CreatedAtGte)
	}
	if f.CreatedAtLte != nil {
		w.add("created_at <= %s", *f.CreatedAtLte)
	}
	if f.PhonePrefix != "" {
		w.add("phone LIKE %s", prefixPattern(f.PhonePrefix))
	}
	return w
}

func productWhere(f product.Filter) *where {
	w := &where{}
	for _, s := range f.NameContains {
		if s != "" {
			w.add("name ILIKE %s", containsPattern(s))
		}
	}
	if f.Price != nil {
		w.add("price = %s", *f.Price)
	}
	if f.PriceGte != nil {
		w.add("price >= %s", *f.PriceGte)
	}
	if f.PriceLte != nil {
		w.add("price <= %s", *f.PriceLte)
	}
	if f.Stock != nil {
		w.add("stock = %s", *f.Stock)
	}
	if f.StockGte != nil {
		w.add("stock >= %s", *f.StockGte)
	}
	if f.StockLte != nil {
		w.add("stock <= %s", *f.StockLte)
	}
	if f.LowStock {
		w.add("stock < %s", product.LowStockThreshold)
	}
	return w
}

// orderWhere qualifies columns with the o (orders) and c (customers)
// aliases used by listOrdersSQL. Product predicates are EXISTS sub-queries
// so an order matching several products is returned once.
func orderWhere(f order.Filter) *where {
	w := &where{}
	if f.TotalAmount != nil {
		w.add("o.total_amount = %s", *f.TotalAmount)
	}
	if f.TotalAmountGte != nil {
		w.add("o.total_amount >= %s", *f.TotalAmountGte)
	}
	if f.TotalAmountLte != nil {
		w.add("o.total_amount <= %s", *f.TotalAmountLte)
	}
	if f.OrderDate != nil {
		w.add("o.order_date = %s", *f.OrderDate)
	}
	if f.OrderDateGte != nil {
		w.add("o.order_date >= %s", *f.OrderDateGte)
	}
	if f.OrderDateLte != nil {
		w.add("o.order_date <= %s", *f.OrderDateLte)
	}
	if f.CustomerName != "" {
		w.add("c.name ILIKE %s", containsPattern(f.CustomerName))
	}
	if f.ProductName != "" {
		w.add(`EXISTS (SELECT 1 FROM order_products op JOIN products p ON p.id = op.product_id
		WHERE op.order_id = o.id AND p.name ILIKE %s)`, containsPattern(f.ProductName))
	}
	if f.ProductID != nil {
		w.add(`EXISTS (SELECT 1 FROM order_products op
		WHERE op.order_id = o.id AND op.product_id = %s)`, *f.ProductID)
	}
	return w
}
