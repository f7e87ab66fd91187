package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Job is a single stateless run. Failures are written to the job's log
// file before they are returned.
type Job interface {
	Run(ctx context.Context) error
}

// fail records err in log and returns it.
func fail(log *LogFile, err error) error {
	if werr := log.WriteError(err); werr != nil {
		return fmt.Errorf("%w (writing log file: %v)", err, werr)
	}
	return err
}

// Heartbeat records that the CRM is alive and that the GraphQL endpoint
// answers.
type Heartbeat struct {
	Client *Client
	Log    *LogFile
}

func (j *Heartbeat) Run(ctx context.Context) error {
	if err := j.Log.Write("CRM is alive"); err != nil {
		return err
	}

	hello, err := j.Client.Hello(ctx)
	if err != nil {
		return fail(j.Log, errors.Wrap(err, "GraphQL endpoint check failed"))
	}
	return j.Log.Write("GraphQL endpoint responsive: " + hello)
}

// LowStock restocks low-stock products through updateLowStockProducts.
type LowStock struct {
	Client *Client
	Log    *LogFile
}

func (j *LowStock) Run(ctx context.Context) error {
	res, err := j.Client.RestockLowStock(ctx)
	if err != nil {
		return fail(j.Log, err)
	}

	lines := make([]string, 0, len(res.Products)+1)
	lines = append(lines, res.Message)
	for _, p := range res.Products {
		lines = append(lines, fmt.Sprintf("Updated %s to stock level %d", p.Name, p.Stock))
	}
	return j.Log.Write(lines...)
}

// Report summarizes customers, orders and revenue.
type Report struct {
	Client *Client
	Log    *LogFile
	// Lookback restricts counted orders to the given window. Zero counts
	// every order.
	Lookback time.Duration

	now func() time.Time
}

func (j *Report) Run(ctx context.Context) error {
	now := time.Now
	if j.now != nil {
		now = j.now
	}
	var since time.Time
	if j.Lookback > 0 {
		since = now().Add(-j.Lookback)
	}

	var (
		customers int
		orders    int
		revenue   decimal.Decimal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		customers, err = j.Client.CountCustomers(gctx)
		return err
	})
	g.Go(func() error {
		return j.Client.EachOrder(gctx, since, func(o OrderSummary) error {
			orders++
			revenue = revenue.Add(o.TotalAmount)
			return nil
		})
	})
	if err := g.Wait(); err != nil {
		return fail(j.Log, err)
	}

	return j.Log.Write(fmt.Sprintf("Report: %d customers, %d orders, %s revenue",
		customers, orders, revenue.StringFixed(2)))
}

// ReminderWindow is how far back Reminders looks for orders.
const ReminderWindow = 7 * 24 * time.Hour

// Reminders lists the orders placed within ReminderWindow together with
// the customer to remind.
type Reminders struct {
	Client *Client
	Log    *LogFile

	now func() time.Time
}

func (j *Reminders) Run(ctx context.Context) error {
	now := time.Now
	if j.now != nil {
		now = j.now
	}

	var lines []string
	err := j.Client.EachOrder(ctx, now().Add(-ReminderWindow), func(o OrderSummary) error {
		lines = append(lines, fmt.Sprintf("Order ID: %s, Customer Email: %s", o.ID, o.CustomerEmail))
		return nil
	})
	if err != nil {
		return fail(j.Log, err)
	}

	return j.Log.Write(append([]string{fmt.Sprintf("Processing %d order reminders", len(lines))}, lines...)...)
}
