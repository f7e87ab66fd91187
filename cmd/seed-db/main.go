package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/crm/internal/domain/customer"
	"github.com/xenking/crm/internal/domain/order"
	"github.com/xenking/crm/internal/domain/page"
	"github.com/xenking/crm/internal/domain/product"
	"github.com/xenking/crm/internal/storage/postgres"
	"github.com/xenking/crm/internal/validation"
)

type seedFile struct {
	Customers []customer.Input `json:"customers"`
	Products  []struct {
		Name  string          `json:"name"`
		Price decimal.Decimal `json:"price"`
		Stock int             `json:"stock"`
	} `json:"products"`
	Orders []struct {
		Customer string   `json:"customer"`
		Products []string `json:"products"`
	} `json:"orders"`
}

func main() {
	var (
		databaseURL string
		seedPath    string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedPath, "seed-file", "db/seed/crm.json", "path to the seed JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, seedPath); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

type services struct {
	customers *customer.Service
	products  *product.Service
	orders    *order.Service
}

func run(ctx context.Context, databaseURL, seedPath string) error {
	slog.Info("reading seed file", slog.String("path", seedPath))

	data, err := os.ReadFile(seedPath)
	if err != nil {
		return errors.Wrap(err, "read seed file")
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return errors.Wrap(err, "parse seed JSON")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	svc := newServices(pool)

	seeded, err := alreadySeeded(ctx, svc.products)
	if err != nil {
		return err
	}
	if seeded {
		slog.Info("products already present, skipping seed")
		return nil
	}

	customerIDs := seedCustomers(ctx, svc.customers, seed.Customers)

	productIDs := make(map[string]string, len(seed.Products))
	for _, p := range seed.Products {
		stock := p.Stock
		created, err := svc.products.Create(ctx, product.Input{Name: p.Name, Price: p.Price, Stock: &stock})
		if err != nil {
			return errors.Wrapf(err, "create product %q", p.Name)
		}
		productIDs[p.Name] = strconv.FormatInt(created.ID, 10)
		slog.Info("created product", slog.String("name", p.Name), slog.String("price", p.Price.StringFixed(2)))
	}

	for _, o := range seed.Orders {
		customerID, ok := customerIDs[o.Customer]
		if !ok {
			return errors.Errorf("order references unknown customer %q", o.Customer)
		}
		ids := make([]string, len(o.Products))
		for i, name := range o.Products {
			if ids[i], ok = productIDs[name]; !ok {
				return errors.Errorf("order references unknown product %q", name)
			}
		}

		created, err := svc.orders.Create(ctx, order.CreateInput{CustomerID: customerID, ProductIDs: ids})
		if err != nil {
			return errors.Wrapf(err, "create order for %q", o.Customer)
		}
		slog.Info("created order",
			slog.Int64("id", created.ID),
			slog.String("customer", o.Customer),
			slog.String("total", created.TotalAmount.StringFixed(2)),
		)
	}

	return nil
}

func newServices(pool *pgxpool.Pool) services {
	v := validation.New()
	tx := postgres.NewTransactor(pool)
	customerRepo := postgres.NewCustomerRepository(pool)
	productRepo := postgres.NewProductRepository(pool)

	return services{
		customers: customer.NewService(customerRepo, v),
		products:  product.NewService(productRepo, tx, v, product.DefaultRestockLevel),
		orders:    order.NewService(customerRepo, productRepo, postgres.NewOrderRepository(pool), tx),
	}
}

func alreadySeeded(ctx context.Context, products *product.Service) (bool, error) {
	first := 1
	conn, err := products.List(ctx, product.Filter{}, page.Request{First: &first})
	if err != nil {
		return false, errors.Wrap(err, "check existing products")
	}
	return len(conn.Edges) > 0, nil
}

// seedCustomers creates the customers through the bulk path so a row that
// is already stored is reported and skipped. It returns the ids of the
// created customers keyed by email.
func seedCustomers(ctx context.Context, customers *customer.Service, rows []customer.Input) map[string]string {
	res := customers.BulkCreate(ctx, rows)
	for _, msg := range res.Errors {
		slog.Warn("customer skipped", slog.String("reason", msg))
	}

	ids := make(map[string]string, len(res.Customers))
	for _, c := range res.Customers {
		ids[c.Email] = strconv.FormatInt(c.ID, 10)
		slog.Info("created customer", slog.String("email", c.Email))
	}
	return ids
}
