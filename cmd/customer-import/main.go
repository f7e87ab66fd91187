// Command customer-import bulk-creates customers from a JSON-lines file.
// Files ending in .gz are decompressed on the fly.
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/crm/internal/domain/customer"
	"github.com/xenking/crm/internal/storage/postgres"
	"github.com/xenking/crm/internal/validation"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
)

func main() {
	var (
		databaseURL string
		path        string
		batchSize   int
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&path, "file", "", "JSON-lines file of {name, email, phone} objects, optionally .gz")
	flag.IntVar(&batchSize, "batch-size", 500, "rows per bulk create call")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if path == "" {
		slog.Error("input file is required: set --file")
		os.Exit(1)
	}
	if batchSize <= 0 {
		slog.Error("batch size must be positive", slog.Int("batch_size", batchSize))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, path, batchSize); err != nil {
		slog.Error("customer import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("customer import completed successfully")
}

// batch is a slice of rows with the file line each row came from.
type batch struct {
	lines []int
	rows  []customer.Input
}

// sourceLine maps a BulkCreate "Row N: reason" message, where N counts
// from 1 within the batch, to the file line of that row. Messages without
// a usable row number map to line 0 and are returned unchanged.
func (b batch) sourceLine(msg string) (int, string) {
	rest, ok := strings.CutPrefix(msg, "Row ")
	if !ok {
		return 0, msg
	}
	num, reason, ok := strings.Cut(rest, ": ")
	if !ok {
		return 0, msg
	}
	n, err := strconv.Atoi(num)
	if err != nil || n < 1 || n > len(b.lines) {
		return 0, msg
	}
	return b.lines[n-1], reason
}

// BulkCreator is the part of customer.Service used by the import.
type BulkCreator interface {
	BulkCreate(ctx context.Context, rows []customer.Input) customer.BulkResult
}

type stats struct {
	read, malformed, created, rejected int
}

func run(ctx context.Context, databaseURL, path string, batchSize int) error {
	in, err := openInput(path)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	customers := customer.NewService(postgres.NewCustomerRepository(pool), validation.New())

	st, err := importRows(ctx, in, customers, batchSize)
	slog.Info("import finished",
		slog.Int("read", st.read),
		slog.Int("malformed", st.malformed),
		slog.Int("created", st.created),
		slog.Int("rejected", st.rejected),
	)
	return err
}

// importRows reads rows and hands them to customers in batches. Reading
// and writing run concurrently; rows are still created in file order.
func importRows(ctx context.Context, r io.Reader, customers BulkCreator, batchSize int) (stats, error) {
	var st stats
	batches := make(chan batch, 2)
	seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(batches)

		var cur batch
		flush := func() error {
			if len(cur.rows) == 0 {
				return nil
			}
			select {
			case batches <- cur:
			case <-gctx.Done():
				return gctx.Err()
			}
			cur = batch{}
			return nil
		}

		err := readRows(gctx, r, func(line int, row customer.Input, err error) error {
			if err != nil {
				st.malformed++
				slog.Warn("malformed row skipped", slog.Int("line", line), slog.String("error", err.Error()))
				return nil
			}
			st.read++
			if seen.TestAndAddString(strings.ToLower(row.Email)) {
				slog.Warn("probable duplicate email in file", slog.Int("line", line), slog.String("email", row.Email))
			}

			cur.lines = append(cur.lines, line)
			cur.rows = append(cur.rows, row)
			if len(cur.rows) < batchSize {
				return nil
			}
			return flush()
		})
		if err != nil {
			return err
		}
		return flush()
	})

	g.Go(func() error {
		for b := range batches {
			res := customers.BulkCreate(gctx, b.rows)
			st.created += len(res.Customers)
			st.rejected += len(res.Errors)
			for _, msg := range res.Errors {
				line, reason := b.sourceLine(msg)
				slog.Warn("row rejected",
					slog.Int("line", line),
					slog.String("error", reason),
				)
			}
			slog.Info("batch imported",
				slog.Int("first_line", b.lines[0]),
				slog.Int("created", len(res.Customers)),
				slog.Int("rejected", len(res.Errors)),
			)
		}
		return gctx.Err()
	})

	err := g.Wait()
	return st, err
}
