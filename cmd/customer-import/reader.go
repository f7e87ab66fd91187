package main

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"

	"github.com/xenking/crm/internal/domain/customer"
)

// maxLineSize bounds a single JSON line.
const maxLineSize = 1 << 20

type gzipFile struct {
	*pgzip.Reader
	f *os.File
}

func (g gzipFile) Close() error {
	err := g.Reader.Close()
	if ferr := g.f.Close(); err == nil {
		err = ferr
	}
	return err
}

// openInput opens path, decompressing it when the name ends in .gz.
func openInput(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}

	gz, err := pgzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "create gzip reader for %s", path)
	}
	return gzipFile{Reader: gz, f: f}, nil
}

// readRows calls fn for each non-blank line of r with its 1-based line
// number. A line that does not decode is passed with its error; returning
// an error from fn stops the scan.
func readRows(ctx context.Context, r io.Reader, fn func(line int, row customer.Input, err error) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}
		b := bytes.TrimSpace(scanner.Bytes())
		if len(b) == 0 {
			continue
		}
		row, err := decodeRow(b)
		if err := fn(line, row, err); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "scan input")
	}
	return nil
}

func decodeRow(b []byte) (customer.Input, error) {
	var row customer.Input
	err := jx.DecodeBytes(b).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			row.Name, err = d.Str()
		case "email":
			row.Email, err = d.Str()
		case "phone":
			if d.Next() == jx.Null {
				return d.Null()
			}
			row.Phone, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return customer.Input{}, errors.Wrap(err, "decode row")
	}
	return row, nil
}
