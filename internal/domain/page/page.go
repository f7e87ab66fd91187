// Package page implements forward, offset-based cursor pagination for
// relay-style connections.
//
// Cursors encode an absolute offset as base64("arrayconnection:<offset>"),
// the same format graphene-django clients already understand.
package page

import (
	"encoding/base64"
	"math"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
)

const (
	// DefaultLimit is the page size used when First is not set.
	DefaultLimit = 100
	// MaxLimit is the largest page size a caller may request.
	MaxLimit = 100

	cursorPrefix = "arrayconnection:"
)

var (
	// ErrInvalidCursor is returned for cursors that were not produced by
	// EncodeCursor.
	ErrInvalidCursor = errors.New("invalid cursor")
	// ErrFirstOutOfRange is returned when First is negative or above MaxLimit.
	ErrFirstOutOfRange = errors.New("first must be between 0 and 100")
)

// Request holds the pagination arguments of a connection field.
type Request struct {
	First *int
	After string
}

// Window is the resolved slice of a listing: rows [Offset, Offset+Limit).
type Window struct {
	Offset int
	Limit  int
}

// Window validates the request and converts it to an offset window.
func (r Request) Window() (Window, error) {
	limit := DefaultLimit
	if r.First != nil {
		if *r.First < 0 || *r.First > MaxLimit {
			return Window{}, ErrFirstOutOfRange
		}
		limit = *r.First
	}

	offset := 0
	if r.After != "" {
		after, err := DecodeCursor(r.After)
		if err != nil {
			return Window{}, err
		}
		offset = after + 1
	}
	return Window{Offset: offset, Limit: limit}, nil
}

// EncodeCursor returns the opaque cursor for the row at offset.
func EncodeCursor(offset int) string {
	return base64.StdEncoding.EncodeToString([]byte(cursorPrefix + strconv.Itoa(offset)))
}

// DecodeCursor returns the offset stored in cursor.
func DecodeCursor(cursor string) (int, error) {
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0, ErrInvalidCursor
	}
	s, ok := strings.CutPrefix(string(raw), cursorPrefix)
	if !ok {
		return 0, ErrInvalidCursor
	}
	offset, err := strconv.Atoi(s)
	// The next page starts at offset+1, which must not overflow.
	if err != nil || offset < 0 || offset == math.MaxInt {
		return 0, ErrInvalidCursor
	}
	return offset, nil
}

// Edge is a single node of a connection with its cursor.
type Edge[T any] struct {
	Cursor string
	Node   T
}

// Info describes the position of a page within the full listing.
type Info struct {
	HasNextPage     bool
	HasPreviousPage bool
	StartCursor     string
	EndCursor       string
}

// Connection is one page of a listing.
type Connection[T any] struct {
	Edges    []Edge[T]
	PageInfo Info
}

// Build assembles a connection from rows fetched with limit w.Limit+1:
// the extra row, when present, only signals that a next page exists.
func Build[T any](rows []T, w Window) Connection[T] {
	hasNext := len(rows) > w.Limit
	if hasNext {
		rows = rows[:w.Limit]
	}

	edges := make([]Edge[T], len(rows))
	for i, row := range rows {
		edges[i] = Edge[T]{Cursor: EncodeCursor(w.Offset + i), Node: row}
	}

	info := Info{
		HasNextPage:     hasNext,
		HasPreviousPage: w.Offset > 0,
	}
	if len(edges) > 0 {
		info.StartCursor = edges[0].Cursor
		info.EndCursor = edges[len(edges)-1].Cursor
	}
	return Connection[T]{Edges: edges, PageInfo: info}
}
