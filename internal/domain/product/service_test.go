package product

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/crm/internal/domain/page"
	"github.com/xenking/crm/internal/validation"
)

// --- Mock implementations ---

type memRepo struct {
	products   []Product
	restockErr error
	lastWindow page.Window
}

func (m *memRepo) Create(_ context.Context, p *Product) error {
	p.ID = int64(len(m.products) + 1)
	m.products = append(m.products, *p)
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id int64) (*Product, error) {
	for _, p := range m.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memRepo) List(_ context.Context, f Filter, w page.Window) ([]Product, error) {
	m.lastWindow = w
	var out []Product
	for _, p := range m.products {
		if f.LowStock && p.Stock >= LowStockThreshold {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memRepo) Restock(_ context.Context, threshold, level int) ([]Product, error) {
	if m.restockErr != nil {
		return nil, m.restockErr
	}
	var updated []Product
	for i := range m.products {
		if m.products[i].Stock < threshold {
			m.products[i].Stock = level
			updated = append(updated, m.products[i])
		}
	}
	return updated, nil
}

type mockAtomic struct {
	calls int
}

func (m *mockAtomic) RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

func intPtr(v int) *int { return &v }

// --- Tests ---

func TestCreate(t *testing.T) {
	tests := []struct {
		name      string
		in        Input
		wantStock int
		wantErr   error
	}{
		{
			name:      "stock defaults to zero",
			in:        Input{Name: "Laptop", Price: decimal.RequireFromString("999.99")},
			wantStock: 0,
		},
		{
			name:      "explicit stock",
			in:        Input{Name: "Mouse", Price: decimal.RequireFromString("29.99"), Stock: intPtr(50)},
			wantStock: 50,
		},
		{
			name:    "zero price",
			in:      Input{Name: "Free", Price: decimal.Zero},
			wantErr: ErrInvalidPrice,
		},
		{
			name:    "negative price",
			in:      Input{Name: "Refund", Price: decimal.RequireFromString("-1.00")},
			wantErr: ErrInvalidPrice,
		},
		{
			name:    "more than two fraction digits",
			in:      Input{Name: "Dust", Price: decimal.RequireFromString("0.001")},
			wantErr: ErrPricePrecision,
		},
		{
			name:      "trailing zeros are fine",
			in:        Input{Name: "Pen", Price: decimal.RequireFromString("1.500")},
			wantStock: 0,
		},
		{
			name:    "price overflows the column",
			in:      Input{Name: "Yacht", Price: decimal.RequireFromString("123456789012.00")},
			wantErr: ErrPriceTooLarge,
		},
		{
			name:      "largest storable price",
			in:        Input{Name: "Island", Price: decimal.RequireFromString("99999999.99")},
			wantStock: 0,
		},
		{
			name:    "negative stock",
			in:      Input{Name: "Ghost", Price: decimal.NewFromInt(1), Stock: intPtr(-1)},
			wantErr: ErrNegativeStock,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &memRepo{}
			svc := NewService(repo, &mockAtomic{}, validation.New(), 0)

			p, err := svc.Create(context.Background(), tt.in)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, p)
				assert.Empty(t, repo.products)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.in.Name, p.Name)
			assert.True(t, tt.in.Price.Equal(p.Price))
			assert.Equal(t, tt.wantStock, p.Stock)
			assert.Len(t, repo.products, 1)
		})
	}
}

func TestCreate_NameRequired(t *testing.T) {
	svc := NewService(&memRepo{}, &mockAtomic{}, validation.New(), 0)

	_, err := svc.Create(context.Background(), Input{Price: decimal.NewFromInt(5)})

	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Fields[0].Field)
}

func TestList_LowStock(t *testing.T) {
	repo := &memRepo{products: []Product{
		{ID: 1, Name: "A", Stock: 0},
		{ID: 2, Name: "B", Stock: 9},
		{ID: 3, Name: "C", Stock: 10},
		{ID: 4, Name: "D", Stock: 100},
	}}
	svc := NewService(repo, &mockAtomic{}, validation.New(), 0)

	conn, err := svc.List(context.Background(), Filter{LowStock: true}, page.Request{})
	require.NoError(t, err)

	require.Len(t, conn.Edges, 2)
	assert.Equal(t, "A", conn.Edges[0].Node.Name)
	assert.Equal(t, "B", conn.Edges[1].Node.Name)
	assert.Equal(t, page.Window{Limit: page.DefaultLimit}, repo.lastWindow)
}

func TestRestock(t *testing.T) {
	repo := &memRepo{products: []Product{
		{ID: 1, Name: "Low", Stock: 3},
		{ID: 2, Name: "Fine", Stock: 40},
		{ID: 3, Name: "Empty", Stock: 0},
	}}
	tx := &mockAtomic{}
	svc := NewService(repo, tx, validation.New(), 25)

	res, err := svc.Restock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, tx.calls)
	require.Len(t, res.Products, 2)
	assert.Equal(t, "Low", res.Products[0].Name)
	assert.Equal(t, 25, res.Products[0].Stock)
	assert.Equal(t, "Empty", res.Products[1].Name)
	assert.Equal(t, "Restocked 2 low-stock products to 25", res.Message)

	// A second run finds nothing left to restock.
	res, err = svc.Restock(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Products)
	assert.Equal(t, "No low-stock products found", res.Message)
}

func TestRestock_LevelBelowThresholdUsesDefault(t *testing.T) {
	repo := &memRepo{products: []Product{{ID: 1, Name: "Low", Stock: 1}}}
	svc := NewService(repo, &mockAtomic{}, validation.New(), 5)

	res, err := svc.Restock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultRestockLevel, res.Products[0].Stock)
}

func TestRestock_Error(t *testing.T) {
	repo := &memRepo{restockErr: errors.New("deadlock detected")}
	svc := NewService(repo, &mockAtomic{}, validation.New(), 0)

	_, err := svc.Restock(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "restock products")
}
