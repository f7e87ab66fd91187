package customer

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/crm/internal/domain/page"
)

// ErrNotFound is returned when a customer id does not resolve.
var ErrNotFound = errors.New("customer not found")

// DuplicateEmailError is returned when the email is already taken by
// another customer.
type DuplicateEmailError struct {
	Email string
}

func (e *DuplicateEmailError) Error() string {
	return fmt.Sprintf("Email '%s' already exists", e.Email)
}

// Customer is a stored customer record. Phone is empty when not provided.
type Customer struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Input holds the fields accepted when creating a customer.
type Input struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,max=254,email"`
	Phone string `json:"phone" validate:"omitempty,max=15,phone"`
}

// Filter selects customers. Zero fields impose no constraint; all set
// fields are ANDed.
type Filter struct {
	// NameContains and EmailContains hold case-insensitive substrings.
	NameContains  []string
	EmailContains []string

	CreatedAt    *time.Time
	CreatedAtGte *time.Time
	CreatedAtLte *time.Time

	// PhonePrefix matches phones starting with the given value.
	PhonePrefix string
}

// Repository persists customers.
type Repository interface {
	// Create inserts c and fills its ID and timestamps. It returns
	// *DuplicateEmailError when the email is already stored.
	Create(ctx context.Context, c *Customer) error
	EmailExists(ctx context.Context, email string) (bool, error)
	GetByID(ctx context.Context, id int64) (*Customer, error)
	ListAll(ctx context.Context) ([]Customer, error)
	// List returns at most w.Limit+1 matching customers starting at w.Offset.
	List(ctx context.Context, f Filter, w page.Window) ([]Customer, error)
}
