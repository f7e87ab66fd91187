package customer

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/crm/internal/domain/page"
	"github.com/xenking/crm/internal/validation"
)

// CreatedMessage is returned alongside a newly created customer.
const CreatedMessage = "Customer created successfully"

// BulkResult is the outcome of BulkCreate. Every input row contributes
// either one entry to Customers or one entry to Errors, in input order.
type BulkResult struct {
	Customers []Customer
	Errors    []string
}

// Service implements customer creation and listing.
type Service struct {
	repo     Repository
	validate *validation.Validator
}

// NewService creates a customer Service.
func NewService(repo Repository, v *validation.Validator) *Service {
	return &Service{repo: repo, validate: v}
}

// Create validates in and stores a new customer. Email uniqueness is left
// to the storage layer, which reports *DuplicateEmailError.
func (s *Service) Create(ctx context.Context, in Input) (*Customer, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	c := &Customer{Name: in.Name, Email: in.Email, Phone: in.Phone}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, errors.Wrap(err, "create customer")
	}
	return c, nil
}

// BulkCreate creates customers one row at a time. Each row commits on its
// own, so a later row sees the emails of earlier rows of the same batch;
// a failing row is reported in Errors and never affects the others.
func (s *Service) BulkCreate(ctx context.Context, rows []Input) BulkResult {
	var res BulkResult
	for i, in := range rows {
		c, err := s.createRow(ctx, in)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: %s", i+1, err))
			continue
		}
		res.Customers = append(res.Customers, *c)
	}
	return res
}

func (s *Service) createRow(ctx context.Context, in Input) (*Customer, error) {
	exists, err := s.repo.EmailExists(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &DuplicateEmailError{Email: in.Email}
	}

	if in.Phone != "" && !validation.ValidPhone(in.Phone) {
		return nil, errors.Errorf("Invalid phone format for '%s'", in.Phone)
	}

	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	c := &Customer{Name: in.Name, Email: in.Email, Phone: in.Phone}
	if err := s.repo.Create(ctx, c); err != nil {
		// A concurrent insert of the same email loses here.
		return nil, err
	}
	return c, nil
}

// ListAll returns every customer, newest first.
func (s *Service) ListAll(ctx context.Context) ([]Customer, error) {
	customers, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list customers")
	}
	return customers, nil
}

// List returns one page of customers matching f.
func (s *Service) List(ctx context.Context, f Filter, req page.Request) (page.Connection[Customer], error) {
	w, err := req.Window()
	if err != nil {
		return page.Connection[Customer]{}, err
	}

	rows, err := s.repo.List(ctx, f, w)
	if err != nil {
		return page.Connection[Customer]{}, errors.Wrap(err, "list customers")
	}
	return page.Build(rows, w), nil
}
