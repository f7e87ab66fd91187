package handler

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/crm/internal/domain/customer"
	"github.com/xenking/crm/internal/domain/order"
	"github.com/xenking/crm/internal/domain/page"
	"github.com/xenking/crm/internal/domain/product"
	"github.com/xenking/crm/internal/validation"
)

// Error codes reported in the extensions of GraphQL errors.
const (
	CodeValidation = "VALIDATION"
	CodeNotFound   = "NOT_FOUND"
	CodeConflict   = "CONFLICT"
	CodeInternal   = "INTERNAL"
)

// Error is a resolver error carrying a machine-readable code. graphql-go
// copies Extensions into the formatted error.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Extensions() map[string]any {
	return map[string]any{"code": e.Code}
}

// argumentError reports an argument value the schema types cannot reject.
type argumentError struct {
	Name  string
	Value string
}

func (e *argumentError) Error() string {
	return fmt.Sprintf("Invalid value '%s' for argument %s", e.Value, e.Name)
}

var (
	validationErrors = []error{
		product.ErrInvalidPrice,
		product.ErrPricePrecision,
		product.ErrPriceTooLarge,
		product.ErrNegativeStock,
		order.ErrNoProducts,
		order.ErrTotalTooLarge,
		page.ErrInvalidCursor,
		page.ErrFirstOutOfRange,
	}
	notFoundErrors = []error{
		customer.ErrNotFound,
		product.ErrNotFound,
	}
)

// toGraphQLError classifies a service error. Unclassified errors are logged
// and hidden behind a generic message.
func toGraphQLError(ctx context.Context, err error) *Error {
	var (
		valErr  *validation.Error
		argErr  *argumentError
		dupErr  *customer.DuplicateEmailError
		custErr *order.CustomerNotFoundError
		prodErr *order.ProductNotFoundError
	)
	switch {
	case errors.As(err, &valErr):
		return &Error{Code: CodeValidation, Message: valErr.Error()}
	case errors.As(err, &argErr):
		return &Error{Code: CodeValidation, Message: argErr.Error()}
	case errors.As(err, &dupErr):
		return &Error{Code: CodeConflict, Message: dupErr.Error()}
	case errors.As(err, &custErr):
		return &Error{Code: CodeNotFound, Message: custErr.Error()}
	case errors.As(err, &prodErr):
		return &Error{Code: CodeNotFound, Message: prodErr.Error()}
	}

	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return &Error{Code: CodeValidation, Message: target.Error()}
		}
	}
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return &Error{Code: CodeNotFound, Message: target.Error()}
		}
	}

	zctx.From(ctx).Error("Resolver failed", zap.Error(err))
	return &Error{Code: CodeInternal, Message: "internal error"}
}
