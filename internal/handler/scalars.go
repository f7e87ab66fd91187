package handler

import (
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/shopspring/decimal"
)

// Decimal is a fixed-point amount. It serializes as a string with two
// fraction digits and accepts strings, integers and floats as input.
var Decimal = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "Decimal",
	Description: "Fixed-point amount with two fraction digits, serialized as a string.",
	Serialize: func(value any) any {
		switch v := value.(type) {
		case decimal.Decimal:
			return v.StringFixed(2)
		case *decimal.Decimal:
			if v == nil {
				return nil
			}
			return v.StringFixed(2)
		}
		return nil
	},
	ParseValue: parseDecimal,
	ParseLiteral: func(value ast.Value) any {
		switch v := value.(type) {
		case *ast.StringValue:
			return parseDecimal(v.Value)
		case *ast.IntValue:
			return parseDecimal(v.Value)
		case *ast.FloatValue:
			return parseDecimal(v.Value)
		}
		return nil
	},
})

// parseDecimal returns nil for values graphql-go should report as invalid.
func parseDecimal(value any) any {
	switch v := value.(type) {
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil
		}
		return d
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case decimal.Decimal:
		return v
	}
	return nil
}
