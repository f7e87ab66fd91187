package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contact struct {
	Name  string `json:"name" validate:"required,max=10"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"omitempty,phone"`
}

func TestValidPhone(t *testing.T) {
	tests := []struct {
		phone string
		want  bool
	}{
		{"+1234567890", true},
		{"1234567", true},
		{"123-456-7890", true},
		{"+1 234", false},
		{"12-34", false},
		{"phone", false},
		{"+1234567890123456", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidPhone(tt.phone))
		})
	}
}

func TestValidator_Struct(t *testing.T) {
	v := New()

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, v.Struct(contact{Name: "Alice", Email: "a@x.com", Phone: "+1234567890"}))
	})

	t.Run("empty phone is allowed", func(t *testing.T) {
		require.NoError(t, v.Struct(contact{Name: "Alice", Email: "a@x.com"}))
	})

	t.Run("reports every field with api names", func(t *testing.T) {
		err := v.Struct(contact{Name: "Bartholomew The Third", Email: "not-an-email", Phone: "abc"})

		var verr *Error
		require.ErrorAs(t, err, &verr)
		require.Len(t, verr.Fields, 3)
		assert.Equal(t, FieldError{Field: "name", Message: "must be at most 10 characters"}, verr.Fields[0])
		assert.Equal(t, FieldError{Field: "email", Message: "must be a valid email address"}, verr.Fields[1])
		assert.Equal(t, FieldError{Field: "phone", Message: "invalid phone format"}, verr.Fields[2])
		assert.Equal(t,
			"name: must be at most 10 characters; email: must be a valid email address; phone: invalid phone format",
			err.Error())
	})

	t.Run("required", func(t *testing.T) {
		err := v.Struct(contact{})

		var verr *Error
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "is required", verr.Fields[0].Message)
	})
}
