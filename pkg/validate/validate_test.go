package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/tagcatalog/pkg/validate"
)

type productInput struct {
	Article string  `form:"article" validate:"required,min=3,max=64"`
	Colour  string  `form:"colour"  validate:"required,max=64"`
	Size    string  `form:"size"    validate:"required,max=32"`
	Pair    string  `form:"pair"    validate:"required,max=16"`
	Price   string  `form:"price"   validate:"nullable,numeric,gte=0"`
	Role    string  `json:"role"    validate:"nullable,in=admin,viewer"`
	Notes   *string `json:"notes"   validate:"nullable,max=5"`
}

func strPtr(s string) *string { return &s }

func TestValidProduct(t *testing.T) {
	errs := validate.Struct(productInput{
		Article: "sketch-7", Colour: "black", Size: "6x9", Pair: "12", Price: "249.50",
	})
	assert.False(t, validate.HasErrors(errs), errs)
}

func TestRequiredFields(t *testing.T) {
	errs := validate.Struct(productInput{})
	assert.Contains(t, errs, "article")
	assert.Contains(t, errs, "colour")
	assert.Contains(t, errs, "size")
	assert.Contains(t, errs, "pair")
	assert.NotContains(t, errs, "price")
	assert.Equal(t, "The article field is required.", errs["article"])
}

func TestMinLengthAndNumeric(t *testing.T) {
	errs := validate.Struct(productInput{
		Article: "ab", Colour: "red", Size: "6x9", Pair: "1", Price: "free",
	})
	assert.Equal(t, "The article must be at least 3 characters.", errs["article"])
	assert.Equal(t, "The price field must be a number.", errs["price"])

	errs = validate.Struct(productInput{
		Article: "abc", Colour: "red", Size: "6x9", Pair: "1", Price: "-1",
	})
	assert.Contains(t, errs, "price")
}

func TestInWithMultipleValues(t *testing.T) {
	base := productInput{Article: "abc", Colour: "red", Size: "6x9", Pair: "1"}

	base.Role = "viewer"
	assert.Empty(t, validate.Struct(base))

	base.Role = "root"
	assert.Equal(t, "The selected role is invalid.", validate.Struct(base)["role"])
}

func TestPointerFields(t *testing.T) {
	base := productInput{Article: "abc", Colour: "red", Size: "6x9", Pair: "1"}

	base.Notes = strPtr("ok")
	assert.Empty(t, validate.Struct(base))

	base.Notes = strPtr("too long")
	assert.Contains(t, validate.Struct(base), "notes")
}

func TestEmail(t *testing.T) {
	type login struct {
		Email string `json:"email" validate:"required,email"`
	}
	assert.Contains(t, validate.Struct(login{Email: "nope"}), "email")
	assert.Empty(t, validate.Struct(login{Email: "admin@catalog.local"}))
}
