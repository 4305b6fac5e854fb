package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Name, Email, Password, Fee string
}

func baseChain() *Chain[signup] {
	return NewChain(
		NotEmpty("name", "Name required", func(s signup) string { return s.Name }),
		Email("email", "Email required", func(s signup) string { return s.Email }),
		MinLen("password", "Password min 6", 6, func(s signup) string { return s.Password }),
	)
}

func TestChain_CollectsEveryFailure(t *testing.T) {
	err := baseChain().Validate(signup{Name: "  ", Email: "nope", Password: "123"})
	require.Error(t, err)

	var errs Errors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, []string{"Name required", "Email required", "Password min 6"}, errs.Messages())
	assert.Equal(t, "name", errs[0].Field)
	assert.Equal(t, "Name required", errs.First())
}

func TestChain_Valid(t *testing.T) {
	err := baseChain().Validate(signup{Name: "Asha", Email: "asha@example.com", Password: "secret1"})
	assert.NoError(t, err)
}

func TestChain_WithDoesNotMutate(t *testing.T) {
	base := baseChain()
	extended := base.With(Numeric("fee", "Consultation fee numeric", func(s signup) string { return s.Fee }))

	assert.Equal(t, 3, base.Len())
	assert.Equal(t, 4, extended.Len())

	in := signup{Name: "Asha", Email: "asha@example.com", Password: "secret1", Fee: "abc"}
	assert.NoError(t, base.Validate(in))
	assert.EqualError(t, extended.Validate(in), "Consultation fee numeric")
}

func TestNumeric(t *testing.T) {
	rule := Numeric("fee", "bad", func(s string) string { return s })
	for _, ok := range []string{"500", "-2.5", "+10", " 42 "} {
		assert.True(t, rule.Check(ok), ok)
	}
	for _, bad := range []string{"", "abc", "1e3", "5,00"} {
		assert.False(t, rule.Check(bad), bad)
	}
}

func TestMinLen_CountsRunes(t *testing.T) {
	rule := MinLen("p", "short", 3, func(s string) string { return s })
	assert.True(t, rule.Check("äöü"))
	assert.False(t, rule.Check("äö"))
}

func TestErrors_Empty(t *testing.T) {
	var errs Errors
	assert.Equal(t, "", errs.First())
	assert.NoError(t, errs.orNil())
}
