package validation

import (
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Rule checks one aspect of a value of type T.
type Rule[T any] struct {
	Field   string
	Message string
	Check   func(T) bool
}

// Chain is an ordered set of rules. Validate runs every rule and collects
// all failures.
type Chain[T any] struct {
	rules []Rule[T]
}

func NewChain[T any](rules ...Rule[T]) *Chain[T] {
	return &Chain[T]{rules: append([]Rule[T](nil), rules...)}
}

// With returns a new chain with rules appended. The receiver is unchanged.
func (c *Chain[T]) With(rules ...Rule[T]) *Chain[T] {
	out := make([]Rule[T], 0, len(c.rules)+len(rules))
	out = append(out, c.rules...)
	out = append(out, rules...)
	return &Chain[T]{rules: out}
}

func (c *Chain[T]) Len() int { return len(c.rules) }

// Validate returns nil or an Errors value listing every failed rule.
func (c *Chain[T]) Validate(v T) error {
	var errs Errors
	for _, r := range c.rules {
		if !r.Check(v) {
			errs = append(errs, FieldError{Field: r.Field, Message: r.Message})
		}
	}
	return errs.orNil()
}

// NotEmpty fails when the field is blank after trimming.
func NotEmpty[T any](field, msg string, get func(T) string) Rule[T] {
	return Rule[T]{Field: field, Message: msg, Check: func(v T) bool {
		return strings.TrimSpace(get(v)) != ""
	}}
}

// Email fails unless the field is a well-formed address.
func Email[T any](field, msg string, get func(T) string) Rule[T] {
	return Rule[T]{Field: field, Message: msg, Check: func(v T) bool {
		return validate.Var(strings.TrimSpace(get(v)), "required,email") == nil
	}}
}

// MinLen fails when the field has fewer than n characters.
func MinLen[T any](field, msg string, n int, get func(T) string) Rule[T] {
	return Rule[T]{Field: field, Message: msg, Check: func(v T) bool {
		return utf8.RuneCountInString(get(v)) >= n
	}}
}

// Numeric fails unless the field is a decimal number such as "500" or "-2.5".
func Numeric[T any](field, msg string, get func(T) string) Rule[T] {
	return Rule[T]{Field: field, Message: msg, Check: func(v T) bool {
		return validate.Var(strings.TrimSpace(get(v)), "required,numeric") == nil
	}}
}
