package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Kind is the type a schema field is coerced to before its constraints run.
type Kind int

const (
	String Kind = iota
	Integer
	Number
	Date
)

// Message keys used besides validator tag names.
const (
	MsgRequired = "required"
	MsgType     = "type"
	MsgInteger  = "integer"
)

// Field declares one input field. Tag holds go-playground/validator
// constraints applied to the coerced value; Messages maps a failing tag (or
// one of the Msg keys) to the text reported for it.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	Tag      string
	Messages map[string]string
}

// Values is the coerced result of a successful validation.
type Values map[string]any

func (v Values) String(name string) string {
	s, _ := v[name].(string)
	return s
}

func (v Values) Int(name string) int64 {
	n, _ := v[name].(int64)
	return n
}

func (v Values) Float(name string) float64 {
	f, _ := v[name].(float64)
	return f
}

func (v Values) Time(name string) time.Time {
	t, _ := v[name].(time.Time)
	return t
}

func (v Values) Has(name string) bool {
	_, ok := v[name]
	return ok
}

// Schema validates a decoded JSON object field by field, in declaration
// order.
type Schema struct {
	fields    []Field
	aggregate bool
	now       func() time.Time
	v         *validator.Validate
}

// NewSchema returns a schema that stops at the first violation. Date fields
// may use the "future" tag, satisfied by instants not before now.
func NewSchema(fields ...Field) *Schema {
	s := &Schema{fields: fields, now: time.Now}
	s.v = validator.New()
	_ = s.v.RegisterValidation("future", func(fl validator.FieldLevel) bool {
		t, ok := fl.Field().Interface().(time.Time)
		return ok && !t.Before(s.now())
	})
	return s
}

// Aggregate makes Validate report every violation instead of the first.
func (s *Schema) Aggregate() *Schema {
	s.aggregate = true
	return s
}

// WithClock replaces the time source used by the "future" constraint.
func (s *Schema) WithClock(now func() time.Time) *Schema {
	s.now = now
	return s
}

// Validate coerces and checks input. It returns the coerced values of every
// present field, or Errors.
func (s *Schema) Validate(input map[string]any) (Values, error) {
	out := make(Values, len(s.fields))
	var errs Errors
	for _, f := range s.fields {
		val, msg := s.field(f, input)
		if msg != "" {
			errs = append(errs, FieldError{Field: f.Name, Message: msg})
			if !s.aggregate {
				return nil, errs
			}
			continue
		}
		if val != nil {
			out[f.Name] = val
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

// field returns the coerced value of f, or the message of the violation.
func (s *Schema) field(f Field, input map[string]any) (any, string) {
	raw, present := input[f.Name]
	if !present || raw == nil || (f.Kind == String && raw == "") {
		if f.Required {
			return nil, f.message(MsgRequired)
		}
		return nil, ""
	}

	val, key := coerce(f.Kind, raw)
	if key != "" {
		return nil, f.message(key)
	}

	if f.Tag != "" {
		if err := s.v.Var(val, f.Tag); err != nil {
			if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
				return nil, f.message(verrs[0].Tag())
			}
			return nil, f.message(MsgType)
		}
	}
	return val, ""
}

func (f Field) message(key string) string {
	if m, ok := f.Messages[key]; ok {
		return m
	}
	switch key {
	case MsgRequired:
		return fmt.Sprintf("%s is required", f.Name)
	case MsgType, MsgInteger:
		return fmt.Sprintf("%s has the wrong type", f.Name)
	}
	return fmt.Sprintf("%s is invalid", f.Name)
}

// coerce converts a decoded JSON value to the Go type of kind. Numeric and
// date strings are accepted the way form posts send them.
func coerce(kind Kind, raw any) (any, string) {
	switch kind {
	case String:
		s, ok := raw.(string)
		if !ok {
			return nil, MsgType
		}
		s = strings.TrimSpace(s)
		if !utf8.ValidString(s) {
			return nil, MsgType
		}
		return s, ""
	case Number, Integer:
		n, ok := toFloat(raw)
		if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, MsgType
		}
		if kind == Number {
			return n, ""
		}
		if n != math.Trunc(n) || math.Abs(n) > 1<<53 {
			return nil, MsgInteger
		}
		return int64(n), ""
	case Date:
		t, ok := toTime(raw)
		if !ok {
			return nil, MsgType
		}
		return t, ""
	}
	return nil, MsgType
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"}

// toTime accepts RFC 3339 timestamps, bare dates (UTC midnight) and
// millisecond epoch numbers.
func toTime(raw any) (time.Time, bool) {
	switch v := raw.(type) {
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
	case float64:
		return time.UnixMilli(int64(v)).UTC(), true
	case time.Time:
		return v.UTC(), true
	}
	return time.Time{}, false
}

// ParseDate parses the date formats accepted by Date fields.
func ParseDate(s string) (time.Time, bool) {
	return toTime(s)
}
