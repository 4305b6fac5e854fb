package pharmacy

import (
	"github.com/healthbridge/healthbridge/internal/platform/validation"
)

// newStockSchema declares the stock payload. pharmacistName is filled in by
// the server and is not part of it.
func newStockSchema() *validation.Schema {
	return validation.NewSchema(
		validation.Field{
			Name: "medicineName", Kind: validation.String, Required: true, Tag: "min=2,max=200",
			Messages: map[string]string{
				validation.MsgRequired: "Medicine name is required",
				validation.MsgType:     "Medicine name must be text",
				"min":                  "Medicine name must be at least 2 characters",
				"max":                  "Medicine name cannot exceed 200 characters",
			},
		},
		validation.Field{
			Name: "stock", Kind: validation.Integer, Required: true, Tag: "min=0",
			Messages: map[string]string{
				validation.MsgType:     "Stock must be a number",
				validation.MsgInteger:  "Stock must be a whole number",
				"min":                  "Stock cannot be negative",
				validation.MsgRequired: "Stock is required",
			},
		},
		validation.Field{
			Name: "price", Kind: validation.Number, Required: true, Tag: "min=0.01",
			Messages: map[string]string{
				validation.MsgType:     "Price must be a number",
				"min":                  "Price must be at least 0.01",
				validation.MsgRequired: "Price is required",
			},
		},
		validation.Field{
			Name: "expiryDate", Kind: validation.Date, Required: true, Tag: "future",
			Messages: map[string]string{
				validation.MsgType:     "Expiry date must be a valid date",
				"future":               "Expiry date must be in the future",
				validation.MsgRequired: "Expiry date is required",
			},
		},
	)
}
