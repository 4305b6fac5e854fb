package identity

import (
	"strconv"
	"strings"

	"github.com/healthbridge/healthbridge/internal/platform/auth"
	"github.com/healthbridge/healthbridge/internal/platform/validation"
)

var selfRegistering = map[auth.Role]bool{
	auth.RoleDoctor:   true,
	auth.RolePatient:  true,
	auth.RolePharmacy: true,
}

var baseRules = validation.NewChain(
	validation.NotEmpty("name", "Name required", func(in *RegisterInput) string { return in.Name }),
	validation.Email("email", "Email required", func(in *RegisterInput) string { return in.Email }),
	validation.MinLen("password", "Password min 6", 6, func(in *RegisterInput) string { return in.Password }),
	validation.Rule[*RegisterInput]{
		Field:   "role",
		Message: "Role must be patient, doctor or pharmacy",
		Check: func(in *RegisterInput) bool {
			r, err := auth.ParseRole(in.Role)
			return err == nil && selfRegistering[r]
		},
	},
)

var roleRules = map[auth.Role]*validation.Chain[*RegisterInput]{
	auth.RoleDoctor: baseRules.With(
		validation.NotEmpty("specialization", "Specialization required", func(in *RegisterInput) string { return in.Specialization }),
		validation.Numeric("consultationFee", "Consultation fee numeric", func(in *RegisterInput) string { return string(in.ConsultationFee) }),
		validation.Rule[*RegisterInput]{
			Field:   "consultationFee",
			Message: msgNegativeFee,
			Check:   func(in *RegisterInput) bool { return !negativeFee(string(in.ConsultationFee)) },
		},
	),
	auth.RolePharmacy: baseRules.With(
		validation.NotEmpty("pharmacyName", "Pharmacy name required", func(in *RegisterInput) string { return in.PharmacyName }),
	),
}

// registrationRules returns the base rules plus the rules of role.
func registrationRules(role auth.Role) *validation.Chain[*RegisterInput] {
	if c, ok := roleRules[role]; ok {
		return c
	}
	return baseRules
}

var passwordRule = validation.NewChain(
	validation.MinLen("password", "Password min 6", 6, func(in *UpdateInput) string { return in.Password }),
)

const msgNegativeFee = "Consultation fee must be 0 or more"

// negativeFee reports a numeric fee below zero. Text that is not a number
// is left to the numeric rule.
func negativeFee(s string) bool {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil && v < 0
}
