package auth

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role is one of the fixed account kinds. The zero value is not a valid role.
type Role string

const (
	RoleDoctor   Role = "doctor"
	RolePatient  Role = "patient"
	RolePharmacy Role = "pharmacy"
	RoleHospital Role = "hospital"
)

var roles = map[Role]string{
	RoleDoctor:   "Doctor",
	RolePatient:  "Patient",
	RolePharmacy: "Pharmacy",
	RoleHospital: "Hospital",
}

// ParseRole accepts the lower-case role names, ignoring surrounding space
// and case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	_, ok := roles[r]
	return ok
}

// Title is the capitalised name used in messages.
func (r Role) Title() string {
	return roles[r]
}

func (r Role) String() string { return string(r) }

func (r *Role) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*r = ""
		return nil
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
