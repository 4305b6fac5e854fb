package identity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthbridge/healthbridge/internal/platform/auth"
	"github.com/healthbridge/healthbridge/internal/platform/geo"
)

// User is an account of one of the self-registering roles. Only the details
// block matching Role is set.
type User struct {
	ID              primitive.ObjectID `json:"_id" bson:"_id"`
	Name            string             `json:"name" bson:"name"`
	Email           string             `json:"email" bson:"email"`
	Password        string             `json:"password,omitempty" bson:"password"`
	Role            auth.Role          `json:"role" bson:"role"`
	Phone           string             `json:"phone" bson:"phone"`
	ProfileImage    *string            `json:"profileImage" bson:"profileImage"`
	IsActive        bool               `json:"isActive" bson:"isActive"`
	PatientDetails  *PatientDetails    `json:"patientDetails,omitempty" bson:"patientDetails,omitempty"`
	DoctorDetails   *DoctorDetails     `json:"doctorDetails,omitempty" bson:"doctorDetails,omitempty"`
	PharmacyDetails *PharmacyDetails   `json:"pharmacyDetails,omitempty" bson:"pharmacyDetails,omitempty"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updatedAt"`
}

func (u User) DocumentID() primitive.ObjectID { return u.ID }

// Public returns a copy without the password hash, safe to send to clients.
func (u *User) Public() *User {
	cp := *u
	cp.Password = ""
	return &cp
}

type PatientDetails struct {
	Age              *int   `json:"age,omitempty" bson:"age,omitempty"`
	Gender           string `json:"gender,omitempty" bson:"gender,omitempty"`
	BloodGroup       string `json:"bloodGroup,omitempty" bson:"bloodGroup,omitempty"`
	Address          string `json:"address,omitempty" bson:"address,omitempty"`
	City             string `json:"city,omitempty" bson:"city,omitempty"`
	State            string `json:"state,omitempty" bson:"state,omitempty"`
	Pincode          string `json:"pincode,omitempty" bson:"pincode,omitempty"`
	EmergencyContact string `json:"emergencyContact,omitempty" bson:"emergencyContact,omitempty"`
}

type Availability struct {
	Day       string `json:"day" bson:"day"`
	StartTime string `json:"startTime" bson:"startTime"`
	EndTime   string `json:"endTime" bson:"endTime"`
}

type DoctorDetails struct {
	Specialization     string         `json:"specialization" bson:"specialization"`
	Qualifications     []string       `json:"qualifications" bson:"qualifications"`
	Experience         *int           `json:"experience,omitempty" bson:"experience,omitempty"`
	RegistrationNumber string         `json:"registrationNumber,omitempty" bson:"registrationNumber,omitempty"`
	ConsultationFee    float64        `json:"consultationFee" bson:"consultationFee"`
	About              string         `json:"about,omitempty" bson:"about,omitempty"`
	ClinicAddress      string         `json:"clinicAddress,omitempty" bson:"clinicAddress,omitempty"`
	City               string         `json:"city,omitempty" bson:"city,omitempty"`
	State              string         `json:"state,omitempty" bson:"state,omitempty"`
	Pincode            string         `json:"pincode,omitempty" bson:"pincode,omitempty"`
	Availability       []Availability `json:"availability" bson:"availability"`
	Rating             float64        `json:"rating" bson:"rating"`
	TotalRatings       int            `json:"totalRatings" bson:"totalRatings"`
}

type OperatingHours struct {
	Opening string `json:"opening" bson:"opening"`
	Closing string `json:"closing" bson:"closing"`
}

type PharmacyDetails struct {
	PharmacyName       string          `json:"pharmacyName" bson:"pharmacyName"`
	RegistrationNumber string          `json:"registrationNumber,omitempty" bson:"registrationNumber,omitempty"`
	LicenseNumber      string          `json:"licenseNumber,omitempty" bson:"licenseNumber,omitempty"`
	Address            string          `json:"address,omitempty" bson:"address,omitempty"`
	City               string          `json:"city,omitempty" bson:"city,omitempty"`
	State              string          `json:"state,omitempty" bson:"state,omitempty"`
	Pincode            string          `json:"pincode,omitempty" bson:"pincode,omitempty"`
	OperatingHours     *OperatingHours `json:"operatingHours,omitempty" bson:"operatingHours,omitempty"`
	DeliveryAvailable  bool            `json:"deliveryAvailable" bson:"deliveryAvailable"`
	Location           geo.Point       `json:"location" bson:"location"`
}

// Flexible holds a JSON scalar sent either as a string or as a number, as
// clients do for numeric form fields.
type Flexible string

func (f *Flexible) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = Flexible(s)
	case len(b) > 0 && (b[0] == '-' || (b[0] >= '0' && b[0] <= '9')):
		*f = Flexible(b)
	default:
		return fmt.Errorf("expected string or number, got %s", b)
	}
	return nil
}

func (f Flexible) Float() float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(string(f)), 64)
	return v
}

// RegisterInput is the flat registration body. Role specific fields are
// read only for the matching role.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Phone    string `json:"phone"`

	Age              *int   `json:"age"`
	Gender           string `json:"gender"`
	BloodGroup       string `json:"bloodGroup"`
	EmergencyContact string `json:"emergencyContact"`

	Specialization     string         `json:"specialization"`
	Qualifications     []string       `json:"qualifications"`
	Experience         *int           `json:"experience"`
	RegistrationNumber string         `json:"registrationNumber"`
	ConsultationFee    Flexible       `json:"consultationFee"`
	About              string         `json:"about"`
	ClinicAddress      string         `json:"clinicAddress"`
	Availability       []Availability `json:"availability"`

	PharmacyName      string          `json:"pharmacyName"`
	LicenseNumber     string          `json:"licenseNumber"`
	OperatingHours    *OperatingHours `json:"operatingHours"`
	DeliveryAvailable bool            `json:"deliveryAvailable"`
	Coordinates       []float64       `json:"coordinates"`

	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UpdateInput changes a user. Empty name and phone keep the stored values;
// a details block is merged field by field into the block of the user's
// role and ignored for other roles.
type UpdateInput struct {
	Name            string          `json:"name"`
	Phone           string          `json:"phone"`
	Password        string          `json:"password"`
	PatientDetails  json.RawMessage `json:"patientDetails"`
	DoctorDetails   json.RawMessage `json:"doctorDetails"`
	PharmacyDetails json.RawMessage `json:"pharmacyDetails"`
}

// Session is the body returned by register, login and profile updates.
type Session struct {
	ID    primitive.ObjectID `json:"_id"`
	Name  string             `json:"name"`
	Email string             `json:"email"`
	Role  auth.Role          `json:"role"`
	Token string             `json:"token"`
}
