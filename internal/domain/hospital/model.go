package hospital

import (
	"bytes"
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthbridge/healthbridge/internal/platform/auth"
	"github.com/healthbridge/healthbridge/internal/platform/geo"
)

// Hospital is a map marker added by a signed-in user.
type Hospital struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id"`
	Name      string             `json:"name" bson:"name"`
	Location  geo.Point          `json:"location" bson:"location"`
	AddedBy   primitive.ObjectID `json:"addedBy" bson:"addedBy"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

func (h Hospital) DocumentID() primitive.ObjectID { return h.ID }

type PricingItem struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id"`
	ServiceType string             `json:"serviceType" bson:"serviceType"`
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description" bson:"description"`
	Price       float64            `json:"price" bson:"price"`
	Category    string             `json:"category" bson:"category"`
}

// Account is a hospital that registered itself and signs in with its own
// credentials.
type Account struct {
	ID                primitive.ObjectID `json:"_id" bson:"_id"`
	Name              string             `json:"name" bson:"name"`
	Email             string             `json:"email" bson:"email"`
	Password          string             `json:"password,omitempty" bson:"password"`
	Location          geo.Point          `json:"location" bson:"location"`
	Address           string             `json:"address" bson:"address"`
	Phone             string             `json:"phone" bson:"phone"`
	Specialties       []string           `json:"specialties" bson:"specialties"`
	Beds              int                `json:"beds" bson:"beds"`
	EmergencyServices bool               `json:"emergencyServices" bson:"emergencyServices"`
	Pricing           []PricingItem      `json:"pricing" bson:"pricing"`
	Role              auth.Role          `json:"role" bson:"role"`
	CreatedAt         time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt" bson:"updatedAt"`
}

func (a Account) DocumentID() primitive.ObjectID { return a.ID }

func (a *Account) Public() *Account {
	cp := *a
	cp.Password = ""
	return &cp
}

func (a *Account) pricingIndex(id primitive.ObjectID) int {
	for i, p := range a.Pricing {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// TypeAccount marks directory entries that come from hospital accounts.
const TypeAccount = "hospital_account"

// AccountListing is the public projection of an account in the directory.
type AccountListing struct {
	ID                primitive.ObjectID `json:"_id"`
	Name              string             `json:"name"`
	Location          geo.Point          `json:"location"`
	Email             string             `json:"email"`
	Phone             string             `json:"phone"`
	Address           string             `json:"address"`
	Specialties       []string           `json:"specialties"`
	Beds              int                `json:"beds"`
	EmergencyServices bool               `json:"emergencyServices"`
	Pricing           []PricingItem      `json:"pricing"`
	Type              string             `json:"type"`
}

func listingOf(a *Account) *AccountListing {
	pricing := a.Pricing
	if pricing == nil {
		pricing = []PricingItem{}
	}
	specialties := a.Specialties
	if specialties == nil {
		specialties = []string{}
	}
	return &AccountListing{
		ID:                a.ID,
		Name:              a.Name,
		Location:          a.Location,
		Email:             a.Email,
		Phone:             a.Phone,
		Address:           a.Address,
		Specialties:       specialties,
		Beds:              a.Beds,
		EmergencyServices: a.EmergencyServices,
		Pricing:           pricing,
		Type:              TypeAccount,
	}
}

// Listing is one directory entry: either a marker or an account. It
// encodes as the underlying value.
type Listing struct {
	Marker  *Hospital
	Account *AccountListing
}

func (l Listing) MarshalJSON() ([]byte, error) {
	if l.Account != nil {
		return json.Marshal(l.Account)
	}
	return json.Marshal(l.Marker)
}

func (l *Listing) UnmarshalJSON(b []byte) error {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return err
	}
	if probe.Type == TypeAccount {
		l.Account = &AccountListing{}
		return json.Unmarshal(b, l.Account)
	}
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	l.Marker = &Hospital{}
	return json.Unmarshal(b, l.Marker)
}

// Location returns the point of either kind of entry.
func (l Listing) Location() geo.Point {
	if l.Account != nil {
		return l.Account.Location
	}
	if l.Marker != nil {
		return l.Marker.Location
	}
	return geo.Point{}
}

type MarkerInput struct {
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type RegisterInput struct {
	Name              string   `json:"name"`
	Email             string   `json:"email"`
	Password          string   `json:"password"`
	Latitude          *float64 `json:"latitude"`
	Longitude         *float64 `json:"longitude"`
	Address           string   `json:"address"`
	Phone             string   `json:"phone"`
	Specialties       []string `json:"specialties"`
	Beds              int      `json:"beds"`
	EmergencyServices bool     `json:"emergencyServices"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateInput changes an account. Empty values keep what is stored; the
// location changes only when both coordinates are given.
type UpdateInput struct {
	Name              string   `json:"name"`
	Address           string   `json:"address"`
	Phone             string   `json:"phone"`
	Specialties       []string `json:"specialties"`
	Beds              int      `json:"beds"`
	EmergencyServices *bool    `json:"emergencyServices"`
	Latitude          *float64 `json:"latitude"`
	Longitude         *float64 `json:"longitude"`
}

type PricingInput struct {
	ServiceType string   `json:"serviceType"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       *float64 `json:"price"`
	Category    string   `json:"category"`
}

// Summary is the account as returned next to a fresh token.
type Summary struct {
	ID    primitive.ObjectID `json:"id"`
	Name  string             `json:"name"`
	Email string             `json:"email"`
	Role  auth.Role          `json:"role"`
}

type Session struct {
	Message  string  `json:"message"`
	Token    string  `json:"token"`
	Hospital Summary `json:"hospital"`
}
