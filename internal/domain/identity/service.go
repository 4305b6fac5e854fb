package identity

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthbridge/healthbridge/internal/platform/apierror"
	"github.com/healthbridge/healthbridge/internal/platform/auth"
	"github.com/healthbridge/healthbridge/internal/platform/docstore"
	"github.com/healthbridge/healthbridge/internal/platform/geo"
	"github.com/healthbridge/healthbridge/internal/platform/validation"
)

const (
	msgUserExists         = "User exists"
	msgInvalidCredentials = "Invalid credentials"
	msgUserNotFound       = "User not found"
	msgDoctorNotFound     = "Doctor not found"
)

type Service struct {
	users  UserRepository
	tokens *auth.TokenIssuer
	now    func() time.Time
}

func NewService(users UserRepository, tokens *auth.TokenIssuer) *Service {
	return &Service{users: users, tokens: tokens, now: time.Now}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Register validates the payload against the rules of the requested role
// and creates the account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	role, _ := auth.ParseRole(in.Role)
	if err := registrationRules(role).Validate(&in); err != nil {
		return nil, err
	}

	email := normalizeEmail(in.Email)
	if _, err := s.users.FindByEmail(ctx, email, ""); err == nil {
		return nil, apierror.BadRequest(msgUserExists)
	} else if !errors.Is(err, docstore.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	u := &User{
		ID:        primitive.NewObjectID(),
		Name:      strings.TrimSpace(in.Name),
		Email:     email,
		Password:  hash,
		Role:      role,
		Phone:     strings.TrimSpace(in.Phone),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	switch role {
	case auth.RolePatient:
		u.PatientDetails = &PatientDetails{
			Age:              in.Age,
			Gender:           in.Gender,
			BloodGroup:       in.BloodGroup,
			Address:          in.Address,
			City:             in.City,
			State:            in.State,
			Pincode:          in.Pincode,
			EmergencyContact: in.EmergencyContact,
		}
	case auth.RoleDoctor:
		u.DoctorDetails = &DoctorDetails{
			Specialization:     strings.TrimSpace(in.Specialization),
			Qualifications:     nonNil(in.Qualifications),
			Experience:         in.Experience,
			RegistrationNumber: in.RegistrationNumber,
			ConsultationFee:    in.ConsultationFee.Float(),
			About:              in.About,
			ClinicAddress:      in.ClinicAddress,
			City:               in.City,
			State:              in.State,
			Pincode:            in.Pincode,
			Availability:       nonNil(in.Availability),
		}
	case auth.RolePharmacy:
		u.PharmacyDetails = &PharmacyDetails{
			PharmacyName:       strings.TrimSpace(in.PharmacyName),
			RegistrationNumber: in.RegistrationNumber,
			LicenseNumber:      in.LicenseNumber,
			Address:            in.Address,
			City:               in.City,
			State:              in.State,
			Pincode:            in.Pincode,
			OperatingHours:     in.OperatingHours,
			DeliveryAvailable:  in.DeliveryAvailable,
			Location:           pharmacyLocation(in.Coordinates),
		}
	}

	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, docstore.ErrDuplicate) {
			return nil, apierror.BadRequest(msgUserExists)
		}
		return nil, err
	}
	return s.session(u)
}

// pharmacyLocation accepts [lng, lat] and falls back to the origin for
// anything it cannot use.
func pharmacyLocation(coords []float64) geo.Point {
	if len(coords) != 2 {
		return geo.Origin()
	}
	p, err := geo.NewPoint(coords[1], coords[0])
	if err != nil {
		return geo.Origin()
	}
	return p
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Login checks the credentials. Every failure is reported the same way so
// callers cannot probe which emails exist.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	var role auth.Role
	if strings.TrimSpace(in.Role) != "" {
		r, err := auth.ParseRole(in.Role)
		if err != nil {
			return nil, apierror.Unauthorized(msgInvalidCredentials)
		}
		role = r
	}

	u, err := s.users.FindByEmail(ctx, normalizeEmail(in.Email), role)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, apierror.Unauthorized(msgInvalidCredentials)
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive || !auth.CheckPassword(u.Password, in.Password) {
		return nil, apierror.Unauthorized(msgInvalidCredentials)
	}
	return s.session(u)
}

func (s *Service) session(u *User) (*Session, error) {
	token, err := s.tokens.Issue(u.ID.Hex(), u.Role, u.Email, 0)
	if err != nil {
		return nil, err
	}
	return &Session{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, Token: token}, nil
}

func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apierror.NotFoundAs(err, msgUserNotFound)
	}
	return u, nil
}

func (s *Service) List(ctx context.Context, role auth.Role, limit, offset int) ([]*User, int, error) {
	items, total, err := s.users.List(ctx, role, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]*User, len(items))
	for i, u := range items {
		out[i] = u.Public()
	}
	return out, total, nil
}

// Update applies in to the user and stores the result.
func (s *Service) Update(ctx context.Context, id primitive.ObjectID, in UpdateInput) (*User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(in.Name); name != "" {
		u.Name = name
	}
	if phone := strings.TrimSpace(in.Phone); phone != "" {
		u.Phone = phone
	}
	if in.Password != "" {
		if err := passwordRule.Validate(&in); err != nil {
			return nil, err
		}
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		u.Password = hash
	}
	if err := mergeDetails(u, in); err != nil {
		return nil, err
	}

	u.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, u); err != nil {
		return nil, apierror.NotFoundAs(err, msgUserNotFound)
	}
	return u, nil
}

// UpdateProfile is Update for the caller's own account; it returns a fresh
// session so the client picks up a changed name.
func (s *Service) UpdateProfile(ctx context.Context, id primitive.ObjectID, in UpdateInput) (*Session, error) {
	u, err := s.Update(ctx, id, in)
	if err != nil {
		return nil, err
	}
	return s.session(u)
}

// mergeDetails decodes the block for the user's role over the stored one,
// so fields absent from the patch keep their values.
func mergeDetails(u *User, in UpdateInput) error {
	var (
		patch json.RawMessage
		dst   any
	)
	switch u.Role {
	case auth.RolePatient:
		if u.PatientDetails == nil {
			u.PatientDetails = &PatientDetails{}
		}
		patch, dst = in.PatientDetails, u.PatientDetails
	case auth.RoleDoctor:
		if u.DoctorDetails == nil {
			u.DoctorDetails = &DoctorDetails{}
		}
		patch, dst = in.DoctorDetails, u.DoctorDetails
	case auth.RolePharmacy:
		if u.PharmacyDetails == nil {
			u.PharmacyDetails = &PharmacyDetails{Location: geo.Origin()}
		}
		patch, dst = in.PharmacyDetails, u.PharmacyDetails
	}
	if len(patch) == 0 || string(patch) == "null" {
		return nil
	}
	if err := json.Unmarshal(patch, dst); err != nil {
		return validation.Errors{{Field: string(u.Role) + "Details", Message: "Invalid " + string(u.Role) + " details"}}
	}
	if u.DoctorDetails != nil && u.DoctorDetails.ConsultationFee < 0 {
		return validation.Errors{{Field: "consultationFee", Message: msgNegativeFee}}
	}
	return nil
}

func (s *Service) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	u.IsActive = false
	u.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, u); err != nil {
		return apierror.NotFoundAs(err, msgUserNotFound)
	}
	return nil
}

// DisplayName returns the account name shown on records the user creates.
func (s *Service) DisplayName(ctx context.Context, id primitive.ObjectID) (string, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return u.Name, nil
}

// doctor loads a doctor account. Accounts of other roles are reported as
// missing.
func (s *Service) doctor(ctx context.Context, id primitive.ObjectID) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apierror.NotFoundAs(err, msgDoctorNotFound)
	}
	if u.Role != auth.RoleDoctor {
		return nil, apierror.NotFound(msgDoctorNotFound)
	}
	if u.DoctorDetails == nil {
		u.DoctorDetails = &DoctorDetails{Qualifications: []string{}, Availability: []Availability{}}
	}
	return u, nil
}

// ConsultationFee returns the fee of a doctor account.
func (s *Service) ConsultationFee(ctx context.Context, doctorID primitive.ObjectID) (float64, error) {
	u, err := s.doctor(ctx, doctorID)
	if err != nil {
		return 0, err
	}
	return u.DoctorDetails.ConsultationFee, nil
}

// Doctor returns a doctor account without its password hash.
func (s *Service) Doctor(ctx context.Context, id primitive.ObjectID) (*User, error) {
	u, err := s.doctor(ctx, id)
	if err != nil {
		return nil, err
	}
	return u.Public(), nil
}

// ActiveDoctors returns every active doctor, newest first.
func (s *Service) ActiveDoctors(ctx context.Context) ([]*User, error) {
	items, err := s.users.Active(ctx, auth.RoleDoctor)
	if err != nil {
		return nil, err
	}
	out := make([]*User, len(items))
	for i, u := range items {
		out[i] = u.Public()
	}
	return out, nil
}

// SetAvailability replaces the weekly availability of a doctor.
func (s *Service) SetAvailability(ctx context.Context, id primitive.ObjectID, slots []Availability) ([]Availability, error) {
	u, err := s.doctor(ctx, id)
	if err != nil {
		return nil, err
	}
	u.DoctorDetails.Availability = nonNil(slots)
	u.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, u); err != nil {
		return nil, apierror.NotFoundAs(err, msgDoctorNotFound)
	}
	return u.DoctorDetails.Availability, nil
}

// SetRating stores the average review score of a doctor and the number of
// reviews it was computed from.
func (s *Service) SetRating(ctx context.Context, id primitive.ObjectID, rating float64, count int) error {
	u, err := s.doctor(ctx, id)
	if err != nil {
		return err
	}
	u.DoctorDetails.Rating = rating
	u.DoctorDetails.TotalRatings = count
	u.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, u); err != nil {
		return apierror.NotFoundAs(err, msgDoctorNotFound)
	}
	return nil
}
