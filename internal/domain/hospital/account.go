package hospital

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthbridge/healthbridge/internal/platform/apierror"
	"github.com/healthbridge/healthbridge/internal/platform/auth"
	"github.com/healthbridge/healthbridge/internal/platform/docstore"
)

const (
	msgRequired           = "All required fields must be provided"
	msgAlreadyRegistered  = "Hospital already registered with this email"
	msgCredentials        = "Email and password required"
	msgInvalidCredentials = "Invalid credentials"
	msgHospitalNotFound   = "Hospital not found"
	msgPricingNotFound    = "Pricing item not found"
	msgPricingRequired    = "serviceType, name, and price are required"
)

// Register creates a hospital account and signs it in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if strings.TrimSpace(in.Name) == "" || email == "" || in.Password == "" || in.Latitude == nil || in.Longitude == nil {
		return nil, apierror.BadRequest(msgRequired)
	}
	loc, err := point(*in.Latitude, *in.Longitude)
	if err != nil {
		return nil, err
	}

	if _, err := s.accounts.FindByEmail(ctx, email); err == nil {
		return nil, apierror.BadRequest(msgAlreadyRegistered)
	} else if !errors.Is(err, docstore.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	specialties := in.Specialties
	if specialties == nil {
		specialties = []string{}
	}
	now := s.now().UTC()
	a := &Account{
		ID:                primitive.NewObjectID(),
		Name:              strings.TrimSpace(in.Name),
		Email:             email,
		Password:          hash,
		Location:          loc,
		Address:           in.Address,
		Phone:             in.Phone,
		Specialties:       specialties,
		Beds:              in.Beds,
		EmergencyServices: in.EmergencyServices,
		Pricing:           []PricingItem{},
		Role:              auth.RoleHospital,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.accounts.Create(ctx, a); err != nil {
		if errors.Is(err, docstore.ErrDuplicate) {
			return nil, apierror.BadRequest(msgAlreadyRegistered)
		}
		return nil, err
	}
	s.invalidate(ctx)
	return s.session(a, "Hospital registered successfully")
}

func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return nil, apierror.BadRequest(msgCredentials)
	}
	a, err := s.accounts.FindByEmail(ctx, email)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, apierror.Unauthorized(msgInvalidCredentials)
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(a.Password, in.Password) {
		return nil, apierror.Unauthorized(msgInvalidCredentials)
	}
	return s.session(a, "Login successful")
}

func (s *Service) session(a *Account, msg string) (*Session, error) {
	token, err := s.tokens.Issue(a.ID.Hex(), auth.RoleHospital, a.Email, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &Session{
		Message:  msg,
		Token:    token,
		Hospital: Summary{ID: a.ID, Name: a.Name, Email: a.Email, Role: auth.RoleHospital},
	}, nil
}

func (s *Service) Profile(ctx context.Context, id primitive.ObjectID) (*Account, error) {
	a, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, apierror.NotFoundAs(err, msgHospitalNotFound)
	}
	return a, nil
}

// Update applies the non-empty fields of in to the account.
func (s *Service) Update(ctx context.Context, id primitive.ObjectID, in UpdateInput) (*Account, error) {
	a, err := s.Profile(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != "" {
		a.Name = in.Name
	}
	if in.Address != "" {
		a.Address = in.Address
	}
	if in.Phone != "" {
		a.Phone = in.Phone
	}
	if in.Specialties != nil {
		a.Specialties = in.Specialties
	}
	if in.Beds != 0 {
		a.Beds = in.Beds
	}
	if in.EmergencyServices != nil {
		a.EmergencyServices = *in.EmergencyServices
	}
	if in.Latitude != nil && in.Longitude != nil {
		loc, err := point(*in.Latitude, *in.Longitude)
		if err != nil {
			return nil, err
		}
		a.Location = loc
	}
	if err := s.save(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) save(ctx context.Context, a *Account) error {
	a.UpdatedAt = s.now().UTC()
	if err := s.accounts.Update(ctx, a); err != nil {
		return apierror.NotFoundAs(err, msgHospitalNotFound)
	}
	s.invalidate(ctx)
	return nil
}

// AddPricing appends a catalog entry and returns the full catalog.
func (s *Service) AddPricing(ctx context.Context, id primitive.ObjectID, in PricingInput) ([]PricingItem, error) {
	if in.ServiceType == "" || in.Name == "" || in.Price == nil {
		return nil, apierror.BadRequest(msgPricingRequired)
	}
	a, err := s.Profile(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Pricing = append(a.Pricing, PricingItem{
		ID:          primitive.NewObjectID(),
		ServiceType: in.ServiceType,
		Name:        in.Name,
		Description: in.Description,
		Price:       *in.Price,
		Category:    in.Category,
	})
	if err := s.save(ctx, a); err != nil {
		return nil, err
	}
	return a.Pricing, nil
}

// UpdatePricing changes the non-empty fields of one catalog entry.
func (s *Service) UpdatePricing(ctx context.Context, id, pricingID primitive.ObjectID, in PricingInput) ([]PricingItem, error) {
	a, err := s.Profile(ctx, id)
	if err != nil {
		return nil, err
	}
	i := a.pricingIndex(pricingID)
	if i < 0 {
		return nil, apierror.NotFound(msgPricingNotFound)
	}
	item := &a.Pricing[i]
	if in.ServiceType != "" {
		item.ServiceType = in.ServiceType
	}
	if in.Name != "" {
		item.Name = in.Name
	}
	if in.Description != "" {
		item.Description = in.Description
	}
	if in.Price != nil {
		item.Price = *in.Price
	}
	if in.Category != "" {
		item.Category = in.Category
	}
	if err := s.save(ctx, a); err != nil {
		return nil, err
	}
	return a.Pricing, nil
}

func (s *Service) DeletePricing(ctx context.Context, id, pricingID primitive.ObjectID) ([]PricingItem, error) {
	a, err := s.Profile(ctx, id)
	if err != nil {
		return nil, err
	}
	i := a.pricingIndex(pricingID)
	if i < 0 {
		return nil, apierror.NotFound(msgPricingNotFound)
	}
	a.Pricing = append(a.Pricing[:i], a.Pricing[i+1:]...)
	if err := s.save(ctx, a); err != nil {
		return nil, err
	}
	return a.Pricing, nil
}
