package medicine

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthbridge/healthbridge/internal/platform/apierror"
	"github.com/healthbridge/healthbridge/internal/platform/validation"
)

const msgNotFound = "Medicine not found"

// rules run against the medicine as it would be stored.
var rules = validation.NewChain(
	validation.NotEmpty("name", "Name is required", func(m *Medicine) string { return m.Name }),
	validation.Rule[*Medicine]{Field: "price", Message: "Price cannot be negative", Check: func(m *Medicine) bool { return m.Price >= 0 }},
	validation.Rule[*Medicine]{Field: "stock", Message: "Stock cannot be negative", Check: func(m *Medicine) bool { return m.Stock >= 0 }},
	validation.Rule[*Medicine]{Field: "pharmacyId", Message: "Pharmacy is required", Check: func(m *Medicine) bool { return !m.PharmacyID.IsZero() }},
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Create stores a new medicine for caller unless the input names another
// pharmacy. Price and stock are required; category defaults to General.
func (s *Service) Create(ctx context.Context, caller primitive.ObjectID, in Input) (*Medicine, error) {
	var errs validation.Errors
	if in.Price == nil {
		errs = append(errs, validation.FieldError{Field: "price", Message: "Price is required"})
	}
	if in.Stock == nil {
		errs = append(errs, validation.FieldError{Field: "stock", Message: "Stock is required"})
	}

	now := s.now().UTC()
	m := &Medicine{
		ID:         primitive.NewObjectID(),
		PharmacyID: caller,
		Category:   DefaultCategory,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := apply(m, in); err != nil {
		return nil, err
	}
	if err := rules.Validate(m); err != nil {
		errs = append(errs, err.(validation.Errors)...)
	}
	if len(errs) > 0 {
		return nil, errs
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (*Medicine, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apierror.NotFoundAs(err, msgNotFound)
	}
	return m, nil
}

func (s *Service) List(ctx context.Context, pharmacyID primitive.ObjectID) ([]*Medicine, error) {
	items, err := s.repo.List(ctx, pharmacyID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*Medicine{}
	}
	return items, nil
}

// Update applies the fields present in the input and re-validates the
// result.
func (s *Service) Update(ctx context.Context, id primitive.ObjectID, in Input) (*Medicine, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(m, in); err != nil {
		return nil, err
	}
	if err := rules.Validate(m); err != nil {
		return nil, err
	}
	m.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, apierror.NotFoundAs(err, msgNotFound)
	}
	return m, nil
}

func (s *Service) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return apierror.NotFoundAs(err, msgNotFound)
	}
	return nil
}

func apply(m *Medicine, in Input) error {
	if in.PharmacyID != nil && strings.TrimSpace(*in.PharmacyID) != "" {
		id, err := apierror.ParseID(*in.PharmacyID)
		if err != nil {
			return validation.Errors{{Field: "pharmacyId", Message: "Invalid pharmacy id"}}
		}
		m.PharmacyID = id
	}
	if in.Name != nil {
		m.Name = strings.TrimSpace(*in.Name)
	}
	if in.Price != nil {
		m.Price = *in.Price
	}
	if in.Stock != nil {
		m.Stock = *in.Stock
	}
	if in.Category != nil && strings.TrimSpace(*in.Category) != "" {
		m.Category = strings.TrimSpace(*in.Category)
	}
	if in.Description != nil {
		m.Description = *in.Description
	}
	return nil
}
