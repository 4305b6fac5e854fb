package pharmacy

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthbridge/healthbridge/internal/platform/apierror"
	"github.com/healthbridge/healthbridge/internal/platform/validation"
)

const msgNotFound = "Medicine not found."

// Directory resolves the display name of an account.
type Directory interface {
	DisplayName(ctx context.Context, id primitive.ObjectID) (string, error)
}

type Service struct {
	repo   Repository
	dir    Directory
	schema *validation.Schema
	now    func() time.Time
}

func NewService(repo Repository, dir Directory) *Service {
	s := &Service{repo: repo, dir: dir, now: time.Now}
	s.schema = newStockSchema().WithClock(func() time.Time { return s.now() })
	return s
}

// Add validates the payload and stores a new batch under the caller's name.
func (s *Service) Add(ctx context.Context, caller primitive.ObjectID, input map[string]any) (*Stock, error) {
	vals, err := s.schema.Validate(input)
	if err != nil {
		return nil, err
	}
	name, err := s.dir.DisplayName(ctx, caller)
	if err != nil {
		return nil, fmt.Errorf("resolve pharmacist: %w", err)
	}

	now := s.now().UTC()
	st := &Stock{
		ID:             primitive.NewObjectID(),
		PharmacistName: name,
		AddedBy:        caller,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	fill(st, vals)
	if err := s.repo.Create(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Service) List(ctx context.Context) ([]*Stock, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*Stock{}
	}
	return items, nil
}

// Update replaces the validated fields of an existing batch.
func (s *Service) Update(ctx context.Context, id primitive.ObjectID, input map[string]any) (*Stock, error) {
	vals, err := s.schema.Validate(input)
	if err != nil {
		return nil, err
	}
	st, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apierror.NotFoundAs(err, msgNotFound)
	}
	fill(st, vals)
	st.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, st); err != nil {
		return nil, apierror.NotFoundAs(err, msgNotFound)
	}
	return st, nil
}

func (s *Service) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return apierror.NotFoundAs(err, msgNotFound)
	}
	return nil
}

// Expired returns the batches already past their expiry date at now.
func (s *Service) Expired(ctx context.Context, now time.Time) ([]*Stock, error) {
	return s.repo.ExpiredBefore(ctx, now.UTC())
}

func fill(st *Stock, vals validation.Values) {
	st.MedicineName = vals.String("medicineName")
	st.Stock = vals.Int("stock")
	st.Price = vals.Float("price")
	st.ExpiryDate = vals.Time("expiryDate")
}
