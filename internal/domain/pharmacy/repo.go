package pharmacy

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthbridge/healthbridge/internal/platform/docstore"
)

type Repository interface {
	Create(ctx context.Context, s *Stock) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*Stock, error)
	List(ctx context.Context) ([]*Stock, error)
	// ExpiredBefore returns batches whose expiry date is before t.
	ExpiredBefore(ctx context.Context, t time.Time) ([]*Stock, error)
	Update(ctx context.Context, s *Stock) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// Collection describes the pharmacies collection.
var Collection = docstore.Spec{Name: "pharmacies"}

type storeRepo struct {
	coll docstore.Collection[Stock]
}

func NewStoreRepo(store *docstore.Store) Repository {
	return &storeRepo{coll: docstore.Use[Stock](store, Collection)}
}

func (r *storeRepo) Create(ctx context.Context, s *Stock) error {
	if err := r.coll.Insert(ctx, s); err != nil {
		return fmt.Errorf("insert stock: %w", err)
	}
	return nil
}

func (r *storeRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*Stock, error) {
	s, err := r.coll.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get stock %s: %w", id.Hex(), err)
	}
	return s, nil
}

func (r *storeRepo) List(ctx context.Context) ([]*Stock, error) {
	items, err := r.coll.Find(ctx, docstore.Filter{}, docstore.FindOptions{})
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	return items, nil
}

func (r *storeRepo) ExpiredBefore(ctx context.Context, t time.Time) ([]*Stock, error) {
	items, err := r.coll.Find(ctx, docstore.Filter{"expiryDate": docstore.Lt(t)},
		docstore.FindOptions{SortField: "expiryDate", SortOrder: docstore.Ascending})
	if err != nil {
		return nil, fmt.Errorf("find expired stock: %w", err)
	}
	return items, nil
}

func (r *storeRepo) Update(ctx context.Context, s *Stock) error {
	if err := r.coll.Replace(ctx, s); err != nil {
		return fmt.Errorf("update stock %s: %w", s.ID.Hex(), err)
	}
	return nil
}

func (r *storeRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := r.coll.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete stock %s: %w", id.Hex(), err)
	}
	return nil
}
