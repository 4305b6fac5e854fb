package medicine

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthbridge/healthbridge/internal/platform/docstore"
)

// Collection describes the medicines collection.
var Collection = docstore.Spec{Name: "medicines"}

type storeRepo struct {
	coll docstore.Collection[Medicine]
}

func NewStoreRepo(store *docstore.Store) Repository {
	return &storeRepo{coll: docstore.Use[Medicine](store, Collection)}
}

func (r *storeRepo) Create(ctx context.Context, m *Medicine) error {
	if err := r.coll.Insert(ctx, m); err != nil {
		return fmt.Errorf("insert medicine: %w", err)
	}
	return nil
}

func (r *storeRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*Medicine, error) {
	m, err := r.coll.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get medicine %s: %w", id.Hex(), err)
	}
	return m, nil
}

func (r *storeRepo) List(ctx context.Context, pharmacyID primitive.ObjectID) ([]*Medicine, error) {
	f := docstore.Filter{}
	if !pharmacyID.IsZero() {
		f["pharmacyId"] = pharmacyID
	}
	items, err := r.coll.Find(ctx, f, docstore.FindOptions{SortField: "createdAt", SortOrder: docstore.Descending})
	if err != nil {
		return nil, fmt.Errorf("list medicines: %w", err)
	}
	return items, nil
}

func (r *storeRepo) Update(ctx context.Context, m *Medicine) error {
	if err := r.coll.Replace(ctx, m); err != nil {
		return fmt.Errorf("update medicine %s: %w", m.ID.Hex(), err)
	}
	return nil
}

func (r *storeRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := r.coll.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete medicine %s: %w", id.Hex(), err)
	}
	return nil
}
