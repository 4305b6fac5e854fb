package order

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthbridge/healthbridge/internal/platform/docstore"
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*Order, error)
	// ListBy returns the orders whose field equals id, newest first.
	ListBy(ctx context.Context, field string, id primitive.ObjectID) ([]*Order, error)
	// SetStatus moves an order from one status to another and reports
	// docstore.ErrNotFound when it is no longer in from.
	SetStatus(ctx context.Context, id primitive.ObjectID, from, to Status, fields map[string]any) (*Order, error)
}

// Collection describes the orders collection.
var Collection = docstore.Spec{Name: "orders"}

type storeRepo struct {
	coll docstore.Collection[Order]
}

func NewStoreRepo(store *docstore.Store) Repository {
	return &storeRepo{coll: docstore.Use[Order](store, Collection)}
}

func (r *storeRepo) Create(ctx context.Context, o *Order) error {
	if err := r.coll.Insert(ctx, o); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *storeRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*Order, error) {
	o, err := r.coll.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id.Hex(), err)
	}
	return o, nil
}

func (r *storeRepo) ListBy(ctx context.Context, field string, id primitive.ObjectID) ([]*Order, error) {
	items, err := r.coll.Find(ctx, docstore.Filter{field: id},
		docstore.FindOptions{SortField: "orderDate", SortOrder: docstore.Descending})
	if err != nil {
		return nil, fmt.Errorf("list orders by %s: %w", field, err)
	}
	return items, nil
}

func (r *storeRepo) SetStatus(ctx context.Context, id primitive.ObjectID, from, to Status, fields map[string]any) (*Order, error) {
	set := map[string]any{"status": to}
	for k, v := range fields {
		set[k] = v
	}
	o, err := r.coll.UpdateWhere(ctx, id, docstore.Filter{"status": from}, set)
	if err != nil {
		return nil, fmt.Errorf("set order %s status: %w", id.Hex(), err)
	}
	return o, nil
}
