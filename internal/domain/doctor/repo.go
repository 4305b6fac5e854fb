package doctor

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthbridge/healthbridge/internal/platform/docstore"
)

type ReviewRepository interface {
	Create(ctx context.Context, r *Review) error
	// Find returns the review patient wrote for doctor.
	Find(ctx context.Context, doctorID, patientID primitive.ObjectID) (*Review, error)
	// ListByDoctor returns a doctor's reviews, newest first.
	ListByDoctor(ctx context.Context, doctorID primitive.ObjectID) ([]*Review, error)
}

// ReviewCollection describes the reviews collection.
var ReviewCollection = docstore.Spec{Name: "reviews"}

type storeRepo struct {
	coll docstore.Collection[Review]
}

func NewReviewRepo(store *docstore.Store) ReviewRepository {
	return &storeRepo{coll: docstore.Use[Review](store, ReviewCollection)}
}

func (r *storeRepo) Create(ctx context.Context, rv *Review) error {
	if err := r.coll.Insert(ctx, rv); err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (r *storeRepo) Find(ctx context.Context, doctorID, patientID primitive.ObjectID) (*Review, error) {
	rv, err := r.coll.FindOne(ctx, docstore.Filter{"doctorId": doctorID, "patientId": patientID})
	if err != nil {
		return nil, fmt.Errorf("find review: %w", err)
	}
	return rv, nil
}

func (r *storeRepo) ListByDoctor(ctx context.Context, doctorID primitive.ObjectID) ([]*Review, error) {
	items, err := r.coll.Find(ctx, docstore.Filter{"doctorId": doctorID},
		docstore.FindOptions{SortField: "timestamp", SortOrder: docstore.Descending})
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return items, nil
}
