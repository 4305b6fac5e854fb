package medicine

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Repository interface {
	Create(ctx context.Context, m *Medicine) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*Medicine, error)
	// List returns every medicine, or only those of one pharmacy when
	// pharmacyID is non-zero.
	List(ctx context.Context, pharmacyID primitive.ObjectID) ([]*Medicine, error)
	Update(ctx context.Context, m *Medicine) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}
