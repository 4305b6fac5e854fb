package hospital

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthbridge/healthbridge/internal/platform/docstore"
)

type MarkerRepository interface {
	Create(ctx context.Context, h *Hospital) error
	List(ctx context.Context) ([]*Hospital, error)
}

type AccountRepository interface {
	Create(ctx context.Context, a *Account) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	Update(ctx context.Context, a *Account) error
	List(ctx context.Context) ([]*Account, error)
}

var (
	// MarkerCollection describes the hospitals collection.
	MarkerCollection = docstore.Spec{Name: "hospitals", Geo: []string{"location"}}
	// AccountCollection describes the hospital_accounts collection.
	AccountCollection = docstore.Spec{
		Name:   "hospital_accounts",
		Unique: []string{"email"},
		Geo:    []string{"location"},
	}
)

type markerRepo struct {
	coll docstore.Collection[Hospital]
}

func NewMarkerRepo(store *docstore.Store) MarkerRepository {
	return &markerRepo{coll: docstore.Use[Hospital](store, MarkerCollection)}
}

func (r *markerRepo) Create(ctx context.Context, h *Hospital) error {
	if err := r.coll.Insert(ctx, h); err != nil {
		return fmt.Errorf("insert hospital: %w", err)
	}
	return nil
}

func (r *markerRepo) List(ctx context.Context) ([]*Hospital, error) {
	items, err := r.coll.Find(ctx, docstore.Filter{}, docstore.FindOptions{})
	if err != nil {
		return nil, fmt.Errorf("list hospitals: %w", err)
	}
	return items, nil
}

type accountRepo struct {
	coll docstore.Collection[Account]
}

func NewAccountRepo(store *docstore.Store) AccountRepository {
	return &accountRepo{coll: docstore.Use[Account](store, AccountCollection)}
}

func (r *accountRepo) Create(ctx context.Context, a *Account) error {
	if err := r.coll.Insert(ctx, a); err != nil {
		return fmt.Errorf("insert hospital account: %w", err)
	}
	return nil
}

func (r *accountRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*Account, error) {
	a, err := r.coll.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get hospital account %s: %w", id.Hex(), err)
	}
	return a, nil
}

func (r *accountRepo) FindByEmail(ctx context.Context, email string) (*Account, error) {
	a, err := r.coll.FindOne(ctx, docstore.Filter{"email": email})
	if err != nil {
		return nil, fmt.Errorf("find hospital account by email: %w", err)
	}
	return a, nil
}

func (r *accountRepo) Update(ctx context.Context, a *Account) error {
	if err := r.coll.Replace(ctx, a); err != nil {
		return fmt.Errorf("update hospital account %s: %w", a.ID.Hex(), err)
	}
	return nil
}

func (r *accountRepo) List(ctx context.Context) ([]*Account, error) {
	items, err := r.coll.Find(ctx, docstore.Filter{}, docstore.FindOptions{})
	if err != nil {
		return nil, fmt.Errorf("list hospital accounts: %w", err)
	}
	return items, nil
}
