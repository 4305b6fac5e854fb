package identity

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthbridge/healthbridge/internal/platform/auth"
	"github.com/healthbridge/healthbridge/internal/platform/docstore"
)

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*User, error)
	// FindByEmail matches the normalised email and, when role is set, the
	// role as well.
	FindByEmail(ctx context.Context, email string, role auth.Role) (*User, error)
	Update(ctx context.Context, u *User) error
	List(ctx context.Context, role auth.Role, limit, offset int) ([]*User, int, error)
	// Active returns every active account of role, newest first.
	Active(ctx context.Context, role auth.Role) ([]*User, error)
}

// Collection describes the users collection.
var Collection = docstore.Spec{
	Name:   "users",
	Unique: []string{"email"},
	Geo:    []string{"pharmacyDetails.location"},
}

type storeRepo struct {
	coll docstore.Collection[User]
}

func NewStoreRepo(store *docstore.Store) UserRepository {
	return &storeRepo{coll: docstore.Use[User](store, Collection)}
}

func (r *storeRepo) Create(ctx context.Context, u *User) error {
	if err := r.coll.Insert(ctx, u); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *storeRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*User, error) {
	u, err := r.coll.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id.Hex(), err)
	}
	return u, nil
}

func (r *storeRepo) FindByEmail(ctx context.Context, email string, role auth.Role) (*User, error) {
	f := docstore.Filter{"email": email}
	if role != "" {
		f["role"] = string(role)
	}
	u, err := r.coll.FindOne(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

func (r *storeRepo) Update(ctx context.Context, u *User) error {
	if err := r.coll.Replace(ctx, u); err != nil {
		return fmt.Errorf("update user %s: %w", u.ID.Hex(), err)
	}
	return nil
}

func (r *storeRepo) List(ctx context.Context, role auth.Role, limit, offset int) ([]*User, int, error) {
	f := docstore.Filter{}
	if role != "" {
		f["role"] = string(role)
	}
	total, err := r.coll.Count(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	items, err := r.coll.Find(ctx, f, docstore.FindOptions{
		SortField: "createdAt",
		SortOrder: docstore.Descending,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return items, total, nil
}

func (r *storeRepo) Active(ctx context.Context, role auth.Role) ([]*User, error) {
	items, err := r.coll.Find(ctx, docstore.Filter{"role": string(role), "isActive": true},
		docstore.FindOptions{SortField: "createdAt", SortOrder: docstore.Descending})
	if err != nil {
		return nil, fmt.Errorf("list active %s accounts: %w", role, err)
	}
	return items, nil
}
