package prescription

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthbridge/healthbridge/internal/platform/docstore"
)

type Repository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*Prescription, error)
	List(ctx context.Context, f Filter) ([]*Prescription, error)
	Update(ctx context.Context, p *Prescription) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// Collection describes the prescriptions collection.
var Collection = docstore.Spec{Name: "prescriptions"}

type storeRepo struct {
	coll docstore.Collection[Prescription]
}

func NewStoreRepo(store *docstore.Store) Repository {
	return &storeRepo{coll: docstore.Use[Prescription](store, Collection)}
}

func (r *storeRepo) Create(ctx context.Context, p *Prescription) error {
	if err := r.coll.Insert(ctx, p); err != nil {
		return fmt.Errorf("insert prescription: %w", err)
	}
	return nil
}

func (r *storeRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*Prescription, error) {
	p, err := r.coll.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get prescription %s: %w", id.Hex(), err)
	}
	return p, nil
}

func (r *storeRepo) List(ctx context.Context, f Filter) ([]*Prescription, error) {
	q := docstore.Filter{}
	if !f.PatientID.IsZero() {
		q["patientId"] = f.PatientID
	}
	if !f.DoctorID.IsZero() {
		q["doctorId"] = f.DoctorID
	}
	if !f.AppointmentID.IsZero() {
		q["appointmentId"] = f.AppointmentID
	}
	items, err := r.coll.Find(ctx, q, docstore.FindOptions{SortField: "createdAt", SortOrder: docstore.Descending})
	if err != nil {
		return nil, fmt.Errorf("list prescriptions: %w", err)
	}
	return items, nil
}

func (r *storeRepo) Update(ctx context.Context, p *Prescription) error {
	if err := r.coll.Replace(ctx, p); err != nil {
		return fmt.Errorf("update prescription %s: %w", p.ID.Hex(), err)
	}
	return nil
}

func (r *storeRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := r.coll.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete prescription %s: %w", id.Hex(), err)
	}
	return nil
}
