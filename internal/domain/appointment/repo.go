package appointment

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthbridge/healthbridge/internal/platform/docstore"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*Appointment, error)
	// ActiveInSlot returns the appointments holding a doctor's slot, that is
	// every one that is not cancelled.
	ActiveInSlot(ctx context.Context, doctorID primitive.ObjectID, date time.Time, slot string) ([]*Appointment, error)
	ActiveOnDate(ctx context.Context, doctorID primitive.ObjectID, date time.Time) ([]*Appointment, error)
	ListByDoctor(ctx context.Context, doctorID primitive.ObjectID) ([]*Appointment, error)
	ListByPatient(ctx context.Context, patientID primitive.ObjectID) ([]*Appointment, error)
	// Stale returns pending unpaid appointments created before t.
	Stale(ctx context.Context, t time.Time) ([]*Appointment, error)
	// UpdateWhere sets fields on the appointment only while it still matches
	// where, and reports docstore.ErrNotFound otherwise.
	UpdateWhere(ctx context.Context, id primitive.ObjectID, where docstore.Filter, fields map[string]any) (*Appointment, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// Collection describes the appointments collection.
var Collection = docstore.Spec{Name: "appointments"}

type storeRepo struct {
	coll docstore.Collection[Appointment]
}

func NewStoreRepo(store *docstore.Store) Repository {
	return &storeRepo{coll: docstore.Use[Appointment](store, Collection)}
}

func (r *storeRepo) Create(ctx context.Context, a *Appointment) error {
	if err := r.coll.Insert(ctx, a); err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *storeRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*Appointment, error) {
	a, err := r.coll.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment %s: %w", id.Hex(), err)
	}
	return a, nil
}

func (r *storeRepo) ActiveInSlot(ctx context.Context, doctorID primitive.ObjectID, date time.Time, slot string) ([]*Appointment, error) {
	items, err := r.coll.Find(ctx, docstore.Filter{
		"doctorId": doctorID,
		"date":     date,
		"timeSlot": slot,
		"status":   docstore.Ne(StatusCancelled),
	}, docstore.FindOptions{})
	if err != nil {
		return nil, fmt.Errorf("find appointments in slot: %w", err)
	}
	return items, nil
}

func (r *storeRepo) ActiveOnDate(ctx context.Context, doctorID primitive.ObjectID, date time.Time) ([]*Appointment, error) {
	items, err := r.coll.Find(ctx, docstore.Filter{
		"doctorId": doctorID,
		"date":     date,
		"status":   docstore.Ne(StatusCancelled),
	}, docstore.FindOptions{SortField: "timeSlot", SortOrder: docstore.Ascending})
	if err != nil {
		return nil, fmt.Errorf("find appointments on date: %w", err)
	}
	return items, nil
}

func (r *storeRepo) ListByDoctor(ctx context.Context, doctorID primitive.ObjectID) ([]*Appointment, error) {
	items, err := r.coll.Find(ctx, docstore.Filter{"doctorId": doctorID},
		docstore.FindOptions{SortField: "date", SortOrder: docstore.Ascending})
	if err != nil {
		return nil, fmt.Errorf("list doctor appointments: %w", err)
	}
	return items, nil
}

func (r *storeRepo) ListByPatient(ctx context.Context, patientID primitive.ObjectID) ([]*Appointment, error) {
	items, err := r.coll.Find(ctx, docstore.Filter{"patientId": patientID},
		docstore.FindOptions{SortField: "date", SortOrder: docstore.Descending})
	if err != nil {
		return nil, fmt.Errorf("list patient appointments: %w", err)
	}
	return items, nil
}

func (r *storeRepo) Stale(ctx context.Context, t time.Time) ([]*Appointment, error) {
	items, err := r.coll.Find(ctx, docstore.Filter{
		"status":        StatusPending,
		"paymentStatus": PaymentUnpaid,
		"createdAt":     docstore.Lt(t),
	}, docstore.FindOptions{SortField: "createdAt", SortOrder: docstore.Ascending})
	if err != nil {
		return nil, fmt.Errorf("find stale appointments: %w", err)
	}
	return items, nil
}

func (r *storeRepo) UpdateWhere(ctx context.Context, id primitive.ObjectID, where docstore.Filter, fields map[string]any) (*Appointment, error) {
	a, err := r.coll.UpdateWhere(ctx, id, where, fields)
	if err != nil {
		return nil, fmt.Errorf("update appointment %s: %w", id.Hex(), err)
	}
	return a, nil
}

func (r *storeRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := r.coll.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete appointment %s: %w", id.Hex(), err)
	}
	return nil
}
