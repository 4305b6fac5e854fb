package order

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthbridge/healthbridge/internal/domain/medicine"
	"github.com/healthbridge/healthbridge/internal/platform/apierror"
	"github.com/healthbridge/healthbridge/internal/platform/auth"
	"github.com/healthbridge/healthbridge/internal/platform/docstore"
	"github.com/healthbridge/healthbridge/internal/platform/validation"
)

const (
	msgNotFound      = "Order not found"
	msgNotAuthorized = "Not authorized"
	msgChanged       = "Order was updated meanwhile, please retry"
)

// Catalogue resolves the medicine an order is placed for.
type Catalogue interface {
	Get(ctx context.Context, id primitive.ObjectID) (*medicine.Medicine, error)
}

func validHex(s string) bool {
	return primitive.IsValidObjectID(strings.TrimSpace(s))
}

var createRules = validation.NewChain(
	validation.Rule[*Input]{Field: "pharmacyId", Message: "Pharmacy is required", Check: func(in *Input) bool { return validHex(in.PharmacyID) }},
	validation.Rule[*Input]{Field: "medicineId", Message: "Medicine is required", Check: func(in *Input) bool { return validHex(in.MedicineID) }},
	validation.Rule[*Input]{Field: "quantity", Message: "Quantity must be at least 1", Check: func(in *Input) bool { return in.Quantity >= 0 }},
	validation.Rule[*Input]{
		Field:   "appointmentId",
		Message: "Invalid appointment",
		Check:   func(in *Input) bool { return strings.TrimSpace(in.AppointmentID) == "" || validHex(in.AppointmentID) },
	},
	validation.Rule[*Input]{
		Field:   "fulfillmentType",
		Message: "Fulfillment type must be Pickup or Delivery",
		Check: func(in *Input) bool {
			switch Fulfillment(in.FulfillmentType) {
			case "", FulfillmentPickup, FulfillmentDelivery:
				return true
			}
			return false
		},
	},
	validation.Rule[*Input]{
		Field:   "deliveryAddress",
		Message: "Delivery address is required",
		Check: func(in *Input) bool {
			return Fulfillment(in.FulfillmentType) != FulfillmentDelivery || strings.TrimSpace(in.DeliveryAddress) != ""
		},
	},
)

type Service struct {
	repo      Repository
	catalogue Catalogue
	now       func() time.Time
}

func NewService(repo Repository, catalogue Catalogue) *Service {
	return &Service{repo: repo, catalogue: catalogue, now: time.Now}
}

// Create places an order for patient at the medicine's catalogue price.
func (s *Service) Create(ctx context.Context, patient primitive.ObjectID, in Input) (*Order, error) {
	if err := createRules.Validate(&in); err != nil {
		return nil, err
	}
	pharmacyID, _ := primitive.ObjectIDFromHex(strings.TrimSpace(in.PharmacyID))
	medicineID, _ := primitive.ObjectIDFromHex(strings.TrimSpace(in.MedicineID))

	m, err := s.catalogue.Get(ctx, medicineID)
	if err != nil {
		return nil, err
	}
	if m.PharmacyID != pharmacyID {
		return nil, apierror.BadRequest("Medicine is not sold by this pharmacy")
	}

	qty := in.Quantity
	if qty == 0 {
		qty = 1
	}
	fulfillment := Fulfillment(in.FulfillmentType)
	if fulfillment == "" {
		fulfillment = FulfillmentPickup
	}
	now := s.now().UTC()
	o := &Order{
		ID:              primitive.NewObjectID(),
		PatientID:       patient,
		PharmacyID:      pharmacyID,
		MedicineID:      medicineID,
		MedicineName:    m.Name,
		Price:           m.Price,
		Quantity:        qty,
		Prescription:    strings.TrimSpace(in.Prescription),
		FulfillmentType: fulfillment,
		Status:          StatusPending,
		OrderDate:       now,
		UpdatedAt:       now,
	}
	if fulfillment == FulfillmentDelivery {
		o.DeliveryAddress = strings.TrimSpace(in.DeliveryAddress)
	}
	if raw := strings.TrimSpace(in.AppointmentID); raw != "" {
		id, _ := primitive.ObjectIDFromHex(raw)
		o.AppointmentID = &id
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Mine lists the orders a patient placed or a pharmacy received, newest
// first. Other roles have no orders.
func (s *Service) Mine(ctx context.Context, caller primitive.ObjectID, role auth.Role) ([]*Order, error) {
	var field string
	switch role {
	case auth.RolePatient:
		field = "patientId"
	case auth.RolePharmacy:
		field = "pharmacyId"
	default:
		return nil, apierror.Forbidden(msgNotAuthorized)
	}
	items, err := s.repo.ListBy(ctx, field, caller)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*Order{}
	}
	return items, nil
}

func (s *Service) get(ctx context.Context, rawID string) (*Order, error) {
	id, err := apierror.ParseID(rawID)
	if err != nil {
		return nil, err
	}
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apierror.NotFoundAs(err, msgNotFound)
	}
	return o, nil
}

// move switches o to status to, provided nobody changed its status since
// it was read.
func (s *Service) move(ctx context.Context, o *Order, to Status) (*Order, error) {
	updated, err := s.repo.SetStatus(ctx, o.ID, o.Status, to, map[string]any{"updatedAt": s.now().UTC()})
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, apierror.New(http.StatusConflict, msgChanged)
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Cancel is open to the order's patient and pharmacy until the order is
// completed.
func (s *Service) Cancel(ctx context.Context, caller primitive.ObjectID, id string) (*Order, error) {
	o, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.PatientID != caller && o.PharmacyID != caller {
		return nil, apierror.Forbidden(msgNotAuthorized)
	}
	switch o.Status {
	case StatusCompleted:
		return nil, apierror.BadRequest("Cannot cancel a completed order")
	case StatusCancelled:
		return nil, apierror.BadRequest("Order is already cancelled")
	}
	return s.move(ctx, o, StatusCancelled)
}

// UpdateStatus lets the receiving pharmacy move an open order along.
func (s *Service) UpdateStatus(ctx context.Context, pharmacy primitive.ObjectID, id string, in StatusInput) (*Order, error) {
	to, ok := parseStatus(strings.TrimSpace(in.Status))
	if !ok {
		return nil, apierror.BadRequest("Status must be Pending, Ready, Completed or Cancelled")
	}
	o, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.PharmacyID != pharmacy {
		return nil, apierror.Forbidden(msgNotAuthorized)
	}
	if o.Status.Final() {
		return nil, apierror.BadRequest("Order is already " + strings.ToLower(string(o.Status)))
	}
	if o.Status == to {
		return o, nil
	}
	return s.move(ctx, o, to)
}
