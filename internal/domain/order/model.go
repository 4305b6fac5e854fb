package order

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Status string

const (
	StatusPending   Status = "Pending"
	StatusReady     Status = "Ready"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

// Final reports whether no further change is allowed.
func (s Status) Final() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func parseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusPending, StatusReady, StatusCompleted, StatusCancelled:
		return st, true
	}
	return "", false
}

type Fulfillment string

const (
	FulfillmentPickup   Fulfillment = "Pickup"
	FulfillmentDelivery Fulfillment = "Delivery"
)

// Order is a patient's request to a pharmacy for one medicine. Name and
// price are copied from the catalogue when the order is placed.
type Order struct {
	ID              primitive.ObjectID  `json:"_id" bson:"_id"`
	PatientID       primitive.ObjectID  `json:"patientId" bson:"patientId"`
	PharmacyID      primitive.ObjectID  `json:"pharmacyId" bson:"pharmacyId"`
	MedicineID      primitive.ObjectID  `json:"medicineId" bson:"medicineId"`
	MedicineName    string              `json:"medicineName" bson:"medicineName"`
	Price           float64             `json:"price" bson:"price"`
	Quantity        int                 `json:"quantity" bson:"quantity"`
	Prescription    string              `json:"prescription" bson:"prescription"`
	AppointmentID   *primitive.ObjectID `json:"appointmentId" bson:"appointmentId"`
	FulfillmentType Fulfillment         `json:"fulfillmentType" bson:"fulfillmentType"`
	DeliveryAddress string              `json:"deliveryAddress" bson:"deliveryAddress"`
	Status          Status              `json:"status" bson:"status"`
	OrderDate       time.Time           `json:"orderDate" bson:"orderDate"`
	UpdatedAt       time.Time           `json:"updatedAt" bson:"updatedAt"`
}

func (o Order) DocumentID() primitive.ObjectID { return o.ID }

type Input struct {
	PharmacyID      string `json:"pharmacyId"`
	MedicineID      string `json:"medicineId"`
	Quantity        int    `json:"quantity"`
	Prescription    string `json:"prescription"`
	AppointmentID   string `json:"appointmentId"`
	FulfillmentType string `json:"fulfillmentType"`
	DeliveryAddress string `json:"deliveryAddress"`
}

type StatusInput struct {
	Status string `json:"status"`
}
