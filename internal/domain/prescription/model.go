package prescription

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Item is one prescribed medicine. Order is kept and duplicates are
// allowed.
type Item struct {
	Name         string `json:"name" bson:"name"`
	Dosage       string `json:"dosage" bson:"dosage"`
	Duration     string `json:"duration" bson:"duration"`
	Instructions string `json:"instructions" bson:"instructions"`
}

type Prescription struct {
	ID            primitive.ObjectID `json:"_id" bson:"_id"`
	AppointmentID primitive.ObjectID `json:"appointmentId" bson:"appointmentId"`
	DoctorID      primitive.ObjectID `json:"doctorId" bson:"doctorId"`
	PatientID     primitive.ObjectID `json:"patientId" bson:"patientId"`
	Medicines     []Item             `json:"medicines" bson:"medicines"`
	Diagnosis     string             `json:"diagnosis" bson:"diagnosis"`
	Notes         string             `json:"notes" bson:"notes"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updatedAt"`
}

func (p Prescription) DocumentID() primitive.ObjectID { return p.ID }

type Input struct {
	AppointmentID string `json:"appointmentId"`
	PatientID     string `json:"patientId"`
	Medicines     []Item `json:"medicines"`
	Diagnosis     string `json:"diagnosis"`
	Notes         string `json:"notes"`
}

// Filter narrows a listing. Zero ids match everything.
type Filter struct {
	PatientID     primitive.ObjectID
	DoctorID      primitive.ObjectID
	AppointmentID primitive.ObjectID
}
