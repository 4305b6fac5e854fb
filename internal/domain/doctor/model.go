package doctor

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthbridge/healthbridge/internal/domain/identity"
)

// Review is a patient's score for a doctor. A patient reviews each doctor
// at most once.
type Review struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id"`
	DoctorID    primitive.ObjectID `json:"doctorId" bson:"doctorId"`
	PatientID   primitive.ObjectID `json:"patientId" bson:"patientId"`
	PatientName string             `json:"patientName" bson:"patientName"`
	Rating      int                `json:"rating" bson:"rating"`
	Comment     string             `json:"comment" bson:"comment"`
	Timestamp   time.Time          `json:"timestamp" bson:"timestamp"`
}

func (r Review) DocumentID() primitive.ObjectID { return r.ID }

type ReviewInput struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type AvailabilityInput struct {
	Availability []identity.Availability `json:"availability"`
}

// Filter narrows the directory. Text fields match case-insensitively
// anywhere in the value; nil fee bounds are open.
type Filter struct {
	Specialization string
	City           string
	MinFee         *float64
	MaxFee         *float64
}
