package pharmacy

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Stock is a batch of a medicine on a pharmacy's shelf. It is kept apart
// from the medicine catalog: catalog entries have no expiry, stock batches
// do.
type Stock struct {
	ID             primitive.ObjectID `json:"_id" bson:"_id"`
	MedicineName   string             `json:"medicineName" bson:"medicineName"`
	Stock          int64              `json:"stock" bson:"stock"`
	Price          float64            `json:"price" bson:"price"`
	ExpiryDate     time.Time          `json:"expiryDate" bson:"expiryDate"`
	PharmacistName string             `json:"pharmacistName" bson:"pharmacistName"`
	AddedBy        primitive.ObjectID `json:"addedBy" bson:"addedBy"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt" bson:"updatedAt"`
}

func (s Stock) DocumentID() primitive.ObjectID { return s.ID }
