package medicine

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultCategory = "General"

// Medicine is one catalog entry offered by a pharmacy account.
type Medicine struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id"`
	PharmacyID  primitive.ObjectID `json:"pharmacyId" bson:"pharmacyId"`
	Name        string             `json:"name" bson:"name"`
	Price       float64            `json:"price" bson:"price"`
	Stock       int                `json:"stock" bson:"stock"`
	Category    string             `json:"category" bson:"category"`
	Description string             `json:"description" bson:"description"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
}

func (m Medicine) DocumentID() primitive.ObjectID { return m.ID }

// Input is the create and update payload. Nil fields are absent from the
// request; on update they keep their stored value.
type Input struct {
	PharmacyID  *string  `json:"pharmacyId"`
	Name        *string  `json:"name"`
	Price       *float64 `json:"price"`
	Stock       *int     `json:"stock"`
	Category    *string  `json:"category"`
	Description *string  `json:"description"`
}
