package appointment

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// Appointment is a booked consultation slot. It starts pending and unpaid
// and becomes scheduled once the client reports a payment.
type Appointment struct {
	ID              primitive.ObjectID `json:"_id" bson:"_id"`
	PatientID       primitive.ObjectID `json:"patientId" bson:"patientId"`
	DoctorID        primitive.ObjectID `json:"doctorId" bson:"doctorId"`
	Date            time.Time          `json:"date" bson:"date"`
	TimeSlot        string             `json:"timeSlot" bson:"timeSlot"`
	Status          Status             `json:"status" bson:"status"`
	PaymentStatus   PaymentStatus      `json:"paymentStatus" bson:"paymentStatus"`
	PaymentID       string             `json:"paymentId,omitempty" bson:"paymentId,omitempty"`
	// ConsultationFee is the doctor's fee at booking time.
	ConsultationFee float64            `json:"consultationFee" bson:"consultationFee"`
	Diagnosis       string             `json:"diagnosis" bson:"diagnosis"`
	Prescription    string             `json:"prescription" bson:"prescription"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updatedAt"`
}

func (a Appointment) DocumentID() primitive.ObjectID { return a.ID }

type BookInput struct {
	DoctorID string `json:"doctorId"`
	Date     string `json:"date"`
	TimeSlot string `json:"timeSlot"`
}

type PaymentInput struct {
	AppointmentID string `json:"appointmentId"`
	PaymentID     string `json:"paymentId"`
}

type CompleteInput struct {
	AppointmentID string `json:"appointmentId"`
	Diagnosis     string `json:"diagnosis"`
	Prescription  string `json:"prescription"`
}

// Booking is the result of Book: the pending appointment and the fee the
// client must collect.
type Booking struct {
	Message     string       `json:"message"`
	Appointment *Appointment `json:"appointment"`
	Fees        float64      `json:"fees"`
}

// Stats summarises a doctor's appointments.
type Stats struct {
	TotalAppointments     int     `json:"totalAppointments"`
	CompletedAppointments int     `json:"completedAppointments"`
	TodayAppointments     int     `json:"todayAppointments"`
	TotalRevenue          float64 `json:"totalRevenue"`
}
