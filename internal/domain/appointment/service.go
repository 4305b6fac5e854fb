package appointment

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthbridge/healthbridge/internal/platform/apierror"
	"github.com/healthbridge/healthbridge/internal/platform/docstore"
	"github.com/healthbridge/healthbridge/internal/platform/validation"
)

const (
	msgNotFound     = "Appointment not found"
	msgSlotTaken    = "This time slot is already booked."
	msgBookRequired = "Doctor, date and time slot are required"
	msgSlotRequired = "Doctor ID and Date are required"
	msgAccessDenied = "Access denied"
	msgCancelled    = "Appointment was cancelled"
)

// notCancelled guards writes that must not revive a cancelled appointment.
var notCancelled = docstore.Filter{"status": docstore.Ne(StatusCancelled)}

// Doctors looks up the consultation fee of a doctor account. It reports a
// not found error for ids that are not doctors.
type Doctors interface {
	ConsultationFee(ctx context.Context, doctorID primitive.ObjectID) (float64, error)
}

type Service struct {
	repo    Repository
	doctors Doctors
	now     func() time.Time

	// bookMu serialises the slot check and insert of Book.
	bookMu sync.Mutex
}

func NewService(repo Repository, doctors Doctors) *Service {
	return &Service{repo: repo, doctors: doctors, now: time.Now}
}

// day normalises a requested date to the stored representation.
func day(s string) (time.Time, error) {
	t, ok := validation.ParseDate(strings.TrimSpace(s))
	if !ok {
		return time.Time{}, apierror.BadRequest("Invalid date")
	}
	return t.UTC().Truncate(time.Millisecond), nil
}

// Book reserves a slot for patient. The appointment stays pending until
// payment is confirmed.
func (s *Service) Book(ctx context.Context, patient primitive.ObjectID, in BookInput) (*Booking, error) {
	slot := strings.TrimSpace(in.TimeSlot)
	if strings.TrimSpace(in.DoctorID) == "" || strings.TrimSpace(in.Date) == "" || slot == "" {
		return nil, apierror.BadRequest(msgBookRequired)
	}
	doctorID, err := apierror.ParseID(in.DoctorID)
	if err != nil {
		return nil, err
	}
	date, err := day(in.Date)
	if err != nil {
		return nil, err
	}

	s.bookMu.Lock()
	defer s.bookMu.Unlock()

	taken, err := s.repo.ActiveInSlot(ctx, doctorID, date, slot)
	if err != nil {
		return nil, err
	}
	if len(taken) > 0 {
		return nil, apierror.BadRequest(msgSlotTaken)
	}
	fee, err := s.doctors.ConsultationFee(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	a := &Appointment{
		ID:              primitive.NewObjectID(),
		PatientID:       patient,
		DoctorID:        doctorID,
		Date:            date,
		TimeSlot:        slot,
		Status:          StatusPending,
		PaymentStatus:   PaymentUnpaid,
		ConsultationFee: fee,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	return &Booking{Message: "Appointment initialized", Appointment: a, Fees: fee}, nil
}

func (s *Service) get(ctx context.Context, rawID string) (*Appointment, error) {
	id, err := apierror.ParseID(rawID)
	if err != nil {
		return nil, err
	}
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apierror.NotFoundAs(err, msgNotFound)
	}
	return a, nil
}

// ConfirmPayment records the outcome of the client side payment and
// schedules the appointment.
func (s *Service) ConfirmPayment(ctx context.Context, patient primitive.ObjectID, in PaymentInput) (*Appointment, error) {
	a, err := s.get(ctx, in.AppointmentID)
	if err != nil {
		return nil, err
	}
	if a.PatientID != patient {
		return nil, apierror.Forbidden(msgAccessDenied)
	}
	if a.Status == StatusCancelled {
		return nil, apierror.BadRequest(msgCancelled)
	}
	return s.updateActive(ctx, a.ID, map[string]any{
		"paymentStatus": PaymentPaid,
		"status":        StatusScheduled,
		"paymentId":     strings.TrimSpace(in.PaymentID),
		"updatedAt":     s.now().UTC(),
	})
}

// updateActive writes fields unless the appointment has been cancelled in
// the meantime, for instance by the stale booking job.
func (s *Service) updateActive(ctx context.Context, id primitive.ObjectID, fields map[string]any) (*Appointment, error) {
	a, err := s.repo.UpdateWhere(ctx, id, notCancelled, fields)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return nil, err
	}
	if _, getErr := s.repo.GetByID(ctx, id); getErr == nil {
		return nil, apierror.BadRequest(msgCancelled)
	}
	return nil, apierror.NotFound(msgNotFound)
}

// ForDoctor lists a doctor's appointments by date, then slot.
func (s *Service) ForDoctor(ctx context.Context, doctor primitive.ObjectID) ([]*Appointment, error) {
	items, err := s.repo.ListByDoctor(ctx, doctor)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Date.Equal(items[j].Date) {
			return items[i].Date.Before(items[j].Date)
		}
		return items[i].TimeSlot < items[j].TimeSlot
	})
	return nonNil(items), nil
}

// ForPatient lists a patient's appointments, latest date first.
func (s *Service) ForPatient(ctx context.Context, patient primitive.ObjectID) ([]*Appointment, error) {
	items, err := s.repo.ListByPatient(ctx, patient)
	if err != nil {
		return nil, err
	}
	return nonNil(items), nil
}

// BookedSlots returns the slots of a doctor's date that are held by an
// appointment that is not cancelled.
func (s *Service) BookedSlots(ctx context.Context, doctorID, date string) ([]string, error) {
	if strings.TrimSpace(doctorID) == "" || strings.TrimSpace(date) == "" {
		return nil, apierror.BadRequest(msgSlotRequired)
	}
	id, err := apierror.ParseID(doctorID)
	if err != nil {
		return nil, err
	}
	d, err := day(date)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ActiveOnDate(ctx, id, d)
	if err != nil {
		return nil, err
	}
	slots := make([]string, 0, len(items))
	for _, a := range items {
		slots = append(slots, a.TimeSlot)
	}
	return slots, nil
}

// Cancel removes an appointment. Only its patient or doctor may do so.
func (s *Service) Cancel(ctx context.Context, caller primitive.ObjectID, id string) error {
	a, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if a.PatientID != caller && a.DoctorID != caller {
		return apierror.Forbidden(msgAccessDenied)
	}
	if err := s.repo.Delete(ctx, a.ID); err != nil {
		return apierror.NotFoundAs(err, msgNotFound)
	}
	return nil
}

// Complete closes a consultation with the doctor's notes.
func (s *Service) Complete(ctx context.Context, doctor primitive.ObjectID, in CompleteInput) (*Appointment, error) {
	a, err := s.get(ctx, in.AppointmentID)
	if err != nil {
		return nil, err
	}
	if a.DoctorID != doctor {
		return nil, apierror.Forbidden(msgAccessDenied)
	}
	if a.Status == StatusCancelled {
		return nil, apierror.BadRequest(msgCancelled)
	}
	return s.updateActive(ctx, a.ID, map[string]any{
		"status":       StatusCompleted,
		"diagnosis":    in.Diagnosis,
		"prescription": in.Prescription,
		"updatedAt":    s.now().UTC(),
	})
}

// ReleaseStale cancels pending unpaid appointments created more than
// olderThan before now and returns how many were released. An appointment
// paid after it was selected is left alone.
func (s *Service) ReleaseStale(ctx context.Context, now time.Time, olderThan time.Duration) (int, error) {
	stale, err := s.repo.Stale(ctx, now.Add(-olderThan).UTC())
	if err != nil {
		return 0, err
	}
	released := 0
	for _, a := range stale {
		_, err := s.repo.UpdateWhere(ctx, a.ID, docstore.Filter{
			"status":        StatusPending,
			"paymentStatus": PaymentUnpaid,
		}, map[string]any{
			"status":    StatusCancelled,
			"updatedAt": now.UTC(),
		})
		if errors.Is(err, docstore.ErrNotFound) {
			continue
		}
		if err != nil {
			return released, err
		}
		released++
	}
	return released, nil
}

// Stats counts a doctor's appointments. Revenue is the fee of every paid
// appointment; today is the UTC date of now.
func (s *Service) Stats(ctx context.Context, doctor primitive.ObjectID) (*Stats, error) {
	items, err := s.repo.ListByDoctor(ctx, doctor)
	if err != nil {
		return nil, err
	}
	today := s.now().UTC().Format(time.DateOnly)
	st := &Stats{TotalAppointments: len(items)}
	for _, a := range items {
		if a.Status == StatusCompleted {
			st.CompletedAppointments++
		}
		if a.Date.UTC().Format(time.DateOnly) == today {
			st.TodayAppointments++
		}
		if a.PaymentStatus == PaymentPaid {
			st.TotalRevenue += a.ConsultationFee
		}
	}
	return st, nil
}

func nonNil(items []*Appointment) []*Appointment {
	if items == nil {
		return []*Appointment{}
	}
	return items
}
