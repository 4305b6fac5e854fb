package appointment

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthbridge/healthbridge/internal/platform/apierror"
	"github.com/healthbridge/healthbridge/internal/platform/docstore"
)

type fakeDoctors map[primitive.ObjectID]float64

func (d fakeDoctors) ConsultationFee(_ context.Context, id primitive.ObjectID) (float64, error) {
	fee, ok := d[id]
	if !ok {
		return 0, apierror.NotFound("Doctor not found")
	}
	return fee, nil
}

var testNow = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestService() (*Service, primitive.ObjectID) {
	doctor := primitive.NewObjectID()
	svc := NewService(NewStoreRepo(docstore.NewMemoryStore()), fakeDoctors{doctor: 500})
	svc.now = func() time.Time { return testNow }
	return svc, doctor
}

func book(t *testing.T, svc *Service, patient, doctor primitive.ObjectID, date, slot string) *Appointment {
	t.Helper()
	b, err := svc.Book(context.Background(), patient, BookInput{DoctorID: doctor.Hex(), Date: date, TimeSlot: slot})
	if err != nil {
		t.Fatalf("book %s %s: %v", date, slot, err)
	}
	return b.Appointment
}

func expectAPIError(t *testing.T, err error, code int, msg string) {
	t.Helper()
	var apiErr *apierror.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected %d %q, got %v", code, msg, err)
	}
	if apiErr.Code != code || apiErr.Message != msg {
		t.Errorf("expected %d %q, got %d %q", code, msg, apiErr.Code, apiErr.Message)
	}
}

func TestService_Book(t *testing.T) {
	svc, doctor := newTestService()
	patient := primitive.NewObjectID()

	b, err := svc.Book(context.Background(), patient, BookInput{DoctorID: doctor.Hex(), Date: "2026-06-10", TimeSlot: "10:00 - 10:30"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Fees != 500 || b.Message != "Appointment initialized" {
		t.Errorf("unexpected booking %+v", b)
	}
	a := b.Appointment
	if a.Status != StatusPending || a.PaymentStatus != PaymentUnpaid {
		t.Errorf("expected pending unpaid, got %s %s", a.Status, a.PaymentStatus)
	}
	if !a.Date.Equal(time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected date %v", a.Date)
	}
}

func TestService_Book_SlotTaken(t *testing.T) {
	svc, doctor := newTestService()
	book(t, svc, primitive.NewObjectID(), doctor, "2026-06-10", "10:00 - 10:30")

	_, err := svc.Book(context.Background(), primitive.NewObjectID(), BookInput{DoctorID: doctor.Hex(), Date: "2026-06-10T00:00:00Z", TimeSlot: "10:00 - 10:30"})
	expectAPIError(t, err, 400, "This time slot is already booked.")

	book(t, svc, primitive.NewObjectID(), doctor, "2026-06-10", "10:30 - 11:00")
	book(t, svc, primitive.NewObjectID(), doctor, "2026-06-11", "10:00 - 10:30")
}

func TestService_Book_ConcurrentSameSlot(t *testing.T) {
	svc, doctor := newTestService()

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		oks int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Book(context.Background(), primitive.NewObjectID(), BookInput{DoctorID: doctor.Hex(), Date: "2026-06-10", TimeSlot: "09:00 - 09:30"})
			if err == nil {
				mu.Lock()
				oks++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if oks != 1 {
		t.Errorf("expected exactly one booking to succeed, got %d", oks)
	}
}

func TestService_Book_Rejections(t *testing.T) {
	svc, doctor := newTestService()
	ctx := context.Background()
	patient := primitive.NewObjectID()

	_, err := svc.Book(ctx, patient, BookInput{DoctorID: doctor.Hex(), Date: "2026-06-10"})
	expectAPIError(t, err, 400, "Doctor, date and time slot are required")

	_, err = svc.Book(ctx, patient, BookInput{DoctorID: doctor.Hex(), Date: "soon", TimeSlot: "10:00"})
	expectAPIError(t, err, 400, "Invalid date")

	_, err = svc.Book(ctx, patient, BookInput{DoctorID: primitive.NewObjectID().Hex(), Date: "2026-06-10", TimeSlot: "10:00"})
	expectAPIError(t, err, 404, "Doctor not found")
}

func TestService_ConfirmPayment(t *testing.T) {
	svc, doctor := newTestService()
	ctx := context.Background()
	patient := primitive.NewObjectID()
	a := book(t, svc, patient, doctor, "2026-06-10", "10:00 - 10:30")

	_, err := svc.ConfirmPayment(ctx, primitive.NewObjectID(), PaymentInput{AppointmentID: a.ID.Hex(), PaymentID: "pay_1"})
	expectAPIError(t, err, 403, "Access denied")

	paid, err := svc.ConfirmPayment(ctx, patient, PaymentInput{AppointmentID: a.ID.Hex(), PaymentID: "pay_1"})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if paid.Status != StatusScheduled || paid.PaymentStatus != PaymentPaid || paid.PaymentID != "pay_1" {
		t.Errorf("unexpected appointment %+v", paid)
	}

	_, err = svc.ConfirmPayment(ctx, patient, PaymentInput{AppointmentID: primitive.NewObjectID().Hex()})
	expectAPIError(t, err, 404, "Appointment not found")
}

func TestService_Lists(t *testing.T) {
	svc, doctor := newTestService()
	ctx := context.Background()
	patient := primitive.NewObjectID()

	book(t, svc, patient, doctor, "2026-06-12", "09:00")
	book(t, svc, patient, doctor, "2026-06-10", "11:00")
	book(t, svc, primitive.NewObjectID(), doctor, "2026-06-10", "09:00")

	ds, err := svc.ForDoctor(ctx, doctor)
	if err != nil {
		t.Fatalf("for doctor: %v", err)
	}
	var got []string
	for _, a := range ds {
		got = append(got, a.Date.Format("01-02")+" "+a.TimeSlot)
	}
	want := []string{"06-10 09:00", "06-10 11:00", "06-12 09:00"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	ps, _ := svc.ForPatient(ctx, patient)
	if len(ps) != 2 || !ps[0].Date.After(ps[1].Date) {
		t.Errorf("expected patient's 2 appointments latest first, got %+v", ps)
	}

	none, _ := svc.ForPatient(ctx, primitive.NewObjectID())
	if none == nil || len(none) != 0 {
		t.Errorf("expected empty list, got %v", none)
	}
}

func TestService_BookedSlots(t *testing.T) {
	svc, doctor := newTestService()
	ctx := context.Background()

	book(t, svc, primitive.NewObjectID(), doctor, "2026-06-10", "11:00")
	book(t, svc, primitive.NewObjectID(), doctor, "2026-06-10", "09:00")
	book(t, svc, primitive.NewObjectID(), doctor, "2026-06-11", "10:00")

	slots, err := svc.BookedSlots(ctx, doctor.Hex(), "2026-06-10")
	if err != nil {
		t.Fatalf("booked slots: %v", err)
	}
	if !reflect.DeepEqual(slots, []string{"09:00", "11:00"}) {
		t.Errorf("unexpected slots %v", slots)
	}

	_, err = svc.BookedSlots(ctx, "", "2026-06-10")
	expectAPIError(t, err, 400, "Doctor ID and Date are required")
}

func TestService_Cancel(t *testing.T) {
	svc, doctor := newTestService()
	ctx := context.Background()
	patient := primitive.NewObjectID()

	a := book(t, svc, patient, doctor, "2026-06-10", "10:00")
	expectAPIError(t, svc.Cancel(ctx, primitive.NewObjectID(), a.ID.Hex()), 403, "Access denied")

	if err := svc.Cancel(ctx, doctor, a.ID.Hex()); err != nil {
		t.Fatalf("doctor cancel: %v", err)
	}
	expectAPIError(t, svc.Cancel(ctx, patient, a.ID.Hex()), 404, "Appointment not found")

	slots, _ := svc.BookedSlots(ctx, doctor.Hex(), "2026-06-10")
	if len(slots) != 0 {
		t.Errorf("expected slot to be free, got %v", slots)
	}
}

func TestService_Complete(t *testing.T) {
	svc, doctor := newTestService()
	ctx := context.Background()
	a := book(t, svc, primitive.NewObjectID(), doctor, "2026-06-10", "10:00")

	_, err := svc.Complete(ctx, primitive.NewObjectID(), CompleteInput{AppointmentID: a.ID.Hex()})
	expectAPIError(t, err, 403, "Access denied")

	done, err := svc.Complete(ctx, doctor, CompleteInput{AppointmentID: a.ID.Hex(), Diagnosis: "Flu", Prescription: "Rest"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != StatusCompleted || done.Diagnosis != "Flu" || done.Prescription != "Rest" {
		t.Errorf("unexpected appointment %+v", done)
	}
}

func TestService_ReleaseStale(t *testing.T) {
	svc, doctor := newTestService()
	ctx := context.Background()
	patient := primitive.NewObjectID()

	old := book(t, svc, patient, doctor, "2026-06-10", "09:00")
	paid := book(t, svc, patient, doctor, "2026-06-10", "10:00")
	svc.ConfirmPayment(ctx, patient, PaymentInput{AppointmentID: paid.ID.Hex(), PaymentID: "pay_2"})

	svc.now = func() time.Time { return testNow.Add(90 * time.Minute) }
	fresh := book(t, svc, patient, doctor, "2026-06-10", "11:00")

	n, err := svc.ReleaseStale(ctx, testNow.Add(3*time.Hour), 2*time.Hour)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 released, got %d", n)
	}

	slots, _ := svc.BookedSlots(ctx, doctor.Hex(), "2026-06-10")
	if !reflect.DeepEqual(slots, []string{"10:00", "11:00"}) {
		t.Errorf("expected released slot to be free, got %v", slots)
	}

	_, err = svc.ConfirmPayment(ctx, patient, PaymentInput{AppointmentID: old.ID.Hex()})
	expectAPIError(t, err, 400, "Appointment was cancelled")

	if _, err := svc.ConfirmPayment(ctx, patient, PaymentInput{AppointmentID: fresh.ID.Hex()}); err != nil {
		t.Errorf("expected fresh booking to stay payable, got %v", err)
	}
}

// payingRepo confirms the payment of a booking right after the stale
// query has selected it, as a patient paying at that moment would.
type payingRepo struct {
	Repository
	pay func()
}

func (r *payingRepo) Stale(ctx context.Context, t time.Time) ([]*Appointment, error) {
	items, err := r.Repository.Stale(ctx, t)
	r.pay()
	return items, err
}

func TestService_ReleaseStale_PaidMeanwhile(t *testing.T) {
	ctx := context.Background()
	doctor := primitive.NewObjectID()
	patient := primitive.NewObjectID()
	repo := &payingRepo{Repository: NewStoreRepo(docstore.NewMemoryStore())}
	svc := NewService(repo, fakeDoctors{doctor: 500})
	svc.now = func() time.Time { return testNow }

	a := book(t, svc, patient, doctor, "2026-06-10", "09:00")
	repo.pay = func() {
		if _, err := svc.ConfirmPayment(ctx, patient, PaymentInput{AppointmentID: a.ID.Hex(), PaymentID: "pay_late"}); err != nil {
			t.Errorf("confirm: %v", err)
		}
	}

	n, err := svc.ReleaseStale(ctx, testNow.Add(3*time.Hour), 2*time.Hour)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if n != 0 {
		t.Errorf("expected nothing released, got %d", n)
	}

	got, err := repo.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusScheduled || got.PaymentStatus != PaymentPaid || got.PaymentID != "pay_late" {
		t.Errorf("expected the payment to stand, got %s %s %q", got.Status, got.PaymentStatus, got.PaymentID)
	}
}

// cancellingRepo cancels the booking between the read and the write of
// ConfirmPayment.
type cancellingRepo struct {
	Repository
	reads int
}

func (r *cancellingRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*Appointment, error) {
	a, err := r.Repository.GetByID(ctx, id)
	r.reads++
	if err == nil && r.reads == 1 {
		_, cerr := r.Repository.UpdateWhere(ctx, id, nil, map[string]any{"status": StatusCancelled})
		if cerr != nil {
			return nil, cerr
		}
	}
	return a, err
}

func TestService_ConfirmPayment_CancelledMeanwhile(t *testing.T) {
	ctx := context.Background()
	doctor := primitive.NewObjectID()
	patient := primitive.NewObjectID()
	repo := &cancellingRepo{Repository: NewStoreRepo(docstore.NewMemoryStore())}
	svc := NewService(repo, fakeDoctors{doctor: 500})
	svc.now = func() time.Time { return testNow }

	a := book(t, svc, patient, doctor, "2026-06-10", "09:00")

	_, err := svc.ConfirmPayment(ctx, patient, PaymentInput{AppointmentID: a.ID.Hex(), PaymentID: "pay_1"})
	expectAPIError(t, err, 400, "Appointment was cancelled")

	got, _ := repo.Repository.GetByID(ctx, a.ID)
	if got.Status != StatusCancelled || got.PaymentStatus != PaymentUnpaid {
		t.Errorf("expected the cancellation to stand, got %s %s", got.Status, got.PaymentStatus)
	}
}

func TestService_Stats(t *testing.T) {
	svc, doctor := newTestService()
	ctx := context.Background()
	patient := primitive.NewObjectID()

	today := book(t, svc, patient, doctor, "2026-06-01", "10:00")
	later := book(t, svc, patient, doctor, "2026-06-05", "10:00")
	book(t, svc, patient, doctor, "2026-06-05", "11:00")
	other := primitive.NewObjectID()
	svc.doctors = fakeDoctors{doctor: 500, other: 300}
	book(t, svc, patient, other, "2026-06-01", "12:00")

	for _, a := range []*Appointment{today, later} {
		if _, err := svc.ConfirmPayment(ctx, patient, PaymentInput{AppointmentID: a.ID.Hex()}); err != nil {
			t.Fatalf("confirm: %v", err)
		}
	}
	if _, err := svc.Complete(ctx, doctor, CompleteInput{AppointmentID: today.ID.Hex(), Diagnosis: "Flu"}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	st, err := svc.Stats(ctx, doctor)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := Stats{TotalAppointments: 3, CompletedAppointments: 1, TodayAppointments: 1, TotalRevenue: 1000}
	if *st != want {
		t.Errorf("expected %+v, got %+v", want, *st)
	}

	empty, err := svc.Stats(ctx, primitive.NewObjectID())
	if err != nil || *empty != (Stats{}) {
		t.Errorf("expected zero stats, got %+v %v", empty, err)
	}
}
