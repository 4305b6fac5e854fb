package doctor

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthbridge/healthbridge/internal/domain/appointment"
	"github.com/healthbridge/healthbridge/internal/domain/identity"
	"github.com/healthbridge/healthbridge/internal/platform/apierror"
	"github.com/healthbridge/healthbridge/internal/platform/docstore"
	"github.com/healthbridge/healthbridge/internal/platform/validation"
)

const (
	defaultSearchLimit = 10
	msgQueryRequired   = "Query required"
	msgAlreadyReviewed = "You have already reviewed this doctor"
)

// Directory is the account store behind the doctor listing.
type Directory interface {
	ActiveDoctors(ctx context.Context) ([]*identity.User, error)
	Doctor(ctx context.Context, id primitive.ObjectID) (*identity.User, error)
	SetAvailability(ctx context.Context, id primitive.ObjectID, slots []identity.Availability) ([]identity.Availability, error)
	SetRating(ctx context.Context, id primitive.ObjectID, rating float64, count int) error
	DisplayName(ctx context.Context, id primitive.ObjectID) (string, error)
}

type Appointments interface {
	Stats(ctx context.Context, doctor primitive.ObjectID) (*appointment.Stats, error)
}

var reviewRules = validation.NewChain(
	validation.Rule[*ReviewInput]{
		Field:   "rating",
		Message: "Rating must be between 1 and 5",
		Check:   func(in *ReviewInput) bool { return in.Rating >= 1 && in.Rating <= 5 },
	},
)

var availabilityRules = validation.NewChain(
	validation.Rule[*AvailabilityInput]{
		Field:   "availability",
		Message: "Every slot needs a day, start and end time",
		Check: func(in *AvailabilityInput) bool {
			for _, a := range in.Availability {
				if strings.TrimSpace(a.Day) == "" || strings.TrimSpace(a.StartTime) == "" || strings.TrimSpace(a.EndTime) == "" {
					return false
				}
			}
			return true
		},
	},
)

type Service struct {
	doctors      Directory
	reviews      ReviewRepository
	appointments Appointments
	now          func() time.Time

	// reviewMu serialises the duplicate check, insert and rating refresh of
	// Review.
	reviewMu sync.Mutex
}

func NewService(doctors Directory, reviews ReviewRepository, appointments Appointments) *Service {
	return &Service{doctors: doctors, reviews: reviews, appointments: appointments, now: time.Now}
}

func details(u *identity.User) identity.DoctorDetails {
	if u.DoctorDetails == nil {
		return identity.DoctorDetails{}
	}
	return *u.DoctorDetails
}

func contains(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func (f Filter) match(u *identity.User) bool {
	d := details(u)
	if f.Specialization != "" && !contains(d.Specialization, f.Specialization) {
		return false
	}
	if f.City != "" && !contains(d.City, f.City) {
		return false
	}
	if f.MinFee != nil && d.ConsultationFee < *f.MinFee {
		return false
	}
	if f.MaxFee != nil && d.ConsultationFee > *f.MaxFee {
		return false
	}
	return true
}

// List returns the active doctors matching f, best rated first.
func (s *Service) List(ctx context.Context, f Filter) ([]*identity.User, error) {
	all, err := s.doctors.ActiveDoctors(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*identity.User, 0, len(all))
	for _, u := range all {
		if f.match(u) {
			out = append(out, u)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return details(out[i]).Rating > details(out[j]).Rating
	})
	return out, nil
}

// Search matches q against the name, specialization and city of active
// doctors and returns at most limit of them.
func (s *Service) Search(ctx context.Context, q string, limit int) ([]*identity.User, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apierror.BadRequest(msgQueryRequired)
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	all, err := s.doctors.ActiveDoctors(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*identity.User, 0, limit)
	for _, u := range all {
		if len(out) == limit {
			break
		}
		d := details(u)
		if contains(u.Name, q) || contains(d.Specialization, q) || contains(d.City, q) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, rawID string) (*identity.User, error) {
	id, err := apierror.ParseID(rawID)
	if err != nil {
		return nil, err
	}
	return s.doctors.Doctor(ctx, id)
}

// UpdateAvailability replaces the calling doctor's weekly availability.
func (s *Service) UpdateAvailability(ctx context.Context, doctor primitive.ObjectID, in AvailabilityInput) ([]identity.Availability, error) {
	if err := availabilityRules.Validate(&in); err != nil {
		return nil, err
	}
	return s.doctors.SetAvailability(ctx, doctor, in.Availability)
}

func (s *Service) Stats(ctx context.Context, doctor primitive.ObjectID) (*appointment.Stats, error) {
	return s.appointments.Stats(ctx, doctor)
}

// Review records patient's score for a doctor and refreshes the doctor's
// average rating.
func (s *Service) Review(ctx context.Context, patient primitive.ObjectID, rawDoctorID string, in ReviewInput) (*Review, error) {
	doctorID, err := apierror.ParseID(rawDoctorID)
	if err != nil {
		return nil, err
	}
	if err := reviewRules.Validate(&in); err != nil {
		return nil, err
	}
	if _, err := s.doctors.Doctor(ctx, doctorID); err != nil {
		return nil, err
	}
	name, err := s.doctors.DisplayName(ctx, patient)
	if err != nil {
		return nil, err
	}

	s.reviewMu.Lock()
	defer s.reviewMu.Unlock()

	if _, err := s.reviews.Find(ctx, doctorID, patient); err == nil {
		return nil, apierror.BadRequest(msgAlreadyReviewed)
	} else if !errors.Is(err, docstore.ErrNotFound) {
		return nil, err
	}

	r := &Review{
		ID:          primitive.NewObjectID(),
		DoctorID:    doctorID,
		PatientID:   patient,
		PatientName: name,
		Rating:      in.Rating,
		Comment:     strings.TrimSpace(in.Comment),
		Timestamp:   s.now().UTC(),
	}
	if err := s.reviews.Create(ctx, r); errors.Is(err, docstore.ErrDuplicate) {
		return nil, apierror.BadRequest(msgAlreadyReviewed)
	} else if err != nil {
		return nil, err
	}
	if err := s.refreshRating(ctx, doctorID); err != nil {
		return nil, err
	}
	return r, nil
}

// refreshRating recomputes the average from every stored review, rounded
// to one decimal.
func (s *Service) refreshRating(ctx context.Context, doctorID primitive.ObjectID) error {
	items, err := s.reviews.ListByDoctor(ctx, doctorID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return s.doctors.SetRating(ctx, doctorID, 0, 0)
	}
	sum := 0
	for _, r := range items {
		sum += r.Rating
	}
	avg := math.Round(float64(sum)/float64(len(items))*10) / 10
	return s.doctors.SetRating(ctx, doctorID, avg, len(items))
}

// Reviews lists a doctor's reviews, newest first.
func (s *Service) Reviews(ctx context.Context, rawDoctorID string) ([]*Review, error) {
	doctorID, err := apierror.ParseID(rawDoctorID)
	if err != nil {
		return nil, err
	}
	if _, err := s.doctors.Doctor(ctx, doctorID); err != nil {
		return nil, err
	}
	items, err := s.reviews.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*Review{}
	}
	return items, nil
}
