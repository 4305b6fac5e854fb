package prescription

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthbridge/healthbridge/internal/platform/apierror"
	"github.com/healthbridge/healthbridge/internal/platform/auth"
	"github.com/healthbridge/healthbridge/internal/platform/validation"
)

const (
	msgNotFound     = "Prescription not found"
	msgAccessDenied = "Access denied"
)

func validHex(s string) bool {
	return primitive.IsValidObjectID(strings.TrimSpace(s))
}

var createRules = validation.NewChain(
	validation.Rule[*Input]{Field: "appointmentId", Message: "Appointment is required", Check: func(in *Input) bool { return validHex(in.AppointmentID) }},
	validation.Rule[*Input]{Field: "patientId", Message: "Patient is required", Check: func(in *Input) bool { return validHex(in.PatientID) }},
).With(itemRule)

var itemRule = validation.Rule[*Input]{
	Field:   "medicines",
	Message: "Every medicine needs a name",
	Check: func(in *Input) bool {
		for _, it := range in.Medicines {
			if strings.TrimSpace(it.Name) == "" {
				return false
			}
		}
		return true
	},
}

var updateRules = validation.NewChain(itemRule)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Create records a prescription written by doctor.
func (s *Service) Create(ctx context.Context, doctor primitive.ObjectID, in Input) (*Prescription, error) {
	if err := createRules.Validate(&in); err != nil {
		return nil, err
	}
	appointmentID, _ := primitive.ObjectIDFromHex(strings.TrimSpace(in.AppointmentID))
	patientID, _ := primitive.ObjectIDFromHex(strings.TrimSpace(in.PatientID))

	now := s.now().UTC()
	p := &Prescription{
		ID:            primitive.NewObjectID(),
		AppointmentID: appointmentID,
		DoctorID:      doctor,
		PatientID:     patientID,
		Medicines:     items(in.Medicines),
		Diagnosis:     in.Diagnosis,
		Notes:         in.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// List returns prescriptions matching f, newest first. A patient caller
// only ever sees their own, whatever the filter asks for.
func (s *Service) List(ctx context.Context, caller *auth.Claims, f Filter) ([]*Prescription, error) {
	if caller != nil && caller.Role == auth.RolePatient {
		id, err := primitive.ObjectIDFromHex(caller.ID)
		if err != nil {
			return nil, apierror.Unauthorized("Invalid token")
		}
		f.PatientID = id
	}
	out, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*Prescription{}
	}
	return out, nil
}

// Get returns a prescription. Patients asking for someone else's get the
// same answer as for a missing one.
func (s *Service) Get(ctx context.Context, caller *auth.Claims, id primitive.ObjectID) (*Prescription, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apierror.NotFoundAs(err, msgNotFound)
	}
	if caller != nil && caller.Role == auth.RolePatient && p.PatientID.Hex() != caller.ID {
		return nil, apierror.NotFound(msgNotFound)
	}
	return p, nil
}

// owned returns the prescription when doctor wrote it.
func (s *Service) owned(ctx context.Context, doctor, id primitive.ObjectID) (*Prescription, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apierror.NotFoundAs(err, msgNotFound)
	}
	if p.DoctorID != doctor {
		return nil, apierror.Forbidden(msgAccessDenied)
	}
	return p, nil
}

// Update replaces the medicines, diagnosis and notes of a prescription
// written by doctor.
func (s *Service) Update(ctx context.Context, doctor, id primitive.ObjectID, in Input) (*Prescription, error) {
	if err := updateRules.Validate(&in); err != nil {
		return nil, err
	}
	p, err := s.owned(ctx, doctor, id)
	if err != nil {
		return nil, err
	}
	p.Medicines = items(in.Medicines)
	p.Diagnosis = in.Diagnosis
	p.Notes = in.Notes
	p.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, apierror.NotFoundAs(err, msgNotFound)
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, doctor, id primitive.ObjectID) error {
	if _, err := s.owned(ctx, doctor, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return apierror.NotFoundAs(err, msgNotFound)
	}
	return nil
}

func items(in []Item) []Item {
	out := make([]Item, len(in))
	for i, it := range in {
		it.Name = strings.TrimSpace(it.Name)
		out[i] = it
	}
	return out
}
