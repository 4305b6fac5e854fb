package identity

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthbridge/healthbridge/internal/platform/apierror"
	"github.com/healthbridge/healthbridge/internal/platform/auth"
	"github.com/healthbridge/healthbridge/internal/platform/docstore"
	"github.com/healthbridge/healthbridge/internal/platform/validation"
)

var testNow = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

func newTestService() *Service {
	issuer := auth.NewTokenIssuer([]byte("test-secret"), time.Hour)
	svc := NewService(NewStoreRepo(docstore.NewMemoryStore()), issuer)
	svc.now = func() time.Time { return testNow }
	return svc
}

func patientInput(email string) RegisterInput {
	age := 31
	return RegisterInput{
		Name:     "Asha Verma",
		Email:    email,
		Password: "secret1",
		Role:     "patient",
		Phone:    "9876543210",
		Age:      &age,
		City:     "Pune",
	}
}

func doctorInput(email string, fee Flexible) RegisterInput {
	return RegisterInput{
		Name:            "Dr. Rao",
		Email:           email,
		Password:        "secret1",
		Role:            "doctor",
		Phone:           "9000000000",
		Specialization:  "Cardiology",
		ConsultationFee: fee,
	}
}

func mustRegister(t *testing.T, svc *Service, in RegisterInput) *Session {
	t.Helper()
	sess, err := svc.Register(context.Background(), in)
	if err != nil {
		t.Fatalf("register %s: %v", in.Email, err)
	}
	return sess
}

func assertAPIError(t *testing.T, err error, code int, msg string) {
	t.Helper()
	var apiErr *apierror.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected api error %d %q, got %v", code, msg, err)
	}
	if apiErr.Code != code || apiErr.Message != msg {
		t.Errorf("expected %d %q, got %d %q", code, msg, apiErr.Code, apiErr.Message)
	}
}

func TestService_Register_Patient(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	sess := mustRegister(t, svc, patientInput("  Asha@Example.COM "))
	if sess.Email != "asha@example.com" {
		t.Errorf("expected normalised email, got %q", sess.Email)
	}
	if sess.Role != auth.RolePatient {
		t.Errorf("expected patient role, got %q", sess.Role)
	}

	claims, err := svc.tokens.Verify(sess.Token)
	if err != nil {
		t.Fatalf("token does not verify: %v", err)
	}
	if claims.ID != sess.ID.Hex() || claims.Role != auth.RolePatient {
		t.Errorf("unexpected claims: %+v", claims)
	}

	u, err := svc.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.Password == "secret1" || !auth.CheckPassword(u.Password, "secret1") {
		t.Error("expected a bcrypt hash of the password")
	}
	if !u.IsActive {
		t.Error("expected new accounts to be active")
	}
	if u.PatientDetails == nil || u.PatientDetails.City != "Pune" || *u.PatientDetails.Age != 31 {
		t.Errorf("unexpected patient details: %+v", u.PatientDetails)
	}
	if u.DoctorDetails != nil || u.PharmacyDetails != nil {
		t.Error("expected only the patient block")
	}
}

func TestService_Register_DoctorFee(t *testing.T) {
	svc := newTestService()
	for _, fee := range []Flexible{"500", "500.00"} {
		sess := mustRegister(t, svc, doctorInput(string(fee)+"@clinic.test", fee))
		got, err := svc.ConsultationFee(context.Background(), sess.ID)
		if err != nil {
			t.Fatalf("fee: %v", err)
		}
		if got != 500 {
			t.Errorf("expected fee 500, got %v", got)
		}
	}
}

func TestService_Register_Pharmacy(t *testing.T) {
	svc := newTestService()
	sess := mustRegister(t, svc, RegisterInput{
		Name:         "Green Cross",
		Email:        "gc@pharmacy.test",
		Password:     "secret1",
		Role:         "pharmacy",
		PharmacyName: "Green Cross Pharmacy",
		Coordinates:  []float64{73.85, 18.52},
	})
	u, _ := svc.Get(context.Background(), sess.ID)
	if u.PharmacyDetails.PharmacyName != "Green Cross Pharmacy" {
		t.Errorf("unexpected pharmacy name %q", u.PharmacyDetails.PharmacyName)
	}
	loc := u.PharmacyDetails.Location
	if loc.Type != "Point" || loc.Lng() != 73.85 || loc.Lat() != 18.52 {
		t.Errorf("unexpected location %+v", loc)
	}
}

func TestService_Register_ChainCollectsEveryFailure(t *testing.T) {
	tests := []struct {
		name string
		in   RegisterInput
		want []string
	}{
		{
			name: "empty doctor",
			in:   RegisterInput{Role: "doctor"},
			want: []string{"Name required", "Email required", "Password min 6", "Specialization required", "Consultation fee numeric"},
		},
		{
			name: "doctor with text fee",
			in:   doctorInput("rao@clinic.test", "five hundred"),
			want: []string{"Consultation fee numeric"},
		},
		{
			name: "doctor with negative fee",
			in:   doctorInput("rao@clinic.test", "-250"),
			want: []string{"Consultation fee must be 0 or more"},
		},
		{
			name: "pharmacy without name",
			in:   RegisterInput{Name: "GC", Email: "gc@x.test", Password: "secret1", Role: "pharmacy"},
			want: []string{"Pharmacy name required"},
		},
		{
			name: "hospital cannot self register here",
			in:   RegisterInput{Name: "City", Email: "city@x.test", Password: "secret1", Role: "hospital"},
			want: []string{"Role must be patient, doctor or pharmacy"},
		},
		{
			name: "short password and bad email",
			in:   RegisterInput{Name: "A", Email: "not-an-email", Password: "12345", Role: "patient"},
			want: []string{"Email required", "Password min 6"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestService().Register(context.Background(), tt.in)
			var errs validation.Errors
			if !errors.As(err, &errs) {
				t.Fatalf("expected validation errors, got %v", err)
			}
			if !reflect.DeepEqual(errs.Messages(), tt.want) {
				t.Errorf("expected %v, got %v", tt.want, errs.Messages())
			}
		})
	}
}

func TestService_Register_Duplicate(t *testing.T) {
	svc := newTestService()
	mustRegister(t, svc, patientInput("asha@example.com"))

	_, err := svc.Register(context.Background(), patientInput("ASHA@example.com"))
	assertAPIError(t, err, 400, "User exists")
}

func TestService_Login(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	reg := mustRegister(t, svc, patientInput("asha@example.com"))

	sess, err := svc.Login(ctx, LoginInput{Email: "Asha@example.com", Password: "secret1", Role: "patient"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.ID != reg.ID || sess.Token == "" {
		t.Errorf("unexpected session %+v", sess)
	}

	if _, err := svc.Login(ctx, LoginInput{Email: "asha@example.com", Password: "secret1"}); err != nil {
		t.Errorf("expected login without role to succeed, got %v", err)
	}

	failures := []LoginInput{
		{Email: "asha@example.com", Password: "wrong-pass", Role: "patient"},
		{Email: "asha@example.com", Password: "secret1", Role: "doctor"},
		{Email: "asha@example.com", Password: "secret1", Role: "admin"},
		{Email: "nobody@example.com", Password: "secret1", Role: "patient"},
	}
	for _, in := range failures {
		_, err := svc.Login(ctx, in)
		assertAPIError(t, err, 401, "Invalid credentials")
	}

	if err := svc.Deactivate(ctx, reg.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	_, err = svc.Login(ctx, LoginInput{Email: "asha@example.com", Password: "secret1", Role: "patient"})
	assertAPIError(t, err, 401, "Invalid credentials")
}

func TestService_Update_MergesOwnRoleDetails(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	reg := mustRegister(t, svc, patientInput("asha@example.com"))

	u, err := svc.Update(ctx, reg.ID, UpdateInput{
		Phone:          "9111111111",
		PatientDetails: json.RawMessage(`{"bloodGroup":"O+"}`),
		DoctorDetails:  json.RawMessage(`{"specialization":"Surgery"}`),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if u.Name != "Asha Verma" {
		t.Errorf("expected name to be kept, got %q", u.Name)
	}
	if u.Phone != "9111111111" {
		t.Errorf("expected phone to change, got %q", u.Phone)
	}
	if u.PatientDetails.BloodGroup != "O+" || u.PatientDetails.City != "Pune" {
		t.Errorf("expected merged details, got %+v", u.PatientDetails)
	}
	if u.DoctorDetails != nil {
		t.Error("expected details of other roles to be ignored")
	}
}

func TestService_Update_Password(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	reg := mustRegister(t, svc, patientInput("asha@example.com"))

	_, err := svc.Update(ctx, reg.ID, UpdateInput{Password: "123"})
	var errs validation.Errors
	if !errors.As(err, &errs) || errs.First() != "Password min 6" {
		t.Fatalf("expected password rule failure, got %v", err)
	}

	if _, err := svc.Update(ctx, reg.ID, UpdateInput{Password: "new-secret"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := svc.Login(ctx, LoginInput{Email: "asha@example.com", Password: "new-secret"}); err != nil {
		t.Errorf("expected login with new password, got %v", err)
	}
}

func TestService_Update_BadDetails(t *testing.T) {
	svc := newTestService()
	reg := mustRegister(t, svc, patientInput("asha@example.com"))

	_, err := svc.Update(context.Background(), reg.ID, UpdateInput{PatientDetails: json.RawMessage(`{"age":"old"}`)})
	var errs validation.Errors
	if !errors.As(err, &errs) || errs.First() != "Invalid patient details" {
		t.Errorf("expected invalid details error, got %v", err)
	}
}

func TestService_Update_NegativeFee(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	reg := mustRegister(t, svc, doctorInput("rao@clinic.test", "500"))

	_, err := svc.Update(ctx, reg.ID, UpdateInput{DoctorDetails: json.RawMessage(`{"consultationFee":-1}`)})
	var errs validation.Errors
	if !errors.As(err, &errs) || errs.First() != "Consultation fee must be 0 or more" {
		t.Fatalf("expected negative fee rejection, got %v", err)
	}
	fee, _ := svc.ConsultationFee(ctx, reg.ID)
	if fee != 500 {
		t.Errorf("expected stored fee to stay 500, got %v", fee)
	}

	if _, err := svc.Update(ctx, reg.ID, UpdateInput{DoctorDetails: json.RawMessage(`{"consultationFee":0}`)}); err != nil {
		t.Errorf("expected a free consultation to be accepted, got %v", err)
	}
}

func TestService_UpdateProfile_FreshSession(t *testing.T) {
	svc := newTestService()
	reg := mustRegister(t, svc, patientInput("asha@example.com"))

	sess, err := svc.UpdateProfile(context.Background(), reg.ID, UpdateInput{Name: "Asha V."})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if sess.Name != "Asha V." {
		t.Errorf("expected new name, got %q", sess.Name)
	}
	if sess.Token == reg.Token {
		t.Error("expected a new token")
	}
}

func TestService_NotFound(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	missing := primitive.NewObjectID()

	_, err := svc.Get(ctx, missing)
	assertAPIError(t, err, 404, "User not found")

	_, err = svc.Update(ctx, missing, UpdateInput{Name: "x"})
	assertAPIError(t, err, 404, "User not found")

	err = svc.Deactivate(ctx, missing)
	assertAPIError(t, err, 404, "User not found")

	_, err = svc.ConsultationFee(ctx, missing)
	assertAPIError(t, err, 404, "Doctor not found")
}

func TestService_ConsultationFee_NotADoctor(t *testing.T) {
	svc := newTestService()
	reg := mustRegister(t, svc, patientInput("asha@example.com"))

	_, err := svc.ConsultationFee(context.Background(), reg.ID)
	assertAPIError(t, err, 404, "Doctor not found")
}

func TestService_DisplayName(t *testing.T) {
	svc := newTestService()
	reg := mustRegister(t, svc, doctorInput("rao@clinic.test", "400"))

	name, err := svc.DisplayName(context.Background(), reg.ID)
	if err != nil {
		t.Fatalf("display name: %v", err)
	}
	if name != "Dr. Rao" {
		t.Errorf("expected Dr. Rao, got %q", name)
	}
}

func TestService_List(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	for i, email := range []string{"a@x.test", "b@x.test", "c@x.test"} {
		svc.now = func() time.Time { return testNow.Add(time.Duration(i) * time.Minute) }
		mustRegister(t, svc, patientInput(email))
	}
	mustRegister(t, svc, doctorInput("rao@clinic.test", "400"))

	users, total, err := svc.List(ctx, auth.RolePatient, 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(users) != 2 {
		t.Fatalf("expected 2 of 3 patients, got %d of %d", len(users), total)
	}
	if users[0].Email != "c@x.test" {
		t.Errorf("expected newest first, got %s", users[0].Email)
	}
	for _, u := range users {
		if u.Password != "" {
			t.Error("expected passwords to be stripped")
		}
	}

	_, total, _ = svc.List(ctx, "", 20, 0)
	if total != 4 {
		t.Errorf("expected 4 users, got %d", total)
	}
}

func TestService_DoctorDirectorySupport(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	rao := mustRegister(t, svc, doctorInput("rao@clinic.test", "500"))
	svc.now = func() time.Time { return testNow.Add(time.Minute) }
	mehta := mustRegister(t, svc, doctorInput("mehta@clinic.test", "300"))
	patient := mustRegister(t, svc, patientInput("asha@example.com"))
	if err := svc.Deactivate(ctx, mehta.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	doctors, err := svc.ActiveDoctors(ctx)
	if err != nil {
		t.Fatalf("active doctors: %v", err)
	}
	if len(doctors) != 1 || doctors[0].ID != rao.ID || doctors[0].Password != "" {
		t.Fatalf("expected only the active doctor without password, got %+v", doctors)
	}

	_, err = svc.Doctor(ctx, patient.ID)
	assertAPIError(t, err, 404, "Doctor not found")

	slots := []Availability{{Day: "Monday", StartTime: "09:00", EndTime: "13:00"}}
	got, err := svc.SetAvailability(ctx, rao.ID, slots)
	if err != nil || !reflect.DeepEqual(got, slots) {
		t.Fatalf("set availability: %v %v", got, err)
	}
	if err := svc.SetRating(ctx, rao.ID, 4.5, 2); err != nil {
		t.Fatalf("set rating: %v", err)
	}

	d, err := svc.Doctor(ctx, rao.ID)
	if err != nil {
		t.Fatalf("doctor: %v", err)
	}
	if d.DoctorDetails.Rating != 4.5 || d.DoctorDetails.TotalRatings != 2 || len(d.DoctorDetails.Availability) != 1 {
		t.Errorf("expected stored rating and availability, got %+v", d.DoctorDetails)
	}
	if d.DoctorDetails.ConsultationFee != 500 || d.Password != "" {
		t.Errorf("expected other fields kept and password stripped, got %+v", d)
	}

	err = svc.SetRating(ctx, patient.ID, 5, 1)
	assertAPIError(t, err, 404, "Doctor not found")
}
