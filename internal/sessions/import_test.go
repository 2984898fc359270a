package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clinicware/clinic-pos/internal/appointments"
)

type fakeSessionRepo struct {
	scheduled []Session
	listErr   error
	created   []Session
	createErr error
}

func (f *fakeSessionRepo) ListByDoctorDate(_ context.Context, _, _, _ string) ([]Session, error) {
	return f.scheduled, f.listErr
}

func (f *fakeSessionRepo) Create(_ context.Context, orgID, doctorID, date, startTime, endTime string) (*Session, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	sess := Session{
		ID:        "sess-new",
		OrgID:     orgID,
		DoctorID:  doctorID,
		Date:      date,
		StartTime: startTime,
		EndTime:   endTime,
	}
	f.created = append(f.created, sess)
	return &sess, nil
}

type fakeApptRepo struct {
	appt       *appointments.Appointment
	getErr     error
	byDate     []appointments.Appointment
	updates    []string // "id|sessionID|date"
	updateErr  error
	listedDate string
}

func (f *fakeApptRepo) GetForOrg(_ context.Context, _, _ string) (*appointments.Appointment, error) {
	return f.appt, f.getErr
}

func (f *fakeApptRepo) ListByDate(_ context.Context, _, date string) ([]appointments.Appointment, error) {
	f.listedDate = date
	return f.byDate, nil
}

func (f *fakeApptRepo) UpdateSessionRef(_ context.Context, _, id, sessionID, date string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, id+"|"+sessionID+"|"+date)
	return nil
}

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC) }
}

func TestCarryForward_SingleScheduledSession(t *testing.T) {
	sessRepo := &fakeSessionRepo{scheduled: []Session{
		{DoctorID: "doc1", Date: "2025-03-14", StartTime: "09:00", EndTime: "13:00"},
	}}
	apptRepo := &fakeApptRepo{appt: &appointments.Appointment{ID: "a1", Date: "2025-03-10"}}
	svc := NewImportService(sessRepo, apptRepo, nil, nil).WithNow(fixedClock())

	res, err := svc.CarryForward(context.Background(), "org-1", "a1", "doc1", ImportOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SessionID != "doc1_2025-03-14_09:00_13:00" {
		t.Errorf("unexpected session id %q", res.SessionID)
	}
	if res.SessionCreated {
		t.Errorf("existing session should not report created")
	}
	if res.Date != "2025-03-14" {
		t.Errorf("expected today's date, got %q", res.Date)
	}
	if len(apptRepo.updates) != 1 || apptRepo.updates[0] != "a1|doc1_2025-03-14_09:00_13:00|2025-03-14" {
		t.Errorf("unexpected session ref update %v", apptRepo.updates)
	}
}

func TestCarryForward_HarvestsImplicitSessions(t *testing.T) {
	sessRepo := &fakeSessionRepo{}
	apptRepo := &fakeApptRepo{
		appt: &appointments.Appointment{ID: "a1"},
		byDate: []appointments.Appointment{
			{DoctorID: "doc1", SessionID: "doc1_2025-03-14_09:00_13:00"},
			{DoctorID: "doc1", SessionID: "doc1_2025-03-14_09:00_13:00"}, // duplicate ref
			{DoctorID: "doc2", SessionID: "doc2_2025-03-14_09:00_13:00"}, // other doctor
			{DoctorID: "doc1", SessionID: ""},
		},
	}
	svc := NewImportService(sessRepo, apptRepo, nil, nil).WithNow(fixedClock())

	res, err := svc.CarryForward(context.Background(), "org-1", "a1", "doc1", ImportOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SessionID != "doc1_2025-03-14_09:00_13:00" {
		t.Errorf("expected harvested session, got %q", res.SessionID)
	}
	if len(sessRepo.created) != 0 {
		t.Errorf("no session should be created when one is referenced")
	}
}

func TestCarryForward_NoSessionsCreatesWithDefaultHours(t *testing.T) {
	sessRepo := &fakeSessionRepo{}
	apptRepo := &fakeApptRepo{appt: &appointments.Appointment{ID: "a1"}}
	svc := NewImportService(sessRepo, apptRepo, nil, nil).WithNow(fixedClock())

	res, err := svc.CarryForward(context.Background(), "org-1", "a1", "doc1", ImportOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.SessionCreated {
		t.Errorf("expected a created session")
	}
	if res.SessionID != "doc1_2025-03-14_08:00_17:00" {
		t.Errorf("created session should use default import hours, got %q", res.SessionID)
	}
	if len(sessRepo.created) != 1 {
		t.Fatalf("expected 1 created session, got %d", len(sessRepo.created))
	}
	if sessRepo.created[0].StartTime != ImportDefaultStartTime || sessRepo.created[0].EndTime != ImportDefaultEndTime {
		t.Errorf("unexpected created hours %s-%s", sessRepo.created[0].StartTime, sessRepo.created[0].EndTime)
	}
}

func TestCarryForward_MultipleCandidatesNeedSelection(t *testing.T) {
	sessRepo := &fakeSessionRepo{scheduled: []Session{
		{DoctorID: "doc1", Date: "2025-03-14", StartTime: "09:00", EndTime: "13:00"},
		{DoctorID: "doc1", Date: "2025-03-14", StartTime: "14:00", EndTime: "17:00"},
	}}
	apptRepo := &fakeApptRepo{appt: &appointments.Appointment{ID: "a1"}}
	svc := NewImportService(sessRepo, apptRepo, nil, nil).WithNow(fixedClock())

	_, err := svc.CarryForward(context.Background(), "org-1", "a1", "doc1", ImportOptions{})
	var multi *ErrMultipleSessions
	if !errors.As(err, &multi) {
		t.Fatalf("expected ErrMultipleSessions, got %v", err)
	}
	if len(multi.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(multi.Candidates))
	}
	if len(apptRepo.updates) != 0 {
		t.Errorf("no update should happen before an explicit selection")
	}

	// Retry with an explicit selection.
	res, err := svc.CarryForward(context.Background(), "org-1", "a1", "doc1", ImportOptions{SessionID: multi.Candidates[1]})
	if err != nil {
		t.Fatalf("retry with selection failed: %v", err)
	}
	if res.SessionID != "doc1_2025-03-14_14:00_17:00" {
		t.Errorf("expected selected session, got %q", res.SessionID)
	}
}

func TestCarryForward_SelectionMustBeACandidate(t *testing.T) {
	sessRepo := &fakeSessionRepo{scheduled: []Session{
		{DoctorID: "doc1", Date: "2025-03-14", StartTime: "09:00", EndTime: "13:00"},
	}}
	apptRepo := &fakeApptRepo{appt: &appointments.Appointment{ID: "a1"}}
	svc := NewImportService(sessRepo, apptRepo, nil, nil).WithNow(fixedClock())

	_, err := svc.CarryForward(context.Background(), "org-1", "a1", "doc1", ImportOptions{SessionID: "doc1_2025-03-14_06:00_07:00"})
	if err == nil {
		t.Fatal("expected rejection of a non-candidate selection")
	}
	if len(apptRepo.updates) != 0 {
		t.Errorf("rejected selection must not update the appointment")
	}
}

func TestCarryForward_RejectsPaidAppointment(t *testing.T) {
	apptRepo := &fakeApptRepo{appt: &appointments.Appointment{
		ID:      "a1",
		Payment: &appointments.Payment{IsPaid: true},
	}}
	svc := NewImportService(&fakeSessionRepo{}, apptRepo, nil, nil).WithNow(fixedClock())

	_, err := svc.CarryForward(context.Background(), "org-1", "a1", "doc1", ImportOptions{})
	if !errors.Is(err, ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid, got %v", err)
	}
}

func TestCarryForward_UpdateFailureSurfaces(t *testing.T) {
	sessRepo := &fakeSessionRepo{scheduled: []Session{
		{DoctorID: "doc1", Date: "2025-03-14", StartTime: "09:00", EndTime: "13:00"},
	}}
	apptRepo := &fakeApptRepo{
		appt:      &appointments.Appointment{ID: "a1"},
		updateErr: errors.New("db down"),
	}
	svc := NewImportService(sessRepo, apptRepo, nil, nil).WithNow(fixedClock())

	if _, err := svc.CarryForward(context.Background(), "org-1", "a1", "doc1", ImportOptions{}); err == nil {
		t.Fatal("expected update failure to surface")
	}
}
