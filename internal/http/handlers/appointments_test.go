package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicware/clinic-pos/internal/appointments"
	"github.com/clinicware/clinic-pos/internal/notify"
	"github.com/clinicware/clinic-pos/internal/sessions"
	"github.com/clinicware/clinic-pos/internal/tenancy"
)

type stubAppointmentStore struct {
	appt      *appointments.Appointment
	created   []*appointments.Appointment
	arrived   []string
	paid      []appointments.Payment
	reviews   []string
	ranges    [][2]string
	returnErr error
}

func (s *stubAppointmentStore) GetForOrg(_ context.Context, _, _ string) (*appointments.Appointment, error) {
	if s.returnErr != nil {
		return nil, s.returnErr
	}
	return s.appt, nil
}

func (s *stubAppointmentStore) ListByDate(_ context.Context, _, _ string) ([]appointments.Appointment, error) {
	if s.returnErr != nil {
		return nil, s.returnErr
	}
	if s.appt == nil {
		return nil, nil
	}
	return []appointments.Appointment{*s.appt}, nil
}

func (s *stubAppointmentStore) ListByDateRange(_ context.Context, _, from, to string) ([]appointments.Appointment, error) {
	if s.returnErr != nil {
		return nil, s.returnErr
	}
	s.ranges = append(s.ranges, [2]string{from, to})
	if s.appt == nil {
		return nil, nil
	}
	return []appointments.Appointment{*s.appt}, nil
}

func (s *stubAppointmentStore) Create(_ context.Context, appt *appointments.Appointment) error {
	if s.returnErr != nil {
		return s.returnErr
	}
	s.created = append(s.created, appt)
	return nil
}

func (s *stubAppointmentStore) MarkArrived(_ context.Context, _, id string, _ time.Time) error {
	if s.returnErr != nil {
		return s.returnErr
	}
	s.arrived = append(s.arrived, id)
	return nil
}

func (s *stubAppointmentStore) RecordPayment(_ context.Context, _, _ string, p appointments.Payment) error {
	if s.returnErr != nil {
		return s.returnErr
	}
	s.paid = append(s.paid, p)
	return nil
}

func (s *stubAppointmentStore) SetPharmacyReviewStatus(_ context.Context, _, _, status string) error {
	if s.returnErr != nil {
		return s.returnErr
	}
	s.reviews = append(s.reviews, status)
	return nil
}

type stubImporter struct {
	result *sessions.ImportResult
	err    error
	opts   []sessions.ImportOptions
}

func (s *stubImporter) CarryForward(_ context.Context, _, _, _ string, opts sessions.ImportOptions) (*sessions.ImportResult, error) {
	s.opts = append(s.opts, opts)
	return s.result, s.err
}

type stubOutbox struct {
	types []string
}

func (s *stubOutbox) Insert(_ context.Context, _, eventType string, _ any) (uuid.UUID, error) {
	s.types = append(s.types, eventType)
	return uuid.New(), nil
}

func routedRequest(method, target, appointmentID, body string) *http.Request {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := tenancy.WithOrgID(r.Context(), "org-1")
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("appointmentID", appointmentID)
	ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

func TestCreateAppointment(t *testing.T) {
	store := &stubAppointmentStore{}
	outbox := &stubOutbox{}
	h := NewAppointmentsHandler(store, nil, outbox, nil, nil)

	body := `{"doctor_id":"doc1","doctor_name":"Dr. Mendes","patient_name":"Ana Silva","date":"2025-03-14"}`
	w := httptest.NewRecorder()
	h.Create(w, routedRequest(http.MethodPost, "/appointments", "", body))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if len(store.created) != 1 {
		t.Fatalf("expected 1 created appointment")
	}
	created := store.created[0]
	if created.ID == "" || created.OrgID != "org-1" {
		t.Errorf("unexpected appointment %+v", created)
	}
	if created.PharmacyReviewStatus != appointments.PharmacyPending {
		t.Errorf("new appointments should default to pending review, got %q", created.PharmacyReviewStatus)
	}
	if len(outbox.types) != 1 {
		t.Errorf("creation should record an outbox event, got %v", outbox.types)
	}
}

func TestCreateAppointment_Validation(t *testing.T) {
	h := NewAppointmentsHandler(&stubAppointmentStore{}, nil, nil, nil, nil)

	for name, body := range map[string]string{
		"missing doctor": `{"patient_name":"Ana","date":"2025-03-14"}`,
		"bad date":       `{"doctor_id":"doc1","patient_name":"Ana","date":"14/03/2025"}`,
		"bad json":       `{`,
	} {
		w := httptest.NewRecorder()
		h.Create(w, routedRequest(http.MethodPost, "/appointments", "", body))
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", name, w.Code)
		}
	}
}

func TestMarkArrived(t *testing.T) {
	store := &stubAppointmentStore{}
	h := NewAppointmentsHandler(store, nil, nil, nil, nil)

	w := httptest.NewRecorder()
	h.MarkArrived(w, routedRequest(http.MethodPost, "/appointments/a1/arrive", "a1", ""))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(store.arrived) != 1 || store.arrived[0] != "a1" {
		t.Errorf("unexpected arrivals %v", store.arrived)
	}
}

func TestMarkArrived_NotFound(t *testing.T) {
	store := &stubAppointmentStore{returnErr: appointments.ErrNotFound}
	h := NewAppointmentsHandler(store, nil, nil, nil, nil)

	w := httptest.NewRecorder()
	h.MarkArrived(w, routedRequest(http.MethodPost, "/appointments/nope/arrive", "nope", ""))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestRecordPayment(t *testing.T) {
	store := &stubAppointmentStore{}
	h := NewAppointmentsHandler(store, nil, nil, nil, nil)

	body := `{"paid_through_pos":true,"paid_by":"reception","pos_sale_id":"sale-9"}`
	w := httptest.NewRecorder()
	h.RecordPayment(w, routedRequest(http.MethodPost, "/appointments/a1/payment", "a1", body))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(store.paid) != 1 {
		t.Fatalf("expected 1 recorded payment")
	}
	p := store.paid[0]
	if !p.IsPaid || !p.PaidThroughPOS || p.POSSaleID != "sale-9" || p.PaidAt == nil {
		t.Errorf("unexpected payment %+v", p)
	}
}

func TestSetReviewStatus_RejectsUnknown(t *testing.T) {
	h := NewAppointmentsHandler(&stubAppointmentStore{}, nil, nil, nil, nil)

	w := httptest.NewRecorder()
	h.SetReviewStatus(w, routedRequest(http.MethodPost, "/appointments/a1/review", "a1", `{"status":"done"}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestCarryForward(t *testing.T) {
	importer := &stubImporter{result: &sessions.ImportResult{
		AppointmentID: "a1",
		SessionID:     "doc1_2025-03-14_09:00_13:00",
		Date:          "2025-03-14",
	}}
	outbox := &stubOutbox{}
	h := NewAppointmentsHandler(&stubAppointmentStore{}, importer, outbox, nil, nil)

	w := httptest.NewRecorder()
	h.CarryForward(w, routedRequest(http.MethodPost, "/appointments/a1/carry-forward", "a1", `{"doctor_id":"doc1"}`))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var result sessions.ImportResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.SessionID != "doc1_2025-03-14_09:00_13:00" {
		t.Errorf("unexpected result %+v", result)
	}
	if len(outbox.types) != 1 {
		t.Errorf("carry forward should record an outbox event")
	}
}

func TestCarryForward_MultipleCandidates(t *testing.T) {
	importer := &stubImporter{err: &sessions.ErrMultipleSessions{
		Candidates: []string{"doc1_2025-03-14_09:00_13:00", "doc1_2025-03-14_14:00_17:00"},
	}}
	h := NewAppointmentsHandler(&stubAppointmentStore{}, importer, nil, nil, nil)

	w := httptest.NewRecorder()
	h.CarryForward(w, routedRequest(http.MethodPost, "/appointments/a1/carry-forward", "a1", `{"doctor_id":"doc1"}`))

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	var resp struct {
		Candidates []string `json:"candidates"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Candidates) != 2 {
		t.Errorf("response should list the candidates, got %+v", resp)
	}
}

func TestCarryForward_AlreadyPaid(t *testing.T) {
	importer := &stubImporter{err: sessions.ErrAlreadyPaid}
	h := NewAppointmentsHandler(&stubAppointmentStore{}, importer, nil, nil, nil)

	w := httptest.NewRecorder()
	h.CarryForward(w, routedRequest(http.MethodPost, "/appointments/a1/carry-forward", "a1", `{"doctor_id":"doc1"}`))
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestCarryForward_RequiresDoctor(t *testing.T) {
	h := NewAppointmentsHandler(&stubAppointmentStore{}, &stubImporter{}, nil, nil, nil)

	w := httptest.NewRecorder()
	h.CarryForward(w, routedRequest(http.MethodPost, "/appointments/a1/carry-forward", "a1", `{}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestListAppointments_DateRange(t *testing.T) {
	store := &stubAppointmentStore{appt: &appointments.Appointment{ID: "a1", OrgID: "org-1", Date: "2025-03-12"}}
	h := NewAppointmentsHandler(store, nil, nil, nil, nil)

	w := httptest.NewRecorder()
	h.List(w, routedRequest(http.MethodGet, "/appointments?from=2025-03-10&to=2025-03-14", "", ""))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(store.ranges) != 1 || store.ranges[0] != [2]string{"2025-03-10", "2025-03-14"} {
		t.Fatalf("unexpected range queries %v", store.ranges)
	}
	var resp struct {
		From         string                     `json:"from"`
		To           string                     `json:"to"`
		Appointments []appointments.Appointment `json:"appointments"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.From != "2025-03-10" || resp.To != "2025-03-14" || len(resp.Appointments) != 1 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestListAppointments_RangeValidation(t *testing.T) {
	store := &stubAppointmentStore{}
	h := NewAppointmentsHandler(store, nil, nil, nil, nil)

	for name, target := range map[string]string{
		"missing to":     "/appointments?from=2025-03-10",
		"malformed from": "/appointments?from=2025-3-1&to=2025-03-14",
		"to before from": "/appointments?from=2025-03-14&to=2025-03-10",
	} {
		w := httptest.NewRecorder()
		h.List(w, routedRequest(http.MethodGet, target, "", ""))
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", name, w.Code)
		}
	}
	if len(store.ranges) != 0 {
		t.Errorf("invalid ranges should never reach the store, got %v", store.ranges)
	}
}

func TestCreateAppointment_SendsConfirmation(t *testing.T) {
	sender := &recordingSender{}
	notifier := notify.NewService(sender, "Riverside Clinic", nil)
	h := NewAppointmentsHandler(&stubAppointmentStore{}, nil, nil, notifier, nil)

	body := `{"doctor_id":"doc1","doctor_name":"Dr. Mendes","patient_name":"Ana Silva",` +
		`"patient_email":"ana@example.com","date":"2025-03-14","start_time":"09:00","end_time":"09:30"}`
	w := httptest.NewRecorder()
	h.Create(w, routedRequest(http.MethodPost, "/appointments", "", body))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 confirmation email, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.To != "ana@example.com" {
		t.Errorf("unexpected recipient %q", msg.To)
	}
	if !strings.Contains(msg.Body, "Dr. Mendes") || !strings.Contains(msg.Body, "2025-03-14") {
		t.Errorf("confirmation body should mention the booking, got %q", msg.Body)
	}
}

func TestCreateAppointment_NoEmailNoConfirmation(t *testing.T) {
	sender := &recordingSender{}
	notifier := notify.NewService(sender, "Riverside Clinic", nil)
	h := NewAppointmentsHandler(&stubAppointmentStore{}, nil, nil, notifier, nil)

	body := `{"doctor_id":"doc1","doctor_name":"Dr. Mendes","patient_name":"Ana Silva","date":"2025-03-14"}`
	w := httptest.NewRecorder()
	h.Create(w, routedRequest(http.MethodPost, "/appointments", "", body))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if len(sender.sent) != 0 {
		t.Errorf("no email on file, expected no confirmation, got %d", len(sender.sent))
	}
}

func TestCarryForward_PassesSelection(t *testing.T) {
	importer := &stubImporter{result: &sessions.ImportResult{SessionID: "doc1_2025-03-14_14:00_17:00"}}
	h := NewAppointmentsHandler(&stubAppointmentStore{}, importer, nil, nil, nil)

	body := `{"doctor_id":"doc1","session_id":"doc1_2025-03-14_14:00_17:00"}`
	w := httptest.NewRecorder()
	h.CarryForward(w, routedRequest(http.MethodPost, "/appointments/a1/carry-forward", "a1", body))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(importer.opts) != 1 || importer.opts[0].SessionID != "doc1_2025-03-14_14:00_17:00" {
		t.Errorf("selection should be forwarded, got %+v", importer.opts)
	}
}
