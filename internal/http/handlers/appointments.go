package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicware/clinic-pos/internal/appointments"
	"github.com/clinicware/clinic-pos/internal/events"
	"github.com/clinicware/clinic-pos/internal/notify"
	"github.com/clinicware/clinic-pos/internal/sessions"
	"github.com/clinicware/clinic-pos/pkg/logging"
)

type appointmentStore interface {
	GetForOrg(ctx context.Context, orgID, id string) (*appointments.Appointment, error)
	ListByDate(ctx context.Context, orgID, date string) ([]appointments.Appointment, error)
	ListByDateRange(ctx context.Context, orgID, from, to string) ([]appointments.Appointment, error)
	Create(ctx context.Context, appt *appointments.Appointment) error
	MarkArrived(ctx context.Context, orgID, id string, at time.Time) error
	RecordPayment(ctx context.Context, orgID, id string, p appointments.Payment) error
	SetPharmacyReviewStatus(ctx context.Context, orgID, id, status string) error
}

type carryForwarder interface {
	CarryForward(ctx context.Context, orgID, appointmentID, doctorID string, opts sessions.ImportOptions) (*sessions.ImportResult, error)
}

type outboxInserter interface {
	Insert(ctx context.Context, orgID, eventType string, payload any) (uuid.UUID, error)
}

// AppointmentsHandler serves appointment CRUD, arrival and payment marking,
// pharmacy review, and carry-forward import.
type AppointmentsHandler struct {
	repo     appointmentStore
	importer carryForwarder
	outbox   outboxInserter
	notifier *notify.Service
	logger   *logging.Logger
}

// NewAppointmentsHandler creates the appointments handler. notifier may be
// nil; booking confirmations are then skipped.
func NewAppointmentsHandler(repo appointmentStore, importer carryForwarder, outbox outboxInserter, notifier *notify.Service, logger *logging.Logger) *AppointmentsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentsHandler{repo: repo, importer: importer, outbox: outbox, notifier: notifier, logger: logger}
}

// List returns appointments, flat and unsorted. Without parameters it serves
// today; ?date= serves one day and ?from=&to= an inclusive date range.
// GET /appointments?date=YYYY-MM-DD
// GET /appointments?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *AppointmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID := orgFromRequest(r)
	q := r.URL.Query()

	if from, to := strings.TrimSpace(q.Get("from")), strings.TrimSpace(q.Get("to")); from != "" || to != "" {
		if !validDate(from) || !validDate(to) {
			jsonError(w, "from and to are required as YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		if to < from {
			jsonError(w, "to must not precede from", http.StatusBadRequest)
			return
		}
		appts, err := h.repo.ListByDateRange(r.Context(), orgID, from, to)
		if err != nil {
			h.logger.Error("list appointments failed", "error", err, "org_id", orgID)
			jsonError(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"from": from, "to": to, "appointments": appts})
		return
	}

	date := strings.TrimSpace(q.Get("date"))
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}
	appts, err := h.repo.ListByDate(r.Context(), orgID, date)
	if err != nil {
		h.logger.Error("list appointments failed", "error", err, "org_id", orgID)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "appointments": appts})
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// Get returns one appointment.
// GET /appointments/{appointmentID}
func (h *AppointmentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	orgID := orgFromRequest(r)
	id := chi.URLParam(r, "appointmentID")

	appt, err := h.repo.GetForOrg(r.Context(), orgID, id)
	if err != nil {
		if errors.Is(err, appointments.ErrNotFound) {
			jsonError(w, "appointment not found", http.StatusNotFound)
			return
		}
		h.logger.Error("get appointment failed", "error", err, "appointment_id", id)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

type createAppointmentRequest struct {
	DoctorID                 string `json:"doctor_id"`
	DoctorName               string `json:"doctor_name"`
	PatientName              string `json:"patient_name"`
	PatientEmail             string `json:"patient_email"` // optional, for the booking confirmation
	Date                     string `json:"date"`
	SessionID                string `json:"session_id"`
	SessionAppointmentNumber *int   `json:"session_appointment_number"`
	StartTime                string `json:"start_time"`
	EndTime                  string `json:"end_time"`
}

// Create books an appointment.
// POST /appointments
func (h *AppointmentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	orgID := orgFromRequest(r)

	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.DoctorID == "" || req.PatientName == "" {
		jsonError(w, "doctor_id and patient_name are required", http.StatusBadRequest)
		return
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		jsonError(w, "invalid date, use YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	appt := &appointments.Appointment{
		ID:                       uuid.NewString(),
		OrgID:                    orgID,
		DoctorID:                 req.DoctorID,
		DoctorName:               req.DoctorName,
		PatientName:              req.PatientName,
		Date:                     req.Date,
		SessionID:                req.SessionID,
		SessionAppointmentNumber: req.SessionAppointmentNumber,
		StartTime:                req.StartTime,
		EndTime:                  req.EndTime,
		PharmacyReviewStatus:     appointments.PharmacyPending,
	}
	if err := h.repo.Create(r.Context(), appt); err != nil {
		h.logger.Error("create appointment failed", "error", err, "org_id", orgID)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	if h.notifier != nil && req.PatientEmail != "" {
		confirmation := notify.AppointmentConfirmation{
			PatientName:  appt.PatientName,
			PatientEmail: req.PatientEmail,
			DoctorName:   appt.DoctorName,
			Date:         appt.Date,
			StartTime:    appt.StartTime,
			EndTime:      appt.EndTime,
		}
		if err := h.notifier.SendAppointmentConfirmation(r.Context(), confirmation); err != nil {
			// The booking stands; a failed confirmation is only logged.
			h.logger.Warn("confirmation email failed", "error", err, "appointment_id", appt.ID)
		}
	}

	h.recordEvent(r.Context(), orgID, events.TypeAppointmentUpdated, appt.ID)
	writeJSON(w, http.StatusCreated, appt)
}

// MarkArrived flips the patient-arrived flag. The arrival timestamp is set
// once and repeated calls do not move it.
// POST /appointments/{appointmentID}/arrive
func (h *AppointmentsHandler) MarkArrived(w http.ResponseWriter, r *http.Request) {
	orgID := orgFromRequest(r)
	id := chi.URLParam(r, "appointmentID")

	if err := h.repo.MarkArrived(r.Context(), orgID, id, time.Now().UTC()); err != nil {
		if errors.Is(err, appointments.ErrNotFound) {
			jsonError(w, "appointment not found", http.StatusNotFound)
			return
		}
		h.logger.Error("mark arrived failed", "error", err, "appointment_id", id)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.recordEvent(r.Context(), orgID, events.TypeAppointmentUpdated, id)
	writeJSON(w, http.StatusOK, map[string]any{"appointment_id": id, "arrived": true})
}

type recordPaymentRequest struct {
	PaidThroughPOS bool   `json:"paid_through_pos"`
	PaidBy         string `json:"paid_by"`
	POSSaleID      string `json:"pos_sale_id"`
}

// RecordPayment marks the appointment paid.
// POST /appointments/{appointmentID}/payment
func (h *AppointmentsHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	orgID := orgFromRequest(r)
	id := chi.URLParam(r, "appointmentID")

	var req recordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	now := time.Now().UTC()
	p := appointments.Payment{
		IsPaid:         true,
		PaidThroughPOS: req.PaidThroughPOS,
		PaidAt:         &now,
		PaidBy:         req.PaidBy,
		POSSaleID:      req.POSSaleID,
	}
	if err := h.repo.RecordPayment(r.Context(), orgID, id, p); err != nil {
		if errors.Is(err, appointments.ErrNotFound) {
			jsonError(w, "appointment not found", http.StatusNotFound)
			return
		}
		h.logger.Error("record payment failed", "error", err, "appointment_id", id)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.recordEvent(r.Context(), orgID, events.TypeAppointmentUpdated, id)
	writeJSON(w, http.StatusOK, map[string]any{"appointment_id": id, "paid": true})
}

type reviewRequest struct {
	Status string `json:"status"`
}

// SetReviewStatus updates the pharmacy review status.
// POST /appointments/{appointmentID}/review
func (h *AppointmentsHandler) SetReviewStatus(w http.ResponseWriter, r *http.Request) {
	orgID := orgFromRequest(r)
	id := chi.URLParam(r, "appointmentID")

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Status != appointments.PharmacyReviewed && req.Status != appointments.PharmacyPending {
		jsonError(w, "status must be reviewed or pending", http.StatusBadRequest)
		return
	}

	if err := h.repo.SetPharmacyReviewStatus(r.Context(), orgID, id, req.Status); err != nil {
		if errors.Is(err, appointments.ErrNotFound) {
			jsonError(w, "appointment not found", http.StatusNotFound)
			return
		}
		h.logger.Error("set review status failed", "error", err, "appointment_id", id)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.recordEvent(r.Context(), orgID, events.TypeAppointmentUpdated, id)
	writeJSON(w, http.StatusOK, map[string]any{"appointment_id": id, "status": req.Status})
}

type carryForwardRequest struct {
	DoctorID  string `json:"doctor_id"`
	SessionID string `json:"session_id"` // selects among candidates when several exist
}

// CarryForward moves a past unpaid appointment onto a session for today.
// When several candidate sessions exist, responds 409 with the candidate ids
// so the caller can retry with an explicit session_id.
// POST /appointments/{appointmentID}/carry-forward
func (h *AppointmentsHandler) CarryForward(w http.ResponseWriter, r *http.Request) {
	orgID := orgFromRequest(r)
	id := chi.URLParam(r, "appointmentID")

	var req carryForwardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.DoctorID == "" {
		jsonError(w, "doctor_id is required", http.StatusBadRequest)
		return
	}

	result, err := h.importer.CarryForward(r.Context(), orgID, id, req.DoctorID, sessions.ImportOptions{SessionID: req.SessionID})
	if err != nil {
		var multi *sessions.ErrMultipleSessions
		switch {
		case errors.As(err, &multi):
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":      "multiple candidate sessions, pick one",
				"candidates": multi.Candidates,
			})
		case errors.Is(err, sessions.ErrAlreadyPaid):
			jsonError(w, "paid appointments cannot be carried forward", http.StatusConflict)
		case errors.Is(err, appointments.ErrNotFound):
			jsonError(w, "appointment not found", http.StatusNotFound)
		default:
			h.logger.Error("carry forward failed", "error", err, "appointment_id", id)
			jsonError(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	h.recordEvent(r.Context(), orgID, events.TypeAppointmentMoved, id)
	writeJSON(w, http.StatusOK, result)
}

func (h *AppointmentsHandler) recordEvent(ctx context.Context, orgID, eventType, appointmentID string) {
	if h.outbox == nil {
		return
	}
	payload := map[string]string{"appointment_id": appointmentID}
	if _, err := h.outbox.Insert(ctx, orgID, eventType, payload); err != nil {
		h.logger.Warn("outbox insert failed", "error", err, "event_type", eventType)
	}
}
