package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clinicware/clinic-pos/internal/posload"
	"github.com/clinicware/clinic-pos/internal/prescriptions"
	"github.com/clinicware/clinic-pos/pkg/logging"
)

type prescriptionLister interface {
	ListByAppointment(ctx context.Context, orgID, appointmentID string) ([]prescriptions.Prescription, error)
	FirstByAppointment(ctx context.Context, orgID, appointmentID string) (*prescriptions.Prescription, error)
}

// PrescriptionsHandler serves the multi-prescription reconciliation view.
type PrescriptionsHandler struct {
	repo   prescriptionLister
	cache  *posload.LoadedCache
	logger *logging.Logger
}

// NewPrescriptionsHandler creates the prescriptions handler.
func NewPrescriptionsHandler(repo prescriptionLister, cache *posload.LoadedCache, logger *logging.Logger) *PrescriptionsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &PrescriptionsHandler{repo: repo, cache: cache, logger: logger}
}

// GetReconciliation returns the appointment's prescriptions annotated with
// paid/loaded disable flags and the single selectable candidate.
// GET /appointments/{appointmentID}/prescriptions/reconciliation
func (h *PrescriptionsHandler) GetReconciliation(w http.ResponseWriter, r *http.Request) {
	orgID := orgFromRequest(r)
	appointmentID := chi.URLParam(r, "appointmentID")

	prescs, err := h.repo.ListByAppointment(r.Context(), orgID, appointmentID)
	if err != nil {
		h.logger.Error("reconciliation: list prescriptions failed", "error", err, "appointment_id", appointmentID)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	var loaded map[string]bool
	if h.cache != nil {
		loaded = h.cache.LoadedSet(r.Context(), orgID, prescs)
	}

	writeJSON(w, http.StatusOK, prescriptions.Reconcile(appointmentID, prescs, loaded))
}

// GetFirst returns the appointment's earliest prescription, which the POS
// screen preselects before the full reconciliation view loads.
// GET /appointments/{appointmentID}/prescriptions/first
func (h *PrescriptionsHandler) GetFirst(w http.ResponseWriter, r *http.Request) {
	orgID := orgFromRequest(r)
	appointmentID := chi.URLParam(r, "appointmentID")

	p, err := h.repo.FirstByAppointment(r.Context(), orgID, appointmentID)
	if err != nil {
		if errors.Is(err, prescriptions.ErrNotFound) {
			jsonError(w, "appointment has no prescriptions", http.StatusNotFound)
			return
		}
		h.logger.Error("first prescription lookup failed", "error", err, "appointment_id", appointmentID)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
