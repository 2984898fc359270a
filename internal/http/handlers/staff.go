package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clinicware/clinic-pos/internal/staff"
	"github.com/clinicware/clinic-pos/pkg/logging"
)

type staffReader interface {
	Get(ctx context.Context, orgID, id string) (*staff.Member, error)
	ListDoctors(ctx context.Context, orgID string) ([]staff.Member, error)
}

// StaffHandler serves staff lookups.
type StaffHandler struct {
	repo   staffReader
	logger *logging.Logger
}

// NewStaffHandler creates the staff handler.
func NewStaffHandler(repo staffReader, logger *logging.Logger) *StaffHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &StaffHandler{repo: repo, logger: logger}
}

// ListDoctors returns the org's doctors.
// GET /staff/doctors
func (h *StaffHandler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	orgID := orgFromRequest(r)

	doctors, err := h.repo.ListDoctors(r.Context(), orgID)
	if err != nil {
		h.logger.Error("list doctors failed", "error", err, "org_id", orgID)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"doctors": doctors})
}

// Get returns one staff member.
// GET /staff/{staffID}
func (h *StaffHandler) Get(w http.ResponseWriter, r *http.Request) {
	orgID := orgFromRequest(r)
	id := chi.URLParam(r, "staffID")

	member, err := h.repo.Get(r.Context(), orgID, id)
	if err != nil {
		if errors.Is(err, staff.ErrNotFound) {
			jsonError(w, "staff member not found", http.StatusNotFound)
			return
		}
		h.logger.Error("get staff failed", "error", err, "staff_id", id)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, member)
}
