package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/clinicware/clinic-pos/internal/reports"
	"github.com/clinicware/clinic-pos/pkg/logging"
)

// ReportsHandler serves revenue and doctor-load aggregates.
type ReportsHandler struct {
	svc    *reports.Service
	logger *logging.Logger
}

// NewReportsHandler creates the reports handler.
func NewReportsHandler(svc *reports.Service, logger *logging.Logger) *ReportsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ReportsHandler{svc: svc, logger: logger}
}

// Daily returns one day's revenue summary.
// GET /reports/daily?date=YYYY-MM-DD
func (h *ReportsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	orgID := orgFromRequest(r)
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}

	summary, err := h.svc.DailyRevenue(r.Context(), orgID, date)
	if err != nil {
		h.reportError(w, err, "daily revenue")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// DoctorLoads returns per-doctor appointment counts for a day.
// GET /reports/doctors?date=YYYY-MM-DD
func (h *ReportsHandler) DoctorLoads(w http.ResponseWriter, r *http.Request) {
	orgID := orgFromRequest(r)
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}

	loads, err := h.svc.DoctorLoads(r.Context(), orgID, date)
	if err != nil {
		h.reportError(w, err, "doctor loads")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "doctors": loads})
}

// Revenue returns per-day revenue across a range.
// GET /reports/revenue?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *ReportsHandler) Revenue(w http.ResponseWriter, r *http.Request) {
	orgID := orgFromRequest(r)
	start := strings.TrimSpace(r.URL.Query().Get("start"))
	end := strings.TrimSpace(r.URL.Query().Get("end"))
	if start == "" || end == "" {
		jsonError(w, "start and end parameters required", http.StatusBadRequest)
		return
	}

	days, err := h.svc.RevenueRange(r.Context(), orgID, start, end)
	if err != nil {
		h.reportError(w, err, "revenue range")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"start": start, "end": end, "days": days})
}

func (h *ReportsHandler) reportError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, reports.ErrDisabled):
		jsonError(w, "reporting disabled", http.StatusServiceUnavailable)
	case strings.Contains(err.Error(), "invalid"), strings.Contains(err.Error(), "end before start"):
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("report query failed", "op", op, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}
