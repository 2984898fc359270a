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

	"github.com/clinicware/clinic-pos/internal/labtests"
	"github.com/clinicware/clinic-pos/pkg/logging"
)

type labOrderStore interface {
	Create(ctx context.Context, o *labtests.Order) error
	ListByDate(ctx context.Context, orgID, date string) ([]labtests.Order, error)
	CountsByDate(ctx context.Context, orgID, date string) (labtests.DayCounts, error)
	Advance(ctx context.Context, orgID, id, toStatus string) error
}

// LabTestsHandler serves the lab order dashboard and status updates.
type LabTestsHandler struct {
	repo   labOrderStore
	logger *logging.Logger
}

// NewLabTestsHandler creates the lab tests handler.
func NewLabTestsHandler(repo labOrderStore, logger *logging.Logger) *LabTestsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &LabTestsHandler{repo: repo, logger: logger}
}

type createLabOrderRequest struct {
	AppointmentID string `json:"appointment_id"`
	PatientName   string `json:"patient_name"`
	TestName      string `json:"test_name"`
}

// Create places a lab order.
// POST /lab/orders
func (h *LabTestsHandler) Create(w http.ResponseWriter, r *http.Request) {
	orgID := orgFromRequest(r)

	var req createLabOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.AppointmentID == "" || req.TestName == "" {
		jsonError(w, "appointment_id and test_name are required", http.StatusBadRequest)
		return
	}

	order := &labtests.Order{
		ID:            uuid.NewString(),
		OrgID:         orgID,
		AppointmentID: req.AppointmentID,
		PatientName:   req.PatientName,
		TestName:      req.TestName,
		Status:        labtests.StatusOrdered,
	}
	if err := h.repo.Create(r.Context(), order); err != nil {
		h.logger.Error("create lab order failed", "error", err, "org_id", orgID)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// Dashboard returns the day's orders plus per-status counts.
// GET /lab/dashboard?date=YYYY-MM-DD
func (h *LabTestsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	orgID := orgFromRequest(r)
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}

	orders, err := h.repo.ListByDate(r.Context(), orgID, date)
	if err != nil {
		h.logger.Error("lab dashboard: list failed", "error", err, "org_id", orgID)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	counts, err := h.repo.CountsByDate(r.Context(), orgID, date)
	if err != nil {
		h.logger.Error("lab dashboard: counts failed", "error", err, "org_id", orgID)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"date":   date,
		"counts": counts,
		"orders": orders,
	})
}

type advanceLabOrderRequest struct {
	Status string `json:"status"`
}

// Advance moves an order forward one step.
// POST /lab/orders/{orderID}/advance
func (h *LabTestsHandler) Advance(w http.ResponseWriter, r *http.Request) {
	orgID := orgFromRequest(r)
	id := chi.URLParam(r, "orderID")

	var req advanceLabOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	if err := h.repo.Advance(r.Context(), orgID, id, req.Status); err != nil {
		if errors.Is(err, labtests.ErrNotFound) {
			jsonError(w, "order not found or not in the expected state", http.StatusConflict)
			return
		}
		if strings.Contains(err.Error(), "invalid target status") {
			jsonError(w, "status must be collected or reported", http.StatusBadRequest)
			return
		}
		h.logger.Error("advance lab order failed", "error", err, "order_id", id)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order_id": id, "status": req.Status})
}
