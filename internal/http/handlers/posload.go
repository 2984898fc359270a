package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clinicware/clinic-pos/internal/notify"
	"github.com/clinicware/clinic-pos/internal/posload"
	"github.com/clinicware/clinic-pos/internal/prescriptions"
	"github.com/clinicware/clinic-pos/pkg/logging"
)

// POSHandler serves prescription loading into the point of sale and payment
// confirmation.
type POSHandler struct {
	svc      *posload.Service
	notifier *notify.Service
	logger   *logging.Logger
}

// NewPOSHandler creates the POS handler. notifier may be nil; receipts are
// then skipped.
func NewPOSHandler(svc *posload.Service, notifier *notify.Service, logger *logging.Logger) *POSHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &POSHandler{svc: svc, notifier: notifier, logger: logger}
}

// Load resolves a prescription into sale lines and marks it loaded.
// POST /pos/prescriptions/{prescriptionID}/load
func (h *POSHandler) Load(w http.ResponseWriter, r *http.Request) {
	orgID := orgFromRequest(r)
	id := chi.URLParam(r, "prescriptionID")

	sale, err := h.svc.LoadPrescription(r.Context(), orgID, id)
	if err != nil {
		switch {
		case errors.Is(err, posload.ErrAlreadyPaid):
			jsonError(w, "prescription already paid", http.StatusConflict)
		case errors.Is(err, posload.ErrAlreadyLoaded):
			jsonError(w, "prescription already loaded at a counter", http.StatusConflict)
		case errors.Is(err, prescriptions.ErrNotFound):
			jsonError(w, "prescription not found", http.StatusNotFound)
		default:
			h.logger.Error("pos load failed", "error", err, "prescription_id", id)
			jsonError(w, "internal error", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

type confirmRequest struct {
	// Optional receipt details, echoed back from the load response.
	ReceiptEmail string `json:"receipt_email"`
	PatientName  string `json:"patient_name"`
	SaleID       string `json:"sale_id"`
	TotalCents   int64  `json:"total_cents"`
}

// Confirm marks a loaded prescription as paid and optionally emails a
// receipt.
// POST /pos/prescriptions/{prescriptionID}/confirm
func (h *POSHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	orgID := orgFromRequest(r)
	id := chi.URLParam(r, "prescriptionID")

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	if err := h.svc.ConfirmPayment(r.Context(), orgID, id); err != nil {
		if errors.Is(err, prescriptions.ErrNotFound) {
			jsonError(w, "prescription not found", http.StatusNotFound)
			return
		}
		h.logger.Error("pos confirm failed", "error", err, "prescription_id", id)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	if h.notifier != nil && req.ReceiptEmail != "" {
		receipt := notify.PaymentReceipt{
			PatientName:  req.PatientName,
			PatientEmail: req.ReceiptEmail,
			SaleID:       req.SaleID,
			TotalCents:   req.TotalCents,
		}
		if err := h.notifier.SendPaymentReceipt(r.Context(), receipt); err != nil {
			// Payment already went through; a failed receipt is only logged.
			h.logger.Warn("receipt email failed", "error", err, "prescription_id", id)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"prescription_id": id, "paid": true})
}
