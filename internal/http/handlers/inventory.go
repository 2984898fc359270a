package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/clinicware/clinic-pos/internal/inventory"
	"github.com/clinicware/clinic-pos/pkg/logging"
)

type inventoryReader interface {
	SearchByName(ctx context.Context, orgID, name string) ([]inventory.Item, error)
	ExpiringWithin(ctx context.Context, orgID string, until time.Time) ([]inventory.ExpiringBatch, error)
}

// InventoryHandler serves pharmacy inventory search and the expiry dashboard.
type InventoryHandler struct {
	repo   inventoryReader
	logger *logging.Logger
}

// NewInventoryHandler creates the inventory handler.
func NewInventoryHandler(repo inventoryReader, logger *logging.Logger) *InventoryHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &InventoryHandler{repo: repo, logger: logger}
}

// Search finds inventory items by name.
// GET /inventory/items?q=para
func (h *InventoryHandler) Search(w http.ResponseWriter, r *http.Request) {
	orgID := orgFromRequest(r)
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		jsonError(w, "q parameter required", http.StatusBadRequest)
		return
	}

	items, err := h.repo.SearchByName(r.Context(), orgID, q)
	if err != nil {
		h.logger.Error("inventory search failed", "error", err, "org_id", orgID)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// Expiring lists batches expiring within the requested horizon, soonest first.
// GET /inventory/expiring?days=30
func (h *InventoryHandler) Expiring(w http.ResponseWriter, r *http.Request) {
	orgID := orgFromRequest(r)

	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 365 {
			jsonError(w, "days must be between 1 and 365", http.StatusBadRequest)
			return
		}
		days = n
	}

	until := time.Now().UTC().AddDate(0, 0, days)
	batches, err := h.repo.ExpiringWithin(r.Context(), orgID, until)
	if err != nil {
		h.logger.Error("expiry dashboard failed", "error", err, "org_id", orgID)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": days, "batches": batches})
}
