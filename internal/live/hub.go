package live

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/clinicware/clinic-pos/internal/appointments"
	"github.com/clinicware/clinic-pos/internal/observability/metrics"
	"github.com/clinicware/clinic-pos/internal/prescriptions"
	"github.com/clinicware/clinic-pos/pkg/logging"
)

// SnapshotSource provides authoritative reads for live pushes. Every push is
// a complete snapshot; clients replace their local slice, never merge, so
// duplicated or reordered notifications are harmless.
type SnapshotSource interface {
	AppointmentsByDate(ctx context.Context, orgID, date string) ([]appointments.Appointment, error)
	PrescriptionsByAppointment(ctx context.Context, orgID, appointmentID string) ([]prescriptions.Prescription, error)
}

// OutboundMessage is one frame pushed to a live client.
type OutboundMessage struct {
	Type          string                       `json:"type"` // "appointments", "prescriptions", "error"
	Date          string                       `json:"date,omitempty"`
	AppointmentID string                       `json:"appointment_id,omitempty"`
	Appointments  []appointments.Appointment   `json:"appointments,omitempty"`
	Prescriptions []prescriptions.Prescription `json:"prescriptions,omitempty"`
	Error         string                       `json:"error,omitempty"`
}

type client struct {
	orgID string
	date  string

	mu   sync.Mutex
	conn *websocket.Conn

	// prescSubs tracks the per-appointment prescription feeds this client
	// currently holds. Entries are closed individually when their
	// appointment leaves the day's result set.
	prescSubs map[string]struct{}
}

func (c *client) send(msg OutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(msg)
}

// Hub fans appointment and prescription snapshots out to connected clients.
type Hub struct {
	source  SnapshotSource
	metrics *metrics.LiveMetrics
	logger  *logging.Logger

	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub creates the live feed hub.
func NewHub(source SnapshotSource, m *metrics.LiveMetrics, logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Default()
	}
	return &Hub{
		source:  source,
		metrics: m,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// HandleWebSocket upgrades the request and serves the live feed.
// GET /live/appointments?org={orgID}&date={YYYY-MM-DD}
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	orgID := r.URL.Query().Get("org")
	date := r.URL.Query().Get("date")
	if orgID == "" || date == "" {
		http.Error(w, `{"error":"org and date parameters required"}`, http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("live: upgrade failed", "error", err)
		return
	}

	c := &client{
		orgID:     orgID,
		date:      date,
		conn:      conn,
		prescSubs: make(map[string]struct{}),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.metrics.ConnectionOpened()
	h.logger.Info("live: connection opened", "org_id", orgID, "date", date)

	h.refresh(r.Context(), c)

	// Reader loop: the feed is push-only, but reading drains control frames
	// and detects the close.
	go func() {
		defer h.drop(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	_, present := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if !present {
		return
	}

	// Teardown releases every per-appointment subscription individually.
	c.mu.Lock()
	for id := range c.prescSubs {
		delete(c.prescSubs, id)
	}
	c.mu.Unlock()

	_ = c.conn.Close()
	h.metrics.ConnectionClosed()
	h.metrics.SubscriptionsSet(h.ActiveSubscriptions())
	h.logger.Info("live: connection closed", "org_id", c.orgID, "date", c.date)
}

// Publish notifies the hub that something changed for the org. The hub
// re-reads authoritative state and pushes full snapshots to every client of
// that org; the event payload itself is never forwarded, so ordering and
// duplication of notifications cannot corrupt client state.
func (h *Hub) Publish(orgID, eventType string, payload json.RawMessage) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		if c.orgID == orgID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, c := range targets {
		h.refresh(ctx, c)
	}
	if len(targets) > 0 {
		h.metrics.ObservePush(eventType)
	}
}

// refresh pushes the full appointment snapshot for the client's date, then
// reconciles per-appointment prescription subscriptions against the new
// result set and pushes a prescription snapshot for each kept appointment.
func (h *Hub) refresh(ctx context.Context, c *client) {
	appts, err := h.source.AppointmentsByDate(ctx, c.orgID, c.date)
	if err != nil {
		h.logger.Error("live: appointment snapshot failed", "error", err, "org_id", c.orgID)
		_ = c.send(OutboundMessage{Type: "error", Error: "snapshot unavailable"})
		return
	}

	if err := c.send(OutboundMessage{Type: "appointments", Date: c.date, Appointments: appts}); err != nil {
		h.drop(c)
		return
	}

	current := make(map[string]struct{}, len(appts))
	for _, a := range appts {
		current[a.ID] = struct{}{}
	}

	c.mu.Lock()
	for id := range c.prescSubs {
		if _, ok := current[id]; !ok {
			delete(c.prescSubs, id)
		}
	}
	for id := range current {
		c.prescSubs[id] = struct{}{}
	}
	subscribed := make([]string, 0, len(c.prescSubs))
	for id := range c.prescSubs {
		subscribed = append(subscribed, id)
	}
	c.mu.Unlock()

	h.metrics.SubscriptionsSet(h.ActiveSubscriptions())

	for _, id := range subscribed {
		prescs, err := h.source.PrescriptionsByAppointment(ctx, c.orgID, id)
		if err != nil {
			h.logger.Error("live: prescription snapshot failed", "error", err, "appointment_id", id)
			continue
		}
		if err := c.send(OutboundMessage{Type: "prescriptions", AppointmentID: id, Prescriptions: prescs}); err != nil {
			h.drop(c)
			return
		}
	}
}

// ActiveSubscriptions counts prescription subscriptions across all clients.
func (h *Hub) ActiveSubscriptions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for c := range h.clients {
		c.mu.Lock()
		total += len(c.prescSubs)
		c.mu.Unlock()
	}
	return total
}

// ActiveConnections counts open live connections.
func (h *Hub) ActiveConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
