package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/clinicware/clinic-pos/internal/appointments"
	"github.com/clinicware/clinic-pos/internal/sessions"
	"github.com/clinicware/clinic-pos/pkg/logging"
)

type dayAppointmentLister interface {
	ListByDate(ctx context.Context, orgID, date string) ([]appointments.Appointment, error)
}

// SessionsHandler serves the grouped day view: appointments bucketed into
// doctor sessions with derived time windows.
type SessionsHandler struct {
	appts  dayAppointmentLister
	logger *logging.Logger
}

// NewSessionsHandler creates the sessions day-view handler.
func NewSessionsHandler(appts dayAppointmentLister, logger *logging.Logger) *SessionsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &SessionsHandler{appts: appts, logger: logger}
}

// SessionView is one session bucket in the day view.
type SessionView struct {
	SessionKey   string                     `json:"session_key"`
	DoctorID     string                     `json:"doctor_id"`
	DoctorName   string                     `json:"doctor_name"`
	StartTime    string                     `json:"start_time"`
	EndTime      string                     `json:"end_time"`
	StartDisplay string                     `json:"start_display"`
	EndDisplay   string                     `json:"end_display"`
	Appointments []appointments.Appointment `json:"appointments"`
}

// DayViewResponse is the full grouped day view.
type DayViewResponse struct {
	Date     string        `json:"date"`
	Sessions []SessionView `json:"sessions"`
}

// GetDayView returns the day's appointments grouped into sessions.
// GET /sessions/day?date=YYYY-MM-DD&order=missing-first|missing-last
func (h *SessionsHandler) GetDayView(w http.ResponseWriter, r *http.Request) {
	orgID := orgFromRequest(r)
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		jsonError(w, "invalid date, use YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	policy := sessions.MissingNumberLast
	if r.URL.Query().Get("order") == "missing-first" {
		policy = sessions.MissingNumberFirst
	}

	appts, err := h.appts.ListByDate(r.Context(), orgID, date)
	if err != nil {
		h.logger.Error("day view: list appointments failed", "error", err, "org_id", orgID, "date", date)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	groups := sessions.Group(appts, policy)
	keys := sessions.SortedKeys(groups)

	resp := DayViewResponse{Date: date, Sessions: make([]SessionView, 0, len(keys))}
	for _, key := range keys {
		members := groups[key]
		start, end := sessions.DeriveWindow(members[0])
		resp.Sessions = append(resp.Sessions, SessionView{
			SessionKey:   key,
			DoctorID:     members[0].DoctorID,
			DoctorName:   members[0].DoctorName,
			StartTime:    start,
			EndTime:      end,
			StartDisplay: sessions.FormatClock(start),
			EndDisplay:   sessions.FormatClock(end),
			Appointments: members,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}
