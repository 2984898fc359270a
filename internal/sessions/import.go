package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/clinicware/clinic-pos/internal/appointments"
	"github.com/clinicware/clinic-pos/internal/observability/metrics"
	"github.com/clinicware/clinic-pos/pkg/logging"
)

// Default hours for sessions created on the fly by the import flow.
const (
	ImportDefaultStartTime = "08:00"
	ImportDefaultEndTime   = "17:00"
)

var importTracer = otel.Tracer("clinicpos/sessions")

// ErrMultipleSessions is returned when more than one session matches the
// target doctor and date. The import never guesses; the caller must re-invoke
// with an explicit session id.
type ErrMultipleSessions struct {
	Candidates []string
}

func (e *ErrMultipleSessions) Error() string {
	return fmt.Sprintf("sessions: %d candidate sessions, explicit selection required", len(e.Candidates))
}

// ErrAlreadyPaid rejects carrying forward an appointment that is settled.
var ErrAlreadyPaid = errors.New("sessions: appointment already paid")

type importSessionRepo interface {
	ListByDoctorDate(ctx context.Context, orgID, doctorID, date string) ([]Session, error)
	Create(ctx context.Context, orgID, doctorID, date, startTime, endTime string) (*Session, error)
}

type importAppointmentRepo interface {
	GetForOrg(ctx context.Context, orgID, id string) (*appointments.Appointment, error)
	ListByDate(ctx context.Context, orgID, date string) ([]appointments.Appointment, error)
	UpdateSessionRef(ctx context.Context, orgID, id, sessionID, date string) error
}

// ImportService carries past unpaid appointments forward onto a session for
// the current date.
type ImportService struct {
	sessions     importSessionRepo
	appointments importAppointmentRepo
	metrics      *metrics.SchedulingMetrics
	logger       *logging.Logger
	now          func() time.Time
}

// NewImportService creates the carry-forward service.
func NewImportService(sessions importSessionRepo, appts importAppointmentRepo, m *metrics.SchedulingMetrics, logger *logging.Logger) *ImportService {
	if logger == nil {
		logger = logging.Default()
	}
	return &ImportService{
		sessions:     sessions,
		appointments: appts,
		metrics:      m,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithNow overrides the clock, for tests.
func (s *ImportService) WithNow(now func() time.Time) *ImportService {
	if now != nil {
		s.now = now
	}
	return s
}

// ImportOptions tunes one carry-forward invocation.
type ImportOptions struct {
	// SessionID selects among multiple candidate sessions. Required after a
	// previous attempt returned ErrMultipleSessions.
	SessionID string
}

// ImportResult reports the outcome of a carry-forward.
type ImportResult struct {
	AppointmentID  string `json:"appointment_id"`
	SessionID      string `json:"session_id"`
	Date           string `json:"date"`
	SessionCreated bool   `json:"session_created"`
}

// CarryForward re-attaches a past unpaid appointment to a session for today
// for the target doctor.
//
// Session discovery order: explicitly scheduled sessions for (doctor, today);
// then session ids harvested from today's appointments for the doctor
// (sessions existing only implicitly); then a newly created session with
// default hours. Exactly one candidate proceeds immediately; several require
// an explicit choice via ImportOptions. The appointment's session reference
// is written only after a session id is confirmed, so a failed lookup or
// create leaves no partial import state.
func (s *ImportService) CarryForward(ctx context.Context, orgID, appointmentID, doctorID string, opts ImportOptions) (*ImportResult, error) {
	ctx, span := importTracer.Start(ctx, "sessions.carry_forward")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinicpos.org_id", orgID),
		attribute.String("clinicpos.appointment_id", appointmentID),
	)

	appt, err := s.appointments.GetForOrg(ctx, orgID, appointmentID)
	if err != nil {
		s.metrics.ObserveImport("lookup_failed")
		return nil, fmt.Errorf("sessions: load appointment for import: %w", err)
	}
	if appt.Payment != nil && appt.Payment.IsPaid {
		s.metrics.ObserveImport("rejected_paid")
		return nil, ErrAlreadyPaid
	}

	today := s.now().Format("2006-01-02")

	sessionID, created, err := s.resolveSession(ctx, orgID, doctorID, today, opts)
	if err != nil {
		return nil, err
	}

	if err := s.appointments.UpdateSessionRef(ctx, orgID, appointmentID, sessionID, today); err != nil {
		s.metrics.ObserveImport("update_failed")
		return nil, fmt.Errorf("sessions: re-point appointment: %w", err)
	}

	s.logger.Info("appointment carried forward",
		"org_id", orgID,
		"appointment_id", appointmentID,
		"session_id", sessionID,
		"session_created", created,
	)
	s.metrics.ObserveImport("completed")

	return &ImportResult{
		AppointmentID:  appointmentID,
		SessionID:      sessionID,
		Date:           today,
		SessionCreated: created,
	}, nil
}

func (s *ImportService) resolveSession(ctx context.Context, orgID, doctorID, date string, opts ImportOptions) (sessionID string, created bool, err error) {
	candidates, err := s.candidateSessions(ctx, orgID, doctorID, date)
	if err != nil {
		s.metrics.ObserveImport("discovery_failed")
		return "", false, err
	}

	if opts.SessionID != "" {
		for _, c := range candidates {
			if c == opts.SessionID {
				return opts.SessionID, false, nil
			}
		}
		s.metrics.ObserveImport("rejected_selection")
		return "", false, fmt.Errorf("sessions: selected session %s is not a candidate for %s on %s", opts.SessionID, doctorID, date)
	}

	switch len(candidates) {
	case 0:
		sess, err := s.sessions.Create(ctx, orgID, doctorID, date, ImportDefaultStartTime, ImportDefaultEndTime)
		if err != nil {
			s.metrics.ObserveImport("create_failed")
			return "", false, fmt.Errorf("sessions: create for import: %w", err)
		}
		return sess.CompositeID(), true, nil
	case 1:
		return candidates[0], false, nil
	default:
		s.metrics.ObserveImport("needs_selection")
		return "", false, &ErrMultipleSessions{Candidates: candidates}
	}
}

// candidateSessions finds composite session ids for the doctor on the given
// date: scheduled session rows first, then ids referenced by that day's
// appointments when no row exists.
func (s *ImportService) candidateSessions(ctx context.Context, orgID, doctorID, date string) ([]string, error) {
	scheduled, err := s.sessions.ListByDoctorDate(ctx, orgID, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("sessions: list scheduled: %w", err)
	}
	if len(scheduled) > 0 {
		ids := make([]string, 0, len(scheduled))
		for _, sess := range scheduled {
			ids = append(ids, sess.CompositeID())
		}
		return ids, nil
	}

	appts, err := s.appointments.ListByDate(ctx, orgID, date)
	if err != nil {
		return nil, fmt.Errorf("sessions: harvest from appointments: %w", err)
	}
	seen := map[string]bool{}
	var ids []string
	for _, appt := range appts {
		if appt.DoctorID != doctorID || appt.SessionID == "" {
			continue
		}
		if !seen[appt.SessionID] {
			seen[appt.SessionID] = true
			ids = append(ids, appt.SessionID)
		}
	}
	return ids, nil
}
