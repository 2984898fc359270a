package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when an appointment does not exist for the org.
var ErrNotFound = errors.New("appointments: not found")

type appointmentDB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository provides persistence for appointments.
type Repository struct {
	db appointmentDB
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mock database for testing.
func NewRepositoryWithDB(db appointmentDB) *Repository {
	return &Repository{db: db}
}

const appointmentColumns = `
	id, org_id, doctor_id, doctor_name, patient_name, date,
	session_id, session_appointment_number, start_time, end_time,
	is_patient_arrived, patient_arrived_at,
	payment_is_paid, payment_through_pos, payment_paid_at, payment_paid_by, payment_pos_sale_id,
	pharmacy_review_status, created_at
`

// GetForOrg returns one appointment scoped to the org.
func (r *Repository) GetForOrg(ctx context.Context, orgID, id string) (*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE org_id = $1 AND id = $2`
	appt, err := scanAppointment(r.db.QueryRow(ctx, query, orgID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: load %s: %w", id, err)
	}
	return appt, nil
}

// ListByDate returns all appointments for the org on one calendar date.
func (r *Repository) ListByDate(ctx context.Context, orgID, date string) ([]Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE org_id = $1 AND date = $2 ORDER BY created_at`
	return r.list(ctx, query, orgID, date)
}

// ListByDateRange returns appointments for the org with date in [from, to].
func (r *Repository) ListByDateRange(ctx context.Context, orgID, from, to string) ([]Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE org_id = $1 AND date >= $2 AND date <= $3 ORDER BY date, created_at`
	return r.list(ctx, query, orgID, from, to)
}

// Create inserts a new appointment row.
func (r *Repository) Create(ctx context.Context, appt *Appointment) error {
	query := `
		INSERT INTO appointments (
			id, org_id, doctor_id, doctor_name, patient_name, date,
			session_id, session_appointment_number, start_time, end_time,
			pharmacy_review_status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	createdAt := appt.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx, query,
		appt.ID, appt.OrgID, appt.DoctorID, appt.DoctorName, appt.PatientName, appt.Date,
		nullableText(appt.SessionID), appt.SessionAppointmentNumber,
		nullableText(appt.StartTime), nullableText(appt.EndTime),
		nullableText(appt.PharmacyReviewStatus), createdAt,
	)
	if err != nil {
		return fmt.Errorf("appointments: insert: %w", err)
	}
	return nil
}

// MarkArrived flips is_patient_arrived to true. patient_arrived_at is set only
// on the false->true transition; re-marking an arrived patient is a no-op.
func (r *Repository) MarkArrived(ctx context.Context, orgID, id string, at time.Time) error {
	query := `
		UPDATE appointments
		SET is_patient_arrived = TRUE,
		    patient_arrived_at = COALESCE(patient_arrived_at, $3)
		WHERE org_id = $1 AND id = $2
	`
	ct, err := r.db.Exec(ctx, query, orgID, id, at.UTC())
	if err != nil {
		return fmt.Errorf("appointments: mark arrived %s: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordPayment writes the appointment-level payment record.
func (r *Repository) RecordPayment(ctx context.Context, orgID, id string, p Payment) error {
	query := `
		UPDATE appointments
		SET payment_is_paid = $3,
		    payment_through_pos = $4,
		    payment_paid_at = $5,
		    payment_paid_by = $6,
		    payment_pos_sale_id = $7
		WHERE org_id = $1 AND id = $2
	`
	ct, err := r.db.Exec(ctx, query, orgID, id, p.IsPaid, p.PaidThroughPOS, p.PaidAt, nullableText(p.PaidBy), nullableText(p.POSSaleID))
	if err != nil {
		return fmt.Errorf("appointments: record payment %s: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateSessionRef re-points the appointment at a session and date in one
// statement. The import flow relies on this being a single atomic write.
func (r *Repository) UpdateSessionRef(ctx context.Context, orgID, id, sessionID, date string) error {
	query := `
		UPDATE appointments
		SET session_id = $3, date = $4
		WHERE org_id = $1 AND id = $2
	`
	ct, err := r.db.Exec(ctx, query, orgID, id, sessionID, date)
	if err != nil {
		return fmt.Errorf("appointments: update session ref %s: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPharmacyReviewStatus updates the pharmacy desk review marker.
func (r *Repository) SetPharmacyReviewStatus(ctx context.Context, orgID, id, status string) error {
	query := `UPDATE appointments SET pharmacy_review_status = $3 WHERE org_id = $1 AND id = $2`
	ct, err := r.db.Exec(ctx, query, orgID, id, nullableText(status))
	if err != nil {
		return fmt.Errorf("appointments: set review status %s: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: query: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		out = append(out, *appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: iterate: %w", err)
	}
	return out, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		appt           Appointment
		sessionID      *string
		startTime      *string
		endTime        *string
		arrivedAt      *time.Time
		payIsPaid      *bool
		payThroughPOS  *bool
		payPaidAt      *time.Time
		payPaidBy      *string
		payPOSSaleID   *string
		pharmacyStatus *string
	)
	err := row.Scan(
		&appt.ID, &appt.OrgID, &appt.DoctorID, &appt.DoctorName, &appt.PatientName, &appt.Date,
		&sessionID, &appt.SessionAppointmentNumber, &startTime, &endTime,
		&appt.IsPatientArrived, &arrivedAt,
		&payIsPaid, &payThroughPOS, &payPaidAt, &payPaidBy, &payPOSSaleID,
		&pharmacyStatus, &appt.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	appt.SessionID = deref(sessionID)
	appt.StartTime = deref(startTime)
	appt.EndTime = deref(endTime)
	appt.PatientArrivedAt = arrivedAt
	appt.PharmacyReviewStatus = deref(pharmacyStatus)
	if payIsPaid != nil {
		appt.Payment = &Payment{
			IsPaid:         *payIsPaid,
			PaidThroughPOS: payThroughPOS != nil && *payThroughPOS,
			PaidAt:         payPaidAt,
			PaidBy:         deref(payPaidBy),
			POSSaleID:      deref(payPOSSaleID),
		}
	}
	return &appt, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
