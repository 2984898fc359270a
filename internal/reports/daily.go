package reports

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/clinicware/clinic-pos/pkg/logging"
)

// DailyRevenue summarizes one day of POS activity for an org.
type DailyRevenue struct {
	OrgID             string `json:"org_id"`
	Date              string `json:"date"`
	SalesCount        int64  `json:"sales_count"`
	RevenueCents      int64  `json:"revenue_cents"`
	PaidAppointments  int64  `json:"paid_appointments"`
	TotalAppointments int64  `json:"total_appointments"`
}

// DoctorLoad is one doctor's share of a day's appointments.
type DoctorLoad struct {
	DoctorID     string `json:"doctor_id"`
	DoctorName   string `json:"doctor_name"`
	Appointments int64  `json:"appointments"`
	Arrived      int64  `json:"arrived"`
}

// Service computes reporting aggregates. It runs on database/sql so report
// queries can go to a read replica with its own driver and pool settings.
type Service struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewService creates a reports service. A nil db disables reporting; every
// query then returns ErrDisabled.
func NewService(db *sql.DB, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{db: db, logger: logger}
}

// ErrDisabled is returned when reporting has no database configured.
var ErrDisabled = fmt.Errorf("reports: disabled")

// Enabled reports whether a reporting database is configured.
func (s *Service) Enabled() bool {
	return s != nil && s.db != nil
}

// DailyRevenue aggregates a single day's sales and appointment payments.
func (s *Service) DailyRevenue(ctx context.Context, orgID, date string) (*DailyRevenue, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("reports: invalid date %q", date)
	}

	out := &DailyRevenue{OrgID: orgID, Date: date}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_cents), 0)
		FROM pos_sales
		WHERE org_id = $1 AND created_at::date = $2::date`,
		orgID, date).Scan(&out.SalesCount, &out.RevenueCents)
	if err != nil {
		return nil, fmt.Errorf("reports: sum sales: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE payment_is_paid)
		FROM appointments
		WHERE org_id = $1 AND date = $2`,
		orgID, date).Scan(&out.TotalAppointments, &out.PaidAppointments)
	if err != nil {
		return nil, fmt.Errorf("reports: count appointments: %w", err)
	}

	return out, nil
}

// DoctorLoads returns per-doctor appointment and arrival counts for a day,
// busiest doctor first.
func (s *Service) DoctorLoads(ctx context.Context, orgID, date string) ([]DoctorLoad, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT doctor_id, doctor_name, COUNT(*), COUNT(*) FILTER (WHERE is_patient_arrived)
		FROM appointments
		WHERE org_id = $1 AND date = $2
		GROUP BY doctor_id, doctor_name
		ORDER BY COUNT(*) DESC, doctor_name`,
		orgID, date)
	if err != nil {
		return nil, fmt.Errorf("reports: doctor loads: %w", err)
	}
	defer rows.Close()

	var out []DoctorLoad
	for rows.Next() {
		var d DoctorLoad
		if err := rows.Scan(&d.DoctorID, &d.DoctorName, &d.Appointments, &d.Arrived); err != nil {
			return nil, fmt.Errorf("reports: scan doctor load: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// RevenueRange aggregates daily revenue across [start, end] inclusive.
func (s *Service) RevenueRange(ctx context.Context, orgID, start, end string) ([]DailyRevenue, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}
	startT, err := time.Parse("2006-01-02", start)
	if err != nil {
		return nil, fmt.Errorf("reports: invalid start %q", start)
	}
	endT, err := time.Parse("2006-01-02", end)
	if err != nil {
		return nil, fmt.Errorf("reports: invalid end %q", end)
	}
	if endT.Before(startT) {
		return nil, fmt.Errorf("reports: end before start")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT created_at::date AS day, COUNT(*), COALESCE(SUM(total_cents), 0)
		FROM pos_sales
		WHERE org_id = $1 AND created_at::date >= $2::date AND created_at::date <= $3::date
		GROUP BY day
		ORDER BY day`,
		orgID, start, end)
	if err != nil {
		return nil, fmt.Errorf("reports: revenue range: %w", err)
	}
	defer rows.Close()

	var out []DailyRevenue
	for rows.Next() {
		var d DailyRevenue
		var day time.Time
		if err := rows.Scan(&day, &d.SalesCount, &d.RevenueCents); err != nil {
			return nil, fmt.Errorf("reports: scan revenue day: %w", err)
		}
		d.OrgID = orgID
		d.Date = day.Format("2006-01-02")
		out = append(out, d)
	}
	return out, rows.Err()
}
