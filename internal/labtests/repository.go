package labtests

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a lab order lookup matches nothing.
var ErrNotFound = errors.New("labtests: order not found")

// Order statuses. Orders only move forward: ordered -> collected -> reported.
const (
	StatusOrdered   = "ordered"
	StatusCollected = "collected"
	StatusReported  = "reported"
)

// Order is a lab test ordered for an appointment.
type Order struct {
	ID            string
	OrgID         string
	AppointmentID string
	PatientName   string
	TestName      string
	Status        string
	OrderedAt     time.Time
	ReportedAt    *time.Time
}

// DayCounts summarizes a day's lab workload for the dashboard.
type DayCounts struct {
	Ordered   int `json:"ordered"`
	Collected int `json:"collected"`
	Reported  int `json:"reported"`
}

type labDB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository reads and writes lab test orders.
type Repository struct {
	db labDB
}

// NewRepository creates a lab order repository backed by the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("labtests: nil pool")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB creates a repository with a custom DB, used in tests.
func NewRepositoryWithDB(db labDB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new order in the ordered state.
func (r *Repository) Create(ctx context.Context, o *Order) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO lab_test_orders (id, org_id, appointment_id, patient_name, test_name, status, ordered_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())`,
		o.ID, o.OrgID, o.AppointmentID, o.PatientName, o.TestName, StatusOrdered)
	if err != nil {
		return fmt.Errorf("labtests: create: %w", err)
	}
	return nil
}

// ListByDate returns the org's orders placed on the given day, pending first.
func (r *Repository) ListByDate(ctx context.Context, orgID, date string) ([]Order, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, org_id, appointment_id, patient_name, test_name, status, ordered_at, reported_at
		FROM lab_test_orders
		WHERE org_id = $1 AND ordered_at::date = $2::date
		ORDER BY status, ordered_at`, orgID, date)
	if err != nil {
		return nil, fmt.Errorf("labtests: list by date: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.OrgID, &o.AppointmentID, &o.PatientName, &o.TestName,
			&o.Status, &o.OrderedAt, &o.ReportedAt); err != nil {
			return nil, fmt.Errorf("labtests: scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// CountsByDate returns per-status counts for the dashboard summary.
func (r *Repository) CountsByDate(ctx context.Context, orgID, date string) (DayCounts, error) {
	rows, err := r.db.Query(ctx, `
		SELECT status, COUNT(*)
		FROM lab_test_orders
		WHERE org_id = $1 AND ordered_at::date = $2::date
		GROUP BY status`, orgID, date)
	if err != nil {
		return DayCounts{}, fmt.Errorf("labtests: counts by date: %w", err)
	}
	defer rows.Close()

	var c DayCounts
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return DayCounts{}, fmt.Errorf("labtests: scan count: %w", err)
		}
		switch status {
		case StatusOrdered:
			c.Ordered = n
		case StatusCollected:
			c.Collected = n
		case StatusReported:
			c.Reported = n
		}
	}
	return c, rows.Err()
}

// Advance moves an order one step forward. Backward moves are rejected by
// the WHERE clause, which only matches the expected prior status.
func (r *Repository) Advance(ctx context.Context, orgID, id, toStatus string) error {
	var from string
	switch toStatus {
	case StatusCollected:
		from = StatusOrdered
	case StatusReported:
		from = StatusCollected
	default:
		return fmt.Errorf("labtests: invalid target status %q", toStatus)
	}

	reportedAt := "reported_at"
	if toStatus == StatusReported {
		reportedAt = "now()"
	}
	tag, err := r.db.Exec(ctx, fmt.Sprintf(`
		UPDATE lab_test_orders
		SET status = $1, reported_at = %s
		WHERE org_id = $2 AND id = $3 AND status = $4`, reportedAt),
		toStatus, orgID, id, from)
	if err != nil {
		return fmt.Errorf("labtests: advance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
