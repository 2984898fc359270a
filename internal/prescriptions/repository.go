package prescriptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a prescription does not exist for the org.
var ErrNotFound = errors.New("prescriptions: not found")

type prescriptionDB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository provides persistence for prescriptions and their medicines.
type Repository struct {
	db prescriptionDB
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("prescriptions: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mock database for testing.
func NewRepositoryWithDB(db prescriptionDB) *Repository {
	return &Repository{db: db}
}

// GetForOrg returns one prescription with its medicine lines.
func (r *Repository) GetForOrg(ctx context.Context, orgID, id string) (*Prescription, error) {
	query := `
		SELECT id, org_id, appointment_id, patient_name, is_paid, paid_through_pos, appointment_amount_cents, created_at
		FROM prescriptions
		WHERE org_id = $1 AND id = $2
	`
	p, err := scanPrescription(r.db.QueryRow(ctx, query, orgID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("prescriptions: load %s: %w", id, err)
	}
	if err := r.attachMedicines(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// FirstByAppointment returns the earliest prescription for an appointment, or
// ErrNotFound when the appointment has none.
func (r *Repository) FirstByAppointment(ctx context.Context, orgID, appointmentID string) (*Prescription, error) {
	query := `
		SELECT id, org_id, appointment_id, patient_name, is_paid, paid_through_pos, appointment_amount_cents, created_at
		FROM prescriptions
		WHERE org_id = $1 AND appointment_id = $2
		ORDER BY created_at
		LIMIT 1
	`
	p, err := scanPrescription(r.db.QueryRow(ctx, query, orgID, appointmentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("prescriptions: first for appointment %s: %w", appointmentID, err)
	}
	if err := r.attachMedicines(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListByAppointment returns every prescription attached to an appointment in
// creation order, medicines included.
func (r *Repository) ListByAppointment(ctx context.Context, orgID, appointmentID string) ([]Prescription, error) {
	query := `
		SELECT id, org_id, appointment_id, patient_name, is_paid, paid_through_pos, appointment_amount_cents, created_at
		FROM prescriptions
		WHERE org_id = $1 AND appointment_id = $2
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, orgID, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("prescriptions: query by appointment: %w", err)
	}
	defer rows.Close()

	var out []Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, fmt.Errorf("prescriptions: scan: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("prescriptions: iterate: %w", err)
	}
	for i := range out {
		if err := r.attachMedicines(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// MarkPaidThroughPOS records that the prescription was settled by a POS sale.
func (r *Repository) MarkPaidThroughPOS(ctx context.Context, orgID, id string) error {
	query := `
		UPDATE prescriptions
		SET is_paid = TRUE, paid_through_pos = TRUE
		WHERE org_id = $1 AND id = $2
	`
	ct, err := r.db.Exec(ctx, query, orgID, id)
	if err != nil {
		return fmt.Errorf("prescriptions: mark paid %s: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) attachMedicines(ctx context.Context, p *Prescription) error {
	query := `
		SELECT name, source, quantity, COALESCE(inventory_item_id, '')
		FROM prescription_medicines
		WHERE prescription_id = $1
		ORDER BY position
	`
	rows, err := r.db.Query(ctx, query, p.ID)
	if err != nil {
		return fmt.Errorf("prescriptions: query medicines for %s: %w", p.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var m Medicine
		if err := rows.Scan(&m.Name, &m.Source, &m.Quantity, &m.InventoryItemID); err != nil {
			return fmt.Errorf("prescriptions: scan medicine: %w", err)
		}
		p.Medicines = append(p.Medicines, m)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("prescriptions: iterate medicines: %w", err)
	}
	return nil
}

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var (
		p      Prescription
		amount *int64
		t      time.Time
	)
	if err := row.Scan(&p.ID, &p.OrgID, &p.AppointmentID, &p.PatientName, &p.IsPaid, &p.PaidThroughPOS, &amount, &t); err != nil {
		return nil, err
	}
	p.AppointmentAmountCents = amount
	p.CreatedAt = t
	return &p, nil
}
