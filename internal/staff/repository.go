package staff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no staff member matches the lookup.
var ErrNotFound = errors.New("staff: not found")

// Member is a clinic staff record. Doctors are members with RoleDoctor and
// own sessions; any member can record a POS payment.
type Member struct {
	ID        string
	OrgID     string
	Name      string
	Role      string
	CreatedAt time.Time
}

const (
	RoleDoctor       = "doctor"
	RoleReceptionist = "receptionist"
	RolePharmacist   = "pharmacist"
)

type staffDB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository reads and writes staff records.
type Repository struct {
	db staffDB
}

// NewRepository creates a staff repository backed by the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("staff: nil pool")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB creates a repository with a custom DB, used in tests.
func NewRepositoryWithDB(db staffDB) *Repository {
	return &Repository{db: db}
}

// Get returns one staff member scoped to the org.
func (r *Repository) Get(ctx context.Context, orgID, id string) (*Member, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, org_id, name, role, created_at
		FROM staff
		WHERE org_id = $1 AND id = $2`, orgID, id)

	var m Member
	if err := row.Scan(&m.ID, &m.OrgID, &m.Name, &m.Role, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("staff: get: %w", err)
	}
	return &m, nil
}

// ListDoctors returns the org's doctors ordered by name.
func (r *Repository) ListDoctors(ctx context.Context, orgID string) ([]Member, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, org_id, name, role, created_at
		FROM staff
		WHERE org_id = $1 AND role = $2
		ORDER BY name`, orgID, RoleDoctor)
	if err != nil {
		return nil, fmt.Errorf("staff: list doctors: %w", err)
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.OrgID, &m.Name, &m.Role, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("staff: scan doctor: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Create inserts a staff member.
func (r *Repository) Create(ctx context.Context, m *Member) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO staff (id, org_id, name, role, created_at)
		VALUES ($1, $2, $3, $4, now())`,
		m.ID, m.OrgID, m.Name, m.Role)
	if err != nil {
		return fmt.Errorf("staff: create: %w", err)
	}
	return nil
}
