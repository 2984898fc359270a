package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Session is a stored doctor session. Many sessions exist only implicitly
// through the composite session ids carried by appointments; rows in the
// sessions table are the explicitly scheduled ones.
type Session struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	DoctorID  string    `json:"doctor_id"`
	Date      string    `json:"date"` // YYYY-MM-DD
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	CreatedAt time.Time `json:"created_at"`
}

// CompositeID renders the session reference stored on appointments.
func (s Session) CompositeID() string {
	return fmt.Sprintf("%s_%s_%s_%s", s.DoctorID, s.Date, s.StartTime, s.EndTime)
}

type sessionDB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository provides persistence for explicitly scheduled sessions.
type Repository struct {
	db sessionDB
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("sessions: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mock database for testing.
func NewRepositoryWithDB(db sessionDB) *Repository {
	return &Repository{db: db}
}

// ListByDoctorDate returns the sessions scheduled for one doctor on one date.
func (r *Repository) ListByDoctorDate(ctx context.Context, orgID, doctorID, date string) ([]Session, error) {
	query := `
		SELECT id, org_id, doctor_id, date, start_time, end_time, created_at
		FROM sessions
		WHERE org_id = $1 AND doctor_id = $2 AND date = $3
		ORDER BY start_time, created_at
	`
	rows, err := r.db.Query(ctx, query, orgID, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("sessions: query by doctor/date: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.OrgID, &s.DoctorID, &s.Date, &s.StartTime, &s.EndTime, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("sessions: scan: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sessions: iterate: %w", err)
	}
	return out, nil
}

// Create inserts a new session row and returns it with its generated id.
func (r *Repository) Create(ctx context.Context, orgID, doctorID, date, startTime, endTime string) (*Session, error) {
	s := Session{
		ID:        uuid.NewString(),
		OrgID:     orgID,
		DoctorID:  doctorID,
		Date:      date,
		StartTime: startTime,
		EndTime:   endTime,
		CreatedAt: time.Now().UTC(),
	}
	query := `
		INSERT INTO sessions (id, org_id, doctor_id, date, start_time, end_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := r.db.Exec(ctx, query, s.ID, s.OrgID, s.DoctorID, s.Date, s.StartTime, s.EndTime, s.CreatedAt); err != nil {
		return nil, fmt.Errorf("sessions: insert: %w", err)
	}
	return &s, nil
}
