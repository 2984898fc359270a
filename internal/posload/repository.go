package posload

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type saleDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// SaleRepository persists POS sales created from prescriptions.
type SaleRepository struct {
	db saleDB
}

// NewSaleRepository creates a repository backed by a pgx pool.
func NewSaleRepository(pool *pgxpool.Pool) *SaleRepository {
	if pool == nil {
		panic("posload: pgx pool required")
	}
	return &SaleRepository{db: pool}
}

// NewSaleRepositoryWithDB allows injecting a mock database for testing.
func NewSaleRepositoryWithDB(db saleDB) *SaleRepository {
	return &SaleRepository{db: db}
}

// InsertSale writes one sale row. Lines are stored as JSON; the POS terminal
// renders them verbatim and never re-derives allocations.
func (r *SaleRepository) InsertSale(ctx context.Context, sale *Sale) error {
	lines, err := json.Marshal(sale.Lines)
	if err != nil {
		return fmt.Errorf("posload: marshal sale lines: %w", err)
	}
	query := `
		INSERT INTO pos_sales (id, org_id, appointment_id, prescription_id, lines, total_cents, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := r.db.Exec(ctx, query, sale.ID, sale.OrgID, sale.AppointmentID, sale.PrescriptionID, lines, sale.TotalCents, sale.CreatedAt); err != nil {
		return fmt.Errorf("posload: insert sale: %w", err)
	}
	return nil
}
