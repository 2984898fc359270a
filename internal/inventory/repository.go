package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when an item does not exist for the org.
var ErrNotFound = errors.New("inventory: not found")

type inventoryDB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository provides persistence for inventory items and batches.
type Repository struct {
	db inventoryDB
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("inventory: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mock database for testing.
func NewRepositoryWithDB(db inventoryDB) *Repository {
	return &Repository{db: db}
}

// GetItem returns one inventory item scoped to the org.
func (r *Repository) GetItem(ctx context.Context, orgID, id string) (*Item, error) {
	query := `SELECT id, org_id, name, unit_price_cents FROM inventory_items WHERE org_id = $1 AND id = $2`
	var item Item
	err := r.db.QueryRow(ctx, query, orgID, id).Scan(&item.ID, &item.OrgID, &item.Name, &item.UnitPriceCents)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("inventory: load item %s: %w", id, err)
	}
	return &item, nil
}

// SearchByName returns items whose name matches the query, case-insensitive.
func (r *Repository) SearchByName(ctx context.Context, orgID, name string) ([]Item, error) {
	query := `
		SELECT id, org_id, name, unit_price_cents
		FROM inventory_items
		WHERE org_id = $1 AND name ILIKE '%' || $2 || '%'
		ORDER BY name
	`
	rows, err := r.db.Query(ctx, query, orgID, name)
	if err != nil {
		return nil, fmt.Errorf("inventory: search items: %w", err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.OrgID, &item.Name, &item.UnitPriceCents); err != nil {
			return nil, fmt.Errorf("inventory: scan item: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("inventory: iterate items: %w", err)
	}
	return out, nil
}

// ListBatches returns every batch for an item, earliest expiry first. Callers
// apply Available to exclude empty or expired lots.
func (r *Repository) ListBatches(ctx context.Context, itemID string) ([]Batch, error) {
	query := `
		SELECT id, item_id, batch_no, quantity, expiry_date
		FROM inventory_batches
		WHERE item_id = $1
		ORDER BY expiry_date, batch_no
	`
	rows, err := r.db.Query(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("inventory: query batches: %w", err)
	}
	defer rows.Close()

	var out []Batch
	for rows.Next() {
		var b Batch
		if err := rows.Scan(&b.ID, &b.ItemID, &b.BatchNo, &b.Quantity, &b.ExpiryDate); err != nil {
			return nil, fmt.Errorf("inventory: scan batch: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("inventory: iterate batches: %w", err)
	}
	return out, nil
}

// ExpiringBatch is one row of the expiry dashboard.
type ExpiringBatch struct {
	Batch
	ItemName string `json:"item_name"`
}

// ExpiringWithin returns stocked batches for the org expiring inside the
// window, soonest first.
func (r *Repository) ExpiringWithin(ctx context.Context, orgID string, until time.Time) ([]ExpiringBatch, error) {
	query := `
		SELECT b.id, b.item_id, b.batch_no, b.quantity, b.expiry_date, i.name
		FROM inventory_batches b
		JOIN inventory_items i ON i.id = b.item_id
		WHERE i.org_id = $1 AND b.quantity > 0 AND b.expiry_date <= $2
		ORDER BY b.expiry_date, i.name
	`
	rows, err := r.db.Query(ctx, query, orgID, until)
	if err != nil {
		return nil, fmt.Errorf("inventory: query expiring: %w", err)
	}
	defer rows.Close()

	var out []ExpiringBatch
	for rows.Next() {
		var e ExpiringBatch
		if err := rows.Scan(&e.ID, &e.ItemID, &e.BatchNo, &e.Quantity, &e.ExpiryDate, &e.ItemName); err != nil {
			return nil, fmt.Errorf("inventory: scan expiring: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("inventory: iterate expiring: %w", err)
	}
	return out, nil
}
