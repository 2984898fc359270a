package posload

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
)

func TestInsertSale(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	created := time.Date(2025, 3, 14, 11, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO pos_sales").
		WithArgs("sale-1", "org-1", "a1", "p1", pgxmock.AnyArg(), int64(125000), created).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewSaleRepositoryWithDB(mock)
	err = repo.InsertSale(context.Background(), &Sale{
		ID:             "sale-1",
		OrgID:          "org-1",
		AppointmentID:  "a1",
		PrescriptionID: "p1",
		Lines: []SaleLine{
			{MedicineName: "Amoxicillin 500mg", Source: "inventory", Quantity: 5, UnitPriceCents: 250},
		},
		TotalCents: 125000,
		CreatedAt:  created,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
