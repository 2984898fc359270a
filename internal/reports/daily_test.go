package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestDailyRevenue(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\), COALESCE\\(SUM\\(total_cents\\), 0\\)").
		WithArgs("org-1", "2025-03-14").
		WillReturnRows(sqlmock.NewRows([]string{"count", "sum"}).AddRow(7, 125000))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\), COUNT\\(\\*\\) FILTER").
		WithArgs("org-1", "2025-03-14").
		WillReturnRows(sqlmock.NewRows([]string{"count", "paid"}).AddRow(12, 9))

	svc := NewService(db, nil)
	rev, err := svc.DailyRevenue(context.Background(), "org-1", "2025-03-14")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rev.SalesCount != 7 || rev.RevenueCents != 125000 {
		t.Errorf("unexpected sales %+v", rev)
	}
	if rev.TotalAppointments != 12 || rev.PaidAppointments != 9 {
		t.Errorf("unexpected appointment counts %+v", rev)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestDailyRevenue_InvalidDate(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	svc := NewService(db, nil)
	if _, err := svc.DailyRevenue(context.Background(), "org-1", "14/03/2025"); err == nil {
		t.Fatal("expected invalid date to be rejected")
	}
}

func TestReportsDisabledWithoutDB(t *testing.T) {
	svc := NewService(nil, nil)
	if svc.Enabled() {
		t.Error("nil db should disable reporting")
	}
	if _, err := svc.DailyRevenue(context.Background(), "org-1", "2025-03-14"); !errors.Is(err, ErrDisabled) {
		t.Errorf("expected ErrDisabled, got %v", err)
	}
	if _, err := svc.DoctorLoads(context.Background(), "org-1", "2025-03-14"); !errors.Is(err, ErrDisabled) {
		t.Errorf("expected ErrDisabled, got %v", err)
	}
	if _, err := svc.RevenueRange(context.Background(), "org-1", "2025-03-01", "2025-03-14"); !errors.Is(err, ErrDisabled) {
		t.Errorf("expected ErrDisabled, got %v", err)
	}
}

func TestDoctorLoads(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT doctor_id, doctor_name").
		WithArgs("org-1", "2025-03-14").
		WillReturnRows(sqlmock.NewRows([]string{"doctor_id", "doctor_name", "count", "arrived"}).
			AddRow("doc1", "Dr. Mendes", 8, 5).
			AddRow("doc2", "Dr. Costa", 4, 4))

	svc := NewService(db, nil)
	loads, err := svc.DoctorLoads(context.Background(), "org-1", "2025-03-14")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(loads) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(loads))
	}
	if loads[0].DoctorID != "doc1" || loads[0].Appointments != 8 || loads[0].Arrived != 5 {
		t.Errorf("unexpected first row %+v", loads[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRevenueRange(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	day1 := time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT created_at::date AS day").
		WithArgs("org-1", "2025-03-13", "2025-03-14").
		WillReturnRows(sqlmock.NewRows([]string{"day", "count", "sum"}).
			AddRow(day1, 3, 45000).
			AddRow(day2, 7, 125000))

	svc := NewService(db, nil)
	days, err := svc.RevenueRange(context.Background(), "org-1", "2025-03-13", "2025-03-14")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(days))
	}
	if days[0].Date != "2025-03-13" || days[1].RevenueCents != 125000 {
		t.Errorf("unexpected rows %+v", days)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRevenueRange_Validation(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	svc := NewService(db, nil)
	if _, err := svc.RevenueRange(context.Background(), "org-1", "2025-03-14", "2025-03-01"); err == nil {
		t.Error("end before start should be rejected")
	}
	if _, err := svc.RevenueRange(context.Background(), "org-1", "bad", "2025-03-14"); err == nil {
		t.Error("invalid start should be rejected")
	}
}
