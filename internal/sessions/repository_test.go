package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
)

func TestListByDoctorDate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	created := time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{"id", "org_id", "doctor_id", "date", "start_time", "end_time", "created_at"}).
		AddRow("s1", "org-1", "doc1", "2025-03-14", "09:00", "13:00", created).
		AddRow("s2", "org-1", "doc1", "2025-03-14", "14:00", "17:00", created)
	mock.ExpectQuery("SELECT id, org_id, doctor_id, date, start_time, end_time, created_at").
		WithArgs("org-1", "doc1", "2025-03-14").
		WillReturnRows(rows)

	repo := NewRepositoryWithDB(mock)
	got, err := repo.ListByDoctorDate(context.Background(), "org-1", "doc1", "2025-03-14")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(got))
	}
	if got[0].CompositeID() != "doc1_2025-03-14_09:00_13:00" {
		t.Errorf("unexpected composite id %q", got[0].CompositeID())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestListByDoctorDate_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery("SELECT id, org_id, doctor_id").
		WithArgs("org-1", "doc1", "2025-03-14").
		WillReturnError(errors.New("connection reset"))

	repo := NewRepositoryWithDB(mock)
	if _, err := repo.ListByDoctorDate(context.Background(), "org-1", "doc1", "2025-03-14"); err == nil {
		t.Fatal("expected query error to surface")
	}
}

func TestCreateSession(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(pgxmock.AnyArg(), "org-1", "doc1", "2025-03-14", "08:00", "17:00", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewRepositoryWithDB(mock)
	sess, err := repo.Create(context.Background(), "org-1", "doc1", "2025-03-14", "08:00", "17:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.ID == "" {
		t.Error("expected a generated id")
	}
	if sess.CompositeID() != "doc1_2025-03-14_08:00_17:00" {
		t.Errorf("unexpected composite id %q", sess.CompositeID())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
