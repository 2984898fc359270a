package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clinicware/clinic-pos/internal/appointments"
	"github.com/clinicware/clinic-pos/internal/http/handlers"
)

type fakeDayLister struct {
	appts []appointments.Appointment
}

func (f *fakeDayLister) ListByDate(_ context.Context, _, _ string) ([]appointments.Appointment, error) {
	return f.appts, nil
}

func newTestRouter() http.Handler {
	return New(&Config{
		Sessions:        handlers.NewSessionsHandler(&fakeDayLister{}, nil),
		AdminAuthSecret: "test-secret",
	})
}

func TestRouter_Health(t *testing.T) {
	srv := httptest.NewServer(newTestRouter())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestRouter_TenantRouteRequiresOrg(t *testing.T) {
	srv := httptest.NewServer(newTestRouter())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/sessions/day?date=2025-03-14")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without org header, got %d", resp.StatusCode)
	}
}

func TestRouter_TenantRouteWithOrg(t *testing.T) {
	srv := httptest.NewServer(newTestRouter())
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/sessions/day?date=2025-03-14", nil)
	req.Header.Set("X-Org-Id", "org-1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with org header, got %d", resp.StatusCode)
	}
}

func TestRouter_AdminRequiresJWT(t *testing.T) {
	r := New(&Config{
		Sessions:        handlers.NewSessionsHandler(&fakeDayLister{}, nil),
		AdminAuthSecret: "test-secret",
		Reports:         handlers.NewReportsHandler(nil, nil),
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/admin/reports/daily", nil)
	req.Header.Set("X-Org-Id", "org-1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
}
