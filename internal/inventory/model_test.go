package inventory

import (
	"testing"
	"time"
)

func TestAvailable(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	batches := []Batch{
		{ID: "b1", Quantity: 5, ExpiryDate: now.AddDate(0, 1, 0)},
		{ID: "b2", Quantity: 0, ExpiryDate: now.AddDate(0, 1, 0)},
		{ID: "b3", Quantity: 3, ExpiryDate: now.AddDate(0, -1, 0)},
		{ID: "b4", Quantity: 2, ExpiryDate: now}, // expiring right now counts as expired
		{ID: "b5", Quantity: 1, ExpiryDate: now.Add(time.Hour)},
	}

	got := Available(batches, now)
	if len(got) != 2 {
		t.Fatalf("expected 2 usable batches, got %d", len(got))
	}
	if got[0].ID != "b1" || got[1].ID != "b5" {
		t.Errorf("input order must be preserved, got %s then %s", got[0].ID, got[1].ID)
	}
}

func TestAvailable_Empty(t *testing.T) {
	now := time.Now()
	if got := Available(nil, now); len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
}
