package prescriptions

import "time"

// Medicine sources. Only inventory-sourced medicines participate in
// stock-aware POS loading; written medicines are display-only lines.
const (
	SourceInventory = "inventory"
	SourceWritten   = "written"
)

// Medicine is one line on a prescription.
type Medicine struct {
	Name            string `json:"name"`
	Source          string `json:"source"` // "inventory" or "written"
	Quantity        int    `json:"quantity"`
	InventoryItemID string `json:"inventory_item_id,omitempty"`
}

// Prescription is a clinical record produced for a patient visit. Several
// prescriptions (patients) may share one appointment slot, each carrying its
// own payment state independent of the appointment's.
type Prescription struct {
	ID                     string     `json:"id"`
	OrgID                  string     `json:"org_id"`
	AppointmentID          string     `json:"appointment_id"`
	PatientName            string     `json:"patient_name"`
	IsPaid                 bool       `json:"is_paid"`
	PaidThroughPOS         bool       `json:"paid_through_pos"`
	AppointmentAmountCents *int64     `json:"appointment_amount_cents,omitempty"`
	Medicines              []Medicine `json:"medicines,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
}
