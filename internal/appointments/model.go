package appointments

import "time"

// PharmacyReviewStatus values recognized by the pharmacy desk views.
const (
	PharmacyReviewed = "reviewed"
	PharmacyPending  = "pending"
)

// Payment captures how an appointment itself was settled. Prescriptions
// attached to the appointment carry their own independent payment state.
type Payment struct {
	IsPaid         bool       `json:"is_paid"`
	PaidThroughPOS bool       `json:"paid_through_pos"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
	PaidBy         string     `json:"paid_by,omitempty"`
	POSSaleID      string     `json:"pos_sale_id,omitempty"`
}

// Appointment is one scheduled patient visit.
//
// SessionID, when set, is a composite identifier of the form
// {doctorID}_{date}_{startTime}_{endTime}. Doctor ids may themselves contain
// underscores, so consumers locate the date segment by pattern rather than
// position. An appointment without a SessionID still belongs to a derived
// session keyed by doctor and date.
type Appointment struct {
	ID                       string     `json:"id"`
	OrgID                    string     `json:"org_id"`
	DoctorID                 string     `json:"doctor_id"`
	DoctorName               string     `json:"doctor_name"`
	PatientName              string     `json:"patient_name"`
	Date                     string     `json:"date"` // YYYY-MM-DD
	SessionID                string     `json:"session_id,omitempty"`
	SessionAppointmentNumber *int       `json:"session_appointment_number,omitempty"`
	StartTime                string     `json:"start_time,omitempty"` // legacy flat fields,
	EndTime                  string     `json:"end_time,omitempty"`   // pre composite SessionID
	IsPatientArrived         bool       `json:"is_patient_arrived"`
	PatientArrivedAt         *time.Time `json:"patient_arrived_at,omitempty"`
	Payment                  *Payment   `json:"payment,omitempty"`
	PharmacyReviewStatus     string     `json:"pharmacy_review_status,omitempty"`
	CreatedAt                time.Time  `json:"created_at"`
}
