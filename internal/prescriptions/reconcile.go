package prescriptions

// Entry is one prescription with its derived selection state.
type Entry struct {
	Prescription Prescription `json:"prescription"`
	Disabled     bool         `json:"disabled"`
}

// Reconciliation is the derived selection state for all prescriptions
// attached to one appointment.
type Reconciliation struct {
	AppointmentID string  `json:"appointment_id"`
	Total         int     `json:"total"`
	Paid          int     `json:"paid"`
	Pending       int     `json:"pending"`
	Entries       []Entry `json:"entries"`

	// Selectable is the prescription the POS flow should offer next, or nil
	// when the appointment has no prescriptions. When SelectionDisabled is
	// true the pick is display-only: every prescription is paid or already
	// handed to the POS, and loading must stay disabled.
	Selectable        *Prescription `json:"selectable,omitempty"`
	SelectionDisabled bool          `json:"selection_disabled"`
}

// PartiallyPaid reports whether the appointment has prescriptions in mixed
// paid states.
func (r Reconciliation) PartiallyPaid() bool {
	return r.Paid > 0 && r.Pending > 0
}

// Reconcile computes selection state for an appointment's prescriptions.
// loaded holds the prescription ids currently marked as handed to the POS but
// not yet confirmed paid. The disable condition is uniformly
// IsPaid || locallyLoaded; a paid prescription is never auto-selected.
func Reconcile(appointmentID string, prescs []Prescription, loaded map[string]bool) Reconciliation {
	rec := Reconciliation{
		AppointmentID: appointmentID,
		Total:         len(prescs),
		Entries:       make([]Entry, 0, len(prescs)),
	}

	for _, p := range prescs {
		if p.IsPaid {
			rec.Paid++
		} else {
			rec.Pending++
		}
		rec.Entries = append(rec.Entries, Entry{
			Prescription: p,
			Disabled:     p.IsPaid || loaded[p.ID],
		})
	}

	for i := range prescs {
		if !prescs[i].IsPaid && !loaded[prescs[i].ID] {
			rec.Selectable = &prescs[i]
			return rec
		}
	}

	// Everything is paid or already loaded; fall back to the first
	// prescription for display with loading disabled.
	if len(prescs) > 0 {
		rec.Selectable = &prescs[0]
		rec.SelectionDisabled = true
	}
	return rec
}
