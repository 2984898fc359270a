package sessions

import (
	"fmt"
	"math"
	"sort"

	"github.com/clinicware/clinic-pos/internal/appointments"
)

// OrderPolicy decides where appointments without a session appointment number
// sort within their session. The legacy store defaulted the missing number to
// zero, which put unnumbered appointments ahead of numbered ones. Both
// behaviors are supported; callers pick one explicitly.
type OrderPolicy int

const (
	// MissingNumberLast sorts unnumbered appointments after numbered ones.
	MissingNumberLast OrderPolicy = iota
	// MissingNumberFirst reproduces the legacy zero-default ordering.
	MissingNumberFirst
)

// FallbackKey builds the session key for an appointment with no SessionID.
// All such appointments for one doctor and date collapse into a single group.
func FallbackKey(doctorID, date string) string {
	return fmt.Sprintf("%s_%s_default", doctorID, date)
}

// Key returns the grouping key for an appointment.
func Key(appt appointments.Appointment) string {
	if appt.SessionID != "" {
		return appt.SessionID
	}
	return FallbackKey(appt.DoctorID, appt.Date)
}

// Group partitions appointments by session key and orders each group for
// display. Every input appointment lands in exactly one group; malformed or
// missing session ids never fail, they only coarsen the grouping.
//
// In-group order: session appointment number per the policy, then creation
// time ascending (zero times sort first), then original input order.
func Group(appts []appointments.Appointment, policy OrderPolicy) map[string][]appointments.Appointment {
	groups := make(map[string][]appointments.Appointment)
	for _, appt := range appts {
		key := Key(appt)
		groups[key] = append(groups[key], appt)
	}
	for _, members := range groups {
		sortGroup(members, policy)
	}
	return groups
}

// SortedKeys returns the group keys ordered by derived start time, then key,
// so rendered session lists are deterministic.
func SortedKeys(groups map[string][]appointments.Appointment) []string {
	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		var si, sj string
		if members := groups[keys[i]]; len(members) > 0 {
			si, _ = DeriveWindow(members[0])
		}
		if members := groups[keys[j]]; len(members) > 0 {
			sj, _ = DeriveWindow(members[0])
		}
		if si != sj {
			return si < sj
		}
		return keys[i] < keys[j]
	})
	return keys
}

func sortGroup(members []appointments.Appointment, policy OrderPolicy) {
	sort.SliceStable(members, func(i, j int) bool {
		ni := numberKey(members[i], policy)
		nj := numberKey(members[j], policy)
		if ni != nj {
			return ni < nj
		}
		return members[i].CreatedAt.Before(members[j].CreatedAt)
	})
}

func numberKey(appt appointments.Appointment, policy OrderPolicy) int {
	if appt.SessionAppointmentNumber == nil {
		if policy == MissingNumberFirst {
			return 0
		}
		return math.MaxInt
	}
	return *appt.SessionAppointmentNumber
}
