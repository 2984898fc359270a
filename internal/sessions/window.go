package sessions

import (
	"regexp"
	"strings"

	"github.com/clinicware/clinic-pos/internal/appointments"
)

// Default working hours used when neither the session id nor the legacy flat
// fields yield a time window.
const (
	DefaultStartTime = "09:00"
	DefaultEndTime   = "17:00"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// DeriveWindow resolves the start and end time for the session an appointment
// belongs to. It never fails; it degrades through a fixed fallback chain:
// composite session id, then legacy flat fields, then default hours.
func DeriveWindow(appt appointments.Appointment) (startTime, endTime string) {
	if start, end, ok := parseWindowFromSessionID(appt.SessionID); ok {
		return start, end
	}
	if appt.StartTime != "" && appt.EndTime != "" {
		return appt.StartTime, appt.EndTime
	}
	return DefaultStartTime, DefaultEndTime
}

// parseWindowFromSessionID extracts {start, end} from a composite session id
// of the form {doctorID}_{date}_{start}_{end}. Doctor ids may contain
// underscores, so the date segment is located by pattern among the tokens
// preceding the two time candidates rather than by position.
func parseWindowFromSessionID(sessionID string) (string, string, bool) {
	if sessionID == "" {
		return "", "", false
	}
	tokens := strings.Split(sessionID, "_")
	if len(tokens) < 4 {
		return "", "", false
	}

	start := tokens[len(tokens)-2]
	end := tokens[len(tokens)-1]
	if !validClockToken(start) || !validClockToken(end) {
		return "", "", false
	}

	for _, token := range tokens[:len(tokens)-2] {
		if datePattern.MatchString(token) {
			return start, end, true
		}
	}
	return "", "", false
}

func validClockToken(s string) bool {
	return s != "" && s != "undefined" && strings.Contains(s, ":")
}
