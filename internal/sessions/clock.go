package sessions

import (
	"fmt"
	"strconv"
	"strings"
)

// ClockNA is returned by FormatClock for any input it cannot interpret.
const ClockNA = "N/A"

// FormatClock renders a stored time-of-day string as "h:mm AM/PM". It accepts
// three shapes: "HH:MM", "HHMM" and "HMM". Every failure path returns ClockNA;
// the function never panics on any input.
func FormatClock(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" || s == "undefined" || s == ClockNA {
		return ClockNA
	}

	var hourPart, minutePart string
	switch {
	case strings.Contains(s, ":"):
		parts := strings.SplitN(s, ":", 2)
		hourPart, minutePart = parts[0], parts[1]
	case len(s) == 4:
		hourPart, minutePart = s[:2], s[2:]
	case len(s) == 3:
		hourPart, minutePart = s[:1], s[1:]
	default:
		return ClockNA
	}

	hour, err := strconv.Atoi(hourPart)
	if err != nil {
		return ClockNA
	}
	minute, err := strconv.Atoi(minutePart)
	if err != nil {
		return ClockNA
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return ClockNA
	}

	meridiem := "AM"
	if hour >= 12 {
		meridiem = "PM"
	}
	h := hour % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d %s", h, minute, meridiem)
}
