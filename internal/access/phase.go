// Package access decides, from a reservation's stay window and the current
// time, whether guest unlock actions are allowed.
package access

import (
	"fmt"
	"strings"
	"time"
)

// Phase is the position of "now" relative to a stay window.
type Phase string

// Access phases, in the order a stay moves through them.
const (
	PhaseBefore Phase = "before"
	PhaseActive Phase = "active"
	PhaseAfter  Phase = "after"
)

// isoLayouts are tried in order. Timestamps without an offset are read as UTC.
var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseISO parses an ISO-8601 timestamp. ok is false for empty or malformed input.
func ParseISO(s string) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range isoLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// Evaluate returns the access phase for now against the check-in and check-out
// timestamps. Both boundaries belong to the active phase. If either timestamp
// cannot be parsed the result is PhaseBefore, which keeps unlock disabled.
func Evaluate(now time.Time, checkInISO, checkOutISO string) Phase {
	checkIn, ok := ParseISO(checkInISO)
	if !ok {
		return PhaseBefore
	}
	checkOut, ok := ParseISO(checkOutISO)
	if !ok {
		return PhaseBefore
	}

	switch {
	case now.Before(checkIn):
		return PhaseBefore
	case now.After(checkOut):
		return PhaseAfter
	default:
		return PhaseActive
	}
}

// Summary is the guest-facing countdown for a stay.
type Summary struct {
	Phase           Phase      `json:"phase"`
	CountdownTarget *time.Time `json:"countdownTarget"`
	CountdownLabel  string     `json:"countdownLabel"`
	Remaining       string     `json:"remaining,omitempty"`
}

// Summarize builds the countdown shown next to the phase: time until check-in
// before the stay, time until check-out during it, nothing afterwards.
func Summarize(now time.Time, checkInISO, checkOutISO string) Summary {
	phase := Evaluate(now, checkInISO, checkOutISO)
	s := Summary{Phase: phase}

	switch phase {
	case PhaseBefore:
		s.CountdownLabel = "Access starts in"
	case PhaseActive:
		s.CountdownLabel = "Access ends in"
	default:
		s.CountdownLabel = "Reservation ended"
	}

	checkIn, inOK := ParseISO(checkInISO)
	checkOut, outOK := ParseISO(checkOutISO)
	if !inOK || !outOK {
		return s
	}

	var target time.Time
	switch phase {
	case PhaseBefore:
		target = checkIn
	case PhaseActive:
		target = checkOut
	default:
		return s
	}

	s.CountdownTarget = &target
	s.Remaining = FormatDuration(target.Sub(now))
	return s
}

// FormatDuration renders d as "1d 2h 3m 4s". The day part is omitted when zero
// and negative durations render as zero.
func FormatDuration(d time.Duration) string {
	total := int64(d / time.Second)
	if total < 0 {
		total = 0
	}
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}
