package schedule

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date wire format.
const DateLayout = "2006-01-02"

// minLeadTime is how far in the future a slot must start to stay bookable
// on the current day.
const minLeadTime = time.Hour

// WorkDay is one day of the rolling 7-day delivery calendar, server-time
// anchored. Start and End are "HH:MM".
type WorkDay struct {
	Date      string `json:"date"`
	IsWorking bool   `json:"is_working"`
	Start     string `json:"start"`
	End       string `json:"end"`
}

// Slot is a bookable delivery window. Outdated marks a previously booked
// window that is no longer offered to new orders but stays selectable while
// editing the order that holds it.
type Slot struct {
	Label    string `json:"label"`
	Start    string `json:"start"`
	Outdated bool   `json:"outdated,omitempty"`
}

// Booking is the date and slot originally saved on an order being edited.
type Booking struct {
	Date string `json:"date"`
	Slot string `json:"slot"`
}

// GenerateSlots partitions [day.Start, day.End) into consecutive windows of
// intervalMin minutes, labeled "HH:MM — HH:MM". A trailing window that would
// run past day.End is dropped. Slots are ordered from start to end.
//
// When now is non-nil and falls on day.Date, slots starting within the next
// hour (or earlier) are excluded; deliveries need a one-hour lead time. Days
// other than today are never filtered.
func GenerateSlots(day WorkDay, intervalMin int, now *time.Time) []Slot {
	if intervalMin <= 0 {
		return nil
	}
	start, err := parseClock(day.Start)
	if err != nil {
		return nil
	}
	end, err := parseClock(day.End)
	if err != nil {
		return nil
	}

	var cutoff int = -1
	if now != nil && now.Format(DateLayout) == day.Date {
		lead := now.Add(minLeadTime)
		if lead.Format(DateLayout) != day.Date {
			// lead window crosses midnight, nothing left today
			return nil
		}
		cutoff = lead.Hour()*60 + lead.Minute()
	}

	var slots []Slot
	for from := start; from+intervalMin <= end; from += intervalMin {
		if cutoff >= 0 && from <= cutoff {
			continue
		}
		slots = append(slots, Slot{
			Label: fmt.Sprintf("%s — %s", formatClock(from), formatClock(from+intervalMin)),
			Start: formatClock(from),
		})
	}
	return slots
}

// SlotsForDay generates the bookable slots for day and, when editing an
// order originally booked on that day, re-injects the original slot if the
// regenerated grid no longer offers it. The injected slot is flagged
// Outdated and placed in start-time order.
func SlotsForDay(day WorkDay, intervalMin int, now *time.Time, original *Booking) []Slot {
	slots := GenerateSlots(day, intervalMin, now)
	if original == nil || original.Date != day.Date || original.Slot == "" {
		return slots
	}
	for _, s := range slots {
		if s.Label == original.Slot {
			return slots
		}
	}

	injected := Slot{Label: original.Slot, Start: slotStart(original.Slot), Outdated: true}
	pos := len(slots)
	if from, err := parseClock(injected.Start); err == nil {
		for i, s := range slots {
			if existing, err := parseClock(s.Start); err == nil && from < existing {
				pos = i
				break
			}
		}
	}
	slots = append(slots, Slot{})
	copy(slots[pos+1:], slots[pos:])
	slots[pos] = injected
	return slots
}

// slotStart extracts the "HH:MM" start from a slot label.
func slotStart(label string) string {
	if len(label) >= 5 {
		return label[:5]
	}
	return label
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
