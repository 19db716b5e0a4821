package schedule

import "sort"

// CalendarDay is a WorkDay as offered to the operator. Selectable days can be
// chosen for delivery; a closed day becomes selectable anyway when it is the
// date an existing order was originally booked for, so that old orders stay
// editable. Injected marks a synthetic entry for an original booking date
// that fell out of the rolling window entirely.
type CalendarDay struct {
	WorkDay
	Selectable bool `json:"selectable"`
	Injected   bool `json:"injected,omitempty"`
}

// BuildCalendar converts the rolling 7-day work calendar into the day list
// shown to the operator. With original set (edit mode), the originally booked
// date is always present and selectable: a non-working day keeps IsWorking
// false but turns selectable, and a date missing from the window is injected
// as a synthetic closed entry in date order. New orders (original nil) only
// ever see the working days as selectable.
func BuildCalendar(days []WorkDay, original *Booking) []CalendarDay {
	out := make([]CalendarDay, 0, len(days)+1)
	found := false
	for _, d := range days {
		cd := CalendarDay{WorkDay: d, Selectable: d.IsWorking}
		if original != nil && original.Date == d.Date {
			found = true
			cd.Selectable = true
		}
		out = append(out, cd)
	}

	if original != nil && original.Date != "" && !found {
		out = append(out, CalendarDay{
			WorkDay:    WorkDay{Date: original.Date, IsWorking: false},
			Selectable: true,
			Injected:   true,
		})
		sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	}
	return out
}
