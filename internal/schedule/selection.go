package schedule

// SelectionState tracks progress through the date/time picker.
type SelectionState int

const (
	NoSelection SelectionState = iota
	DateSelected
	DateAndTimeSelected
)

// Selection is the date/time picking state machine. Choosing a new date
// clears the chosen time, except that re-selecting the originally booked
// date restores the original time context instead of forcing a reset.
type Selection struct {
	date     string
	slot     string
	original *Booking
}

// NewSelection creates a Selection; original is the stored booking when
// editing an existing order, nil for a new order.
func NewSelection(original *Booking) *Selection {
	return &Selection{original: original}
}

// SelectDate chooses a delivery date.
func (s *Selection) SelectDate(date string) {
	if date == s.date {
		return
	}
	s.date = date
	if s.original != nil && s.original.Date == date {
		s.slot = s.original.Slot
	} else {
		s.slot = ""
	}
}

// SelectTime chooses a slot label for the selected date. Ignored until a
// date is chosen.
func (s *Selection) SelectTime(slot string) {
	if s.date == "" {
		return
	}
	s.slot = slot
}

// Date returns the selected date, empty if none.
func (s *Selection) Date() string { return s.date }

// Slot returns the selected slot label, empty if none.
func (s *Selection) Slot() string { return s.slot }

// State reports the current picker state.
func (s *Selection) State() SelectionState {
	switch {
	case s.date == "":
		return NoSelection
	case s.slot == "":
		return DateSelected
	default:
		return DateAndTimeSelected
	}
}

// Confirmable reports whether both date and time are set.
func (s *Selection) Confirmable() bool {
	return s.State() == DateAndTimeSelected
}
