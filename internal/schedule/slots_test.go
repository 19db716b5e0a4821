package schedule

import (
	"testing"
	"time"
)

func labels(slots []Slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Label
	}
	return out
}

func equalLabels(got []Slot, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i].Label != want[i] {
			return false
		}
	}
	return true
}

func TestGenerateSlots(t *testing.T) {
	day := WorkDay{Date: "2024-01-10", IsWorking: true, Start: "09:00", End: "13:00"}

	tests := []struct {
		name     string
		interval int
		want     []string
	}{
		{
			name:     "hour grid",
			interval: 60,
			want:     []string{"09:00 — 10:00", "10:00 — 11:00", "11:00 — 12:00", "12:00 — 13:00"},
		},
		{
			name:     "45 minute grid drops trailing partial",
			interval: 45,
			want:     []string{"09:00 — 09:45", "09:45 — 10:30", "10:30 — 11:15", "11:15 — 12:00", "12:00 — 12:45"},
		},
		{
			name:     "interval longer than the day",
			interval: 300,
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateSlots(day, tt.interval, nil)
			if !equalLabels(got, tt.want) {
				t.Errorf("got %v, want %v", labels(got), tt.want)
			}
		})
	}
}

func TestGenerateSlotsLeadTimeToday(t *testing.T) {
	day := WorkDay{Date: "2024-01-10", IsWorking: true, Start: "09:00", End: "13:00"}
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	// slots starting at or before now+1h are gone; 10:00 is exactly one hour
	// ahead and therefore excluded too
	got := GenerateSlots(day, 60, &now)
	want := []string{"11:00 — 12:00", "12:00 — 13:00"}
	if !equalLabels(got, want) {
		t.Errorf("got %v, want %v", labels(got), want)
	}

	// a later clock keeps only the last window
	later := time.Date(2024, 1, 10, 10, 30, 0, 0, time.UTC)
	got = GenerateSlots(day, 60, &later)
	want = []string{"12:00 — 13:00"}
	if !equalLabels(got, want) {
		t.Errorf("got %v, want %v", labels(got), want)
	}
}

func TestGenerateSlotsLeadTimeAcrossMidnight(t *testing.T) {
	day := WorkDay{Date: "2024-01-10", IsWorking: true, Start: "18:00", End: "23:00"}

	// the lead window rolls into tomorrow; no slot today may be offered,
	// least of all ones hours in the past
	now := time.Date(2024, 1, 10, 23, 30, 0, 0, time.UTC)
	if got := GenerateSlots(day, 60, &now); got != nil {
		t.Errorf("late evening must exhaust today, got %v", labels(got))
	}

	edge := time.Date(2024, 1, 10, 23, 0, 0, 0, time.UTC)
	if got := GenerateSlots(day, 60, &edge); got != nil {
		t.Errorf("lead exactly at midnight must exhaust today, got %v", labels(got))
	}
}

func TestGenerateSlotsLeadTimeOtherDays(t *testing.T) {
	day := WorkDay{Date: "2024-01-11", IsWorking: true, Start: "09:00", End: "13:00"}
	now := time.Date(2024, 1, 10, 23, 50, 0, 0, time.UTC)

	got := GenerateSlots(day, 60, &now)
	if len(got) != 4 {
		t.Errorf("tomorrow must not be lead-time filtered, got %v", labels(got))
	}
}

func TestGenerateSlotsInvalidInput(t *testing.T) {
	if got := GenerateSlots(WorkDay{Start: "junk", End: "13:00"}, 60, nil); got != nil {
		t.Errorf("invalid start clock: got %v", labels(got))
	}
	if got := GenerateSlots(WorkDay{Start: "09:00", End: "13:00"}, 0, nil); got != nil {
		t.Errorf("zero interval: got %v", labels(got))
	}
}

func TestSlotsForDayInjectsOriginalBooking(t *testing.T) {
	day := WorkDay{Date: "2024-01-10", IsWorking: true, Start: "09:00", End: "13:00"}
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	original := &Booking{Date: "2024-01-10", Slot: "09:00 — 10:00"}

	got := SlotsForDay(day, 60, &now, original)
	want := []string{"09:00 — 10:00", "11:00 — 12:00", "12:00 — 13:00"}
	if !equalLabels(got, want) {
		t.Fatalf("got %v, want %v", labels(got), want)
	}
	if !got[0].Outdated {
		t.Error("injected original slot must be flagged outdated")
	}
	if got[1].Outdated || got[2].Outdated {
		t.Error("live slots must not be flagged outdated")
	}
}

func TestSlotsForDayLeavesLiveOriginalAlone(t *testing.T) {
	day := WorkDay{Date: "2024-01-10", IsWorking: true, Start: "09:00", End: "13:00"}
	original := &Booking{Date: "2024-01-10", Slot: "10:00 — 11:00"}

	got := SlotsForDay(day, 60, nil, original)
	if len(got) != 4 {
		t.Fatalf("still-offered original slot must not be duplicated, got %v", labels(got))
	}
	for _, s := range got {
		if s.Outdated {
			t.Errorf("slot %s wrongly flagged outdated", s.Label)
		}
	}
}

func TestSlotsForDayIgnoresOtherDaysBooking(t *testing.T) {
	day := WorkDay{Date: "2024-01-10", IsWorking: true, Start: "09:00", End: "13:00"}
	original := &Booking{Date: "2024-01-12", Slot: "08:00 — 09:00"}

	got := SlotsForDay(day, 60, nil, original)
	if len(got) != 4 {
		t.Errorf("booking on another day must not leak in, got %v", labels(got))
	}
}

func TestSlotsForDayInjectsIntoRegeneratedGrid(t *testing.T) {
	// grid moved from hourly to 90 minutes; the old 10:00 slot no longer fits
	day := WorkDay{Date: "2024-01-10", IsWorking: true, Start: "09:00", End: "13:00"}
	original := &Booking{Date: "2024-01-10", Slot: "10:00 — 11:00"}

	got := SlotsForDay(day, 90, nil, original)
	want := []string{"09:00 — 10:30", "10:00 — 11:00", "10:30 — 12:00"}
	if !equalLabels(got, want) {
		t.Fatalf("got %v, want %v", labels(got), want)
	}
	if !got[1].Outdated {
		t.Error("re-injected slot must be flagged outdated")
	}
}
