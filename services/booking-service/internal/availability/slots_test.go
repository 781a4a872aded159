package availability

import (
	"testing"
	"time"
)

func TestAvailableSlots_Basic(t *testing.T) {
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	window := Interval{Start: day.Add(9 * time.Hour), End: day.Add(10 * time.Hour)}

	busy := []Interval{
		{Start: day.Add(9*time.Hour + 15*time.Minute), End: day.Add(9*time.Hour + 45*time.Minute)},
	}

	slots := AvailableSlots([]Interval{window}, 15*time.Minute, 15*time.Minute, busy, day)
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if !slots[0].Equal(day.Add(9 * time.Hour)) {
		t.Fatalf("expected first slot 09:00, got %s", slots[0].Format(time.RFC3339))
	}
	if !slots[1].Equal(day.Add(9*time.Hour + 45*time.Minute)) {
		t.Fatalf("expected second slot 09:45, got %s", slots[1].Format(time.RFC3339))
	}
}

func TestAvailableSlots_SkipsPast(t *testing.T) {
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	window := Interval{Start: day.Add(9 * time.Hour), End: day.Add(10 * time.Hour)}

	now := day.Add(9*time.Hour + 31*time.Minute)
	slots := AvailableSlots([]Interval{window}, 15*time.Minute, 15*time.Minute, nil, now)
	// 09:00, 09:15, 09:30 start before now.
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(slots))
	}
	if !slots[0].Equal(day.Add(9*time.Hour + 45*time.Minute)) {
		t.Fatalf("expected slot 09:45, got %s", slots[0].Format(time.RFC3339))
	}
}

func TestAvailableSlots_MultipleWindows(t *testing.T) {
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	windows := []Interval{
		{Start: day.Add(9 * time.Hour), End: day.Add(9*time.Hour + 30*time.Minute)},
		{Start: day.Add(33 * time.Hour), End: day.Add(34 * time.Hour)},
	}
	slots := AvailableSlots(windows, 30*time.Minute, 30*time.Minute, nil, day)
	if len(slots) != 3 {
		t.Fatalf("expected 3 slots across both windows, got %d", len(slots))
	}
}
