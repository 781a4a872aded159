package availability

import "time"

// AvailableSlots returns slot start times inside the windows where a booking of
// length duration would not overlap any busy interval. Candidates are laid out
// every step from each window start; starts before now are skipped.
func AvailableSlots(windows []Interval, duration, step time.Duration, busy []Interval, now time.Time) []time.Time {
	if duration <= 0 || step <= 0 {
		return nil
	}

	var slots []time.Time
	for _, w := range windows {
		for t := w.Start; !t.Add(duration).After(w.End); t = t.Add(step) {
			if t.Before(now) {
				continue
			}
			if !overlapsAny(Interval{Start: t, End: t.Add(duration)}, busy) {
				slots = append(slots, t)
			}
		}
	}
	return slots
}
