package availability

import (
	"sort"
	"time"
)

// Interval is the half-open range [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

func (iv Interval) Empty() bool {
	return !iv.End.After(iv.Start)
}

// Overlaps: [a,b) and [c,d) overlap iff a < d && c < b.
func (iv Interval) Overlaps(o Interval) bool {
	return iv.Start.Before(o.End) && o.Start.Before(iv.End)
}

// Contains reports whether o lies entirely inside iv.
func (iv Interval) Contains(o Interval) bool {
	return !o.Start.Before(iv.Start) && !o.End.After(iv.End)
}

func overlapsAny(iv Interval, busy []Interval) bool {
	for _, b := range busy {
		if iv.Overlaps(b) {
			return true
		}
	}
	return false
}

// Subtract removes every busy interval from window and returns what is left,
// in chronological order.
func Subtract(window Interval, busy []Interval) []Interval {
	if window.Empty() {
		return nil
	}
	sorted := append([]Interval(nil), busy...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	var free []Interval
	cursor := window.Start
	for _, b := range sorted {
		if !b.End.After(cursor) || !b.Start.Before(window.End) {
			continue
		}
		if b.Start.After(cursor) {
			free = append(free, Interval{Start: cursor, End: b.Start})
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
		if !cursor.Before(window.End) {
			return free
		}
	}
	if cursor.Before(window.End) {
		free = append(free, Interval{Start: cursor, End: window.End})
	}
	return free
}

// FreeRanges subtracts busy from each window, drops anything before now and
// keeps only ranges at least min long.
func FreeRanges(windows, busy []Interval, min time.Duration, now time.Time) []Interval {
	var out []Interval
	for _, w := range windows {
		if w.Start.Before(now) {
			w.Start = now
		}
		for _, r := range Subtract(w, busy) {
			if r.Duration() >= min {
				out = append(out, r)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}
