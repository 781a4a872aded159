package policy

import (
	"context"
	"sort"
	"time"
)

// Provider supplies how long before an appointment reminders go out.
type Provider interface {
	ReminderOffsets(ctx context.Context, businessID int64) ([]time.Duration, error)
}

type staticProvider struct {
	offsets []time.Duration
}

func NewStaticProvider(offsets []time.Duration) Provider {
	return &staticProvider{offsets: offsets}
}

// NewStaticProviderMinutes builds a provider from minute offsets, ignoring non-positive ones.
func NewStaticProviderMinutes(minutes []int) Provider {
	var offsets []time.Duration
	for _, m := range minutes {
		if m > 0 {
			offsets = append(offsets, time.Duration(m)*time.Minute)
		}
	}
	return NewStaticProvider(offsets)
}

func (p *staticProvider) ReminderOffsets(_ context.Context, _ int64) ([]time.Duration, error) {
	return p.offsets, nil
}

// ReminderTimes returns the instants reminders should fire for an appointment
// starting at start, skipping those already in the past, earliest first.
func ReminderTimes(offsets []time.Duration, start, now time.Time) []time.Time {
	var out []time.Time
	seen := map[time.Duration]bool{}
	for _, off := range offsets {
		if off <= 0 || seen[off] {
			continue
		}
		seen[off] = true
		at := start.Add(-off)
		if at.After(now) {
			out = append(out, at)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
