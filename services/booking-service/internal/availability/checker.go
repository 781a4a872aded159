package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/store"
)

// Checker answers free-time questions about staff members.
type Checker struct {
	store store.Queries
	now   func() time.Time
}

func NewChecker(q store.Queries, now func() time.Time) *Checker {
	if now == nil {
		now = time.Now
	}
	return &Checker{store: q, now: now}
}

// FindFreeSlots returns the free ranges of at least durationMinutes inside the
// staff member's working hours over the date range, ordered chronologically.
func (c *Checker) FindFreeSlots(ctx context.Context, staffID int64, r DateRange, durationMinutes int) ([]Interval, error) {
	windows, busy, err := c.scan(ctx, staffID, r, durationMinutes)
	if err != nil {
		return nil, err
	}
	return FreeRanges(windows, busy, time.Duration(durationMinutes)*time.Minute, c.now()), nil
}

// Slots lays out bookable start times every stepMinutes over the date range.
func (c *Checker) Slots(ctx context.Context, staffID int64, r DateRange, durationMinutes, stepMinutes int) ([]time.Time, error) {
	if stepMinutes <= 0 {
		return nil, model.Validation("step must be positive")
	}
	windows, busy, err := c.scan(ctx, staffID, r, durationMinutes)
	if err != nil {
		return nil, err
	}
	return AvailableSlots(windows, time.Duration(durationMinutes)*time.Minute, time.Duration(stepMinutes)*time.Minute, busy, c.now()), nil
}

func (c *Checker) scan(ctx context.Context, staffID int64, r DateRange, durationMinutes int) ([]Interval, []Interval, error) {
	if durationMinutes <= 0 {
		return nil, nil, model.Validation("duration must be positive")
	}
	if err := r.Validate(); err != nil {
		return nil, nil, err
	}
	staff, err := c.store.GetStaff(ctx, staffID)
	if err != nil {
		return nil, nil, lookupError(err, "staff %d", staffID)
	}
	biz, err := c.store.GetBusiness(ctx, staff.BusinessID)
	if err != nil {
		return nil, nil, lookupError(err, "business %d", staff.BusinessID)
	}
	from, to := r.Bounds(biz.Location())

	windows, err := StaffWindows(ctx, c.store, staffID, biz.Location(), from, to)
	if err != nil {
		return nil, nil, err
	}
	busy, err := busyIntervals(ctx, c.store, staffID, from, to, 0)
	if err != nil {
		return nil, nil, err
	}
	return windows, busy, nil
}

// IsSlotAvailable reports whether [start, start+duration) is free of active
// appointments for the staff member, ignoring excludeID. It runs against q so
// it can take part in the caller's transaction.
func IsSlotAvailable(ctx context.Context, q store.Queries, staffID int64, start time.Time, duration time.Duration, excludeID int64) (bool, error) {
	want := Interval{Start: start, End: start.Add(duration)}
	busy, err := busyIntervals(ctx, q, staffID, want.Start, want.End, excludeID)
	if err != nil {
		return false, err
	}
	return !overlapsAny(want, busy), nil
}

// WithinWorkingHours reports whether the interval lies inside one working window.
func WithinWorkingHours(ctx context.Context, q store.Queries, staffID int64, loc *time.Location, iv Interval) (bool, error) {
	windows, err := StaffWindows(ctx, q, staffID, loc, iv.Start.Add(-24*time.Hour), iv.End.Add(24*time.Hour))
	if err != nil {
		return false, err
	}
	for _, w := range windows {
		if w.Contains(iv) {
			return true, nil
		}
	}
	return false, nil
}

func StaffWindows(ctx context.Context, q store.Queries, staffID int64, loc *time.Location, from, to time.Time) ([]Interval, error) {
	hours, err := q.ListWorkingHours(ctx, staffID)
	if err != nil {
		return nil, fmt.Errorf("list working hours: %w", err)
	}
	return Windows(hours, loc, from, to), nil
}

func busyIntervals(ctx context.Context, q store.Queries, staffID int64, from, to time.Time, excludeID int64) ([]Interval, error) {
	appts, err := q.ListStaffAppointments(ctx, staffID, store.AppointmentFilter{From: from, To: to, ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("list staff appointments: %w", err)
	}
	busy := make([]Interval, 0, len(appts))
	for _, a := range appts {
		if a.ID == excludeID {
			continue
		}
		busy = append(busy, Interval{Start: a.StartTime, End: a.EndTime()})
	}
	return busy, nil
}

func lookupError(err error, format string, args ...any) error {
	if errors.Is(err, store.ErrNotFound) {
		return model.NotFound(format+" not found", args...)
	}
	return fmt.Errorf("load "+format+": %w", append(args, err)...)
}
