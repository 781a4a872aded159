package availability

import (
	"time"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
)

// Windows expands weekly working hours into concrete intervals for every local
// day touched by [from, to), clipped to that range. Days without an entry fall
// back to the default Monday to Friday schedule.
func Windows(hours []model.WorkingHours, loc *time.Location, from, to time.Time) []Interval {
	if !to.After(from) {
		return nil
	}
	byDay := map[time.Weekday]model.WorkingHours{}
	for _, h := range model.DefaultWorkingHours(0) {
		byDay[h.Weekday] = h
	}
	for _, h := range hours {
		byDay[h.Weekday] = h
	}

	span := Interval{Start: from, End: to}
	lf := from.In(loc)
	var out []Interval
	for day := time.Date(lf.Year(), lf.Month(), lf.Day(), 0, 0, 0, 0, loc); day.Before(to); day = time.Date(day.Year(), day.Month(), day.Day()+1, 0, 0, 0, 0, loc) {
		h := byDay[day.Weekday()]
		if !h.IsWorking {
			continue
		}
		w := Interval{
			Start: time.Date(day.Year(), day.Month(), day.Day(), 0, h.StartMinute, 0, 0, loc),
			End:   time.Date(day.Year(), day.Month(), day.Day(), 0, h.EndMinute, 0, 0, loc),
		}
		if !w.Overlaps(span) {
			continue
		}
		if w.Start.Before(from) {
			w.Start = from
		}
		if w.End.After(to) {
			w.End = to
		}
		out = append(out, w)
	}
	return out
}

// DateRange is an inclusive range of calendar dates, interpreted in the
// business timezone.
type DateRange struct {
	From time.Time
	To   time.Time
}

// MaxRangeDays caps how many days a single availability lookup may cover.
const MaxRangeDays = 31

func ParseDateRange(from, to string) (DateRange, error) {
	f, err := time.Parse(time.DateOnly, from)
	if err != nil {
		return DateRange{}, model.Validation("from must be a date (YYYY-MM-DD)")
	}
	if to == "" {
		return DateRange{From: f, To: f}, nil
	}
	t, err := time.Parse(time.DateOnly, to)
	if err != nil {
		return DateRange{}, model.Validation("to must be a date (YYYY-MM-DD)")
	}
	return DateRange{From: f, To: t}, nil
}

// Bounds returns [first local midnight, midnight after the last day) in loc.
func (r DateRange) Bounds(loc *time.Location) (time.Time, time.Time) {
	start := time.Date(r.From.Year(), r.From.Month(), r.From.Day(), 0, 0, 0, 0, loc)
	end := time.Date(r.To.Year(), r.To.Month(), r.To.Day()+1, 0, 0, 0, 0, loc)
	return start, end
}

func (r DateRange) Validate() error {
	if r.From.IsZero() || r.To.IsZero() {
		return model.Validation("date range is required")
	}
	from := time.Date(r.From.Year(), r.From.Month(), r.From.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(r.To.Year(), r.To.Month(), r.To.Day(), 0, 0, 0, 0, time.UTC)
	if to.Before(from) {
		return model.Validation("date range end is before its start")
	}
	if to.Sub(from) >= MaxRangeDays*24*time.Hour {
		return model.Validation("date range may cover at most %d days", MaxRangeDays)
	}
	return nil
}
