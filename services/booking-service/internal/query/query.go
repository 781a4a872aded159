// Package query answers the read-only questions of clients, staff and owners.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/store"
)

type Service struct {
	store store.Queries
	now   func() time.Time
}

func New(q store.Queries, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: q, now: now}
}

func (s *Service) Appointment(ctx context.Context, id int64) (model.Appointment, error) {
	a, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return model.Appointment{}, lookupError(err, "appointment %d", id)
	}
	return a, nil
}

func (s *Service) ClientAppointments(ctx context.Context, clientID int64) ([]model.Appointment, error) {
	list, err := s.store.ListClientAppointments(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list client appointments: %w", err)
	}
	return list, nil
}

// BusinessAppointments lists a business's appointments, optionally limited to
// a range of business-local dates.
func (s *Service) BusinessAppointments(ctx context.Context, businessID int64, r *availability.DateRange) ([]model.Appointment, error) {
	biz, err := s.business(ctx, businessID)
	if err != nil {
		return nil, err
	}
	var f store.AppointmentFilter
	if r != nil {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		f.From, f.To = r.Bounds(biz.Location())
	}
	list, err := s.store.ListBusinessAppointments(ctx, businessID, f)
	if err != nil {
		return nil, fmt.Errorf("list business appointments: %w", err)
	}
	return list, nil
}

type Schedule struct {
	StaffID      int64                   `json:"staff_id"`
	Date         string                  `json:"date"`
	Windows      []availability.Interval `json:"working_windows"`
	Appointments []model.Appointment     `json:"appointments"`
}

// StaffSchedule returns the working windows and non-cancelled appointments of
// one business-local day.
func (s *Service) StaffSchedule(ctx context.Context, staffID int64, date time.Time) (Schedule, error) {
	staff, err := s.store.GetStaff(ctx, staffID)
	if err != nil {
		return Schedule{}, lookupError(err, "staff %d", staffID)
	}
	biz, err := s.business(ctx, staff.BusinessID)
	if err != nil {
		return Schedule{}, err
	}
	day := availability.DateRange{From: date, To: date}
	from, to := day.Bounds(biz.Location())
	windows, err := availability.StaffWindows(ctx, s.store, staffID, biz.Location(), from, to)
	if err != nil {
		return Schedule{}, err
	}
	appts, err := s.store.ListStaffAppointments(ctx, staffID, store.AppointmentFilter{From: from, To: to})
	if err != nil {
		return Schedule{}, fmt.Errorf("list staff appointments: %w", err)
	}
	out := Schedule{
		StaffID:      staffID,
		Date:         date.Format(time.DateOnly),
		Windows:      windows,
		Appointments: []model.Appointment{},
	}
	for _, a := range appts {
		if a.Status != model.StatusCancelled {
			out.Appointments = append(out.Appointments, a)
		}
	}
	return out, nil
}

type Stats struct {
	Total    int                  `json:"total"`
	ByStatus map[model.Status]int `json:"by_status"`
	Upcoming int                  `json:"upcoming"`
}

// BusinessStats counts appointments per status; Upcoming counts active ones
// that have not started yet.
func (s *Service) BusinessStats(ctx context.Context, businessID int64) (Stats, error) {
	if _, err := s.business(ctx, businessID); err != nil {
		return Stats{}, err
	}
	list, err := s.store.ListBusinessAppointments(ctx, businessID, store.AppointmentFilter{})
	if err != nil {
		return Stats{}, fmt.Errorf("list business appointments: %w", err)
	}
	now := s.now()
	out := Stats{ByStatus: map[model.Status]int{}}
	for _, a := range list {
		out.Total++
		out.ByStatus[a.Status]++
		if a.Status.Active() && a.StartTime.After(now) {
			out.Upcoming++
		}
	}
	return out, nil
}

func (s *Service) business(ctx context.Context, id int64) (model.Business, error) {
	biz, err := s.store.GetBusiness(ctx, id)
	if err != nil {
		return model.Business{}, lookupError(err, "business %d", id)
	}
	return biz, nil
}

func lookupError(err error, format string, args ...any) error {
	if errors.Is(err, store.ErrNotFound) {
		return model.NotFound(format+" not found", args...)
	}
	return fmt.Errorf("load "+format+": %w", append(args, err)...)
}
