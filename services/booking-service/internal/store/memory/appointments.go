package memory

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/store"
)

func byStart(a, b model.Appointment) bool {
	if !a.StartTime.Equal(b.StartTime) {
		return a.StartTime.Before(b.StartTime)
	}
	return a.ID < b.ID
}

// overlapsActive mirrors the appointments_no_overlap exclusion constraint.
func (st *state) overlapsActive(a model.Appointment) bool {
	if a.StaffID == nil || !a.Status.Active() {
		return false
	}
	for _, other := range st.appointments {
		if other.ID == a.ID || !other.Status.Active() || !other.HasStaff(*a.StaffID) {
			continue
		}
		if a.StartTime.Before(other.EndTime()) && other.StartTime.Before(a.EndTime()) {
			return true
		}
	}
	return false
}

func (st *state) codeTaken(code string, exceptID int64) bool {
	for _, other := range st.appointments {
		if other.ID != exceptID && other.ConfirmationCode == code {
			return true
		}
	}
	return false
}

func (s *Store) InsertAppointment(_ context.Context, a *model.Appointment) error {
	st, unlock := s.lock()
	defer unlock()
	if st.codeTaken(a.ConfirmationCode, 0) {
		return store.ErrDuplicate
	}
	if st.overlapsActive(*a) {
		return store.ErrConflict
	}
	a.ID = st.nextID()
	a.CreatedAt = s.now()
	a.UpdatedAt = a.CreatedAt
	st.appointments[a.ID] = *a
	return nil
}

func (s *Store) UpdateAppointment(_ context.Context, a *model.Appointment) error {
	st, unlock := s.lock()
	defer unlock()
	existing, ok := st.appointments[a.ID]
	if !ok {
		return store.ErrNotFound
	}
	if st.overlapsActive(*a) {
		return store.ErrConflict
	}
	updated := existing
	updated.StartTime = a.StartTime
	updated.DurationMinutes = a.DurationMinutes
	updated.Status = a.Status
	updated.CancellationReason = a.CancellationReason
	updated.CancelledAt = a.CancelledAt
	updated.UpdatedAt = s.now()
	st.appointments[a.ID] = updated
	a.UpdatedAt = updated.UpdatedAt
	return nil
}

func (s *Store) GetAppointment(_ context.Context, id int64) (model.Appointment, error) {
	st, unlock := s.lock()
	defer unlock()
	a, ok := st.appointments[id]
	if !ok {
		return model.Appointment{}, store.ErrNotFound
	}
	return a, nil
}

func (s *Store) GetAppointmentForUpdate(ctx context.Context, id int64) (model.Appointment, error) {
	return s.GetAppointment(ctx, id)
}

func (s *Store) ConfirmationCodeExists(_ context.Context, code string) (bool, error) {
	st, unlock := s.lock()
	defer unlock()
	return st.codeTaken(code, 0), nil
}

func matchesFilter(a model.Appointment, f store.AppointmentFilter) bool {
	if f.ActiveOnly && !a.Status.Active() {
		return false
	}
	if !f.From.IsZero() && !a.EndTime().After(f.From) {
		return false
	}
	if !f.To.IsZero() && !a.StartTime.Before(f.To) {
		return false
	}
	return true
}

func (s *Store) ListStaffAppointments(_ context.Context, staffID int64, f store.AppointmentFilter) ([]model.Appointment, error) {
	st, unlock := s.lock()
	defer unlock()
	return sortedValues(st.appointments, func(a model.Appointment) bool {
		return a.HasStaff(staffID) && matchesFilter(a, f)
	}, byStart), nil
}

func (s *Store) ListClientAppointments(_ context.Context, clientID int64) ([]model.Appointment, error) {
	st, unlock := s.lock()
	defer unlock()
	return sortedValues(st.appointments, func(a model.Appointment) bool { return a.ClientID == clientID }, byStart), nil
}

func (s *Store) ListBusinessAppointments(_ context.Context, businessID int64, f store.AppointmentFilter) ([]model.Appointment, error) {
	st, unlock := s.lock()
	defer unlock()
	return sortedValues(st.appointments, func(a model.Appointment) bool {
		return a.BusinessID == businessID && matchesFilter(a, f)
	}, byStart), nil
}

func (s *Store) ListDueCompletions(_ context.Context, cutoff time.Time, limit int) ([]model.Appointment, error) {
	st, unlock := s.lock()
	defer unlock()
	due := sortedValues(st.appointments, func(a model.Appointment) bool {
		return a.Status == model.StatusConfirmed && !a.EndTime().After(cutoff)
	}, func(a, b model.Appointment) bool {
		if !a.EndTime().Equal(b.EndTime()) {
			return a.EndTime().Before(b.EndTime())
		}
		return a.ID < b.ID
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}
