package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, s *Store) (model.Business, model.Service, model.Staff) {
	t.Helper()
	ctx := context.Background()
	b := model.Business{OwnerID: 1, Name: "Cuts", Timezone: "UTC"}
	require.NoError(t, s.InsertBusiness(ctx, &b))
	svc := model.Service{BusinessID: b.ID, Name: "Trim", DurationMinutes: 30, Active: true}
	require.NoError(t, s.InsertService(ctx, &svc))
	st := model.Staff{BusinessID: b.ID, Name: "Ana", Active: true}
	require.NoError(t, s.InsertStaff(ctx, &st))
	return b, svc, st
}

func appt(b model.Business, svc model.Service, staffID int64, start time.Time, mins int, code string) model.Appointment {
	return model.Appointment{
		ClientID: 50, BusinessID: b.ID, ServiceID: svc.ID, StaffID: &staffID,
		StartTime: start, DurationMinutes: mins, Status: model.StatusPending, ConfirmationCode: code,
	}
}

func TestOverlapIsRejectedLikeExclusionConstraint(t *testing.T) {
	s := New()
	ctx := context.Background()
	b, svc, st := seed(t, s)
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	first := appt(b, svc, st.ID, start, 60, "AAAA2222")
	require.NoError(t, s.InsertAppointment(ctx, &first))

	overlapping := appt(b, svc, st.ID, start.Add(30*time.Minute), 60, "BBBB3333")
	assert.ErrorIs(t, s.InsertAppointment(ctx, &overlapping), store.ErrConflict)

	adjacent := appt(b, svc, st.ID, start.Add(-30*time.Minute), 30, "CCCC4444")
	assert.NoError(t, s.InsertAppointment(ctx, &adjacent), "touching intervals do not overlap")

	// Cancelled appointments release their slot.
	first.Status = model.StatusCancelled
	require.NoError(t, s.UpdateAppointment(ctx, &first))
	assert.NoError(t, s.InsertAppointment(ctx, &overlapping))

	later := appt(b, svc, st.ID, start.Add(90*time.Minute), 30, "DDDD5555")
	assert.NoError(t, s.InsertAppointment(ctx, &later), "touching intervals do not overlap")
}

func TestDuplicateConfirmationCode(t *testing.T) {
	s := New()
	ctx := context.Background()
	b, svc, st := seed(t, s)
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	a := appt(b, svc, st.ID, start, 30, "SAME2222")
	require.NoError(t, s.InsertAppointment(ctx, &a))
	exists, err := s.ConfirmationCodeExists(ctx, "SAME2222")
	require.NoError(t, err)
	assert.True(t, exists)

	dup := appt(b, svc, st.ID, start.Add(time.Hour), 30, "SAME2222")
	assert.ErrorIs(t, s.InsertAppointment(ctx, &dup), store.ErrDuplicate)
}

func TestWithTxRollsBackAllWrites(t *testing.T) {
	s := New()
	ctx := context.Background()
	b, svc, st := seed(t, s)
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(ctx context.Context, tx store.Queries) error {
		a := appt(b, svc, st.ID, start, 30, "ROLL2222")
		if err := tx.InsertAppointment(ctx, &a); err != nil {
			return err
		}
		if err := tx.EnqueueEvent(ctx, outbox.Event{EventType: "x"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.ListStaffAppointments(ctx, st.ID, store.AppointmentFilter{})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, s.Events())
}

func TestListFiltersAndOrdering(t *testing.T) {
	s := New()
	ctx := context.Background()
	b, svc, st := seed(t, s)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	late := appt(b, svc, st.ID, day.Add(15*time.Hour), 30, "LATE2222")
	early := appt(b, svc, st.ID, day.Add(9*time.Hour), 30, "EARL2222")
	nextDay := appt(b, svc, st.ID, day.Add(33*time.Hour), 30, "NEXT2222")
	for _, a := range []*model.Appointment{&late, &early, &nextDay} {
		require.NoError(t, s.InsertAppointment(ctx, a))
	}

	got, err := s.ListBusinessAppointments(ctx, b.ID, store.AppointmentFilter{From: day, To: day.Add(24 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, early.ID, got[0].ID)
	assert.Equal(t, late.ID, got[1].ID)

	all, err := s.ListClientAppointments(ctx, 50)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestUpdateBusinessKeepsOwner(t *testing.T) {
	s := New()
	ctx := context.Background()
	b, _, _ := seed(t, s)

	b.OwnerID = 999
	b.Name = "Renamed"
	require.NoError(t, s.UpdateBusiness(ctx, &b))

	got, err := s.GetBusiness(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.OwnerID)
	assert.Equal(t, "Renamed", got.Name)
}
