package booking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/confirmation"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/policy"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/store"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/store/memory"
)

// Sunday noon; tomorrow is a working Monday.
var (
	now      = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tomorrow = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
)

func at(h, m int) time.Time {
	return tomorrow.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

type fixture struct {
	store  *memory.Store
	svc    *Service
	clock  *time.Time
	biz    model.Business
	offer  model.Service
	staff  model.Staff
	client model.Actor
	owner  model.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	clock := now
	s := memory.New().WithClock(func() time.Time { return clock })

	biz := model.Business{OwnerID: 1, Name: "Oak Street Spa", Timezone: "UTC"}
	require.NoError(t, s.InsertBusiness(ctx, &biz))
	offer := model.Service{BusinessID: biz.ID, Name: "Massage", DurationMinutes: 60, PriceCents: 5000, Active: true}
	require.NoError(t, s.InsertService(ctx, &offer))
	staff := model.Staff{BusinessID: biz.ID, Name: "Lee", Active: true}
	require.NoError(t, s.InsertStaff(ctx, &staff))

	f := &fixture{
		store:  s,
		clock:  &clock,
		biz:    biz,
		offer:  offer,
		staff:  staff,
		client: model.Actor{UserID: 10, Role: model.RoleClient},
		owner:  model.Actor{UserID: 1, BusinessID: biz.ID, Role: model.RoleOwner},
	}
	f.svc = NewService(s, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{
		Policy:              policy.NewStaticProviderMinutes([]int{1440, 60}),
		Now:                 func() time.Time { return *f.clock },
		EnforceWorkingHours: true,
	})
	return f
}

func (f *fixture) request(start time.Time, mins int) CreateRequest {
	staffID := f.staff.ID
	return CreateRequest{
		BusinessID:      f.biz.ID,
		ServiceID:       f.offer.ID,
		StaffID:         &staffID,
		StartTime:       start,
		DurationMinutes: mins,
	}
}

func (f *fixture) book(t *testing.T, start time.Time, mins int) model.Appointment {
	t.Helper()
	res, err := f.svc.Create(context.Background(), f.client, f.request(start, mins))
	require.NoError(t, err)
	return res.Appointment
}

func eventTypes(events []outbox.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.EventType)
	}
	return out
}

func TestCreateThenOverlapConflicts(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, at(9, 0), 60)

	assert.Equal(t, model.StatusPending, appt.Status)
	assert.Equal(t, int64(10), appt.ClientID)
	assert.True(t, confirmation.Valid(appt.ConfirmationCode))

	_, err := f.svc.Create(context.Background(), f.client, f.request(at(9, 30), 30))
	assert.Equal(t, model.KindSlotConflict, model.KindOf(err))

	// back to back is fine
	f.book(t, at(10, 0), 30)
}

func TestCreateEmitsNotificationAndEvents(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, at(9, 0), 60)

	// the 24h reminder would fire in the past, only the 1h one is requested
	assert.Equal(t, []string{
		"notification.requested.v1",
		"booking.appointment.created.v1",
		EventReminderRequested,
	}, eventTypes(f.store.Events()))

	notes, err := f.store.ListUserNotifications(context.Background(), appt.ClientID, false)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, model.NotifyBookingConfirmation, notes[0].Type)
	assert.Contains(t, notes[0].Message, appt.ConfirmationCode)
	require.NotNil(t, notes[0].AppointmentID)
	assert.Equal(t, appt.ID, *notes[0].AppointmentID)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.client, f.request(at(9, 0), 0))
	assert.Equal(t, model.KindValidation, model.KindOf(err))

	_, err = f.svc.Create(ctx, f.client, f.request(now.Add(-time.Hour), 30))
	assert.Equal(t, model.KindValidation, model.KindOf(err))

	req := f.request(at(9, 0), 30)
	req.ServiceID = 999
	_, err = f.svc.Create(ctx, f.client, req)
	assert.Equal(t, model.KindNotFound, model.KindOf(err))

	req = f.request(at(9, 0), 30)
	missing := int64(999)
	req.StaffID = &missing
	_, err = f.svc.Create(ctx, f.client, req)
	assert.Equal(t, model.KindNotFound, model.KindOf(err))

	_, err = f.svc.Create(ctx, model.Actor{UserID: 2, BusinessID: 77, Role: model.RoleOwner}, f.request(at(9, 0), 30))
	assert.Equal(t, model.KindForbidden, model.KindOf(err))

	assert.Empty(t, f.store.Events())
}

func TestCreateOutsideWorkingHours(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), f.client, f.request(at(16, 30), 60))
	assert.Equal(t, model.KindSlotConflict, model.KindOf(err))

	// Saturday is off by default
	_, err = f.svc.Create(context.Background(), f.client, f.request(at(5*24+10, 0), 60))
	assert.Equal(t, model.KindSlotConflict, model.KindOf(err))
}

func TestCreateWithoutStaffSkipsSlotCheck(t *testing.T) {
	f := newFixture(t)
	req := f.request(at(20, 0), 60)
	req.StaffID = nil
	res, err := f.svc.Create(context.Background(), f.client, req)
	require.NoError(t, err)
	assert.Nil(t, res.Appointment.StaffID)
}

func TestCreatedSlotNoLongerFree(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, at(13, 0), 45)

	checker := availability.NewChecker(f.store, func() time.Time { return now })
	free, err := checker.FindFreeSlots(context.Background(), f.staff.ID, availability.DateRange{From: tomorrow, To: tomorrow}, 15)
	require.NoError(t, err)
	booked := availability.Interval{Start: appt.StartTime, End: appt.EndTime()}
	for _, r := range free {
		assert.False(t, r.Overlaps(booked), "free range %v overlaps booking", r)
	}
	require.Len(t, free, 2)
	assert.Equal(t, at(13, 45), free[1].Start)
}

func TestConcurrentCreateExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	const callers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		conflict int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(client int64) {
			defer wg.Done()
			_, err := f.svc.Create(context.Background(), model.Actor{UserID: client, Role: model.RoleClient}, f.request(at(11, 0), 60))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case model.KindOf(err) == model.KindSlotConflict:
				conflict++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(int64(100 + i))
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, conflict)

	active, err := f.store.ListStaffAppointments(context.Background(), f.staff.ID, store.AppointmentFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

func TestCreateCodeSpaceExhausted(t *testing.T) {
	f := newFixture(t)
	f.svc.cfg.Codes = confirmation.NewGeneratorFrom(zeroReader{})
	f.book(t, at(9, 0), 30)

	_, err := f.svc.Create(context.Background(), f.client, f.request(at(10, 0), 30))
	assert.Equal(t, model.KindGeneration, model.KindOf(err))
}

func TestRescheduleFreesOriginalSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, at(10, 0), 60)

	res, err := f.svc.Reschedule(ctx, appt.ID, f.client, RescheduleRequest{StartTime: at(14, 0), DurationMinutes: 60})
	require.NoError(t, err)
	assert.Equal(t, at(14, 0), res.Appointment.StartTime)
	assert.Equal(t, appt.ConfirmationCode, res.Appointment.ConfirmationCode)
	assert.Equal(t, model.StatusPending, res.Appointment.Status)
	assert.True(t, res.LateChange)

	// the old slot is bookable again
	f.book(t, at(10, 0), 60)

	_, err = f.svc.Reschedule(ctx, appt.ID, f.client, RescheduleRequest{StartTime: at(10, 30)})
	assert.Equal(t, model.KindSlotConflict, model.KindOf(err))
}

func TestRescheduleOverlappingItself(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, at(10, 0), 60)
	res, err := f.svc.Reschedule(context.Background(), appt.ID, f.client, RescheduleRequest{StartTime: at(10, 30)})
	require.NoError(t, err)
	assert.Equal(t, 60, res.Appointment.DurationMinutes)
}

func TestRescheduleRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, at(10, 0), 60)

	_, err := f.svc.Reschedule(ctx, appt.ID, model.Actor{UserID: 11, Role: model.RoleClient}, RescheduleRequest{StartTime: at(12, 0)})
	assert.Equal(t, model.KindForbidden, model.KindOf(err))

	_, err = f.svc.Reschedule(ctx, appt.ID, f.client, RescheduleRequest{StartTime: now.Add(-time.Minute)})
	assert.Equal(t, model.KindValidation, model.KindOf(err))

	_, err = f.svc.Transition(ctx, appt.ID, model.StatusCancelled, f.client, "sick")
	require.NoError(t, err)
	_, err = f.svc.Reschedule(ctx, appt.ID, f.client, RescheduleRequest{StartTime: at(12, 0)})
	assert.Equal(t, model.KindInvalidTransition, model.KindOf(err))
}

func TestRescheduleFarAheadIsNotLate(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, at(3*24+10, 0), 60)
	res, err := f.svc.Reschedule(context.Background(), appt.ID, f.owner, RescheduleRequest{StartTime: at(3*24+14, 0)})
	require.NoError(t, err)
	assert.False(t, res.LateChange)
}

func TestCancelIsIdempotentForSameReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, at(10, 0), 60)

	first, err := f.svc.Transition(ctx, appt.ID, model.StatusCancelled, f.client, "car broke down")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, first.Appointment.Status)
	assert.True(t, first.LateChange)
	require.NotNil(t, first.Appointment.CancelledAt)
	events := len(f.store.Events())

	second, err := f.svc.Transition(ctx, appt.ID, model.StatusCancelled, f.client, "car broke down")
	require.NoError(t, err)
	assert.Equal(t, first.Appointment.Status, second.Appointment.Status)
	assert.Equal(t, first.Appointment.CancelledAt, second.Appointment.CancelledAt)
	assert.Len(t, f.store.Events(), events)

	_, err = f.svc.Transition(ctx, appt.ID, model.StatusCancelled, f.client, "changed my mind")
	assert.Equal(t, model.KindInvalidTransition, model.KindOf(err))

	_, err = f.svc.Transition(ctx, appt.ID, model.StatusCancelled, f.client, " ")
	assert.Equal(t, model.KindValidation, model.KindOf(err))
}

func TestTransitionRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, at(10, 0), 60)

	_, err := f.svc.Transition(ctx, appt.ID, model.StatusConfirmed, f.client, "")
	assert.Equal(t, model.KindInvalidTransition, model.KindOf(err))

	_, err = f.svc.Transition(ctx, appt.ID, model.StatusConfirmed, model.Actor{UserID: 5, BusinessID: 99, Role: model.RoleStaff}, "")
	assert.Equal(t, model.KindForbidden, model.KindOf(err))

	staff := model.Actor{UserID: 5, BusinessID: f.biz.ID, Role: model.RoleStaff}
	res, err := f.svc.Transition(ctx, appt.ID, model.StatusConfirmed, staff, "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, res.Appointment.Status)

	_, err = f.svc.Transition(ctx, appt.ID, model.StatusCancelled, staff, "double booked")
	assert.Equal(t, model.KindInvalidTransition, model.KindOf(err))

	_, err = f.svc.Transition(ctx, appt.ID, model.StatusPending, f.owner, "")
	assert.Equal(t, model.KindInvalidTransition, model.KindOf(err))

	_, err = f.svc.Transition(ctx, 999, model.StatusConfirmed, f.owner, "")
	assert.Equal(t, model.KindNotFound, model.KindOf(err))
}

func TestCompleteOnlyAfterEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, at(10, 0), 60)
	_, err := f.svc.Transition(ctx, appt.ID, model.StatusConfirmed, f.owner, "")
	require.NoError(t, err)

	*f.clock = at(10, 30)
	_, err = f.svc.Transition(ctx, appt.ID, model.StatusCompleted, f.owner, "")
	assert.Equal(t, model.KindInvalidTransition, model.KindOf(err))

	*f.clock = at(11, 0)
	res, err := f.svc.Transition(ctx, appt.ID, model.StatusCompleted, f.owner, "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, res.Appointment.Status)

	notes, err := f.store.ListUserNotifications(ctx, appt.ClientID, false)
	require.NoError(t, err)
	require.NotEmpty(t, notes)
	assert.Equal(t, model.NotifyFollowUp, notes[0].Type)

	_, err = f.svc.Transition(ctx, appt.ID, model.StatusCancelled, f.owner, "too late")
	assert.Equal(t, model.KindInvalidTransition, model.KindOf(err))
}

func TestNoShowOnlyAfterStart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, at(10, 0), 60)
	_, err := f.svc.Transition(ctx, appt.ID, model.StatusConfirmed, f.owner, "")
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, appt.ID, model.StatusNoShow, f.owner, "")
	assert.Equal(t, model.KindInvalidTransition, model.KindOf(err))

	*f.clock = at(10, 5)
	res, err := f.svc.Transition(ctx, appt.ID, model.StatusNoShow, f.owner, "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusNoShow, res.Appointment.Status)

	// slot is released once the appointment is no longer active
	*f.clock = now
	f.book(t, at(10, 0), 60)
}

func TestCancelledSlotCanBeRebooked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, at(15, 0), 60)
	_, err := f.svc.Transition(ctx, appt.ID, model.StatusCancelled, f.owner, "staff sick")
	require.NoError(t, err)
	f.book(t, at(15, 0), 60)
}

// flakyStore fails the first fail transactions with err before handing
// through to the wrapped store.
type flakyStore struct {
	store.Store
	err   error
	fail  int
	calls int
}

func (s *flakyStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Queries) error) error {
	s.calls++
	if s.calls <= s.fail {
		return s.err
	}
	return s.Store.WithTx(ctx, fn)
}

func retryCount(t *testing.T, reg *prometheus.Registry) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "apptbook_booking_tx_retry_total" {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}

func TestCreateRetriesTransactionConflicts(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		fail     int
		wantKind model.Kind
		calls    int
	}{
		{name: "one conflict then success", err: store.ErrConflict, fail: 1, calls: 2},
		{name: "conflict twice", err: store.ErrConflict, fail: 2, wantKind: model.KindSlotConflict, calls: 2},
		{name: "code collision twice", err: store.ErrDuplicate, fail: 2, wantKind: model.KindGeneration, calls: 2},
		{name: "other errors are not retried", err: errors.New("connection reset"), fail: 1, wantKind: model.KindInternal, calls: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			flaky := &flakyStore{Store: f.store, err: tc.err, fail: tc.fail}
			reg := prometheus.NewRegistry()
			svc := NewService(flaky, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{
				Policy:              policy.NewStaticProviderMinutes([]int{60}),
				Metrics:             metrics.NewBookingMetrics(reg),
				Now:                 func() time.Time { return now },
				EnforceWorkingHours: true,
			})

			res, err := svc.Create(context.Background(), f.client, f.request(at(10, 0), 60))
			assert.Equal(t, tc.calls, flaky.calls)
			if tc.calls == 2 {
				assert.Equal(t, 1.0, retryCount(t, reg))
			} else {
				assert.Zero(t, retryCount(t, reg))
			}
			if tc.wantKind == "" {
				require.NoError(t, err)
				assert.Equal(t, model.StatusPending, res.Appointment.Status)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.wantKind, model.KindOf(err))
			if tc.wantKind == model.KindInternal {
				assert.ErrorIs(t, err, tc.err)
			}
		})
	}
}
