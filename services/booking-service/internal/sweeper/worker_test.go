package sweeper

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/store/memory"
)

func TestSweepCompletesEndedConfirmed(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	s := memory.New().WithClock(clock)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	biz := model.Business{OwnerID: 1, Name: "Spa"}
	require.NoError(t, s.InsertBusiness(ctx, &biz))
	add := func(start time.Time, status model.Status, code string) model.Appointment {
		a := model.Appointment{
			ClientID: 7, BusinessID: biz.ID, ServiceID: 1,
			StartTime: start, DurationMinutes: 60, Status: status, ConfirmationCode: code,
		}
		require.NoError(t, s.InsertAppointment(ctx, &a))
		return a
	}
	ended := add(now.Add(-3*time.Hour), model.StatusConfirmed, "AAAA2222")
	running := add(now.Add(-30*time.Minute), model.StatusConfirmed, "BBBB2222")
	pending := add(now.Add(-5*time.Hour), model.StatusPending, "CCCC2222")

	lifecycle := booking.NewService(s, logger, booking.Config{Now: clock})
	w := NewWorker(s, lifecycle, logger, WorkerConfig{Now: clock})

	n, err := w.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	for id, want := range map[int64]model.Status{
		ended.ID:   model.StatusCompleted,
		running.ID: model.StatusConfirmed,
		pending.ID: model.StatusPending,
	} {
		got, err := s.GetAppointment(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status, "appointment %d", id)
	}

	n, err = w.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweepRespectsGrace(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	s := memory.New().WithClock(clock)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	biz := model.Business{OwnerID: 1, Name: "Spa"}
	require.NoError(t, s.InsertBusiness(ctx, &biz))
	a := model.Appointment{
		ClientID: 7, BusinessID: biz.ID, ServiceID: 1,
		StartTime: now.Add(-90 * time.Minute), DurationMinutes: 60, Status: model.StatusConfirmed, ConfirmationCode: "DDDD2222",
	}
	require.NoError(t, s.InsertAppointment(ctx, &a))

	w := NewWorker(s, booking.NewService(s, logger, booking.Config{Now: clock}), logger, WorkerConfig{Now: clock, Grace: time.Hour})
	n, err := w.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
