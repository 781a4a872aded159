package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/store"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/store/memory"
)

func TestEmitWritesRowAndEvent(t *testing.T) {
	ctx := context.Background()
	sent := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s := memory.New().WithClock(func() time.Time { return sent })

	apptID := int64(42)
	err := s.WithTx(ctx, func(ctx context.Context, tx store.Queries) error {
		_, err := Emit(ctx, tx, model.NotifyReminder, 7, "Reminder", "See you tomorrow", &apptID)
		return err
	})
	require.NoError(t, err)

	list, err := NewDispatcher(s).ListForUser(ctx, 7, true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.NotifyReminder, list[0].Type)
	assert.Equal(t, sent, list[0].SentAt)

	events := s.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventRequested, events[0].EventType)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, "reminder", payload["type"])
	assert.EqualValues(t, 42, payload["appointment_id"])
}

func TestEmitRollsBackWithCaller(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	err := s.WithTx(ctx, func(ctx context.Context, tx store.Queries) error {
		if _, err := Emit(ctx, tx, model.NotifyCancellation, 7, "Cancelled", "Sorry", nil); err != nil {
			return err
		}
		return model.SlotConflict("later step failed")
	})
	require.Error(t, err)

	list, err := NewDispatcher(s).ListForUser(ctx, 7, false)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Empty(t, s.Events())
}

func TestMarkReadOnlyOwnNotification(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	d := NewDispatcher(s)
	n, err := Emit(ctx, s, model.NotifyPromotional, 7, "Sale", "20% off", nil)
	require.NoError(t, err)

	err = d.MarkRead(ctx, 8, n.ID)
	assert.Equal(t, model.KindNotFound, model.KindOf(err))

	require.NoError(t, d.MarkRead(ctx, 7, n.ID))
	unread, err := d.ListForUser(ctx, 7, true)
	require.NoError(t, err)
	assert.Empty(t, unread)
	all, err := d.ListForUser(ctx, 7, false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Read)
	assert.Equal(t, "20% off", all[0].Message)
}

func TestSendRules(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	d := NewDispatcher(s)
	owner := model.Actor{UserID: 1, BusinessID: 5, Role: model.RoleOwner}

	_, err := d.Send(ctx, model.Actor{UserID: 7, Role: model.RoleClient}, SendRequest{UserID: 8, Type: model.NotifyPromotional, Title: "x", Message: "y"})
	assert.Equal(t, model.KindForbidden, model.KindOf(err))

	_, err = d.Send(ctx, owner, SendRequest{UserID: 8, Type: model.NotifyReminder, Title: "x", Message: "y"})
	assert.Equal(t, model.KindValidation, model.KindOf(err))

	_, err = d.Send(ctx, owner, SendRequest{UserID: 8, Type: model.NotifyPromotional, Title: " ", Message: "y"})
	assert.Equal(t, model.KindValidation, model.KindOf(err))

	missing := int64(99)
	_, err = d.Send(ctx, owner, SendRequest{UserID: 8, Type: model.NotifyFollowUp, Title: "x", Message: "y", AppointmentID: &missing})
	assert.Equal(t, model.KindNotFound, model.KindOf(err))

	n, err := d.Send(ctx, owner, SendRequest{UserID: 8, Type: model.NotifyPromotional, Title: "Spring", Message: "New services"})
	require.NoError(t, err)
	assert.Equal(t, int64(8), n.UserID)
	assert.Len(t, s.Events(), 1)
}
