package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/policy"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/store"
)

const (
	EventReminderRequested = "booking.reminder.requested.v1"
	aggregateAppointment   = "appointment"
)

// AppointmentEvent returns the outbox event type for an appointment change,
// e.g. booking.appointment.cancelled.v1.
func AppointmentEvent(change string) string {
	return "booking.appointment." + change + ".v1"
}

type appointmentPayload struct {
	AppointmentID      int64        `json:"appointment_id"`
	BusinessID         int64        `json:"business_id"`
	ClientID           int64        `json:"client_id"`
	ServiceID          int64        `json:"service_id"`
	StaffID            *int64       `json:"staff_id,omitempty"`
	Status             model.Status `json:"status"`
	StartTime          string       `json:"start_time"`
	EndTime            string       `json:"end_time"`
	ConfirmationCode   string       `json:"confirmation_code"`
	CancellationReason string       `json:"reason,omitempty"`
	LateChange         bool         `json:"late_change,omitempty"`
}

type reminderPayload struct {
	AppointmentID int64  `json:"appointment_id"`
	BusinessID    int64  `json:"business_id"`
	ClientID      int64  `json:"client_id"`
	StartTime     string `json:"start_time"`
	RemindAt      string `json:"remind_at"`
}

func enqueueAppointment(ctx context.Context, q store.Queries, change string, a model.Appointment, late bool) error {
	evt, err := outbox.NewEvent(aggregateAppointment, a.ID, AppointmentEvent(change), appointmentPayload{
		AppointmentID:      a.ID,
		BusinessID:         a.BusinessID,
		ClientID:           a.ClientID,
		ServiceID:          a.ServiceID,
		StaffID:            a.StaffID,
		Status:             a.Status,
		StartTime:          a.StartTime.UTC().Format(time.RFC3339),
		EndTime:            a.EndTime().UTC().Format(time.RFC3339),
		ConfirmationCode:   a.ConfirmationCode,
		CancellationReason: a.CancellationReason,
		LateChange:         late,
	})
	if err != nil {
		return err
	}
	if err := q.EnqueueEvent(ctx, evt); err != nil {
		return fmt.Errorf("enqueue %s: %w", evt.EventType, err)
	}
	return nil
}

// enqueueReminders schedules one reminder request per configured offset that
// still lies in the future.
func (s *Service) enqueueReminders(ctx context.Context, q store.Queries, a model.Appointment, now time.Time) error {
	if s.cfg.Policy == nil {
		return nil
	}
	offsets, err := s.cfg.Policy.ReminderOffsets(ctx, a.BusinessID)
	if err != nil {
		s.logger.Warn("reminder offsets unavailable, skipping reminders", "business_id", a.BusinessID, "err", err)
		return nil
	}
	for _, at := range policy.ReminderTimes(offsets, a.StartTime, now) {
		evt, err := outbox.NewEvent(aggregateAppointment, a.ID, EventReminderRequested, reminderPayload{
			AppointmentID: a.ID,
			BusinessID:    a.BusinessID,
			ClientID:      a.ClientID,
			StartTime:     a.StartTime.UTC().Format(time.RFC3339),
			RemindAt:      at.UTC().Format(time.RFC3339),
		})
		if err != nil {
			return err
		}
		if err := q.EnqueueEvent(ctx, evt); err != nil {
			return fmt.Errorf("enqueue reminder: %w", err)
		}
	}
	return nil
}
