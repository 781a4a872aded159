// Package notifications records in-app notifications and hands them to the
// outbox for delivery by an external sender.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/store"
)

const EventRequested = "notification.requested.v1"

type requestedPayload struct {
	NotificationID int64                  `json:"notification_id"`
	UserID         int64                  `json:"user_id"`
	Type           model.NotificationType `json:"type"`
	Title          string                 `json:"title"`
	Message        string                 `json:"message"`
	AppointmentID  *int64                 `json:"appointment_id,omitempty"`
	SentAt         time.Time              `json:"sent_at"`
}

type Dispatcher struct {
	store store.Store
}

func NewDispatcher(s store.Store) *Dispatcher {
	return &Dispatcher{store: s}
}

// Emit stores a notification and enqueues its delivery request through q, so
// both commit or roll back with the caller's transaction.
func Emit(ctx context.Context, q store.Queries, typ model.NotificationType, userID int64, title, message string, appointmentID *int64) (model.Notification, error) {
	if userID <= 0 {
		return model.Notification{}, model.Validation("notification recipient is required")
	}
	n := model.Notification{
		UserID:        userID,
		Type:          typ,
		Title:         title,
		Message:       message,
		AppointmentID: appointmentID,
	}
	if err := q.InsertNotification(ctx, &n); err != nil {
		return model.Notification{}, fmt.Errorf("insert notification: %w", err)
	}
	evt, err := outbox.NewEvent("notification", n.ID, EventRequested, requestedPayload{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Type:           n.Type,
		Title:          n.Title,
		Message:        n.Message,
		AppointmentID:  n.AppointmentID,
		SentAt:         n.SentAt,
	})
	if err != nil {
		return model.Notification{}, err
	}
	if err := q.EnqueueEvent(ctx, evt); err != nil {
		return model.Notification{}, fmt.Errorf("enqueue notification event: %w", err)
	}
	return n, nil
}

func (d *Dispatcher) ListForUser(ctx context.Context, userID int64, unreadOnly bool) ([]model.Notification, error) {
	list, err := d.store.ListUserNotifications(ctx, userID, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return list, nil
}

// MarkRead flips the read flag of one of the user's notifications.
func (d *Dispatcher) MarkRead(ctx context.Context, userID, id int64) error {
	err := d.store.MarkNotificationRead(ctx, userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return model.NotFound("notification %d not found", id)
	}
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

type SendRequest struct {
	UserID        int64                  `json:"user_id"`
	Type          model.NotificationType `json:"type"`
	Title         string                 `json:"title"`
	Message       string                 `json:"message"`
	AppointmentID *int64                 `json:"appointment_id,omitempty"`
}

// Send lets an owner push a promotional or follow-up message. When an
// appointment is referenced it must belong to the owner's business and the
// recipient must be its client.
func (d *Dispatcher) Send(ctx context.Context, actor model.Actor, req SendRequest) (model.Notification, error) {
	if actor.Role != model.RoleOwner {
		return model.Notification{}, model.Forbidden("only business owners can send notifications")
	}
	if req.Type != model.NotifyPromotional && req.Type != model.NotifyFollowUp {
		return model.Notification{}, model.Validation("type must be promotional or follow_up")
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Message = strings.TrimSpace(req.Message)
	if req.Title == "" || req.Message == "" {
		return model.Notification{}, model.Validation("title and message are required")
	}
	var out model.Notification
	err := d.store.WithTx(ctx, func(ctx context.Context, tx store.Queries) error {
		if req.AppointmentID != nil {
			appt, err := tx.GetAppointment(ctx, *req.AppointmentID)
			if errors.Is(err, store.ErrNotFound) {
				return model.NotFound("appointment %d not found", *req.AppointmentID)
			}
			if err != nil {
				return fmt.Errorf("load appointment: %w", err)
			}
			if !actor.ActsFor(appt.BusinessID) {
				return model.Forbidden("appointment %d belongs to another business", appt.ID)
			}
			if appt.ClientID != req.UserID {
				return model.Validation("recipient is not the client of appointment %d", appt.ID)
			}
		}
		n, err := Emit(ctx, tx, req.Type, req.UserID, req.Title, req.Message, req.AppointmentID)
		if err != nil {
			return err
		}
		out = n
		return nil
	})
	return out, err
}
