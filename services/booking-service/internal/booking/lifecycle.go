package booking

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/notifications"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/store"
)

// Transition moves an appointment to target on behalf of actor. reason is
// required when cancelling. Cancelling an appointment that is already
// cancelled with the same reason returns it unchanged.
func (s *Service) Transition(ctx context.Context, id int64, target model.Status, actor model.Actor, reason string) (res Result, err error) {
	ctx, span := s.tracer.Start(ctx, "booking.transition", trace.WithAttributes(
		attribute.Int64("appointment_id", id),
		attribute.String("target", string(target)),
	))
	started := time.Now()
	defer func() {
		s.cfg.Metrics.ObserveTransition(string(target), outcome(err), time.Since(started).Seconds())
		endSpan(span, err)
	}()

	reason = strings.TrimSpace(reason)
	if target == model.StatusCancelled && reason == "" {
		return Result{}, model.Validation("a cancellation reason is required")
	}

	changed := false
	err = s.inTx(ctx, func(ctx context.Context, tx store.Queries) error {
		changed = false
		appt, err := tx.GetAppointmentForUpdate(ctx, id)
		if err != nil {
			return lookupError(err, "appointment %d", id)
		}
		if !actor.CanAccess(appt) {
			return model.Forbidden("appointment %d is not accessible", id)
		}
		if target == model.StatusCancelled && appt.Status == model.StatusCancelled {
			if appt.CancellationReason != reason {
				return model.InvalidTransition("appointment %d was already cancelled for a different reason", id)
			}
			res = Result{Appointment: appt}
			return nil
		}

		now := s.cfg.Now()
		if err := CheckTransition(appt, target, actor.Role, now); err != nil {
			return err
		}
		late := target == model.StatusCancelled && IsLateChange(appt.StartTime, now)

		appt.Status = target
		if target == model.StatusCancelled {
			cancelledAt := now.UTC()
			appt.CancellationReason = reason
			appt.CancelledAt = &cancelledAt
		}
		if err := tx.UpdateAppointment(ctx, &appt); err != nil {
			return err
		}
		if err := s.notifyTransition(ctx, tx, appt); err != nil {
			return err
		}
		if err := enqueueAppointment(ctx, tx, string(target), appt, late); err != nil {
			return err
		}
		res = Result{Appointment: appt, LateChange: late}
		changed = true
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	if changed {
		s.logger.Info("appointment transitioned",
			"appointment_id", id,
			"status", target,
			"actor_role", actor.Role,
			"late_change", res.LateChange,
		)
	}
	return res, nil
}

func (s *Service) notifyTransition(ctx context.Context, tx store.Queries, a model.Appointment) error {
	var (
		typ   model.NotificationType
		title string
	)
	switch a.Status {
	case model.StatusConfirmed:
		typ, title = model.NotifyBookingConfirmation, "Appointment confirmed"
	case model.StatusCancelled:
		typ, title = model.NotifyCancellation, "Appointment cancelled"
	case model.StatusCompleted:
		typ, title = model.NotifyFollowUp, "How was your visit?"
	default:
		return nil
	}
	biz, err := tx.GetBusiness(ctx, a.BusinessID)
	if err != nil {
		return lookupError(err, "business %d", a.BusinessID)
	}
	_, err = notifications.Emit(ctx, tx, typ, a.ClientID, title, transitionMessage(biz, a), &a.ID)
	return err
}

type RescheduleRequest struct {
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
}

// Reschedule moves a pending or confirmed appointment to a new interval,
// keeping its status and confirmation code. A zero duration keeps the current one.
func (s *Service) Reschedule(ctx context.Context, id int64, actor model.Actor, req RescheduleRequest) (res Result, err error) {
	ctx, span := s.tracer.Start(ctx, "booking.reschedule", trace.WithAttributes(attribute.Int64("appointment_id", id)))
	started := time.Now()
	defer func() {
		s.cfg.Metrics.ObserveTransition("rescheduled", outcome(err), time.Since(started).Seconds())
		endSpan(span, err)
	}()

	if req.DurationMinutes < 0 {
		return Result{}, model.Validation("duration must be positive")
	}
	if req.StartTime.IsZero() {
		return Result{}, model.Validation("start_time is required")
	}
	now := s.cfg.Now()
	if !req.StartTime.After(now) {
		return Result{}, model.Validation("start_time must be in the future")
	}

	err = s.inTx(ctx, func(ctx context.Context, tx store.Queries) error {
		appt, err := tx.GetAppointmentForUpdate(ctx, id)
		if err != nil {
			return lookupError(err, "appointment %d", id)
		}
		if !actor.CanAccess(appt) || actor.Role == model.RoleSystem {
			return model.Forbidden("appointment %d is not accessible", id)
		}
		if !appt.Status.Active() {
			return model.InvalidTransition("appointment %d is %s and cannot be rescheduled", id, appt.Status)
		}
		late := IsLateChange(appt.StartTime, now)

		appt.StartTime = req.StartTime.UTC()
		if req.DurationMinutes > 0 {
			appt.DurationMinutes = req.DurationMinutes
		}
		biz, err := tx.GetBusiness(ctx, appt.BusinessID)
		if err != nil {
			return lookupError(err, "business %d", appt.BusinessID)
		}
		if appt.StaffID != nil {
			if err := s.claimSlot(ctx, tx, biz, appt, appt.ID); err != nil {
				return err
			}
		}
		if err := tx.UpdateAppointment(ctx, &appt); err != nil {
			return err
		}
		if _, err := notifications.Emit(ctx, tx, model.NotifyBookingConfirmation, appt.ClientID,
			"Appointment rescheduled", rescheduledMessage(biz, appt), &appt.ID); err != nil {
			return err
		}
		if err := enqueueAppointment(ctx, tx, "rescheduled", appt, late); err != nil {
			return err
		}
		if err := s.enqueueReminders(ctx, tx, appt, now); err != nil {
			return err
		}
		res = Result{Appointment: appt, LateChange: late}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	s.logger.Info("appointment rescheduled", "appointment_id", id, "start_time", res.Appointment.StartTime, "late_change", res.LateChange)
	return res, nil
}
