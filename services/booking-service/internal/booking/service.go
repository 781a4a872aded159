// Package booking owns the appointment lifecycle: creating bookings,
// moving them through their statuses and rescheduling them.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/confirmation"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/notifications"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/policy"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/store"
)

type Config struct {
	Policy  policy.Provider
	Metrics *metrics.BookingMetrics
	Codes   *confirmation.Generator
	Now     func() time.Time
	// EnforceWorkingHours rejects bookings outside the staff member's schedule.
	EnforceWorkingHours bool
}

type Service struct {
	store  store.Store
	logger *slog.Logger
	cfg    Config
	tracer trace.Tracer
}

func NewService(s store.Store, logger *slog.Logger, cfg Config) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Codes == nil {
		cfg.Codes = confirmation.NewGenerator()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: s, logger: logger, cfg: cfg, tracer: otel.Tracer("booking")}
}

type CreateRequest struct {
	ClientID        int64     `json:"client_id"`
	BusinessID      int64     `json:"business_id"`
	ServiceID       int64     `json:"service_id"`
	StaffID         *int64    `json:"staff_id,omitempty"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Notes           string    `json:"special_notes,omitempty"`
}

// Result is the outcome of a lifecycle operation. LateChange is set when a
// cancel or reschedule happens less than LateChangeWindow before the start.
type Result struct {
	Appointment model.Appointment `json:"appointment"`
	LateChange  bool              `json:"late_change"`
}

// Create books an appointment in status pending. Clients always book for
// themselves; owners and staff may book on behalf of a client of their business.
func (s *Service) Create(ctx context.Context, actor model.Actor, req CreateRequest) (res Result, err error) {
	ctx, span := s.tracer.Start(ctx, "booking.create", trace.WithAttributes(
		attribute.Int64("business_id", req.BusinessID),
		attribute.Int64("service_id", req.ServiceID),
	))
	started := time.Now()
	defer func() {
		s.cfg.Metrics.ObserveCreate(outcome(err), time.Since(started).Seconds())
		endSpan(span, err)
	}()

	if actor.Role == model.RoleClient {
		req.ClientID = actor.UserID
	} else if !actor.ActsFor(req.BusinessID) {
		return Result{}, model.Forbidden("cannot book for business %d", req.BusinessID)
	}
	now := s.cfg.Now()
	if err := validateCreate(req, now); err != nil {
		return Result{}, err
	}

	err = s.inTx(ctx, func(ctx context.Context, tx store.Queries) error {
		biz, err := tx.GetBusiness(ctx, req.BusinessID)
		if err != nil {
			return lookupError(err, "business %d", req.BusinessID)
		}
		svc, err := tx.GetService(ctx, req.ServiceID)
		if err != nil {
			return lookupError(err, "service %d", req.ServiceID)
		}
		if svc.BusinessID != biz.ID {
			return model.Validation("service %d is not offered by business %d", svc.ID, biz.ID)
		}
		if !svc.Active {
			return model.Validation("service %d is not available for booking", svc.ID)
		}

		appt := model.Appointment{
			ClientID:        req.ClientID,
			BusinessID:      biz.ID,
			ServiceID:       svc.ID,
			StaffID:         req.StaffID,
			StartTime:       req.StartTime.UTC(),
			DurationMinutes: req.DurationMinutes,
			Status:          model.StatusPending,
			SpecialNotes:    strings.TrimSpace(req.Notes),
		}
		if req.StaffID != nil {
			if err := s.claimSlot(ctx, tx, biz, appt, 0); err != nil {
				return err
			}
		}

		code, err := s.cfg.Codes.Generate(ctx, tx)
		if err != nil {
			return err
		}
		appt.ConfirmationCode = code
		if err := tx.InsertAppointment(ctx, &appt); err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}

		if _, err := notifications.Emit(ctx, tx, model.NotifyBookingConfirmation, appt.ClientID,
			"Booking received", bookedMessage(biz, svc, appt), &appt.ID); err != nil {
			return err
		}
		if err := enqueueAppointment(ctx, tx, "created", appt, false); err != nil {
			return err
		}
		if err := s.enqueueReminders(ctx, tx, appt, now); err != nil {
			return err
		}
		res = Result{Appointment: appt}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	s.logger.Info("appointment booked",
		"appointment_id", res.Appointment.ID,
		"business_id", res.Appointment.BusinessID,
		"confirmation_code", res.Appointment.ConfirmationCode,
	)
	return res, nil
}

func validateCreate(req CreateRequest, now time.Time) error {
	if req.ClientID <= 0 {
		return model.Validation("client_id is required")
	}
	if req.BusinessID <= 0 || req.ServiceID <= 0 {
		return model.Validation("business_id and service_id are required")
	}
	if req.DurationMinutes <= 0 {
		return model.Validation("duration must be positive")
	}
	if req.StartTime.IsZero() {
		return model.Validation("start_time is required")
	}
	if !req.StartTime.After(now) {
		return model.Validation("start_time must be in the future")
	}
	return nil
}

// claimSlot locks the staff row and checks that appt fits the staff member's
// schedule and overlaps no other active appointment except excludeID.
func (s *Service) claimSlot(ctx context.Context, tx store.Queries, biz model.Business, appt model.Appointment, excludeID int64) error {
	staffID := *appt.StaffID
	staff, err := tx.LockStaff(ctx, staffID)
	if err != nil {
		return lookupError(err, "staff %d", staffID)
	}
	if staff.BusinessID != biz.ID {
		return model.Validation("staff %d does not work for business %d", staffID, biz.ID)
	}
	if !staff.Active {
		return model.Validation("staff %d is not accepting bookings", staffID)
	}
	iv := availability.Interval{Start: appt.StartTime, End: appt.EndTime()}
	if s.cfg.EnforceWorkingHours {
		ok, err := availability.WithinWorkingHours(ctx, tx, staffID, biz.Location(), iv)
		if err != nil {
			return err
		}
		if !ok {
			return model.SlotConflict("requested time is outside the working hours of staff %d", staffID)
		}
	}
	free, err := availability.IsSlotAvailable(ctx, tx, staffID, iv.Start, iv.Duration(), excludeID)
	if err != nil {
		return err
	}
	if !free {
		return model.SlotConflict("staff %d is already booked at %s", staffID, iv.Start.Format(time.RFC3339))
	}
	return nil
}

// inTx runs fn in a transaction and retries once when the store reports a
// write conflict. A second conflict surfaces as a slot conflict.
func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context, tx store.Queries) error) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		err = s.store.WithTx(ctx, fn)
		if !errors.Is(err, store.ErrConflict) && !errors.Is(err, store.ErrDuplicate) {
			break
		}
		if attempt == 0 {
			s.cfg.Metrics.ObserveRetry()
			s.logger.Warn("booking transaction conflicted, retrying", "err", err)
		}
	}
	switch {
	case errors.Is(err, store.ErrConflict):
		return model.SlotConflict("the requested time was taken by a concurrent booking")
	case errors.Is(err, store.ErrDuplicate):
		return model.Generation("confirmation code collided twice")
	}
	return err
}

func lookupError(err error, format string, args ...any) error {
	if errors.Is(err, store.ErrNotFound) {
		return model.NotFound(format+" not found", args...)
	}
	return fmt.Errorf("load "+format+": %w", append(args, err)...)
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(model.KindOf(err))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, model.Message(err))
	}
	span.End()
}
