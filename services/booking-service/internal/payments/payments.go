// Package payments keeps the ledger of what clients paid for appointments.
// Charging a card is done elsewhere; this only records the outcome.
package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/store"
)

const EventStatusChanged = "booking.payment.status_changed.v1"

var next = map[model.PaymentStatus][]model.PaymentStatus{
	model.PaymentPending:   {model.PaymentCompleted, model.PaymentFailed},
	model.PaymentCompleted: {model.PaymentRefunded},
}

func canMove(from, to model.PaymentStatus) bool {
	for _, s := range next[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Service struct {
	store  store.Store
	logger *slog.Logger
}

func New(s store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: s, logger: logger}
}

type Input struct {
	AppointmentID  int64  `json:"appointment_id"`
	AmountCents    int64  `json:"amount_cents"`
	Method         string `json:"payment_method"`
	TransactionRef string `json:"transaction_id,omitempty"`
}

// Create records a pending payment for an appointment that is not cancelled.
// The appointment's client or the business owner may record it.
func (s *Service) Create(ctx context.Context, actor model.Actor, in Input) (model.Payment, error) {
	if in.AppointmentID <= 0 {
		return model.Payment{}, model.Validation("appointment_id is required")
	}
	if in.AmountCents <= 0 {
		return model.Payment{}, model.Validation("amount_cents must be positive")
	}
	method := strings.TrimSpace(in.Method)
	if method == "" {
		return model.Payment{}, model.Validation("payment_method is required")
	}
	var out model.Payment
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Queries) error {
		appt, err := loadAppointment(ctx, tx, in.AppointmentID)
		if err != nil {
			return err
		}
		if !payerAllowed(actor, appt) {
			return model.Forbidden("cannot record payments for appointment %d", appt.ID)
		}
		if appt.Status == model.StatusCancelled {
			return model.Validation("appointment %d is cancelled", appt.ID)
		}
		p := model.Payment{
			AppointmentID:  appt.ID,
			ClientID:       appt.ClientID,
			BusinessID:     appt.BusinessID,
			AmountCents:    in.AmountCents,
			Method:         method,
			Status:         model.PaymentPending,
			TransactionRef: strings.TrimSpace(in.TransactionRef),
		}
		if err := tx.InsertPayment(ctx, &p); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		out = p
		return nil
	})
	return out, err
}

func payerAllowed(actor model.Actor, appt model.Appointment) bool {
	switch actor.Role {
	case model.RoleClient:
		return appt.ClientID == actor.UserID
	case model.RoleOwner:
		return actor.ActsFor(appt.BusinessID)
	}
	return false
}

// UpdateStatus moves a payment along pending -> completed|failed and
// completed -> refunded. Only the business owner may do it.
func (s *Service) UpdateStatus(ctx context.Context, actor model.Actor, id int64, status model.PaymentStatus, transactionRef string) (model.Payment, error) {
	var out model.Payment
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Queries) error {
		p, err := tx.GetPaymentForUpdate(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return model.NotFound("payment %d not found", id)
		}
		if err != nil {
			return fmt.Errorf("load payment: %w", err)
		}
		if actor.Role != model.RoleOwner || !actor.ActsFor(p.BusinessID) {
			return model.Forbidden("payment %d is managed by the business owner", id)
		}
		if !canMove(p.Status, status) {
			return model.InvalidTransition("payment cannot move from %s to %s", p.Status, status)
		}
		from := p.Status
		p.Status = status
		if ref := strings.TrimSpace(transactionRef); ref != "" {
			p.TransactionRef = ref
		}
		if err := tx.UpdatePayment(ctx, &p); err != nil {
			return fmt.Errorf("update payment: %w", err)
		}
		evt, err := outbox.NewEvent("payment", p.ID, EventStatusChanged, map[string]any{
			"payment_id":     p.ID,
			"appointment_id": p.AppointmentID,
			"business_id":    p.BusinessID,
			"from":           from,
			"to":             p.Status,
			"amount_cents":   p.AmountCents,
		})
		if err != nil {
			return err
		}
		if err := tx.EnqueueEvent(ctx, evt); err != nil {
			return fmt.Errorf("enqueue payment event: %w", err)
		}
		out = p
		return nil
	})
	if err != nil {
		return model.Payment{}, err
	}
	s.logger.Info("payment status changed", "payment_id", id, "status", status)
	return out, nil
}

func (s *Service) ForAppointment(ctx context.Context, actor model.Actor, appointmentID int64) ([]model.Payment, error) {
	appt, err := loadAppointment(ctx, s.store, appointmentID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(appt) {
		return nil, model.Forbidden("appointment %d is not accessible", appointmentID)
	}
	list, err := s.store.ListAppointmentPayments(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return list, nil
}

func loadAppointment(ctx context.Context, q store.Queries, id int64) (model.Appointment, error) {
	appt, err := q.GetAppointment(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return model.Appointment{}, model.NotFound("appointment %d not found", id)
	}
	if err != nil {
		return model.Appointment{}, fmt.Errorf("load appointment: %w", err)
	}
	return appt, nil
}
