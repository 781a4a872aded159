// Package feedback collects client ratings of completed appointments.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/store"
)

type Service struct {
	store store.Store
}

func New(s store.Store) *Service {
	return &Service{store: s}
}

type Input struct {
	AppointmentID  int64  `json:"appointment_id"`
	Rating         int    `json:"rating"`
	ServiceQuality *int   `json:"service_quality,omitempty"`
	Punctuality    *int   `json:"punctuality,omitempty"`
	Cleanliness    *int   `json:"cleanliness,omitempty"`
	Comments       string `json:"comments,omitempty"`
}

func (in Input) validate() error {
	if in.AppointmentID <= 0 {
		return model.Validation("appointment_id is required")
	}
	if err := checkRating("rating", &in.Rating); err != nil {
		return err
	}
	for name, v := range map[string]*int{
		"service_quality": in.ServiceQuality,
		"punctuality":     in.Punctuality,
		"cleanliness":     in.Cleanliness,
	} {
		if err := checkRating(name, v); err != nil {
			return err
		}
	}
	return nil
}

func checkRating(name string, v *int) error {
	if v != nil && (*v < 1 || *v > 5) {
		return model.Validation("%s must be between 1 and 5", name)
	}
	return nil
}

// Create records the client's feedback for one of their completed
// appointments. Each appointment takes feedback once.
func (s *Service) Create(ctx context.Context, actor model.Actor, in Input) (model.Feedback, error) {
	if err := in.validate(); err != nil {
		return model.Feedback{}, err
	}
	var out model.Feedback
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Queries) error {
		appt, err := tx.GetAppointment(ctx, in.AppointmentID)
		if errors.Is(err, store.ErrNotFound) {
			return model.NotFound("appointment %d not found", in.AppointmentID)
		}
		if err != nil {
			return fmt.Errorf("load appointment: %w", err)
		}
		if actor.Role != model.RoleClient || appt.ClientID != actor.UserID {
			return model.Forbidden("only the client of appointment %d can leave feedback", appt.ID)
		}
		if appt.Status != model.StatusCompleted {
			return model.Validation("feedback is only accepted for completed appointments")
		}
		f := model.Feedback{
			AppointmentID:  appt.ID,
			ClientID:       appt.ClientID,
			BusinessID:     appt.BusinessID,
			Rating:         in.Rating,
			ServiceQuality: in.ServiceQuality,
			Punctuality:    in.Punctuality,
			Cleanliness:    in.Cleanliness,
			Comments:       strings.TrimSpace(in.Comments),
		}
		err = tx.InsertFeedback(ctx, &f)
		if errors.Is(err, store.ErrDuplicate) {
			return model.AlreadyExists("feedback for appointment %d already exists", appt.ID)
		}
		if err != nil {
			return fmt.Errorf("insert feedback: %w", err)
		}
		out = f
		return nil
	})
	return out, err
}

// ForAppointment returns the feedback of an appointment the actor can see.
func (s *Service) ForAppointment(ctx context.Context, actor model.Actor, appointmentID int64) (model.Feedback, error) {
	appt, err := s.store.GetAppointment(ctx, appointmentID)
	if errors.Is(err, store.ErrNotFound) {
		return model.Feedback{}, model.NotFound("appointment %d not found", appointmentID)
	}
	if err != nil {
		return model.Feedback{}, fmt.Errorf("load appointment: %w", err)
	}
	if !actor.CanAccess(appt) {
		return model.Feedback{}, model.Forbidden("appointment %d is not accessible", appointmentID)
	}
	f, err := s.store.GetFeedbackByAppointment(ctx, appointmentID)
	if errors.Is(err, store.ErrNotFound) {
		return model.Feedback{}, model.NotFound("no feedback for appointment %d", appointmentID)
	}
	if err != nil {
		return model.Feedback{}, fmt.Errorf("load feedback: %w", err)
	}
	return f, nil
}
