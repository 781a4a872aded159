package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/store"
)

type StaffInput struct {
	UserID         *int64 `json:"user_id,omitempty"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Specialization string `json:"specialization"`
}

// CreateStaff adds a staff member and seeds the default Monday to Friday
// schedule in the same transaction.
func (s *Service) CreateStaff(ctx context.Context, actor model.Actor, businessID int64, in StaffInput) (model.Staff, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Staff{}, model.Validation("staff name is required")
	}
	var out model.Staff
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Queries) error {
		if _, err := s.ownedBusiness(ctx, tx, actor, businessID); err != nil {
			return err
		}
		m := model.Staff{
			BusinessID:     businessID,
			UserID:         in.UserID,
			Name:           name,
			Email:          strings.TrimSpace(in.Email),
			Phone:          strings.TrimSpace(in.Phone),
			Specialization: strings.TrimSpace(in.Specialization),
			Active:         true,
		}
		if err := tx.InsertStaff(ctx, &m); err != nil {
			return fmt.Errorf("insert staff: %w", err)
		}
		for _, h := range model.DefaultWorkingHours(m.ID) {
			if err := tx.UpsertWorkingHours(ctx, h); err != nil {
				return fmt.Errorf("seed working hours: %w", err)
			}
		}
		out = m
		return nil
	})
	if err != nil {
		return model.Staff{}, err
	}
	s.logger.Info("staff created", "staff_id", out.ID, "business_id", businessID)
	return out, nil
}

func (s *Service) GetStaff(ctx context.Context, id int64) (model.Staff, error) {
	m, err := s.store.GetStaff(ctx, id)
	if err != nil {
		return model.Staff{}, lookupError(err, "staff %d", id)
	}
	return m, nil
}

func (s *Service) ListStaff(ctx context.Context, businessID int64) ([]model.Staff, error) {
	if _, err := s.GetBusiness(ctx, businessID); err != nil {
		return nil, err
	}
	list, err := s.store.ListStaff(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	return list, nil
}

// SetWorkingHours replaces the given weekdays of a staff member's schedule.
// Weekdays not mentioned keep their current hours.
func (s *Service) SetWorkingHours(ctx context.Context, actor model.Actor, staffID int64, hours []model.WorkingHours) ([]model.WorkingHours, error) {
	if len(hours) == 0 {
		return nil, model.Validation("at least one weekday is required")
	}
	seen := map[int]bool{}
	for i := range hours {
		hours[i].StaffID = staffID
		if err := hours[i].Validate(); err != nil {
			return nil, err
		}
		if seen[int(hours[i].Weekday)] {
			return nil, model.Validation("weekday %d given twice", hours[i].Weekday)
		}
		seen[int(hours[i].Weekday)] = true
	}
	var out []model.WorkingHours
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Queries) error {
		m, err := tx.GetStaff(ctx, staffID)
		if err != nil {
			return lookupError(err, "staff %d", staffID)
		}
		if _, err := s.ownedBusiness(ctx, tx, actor, m.BusinessID); err != nil {
			return err
		}
		for _, h := range hours {
			if err := tx.UpsertWorkingHours(ctx, h); err != nil {
				return fmt.Errorf("upsert working hours: %w", err)
			}
		}
		out, err = listHours(ctx, tx, staffID)
		return err
	})
	return out, err
}

// ListWorkingHours returns all seven weekdays, filling gaps with the defaults.
func (s *Service) ListWorkingHours(ctx context.Context, staffID int64) ([]model.WorkingHours, error) {
	if _, err := s.GetStaff(ctx, staffID); err != nil {
		return nil, err
	}
	return listHours(ctx, s.store, staffID)
}

func listHours(ctx context.Context, q store.Queries, staffID int64) ([]model.WorkingHours, error) {
	stored, err := q.ListWorkingHours(ctx, staffID)
	if err != nil {
		return nil, fmt.Errorf("list working hours: %w", err)
	}
	week := model.DefaultWorkingHours(staffID)
	for _, h := range stored {
		week[h.Weekday] = h
	}
	return week, nil
}
