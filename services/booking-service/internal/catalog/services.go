package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/store"
)

type ServiceInput struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	Category        string `json:"category"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceCents      int64  `json:"price_cents"`
	Active          *bool  `json:"is_active,omitempty"`
}

func (in ServiceInput) apply(svc *model.Service) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Validation("service name is required")
	}
	if in.DurationMinutes <= 0 {
		return model.Validation("duration_minutes must be positive")
	}
	if in.PriceCents < 0 {
		return model.Validation("price_cents must not be negative")
	}
	svc.Name = name
	svc.Description = strings.TrimSpace(in.Description)
	svc.Category = strings.TrimSpace(in.Category)
	svc.DurationMinutes = in.DurationMinutes
	svc.PriceCents = in.PriceCents
	if in.Active != nil {
		svc.Active = *in.Active
	}
	return nil
}

func (s *Service) CreateService(ctx context.Context, actor model.Actor, businessID int64, in ServiceInput) (model.Service, error) {
	var out model.Service
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Queries) error {
		if _, err := s.ownedBusiness(ctx, tx, actor, businessID); err != nil {
			return err
		}
		svc := model.Service{BusinessID: businessID, Active: true}
		if err := in.apply(&svc); err != nil {
			return err
		}
		if err := tx.InsertService(ctx, &svc); err != nil {
			return fmt.Errorf("insert service: %w", err)
		}
		out = svc
		return nil
	})
	return out, err
}

func (s *Service) UpdateService(ctx context.Context, actor model.Actor, id int64, in ServiceInput) (model.Service, error) {
	var out model.Service
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Queries) error {
		svc, err := tx.GetService(ctx, id)
		if err != nil {
			return lookupError(err, "service %d", id)
		}
		if _, err := s.ownedBusiness(ctx, tx, actor, svc.BusinessID); err != nil {
			return err
		}
		if err := in.apply(&svc); err != nil {
			return err
		}
		if err := tx.UpdateService(ctx, &svc); err != nil {
			return fmt.Errorf("update service: %w", err)
		}
		out = svc
		return nil
	})
	return out, err
}

func (s *Service) GetService(ctx context.Context, id int64) (model.Service, error) {
	svc, err := s.store.GetService(ctx, id)
	if err != nil {
		return model.Service{}, lookupError(err, "service %d", id)
	}
	return svc, nil
}

// ListServices returns the business's services; the public listing only shows active ones.
func (s *Service) ListServices(ctx context.Context, businessID int64, activeOnly bool) ([]model.Service, error) {
	if _, err := s.GetBusiness(ctx, businessID); err != nil {
		return nil, err
	}
	list, err := s.store.ListServices(ctx, businessID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return list, nil
}
