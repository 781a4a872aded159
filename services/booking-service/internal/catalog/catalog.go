// Package catalog manages what a business offers: its profile, services,
// staff and their weekly working hours.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/store"
)

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

type BusinessInput struct {
	Name           string `json:"business_name"`
	Description    string `json:"description"`
	Address        string `json:"address"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	Timezone       string `json:"timezone"`
	OperatingHours string `json:"operating_hours"`
}

func (in BusinessInput) apply(b *model.Business) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Validation("business_name is required")
	}
	tz := strings.TrimSpace(in.Timezone)
	if tz == "" {
		tz = "UTC"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return model.Validation("unknown timezone %q", tz)
	}
	b.Name = name
	b.Description = strings.TrimSpace(in.Description)
	b.Address = strings.TrimSpace(in.Address)
	b.Phone = strings.TrimSpace(in.Phone)
	b.Email = strings.TrimSpace(in.Email)
	b.Timezone = tz
	b.OperatingHours = strings.TrimSpace(in.OperatingHours)
	return nil
}

// CreateBusiness registers the actor as owner of a new business. An owner
// has at most one business.
func (s *Service) CreateBusiness(ctx context.Context, actor model.Actor, in BusinessInput) (model.Business, error) {
	if actor.Role != model.RoleOwner || actor.UserID <= 0 {
		return model.Business{}, model.Forbidden("only business owners can create a business")
	}
	b := model.Business{OwnerID: actor.UserID}
	if err := in.apply(&b); err != nil {
		return model.Business{}, err
	}
	err := s.store.InsertBusiness(ctx, &b)
	if errors.Is(err, store.ErrDuplicate) {
		return model.Business{}, model.AlreadyExists("user %d already owns a business", actor.UserID)
	}
	if err != nil {
		return model.Business{}, fmt.Errorf("insert business: %w", err)
	}
	s.logger.Info("business created", "business_id", b.ID, "owner_id", b.OwnerID)
	return b, nil
}

// UpdateBusiness rewrites the profile fields. The owner never changes.
func (s *Service) UpdateBusiness(ctx context.Context, actor model.Actor, id int64, in BusinessInput) (model.Business, error) {
	var out model.Business
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Queries) error {
		b, err := s.ownedBusiness(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if err := in.apply(&b); err != nil {
			return err
		}
		if err := tx.UpdateBusiness(ctx, &b); err != nil {
			return fmt.Errorf("update business: %w", err)
		}
		out = b
		return nil
	})
	return out, err
}

func (s *Service) GetBusiness(ctx context.Context, id int64) (model.Business, error) {
	b, err := s.store.GetBusiness(ctx, id)
	if err != nil {
		return model.Business{}, lookupError(err, "business %d", id)
	}
	return b, nil
}

func (s *Service) BusinessForOwner(ctx context.Context, ownerID int64) (model.Business, error) {
	b, err := s.store.GetBusinessByOwner(ctx, ownerID)
	if err != nil {
		return model.Business{}, lookupError(err, "business of owner %d", ownerID)
	}
	return b, nil
}

func (s *Service) ownedBusiness(ctx context.Context, q store.Queries, actor model.Actor, id int64) (model.Business, error) {
	b, err := q.GetBusiness(ctx, id)
	if err != nil {
		return model.Business{}, lookupError(err, "business %d", id)
	}
	if actor.Role != model.RoleOwner || b.OwnerID != actor.UserID {
		return model.Business{}, model.Forbidden("business %d is managed by its owner only", id)
	}
	return b, nil
}

func lookupError(err error, format string, args ...any) error {
	if errors.Is(err, store.ErrNotFound) {
		return model.NotFound(format+" not found", args...)
	}
	return fmt.Errorf("load "+format+": %w", append(args, err)...)
}
