package memory

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/store"
)

func (s *Store) InsertBusiness(_ context.Context, b *model.Business) error {
	st, unlock := s.lock()
	defer unlock()
	for _, existing := range st.businesses {
		if existing.OwnerID == b.OwnerID {
			return store.ErrDuplicate
		}
	}
	b.ID = st.nextID()
	b.CreatedAt = s.now()
	b.UpdatedAt = b.CreatedAt
	st.businesses[b.ID] = *b
	return nil
}

func (s *Store) UpdateBusiness(_ context.Context, b *model.Business) error {
	st, unlock := s.lock()
	defer unlock()
	existing, ok := st.businesses[b.ID]
	if !ok {
		return store.ErrNotFound
	}
	updated := *b
	updated.OwnerID = existing.OwnerID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = s.now()
	st.businesses[b.ID] = updated
	b.UpdatedAt = updated.UpdatedAt
	return nil
}

func (s *Store) GetBusiness(_ context.Context, id int64) (model.Business, error) {
	st, unlock := s.lock()
	defer unlock()
	b, ok := st.businesses[id]
	if !ok {
		return model.Business{}, store.ErrNotFound
	}
	return b, nil
}

func (s *Store) GetBusinessByOwner(_ context.Context, ownerID int64) (model.Business, error) {
	st, unlock := s.lock()
	defer unlock()
	for _, b := range st.businesses {
		if b.OwnerID == ownerID {
			return b, nil
		}
	}
	return model.Business{}, store.ErrNotFound
}

func (s *Store) InsertService(_ context.Context, svc *model.Service) error {
	st, unlock := s.lock()
	defer unlock()
	if _, ok := st.businesses[svc.BusinessID]; !ok {
		return store.ErrNotFound
	}
	svc.ID = st.nextID()
	svc.CreatedAt = s.now()
	st.services[svc.ID] = *svc
	return nil
}

func (s *Store) UpdateService(_ context.Context, svc *model.Service) error {
	st, unlock := s.lock()
	defer unlock()
	existing, ok := st.services[svc.ID]
	if !ok {
		return store.ErrNotFound
	}
	updated := *svc
	updated.BusinessID = existing.BusinessID
	updated.CreatedAt = existing.CreatedAt
	st.services[svc.ID] = updated
	return nil
}

func (s *Store) GetService(_ context.Context, id int64) (model.Service, error) {
	st, unlock := s.lock()
	defer unlock()
	svc, ok := st.services[id]
	if !ok {
		return model.Service{}, store.ErrNotFound
	}
	return svc, nil
}

func (s *Store) ListServices(_ context.Context, businessID int64, activeOnly bool) ([]model.Service, error) {
	st, unlock := s.lock()
	defer unlock()
	return sortedValues(st.services,
		func(v model.Service) bool { return v.BusinessID == businessID && (v.Active || !activeOnly) },
		func(a, b model.Service) bool {
			if a.Name != b.Name {
				return a.Name < b.Name
			}
			return a.ID < b.ID
		}), nil
}

func (s *Store) InsertStaff(_ context.Context, m *model.Staff) error {
	st, unlock := s.lock()
	defer unlock()
	if _, ok := st.businesses[m.BusinessID]; !ok {
		return store.ErrNotFound
	}
	m.ID = st.nextID()
	m.CreatedAt = s.now()
	st.staff[m.ID] = *m
	return nil
}

func (s *Store) GetStaff(_ context.Context, id int64) (model.Staff, error) {
	st, unlock := s.lock()
	defer unlock()
	m, ok := st.staff[id]
	if !ok {
		return model.Staff{}, store.ErrNotFound
	}
	return m, nil
}

// LockStaff needs no extra locking: transactions already run one at a time.
func (s *Store) LockStaff(ctx context.Context, id int64) (model.Staff, error) {
	return s.GetStaff(ctx, id)
}

func (s *Store) ListStaff(_ context.Context, businessID int64) ([]model.Staff, error) {
	st, unlock := s.lock()
	defer unlock()
	return sortedValues(st.staff,
		func(v model.Staff) bool { return v.BusinessID == businessID },
		func(a, b model.Staff) bool {
			if a.Name != b.Name {
				return a.Name < b.Name
			}
			return a.ID < b.ID
		}), nil
}

func (s *Store) UpsertWorkingHours(_ context.Context, h model.WorkingHours) error {
	st, unlock := s.lock()
	defer unlock()
	if _, ok := st.staff[h.StaffID]; !ok {
		return store.ErrNotFound
	}
	if st.hours[h.StaffID] == nil {
		st.hours[h.StaffID] = map[time.Weekday]model.WorkingHours{}
	}
	st.hours[h.StaffID][h.Weekday] = h
	return nil
}

func (s *Store) ListWorkingHours(_ context.Context, staffID int64) ([]model.WorkingHours, error) {
	st, unlock := s.lock()
	defer unlock()
	var out []model.WorkingHours
	for d := time.Sunday; d <= time.Saturday; d++ {
		if h, ok := st.hours[staffID][d]; ok {
			out = append(out, h)
		}
	}
	return out, nil
}
