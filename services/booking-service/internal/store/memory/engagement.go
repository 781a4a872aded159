package memory

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/store"
)

func (s *Store) InsertFeedback(_ context.Context, f *model.Feedback) error {
	st, unlock := s.lock()
	defer unlock()
	for _, existing := range st.feedback {
		if existing.AppointmentID == f.AppointmentID {
			return store.ErrDuplicate
		}
	}
	f.ID = st.nextID()
	f.CreatedAt = s.now()
	st.feedback[f.ID] = *f
	return nil
}

func (s *Store) GetFeedbackByAppointment(_ context.Context, appointmentID int64) (model.Feedback, error) {
	st, unlock := s.lock()
	defer unlock()
	for _, f := range st.feedback {
		if f.AppointmentID == appointmentID {
			return f, nil
		}
	}
	return model.Feedback{}, store.ErrNotFound
}

func (s *Store) ListBusinessFeedback(_ context.Context, businessID int64) ([]model.Feedback, error) {
	st, unlock := s.lock()
	defer unlock()
	return sortedValues(st.feedback, func(f model.Feedback) bool { return f.BusinessID == businessID },
		func(a, b model.Feedback) bool {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID > b.ID
		}), nil
}

func (s *Store) InsertPayment(_ context.Context, p *model.Payment) error {
	st, unlock := s.lock()
	defer unlock()
	if _, ok := st.appointments[p.AppointmentID]; !ok {
		return store.ErrNotFound
	}
	p.ID = st.nextID()
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt
	st.payments[p.ID] = *p
	return nil
}

func (s *Store) UpdatePayment(_ context.Context, p *model.Payment) error {
	st, unlock := s.lock()
	defer unlock()
	existing, ok := st.payments[p.ID]
	if !ok {
		return store.ErrNotFound
	}
	existing.Status = p.Status
	existing.TransactionRef = p.TransactionRef
	existing.UpdatedAt = s.now()
	st.payments[p.ID] = existing
	p.UpdatedAt = existing.UpdatedAt
	return nil
}

func (s *Store) GetPaymentForUpdate(_ context.Context, id int64) (model.Payment, error) {
	st, unlock := s.lock()
	defer unlock()
	p, ok := st.payments[id]
	if !ok {
		return model.Payment{}, store.ErrNotFound
	}
	return p, nil
}

func (s *Store) ListAppointmentPayments(_ context.Context, appointmentID int64) ([]model.Payment, error) {
	st, unlock := s.lock()
	defer unlock()
	return sortedValues(st.payments, func(p model.Payment) bool { return p.AppointmentID == appointmentID },
		func(a, b model.Payment) bool { return a.ID < b.ID }), nil
}

func (s *Store) ListRevenue(_ context.Context, businessID int64, from, to time.Time) ([]store.RevenueEntry, error) {
	st, unlock := s.lock()
	defer unlock()
	paid := sortedValues(st.payments, func(p model.Payment) bool {
		if p.Status != model.PaymentCompleted {
			return false
		}
		a, ok := st.appointments[p.AppointmentID]
		return ok && a.BusinessID == businessID && a.Status == model.StatusCompleted &&
			!a.StartTime.Before(from) && a.StartTime.Before(to)
	}, func(a, b model.Payment) bool {
		sa, sb := st.appointments[a.AppointmentID].StartTime, st.appointments[b.AppointmentID].StartTime
		if !sa.Equal(sb) {
			return sa.Before(sb)
		}
		return a.ID < b.ID
	})
	out := make([]store.RevenueEntry, 0, len(paid))
	for _, p := range paid {
		out = append(out, store.RevenueEntry{
			AppointmentID: p.AppointmentID,
			StartTime:     st.appointments[p.AppointmentID].StartTime,
			AmountCents:   p.AmountCents,
		})
	}
	return out, nil
}

func (s *Store) InsertNotification(_ context.Context, n *model.Notification) error {
	st, unlock := s.lock()
	defer unlock()
	n.ID = st.nextID()
	n.SentAt = s.now()
	st.notifications[n.ID] = *n
	return nil
}

func (s *Store) ListUserNotifications(_ context.Context, userID int64, unreadOnly bool) ([]model.Notification, error) {
	st, unlock := s.lock()
	defer unlock()
	return sortedValues(st.notifications, func(n model.Notification) bool {
		return n.UserID == userID && (!unreadOnly || !n.Read)
	}, func(a, b model.Notification) bool {
		if !a.SentAt.Equal(b.SentAt) {
			return a.SentAt.After(b.SentAt)
		}
		return a.ID > b.ID
	}), nil
}

func (s *Store) MarkNotificationRead(_ context.Context, userID, id int64) error {
	st, unlock := s.lock()
	defer unlock()
	n, ok := st.notifications[id]
	if !ok || n.UserID != userID {
		return store.ErrNotFound
	}
	n.Read = true
	st.notifications[id] = n
	return nil
}

func (s *Store) InsertKnowledge(_ context.Context, k *model.KnowledgeEntry) error {
	st, unlock := s.lock()
	defer unlock()
	k.ID = st.nextID()
	k.CreatedAt = s.now()
	st.knowledge[k.ID] = *k
	return nil
}

func (s *Store) ListKnowledge(_ context.Context, businessID int64) ([]model.KnowledgeEntry, error) {
	st, unlock := s.lock()
	defer unlock()
	return sortedValues(st.knowledge, func(k model.KnowledgeEntry) bool { return k.BusinessID == businessID },
		func(a, b model.KnowledgeEntry) bool { return a.ID < b.ID }), nil
}

func (s *Store) InsertChatLog(_ context.Context, l *model.ChatLog) error {
	st, unlock := s.lock()
	defer unlock()
	l.ID = st.nextID()
	l.CreatedAt = s.now()
	st.chatLogs[l.ID] = *l
	return nil
}

func (s *Store) ListChatLogs(_ context.Context, businessID int64, limit int) ([]model.ChatLog, error) {
	st, unlock := s.lock()
	defer unlock()
	logs := sortedValues(st.chatLogs, func(l model.ChatLog) bool { return l.BusinessID == businessID },
		func(a, b model.ChatLog) bool {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID > b.ID
		})
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}
