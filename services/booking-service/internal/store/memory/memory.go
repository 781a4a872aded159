// Package memory is an in-process store.Store used by tests and by the
// service when STORE_DRIVER=memory. Transactions are serialized by one mutex
// and roll back by restoring a snapshot; the overlap and uniqueness rules of
// the Postgres schema are enforced on write.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/store"
)

type state struct {
	seq           int64
	businesses    map[int64]model.Business
	services      map[int64]model.Service
	staff         map[int64]model.Staff
	hours         map[int64]map[time.Weekday]model.WorkingHours
	appointments  map[int64]model.Appointment
	feedback      map[int64]model.Feedback
	payments      map[int64]model.Payment
	notifications map[int64]model.Notification
	knowledge     map[int64]model.KnowledgeEntry
	chatLogs      map[int64]model.ChatLog
	events        []outbox.Event
}

func newState() *state {
	return &state{
		businesses:    map[int64]model.Business{},
		services:      map[int64]model.Service{},
		staff:         map[int64]model.Staff{},
		hours:         map[int64]map[time.Weekday]model.WorkingHours{},
		appointments:  map[int64]model.Appointment{},
		feedback:      map[int64]model.Feedback{},
		payments:      map[int64]model.Payment{},
		notifications: map[int64]model.Notification{},
		knowledge:     map[int64]model.KnowledgeEntry{},
		chatLogs:      map[int64]model.ChatLog{},
	}
}

// clone copies every table; records are values so a shallow map copy is enough,
// except for the nested working hours.
func (s *state) clone() *state {
	c := &state{
		seq:           s.seq,
		businesses:    maps.Clone(s.businesses),
		services:      maps.Clone(s.services),
		staff:         maps.Clone(s.staff),
		hours:         make(map[int64]map[time.Weekday]model.WorkingHours, len(s.hours)),
		appointments:  maps.Clone(s.appointments),
		feedback:      maps.Clone(s.feedback),
		payments:      maps.Clone(s.payments),
		notifications: maps.Clone(s.notifications),
		knowledge:     maps.Clone(s.knowledge),
		chatLogs:      maps.Clone(s.chatLogs),
		events:        append([]outbox.Event(nil), s.events...),
	}
	for k, v := range s.hours {
		c.hours[k] = maps.Clone(v)
	}
	return c
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

type Store struct {
	mu   *sync.Mutex
	st   **state
	inTx bool
	now  func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	st := newState()
	return &Store{mu: &sync.Mutex{}, st: &st, now: time.Now}
}

// WithClock sets the clock used for created/updated timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Queries) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := (*s.st).clone()
	tx := &Store{mu: s.mu, st: s.st, inTx: true, now: s.now}
	if err := fn(ctx, tx); err != nil {
		*s.st = snapshot
		return err
	}
	return ctx.Err()
}

// lock takes the store mutex unless the call runs inside WithTx, which already holds it.
func (s *Store) lock() (*state, func()) {
	if s.inTx {
		return *s.st, func() {}
	}
	s.mu.Lock()
	return *s.st, s.mu.Unlock
}

// Events returns a copy of the enqueued outbox events.
func (s *Store) Events() []outbox.Event {
	st, unlock := s.lock()
	defer unlock()
	return append([]outbox.Event(nil), st.events...)
}

func (s *Store) EnqueueEvent(_ context.Context, evt outbox.Event) error {
	st, unlock := s.lock()
	defer unlock()
	st.events = append(st.events, evt)
	return nil
}

func sortedValues[V any](m map[int64]V, keep func(V) bool, less func(a, b V) bool) []V {
	var out []V
	for _, v := range m {
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
