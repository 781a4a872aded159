// Package store defines the persistence contract of the booking service.
// Drivers live in store/postgres and store/memory.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/outbox"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is returned when a write loses against a concurrent one
	// (overlapping active appointment, serialization failure, deadlock).
	ErrConflict = errors.New("store: conflict")
	// ErrDuplicate is returned when a unique key already exists.
	ErrDuplicate = errors.New("store: duplicate")
)

// Store gives access to Queries outside a transaction and runs fn inside one.
// If fn returns an error every write made through tx is discarded.
type Store interface {
	Queries
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Queries) error) error
}

// AppointmentFilter narrows appointment listings. Zero values mean unbounded.
type AppointmentFilter struct {
	From       time.Time
	To         time.Time
	ActiveOnly bool
}

// RevenueEntry is one completed payment of a completed appointment.
type RevenueEntry struct {
	AppointmentID int64
	StartTime     time.Time
	AmountCents   int64
}

type Queries interface {
	BusinessQueries
	AppointmentQueries
	EngagementQueries

	// EnqueueEvent records evt for asynchronous publication.
	EnqueueEvent(ctx context.Context, evt outbox.Event) error
}

type BusinessQueries interface {
	InsertBusiness(ctx context.Context, b *model.Business) error
	UpdateBusiness(ctx context.Context, b *model.Business) error
	GetBusiness(ctx context.Context, id int64) (model.Business, error)
	GetBusinessByOwner(ctx context.Context, ownerID int64) (model.Business, error)

	InsertService(ctx context.Context, s *model.Service) error
	UpdateService(ctx context.Context, s *model.Service) error
	GetService(ctx context.Context, id int64) (model.Service, error)
	ListServices(ctx context.Context, businessID int64, activeOnly bool) ([]model.Service, error)

	InsertStaff(ctx context.Context, s *model.Staff) error
	GetStaff(ctx context.Context, id int64) (model.Staff, error)
	// LockStaff reads the staff row and holds a write lock on it until the
	// transaction ends, serializing bookings for that staff member.
	LockStaff(ctx context.Context, id int64) (model.Staff, error)
	ListStaff(ctx context.Context, businessID int64) ([]model.Staff, error)

	UpsertWorkingHours(ctx context.Context, h model.WorkingHours) error
	ListWorkingHours(ctx context.Context, staffID int64) ([]model.WorkingHours, error)
}

type AppointmentQueries interface {
	InsertAppointment(ctx context.Context, a *model.Appointment) error
	UpdateAppointment(ctx context.Context, a *model.Appointment) error
	GetAppointment(ctx context.Context, id int64) (model.Appointment, error)
	GetAppointmentForUpdate(ctx context.Context, id int64) (model.Appointment, error)
	ConfirmationCodeExists(ctx context.Context, code string) (bool, error)

	// List* results are ordered by start time ascending.
	ListStaffAppointments(ctx context.Context, staffID int64, f AppointmentFilter) ([]model.Appointment, error)
	ListClientAppointments(ctx context.Context, clientID int64) ([]model.Appointment, error)
	ListBusinessAppointments(ctx context.Context, businessID int64, f AppointmentFilter) ([]model.Appointment, error)
	// ListDueCompletions returns confirmed appointments that ended at or before cutoff.
	ListDueCompletions(ctx context.Context, cutoff time.Time, limit int) ([]model.Appointment, error)
}

type EngagementQueries interface {
	InsertFeedback(ctx context.Context, f *model.Feedback) error
	GetFeedbackByAppointment(ctx context.Context, appointmentID int64) (model.Feedback, error)
	ListBusinessFeedback(ctx context.Context, businessID int64) ([]model.Feedback, error)

	InsertPayment(ctx context.Context, p *model.Payment) error
	UpdatePayment(ctx context.Context, p *model.Payment) error
	GetPaymentForUpdate(ctx context.Context, id int64) (model.Payment, error)
	ListAppointmentPayments(ctx context.Context, appointmentID int64) ([]model.Payment, error)
	// ListRevenue returns completed payments of completed appointments starting in [from, to).
	ListRevenue(ctx context.Context, businessID int64, from, to time.Time) ([]RevenueEntry, error)

	InsertNotification(ctx context.Context, n *model.Notification) error
	ListUserNotifications(ctx context.Context, userID int64, unreadOnly bool) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id int64) error

	InsertKnowledge(ctx context.Context, k *model.KnowledgeEntry) error
	ListKnowledge(ctx context.Context, businessID int64) ([]model.KnowledgeEntry, error)
	InsertChatLog(ctx context.Context, l *model.ChatLog) error
	ListChatLogs(ctx context.Context, businessID int64, limit int) ([]model.ChatLog, error)
}
