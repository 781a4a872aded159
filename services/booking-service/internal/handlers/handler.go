// Package handlers exposes the booking service over JSON/HTTP.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/md-rashed-zaman/apptbook/libs/auth"
	"github.com/md-rashed-zaman/apptbook/libs/httpx"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/catalog"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/chatbot"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/feedback"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/notifications"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/payments"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/query"
)

type Deps struct {
	Booking       *booking.Service
	Query         *query.Service
	Checker       *availability.Checker
	Catalog       *catalog.Service
	Feedback      *feedback.Service
	Payments      *payments.Service
	Notifications *notifications.Dispatcher
	Chatbot       *chatbot.Service
}

type Handler struct {
	Deps
	logger *slog.Logger
}

func New(logger *slog.Logger, deps Deps) *Handler {
	return &Handler{Deps: deps, logger: logger}
}

// Register mounts every route on mux. protect wraps the routes that need a
// known caller, typically auth.RequireAuth. Business management routes
// additionally require the owner or staff role.
func (h *Handler) Register(mux *http.ServeMux, protect func(http.Handler) http.Handler) {
	if protect == nil {
		protect = func(next http.Handler) http.Handler { return next }
	}
	private := func(path string, fn http.HandlerFunc) {
		mux.Handle(path, protect(fn))
	}
	businessOnly := auth.RequireRole(string(model.RoleOwner), string(model.RoleStaff))
	manage := func(path string, fn http.HandlerFunc) {
		mux.Handle(path, protect(businessOnly(fn)))
	}

	mux.HandleFunc("/api/v1/public/business", h.PublicBusiness)
	mux.HandleFunc("/api/v1/public/services", h.PublicServices)
	mux.HandleFunc("/api/v1/public/staff", h.PublicStaff)
	mux.HandleFunc("/api/v1/public/availability", h.Availability)
	mux.HandleFunc("/api/v1/public/slots", h.Slots)
	mux.HandleFunc("/api/v1/public/chatbot/knowledge", h.PublicKnowledge)
	mux.HandleFunc("/api/v1/public/chatbot/ask", h.AskChatbot)

	private("/api/v1/appointments/book", h.Book)
	private("/api/v1/appointments", h.ListAppointments)
	private("/api/v1/appointments/get", h.GetAppointment)
	private("/api/v1/appointments/transition", h.TransitionAppointment)
	private("/api/v1/appointments/cancel", h.CancelAppointment)
	private("/api/v1/appointments/reschedule", h.RescheduleAppointment)
	manage("/api/v1/staff/schedule", h.StaffSchedule)

	manage("/api/v1/business", h.Business)
	manage("/api/v1/business/services", h.BusinessServices)
	manage("/api/v1/business/staff", h.CreateStaff)
	manage("/api/v1/business/staff/hours", h.WorkingHours)
	manage("/api/v1/business/feedback", h.BusinessFeedback)
	manage("/api/v1/business/feedback/summary", h.FeedbackSummary)
	manage("/api/v1/business/revenue", h.Revenue)
	manage("/api/v1/business/stats", h.Stats)
	manage("/api/v1/business/chatbot/knowledge", h.AddKnowledge)
	manage("/api/v1/business/chatbot/logs", h.ChatLogs)

	private("/api/v1/feedback", h.AppointmentFeedback)
	private("/api/v1/payments", h.AppointmentPayments)
	private("/api/v1/payments/status", h.PaymentStatus)
	private("/api/v1/notifications", h.Inbox)
	private("/api/v1/notifications/read", h.MarkNotificationRead)
}

func allow(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	httpx.WriteError(w, http.StatusMethodNotAllowed, "", "method not allowed")
	return false
}

var errNoIdentity = errors.New("missing caller identity")

// actor reads the caller from the identity headers. Owners whose token
// carries no business are resolved through the business they own.
func (h *Handler) actor(r *http.Request) (model.Actor, error) {
	userID, err := strconv.ParseInt(strings.TrimSpace(r.Header.Get(auth.HeaderUserID)), 10, 64)
	if err != nil || userID <= 0 {
		return model.Actor{}, errNoIdentity
	}
	role, err := model.ParseRole(strings.TrimSpace(r.Header.Get(auth.HeaderRole)))
	if err != nil || role == model.RoleSystem {
		return model.Actor{}, errNoIdentity
	}
	a := model.Actor{UserID: userID, Role: role}
	if raw := strings.TrimSpace(r.Header.Get(auth.HeaderBusinessID)); raw != "" {
		a.BusinessID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return model.Actor{}, errNoIdentity
		}
	}
	if a.Role == model.RoleOwner && a.BusinessID == 0 && h.Catalog != nil {
		if biz, err := h.Catalog.BusinessForOwner(r.Context(), a.UserID); err == nil {
			a.BusinessID = biz.ID
		}
	}
	return a, nil
}

// withActor resolves the caller or answers 401.
func (h *Handler) withActor(w http.ResponseWriter, r *http.Request) (model.Actor, bool) {
	a, err := h.actor(r)
	if err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return model.Actor{}, false
	}
	return a, true
}

func requireBusiness(a model.Actor) error {
	if a.Role == model.RoleClient {
		return model.Forbidden("business staff only")
	}
	if a.BusinessID == 0 {
		return model.NotFound("no business is associated with this account")
	}
	return nil
}

var statusByKind = map[model.Kind]int{
	model.KindValidation:        http.StatusBadRequest,
	model.KindNotFound:          http.StatusNotFound,
	model.KindSlotConflict:      http.StatusConflict,
	model.KindInvalidTransition: http.StatusConflict,
	model.KindGeneration:        http.StatusServiceUnavailable,
	model.KindForbidden:         http.StatusForbidden,
	model.KindAlreadyExists:     http.StatusConflict,
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := model.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		if errors.Is(err, context.DeadlineExceeded) {
			httpx.WriteError(w, http.StatusGatewayTimeout, string(model.KindInternal), "request timed out")
			return
		}
		h.logger.Error("request failed", "path", r.URL.Path, "request_id", httpx.RequestIDFromContext(r.Context()), "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, string(model.KindInternal), "internal error")
		return
	}
	httpx.WriteError(w, status, string(kind), model.Message(err))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, string(model.KindValidation), err.Error())
		return false
	}
	return true
}

func queryID(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, model.Validation("%s is required", name)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, model.Validation("%s must be a positive integer", name)
	}
	return id, nil
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, model.Validation("%s must be an integer", name)
	}
	return n, nil
}
