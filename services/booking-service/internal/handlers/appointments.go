package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/apptbook/libs/httpx"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
)

type bookRequest struct {
	ClientID        int64     `json:"client_id,omitempty"`
	BusinessID      int64     `json:"business_id"`
	ServiceID       int64     `json:"service_id"`
	StaffID         *int64    `json:"staff_id,omitempty"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes *int      `json:"duration_minutes,omitempty"`
	SpecialNotes    string    `json:"special_notes,omitempty"`
}

func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	actor, ok := h.withActor(w, r)
	if !ok {
		return
	}
	var req bookRequest
	if !h.decode(w, r, &req) {
		return
	}
	mins := 0
	if req.DurationMinutes != nil {
		mins = *req.DurationMinutes
	} else {
		svc, err := h.Catalog.GetService(r.Context(), req.ServiceID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		mins = svc.DurationMinutes
	}
	res, err := h.Booking.Create(r.Context(), actor, booking.CreateRequest{
		ClientID:        req.ClientID,
		BusinessID:      req.BusinessID,
		ServiceID:       req.ServiceID,
		StaffID:         req.StaffID,
		StartTime:       req.StartTime,
		DurationMinutes: mins,
		Notes:           req.SpecialNotes,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, res)
}

// ListAppointments returns the caller's own bookings for clients, and the
// business's bookings, optionally within from..to, for owners and staff.
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	actor, ok := h.withActor(w, r)
	if !ok {
		return
	}
	var (
		list []model.Appointment
		err  error
	)
	if actor.Role == model.RoleClient {
		list, err = h.Query.ClientAppointments(r.Context(), actor.UserID)
	} else if err = requireBusiness(actor); err == nil {
		var dr *availability.DateRange
		if from := strings.TrimSpace(r.URL.Query().Get("from")); from != "" {
			parsed, perr := availability.ParseDateRange(from, r.URL.Query().Get("to"))
			if perr != nil {
				h.fail(w, r, perr)
				return
			}
			dr = &parsed
		}
		list, err = h.Query.BusinessAppointments(r.Context(), actor.BusinessID, dr)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, nonNil(list))
}

func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	actor, ok := h.withActor(w, r)
	if !ok {
		return
	}
	id, err := queryID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	appt, err := h.Query.Appointment(r.Context(), id)
	if err == nil && !actor.CanAccess(appt) {
		err = model.Forbidden("appointment %d is not accessible", id)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, appt)
}

type transitionRequest struct {
	AppointmentID int64  `json:"appointment_id"`
	Status        string `json:"status"`
	Reason        string `json:"reason,omitempty"`
}

func (h *Handler) TransitionAppointment(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	actor, ok := h.withActor(w, r)
	if !ok {
		return
	}
	var req transitionRequest
	if !h.decode(w, r, &req) {
		return
	}
	target, err := model.ParseStatus(req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.transition(w, r, actor, req.AppointmentID, target, req.Reason)
}

type cancelRequest struct {
	AppointmentID int64  `json:"appointment_id"`
	Reason        string `json:"reason"`
}

func (h *Handler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	actor, ok := h.withActor(w, r)
	if !ok {
		return
	}
	var req cancelRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.transition(w, r, actor, req.AppointmentID, model.StatusCancelled, req.Reason)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, actor model.Actor, id int64, target model.Status, reason string) {
	if id <= 0 {
		h.fail(w, r, model.Validation("appointment_id is required"))
		return
	}
	res, err := h.Booking.Transition(r.Context(), id, target, actor, reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

type rescheduleRequest struct {
	AppointmentID   int64     `json:"appointment_id"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
}

func (h *Handler) RescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	actor, ok := h.withActor(w, r)
	if !ok {
		return
	}
	var req rescheduleRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.AppointmentID <= 0 {
		h.fail(w, r, model.Validation("appointment_id is required"))
		return
	}
	res, err := h.Booking.Reschedule(r.Context(), req.AppointmentID, actor, booking.RescheduleRequest{
		StartTime:       req.StartTime,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

// StaffSchedule shows one day of a staff member's calendar to their business.
func (h *Handler) StaffSchedule(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	actor, ok := h.withActor(w, r)
	if !ok {
		return
	}
	staffID, err := queryID(r, "staff_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	date, err := time.Parse(time.DateOnly, r.URL.Query().Get("date"))
	if err != nil {
		h.fail(w, r, model.Validation("date must be a date (YYYY-MM-DD)"))
		return
	}
	staff, err := h.Catalog.GetStaff(r.Context(), staffID)
	if err == nil && !actor.ActsFor(staff.BusinessID) {
		err = model.Forbidden("staff %d belongs to another business", staffID)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sched, err := h.Query.StaffSchedule(r.Context(), staffID, date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sched)
}
