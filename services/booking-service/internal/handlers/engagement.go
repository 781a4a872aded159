package handlers

import (
	"net/http"

	"github.com/md-rashed-zaman/apptbook/libs/httpx"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/feedback"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/notifications"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/payments"
)

// AppointmentFeedback records a rating (POST) or returns the one left for
// ?appointment_id= (GET).
func (h *Handler) AppointmentFeedback(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	actor, ok := h.withActor(w, r)
	if !ok {
		return
	}
	if r.Method == http.MethodGet {
		id, err := queryID(r, "appointment_id")
		if err != nil {
			h.fail(w, r, err)
			return
		}
		fb, err := h.Feedback.ForAppointment(r.Context(), actor, id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, fb)
		return
	}
	var in feedback.Input
	if !h.decode(w, r, &in) {
		return
	}
	fb, err := h.Feedback.Create(r.Context(), actor, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, fb)
}

func (h *Handler) AppointmentPayments(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	actor, ok := h.withActor(w, r)
	if !ok {
		return
	}
	if r.Method == http.MethodGet {
		id, err := queryID(r, "appointment_id")
		if err != nil {
			h.fail(w, r, err)
			return
		}
		list, err := h.Payments.ForAppointment(r.Context(), actor, id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, nonNil(list))
		return
	}
	var in payments.Input
	if !h.decode(w, r, &in) {
		return
	}
	p, err := h.Payments.Create(r.Context(), actor, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, p)
}

type paymentStatusRequest struct {
	PaymentID      int64  `json:"payment_id"`
	Status         string `json:"status"`
	TransactionRef string `json:"transaction_id,omitempty"`
}

func (h *Handler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	actor, ok := h.withActor(w, r)
	if !ok {
		return
	}
	var req paymentStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.PaymentID <= 0 {
		h.fail(w, r, model.Validation("payment_id is required"))
		return
	}
	status, err := model.ParsePaymentStatus(req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.Payments.UpdateStatus(r.Context(), actor, req.PaymentID, status, req.TransactionRef)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

// Inbox lists the caller's inbox (GET, ?unread=true) or lets an
// owner send a message to a client (POST).
func (h *Handler) Inbox(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	actor, ok := h.withActor(w, r)
	if !ok {
		return
	}
	if r.Method == http.MethodGet {
		unread := r.URL.Query().Get("unread") == "true"
		list, err := h.Notifications.ListForUser(r.Context(), actor.UserID, unread)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, nonNil(list))
		return
	}
	var req notifications.SendRequest
	if !h.decode(w, r, &req) {
		return
	}
	n, err := h.Notifications.Send(r.Context(), actor, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, n)
}

type markReadRequest struct {
	NotificationID int64 `json:"notification_id"`
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	actor, ok := h.withActor(w, r)
	if !ok {
		return
	}
	var req markReadRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.NotificationID <= 0 {
		h.fail(w, r, model.Validation("notification_id is required"))
		return
	}
	if err := h.Notifications.MarkRead(r.Context(), actor.UserID, req.NotificationID); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "read"})
}
