package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/apptbook/libs/auth"
	"github.com/md-rashed-zaman/apptbook/libs/httpx"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/chatbot"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
)

type slotItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func (h *Handler) PublicBusiness(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	id, err := queryID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	biz, err := h.Catalog.GetBusiness(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, biz)
}

func (h *Handler) PublicServices(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	id, err := queryID(r, "business_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := h.Catalog.ListServices(r.Context(), id, true)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, nonNil(list))
}

func (h *Handler) PublicStaff(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	id, err := queryID(r, "business_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := h.Catalog.ListStaff(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	active := make([]model.Staff, 0, len(list))
	for _, m := range list {
		if m.Active {
			active = append(active, m)
		}
	}
	httpx.WriteJSON(w, http.StatusOK, active)
}

// duration resolves duration_minutes, or the duration of service_id when absent.
func (h *Handler) duration(r *http.Request) (int, error) {
	if raw := strings.TrimSpace(r.URL.Query().Get("duration_minutes")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, model.Validation("duration_minutes must be an integer")
		}
		return n, nil
	}
	serviceID, err := queryID(r, "service_id")
	if err != nil {
		return 0, model.Validation("service_id or duration_minutes is required")
	}
	svc, err := h.Catalog.GetService(r.Context(), serviceID)
	if err != nil {
		return 0, err
	}
	return svc.DurationMinutes, nil
}

// Availability lists the free ranges of a staff member over from..to.
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	staffID, err := queryID(r, "staff_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	dr, err := availability.ParseDateRange(q.Get("from"), q.Get("to"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	mins, err := h.duration(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	free, err := h.Checker.FindFreeSlots(r.Context(), staffID, dr, mins)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := make([]slotItem, 0, len(free))
	for _, iv := range free {
		resp = append(resp, slotItem{
			StartTime: iv.Start.UTC().Format(time.RFC3339),
			EndTime:   iv.End.UTC().Format(time.RFC3339),
		})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// Slots lists bookable start times for one day, every slot_step_minutes.
func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	staffID, err := queryID(r, "staff_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	dr, err := availability.ParseDateRange(r.URL.Query().Get("date"), "")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	mins, err := h.duration(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	step, err := queryInt(r, "slot_step_minutes", 15)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	starts, err := h.Checker.Slots(r.Context(), staffID, dr, mins, step)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := make([]slotItem, 0, len(starts))
	for _, s := range starts {
		resp = append(resp, slotItem{
			StartTime: s.UTC().Format(time.RFC3339),
			EndTime:   s.Add(time.Duration(mins) * time.Minute).UTC().Format(time.RFC3339),
		})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) PublicKnowledge(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	id, err := queryID(r, "business_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := h.Chatbot.ListKnowledge(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, nonNil(list))
}

func (h *Handler) AskChatbot(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req chatbot.Question
	if !h.decode(w, r, &req) {
		return
	}
	// Anonymous visitors are allowed; a known client is attached to the log.
	var clientID *int64
	if id, err := strconv.ParseInt(r.Header.Get(auth.HeaderUserID), 10, 64); err == nil && id > 0 {
		clientID = &id
	}
	ans, err := h.Chatbot.Ask(r.Context(), clientID, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ans)
}

func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
