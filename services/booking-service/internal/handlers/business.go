package handlers

import (
	"net/http"
	"time"

	"github.com/md-rashed-zaman/apptbook/libs/httpx"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/catalog"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/chatbot"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/query"
)

// Business creates (POST), updates (PUT) or reads (GET) the caller's business.
func (h *Handler) Business(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet, http.MethodPost, http.MethodPut) {
		return
	}
	actor, ok := h.withActor(w, r)
	if !ok {
		return
	}
	var (
		biz    model.Business
		err    error
		status = http.StatusOK
	)
	switch r.Method {
	case http.MethodGet:
		if err = requireBusiness(actor); err == nil {
			biz, err = h.Catalog.GetBusiness(r.Context(), actor.BusinessID)
		}
	case http.MethodPost:
		var in catalog.BusinessInput
		if !h.decode(w, r, &in) {
			return
		}
		biz, err = h.Catalog.CreateBusiness(r.Context(), actor, in)
		status = http.StatusCreated
	case http.MethodPut:
		var in catalog.BusinessInput
		if !h.decode(w, r, &in) {
			return
		}
		if err = requireBusiness(actor); err == nil {
			biz, err = h.Catalog.UpdateBusiness(r.Context(), actor, actor.BusinessID, in)
		}
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, status, biz)
}

// BusinessServices creates (POST) or updates (PUT ?id=) a service. GET lists
// all services, inactive ones included.
func (h *Handler) BusinessServices(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet, http.MethodPost, http.MethodPut) {
		return
	}
	actor, ok := h.withActor(w, r)
	if !ok {
		return
	}
	if err := requireBusiness(actor); err != nil {
		h.fail(w, r, err)
		return
	}
	if r.Method == http.MethodGet {
		list, err := h.Catalog.ListServices(r.Context(), actor.BusinessID, false)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, nonNil(list))
		return
	}
	var in catalog.ServiceInput
	if !h.decode(w, r, &in) {
		return
	}
	var (
		svc    model.Service
		err    error
		status = http.StatusCreated
	)
	if r.Method == http.MethodPost {
		svc, err = h.Catalog.CreateService(r.Context(), actor, actor.BusinessID, in)
	} else {
		var id int64
		if id, err = queryID(r, "id"); err == nil {
			svc, err = h.Catalog.UpdateService(r.Context(), actor, id, in)
		}
		status = http.StatusOK
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, status, svc)
}

func (h *Handler) CreateStaff(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	actor, ok := h.withActor(w, r)
	if !ok {
		return
	}
	var in catalog.StaffInput
	if !h.decode(w, r, &in) {
		return
	}
	if err := requireBusiness(actor); err != nil {
		h.fail(w, r, err)
		return
	}
	staff, err := h.Catalog.CreateStaff(r.Context(), actor, actor.BusinessID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, staff)
}

type hoursRequest struct {
	Hours []model.WorkingHours `json:"hours"`
}

// WorkingHours reads (GET) or replaces weekdays of (PUT) a staff schedule.
func (h *Handler) WorkingHours(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet, http.MethodPut) {
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
	var hours []model.WorkingHours
	if r.Method == http.MethodPut {
		var req hoursRequest
		if !h.decode(w, r, &req) {
			return
		}
		hours, err = h.Catalog.SetWorkingHours(r.Context(), actor, staffID, req.Hours)
	} else {
		var staff model.Staff
		staff, err = h.Catalog.GetStaff(r.Context(), staffID)
		if err == nil && !actor.ActsFor(staff.BusinessID) {
			err = model.Forbidden("staff %d belongs to another business", staffID)
		}
		if err == nil {
			hours, err = h.Catalog.ListWorkingHours(r.Context(), staffID)
		}
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, hours)
}

// BusinessFeedback lists individual ratings and comments for the caller's business.
func (h *Handler) BusinessFeedback(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	actor, ok := h.withActor(w, r)
	if !ok {
		return
	}
	if err := requireBusiness(actor); err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := h.Query.BusinessFeedback(r.Context(), actor.BusinessID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, nonNil(list))
}

func (h *Handler) FeedbackSummary(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	actor, ok := h.withActor(w, r)
	if !ok {
		return
	}
	if err := requireBusiness(actor); err != nil {
		h.fail(w, r, err)
		return
	}
	sum, err := h.Query.BusinessFeedbackSummary(r.Context(), actor.BusinessID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sum)
}

// Revenue reports revenue per granularity bucket; only owners see money.
func (h *Handler) Revenue(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	actor, ok := h.withActor(w, r)
	if !ok {
		return
	}
	err := requireBusiness(actor)
	if err == nil && actor.Role != model.RoleOwner {
		err = model.Forbidden("revenue is visible to the owner only")
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	g, err := query.ParseGranularity(q.Get("granularity"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	dr, err := availability.ParseDateRange(q.Get("from"), q.Get("to"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	buckets, err := h.Query.RevenueByPeriod(r.Context(), actor.BusinessID, query.Period{Granularity: g, Range: dr})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var total int64
	for _, b := range buckets {
		total += b.AmountCents
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"granularity": g,
		"from":        dr.From.Format(time.DateOnly),
		"to":          dr.To.Format(time.DateOnly),
		"total_cents": total,
		"buckets":     nonNil(buckets),
	})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	actor, ok := h.withActor(w, r)
	if !ok {
		return
	}
	if err := requireBusiness(actor); err != nil {
		h.fail(w, r, err)
		return
	}
	stats, err := h.Query.BusinessStats(r.Context(), actor.BusinessID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) AddKnowledge(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	actor, ok := h.withActor(w, r)
	if !ok {
		return
	}
	var in chatbot.KnowledgeInput
	if !h.decode(w, r, &in) {
		return
	}
	if err := requireBusiness(actor); err != nil {
		h.fail(w, r, err)
		return
	}
	k, err := h.Chatbot.AddKnowledge(r.Context(), actor, actor.BusinessID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, k)
}

func (h *Handler) ChatLogs(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	actor, ok := h.withActor(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit", 100)
	if err == nil {
		err = requireBusiness(actor)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	logs, err := h.Chatbot.Logs(r.Context(), actor, actor.BusinessID, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, nonNil(logs))
}
