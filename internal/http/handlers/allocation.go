package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainagg "github.com/yungbote/clubops-backend/internal/domain/aggregates"
	"github.com/yungbote/clubops-backend/internal/http/response"
	"github.com/yungbote/clubops-backend/internal/platform/dbctx"
	"github.com/yungbote/clubops-backend/internal/services"
)

type AllocationHandler struct {
	allocation domainagg.AllocationAggregate
	query      services.QueryService
}

func NewAllocationHandler(allocation domainagg.AllocationAggregate, query services.QueryService) *AllocationHandler {
	return &AllocationHandler{allocation: allocation, query: query}
}

// POST /api/v1/subjects (admin)
func (h *AllocationHandler) CreateSubject(c *gin.Context) {
	var req struct {
		Title    string `json:"title"`
		Capacity int    `json:"capacity"`
	}
	if err := bindJSON(c, &req); err != nil {
		response.RespondErr(c, err)
		return
	}
	res, err := h.allocation.CreateSubject(c.Request.Context(), domainagg.CreateSubjectInput{Title: req.Title, Capacity: req.Capacity})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"subject": gin.H{
		"id":       res.SubjectID,
		"title":    res.Title,
		"capacity": res.Capacity,
		"count":    res.Count,
	}})
}

// GET /api/v1/subjects/:id
func (h *AllocationHandler) GetSubject(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	row, err := h.query.GetSubject(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"subject": row})
}

// GET /api/v1/subjects/:id/members
func (h *AllocationHandler) ListMembers(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	rows, err := h.query.ListMembers(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"members": rows})
}

// POST /api/v1/subjects/:id/allocations
func (h *AllocationHandler) Allocate(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	var req struct {
		ActorID *uuid.UUID `json:"actor_id"`
	}
	if c.Request.ContentLength != 0 {
		if err := bindJSON(c, &req); err != nil {
			response.RespondErr(c, err)
			return
		}
	}
	actor, err := actorOrCaller(c, req.ActorID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	res, err := h.allocation.AllocateImmediate(c.Request.Context(), domainagg.AllocateInput{SubjectID: id, ActorID: actor})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"allocation": gin.H{
		"subject_id":    res.SubjectID,
		"actor_id":      res.ActorID,
		"membership_id": res.MembershipID,
		"count":         res.Count,
		"capacity":      res.Capacity,
		"allocated_at":  res.AllocatedAt,
	}})
}

// POST /api/v1/subjects/:id/applications
func (h *AllocationHandler) Apply(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	var req struct {
		ActorID *uuid.UUID `json:"actor_id"`
		Note    string     `json:"note"`
	}
	if err := bindJSON(c, &req); err != nil {
		response.RespondErr(c, err)
		return
	}
	actor, err := actorOrCaller(c, req.ActorID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	res, err := h.allocation.Apply(c.Request.Context(), domainagg.ApplyInput{SubjectID: id, ActorID: actor, Note: req.Note})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"application": applicationView(res)})
}

// GET /api/v1/subjects/:id/applications?status=PENDING,APPROVED
func (h *AllocationHandler) ListApplications(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	limit, err := queryLimit(c)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	var statuses []string
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		statuses = strings.Split(raw, ",")
	}
	rows, err := h.query.ListApplications(dbctx.Context{Ctx: c.Request.Context()}, id, statuses, limit)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"applications": rows})
}

// PATCH /api/v1/applications/:id
func (h *AllocationHandler) UpdateApplication(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	var req struct {
		Note string `json:"note"`
	}
	if err := bindJSON(c, &req); err != nil {
		response.RespondErr(c, err)
		return
	}
	res, err := h.allocation.UpdateApplication(c.Request.Context(), domainagg.UpdateApplicationInput{ApplicationID: id, Note: req.Note})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"application": applicationView(res)})
}

// POST /api/v1/applications/:id/approve (admin)
func (h *AllocationHandler) Approve(c *gin.Context) {
	h.decide(c, h.allocation.Approve)
}

// POST /api/v1/applications/:id/reject (admin)
func (h *AllocationHandler) Reject(c *gin.Context) {
	h.decide(c, h.allocation.Reject)
}

func (h *AllocationHandler) decide(c *gin.Context, fn func(context.Context, domainagg.DecideApplicationInput) (domainagg.ApplicationResult, error)) {
	id, err := uuidParam(c, "id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	res, err := fn(c.Request.Context(), domainagg.DecideApplicationInput{ApplicationID: id})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"application": applicationView(res)})
}

func applicationView(res domainagg.ApplicationResult) gin.H {
	return gin.H{
		"id":            res.ApplicationID,
		"subject_id":    res.SubjectID,
		"actor_id":      res.ActorID,
		"status":        res.Status,
		"note":          res.Note,
		"membership_id": res.MembershipID,
		"count":         res.Count,
		"capacity":      res.Capacity,
		"updated_at":    res.UpdatedAt,
	}
}
